package models

import "time"

// Politician represents a member of parliament whose speeches are profiled.
type Politician struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	FullName string `json:"full_name"`
	Active   bool   `json:"active"`

	// Aggregates maintained by the sync passes
	TotalTimeSeconds  int64 `json:"total_time_seconds"`
	ProfilesRequired  int   `json:"profiles_required"`
	ProfilesGenerated int   `json:"profiles_generated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlenarySession represents one sitting of parliament.
type PlenarySession struct {
	ID            int64     `json:"id"`
	Membership    int       `json:"membership"`
	SessionNumber int       `json:"session_number"`
	Date          time.Time `json:"date"`
	Title         string    `json:"title"`
	TitleEN       *string   `json:"title_en,omitempty"`
	TitleRU       *string   `json:"title_ru,omitempty"`
	IsIncomplete  bool      `json:"is_incomplete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgendaItem represents one agenda point within a plenary session.
type AgendaItem struct {
	ID               int64     `json:"id"`
	UUID             string    `json:"uuid"`
	PlenarySessionID int64     `json:"plenary_session_id"`
	Date             time.Time `json:"date"`
	Title            string    `json:"title"`
	TitleEN          *string   `json:"title_en,omitempty"`
	TitleRU          *string   `json:"title_ru,omitempty"`
	TotalTimeSeconds *int64    `json:"total_time_seconds,omitempty"`
	IsIncomplete     bool      `json:"is_incomplete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
