package models

import "time"

// AgendaSummary is the structured AI summary of one agenda item.
// One row per agenda item.
type AgendaSummary struct {
	ID           int64   `json:"id"`
	AgendaItemID int64   `json:"agenda_item_id"`
	SummaryText  string  `json:"summary_text"`
	SummaryEN    *string `json:"summary_text_en,omitempty"`
	SummaryRU    *string `json:"summary_text_ru,omitempty"`
	IsIncomplete bool    `json:"is_incomplete"`

	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AgendaDecision is one decision extracted from an agenda discussion.
// PoliticianID is null for collective decisions.
type AgendaDecision struct {
	ID           int64   `json:"id"`
	AgendaItemID int64   `json:"agenda_item_id"`
	PoliticianID *int64  `json:"politician_id,omitempty"`
	Text         string  `json:"decision_text"`
	TextEN       *string `json:"decision_text_en,omitempty"`
	TextRU       *string `json:"decision_text_ru,omitempty"`
	IsIncomplete bool    `json:"is_incomplete"`

	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AgendaActivePolitician records the most active speaker of an agenda
// item and a short description of their position. PoliticianID is null
// when the discussion had no notably active speaker; the row is still
// written so a prior successful run can be told apart from a failed one.
type AgendaActivePolitician struct {
	ID            int64   `json:"id"`
	AgendaItemID  int64   `json:"agenda_item_id"`
	PoliticianID  *int64  `json:"politician_id,omitempty"`
	Description   string  `json:"activity_description"`
	DescriptionEN *string `json:"activity_description_en,omitempty"`
	DescriptionRU *string `json:"activity_description_ru,omitempty"`
	IsIncomplete  bool    `json:"is_incomplete"`

	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StatEntry is one named coverage metric maintained by the stats sync.
type StatEntry struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Value       int64     `json:"value"`
	Percentage  *float64  `json:"percentage,omitempty"`
	ComputedAt  time.Time `json:"computed_at"`
	Description string    `json:"description,omitempty"`
}
