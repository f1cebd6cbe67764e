package models

import (
	"strings"
	"time"
)

// Event types recorded in session transcripts. Only SPEECH events carry
// text worth summarizing or profiling.
const (
	EventTypeSpeech        = "SPEECH"
	EventTypeVotingResult  = "VOTING_RESULT"
	EventTypePresenceCheck = "PRESENCE_CHECK"
	EventTypeSessionEnd    = "SESSION_END"
)

// StenogramPendingText is the normalized placeholder stored while the
// official transcript of a speech is still being prepared upstream.
const StenogramPendingText = "Stenogramm on koostamisel"

// Speech is an immutable transcript fragment produced by an external
// ingestion process. Oratio reads speeches; it never edits their text.
type Speech struct {
	ID           int64      `json:"id"`
	UUID         string     `json:"uuid"`
	AgendaItemID int64      `json:"agenda_item_id"`
	PoliticianID *int64     `json:"politician_id,omitempty"`
	EventType    string     `json:"event_type"`
	Date         time.Time  `json:"date"`
	Speaker      string     `json:"speaker"`
	Text         string     `json:"text"`
	Link         *string    `json:"link,omitempty"`
	IsIncomplete bool       `json:"is_incomplete"`
	ParsedAt     *time.Time `json:"parsed_at,omitempty"`

	// Generated fields
	AISummary            *string    `json:"ai_summary,omitempty"`
	AISummaryEN          *string    `json:"ai_summary_en,omitempty"`
	AISummaryRU          *string    `json:"ai_summary_ru,omitempty"`
	AISummaryGeneratedAt *time.Time `json:"ai_summary_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasText reports whether the speech carries usable transcript text.
func (s *Speech) HasText() bool {
	return strings.TrimSpace(s.Text) != ""
}

// MonthKey returns the speech date formatted as MM.YYYY, the key format
// used by month-scoped profile parts.
func (s *Speech) MonthKey() string {
	return MonthKey(s.Date)
}
