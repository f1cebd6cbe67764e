// -----------------------------------------------------------------------
// Profile Parts - generated [category x period] analysis cells
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// ProfileCategory is a fixed profiling dimension. The completeness
// tracker operates over the Cartesian product of categories and scopes.
type ProfileCategory string

const (
	CategoryPoliticalPosition  ProfileCategory = "POLITICAL_POSITION"
	CategoryTopicExpertise     ProfileCategory = "TOPIC_EXPERTISE"
	CategoryRhetoricalStyle    ProfileCategory = "RHETORICAL_STYLE"
	CategoryActivityPatterns   ProfileCategory = "ACTIVITY_PATTERNS"
	CategoryOppositionStance   ProfileCategory = "OPPOSITION_STANCE"
	CategoryCollaborationStyle ProfileCategory = "COLLABORATION_STYLE"
	CategoryRegionalFocus      ProfileCategory = "REGIONAL_FOCUS"
	CategoryEconomicViews      ProfileCategory = "ECONOMIC_VIEWS"
	CategorySocialIssues       ProfileCategory = "SOCIAL_ISSUES"
	CategoryLegislativeFocus   ProfileCategory = "LEGISLATIVE_FOCUS"
)

// AllCategories returns every profile category in stable order.
func AllCategories() []ProfileCategory {
	return []ProfileCategory{
		CategoryPoliticalPosition,
		CategoryTopicExpertise,
		CategoryRhetoricalStyle,
		CategoryActivityPatterns,
		CategoryOppositionStance,
		CategoryCollaborationStyle,
		CategoryRegionalFocus,
		CategoryEconomicViews,
		CategorySocialIssues,
		CategoryLegislativeFocus,
	}
}

// IsValidCategory reports whether s names a known profile category.
func IsValidCategory(s string) bool {
	for _, c := range AllCategories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// PeriodType identifies the partition kind a profile part covers.
type PeriodType string

const (
	PeriodAgenda         PeriodType = "AGENDA"
	PeriodPlenarySession PeriodType = "PLENARY_SESSION"
	PeriodMonth          PeriodType = "MONTH"
	PeriodYear           PeriodType = "YEAR"
	PeriodAll            PeriodType = "ALL"
)

// NonAllPeriodTypes are the phase-1 scope kinds, in generation order.
func NonAllPeriodTypes() []PeriodType {
	return []PeriodType{PeriodAgenda, PeriodPlenarySession, PeriodMonth, PeriodYear}
}

// MonthKey formats a timestamp as MM.YYYY, the month discriminator format.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%02d.%d", int(t.Month()), t.Year())
}

// Scope is a tagged partition key. Exactly one discriminator is set for
// the period type it carries; ALL carries none — the all-null tuple is
// the only legal representation of the all-time scope.
type Scope struct {
	Type      PeriodType `json:"type"`
	AgendaID  *int64     `json:"agenda_id,omitempty"`
	SessionID *int64     `json:"session_id,omitempty"`
	Month     *string    `json:"month,omitempty"` // MM.YYYY
	Year      *int       `json:"year,omitempty"`
}

// AgendaScope returns the scope covering a single agenda item.
func AgendaScope(agendaID int64) Scope {
	return Scope{Type: PeriodAgenda, AgendaID: &agendaID}
}

// SessionScope returns the scope covering a single plenary session.
func SessionScope(sessionID int64) Scope {
	return Scope{Type: PeriodPlenarySession, SessionID: &sessionID}
}

// MonthScope returns the scope covering one MM.YYYY month.
func MonthScope(month string) Scope {
	return Scope{Type: PeriodMonth, Month: &month}
}

// YearScope returns the scope covering one calendar year.
func YearScope(year int) Scope {
	return Scope{Type: PeriodYear, Year: &year}
}

// AllScope returns the all-time scope.
func AllScope() Scope {
	return Scope{Type: PeriodAll}
}

// Key returns a stable string identity for the scope, usable as a map
// key when deduplicating work items.
func (s Scope) Key() string {
	switch s.Type {
	case PeriodAgenda:
		if s.AgendaID != nil {
			return fmt.Sprintf("AGENDA:%d", *s.AgendaID)
		}
	case PeriodPlenarySession:
		if s.SessionID != nil {
			return fmt.Sprintf("PLENARY_SESSION:%d", *s.SessionID)
		}
	case PeriodMonth:
		if s.Month != nil {
			return "MONTH:" + *s.Month
		}
	case PeriodYear:
		if s.Year != nil {
			return fmt.Sprintf("YEAR:%d", *s.Year)
		}
	case PeriodAll:
		return "ALL"
	}
	return string(s.Type) + ":?"
}

// Describe returns a human-readable scope label for logs and reports.
func (s Scope) Describe() string {
	switch s.Type {
	case PeriodAgenda:
		if s.AgendaID != nil {
			return fmt.Sprintf("agenda %d", *s.AgendaID)
		}
	case PeriodPlenarySession:
		if s.SessionID != nil {
			return fmt.Sprintf("session %d", *s.SessionID)
		}
	case PeriodMonth:
		if s.Month != nil {
			return "month " + *s.Month
		}
	case PeriodYear:
		if s.Year != nil {
			return fmt.Sprintf("year %d", *s.Year)
		}
	case PeriodAll:
		return "all time"
	}
	return string(s.Type)
}

// Validate checks that the discriminators match the period type: exactly
// one set for a concrete period, none for ALL.
func (s Scope) Validate() error {
	count := 0
	if s.AgendaID != nil {
		count++
	}
	if s.SessionID != nil {
		count++
	}
	if s.Month != nil {
		count++
	}
	if s.Year != nil {
		count++
	}
	if s.Type == PeriodAll {
		if count != 0 {
			return fmt.Errorf("ALL scope must carry no discriminators, found %d", count)
		}
		return nil
	}
	if count != 1 {
		return fmt.Errorf("%s scope must carry exactly one discriminator, found %d", s.Type, count)
	}
	switch s.Type {
	case PeriodAgenda:
		if s.AgendaID == nil {
			return fmt.Errorf("AGENDA scope missing agenda id")
		}
	case PeriodPlenarySession:
		if s.SessionID == nil {
			return fmt.Errorf("PLENARY_SESSION scope missing session id")
		}
	case PeriodMonth:
		if s.Month == nil {
			return fmt.Errorf("MONTH scope missing month key")
		}
	case PeriodYear:
		if s.Year == nil {
			return fmt.Errorf("YEAR scope missing year")
		}
	default:
		return fmt.Errorf("unknown period type: %s", s.Type)
	}
	return nil
}

// ProfileMetrics holds the quantitative block persisted with every part.
// SpeechesCount and the date range are always present; the remaining
// fields are category-specific.
type ProfileMetrics struct {
	SpeechesCount  int    `json:"speeches_count"`
	DateRangeStart string `json:"date_range_start,omitempty"`
	DateRangeEnd   string `json:"date_range_end,omitempty"`

	// ACTIVITY_PATTERNS only: YYYY-MM bucket counts
	MonthlyDistribution map[string]int `json:"monthly_distribution,omitempty"`

	// RHETORICAL_STYLE only: character-length statistics
	AvgSpeechLength int `json:"avg_speech_length,omitempty"`
	MinSpeechLength int `json:"min_speech_length,omitempty"`
	MaxSpeechLength int `json:"max_speech_length,omitempty"`

	// ALL parts only: how many monthly parts fed the aggregate
	MonthlyProfilesAggregated int `json:"monthly_profiles_aggregated,omitempty"`
}

// ProfilePart is a generated analysis artifact keyed by
// (politician, category, scope). At most one row exists per key.
type ProfilePart struct {
	ID           int64           `json:"id"`
	PoliticianID int64           `json:"politician_id"`
	Category     ProfileCategory `json:"category"`
	PeriodType   PeriodType      `json:"period_type"`

	// Scope discriminators; only the one matching PeriodType is set,
	// all four are null for ALL.
	AgendaItemID     *int64  `json:"agenda_item_id,omitempty"`
	PlenarySessionID *int64  `json:"plenary_session_id,omitempty"`
	Month            *string `json:"month,omitempty"`
	Year             *int    `json:"year,omitempty"`

	Analysis   string  `json:"analysis"`
	AnalysisEN *string `json:"analysis_en,omitempty"`
	AnalysisRU *string `json:"analysis_ru,omitempty"`

	Metrics          ProfileMetrics `json:"metrics"`
	SpeechesAnalyzed int            `json:"speeches_analyzed"`
	DateRangeStart   *time.Time     `json:"date_range_start,omitempty"`
	DateRangeEnd     *time.Time     `json:"date_range_end,omitempty"`
	IsIncomplete     bool           `json:"is_incomplete"`
	GeneratedAt      *time.Time     `json:"generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scope reconstructs the tagged partition key from the stored
// discriminator columns.
func (p *ProfilePart) Scope() Scope {
	return Scope{
		Type:      p.PeriodType,
		AgendaID:  p.AgendaItemID,
		SessionID: p.PlenarySessionID,
		Month:     p.Month,
		Year:      p.Year,
	}
}

// Validate checks the category, the period type, and that the
// discriminator columns are consistent with the period type.
func (p *ProfilePart) Validate() error {
	if !IsValidCategory(string(p.Category)) {
		return fmt.Errorf("unknown profile category: %s", p.Category)
	}
	return p.Scope().Validate()
}
