// -----------------------------------------------------------------------
// Storage contracts - relational persistence for parliament entities
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/oratio/internal/models"
)

// ErrNotFound is returned when an entity lookup finds no row.
var ErrNotFound = errors.New("not found")

// PoliticianStorage - politician persistence and profiling aggregates
type PoliticianStorage interface {
	SavePolitician(ctx context.Context, politician *models.Politician) error
	GetPolitician(ctx context.Context, id int64) (*models.Politician, error)
	GetPoliticianByUUID(ctx context.Context, uuid string) (*models.Politician, error)
	ListPoliticians(ctx context.Context) ([]*models.Politician, error)
	// ListPoliticiansWithSpeeches returns politicians that have at least
	// one SPEECH event, ordered by id. Used by the profile-all fan-out.
	ListPoliticiansWithSpeeches(ctx context.Context) ([]*models.Politician, error)
	UpdateProfilingCounts(ctx context.Context, id int64, required, generated int) error
	UpdateTotalTime(ctx context.Context, id int64, seconds int64) error
	CountPoliticians(ctx context.Context) (int, error)
}

// SessionStorage - plenary sessions and agenda items
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.PlenarySession) error
	GetSession(ctx context.Context, id int64) (*models.PlenarySession, error)
	ListSessions(ctx context.Context) ([]*models.PlenarySession, error)
	SessionExists(ctx context.Context, id int64) (bool, error)
	UpdateSessionTitle(ctx context.Context, id int64, title string) error
	UpdateSessionTitleTranslations(ctx context.Context, id int64, en, ru *string) error
	SetSessionIncomplete(ctx context.Context, id int64, incomplete bool) error
	CountSessions(ctx context.Context) (int, error)

	SaveAgendaItem(ctx context.Context, item *models.AgendaItem) error
	GetAgendaItem(ctx context.Context, id int64) (*models.AgendaItem, error)
	ListAgendaItems(ctx context.Context) ([]*models.AgendaItem, error)
	ListAgendaItemsBySession(ctx context.Context, sessionID int64) ([]*models.AgendaItem, error)
	AgendaItemExists(ctx context.Context, id int64) (bool, error)
	UpdateAgendaTitle(ctx context.Context, id int64, title string) error
	UpdateAgendaTitleTranslations(ctx context.Context, id int64, en, ru *string) error
	UpdateAgendaTotalTime(ctx context.Context, id int64, seconds int64) error
	SetAgendaIncomplete(ctx context.Context, id int64, incomplete bool) error
	CountAgendaItems(ctx context.Context) (int, error)
}

// SpeechFilter narrows speech listings. Zero values mean no constraint.
type SpeechFilter struct {
	AgendaItemID     int64
	PlenarySessionID int64
	PoliticianID     int64
	SpeechID         int64
	EventType        string
	// ExcludeIncomplete drops speeches whose stenogram is pending.
	ExcludeIncomplete bool
	// MissingSummaryOnly keeps only speeches without a stored summary.
	MissingSummaryOnly bool
}

// SpeechStorage - transcript fragments (read-mostly; text is immutable
// here except for the HTML cleanup pass)
type SpeechStorage interface {
	SaveSpeech(ctx context.Context, speech *models.Speech) error
	SaveSpeeches(ctx context.Context, speeches []*models.Speech) (int, error)
	GetSpeech(ctx context.Context, id int64) (*models.Speech, error)
	ListSpeeches(ctx context.Context, filter SpeechFilter) ([]*models.Speech, error)
	// ListSpeechesByPolitician returns SPEECH events ordered by date,
	// the input the period partitioner and profiler consume.
	ListSpeechesByPolitician(ctx context.Context, politicianID int64) ([]*models.Speech, error)
	UpdateSpeechText(ctx context.Context, id int64, speaker, text string) error
	UpdateSpeechSummary(ctx context.Context, id int64, summary string, generatedAt time.Time) error
	UpdateSpeechSummaryTranslations(ctx context.Context, id int64, en, ru *string) error
	SetSpeechIncomplete(ctx context.Context, id int64, incomplete bool) error
	CountSpeeches(ctx context.Context, filter SpeechFilter) (int, error)
	DeleteAllSpeeches(ctx context.Context) (int64, error)
}

// ProfileStorage - generated profile parts keyed (politician, category, scope)
type ProfileStorage interface {
	// UpsertProfilePart creates or replaces the part for its scope key.
	// When the analysis text changes, stored translations are cleared.
	UpsertProfilePart(ctx context.Context, part *models.ProfilePart) error
	// GetProfilePart returns the part for the exact scope key, or
	// ErrNotFound.
	GetProfilePart(ctx context.Context, politicianID int64, category models.ProfileCategory, scope models.Scope) (*models.ProfilePart, error)
	ListProfileParts(ctx context.Context, politicianID int64) ([]*models.ProfilePart, error)
	ListProfilePartsByPeriod(ctx context.Context, politicianID int64, periodType models.PeriodType) ([]*models.ProfilePart, error)
	ListAllProfileParts(ctx context.Context) ([]*models.ProfilePart, error)
	ListProfilePartsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.ProfilePart, error)
	UpdateProfileTranslations(ctx context.Context, id int64, en, ru *string) error
	SetProfileIncomplete(ctx context.Context, id int64, incomplete bool) error
	DeleteProfilePart(ctx context.Context, id int64) error
	CountProfileParts(ctx context.Context) (int, error)
	CountProfilePartsByPolitician(ctx context.Context, politicianID int64) (int, error)
}

// SummaryStorage - agenda summaries, decisions, and active-politician rows
type SummaryStorage interface {
	GetAgendaSummary(ctx context.Context, agendaItemID int64) (*models.AgendaSummary, error)
	// UpsertAgendaSummary creates or replaces the one summary row per
	// agenda item, clearing translations when the text changes.
	UpsertAgendaSummary(ctx context.Context, summary *models.AgendaSummary) error
	// ReplaceDecisions deletes the agenda's decision rows and writes the
	// given set in one transaction.
	ReplaceDecisions(ctx context.Context, agendaItemID int64, decisions []*models.AgendaDecision) error
	ListDecisions(ctx context.Context, agendaItemID int64) ([]*models.AgendaDecision, error)
	// ReplaceActivePolitician deletes and rewrites the agenda's
	// active-politician row.
	ReplaceActivePolitician(ctx context.Context, agendaItemID int64, active *models.AgendaActivePolitician) error
	GetActivePolitician(ctx context.Context, agendaItemID int64) (*models.AgendaActivePolitician, error)
	// ListAgendaItemsNeedingSummary returns agenda items whose summary is
	// missing, whose decision or active-politician rows are missing, or
	// whose speeches were parsed after the stored summary with none
	// incomplete.
	ListAgendaItemsNeedingSummary(ctx context.Context) ([]*models.AgendaItem, error)
	ListSummariesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaSummary, error)
	ListDecisionsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaDecision, error)
	ListActivesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaActivePolitician, error)
	UpdateSummaryTranslations(ctx context.Context, id int64, en, ru *string) error
	UpdateDecisionTranslations(ctx context.Context, id int64, en, ru *string) error
	UpdateActiveTranslations(ctx context.Context, id int64, en, ru *string) error
	SetSummaryIncomplete(ctx context.Context, agendaItemID int64, incomplete bool) error
	CountSummaries(ctx context.Context) (int, error)
	DeleteAllSummaries(ctx context.Context) (int64, error)
}

// StatsStorage - named coverage metrics maintained by the stats sync
type StatsStorage interface {
	UpsertStat(ctx context.Context, stat *models.StatEntry) error
	ListStats(ctx context.Context) ([]*models.StatEntry, error)
}

// StorageManager composes the per-entity stores behind one handle.
type StorageManager interface {
	Politicians() PoliticianStorage
	Sessions() SessionStorage
	Speeches() SpeechStorage
	Profiles() ProfileStorage
	Summaries() SummaryStorage
	Stats() StatsStorage
	KeyValue() KeyValueStorage
	Close() error
}
