// Package memory implements the storage contracts on plain maps. It
// backs unit tests and ad-hoc tooling that need the full storage
// surface without a database on disk. Semantics mirror the sqlite
// implementation, including translation clearing on text change and
// the needing-summary rules.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// Manager holds every entity collection behind one mutex. Suitable for
// test workloads; not tuned for large data sets.
type Manager struct {
	mu sync.Mutex

	politicians map[int64]*models.Politician
	sessions    map[int64]*models.PlenarySession
	agendas     map[int64]*models.AgendaItem
	speeches    map[int64]*models.Speech

	parts   map[int64]*models.ProfilePart
	partSeq int64

	summaries   map[int64]*models.AgendaSummary // keyed by agenda item id
	decisions   map[int64][]*models.AgendaDecision
	actives     map[int64]*models.AgendaActivePolitician
	summarySeq  int64
	decisionSeq int64
	activeSeq   int64

	stats map[string]*models.StatEntry
	kv    map[string]interfaces.KeyValuePair
}

var _ interfaces.StorageManager = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{
		politicians: make(map[int64]*models.Politician),
		sessions:    make(map[int64]*models.PlenarySession),
		agendas:     make(map[int64]*models.AgendaItem),
		speeches:    make(map[int64]*models.Speech),
		parts:       make(map[int64]*models.ProfilePart),
		summaries:   make(map[int64]*models.AgendaSummary),
		decisions:   make(map[int64][]*models.AgendaDecision),
		actives:     make(map[int64]*models.AgendaActivePolitician),
		stats:       make(map[string]*models.StatEntry),
		kv:          make(map[string]interfaces.KeyValuePair),
	}
}

func (m *Manager) Politicians() interfaces.PoliticianStorage { return m }
func (m *Manager) Sessions() interfaces.SessionStorage       { return m }
func (m *Manager) Speeches() interfaces.SpeechStorage        { return m }
func (m *Manager) Profiles() interfaces.ProfileStorage       { return m }
func (m *Manager) Summaries() interfaces.SummaryStorage      { return m }
func (m *Manager) Stats() interfaces.StatsStorage            { return m }
func (m *Manager) KeyValue() interfaces.KeyValueStorage      { return m }
func (m *Manager) Close() error                              { return nil }

// ---- politicians ----

func (m *Manager) SavePolitician(ctx context.Context, politician *models.Politician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *politician
	m.politicians[politician.ID] = &copied
	return nil
}

func (m *Manager) GetPolitician(ctx context.Context, id int64) (*models.Politician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.politicians[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) GetPoliticianByUUID(ctx context.Context, uuid string) (*models.Politician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.politicians {
		if p.UUID == uuid {
			copied := *p
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) ListPoliticians(ctx context.Context) ([]*models.Politician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Politician, 0, len(m.politicians))
	for _, p := range m.politicians {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) ListPoliticiansWithSpeeches(ctx context.Context) ([]*models.Politician, error) {
	m.mu.Lock()
	withSpeech := make(map[int64]bool)
	for _, s := range m.speeches {
		if s.PoliticianID != nil && s.EventType == models.EventTypeSpeech {
			withSpeech[*s.PoliticianID] = true
		}
	}
	m.mu.Unlock()

	all, _ := m.ListPoliticians(ctx)
	out := make([]*models.Politician, 0, len(withSpeech))
	for _, p := range all {
		if withSpeech[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Manager) UpdateProfilingCounts(ctx context.Context, id int64, required, generated int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.politicians[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	p.ProfilesRequired = required
	p.ProfilesGenerated = generated
	return nil
}

func (m *Manager) UpdateTotalTime(ctx context.Context, id int64, seconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.politicians[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	p.TotalTimeSeconds = seconds
	return nil
}

func (m *Manager) CountPoliticians(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.politicians), nil
}

// ---- sessions and agenda items ----

func (m *Manager) SaveSession(ctx context.Context, session *models.PlenarySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *Manager) GetSession(ctx context.Context, id int64) (*models.PlenarySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) ListSessions(ctx context.Context) ([]*models.PlenarySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PlenarySession, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) SessionExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *Manager) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if s.Title != title {
		s.TitleEN = nil
		s.TitleRU = nil
	}
	s.Title = title
	return nil
}

func (m *Manager) UpdateSessionTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.TitleEN = en
	s.TitleRU = ru
	return nil
}

func (m *Manager) SetSessionIncomplete(ctx context.Context, id int64, incomplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.IsIncomplete = incomplete
	return nil
}

func (m *Manager) CountSessions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

func (m *Manager) SaveAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.agendas[item.ID] = &copied
	return nil
}

func (m *Manager) GetAgendaItem(ctx context.Context, id int64) (*models.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agendas[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) ListAgendaItems(ctx context.Context) ([]*models.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgendaItem, 0, len(m.agendas))
	for _, a := range m.agendas {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) ListAgendaItemsBySession(ctx context.Context, sessionID int64) ([]*models.AgendaItem, error) {
	all, _ := m.ListAgendaItems(ctx)
	out := make([]*models.AgendaItem, 0)
	for _, a := range all {
		if a.PlenarySessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Manager) AgendaItemExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.agendas[id]
	return ok, nil
}

func (m *Manager) UpdateAgendaTitle(ctx context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agendas[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if a.Title != title {
		a.TitleEN = nil
		a.TitleRU = nil
	}
	a.Title = title
	return nil
}

func (m *Manager) UpdateAgendaTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agendas[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	a.TitleEN = en
	a.TitleRU = ru
	return nil
}

func (m *Manager) UpdateAgendaTotalTime(ctx context.Context, id int64, seconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agendas[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	a.TotalTimeSeconds = &seconds
	return nil
}

func (m *Manager) SetAgendaIncomplete(ctx context.Context, id int64, incomplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agendas[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	a.IsIncomplete = incomplete
	return nil
}

func (m *Manager) CountAgendaItems(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agendas), nil
}

// ---- speeches ----

func (m *Manager) SaveSpeech(ctx context.Context, speech *models.Speech) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *speech
	m.speeches[speech.ID] = &copied
	return nil
}

func (m *Manager) SaveSpeeches(ctx context.Context, speeches []*models.Speech) (int, error) {
	for _, speech := range speeches {
		if err := m.SaveSpeech(ctx, speech); err != nil {
			return 0, err
		}
	}
	return len(speeches), nil
}

func (m *Manager) GetSpeech(ctx context.Context, id int64) (*models.Speech, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.speeches[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) matchesFilter(s *models.Speech, filter interfaces.SpeechFilter) bool {
	if filter.SpeechID != 0 && s.ID != filter.SpeechID {
		return false
	}
	if filter.AgendaItemID != 0 && s.AgendaItemID != filter.AgendaItemID {
		return false
	}
	if filter.PlenarySessionID != 0 {
		agenda, ok := m.agendas[s.AgendaItemID]
		if !ok || agenda.PlenarySessionID != filter.PlenarySessionID {
			return false
		}
	}
	if filter.PoliticianID != 0 && (s.PoliticianID == nil || *s.PoliticianID != filter.PoliticianID) {
		return false
	}
	if filter.EventType != "" && s.EventType != filter.EventType {
		return false
	}
	if filter.ExcludeIncomplete && s.IsIncomplete {
		return false
	}
	if filter.MissingSummaryOnly && s.AISummary != nil {
		return false
	}
	return true
}

func (m *Manager) ListSpeeches(ctx context.Context, filter interfaces.SpeechFilter) ([]*models.Speech, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Speech, 0)
	for _, s := range m.speeches {
		if m.matchesFilter(s, filter) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *Manager) ListSpeechesByPolitician(ctx context.Context, politicianID int64) ([]*models.Speech, error) {
	return m.ListSpeeches(ctx, interfaces.SpeechFilter{
		PoliticianID: politicianID,
		EventType:    models.EventTypeSpeech,
	})
}

func (m *Manager) UpdateSpeechText(ctx context.Context, id int64, speaker, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.Speaker = speaker
	s.Text = text
	return nil
}

func (m *Manager) UpdateSpeechSummary(ctx context.Context, id int64, summary string, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if s.AISummary == nil || *s.AISummary != summary {
		s.AISummaryEN = nil
		s.AISummaryRU = nil
	}
	s.AISummary = &summary
	s.AISummaryGeneratedAt = &generatedAt
	return nil
}

func (m *Manager) UpdateSpeechSummaryTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.AISummaryEN = en
	s.AISummaryRU = ru
	return nil
}

func (m *Manager) SetSpeechIncomplete(ctx context.Context, id int64, incomplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.speeches[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.IsIncomplete = incomplete
	return nil
}

func (m *Manager) CountSpeeches(ctx context.Context, filter interfaces.SpeechFilter) (int, error) {
	speeches, err := m.ListSpeeches(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(speeches), nil
}

func (m *Manager) DeleteAllSpeeches(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := int64(len(m.speeches))
	m.speeches = make(map[int64]*models.Speech)
	return count, nil
}

// ---- profile parts ----

func scopeKey(part *models.ProfilePart) string {
	return strings.Join([]string{
		string(part.Category),
		part.Scope().Key(),
	}, "|")
}

func (m *Manager) findPart(part *models.ProfilePart) *models.ProfilePart {
	want := scopeKey(part)
	for _, existing := range m.parts {
		if existing.PoliticianID == part.PoliticianID && scopeKey(existing) == want {
			return existing
		}
	}
	return nil
}

func (m *Manager) UpsertProfilePart(ctx context.Context, part *models.ProfilePart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *part
	if existing := m.findPart(part); existing != nil {
		stored.ID = existing.ID
		if existing.Analysis == stored.Analysis {
			stored.AnalysisEN = existing.AnalysisEN
			stored.AnalysisRU = existing.AnalysisRU
		}
	} else {
		m.partSeq++
		stored.ID = m.partSeq
	}
	m.parts[stored.ID] = &stored
	part.ID = stored.ID
	return nil
}

func (m *Manager) GetProfilePart(ctx context.Context, politicianID int64, category models.ProfileCategory, scope models.Scope) (*models.ProfilePart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := string(category) + "|" + scope.Key()
	for _, part := range m.parts {
		if part.PoliticianID == politicianID && scopeKey(part) == want {
			copied := *part
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) listPartsLocked(keep func(*models.ProfilePart) bool) []*models.ProfilePart {
	out := make([]*models.ProfilePart, 0)
	for _, part := range m.parts {
		if keep(part) {
			copied := *part
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) ListProfileParts(ctx context.Context, politicianID int64) ([]*models.ProfilePart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPartsLocked(func(p *models.ProfilePart) bool {
		return p.PoliticianID == politicianID
	}), nil
}

func (m *Manager) ListProfilePartsByPeriod(ctx context.Context, politicianID int64, periodType models.PeriodType) ([]*models.ProfilePart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPartsLocked(func(p *models.ProfilePart) bool {
		return p.PoliticianID == politicianID && p.PeriodType == periodType
	}), nil
}

func (m *Manager) ListAllProfileParts(ctx context.Context) ([]*models.ProfilePart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPartsLocked(func(*models.ProfilePart) bool { return true }), nil
}

func (m *Manager) ListProfilePartsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.ProfilePart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPartsLocked(func(p *models.ProfilePart) bool {
		return overwrite || p.AnalysisEN == nil || p.AnalysisRU == nil
	}), nil
}

func (m *Manager) UpdateProfileTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.parts[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	part.AnalysisEN = en
	part.AnalysisRU = ru
	return nil
}

func (m *Manager) SetProfileIncomplete(ctx context.Context, id int64, incomplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.parts[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	part.IsIncomplete = incomplete
	return nil
}

func (m *Manager) DeleteProfilePart(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parts[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.parts, id)
	return nil
}

func (m *Manager) CountProfileParts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.parts), nil
}

func (m *Manager) CountProfilePartsByPolitician(ctx context.Context, politicianID int64) (int, error) {
	parts, err := m.ListProfileParts(ctx, politicianID)
	if err != nil {
		return 0, err
	}
	return len(parts), nil
}

// ---- agenda summaries ----

func (m *Manager) GetAgendaSummary(ctx context.Context, agendaItemID int64) (*models.AgendaSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.summaries[agendaItemID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) UpsertAgendaSummary(ctx context.Context, summary *models.AgendaSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *summary
	if existing, ok := m.summaries[summary.AgendaItemID]; ok {
		stored.ID = existing.ID
		if existing.SummaryText == stored.SummaryText {
			stored.SummaryEN = existing.SummaryEN
			stored.SummaryRU = existing.SummaryRU
		} else {
			stored.SummaryEN = nil
			stored.SummaryRU = nil
		}
	} else {
		m.summarySeq++
		stored.ID = m.summarySeq
		stored.SummaryEN = nil
		stored.SummaryRU = nil
	}
	m.summaries[summary.AgendaItemID] = &stored
	return nil
}

func (m *Manager) ReplaceDecisions(ctx context.Context, agendaItemID int64, decisions []*models.AgendaDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]*models.AgendaDecision, 0, len(decisions))
	for _, d := range decisions {
		m.decisionSeq++
		copied := *d
		copied.ID = m.decisionSeq
		copied.AgendaItemID = agendaItemID
		stored = append(stored, &copied)
	}
	m.decisions[agendaItemID] = stored
	return nil
}

func (m *Manager) ListDecisions(ctx context.Context, agendaItemID int64) ([]*models.AgendaDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgendaDecision, 0, len(m.decisions[agendaItemID]))
	for _, d := range m.decisions[agendaItemID] {
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

func (m *Manager) ReplaceActivePolitician(ctx context.Context, agendaItemID int64, active *models.AgendaActivePolitician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeSeq++
	copied := *active
	copied.ID = m.activeSeq
	copied.AgendaItemID = agendaItemID
	m.actives[agendaItemID] = &copied
	return nil
}

func (m *Manager) GetActivePolitician(ctx context.Context, agendaItemID int64) (*models.AgendaActivePolitician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actives[agendaItemID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *Manager) ListAgendaItemsNeedingSummary(ctx context.Context) ([]*models.AgendaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.AgendaItem, 0)
	for _, agenda := range m.agendas {
		hasUsable := false
		hasIncomplete := false
		var lastParsed *time.Time
		for _, s := range m.speeches {
			if s.AgendaItemID != agenda.ID || s.EventType != models.EventTypeSpeech {
				continue
			}
			if s.IsIncomplete {
				hasIncomplete = true
				continue
			}
			if s.HasText() {
				hasUsable = true
			}
			if s.ParsedAt != nil && (lastParsed == nil || s.ParsedAt.After(*lastParsed)) {
				lastParsed = s.ParsedAt
			}
		}
		if !hasUsable {
			continue
		}

		summary, hasSummary := m.summaries[agenda.ID]
		missing := !hasSummary || len(m.decisions[agenda.ID]) == 0 || m.actives[agenda.ID] == nil
		stale := hasSummary && !hasIncomplete &&
			summary.GeneratedAt != nil && lastParsed != nil && lastParsed.After(*summary.GeneratedAt)
		if missing || stale {
			copied := *agenda
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *Manager) ListSummariesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgendaSummary, 0)
	for _, s := range m.summaries {
		if overwrite || s.SummaryEN == nil || s.SummaryRU == nil {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgendaItemID < out[j].AgendaItemID })
	return out, nil
}

func (m *Manager) ListDecisionsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgendaDecision, 0)
	for _, set := range m.decisions {
		for _, d := range set {
			if overwrite || d.TextEN == nil || d.TextRU == nil {
				copied := *d
				out = append(out, &copied)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) ListActivesNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.AgendaActivePolitician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgendaActivePolitician, 0)
	for _, a := range m.actives {
		if overwrite || a.DescriptionEN == nil || a.DescriptionRU == nil {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgendaItemID < out[j].AgendaItemID })
	return out, nil
}

func (m *Manager) UpdateSummaryTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.ID == id {
			s.SummaryEN = en
			s.SummaryRU = ru
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (m *Manager) UpdateDecisionTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.decisions {
		for _, d := range set {
			if d.ID == id {
				d.TextEN = en
				d.TextRU = ru
				return nil
			}
		}
	}
	return interfaces.ErrNotFound
}

func (m *Manager) UpdateActiveTranslations(ctx context.Context, id int64, en, ru *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actives {
		if a.ID == id {
			a.DescriptionEN = en
			a.DescriptionRU = ru
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (m *Manager) SetSummaryIncomplete(ctx context.Context, agendaItemID int64, incomplete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.summaries[agendaItemID]; ok {
		s.IsIncomplete = incomplete
	}
	for _, d := range m.decisions[agendaItemID] {
		d.IsIncomplete = incomplete
	}
	if a, ok := m.actives[agendaItemID]; ok {
		a.IsIncomplete = incomplete
	}
	return nil
}

func (m *Manager) CountSummaries(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.summaries), nil
}

func (m *Manager) DeleteAllSummaries(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := int64(len(m.summaries)) + int64(len(m.actives))
	for _, set := range m.decisions {
		total += int64(len(set))
	}
	m.summaries = make(map[int64]*models.AgendaSummary)
	m.decisions = make(map[int64][]*models.AgendaDecision)
	m.actives = make(map[int64]*models.AgendaActivePolitician)
	return total, nil
}

// ---- stats ----

func (m *Manager) UpsertStat(ctx context.Context, stat *models.StatEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *stat
	if copied.ComputedAt.IsZero() {
		copied.ComputedAt = time.Now()
	}
	m.stats[stat.Key] = &copied
	return nil
}

func (m *Manager) ListStats(ctx context.Context) ([]*models.StatEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.StatEntry, 0, len(m.stats))
	for _, s := range m.stats {
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ---- key/value ----

func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pair, ok := m.kv[key]; ok {
		return pair.Value, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m *Manager) Set(ctx context.Context, key, value, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	pair := interfaces.KeyValuePair{Key: key, Value: value, Description: description, UpdatedAt: now}
	if existing, ok := m.kv[key]; ok {
		pair.CreatedAt = existing.CreatedAt
	} else {
		pair.CreatedAt = now
	}
	m.kv[key] = pair
	return nil
}

func (m *Manager) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kv[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.kv, key)
	return nil
}

func (m *Manager) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return m.ListByPrefix(ctx, "")
}

func (m *Manager) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interfaces.KeyValuePair, 0)
	for key, pair := range m.kv {
		if strings.HasPrefix(key, prefix) {
			out = append(out, pair)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
