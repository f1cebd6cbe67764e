package profiler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// fakeProvider scripts generation responses and records every prompt.
type fakeProvider struct {
	mu           sync.Mutex
	generateFunc func(prompt string) (string, error)
	streamFunc   func(prompt string, onChunk func(string) error) error
	prompts      []string
}

var _ interfaces.GenerationProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	f.record(prompt)
	return f.generateFunc(prompt)
}

func (f *fakeProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(chunk string) error) error {
	f.record(prompt)
	if f.streamFunc != nil {
		return f.streamFunc(prompt, onChunk)
	}
	text, err := f.generateFunc(prompt)
	if err != nil {
		return err
	}
	return onChunk(text)
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeProvider) Close() error                          { return nil }

func (f *fakeProvider) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeProvider) countPromptsContaining(marker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, prompt := range f.prompts {
		if strings.Contains(prompt, marker) {
			count++
		}
	}
	return count
}

func (f *fakeProvider) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = nil
}

// fakeProfileStore is an in-memory ProfileStorage with upsert semantics
// keyed (politician, category, scope).
type fakeProfileStore struct {
	mu      sync.Mutex
	nextID  int64
	parts   map[string]*models.ProfilePart
	upserts int
}

var _ interfaces.ProfileStorage = (*fakeProfileStore)(nil)

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{parts: make(map[string]*models.ProfilePart)}
}

func partKey(politicianID int64, category models.ProfileCategory, scope models.Scope) string {
	return fmt.Sprintf("%d|%s|%s", politicianID, category, scope.Key())
}

// seed inserts a part verbatim under a synthetic key so tests can plant
// rows the normal upsert path would reject or merge.
func (f *fakeProfileStore) seed(part *models.ProfilePart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *part
	if stored.ID == 0 {
		stored.ID = f.nextID
	}
	f.parts[fmt.Sprintf("seed-%d", stored.ID)] = &stored
}

func (f *fakeProfileStore) UpsertProfilePart(ctx context.Context, part *models.ProfilePart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++

	key := partKey(part.PoliticianID, part.Category, part.Scope())
	stored := *part
	if existing, ok := f.parts[key]; ok {
		stored.ID = existing.ID
		if existing.Analysis == stored.Analysis {
			stored.AnalysisEN = existing.AnalysisEN
			stored.AnalysisRU = existing.AnalysisRU
		}
	} else {
		f.nextID++
		stored.ID = f.nextID
	}
	f.parts[key] = &stored
	part.ID = stored.ID
	return nil
}

func (f *fakeProfileStore) GetProfilePart(ctx context.Context, politicianID int64, category models.ProfileCategory, scope models.Scope) (*models.ProfilePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if part, ok := f.parts[partKey(politicianID, category, scope)]; ok {
		copied := *part
		return &copied, nil
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeProfileStore) ListProfileParts(ctx context.Context, politicianID int64) ([]*models.ProfilePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ProfilePart
	for _, part := range f.parts {
		if part.PoliticianID == politicianID {
			copied := *part
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProfileStore) ListProfilePartsByPeriod(ctx context.Context, politicianID int64, periodType models.PeriodType) ([]*models.ProfilePart, error) {
	all, _ := f.ListProfileParts(ctx, politicianID)
	var out []*models.ProfilePart
	for _, part := range all {
		if part.PeriodType == periodType {
			out = append(out, part)
		}
	}
	return out, nil
}

func (f *fakeProfileStore) ListAllProfileParts(ctx context.Context) ([]*models.ProfilePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ProfilePart
	for _, part := range f.parts {
		copied := *part
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProfileStore) ListProfilePartsNeedingTranslation(ctx context.Context, overwrite bool) ([]*models.ProfilePart, error) {
	return nil, nil
}

func (f *fakeProfileStore) UpdateProfileTranslations(ctx context.Context, id int64, en, ru *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range f.parts {
		if part.ID == id {
			part.AnalysisEN = en
			part.AnalysisRU = ru
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (f *fakeProfileStore) SetProfileIncomplete(ctx context.Context, id int64, incomplete bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range f.parts {
		if part.ID == id {
			part.IsIncomplete = incomplete
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (f *fakeProfileStore) DeleteProfilePart(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, part := range f.parts {
		if part.ID == id {
			delete(f.parts, key)
			return nil
		}
	}
	return interfaces.ErrNotFound
}

func (f *fakeProfileStore) CountProfileParts(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parts), nil
}

func (f *fakeProfileStore) CountProfilePartsByPolitician(ctx context.Context, politicianID int64) (int, error) {
	parts, _ := f.ListProfileParts(ctx, politicianID)
	return len(parts), nil
}

func (f *fakeProfileStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

// mutate edits the stored part matching the key under the store lock.
func (f *fakeProfileStore) mutate(politicianID int64, category models.ProfileCategory, scope models.Scope, fn func(*models.ProfilePart)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	part, ok := f.parts[partKey(politicianID, category, scope)]
	if !ok {
		return false
	}
	fn(part)
	return true
}

// fakeSpeechStore serves a fixed speech collection.
type fakeSpeechStore struct {
	speeches []*models.Speech
}

var _ interfaces.SpeechStorage = (*fakeSpeechStore)(nil)

func (f *fakeSpeechStore) SaveSpeech(ctx context.Context, speech *models.Speech) error { return nil }
func (f *fakeSpeechStore) SaveSpeeches(ctx context.Context, speeches []*models.Speech) (int, error) {
	return 0, nil
}
func (f *fakeSpeechStore) GetSpeech(ctx context.Context, id int64) (*models.Speech, error) {
	for _, speech := range f.speeches {
		if speech.ID == id {
			return speech, nil
		}
	}
	return nil, interfaces.ErrNotFound
}
func (f *fakeSpeechStore) ListSpeeches(ctx context.Context, filter interfaces.SpeechFilter) ([]*models.Speech, error) {
	return f.speeches, nil
}
func (f *fakeSpeechStore) ListSpeechesByPolitician(ctx context.Context, politicianID int64) ([]*models.Speech, error) {
	var out []*models.Speech
	for _, speech := range f.speeches {
		if speech.PoliticianID != nil && *speech.PoliticianID == politicianID {
			out = append(out, speech)
		}
	}
	return out, nil
}
func (f *fakeSpeechStore) UpdateSpeechText(ctx context.Context, id int64, speaker, text string) error {
	return nil
}
func (f *fakeSpeechStore) UpdateSpeechSummary(ctx context.Context, id int64, summary string, generatedAt time.Time) error {
	return nil
}
func (f *fakeSpeechStore) UpdateSpeechSummaryTranslations(ctx context.Context, id int64, en, ru *string) error {
	return nil
}
func (f *fakeSpeechStore) SetSpeechIncomplete(ctx context.Context, id int64, incomplete bool) error {
	return nil
}
func (f *fakeSpeechStore) CountSpeeches(ctx context.Context, filter interfaces.SpeechFilter) (int, error) {
	return len(f.speeches), nil
}
func (f *fakeSpeechStore) DeleteAllSpeeches(ctx context.Context) (int64, error) { return 0, nil }

// fakeSessionStore resolves agenda items and plenary sessions from maps.
type fakeSessionStore struct {
	agendas  map[int64]*models.AgendaItem
	sessions map[int64]*models.PlenarySession
}

var _ interfaces.SessionStorage = (*fakeSessionStore)(nil)

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		agendas:  make(map[int64]*models.AgendaItem),
		sessions: make(map[int64]*models.PlenarySession),
	}
}

func (f *fakeSessionStore) SaveSession(ctx context.Context, session *models.PlenarySession) error {
	f.sessions[session.ID] = session
	return nil
}
func (f *fakeSessionStore) GetSession(ctx context.Context, id int64) (*models.PlenarySession, error) {
	if session, ok := f.sessions[id]; ok {
		return session, nil
	}
	return nil, interfaces.ErrNotFound
}
func (f *fakeSessionStore) ListSessions(ctx context.Context) ([]*models.PlenarySession, error) {
	var out []*models.PlenarySession
	for _, session := range f.sessions {
		out = append(out, session)
	}
	return out, nil
}
func (f *fakeSessionStore) SessionExists(ctx context.Context, id int64) (bool, error) {
	_, ok := f.sessions[id]
	return ok, nil
}
func (f *fakeSessionStore) UpdateSessionTitle(ctx context.Context, id int64, title string) error {
	return nil
}
func (f *fakeSessionStore) UpdateSessionTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	return nil
}
func (f *fakeSessionStore) SetSessionIncomplete(ctx context.Context, id int64, incomplete bool) error {
	return nil
}
func (f *fakeSessionStore) CountSessions(ctx context.Context) (int, error) {
	return len(f.sessions), nil
}
func (f *fakeSessionStore) SaveAgendaItem(ctx context.Context, item *models.AgendaItem) error {
	f.agendas[item.ID] = item
	return nil
}
func (f *fakeSessionStore) GetAgendaItem(ctx context.Context, id int64) (*models.AgendaItem, error) {
	if item, ok := f.agendas[id]; ok {
		return item, nil
	}
	return nil, interfaces.ErrNotFound
}
func (f *fakeSessionStore) ListAgendaItems(ctx context.Context) ([]*models.AgendaItem, error) {
	var out []*models.AgendaItem
	for _, item := range f.agendas {
		out = append(out, item)
	}
	return out, nil
}
func (f *fakeSessionStore) ListAgendaItemsBySession(ctx context.Context, sessionID int64) ([]*models.AgendaItem, error) {
	var out []*models.AgendaItem
	for _, item := range f.agendas {
		if item.PlenarySessionID == sessionID {
			out = append(out, item)
		}
	}
	return out, nil
}
func (f *fakeSessionStore) AgendaItemExists(ctx context.Context, id int64) (bool, error) {
	_, ok := f.agendas[id]
	return ok, nil
}
func (f *fakeSessionStore) UpdateAgendaTitle(ctx context.Context, id int64, title string) error {
	return nil
}
func (f *fakeSessionStore) UpdateAgendaTitleTranslations(ctx context.Context, id int64, en, ru *string) error {
	return nil
}
func (f *fakeSessionStore) UpdateAgendaTotalTime(ctx context.Context, id int64, seconds int64) error {
	return nil
}
func (f *fakeSessionStore) SetAgendaIncomplete(ctx context.Context, id int64, incomplete bool) error {
	return nil
}
func (f *fakeSessionStore) CountAgendaItems(ctx context.Context) (int, error) {
	return len(f.agendas), nil
}
