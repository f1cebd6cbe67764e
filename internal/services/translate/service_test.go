package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/storage/memory"
)

type fakeProvider struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	prompts []string
}

var _ interfaces.GenerationProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeProvider) GenerateStream(ctx context.Context, prompt string, maxTokens int, temperature float64, onChunk func(string) error) error {
	text, err := f.Generate(ctx, prompt, maxTokens, temperature)
	if err != nil {
		return err
	}
	return onChunk(text)
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeProvider) Close() error                          { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func pairResponse(string) (string, error) {
	return "<en>English text</en>\n<ru>Русский текст</ru>", nil
}

func newService(store *memory.Manager, provider interfaces.GenerationProvider) *Service {
	cfg := common.TranslateConfig{MaxTokens: 8000, Temperature: 0.2}
	return NewService(cfg, provider, store, 4, arbor.NewLogger())
}

func TestParsePair(t *testing.T) {
	en, ru := ParsePair("<en>Hello</en>\n<ru>Привет</ru>")
	require.NotNil(t, en)
	require.NotNil(t, ru)
	assert.Equal(t, "Hello", *en)
	assert.Equal(t, "Привет", *ru)

	en, ru = ParsePair("<en>Hello</en> only")
	require.NotNil(t, en)
	assert.Nil(t, ru)

	en, ru = ParsePair("no tags at all")
	assert.Nil(t, en)
	assert.Nil(t, ru)

	en, _ = ParsePair("<en>   </en>")
	assert.Nil(t, en)
}

func TestTranslatePairFallsBackPerLanguage(t *testing.T) {
	provider := &fakeProvider{}
	provider.respond = func(prompt string) (string, error) {
		if strings.Contains(prompt, "to English and Russian") {
			// Dual response missing the Russian tag.
			return "<en>Budget debate</en>", nil
		}
		if strings.Contains(prompt, "to Russian") {
			return "Обсуждение бюджета", nil
		}
		return "", fmt.Errorf("unexpected prompt")
	}

	translator := NewTranslator(common.TranslateConfig{MaxTokens: 8000, Temperature: 0.2}, provider, arbor.NewLogger())
	en, ru, err := translator.TranslatePair(context.Background(), "Eelarve arutelu")
	require.NoError(t, err)
	require.NotNil(t, en)
	require.NotNil(t, ru)
	assert.Equal(t, "Budget debate", *en)
	assert.Equal(t, "Обсуждение бюджета", *ru)
	assert.Equal(t, 2, provider.callCount())
}

func TestTranslatePairFailsWhenNothingUsable(t *testing.T) {
	provider := &fakeProvider{respond: func(string) (string, error) {
		return "", nil
	}}
	translator := NewTranslator(common.TranslateConfig{}, provider, arbor.NewLogger())
	_, _, err := translator.TranslatePair(context.Background(), "Tekst")
	assert.Error(t, err)
}

func TestProfilesPassStoresTranslations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	require.NoError(t, store.UpsertProfilePart(ctx, &models.ProfilePart{
		PoliticianID: 1,
		Category:     models.CategoryPoliticalPosition,
		PeriodType:   models.PeriodAll,
		Analysis:     "Analüüs eesti keeles",
	}))

	provider := &fakeProvider{respond: pairResponse}
	report, err := newService(store, provider).Profiles(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, 1, report.Translated)

	parts, err := store.ListAllProfileParts(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].AnalysisEN)
	assert.Equal(t, "English text", *parts[0].AnalysisEN)
	require.NotNil(t, parts[0].AnalysisRU)
	assert.Equal(t, "Русский текст", *parts[0].AnalysisRU)
}

func TestProfilesPassSkipsTranslated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	part := &models.ProfilePart{
		PoliticianID: 1,
		Category:     models.CategoryPoliticalPosition,
		PeriodType:   models.PeriodAll,
		Analysis:     "Analüüs",
	}
	require.NoError(t, store.UpsertProfilePart(ctx, part))
	en, ru := "done", "готово"
	require.NoError(t, store.UpdateProfileTranslations(ctx, part.ID, &en, &ru))

	provider := &fakeProvider{respond: pairResponse}
	service := newService(store, provider)

	report, err := service.Profiles(ctx, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Items)
	assert.Zero(t, provider.callCount())

	report, err = service.Profiles(ctx, Options{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Items)
}

func TestTitlePassesTranslateMissingOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	en := "Session one"
	require.NoError(t, store.SaveSession(ctx, &models.PlenarySession{ID: 1, Title: "Esimene istung"}))
	require.NoError(t, store.SaveSession(ctx, &models.PlenarySession{ID: 2, Title: "Teine istung", TitleEN: &en}))
	require.NoError(t, store.SaveAgendaItem(ctx, &models.AgendaItem{ID: 1, PlenarySessionID: 1, Title: "Päevakord"}))

	provider := &fakeProvider{respond: pairResponse}
	service := newService(store, provider)

	sessions, err := service.SessionTitles(ctx, Options{})
	require.NoError(t, err)
	// Session 2 is missing its Russian title, so both sessions qualify.
	assert.Equal(t, 2, sessions.Items)

	agendas, err := service.AgendaTitles(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, agendas.Items)

	agenda, err := store.GetAgendaItem(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, agenda.TitleEN)
	assert.Equal(t, "English text", *agenda.TitleEN)
}

func TestAgendaSummariesPassCoversAllArtifacts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	require.NoError(t, store.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 1, SummaryText: "Kokkuvõte",
	}))
	require.NoError(t, store.ReplaceDecisions(ctx, 1, []*models.AgendaDecision{
		{Text: "Otsus üks"},
		{Text: "Otsus kaks"},
	}))
	require.NoError(t, store.ReplaceActivePolitician(ctx, 1, &models.AgendaActivePolitician{
		Description: "Aktiivne kõneleja",
	}))

	provider := &fakeProvider{respond: pairResponse}
	report, err := newService(store, provider).AgendaSummaries(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Items)
	assert.Equal(t, 4, report.Translated)

	summary, err := store.GetAgendaSummary(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, summary.SummaryEN)

	decisions, err := store.ListDecisions(ctx, 1)
	require.NoError(t, err)
	for _, decision := range decisions {
		require.NotNil(t, decision.TextRU)
	}

	active, err := store.GetActivePolitician(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active.DescriptionEN)
}

func TestSpeechSummariesPass(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	summary := "Mari rääkis eelarvest"
	require.NoError(t, store.SaveSpeech(ctx, &models.Speech{
		ID: 1, AgendaItemID: 1, EventType: models.EventTypeSpeech,
		Speaker: "Mari", Text: "tekst", AISummary: &summary, Date: time.Now(),
	}))
	require.NoError(t, store.SaveSpeech(ctx, &models.Speech{
		ID: 2, AgendaItemID: 1, EventType: models.EventTypeSpeech,
		Speaker: "Jaan", Text: "tekst", Date: time.Now(),
	}))

	provider := &fakeProvider{respond: pairResponse}
	report, err := newService(store, provider).SpeechSummaries(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Items)

	speech, err := store.GetSpeech(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, speech.AISummaryEN)
	assert.Equal(t, "English text", *speech.AISummaryEN)
}

func TestPartialResponseKeepsStoredLanguage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	summary := "Kokkuvõte"
	ru := "Существующий перевод"
	require.NoError(t, store.SaveSpeech(ctx, &models.Speech{
		ID: 1, AgendaItemID: 1, EventType: models.EventTypeSpeech,
		Speaker: "Mari", Text: "tekst", AISummary: &summary, AISummaryRU: &ru, Date: time.Now(),
	}))

	// Dual prompt returns English only; the Russian fallback fails.
	provider := &fakeProvider{}
	provider.respond = func(prompt string) (string, error) {
		if strings.Contains(prompt, "to English and Russian") {
			return "<en>Summary</en>", nil
		}
		return "", fmt.Errorf("fallback unavailable")
	}

	report, err := newService(store, provider).SpeechSummaries(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Translated)

	speech, err := store.GetSpeech(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, speech.AISummaryEN)
	require.NotNil(t, speech.AISummaryRU)
	assert.Equal(t, "Существующий перевод", *speech.AISummaryRU)
}

func TestAllRunsEveryPass(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	require.NoError(t, store.SaveSession(ctx, &models.PlenarySession{ID: 1, Title: "Istung"}))

	provider := &fakeProvider{respond: pairResponse}
	reports, err := newService(store, provider).All(ctx, Options{})
	require.NoError(t, err)
	require.Len(t, reports, 5)

	labels := make([]string, 0, len(reports))
	for _, report := range reports {
		labels = append(labels, report.Label)
	}
	assert.Equal(t, []string{"profiles", "agenda-titles", "session-titles", "agenda-summaries", "speech-summaries"}, labels)
}

func TestDryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	require.NoError(t, store.SaveSession(ctx, &models.PlenarySession{ID: 1, Title: "Istung"}))

	provider := &fakeProvider{respond: pairResponse}
	report, err := newService(store, provider).SessionTitles(ctx, Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Items)
	assert.Zero(t, provider.callCount())
}

func TestResumeApplyFinishesInterruptedPass(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	summary := "Mari rääkis eelarvest"
	en := "Already translated"
	require.NoError(t, store.SaveSpeech(ctx, &models.Speech{
		ID: 1, AgendaItemID: 1, EventType: models.EventTypeSpeech,
		Speaker: "Mari", Text: "tekst", AISummary: &summary, Date: time.Now(),
	}))
	// Translated before the interruption; its result must still find a
	// target rather than count as an unexpected key.
	require.NoError(t, store.SaveSpeech(ctx, &models.Speech{
		ID: 2, AgendaItemID: 1, EventType: models.EventTypeSpeech,
		Speaker: "Jaan", Text: "tekst", AISummary: &summary, AISummaryEN: &en, Date: time.Now(),
	}))

	service := newService(store, nil)
	apply, err := service.ResumeApply(ctx, "speech-summaries")
	require.NoError(t, err)

	require.NoError(t, apply(ctx, "speech_summary_1", "<en>English text</en>\n<ru>Русский текст</ru>"))
	require.NoError(t, apply(ctx, "speech_summary_2", "<en>English text</en>\n<ru>Русский текст</ru>"))

	speech, err := store.GetSpeech(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, speech.AISummaryEN)
	assert.Equal(t, "English text", *speech.AISummaryEN)
	require.NotNil(t, speech.AISummaryRU)

	assert.Error(t, apply(ctx, "speech_summary_99", "<en>x</en>"))

	_, err = service.ResumeApply(ctx, "verbatims")
	assert.Error(t, err)
}
