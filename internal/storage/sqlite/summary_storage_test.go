package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

func TestAgendaSummaryUpsert(t *testing.T) {
	db := newTestDB(t)
	storage := NewSummaryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))

	now := time.Now()
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100,
		SummaryText:  "Arutati eelnõu.",
		GeneratedAt:  &now,
	}))

	got, err := storage.GetAgendaSummary(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Arutati eelnõu.", got.SummaryText)
	require.NoError(t, storage.UpdateSummaryTranslations(ctx, got.ID, strRef("The bill was discussed."), strRef("Обсуждался законопроект.")))

	// Same text again: translations survive
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100,
		SummaryText:  "Arutati eelnõu.",
		GeneratedAt:  &now,
	}))
	got, err = storage.GetAgendaSummary(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got.SummaryEN)

	// New text: translations cleared, still a single row
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100,
		SummaryText:  "Arutati muudatusettepanekuid.",
		GeneratedAt:  &now,
	}))
	got, err = storage.GetAgendaSummary(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Arutati muudatusettepanekuid.", got.SummaryText)
	assert.Nil(t, got.SummaryEN)
	assert.Nil(t, got.SummaryRU)

	count, err := storage.CountSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReplaceDecisionsAndActive(t *testing.T) {
	db := newTestDB(t)
	storage := NewSummaryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))

	now := time.Now()
	decisions := []*models.AgendaDecision{
		{Text: "Eelnõu suunati teisele lugemisele.", GeneratedAt: &now},
		{PoliticianID: int64Ref(1), Text: "Esitas muudatusettepaneku.", GeneratedAt: &now},
	}
	require.NoError(t, storage.ReplaceDecisions(ctx, 100, decisions))
	assert.NotZero(t, decisions[0].ID)

	listed, err := storage.ListDecisions(ctx, 100)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// The collective decision has no politician
	assert.Nil(t, listed[0].PoliticianID)
	require.NotNil(t, listed[1].PoliticianID)
	assert.Equal(t, int64(1), *listed[1].PoliticianID)

	// Replacing drops the old set entirely
	require.NoError(t, storage.ReplaceDecisions(ctx, 100, []*models.AgendaDecision{
		{Text: "Eelnõu võeti vastu.", GeneratedAt: &now},
	}))
	listed, err = storage.ListDecisions(ctx, 100)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Eelnõu võeti vastu.", listed[0].Text)

	// An active-politician row without a politician still counts as a
	// completed extraction
	require.NoError(t, storage.ReplaceActivePolitician(ctx, 100, &models.AgendaActivePolitician{
		Description: "Aktiivset sõnavõtjat ei tuvastatud.",
		GeneratedAt: &now,
	}))
	active, err := storage.GetActivePolitician(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, active.PoliticianID)
	assert.Equal(t, "Aktiivset sõnavõtjat ei tuvastatud.", active.Description)

	_, err = storage.GetActivePolitician(ctx, 999)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestListAgendaItemsNeedingSummary(t *testing.T) {
	db := newTestDB(t)
	storage := NewSummaryStorage(db, arbor.NewLogger())
	speeches := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	baseDate := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
	seedSessionWithAgenda(t, db, 10, 100, baseDate)
	seedSessionWithAgenda(t, db, 11, 110, baseDate.AddDate(0, 1, 0))

	// Agenda 110 has no summarizable speech and never qualifies
	seedSpeech(t, db, 1, 100, int64Ref(1), baseDate.Add(5*time.Minute), "Sisukas sõnavõtt.")

	// 1. No summary yet
	needing, err := storage.ListAgendaItemsNeedingSummary(ctx)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, int64(100), needing[0].ID)

	// 2. Summary alone is not enough while decisions and the active row
	// are missing
	generatedAt := baseDate.Add(time.Hour)
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100,
		SummaryText:  "Kokkuvõte.",
		GeneratedAt:  &generatedAt,
	}))
	needing, err = storage.ListAgendaItemsNeedingSummary(ctx)
	require.NoError(t, err)
	assert.Len(t, needing, 1)

	require.NoError(t, storage.ReplaceDecisions(ctx, 100, []*models.AgendaDecision{
		{Text: "Otsus.", GeneratedAt: &generatedAt},
	}))
	require.NoError(t, storage.ReplaceActivePolitician(ctx, 100, &models.AgendaActivePolitician{
		Description: "Aktiivseim sõnavõtja oli Mart Tamm.",
		GeneratedAt: &generatedAt,
	}))

	// 3. All artifacts present and fresh
	needing, err = storage.ListAgendaItemsNeedingSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, needing)

	// 4. A reparse newer than the summary makes it stale
	reparsed := generatedAt.Add(time.Hour)
	speech := seedSpeech(t, db, 1, 100, int64Ref(1), baseDate.Add(5*time.Minute), "Sisukas sõnavõtt.")
	speech.ParsedAt = &reparsed
	require.NoError(t, speeches.SaveSpeech(ctx, speech))

	needing, err = storage.ListAgendaItemsNeedingSummary(ctx)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, int64(100), needing[0].ID)

	// 5. An incomplete speech suppresses regeneration until the
	// transcript settles
	pending := seedSpeech(t, db, 2, 100, int64Ref(1), baseDate.Add(10*time.Minute), models.StenogramPendingText)
	require.NoError(t, speeches.SetSpeechIncomplete(ctx, pending.ID, true))

	needing, err = storage.ListAgendaItemsNeedingSummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, needing)
}

func TestSummaryIncompleteFlagAndDeleteAll(t *testing.T) {
	db := newTestDB(t)
	storage := NewSummaryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))

	now := time.Now()
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100, SummaryText: "Kokkuvõte.", GeneratedAt: &now,
	}))
	require.NoError(t, storage.ReplaceDecisions(ctx, 100, []*models.AgendaDecision{
		{Text: "Otsus.", GeneratedAt: &now},
	}))
	require.NoError(t, storage.ReplaceActivePolitician(ctx, 100, &models.AgendaActivePolitician{
		Description: "Aktiivne.", GeneratedAt: &now,
	}))

	require.NoError(t, storage.SetSummaryIncomplete(ctx, 100, true))

	summary, err := storage.GetAgendaSummary(ctx, 100)
	require.NoError(t, err)
	assert.True(t, summary.IsIncomplete)

	decisions, err := storage.ListDecisions(ctx, 100)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].IsIncomplete)

	active, err := storage.GetActivePolitician(ctx, 100)
	require.NoError(t, err)
	assert.True(t, active.IsIncomplete)

	deleted, err := storage.DeleteAllSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	_, err = storage.GetAgendaSummary(ctx, 100)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSummaryTranslationListing(t *testing.T) {
	db := newTestDB(t)
	storage := NewSummaryStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))

	now := time.Now()
	require.NoError(t, storage.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: 100, SummaryText: "Kokkuvõte.", GeneratedAt: &now,
	}))
	require.NoError(t, storage.ReplaceDecisions(ctx, 100, []*models.AgendaDecision{
		{Text: "Otsus.", GeneratedAt: &now},
	}))
	require.NoError(t, storage.ReplaceActivePolitician(ctx, 100, &models.AgendaActivePolitician{
		Description: "Aktiivne.", GeneratedAt: &now,
	}))

	summaries, err := storage.ListSummariesNeedingTranslation(ctx, false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	require.NoError(t, storage.UpdateSummaryTranslations(ctx, summaries[0].ID, strRef("Summary."), strRef("Резюме.")))
	summaries, err = storage.ListSummariesNeedingTranslation(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	decisions, err := storage.ListDecisionsNeedingTranslation(ctx, false)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.NoError(t, storage.UpdateDecisionTranslations(ctx, decisions[0].ID, strRef("Decision."), strRef("Решение.")))

	actives, err := storage.ListActivesNeedingTranslation(ctx, false)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	require.NoError(t, storage.UpdateActiveTranslations(ctx, actives[0].ID, strRef("Active."), strRef("Активный.")))

	// Overwrite mode revisits everything
	summaries, err = storage.ListSummariesNeedingTranslation(ctx, true)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}
