package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

func TestSaveSpeechesBatch(t *testing.T) {
	db := newTestDB(t)
	storage := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))

	speeches := make([]*models.Speech, 0, 3)
	for i := int64(1); i <= 3; i++ {
		speeches = append(speeches, &models.Speech{
			ID:           i,
			UUID:         fmt.Sprintf("speech-uuid-%d", i),
			AgendaItemID: 100,
			PoliticianID: int64Ref(1),
			EventType:    models.EventTypeSpeech,
			Date:         time.Date(2024, 3, 12, 14, int(i), 0, 0, time.UTC),
			Speaker:      "Kõneleja",
			Text:         "Tekst",
		})
	}

	saved, err := storage.SaveSpeeches(ctx, speeches)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	count, err := storage.CountSpeeches(ctx, interfaces.SpeechFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListSpeechesFilters(t *testing.T) {
	db := newTestDB(t)
	storage := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Two sessions, one agenda each
	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))
	seedSessionWithAgenda(t, db, 11, 110, time.Date(2024, 4, 9, 14, 0, 0, 0, time.UTC))

	seedSpeech(t, db, 1, 100, int64Ref(1), time.Date(2024, 3, 12, 14, 5, 0, 0, time.UTC), "Esimene kõne")
	seedSpeech(t, db, 2, 100, int64Ref(2), time.Date(2024, 3, 12, 14, 10, 0, 0, time.UTC), "Teine kõne")
	seedSpeech(t, db, 3, 110, int64Ref(1), time.Date(2024, 4, 9, 14, 5, 0, 0, time.UTC), "Kolmas kõne")

	// A pending stenogram
	pending := seedSpeech(t, db, 4, 110, int64Ref(1), time.Date(2024, 4, 9, 14, 10, 0, 0, time.UTC), models.StenogramPendingText)
	require.NoError(t, storage.SetSpeechIncomplete(ctx, pending.ID, true))

	bySession, err := storage.ListSpeeches(ctx, interfaces.SpeechFilter{PlenarySessionID: 10})
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	byPolitician, err := storage.ListSpeechesByPolitician(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byPolitician, 3)
	// Ordered by date for the period partitioner
	assert.Equal(t, int64(1), byPolitician[0].ID)
	assert.Equal(t, int64(3), byPolitician[1].ID)
	assert.Equal(t, int64(4), byPolitician[2].ID)

	complete, err := storage.ListSpeeches(ctx, interfaces.SpeechFilter{PoliticianID: 1, ExcludeIncomplete: true})
	require.NoError(t, err)
	assert.Len(t, complete, 2)

	require.NoError(t, storage.UpdateSpeechSummary(ctx, 1, "Kokkuvõte", time.Now()))
	missing, err := storage.ListSpeeches(ctx, interfaces.SpeechFilter{PoliticianID: 1, MissingSummaryOnly: true})
	require.NoError(t, err)
	assert.Len(t, missing, 2)
}

func TestUpdateSpeechSummaryClearsStaleTranslations(t *testing.T) {
	db := newTestDB(t)
	storage := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))
	seedSpeech(t, db, 1, 100, int64Ref(1), time.Date(2024, 3, 12, 14, 5, 0, 0, time.UTC), "Pikk kõne majandusest")

	// 1. First summary, then translations
	require.NoError(t, storage.UpdateSpeechSummary(ctx, 1, "Rääkis majandusest.", time.Now()))
	require.NoError(t, storage.UpdateSpeechSummaryTranslations(ctx, 1, strRef("Spoke about economy."), strRef("Говорил об экономике.")))

	// 2. Re-storing the identical summary keeps the translations
	require.NoError(t, storage.UpdateSpeechSummary(ctx, 1, "Rääkis majandusest.", time.Now()))
	got, err := storage.GetSpeech(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.AISummaryEN)
	assert.Equal(t, "Spoke about economy.", *got.AISummaryEN)
	require.NotNil(t, got.AISummaryRU)

	// 3. A changed summary invalidates them
	require.NoError(t, storage.UpdateSpeechSummary(ctx, 1, "Rääkis maksudest.", time.Now()))
	got, err = storage.GetSpeech(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.AISummaryEN)
	assert.Nil(t, got.AISummaryRU)
	require.NotNil(t, got.AISummary)
	assert.Equal(t, "Rääkis maksudest.", *got.AISummary)
}

func TestUpdateSpeechTextKeepsSummary(t *testing.T) {
	db := newTestDB(t)
	storage := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))
	seedSpeech(t, db, 1, 100, int64Ref(1), time.Date(2024, 3, 12, 14, 5, 0, 0, time.UTC), "<p>Kõne  tekst</p>")
	require.NoError(t, storage.UpdateSpeechSummary(ctx, 1, "Kokkuvõte", time.Now()))

	// The HTML cleanup rewrites markup without changing meaning, so the
	// stored summary stays valid
	require.NoError(t, storage.UpdateSpeechText(ctx, 1, "Kõneleja", "Kõne tekst"))

	got, err := storage.GetSpeech(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kõne tekst", got.Text)
	assert.Equal(t, "Kõneleja", got.Speaker)
	require.NotNil(t, got.AISummary)
	assert.Equal(t, "Kokkuvõte", *got.AISummary)
}

func TestDeleteAllSpeeches(t *testing.T) {
	db := newTestDB(t)
	storage := NewSpeechStorage(db, arbor.NewLogger())
	ctx := context.Background()

	seedSessionWithAgenda(t, db, 10, 100, time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC))
	seedSpeech(t, db, 1, 100, int64Ref(1), time.Date(2024, 3, 12, 14, 5, 0, 0, time.UTC), "Üks")
	seedSpeech(t, db, 2, 100, int64Ref(1), time.Date(2024, 3, 12, 14, 6, 0, 0, time.UTC), "Kaks")

	deleted, err := storage.DeleteAllSpeeches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := storage.CountSpeeches(ctx, interfaces.SpeechFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
