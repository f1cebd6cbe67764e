package maintain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/storage/memory"
)

func newCountsSync(store *memory.Manager) *CountsSync {
	return NewCountsSync(store.Politicians(), store.Sessions(), store.Speeches(), store.Profiles(), arbor.NewLogger())
}

func TestCountsSyncComputesRequiredGrid(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedSession(t, store, 1, 10, 11)
	seedPolitician(t, store, 100, "Mari Maasikas")
	// Two agendas, one session, one month, one year: 5 scopes + ALL.
	seedSpeech(t, store, 1, 10, ptr(int64(100)), baseDate, "Sõnavõtt")
	seedSpeech(t, store, 2, 11, ptr(int64(100)), baseDate.Add(time.Hour), "Sõnavõtt")

	report, err := newCountsSync(store).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Updated)

	politician, err := store.GetPolitician(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 6*len(models.AllCategories()), politician.ProfilesRequired)
	assert.Zero(t, politician.ProfilesGenerated)
}

func TestCountsSyncCountsGeneratedParts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedSession(t, store, 1, 10)
	seedPolitician(t, store, 100, "Mari Maasikas")
	seedSpeech(t, store, 1, 10, ptr(int64(100)), baseDate, "Sõnavõtt")

	require.NoError(t, store.UpsertProfilePart(ctx, &models.ProfilePart{
		PoliticianID: 100,
		Category:     models.CategoryPoliticalPosition,
		PeriodType:   models.PeriodAgenda,
		AgendaItemID: ptr(int64(10)),
		Analysis:     "Analüüs",
	}))

	report, err := newCountsSync(store).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	politician, err := store.GetPolitician(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, politician.ProfilesGenerated)
}

func TestCountsSyncSkipsUnchangedAndDryRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedSession(t, store, 1, 10)
	seedPolitician(t, store, 100, "Mari Maasikas")
	seedSpeech(t, store, 1, 10, ptr(int64(100)), baseDate, "Sõnavõtt")

	sync := newCountsSync(store)

	report, err := sync.Run(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Updated)

	politician, err := store.GetPolitician(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, politician.ProfilesRequired)

	_, err = sync.Run(ctx, false)
	require.NoError(t, err)

	report, err = sync.Run(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
}
