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

func newProfilePart(politicianID int64, category models.ProfileCategory, scope models.Scope, analysis string) *models.ProfilePart {
	now := time.Now()
	part := &models.ProfilePart{
		PoliticianID:     politicianID,
		Category:         category,
		PeriodType:       scope.Type,
		AgendaItemID:     scope.AgendaID,
		PlenarySessionID: scope.SessionID,
		Month:            scope.Month,
		Year:             scope.Year,
		Analysis:         analysis,
		Metrics:          models.ProfileMetrics{SpeechesCount: 3},
		SpeechesAnalyzed: 3,
		GeneratedAt:      &now,
	}
	return part
}

func TestProfilePartScopeIdentity(t *testing.T) {
	db := newTestDB(t)
	storage := NewProfileStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scopes := []models.Scope{
		models.AgendaScope(100),
		models.SessionScope(10),
		models.MonthScope("03.2024"),
		models.YearScope(2024),
		models.AllScope(),
	}

	// One part per scope, same politician and category
	for _, scope := range scopes {
		part := newProfilePart(1, models.CategoryPoliticalPosition, scope, "Analüüs "+scope.Key())
		require.NoError(t, storage.UpsertProfilePart(ctx, part))
		assert.NotZero(t, part.ID)
	}

	count, err := storage.CountProfileParts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// Each scope key resolves to its own row
	for _, scope := range scopes {
		got, err := storage.GetProfilePart(ctx, 1, models.CategoryPoliticalPosition, scope)
		require.NoError(t, err, "scope %s", scope.Key())
		assert.Equal(t, "Analüüs "+scope.Key(), got.Analysis)
		assert.Equal(t, scope.Key(), got.Scope().Key())
	}

	// A different month is a different row
	_, err = storage.GetProfilePart(ctx, 1, models.CategoryPoliticalPosition, models.MonthScope("04.2024"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	byPeriod, err := storage.ListProfilePartsByPeriod(ctx, 1, models.PeriodMonth)
	require.NoError(t, err)
	assert.Len(t, byPeriod, 1)
}

func TestProfilePartUpsertReplacesInPlace(t *testing.T) {
	db := newTestDB(t)
	storage := NewProfileStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scope := models.MonthScope("03.2024")
	part := newProfilePart(1, models.CategoryTopicExpertise, scope, "Esimene versioon")
	require.NoError(t, storage.UpsertProfilePart(ctx, part))
	firstID := part.ID

	// Regenerating the same scope updates the existing row
	updated := newProfilePart(1, models.CategoryTopicExpertise, scope, "Teine versioon")
	require.NoError(t, storage.UpsertProfilePart(ctx, updated))
	assert.Equal(t, firstID, updated.ID)

	count, err := storage.CountProfilePartsByPolitician(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := storage.GetProfilePart(ctx, 1, models.CategoryTopicExpertise, scope)
	require.NoError(t, err)
	assert.Equal(t, "Teine versioon", got.Analysis)
}

func TestProfilePartTranslationLifecycle(t *testing.T) {
	db := newTestDB(t)
	storage := NewProfileStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scope := models.AllScope()
	part := newProfilePart(1, models.CategoryRhetoricalStyle, scope, "Retooriline stiil")
	require.NoError(t, storage.UpsertProfilePart(ctx, part))

	// 1. Freshly generated parts need translation
	needing, err := storage.ListProfilePartsNeedingTranslation(ctx, false)
	require.NoError(t, err)
	require.Len(t, needing, 1)

	require.NoError(t, storage.UpdateProfileTranslations(ctx, part.ID, strRef("Rhetorical style"), strRef("Риторический стиль")))

	needing, err = storage.ListProfilePartsNeedingTranslation(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, needing)

	// 2. Overwrite mode lists everything regardless
	all, err := storage.ListProfilePartsNeedingTranslation(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// 3. Re-upserting unchanged analysis keeps translations
	same := newProfilePart(1, models.CategoryRhetoricalStyle, scope, "Retooriline stiil")
	require.NoError(t, storage.UpsertProfilePart(ctx, same))
	got, err := storage.GetProfilePart(ctx, 1, models.CategoryRhetoricalStyle, scope)
	require.NoError(t, err)
	require.NotNil(t, got.AnalysisEN)
	assert.Equal(t, "Rhetorical style", *got.AnalysisEN)

	// 4. A changed analysis clears them
	changed := newProfilePart(1, models.CategoryRhetoricalStyle, scope, "Uus analüüs")
	require.NoError(t, storage.UpsertProfilePart(ctx, changed))
	got, err = storage.GetProfilePart(ctx, 1, models.CategoryRhetoricalStyle, scope)
	require.NoError(t, err)
	assert.Nil(t, got.AnalysisEN)
	assert.Nil(t, got.AnalysisRU)
}

func TestProfilePartMetricsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewProfileStorage(db, arbor.NewLogger())
	ctx := context.Background()

	scope := models.MonthScope("03.2024")
	part := newProfilePart(2, models.CategoryActivityPatterns, scope, "Aktiivsusmuster")
	part.Metrics = models.ProfileMetrics{
		SpeechesCount:       12,
		DateRangeStart:      "2024-03-04",
		DateRangeEnd:        "2024-03-28",
		MonthlyDistribution: map[string]int{"2024-03": 12},
	}
	require.NoError(t, storage.UpsertProfilePart(ctx, part))

	got, err := storage.GetProfilePart(ctx, 2, models.CategoryActivityPatterns, scope)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Metrics.SpeechesCount)
	assert.Equal(t, "2024-03-04", got.Metrics.DateRangeStart)
	assert.Equal(t, map[string]int{"2024-03": 12}, got.Metrics.MonthlyDistribution)
}

func TestProfilePartIncompleteAndDelete(t *testing.T) {
	db := newTestDB(t)
	storage := NewProfileStorage(db, arbor.NewLogger())
	ctx := context.Background()

	part := newProfilePart(3, models.CategoryEconomicViews, models.YearScope(2024), "Majandusvaated")
	require.NoError(t, storage.UpsertProfilePart(ctx, part))

	require.NoError(t, storage.SetProfileIncomplete(ctx, part.ID, true))
	got, err := storage.GetProfilePart(ctx, 3, models.CategoryEconomicViews, models.YearScope(2024))
	require.NoError(t, err)
	assert.True(t, got.IsIncomplete)

	require.NoError(t, storage.DeleteProfilePart(ctx, part.ID))
	_, err = storage.GetProfilePart(ctx, 3, models.CategoryEconomicViews, models.YearScope(2024))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	// Deleting an already removed row is a no-op
	require.NoError(t, storage.DeleteProfilePart(ctx, part.ID))
}
