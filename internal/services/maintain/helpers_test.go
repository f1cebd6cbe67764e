package maintain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/storage/memory"
)

var baseDate = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

func seedSession(t *testing.T, store *memory.Manager, sessionID int64, agendaIDs ...int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveSession(ctx, &models.PlenarySession{
		ID:            sessionID,
		Membership:    15,
		SessionNumber: int(sessionID),
		Date:          baseDate,
		Title:         "Täiskogu istung",
	}))
	for _, agendaID := range agendaIDs {
		require.NoError(t, store.SaveAgendaItem(ctx, &models.AgendaItem{
			ID:               agendaID,
			UUID:             "agenda-uuid",
			PlenarySessionID: sessionID,
			Date:             baseDate,
			Title:            "Eelnõu arutelu",
		}))
	}
}

func seedPolitician(t *testing.T, store *memory.Manager, id int64, name string) {
	t.Helper()
	require.NoError(t, store.SavePolitician(context.Background(), &models.Politician{
		ID:       id,
		UUID:     "politician-uuid",
		FullName: name,
		Active:   true,
	}))
}

func seedSpeech(t *testing.T, store *memory.Manager, id, agendaID int64, politicianID *int64, date time.Time, text string) *models.Speech {
	t.Helper()
	parsed := date
	speech := &models.Speech{
		ID:           id,
		UUID:         "speech-uuid",
		AgendaItemID: agendaID,
		PoliticianID: politicianID,
		EventType:    models.EventTypeSpeech,
		Date:         date,
		Speaker:      "Kõneleja",
		Text:         text,
		ParsedAt:     &parsed,
	}
	require.NoError(t, store.SaveSpeech(context.Background(), speech))
	return speech
}

func ptr[T any](v T) *T { return &v }
