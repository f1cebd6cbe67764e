package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "oratio_test.db"),
		CacheSizeMB:   16,
		BusyTimeoutMS: 5000,
		WALMode:       true,
	}

	db, err := NewSQLiteDB(arbor.NewLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func seedPolitician(t *testing.T, db *SQLiteDB, id int64, name string) *models.Politician {
	t.Helper()

	politician := &models.Politician{
		ID:       id,
		UUID:     fmt.Sprintf("pol-uuid-%d", id),
		FullName: name,
		Active:   true,
	}
	storage := NewPoliticianStorage(db, arbor.NewLogger())
	require.NoError(t, storage.SavePolitician(context.Background(), politician))

	return politician
}

func seedSessionWithAgenda(t *testing.T, db *SQLiteDB, sessionID, agendaID int64, date time.Time) {
	t.Helper()

	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	session := &models.PlenarySession{
		ID:            sessionID,
		Membership:    15,
		SessionNumber: int(sessionID),
		Date:          date,
		Title:         fmt.Sprintf("Täiskogu istung nr %d", sessionID),
	}
	require.NoError(t, storage.SaveSession(ctx, session))

	item := &models.AgendaItem{
		ID:               agendaID,
		UUID:             fmt.Sprintf("agenda-uuid-%d", agendaID),
		PlenarySessionID: sessionID,
		Date:             date,
		Title:            fmt.Sprintf("Päevakorrapunkt %d", agendaID),
	}
	require.NoError(t, storage.SaveAgendaItem(ctx, item))
}

func seedSpeech(t *testing.T, db *SQLiteDB, id, agendaID int64, politicianID *int64, date time.Time, text string) *models.Speech {
	t.Helper()

	parsedAt := date
	speech := &models.Speech{
		ID:           id,
		UUID:         fmt.Sprintf("speech-uuid-%d", id),
		AgendaItemID: agendaID,
		PoliticianID: politicianID,
		EventType:    models.EventTypeSpeech,
		Date:         date,
		Speaker:      "Testkõneleja",
		Text:         text,
		ParsedAt:     &parsedAt,
	}
	storage := NewSpeechStorage(db, arbor.NewLogger())
	require.NoError(t, storage.SaveSpeech(context.Background(), speech))

	return speech
}

func strRef(s string) *string { return &s }

func int64Ref(i int64) *int64 { return &i }
