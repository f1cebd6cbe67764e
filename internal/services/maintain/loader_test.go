package maintain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/storage/memory"
)

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeSeedFile(t, dir, PoliticiansFile, `[
		{"id": 100, "uuid": "2f1d2c3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f", "full_name": "Mari Maasikas", "active": true}
	]`)
	writeSeedFile(t, dir, SessionsFile, `[
		{"id": 1, "membership": 15, "session_number": 3, "date": "2024-03-12T10:00:00Z", "title": "Täiskogu <b>istung</b>"}
	]`)
	writeSeedFile(t, dir, AgendaItemsFile, `[
		{"id": 10, "uuid": "3a2b1c0d-5e6f-4a7b-9c8d-0e1f2a3b4c5d", "plenary_session_id": 1, "date": "2024-03-12T10:00:00Z", "title": "Eelnõu arutelu"}
	]`)
	writeSeedFile(t, dir, SpeechesFile, `[
		{"id": 1000, "uuid": "4c3d2e1f-6a7b-4c8d-9e0f-1a2b3c4d5e6f", "agenda_item_id": 10, "politician_id": 100,
		 "event_type": "SPEECH", "date": "2024-03-12T10:05:00Z", "speaker": "Mari Maasikas", "text": "Lugupeetud istungi juhataja"},
		{"id": 1001, "uuid": "5d4e3f2a-7b8c-4d9e-8f0a-2b3c4d5e6f7a", "agenda_item_id": 10,
		 "event_type": "SPEECH", "date": "2024-03-12T10:10:00Z", "speaker": "Juhataja", "text": "Stenogramm on koostamisel"}
	]`)

	return dir
}

func TestLoadDirSeedsEveryEntity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	loader := NewLoader(store, arbor.NewLogger())

	report, err := loader.LoadDir(ctx, seedDir(t), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Politicians)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, 1, report.AgendaItems)
	assert.Equal(t, 2, report.Speeches)

	politician, err := store.GetPolitician(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Mari Maasikas", politician.FullName)

	// Titles are cleaned on the way in.
	session, err := store.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Täiskogu istung", session.Title)

	speech, err := store.GetSpeech(ctx, 1000)
	require.NoError(t, err)
	require.NotNil(t, speech.PoliticianID)
	assert.Equal(t, int64(100), *speech.PoliticianID)
	assert.False(t, speech.IsIncomplete)

	// The stenogram placeholder arrives flagged incomplete.
	pending, err := store.GetSpeech(ctx, 1001)
	require.NoError(t, err)
	assert.Nil(t, pending.PoliticianID)
	assert.True(t, pending.IsIncomplete)
}

func TestLoadDirIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	loader := NewLoader(store, arbor.NewLogger())
	dir := seedDir(t)

	_, err := loader.LoadDir(ctx, dir, false)
	require.NoError(t, err)
	_, err = loader.LoadDir(ctx, dir, false)
	require.NoError(t, err)

	count, err := store.CountSpeeches(ctx, interfaces.SpeechFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadDirRejectsInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, PoliticiansFile, `[
		{"id": 100, "uuid": "not-a-uuid", "full_name": "Mari Maasikas"}
	]`)

	store := memory.NewManager()
	_, err := NewLoader(store, arbor.NewLogger()).LoadDir(context.Background(), dir, false)
	require.Error(t, err)

	politicians, listErr := store.ListPoliticians(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, politicians)
}

func TestLoadDirRejectsUnknownEventType(t *testing.T) {
	dir := t.TempDir()
	writeSeedFile(t, dir, SpeechesFile, `[
		{"id": 1, "uuid": "4c3d2e1f-6a7b-4c8d-9e0f-1a2b3c4d5e6f", "agenda_item_id": 10,
		 "event_type": "APPLAUSE", "date": "2024-03-12T10:05:00Z", "speaker": "X", "text": "Y"}
	]`)

	_, err := NewLoader(memory.NewManager(), arbor.NewLogger()).LoadDir(context.Background(), dir, false)
	assert.Error(t, err)
}

func TestLoadDirDryRunCountsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()

	report, err := NewLoader(store, arbor.NewLogger()).LoadDir(ctx, seedDir(t), true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Speeches)

	count, err := store.CountSpeeches(ctx, interfaces.SpeechFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)

	politicians, err := store.ListPoliticians(ctx)
	require.NoError(t, err)
	assert.Empty(t, politicians)
}

func TestLoadDirEmptyDirectoryErrors(t *testing.T) {
	_, err := NewLoader(memory.NewManager(), arbor.NewLogger()).LoadDir(context.Background(), t.TempDir(), false)
	assert.Error(t, err)
}
