package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

func newTestKV(t *testing.T) interfaces.KeyValueStorage {
	t.Helper()

	db, err := Open(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewKVStorage(db, arbor.NewLogger())
}

func TestOpenResetOnStartupWipesStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv")

	db, err := Open(arbor.NewLogger(), &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, NewKVStorage(db, arbor.NewLogger()).Set(ctx, "api_key", "secret", ""))
	require.NoError(t, db.Close())

	db, err = Open(arbor.NewLogger(), &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	defer db.Close()

	_, err = NewKVStorage(db, arbor.NewLogger()).Get(ctx, "api_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVSetGetDelete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "Gemini_API_Key", "secret-1", "LLM key"))

	// Keys are case-insensitive
	value, err := kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "secret-1", value)

	value, err = kv.Get(ctx, "GEMINI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "secret-1", value)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, kv.Delete(ctx, "GEMINI_API_KEY"))
	_, err = kv.Get(ctx, "gemini_api_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	err = kv.Delete(ctx, "gemini_api_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVSetPreservesCreatedAt(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "batch_resume_id", "batches/abc", ""))

	pairs, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	created := pairs[0].CreatedAt

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, kv.Set(ctx, "batch_resume_id", "batches/def", ""))

	pairs, err = kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "batches/def", pairs[0].Value)
	assert.True(t, pairs[0].CreatedAt.Equal(created))
	assert.True(t, pairs[0].UpdatedAt.After(created))
}

func TestKVListByPrefix(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "batch:run_1", "pending", ""))
	require.NoError(t, kv.Set(ctx, "batch:run_2", "done", ""))
	require.NoError(t, kv.Set(ctx, "gemini_api_key", "secret", ""))

	pairs, err := kv.ListByPrefix(ctx, "BATCH:")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "batch:run_1", pairs[0].Key)
	assert.Equal(t, "batch:run_2", pairs[1].Key)

	all, err := kv.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
