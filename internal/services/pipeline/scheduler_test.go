package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/storage/memory"
)

func TestNewSchedulerValidatesSchedule(t *testing.T) {
	routine := NewRoutine(testConfig(), &fakeProvider{}, memory.NewManager(), arbor.NewLogger())

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"nightly", "0 3 * * *", false},
		{"every ten minutes", "*/10 * * * *", false},
		{"garbage", "not a schedule", true},
		{"too frequent", "* * * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(routine, tt.schedule, Options{}, arbor.NewLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedulerTickRunsRoutine(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedStore(t, store)

	routine := NewRoutine(testConfig(), &fakeProvider{}, store, arbor.NewLogger())
	scheduler, err := NewScheduler(routine, "0 3 * * *", Options{}, arbor.NewLogger())
	require.NoError(t, err)

	lastRun, lastErr := scheduler.LastRun()
	assert.Nil(t, lastRun)
	assert.NoError(t, lastErr)

	scheduler.tick(ctx)

	lastRun, lastErr = scheduler.LastRun()
	require.NotNil(t, lastRun)
	assert.NoError(t, lastErr)
	assert.WithinDuration(t, time.Now(), *lastRun, time.Minute)

	speech, err := store.GetSpeech(ctx, 100)
	require.NoError(t, err)
	assert.NotNil(t, speech.AISummary)
}

func TestSchedulerRecordsRunFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedStore(t, store)

	provider := &fakeProvider{fail: func(string) error {
		return assert.AnError
	}}
	routine := NewRoutine(testConfig(), provider, store, arbor.NewLogger())
	scheduler, err := NewScheduler(routine, "0 3 * * *", Options{}, arbor.NewLogger())
	require.NoError(t, err)

	scheduler.tick(ctx)

	lastRun, lastErr := scheduler.LastRun()
	require.NotNil(t, lastRun)
	require.Error(t, lastErr)
	assert.Contains(t, lastErr.Error(), StepSpeechSummaries)
}

func TestSchedulerDropsOverlappingTick(t *testing.T) {
	ctx := context.Background()
	store := memory.NewManager()
	seedStore(t, store)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	provider := &fakeProvider{fail: func(prompt string) error {
		if !strings.Contains(prompt, "Translate") {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		return nil
	}}

	routine := NewRoutine(testConfig(), provider, store, arbor.NewLogger())
	scheduler, err := NewScheduler(routine, "0 3 * * *", Options{}, arbor.NewLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		scheduler.tick(ctx)
		close(done)
	}()

	<-entered
	// The first run is parked inside the provider; this tick must be
	// dropped immediately instead of starting a second run.
	scheduler.tick(ctx)

	close(release)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("first run never finished")
	}

	_, lastErr := scheduler.LastRun()
	assert.NoError(t, lastErr)
}
