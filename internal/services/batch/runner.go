package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
)

// minChunkSize is the floor applied to the configured chunk size; the
// batch API rejects files that are too small to be worth a job.
const minChunkSize = 100

// resumeKeyPrefix namespaces batch-job resume records in the key/value
// store.
const resumeKeyPrefix = "batch_job:"

// ApplyFunc consumes one batch result: the item key and the raw response
// text. A non-nil error marks that single item as failed.
type ApplyFunc func(ctx context.Context, key, text string) error

// Report tallies the outcome of a batch run.
type Report struct {
	Chunks       int
	FailedChunks int
	Submitted    int
	Applied      int
	Failed       int
}

// Runner splits work into chunk-sized jobs, drives each through the
// batch API, and applies the results. A chunk failure is isolated: the
// remaining chunks still run.
type Runner struct {
	client interfaces.BatchClient
	config common.BatchConfig
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewRunner creates a batch runner. kv may be nil, in which case no
// resume records are written.
func NewRunner(client interfaces.BatchClient, config common.BatchConfig, kv interfaces.KeyValueStorage, logger arbor.ILogger) *Runner {
	return &Runner{
		client: client,
		config: config,
		kv:     kv,
		logger: logger,
	}
}

// Run submits the items in chunks and applies every returned result.
// label identifies the workload in logs and resume records. The run
// fails only when the context is cancelled or every chunk failed;
// individual chunk and item failures are counted in the report.
func (r *Runner) Run(ctx context.Context, items []interfaces.BatchItem, label string, apply ApplyFunc) (*Report, error) {
	report := &Report{}
	if len(items) == 0 {
		return report, nil
	}

	chunkSize := r.config.ChunkSize
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}

	for start := 0; start < len(items); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		report.Chunks++

		r.logger.Info().
			Str("label", label).
			Int("chunk", report.Chunks).
			Int("items", len(chunk)).
			Msg("Submitting batch chunk")

		jobID, err := r.client.Submit(ctx, chunk)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("label", label).
				Int("chunk", report.Chunks).
				Msg("Batch chunk submission failed")
			report.FailedChunks++
			report.Failed += len(chunk)
			continue
		}
		report.Submitted += len(chunk)
		r.recordJob(ctx, jobID, label)

		if err := r.collect(ctx, jobID, chunk, apply, report); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			r.logger.Error().
				Err(err).
				Str("label", label).
				Str("job", jobID).
				Msg("Batch chunk failed")
			report.FailedChunks++
			report.Failed += len(chunk)
			continue
		}

		r.clearJob(ctx, jobID)
	}

	if report.Chunks > 0 && report.FailedChunks == report.Chunks {
		return report, fmt.Errorf("all %d batch chunks failed", report.Chunks)
	}

	return report, nil
}

// Resume picks up a previously submitted job by id, waits for it and
// applies its results. Used after a crash or restart; the item set is
// whatever the stored job covers, so expected is only used for tallies.
func (r *Runner) Resume(ctx context.Context, jobID string, expected int, apply ApplyFunc) (*Report, error) {
	report := &Report{Chunks: 1, Submitted: expected}

	if err := r.collect(ctx, jobID, nil, apply, report); err != nil {
		report.FailedChunks++
		return report, err
	}

	r.clearJob(ctx, jobID)
	return report, nil
}

// collect waits for a job to finish and applies its results. chunk is
// the submitted item slice when known; results carrying keys outside it
// are still applied, missing keys are counted as failures.
func (r *Runner) collect(ctx context.Context, jobID string, chunk []interfaces.BatchItem, apply ApplyFunc, report *Report) error {
	status, err := r.waitForJob(ctx, jobID)
	if err != nil {
		return err
	}

	results, err := r.client.Fetch(ctx, status.ResultURI)
	if err != nil {
		return err
	}

	for key, text := range results {
		if err := apply(ctx, key, text); err != nil {
			r.logger.Warn().
				Err(err).
				Str("key", key).
				Msg("Applying batch result failed")
			report.Failed++
			continue
		}
		report.Applied++
	}

	for _, item := range chunk {
		if _, ok := results[item.Key]; !ok {
			r.logger.Warn().
				Str("key", item.Key).
				Msg("Batch job returned no result for item")
			report.Failed++
		}
	}

	return nil
}

// waitForJob polls until the job reaches a terminal state. A job stuck
// in an unknown state beyond the configured window is treated as failed.
func (r *Runner) waitForJob(ctx context.Context, jobID string) (*interfaces.BatchJobStatus, error) {
	deadline := time.Now().Add(r.config.Timeout)
	var unknownSince time.Time

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		status, err := r.client.Poll(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("polling job %s: %w", jobID, err)
		}

		switch status.State {
		case interfaces.BatchStateSucceeded:
			return status, nil

		case interfaces.BatchStateFailed:
			return nil, fmt.Errorf("job %s failed: %s", jobID, status.Reason)

		case interfaces.BatchStateUnknown:
			if unknownSince.IsZero() {
				unknownSince = time.Now()
			} else if time.Since(unknownSince) > r.config.UnknownStateTimeout {
				return nil, fmt.Errorf("job %s stuck in unknown state %q for %s", jobID, status.Reason, r.config.UnknownStateTimeout)
			}

		default:
			unknownSince = time.Time{}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s did not finish within %s", jobID, r.config.Timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) recordJob(ctx context.Context, jobID, label string) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Set(ctx, resumeKeyPrefix+jobID, label, "pending batch job"); err != nil {
		r.logger.Warn().Err(err).Str("job", jobID).Msg("Recording batch job failed")
	}
}

func (r *Runner) clearJob(ctx context.Context, jobID string) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Delete(ctx, resumeKeyPrefix+jobID); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		r.logger.Warn().Err(err).Str("job", jobID).Msg("Clearing batch job record failed")
	}
}

// PendingJob is the resume record of a batch job that never completed.
type PendingJob struct {
	JobID     string
	Label     string
	Submitted time.Time
}

// PendingJobs lists resume records of batch jobs that never completed.
func (r *Runner) PendingJobs(ctx context.Context) ([]PendingJob, error) {
	if r.kv == nil {
		return nil, nil
	}
	pairs, err := r.kv.ListByPrefix(ctx, resumeKeyPrefix)
	if err != nil {
		return nil, err
	}
	jobs := make([]PendingJob, 0, len(pairs))
	for _, pair := range pairs {
		jobs = append(jobs, PendingJob{
			JobID:     strings.TrimPrefix(pair.Key, resumeKeyPrefix),
			Label:     pair.Value,
			Submitted: pair.CreatedAt,
		})
	}
	return jobs, nil
}

// Job returns the workload label recorded for a pending job.
func (r *Runner) Job(ctx context.Context, jobID string) (string, error) {
	if r.kv == nil {
		return "", interfaces.ErrKeyNotFound
	}
	return r.kv.Get(ctx, resumeKeyPrefix+jobID)
}

// Forget drops a job's resume record without applying its results.
func (r *Runner) Forget(ctx context.Context, jobID string) error {
	if r.kv == nil {
		return nil
	}
	return r.kv.Delete(ctx, resumeKeyPrefix+jobID)
}
