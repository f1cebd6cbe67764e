package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/services/agendas"
	"github.com/ternarybob/oratio/internal/services/batch"
	"github.com/ternarybob/oratio/internal/services/maintain"
	"github.com/ternarybob/oratio/internal/services/profiler"
	"github.com/ternarybob/oratio/internal/services/speeches"
	"github.com/ternarybob/oratio/internal/services/translate"
)

// Routine step names, in execution order. skip_steps in the pipeline
// config refers to these.
const (
	StepSpeechSummaries       = "speech-summaries"
	StepAgendaSummaries       = "agenda-summaries"
	StepAgendaTranslations    = "agenda-translations"
	StepSessionTranslations   = "session-title-translations"
	StepSpeechSumTranslations = "speech-summary-translations"
	StepProfilePoliticians    = "profile-politicians"
	StepProfileTranslations   = "profile-translations"
	StepSync                  = "sync"
)

// StepNames lists every routine step in execution order.
var StepNames = []string{
	StepSpeechSummaries,
	StepAgendaSummaries,
	StepAgendaTranslations,
	StepSessionTranslations,
	StepSpeechSumTranslations,
	StepProfilePoliticians,
	StepProfileTranslations,
	StepSync,
}

// Options control one routine run.
type Options struct {
	// SkipSteps names steps to skip, merged with the configured set.
	SkipSteps []string
	DryRun    bool
}

// StepResult records one executed (or skipped) step.
type StepResult struct {
	Name     string
	Skipped  bool
	Duration time.Duration
	Err      error
}

// ProfileTally summarizes the profile fan-out step.
type ProfileTally struct {
	Politicians int
	Succeeded   int
	Failed      int
}

// Routine runs the full data-processing sequence: summaries first,
// their translations next, then profiles and their translations, and a
// maintenance sync last so counters and statistics reflect everything
// the run produced. A step failure stops the routine; later steps stay
// unexecuted rather than running against half-finished inputs.
type Routine struct {
	config      *common.Config
	provider    interfaces.GenerationProvider
	storage     interfaces.StorageManager
	batchRunner *batch.Runner
	logger      arbor.ILogger

	// Last profile fan-out tally, for reporting.
	profileTally ProfileTally
}

func NewRoutine(config *common.Config, provider interfaces.GenerationProvider, storage interfaces.StorageManager, logger arbor.ILogger) *Routine {
	return &Routine{
		config:   config,
		provider: provider,
		storage:  storage,
		logger:   logger,
	}
}

// UseBatch routes provider traffic through the batch API where a step
// supports it.
func (r *Routine) UseBatch(runner *batch.Runner) { r.batchRunner = runner }

// ProfileTally returns the tally of the last profile fan-out step.
func (r *Routine) ProfileTally() ProfileTally { return r.profileTally }

// Run executes the routine. The returned results cover every step up to
// and including the first failure; skipped steps appear with Skipped
// set.
func (r *Routine) Run(ctx context.Context, opts Options) ([]StepResult, error) {
	skip, err := r.skipSet(opts.SkipSteps)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		run  func(ctx context.Context, dryRun bool) error
	}{
		{StepSpeechSummaries, r.runSpeechSummaries},
		{StepAgendaSummaries, r.runAgendaSummaries},
		{StepAgendaTranslations, r.runAgendaTranslations},
		{StepSessionTranslations, r.runSessionTranslations},
		{StepSpeechSumTranslations, r.runSpeechSummaryTranslations},
		{StepProfilePoliticians, r.runProfilePoliticians},
		{StepProfileTranslations, r.runProfileTranslations},
		{StepSync, r.runSync},
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		if skip[step.name] {
			r.logger.Info().
				Str("step", step.name).
				Msg("Step skipped")
			results = append(results, StepResult{Name: step.name, Skipped: true})
			continue
		}

		r.logger.Info().
			Str("step", step.name).
			Int("position", i+1).
			Int("total", len(steps)).
			Msg("Step starting")

		start := time.Now()
		err := step.run(ctx, opts.DryRun)
		result := StepResult{Name: step.name, Duration: time.Since(start), Err: err}
		results = append(results, result)

		if err != nil {
			r.logger.Error().
				Str("step", step.name).
				Err(err).
				Msg("Step failed, routine stopped")
			return results, fmt.Errorf("step %s: %w", step.name, err)
		}

		r.logger.Info().
			Str("step", step.name).
			Str("duration", result.Duration.Round(time.Second).String()).
			Msg("Step finished")
	}

	return results, nil
}

func (r *Routine) skipSet(extra []string) (map[string]bool, error) {
	skip := make(map[string]bool)
	for _, name := range append(slices.Clone(r.config.Pipeline.SkipSteps), extra...) {
		if !slices.Contains(StepNames, name) {
			return nil, fmt.Errorf("unknown step %q (valid: %v)", name, StepNames)
		}
		skip[name] = true
	}
	return skip, nil
}

func (r *Routine) translateService() *translate.Service {
	svc := translate.NewService(r.config.Translate, r.provider, r.storage, r.config.Profiler.Workers, r.logger)
	if r.batchRunner != nil {
		svc.UseBatch(r.batchRunner)
	}
	return svc
}

func (r *Routine) runSpeechSummaries(ctx context.Context, dryRun bool) error {
	summarizer := speeches.NewSummarizer(r.config.Summaries, r.provider, r.storage.Speeches(), r.logger)
	opts := speeches.Options{DryRun: dryRun}
	if r.batchRunner != nil && !dryRun {
		_, err := summarizer.RunBatch(ctx, r.batchRunner, opts)
		return err
	}
	_, err := summarizer.Run(ctx, opts)
	return err
}

func (r *Routine) runAgendaSummaries(ctx context.Context, dryRun bool) error {
	summarizer := agendas.NewSummarizer(r.config.Summaries, r.provider, r.storage.Politicians(), r.storage.Sessions(), r.storage.Speeches(), r.storage.Summaries(), r.logger)
	opts := agendas.Options{DryRun: dryRun}
	if r.batchRunner != nil && !dryRun {
		_, err := summarizer.RunBatch(ctx, r.batchRunner, opts)
		return err
	}
	_, err := summarizer.Run(ctx, opts)
	return err
}

func (r *Routine) runAgendaTranslations(ctx context.Context, dryRun bool) error {
	svc := r.translateService()
	opts := translate.Options{DryRun: dryRun}
	if _, err := svc.AgendaTitles(ctx, opts); err != nil {
		return err
	}
	_, err := svc.AgendaSummaries(ctx, opts)
	return err
}

func (r *Routine) runSessionTranslations(ctx context.Context, dryRun bool) error {
	_, err := r.translateService().SessionTitles(ctx, translate.Options{DryRun: dryRun})
	return err
}

func (r *Routine) runSpeechSummaryTranslations(ctx context.Context, dryRun bool) error {
	_, err := r.translateService().SpeechSummaries(ctx, translate.Options{DryRun: dryRun})
	return err
}

// runProfilePoliticians fans the profiler out over every politician
// with speeches. Individual failures are tallied and logged, not fatal:
// one politician's bad speech data must not block the rest of the run.
func (r *Routine) runProfilePoliticians(ctx context.Context, dryRun bool) error {
	politicians, err := r.storage.Politicians().ListPoliticiansWithSpeeches(ctx)
	if err != nil {
		return fmt.Errorf("listing politicians: %w", err)
	}

	var succeeded, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Profiler.Workers)
	for _, politician := range politicians {
		group.Go(func() error {
			orchestrator := profiler.NewOrchestrator(r.config.Profiler, r.provider, r.storage.Profiles(), r.storage.Speeches(), r.storage.Sessions(), r.logger)
			_, err := orchestrator.Run(groupCtx, politician, profiler.Options{DryRun: dryRun})
			if err != nil {
				failed.Add(1)
				r.logger.Error().
					Int64("politician_id", politician.ID).
					Str("name", politician.FullName).
					Err(err).
					Msg("Profiling failed")
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	r.profileTally = ProfileTally{
		Politicians: len(politicians),
		Succeeded:   int(succeeded.Load()),
		Failed:      int(failed.Load()),
	}

	r.logger.Info().
		Int("politicians", r.profileTally.Politicians).
		Int("succeeded", r.profileTally.Succeeded).
		Int("failed", r.profileTally.Failed).
		Msg("Profile fan-out finished")

	if r.profileTally.Politicians > 0 && r.profileTally.Succeeded == 0 {
		return fmt.Errorf("profiling failed for all %d politicians", r.profileTally.Politicians)
	}
	return nil
}

func (r *Routine) runProfileTranslations(ctx context.Context, dryRun bool) error {
	_, err := r.translateService().Profiles(ctx, translate.Options{DryRun: dryRun})
	return err
}

func (r *Routine) runSync(ctx context.Context, dryRun bool) error {
	_, err := maintain.NewSync(r.storage, r.logger).RunAll(ctx, dryRun)
	return err
}
