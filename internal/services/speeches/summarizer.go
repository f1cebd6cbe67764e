package speeches

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/batch"
	"github.com/ternarybob/oratio/internal/services/profiler"
)

// speakerPlaceholder opens every generated summary; it is swapped for
// the actual speaker name before saving.
const speakerPlaceholder = "Sõnavõtja"

// Options control a single speech summary run.
type Options struct {
	// SpeechID restricts the run to one speech.
	SpeechID int64
	// AgendaID restricts the run to one agenda item's speeches.
	AgendaID int64
	// SessionID restricts the run to one plenary session's speeches.
	SessionID int64
	// PoliticianID restricts the run to one politician's speeches.
	PoliticianID int64
	// Overwrite regenerates summaries that already exist.
	Overwrite bool
	// DryRun selects and counts but performs no generation requests
	// and no writes.
	DryRun bool
}

// Report summarizes one run for the caller.
type Report struct {
	Eligible  int
	Generated int
	// Failed counts speeches still without a summary when the run
	// ended; a speech retried across passes is counted once.
	Failed int
	Passes int
	DryRun bool
}

// Summarizer writes one-sentence Estonian summaries for speeches. A run
// makes repeated passes over the store until every eligible speech has
// a summary or the retry ceiling is hit; each pass re-derives the
// remaining set from the store, so work finished by a crashed or
// parallel run is never repeated.
type Summarizer struct {
	config   common.SummariesConfig
	provider interfaces.GenerationProvider
	speeches interfaces.SpeechStorage
	logger   arbor.ILogger
}

func NewSummarizer(config common.SummariesConfig, provider interfaces.GenerationProvider, speeches interfaces.SpeechStorage, logger arbor.ILogger) *Summarizer {
	return &Summarizer{
		config:   config,
		provider: provider,
		speeches: speeches,
		logger:   logger,
	}
}

func (s *Summarizer) filter(opts Options, missingOnly bool) interfaces.SpeechFilter {
	return interfaces.SpeechFilter{
		SpeechID:           opts.SpeechID,
		AgendaItemID:       opts.AgendaID,
		PlenarySessionID:   opts.SessionID,
		PoliticianID:       opts.PoliticianID,
		EventType:          models.EventTypeSpeech,
		ExcludeIncomplete:  true,
		MissingSummaryOnly: missingOnly,
	}
}

// Run generates summaries for every eligible speech.
func (s *Summarizer) Run(ctx context.Context, opts Options) (*Report, error) {
	eligible, err := s.speeches.ListSpeeches(ctx, s.filter(opts, !opts.Overwrite))
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}

	report := &Report{Eligible: len(eligible), DryRun: opts.DryRun}
	if len(eligible) == 0 {
		s.logger.Info().Msg("No speeches need a summary")
		return report, nil
	}

	if opts.DryRun {
		s.logger.Info().
			Int("speeches", len(withText(eligible))).
			Msg("Dry run: would generate speech summaries")
		return report, nil
	}

	pending := eligible
	for pass := 1; pass <= s.config.MaxRetries; pass++ {
		report.Passes = pass

		failed := s.runPass(ctx, pending, report)
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if failed == 0 {
			report.Failed = 0
			break
		}

		// Re-derive the remaining set from the store; anything written
		// meanwhile, by this pass or another process, drops out.
		remaining, err := s.speeches.ListSpeeches(ctx, s.filter(opts, true))
		if err != nil {
			return report, fmt.Errorf("listing remaining speeches: %w", err)
		}
		remaining = withText(remaining)
		report.Failed = len(remaining)
		if len(remaining) == 0 {
			break
		}

		if pass == s.config.MaxRetries {
			return report, fmt.Errorf("%d speeches still missing a summary after %d passes",
				len(remaining), pass)
		}

		s.logger.Warn().
			Int("remaining", len(remaining)).
			Int("pass", pass).
			Msg("Retrying speeches without a summary")
		pending = remaining
	}

	s.logger.Info().
		Int("eligible", report.Eligible).
		Int("generated", report.Generated).
		Int("passes", report.Passes).
		Msg("Speech summary run finished")

	return report, nil
}

// runPass processes one batch of speeches with bounded concurrency and
// returns the failure count.
func (s *Summarizer) runPass(ctx context.Context, pending []*models.Speech, report *Report) int {
	var generated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BatchSize)

	for _, speech := range pending {
		speech := speech
		if !speech.HasText() {
			continue
		}
		g.Go(func() error {
			if err := s.processOne(gctx, speech); err != nil {
				failed.Add(1)
				s.logger.Error().
					Err(err).
					Int64("speech", speech.ID).
					Msg("Speech summary failed")
				return nil
			}
			generated.Add(1)
			return nil
		})
	}
	g.Wait()

	report.Generated += int(generated.Load())
	return int(failed.Load())
}

func (s *Summarizer) processOne(ctx context.Context, speech *models.Speech) error {
	response, err := s.provider.Generate(ctx, BuildSpeechPrompt(speech.Text), s.config.MaxTokens, s.config.Temperature)
	if err != nil {
		return err
	}
	return s.Apply(ctx, speech, response)
}

// Apply parses a summary response and persists it under the speech.
func (s *Summarizer) Apply(ctx context.Context, speech *models.Speech, response string) error {
	summary := ParseSummary(response, speech.Speaker)
	if summary == "" {
		return fmt.Errorf("response for speech %d carried no summary text", speech.ID)
	}
	if err := s.speeches.UpdateSpeechSummary(ctx, speech.ID, summary, time.Now()); err != nil {
		return fmt.Errorf("saving summary for speech %d: %w", speech.ID, err)
	}
	return nil
}

// RunBatch performs one pass through the asynchronous batch API.
// Failures leave the speeches eligible for a later synchronous run.
func (s *Summarizer) RunBatch(ctx context.Context, runner *batch.Runner, opts Options) (*Report, error) {
	eligible, err := s.speeches.ListSpeeches(ctx, s.filter(opts, !opts.Overwrite))
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}
	eligible = withText(eligible)

	report := &Report{Eligible: len(eligible), DryRun: opts.DryRun}
	if len(eligible) == 0 || opts.DryRun {
		return report, nil
	}

	byKey := make(map[string]*models.Speech, len(eligible))
	work := make([]interfaces.BatchItem, 0, len(eligible))
	for _, speech := range eligible {
		key := fmt.Sprintf("speech_%d", speech.ID)
		byKey[key] = speech
		work = append(work, interfaces.BatchItem{Key: key, Prompt: BuildSpeechPrompt(speech.Text)})
	}

	batchReport, err := runner.Run(ctx, work, "speech-summaries", func(ctx context.Context, key, text string) error {
		speech, ok := byKey[key]
		if !ok {
			return fmt.Errorf("unexpected result key %q", key)
		}
		return s.Apply(ctx, speech, text)
	})
	if batchReport != nil {
		report.Passes = 1
		report.Generated = batchReport.Applied
		report.Failed = batchReport.Failed
	}
	return report, err
}

// ResumeApply returns the apply hook for finishing an interrupted batch
// job. Result keys carry the speech id, so each speech is re-read from
// the store; one already summarized in the meantime is simply updated
// again.
func (s *Summarizer) ResumeApply() batch.ApplyFunc {
	return func(ctx context.Context, key, text string) error {
		idText, ok := strings.CutPrefix(key, "speech_")
		if !ok {
			return fmt.Errorf("unexpected result key %q", key)
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return fmt.Errorf("unexpected result key %q", key)
		}
		speech, err := s.speeches.GetSpeech(ctx, id)
		if err != nil {
			return fmt.Errorf("loading speech %d: %w", id, err)
		}
		return s.Apply(ctx, speech, text)
	}
}

// BuildSpeechPrompt wraps a speech text in the summary instruction.
func BuildSpeechPrompt(text string) string {
	return fmt.Sprintf(`Please write a short summary of the following speech, one sentence or paragraph max, in Estonian language, speak like native estonian, start with "Sõnavõtja".

Speech text:
%s

Provide the summary in Estonian, starting with "Sõnavõtja", wrapped in <summary></summary> tags.

Format:
<summary>Sõnavõtja ...</summary>`, text)
}

// ParseSummary extracts the summary from a response, falling back to
// the whole text when the tags are missing, and swaps the placeholder
// opener for the speaker name.
func ParseSummary(response, speaker string) string {
	content, _ := profiler.ExtractOrWhole(strings.TrimSpace(response), "summary")
	summary := strings.TrimSpace(content)

	if rest, ok := strings.CutPrefix(summary, speakerPlaceholder+" "); ok {
		return speaker + " " + rest
	}
	if rest, ok := strings.CutPrefix(summary, speakerPlaceholder); ok {
		return speaker + rest
	}
	return summary
}

func withText(speeches []*models.Speech) []*models.Speech {
	out := speeches[:0:0]
	for _, speech := range speeches {
		if speech.HasText() {
			out = append(out, speech)
		}
	}
	return out
}
