package agendas

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	"github.com/ternarybob/oratio/internal/services/pseudonym"
)

// errNoUsableSpeeches marks agenda items with nothing to summarize.
var errNoUsableSpeeches = errors.New("no usable speeches")

// Options control a single agenda summary run.
type Options struct {
	// AgendaID restricts the run to one agenda item.
	AgendaID int64
	// Limit caps the number of items processed, newest first. Zero
	// means no cap.
	Limit int
	// Overwrite regenerates summaries that already exist.
	Overwrite bool
	// DryRun selects and renders prompts but performs no generation
	// requests and no writes.
	DryRun bool
}

// Report summarizes one run for the caller.
type Report struct {
	Eligible  int
	Generated int
	Failed    int
	Skipped   int
	DryRun    bool
}

// Summarizer produces structured agenda reports: a prose summary, the
// decisions made, and the most active speaker. A report only counts as
// generated when the response carried at least one decision and an
// activity record; anything less leaves the item eligible for the next
// run.
type Summarizer struct {
	config      common.SummariesConfig
	provider    interfaces.GenerationProvider
	politicians interfaces.PoliticianStorage
	sessions    interfaces.SessionStorage
	speeches    interfaces.SpeechStorage
	summaries   interfaces.SummaryStorage
	logger      arbor.ILogger
}

func NewSummarizer(config common.SummariesConfig, provider interfaces.GenerationProvider, politicians interfaces.PoliticianStorage, sessions interfaces.SessionStorage, speeches interfaces.SpeechStorage, summaries interfaces.SummaryStorage, logger arbor.ILogger) *Summarizer {
	return &Summarizer{
		config:      config,
		provider:    provider,
		politicians: politicians,
		sessions:    sessions,
		speeches:    speeches,
		summaries:   summaries,
		logger:      logger,
	}
}

// Run selects the eligible agenda items and generates a report for each
// with bounded concurrency.
func (s *Summarizer) Run(ctx context.Context, opts Options) (*Report, error) {
	items, err := s.selectItems(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{Eligible: len(items), DryRun: opts.DryRun}
	if len(items) == 0 {
		s.logger.Info().Msg("No agenda items need a summary")
		return report, nil
	}

	codec, err := pseudonym.NewCodec()
	if err != nil {
		return nil, err
	}

	var generated, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BatchSize)

	for _, item := range items {
		item := item
		g.Go(func() error {
			err := s.processOne(gctx, codec, item, opts.DryRun)
			switch {
			case errors.Is(err, errNoUsableSpeeches):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				s.logger.Error().
					Err(err).
					Int64("agenda_item", item.ID).
					Msg("Agenda summary failed")
			default:
				generated.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Generated = int(generated.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())

	s.logger.Info().
		Int("eligible", report.Eligible).
		Int("generated", report.Generated).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("Agenda summary run finished")

	return report, nil
}

// RunBatch performs the same run through the asynchronous batch API.
func (s *Summarizer) RunBatch(ctx context.Context, runner *batch.Runner, opts Options) (*Report, error) {
	items, err := s.selectItems(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{Eligible: len(items), DryRun: opts.DryRun}
	if len(items) == 0 || opts.DryRun {
		return report, nil
	}

	codec, err := pseudonym.NewCodec()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*models.AgendaItem, len(items))
	var work []interfaces.BatchItem
	for _, item := range items {
		usable, _, err := s.loadSpeeches(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if len(usable) == 0 {
			report.Skipped++
			continue
		}
		key := fmt.Sprintf("agenda_%d", item.ID)
		byKey[key] = item
		work = append(work, interfaces.BatchItem{
			Key:    key,
			Prompt: BuildAgendaPrompt(BuildAgendaXML(codec, item, usable)),
		})
	}

	batchReport, err := runner.Run(ctx, work, "agenda-summaries", func(ctx context.Context, key, text string) error {
		item, ok := byKey[key]
		if !ok {
			return fmt.Errorf("unexpected result key %q", key)
		}
		return s.Apply(ctx, codec, item, text)
	})
	if batchReport != nil {
		report.Generated = batchReport.Applied
		report.Failed = batchReport.Failed
	}
	return report, err
}

// selectItems resolves the run's work list, newest first.
func (s *Summarizer) selectItems(ctx context.Context, opts Options) ([]*models.AgendaItem, error) {
	var items []*models.AgendaItem

	switch {
	case opts.AgendaID != 0:
		item, err := s.sessions.GetAgendaItem(ctx, opts.AgendaID)
		if err != nil {
			return nil, fmt.Errorf("loading agenda item %d: %w", opts.AgendaID, err)
		}
		if !opts.Overwrite {
			if _, err := s.summaries.GetAgendaSummary(ctx, item.ID); err == nil {
				s.logger.Info().
					Int64("agenda_item", item.ID).
					Msg("Agenda item already has a summary, skipping")
				return nil, nil
			} else if !errors.Is(err, interfaces.ErrNotFound) {
				return nil, err
			}
		}
		items = []*models.AgendaItem{item}

	case opts.Overwrite:
		all, err := s.itemsWithUsableSpeeches(ctx)
		if err != nil {
			return nil, err
		}
		items = all

	default:
		needing, err := s.summaries.ListAgendaItemsNeedingSummary(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing agenda items needing summary: %w", err)
		}
		items = needing
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

// itemsWithUsableSpeeches lists agenda items that have at least one
// complete speech to summarize.
func (s *Summarizer) itemsWithUsableSpeeches(ctx context.Context) ([]*models.AgendaItem, error) {
	speeches, err := s.speeches.ListSpeeches(ctx, interfaces.SpeechFilter{
		EventType:         models.EventTypeSpeech,
		ExcludeIncomplete: true,
	})
	if err != nil {
		return nil, err
	}

	withText := make(map[int64]bool)
	for _, speech := range speeches {
		if speech.HasText() {
			withText[speech.AgendaItemID] = true
		}
	}

	all, err := s.sessions.ListAgendaItems(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*models.AgendaItem, 0, len(withText))
	for _, item := range all {
		if withText[item.ID] {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Summarizer) processOne(ctx context.Context, codec *pseudonym.Codec, item *models.AgendaItem, dryRun bool) error {
	usable, _, err := s.loadSpeeches(ctx, item.ID)
	if err != nil {
		return err
	}
	if len(usable) == 0 {
		return errNoUsableSpeeches
	}

	prompt := BuildAgendaPrompt(BuildAgendaXML(codec, item, usable))
	if dryRun {
		s.logger.Info().
			Int64("agenda_item", item.ID).
			Int("speeches", len(usable)).
			Msg("Dry run: would generate agenda summary")
		return nil
	}

	response, err := s.provider.Generate(ctx, prompt, s.config.MaxTokens, s.config.Temperature)
	if err != nil {
		return fmt.Errorf("generating summary for agenda item %d: %w", item.ID, err)
	}

	return s.Apply(ctx, codec, item, response)
}

// Apply parses a structured report response and persists it. The item
// stays eligible when the response lacks decisions or an activity
// record.
func (s *Summarizer) Apply(ctx context.Context, codec *pseudonym.Codec, item *models.AgendaItem, response string) error {
	decoded := codec.RewriteIDAttributes(response)

	blocks := profiler.ExtractSegments(decoded, "agenda")
	if len(blocks) == 0 {
		return fmt.Errorf("response for agenda item %d carried no agenda block", item.ID)
	}
	content := blocks[0].Text

	_, incompleteSpeeches, err := s.loadSpeeches(ctx, item.ID)
	if err != nil {
		return err
	}

	now := time.Now()

	summaryText := ""
	if text, ok := profiler.ExtractFirst(content, "summary"); ok {
		summaryText = strings.TrimSpace(text)
	}
	if err := s.summaries.UpsertAgendaSummary(ctx, &models.AgendaSummary{
		AgendaItemID: item.ID,
		SummaryText:  summaryText,
		IsIncomplete: incompleteSpeeches,
		GeneratedAt:  &now,
	}); err != nil {
		return fmt.Errorf("saving summary for agenda item %d: %w", item.ID, err)
	}

	var decisions []*models.AgendaDecision
	if inner, ok := profiler.ExtractFirst(content, "decisions"); ok {
		for _, seg := range profiler.ExtractSegments(inner, "decision") {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				s.logger.Warn().
					Int64("agenda_item", item.ID).
					Msg("Skipping empty decision")
				continue
			}
			decisions = append(decisions, &models.AgendaDecision{
				AgendaItemID: item.ID,
				PoliticianID: s.resolvePolitician(ctx, item.ID, seg.Attr("pid")),
				Text:         text,
				IsIncomplete: incompleteSpeeches,
				GeneratedAt:  &now,
			})
		}
	}
	if err := s.summaries.ReplaceDecisions(ctx, item.ID, decisions); err != nil {
		return fmt.Errorf("saving decisions for agenda item %d: %w", item.ID, err)
	}

	activitySaved := false
	if activities := profiler.ExtractSegments(content, "activity"); len(activities) > 0 {
		seg := activities[0]
		// The row is written even with no attributed speaker so a
		// prior successful run can be told apart from a failed one.
		if err := s.summaries.ReplaceActivePolitician(ctx, item.ID, &models.AgendaActivePolitician{
			AgendaItemID: item.ID,
			PoliticianID: s.resolvePolitician(ctx, item.ID, seg.Attr("pid")),
			Description:  strings.TrimSpace(seg.Text),
			IsIncomplete: incompleteSpeeches,
			GeneratedAt:  &now,
		}); err != nil {
			return fmt.Errorf("saving active politician for agenda item %d: %w", item.ID, err)
		}
		activitySaved = true
	}

	if len(decisions) == 0 || !activitySaved {
		return fmt.Errorf("response for agenda item %d is malformed: %d decisions, activity saved %t",
			item.ID, len(decisions), activitySaved)
	}
	return nil
}

// loadSpeeches returns the agenda's complete speeches in date order and
// whether any speech is still incomplete.
func (s *Summarizer) loadSpeeches(ctx context.Context, agendaItemID int64) ([]*models.Speech, bool, error) {
	all, err := s.speeches.ListSpeeches(ctx, interfaces.SpeechFilter{
		AgendaItemID: agendaItemID,
		EventType:    models.EventTypeSpeech,
	})
	if err != nil {
		return nil, false, fmt.Errorf("loading speeches for agenda item %d: %w", agendaItemID, err)
	}

	usable := make([]*models.Speech, 0, len(all))
	incomplete := false
	for _, speech := range all {
		if speech.IsIncomplete {
			incomplete = true
			continue
		}
		if speech.HasText() {
			usable = append(usable, speech)
		}
	}
	return usable, incomplete, nil
}

// resolvePolitician maps a decoded pid attribute to a politician id.
// Empty means a collective record; unknown values are dropped with a
// warning rather than failing the report.
func (s *Summarizer) resolvePolitician(ctx context.Context, agendaItemID int64, pid string) *int64 {
	if pid == "" {
		return nil
	}

	id, err := strconv.ParseInt(pid, 10, 64)
	if err != nil {
		s.logger.Warn().
			Int64("agenda_item", agendaItemID).
			Str("pid", pid).
			Msg("Unresolvable politician reference in response")
		return nil
	}

	if _, err := s.politicians.GetPolitician(ctx, id); err != nil {
		s.logger.Warn().
			Int64("agenda_item", agendaItemID).
			Int64("politician", id).
			Msg("Politician referenced in response not found")
		return nil
	}
	return &id
}
