package translate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/batch"
)

// Options control a translation pass.
type Options struct {
	// Overwrite retranslates items that already have translations.
	Overwrite bool
	// DryRun selects and counts but performs no generation requests
	// and no writes.
	DryRun bool
}

// PassReport tallies one translation pass.
type PassReport struct {
	Label      string
	Items      int
	Translated int
	Failed     int
	DryRun     bool
}

// workItem is one translatable text with its persistence hook. en and
// ru carry the already stored translations so a partial result never
// erases the surviving language.
type workItem struct {
	key   string
	text  string
	en    *string
	ru    *string
	apply func(ctx context.Context, en, ru *string) error
}

// Service runs the EN/RU translation passes over every translatable
// artifact: profile analyses, agenda and session titles, agenda
// summaries, decisions, active-politician notes, and speech summaries.
type Service struct {
	translator *Translator
	storage    interfaces.StorageManager
	workers    int
	// batchRunner, when set, routes passes through the batch API
	// instead of synchronous generation.
	batchRunner *batch.Runner
	logger      arbor.ILogger
}

func NewService(config common.TranslateConfig, provider interfaces.GenerationProvider, storage interfaces.StorageManager, workers int, logger arbor.ILogger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		translator: NewTranslator(config, provider, logger),
		storage:    storage,
		workers:    workers,
		logger:     logger,
	}
}

// UseBatch routes subsequent passes through the batch API.
func (s *Service) UseBatch(runner *batch.Runner) { s.batchRunner = runner }

// Profiles translates profile analyses.
func (s *Service) Profiles(ctx context.Context, opts Options) (*PassReport, error) {
	items, err := s.profileItems(ctx, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "profiles", items, opts)
}

func (s *Service) profileItems(ctx context.Context, overwrite bool) ([]workItem, error) {
	parts, err := s.storage.Profiles().ListProfilePartsNeedingTranslation(ctx, overwrite)
	if err != nil {
		return nil, fmt.Errorf("listing profile parts: %w", err)
	}

	items := make([]workItem, 0, len(parts))
	for _, part := range parts {
		if part.Analysis == "" {
			continue
		}
		part := part
		items = append(items, workItem{
			key:  fmt.Sprintf("profile_%d", part.ID),
			text: part.Analysis,
			en:   part.AnalysisEN,
			ru:   part.AnalysisRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Profiles().UpdateProfileTranslations(ctx, part.ID, en, ru)
			},
		})
	}
	return items, nil
}

// AgendaTitles translates agenda item titles.
func (s *Service) AgendaTitles(ctx context.Context, opts Options) (*PassReport, error) {
	items, err := s.agendaTitleItems(ctx, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "agenda-titles", items, opts)
}

func (s *Service) agendaTitleItems(ctx context.Context, overwrite bool) ([]workItem, error) {
	agendas, err := s.storage.Sessions().ListAgendaItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agenda items: %w", err)
	}

	items := make([]workItem, 0)
	for _, agenda := range agendas {
		if agenda.Title == "" {
			continue
		}
		if !overwrite && agenda.TitleEN != nil && agenda.TitleRU != nil {
			continue
		}
		agenda := agenda
		items = append(items, workItem{
			key:  fmt.Sprintf("agenda_title_%d", agenda.ID),
			text: agenda.Title,
			en:   agenda.TitleEN,
			ru:   agenda.TitleRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Sessions().UpdateAgendaTitleTranslations(ctx, agenda.ID, en, ru)
			},
		})
	}
	return items, nil
}

// SessionTitles translates plenary session titles.
func (s *Service) SessionTitles(ctx context.Context, opts Options) (*PassReport, error) {
	items, err := s.sessionTitleItems(ctx, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "session-titles", items, opts)
}

func (s *Service) sessionTitleItems(ctx context.Context, overwrite bool) ([]workItem, error) {
	sessions, err := s.storage.Sessions().ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	items := make([]workItem, 0)
	for _, session := range sessions {
		if session.Title == "" {
			continue
		}
		if !overwrite && session.TitleEN != nil && session.TitleRU != nil {
			continue
		}
		session := session
		items = append(items, workItem{
			key:  fmt.Sprintf("session_title_%d", session.ID),
			text: session.Title,
			en:   session.TitleEN,
			ru:   session.TitleRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Sessions().UpdateSessionTitleTranslations(ctx, session.ID, en, ru)
			},
		})
	}
	return items, nil
}

// AgendaSummaries translates stored agenda summaries, their decisions
// and active-politician notes.
func (s *Service) AgendaSummaries(ctx context.Context, opts Options) (*PassReport, error) {
	items, err := s.agendaSummaryItems(ctx, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "agenda-summaries", items, opts)
}

func (s *Service) agendaSummaryItems(ctx context.Context, overwrite bool) ([]workItem, error) {
	summaries, err := s.storage.Summaries().ListSummariesNeedingTranslation(ctx, overwrite)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	decisions, err := s.storage.Summaries().ListDecisionsNeedingTranslation(ctx, overwrite)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	actives, err := s.storage.Summaries().ListActivesNeedingTranslation(ctx, overwrite)
	if err != nil {
		return nil, fmt.Errorf("listing active politicians: %w", err)
	}

	items := make([]workItem, 0, len(summaries)+len(decisions)+len(actives))
	for _, summary := range summaries {
		if summary.SummaryText == "" {
			continue
		}
		summary := summary
		items = append(items, workItem{
			key:  fmt.Sprintf("summary_%d", summary.ID),
			text: summary.SummaryText,
			en:   summary.SummaryEN,
			ru:   summary.SummaryRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Summaries().UpdateSummaryTranslations(ctx, summary.ID, en, ru)
			},
		})
	}
	for _, decision := range decisions {
		if decision.Text == "" {
			continue
		}
		decision := decision
		items = append(items, workItem{
			key:  fmt.Sprintf("decision_%d", decision.ID),
			text: decision.Text,
			en:   decision.TextEN,
			ru:   decision.TextRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Summaries().UpdateDecisionTranslations(ctx, decision.ID, en, ru)
			},
		})
	}
	for _, active := range actives {
		if active.Description == "" {
			continue
		}
		active := active
		items = append(items, workItem{
			key:  fmt.Sprintf("active_%d", active.ID),
			text: active.Description,
			en:   active.DescriptionEN,
			ru:   active.DescriptionRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Summaries().UpdateActiveTranslations(ctx, active.ID, en, ru)
			},
		})
	}
	return items, nil
}

// SpeechSummaries translates generated speech summaries.
func (s *Service) SpeechSummaries(ctx context.Context, opts Options) (*PassReport, error) {
	items, err := s.speechSummaryItems(ctx, opts.Overwrite)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "speech-summaries", items, opts)
}

func (s *Service) speechSummaryItems(ctx context.Context, overwrite bool) ([]workItem, error) {
	speeches, err := s.storage.Speeches().ListSpeeches(ctx, interfaces.SpeechFilter{
		EventType: models.EventTypeSpeech,
	})
	if err != nil {
		return nil, fmt.Errorf("listing speeches: %w", err)
	}

	items := make([]workItem, 0)
	for _, speech := range speeches {
		if speech.AISummary == nil || *speech.AISummary == "" {
			continue
		}
		if !overwrite && speech.AISummaryEN != nil && speech.AISummaryRU != nil {
			continue
		}
		speech := speech
		items = append(items, workItem{
			key:  fmt.Sprintf("speech_summary_%d", speech.ID),
			text: *speech.AISummary,
			en:   speech.AISummaryEN,
			ru:   speech.AISummaryRU,
			apply: func(ctx context.Context, en, ru *string) error {
				return s.storage.Speeches().UpdateSpeechSummaryTranslations(ctx, speech.ID, en, ru)
			},
		})
	}
	return items, nil
}

// All runs every translation pass in order and returns the per-pass
// reports. A pass error stops the run.
func (s *Service) All(ctx context.Context, opts Options) ([]*PassReport, error) {
	passes := []func(context.Context, Options) (*PassReport, error){
		s.Profiles,
		s.AgendaTitles,
		s.SessionTitles,
		s.AgendaSummaries,
		s.SpeechSummaries,
	}

	reports := make([]*PassReport, 0, len(passes))
	for _, pass := range passes {
		report, err := pass(ctx, opts)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (s *Service) run(ctx context.Context, label string, items []workItem, opts Options) (*PassReport, error) {
	report := &PassReport{Label: label, Items: len(items), DryRun: opts.DryRun}
	if len(items) == 0 {
		return report, nil
	}
	if opts.DryRun {
		s.logger.Info().
			Str("pass", label).
			Int("items", len(items)).
			Msg("Dry run: would translate")
		return report, nil
	}

	if s.batchRunner != nil {
		return s.runBatch(ctx, label, items, report)
	}

	var translated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := s.translateOne(gctx, item); err != nil {
				failed.Add(1)
				s.logger.Error().
					Err(err).
					Str("pass", label).
					Str("item", item.key).
					Msg("Translation failed")
				return nil
			}
			translated.Add(1)
			return nil
		})
	}
	g.Wait()

	report.Translated = int(translated.Load())
	report.Failed = int(failed.Load())

	s.logger.Info().
		Str("pass", label).
		Int("items", report.Items).
		Int("translated", report.Translated).
		Int("failed", report.Failed).
		Msg("Translation pass finished")

	return report, ctx.Err()
}

func (s *Service) translateOne(ctx context.Context, item workItem) error {
	en, ru, err := s.translator.TranslatePair(ctx, item.text)
	if err != nil {
		return err
	}
	// Keep the stored translation for a language the provider missed.
	if en == nil {
		en = item.en
	}
	if ru == nil {
		ru = item.ru
	}
	return item.apply(ctx, en, ru)
}

// runBatch submits the pass through the batch API. Single-language
// fallbacks are skipped in batch mode; a partial response keeps the
// stored value for the missing language.
func (s *Service) runBatch(ctx context.Context, label string, items []workItem, report *PassReport) (*PassReport, error) {
	byKey := make(map[string]workItem, len(items))
	work := make([]interfaces.BatchItem, 0, len(items))
	for _, item := range items {
		byKey[item.key] = item
		work = append(work, interfaces.BatchItem{Key: item.key, Prompt: BuildPairPrompt(item.text)})
	}

	batchReport, err := s.batchRunner.Run(ctx, work, "translate-"+label, s.applyKeyed(byKey))
	if batchReport != nil {
		report.Translated = batchReport.Applied
		report.Failed = batchReport.Failed
	}
	return report, err
}

// applyKeyed persists one batch result against the item its key names.
func (s *Service) applyKeyed(byKey map[string]workItem) batch.ApplyFunc {
	return func(ctx context.Context, key, text string) error {
		item, ok := byKey[key]
		if !ok {
			return fmt.Errorf("unexpected result key %q", key)
		}
		en, ru := ParsePair(text)
		if en == nil && ru == nil {
			return fmt.Errorf("response carried no usable translation")
		}
		if en == nil {
			en = item.en
		}
		if ru == nil {
			ru = item.ru
		}
		return item.apply(ctx, en, ru)
	}
}

// ResumeApply returns the apply hook for finishing an interrupted batch
// job of the named pass. The item set is re-enumerated with overwrite so
// results for rows translated before the interruption still find their
// target; re-applying a translation is idempotent.
func (s *Service) ResumeApply(ctx context.Context, pass string) (batch.ApplyFunc, error) {
	collectors := map[string]func(context.Context, bool) ([]workItem, error){
		"profiles":         s.profileItems,
		"agenda-titles":    s.agendaTitleItems,
		"session-titles":   s.sessionTitleItems,
		"agenda-summaries": s.agendaSummaryItems,
		"speech-summaries": s.speechSummaryItems,
	}
	collect, ok := collectors[pass]
	if !ok {
		return nil, fmt.Errorf("unknown translation pass %q", pass)
	}

	items, err := collect(ctx, true)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]workItem, len(items))
	for _, item := range items {
		byKey[item.key] = item
	}
	return s.applyKeyed(byKey), nil
}
