package profiler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/periods"
)

// Aggregation answers are short; the scope-generation token ceiling
// would only invite rambling.
const aggregationMaxTokens = 2000

// Options control a single profiling run.
type Options struct {
	// Categories restricts the run to a subset; empty means all ten.
	Categories []models.ProfileCategory
	// Overwrite regenerates every cell regardless of freshness.
	Overwrite bool
	// DryRun walks the full reconciliation but performs no generation
	// requests and no writes.
	DryRun bool
}

// Report summarizes one run for the caller.
type Report struct {
	PoliticianID int64
	Speeches     int
	Scopes       int
	Passes       int
	// CellsPlanned is the missing+stale cell count found on the first
	// pass; zero means the run was a no-op.
	CellsPlanned int
	PartsWritten int
	Aggregates   int
	Failures     int
	DryRun       bool
}

// scopePlan is one phase-1 work unit: a scope, its contributing
// speeches, and the categories still needing parts there.
type scopePlan struct {
	scope      models.Scope
	label      string
	speeches   []*models.Speech
	categories []models.ProfileCategory
}

// Orchestrator drives the two-phase profile generation for one
// politician at a time: scope profiles first (agenda, session, month,
// year), then per-category ALL profiles synthesized from the monthly
// analyses. Phase 2 never reads raw speeches, which keeps its prompt
// size independent of total speech volume.
type Orchestrator struct {
	config   common.ProfilerConfig
	provider interfaces.GenerationProvider
	profiles interfaces.ProfileStorage
	speeches interfaces.SpeechStorage
	sessions interfaces.SessionStorage
	tracker  *periods.Tracker
	logger   arbor.ILogger
}

func NewOrchestrator(config common.ProfilerConfig, provider interfaces.GenerationProvider, profiles interfaces.ProfileStorage, speeches interfaces.SpeechStorage, sessions interfaces.SessionStorage, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		config:   config,
		provider: provider,
		profiles: profiles,
		speeches: speeches,
		sessions: sessions,
		tracker:  periods.NewTracker(profiles, logger),
		logger:   logger,
	}
}

// Run reconciles the politician's profile grid against their current
// speeches. Re-running with nothing missing or stale performs zero
// generation requests and zero writes.
func (o *Orchestrator) Run(ctx context.Context, politician *models.Politician, opts Options) (*Report, error) {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = models.AllCategories()
	}
	for _, category := range categories {
		if !models.IsValidCategory(string(category)) {
			return nil, fmt.Errorf("unknown profile category: %s", category)
		}
	}

	speeches, err := o.speeches.ListSpeechesByPolitician(ctx, politician.ID)
	if err != nil {
		return nil, fmt.Errorf("loading speeches for politician %d: %w", politician.ID, err)
	}

	report := &Report{
		PoliticianID: politician.ID,
		Speeches:     len(speeches),
		DryRun:       opts.DryRun,
	}

	if len(speeches) == 0 {
		o.logger.Info().
			Int64("politician_id", politician.ID).
			Str("politician", politician.FullName).
			Msg("No speeches recorded, nothing to profile")
		return report, nil
	}

	agendaIndex, sessionIndex, sessionByAgenda, err := o.loadPeriodContext(ctx, speeches)
	if err != nil {
		return nil, err
	}

	set := periods.Partition(speeches, sessionByAgenda)
	scopes := set.NonAllScopes()
	report.Scopes = len(scopes)

	o.logger.Info().
		Int64("politician_id", politician.ID).
		Str("politician", politician.FullName).
		Int("speeches", len(speeches)).
		Int("agendas", len(set.Agendas)).
		Int("sessions", len(set.Sessions)).
		Int("months", len(set.Months)).
		Int("years", len(set.Years)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting two-phase profile generation")

	if err := o.runScopePhase(ctx, politician.ID, categories, scopes, speeches, sessionByAgenda, agendaIndex, sessionIndex, opts, report); err != nil {
		return report, err
	}

	if opts.DryRun && report.CellsPlanned > 0 {
		// Scope parts were not persisted, so the month gate below could
		// never be satisfied.
		o.logger.Info().
			Int64("politician_id", politician.ID).
			Int("cells", report.CellsPlanned).
			Msg("Dry run: skipping aggregate phase")
		return report, nil
	}

	if err := o.runAggregatePhase(ctx, politician.ID, categories, set.Months, opts, report); err != nil {
		return report, err
	}

	o.logger.Info().
		Int64("politician_id", politician.ID).
		Int("parts_written", report.PartsWritten).
		Int("aggregates", report.Aggregates).
		Int("failures", report.Failures).
		Int("passes", report.Passes).
		Msg("Profile generation finished")
	return report, nil
}

// runScopePhase fills missing and stale non-ALL cells, then re-checks
// strict existence. Still-missing cells are re-queued up to the retry
// ceiling; exceeding it aborts the run so the aggregate phase never
// builds on an incomplete foundation.
func (o *Orchestrator) runScopePhase(ctx context.Context, politicianID int64, categories []models.ProfileCategory, scopes []models.Scope, speeches []*models.Speech, sessionByAgenda map[int64]int64, agendaIndex map[int64]*models.AgendaItem, sessionIndex map[int64]*models.PlenarySession, opts Options, report *Report) error {
	maxPasses := o.config.MaxRetries
	if maxPasses < 1 {
		maxPasses = 1
	}

	for pass := 1; pass <= maxPasses; pass++ {
		report.Passes = pass

		// Overwrite forces the full grid once; the re-queue passes only
		// chase cells that are still missing.
		overwrite := opts.Overwrite && pass == 1

		plans, err := o.planScopes(ctx, politicianID, categories, scopes, speeches, sessionByAgenda, agendaIndex, sessionIndex, overwrite)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			o.logger.Info().
				Int64("politician_id", politicianID).
				Int("pass", pass).
				Msg("All scope profiles present and fresh")
			return nil
		}

		cellCount := 0
		for _, plan := range plans {
			cellCount += len(plan.categories)
		}
		if pass == 1 {
			report.CellsPlanned = cellCount
		}

		o.logger.Info().
			Int64("politician_id", politicianID).
			Int("pass", pass).
			Int("scopes", len(plans)).
			Int("cells", cellCount).
			Msg("Generating scope profiles")

		o.runPlans(ctx, politicianID, plans, opts, report)

		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.DryRun {
			// Writes were suppressed; the existence check cannot converge.
			return nil
		}

		gate, err := o.tracker.PhaseComplete(ctx, politicianID, categories, scopes)
		if err != nil {
			return err
		}
		if gate.IsComplete {
			o.logger.Info().
				Int64("politician_id", politicianID).
				Int("pass", pass).
				Msg("Scope phase validated complete")
			return nil
		}

		o.logger.Warn().
			Int64("politician_id", politicianID).
			Int("pass", pass).
			Int("missing", gate.MissingCount).
			Str("missing_by_kind", fmt.Sprintf("%v", gate.MissingByKind)).
			Msg("Scope phase incomplete, re-queueing missing cells")

		if pass == maxPasses {
			return fmt.Errorf("scope profiles incomplete after %d passes: %d cells still missing", maxPasses, gate.MissingCount)
		}
	}
	return nil
}

// planScopes turns the missing and stale cells into per-scope work
// units, grouped so each scope costs one generation request covering
// only the categories it still needs.
func (o *Orchestrator) planScopes(ctx context.Context, politicianID int64, categories []models.ProfileCategory, scopes []models.Scope, speeches []*models.Speech, sessionByAgenda map[int64]int64, agendaIndex map[int64]*models.AgendaItem, sessionIndex map[int64]*models.PlenarySession, overwrite bool) ([]scopePlan, error) {
	var cells []periods.Cell
	if overwrite {
		for _, scope := range scopes {
			for _, category := range categories {
				cells = append(cells, periods.Cell{Category: category, Scope: scope})
			}
		}
	} else {
		missing, err := o.tracker.MissingCells(ctx, politicianID, categories, scopes)
		if err != nil {
			return nil, err
		}
		stale, err := o.tracker.StaleCells(ctx, politicianID, categories, scopes, speeches, sessionByAgenda)
		if err != nil {
			return nil, err
		}
		cells = append(missing, stale...)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	byScope := make(map[string]*scopePlan, len(cells))
	var order []string
	for _, cell := range cells {
		key := cell.Scope.Key()
		plan, ok := byScope[key]
		if !ok {
			plan = &scopePlan{
				scope:    cell.Scope,
				label:    o.scopeLabel(cell.Scope, agendaIndex, sessionIndex),
				speeches: periods.FilterByScope(speeches, cell.Scope, sessionByAgenda),
			}
			byScope[key] = plan
			order = append(order, key)
		}
		plan.categories = append(plan.categories, cell.Category)
	}

	plans := make([]scopePlan, 0, len(order))
	for _, key := range order {
		plans = append(plans, *byScope[key])
	}
	return plans, nil
}

// runPlans fans the scope plans out over the worker pool. A failed
// scope is logged and left for the next pass; it never blocks sibling
// scopes. On cancellation, in-flight requests finish but no further
// scopes are submitted.
func (o *Orchestrator) runPlans(ctx context.Context, politicianID int64, plans []scopePlan, opts Options, report *Report) {
	workers := o.config.Workers
	if workers < 1 {
		workers = 1
	}

	var group errgroup.Group
	group.SetLimit(workers)

	var written, failed atomic.Int64
	for _, plan := range plans {
		if ctx.Err() != nil {
			o.logger.Warn().
				Int64("politician_id", politicianID).
				Msg("Cancelled, not submitting further scopes")
			break
		}
		group.Go(func() error {
			saved, err := o.processScope(ctx, politicianID, plan, opts)
			written.Add(int64(saved))
			if err != nil {
				failed.Add(1)
				o.logger.Warn().
					Int64("politician_id", politicianID).
					Str("scope", plan.scope.Key()).
					Err(err).
					Msg("Scope generation failed, cells stay queued")
			}
			return nil
		})
	}
	_ = group.Wait()

	report.PartsWritten += int(written.Load())
	report.Failures += int(failed.Load())
}

// processScope issues one generation request for the scope and persists
// every profile element parsed out of the response. In streaming mode
// elements are persisted as soon as they are syntactically complete.
func (o *Orchestrator) processScope(ctx context.Context, politicianID int64, plan scopePlan, opts Options) (int, error) {
	xmlContent := BuildSpeechesXML(plan.speeches)
	prompt := BuildScopePrompt(plan.categories, xmlContent, plan.scope.Type, plan.label)

	o.logger.Debug().
		Int64("politician_id", politicianID).
		Str("scope", plan.scope.Key()).
		Str("label", plan.label).
		Int("speeches", len(plan.speeches)).
		Int("categories", len(plan.categories)).
		Msg("Requesting scope profiles")

	if opts.DryRun {
		o.logger.Info().
			Str("scope", plan.scope.Key()).
			Int("categories", len(plan.categories)).
			Msg("Dry run: skipping generation request")
		return len(plan.categories), nil
	}

	processed := make(map[models.ProfileCategory]bool, len(plan.categories))
	saved := 0
	var response string

	if o.config.Streaming {
		var buffer strings.Builder
		err := o.provider.GenerateStream(ctx, prompt, o.config.MaxTokens, o.config.Temperature, func(chunk string) error {
			buffer.WriteString(chunk)
			saved += o.harvestProfiles(ctx, politicianID, plan, buffer.String(), processed)
			return nil
		})
		response = buffer.String()
		if err != nil {
			if saved > 0 {
				o.logger.Warn().
					Str("scope", plan.scope.Key()).
					Int("saved", saved).
					Err(err).
					Msg("Stream failed after partial harvest, remaining cells stay queued")
			}
			return saved, err
		}
	} else {
		var err error
		response, err = o.provider.Generate(ctx, prompt, o.config.MaxTokens, o.config.Temperature)
		if err != nil {
			return 0, err
		}
	}

	saved += o.harvestProfiles(ctx, politicianID, plan, response, processed)

	// A single-category request that came back untagged is still usable:
	// the whole response is that category's analysis.
	if saved == 0 && len(plan.categories) == 1 {
		whole, _ := ExtractOrWhole(response, "profiles")
		if whole = strings.TrimSpace(whole); whole != "" {
			o.logger.Warn().
				Str("scope", plan.scope.Key()).
				Str("category", string(plan.categories[0])).
				Msg("No tagged profile in response, using whole text as analysis")
			if err := o.saveScopePart(ctx, politicianID, plan, plan.categories[0], whole); err != nil {
				return 0, err
			}
			saved = 1
		}
	}

	if saved == 0 {
		return 0, fmt.Errorf("no profile elements parsed from response for scope %s", plan.scope.Key())
	}
	return saved, nil
}

// harvestProfiles extracts complete profile elements from buf and
// persists any category not yet handled this request. The processed set
// makes rescanning the growing stream buffer safe: each element is
// persisted exactly once no matter how often it is seen.
func (o *Orchestrator) harvestProfiles(ctx context.Context, politicianID int64, plan scopePlan, buf string, processed map[models.ProfileCategory]bool) int {
	saved := 0
	for _, segment := range ExtractSegments(buf, "profile") {
		name := segment.Attr("type")
		category := models.ProfileCategory(name)
		if processed[category] {
			continue
		}
		processed[category] = true

		if !models.IsValidCategory(name) {
			o.logger.Warn().
				Str("scope", plan.scope.Key()).
				Str("type", name).
				Msg("Skipping profile element with unknown category")
			continue
		}
		if segment.Text == "" {
			o.logger.Warn().
				Str("scope", plan.scope.Key()).
				Str("category", name).
				Msg("Skipping empty profile element")
			continue
		}

		if err := o.saveScopePart(ctx, politicianID, plan, category, segment.Text); err != nil {
			o.logger.Error().
				Str("scope", plan.scope.Key()).
				Str("category", name).
				Err(err).
				Msg("Failed to persist profile part")
			continue
		}
		saved++
	}
	return saved
}

func (o *Orchestrator) saveScopePart(ctx context.Context, politicianID int64, plan scopePlan, category models.ProfileCategory, analysis string) error {
	now := time.Now()
	start, end := DateRange(plan.speeches)

	part := &models.ProfilePart{
		PoliticianID:     politicianID,
		Category:         category,
		PeriodType:       plan.scope.Type,
		AgendaItemID:     plan.scope.AgendaID,
		PlenarySessionID: plan.scope.SessionID,
		Month:            plan.scope.Month,
		Year:             plan.scope.Year,
		Analysis:         analysis,
		Metrics:          CalculateMetrics(category, plan.speeches),
		SpeechesAnalyzed: len(plan.speeches),
		DateRangeStart:   start,
		DateRangeEnd:     end,
		IsIncomplete:     AnyIncomplete(plan.speeches),
		GeneratedAt:      &now,
	}

	if err := o.profiles.UpsertProfilePart(ctx, part); err != nil {
		return fmt.Errorf("upserting %s part for scope %s: %w", category, plan.scope.Key(), err)
	}

	o.logger.Info().
		Int64("politician_id", politicianID).
		Str("category", string(category)).
		Str("scope", plan.scope.Key()).
		Int("speeches", len(plan.speeches)).
		Msg("Profile part saved")
	return nil
}

// runAggregatePhase synthesizes per-category ALL profiles from the
// stored monthly analyses. Every expected month must have a part for
// every requested category before any aggregate is built.
func (o *Orchestrator) runAggregatePhase(ctx context.Context, politicianID int64, categories []models.ProfileCategory, expectedMonths []string, opts Options, report *Report) error {
	monthlyParts, err := o.profiles.ListProfilePartsByPeriod(ctx, politicianID, models.PeriodMonth)
	if err != nil {
		return fmt.Errorf("listing monthly parts for politician %d: %w", politicianID, err)
	}

	byCategory := make(map[models.ProfileCategory][]*models.ProfilePart)
	for _, part := range monthlyParts {
		byCategory[part.Category] = append(byCategory[part.Category], part)
	}

	var gaps []string
	for _, category := range categories {
		have := make(map[string]bool, len(byCategory[category]))
		for _, part := range byCategory[category] {
			if part.Month != nil {
				have[*part.Month] = true
			}
		}
		for _, month := range expectedMonths {
			if !have[month] {
				gaps = append(gaps, fmt.Sprintf("%s %s", category, month))
			}
		}
	}
	if len(gaps) > 0 {
		sample := gaps
		if len(sample) > 5 {
			sample = sample[:5]
		}
		return fmt.Errorf("aggregate phase blocked: %d monthly parts missing (%s)", len(gaps), strings.Join(sample, ", "))
	}

	for _, category := range categories {
		parts := byCategory[category]
		if len(parts) == 0 {
			o.logger.Warn().
				Int64("politician_id", politicianID).
				Str("category", string(category)).
				Msg("No monthly parts, skipping aggregate")
			continue
		}
		sortPartsByMonth(parts)

		needed, reason, err := o.aggregateNeeded(ctx, politicianID, category, parts, opts.Overwrite)
		if err != nil {
			return err
		}
		if !needed {
			continue
		}

		o.logger.Info().
			Int64("politician_id", politicianID).
			Str("category", string(category)).
			Int("months", len(parts)).
			Str("reason", reason).
			Msg("Synthesizing aggregate profile")

		if opts.DryRun {
			report.Aggregates++
			continue
		}

		if err := o.generateAggregate(ctx, politicianID, category, parts); err != nil {
			report.Failures++
			o.logger.Error().
				Int64("politician_id", politicianID).
				Str("category", string(category)).
				Err(err).
				Msg("Aggregate generation failed")
			continue
		}
		report.Aggregates++
	}
	return nil
}

// aggregateNeeded decides whether the category's ALL part must be
// (re)built: it is missing, overwrite was requested, or a monthly part
// has been regenerated since the aggregate was written.
func (o *Orchestrator) aggregateNeeded(ctx context.Context, politicianID int64, category models.ProfileCategory, monthly []*models.ProfilePart, overwrite bool) (bool, string, error) {
	existing, err := o.profiles.GetProfilePart(ctx, politicianID, category, models.AllScope())
	if errors.Is(err, interfaces.ErrNotFound) {
		return true, "missing", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("loading ALL part for %s: %w", category, err)
	}
	if overwrite {
		return true, "overwrite", nil
	}
	if existing.GeneratedAt == nil {
		return true, "generation time unknown", nil
	}
	for _, part := range monthly {
		if part.GeneratedAt != nil && part.GeneratedAt.After(*existing.GeneratedAt) {
			return true, fmt.Sprintf("month %s regenerated", derefMonth(part.Month)), nil
		}
	}
	return false, "", nil
}

func (o *Orchestrator) generateAggregate(ctx context.Context, politicianID int64, category models.ProfileCategory, monthly []*models.ProfilePart) error {
	prompt := BuildAggregationPrompt(category, monthly)

	response, err := o.provider.Generate(ctx, prompt, aggregationMaxTokens, o.config.Temperature)
	if err != nil {
		return fmt.Errorf("aggregation request for %s: %w", category, err)
	}

	analysis, fellBack := ExtractOrWhole(response, "analysis")
	if fellBack {
		o.logger.Warn().
			Str("category", string(category)).
			Msg("Aggregation response missing analysis tag, using whole text")
	}
	if analysis == "" {
		return fmt.Errorf("empty aggregation analysis for %s", category)
	}

	part := buildAggregatePart(politicianID, category, analysis, monthly)
	if err := o.profiles.UpsertProfilePart(ctx, part); err != nil {
		return fmt.Errorf("upserting ALL part for %s: %w", category, err)
	}

	o.logger.Info().
		Int64("politician_id", politicianID).
		Str("category", string(category)).
		Int("months", len(monthly)).
		Msg("Aggregate profile saved")
	return nil
}

// buildAggregatePart rolls the monthly parts up into the ALL part:
// speech counts sum, date ranges span, and incompleteness propagates if
// any contributing month was incomplete.
func buildAggregatePart(politicianID int64, category models.ProfileCategory, analysis string, monthly []*models.ProfilePart) *models.ProfilePart {
	now := time.Now()

	total := 0
	incomplete := false
	var start, end *time.Time
	for _, part := range monthly {
		total += part.SpeechesAnalyzed
		incomplete = incomplete || part.IsIncomplete
		if part.DateRangeStart != nil && (start == nil || part.DateRangeStart.Before(*start)) {
			start = part.DateRangeStart
		}
		if part.DateRangeEnd != nil && (end == nil || part.DateRangeEnd.After(*end)) {
			end = part.DateRangeEnd
		}
	}

	metrics := models.ProfileMetrics{
		SpeechesCount:             total,
		MonthlyProfilesAggregated: len(monthly),
	}
	if start != nil {
		metrics.DateRangeStart = start.Format("2006-01-02")
	}
	if end != nil {
		metrics.DateRangeEnd = end.Format("2006-01-02")
	}

	return &models.ProfilePart{
		PoliticianID:     politicianID,
		Category:         category,
		PeriodType:       models.PeriodAll,
		Analysis:         analysis,
		Metrics:          metrics,
		SpeechesAnalyzed: total,
		DateRangeStart:   start,
		DateRangeEnd:     end,
		IsIncomplete:     incomplete,
		GeneratedAt:      &now,
	}
}

// loadPeriodContext resolves the agenda and session rows the speeches
// reference. A missing agenda row costs its speeches their session
// scope, not their agenda scope; labels fall back to bare ids.
func (o *Orchestrator) loadPeriodContext(ctx context.Context, speeches []*models.Speech) (map[int64]*models.AgendaItem, map[int64]*models.PlenarySession, map[int64]int64, error) {
	agendaIndex := make(map[int64]*models.AgendaItem)
	sessionIndex := make(map[int64]*models.PlenarySession)
	sessionByAgenda := make(map[int64]int64)
	seenAgendas := make(map[int64]struct{})
	seenSessions := make(map[int64]struct{})

	for _, speech := range speeches {
		if _, seen := seenAgendas[speech.AgendaItemID]; seen {
			continue
		}
		seenAgendas[speech.AgendaItemID] = struct{}{}

		item, err := o.sessions.GetAgendaItem(ctx, speech.AgendaItemID)
		if errors.Is(err, interfaces.ErrNotFound) {
			o.logger.Warn().
				Int64("agenda_item_id", speech.AgendaItemID).
				Int64("speech_id", speech.ID).
				Msg("Speech references missing agenda item")
			continue
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading agenda item %d: %w", speech.AgendaItemID, err)
		}
		agendaIndex[item.ID] = item
		sessionByAgenda[item.ID] = item.PlenarySessionID

		if _, seen := seenSessions[item.PlenarySessionID]; seen {
			continue
		}
		seenSessions[item.PlenarySessionID] = struct{}{}

		session, err := o.sessions.GetSession(ctx, item.PlenarySessionID)
		if errors.Is(err, interfaces.ErrNotFound) {
			o.logger.Warn().
				Int64("plenary_session_id", item.PlenarySessionID).
				Int64("agenda_item_id", item.ID).
				Msg("Agenda item references missing plenary session")
			continue
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading plenary session %d: %w", item.PlenarySessionID, err)
		}
		sessionIndex[session.ID] = session
	}
	return agendaIndex, sessionIndex, sessionByAgenda, nil
}

// scopeLabel produces the period description embedded in prompts:
// agenda and session scopes use their stored titles.
func (o *Orchestrator) scopeLabel(scope models.Scope, agendaIndex map[int64]*models.AgendaItem, sessionIndex map[int64]*models.PlenarySession) string {
	switch scope.Type {
	case models.PeriodAgenda:
		if scope.AgendaID == nil {
			return "Agenda item"
		}
		if item, ok := agendaIndex[*scope.AgendaID]; ok && item.Title != "" {
			return item.Title
		}
		return fmt.Sprintf("Agenda item %d", *scope.AgendaID)
	case models.PeriodPlenarySession:
		if scope.SessionID == nil {
			return "Plenary session"
		}
		if session, ok := sessionIndex[*scope.SessionID]; ok && session.Title != "" {
			return session.Title
		}
		return fmt.Sprintf("Plenary session %d", *scope.SessionID)
	case models.PeriodMonth:
		return "Month " + derefMonth(scope.Month)
	case models.PeriodYear:
		if scope.Year == nil {
			return "Year"
		}
		return fmt.Sprintf("Year %d", *scope.Year)
	default:
		return "General overview across all periods"
	}
}

func sortPartsByMonth(parts []*models.ProfilePart) {
	sort.SliceStable(parts, func(i, j int) bool {
		yearI, monthI, okI := periods.ParseMonthKey(derefMonth(parts[i].Month))
		yearJ, monthJ, okJ := periods.ParseMonthKey(derefMonth(parts[j].Month))
		if okI != okJ {
			return okI
		}
		if yearI != yearJ {
			return yearI < yearJ
		}
		return monthI < monthJ
	})
}

func derefMonth(month *string) string {
	if month == nil {
		return ""
	}
	return *month
}
