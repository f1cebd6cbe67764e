package maintain

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/periods"
)

// CountsReport tallies one profiling-count sync.
type CountsReport struct {
	Checked int
	Updated int
	DryRun  bool
}

// CountsSync maintains each politician's required and generated profile
// part counters. Required is the full grid size for the politician's
// current speeches: every touched scope plus the ALL aggregate, times
// the category count.
type CountsSync struct {
	politicians interfaces.PoliticianStorage
	sessions    interfaces.SessionStorage
	speeches    interfaces.SpeechStorage
	profiles    interfaces.ProfileStorage
	logger      arbor.ILogger
}

func NewCountsSync(politicians interfaces.PoliticianStorage, sessions interfaces.SessionStorage, speeches interfaces.SpeechStorage, profiles interfaces.ProfileStorage, logger arbor.ILogger) *CountsSync {
	return &CountsSync{
		politicians: politicians,
		sessions:    sessions,
		speeches:    speeches,
		profiles:    profiles,
		logger:      logger,
	}
}

// Run recomputes the counters for every politician with speeches.
func (c *CountsSync) Run(ctx context.Context, dryRun bool) (*CountsReport, error) {
	report := &CountsReport{DryRun: dryRun}

	sessionByAgenda, err := agendaSessionMap(ctx, c.sessions)
	if err != nil {
		return nil, err
	}

	politicians, err := c.politicians.ListPoliticiansWithSpeeches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing politicians: %w", err)
	}

	categories := len(models.AllCategories())
	for _, politician := range politicians {
		report.Checked++

		speeches, err := c.speeches.ListSpeechesByPolitician(ctx, politician.ID)
		if err != nil {
			return report, fmt.Errorf("listing speeches for politician %d: %w", politician.ID, err)
		}

		scopes := periods.Partition(speeches, sessionByAgenda)
		required := (scopes.Count() + 1) * categories

		generated, err := c.profiles.CountProfilePartsByPolitician(ctx, politician.ID)
		if err != nil {
			return report, fmt.Errorf("counting profile parts for politician %d: %w", politician.ID, err)
		}

		if required == politician.ProfilesRequired && generated == politician.ProfilesGenerated {
			continue
		}

		report.Updated++
		if dryRun {
			continue
		}
		if err := c.politicians.UpdateProfilingCounts(ctx, politician.ID, required, generated); err != nil {
			return report, fmt.Errorf("updating counts for politician %d: %w", politician.ID, err)
		}
	}

	c.logger.Info().
		Int("checked", report.Checked).
		Int("updated", report.Updated).
		Bool("dry_run", dryRun).
		Msg("Profiling count sync finished")

	return report, nil
}

// agendaSessionMap builds the agenda→session resolution used by scope
// partitioning.
func agendaSessionMap(ctx context.Context, sessions interfaces.SessionStorage) (map[int64]int64, error) {
	agendas, err := sessions.ListAgendaItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agenda items: %w", err)
	}
	byAgenda := make(map[int64]int64, len(agendas))
	for _, agenda := range agendas {
		byAgenda[agenda.ID] = agenda.PlenarySessionID
	}
	return byAgenda, nil
}
