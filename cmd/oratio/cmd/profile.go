package cmd

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/profiler"
)

var profileCmd = &cobra.Command{
	Use:   "profile <politician-id|uuid>",
	Short: "Generate analytical profiles for one politician",
	Long: `Generates the missing or stale profile cells for one politician across
every category and period, then aggregates the ALL rows. Already
current cells are left untouched unless --overwrite is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

var profileAllCmd = &cobra.Command{
	Use:   "profile-all",
	Short: "Generate profiles for every politician with speeches",
	Args:  cobra.NoArgs,
	RunE:  runProfileAll,
}

var (
	profileCategories []string
	profileOverwrite  bool
	profileDryRun     bool
	profileIntegrity  bool
)

func init() {
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(profileAllCmd)

	for _, c := range []*cobra.Command{profileCmd, profileAllCmd} {
		c.Flags().StringSliceVar(&profileCategories, "categories", nil,
			"restrict to these profile categories (default: all)")
		c.Flags().BoolVar(&profileOverwrite, "overwrite", false,
			"regenerate cells that are already current")
		c.Flags().BoolVar(&profileDryRun, "dry-run", false,
			"report what would be generated without calling the provider")
		c.Flags().BoolVar(&profileIntegrity, "integrity-check", false,
			"remove invalid profile parts before generating")
	}
}

func parseCategories(names []string) ([]models.ProfileCategory, error) {
	categories := make([]models.ProfileCategory, 0, len(names))
	for _, name := range names {
		if !models.IsValidCategory(name) {
			return nil, fmt.Errorf("unknown category %q (valid: %v)", name, models.AllCategories())
		}
		categories = append(categories, models.ProfileCategory(name))
	}
	return categories, nil
}

// resolvePolitician accepts a numeric id or an entity UUID.
func resolvePolitician(ctx context.Context, store interfaces.StorageManager, arg string) (*models.Politician, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.Politicians().GetPolitician(ctx, id)
	}
	return store.Politicians().GetPoliticianByUUID(ctx, arg)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	categories, err := parseCategories(profileCategories)
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	politician, err := resolvePolitician(ctx, store, args[0])
	if err != nil {
		return fmt.Errorf("resolving politician %q: %w", args[0], err)
	}

	provider, err := newProvider(ctx, store)
	if err != nil {
		return err
	}
	defer provider.Close()

	orchestrator := profiler.NewOrchestrator(config.Profiler, provider, store.Profiles(), store.Speeches(), store.Sessions(), logger)
	if profileIntegrity {
		if _, err := orchestrator.RunIntegrityCheck(ctx, politician, profileDryRun); err != nil {
			return fmt.Errorf("integrity check for politician %d: %w", politician.ID, err)
		}
	}
	report, err := orchestrator.Run(ctx, politician, profiler.Options{
		Categories: categories,
		Overwrite:  profileOverwrite,
		DryRun:     profileDryRun,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Politician:     %s (%d)\n", politician.FullName, politician.ID)
	fmt.Printf("Speeches:       %d\n", report.Speeches)
	fmt.Printf("Scopes:         %d\n", report.Scopes)
	fmt.Printf("Cells planned:  %d\n", report.CellsPlanned)
	fmt.Printf("Parts written:  %d\n", report.PartsWritten)
	fmt.Printf("Aggregates:     %d\n", report.Aggregates)
	if report.Failures > 0 {
		fmt.Printf("Failures:       %d\n", report.Failures)
	}
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}

// runProfileAll fans the profiler out over every politician with
// speeches, bounded by the configured worker count. Individual
// failures are logged and tallied, not fatal.
func runProfileAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	categories, err := parseCategories(profileCategories)
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := newProvider(ctx, store)
	if err != nil {
		return err
	}
	defer provider.Close()

	politicians, err := store.Politicians().ListPoliticiansWithSpeeches(ctx)
	if err != nil {
		return fmt.Errorf("listing politicians: %w", err)
	}

	var succeeded, failed atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(config.Profiler.Workers)
	for _, politician := range politicians {
		group.Go(func() error {
			orchestrator := profiler.NewOrchestrator(config.Profiler, provider, store.Profiles(), store.Speeches(), store.Sessions(), logger)
			if profileIntegrity {
				if _, err := orchestrator.RunIntegrityCheck(groupCtx, politician, profileDryRun); err != nil {
					failed.Add(1)
					logger.Error().
						Int64("politician_id", politician.ID).
						Err(err).
						Msg("Integrity check failed")
					return groupCtx.Err()
				}
			}
			_, err := orchestrator.Run(groupCtx, politician, profiler.Options{
				Categories: categories,
				Overwrite:  profileOverwrite,
				DryRun:     profileDryRun,
			})
			if err != nil {
				failed.Add(1)
				logger.Error().
					Int64("politician_id", politician.ID).
					Str("name", politician.FullName).
					Err(err).
					Msg("Profiling failed")
				return groupCtx.Err()
			}
			succeeded.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	fmt.Printf("Politicians: %d\n", len(politicians))
	fmt.Printf("Succeeded:   %d\n", succeeded.Load())
	fmt.Printf("Failed:      %d\n", failed.Load())
	if len(politicians) > 0 && succeeded.Load() == 0 {
		return fmt.Errorf("profiling failed for all %d politicians", len(politicians))
	}
	return nil
}
