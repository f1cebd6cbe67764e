package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/pipeline"
)

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Run the full processing routine once",
	Long: `Runs every processing step in order: speech summaries, agenda
summaries, translations, politician profiles, profile translations and
the maintenance sync. A failing step stops the routine.`,
	Args: cobra.NoArgs,
	RunE: runRoutine,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the routine on a cron schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var (
	routineSkip   []string
	routineDryRun bool
	routineBatch  bool
	scheduleCron  string
)

func init() {
	rootCmd.AddCommand(routineCmd)
	rootCmd.AddCommand(scheduleCmd)

	for _, c := range []*cobra.Command{routineCmd, scheduleCmd} {
		c.Flags().StringSliceVar(&routineSkip, "skip", nil,
			fmt.Sprintf("steps to skip (valid: %v)", pipeline.StepNames))
		c.Flags().BoolVar(&routineBatch, "batch", false,
			"route generation through the batch API")
	}
	routineCmd.Flags().BoolVar(&routineDryRun, "dry-run", false,
		"walk every step without calling the provider or writing")
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "",
		"cron expression override (default: pipeline.schedule from config)")
}

func runRoutine(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	provider, err := newProvider(ctx, store)
	if err != nil {
		return err
	}
	defer provider.Close()

	routine := pipeline.NewRoutine(config, provider, store, logger)
	if runner, err := newBatchRunner(ctx, store, routineBatch); err != nil {
		return err
	} else if runner != nil {
		routine.UseBatch(runner)
	}

	results, err := routine.Run(ctx, pipeline.Options{SkipSteps: routineSkip, DryRun: routineDryRun})
	for _, result := range results {
		switch {
		case result.Skipped:
			fmt.Printf("%-28s skipped\n", result.Name)
		case result.Err != nil:
			fmt.Printf("%-28s failed: %v\n", result.Name, result.Err)
		default:
			fmt.Printf("%-28s ok (%s)\n", result.Name, result.Duration.Round(time.Second))
		}
	}
	return err
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	schedule := scheduleCron
	if schedule == "" {
		schedule = config.Pipeline.Schedule
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	provider, err := newProvider(ctx, store)
	if err != nil {
		return err
	}
	defer provider.Close()

	routine := pipeline.NewRoutine(config, provider, store, logger)
	if runner, err := newBatchRunner(ctx, store, routineBatch); err != nil {
		return err
	} else if runner != nil {
		routine.UseBatch(runner)
	}

	scheduler, err := pipeline.NewScheduler(routine, schedule, pipeline.Options{SkipSteps: routineSkip}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Routine scheduled (%s); press Ctrl+C to stop.\n", schedule)
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
