package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/maintain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Recompute derived values from stored speeches",
}

var syncDryRun bool

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.PersistentFlags().BoolVar(&syncDryRun, "dry-run", false,
		"report what would change without writing")

	syncCmd.AddCommand(&cobra.Command{
		Use:   "times",
		Short: "Recompute agenda durations and politician speaking times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSync(cmd, func(sync *maintain.Sync) error {
				report, err := sync.Times().Run(cmd.Context(), syncDryRun)
				if err != nil {
					return err
				}
				fmt.Printf("Agendas:     %d checked, %d updated\n", report.AgendasChecked, report.AgendasUpdated)
				fmt.Printf("Politicians: %d checked, %d updated\n", report.PoliticiansChecked, report.PoliticiansUpdated)
				return nil
			})
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "counts",
		Short: "Recompute per-politician profiling counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSync(cmd, func(sync *maintain.Sync) error {
				report, err := sync.Counts().Run(cmd.Context(), syncDryRun)
				if err != nil {
					return err
				}
				fmt.Printf("Politicians: %d checked, %d updated\n", report.Checked, report.Updated)
				return nil
			})
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Recompute coverage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSync(cmd, func(sync *maintain.Sync) error {
				report, err := sync.Stats().Run(cmd.Context(), syncDryRun)
				if err != nil {
					return err
				}
				fmt.Printf("Statistics computed: %d\n", report.Computed)
				return nil
			})
		},
	})

	syncCmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run times, counts and stats in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSync(cmd, func(sync *maintain.Sync) error {
				report, err := sync.RunAll(cmd.Context(), syncDryRun)
				if err != nil {
					return err
				}
				fmt.Printf("Agendas:     %d checked, %d updated\n", report.Times.AgendasChecked, report.Times.AgendasUpdated)
				fmt.Printf("Politicians: %d checked, %d updated\n", report.Times.PoliticiansChecked, report.Times.PoliticiansUpdated)
				fmt.Printf("Counters:    %d checked, %d updated\n", report.Counts.Checked, report.Counts.Updated)
				fmt.Printf("Statistics:  %d computed\n", report.Stats.Computed)
				return nil
			})
		},
	})
}

func withSync(cmd *cobra.Command, fn func(*maintain.Sync) error) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := fn(maintain.NewSync(store, logger)); err != nil {
		return err
	}
	if syncDryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}
