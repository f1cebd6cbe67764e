package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/maintain"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Bulk-delete stored data",
}

var (
	clearConfirm bool
	clearDryRun  bool
)

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.PersistentFlags().BoolVar(&clearConfirm, "confirm", false,
		"actually perform the delete")
	clearCmd.PersistentFlags().BoolVar(&clearDryRun, "dry-run", false,
		"count what would be deleted")

	clearCmd.AddCommand(&cobra.Command{
		Use:   "speeches",
		Short: "Delete every stored speech",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, func(clearer *maintain.Clearer) (*maintain.ClearReport, error) {
				return clearer.ClearSpeeches(cmd.Context(), clearConfirm, clearDryRun)
			})
		},
	})

	clearCmd.AddCommand(&cobra.Command{
		Use:   "summaries",
		Short: "Delete every generated summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, func(clearer *maintain.Clearer) (*maintain.ClearReport, error) {
				return clearer.ClearSummaries(cmd.Context(), clearConfirm, clearDryRun)
			})
		},
	})
}

func runClear(cmd *cobra.Command, fn func(*maintain.Clearer) (*maintain.ClearReport, error)) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	clearer := maintain.NewClearer(store.Speeches(), store.Summaries(), logger)
	report, err := fn(clearer)
	if err != nil {
		return err
	}

	fmt.Printf("Found:   %d\n", report.Found)
	fmt.Printf("Deleted: %d\n", report.Deleted)
	if report.DryRun {
		fmt.Println("Dry run: nothing was deleted.")
	}
	return nil
}
