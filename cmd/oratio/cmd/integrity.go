package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/profiler"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity [politician-id|uuid]",
	Short: "Remove profile parts that fail integrity checks",
	Long: `Deletes stored profile parts that no longer belong to their
politician's speech-derived scopes, carry inconsistent scope fields,
name an unknown category, duplicate an ALL row, or were saved with an
unparsed analysis body. Without an argument every politician with
speeches is checked. This is the only operation that deletes profiles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIntegrity,
}

var integrityDryRun bool

func init() {
	rootCmd.AddCommand(integrityCmd)
	integrityCmd.Flags().BoolVar(&integrityDryRun, "dry-run", false,
		"report removals without deleting")
}

func runIntegrity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	var politicians []*models.Politician
	if len(args) == 1 {
		politician, err := resolvePolitician(ctx, store, args[0])
		if err != nil {
			return fmt.Errorf("resolving politician %q: %w", args[0], err)
		}
		politicians = []*models.Politician{politician}
	} else {
		politicians, err = store.Politicians().ListPoliticiansWithSpeeches(ctx)
		if err != nil {
			return fmt.Errorf("listing politicians: %w", err)
		}
	}

	// The integrity pass performs no generation, so no provider is
	// needed.
	orchestrator := profiler.NewOrchestrator(config.Profiler, nil, store.Profiles(), store.Speeches(), store.Sessions(), logger)

	checked, removed := 0, 0
	byReason := make(map[string]int)
	for _, politician := range politicians {
		report, err := orchestrator.RunIntegrityCheck(ctx, politician, integrityDryRun)
		if err != nil {
			return fmt.Errorf("checking politician %d: %w", politician.ID, err)
		}
		checked += report.Checked
		removed += report.Removed
		for reason, count := range report.ByReason {
			byReason[reason] += count
		}
	}

	fmt.Printf("Politicians:   %d\n", len(politicians))
	fmt.Printf("Parts checked: %d\n", checked)
	fmt.Printf("Parts removed: %d\n", removed)
	for reason, count := range byReason {
		fmt.Printf("  %-40s %d\n", reason, count)
	}
	if integrityDryRun {
		fmt.Println("Dry run: nothing was deleted.")
	}
	return nil
}
