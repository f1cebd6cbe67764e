package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/maintain"
)

var fixFlagsCmd = &cobra.Command{
	Use:   "fix-flags [entity]",
	Short: "Reconcile incomplete flags against stored speech text",
	Long: `Recomputes is_incomplete from ground truth: a speech is incomplete when
its text is empty or the stenogram placeholder, and every derived
entity follows its speeches. The optional entity argument restricts
the pass (speeches, sessions, agendas, summaries, profiles, all).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFixFlags,
}

var cleanHTMLCmd = &cobra.Command{
	Use:   "clean-html",
	Short: "Strip HTML tags from stored titles and speech texts",
	Args:  cobra.NoArgs,
	RunE:  runCleanHTML,
}

var loadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Bulk-load politicians, sessions, agendas and speeches from JSON files",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var maintainDryRun bool

func init() {
	rootCmd.AddCommand(fixFlagsCmd)
	rootCmd.AddCommand(cleanHTMLCmd)
	rootCmd.AddCommand(loadCmd)

	for _, c := range []*cobra.Command{fixFlagsCmd, cleanHTMLCmd, loadCmd} {
		c.Flags().BoolVar(&maintainDryRun, "dry-run", false,
			"report what would change without writing")
	}
}

func runFixFlags(cmd *cobra.Command, args []string) error {
	entity := maintain.FlagsAll
	if len(args) == 1 {
		entity = args[0]
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := maintain.NewFlagsSync(store, logger).Run(cmd.Context(), entity, maintainDryRun)
	if err != nil {
		return err
	}

	rows := []struct {
		name  string
		count maintain.FlagCount
	}{
		{"speeches", report.Speeches},
		{"agendas", report.Agendas},
		{"sessions", report.Sessions},
		{"summaries", report.Summaries},
		{"profiles", report.Profiles},
	}
	for _, row := range rows {
		if row.count.Checked == 0 {
			continue
		}
		fmt.Printf("%-10s checked=%d fixed=%d set_true=%d set_false=%d\n",
			row.name, row.count.Checked, row.count.Fixed, row.count.SetTrue, row.count.SetFalse)
	}
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}

func runCleanHTML(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	cleaner := maintain.NewHTMLCleaner(store.Sessions(), store.Speeches(), logger)
	report, err := cleaner.Run(cmd.Context(), maintainDryRun)
	if err != nil {
		return err
	}

	fmt.Printf("Sessions updated: %d\n", report.SessionsUpdated)
	fmt.Printf("Agendas updated:  %d\n", report.AgendasUpdated)
	fmt.Printf("Speeches updated: %d\n", report.SpeechesUpdated)
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := maintain.NewLoader(store, logger).LoadDir(cmd.Context(), args[0], maintainDryRun)
	if err != nil {
		return err
	}

	fmt.Printf("Politicians:  %d\n", report.Politicians)
	fmt.Printf("Sessions:     %d\n", report.Sessions)
	fmt.Printf("Agenda items: %d\n", report.AgendaItems)
	fmt.Printf("Speeches:     %d\n", report.Speeches)
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}
