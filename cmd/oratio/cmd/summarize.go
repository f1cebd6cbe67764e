package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/agendas"
	"github.com/ternarybob/oratio/internal/services/speeches"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate Estonian summaries",
}

var summarizeAgendasCmd = &cobra.Command{
	Use:   "agendas",
	Short: "Generate structured agenda reports (summary, decisions, activity)",
	Args:  cobra.NoArgs,
	RunE:  runSummarizeAgendas,
}

var summarizeSpeechesCmd = &cobra.Command{
	Use:   "speeches",
	Short: "Generate one-sentence speech summaries",
	Args:  cobra.NoArgs,
	RunE:  runSummarizeSpeeches,
}

var (
	summarizeAgendaID   int64
	summarizeLimit      int
	summarizeSpeechID   int64
	summarizeSessionID  int64
	summarizePolitician int64
	summarizeOverwrite  bool
	summarizeDryRun     bool
	summarizeBatch      bool
)

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.AddCommand(summarizeAgendasCmd)
	summarizeCmd.AddCommand(summarizeSpeechesCmd)

	for _, c := range []*cobra.Command{summarizeAgendasCmd, summarizeSpeechesCmd} {
		c.Flags().Int64Var(&summarizeAgendaID, "agenda", 0, "restrict to one agenda item")
		c.Flags().BoolVar(&summarizeOverwrite, "overwrite", false, "regenerate existing summaries")
		c.Flags().BoolVar(&summarizeDryRun, "dry-run", false, "report eligible items without generating")
		c.Flags().BoolVar(&summarizeBatch, "batch", false, "route generation through the batch API")
	}
	summarizeAgendasCmd.Flags().IntVar(&summarizeLimit, "limit", 0, "cap the number of agenda items, newest first")
	summarizeSpeechesCmd.Flags().Int64Var(&summarizeSpeechID, "speech", 0, "restrict to one speech")
	summarizeSpeechesCmd.Flags().Int64Var(&summarizeSessionID, "session", 0, "restrict to one plenary session")
	summarizeSpeechesCmd.Flags().Int64Var(&summarizePolitician, "politician", 0, "restrict to one politician")
}

func runSummarizeAgendas(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	summarizer := agendas.NewSummarizer(config.Summaries, provider, store.Politicians(), store.Sessions(), store.Speeches(), store.Summaries(), logger)
	opts := agendas.Options{
		AgendaID:  summarizeAgendaID,
		Limit:     summarizeLimit,
		Overwrite: summarizeOverwrite,
		DryRun:    summarizeDryRun,
	}

	runner, err := newBatchRunner(ctx, store, summarizeBatch)
	if err != nil {
		return err
	}

	var report *agendas.Report
	if runner != nil && !summarizeDryRun {
		report, err = summarizer.RunBatch(ctx, runner, opts)
	} else {
		report, err = summarizer.Run(ctx, opts)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Eligible:  %d\n", report.Eligible)
	fmt.Printf("Generated: %d\n", report.Generated)
	fmt.Printf("Failed:    %d\n", report.Failed)
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}

func runSummarizeSpeeches(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	summarizer := speeches.NewSummarizer(config.Summaries, provider, store.Speeches(), logger)
	opts := speeches.Options{
		SpeechID:     summarizeSpeechID,
		AgendaID:     summarizeAgendaID,
		SessionID:    summarizeSessionID,
		PoliticianID: summarizePolitician,
		Overwrite:    summarizeOverwrite,
		DryRun:       summarizeDryRun,
	}

	runner, err := newBatchRunner(ctx, store, summarizeBatch)
	if err != nil {
		return err
	}

	var report *speeches.Report
	if runner != nil && !summarizeDryRun {
		report, err = summarizer.RunBatch(ctx, runner, opts)
	} else {
		report, err = summarizer.Run(ctx, opts)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Eligible:  %d\n", report.Eligible)
	fmt.Printf("Generated: %d\n", report.Generated)
	fmt.Printf("Failed:    %d\n", report.Failed)
	if report.DryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}
