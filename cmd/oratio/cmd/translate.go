package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/services/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Produce English and Russian translations",
	Long: `Translates stored Estonian texts into English and Russian in one
provider call per item. Items already carrying both translations are
skipped unless --overwrite is given.`,
}

var (
	translateOverwrite bool
	translateDryRun    bool
	translateBatch     bool
)

func init() {
	rootCmd.AddCommand(translateCmd)

	passes := []struct {
		use   string
		short string
		run   func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error)
	}{
		{"profiles", "Translate politician profile analyses", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			report, err := svc.Profiles(ctx, opts)
			return single(report), err
		}},
		{"agenda-titles", "Translate agenda item titles", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			report, err := svc.AgendaTitles(ctx, opts)
			return single(report), err
		}},
		{"agenda-summaries", "Translate agenda summaries, decisions and activity notes", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			report, err := svc.AgendaSummaries(ctx, opts)
			return single(report), err
		}},
		{"session-titles", "Translate plenary session titles", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			report, err := svc.SessionTitles(ctx, opts)
			return single(report), err
		}},
		{"speech-summaries", "Translate speech summaries", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			report, err := svc.SpeechSummaries(ctx, opts)
			return single(report), err
		}},
		{"all", "Run every translation pass", func(ctx context.Context, svc *translate.Service, opts translate.Options) ([]*translate.PassReport, error) {
			return svc.All(ctx, opts)
		}},
	}

	for _, pass := range passes {
		run := pass.run
		sub := &cobra.Command{
			Use:   pass.use,
			Short: pass.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTranslate(cmd.Context(), run)
			},
		}
		translateCmd.AddCommand(sub)
	}

	translateCmd.PersistentFlags().BoolVar(&translateOverwrite, "overwrite", false,
		"retranslate items that already have translations")
	translateCmd.PersistentFlags().BoolVar(&translateDryRun, "dry-run", false,
		"report eligible items without translating")
	translateCmd.PersistentFlags().BoolVar(&translateBatch, "batch", false,
		"route translation through the batch API")
}

func single(report *translate.PassReport) []*translate.PassReport {
	if report == nil {
		return nil
	}
	return []*translate.PassReport{report}
}

func runTranslate(ctx context.Context, run func(context.Context, *translate.Service, translate.Options) ([]*translate.PassReport, error)) error {
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

	svc := translate.NewService(config.Translate, provider, store, config.Profiler.Workers, logger)
	if runner, err := newBatchRunner(ctx, store, translateBatch); err != nil {
		return err
	} else if runner != nil {
		svc.UseBatch(runner)
	}

	reports, err := run(ctx, svc, translate.Options{Overwrite: translateOverwrite, DryRun: translateDryRun})
	for _, report := range reports {
		fmt.Printf("%-18s items=%d translated=%d failed=%d\n",
			report.Label, report.Items, report.Translated, report.Failed)
	}
	if err != nil {
		return err
	}
	if translateDryRun {
		fmt.Println("Dry run: nothing was written.")
	}
	return nil
}
