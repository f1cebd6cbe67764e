package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/services/batch"
	"github.com/ternarybob/oratio/internal/services/llm"
	"github.com/ternarybob/oratio/internal/storage"
)

var (
	configFiles  []string
	providerFlag string
	logLevelFlag string

	// Global state assembled by initApp.
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "oratio",
	Short: "LLM analysis pipeline for parliamentary speech records",
	Long: `Oratio generates Estonian summaries, English/Russian translations and
per-politician analytical profiles from stored parliamentary speech
records, either command by command or as a scheduled routine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// version and help need no configuration or storage.
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initApp()
	},
}

func Execute() error {
	ctx, cancel := signalContext()
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil,
		"configuration file (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "",
		"LLM provider override (claude, gemini, openai, ollama)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"log level override (debug, info, warn, error)")
}

// initApp runs the startup sequence: load config, apply flag overrides,
// initialize the logger, print the banner.
func initApp() error {
	paths := configFiles
	if len(paths) == 0 {
		if _, err := os.Stat("oratio.toml"); err == nil {
			paths = []string{"oratio.toml"}
		} else if _, err := os.Stat("deployments/local/oratio.toml"); err == nil {
			paths = []string{"deployments/local/oratio.toml"}
		}
	}

	var err error
	config, err = common.LoadFromFiles(paths...)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, providerFlag, logLevelFlag)

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())
	return nil
}

// openStorage opens the configured stores. The caller owns Close.
func openStorage() (interfaces.StorageManager, error) {
	return storage.NewStorageManager(logger, config)
}

// newProvider builds the configured generation provider, resolving its
// API key through env, KV store and config fallback.
func newProvider(ctx context.Context, store interfaces.StorageManager) (interfaces.GenerationProvider, error) {
	return llm.NewProvider(ctx, config, store.KeyValue(), logger)
}

// newBatchRunner builds the batch pipeline when the batch API is
// enabled; it returns nil otherwise.
func newBatchRunner(ctx context.Context, store interfaces.StorageManager, force bool) (*batch.Runner, error) {
	if !config.Batch.Enabled && !force {
		return nil, nil
	}
	client, err := batch.NewGeminiClient(ctx, config, store.KeyValue(), logger)
	if err != nil {
		return nil, fmt.Errorf("building batch client: %w", err)
	}
	return batch.NewRunner(client, config.Batch, store.KeyValue(), logger), nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
