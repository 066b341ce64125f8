// Command patent-pipeline runs the three-stage patent examination batch
// pipeline: download office-action PDFs, OCR-rename them by examiner,
// and extract the structured patent dataset. Every stage is resumable;
// per-item failures never abort the process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cxip/patent-pipeline/internal/common"
)

var (
	cfg        *common.Config
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "patent-pipeline",
		Short:         "resumable batch pipeline for patent examination documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			cfg = common.LoadConfig()
			if configPath != "" {
				if err := common.LoadConfigFile(cfg, configPath); err != nil {
					return err
				}
			}
			return cfg.Validate()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file overlaying env/default settings")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDownloadCmd(),
		newRenameCmd(),
		newExtractCmd(),
		newRunCmd(),
		newResetCmd(),
		newFailuresCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		// only setup failures reach here; item failures are contained
		// in the stage runner and reported via the failure ledgers
		fmt.Fprintf(os.Stderr, "patent-pipeline: %v\n", err)
		os.Exit(1)
	}
}
