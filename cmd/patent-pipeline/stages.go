package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/export"
	"github.com/cxip/patent-pipeline/internal/incopat"
	"github.com/cxip/patent-pipeline/internal/ingest"
	"github.com/cxip/patent-pipeline/internal/ledger"
	"github.com/cxip/patent-pipeline/internal/ocr"
	"github.com/cxip/patent-pipeline/internal/pipeline"
	"github.com/cxip/patent-pipeline/internal/record"
	"github.com/cxip/patent-pipeline/internal/runner"
)

// env is everything a stage run needs wired up.
type env struct {
	log    *slog.Logger
	store  *ledger.Store
	keys   []string
	runner *runner.Runner
	opts   runner.Options
}

// setup performs the fallible initialization whose failure is the only
// legitimate reason for a non-zero exit.
func setup(ctx context.Context) (*env, func(), error) {
	log := slog.Default()

	keys, err := ingest.ReadPatentList(cfg.Paths.InputCSV, log)
	if err != nil {
		return nil, nil, err
	}

	store, err := ledger.Open(cfg.Ledger.Path, log)
	if err != nil {
		return nil, nil, err
	}

	e := &env{
		log:    log,
		store:  store,
		keys:   keys,
		runner: runner.New(store, log),
		opts: runner.Options{
			MaxAttempts: cfg.Runner.MaxAttempts,
			ItemDelay:   cfg.Runner.ItemDelay,
			MaxDelay:    cfg.Runner.MaxDelay,
		},
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Error("ledger.close_failed", "err", err)
		}
	}
	return e, cleanup, nil
}

// runStage executes one stage and writes its failure ledgers. Context
// cancellation is an operator stop, not an error exit.
func (e *env) runStage(ctx context.Context, stage constants.StageID, handler runner.Handler) error {
	summary, err := e.runner.Run(ctx, e.keys, stage, handler, e.opts)
	cancelled := errors.Is(err, context.Canceled)
	if err != nil && !cancelled {
		return err
	}
	if lerr := e.store.WriteFailureLedgers(context.WithoutCancel(ctx), stage, cfg.Output.FailureDir); lerr != nil {
		return lerr
	}
	fmt.Printf("%s: %d succeeded, %d skipped, %d retryable, %d permanent (run %s)\n",
		stage, summary.Succeeded, summary.Skipped, summary.Retryable, summary.Permanent, summary.RunID)
	if cancelled {
		fmt.Println("stopped by operator; re-run to resume")
	}
	return nil
}

func (e *env) downloadHandler() runner.Handler {
	client := incopat.New(incopat.Config{
		BaseURL:  cfg.Incopat.BaseURL,
		Username: cfg.Incopat.Username,
		Password: cfg.Incopat.Password,
		Timeout:  cfg.Incopat.Timeout,
	}, e.log)
	h := pipeline.NewDownloadHandler(client, cfg.Paths.PDFDir, cfg.Incopat.MinPDFKB, e.log)
	return h.Handle
}

func (e *env) renameHandler() runner.Handler {
	rec := ocr.NewCommandRecognizer(ocr.Config{
		Command:  cfg.OCR.Command,
		MinChars: cfg.OCR.MinChars,
		Timeout:  cfg.OCR.Timeout,
	}, e.log)
	h := pipeline.NewRenameHandler(rec, cfg.Paths.PDFDir, e.log)
	return h.Handle
}

func (e *env) extractHandler() (runner.Handler, *record.ResultSet, error) {
	results, err := record.LoadResultSet(cfg.Output.JSONPath, cfg.Output.CSVPath, cfg.Output.FlushEvery, e.log)
	if err != nil {
		return nil, nil, err
	}
	client := incopat.New(incopat.Config{
		BaseURL:  cfg.Incopat.BaseURL,
		Username: cfg.Incopat.Username,
		Password: cfg.Incopat.Password,
		Timeout:  cfg.Incopat.Timeout,
	}, e.log)
	h := pipeline.NewExtractHandler(client, results, e.log)
	return h.Handle, results, nil
}

// finishExtract flushes the dataset unconditionally and mirrors it to
// the XLSX workbook.
func (e *env) finishExtract(results *record.ResultSet) error {
	if err := results.Flush(); err != nil {
		return err
	}
	if cfg.Output.XLSXPath == "" {
		return nil
	}
	return export.WriteXLSX(cfg.Output.XLSXPath, results.Records(), e.log)
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "fetch first-office-action PDFs for every listed patent",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return e.runStage(cmd.Context(), constants.StageDownload, e.downloadHandler())
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename",
		Short: "OCR downloaded PDFs and rename them by examiner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return e.runStage(cmd.Context(), constants.StageRename, e.renameHandler())
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "extract the structured patent dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			handler, results, err := e.extractHandler()
			if err != nil {
				return err
			}
			if err := e.runStage(cmd.Context(), constants.StageExtract, handler); err != nil {
				return err
			}
			return e.finishExtract(results)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run all three stages in pipeline order",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := e.runStage(cmd.Context(), constants.StageDownload, e.downloadHandler()); err != nil {
				return err
			}
			if cmd.Context().Err() != nil {
				return nil
			}
			if err := e.runStage(cmd.Context(), constants.StageRename, e.renameHandler()); err != nil {
				return err
			}
			if cmd.Context().Err() != nil {
				return nil
			}
			handler, results, err := e.extractHandler()
			if err != nil {
				return err
			}
			if err := e.runStage(cmd.Context(), constants.StageExtract, handler); err != nil {
				return err
			}
			return e.finishExtract(results)
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <stage> <patent_no>",
		Short: "return a failed item to pending for another attempt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, ok := constants.ParseStage(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[0])
			}
			log := slog.Default()
			store, err := ledger.Open(cfg.Ledger.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Reset(cmd.Context(), args[1], stage)
		},
	}
}

func newFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failures <stage>",
		Short: "print the failure ledgers for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, ok := constants.ParseStage(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[0])
			}
			log := slog.Default()
			store, err := ledger.Open(cfg.Ledger.Path, log)
			if err != nil {
				return err
			}
			defer store.Close()

			failed, notFound, err := store.FailureLists(cmd.Context(), stage)
			if err != nil {
				return err
			}
			if len(failed) == 0 && len(notFound) == 0 {
				fmt.Println("no failures recorded")
				return nil
			}
			for _, item := range failed {
				fmt.Fprintf(os.Stdout, "failed\t%s\t%s\n", item.PatentNo, item.LastError)
			}
			for _, item := range notFound {
				fmt.Fprintf(os.Stdout, "notfound\t%s\n", item.PatentNo)
			}
			return nil
		},
	}
}
