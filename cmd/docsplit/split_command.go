package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docsplit/internal/history"
	"docsplit/internal/logging"
	"docsplit/internal/splitter"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		sizeLimitFlag string
		docLimitFlag  int
		outputDirFlag string
		workersFlag   int
		lenientFlag   bool
		jsonFlag      bool
	)

	cmd := &cobra.Command{
		Use:   "split <archive>",
		Short: "Split an export archive into size- and count-bounded pieces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			archivePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}

			opts := splitter.Options{
				ByteCeiling:     cfg.Limits.SizeLimitBytes,
				DocumentCeiling: cfg.Limits.DocumentLimit,
				OutputDir:       cfg.Paths.OutputDir,
				Workers:         cfg.Split.Workers,
				Strict:          cfg.Split.Strict,
			}
			if strings.TrimSpace(sizeLimitFlag) != "" {
				if opts.ByteCeiling, err = parseSizeLimit(sizeLimitFlag); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("doc-limit") {
				opts.DocumentCeiling = docLimitFlag
			}
			if strings.TrimSpace(outputDirFlag) != "" {
				opts.OutputDir = outputDirFlag
			}
			if opts.OutputDir == "" {
				opts.OutputDir = filepath.Dir(archivePath)
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workersFlag
			}
			if lenientFlag {
				opts.Strict = false
			}

			runID := uuid.NewString()
			logger = logger.With(logging.String(logging.FieldRunID, runID))
			started := time.Now().UTC()

			result, runErr := splitter.Split(cmd.Context(), logger, archivePath, opts)
			recordRun(cmd.Context(), ctx, logger, &history.Run{
				ID:            runID,
				ArchivePath:   archivePath,
				SizeLimit:     opts.ByteCeiling,
				DocumentLimit: opts.DocumentCeiling,
				StartedAt:     started,
				FinishedAt:    time.Now().UTC(),
			}, result, runErr)
			if runErr != nil {
				return runErr
			}

			if jsonFlag {
				return writeJSON(cmd, result)
			}
			return renderSplitResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&sizeLimitFlag, "size-limit", "", "Per-archive size ceiling, e.g. 500MB or 1GB")
	cmd.Flags().IntVar(&docLimitFlag, "doc-limit", 0, "Per-archive document ceiling")
	cmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Directory for the output archives")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent archive writers")
	cmd.Flags().BoolVar(&lenientFlag, "lenient", false, "Skip documents with missing primary files instead of failing")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the run summary as JSON")
	return cmd
}

// recordRun persists the outcome in the run history. History failures are
// logged, not fatal: the archives on disk are the primary result.
func recordRun(cmdCtx context.Context, ctx *commandContext, logger *slog.Logger, run *history.Run, result *splitter.Result, runErr error) {
	cfg, err := ctx.ensureConfig()
	if err != nil || !cfg.History.Enabled {
		return
	}

	if runErr != nil {
		run.Status = history.StatusFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = history.StatusCompleted
	}
	if result != nil {
		run.Overhead = result.Overhead
		run.Documents = result.Documents
		run.Archives = len(result.Outputs)
		run.Outputs = make([]history.Output, len(result.Outputs))
		for i, out := range result.Outputs {
			run.Outputs[i] = history.Output{
				Ordinal:   out.Ordinal,
				Path:      out.Path,
				Documents: out.Documents,
				Bytes:     out.Bytes,
			}
		}
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
		return
	}
	defer store.Close()

	if err := store.Record(cmdCtx, run); err != nil {
		logger.Warn("failed to record run", logging.Error(err))
	}
}

func renderSplitResult(cmd *cobra.Command, result *splitter.Result) error {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	rows := make([][]string, 0, len(result.Outputs))
	for _, output := range result.Outputs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", output.Ordinal),
			filepath.Base(output.Path),
			fmt.Sprintf("%d", output.Documents),
			formatBytes(output.Bytes),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Archive", "Documents", "Bytes"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	))

	summary := fmt.Sprintf("Split %d documents into %d archives (shared overhead %s bytes)",
		result.Documents, len(result.Outputs), formatBytes(result.Overhead))
	fmt.Fprintln(out, colorize(summary, ansiGreen, color))
	if len(result.Skipped) > 0 {
		warning := fmt.Sprintf("Skipped %d documents without primary files: %s",
			len(result.Skipped), strings.Join(result.Skipped, ", "))
		fmt.Fprintln(out, colorize(warning, ansiYellow, color))
	}
	return nil
}
