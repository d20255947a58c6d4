package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docsplit/internal/recovery"
)

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "recover <dataset-dir>",
		Short: "Rebuild an export archive from a legacy workspace",
		Long: "Rebuild an export archive from a legacy workspace layout, where document\n" +
			"images live under input/ and annotation state under output/. The result is\n" +
			"a backup.zip in the standard export shape, suitable for re-import.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			datasetDir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve dataset directory: %w", err)
			}

			result, err := recovery.Export(logger, datasetDir, strings.TrimSpace(outputFlag))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recovered %d documents to %s\n", result.Documents, result.OutputPath)
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d invalid documents: %s\n",
					len(result.Skipped), strings.Join(result.Skipped, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Destination archive path (default: <dataset-dir>/backup.zip)")
	return cmd
}
