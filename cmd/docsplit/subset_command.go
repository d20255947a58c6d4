package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docsplit/internal/subset"
)

func newSubsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subset <archive>",
		Short: "Rewrite an archive so metadata records carry their subset label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			archivePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}

			result, err := subset.Process(logger, archivePath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Patched %d metadata records; wrote %s\n",
				result.Patched, result.OutputPath)
			return nil
		},
	}
}
