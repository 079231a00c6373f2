package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaenox/lisa-bot/internal/corpus"
)

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Store every file under dir as a folder_structure example",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := corpus.New(e.store, e.logger).Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d files from %s\n", n, args[0])
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Recreate folder_structure examples as files under dir (default downloads.dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			dir := e.cfg.Downloads.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			n, err := corpus.New(e.store, e.logger).Export(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d files to %s\n", n, dir)
			return nil
		},
	}
}

func newCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <dir>",
		Short: "Count files, folders and top-level entries under dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := corpus.Count(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), counts)
			return nil
		},
	}
}
