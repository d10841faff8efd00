package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smouldering-durtles/wk-search/internal/models"
)

func newImportCommand() *cobra.Command {
	var (
		full   bool
		cursor string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load subjects from a JSON array into the store",
		Long:  "Reads a JSON array of subjects and applies it as one sync batch.\nWith --full the store is replaced by the file contents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var subjects []models.Subject
			if err := json.Unmarshal(raw, &subjects); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			if full {
				if err := a.sync.FullResync(cmd.Context(), subjects, cursor); err != nil {
					return err
				}
				fmt.Fprintf(out, "replaced store with %d subjects\n", len(subjects))
				return nil
			}
			result, err := a.sync.ApplyBatch(cmd.Context(), models.SubjectBatch{Cursor: cursor, Subjects: subjects})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "applied %d subjects, skipped %d\n", result.Applied, len(result.Skipped))
			for _, id := range result.Skipped {
				fmt.Fprintf(out, "  skipped %d\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "replace every stored subject")
	cmd.Flags().StringVar(&cursor, "cursor", "", "sync cursor to record after the import")
	return cmd
}
