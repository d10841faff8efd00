package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smouldering-durtles/wk-search/internal/adapter"
	"github.com/smouldering-durtles/wk-search/internal/models"
	"github.com/smouldering-durtles/wk-search/internal/provider"
	"github.com/smouldering-durtles/wk-search/pkg/export"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCSV  = "csv"
)

func newSuggestCommand() *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "suggest QUERY",
		Short: "Print suggestions for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case formatText, formatJSON, formatCSV:
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			subjects := a.subjects.SearchSuggestions(cmd.Context(), args[0], limit)
			return writeSuggestions(cmd.OutOrStdout(), format, subjects)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of subjects (0 uses the configured default)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or csv")
	return cmd
}

func writeSuggestions(w io.Writer, format string, subjects []models.Subject) error {
	if format == formatText {
		for _, item := range adapter.Items(subjects) {
			if item.Kind == adapter.KindSubject {
				fmt.Fprintf(w, "  %s\n", item.Label())
				continue
			}
			fmt.Fprintln(w, item.Label())
		}
		return nil
	}

	table := cursorTable(provider.NewSubjectCursor(subjects))
	if format == formatCSV {
		return export.NewCSVExporter().Write(w, table)
	}

	rows := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make(map[string]string, len(table.Columns))
		for i, column := range table.Columns {
			record[column] = row[i]
		}
		rows = append(rows, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// cursorTable copies every row of the cursor as text cells.
func cursorTable(cursor *provider.SubjectCursor) export.Table {
	defer cursor.Close()
	table := export.Table{Columns: cursor.ColumnNames(), Rows: make([][]string, 0, cursor.Count())}
	cursor.MoveToPosition(-1)
	for cursor.MoveToNext() {
		row := make([]string, cursor.ColumnCount())
		for column := range row {
			row[column], _ = cursor.String(column)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
