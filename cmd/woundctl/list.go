package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jo-hoe/woundtrack/internal/core"
)

type listOutputEntry struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	URI            string `json:"uri"`
	Captured       string `json:"captured"`
	Note           string `json:"note,omitempty"`
	Classification string `json:"classification,omitempty"`
}

func newListCmd(open openFunc) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved photos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()

			entries := listEntries(ctx, service)
			if format == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Name", "Captured", "Classification", "Note"})
			for i, entry := range entries {
				t.AppendRow(table.Row{i + 1, entry.Name, entry.Captured, entry.Classification, entry.Note})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d", len(entries), core.MaxRecords)})
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func listEntries(ctx context.Context, service *core.CoreService) []listOutputEntry {
	location, err := service.Config().Location()
	if err != nil {
		location = time.Local
	}
	entries := make([]listOutputEntry, 0, core.MaxRecords)
	for _, record := range service.Photos(ctx) {
		note, _, _ := service.Note(ctx, record.Path)
		label, _, _ := service.Classification(ctx, record.Path)
		entries = append(entries, listOutputEntry{
			Name:           record.Name(),
			Path:           record.Path,
			URI:            record.URI,
			Captured:       record.Time(location).Format("2006-01-02 15:04:05"),
			Note:           note,
			Classification: label,
		})
	}
	return entries
}
