package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newGalleryCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "Show the five day slots of the progress view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()

			gallery := service.Gallery(ctx)
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"", "Label", "Badge", "Photo"})
			for i, day := range gallery.Days {
				marker := ""
				if i == gallery.Selected {
					marker = "*"
				}
				t.AppendRow(table.Row{marker, day.Label, day.Badge, day.Name})
			}
			t.Render()
			return nil
		},
	}
}
