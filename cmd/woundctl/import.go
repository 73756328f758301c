package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add an image file to the gallery as a new photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()

			record, err := service.AddImage(ctx, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s\n", args[0], record.Name())
			return nil
		},
	}
}
