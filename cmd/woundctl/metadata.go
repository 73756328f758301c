package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/woundtrack/internal/core"
)

// metadataAccess binds one metadata kind to the service.
type metadataAccess struct {
	kind string
	set  func(*core.CoreService, context.Context, string, string) error
	get  func(*core.CoreService, context.Context, string) (string, bool, error)
}

func newNoteCmd(open openFunc) *cobra.Command {
	return newMetadataCmd(open, "note", "Read or write the free-text note of a photo", metadataAccess{
		kind: "note",
		set:  (*core.CoreService).SetNote,
		get:  (*core.CoreService).Note,
	})
}

func newClassifyCmd(open openFunc) *cobra.Command {
	return newMetadataCmd(open, "classify", "Read or write the wound classification of a photo", metadataAccess{
		kind: "classification",
		set:  (*core.CoreService).SetClassification,
		get:  (*core.CoreService).Classification,
	})
}

func newMetadataCmd(open openFunc, use, short string, access metadataAccess) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> <text...>",
		Short: "Store the " + access.kind,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()
			return access.set(service, ctx, args[0], strings.Join(args[1:], " "))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print the " + access.kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()
			value, found, err := access.get(service, ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no %s for %s", access.kind, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})
	return cmd
}
