package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/lumen/internal/core"
)

func lsCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List online nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			result, err := app.service.ListNodes(ctx, kind)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", core.HostKind, "filter by node kind (empty for all)")

	return cmd
}
