package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/lumen/internal/core"
)

func statusCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show host status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			if watch {
				return watchStatus(app)
			}
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			result, err := app.service.Status(ctx, app.host)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "watch status updates")

	return cmd
}

func watchStatus(app *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host, states, errs, err := app.service.WatchStatus(ctx, app.host)
	if err != nil {
		return err
	}

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return nil
			}
			if err := app.printer.Print(core.StatusResult{Host: host, State: state}); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return core.WrapError(core.ExitRuntime, "watch", err)
			}
		}
	}
}
