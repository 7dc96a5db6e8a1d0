package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/lumen/internal/core"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

func applyCommand() *cobra.Command {
	var launchMode string

	cmd := &cobra.Command{
		Use:   "apply <config.json|->",
		Short: "Apply a wallpaper config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			data, err := readFileOrStdin(cmd.InOrStdin(), args[0])
			if err != nil {
				return core.WrapError(core.ExitUsage, "read config", err)
			}
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			return printResult(app, func() (core.CommandResult, error) {
				return app.service.Apply(ctx, app.host, string(data), launchMode)
			})
		},
	}
	names := []string{}
	for _, mode := range lumen.LaunchModes() {
		names = append(names, string(mode))
	}
	cmd.Flags().StringVar(&launchMode, "launch-mode", "", "launch mode ("+strings.Join(names, "|")+")")
	return cmd
}

func disableCommand() *cobra.Command {
	return simpleCommand("disable", "Remove all wallpaper windows", core.Service.Disable)
}

func pauseCommand() *cobra.Command {
	return simpleCommand("pause", "Pause playback", core.Service.Pause)
}

func resumeCommand() *cobra.Command {
	return simpleCommand("resume", "Resume playback", core.Service.Resume)
}

func quitCommand() *cobra.Command {
	return simpleCommand("quit", "Shut the host down", core.Service.Quit)
}

type hostCall func(s core.Service, ctx context.Context, selector string) (core.CommandResult, error)

func simpleCommand(use string, short string, call hostCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			return printResult(app, func() (core.CommandResult, error) {
				return call(app.service, ctx, app.host)
			})
		},
	}
}

// printResult prints the outcome, then fails with ExitRejected when the
// host turned the transition down.
func printResult(app *app, call func() (core.CommandResult, error)) error {
	result, err := call()
	if err != nil {
		return err
	}
	if err := app.printer.Print(result); err != nil {
		return err
	}
	return result.Err()
}
