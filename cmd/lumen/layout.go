package main

import (
	"github.com/spf13/cobra"

	"github.com/mikey-austin/lumen/internal/core"
)

// layoutCommand compiles a config against a described topology without
// contacting any host.
func layoutCommand() *cobra.Command {
	var monitors []string

	cmd := &cobra.Command{
		Use:         "layout <config.json|->",
		Short:       "Preview the windows a config would open",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			data, err := readFileOrStdin(cmd.InOrStdin(), args[0])
			if err != nil {
				return core.WrapError(core.ExitUsage, "read config", err)
			}
			topo, err := core.ParseMonitors(monitors)
			if err != nil {
				return err
			}
			result, err := core.PreviewLayout(string(data), topo)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringArrayVarP(&monitors, "monitor", "m", nil, "monitor as NAME=WxH+X+Y (repeatable)")

	return cmd
}
