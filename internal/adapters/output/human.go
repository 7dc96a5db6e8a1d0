package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/mikey-austin/lumen/internal/core"
	"github.com/mikey-austin/lumen/internal/layout"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct {
	Out io.Writer
}

// Print renders human output.
func (p HumanPrinter) Print(v any) error {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	switch data := v.(type) {
	case core.NodesResult:
		return printNodes(out, data)
	case core.StatusResult:
		return printStatus(out, data)
	case core.CommandResult:
		return printCommand(out, data)
	case core.LayoutResult:
		return printLayout(out, data)
	default:
		_, err := fmt.Fprintln(out, "ok")
		return err
	}
}

func printNodes(out io.Writer, result core.NodesResult) error {
	data := pterm.TableData{{"NAME", "KIND", "NODE_ID", "SEEN"}}
	for _, node := range result.Nodes {
		data = append(data, []string{node.Name, node.Kind, node.NodeID, formatTS(node.TS)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
}

func printStatus(out io.Writer, result core.StatusResult) error {
	state := result.State
	parts := []string{fmt.Sprintf("%s  [%s]", hostName(result), state.State)}
	if state.Mode != "" {
		parts = append(parts, state.Mode)
	}
	if state.LaunchMode != "" {
		parts = append(parts, state.LaunchMode)
	}
	if state.Windows > 0 {
		parts = append(parts, fmt.Sprintf("%d windows", state.Windows))
	}
	if _, err := fmt.Fprintln(out, strings.Join(parts, "  ")); err != nil {
		return err
	}
	if len(state.Monitors) > 0 {
		_, err := fmt.Fprintf(out, "monitors: %s\n", strings.Join(state.Monitors, ", "))
		return err
	}
	return nil
}

func printCommand(out io.Writer, result core.CommandResult) error {
	verdict := "ok"
	if !result.Result {
		verdict = "rejected"
	}
	_, err := fmt.Fprintf(out, "%s %s: %s\n", result.Host.Name, result.Command, verdict)
	return err
}

func printLayout(out io.Writer, result core.LayoutResult) error {
	if _, err := fmt.Fprintf(out, "mode %s, %d windows\n", result.Mode, len(result.Layout.Windows)); err != nil {
		return err
	}
	data := pterm.TableData{{"MONITOR", "KIND", "GEOMETRY", "SOURCE", "VIEWPORT", "TITLE"}}
	for _, win := range result.Layout.Windows {
		data = append(data, []string{
			win.Monitor,
			win.Kind.String(),
			fmt.Sprintf("%dx%d+%d+%d", win.Geometry.Width, win.Geometry.Height, win.Geometry.X, win.Geometry.Y),
			windowSource(win),
			viewport(win),
			win.Title,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return err
	}

	dropped := []string{}
	placed := map[string]bool{}
	for _, win := range result.Layout.Windows {
		placed[win.Monitor] = true
	}
	for name := range result.Topology {
		if !placed[name] {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		_, err := fmt.Fprintf(out, "no window on: %s\n", strings.Join(dropped, ", "))
		return err
	}
	return nil
}

func windowSource(win layout.Window) string {
	if win.Kind == layout.Clone {
		return "mirror of " + win.CloneSource
	}
	return fmt.Sprintf("%s %s", win.WallpaperType, win.Source)
}

func viewport(win layout.Window) string {
	if win.Viewport == nil {
		return "-"
	}
	v := win.Viewport
	return fmt.Sprintf("%d,%d of %dx%d", v.OffsetX, v.OffsetY, v.CanvasWidth, v.CanvasHeight)
}

func hostName(result core.StatusResult) string {
	if result.Host.Name != "" {
		return result.Host.Name
	}
	return result.Host.NodeID
}

func formatTS(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format(time.RFC3339)
}
