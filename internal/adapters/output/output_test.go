package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pterm/pterm"

	"github.com/mikey-austin/lumen/internal/core"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

func TestHumanStatus(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	err := p.Print(core.StatusResult{
		Host:  lumen.Presence{NodeID: "lumen:host:desk", Name: "Desk"},
		State: lumen.HostState{State: "Playing", Mode: "wallpaper_per_monitor", Windows: 2, Monitors: []string{"DP-1", "DP-2"}},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Desk  [Playing]") || !strings.Contains(out, "2 windows") || !strings.Contains(out, "DP-1, DP-2") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHumanLayout(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	topo, _ := core.ParseMonitors([]string{"DP-1=1920x1080+0+0", "DP-2=1920x1080+1920+0", "HDMI-1=1280x1024+3840+0"})
	result, err := core.PreviewLayout(`{"mode":"stretch_single_wallpaper","monitors":[{"monitor":"DP-1","wallpaper_type":"video","filepath":"/v/a.mp4"}]}`, topo)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	var buf bytes.Buffer
	if err := (HumanPrinter{Out: &buf}).Print(result); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "mirror of DP-1") || !strings.Contains(out, "of 5120x1080") {
		t.Fatalf("unexpected layout output %q", out)
	}
}

func TestJSONCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, true).Print(core.CommandResult{Command: lumen.CmdPause, Result: false}); err != nil {
		t.Fatalf("print: %v", err)
	}
	var decoded core.CommandResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Command != lumen.CmdPause || decoded.Result {
		t.Fatalf("unexpected %+v", decoded)
	}
}
