package layout

import (
	"reflect"
	"testing"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

func primaryEntry(monitor string, typ lumen.WallpaperType, src lumen.Source) lumen.MonitorConfig {
	return lumen.MonitorConfig{Monitor: monitor, Primary: true, WallpaperType: typ, Source: src}
}

func cloneEntry(monitor string) lumen.MonitorConfig {
	return lumen.MonitorConfig{Monitor: monitor}
}

func video(path string) lumen.Source {
	return lumen.Source{Kind: lumen.SourceFilepath, Value: path}
}

func threeMonitors() lumen.Topology {
	return lumen.Topology{
		"eDP-1": {X: 0, Y: 1600, Width: 1920, Height: 1080},
		"DP-1":  {X: 1920, Y: 600, Width: 2560, Height: 1440},
		"DP-2":  {X: 4480, Y: 0, Width: 1440, Height: 2560},
	}
}

func TestPerMonitor(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode: lumen.ModePerMonitor,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("A", lumen.WallpaperVideo, video("/a.mp4")),
			primaryEntry("B", lumen.WallpaperWeb, lumen.Source{Kind: lumen.SourceURI, Value: "https://example.com"}),
		},
	}
	topo := lumen.Topology{
		"A": {X: 0, Y: 0, Width: 1920, Height: 1080},
		"B": {X: 1920, Y: 0, Width: 2560, Height: 1440},
	}

	out := Compile(cfg, topo)
	if len(out.Primaries()) != 2 || len(out.Clones()) != 0 {
		t.Fatalf("expected 2 primaries and no clones, got %+v", out.Windows)
	}
	for _, w := range out.Windows {
		if w.Geometry != topo[w.Monitor] {
			t.Fatalf("geometry mismatch for %s", w.Monitor)
		}
		if w.Viewport != nil {
			t.Fatalf("per-monitor windows must not carry a viewport")
		}
	}
	if out.Windows[0].Title != "Live Wallpaper - A" {
		t.Fatalf("unexpected title %q", out.Windows[0].Title)
	}
	if out.Windows[1].WallpaperType != lumen.WallpaperWeb {
		t.Fatalf("expected web window second")
	}
}

func TestPerMonitorDropsUnknownMonitors(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode: lumen.ModePerMonitor,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("A", lumen.WallpaperVideo, video("/a.mp4")),
			primaryEntry("HDMI-9", lumen.WallpaperVideo, video("/b.mp4")),
			cloneEntry("A"),
		},
	}
	out := Compile(cfg, lumen.Topology{"A": {Width: 100, Height: 100}})
	if len(out.Windows) != 1 || out.Windows[0].Monitor != "A" {
		t.Fatalf("unexpected windows %+v", out.Windows)
	}
}

func TestCloneSingle(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode: lumen.ModeCloneSingle,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("DP-1", lumen.WallpaperVideo, video("/a.mp4")),
			cloneEntry("DP-2"),
			cloneEntry("HDMI-9"),
		},
	}
	out := Compile(cfg, threeMonitors())
	if len(out.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(out.Windows))
	}
	clone := out.Windows[1]
	if clone.Kind != Clone || clone.CloneSource != "DP-1" || clone.Monitor != "DP-2" {
		t.Fatalf("unexpected clone %+v", clone)
	}
	if clone.Geometry != threeMonitors()["DP-2"] {
		t.Fatalf("clone must keep its own geometry")
	}
	if clone.Title != "Live Wallpaper - DP-2 (Clone of DP-1)" {
		t.Fatalf("unexpected title %q", clone.Title)
	}
}

func TestRepeatedMonitorKeepsFirstEntry(t *testing.T) {
	clone := lumen.WallpaperConfig{
		Mode: lumen.ModeCloneSingle,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("DP-1", lumen.WallpaperVideo, video("/a.mp4")),
			cloneEntry("DP-1"),
			cloneEntry("DP-2"),
			cloneEntry("DP-2"),
		},
	}
	out := Compile(clone, threeMonitors())
	if len(out.Windows) != 2 || out.Windows[0].Kind != Primary || out.Windows[1].Monitor != "DP-2" {
		t.Fatalf("expected primary plus one clone, got %+v", out.Windows)
	}

	perMonitor := lumen.WallpaperConfig{
		Mode: lumen.ModePerMonitor,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("DP-1", lumen.WallpaperVideo, video("/a.mp4")),
			primaryEntry("DP-1", lumen.WallpaperVideo, video("/b.mp4")),
		},
	}
	out = Compile(perMonitor, threeMonitors())
	if len(out.Windows) != 1 || out.Windows[0].Source.Value != "/a.mp4" {
		t.Fatalf("first entry should win, got %+v", out.Windows)
	}
}

func TestCloneSinglePrimaryMissing(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode: lumen.ModeCloneSingle,
		Monitors: []lumen.MonitorConfig{
			primaryEntry("HDMI-9", lumen.WallpaperVideo, video("/a.mp4")),
			cloneEntry("DP-1"),
		},
	}
	if out := Compile(cfg, threeMonitors()); len(out.Windows) != 0 {
		t.Fatalf("expected empty layout, got %+v", out.Windows)
	}

	cfg.Monitors = []lumen.MonitorConfig{cloneEntry("DP-1")}
	if out := Compile(cfg, threeMonitors()); len(out.Windows) != 0 {
		t.Fatalf("expected empty layout without primary")
	}
}

func TestStretchSingle(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode:     lumen.ModeStretchSingle,
		Monitors: []lumen.MonitorConfig{primaryEntry("eDP-1", lumen.WallpaperVideo, video("/a.mp4"))},
	}
	topo := threeMonitors()
	out := Compile(cfg, topo)
	if len(out.Windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(out.Windows))
	}
	if len(out.Primaries()) != 1 {
		t.Fatalf("expected exactly one primary")
	}

	primary := out.Windows[0]
	if primary.Monitor != "DP-1" || primary.Kind != Primary {
		t.Fatalf("expected DP-1 primary, got %+v", primary)
	}
	if primary.Geometry != (lumen.Geometry{X: 1920, Y: 600, Width: 2560, Height: 1440}) {
		t.Fatalf("primary window must keep its monitor geometry, got %+v", primary.Geometry)
	}
	if primary.Source.Value != "/a.mp4" {
		t.Fatalf("primary should carry the configured source")
	}

	for _, w := range out.Windows {
		if w.Viewport == nil {
			t.Fatalf("%s missing viewport", w.Monitor)
		}
		if w.Viewport.CanvasWidth != 5920 || w.Viewport.CanvasHeight != 2680 {
			t.Fatalf("unexpected canvas %dx%d", w.Viewport.CanvasWidth, w.Viewport.CanvasHeight)
		}
		geom := topo[w.Monitor]
		if w.Viewport.OffsetX != geom.X || w.Viewport.OffsetY != geom.Y {
			t.Fatalf("%s offset mismatch", w.Monitor)
		}
		if w.Kind == Clone && w.CloneSource != "DP-1" {
			t.Fatalf("clone %s should mirror DP-1", w.Monitor)
		}
	}
	if out.Windows[2].Title != "Live Wallpaper - eDP-1 (Stretch)" {
		t.Fatalf("unexpected title %q", out.Windows[2].Title)
	}
}

func TestStretchSingleWithoutPrimary(t *testing.T) {
	cfg := lumen.WallpaperConfig{
		Mode:     lumen.ModeStretchSingle,
		Monitors: []lumen.MonitorConfig{cloneEntry("DP-1")},
	}
	if out := Compile(cfg, threeMonitors()); len(out.Windows) != 0 {
		t.Fatalf("expected empty layout")
	}
}

func TestCompileEmptyInputs(t *testing.T) {
	cfg := lumen.WallpaperConfig{Mode: lumen.ModePerMonitor, Monitors: []lumen.MonitorConfig{primaryEntry("A", lumen.WallpaperVideo, video("/a"))}}
	if out := Compile(cfg, lumen.Topology{}); len(out.Windows) != 0 {
		t.Fatalf("expected empty layout for empty topology")
	}
	for _, mode := range []lumen.WallpaperMode{lumen.ModeCloneSingle, lumen.ModeStretchSingle} {
		cfg.Mode = mode
		if out := Compile(cfg, lumen.Topology{}); len(out.Windows) != 0 {
			t.Fatalf("%s: expected empty layout for empty topology", mode)
		}
	}
	cfg.Mode = lumen.ModePerMonitor
	cfg.Monitors = nil
	if out := Compile(cfg, threeMonitors()); len(out.Windows) != 0 {
		t.Fatalf("expected empty layout for empty config")
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	for _, mode := range []lumen.WallpaperMode{lumen.ModePerMonitor, lumen.ModeCloneSingle, lumen.ModeStretchSingle} {
		cfg := lumen.WallpaperConfig{
			Mode: mode,
			Monitors: []lumen.MonitorConfig{
				primaryEntry("DP-1", lumen.WallpaperVideo, video("/a.mp4")),
				cloneEntry("DP-2"),
				cloneEntry("eDP-1"),
			},
		}
		first := Compile(cfg, threeMonitors())
		for i := 0; i < 10; i++ {
			if again := Compile(cfg, threeMonitors()); !reflect.DeepEqual(first, again) {
				t.Fatalf("%s: layout changed between calls", mode)
			}
		}
	}
}

func TestViewportCrop(t *testing.T) {
	vp := Viewport{OffsetX: 1920, OffsetY: 600, CanvasWidth: 5920, CanvasHeight: 2680}
	left, top, right, bottom := vp.Crop(2560, 1440)
	if left != 1920 || top != 600 || right != 1440 || bottom != 640 {
		t.Fatalf("unexpected crop %d %d %d %d", left, top, right, bottom)
	}
	vp = Viewport{OffsetX: 0, OffsetY: 0, CanvasWidth: 100, CanvasHeight: 100}
	_, _, right, bottom = vp.Crop(200, 200)
	if right != 0 || bottom != 0 {
		t.Fatalf("expected clamped crop")
	}
}
