// Package layout compiles a wallpaper config against a monitor topology into
// window placement directives.
package layout

import (
	"fmt"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Kind tags a window as rendering a source or mirroring another window.
type Kind int

const (
	Primary Kind = iota
	Clone
)

func (k Kind) String() string {
	if k == Clone {
		return "clone"
	}
	return "primary"
}

// Viewport describes how a window crops a shared canvas larger than itself.
// Only stretch layouts carry one.
type Viewport struct {
	OffsetX      int `json:"offsetX"`
	OffsetY      int `json:"offsetY"`
	CanvasWidth  int `json:"canvasWidth"`
	CanvasHeight int `json:"canvasHeight"`
}

// Crop returns how many pixels to remove from each edge of the canvas so
// that only this window's region remains. Negative values clamp to zero.
func (v Viewport) Crop(width, height int) (left, top, right, bottom int) {
	left = clampZero(v.OffsetX)
	top = clampZero(v.OffsetY)
	right = clampZero(v.CanvasWidth - v.OffsetX - width)
	bottom = clampZero(v.CanvasHeight - v.OffsetY - height)
	return left, top, right, bottom
}

// Window is a single placement directive.
type Window struct {
	Kind     Kind
	Monitor  string
	Geometry lumen.Geometry
	Title    string

	// Primary only.
	WallpaperType lumen.WallpaperType
	Source        lumen.Source

	// Clone only.
	CloneSource string

	Viewport *Viewport
}

// Layout is the ordered list of windows for a config and topology.
type Layout struct {
	Windows []Window
}

// Primaries returns the primary windows in order.
func (l Layout) Primaries() []Window {
	out := []Window{}
	for _, w := range l.Windows {
		if w.Kind == Primary {
			out = append(out, w)
		}
	}
	return out
}

// Clones returns the clone windows in order.
func (l Layout) Clones() []Window {
	out := []Window{}
	for _, w := range l.Windows {
		if w.Kind == Clone {
			out = append(out, w)
		}
	}
	return out
}

// Compile builds the window layout. It never fails: entries naming monitors
// missing from the topology are dropped and an unusable config yields an
// empty layout. A monitor gets at most one window; the first entry naming it
// wins.
func Compile(cfg lumen.WallpaperConfig, topo lumen.Topology) Layout {
	if len(topo) == 0 || len(cfg.Monitors) == 0 {
		return Layout{}
	}
	switch cfg.Mode {
	case lumen.ModePerMonitor:
		return perMonitor(cfg, topo)
	case lumen.ModeCloneSingle:
		return cloneSingle(cfg, topo)
	case lumen.ModeStretchSingle:
		return stretchSingle(cfg, topo)
	default:
		return Layout{}
	}
}

func perMonitor(cfg lumen.WallpaperConfig, topo lumen.Topology) Layout {
	out := Layout{}
	seen := map[string]bool{}
	for _, entry := range cfg.Monitors {
		if !entry.Primary || seen[entry.Monitor] {
			continue
		}
		geom, ok := topo[entry.Monitor]
		if !ok {
			continue
		}
		seen[entry.Monitor] = true
		out.Windows = append(out.Windows, Window{
			Kind:          Primary,
			Monitor:       entry.Monitor,
			Geometry:      geom,
			Title:         primaryTitle(entry.Monitor),
			WallpaperType: entry.WallpaperType,
			Source:        entry.Source,
		})
	}
	return out
}

func cloneSingle(cfg lumen.WallpaperConfig, topo lumen.Topology) Layout {
	primary, ok := cfg.FirstPrimary()
	if !ok {
		return Layout{}
	}
	geom, ok := topo[primary.Monitor]
	if !ok {
		return Layout{}
	}

	out := Layout{Windows: []Window{{
		Kind:          Primary,
		Monitor:       primary.Monitor,
		Geometry:      geom,
		Title:         primaryTitle(primary.Monitor),
		WallpaperType: primary.WallpaperType,
		Source:        primary.Source,
	}}}
	seen := map[string]bool{primary.Monitor: true}
	for _, entry := range cfg.Monitors {
		if entry.Primary || seen[entry.Monitor] {
			continue
		}
		cg, ok := topo[entry.Monitor]
		if !ok {
			continue
		}
		seen[entry.Monitor] = true
		out.Windows = append(out.Windows, Window{
			Kind:        Clone,
			Monitor:     entry.Monitor,
			Geometry:    cg,
			Title:       fmt.Sprintf("Live Wallpaper - %s (Clone of %s)", entry.Monitor, primary.Monitor),
			CloneSource: primary.Monitor,
		})
	}
	return out
}

func stretchSingle(cfg lumen.WallpaperConfig, topo lumen.Topology) Layout {
	canvasW, canvasH := BoundingBox(topo)
	primary, ok := cfg.FirstPrimary()
	if !ok {
		return Layout{}
	}

	names := topo.Names()
	if len(names) == 0 {
		return Layout{}
	}
	first := names[0]
	out := Layout{}
	for _, name := range names {
		geom := topo[name]
		vp := &Viewport{OffsetX: geom.X, OffsetY: geom.Y, CanvasWidth: canvasW, CanvasHeight: canvasH}
		title := fmt.Sprintf("Live Wallpaper - %s (Stretch)", name)
		if name == first {
			out.Windows = append(out.Windows, Window{
				Kind:          Primary,
				Monitor:       name,
				Geometry:      geom,
				Title:         title,
				WallpaperType: primary.WallpaperType,
				Source:        primary.Source,
				Viewport:      vp,
			})
			continue
		}
		out.Windows = append(out.Windows, Window{
			Kind:        Clone,
			Monitor:     name,
			Geometry:    geom,
			Title:       title,
			CloneSource: first,
			Viewport:    vp,
		})
	}
	return out
}

// BoundingBox returns max(x+width) and max(y+height) over the topology. The
// leftmost and topmost monitor is assumed to sit at the origin.
func BoundingBox(topo lumen.Topology) (int, int) {
	w, h := 0, 0
	for _, geom := range topo {
		if right := geom.X + geom.Width; right > w {
			w = right
		}
		if bottom := geom.Y + geom.Height; bottom > h {
			h = bottom
		}
	}
	return w, h
}

func primaryTitle(monitor string) string {
	return "Live Wallpaper - " + monitor
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
