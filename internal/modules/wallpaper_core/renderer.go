package wallpapercore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Renderer is a live wallpaper surface owned by the host goroutine.
type Renderer interface {
	Play() error
	Pause() error
	Stop() error
	SetVolume(volume float64) error
	SetMute(mute bool) error
	SetContentFit(fit lumen.ContentFit) error
	// Mirror creates a renderer for win that shows the same content.
	Mirror(win layout.Window) (Renderer, error)
}

// AsyncStopper is implemented by renderers whose Stop waits on something
// outside the process. BeginStop starts the stop and returns a function that
// blocks until it completes, so a registry can stop many renderers with
// their waits overlapping.
type AsyncStopper interface {
	BeginStop() (wait func() error)
}

// Backend creates renderers for primary windows.
type Backend interface {
	Open(win layout.Window, mode lumen.LaunchMode) (Renderer, error)
}

// Backends selects a backend by wallpaper type.
type Backends map[lumen.WallpaperType]Backend

// WindowPlacer moves a renderer's native window onto its monitor once the
// window exists. A pid <= 0 matches the window by title.
type WindowPlacer interface {
	Place(ctx context.Context, pid int, title string, geom lumen.Geometry, desktop bool) error
}

// ErrUnsupported indicates a backend capability is missing.
var ErrUnsupported = errors.New("unsupported")

// PersistenceGateway stores the last applied config for auto-resume. Empty
// strings mean nothing is stored.
type PersistenceGateway interface {
	LastApplied() (configJSON string, launchMode string, err error)
	SaveLastApplied(configJSON string, launchMode string) error
}

// TopologyProvider supplies monitor geometry and change notifications.
type TopologyProvider interface {
	Snapshot() (lumen.Topology, error)
	Changes() <-chan struct{}
}

// guard runs a renderer call and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return fn()
}
