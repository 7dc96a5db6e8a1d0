// Package rendererheadless provides renderers that draw nothing. They log
// every call and keep a journal, which makes a host usable without a display.
package rendererheadless

import (
	"fmt"
	"sync"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// Backend opens headless renderers for any wallpaper type.
type Backend struct {
	log *zap.Logger

	mu      sync.Mutex
	journal []string
}

// NewBackend creates a headless backend.
func NewBackend(log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{log: log}
}

// Open implements wallpapercore.Backend.
func (b *Backend) Open(win layout.Window, mode lumen.LaunchMode) (wallpapercore.Renderer, error) {
	b.record(win.Monitor, "open %s %s %s", win.WallpaperType, win.Source.URI(), mode)
	return &Renderer{backend: b, win: win}, nil
}

// Journal returns a copy of every recorded call, formatted "monitor:call".
func (b *Backend) Journal() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.journal))
	copy(out, b.journal)
	return out
}

func (b *Backend) record(monitor string, format string, args ...any) {
	entry := monitor + ":" + fmt.Sprintf(format, args...)
	b.mu.Lock()
	b.journal = append(b.journal, entry)
	b.mu.Unlock()
	b.log.Debug("headless renderer", zap.String("monitor", monitor), zap.String("call", entry))
}

// Renderer stands in for one window.
type Renderer struct {
	backend *Backend
	win     layout.Window
}

func (r *Renderer) Play() error {
	r.backend.record(r.win.Monitor, "play")
	return nil
}

func (r *Renderer) Pause() error {
	r.backend.record(r.win.Monitor, "pause")
	return nil
}

func (r *Renderer) Stop() error {
	r.backend.record(r.win.Monitor, "stop")
	return nil
}

func (r *Renderer) SetVolume(volume float64) error {
	r.backend.record(r.win.Monitor, "volume %.2f", volume)
	return nil
}

func (r *Renderer) SetMute(mute bool) error {
	r.backend.record(r.win.Monitor, "mute %t", mute)
	return nil
}

func (r *Renderer) SetContentFit(fit lumen.ContentFit) error {
	r.backend.record(r.win.Monitor, "fit %s", fit)
	return nil
}

func (r *Renderer) Mirror(win layout.Window) (wallpapercore.Renderer, error) {
	r.backend.record(win.Monitor, "mirror %s", r.win.Monitor)
	return &Renderer{backend: r.backend, win: win}, nil
}
