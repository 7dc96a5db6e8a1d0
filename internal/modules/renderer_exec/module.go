// Package rendererexec renders wallpapers by running an external program per
// window, typically a kiosk browser for web wallpapers.
package rendererexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// DefaultCommand opens the page in an app-mode Chromium window with its own
// profile so each window is a separate browser process.
var DefaultCommand = []string{
	"chromium",
	"--app={uri}",
	"--user-data-dir={profile_dir}",
	"--window-position={x},{y}",
	"--window-size={width},{height}",
	"--autoplay-policy=no-user-gesture-required",
	"--no-first-run",
}

type process interface {
	Pid() int
	Suspend() error
	Continue() error
	Terminate() error
	Kill() error
	Exited() <-chan struct{}
}

type spawner func(log *zap.Logger, args []string) (process, error)

// Config configures the process backend.
type Config struct {
	Command     []string
	ProfileRoot string
	StopTimeout time.Duration
	// Placer positions process windows. Nil trusts the command line.
	Placer       wallpapercore.WindowPlacer
	PlaceTimeout time.Duration
}

// Backend opens process renderers.
type Backend struct {
	log    *zap.Logger
	config Config
	spawn  spawner
}

// NewBackend creates a process backend.
func NewBackend(log *zap.Logger, cfg Config) *Backend {
	return newBackend(log, cfg, spawnProcess)
}

func newBackend(log *zap.Logger, cfg Config, spawn spawner) *Backend {
	if len(cfg.Command) == 0 {
		cfg.Command = DefaultCommand
	}
	if cfg.ProfileRoot == "" {
		cfg.ProfileRoot = filepath.Join(os.TempDir(), "lumen-web")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 3 * time.Second
	}
	if cfg.PlaceTimeout <= 0 {
		cfg.PlaceTimeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{log: log, config: cfg, spawn: spawn}
}

// Open implements wallpapercore.Backend. The process starts on the first
// Play.
func (b *Backend) Open(win layout.Window, mode lumen.LaunchMode) (wallpapercore.Renderer, error) {
	if win.Kind != layout.Primary {
		return nil, errors.New("process backend opens primary windows only")
	}
	return &Renderer{backend: b, win: win, mode: mode, uri: win.Source.URI()}, nil
}

// ExpandCommand substitutes window placeholders into each argument.
//
// Placeholders: {uri}, {x}, {y}, {width}, {height}, {title}, {monitor},
// {profile_dir}, {canvas_width}, {canvas_height}, {offset_x}, {offset_y}.
// Without a viewport the canvas is the window itself at offset zero.
func ExpandCommand(command []string, win layout.Window, uri string, profileRoot string) []string {
	canvasW, canvasH := win.Geometry.Width, win.Geometry.Height
	offsetX, offsetY := 0, 0
	if win.Viewport != nil {
		canvasW, canvasH = win.Viewport.CanvasWidth, win.Viewport.CanvasHeight
		offsetX, offsetY = win.Viewport.OffsetX, win.Viewport.OffsetY
	}
	r := strings.NewReplacer(
		"{uri}", uri,
		"{x}", fmt.Sprint(win.Geometry.X),
		"{y}", fmt.Sprint(win.Geometry.Y),
		"{width}", fmt.Sprint(win.Geometry.Width),
		"{height}", fmt.Sprint(win.Geometry.Height),
		"{title}", win.Title,
		"{monitor}", win.Monitor,
		"{profile_dir}", ProfileDir(profileRoot, win.Monitor),
		"{canvas_width}", fmt.Sprint(canvasW),
		"{canvas_height}", fmt.Sprint(canvasH),
		"{offset_x}", fmt.Sprint(offsetX),
		"{offset_y}", fmt.Sprint(offsetY),
	)
	out := make([]string, 0, len(command))
	for _, arg := range command {
		out = append(out, r.Replace(arg))
	}
	return out
}

// ProfileDir is the per-monitor scratch directory handed to the command.
func ProfileDir(root string, monitor string) string {
	if root == "" {
		return ""
	}
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(monitor)
	return filepath.Join(root, name)
}

// Renderer runs one external process. It is driven only by the host owner.
type Renderer struct {
	backend *Backend
	win     layout.Window
	mode    lumen.LaunchMode
	uri     string

	proc   process
	paused bool
	cancel context.CancelFunc
}

// Play starts the process, or continues it when paused.
func (r *Renderer) Play() error {
	if r.proc != nil {
		select {
		case <-r.proc.Exited():
			r.backend.log.Warn("renderer process gone, restarting", zap.String("monitor", r.win.Monitor))
			r.proc = nil
		default:
		}
	}
	if r.proc == nil {
		return r.start()
	}
	if !r.paused {
		return nil
	}
	if err := r.proc.Continue(); err != nil {
		return err
	}
	r.paused = false
	return nil
}

// Pause suspends the process group.
func (r *Renderer) Pause() error {
	if r.proc == nil || r.paused {
		return nil
	}
	if err := r.proc.Suspend(); err != nil {
		return err
	}
	r.paused = true
	return nil
}

// Stop terminates the process, killing it when it outlives the stop
// timeout.
func (r *Renderer) Stop() error {
	return r.BeginStop()()
}

// BeginStop sends the terminate signal and returns a wait that kills the
// process if it is still running once the stop timeout, counted from now,
// has passed.
func (r *Renderer) BeginStop() func() error {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.proc == nil {
		return func() error { return nil }
	}
	proc := r.proc
	r.proc = nil
	if r.paused {
		_ = proc.Continue()
		r.paused = false
	}
	if err := proc.Terminate(); err != nil {
		return func() error { return err }
	}
	deadline := time.NewTimer(r.backend.config.StopTimeout)
	monitor := r.win.Monitor
	log := r.backend.log
	return func() error {
		defer deadline.Stop()
		select {
		case <-proc.Exited():
			return nil
		case <-deadline.C:
		}
		log.Warn("renderer process ignored terminate, killing", zap.String("monitor", monitor), zap.Int("pid", proc.Pid()))
		return proc.Kill()
	}
}

func (r *Renderer) SetVolume(volume float64) error {
	return wallpapercore.ErrUnsupported
}

func (r *Renderer) SetMute(mute bool) error {
	return wallpapercore.ErrUnsupported
}

func (r *Renderer) SetContentFit(fit lumen.ContentFit) error {
	return wallpapercore.ErrUnsupported
}

// Mirror runs a second process on the same source for win.
func (r *Renderer) Mirror(win layout.Window) (wallpapercore.Renderer, error) {
	return &Renderer{backend: r.backend, win: win, mode: r.mode, uri: r.uri}, nil
}

func (r *Renderer) start() error {
	args := ExpandCommand(r.backend.config.Command, r.win, r.uri, r.backend.config.ProfileRoot)
	proc, err := r.backend.spawn(r.backend.log, args)
	if err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	r.proc = proc
	r.paused = false
	r.backend.log.Info("renderer process started",
		zap.String("monitor", r.win.Monitor),
		zap.Int("pid", proc.Pid()),
		zap.Strings("args", args),
	)
	r.place(proc.Pid())
	return nil
}

func (r *Renderer) place(pid int) {
	placer := r.backend.config.Placer
	if placer == nil || !r.mode.X11Placed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.backend.config.PlaceTimeout)
	r.cancel = cancel
	log := r.backend.log
	win := r.win
	desktop := r.mode == lumen.LaunchX11Desktop
	go func() {
		defer cancel()
		if err := placer.Place(ctx, pid, win.Title, win.Geometry, desktop); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn("process window placement failed", zap.String("monitor", win.Monitor), zap.Int("pid", pid), zap.Error(err))
			}
		}
	}()
}
