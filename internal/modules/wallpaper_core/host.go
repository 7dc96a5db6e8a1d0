package wallpapercore

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// Status is a snapshot of the host published after every change.
type Status struct {
	State      PlaybackState
	Mode       lumen.WallpaperMode
	LaunchMode lumen.LaunchMode
	Monitors   []string
	Windows    int
}

// Config wires the host to its collaborators.
type Config struct {
	Backends Backends
	Topology TopologyProvider
	Store    PersistenceGateway
	Settings lumen.RendererSettings
	// Notify runs on the owner goroutine after a reply has been delivered.
	// It must not block.
	Notify func(Status)
	// OnQuit runs once when a quit command is processed.
	OnQuit func()
}

type activeConfig struct {
	config     lumen.WallpaperConfig
	launchMode lumen.LaunchMode
}

// Host owns every renderer and the playback state. All mutation happens on
// the goroutine running Run.
type Host struct {
	log      *zap.Logger
	channel  *Channel
	backends Backends
	topology TopologyProvider
	store    PersistenceGateway
	notify   func(Status)
	onQuit   func()

	machine    StateMachine
	registry   *Registry
	current    *activeConfig
	settings   lumen.RendererSettings
	generation uint64

	settingsCh chan lumen.RendererSettings
	deferred   []func()
	wake       chan struct{}
}

// NewHost creates a host reading from channel.
func NewHost(log *zap.Logger, channel *Channel, cfg Config) (*Host, error) {
	if channel == nil {
		return nil, errors.New("command channel required")
	}
	if len(cfg.Backends) == 0 {
		return nil, errors.New("at least one backend required")
	}
	if cfg.Topology == nil {
		return nil, errors.New("topology provider required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		log:        log,
		channel:    channel,
		backends:   cfg.Backends,
		topology:   cfg.Topology,
		store:      cfg.Store,
		notify:     cfg.Notify,
		onQuit:     cfg.OnQuit,
		registry:   NewRegistry(),
		settings:   cfg.Settings,
		settingsCh: make(chan lumen.RendererSettings, 1),
		wake:       make(chan struct{}, 1),
	}, nil
}

// UpdateSettings hands new renderer settings to the owner goroutine. Only
// the latest pending value is kept.
func (h *Host) UpdateSettings(s lumen.RendererSettings) {
	for {
		select {
		case h.settingsCh <- s:
			return
		default:
		}
		select {
		case <-h.settingsCh:
		default:
		}
	}
}

// Run is the owner loop. It returns when ctx ends or a quit command is
// processed; queued commands are then failed.
func (h *Host) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer h.shutdown()

	changes := h.topology.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.channel.quit:
			h.quit()
			return nil
		case cmd := <-h.channel.queue:
			if h.process(cmd) {
				return nil
			}
			if h.drain() {
				return nil
			}
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			h.handleTopologyChange()
		case s := <-h.settingsCh:
			h.applySettings(s)
		case <-h.wake:
			h.runDeferred()
		}
	}
}

// drain processes every command already queued and reports whether a quit
// was seen.
func (h *Host) drain() bool {
	for {
		select {
		case cmd := <-h.channel.queue:
			if h.process(cmd) {
				return true
			}
		default:
			return false
		}
	}
}

func (h *Host) process(cmd Command) (quit bool) {
	if cmd.Kind == KindQuit {
		h.quit()
		return true
	}

	var reply Reply
	mutated := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.Error("command handler panic", zap.Stringer("command", cmd.Kind), zap.Any("panic", r))
				reply = Reply{Err: fmt.Errorf("internal error: %v", r)}
				mutated = true
			}
		}()
		switch cmd.Kind {
		case KindApplyWallpaper:
			reply = h.handleApply(cmd)
			mutated = reply.OK
		case KindDisableWallpaper:
			reply = h.handleDisable()
			mutated = true
		case KindPause:
			reply = h.handlePause()
			mutated = reply.OK
		case KindResume:
			reply = h.handleResume()
			mutated = reply.OK
		case KindGetState:
			reply = Reply{OK: true}
		default:
			reply = Reply{Err: fmt.Errorf("unknown command %d", cmd.Kind)}
		}
	}()
	reply.State = h.machine.State()
	cmd.respond(reply)
	if mutated {
		h.emit()
	}
	return false
}

func (h *Host) handleApply(cmd Command) Reply {
	cfg, err := lumen.ParseWallpaperConfig(cmd.ConfigJSON)
	if err != nil {
		h.log.Warn("rejecting wallpaper config", zap.Error(err))
		return Reply{Err: err}
	}
	mode, err := lumen.ParseLaunchMode(cmd.LaunchMode)
	if err != nil {
		h.log.Warn("rejecting launch mode", zap.Error(err))
		return Reply{Err: err}
	}

	h.current = &activeConfig{config: cfg, launchMode: mode}
	h.rebuild("apply")
	h.machine.Apply()
	h.persist(cmd.ConfigJSON, cmd.LaunchMode)
	return Reply{OK: true}
}

func (h *Host) handleDisable() Reply {
	h.registry.Clear(h.log)
	h.generation++
	h.current = nil
	h.persist("", "")
	h.machine.Disable()
	h.log.Info("wallpaper disabled")
	return Reply{OK: true}
}

func (h *Host) handlePause() Reply {
	if !h.machine.Pause() {
		return Reply{}
	}
	h.pauseAll()
	return Reply{OK: true}
}

func (h *Host) handleResume() Reply {
	if !h.machine.Resume() {
		return Reply{}
	}
	h.registry.Each(func(monitor string, r Renderer) {
		if err := guard(r.Play); err != nil {
			h.log.Warn("renderer resume failed", zap.String("monitor", monitor), zap.Error(err))
		}
	})
	return Reply{OK: true}
}

func (h *Host) handleTopologyChange() {
	if h.current == nil {
		h.log.Debug("topology changed with no active wallpaper")
		return
	}
	h.rebuild("topology")
	h.emit()
}

// rebuild tears down every renderer and recreates them from the current
// config against a fresh topology snapshot.
func (h *Host) rebuild(reason string) {
	h.registry.Clear(h.log)
	h.generation++

	topo, err := h.topology.Snapshot()
	if err != nil {
		h.log.Warn("topology snapshot failed", zap.Error(err))
		topo = lumen.Topology{}
	}
	out := layout.Compile(h.current.config, topo)

	for _, win := range out.Primaries() {
		if h.registry.Has(win.Monitor) {
			h.log.Warn("monitor already has a window", zap.String("monitor", win.Monitor))
			continue
		}
		backend, ok := h.backends[win.WallpaperType]
		if !ok {
			h.log.Warn("no backend for wallpaper type", zap.String("monitor", win.Monitor), zap.String("type", string(win.WallpaperType)))
			continue
		}
		var renderer Renderer
		err := guard(func() error {
			var err error
			renderer, err = backend.Open(win, h.current.launchMode)
			if err != nil {
				return err
			}
			return renderer.Play()
		})
		if err != nil {
			h.log.Error("renderer create failed", zap.String("monitor", win.Monitor), zap.Error(err))
			if renderer != nil {
				_ = guard(renderer.Stop)
			}
			continue
		}
		h.register(win.Monitor, renderer, "")
	}

	for _, win := range out.Clones() {
		if h.registry.Has(win.Monitor) {
			h.log.Warn("monitor already has a window", zap.String("monitor", win.Monitor))
			continue
		}
		source, ok := h.registry.Get(win.CloneSource)
		if !ok {
			h.log.Warn("clone source missing", zap.String("monitor", win.Monitor), zap.String("clone_source", win.CloneSource))
			continue
		}
		var mirror Renderer
		err := guard(func() error {
			var err error
			mirror, err = source.Mirror(win)
			if err != nil {
				return err
			}
			return mirror.Play()
		})
		if err != nil {
			h.log.Error("mirror create failed", zap.String("monitor", win.Monitor), zap.Error(err))
			if mirror != nil {
				_ = guard(mirror.Stop)
			}
			continue
		}
		h.register(win.Monitor, mirror, win.CloneSource)
	}

	h.log.Info("wallpaper rebuilt",
		zap.String("reason", reason),
		zap.String("mode", string(h.current.config.Mode)),
		zap.String("launch_mode", string(h.current.launchMode)),
		zap.Int("windows", len(out.Windows)),
		zap.Int("renderers", h.registry.Len()),
	)

	gen := h.generation
	h.later(func() {
		if gen != h.generation {
			return
		}
		h.pushSettings()
		if h.machine.State() == Paused {
			h.pauseAll()
		}
	})
}

// later queues fn to run on a later loop iteration.
func (h *Host) register(monitor string, renderer Renderer, mirrorOf string) {
	if err := h.registry.Add(monitor, renderer, mirrorOf); err != nil {
		h.log.Warn("displaced renderer stop failed", zap.String("monitor", monitor), zap.Error(err))
	}
}

func (h *Host) later(fn func()) {
	h.deferred = append(h.deferred, fn)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Host) runDeferred() {
	tasks := h.deferred
	h.deferred = nil
	for _, task := range tasks {
		task()
	}
}

func (h *Host) applySettings(s lumen.RendererSettings) {
	h.settings = s
	h.log.Info("renderer settings changed",
		zap.Int("volume", s.Volume),
		zap.Bool("mute", s.Mute),
		zap.Stringer("content_fit", s.ContentFit),
	)
	h.pushSettings()
}

func (h *Host) pushSettings() {
	volume := h.settings.VolumeFraction()
	h.registry.Each(func(monitor string, r Renderer) {
		if err := guard(func() error { return r.SetVolume(volume) }); err != nil && !errors.Is(err, ErrUnsupported) {
			h.log.Warn("set volume failed", zap.String("monitor", monitor), zap.Error(err))
		}
		if err := guard(func() error { return r.SetMute(h.settings.Mute) }); err != nil && !errors.Is(err, ErrUnsupported) {
			h.log.Warn("set mute failed", zap.String("monitor", monitor), zap.Error(err))
		}
		if err := guard(func() error { return r.SetContentFit(h.settings.ContentFit) }); err != nil && !errors.Is(err, ErrUnsupported) {
			h.log.Warn("set content fit failed", zap.String("monitor", monitor), zap.Error(err))
		}
	})
}

func (h *Host) pauseAll() {
	h.registry.Each(func(monitor string, r Renderer) {
		if err := guard(r.Pause); err != nil {
			h.log.Warn("renderer pause failed", zap.String("monitor", monitor), zap.Error(err))
		}
	})
}

func (h *Host) persist(configJSON string, launchMode string) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveLastApplied(configJSON, launchMode); err != nil {
		h.log.Warn("persist wallpaper failed", zap.Error(err))
	}
}

func (h *Host) status() Status {
	st := Status{
		State:    h.machine.State(),
		Monitors: h.registry.Monitors(),
		Windows:  h.registry.Len(),
	}
	if h.current != nil {
		st.Mode = h.current.config.Mode
		st.LaunchMode = h.current.launchMode
	}
	return st
}

func (h *Host) emit() {
	if h.notify == nil {
		return
	}
	h.notify(h.status())
}

func (h *Host) quit() {
	h.log.Info("quit requested")
	h.registry.Clear(h.log)
	h.generation++
	if h.onQuit != nil {
		h.onQuit()
	}
}

func (h *Host) shutdown() {
	h.channel.close()
	if h.registry.Len() > 0 {
		h.registry.Clear(h.log)
	}
	h.deferred = nil
}

// Restore re-applies the persisted wallpaper, if any, through the channel.
// It reports whether a wallpaper was restored.
func Restore(ctx context.Context, channel *Channel, store PersistenceGateway, log *zap.Logger) (bool, error) {
	if store == nil {
		return false, nil
	}
	configJSON, launchMode, err := store.LastApplied()
	if err != nil {
		return false, fmt.Errorf("read persisted wallpaper: %w", err)
	}
	if configJSON == "" || launchMode == "" {
		log.Info("no persisted wallpaper to restore")
		return false, nil
	}
	reply, err := channel.Submit(ctx, ApplyWallpaper(configJSON, launchMode))
	if err != nil {
		return false, err
	}
	if reply.Err != nil {
		return false, fmt.Errorf("restore wallpaper: %w", reply.Err)
	}
	log.Info("restored persisted wallpaper", zap.String("launch_mode", launchMode))
	return reply.OK, nil
}
