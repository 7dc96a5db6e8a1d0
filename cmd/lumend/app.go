package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/lumen/internal/adapters/mqttserver"
	"github.com/mikey-austin/lumen/internal/adapters/statestore"
	"github.com/mikey-austin/lumen/internal/lumend"
	dbushost "github.com/mikey-austin/lumen/internal/modules/dbus_host"
	rendererexec "github.com/mikey-austin/lumen/internal/modules/renderer_exec"
	renderergstreamer "github.com/mikey-austin/lumen/internal/modules/renderer_gstreamer"
	rendererheadless "github.com/mikey-austin/lumen/internal/modules/renderer_headless"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	wallpaperhost "github.com/mikey-austin/lumen/internal/modules/wallpaper_host"
	"github.com/mikey-austin/lumen/internal/topology"
	"github.com/mikey-austin/lumen/internal/x11"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// app is the wired host plus the modules serving it.
type app struct {
	channel *wallpapercore.Channel
	host    *wallpapercore.Host
	store   wallpapercore.PersistenceGateway
	modules []lumend.ModuleRunner
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(cfg lumend.Config, configPath string, client *mqttserver.Client, logger *zap.Logger, cancel context.CancelFunc) (*app, error) {
	a := &app{channel: wallpapercore.NewChannel(cfg.Host.QueueSize)}

	settings, err := cfg.Renderer.Settings()
	if err != nil {
		return nil, err
	}

	provider, runner, err := buildTopology(cfg, logger)
	if err != nil {
		return nil, err
	}
	if runner != nil {
		a.modules = append(a.modules, *runner)
	}

	var placer wallpapercore.WindowPlacer
	if cfg.Renderer.PlacementEnabled() {
		conn, err := x11.NewConnection()
		if err != nil {
			logger.Warn("x11 window placement unavailable", zap.Error(err))
		} else {
			a.closers = append(a.closers, conn.Close)
			placer = x11.NewPlacer(conn)
		}
	}

	backends, err := buildBackends(cfg, logger, placer)
	if err != nil {
		a.close()
		return nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	timeout := time.Duration(cfg.Host.CommandTimeoutMS) * time.Millisecond
	notifiers := []func(wallpapercore.Status){}

	if client != nil {
		mod, err := wallpaperhost.NewModule(logger.With(zap.String("module", "wallpaper_host")), client, a.channel, wallpaperhost.Config{
			NodeID:         cfg.Host.NodeID,
			TopicBase:      cfg.Server.TopicBase,
			Name:           cfg.Host.Name,
			PublishState:   true,
			CommandTimeout: timeout,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		notifiers = append(notifiers, mod.Notify)
		a.modules = append(a.modules, lumend.ModuleRunner{Name: "wallpaper_host", Run: mod.Run})
	}

	if cfg.DBus.Enabled {
		mod, err := dbushost.NewModule(logger.With(zap.String("module", "dbus_host")), a.channel, dbushost.Config{
			BusName:        cfg.DBus.Name,
			SystemBus:      cfg.DBus.Bus == "system",
			CommandTimeout: timeout,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		notifiers = append(notifiers, mod.Notify)
		a.modules = append(a.modules, lumend.ModuleRunner{Name: "dbus_host", Run: mod.Run, Optional: true})
	}

	host, err := wallpapercore.NewHost(logger.With(zap.String("module", "wallpaper_core")), a.channel, wallpapercore.Config{
		Backends: backends,
		Topology: provider,
		Store:    store,
		Settings: settings,
		Notify: func(st wallpapercore.Status) {
			for _, notify := range notifiers {
				notify(st)
			}
		},
		OnQuit: cancel,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.host = host
	a.modules = append([]lumend.ModuleRunner{{Name: "wallpaper_core", Run: host.Run}}, a.modules...)

	if cfg.Modules.SettingsWatch.Enabled {
		watcher := lumend.SettingsWatcher{
			Path:     configPath,
			Debounce: time.Duration(cfg.Modules.SettingsWatch.DebounceMS) * time.Millisecond,
			Initial:  settings,
			Apply:    host.UpdateSettings,
			Logger:   logger.With(zap.String("module", "settings_watch")),
		}
		a.modules = append(a.modules, lumend.ModuleRunner{Name: "settings_watch", Run: watcher.Run, Optional: true})
	}
	return a, nil
}

func buildTopology(cfg lumend.Config, logger *zap.Logger) (wallpapercore.TopologyProvider, *lumend.ModuleRunner, error) {
	switch cfg.Topology.Provider {
	case lumend.TopologyStatic:
		topo, err := cfg.Topology.Static()
		if err != nil {
			return nil, nil, err
		}
		return topology.NewStatic(topo), nil, nil
	case lumend.TopologyX11:
		settle := time.Duration(cfg.Topology.SettleMS) * time.Millisecond
		provider, err := topology.NewX11(logger.With(zap.String("module", "topology_x11")), settle)
		if err != nil {
			return nil, nil, err
		}
		return provider, &lumend.ModuleRunner{Name: "topology_x11", Run: provider.Run}, nil
	default:
		return nil, nil, errors.New("unknown topology provider " + cfg.Topology.Provider)
	}
}

func buildBackends(cfg lumend.Config, logger *zap.Logger, placer wallpapercore.WindowPlacer) (wallpapercore.Backends, error) {
	backends := wallpapercore.Backends{}
	var headless *rendererheadless.Backend
	headlessBackend := func() wallpapercore.Backend {
		if headless == nil {
			headless = rendererheadless.NewBackend(logger.With(zap.String("module", "renderer_headless")))
		}
		return headless
	}

	for wallpaperType, name := range map[lumen.WallpaperType]string{
		lumen.WallpaperVideo: cfg.Renderer.VideoBackend,
		lumen.WallpaperWeb:   cfg.Renderer.WebBackend,
	} {
		switch name {
		case lumend.BackendGStreamer:
			backend, err := renderergstreamer.NewBackend(logger.With(zap.String("module", "renderer_gstreamer")), renderergstreamer.Config{
				Pipeline:  cfg.Renderer.GStreamer.Pipeline,
				VideoSink: cfg.Renderer.GStreamer.VideoSink,
				Placer:    placer,
			})
			if err != nil {
				logger.Warn("gstreamer backend unavailable, using headless", zap.String("type", string(wallpaperType)), zap.Error(err))
				backends[wallpaperType] = headlessBackend()
				continue
			}
			backends[wallpaperType] = backend
		case lumend.BackendExec:
			backends[wallpaperType] = rendererexec.NewBackend(logger.With(zap.String("module", "renderer_exec")), rendererexec.Config{
				Command:     cfg.Renderer.Exec.Command,
				ProfileRoot: cfg.Renderer.Exec.ProfileRoot,
				StopTimeout: time.Duration(cfg.Renderer.Exec.StopTimeoutMS) * time.Millisecond,
				Placer:      placer,
			})
		case lumend.BackendHeadless:
			backends[wallpaperType] = headlessBackend()
		default:
			return nil, errors.New("unknown backend " + name)
		}
	}
	return backends, nil
}

func buildStore(cfg lumend.Config) (*statestore.Store, error) {
	if cfg.Host.StatePath != "" {
		return statestore.NewStoreAt(cfg.Host.StatePath), nil
	}
	return statestore.NewStore()
}

// startupModule restores or applies the startup wallpaper once the owner is
// running, then idles until shutdown.
func startupModule(a *app, s startup, logger *zap.Logger) lumend.ModuleRunner {
	log := logger.With(zap.String("module", "startup"))
	run := func(ctx context.Context) error {
		if s.restore {
			if _, err := wallpapercore.Restore(ctx, a.channel, a.store, log); err != nil {
				log.Warn("restore failed", zap.Error(err))
			}
			<-ctx.Done()
			return nil
		}
		reply, err := a.channel.Submit(ctx, wallpapercore.ApplyWallpaper(s.configJSON, s.launchMode))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if reply.Err != nil {
			return reply.Err
		}
		log.Info("wallpaper applied", zap.Bool("result", reply.OK), zap.Stringer("state", reply.State))
		<-ctx.Done()
		return nil
	}
	return lumend.ModuleRunner{Name: "startup", Run: run, Optional: s.restore}
}
