package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey-austin/lumen/internal/lumend"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

const perMonitorJSON = `{"mode":"wallpaper_per_monitor","monitors":[{"monitor":"DP-1","wallpaper_type":"web","uri":"https://example.com"}]}`

func TestApplyOverrides(t *testing.T) {
	cfg := lumend.Config{}
	cfg.Modules.EmbeddedMQTT.Enabled = true
	applyOverrides(&cfg, flags{identity: "desk", launchMode: "windowed", logLevel: "debug"})
	if cfg.Server.Identity != "desk" || cfg.Host.LaunchMode != "windowed" || cfg.Server.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Server.Broker != "mqtt://127.0.0.1:1883" {
		t.Fatalf("embedded broker should become the default broker, got %q", cfg.Server.Broker)
	}

	cfg = lumend.Config{}
	applyOverrides(&cfg, flags{broker: "mqtt://broker:1883"})
	if cfg.Server.Broker != "mqtt://broker:1883" {
		t.Fatalf("expected broker override")
	}
}

func TestResolveStartup(t *testing.T) {
	cfg := lumend.Config{}
	if _, err := resolveStartup(cfg, flags{}); err == nil {
		t.Fatalf("expected error without -wallpaper or -daemon")
	}
	if _, err := resolveStartup(cfg, flags{daemon: true, wallpaper: perMonitorJSON}); err == nil {
		t.Fatalf("expected error combining -daemon and -wallpaper")
	}
	s, err := resolveStartup(cfg, flags{daemon: true})
	if err != nil || !s.restore {
		t.Fatalf("daemon should restore, got %+v %v", s, err)
	}

	s, err = resolveStartup(cfg, flags{wallpaper: perMonitorJSON})
	if err != nil || s.launchMode != string(lumen.DefaultLaunchMode) {
		t.Fatalf("empty launch mode should default, got %+v %v", s, err)
	}

	cfg.Host.LaunchMode = "x11-desktop"
	s, err = resolveStartup(cfg, flags{wallpaper: perMonitorJSON})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.restore || s.configJSON != perMonitorJSON || s.launchMode != "x11-desktop" {
		t.Fatalf("unexpected startup %+v", s)
	}

	if _, err := resolveStartup(lumend.Config{}, flags{wallpaper: `{"mode":"tiled","monitors":[]}`}); err == nil {
		t.Fatalf("expected config parse error")
	}
	bad := lumend.Config{}
	bad.Host.LaunchMode = "fullscreen"
	if _, err := resolveStartup(bad, flags{wallpaper: perMonitorJSON}); err == nil {
		t.Fatalf("expected launch mode error")
	}
}

func TestReadWallpaperFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallpaper.json")
	if err := os.WriteFile(path, []byte(perMonitorJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readWallpaper(path)
	if err != nil || got != perMonitorJSON {
		t.Fatalf("unexpected wallpaper %q %v", got, err)
	}
	if _, err := readWallpaper(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoadConfigMissingDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "lumend.toml")
	if _, err := loadConfig(missing, missing); err != nil {
		t.Fatalf("missing default config should be allowed: %v", err)
	}
	if _, err := loadConfig(missing, "/elsewhere.toml"); err == nil {
		t.Fatalf("missing explicit config should fail")
	}
}

func TestPrintResolvedConfigRedacts(t *testing.T) {
	cfg := lumend.Config{}
	cfg.Server.Auth.Pass = "secret"
	cfg.ApplyDefaults()
	var buf bytes.Buffer
	if err := printResolvedConfig(&buf, cfg); err != nil {
		t.Fatalf("print: %v", err)
	}
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("password leaked: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "topic_base") {
		t.Fatalf("expected toml output, got %s", buf.String())
	}
}

func headlessConfig(t *testing.T) lumend.Config {
	t.Helper()
	placement := false
	cfg := lumend.Config{}
	cfg.Topology.Monitors = []lumend.MonitorConfig{{Name: "DP-1", Width: 1920, Height: 1080}}
	cfg.Renderer.VideoBackend = lumend.BackendHeadless
	cfg.Renderer.WebBackend = lumend.BackendHeadless
	cfg.Renderer.Placement = &placement
	cfg.Host.StatePath = filepath.Join(t.TempDir(), "state.json")
	cfg.ApplyDefaults()
	return cfg
}

func TestBuildAppHeadless(t *testing.T) {
	cfg := headlessConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(cfg, "", nil, zap.NewNop(), cancel)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.close()
	if len(a.modules) != 1 || a.modules[0].Name != "wallpaper_core" {
		t.Fatalf("unexpected modules %+v", a.modules)
	}

	done := make(chan error, 1)
	go func() { done <- a.modules[0].Run(ctx) }()

	reply, err := a.channel.Submit(ctx, wallpapercore.ApplyWallpaper(perMonitorJSON, string(lumen.LaunchWindowed)))
	if err != nil || reply.Err != nil || !reply.OK {
		t.Fatalf("apply failed: %+v %v", reply, err)
	}
	configJSON, launchMode, err := a.store.LastApplied()
	if err != nil || configJSON != perMonitorJSON || launchMode != "windowed" {
		t.Fatalf("apply should persist, got %q %q %v", configJSON, launchMode, err)
	}

	if err := a.channel.Post(wallpapercore.Quit()); err != nil {
		t.Fatalf("quit: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("host run: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatalf("quit should cancel the daemon context")
	}
}

func TestBuildBackendsRejectsUnknown(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Renderer.WebBackend = "webkit"
	if _, err := buildBackends(cfg, zap.NewNop(), nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestBuildModulesOptional(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.DBus.Enabled = true
	cfg.Modules.SettingsWatch.Enabled = true
	a, err := buildApp(cfg, "/tmp/lumend.toml", nil, zap.NewNop(), func() {})
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.close()
	optional := map[string]bool{}
	for _, m := range a.modules {
		optional[m.Name] = m.Optional
	}
	if len(optional) != 3 || !optional["dbus_host"] || !optional["settings_watch"] || optional["wallpaper_core"] {
		t.Fatalf("unexpected modules %+v", optional)
	}
	if startupModule(a, startup{restore: true}, zap.NewNop()).Optional != true {
		t.Fatalf("restore should be optional")
	}
	if startupModule(a, startup{configJSON: perMonitorJSON}, zap.NewNop()).Optional {
		t.Fatalf("explicit wallpaper should be required")
	}
}
