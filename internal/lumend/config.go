package lumend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Config is the top-level configuration for lumend.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Host     HostConfig     `toml:"host"`
	Topology TopologyConfig `toml:"topology"`
	Renderer RendererConfig `toml:"renderer"`
	DBus     DBusConfig     `toml:"dbus"`
	Modules  ModulesConfig  `toml:"modules"`
}

// ServerConfig defines shared server settings.
type ServerConfig struct {
	Broker    string     `toml:"broker"`
	Identity  string     `toml:"identity"`
	TopicBase string     `toml:"topic_base"`
	LogLevel  string     `toml:"log_level"`
	LogFormat string     `toml:"log_format"`
	LogOutput string     `toml:"log_output"`
	LogUTC    bool       `toml:"log_utc"`
	TLS       TLSConfig  `toml:"tls"`
	Auth      AuthConfig `toml:"auth"`
}

// TLSConfig holds TLS paths for MQTT.
type TLSConfig struct {
	CA   string `toml:"ca"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

// AuthConfig holds MQTT auth credentials.
type AuthConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// HostConfig configures the wallpaper host itself.
type HostConfig struct {
	NodeID           string `toml:"node_id"`
	Name             string `toml:"name"`
	QueueSize        int    `toml:"queue_size"`
	LaunchMode       string `toml:"launch_mode"`
	StatePath        string `toml:"state_path"`
	CommandTimeoutMS int64  `toml:"command_timeout_ms"`
}

// TopologyConfig selects the monitor topology provider.
type TopologyConfig struct {
	Provider string          `toml:"provider"`
	SettleMS int64           `toml:"settle_ms"`
	Monitors []MonitorConfig `toml:"monitors"`
}

// MonitorConfig is one static monitor.
type MonitorConfig struct {
	Name   string `toml:"name"`
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RendererConfig holds renderer settings and backend selection.
type RendererConfig struct {
	Volume       *int            `toml:"volume"`
	Mute         bool            `toml:"mute"`
	ContentFit   string          `toml:"content_fit"`
	VideoBackend string          `toml:"video_backend"`
	WebBackend   string          `toml:"web_backend"`
	Placement    *bool           `toml:"placement"`
	GStreamer    GStreamerConfig `toml:"gstreamer"`
	Exec         ExecConfig      `toml:"exec"`
}

// GStreamerConfig configures the video backend.
type GStreamerConfig struct {
	Pipeline  string `toml:"pipeline"`
	VideoSink string `toml:"video_sink"`
}

// ExecConfig configures the process backend.
type ExecConfig struct {
	Command       []string `toml:"command"`
	ProfileRoot   string   `toml:"profile_root"`
	StopTimeoutMS int64    `toml:"stop_timeout_ms"`
}

// DBusConfig configures the session-bus acceptor.
type DBusConfig struct {
	Enabled bool   `toml:"enabled"`
	Bus     string `toml:"bus"`
	Name    string `toml:"name"`
}

// ModulesConfig holds module configurations.
type ModulesConfig struct {
	EmbeddedMQTT  EmbeddedMQTTConfig  `toml:"embedded_mqtt"`
	SettingsWatch SettingsWatchConfig `toml:"settings_watch"`
}

// EmbeddedMQTTConfig configures the embedded MQTT broker.
type EmbeddedMQTTConfig struct {
	Enabled        bool   `toml:"enabled"`
	Listen         string `toml:"listen"`
	AllowAnonymous bool   `toml:"allow_anonymous"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TLSCA          string `toml:"tls_ca"`
	TLSCert        string `toml:"tls_cert"`
	TLSKey         string `toml:"tls_key"`
}

// SettingsWatchConfig configures live reload of renderer settings.
type SettingsWatchConfig struct {
	Enabled    bool  `toml:"enabled"`
	DebounceMS int64 `toml:"debounce_ms"`
}

// Backend names.
const (
	BackendGStreamer = "gstreamer"
	BackendExec      = "exec"
	BackendHeadless  = "headless"
)

// Topology provider names.
const (
	TopologyX11    = "x11"
	TopologyStatic = "static"
)

// LoadConfig loads a config file from path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lumen", "lumend.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lumen", "lumend.toml"), nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.TopicBase == "" {
		c.Server.TopicBase = lumen.BaseTopic
	}
	if c.Host.NodeID == "" {
		c.Host.NodeID = defaultNodeID(c.Server.Identity)
	}
	if c.Host.Name == "" {
		c.Host.Name = "Wallpaper Host"
	}
	if c.Topology.Provider == "" {
		if len(c.Topology.Monitors) > 0 {
			c.Topology.Provider = TopologyStatic
		} else {
			c.Topology.Provider = TopologyX11
		}
	}
	if c.Renderer.VideoBackend == "" {
		c.Renderer.VideoBackend = BackendGStreamer
	}
	if c.Renderer.WebBackend == "" {
		c.Renderer.WebBackend = BackendExec
	}
	if c.DBus.Bus == "" {
		c.DBus.Bus = "session"
	}
	if c.Modules.EmbeddedMQTT.Listen == "" {
		c.Modules.EmbeddedMQTT.Listen = "127.0.0.1:1883"
	}
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if c.Host.LaunchMode != "" {
		if _, err := lumen.ParseLaunchMode(c.Host.LaunchMode); err != nil {
			return err
		}
	}
	switch c.Topology.Provider {
	case TopologyX11:
	case TopologyStatic:
		if len(c.Topology.Monitors) == 0 {
			return errors.New("static topology requires at least one monitor")
		}
		if _, err := c.Topology.Static(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown topology provider %q", c.Topology.Provider)
	}
	for field, value := range map[string]string{"video_backend": c.Renderer.VideoBackend, "web_backend": c.Renderer.WebBackend} {
		switch value {
		case BackendGStreamer, BackendExec, BackendHeadless:
		default:
			return fmt.Errorf("unknown %s %q", field, value)
		}
	}
	switch c.DBus.Bus {
	case "session", "system":
	default:
		return fmt.Errorf("unknown dbus bus %q", c.DBus.Bus)
	}
	if _, err := c.Renderer.Settings(); err != nil {
		return err
	}
	return nil
}

// Settings converts the renderer section into renderer settings.
func (c RendererConfig) Settings() (lumen.RendererSettings, error) {
	settings := lumen.DefaultRendererSettings()
	if c.Volume != nil {
		if *c.Volume < 0 || *c.Volume > 100 {
			return settings, fmt.Errorf("volume %d out of range 0..100", *c.Volume)
		}
		settings.Volume = *c.Volume
	}
	settings.Mute = c.Mute
	fit, err := lumen.ParseContentFit(c.ContentFit)
	if err != nil {
		return settings, err
	}
	settings.ContentFit = fit
	return settings, nil
}

// PlacementEnabled reports whether X11 window placement is on. It defaults
// to on.
func (c RendererConfig) PlacementEnabled() bool {
	return c.Placement == nil || *c.Placement
}

// Static builds the configured static topology.
func (c TopologyConfig) Static() (lumen.Topology, error) {
	topo := lumen.Topology{}
	for _, m := range c.Monitors {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, errors.New("monitor name required")
		}
		if m.Width <= 0 || m.Height <= 0 {
			return nil, fmt.Errorf("monitor %s has no size", name)
		}
		if _, dup := topo[name]; dup {
			return nil, fmt.Errorf("monitor %s listed twice", name)
		}
		topo[name] = lumen.Geometry{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
	}
	return topo, nil
}

func defaultNodeID(identity string) string {
	if identity == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			identity = host
		} else {
			identity = "local"
		}
	}
	return "lumen:host:" + identity
}
