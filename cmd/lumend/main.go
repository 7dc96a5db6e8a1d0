package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/mikey-austin/lumen/internal/adapters/mqttserver"
	"github.com/mikey-austin/lumen/internal/lumend"
	embeddedmqtt "github.com/mikey-austin/lumen/internal/modules/embedded_mqtt"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

type flags struct {
	configPath  string
	wallpaper   string
	launchMode  string
	daemon      bool
	broker      string
	identity    string
	topicBase   string
	logLevel    string
	logFormat   string
	logOutput   string
	logUTC      bool
	printConfig bool
	dryRun      bool
}

func main() {
	var f flags

	defaultConfig, err := lumend.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&f.configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&f.wallpaper, "wallpaper", "", "wallpaper config JSON, or a path to a JSON file")
	flag.StringVar(&f.launchMode, "launch-mode", "", "launch mode ("+strings.Join(launchModeNames(), "|")+")")
	flag.BoolVar(&f.daemon, "daemon", false, "serve remote control and restore the last wallpaper")
	flag.StringVar(&f.broker, "broker", "", "MQTT broker URL override")
	flag.StringVar(&f.identity, "identity", "", "host identity override")
	flag.StringVar(&f.topicBase, "topic-base", "", "topic base override")
	flag.StringVar(&f.logLevel, "log-level", "", "log level override")
	flag.StringVar(&f.logFormat, "log-format", "", "log format override (text|json)")
	flag.StringVar(&f.logOutput, "log-output", "", "log output override (stdout|stderr)")
	flag.BoolVar(&f.logUTC, "log-utc", false, "use UTC timestamps in logs")
	flag.BoolVar(&f.printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&f.dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := loadConfig(f.configPath, defaultConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, f)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(2)
	}

	startup, err := resolveStartup(cfg, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if f.printConfig {
		if err := printResolvedConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if f.dryRun {
		return
	}

	logger := lumend.NewLogger(lumend.LogConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
		Output: cfg.Server.LogOutput,
		UTC:    cfg.Server.LogUTC,
	})
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Modules.EmbeddedMQTT.Enabled && cfg.Server.Broker == embeddedBrokerURL(cfg) {
		if err := startEmbeddedBroker(ctx, cfg, logger, cancel); err != nil {
			logger.Error("embedded mqtt failed", zap.Error(err))
			os.Exit(1)
		}
	}

	if f.daemon && cfg.Server.Broker == "" && !cfg.DBus.Enabled {
		logger.Warn("daemon mode without a broker or dbus has no remote control")
	}
	logger.Info("lumend starting",
		zap.String("broker", cfg.Server.Broker),
		zap.String("node_id", cfg.Host.NodeID),
		zap.String("topic_base", cfg.Server.TopicBase),
		zap.String("topology", cfg.Topology.Provider),
		zap.String("video_backend", cfg.Renderer.VideoBackend),
		zap.String("web_backend", cfg.Renderer.WebBackend),
		zap.Bool("daemon", f.daemon),
		zap.Bool("dbus", cfg.DBus.Enabled),
	)

	var client *mqttserver.Client
	if cfg.Server.Broker != "" {
		client, err = mqttserver.NewClient(mqttserver.Options{
			BrokerURL: cfg.Server.Broker,
			ClientID:  fmt.Sprintf("lumend-%d", time.Now().UnixNano()),
			Username:  cfg.Server.Auth.User,
			Password:  cfg.Server.Auth.Pass,
			TLSCA:     cfg.Server.TLS.CA,
			TLSCert:   cfg.Server.TLS.Cert,
			TLSKey:    cfg.Server.TLS.Key,
			Timeout:   2 * time.Second,
			Will: &mqttserver.Will{
				Topic:    lumen.TopicPresence(cfg.Server.TopicBase, cfg.Host.NodeID),
				Retained: true,
			},
			Logger: logger.With(zap.String("module", "mqtt")),
			Debug:  strings.EqualFold(cfg.Server.LogLevel, "debug"),
		})
		if err != nil {
			logger.Error("mqtt connection failed", zap.Error(err))
			os.Exit(1)
		}
		defer client.Close()
	}

	app, err := buildApp(cfg, f.configPath, client, logger, cancel)
	if err != nil {
		logger.Error("failed to build host", zap.Error(err))
		os.Exit(1)
	}
	defer app.close()

	modules := append(app.modules, startupModule(app, startup, logger))
	supervisor := lumend.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("lumend stopped")
}

func loadConfig(path string, defaultPath string) (lumend.Config, error) {
	cfg, err := lumend.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	// Only the default config may be absent.
	if path == defaultPath && errors.Is(err, os.ErrNotExist) {
		return lumend.Config{}, nil
	}
	return cfg, err
}

func applyOverrides(cfg *lumend.Config, f flags) {
	if f.broker != "" {
		cfg.Server.Broker = f.broker
	}
	if f.identity != "" {
		cfg.Server.Identity = f.identity
	}
	if f.topicBase != "" {
		cfg.Server.TopicBase = f.topicBase
	}
	if f.logLevel != "" {
		cfg.Server.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Server.LogFormat = f.logFormat
	}
	if f.logOutput != "" {
		cfg.Server.LogOutput = f.logOutput
	}
	if f.logUTC {
		cfg.Server.LogUTC = true
	}
	if f.launchMode != "" {
		cfg.Host.LaunchMode = f.launchMode
	}
	if cfg.Server.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
}

// startup is what lumend does once the host is running.
type startup struct {
	restore    bool
	configJSON string
	launchMode string
}

// resolveStartup checks the startup wallpaper up front so a bad -wallpaper
// fails before anything is launched.
func resolveStartup(cfg lumend.Config, f flags) (startup, error) {
	if f.daemon {
		if f.wallpaper != "" {
			return startup{}, errors.New("-wallpaper cannot be combined with -daemon; the daemon restores the last applied wallpaper")
		}
		return startup{restore: true}, nil
	}
	if f.wallpaper == "" {
		return startup{}, errors.New("-wallpaper is required unless -daemon is set")
	}
	configJSON, err := readWallpaper(f.wallpaper)
	if err != nil {
		return startup{}, err
	}
	if _, err := lumen.ParseWallpaperConfig(configJSON); err != nil {
		return startup{}, err
	}
	launchMode := cfg.Host.LaunchMode
	if launchMode == "" {
		launchMode = string(lumen.DefaultLaunchMode)
	}
	if _, err := lumen.ParseLaunchMode(launchMode); err != nil {
		return startup{}, err
	}
	return startup{configJSON: configJSON, launchMode: launchMode}, nil
}

// readWallpaper accepts inline JSON or a file path.
func readWallpaper(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return "", fmt.Errorf("read wallpaper config: %w", err)
	}
	return string(data), nil
}

func launchModeNames() []string {
	out := []string{}
	for _, mode := range lumen.LaunchModes() {
		out = append(out, string(mode))
	}
	return out
}

func printResolvedConfig(w io.Writer, cfg lumend.Config) error {
	redacted := cfg
	if redacted.Server.Auth.Pass != "" {
		redacted.Server.Auth.Pass = "<redacted>"
	}
	if redacted.Modules.EmbeddedMQTT.Password != "" {
		redacted.Modules.EmbeddedMQTT.Password = "<redacted>"
	}
	return toml.NewEncoder(w).Encode(redacted)
}

func embeddedBrokerURL(cfg lumend.Config) string {
	mqttCfg := embeddedConfig(cfg)
	listen := mqttCfg.Listen
	if listen == "" {
		listen = embeddedmqtt.DefaultListen
	}
	return embeddedmqtt.BrokerURL(listen, mqttCfg.TLSEnabled())
}

func embeddedConfig(cfg lumend.Config) embeddedmqtt.Config {
	return embeddedmqtt.Config{
		Listen:         cfg.Modules.EmbeddedMQTT.Listen,
		AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
		Username:       cfg.Modules.EmbeddedMQTT.Username,
		Password:       cfg.Modules.EmbeddedMQTT.Password,
		TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
		TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
		TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
		TopicBase:      cfg.Server.TopicBase,
	}
}

func startEmbeddedBroker(ctx context.Context, cfg lumend.Config, logger *zap.Logger, cancel context.CancelFunc) error {
	mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedConfig(cfg))
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- mod.Run(ctx)
	}()
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedded mqtt exited", zap.Error(err))
			cancel()
		}
	}()

	listen := cfg.Modules.EmbeddedMQTT.Listen
	if listen == "" {
		listen = embeddedmqtt.DefaultListen
	}
	return waitForListen(listen, 3*time.Second)
}

func waitForListen(listen string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("embedded mqtt not ready at %s", addr)
}
