// Package embeddedmqtt runs an in-process MQTT broker so a single lumend can
// serve remote control without an external broker.
package embeddedmqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"go.uber.org/zap"

	"github.com/mikey-austin/lumen/internal/adapters/mqttserver"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// DefaultListen is the loopback listener used when none is configured.
const DefaultListen = "127.0.0.1:1883"

// Config configures the embedded MQTT broker.
type Config struct {
	Listen         string
	AllowAnonymous bool
	Username       string
	Password       string
	TLSCA          string
	TLSCert        string
	TLSKey         string
	// TopicBase scopes the authenticated user's ACL.
	TopicBase string
}

// TLSEnabled reports whether any TLS material is configured.
func (c Config) TLSEnabled() bool {
	return c.TLSCert != "" || c.TLSKey != "" || c.TLSCA != ""
}

// Module runs an embedded MQTT broker.
type Module struct {
	log    *zap.Logger
	server *mqtt.Server
	config Config
}

// NewModule creates a new embedded broker module.
func NewModule(log *zap.Logger, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = lumen.BaseTopic
	}
	if log == nil {
		log = zap.NewNop()
	}

	server, err := newServer(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{log: log, server: server, config: cfg}, nil
}

// Run starts the embedded broker and closes it when ctx ends.
func (m *Module) Run(ctx context.Context) error {
	listenerConfig := listeners.Config{ID: "tcp-embedded", Address: m.config.Listen}
	if m.config.TLSEnabled() {
		tlsConfig, err := mqttserver.BuildTLSConfig(m.config.TLSCA, m.config.TLSCert, m.config.TLSKey)
		if err != nil {
			return err
		}
		if len(tlsConfig.Certificates) == 0 {
			return errors.New("embedded mqtt tls requires tls_cert and tls_key")
		}
		listenerConfig.TLSConfig = tlsConfig
	}

	listener := listeners.NewTCP(listenerConfig)
	if err := m.server.AddListener(listener); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- m.server.Serve()
	}()
	m.log.Info("embedded mqtt listening", zap.String("listen", m.config.Listen), zap.Bool("tls", m.config.TLSEnabled()))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			m.server.Close()
			return err
		}
		<-ctx.Done()
	}
	return m.server.Close()
}

// URL is the broker URL clients should dial.
func (m *Module) URL() string {
	return BrokerURL(m.config.Listen, m.config.TLSEnabled())
}

func newServer(log *zap.Logger, cfg Config) (*mqtt.Server, error) {
	options := &mqtt.Options{InlineClient: true, Logger: newSlogLogger(log)}
	server := mqtt.New(options)

	if cfg.AllowAnonymous {
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, err
		}
	} else if cfg.Username != "" {
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: newLedger(cfg)}); err != nil {
			return nil, err
		}
	} else {
		return nil, errors.New("embedded mqtt requires allow_anonymous or username")
	}

	return server, nil
}

// newLedger lets the configured user authenticate and use only the lumen
// topic tree.
func newLedger(cfg Config) *auth.Ledger {
	base := strings.TrimSuffix(cfg.TopicBase, "/")
	if base == "" {
		base = lumen.BaseTopic
	}
	return &auth.Ledger{
		Auth: auth.AuthRules{{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true}},
		ACL: auth.ACLRules{{
			Username: auth.RString(cfg.Username),
			Filters:  auth.Filters{auth.RString(base + "/#"): auth.ReadWrite},
		}},
	}
}

// BrokerURL returns the broker URL for a listen address.
func BrokerURL(listen string, tlsEnabled bool) string {
	scheme := "mqtt"
	if tlsEnabled {
		scheme = "mqtts"
	}
	return fmt.Sprintf("%s://%s", scheme, listen)
}
