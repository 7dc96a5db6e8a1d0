// Package dbushost exposes the wallpaper host on the desktop session bus so
// local tools can drive it without a broker.
package dbushost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

const (
	DefaultBusName    = "dev.lumen.Host"
	DefaultObjectPath = "/dev/lumen/Host"
	Interface         = "dev.lumen.Host"
)

// Error names returned to bus callers.
const (
	ErrorInvalid     = Interface + ".Error.Invalid"
	ErrorUnavailable = Interface + ".Error.Unavailable"
	ErrorInternal    = Interface + ".Error.Internal"
)

type submitter interface {
	Submit(ctx context.Context, cmd wallpapercore.Command) (wallpapercore.Reply, error)
	Post(cmd wallpapercore.Command) error
}

// Config configures the D-Bus acceptor.
type Config struct {
	BusName        string
	ObjectPath     string
	SystemBus      bool
	CommandTimeout time.Duration
	// Settle is how long a call waits for earlier calls from the same sender
	// before running. Zero uses DefaultSettle.
	Settle time.Duration
}

// Module owns the bus connection and the exported host object.
type Module struct {
	log    *zap.Logger
	object *hostObject
	config Config
	states chan wallpapercore.Status
}

// NewModule creates the D-Bus acceptor.
func NewModule(log *zap.Logger, channel *wallpapercore.Channel, cfg Config) (*Module, error) {
	if channel == nil {
		return nil, errors.New("command channel required")
	}
	return newModule(log, channel, cfg), nil
}

func newModule(log *zap.Logger, channel submitter, cfg Config) *Module {
	if strings.TrimSpace(cfg.BusName) == "" {
		cfg.BusName = DefaultBusName
	}
	if strings.TrimSpace(cfg.ObjectPath) == "" {
		cfg.ObjectPath = DefaultObjectPath
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{
		log: log,
		object: &hostObject{
			log:     log,
			channel: channel,
			timeout: cfg.CommandTimeout,
			order:   newSequencer(cfg.Settle),
		},
		config: cfg,
		states: make(chan wallpapercore.Status, 1),
	}
}

// Notify queues a status for the exported properties; the newest wins.
func (m *Module) Notify(st wallpapercore.Status) {
	for {
		select {
		case m.states <- st:
			return
		default:
		}
		select {
		case <-m.states:
		default:
		}
	}
}

// Run connects to the bus, claims the name and serves calls until ctx ends.
func (m *Module) Run(ctx context.Context) error {
	conn, err := m.connect()
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	path := dbus.ObjectPath(m.config.ObjectPath)
	if !path.IsValid() {
		return fmt.Errorf("invalid object path %q", m.config.ObjectPath)
	}
	if err := conn.Export(m.object, path, Interface); err != nil {
		return fmt.Errorf("dbus export: %w", err)
	}

	props, err := prop.Export(conn, path, prop.Map{
		Interface: {
			"State":      {Value: wallpapercore.Idle.String(), Writable: false, Emit: prop.EmitTrue},
			"Mode":       {Value: "", Writable: false, Emit: prop.EmitTrue},
			"LaunchMode": {Value: "", Writable: false, Emit: prop.EmitTrue},
			"Monitors":   {Value: []string{}, Writable: false, Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return fmt.Errorf("dbus properties: %w", err)
	}

	node := &introspect.Node{
		Name: m.config.ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       Interface,
				Methods:    introspect.Methods(m.object),
				Properties: props.Introspection(Interface),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("dbus introspect: %w", err)
	}

	reply, err := conn.RequestName(m.config.BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("dbus request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("dbus name %s already taken", m.config.BusName)
	}
	m.log.Info("dbus host exported", zap.String("name", m.config.BusName), zap.String("path", m.config.ObjectPath))

	for {
		select {
		case <-ctx.Done():
			_, _ = conn.ReleaseName(m.config.BusName)
			return nil
		case st := <-m.states:
			props.SetMust(Interface, "State", st.State.String())
			props.SetMust(Interface, "Mode", string(st.Mode))
			props.SetMust(Interface, "LaunchMode", string(st.LaunchMode))
			monitors := st.Monitors
			if monitors == nil {
				monitors = []string{}
			}
			props.SetMust(Interface, "Monitors", monitors)
		}
	}
}

func (m *Module) connect() (*dbus.Conn, error) {
	if m.config.SystemBus {
		return dbus.ConnectSystemBus()
	}
	return dbus.ConnectSessionBus()
}

// hostObject carries the exported bus methods. Each method blocks the
// calling bus goroutine until the owner replies. The leading dbus.Message
// parameter is filled in by the bus library and is not part of the method
// signature; calls from one sender reach the owner in serial order.
type hostObject struct {
	log     *zap.Logger
	channel submitter
	timeout time.Duration
	order   *sequencer
}

func (o *hostObject) ApplyWallpaper(msg dbus.Message, config string, launchMode string) (bool, *dbus.Error) {
	return o.result(msg, wallpapercore.ApplyWallpaper(config, launchMode))
}

func (o *hostObject) DisableWallpaper(msg dbus.Message) (bool, *dbus.Error) {
	return o.result(msg, wallpapercore.DisableWallpaper())
}

func (o *hostObject) Pause(msg dbus.Message) (bool, *dbus.Error) {
	return o.result(msg, wallpapercore.Pause())
}

func (o *hostObject) Resume(msg dbus.Message) (bool, *dbus.Error) {
	return o.result(msg, wallpapercore.Resume())
}

func (o *hostObject) GetState(msg dbus.Message) (string, *dbus.Error) {
	reply, derr := o.submit(msg, wallpapercore.GetState())
	if derr != nil {
		return "", derr
	}
	return reply.State.String(), nil
}

func (o *hostObject) Quit(msg dbus.Message) *dbus.Error {
	var err error
	sender, serial := callerOf(msg)
	o.order.do(sender, serial, func() {
		err = o.channel.Post(wallpapercore.Quit())
	})
	if err != nil {
		return busError(err)
	}
	return nil
}

func (o *hostObject) result(msg dbus.Message, cmd wallpapercore.Command) (bool, *dbus.Error) {
	reply, derr := o.submit(msg, cmd)
	if derr != nil {
		return false, derr
	}
	return reply.OK, nil
}

func (o *hostObject) submit(msg dbus.Message, cmd wallpapercore.Command) (wallpapercore.Reply, *dbus.Error) {
	var (
		reply wallpapercore.Reply
		err   error
	)
	sender, serial := callerOf(msg)
	o.order.do(sender, serial, func() {
		ctx := context.Background()
		if o.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}
		reply, err = o.channel.Submit(ctx, cmd)
	})
	if err == nil {
		err = reply.Err
	}
	if err != nil {
		o.log.Warn("dbus command failed", zap.Stringer("command", cmd.Kind), zap.Error(err))
		return reply, busError(err)
	}
	return reply, nil
}

func busError(err error) *dbus.Error {
	name := ErrorInternal
	switch wallpapercore.ErrorCode(err) {
	case lumen.CodeInvalid:
		name = ErrorInvalid
	case lumen.CodeUnavailable:
		name = ErrorUnavailable
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}
