package wallpaperhost

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikey-austin/lumen/internal/adapters/mqttserver"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
	Unsubscribe(topic string) error
}

type submitter interface {
	Submit(ctx context.Context, cmd wallpapercore.Command) (wallpapercore.Reply, error)
	Post(cmd wallpapercore.Command) error
}

// Config configures the MQTT wallpaper host module.
type Config struct {
	NodeID       string
	TopicBase    string
	Name         string
	PublishState bool
	// CommandTimeout bounds how long a remote caller waits on the owner.
	// Zero waits until the owner replies or shuts down.
	CommandTimeout time.Duration
}

// Module accepts remote commands over MQTT and forwards them to the host
// owner.
type Module struct {
	log      *zap.Logger
	client   mqttClient
	channel  submitter
	config   Config
	cmdTopic string
	states   chan wallpapercore.Status

	mu      sync.Mutex
	callers map[string]*callerQueue
}

// callerQueue holds the commands of one caller that are waiting for the
// owner. At most one drain goroutine runs per queue.
type callerQueue struct {
	pending []lumen.CommandEnvelope
}

// NewModule creates the MQTT acceptor.
func NewModule(log *zap.Logger, client *mqttserver.Client, channel *wallpapercore.Channel, cfg Config) (*Module, error) {
	if client == nil {
		return nil, errors.New("mqtt client required")
	}
	if channel == nil {
		return nil, errors.New("command channel required")
	}
	return newModule(log, client, channel, cfg)
}

func newModule(log *zap.Logger, client mqttClient, channel submitter, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, errors.New("node_id required")
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = lumen.BaseTopic
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "Wallpaper Host"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{
		log:      log,
		client:   client,
		channel:  channel,
		config:   cfg,
		cmdTopic: lumen.TopicCommands(cfg.TopicBase, cfg.NodeID),
		states:   make(chan wallpapercore.Status, 1),
		callers:  make(map[string]*callerQueue),
	}, nil
}

// Notify queues a host status for publication. It never blocks; only the
// newest pending status is kept.
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

// Run publishes presence and serves commands until ctx ends.
func (m *Module) Run(ctx context.Context) error {
	if err := m.publishPresence(); err != nil {
		return err
	}
	if m.config.PublishState {
		if err := m.publishState(wallpapercore.Status{State: wallpapercore.Idle}); err != nil {
			return err
		}
		go m.runStatePublisher(ctx)
	}

	handler := func(_ paho.Client, msg paho.Message) {
		m.handleMessage(ctx, msg)
	}
	if err := m.client.Subscribe(m.cmdTopic, 1, handler); err != nil {
		return err
	}
	defer m.client.Unsubscribe(m.cmdTopic)

	m.log.Info("wallpaper host listening", zap.String("topic", m.cmdTopic))
	<-ctx.Done()

	// An empty retained payload clears presence for controllers.
	if err := m.client.Publish(lumen.TopicPresence(m.config.TopicBase, m.config.NodeID), 1, true, nil); err != nil {
		m.log.Warn("clear presence failed", zap.Error(err))
	}
	return nil
}

func (m *Module) publishPresence() error {
	presence := lumen.Presence{
		NodeID: m.config.NodeID,
		Kind:   "wallpaper",
		Name:   m.config.Name,
		Caps: map[string]any{
			"modes":       []lumen.WallpaperMode{lumen.ModePerMonitor, lumen.ModeCloneSingle, lumen.ModeStretchSingle},
			"launchModes": lumen.LaunchModes(),
		},
		TS: time.Now().Unix(),
	}
	payload, err := json.Marshal(presence)
	if err != nil {
		return err
	}
	return m.client.Publish(lumen.TopicPresence(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

func (m *Module) runStatePublisher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-m.states:
			if err := m.publishState(st); err != nil {
				m.log.Warn("publish state failed", zap.Error(err))
			}
		}
	}
}

func (m *Module) publishState(st wallpapercore.Status) error {
	payload, err := json.Marshal(HostState(st))
	if err != nil {
		return err
	}
	return m.client.Publish(lumen.TopicState(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

// HostState converts an owner status into its wire form.
func HostState(st wallpapercore.Status) lumen.HostState {
	return lumen.HostState{
		State:      st.State.String(),
		Mode:       string(st.Mode),
		LaunchMode: string(st.LaunchMode),
		Windows:    st.Windows,
		Monitors:   st.Monitors,
		TS:         time.Now().Unix(),
	}
}

// handleMessage runs on the MQTT client's callback. It decodes and validates
// synchronously so commands are queued in arrival order; commands from one
// caller reach the owner one at a time and in that order.
func (m *Module) handleMessage(ctx context.Context, msg paho.Message) {
	var cmd lumen.CommandEnvelope
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		m.log.Warn("invalid command", zap.Error(err))
		return
	}
	if err := lumen.ValidateCommandEnvelope(cmd); err != nil {
		m.log.Warn("invalid command envelope", zap.String("id", cmd.ID), zap.Error(err))
		m.publishReply(cmd.ReplyTo, errorReply(cmd, lumen.CodeInvalid, err.Error()))
		return
	}
	m.enqueue(ctx, cmd)
}

func callerKey(cmd lumen.CommandEnvelope) string {
	if cmd.From != "" {
		return cmd.From
	}
	return cmd.ReplyTo
}

func (m *Module) enqueue(ctx context.Context, cmd lumen.CommandEnvelope) {
	key := callerKey(cmd)
	m.mu.Lock()
	q, running := m.callers[key]
	if !running {
		q = &callerQueue{}
		m.callers[key] = q
	}
	q.pending = append(q.pending, cmd)
	m.mu.Unlock()
	if !running {
		go m.drainCaller(ctx, key, q)
	}
}

func (m *Module) drainCaller(ctx context.Context, key string, q *callerQueue) {
	for {
		m.mu.Lock()
		if len(q.pending) == 0 {
			delete(m.callers, key)
			m.mu.Unlock()
			return
		}
		cmd := q.pending[0]
		q.pending = q.pending[1:]
		m.mu.Unlock()

		m.publishReply(cmd.ReplyTo, m.dispatch(ctx, cmd))
	}
}

func (m *Module) publishReply(replyTo string, reply lumen.ReplyEnvelope) {
	if replyTo == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		m.log.Warn("encode reply failed", zap.Error(err))
		return
	}
	if err := m.client.Publish(replyTo, 1, false, payload); err != nil {
		m.log.Warn("publish reply failed", zap.String("reply_to", replyTo), zap.Error(err))
	}
}

func (m *Module) dispatch(ctx context.Context, cmd lumen.CommandEnvelope) lumen.ReplyEnvelope {
	switch cmd.Type {
	case lumen.CmdApplyWallpaper:
		var body lumen.ApplyWallpaperBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, lumen.CodeInvalid, "invalid body")
		}
		return m.submitResult(ctx, cmd, wallpapercore.ApplyWallpaper(body.Config, body.LaunchMode))
	case lumen.CmdDisableWallpaper:
		return m.submitResult(ctx, cmd, wallpapercore.DisableWallpaper())
	case lumen.CmdPause:
		return m.submitResult(ctx, cmd, wallpapercore.Pause())
	case lumen.CmdResume:
		return m.submitResult(ctx, cmd, wallpapercore.Resume())
	case lumen.CmdState:
		reply, failure := m.submit(ctx, cmd, wallpapercore.GetState())
		if failure != nil {
			return *failure
		}
		return ackReply(cmd, lumen.StateBody{State: reply.State.String()})
	case lumen.CmdQuit:
		if err := m.channel.Post(wallpapercore.Quit()); err != nil {
			return errorReply(cmd, lumen.CodeUnavailable, err.Error())
		}
		return ackReply(cmd, nil)
	default:
		return errorReply(cmd, lumen.CodeUnsupported, "unsupported command")
	}
}

func (m *Module) submitResult(ctx context.Context, cmd lumen.CommandEnvelope, hostCmd wallpapercore.Command) lumen.ReplyEnvelope {
	reply, failure := m.submit(ctx, cmd, hostCmd)
	if failure != nil {
		return *failure
	}
	return ackReply(cmd, lumen.ResultBody{Result: reply.OK})
}

func (m *Module) submit(ctx context.Context, cmd lumen.CommandEnvelope, hostCmd wallpapercore.Command) (wallpapercore.Reply, *lumen.ReplyEnvelope) {
	if m.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CommandTimeout)
		defer cancel()
	}
	reply, err := m.channel.Submit(ctx, hostCmd)
	if err != nil {
		m.log.Warn("command not delivered", zap.String("id", cmd.ID), zap.Stringer("command", hostCmd.Kind), zap.Error(err))
		failure := errorReply(cmd, lumen.CodeUnavailable, err.Error())
		return reply, &failure
	}
	if reply.Err != nil {
		failure := errorReply(cmd, wallpapercore.ErrorCode(reply.Err), reply.Err.Error())
		return reply, &failure
	}
	return reply, nil
}

func ackReply(cmd lumen.CommandEnvelope, body any) lumen.ReplyEnvelope {
	reply := lumen.ReplyEnvelope{ID: cmd.ID, Type: "ack", OK: true, TS: time.Now().Unix()}
	if body != nil {
		if payload, err := json.Marshal(body); err == nil {
			reply.Body = payload
		}
	}
	return reply
}

func errorReply(cmd lumen.CommandEnvelope, code string, message string) lumen.ReplyEnvelope {
	return lumen.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "error",
		OK:   false,
		TS:   time.Now().Unix(),
		Err:  &lumen.ReplyError{Code: code, Message: message},
	}
}
