// Package mqtt is the controller side of the lumen MQTT protocol.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mikey-austin/lumen/internal/adapters/mqttserver"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Options configures the MQTT client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLSCA     string
	TLSCert   string
	TLSKey    string
	TopicBase string
	Timeout   time.Duration
}

// Client is an MQTT adapter implementing the Broker port.
type Client struct {
	client     paho.Client
	replyTopic string
	topicBase  string
	timeout    time.Duration

	mu            sync.Mutex
	replyHandlers map[string]chan lumen.ReplyEnvelope
}

// NewClient creates and connects an MQTT client.
func NewClient(opts Options) (*Client, error) {
	if opts.TopicBase == "" {
		opts.TopicBase = lumen.BaseTopic
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}

	c := &Client{
		replyTopic:    lumen.TopicReply(opts.TopicBase, opts.ClientID),
		topicBase:     opts.TopicBase,
		timeout:       opts.Timeout,
		replyHandlers: map[string]chan lumen.ReplyEnvelope{},
	}

	clientOpts := paho.NewClientOptions().AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetConnectTimeout(opts.Timeout)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetOnConnectHandler(func(client paho.Client) {
		token := client.Subscribe(c.replyTopic, 1, c.handleReply)
		token.Wait()
	})

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	tlsConfig, err := mqttserver.BuildTLSConfig(opts.TLSCA, opts.TLSCert, opts.TLSKey)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		clientOpts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(clientOpts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	if token := c.client.Subscribe(c.replyTopic, 1, c.handleReply); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return c, nil
}

// ReplyTopic returns the topic used for replies.
func (c *Client) ReplyTopic() string {
	return c.replyTopic
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

// PublishCommand publishes a command and waits for a reply.
func (c *Client) PublishCommand(ctx context.Context, nodeID string, cmd lumen.CommandEnvelope) (lumen.ReplyEnvelope, error) {
	req, err := json.Marshal(cmd)
	if err != nil {
		return lumen.ReplyEnvelope{}, fmt.Errorf("marshal command: %w", err)
	}

	replyCh := make(chan lumen.ReplyEnvelope, 1)
	c.mu.Lock()
	c.replyHandlers[cmd.ID] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.replyHandlers, cmd.ID)
		c.mu.Unlock()
	}()

	topic := lumen.TopicCommands(c.topicBase, nodeID)
	if token := c.client.Publish(topic, 1, false, req); token.Wait() && token.Error() != nil {
		return lumen.ReplyEnvelope{}, token.Error()
	}

	select {
	case <-ctx.Done():
		return lumen.ReplyEnvelope{}, ctx.Err()
	case reply := <-replyCh:
		return reply, nil
	case <-time.After(c.timeout):
		return lumen.ReplyEnvelope{}, errors.New("timeout waiting for reply")
	}
}

// ListPresence collects retained presence messages.
func (c *Client) ListPresence(ctx context.Context) ([]lumen.Presence, error) {
	collect := make(map[string]lumen.Presence)
	var collectMu sync.Mutex

	handler := func(_ paho.Client, msg paho.Message) {
		presence, ok := decodePresence(msg.Payload())
		if !ok {
			return
		}
		collectMu.Lock()
		collect[presence.NodeID] = presence
		collectMu.Unlock()
	}

	topic := fmt.Sprintf("%s/node/+/presence", c.topicBase)
	if token := c.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	defer func() {
		token := c.client.Unsubscribe(topic)
		token.Wait()
	}()

	wait := time.NewTimer(250 * time.Millisecond)
	select {
	case <-ctx.Done():
		wait.Stop()
	case <-wait.C:
	}

	collectMu.Lock()
	defer collectMu.Unlock()
	out := make([]lumen.Presence, 0, len(collect))
	for _, presence := range collect {
		out = append(out, presence)
	}
	return out, nil
}

// GetHostState returns the retained host state.
func (c *Client) GetHostState(ctx context.Context, nodeID string) (lumen.HostState, error) {
	stateCh := make(chan lumen.HostState, 1)
	handler := func(_ paho.Client, msg paho.Message) {
		state, ok := decodeState(msg.Payload())
		if !ok {
			return
		}
		select {
		case stateCh <- state:
		default:
		}
	}

	topic := lumen.TopicState(c.topicBase, nodeID)
	if token := c.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return lumen.HostState{}, token.Error()
	}
	defer func() {
		token := c.client.Unsubscribe(topic)
		token.Wait()
	}()

	select {
	case <-ctx.Done():
		return lumen.HostState{}, ctx.Err()
	case state := <-stateCh:
		return state, nil
	case <-time.After(c.timeout):
		return lumen.HostState{}, errors.New("timeout waiting for state")
	}
}

// WatchHost streams state updates for a host until ctx ends.
func (c *Client) WatchHost(ctx context.Context, nodeID string) (<-chan lumen.HostState, <-chan error) {
	stateCh := make(chan lumen.HostState, 8)
	errCh := make(chan error, 1)

	var closed bool
	var closeMu sync.Mutex
	handler := func(_ paho.Client, msg paho.Message) {
		state, ok := decodeState(msg.Payload())
		if !ok {
			return
		}
		closeMu.Lock()
		defer closeMu.Unlock()
		if closed {
			return
		}
		select {
		case stateCh <- state:
		default:
		}
	}

	topic := lumen.TopicState(c.topicBase, nodeID)
	if token := c.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		errCh <- token.Error()
		close(stateCh)
		close(errCh)
		return stateCh, errCh
	}

	go func() {
		<-ctx.Done()
		c.client.Unsubscribe(topic).Wait()
		closeMu.Lock()
		closed = true
		close(stateCh)
		close(errCh)
		closeMu.Unlock()
	}()

	return stateCh, errCh
}

func (c *Client) handleReply(_ paho.Client, msg paho.Message) {
	var reply lumen.ReplyEnvelope
	if err := json.Unmarshal(msg.Payload(), &reply); err != nil {
		return
	}

	c.mu.Lock()
	ch, ok := c.replyHandlers[reply.ID]
	c.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- reply:
	default:
	}
}

// decodePresence skips cleared (empty) retained messages.
func decodePresence(payload []byte) (lumen.Presence, bool) {
	if len(payload) == 0 {
		return lumen.Presence{}, false
	}
	var presence lumen.Presence
	if err := json.Unmarshal(payload, &presence); err != nil || presence.NodeID == "" {
		return lumen.Presence{}, false
	}
	return presence, true
}

func decodeState(payload []byte) (lumen.HostState, bool) {
	if len(payload) == 0 {
		return lumen.HostState{}, false
	}
	var state lumen.HostState
	if err := json.Unmarshal(payload, &state); err != nil || state.State == "" {
		return lumen.HostState{}, false
	}
	return state, true
}
