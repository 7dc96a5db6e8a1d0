package lumen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BaseTopic is the default MQTT topic prefix for the protocol.
const BaseTopic = "lumen/v1"

// Command types accepted by a wallpaper host.
const (
	CmdApplyWallpaper   = "wallpaper.apply"
	CmdDisableWallpaper = "wallpaper.disable"
	CmdPause            = "playback.pause"
	CmdResume           = "playback.resume"
	CmdQuit             = "host.quit"
	CmdState            = "host.state"
)

// Reply error codes.
const (
	CodeInvalid     = "INVALID"
	CodeUnavailable = "UNAVAILABLE"
	CodeUnsupported = "UNSUPPORTED"
	CodeInternal    = "INTERNAL"
)

// CommandEnvelope is the common controller command envelope for MQTT.
type CommandEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	TS      int64           `json:"ts"`
	From    string          `json:"from"`
	ReplyTo string          `json:"replyTo,omitempty"`
	Body    json.RawMessage `json:"body"`
}

// ReplyEnvelope is the response envelope for commands.
type ReplyEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	OK   bool            `json:"ok"`
	TS   int64           `json:"ts"`
	Body json.RawMessage `json:"body,omitempty"`
	Err  *ReplyError     `json:"err,omitempty"`
}

// ReplyError describes an error response.
type ReplyError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// Presence describes a node presence payload.
type Presence struct {
	NodeID string         `json:"nodeId"`
	Kind   string         `json:"kind"`
	Name   string         `json:"name"`
	Caps   map[string]any `json:"caps,omitempty"`
	TS     int64          `json:"ts"`
}

// HostState is the retained state of a wallpaper host.
type HostState struct {
	State      string   `json:"state"`
	Mode       string   `json:"mode,omitempty"`
	LaunchMode string   `json:"launchMode,omitempty"`
	Windows    int      `json:"windows"`
	Monitors   []string `json:"monitors,omitempty"`
	TS         int64    `json:"ts"`
}

// NewCommand builds a command envelope with a JSON body.
func NewCommand(cmdType string, body any) (CommandEnvelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return CommandEnvelope{}, fmt.Errorf("marshal body: %w", err)
	}

	return CommandEnvelope{
		Type: cmdType,
		Body: payload,
	}, nil
}

// ValidateCommandEnvelope validates required envelope fields.
func ValidateCommandEnvelope(cmd CommandEnvelope) error {
	if strings.TrimSpace(cmd.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(cmd.Type) == "" {
		return errors.New("type is required")
	}
	if cmd.TS <= 0 {
		return errors.New("ts must be a positive unix timestamp")
	}
	if strings.TrimSpace(cmd.From) == "" {
		return errors.New("from is required")
	}
	if len(cmd.Body) == 0 {
		return errors.New("body is required")
	}
	return nil
}

// CommandExpectsReply reports whether the host answers a command with a
// result body. Quit is acknowledged but carries no result.
func CommandExpectsReply(cmdType string) bool {
	switch cmdType {
	case CmdApplyWallpaper, CmdDisableWallpaper, CmdPause, CmdResume, CmdState:
		return true
	default:
		return false
	}
}

// TopicPresence builds the presence topic for a node.
func TopicPresence(topicBase, nodeID string) string {
	return fmt.Sprintf("%s/node/%s/presence", topicBase, nodeID)
}

// TopicState builds the state topic for a node.
func TopicState(topicBase, nodeID string) string {
	return fmt.Sprintf("%s/node/%s/state", topicBase, nodeID)
}

// TopicCommands builds the command topic for a node.
func TopicCommands(topicBase, nodeID string) string {
	return fmt.Sprintf("%s/node/%s/cmd", topicBase, nodeID)
}

// TopicReply builds the reply topic for a controller instance.
func TopicReply(topicBase, controllerID string) string {
	return fmt.Sprintf("%s/reply/%s", topicBase, controllerID)
}
