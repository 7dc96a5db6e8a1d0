package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/internal/ports"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Service orchestrates lumen CLI use cases.
type Service struct {
	Broker   ports.Broker
	Resolver Resolver
	Clock    ports.Clock
	IDGen    ports.IDGen
	Config   Config
}

// ListNodes returns presence entries, optionally filtered by kind.
func (s Service) ListNodes(ctx context.Context, kind string) (NodesResult, error) {
	nodes, err := s.Broker.ListPresence(ctx)
	if err != nil {
		return NodesResult{}, WrapError(ExitRuntime, "list nodes", err)
	}
	if kind != "" {
		nodes = filterPresenceByKind(nodes, kind)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })
	return NodesResult{Nodes: nodes}, nil
}

// Status returns the host's retained state, asking the host directly when
// it does not publish one.
func (s Service) Status(ctx context.Context, selector string) (StatusResult, error) {
	host, err := s.Resolver.ResolveHost(ctx, selector)
	if err != nil {
		return StatusResult{}, err
	}
	state, err := s.Broker.GetHostState(ctx, host.NodeID)
	if err == nil {
		return StatusResult{Host: host, State: state}, nil
	}
	if ctx.Err() != nil {
		return StatusResult{}, WrapError(ExitRuntime, "get host state", err)
	}

	reply, err := s.send(ctx, host, lumen.CmdState, lumen.EmptyBody{})
	if err != nil {
		return StatusResult{}, err
	}
	var body lumen.StateBody
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		return StatusResult{}, WrapError(ExitRuntime, "decode state reply", err)
	}
	return StatusResult{Host: host, State: lumen.HostState{State: body.State, TS: reply.TS}}, nil
}

// WatchStatus streams retained state updates for a host.
func (s Service) WatchStatus(ctx context.Context, selector string) (lumen.Presence, <-chan lumen.HostState, <-chan error, error) {
	host, err := s.Resolver.ResolveHost(ctx, selector)
	if err != nil {
		return lumen.Presence{}, nil, nil, err
	}
	states, errs := s.Broker.WatchHost(ctx, host.NodeID)
	return host, states, errs, nil
}

// Apply validates the wallpaper config locally and sends it to the host.
func (s Service) Apply(ctx context.Context, selector string, configJSON string, launchMode string) (CommandResult, error) {
	if _, err := lumen.ParseWallpaperConfig(configJSON); err != nil {
		return CommandResult{}, WrapError(ExitUsage, "invalid wallpaper config", err)
	}
	if launchMode == "" {
		launchMode = string(lumen.DefaultLaunchMode)
	}
	if _, err := lumen.ParseLaunchMode(launchMode); err != nil {
		return CommandResult{}, WrapError(ExitUsage, "invalid launch mode", err)
	}
	return s.resultCommand(ctx, selector, lumen.CmdApplyWallpaper, lumen.ApplyWallpaperBody{Config: configJSON, LaunchMode: launchMode})
}

// Disable tears down all wallpaper windows.
func (s Service) Disable(ctx context.Context, selector string) (CommandResult, error) {
	return s.resultCommand(ctx, selector, lumen.CmdDisableWallpaper, lumen.EmptyBody{})
}

// Pause pauses playback.
func (s Service) Pause(ctx context.Context, selector string) (CommandResult, error) {
	return s.resultCommand(ctx, selector, lumen.CmdPause, lumen.EmptyBody{})
}

// Resume resumes playback.
func (s Service) Resume(ctx context.Context, selector string) (CommandResult, error) {
	return s.resultCommand(ctx, selector, lumen.CmdResume, lumen.EmptyBody{})
}

// Quit asks the host to shut down.
func (s Service) Quit(ctx context.Context, selector string) (CommandResult, error) {
	host, err := s.Resolver.ResolveHost(ctx, selector)
	if err != nil {
		return CommandResult{}, err
	}
	if _, err := s.send(ctx, host, lumen.CmdQuit, lumen.EmptyBody{}); err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Host: host, Command: lumen.CmdQuit, Result: true}, nil
}

// Err reports a rejected state transition as an ExitRejected error.
func (r CommandResult) Err() error {
	if r.Result {
		return nil
	}
	return &CLIError{Code: ExitRejected, Msg: fmt.Sprintf("%s rejected by %s", r.Command, r.Host.Name)}
}

// PreviewLayout compiles configJSON against topo without contacting a host.
func PreviewLayout(configJSON string, topo lumen.Topology) (LayoutResult, error) {
	cfg, err := lumen.ParseWallpaperConfig(configJSON)
	if err != nil {
		return LayoutResult{}, WrapError(ExitUsage, "invalid wallpaper config", err)
	}
	if len(topo) == 0 {
		return LayoutResult{}, &CLIError{Code: ExitUsage, Msg: "at least one --monitor is required"}
	}
	return LayoutResult{Mode: cfg.Mode, Topology: topo, Layout: layout.Compile(cfg, topo)}, nil
}

// ParseMonitors builds a topology from NAME=WxH+X+Y specs.
func ParseMonitors(specs []string) (lumen.Topology, error) {
	topo := lumen.Topology{}
	for _, spec := range specs {
		name, geom, err := lumen.ParseMonitorSpec(spec)
		if err != nil {
			return nil, WrapError(ExitUsage, "invalid monitor", err)
		}
		if _, dup := topo[name]; dup {
			return nil, &CLIError{Code: ExitUsage, Msg: fmt.Sprintf("monitor %s given twice", name)}
		}
		topo[name] = geom
	}
	return topo, nil
}

func (s Service) resultCommand(ctx context.Context, selector string, cmdType string, body any) (CommandResult, error) {
	host, err := s.Resolver.ResolveHost(ctx, selector)
	if err != nil {
		return CommandResult{}, err
	}
	reply, err := s.send(ctx, host, cmdType, body)
	if err != nil {
		return CommandResult{}, err
	}
	var result lumen.ResultBody
	if err := json.Unmarshal(reply.Body, &result); err != nil {
		return CommandResult{}, WrapError(ExitRuntime, "decode reply", err)
	}
	return CommandResult{Host: host, Command: cmdType, Result: result.Result}, nil
}

func (s Service) send(ctx context.Context, host lumen.Presence, cmdType string, body any) (lumen.ReplyEnvelope, error) {
	cmd, err := lumen.NewCommand(cmdType, body)
	if err != nil {
		return lumen.ReplyEnvelope{}, WrapError(ExitRuntime, "build command", err)
	}
	cmd = s.decorateCommand(cmd)
	reply, err := s.Broker.PublishCommand(ctx, host.NodeID, cmd)
	if err != nil {
		return lumen.ReplyEnvelope{}, WrapError(ExitRuntime, "publish command", err)
	}
	if reply.Err != nil {
		return lumen.ReplyEnvelope{}, ErrorForReplyCode(reply.Err.Code, replyMessage(cmdType, reply.Err))
	}
	if !reply.OK {
		return lumen.ReplyEnvelope{}, &CLIError{Code: ExitRuntime, Msg: cmdType + " failed"}
	}
	return reply, nil
}

func (s Service) decorateCommand(cmd lumen.CommandEnvelope) lumen.CommandEnvelope {
	cmd.ID = s.IDGen.NewID()
	cmd.TS = s.Clock.NowUnix()
	cmd.From = s.Config.Identity
	cmd.ReplyTo = s.Broker.ReplyTopic()
	return cmd
}

func replyMessage(cmdType string, replyErr *lumen.ReplyError) string {
	msg := strings.TrimSpace(replyErr.Message)
	if msg == "" {
		msg = strings.ToLower(replyErr.Code)
	}
	return fmt.Sprintf("%s: %s", cmdType, msg)
}
