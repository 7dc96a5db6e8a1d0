package core

import (
	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// NodesResult holds a list of presence records.
type NodesResult struct {
	Nodes []lumen.Presence
}

// StatusResult holds host presence and its retained state.
type StatusResult struct {
	Host  lumen.Presence
	State lumen.HostState
}

// CommandResult reports the outcome of a host command.
type CommandResult struct {
	Host    lumen.Presence
	Command string
	Result  bool
	State   string
}

// LayoutResult is an offline layout preview.
type LayoutResult struct {
	Mode     lumen.WallpaperMode
	Topology lumen.Topology
	Layout   layout.Layout
}
