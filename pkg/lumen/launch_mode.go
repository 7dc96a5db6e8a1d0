package lumen

import (
	"fmt"
	"strings"
)

// LaunchMode tells backends how wallpaper windows are presented to the
// window system.
type LaunchMode string

const (
	LaunchX11Desktop        LaunchMode = "x11-desktop"
	LaunchWaylandLayerShell LaunchMode = "wayland-layer-shell"
	LaunchGnomeExtHanabi    LaunchMode = "gnome-ext-hanabi"
	LaunchWindowed          LaunchMode = "windowed"
)

// DefaultLaunchMode is used when no launch mode is configured.
const DefaultLaunchMode = LaunchWindowed

// UnknownLaunchModeError reports an unrecognised launch mode string.
type UnknownLaunchModeError struct {
	Value string
}

func (e *UnknownLaunchModeError) Error() string {
	return fmt.Sprintf("unknown launch mode %q", e.Value)
}

// ParseLaunchMode parses a launch mode label.
func ParseLaunchMode(value string) (LaunchMode, error) {
	switch LaunchMode(strings.TrimSpace(value)) {
	case LaunchX11Desktop:
		return LaunchX11Desktop, nil
	case LaunchWaylandLayerShell:
		return LaunchWaylandLayerShell, nil
	case LaunchGnomeExtHanabi:
		return LaunchGnomeExtHanabi, nil
	case LaunchWindowed:
		return LaunchWindowed, nil
	default:
		return "", &UnknownLaunchModeError{Value: value}
	}
}

// LaunchModes lists every accepted launch mode.
func LaunchModes() []LaunchMode {
	return []LaunchMode{LaunchX11Desktop, LaunchWaylandLayerShell, LaunchGnomeExtHanabi, LaunchWindowed}
}

func (m LaunchMode) String() string {
	return string(m)
}

// X11Placed reports whether windows in this mode are positioned through the
// X server. Layer-shell and extension modes are positioned by the
// compositor.
func (m LaunchMode) X11Placed() bool {
	return m == LaunchX11Desktop || m == LaunchWindowed
}
