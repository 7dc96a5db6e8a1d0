package lumen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Geometry is a monitor or window rectangle in global screen coordinates.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// Topology maps monitor connector names to their geometry.
type Topology map[string]Geometry

// Names returns the connector names in lexicographic order.
func (t Topology) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two topologies describe the same monitors.
func (t Topology) Equal(other Topology) bool {
	if len(t) != len(other) {
		return false
	}
	for name, geom := range t {
		if og, ok := other[name]; !ok || og != geom {
			return false
		}
	}
	return true
}

// ParseMonitorSpec parses NAME=WIDTHxHEIGHT+X+Y.
func ParseMonitorSpec(spec string) (string, Geometry, error) {
	name, rest, ok := strings.Cut(strings.TrimSpace(spec), "=")
	if !ok || strings.TrimSpace(name) == "" {
		return "", Geometry{}, fmt.Errorf("monitor spec %q: expected NAME=WxH+X+Y", spec)
	}
	size, offsets, ok := strings.Cut(rest, "+")
	if !ok {
		return "", Geometry{}, fmt.Errorf("monitor spec %q: missing offset", spec)
	}
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return "", Geometry{}, fmt.Errorf("monitor spec %q: size must be WxH", spec)
	}
	x, y, ok := strings.Cut(offsets, "+")
	if !ok {
		return "", Geometry{}, fmt.Errorf("monitor spec %q: offset must be +X+Y", spec)
	}

	values := make([]int, 0, 4)
	for _, part := range []string{w, h, x, y} {
		n, err := strconv.Atoi(part)
		if err != nil {
			return "", Geometry{}, fmt.Errorf("monitor spec %q: %w", spec, err)
		}
		values = append(values, n)
	}
	if values[0] <= 0 || values[1] <= 0 {
		return "", Geometry{}, fmt.Errorf("monitor spec %q: size must be positive", spec)
	}
	return strings.TrimSpace(name), Geometry{Width: values[0], Height: values[1], X: values[2], Y: values[3]}, nil
}
