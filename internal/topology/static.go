// Package topology provides monitor topology sources for the wallpaper host.
package topology

import (
	"sync"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Static serves a fixed topology that can be replaced at runtime.
type Static struct {
	mu      sync.Mutex
	topo    lumen.Topology
	changes chan struct{}
}

// NewStatic creates a provider for topo.
func NewStatic(topo lumen.Topology) *Static {
	return &Static{topo: copyTopology(topo), changes: make(chan struct{}, 1)}
}

// FromSpecs builds a static provider from NAME=WxH+X+Y specs.
func FromSpecs(specs []string) (*Static, error) {
	topo := lumen.Topology{}
	for _, spec := range specs {
		name, geom, err := lumen.ParseMonitorSpec(spec)
		if err != nil {
			return nil, err
		}
		topo[name] = geom
	}
	return NewStatic(topo), nil
}

// Snapshot returns a copy of the current topology.
func (s *Static) Snapshot() (lumen.Topology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTopology(s.topo), nil
}

// Changes signals after Set replaces the topology.
func (s *Static) Changes() <-chan struct{} {
	return s.changes
}

// Set replaces the topology and signals a change when it differs.
func (s *Static) Set(topo lumen.Topology) {
	s.mu.Lock()
	changed := !s.topo.Equal(topo)
	s.topo = copyTopology(topo)
	s.mu.Unlock()
	if changed {
		notify(s.changes)
	}
}

func copyTopology(topo lumen.Topology) lumen.Topology {
	out := make(lumen.Topology, len(topo))
	for name, geom := range topo {
		out[name] = geom
	}
	return out
}

// notify performs a coalescing send: pending signals are not duplicated.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
