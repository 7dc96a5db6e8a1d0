package wallpapercore

import "go.uber.org/zap"

type registryEntry struct {
	renderer Renderer
	mirrorOf string
}

// Registry maps monitor ids to the renderers showing on them. Clones record
// the monitor they mirror instead of holding a pointer to it.
type Registry struct {
	order   []string
	entries map[string]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]registryEntry{}}
}

// Has reports whether monitor already has a renderer.
func (r *Registry) Has(monitor string) bool {
	_, ok := r.entries[monitor]
	return ok
}

// Add registers a renderer for monitor. mirrorOf is empty for primaries. A
// renderer already registered for monitor is stopped; Add returns the error
// of that Stop.
func (r *Registry) Add(monitor string, renderer Renderer, mirrorOf string) error {
	old, ok := r.entries[monitor]
	if !ok {
		r.order = append(r.order, monitor)
	}
	r.entries[monitor] = registryEntry{renderer: renderer, mirrorOf: mirrorOf}
	if ok && old.renderer != nil && old.renderer != renderer {
		return guard(old.renderer.Stop)
	}
	return nil
}

// Get returns the renderer for monitor.
func (r *Registry) Get(monitor string) (Renderer, bool) {
	entry, ok := r.entries[monitor]
	return entry.renderer, ok
}

// MirrorOf returns the monitor a clone mirrors.
func (r *Registry) MirrorOf(monitor string) string {
	return r.entries[monitor].mirrorOf
}

// Len returns the number of renderers.
func (r *Registry) Len() int {
	return len(r.order)
}

// Monitors returns monitor ids in insertion order.
func (r *Registry) Monitors() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every renderer in insertion order.
func (r *Registry) Each(fn func(monitor string, renderer Renderer)) {
	for _, monitor := range r.order {
		fn(monitor, r.entries[monitor].renderer)
	}
}

// Clear stops every renderer, clones before the primaries they mirror, and
// empties the registry. Renderers implementing AsyncStopper are all asked to
// stop before Clear waits on any of them.
func (r *Registry) Clear(log *zap.Logger) {
	type pendingStop struct {
		monitor string
		wait    func() error
	}
	var waits []pendingStop
	for pass := 0; pass < 2; pass++ {
		wantClone := pass == 0
		for i := len(r.order) - 1; i >= 0; i-- {
			monitor := r.order[i]
			entry := r.entries[monitor]
			if (entry.mirrorOf != "") != wantClone {
				continue
			}
			stop := entry.renderer.Stop
			if async, ok := entry.renderer.(AsyncStopper); ok {
				stop = func() error {
					if wait := async.BeginStop(); wait != nil {
						waits = append(waits, pendingStop{monitor: monitor, wait: wait})
					}
					return nil
				}
			}
			if err := guard(stop); err != nil {
				log.Warn("renderer stop failed", zap.String("monitor", monitor), zap.Error(err))
			}
		}
	}
	for _, p := range waits {
		if err := guard(p.wait); err != nil {
			log.Warn("renderer stop failed", zap.String("monitor", p.monitor), zap.Error(err))
		}
	}
	r.order = nil
	r.entries = map[string]registryEntry{}
}
