package topology

import (
	"context"
	"sync"
	"time"

	"github.com/mikey-austin/lumen/internal/x11"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// DefaultSettle is how long RandR events are gathered before one change is
// reported.
const DefaultSettle = 500 * time.Millisecond

// X11 reads the topology from RandR and reports output changes.
type X11 struct {
	log     *zap.Logger
	query   *x11.Connection
	settle  time.Duration
	changes chan struct{}

	mu   sync.Mutex
	last lumen.Topology
}

// NewX11 connects to the X server.
func NewX11(log *zap.Logger, settle time.Duration) (*X11, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &X11{log: log, query: conn, settle: settle, changes: make(chan struct{}, 1)}, nil
}

// Snapshot queries the current outputs.
func (p *X11) Snapshot() (lumen.Topology, error) {
	topo, err := p.query.Monitors()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.last = copyTopology(topo)
	p.mu.Unlock()
	return topo, nil
}

// Changes signals when the set or geometry of outputs changed.
func (p *X11) Changes() <-chan struct{} {
	return p.changes
}

// Run watches RandR events on a dedicated connection until ctx ends.
func (p *X11) Run(ctx context.Context) error {
	defer p.query.Close()

	watch, err := x11.NewConnection()
	if err != nil {
		return err
	}
	raw := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- watch.WatchScreenChanges(ctx, raw)
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case <-raw:
			if timer == nil {
				timer = time.NewTimer(p.settle)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			p.checkChanged()
		}
	}
}

func (p *X11) checkChanged() {
	topo, err := p.query.Monitors()
	if err != nil {
		p.log.Warn("topology query failed", zap.Error(err))
		return
	}
	p.mu.Lock()
	changed := !p.last.Equal(topo)
	p.mu.Unlock()
	if !changed {
		p.log.Debug("randr event without topology change")
		return
	}
	p.log.Info("monitor topology changed", zap.Strings("monitors", topo.Names()))
	notify(p.changes)
}
