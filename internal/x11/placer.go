package x11

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Placer finds renderer windows by owning process and moves them onto their
// monitor. A window is handed out at most once while it exists, so several
// renderers inside one process are matched in the order they ask.
type Placer struct {
	conn     *Connection
	interval time.Duration

	mu      sync.Mutex
	claimed map[xproto.Window]bool
}

// NewPlacer creates a placer on conn.
func NewPlacer(conn *Connection) *Placer {
	return &Placer{conn: conn, interval: 100 * time.Millisecond, claimed: map[xproto.Window]bool{}}
}

// Place waits for an unclaimed top-level window owned by pid, titles it and
// places it on geom. With pid <= 0 the window is matched by title instead.
// It gives up when ctx ends.
func (p *Placer) Place(ctx context.Context, pid int, title string, geom lumen.Geometry, desktop bool) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if win, ok := p.claim(pid, title); ok {
			if title != "" {
				_ = ewmh.WmNameSet(p.conn.XUtil, win, title)
			}
			return p.conn.PlaceWallpaper(win, geom, desktop)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("no window for pid %d title %q: %w", pid, title, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Placer) claim(pid int, title string) (xproto.Window, bool) {
	clients, err := ewmh.ClientListGet(p.conn.XUtil)
	if err != nil {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	live := make(map[xproto.Window]bool, len(clients))
	for _, win := range clients {
		live[win] = true
	}
	for win := range p.claimed {
		if !live[win] {
			delete(p.claimed, win)
		}
	}

	for _, win := range clients {
		if p.claimed[win] {
			continue
		}
		if pid > 0 {
			owner, err := ewmh.WmPidGet(p.conn.XUtil, win)
			if err != nil || int(owner) != pid {
				continue
			}
		} else if p.conn.windowTitle(win) != title {
			continue
		}
		p.claimed[win] = true
		return win, true
	}
	return 0, false
}
