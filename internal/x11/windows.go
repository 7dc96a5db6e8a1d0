package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

func (c *Connection) windowTitle(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return name
	}
	return ""
}

// PlaceWallpaper moves win onto geom. As a desktop window it is also typed
// _NET_WM_WINDOW_TYPE_DESKTOP, kept below other windows and shown on every
// workspace.
func (c *Connection) PlaceWallpaper(win xproto.Window, geom lumen.Geometry, desktop bool) error {
	if desktop {
		if err := ewmh.WmWindowTypeSet(c.XUtil, win, []string{"_NET_WM_WINDOW_TYPE_DESKTOP"}); err != nil {
			return fmt.Errorf("set window type: %w", err)
		}
		_ = ewmh.WmStateReqExtra(c.XUtil, win, ewmh.StateAdd, "_NET_WM_STATE_BELOW", "_NET_WM_STATE_STICKY", 2)
		_ = ewmh.WmStateReqExtra(c.XUtil, win, ewmh.StateAdd, "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER", 2)
	}

	if err := ewmh.MoveresizeWindow(c.XUtil, win, geom.X, geom.Y, geom.Width, geom.Height); err != nil {
		// Fall back to configuring the window directly.
		xwindow.New(c.XUtil, win).MoveResize(geom.X, geom.Y, geom.Width, geom.Height)
	}
	return nil
}
