package x11

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// Monitors returns the geometry of every active output keyed by connector
// name.
func (c *Connection) Monitors() (lumen.Topology, error) {
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	topo := lumen.Topology{}
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTCs report a zero mode.
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name = string(outputInfo.Name)
		}

		topo[name] = lumen.Geometry{
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
	}
	return topo, nil
}

// WatchScreenChanges sends on out whenever RandR reports a screen, CRTC or
// output change. It returns when ctx ends or the connection closes.
func (c *Connection) WatchScreenChanges(ctx context.Context, out chan<- struct{}) error {
	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(c.XUtil.Conn(), c.Root, mask).Check(); err != nil {
		return fmt.Errorf("randr select input: %w", err)
	}

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	for {
		ev, xerr := c.XUtil.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("x connection closed")
		}
		if xerr != nil {
			continue
		}
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
