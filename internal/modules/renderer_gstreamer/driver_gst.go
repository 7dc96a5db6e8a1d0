//go:build gstreamer

package renderergstreamer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
)

var gstInitOnce sync.Once

func newLauncher() (launcher, error) {
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	return launchPipeline, nil
}

// gstPipeline wraps a parsed pipeline and loops it on end of stream.
type gstPipeline struct {
	mu       sync.Mutex
	pipeline *gst.Pipeline
	done     chan struct{}
	stopOnce sync.Once
}

func launchPipeline(description string) (pipeline, error) {
	p, err := gst.NewPipelineFromString(description)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	g := &gstPipeline{pipeline: p, done: make(chan struct{})}
	go g.watchBus()
	return g, nil
}

func (g *gstPipeline) Play() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		return errors.New("pipeline stopped")
	}
	return g.pipeline.SetState(gst.StatePlaying)
}

func (g *gstPipeline) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		return errors.New("pipeline stopped")
	}
	return g.pipeline.SetState(gst.StatePaused)
}

func (g *gstPipeline) Stop() error {
	g.stopOnce.Do(func() {
		close(g.done)
	})
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		return nil
	}
	err := g.pipeline.SetState(gst.StateNull)
	g.pipeline = nil
	return err
}

func (g *gstPipeline) SetVolume(volume float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		return nil
	}
	return g.pipeline.SetProperty("volume", volume)
}

func (g *gstPipeline) SetMute(mute bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline == nil {
		return nil
	}
	return g.pipeline.SetProperty("mute", mute)
}

// watchBus rewinds on end of stream so wallpapers loop forever.
func (g *gstPipeline) watchBus() {
	g.mu.Lock()
	if g.pipeline == nil {
		g.mu.Unlock()
		return
	}
	bus := g.pipeline.GetPipelineBus()
	g.mu.Unlock()

	for {
		select {
		case <-g.done:
			return
		default:
		}
		msg := bus.TimedPopFiltered(200*time.Millisecond, gst.MessageEOS|gst.MessageError)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			g.mu.Lock()
			if g.pipeline != nil {
				_ = g.pipeline.SeekSimple(gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit, 0)
			}
			g.mu.Unlock()
		case gst.MessageError:
			return
		}
	}
}
