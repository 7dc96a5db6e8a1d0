// Package renderergstreamer renders video wallpapers with GStreamer
// pipelines, one pipeline per window.
package renderergstreamer

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/internal/modules/wallpaper_core"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// pipeline is a running media pipeline.
type pipeline interface {
	Play() error
	Pause() error
	Stop() error
	SetVolume(volume float64) error
	SetMute(mute bool) error
}

type launcher func(description string) (pipeline, error)

// Config configures the video backend.
type Config struct {
	Pipeline  string
	VideoSink string
	// Placer positions sink windows. Nil leaves placement to the sink.
	Placer       wallpapercore.WindowPlacer
	PlaceTimeout time.Duration
}

// Backend opens GStreamer renderers for video windows.
type Backend struct {
	log    *zap.Logger
	config Config
	launch launcher
}

// NewBackend creates a video backend.
func NewBackend(log *zap.Logger, cfg Config) (*Backend, error) {
	launch, err := newLauncher()
	if err != nil {
		return nil, err
	}
	return newBackend(log, cfg, launch), nil
}

func newBackend(log *zap.Logger, cfg Config, launch launcher) *Backend {
	if cfg.Pipeline == "" {
		cfg.Pipeline = DefaultPipeline
	}
	if cfg.VideoSink == "" {
		cfg.VideoSink = DefaultVideoSink
	}
	if cfg.PlaceTimeout <= 0 {
		cfg.PlaceTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{log: log, config: cfg, launch: launch}
}

// Open implements wallpapercore.Backend. The pipeline is built on the first
// Play.
func (b *Backend) Open(win layout.Window, mode lumen.LaunchMode) (wallpapercore.Renderer, error) {
	if win.Kind != layout.Primary {
		return nil, errors.New("video backend opens primary windows only")
	}
	return b.newRenderer(win, mode, win.Source.URI(), false), nil
}

func (b *Backend) newRenderer(win layout.Window, mode lumen.LaunchMode, uri string, mirror bool) *Renderer {
	return &Renderer{
		backend: b,
		win:     win,
		mode:    mode,
		uri:     uri,
		mirror:  mirror,
		fit:     lumen.FitContain,
		volume:  1.0,
	}
}

// Renderer plays one video window. It is driven only by the host owner.
type Renderer struct {
	backend *Backend
	win     layout.Window
	mode    lumen.LaunchMode
	uri     string
	mirror  bool

	fit    lumen.ContentFit
	volume float64
	muted  bool

	pipe    pipeline
	playing bool
	cancel  context.CancelFunc
}

// Play builds the pipeline if needed and starts it.
func (r *Renderer) Play() error {
	if r.pipe == nil {
		if err := r.build(); err != nil {
			return err
		}
	}
	if err := r.pipe.Play(); err != nil {
		return err
	}
	r.playing = true
	return nil
}

// Pause pauses the pipeline.
func (r *Renderer) Pause() error {
	if r.pipe == nil {
		return nil
	}
	if err := r.pipe.Pause(); err != nil {
		return err
	}
	r.playing = false
	return nil
}

// Stop tears the pipeline down.
func (r *Renderer) Stop() error {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.pipe == nil {
		return nil
	}
	err := r.pipe.Stop()
	r.pipe = nil
	r.playing = false
	return err
}

// SetVolume sets the audio volume (0..1). Mirrors stay silent.
func (r *Renderer) SetVolume(volume float64) error {
	r.volume = volume
	if r.pipe == nil || r.mirror {
		return nil
	}
	return r.pipe.SetVolume(volume)
}

// SetMute mutes or unmutes audio. Mirrors stay silent.
func (r *Renderer) SetMute(mute bool) error {
	r.muted = mute
	if r.pipe == nil || r.mirror {
		return nil
	}
	return r.pipe.SetMute(mute)
}

// SetContentFit changes scaling. A running pipeline is rebuilt since the
// scaling caps are fixed at launch.
func (r *Renderer) SetContentFit(fit lumen.ContentFit) error {
	if fit == r.fit {
		return nil
	}
	r.fit = fit
	if r.pipe == nil {
		return nil
	}
	wasPlaying := r.playing
	if err := r.Stop(); err != nil {
		r.backend.log.Warn("stop before refit failed", zap.String("monitor", r.win.Monitor), zap.Error(err))
	}
	if err := r.build(); err != nil {
		return err
	}
	if wasPlaying {
		return r.Play()
	}
	return r.pipe.Pause()
}

// Mirror opens an independent pipeline on the same source for win.
func (r *Renderer) Mirror(win layout.Window) (wallpapercore.Renderer, error) {
	m := r.backend.newRenderer(win, r.mode, r.uri, true)
	m.fit = r.fit
	return m, nil
}

func (r *Renderer) build() error {
	desc := BuildPipeline(r.backend.config.Pipeline, r.backend.config.VideoSink, r.win, r.uri, r.fit)
	pipe, err := r.backend.launch(desc)
	if err != nil {
		return err
	}
	r.pipe = pipe
	if r.mirror {
		_ = pipe.SetMute(true)
	} else {
		_ = pipe.SetVolume(r.volume)
		_ = pipe.SetMute(r.muted)
	}
	r.backend.log.Debug("video pipeline built", zap.String("monitor", r.win.Monitor), zap.String("pipeline", desc))
	r.place()
	return nil
}

// place positions the sink window in the background once it appears.
func (r *Renderer) place() {
	placer := r.backend.config.Placer
	if placer == nil || !r.mode.X11Placed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.backend.config.PlaceTimeout)
	r.cancel = cancel
	log := r.backend.log
	win := r.win
	desktop := r.mode == lumen.LaunchX11Desktop
	go func() {
		defer cancel()
		if err := placer.Place(ctx, os.Getpid(), win.Title, win.Geometry, desktop); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn("video window placement failed", zap.String("monitor", win.Monitor), zap.Error(err))
			}
			return
		}
		log.Debug("video window placed", zap.String("monitor", win.Monitor), zap.String("title", win.Title))
	}()
}
