package renderergstreamer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

type fakePipeline struct {
	desc   string
	calls  []string
	volume float64
	muted  bool
}

func (p *fakePipeline) Play() error  { p.calls = append(p.calls, "play"); return nil }
func (p *fakePipeline) Pause() error { p.calls = append(p.calls, "pause"); return nil }
func (p *fakePipeline) Stop() error  { p.calls = append(p.calls, "stop"); return nil }
func (p *fakePipeline) SetVolume(v float64) error {
	p.volume = v
	return nil
}
func (p *fakePipeline) SetMute(m bool) error {
	p.muted = m
	return nil
}

type fakeLauncher struct {
	pipes []*fakePipeline
}

func (f *fakeLauncher) launch(desc string) (pipeline, error) {
	p := &fakePipeline{desc: desc}
	f.pipes = append(f.pipes, p)
	return p, nil
}

type placeCall struct {
	pid     int
	title   string
	geom    lumen.Geometry
	desktop bool
}

type fakePlacer struct {
	mu    sync.Mutex
	calls []placeCall
}

func (f *fakePlacer) Place(ctx context.Context, pid int, title string, geom lumen.Geometry, desktop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, placeCall{pid: pid, title: title, geom: geom, desktop: desktop})
	return nil
}

func (f *fakePlacer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func primaryWindow() layout.Window {
	return layout.Window{
		Kind:          layout.Primary,
		Monitor:       "DP-1",
		Geometry:      lumen.Geometry{X: 1920, Y: 0, Width: 2560, Height: 1440},
		Title:         "Live Wallpaper - DP-1",
		WallpaperType: lumen.WallpaperVideo,
		Source:        lumen.Source{Kind: lumen.SourceFilepath, Value: "/videos/sea.mp4"},
	}
}

func TestBuildPipelineDefault(t *testing.T) {
	got := BuildPipeline("", "", primaryWindow(), "file:///videos/sea.mp4", lumen.FitContain)
	want := `playbin uri="file:///videos/sea.mp4" video-sink="videoconvert ! videoscale add-borders=true ! video/x-raw,width=2560,height=1440,pixel-aspect-ratio=1/1 ! videoconvert ! xvimagesink"`
	if got != want {
		t.Fatalf("unexpected pipeline\n got: %s\nwant: %s", got, want)
	}
}

func TestVideoSinkChainFits(t *testing.T) {
	win := primaryWindow()
	if chain := VideoSinkChain("glimagesink", win, lumen.FitFill); !strings.Contains(chain, "add-borders=false") || !strings.HasSuffix(chain, "glimagesink") {
		t.Fatalf("fill should stretch: %s", chain)
	}
	if chain := VideoSinkChain("", win, lumen.FitCover); !strings.Contains(chain, "aspectratiocrop aspect-ratio=2560/1440") {
		t.Fatalf("cover should crop to aspect: %s", chain)
	}
	if chain := VideoSinkChain("", win, lumen.FitScaleDown); strings.Contains(chain, "aspectratiocrop") || !strings.Contains(chain, "add-borders=true") {
		t.Fatalf("scale down should letterbox: %s", chain)
	}
}

func TestVideoSinkChainViewport(t *testing.T) {
	win := primaryWindow()
	win.Geometry = lumen.Geometry{X: 1920, Y: 600, Width: 2560, Height: 1440}
	win.Viewport = &layout.Viewport{OffsetX: 1920, OffsetY: 600, CanvasWidth: 5920, CanvasHeight: 2680}
	chain := VideoSinkChain("", win, lumen.FitFill)
	if !strings.Contains(chain, "width=5920,height=2680") {
		t.Fatalf("viewport windows scale to the canvas: %s", chain)
	}
	if !strings.Contains(chain, "videocrop left=1920 top=600 right=1440 bottom=640") {
		t.Fatalf("unexpected crop: %s", chain)
	}
}

func TestRendererLifecycle(t *testing.T) {
	fl := &fakeLauncher{}
	placer := &fakePlacer{}
	b := newBackend(zap.NewNop(), Config{Placer: placer}, fl.launch)

	r, err := b.Open(primaryWindow(), lumen.LaunchX11Desktop)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(fl.pipes) != 0 {
		t.Fatalf("pipeline should be built lazily")
	}
	if err := r.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(fl.pipes) != 1 || !strings.Contains(fl.pipes[0].desc, "file:///videos/sea.mp4") {
		t.Fatalf("unexpected pipelines %+v", fl.pipes)
	}
	if err := r.SetVolume(0.4); err != nil || fl.pipes[0].volume != 0.4 {
		t.Fatalf("volume not applied")
	}
	if err := r.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want := []string{"play", "pause", "stop"}
	if strings.Join(fl.pipes[0].calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", fl.pipes[0].calls)
	}

	deadline := time.Now().Add(2 * time.Second)
	for placer.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("window never placed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	call := placer.calls[0]
	if !call.desktop || call.title != "Live Wallpaper - DP-1" || call.geom.Width != 2560 {
		t.Fatalf("unexpected placement %+v", call)
	}
}

func TestMirrorIsSilent(t *testing.T) {
	fl := &fakeLauncher{}
	b := newBackend(nil, Config{}, fl.launch)
	r, _ := b.Open(primaryWindow(), lumen.LaunchWindowed)
	_ = r.Play()

	clone := layout.Window{Kind: layout.Clone, Monitor: "DP-2", Geometry: lumen.Geometry{Width: 1440, Height: 2560}, CloneSource: "DP-1"}
	m, err := r.Mirror(clone)
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("mirror play: %v", err)
	}
	if len(fl.pipes) != 2 {
		t.Fatalf("mirror should own a pipeline")
	}
	mp := fl.pipes[1]
	if !mp.muted || !strings.Contains(mp.desc, "file:///videos/sea.mp4") || !strings.Contains(mp.desc, "width=1440,height=2560") {
		t.Fatalf("unexpected mirror pipeline %+v", mp)
	}
	_ = m.SetMute(false)
	_ = m.SetVolume(1)
	if !mp.muted || mp.volume != 0 {
		t.Fatalf("mirror must stay silent")
	}
}

func TestContentFitRebuilds(t *testing.T) {
	fl := &fakeLauncher{}
	b := newBackend(nil, Config{}, fl.launch)
	r, _ := b.Open(primaryWindow(), lumen.LaunchWaylandLayerShell)

	if err := r.SetContentFit(lumen.FitCover); err != nil || len(fl.pipes) != 0 {
		t.Fatalf("fit before play should not launch")
	}
	_ = r.Play()
	if !strings.Contains(fl.pipes[0].desc, "aspectratiocrop") {
		t.Fatalf("initial pipeline should honour stored fit")
	}
	if err := r.SetContentFit(lumen.FitCover); err != nil || len(fl.pipes) != 1 {
		t.Fatalf("unchanged fit should not rebuild")
	}
	if err := r.SetContentFit(lumen.FitFill); err != nil {
		t.Fatalf("refit: %v", err)
	}
	if len(fl.pipes) != 2 {
		t.Fatalf("expected rebuild, got %d pipelines", len(fl.pipes))
	}
	if last := fl.pipes[0].calls[len(fl.pipes[0].calls)-1]; last != "stop" {
		t.Fatalf("old pipeline should be stopped")
	}
	if fl.pipes[1].calls[0] != "play" {
		t.Fatalf("playing renderer should keep playing after refit")
	}
}

func TestOpenRejectsClone(t *testing.T) {
	b := newBackend(nil, Config{}, (&fakeLauncher{}).launch)
	if _, err := b.Open(layout.Window{Kind: layout.Clone}, lumen.LaunchWindowed); err == nil {
		t.Fatalf("expected error opening clone window")
	}
}
