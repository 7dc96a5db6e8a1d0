package renderergstreamer

import (
	"fmt"
	"strings"

	"github.com/mikey-austin/lumen/internal/layout"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

const (
	// DefaultPipeline plays any URI through playbin, which owns volume and
	// mute.
	DefaultPipeline = `playbin uri="{uri}" video-sink="{video_sink}"`
	// DefaultVideoSink draws into an X11 window.
	DefaultVideoSink = "xvimagesink"
)

// BuildPipeline expands a pipeline template for one window.
//
// Placeholders: {uri}, {video_sink}, {width}, {height}, {title}, {monitor}.
func BuildPipeline(template string, sink string, win layout.Window, uri string, fit lumen.ContentFit) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPipeline
	}
	r := strings.NewReplacer(
		"{uri}", uri,
		"{video_sink}", VideoSinkChain(sink, win, fit),
		"{width}", fmt.Sprintf("%d", win.Geometry.Width),
		"{height}", fmt.Sprintf("%d", win.Geometry.Height),
		"{title}", win.Title,
		"{monitor}", win.Monitor,
	)
	return r.Replace(template)
}

// VideoSinkChain builds the bin feeding sink. Frames are scaled to the
// window, or to the shared canvas and then cropped to the window's region
// when the window has a viewport.
//
// Fill stretches, Contain letterboxes and Cover crops the source to the
// target aspect ratio before scaling. ScaleDown is treated as Contain since
// the source size is only known once the stream is negotiated.
func VideoSinkChain(sink string, win layout.Window, fit lumen.ContentFit) string {
	if strings.TrimSpace(sink) == "" {
		sink = DefaultVideoSink
	}
	width, height := win.Geometry.Width, win.Geometry.Height
	if win.Viewport != nil {
		width, height = win.Viewport.CanvasWidth, win.Viewport.CanvasHeight
	}

	parts := []string{"videoconvert"}
	if fit == lumen.FitCover && width > 0 && height > 0 {
		parts = append(parts, fmt.Sprintf("aspectratiocrop aspect-ratio=%d/%d", width, height))
	}
	borders := fit != lumen.FitFill
	parts = append(parts,
		fmt.Sprintf("videoscale add-borders=%t", borders),
		fmt.Sprintf("video/x-raw,width=%d,height=%d,pixel-aspect-ratio=1/1", width, height),
	)
	if win.Viewport != nil {
		left, top, right, bottom := win.Viewport.Crop(win.Geometry.Width, win.Geometry.Height)
		parts = append(parts, fmt.Sprintf("videocrop left=%d top=%d right=%d bottom=%d", left, top, right, bottom))
	}
	parts = append(parts, "videoconvert", sink)
	return strings.Join(parts, " ! ")
}
