package lumen

import (
	"fmt"
	"strings"
)

// ContentFit controls how content is scaled into a window.
type ContentFit int

const (
	FitFill ContentFit = iota
	FitContain
	FitCover
	FitScaleDown
)

var contentFitNames = map[ContentFit]string{
	FitFill:      "fill",
	FitContain:   "contain",
	FitCover:     "cover",
	FitScaleDown: "scale_down",
}

func (f ContentFit) String() string {
	if name, ok := contentFitNames[f]; ok {
		return name
	}
	return "contain"
}

// ContentFitFromInt maps the numeric setting, defaulting to contain.
func ContentFitFromInt(value int) ContentFit {
	switch value {
	case 0:
		return FitFill
	case 1:
		return FitContain
	case 2:
		return FitCover
	case 3:
		return FitScaleDown
	default:
		return FitContain
	}
}

// ParseContentFit accepts either a name or the numeric setting.
func ParseContentFit(value string) (ContentFit, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return FitContain, nil
	}
	for fit, name := range contentFitNames {
		if name == v {
			return fit, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
		return ContentFitFromInt(n), nil
	}
	return FitContain, fmt.Errorf("unknown content fit %q", value)
}

// RendererSettings are the per-renderer playback properties applied to every
// live renderer.
type RendererSettings struct {
	Volume     int
	Mute       bool
	ContentFit ContentFit
}

// DefaultRendererSettings returns full volume, unmuted, contain.
func DefaultRendererSettings() RendererSettings {
	return RendererSettings{Volume: 100, ContentFit: FitContain}
}

// VolumeFraction converts the 0..100 volume to 0..1, clamping out of range
// values.
func (s RendererSettings) VolumeFraction() float64 {
	v := s.Volume
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return float64(v) / 100.0
}
