package lumen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// WallpaperMode selects how configured sources are arranged over monitors.
type WallpaperMode string

const (
	ModePerMonitor    WallpaperMode = "wallpaper_per_monitor"
	ModeCloneSingle   WallpaperMode = "clone_single_wallpaper"
	ModeStretchSingle WallpaperMode = "stretch_single_wallpaper"
)

// WallpaperType is the kind of content a primary window renders.
type WallpaperType string

const (
	WallpaperVideo WallpaperType = "video"
	WallpaperWeb   WallpaperType = "web"
)

// SourceKind distinguishes local files from URIs.
type SourceKind int

const (
	SourceFilepath SourceKind = iota
	SourceURI
)

// Source locates the content of a primary window.
type Source struct {
	Kind  SourceKind
	Value string
}

// URI returns the source as a URI, converting local paths to file URIs.
func (s Source) URI() string {
	if s.Kind == SourceURI {
		return s.Value
	}
	if strings.HasPrefix(s.Value, "/") {
		return "file://" + s.Value
	}
	return s.Value
}

func (s Source) String() string {
	return s.Value
}

// MonitorConfig is one entry of a wallpaper config. An entry carrying a
// wallpaper type is a primary; one without is a clone.
type MonitorConfig struct {
	Monitor       string
	Primary       bool
	WallpaperType WallpaperType
	Source        Source
	CloneSource   *string
}

// WallpaperConfig is the declarative wallpaper arrangement.
type WallpaperConfig struct {
	Mode     WallpaperMode   `json:"mode"`
	Monitors []MonitorConfig `json:"monitors"`
}

// ConfigParseError reports a malformed wallpaper config.
type ConfigParseError struct {
	Msg string
	Err error
}

func (e *ConfigParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid wallpaper config: %s: %v", e.Msg, e.Err)
	}
	return "invalid wallpaper config: " + e.Msg
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// ParseWallpaperConfig decodes a JSON wallpaper config.
func ParseWallpaperConfig(data string) (WallpaperConfig, error) {
	var cfg WallpaperConfig
	if strings.TrimSpace(data) == "" {
		return cfg, &ConfigParseError{Msg: "empty config"}
	}
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		var perr *ConfigParseError
		if errors.As(err, &perr) {
			return WallpaperConfig{}, perr
		}
		return WallpaperConfig{}, &ConfigParseError{Msg: "decode", Err: err}
	}
	if cfg.Mode == "" {
		return WallpaperConfig{}, &ConfigParseError{Msg: "mode is required"}
	}
	if cfg.Monitors == nil {
		return WallpaperConfig{}, &ConfigParseError{Msg: "monitors is required"}
	}
	return cfg, nil
}

// FirstPrimary returns the first primary entry, if any.
func (c WallpaperConfig) FirstPrimary() (MonitorConfig, bool) {
	for _, entry := range c.Monitors {
		if entry.Primary {
			return entry, true
		}
	}
	return MonitorConfig{}, false
}

// UnmarshalJSON validates the mode value.
func (m *WallpaperMode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ConfigParseError{Msg: "mode must be a string", Err: err}
	}
	switch WallpaperMode(raw) {
	case ModePerMonitor, ModeCloneSingle, ModeStretchSingle:
		*m = WallpaperMode(raw)
		return nil
	default:
		return &ConfigParseError{Msg: fmt.Sprintf("unknown mode %q", raw)}
	}
}

// UnmarshalJSON validates the wallpaper type value.
func (t *WallpaperType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ConfigParseError{Msg: "wallpaper_type must be a string", Err: err}
	}
	switch WallpaperType(raw) {
	case WallpaperVideo, WallpaperWeb:
		*t = WallpaperType(raw)
		return nil
	default:
		return &ConfigParseError{Msg: fmt.Sprintf("unknown wallpaper_type %q", raw)}
	}
}

type monitorConfigJSON struct {
	Monitor       *string        `json:"monitor"`
	WallpaperType *WallpaperType `json:"wallpaper_type,omitempty"`
	Filepath      *string        `json:"filepath,omitempty"`
	URI           *string        `json:"uri,omitempty"`
	CloneSource   *string        `json:"clone_source,omitempty"`
}

// UnmarshalJSON decodes the untagged primary/clone variants.
func (m *MonitorConfig) UnmarshalJSON(data []byte) error {
	var raw monitorConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		var perr *ConfigParseError
		if errors.As(err, &perr) {
			return perr
		}
		return &ConfigParseError{Msg: "monitor entry", Err: err}
	}
	if raw.Monitor == nil || strings.TrimSpace(*raw.Monitor) == "" {
		return &ConfigParseError{Msg: "monitor entry requires monitor"}
	}

	out := MonitorConfig{Monitor: *raw.Monitor}
	if raw.WallpaperType == nil {
		if raw.Filepath != nil || raw.URI != nil {
			return &ConfigParseError{Msg: fmt.Sprintf("monitor %s: source given without wallpaper_type", out.Monitor)}
		}
		out.CloneSource = raw.CloneSource
		*m = out
		return nil
	}

	out.Primary = true
	out.WallpaperType = *raw.WallpaperType
	switch {
	case raw.Filepath != nil && raw.URI != nil:
		return &ConfigParseError{Msg: fmt.Sprintf("monitor %s: filepath and uri are exclusive", out.Monitor)}
	case raw.Filepath != nil:
		out.Source = Source{Kind: SourceFilepath, Value: *raw.Filepath}
	case raw.URI != nil:
		out.Source = Source{Kind: SourceURI, Value: *raw.URI}
	default:
		return &ConfigParseError{Msg: fmt.Sprintf("monitor %s: filepath or uri required", out.Monitor)}
	}
	*m = out
	return nil
}

// MarshalJSON encodes the entry in the same untagged shape it is read from.
func (m MonitorConfig) MarshalJSON() ([]byte, error) {
	raw := monitorConfigJSON{Monitor: &m.Monitor}
	if m.Primary {
		wt := m.WallpaperType
		raw.WallpaperType = &wt
		value := m.Source.Value
		if m.Source.Kind == SourceURI {
			raw.URI = &value
		} else {
			raw.Filepath = &value
		}
	} else {
		raw.CloneSource = m.CloneSource
	}
	return json.Marshal(raw)
}
