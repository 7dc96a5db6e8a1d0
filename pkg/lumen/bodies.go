package lumen

// ApplyWallpaperBody is the payload for wallpaper.apply.
type ApplyWallpaperBody struct {
	Config     string `json:"config"`
	LaunchMode string `json:"launchMode"`
}

// EmptyBody is the payload for commands without arguments.
type EmptyBody struct{}

// ResultBody is the reply body for boolean host commands.
type ResultBody struct {
	Result bool `json:"result"`
}

// StateBody is the reply body for host.state.
type StateBody struct {
	State string `json:"state"`
}
