package wallpapercore

// CommandKind tags a host command.
type CommandKind int

const (
	KindApplyWallpaper CommandKind = iota
	KindDisableWallpaper
	KindPause
	KindResume
	KindQuit
	KindGetState
)

func (k CommandKind) String() string {
	switch k {
	case KindApplyWallpaper:
		return "apply"
	case KindDisableWallpaper:
		return "disable"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindQuit:
		return "quit"
	case KindGetState:
		return "state"
	default:
		return "unknown"
	}
}

// Command is a request for the owner goroutine. Every kind but Quit carries
// a single-use reply slot.
type Command struct {
	Kind       CommandKind
	ConfigJSON string
	LaunchMode string
	reply      chan Reply
}

// Reply answers a command. OK is false both for rejected transitions and
// for failures; Err is set only for failures.
type Reply struct {
	OK    bool
	State PlaybackState
	Err   error
}

// ApplyWallpaper builds an apply command.
func ApplyWallpaper(configJSON string, launchMode string) Command {
	return Command{Kind: KindApplyWallpaper, ConfigJSON: configJSON, LaunchMode: launchMode, reply: make(chan Reply, 1)}
}

// DisableWallpaper builds a disable command.
func DisableWallpaper() Command {
	return Command{Kind: KindDisableWallpaper, reply: make(chan Reply, 1)}
}

// Pause builds a pause command.
func Pause() Command {
	return Command{Kind: KindPause, reply: make(chan Reply, 1)}
}

// Resume builds a resume command.
func Resume() Command {
	return Command{Kind: KindResume, reply: make(chan Reply, 1)}
}

// GetState builds a state query.
func GetState() Command {
	return Command{Kind: KindGetState, reply: make(chan Reply, 1)}
}

// Quit builds a shutdown request. It has no reply.
func Quit() Command {
	return Command{Kind: KindQuit}
}

// respond delivers r once; later calls are dropped.
func (c Command) respond(r Reply) {
	if c.reply == nil {
		return
	}
	select {
	case c.reply <- r:
	default:
	}
}
