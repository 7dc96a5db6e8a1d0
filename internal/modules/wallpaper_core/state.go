package wallpapercore

// PlaybackState is the host-wide playback state.
type PlaybackState int

const (
	Idle PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// StateMachine validates playback transitions. It is only touched by the
// host's owner goroutine.
type StateMachine struct {
	state PlaybackState
}

// State returns the current state.
func (m *StateMachine) State() PlaybackState {
	return m.state
}

// Apply moves to Playing from any state.
func (m *StateMachine) Apply() {
	m.state = Playing
}

// Pause moves Playing to Paused and reports whether it did.
func (m *StateMachine) Pause() bool {
	if m.state != Playing {
		return false
	}
	m.state = Paused
	return true
}

// Resume moves Paused to Playing and reports whether it did.
func (m *StateMachine) Resume() bool {
	if m.state != Paused {
		return false
	}
	m.state = Playing
	return true
}

// Disable returns to Idle from any state.
func (m *StateMachine) Disable() {
	m.state = Idle
}
