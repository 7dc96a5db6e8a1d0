package wallpapercore

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	var m StateMachine
	if m.State() != Idle {
		t.Fatalf("expected idle start")
	}
	if m.Pause() || m.State() != Idle {
		t.Fatalf("pause from idle must be rejected")
	}
	if m.Resume() || m.State() != Idle {
		t.Fatalf("resume from idle must be rejected")
	}

	m.Apply()
	if m.Resume() {
		t.Fatalf("resume while playing must be rejected")
	}
	if !m.Pause() || m.State() != Paused {
		t.Fatalf("expected paused")
	}
	if m.Pause() {
		t.Fatalf("pause while paused must be rejected")
	}
	m.Apply()
	if m.State() != Playing {
		t.Fatalf("apply from paused should play")
	}
	m.Pause()
	if !m.Resume() || m.State() != Playing {
		t.Fatalf("expected playing after resume")
	}
	m.Disable()
	if m.State() != Idle {
		t.Fatalf("expected idle after disable")
	}
	m.Disable()
	if m.State() != Idle {
		t.Fatalf("disable from idle stays idle")
	}
}

func TestPlaybackStateLabels(t *testing.T) {
	if Idle.String() != "idle" || Playing.String() != "playing" || Paused.String() != "paused" {
		t.Fatalf("unexpected labels")
	}
}
