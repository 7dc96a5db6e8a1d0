package lumend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

func TestSettingsWatcherAppliesChanges(t *testing.T) {
	path := writeConfig(t, "[renderer]\nvolume = 100\n")

	applied := make(chan lumen.RendererSettings, 4)
	w := SettingsWatcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		Initial:  lumen.DefaultRendererSettings(),
		Apply:    func(s lumen.RendererSettings) { applied <- s },
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[renderer]\nvolume = 30\nmute = true\ncontent_fit = \"fill\"\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-applied:
		want := lumen.RendererSettings{Volume: 30, Mute: true, ContentFit: lumen.FitFill}
		if got != want {
			t.Fatalf("unexpected settings %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("settings change not applied")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestSettingsWatcherIgnoresUnchanged(t *testing.T) {
	path := writeConfig(t, "[renderer]\nvolume = 100\n")

	applied := make(chan lumen.RendererSettings, 4)
	w := SettingsWatcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		Initial:  lumen.DefaultRendererSettings(),
		Apply:    func(s lumen.RendererSettings) { applied <- s },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[server]\nlog_level = \"debug\"\n\n[renderer]\nvolume = 100\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case got := <-applied:
		t.Fatalf("unexpected apply %+v", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSettingsWatcherRequiresPath(t *testing.T) {
	if err := (SettingsWatcher{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
