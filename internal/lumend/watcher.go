package lumend

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mikey-austin/lumen/pkg/lumen"
	"go.uber.org/zap"
)

// SettingsWatcher reloads the renderer section of the config file whenever
// the file changes and hands changed settings to Apply.
type SettingsWatcher struct {
	Path     string
	Debounce time.Duration
	Initial  lumen.RendererSettings
	Apply    func(lumen.RendererSettings)
	Logger   *zap.Logger
}

// Run watches until ctx ends. The parent directory is watched so editors
// that replace the file on save are seen.
func (w SettingsWatcher) Run(ctx context.Context) error {
	if w.Path == "" {
		return errors.New("settings watch requires a config path")
	}
	if w.Apply == nil {
		return errors.New("settings watch requires an apply func")
	}
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path := filepath.Clean(w.Path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	last := w.Initial
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			log.Warn("config watch error", zap.Error(err))
		case <-timer.C:
			settings, err := reloadSettings(path)
			if err != nil {
				log.Warn("config reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if settings == last {
				log.Debug("config changed without renderer changes")
				continue
			}
			last = settings
			log.Info("renderer settings reloaded",
				zap.Int("volume", settings.Volume),
				zap.Bool("mute", settings.Mute),
				zap.Stringer("content_fit", settings.ContentFit),
			)
			w.Apply(settings)
		}
	}
}

func reloadSettings(path string) (lumen.RendererSettings, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return lumen.RendererSettings{}, err
	}
	return cfg.Renderer.Settings()
}
