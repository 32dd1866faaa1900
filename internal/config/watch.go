package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// calendarsWatcher tracks the modification time of the last file version
// it has seen, valid or not.
type calendarsWatcher struct {
	path     string
	lastMod  time.Time
	logger   *zerolog.Logger
	onUpdate func(*CalendarsConfig)
}

// poll reloads the file when it changed since the last poll and reports
// whether onUpdate was called. A broken file keeps the previous set and is
// not retried until it changes again.
func (w *calendarsWatcher) poll() bool {
	info, err := os.Stat(w.path)
	if err != nil || !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()

	cfg, err := LoadCalendarsConfig(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("calendars reload failed, keeping previous set")
		return false
	}
	w.logger.Info().Int("calendars", len(cfg.Calendars)).Msg("calendars reloaded")
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	return true
}

// WatchCalendars loads the calendars file, hands it to onUpdate and keeps
// polling it every interval until ctx is done. Only the initial load is
// fatal.
func WatchCalendars(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*CalendarsConfig)) error {
	if path == "" {
		path = "configs/calendars.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &calendarsWatcher{path: path, logger: logger, onUpdate: onUpdate}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	cfg, err := LoadCalendarsConfig(path)
	if err != nil {
		return err
	}
	w.lastMod = info.ModTime()
	if onUpdate != nil {
		onUpdate(cfg)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
	return nil
}
