// Package daemon implements the background display watcher.
package daemon

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// Refresher is the part of the selection controller the watcher drives.
type Refresher interface {
	Refresh(ctx context.Context)
	Displays() []domain.DisplayView
}

// WatcherConfig holds watcher configuration.
type WatcherConfig struct {
	PollInterval time.Duration // How often to re-enumerate displays
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: 2 * time.Second,
	}
}

// Watcher re-enumerates displays on a schedule and reports changes in the
// set of active displays or their current modes, covering hot-plug, sleep
// and wake, and changes made by other tools.
type Watcher struct {
	config     WatcherConfig
	controller Refresher
	logger     *zap.Logger
	onChange   func([]domain.DisplayView)

	fingerprint string
}

// NewWatcher creates a display watcher. onChange may be nil.
func NewWatcher(
	config WatcherConfig,
	controller Refresher,
	onChange func([]domain.DisplayView),
	logger *zap.Logger,
) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWatcherConfig().PollInterval
	}
	return &Watcher{
		config:     config,
		controller: controller,
		onChange:   onChange,
		logger:     logger,
	}
}

// Run starts the watcher loop. It blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("display watcher started", zap.Duration("interval", w.config.PollInterval))

	w.Poll(ctx)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("display watcher stopping")
			return ctx.Err()

		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll refreshes once and reports whether the display configuration
// changed since the previous poll. The first poll always reports a change.
func (w *Watcher) Poll(ctx context.Context) bool {
	w.controller.Refresh(ctx)
	views := w.controller.Displays()

	fp := Fingerprint(views)
	if fp == w.fingerprint {
		return false
	}

	first := w.fingerprint == ""
	w.fingerprint = fp
	if first {
		w.logger.Debug("initial display configuration", zap.String("fingerprint", fp))
	} else {
		w.logger.Info("display configuration changed",
			zap.Int("displays", len(views)),
			zap.String("fingerprint", fp))
	}

	if w.onChange != nil {
		w.onChange(views)
	}
	return true
}

// Fingerprint summarizes display IDs and their current modes. Mode
// identifiers are excluded because they are not stable across snapshots.
func Fingerprint(views []domain.DisplayView) string {
	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, v.ID.Key()+"="+v.Current.Signature().Key())
	}
	slices.Sort(parts)
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
