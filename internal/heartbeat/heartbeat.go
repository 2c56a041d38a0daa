// Package heartbeat maintains the worker liveness file used by stuck-video
// recovery to tell a crashed worker apart from a slow one.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubedigest/internal/logging"
)

// Beacon writes and reads a single timestamp file. A fresh timestamp means the
// worker process is alive; a stale or missing file means it died mid-claim.
type Beacon struct {
	path string
	now  func() time.Time
}

// New returns a beacon backed by the given file path.
func New(path string) *Beacon {
	return &Beacon{path: path, now: time.Now}
}

// NewWithClock returns a beacon with an injectable clock for tests.
func NewWithClock(path string, now func() time.Time) *Beacon {
	if now == nil {
		now = time.Now
	}
	return &Beacon{path: path, now: now}
}

// Path returns the beacon file location.
func (b *Beacon) Path() string {
	return b.path
}

// Beat refreshes the liveness timestamp. The write goes through a temp file
// and rename so a crash mid-write never leaves a corrupt beacon.
func (b *Beacon) Beat() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("ensure heartbeat dir: %w", err)
	}
	tmp := b.path + ".tmp"
	stamp := b.now().UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(tmp, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	return nil
}

// Age returns how long ago the beacon was last refreshed. The bool reports
// whether a readable beacon exists at all; treat a missing beacon as a dead
// worker.
func (b *Beacon) Age() (time.Duration, bool) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return 0, false
	}
	stamp, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, false
	}
	age := b.now().Sub(stamp)
	if age < 0 {
		age = 0
	}
	return age, true
}

// Alive reports whether the beacon was refreshed within threshold.
func (b *Beacon) Alive(threshold time.Duration) bool {
	age, ok := b.Age()
	return ok && age <= threshold
}

// Remove deletes the beacon file, used on clean shutdown.
func (b *Beacon) Remove() error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove heartbeat: %w", err)
	}
	return nil
}

// Run refreshes the beacon on the given interval until the context is
// cancelled. Intended for daemon mode where cycles can be far apart.
func (b *Beacon) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Beat(); err != nil {
				logger.Warn("heartbeat refresh failed", logging.Error(err))
			}
		}
	}
}
