// Package persistence implements C6: a dedicated task that debounces Store
// mutations into a single atomic-rename write to the state file.
//
// Grounded on core/high_availability.go's write-then-rename
// snapshot pattern (os.WriteFile to a temp path, then swap into place),
// generalized into a standalone debounce loop driven by the Store's
// state_updates Notify instead of a fixed-interval ticker.
package persistence

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"bifrost/internal/store"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "persistence")

const defaultDebounceWindow = 1 * time.Second

// Writer owns the state file path and a handle to the Store it snapshots.
type Writer struct {
	path      string
	store     *store.Store
	debounce  time.Duration
}

func New(path string, s *store.Store) *Writer {
	return &Writer{path: path, store: s, debounce: defaultDebounceWindow}
}

// WithDebounceWindow overrides the 1s debounce window; used by tests that
// can't wait a full second per case.
func (w *Writer) WithDebounceWindow(d time.Duration) *Writer {
	w.debounce = d
	return w
}

// Run implements the debounce algorithm: snapshot, wait for a
// notification, debounce for a fixed window, snapshot again, write only if
// changed. Runs until ctx is cancelled.
func (w *Writer) Run(ctx context.Context) error {
	old, err := w.store.Snapshot()
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.store.StateUpdates.Wait():
		}

		deadline := time.NewTimer(w.debounce)
	debounce:
		for {
			select {
			case <-ctx.Done():
				deadline.Stop()
				return nil
			case <-w.store.StateUpdates.Wait():
				// Additional notifications during the window don't extend
				// the deadline — it's fixed at first-notification+1s, per
				// the window's fixed deadline.
				continue debounce
			case <-deadline.C:
				break debounce
			}
		}

		newSnap, err := w.store.Snapshot()
		if err != nil {
			log.WithError(err).Error("snapshot failed, skipping this write")
			continue
		}
		if bytes.Equal(old, newSnap) {
			continue
		}
		if err := w.writeAtomic(newSnap); err != nil {
			log.WithError(err).Error("state write failed")
			continue
		}
		old = newSnap
		log.Debug("state file written")
	}
}

func (w *Writer) writeAtomic(data []byte) error {
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
