// Package watcher reports page changes made to the data directory, whether
// through the API or by editing files directly.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/checksum"
	"github.com/starford/wiki/internal/sse"
)

const reconcileDelay = 200 * time.Millisecond

// Source is the page store as seen by the watcher.
type Source interface {
	Root() string
	SlugFor(name string) (string, bool)
	List() ([]string, error)
	Read(slug string) ([]byte, error)
}

// EventCallback is called after a page change is observed.
// kind is one of sse.KindCreated, sse.KindUpdated, sse.KindDeleted.
type EventCallback func(kind, slug string)

// Watch watches the data directory until ctx is cancelled, calling cb for
// every page change. Rewrites that leave the content unchanged are not
// reported. Renames trigger a short debounced reconciliation against a
// fresh listing.
func Watch(ctx context.Context, src Source, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: new: %w", err)
	}
	defer w.Close()

	if err := w.Add(src.Root()); err != nil {
		return fmt.Errorf("watcher: add %s: %w", src.Root(), err)
	}

	t := &tracker{src: src, logger: logger, cb: cb, sums: make(map[string]string)}
	t.prime()

	logger.Info("watcher: started", slog.String("root", src.Root()), slog.Int("pages", len(t.sums)))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			t.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			slug, isPage := src.SlugFor(ev.Name)
			if !isPage {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				t.refresh(slug)

			case ev.Op&fsnotify.Remove != 0:
				t.forget(slug)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old name only; the new name arrives
				// as a Create if it stays in the directory.
				t.forget(slug)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// tracker holds the last seen checksum per page. It is owned by the Watch
// loop goroutine.
type tracker struct {
	src    Source
	logger *slog.Logger
	cb     EventCallback
	sums   map[string]string
}

func (t *tracker) emit(kind, slug string) {
	t.logger.Debug("watcher: page changed", slog.String("slug", slug), slog.String("kind", kind))
	if t.cb != nil {
		t.cb(kind, slug)
	}
}

// prime records the current pages without emitting events.
func (t *tracker) prime() {
	slugs, err := t.src.List()
	if err != nil {
		t.logger.Warn("watcher: initial list failed", slog.String("error", err.Error()))
		return
	}
	for _, s := range slugs {
		if data, err := t.src.Read(s); err == nil {
			t.sums[s] = checksum.Sum(data)
		}
	}
}

// refresh rereads slug and emits created/updated when its content changed.
func (t *tracker) refresh(slug string) {
	data, err := t.src.Read(slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			t.forget(slug)
			return
		}
		t.logger.Warn("watcher: read failed", slog.String("slug", slug), slog.String("error", err.Error()))
		return
	}
	prev, known := t.sums[slug]
	if known && checksum.Equal(data, prev) {
		return
	}
	t.sums[slug] = checksum.Sum(data)
	if known {
		t.emit(sse.KindUpdated, slug)
	} else {
		t.emit(sse.KindCreated, slug)
	}
}

// forget drops slug and emits deleted if it was known.
func (t *tracker) forget(slug string) {
	if _, known := t.sums[slug]; !known {
		return
	}
	delete(t.sums, slug)
	t.emit(sse.KindDeleted, slug)
}

// reconcile diffs the tracked pages against a fresh listing.
func (t *tracker) reconcile() {
	slugs, err := t.src.List()
	if err != nil {
		t.logger.Warn("watcher: reconcile list failed", slog.String("error", err.Error()))
		return
	}
	onDisk := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		onDisk[s] = struct{}{}
		t.refresh(s)
	}
	for s := range t.sums {
		if _, ok := onDisk[s]; !ok {
			t.forget(s)
		}
	}
}
