// Package watcher reports files that appear in a single directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shotnamer/internal/logging"
)

// Kind classifies how a file appeared.
type Kind int

const (
	// Created is a new file written in place.
	Created Kind = iota + 1
	// Moved is a file renamed into its current name.
	Moved
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is one file appearing in the watched directory.
type Event struct {
	Kind Kind
	Path string
}

// Watcher observes the top level of one directory. Subdirectories are not
// followed and directory entries are never reported.
type Watcher struct {
	dir    string
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	events chan Event

	closeOnce sync.Once
	// renamedAt is when the previous notification, a rename away from some
	// name, arrived. A create inside moveWindow is taken as the new name.
	renamedAt time.Time
	now       func() time.Time
}

// moveWindow bounds how long after a rename a create is still paired with it.
// inotify delivers both halves of an in-directory move back to back.
const moveWindow = 100 * time.Millisecond

// New starts observing dir. buffer sizes the event channel; events are
// delivered in arrival order.
func New(dir string, logger *slog.Logger, buffer int) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Watcher{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "watcher"),
		fsw:    fsw,
		events: make(chan Event, buffer),
		now:    time.Now,
	}, nil
}

// Dir returns the observed directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Events returns the channel events are delivered on. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards notifications until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.Close()

	w.logger.Info("watching directory",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("dir", w.dir),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			out, keep := w.translate(ev)
			if !keep {
				continue
			}
			select {
			case w.events <- out:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		}
	}
}

// Close stops the underlying notifier. Run returns shortly afterwards.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	renamedAt := w.renamedAt
	w.renamedAt = time.Time{}
	if ev.Has(fsnotify.Rename) {
		w.renamedAt = w.clock()
		return Event{}, false
	}
	if !ev.Has(fsnotify.Create) {
		return Event{}, false
	}
	kind := classify(!renamedAt.IsZero() && w.clock().Sub(renamedAt) <= moveWindow)

	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) {
		return Event{}, false
	}
	if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
		w.logger.Debug("ignoring directory", logging.String("path", ev.Name))
		return Event{}, false
	}
	return Event{Kind: kind, Path: ev.Name}, true
}

func (w *Watcher) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}

func classify(afterRename bool) Kind {
	if afterRename {
		return Moved
	}
	return Created
}

func (w *Watcher) reportError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		logging.WarnWithContext(w.logger, "notification queue overflowed; some files were not seen", "watch_overflow",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rename missed files with 'shotnamer rename'"),
		)
		return
	}
	logging.WarnWithContext(w.logger, "watch error", "watch_error", logging.Error(err))
}
