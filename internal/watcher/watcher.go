// Package watcher turns OS file notifications into wake-up signals for
// the tailer's idle loop. It is advisory: the tailer still polls on a
// timer, and rotation is detected by stat identity, not by events.
package watcher

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the directory containing the tailed file and signals
// whenever the file is written, created, renamed, or removed.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	Wake chan struct{}
}

// New creates a Watcher for the log file at path. The parent directory
// is watched rather than the file itself so that rotation (remove +
// recreate at the same path) keeps producing events.
func New(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		fsw:  fsw,
		path: abs,
		Wake: make(chan struct{}, 1),
	}, nil
}

// Start forwards relevant events as wake signals. Blocks until the
// context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.Wake <- struct{}{}:
				default: // a pending wake is already queued
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}
