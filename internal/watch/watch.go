// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

// Package watch reports batches of changed files under a set of directory
// trees.
package watch

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Option func(*Watcher)

// WithDebounce sets how long the watcher waits after the last event before
// reporting a batch.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithFilter limits reported files to those for which match returns true.
// Directories are always watched.
func WithFilter(match func(path string) bool) Option {
	return func(w *Watcher) {
		w.match = match
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.log = logger
	}
}

type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	match    func(string) bool
	log      *slog.Logger
	pending  map[string]struct{}
}

func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: 200 * time.Millisecond,
		match:    func(string) bool { return true },
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches root and every directory below it, skipping hidden
// directories.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.log.Debug("watching directory", "path", path)
		return w.fsw.Add(path)
	})
}

// Run delivers batches of changed paths to onChange until ctx is done or the
// watcher is closed. onChange is called from Run's goroutine, so events
// that arrive while it runs are batched for the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			if paths := w.flush(); len(paths) > 0 {
				onChange(paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Add(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return false
			}
			return w.enqueueTree(event.Name)
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.enqueue(event.Name)
}

func (w *Watcher) enqueue(path string) bool {
	if !w.match(path) {
		return false
	}
	w.pending[path] = struct{}{}
	return true
}

// enqueueTree picks up files created in a new directory before it was
// being watched.
func (w *Watcher) enqueueTree(root string) bool {
	queued := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.enqueue(path) {
			queued = true
		}
		return nil
	})
	return queued
}

func (w *Watcher) flush() []string {
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	clear(w.pending)
	sort.Strings(paths)
	return paths
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
