/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

var ErrNotWatchable = errors.New("embedded catalog cannot be watched")

// Store serves the current catalog and swaps in a new one when the backing
// file changes. A file that fails to parse leaves the previous catalog live.
type Store struct {
	path string
	cur  atomic.Pointer[Catalog]
	logf func(format string, args ...any)
}

func Open(path string, logf func(format string, args ...any)) (*Store, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if logf == nil {
		logf = func(string, ...any) {}
	}

	s := &Store{path: path, logf: logf}
	s.cur.Store(c)

	return s, nil
}

func (s *Store) Catalog() *Catalog {
	return s.cur.Load()
}

func (s *Store) Reload() error {
	c, err := Load(s.path)
	if err != nil {
		return err
	}

	s.cur.Store(c)

	return nil
}

// Watch reloads the catalog whenever its file is written, created or
// renamed, until ctx is done. It returns once the watch is established.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return ErrNotWatchable
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory so editors that replace the file are still seen.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return err
	}

	go s.watch(ctx, w)

	return nil
}

func (s *Store) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(s.path)

	// Writes often arrive as several events; reload once they settle.
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logf("CATALOG: Reload of %s failed: %v", s.path, err)
				continue
			}
			s.logf("CATALOG: Reloaded %s (%d tracks)", s.path, len(s.Catalog().tracks))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logf("CATALOG: Watch error: %v", err)
		}
	}
}
