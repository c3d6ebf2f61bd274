/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "panelscript/internal/log"
)

// PageEvent reports that a page file settled after an external change.
type PageEvent struct {
	PageID  string
	Removed bool
	At      time.Time
}

type pendingChange struct {
	last    time.Time
	removed bool
}

// PageWatcher watches a project's pages directory and emits one event per page
// once its file has been quiet for the configured interval.
type PageWatcher struct {
	fsWatcher *fsnotify.Watcher
	quiet     time.Duration

	pending   map[string]pendingChange
	pendingMu sync.Mutex

	events chan PageEvent
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// WatchPages starts watching the pages directory of ph. quiet <= 0 selects 500ms.
func WatchPages(ph *ProjectHandle, quiet time.Duration) (*PageWatcher, error) {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	dir := filepath.Join(ph.Root, PagesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &PageWatcher{
		fsWatcher: fsw,
		quiet:     quiet,
		pending:   make(map[string]pendingChange),
		events:    make(chan PageEvent, 64),
		errors:    make(chan error, 8),
		done:      make(chan struct{}),
	}
	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()
	applog.WithComponent("storage").Debug("watching pages", slog.String("dir", dir))
	return w, nil
}

// Events returns the channel of settled page changes.
func (w *PageWatcher) Events() <-chan PageEvent { return w.events }

// Errors returns the channel of watcher errors.
func (w *PageWatcher) Errors() <-chan error { return w.errors }

// Close stops the watcher and closes both channels.
func (w *PageWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.events)
		close(w.errors)
		err = w.fsWatcher.Close()
	})
	return err
}

// pageIDFromPath maps "<dir>/<id>.json" to id, ignoring temp and foreign files.
func pageIDFromPath(p string) (string, bool) {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ".json" {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}

func (w *PageWatcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			id, ok := pageIDFromPath(ev.Name)
			if !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			_, statErr := os.Stat(ev.Name)
			w.pendingMu.Lock()
			w.pending[id] = pendingChange{last: time.Now(), removed: statErr != nil}
			w.pendingMu.Unlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *PageWatcher) settleLoop() {
	defer w.wg.Done()
	tick := w.quiet / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			for _, ev := range w.settled(now) {
				select {
				case w.events <- ev:
				case <-w.done:
					return
				}
			}
		}
	}
}

func (w *PageWatcher) settled(now time.Time) []PageEvent {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	var out []PageEvent
	for id, p := range w.pending {
		if now.Sub(p.last) < w.quiet {
			continue
		}
		out = append(out, PageEvent{PageID: id, Removed: p.removed, At: p.last})
		delete(w.pending, id)
	}
	return out
}
