/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session drives one live script document on behalf of an editor host:
// it routes host events into the document and persists the reconciled page
// through a trailing-edge debounced save.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"panelscript/internal/config"
	"panelscript/internal/domain"
	applog "panelscript/internal/log"
	"panelscript/internal/script"
)

const (
	defaultDebounce    = 500 * time.Millisecond
	defaultSaveTimeout = 5 * time.Second
)

// Saver persists the structured form of a page.
type Saver interface {
	SavePage(ctx context.Context, id string, page domain.ScriptPage) error
}

// Options tune a session.
type Options struct {
	Debounce    time.Duration
	SaveTimeout time.Duration
	Policy      script.FlowPolicy
}

// OptionsFromConfig maps the editor config section onto session options.
func OptionsFromConfig(c config.EditorConfig) Options {
	return Options{
		Debounce:    c.Debounce(),
		SaveTimeout: c.SaveTimeout(),
		Policy: script.FlowPolicy{
			TabInsertsAtDeadEnd:       c.TabInsertsAtDeadEnd,
			ShiftTabEntersPanelHeader: c.ShiftTabEntersPanelHeader,
			AutoContinue:              c.AutoContinue,
		},
	}
}

// Status reports the persistence state of the session.
type Status struct {
	PageID    string
	Dirty     bool
	Saving    bool
	Saves     int
	LastSaved time.Time
	LastError error
}

// Session owns a script.Document. All methods are safe for concurrent use;
// edits never wait for a save in flight.
type Session struct {
	saver Saver
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex // guards doc, pageID, basePage, savedRev, closed
	doc      *script.Document
	pageID   string
	basePage int // stored number of the document's first page
	savedRev uint64
	closed   bool

	debounced func(func())
	saveMu    sync.Mutex // serializes saves so they land in order

	statusMu sync.Mutex
	status   Status
}

// New returns a session with an empty document. Zero durations select defaults.
func New(saver Saver, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	s := &Session{
		saver:     saver,
		opts:      opts,
		log:       applog.WithComponent("session"),
		doc:       script.NewDocument(),
		basePage:  1,
		debounced: debounce.New(opts.Debounce),
	}
	s.doc.SetPolicy(opts.Policy)
	s.doc.OnChange(s.changed)
	return s
}

// changed runs under s.mu from inside a document edit.
func (s *Session) changed(c script.Change) {
	if c.Reason == script.ReasonReplace || s.closed || s.pageID == "" {
		return
	}
	s.debounced(s.fire)
}

func (s *Session) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	_ = s.save(ctx)
}

// save persists the latest snapshot when it has not been saved yet.
func (s *Session) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	id, rev := s.pageID, s.doc.Revision()
	if id == "" || rev == s.savedRev {
		s.mu.Unlock()
		return nil
	}
	blocks, base := s.doc.Blocks(), s.basePage
	s.mu.Unlock()

	l := applog.WithOperation(s.log, "save").With(slog.String("page_id", id), slog.Uint64("revision", rev))
	for _, is := range script.Validate(blocks) {
		l.Warn("content not exported", slog.String("kind", string(is.Kind)), slog.Int("block", is.Block), slog.String("detail", is.Message))
	}
	page := structured(blocks, base)

	s.setSaving(true)
	start := time.Now()
	err := s.saver.SavePage(ctx, id, page)

	s.statusMu.Lock()
	s.status.Saving = false
	s.status.LastError = err
	if err == nil {
		s.status.Saves++
		s.status.LastSaved = time.Now()
	}
	s.statusMu.Unlock()

	if err != nil {
		l.Error("save failed", slog.Any("err", err))
		return err
	}
	s.mu.Lock()
	if s.pageID == id && rev > s.savedRev {
		s.savedRev = rev
	}
	s.mu.Unlock()
	l.Debug("saved", slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Session) setSaving(v bool) {
	s.statusMu.Lock()
	s.status.Saving = v
	s.statusMu.Unlock()
}

// Open loads a page into the session, replacing the current content.
// Unsaved changes of the previous page are saved first.
func (s *Session) Open(pageID string, page domain.ScriptPage) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	_ = s.save(ctx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageID = pageID
	s.basePage = max(page.Page, 1)
	s.doc.ReplaceBlocks(script.FromStructured(page))
	s.savedRev = s.doc.Revision()
	s.log.Debug("page opened", slog.String("page_id", pageID), slog.Int("blocks", s.doc.Len()))
}

// Flush saves pending changes immediately.
func (s *Session) Flush(ctx context.Context) error {
	return s.save(ctx)
}

// Close cancels the pending debounced save and flushes instead. Further
// edits are applied but no longer scheduled for saving.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debounced(func() {})
	return s.save(ctx)
}

// Status returns a snapshot of the persistence state.
func (s *Session) Status() Status {
	s.statusMu.Lock()
	st := s.status
	s.statusMu.Unlock()
	s.mu.Lock()
	st.PageID = s.pageID
	st.Dirty = s.pageID != "" && s.doc.Revision() != s.savedRev
	s.mu.Unlock()
	return st
}

func (s *Session) edit(fn func(d *script.Document) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

func (s *Session) read(fn func(d *script.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// OnChange registers a listener for reconciled content changes. Listeners run
// with the session locked and must not call back into it.
func (s *Session) OnChange(l script.Listener) {
	s.edit(func(d *script.Document) bool { d.OnChange(l); return true })
}

// SetCharacters feeds the name suggestions.
func (s *Session) SetCharacters(names []string) {
	s.edit(func(d *script.Document) bool { d.SetCharacters(names); return true })
}

// InsertText types s at the caret.
func (s *Session) InsertText(text string) {
	s.edit(func(d *script.Document) bool { d.InsertText(text); return true })
}

// DeleteBackward deletes the selection or the rune before the caret.
func (s *Session) DeleteBackward() {
	s.edit(func(d *script.Document) bool { d.DeleteBackward(); return true })
}

// HandleKey applies the flow rules; false means the host default applies.
func (s *Session) HandleKey(k script.Key) bool {
	return s.edit(func(d *script.Document) bool { return d.HandleKey(k) })
}

// Insert places a block of kind at the caret.
func (s *Session) Insert(kind script.Kind) bool {
	return s.edit(func(d *script.Document) bool { return d.Insert(kind) })
}

// RunCommand performs an insert-menu command by title.
func (s *Session) RunCommand(title string) bool {
	return s.edit(func(d *script.Document) bool { return d.RunCommand(title) })
}

func (s *Session) MoveCaret(p script.Position) {
	s.edit(func(d *script.Document) bool { d.MoveCaret(p); return true })
}

func (s *Session) Select(anchor, head script.Position) {
	s.edit(func(d *script.Document) bool { d.Select(anchor, head); return true })
}

func (s *Session) SetBlockText(i int, text string) bool {
	return s.edit(func(d *script.Document) bool { return d.SetBlockText(i, text) })
}

func (s *Session) SetCueType(i int, cueType string) bool {
	return s.edit(func(d *script.Document) bool { return d.SetCueType(i, cueType) })
}

func (s *Session) DeleteBlock(i int) bool {
	return s.edit(func(d *script.Document) bool { return d.DeleteBlock(i) })
}

func (s *Session) AcceptSuggestion(i int) bool {
	return s.edit(func(d *script.Document) bool { return d.AcceptSuggestion(i) })
}

// PageID returns the id of the open page.
func (s *Session) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageID
}

func (s *Session) Blocks() (out []script.Block) {
	s.read(func(d *script.Document) { out = d.Blocks() })
	return out
}

func (s *Session) Caret() (p script.Position) {
	s.read(func(d *script.Document) { p = d.Caret() })
	return p
}

func (s *Session) Revision() (rev uint64) {
	s.read(func(d *script.Document) { rev = d.Revision() })
	return rev
}

func (s *Session) Suggestions() (out []string) {
	s.read(func(d *script.Document) { out = d.Suggestions() })
	return out
}

// CommandQuery reports a pending insert-menu query.
func (s *Session) CommandQuery() (q string, ok bool) {
	s.read(func(d *script.Document) { q, ok = d.CommandQuery() })
	return q, ok
}

// Snapshot returns the structured form of the current content, numbered
// as the page was stored.
func (s *Session) Snapshot() (page domain.ScriptPage) {
	s.read(func(d *script.Document) { page = structured(d.Blocks(), s.basePage) })
	return page
}

// structured shifts the document's own numbering, which always starts at 1,
// onto the stored page number.
func structured(blocks []script.Block, base int) domain.ScriptPage {
	page := script.ToStructured(blocks)
	page.Page += base - 1
	return page
}

func (s *Session) Text() string { return script.PlainText(s.Blocks()) }

func (s *Session) WordCount() int { return script.WordCount(s.Text()) }

func (s *Session) Title() string { return script.Title(s.Blocks()) }

// Issues lists content the structured form drops.
func (s *Session) Issues() []script.Issue { return script.Validate(s.Blocks()) }
