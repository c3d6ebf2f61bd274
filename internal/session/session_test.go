/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panelscript/internal/config"
	"panelscript/internal/domain"
	"panelscript/internal/script"
)

type savedPage struct {
	id   string
	page domain.ScriptPage
}

type fakeSaver struct {
	mu    sync.Mutex
	saves []savedPage
	err   error
	ch    chan savedPage
}

func newFakeSaver() *fakeSaver { return &fakeSaver{ch: make(chan savedPage, 16)} }

func (f *fakeSaver) SavePage(_ context.Context, id string, page domain.ScriptPage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	sp := savedPage{id: id, page: page}
	f.saves = append(f.saves, sp)
	f.ch <- sp
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeSaver) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newSession(t *testing.T, debounce time.Duration) (*Session, *fakeSaver) {
	t.Helper()
	fs := newFakeSaver()
	s := New(fs, Options{Debounce: debounce, SaveTimeout: time.Second, Policy: script.DefaultFlowPolicy()})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, fs
}

// typePanel opens a panel and types desc into its description.
func typePanel(s *Session, desc string) {
	s.InsertText(script.PanelShortcut)
	for _, r := range desc {
		s.InsertText(string(r))
	}
}

func TestDebounceCoalescesBurstIntoOneSave(t *testing.T) {
	s, fs := newSession(t, 80*time.Millisecond)
	s.Open("page-1", domain.NewScriptPage(1))
	typePanel(s, "The sea")

	select {
	case sp := <-fs.ch:
		require.Equal(t, "page-1", sp.id)
		require.Len(t, sp.page.Panels, 1)
		require.Equal(t, "The sea", sp.page.Panels[0].Header)
	case <-time.After(3 * time.Second):
		t.Fatalf("no save fired")
	}
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, 1, fs.count())

	st := s.Status()
	require.False(t, st.Dirty)
	require.Equal(t, 1, st.Saves)
	require.NoError(t, st.LastError)
	require.False(t, st.LastSaved.IsZero())
}

func TestOpenDoesNotScheduleSave(t *testing.T) {
	s, fs := newSession(t, 20*time.Millisecond)
	s.Open("page-1", domain.NewScriptPage(3))
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, 0, fs.count())
	require.False(t, s.Status().Dirty)
	require.Equal(t, 3, s.Snapshot().Page)
}

func TestSaveKeepsStoredPageNumber(t *testing.T) {
	s, fs := newSession(t, time.Hour)
	s.Open("page-3", domain.NewScriptPage(3))
	require.Equal(t, 1, s.Blocks()[0].Page())

	typePanel(s, "Dusk")
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 1, fs.count())
	sp := <-fs.ch
	require.Equal(t, "page-3", sp.id)
	require.Equal(t, 3, sp.page.Page)
	require.Equal(t, "Dusk", sp.page.Panels[0].Header)

	s.Open("page-7", domain.ScriptPage{Page: 7, Panels: []domain.Panel{{PanelNumber: 1, Header: "Night"}}})
	require.True(t, s.SetBlockText(1, "Night falls"))
	require.NoError(t, s.Flush(context.Background()))
	sp = <-fs.ch
	require.Equal(t, 7, sp.page.Page)
	require.Equal(t, 7, s.Snapshot().Page)
}

func TestFlushSavesOnlyWhenDirty(t *testing.T) {
	s, fs := newSession(t, time.Hour)
	s.Open("page-1", domain.NewScriptPage(1))
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 0, fs.count())

	typePanel(s, "Dawn")
	require.True(t, s.Status().Dirty)
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 1, fs.count())
}

func TestSaveFailureIsReportedAndKeepsContent(t *testing.T) {
	s, fs := newSession(t, time.Hour)
	s.Open("page-1", domain.NewScriptPage(1))
	typePanel(s, "Rain")
	boom := errors.New("disk full")
	fs.fail(boom)

	err := s.Flush(context.Background())
	require.ErrorIs(t, err, boom)
	st := s.Status()
	require.ErrorIs(t, st.LastError, boom)
	require.True(t, st.Dirty)
	require.Equal(t, "Rain", s.Snapshot().Panels[0].Header)

	fs.fail(nil)
	require.NoError(t, s.Flush(context.Background()))
	require.False(t, s.Status().Dirty)
	require.NoError(t, s.Status().LastError)
}

func TestOpenSavesPreviousPage(t *testing.T) {
	s, fs := newSession(t, time.Hour)
	s.Open("a", domain.NewScriptPage(1))
	typePanel(s, "First")
	s.Open("b", domain.NewScriptPage(2))

	require.Equal(t, 1, fs.count())
	sp := <-fs.ch
	require.Equal(t, "a", sp.id)
	require.Equal(t, "b", s.PageID())
	require.False(t, s.Status().Dirty)
}

func TestCloseFlushesAndStopsScheduling(t *testing.T) {
	fs := newFakeSaver()
	s := New(fs, Options{Debounce: 50 * time.Millisecond})
	s.Open("a", domain.NewScriptPage(1))
	typePanel(s, "Fog")
	require.NoError(t, s.Close(context.Background()))
	require.Equal(t, 1, fs.count())

	s.InsertText("x")
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, 1, fs.count())
}

func TestNoSavesWithoutOpenPage(t *testing.T) {
	s, fs := newSession(t, 10*time.Millisecond)
	s.InsertText("loose")
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 0, fs.count())
}

func TestSessionRoutesEditing(t *testing.T) {
	s, _ := newSession(t, time.Hour)
	s.Open("a", domain.NewScriptPage(1))
	s.SetCharacters([]string{"Alice", "Albert", "Bob"})
	typePanel(s, "Street")

	require.True(t, s.HandleKey(script.KeyEnter))
	blocks := s.Blocks()
	require.Equal(t, script.KindCharacter, blocks[s.Caret().Block].Kind)

	s.InsertText("Al")
	require.Equal(t, []string{"Alice", "Albert"}, s.Suggestions())
	require.True(t, s.AcceptSuggestion(0))
	require.True(t, s.HandleKey(script.KeyEnter))
	require.Equal(t, script.KindDialogue, s.Blocks()[s.Caret().Block].Kind)
	s.InsertText("Hi")

	require.Equal(t, "Page 1", s.Title())
	require.Equal(t, 3, s.WordCount())
	require.Contains(t, s.Text(), "Alice")

	issues := s.Issues()
	kinds := map[script.IssueKind]bool{}
	for _, is := range issues {
		kinds[is.Kind] = true
	}
	require.True(t, kinds[script.IssueMissingLabel])
	require.True(t, kinds[script.IssueNotExported])
}

func TestCommandMenuThroughSession(t *testing.T) {
	s, _ := newSession(t, time.Hour)
	s.Open("a", domain.NewScriptPage(1))
	typePanel(s, "")
	s.InsertText(script.CommandTrigger + "sf")
	q, ok := s.CommandQuery()
	require.True(t, ok)
	require.Equal(t, "sf", q)
	require.True(t, s.RunCommand("SFX"))
	require.Equal(t, script.KindSfx, s.Blocks()[s.Caret().Block].Kind)
}

func TestOptionsFromConfig(t *testing.T) {
	ed := config.Defaults().Editor
	ed.ShiftTabEntersPanelHeader = true
	o := OptionsFromConfig(ed)
	require.Equal(t, ed.Debounce(), o.Debounce)
	require.Equal(t, ed.SaveTimeout(), o.SaveTimeout)
	require.True(t, o.Policy.ShiftTabEntersPanelHeader)
	require.Equal(t, ed.TabInsertsAtDeadEnd, o.Policy.TabInsertsAtDeadEnd)
	require.Equal(t, ed.AutoContinue, o.Policy.AutoContinue)
}
