/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"panelscript/internal/config"
	"panelscript/internal/domain"
	"panelscript/internal/storage"
)

// runCLI executes the root command with an isolated config.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv(config.EnvDatabasePassword, "unused")
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLogFile, "")
	t.Setenv(config.EnvDebounceMs, "20")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("panelscript %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func initCLIProject(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "comic")
	mustRun(t, "init", root, "Beach Day", "--character", "Alice", "--character", "Bob")
	return root
}

const importScript = `Page 1: Arrival
Panel 1: A quiet beach at dawn
ALICE: Hello there!
  Anyone around?
SFX: SHHHH
; Wide shot

Page 2
Panel 1
BOB: Over here.
`

func TestInitNewAndPages(t *testing.T) {
	root := initCLIProject(t)
	out := mustRun(t, "-p", root, "pages")
	if !strings.Contains(out, "No pages yet") {
		t.Fatalf("unexpected output for empty project: %s", out)
	}
	mustRun(t, "-p", root, "new", "Cold open")
	out = mustRun(t, "-p", root, "pages")
	if !strings.Contains(out, "Cold open") || !strings.Contains(out, "Version") {
		t.Fatalf("expected page table, got:\n%s", out)
	}

	ph, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(ph.Project.Characters) != 2 || len(ph.Project.Pages) != 1 {
		t.Fatalf("unexpected manifest: %+v", ph.Project)
	}
}

func TestInitRefusesExistingProject(t *testing.T) {
	root := initCLIProject(t)
	if _, err := runCLI(t, "", "init", root, "Again"); err == nil {
		t.Fatalf("expected init to fail on an existing project")
	}
}

func TestImportShowAndSearch(t *testing.T) {
	root := initCLIProject(t)
	file := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(file, []byte(importScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out := mustRun(t, "-p", root, "import", file)
	if strings.Count(out, "Imported") != 2 {
		t.Fatalf("expected two imported pages, got:\n%s", out)
	}

	ph, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first := ph.Project.Pages[0]
	if first.Title != "Arrival" || ph.Project.Pages[1].Title != "Page 2" {
		t.Fatalf("unexpected titles: %q, %q", first.Title, ph.Project.Pages[1].Title)
	}
	pf, err := storage.ReadPage(ph, first.ID)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	p := pf.PageContent
	if p.Page != 1 || len(p.Panels) != 1 || len(p.Panels[0].Cues) != 2 {
		t.Fatalf("unexpected page: %+v", p)
	}
	if got := p.Panels[0].Cues[0].Content; got != "Hello there! Anyone around?" {
		t.Fatalf("continuation not joined: %q", got)
	}

	out = mustRun(t, "-p", root, "show", shortID(first.ID))
	if !strings.Contains(out, "**ALICE:** Hello there! Anyone around?") || !strings.Contains(out, "> Wide shot") {
		t.Fatalf("unexpected markdown:\n%s", out)
	}
	out = mustRun(t, "-p", root, "show", first.ID, "--format", "json")
	if !strings.Contains(out, `"panel_count": 1`) {
		t.Fatalf("unexpected json:\n%s", out)
	}

	out = mustRun(t, "-p", root, "search", "over")
	if !strings.Contains(out, "Page 2") && !strings.Contains(out, shortID(ph.Project.Pages[1].ID)) {
		t.Fatalf("expected page 2 in search results:\n%s", out)
	}
	out = mustRun(t, "-p", root, "search", "nothingmatches")
	if !strings.Contains(out, "No matches.") {
		t.Fatalf("expected no matches:\n%s", out)
	}
}

func TestReplaySavesThroughSession(t *testing.T) {
	root := initCLIProject(t)
	mustRun(t, "-p", root, "new")
	ph, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := ph.Project.Pages[0].ID

	events := "# build a panel\ntype Panel--\ntype A quiet beach.\n"
	out, err := runCLI(t, events, "-p", root, "replay", id, "-")
	if err != nil {
		t.Fatalf("replay: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Replayed 2 events") {
		t.Fatalf("unexpected replay output:\n%s", out)
	}

	ph, err = storage.Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	pf, err := storage.ReadPage(ph, id)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if len(pf.PageContent.Panels) != 1 || pf.PageContent.Panels[0].Header != "A quiet beach." {
		t.Fatalf("unexpected saved page: %+v", pf.PageContent)
	}
	if pf.Metadata.Version < 2 {
		t.Fatalf("expected the replay to save, version %d", pf.Metadata.Version)
	}

	out = mustRun(t, "-p", root, "history", id)
	if !strings.Contains(out, "Snapshot") {
		t.Fatalf("expected history table:\n%s", out)
	}
}

func TestReplayDryRunDoesNotSave(t *testing.T) {
	root := initCLIProject(t)
	mustRun(t, "-p", root, "new")
	ph, _ := storage.Open(root)
	id := ph.Project.Pages[0].ID

	out, err := runCLI(t, "type Panel--\ntype Waves crash.\n", "-p", root, "replay", "--dry-run", id, "-")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "### Waves crash.") {
		t.Fatalf("expected rendered result:\n%s", out)
	}
	ph, _ = storage.Open(root)
	if ph.Project.Pages[0].Version != 1 {
		t.Fatalf("dry run saved the page: %+v", ph.Project.Pages[0])
	}
}

func TestWriterLockIsExclusive(t *testing.T) {
	root := initCLIProject(t)
	lock, err := storage.LockProject(root)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer func() { _ = lock.Unlock() }()
	if _, err := runCLI(t, "", "-p", root, "new"); err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected lock error, got %v", err)
	}
	// readers are not blocked
	mustRun(t, "-p", root, "pages")
}

func TestExportCommand(t *testing.T) {
	root := initCLIProject(t)
	mustRun(t, "-p", root, "new", "Only page")
	out := mustRun(t, "-p", root, "export", "--format", "md,pdf")
	for _, ext := range []string{"beach-day.md", "beach-day.pdf"} {
		p := filepath.Join(root, "exports", "web", ext)
		if !strings.Contains(out, p) {
			t.Fatalf("expected %s in output:\n%s", p, out)
		}
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing export: %v", err)
		}
	}
}

func TestResolvePage(t *testing.T) {
	ph := &storage.ProjectHandle{Project: domain.Project{Pages: []domain.PageRef{
		{ID: "abc123"}, {ID: "abd456"},
	}}}
	if ref, err := resolvePage(ph, "abc"); err != nil || ref.ID != "abc123" {
		t.Fatalf("prefix: %+v %v", ref, err)
	}
	if _, err := resolvePage(ph, "ab"); err == nil {
		t.Fatalf("expected ambiguity error")
	}
	if _, err := resolvePage(ph, "zzz"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestWatchIndexesExternalEdits(t *testing.T) {
	root := initCLIProject(t)
	mustRun(t, "-p", root, "new")
	ph, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := ph.Project.Pages[0].ID

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- watchProject(ctx, ph, config.HistoryConfig{KeepPerPage: 5, PruneEvery: "@every 1h"}, 50*time.Millisecond, &out)
	}()
	time.Sleep(300 * time.Millisecond)

	other, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	page := domain.ScriptPage{Page: 1, PanelCount: 1, Panels: []domain.Panel{{
		PanelNumber: 1, Header: "Edited elsewhere",
		Cues: []domain.Cue{{Type: "CHARACTER", Label: "BOB", Content: "Seagulls everywhere"}},
	}}}
	if _, err := storage.WritePage(context.Background(), other, id, "", page); err != nil {
		t.Fatalf("write page: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := storage.Search(context.Background(), root, storage.SearchQuery{Text: "seagulls"})
		if err == nil && len(res) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("external edit was not indexed: %v %v", res, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	snaps, err := storage.ListSnapshots(context.Background(), other, id, 10)
	if err != nil || len(snaps) == 0 {
		t.Fatalf("expected a snapshot of the external edit: %v %v", snaps, err)
	}
}
