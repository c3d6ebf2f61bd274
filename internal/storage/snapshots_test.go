/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotsCRUD(t *testing.T) {
	root := t.TempDir()
	ph := &ProjectHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	ctx := context.Background()

	if _, ok, err := GetLatestSnapshot(ctx, ph, "p1"); err != nil || ok {
		t.Fatalf("expected no snapshot yet, ok=%v err=%v", ok, err)
	}

	base := time.Now()
	if err := SaveSnapshot(ctx, ph, "p1", samplePage(1, "first"), base); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	s, ok, err := GetLatestSnapshot(ctx, ph, "p1")
	if err != nil || !ok {
		t.Fatalf("GetLatestSnapshot ok=%v err=%v", ok, err)
	}
	if got := s.Page.Panels[0].Cues[0].Content; got != "first" {
		t.Fatalf("latest snapshot content %q", got)
	}
	for i := 0; i < 5; i++ {
		if err := SaveSnapshot(ctx, ph, "p1", samplePage(1, string(rune('a'+i))), base.Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	if err := SaveSnapshot(ctx, ph, "p2", samplePage(2, "other"), base); err != nil {
		t.Fatalf("SaveSnapshot p2: %v", err)
	}
	list, err := ListSnapshots(ctx, ph, "p1", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	if got := list[0].Page.Panels[0].Cues[0].Content; got != "e" {
		t.Fatalf("expected newest first, got %q", got)
	}
	if !list[0].TS.After(list[1].TS) {
		t.Fatalf("timestamps not descending: %v %v", list[0].TS, list[1].TS)
	}

	n, err := PruneOldSnapshots(ctx, ph, "p1", 3)
	if err != nil {
		t.Fatalf("PruneOldSnapshots: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deletions, got %d", n)
	}
	list, err = ListSnapshots(ctx, ph, "p1", 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSnapshots after prune got %d err %v", len(list), err)
	}
	// Other pages are unaffected.
	list, err = ListSnapshots(ctx, ph, "p2", 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSnapshots p2 got %d err %v", len(list), err)
	}
}

func TestPruneAllSnapshots(t *testing.T) {
	root := t.TempDir()
	ph := &ProjectHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	ctx := context.Background()
	base := time.Now()
	for _, id := range []string{"a", "b"} {
		for i := 0; i < 4; i++ {
			if err := SaveSnapshot(ctx, ph, id, samplePage(1, "x"), base.Add(time.Duration(i)*time.Millisecond)); err != nil {
				t.Fatalf("SaveSnapshot: %v", err)
			}
		}
	}
	n, err := PruneAllSnapshots(ctx, ph, 1)
	if err != nil {
		t.Fatalf("PruneAllSnapshots: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6 deletions, got %d", n)
	}
	if n, err := PruneAllSnapshots(ctx, ph, 0); err != nil || n != 0 {
		t.Fatalf("keep=0 should be a no-op, n=%d err=%v", n, err)
	}
}
