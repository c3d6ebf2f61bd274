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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	ph := newTestProject(t)
	p := samplePage(1, "hi there")
	if _, err := CreatePage(ph, "", &p); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	_ = db.Close()
	idx := IndexPath(ph.Root)
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	_ = os.Remove(idx + "-wal")
	_ = os.Remove(idx + "-shm")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := DetectAndRebuildIndex(ctx, ph)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	res, err := Search(ctx, ph.Root, SearchQuery{Text: "there"})
	if err != nil || len(res) != 1 {
		t.Fatalf("search after rebuild: %v len=%d", err, len(res))
	}
	bdir := filepath.Join(ph.Root, IndexDirName, BackupsDirName)
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
}

func TestDetectAndRebuildIndex_HealthyIsNoop(t *testing.T) {
	ph := newTestProject(t)
	ctx := context.Background()
	rebuilt, err := DetectAndRebuildIndex(ctx, ph)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if rebuilt {
		t.Fatalf("healthy index should not be rebuilt")
	}
}
