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
	"testing"
	"time"
)

func TestRebuildIndexFromPageFiles(t *testing.T) {
	ph := newTestProject(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p1 := samplePage(1, "Hello from the beach")
	if _, err := CreatePage(ph, "Beach", &p1); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	p2 := samplePage(2, "Night falls over the city")
	if _, err := CreatePage(ph, "City", &p2); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := RebuildIndex(ctx, ph); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	res, err := Search(ctx, ph.Root, SearchQuery{Text: "hello"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Title != "Beach" {
		t.Fatalf("unexpected results: %+v", res)
	}
	// Rebuilding twice leaves one row per page.
	if err := RebuildIndex(ctx, ph); err != nil {
		t.Fatalf("RebuildIndex again: %v", err)
	}
	res, err = Search(ctx, ph.Root, SearchQuery{})
	if err != nil {
		t.Fatalf("Search all: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 indexed pages, got %d", len(res))
	}
}
