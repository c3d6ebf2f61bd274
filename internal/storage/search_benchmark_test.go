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

	"panelscript/internal/domain"
)

func BenchmarkSearchFTS(b *testing.B) {
	root := b.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ref := domain.PageRef{ID: "bench", Title: "Bench", UpdatedAt: time.Now()}
	if err := IndexPage(ctx, root, ref, samplePage(1, "Hello world benchmark")); err != nil {
		b.Fatalf("IndexPage: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Search(ctx, root, SearchQuery{Text: "Hello"})
		if err != nil {
			b.Fatalf("Search: %v", err)
		}
	}
}

func BenchmarkRebuildIndex(b *testing.B) {
	ph, err := InitProject(b.TempDir(), domain.Project{Name: "Bench"})
	if err != nil {
		b.Fatalf("InitProject: %v", err)
	}
	for i := 1; i <= 20; i++ {
		p := samplePage(i, "Hello world benchmark")
		if _, err := CreatePage(ph, "", &p); err != nil {
			b.Fatalf("CreatePage: %v", err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = RebuildIndex(ctx, ph)
		cancel()
	}
}
