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
	"log/slog"
	"sync"

	"panelscript/internal/domain"
	applog "panelscript/internal/log"
)

// PageSaver persists editor output: it rewrites the page file, refreshes the
// search index and appends a history snapshot. Index and history failures are
// logged but do not fail the save, since the page file is the source of truth.
type PageSaver struct {
	mu     sync.Mutex
	handle *ProjectHandle
}

// NewPageSaver returns a saver writing into the project behind ph.
func NewPageSaver(ph *ProjectHandle) *PageSaver {
	return &PageSaver{handle: ph}
}

// SavePage writes page as the new content of page id.
func (s *PageSaver) SavePage(ctx context.Context, id string, page domain.ScriptPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("storage"), "save_page").With(slog.String("page_id", id))
	ref, err := WritePage(ctx, s.handle, id, "", page)
	if err != nil {
		l.Error("write page failed", slog.Any("err", err))
		return err
	}
	if err := IndexPage(ctx, s.handle.Root, ref, page); err != nil {
		l.Warn("index page failed", slog.Any("err", err))
	}
	if err := SaveSnapshot(ctx, s.handle, id, page, ref.UpdatedAt); err != nil {
		l.Warn("snapshot failed", slog.Any("err", err))
	}
	l.Debug("page saved", slog.Int("version", ref.Version))
	return nil
}
