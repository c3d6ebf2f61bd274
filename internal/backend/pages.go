/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"panelscript/internal/domain"
	"panelscript/internal/script"
)

var (
	// ErrNotFound is returned for pages that do not exist in the project.
	ErrNotFound = errors.New("page not found")
	// ErrRemoteNewer is returned when a pushed page is older than the stored one.
	ErrRemoteNewer = errors.New("stored page is newer")
)

// PageRepository stores the pages of one project in the pages table.
type PageRepository struct {
	db        *sql.DB
	projectID string
}

// NewPageRepository scopes repository calls to projectID.
func NewPageRepository(db *sql.DB, projectID string) *PageRepository {
	return &PageRepository{db: db, projectID: projectID}
}

// dialect=PostgreSQL
const listPagesSQL = `SELECT id, title, version, created_at, updated_at
FROM pages WHERE project_id = $1
ORDER BY page_number, created_at, id`

// dialect=PostgreSQL
const readPageSQL = `SELECT title, page_content, version, created_at, updated_at
FROM pages WHERE project_id = $1 AND id = $2`

// dialect=PostgreSQL
const insertPageSQL = `INSERT INTO pages(id, project_id, title, page_number, page_content, raw_text, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)`

// dialect=PostgreSQL
const updatePageSQL = `UPDATE pages SET
	title = CASE WHEN $3::text = '' THEN title ELSE $3::text END,
	page_number = $4,
	page_content = $5,
	raw_text = $6,
	version = version + 1,
	updated_at = $7
WHERE project_id = $1 AND id = $2
RETURNING title, version, created_at, updated_at`

// dialect=PostgreSQL
const putPageSQL = `INSERT INTO pages(id, project_id, title, page_number, page_content, raw_text, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	page_number = excluded.page_number,
	page_content = excluded.page_content,
	raw_text = excluded.raw_text,
	version = excluded.version,
	updated_at = excluded.updated_at
WHERE pages.project_id = excluded.project_id AND excluded.version > pages.version`

// dialect=PostgreSQL
const pageOwnerSQL = `SELECT project_id, version FROM pages WHERE id = $1`

func encodeContent(page domain.ScriptPage) (string, string, error) {
	page = page.Normalized()
	b, err := json.Marshal(page)
	if err != nil {
		return "", "", fmt.Errorf("encode page content: %w", err)
	}
	return string(b), script.PlainText(script.FromStructured(page)), nil
}

// ListPages returns the project's pages ordered by page number.
func (r *PageRepository) ListPages(ctx context.Context) ([]domain.PageRef, error) {
	rows, err := r.db.QueryContext(ctx, listPagesSQL, r.projectID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.PageRef{}
	for rows.Next() {
		var ref domain.PageRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Version, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// CreatePage inserts a new page with a fresh id at version 1.
func (r *PageRepository) CreatePage(ctx context.Context, title string, page domain.ScriptPage) (domain.PageRef, error) {
	content, text, err := encodeContent(page)
	if err != nil {
		return domain.PageRef{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Page %d", page.Page)
	}
	now := time.Now().UTC()
	ref := domain.PageRef{ID: uuid.NewString(), Title: title, Version: 1, CreatedAt: now, UpdatedAt: now}
	if _, err := r.db.ExecContext(ctx, insertPageSQL, ref.ID, r.projectID, title, page.Page, content, text, now); err != nil {
		return domain.PageRef{}, fmt.Errorf("insert page: %w", err)
	}
	return ref, nil
}

// ReadPage loads one page with its metadata.
func (r *PageRepository) ReadPage(ctx context.Context, id string) (domain.PageFile, error) {
	pf := domain.PageFile{Metadata: domain.PageMeta{ID: id}}
	var raw []byte
	err := r.db.QueryRowContext(ctx, readPageSQL, r.projectID, id).Scan(
		&pf.Metadata.Title, &raw, &pf.Metadata.Version, &pf.Metadata.CreatedAt, &pf.Metadata.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PageFile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.PageFile{}, fmt.Errorf("read page %s: %w", id, err)
	}
	if err := json.Unmarshal(raw, &pf.PageContent); err != nil {
		return domain.PageFile{}, fmt.Errorf("decode page %s: %w", id, err)
	}
	pf.PageContent = pf.PageContent.Normalized()
	return pf, nil
}

// UpdatePage replaces the content of page id and bumps its version. An empty
// title keeps the stored one.
func (r *PageRepository) UpdatePage(ctx context.Context, id, title string, page domain.ScriptPage) (domain.PageRef, error) {
	content, text, err := encodeContent(page)
	if err != nil {
		return domain.PageRef{}, err
	}
	ref := domain.PageRef{ID: id}
	err = r.db.QueryRowContext(ctx, updatePageSQL, r.projectID, id, strings.TrimSpace(title), page.Page, content, text, time.Now().UTC()).
		Scan(&ref.Title, &ref.Version, &ref.CreatedAt, &ref.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PageRef{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.PageRef{}, fmt.Errorf("update page %s: %w", id, err)
	}
	return ref, nil
}

// SavePage stores editor output for an existing page.
func (r *PageRepository) SavePage(ctx context.Context, id string, page domain.ScriptPage) error {
	_, err := r.UpdatePage(ctx, id, "", page)
	return err
}

// PutPage upserts a page file under its own id, as when pushing a local
// project, and reports whether the row was written. Only a higher version
// replaces a stored page: an equal version is left alone and an older one
// fails with ErrRemoteNewer.
func (r *PageRepository) PutPage(ctx context.Context, pf domain.PageFile) (bool, error) {
	content, text, err := encodeContent(pf.PageContent)
	if err != nil {
		return false, err
	}
	m := pf.Metadata
	if m.Version < 1 {
		m.Version = 1
	}
	res, err := r.db.ExecContext(ctx, putPageSQL, m.ID, r.projectID, m.Title, pf.PageContent.Page, content, text,
		m.Version, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("put page %s: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	var owner string
	var stored int
	if err := r.db.QueryRowContext(ctx, pageOwnerSQL, m.ID).Scan(&owner, &stored); err != nil {
		return false, fmt.Errorf("put page %s: %w", m.ID, err)
	}
	switch {
	case owner != r.projectID:
		return false, fmt.Errorf("put page %s: id belongs to another project", m.ID)
	case stored > m.Version:
		return false, fmt.Errorf("put page %s: %w (version %d > %d)", m.ID, ErrRemoteNewer, stored, m.Version)
	}
	return false, nil
}

// DeletePage removes page id.
func (r *PageRepository) DeletePage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE project_id = $1 AND id = $2`, r.projectID, id)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
