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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"panelscript/internal/domain"
	applog "panelscript/internal/log"
)

// PagesDirName holds one JSON file per page.
const PagesDirName = "pages"

var (
	// ErrPageNotFound is returned for page ids the manifest does not list.
	ErrPageNotFound = errors.New("page not found")
	// ErrOlderVersion is returned when a received page is older than the local one.
	ErrOlderVersion = errors.New("page is older than the local copy")
)

func pageFileRel(id string) string {
	return filepath.ToSlash(filepath.Join(PagesDirName, id+".json"))
}

// PagePath returns the absolute path of the page file for ref.
func PagePath(ph *ProjectHandle, ref domain.PageRef) string {
	return filepath.Join(ph.Root, filepath.FromSlash(ref.File))
}

// ListPages returns the page references in manifest order.
func ListPages(ph *ProjectHandle) []domain.PageRef {
	out := make([]domain.PageRef, len(ph.Project.Pages))
	copy(out, ph.Project.Pages)
	return out
}

// LastPageNumber returns the highest page number stored in the project, or 0
// when it has no pages. Unreadable page files are skipped.
func LastPageNumber(ph *ProjectHandle) int {
	last := 0
	for _, ref := range ph.Project.Pages {
		if pf, err := ReadPage(ph, ref.ID); err == nil {
			last = max(last, pf.PageContent.Page)
		}
	}
	return last
}

// FindPage returns the manifest entry for id.
func FindPage(ph *ProjectHandle, id string) (domain.PageRef, error) {
	i := ph.Project.FindPage(id)
	if i < 0 {
		return domain.PageRef{}, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	return ph.Project.Pages[i], nil
}

// CreatePage adds a new page to the project. A nil content creates an empty
// page numbered after the existing ones.
func CreatePage(ph *ProjectHandle, title string, content *domain.ScriptPage) (domain.PageRef, error) {
	if ph == nil {
		return domain.PageRef{}, errors.New("nil ProjectHandle")
	}
	now := time.Now().UTC()
	id := uuid.NewString()
	page := domain.NewScriptPage(LastPageNumber(ph) + 1)
	if content != nil {
		page = *content
	}
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Page %d", page.Page)
	}
	ref := domain.PageRef{ID: id, Title: title, File: pageFileRel(id), Version: 1, CreatedAt: now, UpdatedAt: now}
	pf := domain.PageFile{
		Metadata:    domain.PageMeta{ID: id, Title: title, Version: 1, CreatedAt: now, UpdatedAt: now},
		PageContent: page,
	}
	data, err := encodePageFile(pf)
	if err != nil {
		return domain.PageRef{}, err
	}
	if err := os.MkdirAll(filepath.Join(ph.Root, PagesDirName), 0o755); err != nil {
		return domain.PageRef{}, fmt.Errorf("ensure pages dir: %w", err)
	}
	if err := writeFileAtomic(PagePath(ph, ref), data); err != nil {
		return domain.PageRef{}, fmt.Errorf("write page %s: %w", id, err)
	}
	ph.Project.Pages = append(ph.Project.Pages, ref)
	if err := Save(ph); err != nil {
		return domain.PageRef{}, err
	}
	return ref, nil
}

// ReadPage loads and validates the page file for id.
func ReadPage(ph *ProjectHandle, id string) (domain.PageFile, error) {
	ref, err := FindPage(ph, id)
	if err != nil {
		return domain.PageFile{}, err
	}
	data, err := os.ReadFile(PagePath(ph, ref))
	if err != nil {
		return domain.PageFile{}, fmt.Errorf("read page %s: %w", id, err)
	}
	pf, err := ParsePageFile(data)
	if err != nil {
		return domain.PageFile{}, fmt.Errorf("page %s: %w", id, err)
	}
	return pf, nil
}

// WritePage replaces the content of page id, bumps its version and updates
// the manifest entry. An empty title keeps the current one.
func WritePage(ctx context.Context, ph *ProjectHandle, id, title string, page domain.ScriptPage) (domain.PageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageRef{}, err
	}
	i := ph.Project.FindPage(id)
	if i < 0 {
		return domain.PageRef{}, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	ref := ph.Project.Pages[i]
	ref.Version++
	ref.UpdatedAt = time.Now().UTC()
	if t := strings.TrimSpace(title); t != "" {
		ref.Title = t
	}
	pf := domain.PageFile{
		Metadata:    domain.PageMeta{ID: id, Title: ref.Title, Version: ref.Version, CreatedAt: ref.CreatedAt, UpdatedAt: ref.UpdatedAt},
		PageContent: page,
	}
	data, err := encodePageFile(pf)
	if err != nil {
		return domain.PageRef{}, fmt.Errorf("page %s: %w", id, err)
	}
	if err := writeFileAtomic(PagePath(ph, ref), data); err != nil {
		return domain.PageRef{}, fmt.Errorf("write page %s: %w", id, err)
	}
	ph.Project.Pages[i] = ref
	if err := Save(ph); err != nil {
		return domain.PageRef{}, err
	}
	return ref, nil
}

// DeletePage removes the page file, its manifest entry and its index row.
func DeletePage(ctx context.Context, ph *ProjectHandle, id string) error {
	i := ph.Project.FindPage(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	ref := ph.Project.Pages[i]
	if err := os.Remove(PagePath(ph, ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove page %s: %w", id, err)
	}
	ph.Project.Pages = append(ph.Project.Pages[:i], ph.Project.Pages[i+1:]...)
	if err := Save(ph); err != nil {
		return err
	}
	if err := RemovePageFromIndex(ctx, ph.Root, id); err != nil {
		applog.WithComponent("storage").Warn("remove page from index failed", slog.String("page_id", id), slog.Any("err", err))
	}
	return nil
}

// PutPage stores a page file received from elsewhere under its own id,
// adding it to the manifest when missing. A page older than the local copy
// is rejected with ErrOlderVersion.
func PutPage(ctx context.Context, ph *ProjectHandle, pf domain.PageFile) (domain.PageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageRef{}, err
	}
	id := pf.Metadata.ID
	i := ph.Project.FindPage(id)
	ref := domain.PageRef{ID: id, File: pageFileRel(id), CreatedAt: pf.Metadata.CreatedAt}
	if i >= 0 {
		ref = ph.Project.Pages[i]
		if pf.Metadata.Version < ref.Version {
			return ref, fmt.Errorf("%w: %s (version %d < %d)", ErrOlderVersion, id, pf.Metadata.Version, ref.Version)
		}
	}
	ref.Title = pf.Metadata.Title
	ref.Version = max(pf.Metadata.Version, 1)
	ref.UpdatedAt = pf.Metadata.UpdatedAt
	pf.Metadata = domain.PageMeta{ID: id, Title: ref.Title, Version: ref.Version, CreatedAt: ref.CreatedAt, UpdatedAt: ref.UpdatedAt}

	data, err := encodePageFile(pf)
	if err != nil {
		return domain.PageRef{}, fmt.Errorf("page %s: %w", id, err)
	}
	if err := os.MkdirAll(filepath.Join(ph.Root, PagesDirName), 0o755); err != nil {
		return domain.PageRef{}, fmt.Errorf("ensure pages dir: %w", err)
	}
	if err := writeFileAtomic(PagePath(ph, ref), data); err != nil {
		return domain.PageRef{}, fmt.Errorf("write page %s: %w", id, err)
	}
	if i >= 0 {
		ph.Project.Pages[i] = ref
	} else {
		ph.Project.Pages = append(ph.Project.Pages, ref)
	}
	if err := Save(ph); err != nil {
		return domain.PageRef{}, err
	}
	return ref, nil
}
