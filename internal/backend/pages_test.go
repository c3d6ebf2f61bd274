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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panelscript/internal/domain"
	"panelscript/internal/script"
	"panelscript/internal/storage"
)

func remotePage(n int, line string) domain.ScriptPage {
	return domain.ScriptPage{
		Page:       n,
		PanelCount: 1,
		Panels: []domain.Panel{{
			PanelNumber: 1,
			Header:      "Panel 1: Rooftops",
			Cues:        []domain.Cue{{Type: script.CueCharacter, Label: "MAYA", Content: line}},
		}},
	}
}

func TestPageRepositoryCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ref, err := repo.CreatePage(ctx, "", remotePage(1, "Sunrise over the city"))
	require.NoError(t, err)
	require.Equal(t, "Page 1", ref.Title)
	require.Equal(t, 1, ref.Version)

	pf, err := repo.ReadPage(ctx, ref.ID)
	require.NoError(t, err)
	require.Equal(t, "Sunrise over the city", pf.PageContent.Panels[0].Cues[0].Content)

	updated, err := repo.UpdatePage(ctx, ref.ID, "", remotePage(1, "Sunset"))
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "Page 1", updated.Title)

	require.NoError(t, repo.SavePage(ctx, ref.ID, remotePage(1, "Night")))
	pf, err = repo.ReadPage(ctx, ref.ID)
	require.NoError(t, err)
	require.Equal(t, 3, pf.Metadata.Version)

	list, err := repo.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeletePage(ctx, ref.ID))
	_, err = repo.ReadPage(ctx, ref.ID)
	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, errors.Is(repo.DeletePage(ctx, ref.ID), ErrNotFound))
	_, err = repo.UpdatePage(ctx, ref.ID, "", remotePage(1, ""))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestPutPageOnlyReplacesOlderVersions(t *testing.T) {
	repo := testRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ref, err := repo.CreatePage(ctx, "Remote", remotePage(1, "a"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SavePage(ctx, ref.ID, remotePage(1, "b")))
	}
	now := time.Now().UTC()
	pf := domain.PageFile{
		Metadata:    domain.PageMeta{ID: ref.ID, Title: "Local", Version: 2, CreatedAt: now, UpdatedAt: now},
		PageContent: remotePage(1, "stale"),
	}
	written, err := repo.PutPage(ctx, pf)
	require.ErrorIs(t, err, ErrRemoteNewer)
	require.False(t, written)
	got, err := repo.ReadPage(ctx, ref.ID)
	require.NoError(t, err)
	require.Equal(t, 4, got.Metadata.Version)
	require.Equal(t, "b", got.PageContent.Panels[0].Cues[0].Content)

	pf.Metadata.Version = 6
	pf.PageContent = remotePage(1, "pushed")
	written, err = repo.PutPage(ctx, pf)
	require.NoError(t, err)
	require.True(t, written)

	written, err = repo.PutPage(ctx, pf)
	require.NoError(t, err)
	require.False(t, written)

	got, err = repo.ReadPage(ctx, ref.ID)
	require.NoError(t, err)
	require.Equal(t, 6, got.Metadata.Version)
	require.Equal(t, "Local", got.Metadata.Title)
	require.Equal(t, "pushed", got.PageContent.Panels[0].Cues[0].Content)
}

// TestSearchParityWithLocalIndex runs the same queries against the local
// SQLite index and Postgres and expects the same pages back.
func TestSearchParityWithLocalIndex(t *testing.T) {
	repo := testRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ph, err := storage.InitProject(t.TempDir(), domain.Project{Name: "Parity"})
	require.NoError(t, err)
	lines := []string{"Sunrise over the city", "Rain on the harbor", "Sunrise again"}
	for i, line := range lines {
		p := remotePage(i+1, line)
		ref, err := storage.CreatePage(ph, "", &p)
		require.NoError(t, err)
		pf, err := storage.ReadPage(ph, ref.ID)
		require.NoError(t, err)
		_, err = repo.PutPage(ctx, pf)
		require.NoError(t, err)
	}
	require.NoError(t, storage.RebuildIndex(ctx, ph))

	queries := []storage.SearchQuery{
		{Text: "sunrise"},
		{Text: "harbor"},
		{Character: "maya", PageFrom: 2},
		{Title: "page 3"},
	}
	for _, q := range queries {
		local, err := storage.Search(ctx, ph.Root, q)
		require.NoError(t, err)
		remote, err := repo.SearchPG(ctx, q)
		require.NoError(t, err)
		require.Equal(t, ids(local), ids(remote), "query %+v", q)
	}
}

func ids(res []storage.SearchResult) []string {
	out := []string{}
	for _, r := range res {
		out = append(out, r.PageID)
	}
	return out
}
