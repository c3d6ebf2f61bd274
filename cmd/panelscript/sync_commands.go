/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"panelscript/internal/backend"
	"panelscript/internal/domain"
	applog "panelscript/internal/log"
	"panelscript/internal/storage"
)

// pageStore is the subset of backend.PageRepository that sync needs.
type pageStore interface {
	ListPages(ctx context.Context) ([]domain.PageRef, error)
	ReadPage(ctx context.Context, id string) (domain.PageFile, error)
	PutPage(ctx context.Context, pf domain.PageFile) (bool, error)
}

var _ pageStore = (*backend.PageRepository)(nil)

type pushResult struct {
	Pushed    int
	Unchanged int
}

// pushPages uploads local pages whose version is ahead of the remote copy.
// Pages the remote holds at a higher version are reported with
// backend.ErrRemoteNewer and left for a pull.
func pushPages(ctx context.Context, ph *storage.ProjectHandle, remote pageStore) (pushResult, error) {
	l := applog.WithOperation(applog.WithComponent("sync"), "push")
	var res pushResult
	refs, err := remote.ListPages(ctx)
	if err != nil {
		return res, err
	}
	remoteVersion := make(map[string]int, len(refs))
	for _, r := range refs {
		remoteVersion[r.ID] = r.Version
	}

	var errs []error
	for _, ref := range storage.ListPages(ph) {
		rv, known := remoteVersion[ref.ID]
		switch {
		case known && rv == ref.Version:
			res.Unchanged++
			continue
		case known && rv > ref.Version:
			errs = append(errs, fmt.Errorf("page %s: %w (version %d > %d)", ref.ID, backend.ErrRemoteNewer, rv, ref.Version))
			continue
		}
		pf, err := storage.ReadPage(ph, ref.ID)
		written := false
		if err == nil {
			written, err = remote.PutPage(ctx, pf)
		}
		if err != nil {
			l.Warn("push page failed", slog.String("page_id", ref.ID), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("page %s: %w", ref.ID, err))
			continue
		}
		if written {
			res.Pushed++
		} else {
			res.Unchanged++
		}
	}
	return res, errors.Join(errs...)
}

// pullPages downloads remote pages that are missing locally or carry a newer
// version, and indexes them.
func pullPages(ctx context.Context, ph *storage.ProjectHandle, remote pageStore) (int, error) {
	l := applog.WithOperation(applog.WithComponent("sync"), "pull")
	refs, err := remote.ListPages(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, rref := range refs {
		if local, err := storage.FindPage(ph, rref.ID); err == nil && local.Version >= rref.Version {
			continue
		}
		pf, err := remote.ReadPage(ctx, rref.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", rref.ID, err))
			continue
		}
		ref, err := storage.PutPage(ctx, ph, pf)
		if err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", rref.ID, err))
			continue
		}
		if err := storage.IndexPage(ctx, ph.Root, ref, pf.PageContent); err != nil {
			l.Warn("index pulled page failed", slog.String("page_id", ref.ID), slog.Any("err", err))
		}
		n++
	}
	return n, errors.Join(errs...)
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload local pages to the Postgres backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(func(ph *storage.ProjectHandle) error {
				repo, closeDB, err := ctx.openRemote(cmd.Context(), ph)
				if err != nil {
					return err
				}
				defer closeDB()
				res, err := pushPages(cmd.Context(), ph, repo)
				fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d of %d pages, %d already up to date.\n",
					res.Pushed, len(ph.Project.Pages), res.Unchanged)
				if errors.Is(err, backend.ErrRemoteNewer) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Some pages changed on the backend; run pull first.")
				}
				return err
			})
		},
	}
}

func newPullCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download newer pages from the Postgres backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				repo, closeDB, err := ctx.openRemote(cmd.Context(), ph)
				if err != nil {
					return err
				}
				defer closeDB()
				n, err := pullPages(cmd.Context(), ph, repo)
				fmt.Fprintf(cmd.OutOrStdout(), "Pulled %d pages.\n", n)
				return err
			})
		},
	}
}
