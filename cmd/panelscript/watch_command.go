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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"panelscript/internal/config"
	applog "panelscript/internal/log"
	"panelscript/internal/storage"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var quiet, runFor time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index and history in sync with page files edited outside panelscript",
		Long: `Watch the pages directory and re-index every page file that changes on disk.
Each change is also recorded as a history snapshot. Old snapshots are pruned on
the history.prune_every schedule, keeping history.keep_per_page per page.
The project's writer lock is held while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, runFor)
				defer cancel()
			}
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				return watchProject(runCtx, ph, cfg.History, quiet, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().DurationVar(&quiet, "quiet", 500*time.Millisecond, "Wait this long after the last write before re-indexing")
	cmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this long (default: until interrupted)")
	return cmd
}

// watchProject runs until ctx is done.
func watchProject(ctx context.Context, ph *storage.ProjectHandle, hist config.HistoryConfig, quiet time.Duration, out io.Writer) error {
	l := applog.WithComponent("watch")
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, ph); err != nil {
		return err
	} else if rebuilt {
		fmt.Fprintln(out, "Index was damaged and has been rebuilt.")
	}

	w, err := storage.WatchPages(ph, quiet)
	if err != nil {
		return err
	}
	defer w.Close()

	if hist.PruneEvery != "" && hist.KeepPerPage > 0 {
		c := cron.New()
		if _, err := c.AddFunc(hist.PruneEvery, func() {
			n, err := storage.PruneAllSnapshots(ctx, ph, hist.KeepPerPage)
			if err != nil {
				l.Warn("prune snapshots failed", slog.Any("err", err))
				return
			}
			l.Info("pruned snapshots", slog.Int64("removed", n))
		}); err != nil {
			return fmt.Errorf("history.prune_every %q: %w", hist.PruneEvery, err)
		}
		c.Start()
		defer c.Stop()
	}

	fmt.Fprintf(out, "Watching %s\n", ph.Root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := applyPageEvent(ctx, ph, ev); err != nil {
				l.Warn("page event failed", slog.String("page_id", ev.PageID), slog.Any("err", err))
				continue
			}
			state := "updated"
			if ev.Removed {
				state = "removed"
			}
			fmt.Fprintf(out, "%s %s %s\n", ev.At.Local().Format(time.TimeOnly), shortID(ev.PageID), state)
		}
	}
}

func applyPageEvent(ctx context.Context, ph *storage.ProjectHandle, ev storage.PageEvent) error {
	if ev.Removed {
		return storage.RemovePageFromIndex(ctx, ph.Root, ev.PageID)
	}
	ref, err := storage.FindPage(ph, ev.PageID)
	if err != nil {
		return err
	}
	pf, err := storage.ReadPage(ph, ref.ID)
	if err != nil {
		return err
	}
	if err := storage.IndexPage(ctx, ph.Root, ref, pf.PageContent); err != nil {
		return err
	}
	return storage.SaveSnapshot(ctx, ph, ref.ID, pf.PageContent, ev.At)
}
