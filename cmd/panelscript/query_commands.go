/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"panelscript/internal/export"
	"panelscript/internal/script"
	"panelscript/internal/storage"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var opt export.BatchOptions
	var preset string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export pages to markdown, HTML or PDF",
		Long: `Export the project's pages. Presets pick the formats when --format is not given:
  web    html and md
  print  pdf (Letter)
Relative output directories are created under <project>/exports/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt.Preset = export.PresetName(strings.ToLower(preset))
			return ctx.withProject(func(ph *storage.ProjectHandle) error {
				for i, p := range opt.Pages {
					ref, err := resolvePage(ph, p)
					if err != nil {
						return err
					}
					opt.Pages[i] = ref.ID
				}
				files, err := export.BatchExport(ph, opt)
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetWeb), "Export preset: web or print")
	cmd.Flags().StringSliceVarP(&opt.Formats, "format", "f", nil, "Formats to write: md, html, pdf (repeatable)")
	cmd.Flags().StringSliceVar(&opt.Pages, "page", nil, "Pages to export (default all)")
	cmd.Flags().StringVarP(&opt.OutDir, "out", "o", "", "Output directory")
	cmd.Flags().StringVar(&opt.PDF.PageSize, "page-size", "", "PDF page size: A4 or Letter")
	cmd.Flags().StringVar(&opt.PDF.Author, "author", "", "PDF author")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var q storage.SearchQuery
	var remote bool
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Full-text search across pages",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = strings.Join(args, " ")
			return ctx.withProject(func(ph *storage.ProjectHandle) error {
				var (
					res []storage.SearchResult
					err error
				)
				if remote {
					repo, closeDB, oerr := ctx.openRemote(cmd.Context(), ph)
					if oerr != nil {
						return oerr
					}
					defer closeDB()
					res, err = repo.SearchPG(cmd.Context(), q)
				} else {
					res, err = storage.Search(cmd.Context(), ph.Root, q)
				}
				if err != nil {
					return err
				}
				if len(res) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
					return nil
				}
				rows := make([][]string, 0, len(res))
				for _, r := range res {
					rows = append(rows, []string{strconv.Itoa(r.PageNumber), shortID(r.PageID), r.Title, r.Snippet})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					right("Page"), left("ID"), {Name: "Title", Max: 32}, {Name: "Match", Max: 60},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.Title, "title", "", "Filter by title substring")
	cmd.Flags().StringVar(&q.Character, "character", "", "Only pages where this character speaks")
	cmd.Flags().IntVar(&q.PageFrom, "from", 0, "First page number")
	cmd.Flags().IntVar(&q.PageTo, "to", 0, "Last page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "Maximum number of results")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Skip this many results")
	cmd.Flags().BoolVar(&remote, "remote", false, "Search the Postgres backend instead of the local index")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var restore int64
	cmd := &cobra.Command{
		Use:   "history <page>",
		Short: "List or restore saved versions of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := func(ph *storage.ProjectHandle) error {
				ref, err := resolvePage(ph, args[0])
				if err != nil {
					return err
				}
				snaps, err := storage.ListSnapshots(cmd.Context(), ph, ref.ID, limit)
				if err != nil {
					return err
				}
				if len(snaps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history for", ref.Title)
					return nil
				}
				rows := make([][]string, 0, len(snaps))
				for _, s := range snaps {
					words := script.WordCount(script.PlainText(script.FromStructured(s.Page)))
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10), s.TS.Local().Format(time.DateTime),
						strconv.Itoa(len(s.Page.Panels)), strconv.Itoa(words),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					right("Snapshot"), left("Saved"), right("Panels"), right("Words"),
				}, rows))
				return nil
			}
			if restore == 0 {
				return ctx.withProject(list)
			}
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				ref, err := resolvePage(ph, args[0])
				if err != nil {
					return err
				}
				snaps, err := storage.ListSnapshots(cmd.Context(), ph, ref.ID, 1<<20)
				if err != nil {
					return err
				}
				for _, s := range snaps {
					if s.ID != restore {
						continue
					}
					if err := storage.NewPageSaver(ph).SavePage(cmd.Context(), ref.ID, s.Page); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to snapshot %d\n", ref.Title, s.ID)
					return nil
				}
				return fmt.Errorf("snapshot %d not found for page %s", restore, ref.ID)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of versions to list")
	cmd.Flags().Int64Var(&restore, "restore", 0, "Restore the page to this snapshot")
	return cmd
}

func newReindexCommand(ctx *commandContext) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the page files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				if check {
					rebuilt, err := storage.DetectAndRebuildIndex(cmd.Context(), ph)
					if err != nil {
						return err
					}
					if rebuilt {
						fmt.Fprintln(cmd.OutOrStdout(), "Index was damaged and has been rebuilt.")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Index is healthy.")
					}
					return nil
				}
				if err := storage.RebuildIndex(cmd.Context(), ph); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d pages.\n", len(ph.Project.Pages))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Only rebuild when the index fails an integrity check")
	return cmd
}
