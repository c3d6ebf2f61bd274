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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"panelscript/internal/domain"
	"panelscript/internal/export"
	applog "panelscript/internal/log"
	"panelscript/internal/script"
	"panelscript/internal/storage"
	"panelscript/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
}

func newInitCommand() *cobra.Command {
	var characters []string
	cmd := &cobra.Command{
		Use:   "init <dir> <name>",
		Short: "Create a new project at <dir>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			applog.WithComponent("cli").Info("init project", "root", abs, "name", args[1])
			if _, err := storage.InitProject(abs, domain.Project{Name: args[1], Characters: characters}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created project at", abs)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&characters, "character", nil, "Character names offered as suggestions (repeatable)")
	return cmd
}

func newPagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the pages of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(func(ph *storage.ProjectHandle) error {
				refs := storage.ListPages(ph)
				if len(refs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pages yet. Create one with `panelscript new`.")
					return nil
				}
				rows := make([][]string, 0, len(refs))
				for _, ref := range refs {
					page, panels, words := "?", "?", "?"
					if pf, err := storage.ReadPage(ph, ref.ID); err == nil {
						page = strconv.Itoa(pf.PageContent.Page)
						panels = strconv.Itoa(len(pf.PageContent.Panels))
						words = strconv.Itoa(script.WordCount(script.PlainText(script.FromStructured(pf.PageContent))))
					}
					rows = append(rows, []string{
						shortID(ref.ID), ref.Title, page, panels, words,
						strconv.Itoa(ref.Version), ref.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					left("ID"), {Name: "Title", Max: 40}, right("Page"), right("Panels"),
					right("Words"), right("Version"), left("Updated"),
				}, rows))
				return nil
			})
		},
	}
}

func newNewPageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Add an empty page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) == 1 {
				title = args[0]
			}
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				ref, err := storage.CreatePage(ph, title, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", ref.Title, ref.ID)
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <page>",
		Short: "Print a page as markdown, plain text or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(func(ph *storage.ProjectHandle) error {
				ref, err := resolvePage(ph, args[0])
				if err != nil {
					return err
				}
				pf, err := storage.ReadPage(ph, ref.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch format {
				case "md", "markdown":
					_, err = out.Write(export.Markdown(ref.Title, []domain.ScriptPage{pf.PageContent}))
				case "text":
					_, err = fmt.Fprintln(out, script.PlainText(script.FromStructured(pf.PageContent)))
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					err = enc.Encode(pf)
				default:
					return fmt.Errorf("unknown format %q (want md, text or json)", format)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, text or json")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <page>",
		Short: "Delete a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				ref, err := resolvePage(ph, args[0])
				if err != nil {
					return err
				}
				if err := storage.DeletePage(cmd.Context(), ph, ref.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", ref.Title, ref.ID)
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a plain-text script, one page file per page",
		Long: `Import a plain-text script. Recognized lines:

  Page 3: title      starts a page ("# title" works too)
  Panel 2: header    starts a panel
  NAME: text         a cue; SFX is a sound effect, CAPTION a caption
    continued        indented lines continue the previous cue
  ; note             a panel note
  anything else      description`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			blocks, warnings := script.ParseText(string(data))
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d: %s\n", args[0], w.Line, w.Message)
			}
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				refs, err := importPages(cmd.Context(), ph, blocks)
				for _, ref := range refs {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", ref.Title, ref.ID)
				}
				return err
			})
		},
	}
}

// importPages stores each page of blocks as a new page, numbered after the
// highest page already in the project. The page header text becomes the title.
func importPages(ctx context.Context, ph *storage.ProjectHandle, blocks []script.Block) ([]domain.PageRef, error) {
	base := storage.LastPageNumber(ph)
	var refs []domain.PageRef
	for _, chunk := range script.SplitPages(blocks) {
		page := script.ToStructured(chunk)
		page.Page += base
		ref, err := storage.CreatePage(ph, strings.TrimSpace(chunk[0].Text), &page)
		if err != nil {
			return refs, err
		}
		if err := storage.IndexPage(ctx, ph.Root, ref, page); err != nil {
			applog.WithComponent("cli").Warn("index imported page failed", "page_id", ref.ID, "err", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
