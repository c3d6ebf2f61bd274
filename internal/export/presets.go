/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"panelscript/internal/domain"
	applog "panelscript/internal/log"
	"panelscript/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of a project's pages.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <project>/exports/<preset>/.
//   - Each format writes a single file named after the project, e.g. my-comic.pdf.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: md, html, pdf; empty means preset defaults
	Pages   []string // page ids; empty means all pages
	OutDir  string
	PDF     PDFOptions
}

// BatchExport renders the selected pages into every requested format and
// returns the written file paths.
func BatchExport(ph *storage.ProjectHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	pages, err := loadPages(ph, opt.Pages)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("project has no pages")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "default"
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.Root, "exports", baseOut)
	}
	if err := os.MkdirAll(baseOut, 0o755); err != nil {
		return nil, err
	}

	title := ph.Project.Name
	stem := slug(title)
	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		var data []byte
		switch f {
		case "md", "markdown":
			f = "md"
			data = Markdown(title, pages)
		case "html":
			if data, err = HTML(title, pages); err != nil {
				return written, err
			}
		case "pdf":
			var buf bytes.Buffer
			po := opt.PDF
			if po.PageSize == "" {
				po.PageSize = presetPageSize(opt.Preset)
			}
			if err := WritePDF(&buf, title, pages, po); err != nil {
				return written, err
			}
			data = buf.Bytes()
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		out := filepath.Join(baseOut, stem+"."+f)
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		applog.WithComponent("export").Info("exported", "format", f, "path", out, "pages", len(pages))
		written = append(written, out)
	}
	return written, nil
}

// loadPages reads the selected pages and orders them by page number.
func loadPages(ph *storage.ProjectHandle, ids []string) ([]domain.ScriptPage, error) {
	if len(ids) == 0 {
		for _, ref := range storage.ListPages(ph) {
			ids = append(ids, ref.ID)
		}
	}
	pages := make([]domain.ScriptPage, 0, len(ids))
	for _, id := range ids {
		pf, err := storage.ReadPage(ph, id)
		if err != nil {
			return nil, err
		}
		pages = append(pages, pf.PageContent)
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	return pages, nil
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "script"
	}
	return out
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"html", "md"}
	case PresetPrint:
		return []string{"pdf"}
	default:
		return []string{"md"}
	}
}

func presetPageSize(p PresetName) string {
	if p == PresetPrint {
		return "Letter"
	}
	return "A4"
}
