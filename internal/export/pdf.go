/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"panelscript/internal/domain"
)

// PDFOptions controls PDF export behavior. Units are points.
// Text uses the built-in Helvetica/Courier fonts so no font files are needed;
// characters outside cp1252 cannot be shown.
type PDFOptions struct {
	PageSize string  // "A4" (default) or "Letter"
	Margin   float64 // default 54pt
	FontSize float64 // default 11pt
	Author   string
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.PageSize == "" {
		o.PageSize = "A4"
	}
	if o.Margin <= 0 {
		o.Margin = 54
	}
	if o.FontSize <= 0 {
		o.FontSize = 11
	}
	return o
}

// WritePDF renders pages as a script PDF, one script page per PDF page.
func WritePDF(w io.Writer, title string, pages []domain.ScriptPage, opt PDFOptions) error {
	opt = opt.withDefaults()
	pdf := gofpdf.New("P", "pt", opt.PageSize, "")
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(true, opt.Margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	lh := opt.FontSize * 1.4

	if len(pages) == 0 {
		pdf.AddPage()
	}
	for i, pg := range pages {
		pdf.AddPage()
		if i == 0 && strings.TrimSpace(title) != "" {
			pdf.SetFont("Helvetica", "B", opt.FontSize+7)
			pdf.MultiCell(0, lh*1.5, tr(title), "", "C", false)
			pdf.Ln(lh)
		}
		pdf.SetFont("Helvetica", "B", opt.FontSize+3)
		pdf.MultiCell(0, lh, tr(strings.ToUpper(pageHeading(pg))), "B", "L", false)
		pdf.Ln(lh / 2)
		for _, pn := range pg.Panels {
			t, desc := panelParts(pn)
			pdf.SetFont("Helvetica", "B", opt.FontSize+1)
			pdf.MultiCell(0, lh, tr(t), "", "L", false)
			if desc != "" {
				pdf.SetFont("Helvetica", "", opt.FontSize)
				pdf.MultiCell(0, lh, tr(desc), "", "L", false)
			}
			pdf.Ln(lh / 3)
			for _, c := range pn.Cues {
				pdf.SetFont("Courier", "B", opt.FontSize)
				pdf.SetX(opt.Margin + 36)
				pdf.MultiCell(0, lh, tr(cueHeading(c)), "", "L", false)
				pdf.SetFont("Courier", "", opt.FontSize)
				pdf.SetX(opt.Margin + 36)
				pdf.MultiCell(0, lh, tr(c.Content), "", "L", false)
			}
			if n := strings.TrimSpace(pn.Notes); n != "" {
				pdf.SetFont("Helvetica", "I", opt.FontSize-1)
				pdf.MultiCell(0, lh, tr(n), "", "L", false)
			}
			pdf.Ln(lh / 2)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
