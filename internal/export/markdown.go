/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders structured script pages into reading formats:
// Markdown, HTML and PDF.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"panelscript/internal/domain"
	"panelscript/internal/script"
)

// panelParts splits a panel header into its title and description.
func panelParts(p domain.Panel) (title, desc string) {
	t, rest, _ := strings.Cut(p.Header, ":")
	title, desc = strings.TrimSpace(t), strings.TrimSpace(rest)
	if title == "" {
		title = fmt.Sprintf("Panel %d", p.PanelNumber)
	}
	return title, desc
}

// cueHeading is the speaker line printed before a cue's content.
func cueHeading(c domain.Cue) string {
	label := strings.TrimSpace(c.Label)
	switch c.Type {
	case script.CueCharacter, "":
		if label == "" {
			return "CUE"
		}
		return label
	default:
		if label == "" || strings.EqualFold(label, c.Type) {
			return c.Type
		}
		return fmt.Sprintf("%s (%s)", c.Type, label)
	}
}

func pageHeading(p domain.ScriptPage) string {
	n := p.PanelCount
	if n == 0 {
		n = len(p.Panels)
	}
	unit := "panels"
	if n == 1 {
		unit = "panel"
	}
	return fmt.Sprintf("Page %d (%d %s)", p.Page, n, unit)
}

// Markdown renders pages as a Markdown document.
func Markdown(title string, pages []domain.ScriptPage) []byte {
	var b bytes.Buffer
	if t := strings.TrimSpace(title); t != "" {
		fmt.Fprintf(&b, "# %s\n\n", t)
	}
	for _, pg := range pages {
		fmt.Fprintf(&b, "## %s\n\n", pageHeading(pg))
		for _, pn := range pg.Panels {
			t, desc := panelParts(pn)
			fmt.Fprintf(&b, "### %s\n\n", t)
			if desc != "" {
				fmt.Fprintf(&b, "%s\n\n", desc)
			}
			for _, c := range pn.Cues {
				fmt.Fprintf(&b, "**%s:** %s\n\n", cueHeading(c), c.Content)
			}
			if n := strings.TrimSpace(pn.Notes); n != "" {
				fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(n, "\n", "\n> "))
			}
		}
	}
	return b.Bytes()
}

// HTML renders pages as a standalone HTML document. Raw HTML typed into the
// script is not passed through.
func HTML(title string, pages []domain.ScriptPage) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert(Markdown(title, pages), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}
