/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "time"

// This file defines the portable data model shared by storage, backend and export.
// ScriptPage and its children form the stable wire schema of a script page; the
// field names and JSON tags must not change.

// ScriptPage is the structured form of one script page.
type ScriptPage struct {
	Page       int     `json:"page"`
	PanelCount int     `json:"panel_count"`
	Panels     []Panel `json:"panels"`
}

// Panel is one panel of a page with its cues.
type Panel struct {
	PanelNumber int    `json:"panel_number"`
	Header      string `json:"header"`
	Cues        []Cue  `json:"cues"`
	Notes       string `json:"notes,omitempty"`
}

// Cue is a single beat of dialogue, sound effect or caption.
type Cue struct {
	Type    string `json:"type"`
	Label   string `json:"label"`
	Content string `json:"content"`
}

// NewScriptPage returns an empty page numbered n.
func NewScriptPage(n int) ScriptPage {
	if n < 1 {
		n = 1
	}
	return ScriptPage{Page: n, Panels: []Panel{}}
}

// Normalized returns a copy with nil slices replaced by empty ones so the page
// always serializes with "panels": [] and "cues": [].
func (p ScriptPage) Normalized() ScriptPage {
	out := p
	out.Panels = make([]Panel, len(p.Panels))
	for i, pn := range p.Panels {
		if pn.Cues == nil {
			pn.Cues = []Cue{}
		}
		out.Panels[i] = pn
	}
	return out
}

// Project is the manifest of a local script project.
// It serializes to a human-readable JSON file at the project root.
type Project struct {
	Name       string    `json:"name"`
	Characters []string  `json:"characters"`
	Pages      []PageRef `json:"pages"`
}

// PageRef points at one page file of the project.
type PageRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	File      string    `json:"file"` // relative to the project root
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageMeta is the metadata block stored alongside a page's content.
type PageMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageFile is the on-disk representation of a single page.
type PageFile struct {
	Metadata    PageMeta   `json:"metadata"`
	PageContent ScriptPage `json:"page_content"`
}

// FindPage returns the index of the page with the given id, or -1.
func (p *Project) FindPage(id string) int {
	for i := range p.Pages {
		if p.Pages[i].ID == id {
			return i
		}
	}
	return -1
}
