/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestScriptPageJSONFieldNames(t *testing.T) {
	p := ScriptPage{
		Page:       2,
		PanelCount: 1,
		Panels: []Panel{
			{PanelNumber: 1, Header: "Wide", Cues: []Cue{{Type: "SFX", Label: "SFX", Content: "BOOM"}}},
		},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"page":2`, `"panel_count":1`, `"panel_number":1`, `"header":"Wide"`, `"type":"SFX"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "notes") {
		t.Fatalf("empty notes should be omitted: %s", s)
	}
}

func TestNormalizedReplacesNilSlices(t *testing.T) {
	p := ScriptPage{Page: 1, Panels: []Panel{{PanelNumber: 1}}}
	b, err := json.Marshal(p.Normalized())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"cues":[]`) {
		t.Fatalf("expected empty cues array, got %s", b)
	}
	b, err = json.Marshal(ScriptPage{Page: 1}.Normalized())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"panels":[]`) {
		t.Fatalf("expected empty panels array, got %s", b)
	}
}

func TestProjectFindPage(t *testing.T) {
	p := Project{Name: "P", Pages: []PageRef{{ID: "a"}, {ID: "b"}}}
	if i := p.FindPage("b"); i != 1 {
		t.Fatalf("FindPage(b) = %d", i)
	}
	if i := p.FindPage("zzz"); i != -1 {
		t.Fatalf("FindPage(zzz) = %d", i)
	}
}
