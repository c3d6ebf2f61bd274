/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strings"
)

// ParseError reports a problem in imported plain text.
type ParseError struct {
	Line    int
	Message string
}

var (
	// "Page" and "Panel" need a number, a colon or nothing after them so
	// prose such as "Panel shows the harbor" stays a description.
	rePage    = regexp.MustCompile(`^(?i)(?:#+\s*|page(?:\s*\d+\b\s*[:.\-]?|\s*:|\s*$))\s*(.*)$`)
	rePanel   = regexp.MustCompile(`^(?i)panel(?:\s*\d+\b\s*[:.\-]?|\s*:|\s*$)\s*(.*)$`)
	reCueLine = regexp.MustCompile(`^([A-Za-z0-9_\-' ]{1,64})\s*:\s*(.*)$`)
)

// ParseText imports a plain-text script into blocks. Supported syntax:
//   - "Page 3: title", "Page: title", "Page" or "# title" starts a page
//   - "Panel 2: header", "Panel: header" or "Panel" starts a panel
//   - "NAME: text" is a cue; SFX gives a sound effect, CAPTION or NARRATION a
//     caption, anything else dialogue
//   - lines indented by two or more spaces continue the previous cue
//   - lines starting with ";" are panel notes
//   - any other line is a description
//
// A page header is added in front when the text does not start with one.
func ParseText(input string) ([]Block, []ParseError) {
	var blocks []Block
	var errs []ParseError
	last := -1 // index of the cue content a continuation appends to

	sc := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")

		if strings.HasPrefix(line, "  ") && last >= 0 {
			if cont := strings.TrimSpace(line); cont != "" {
				blocks[last].Text += " " + cont
			}
			continue
		}
		trim := strings.TrimSpace(line)
		if trim == "" {
			last = -1
			continue
		}
		last = -1

		switch {
		case strings.HasPrefix(trim, ";"):
			blocks = append(blocks, TextBlock(KindNotes, strings.TrimSpace(strings.TrimPrefix(trim, ";"))))
		case rePanel.MatchString(trim):
			m := rePanel.FindStringSubmatch(trim)
			blocks = append(blocks, TextBlock(KindPanelHeader, strings.TrimSpace(m[1])))
		case rePage.MatchString(trim):
			m := rePage.FindStringSubmatch(trim)
			blocks = append(blocks, TextBlock(KindPageHeader, strings.TrimSpace(m[1])))
		case reCueLine.MatchString(trim):
			m := reCueLine.FindStringSubmatch(trim)
			name := strings.ToUpper(strings.TrimSpace(m[1]))
			kind := KindDialogue
			switch name {
			case CueSFX:
				kind = KindSfx
			case CueCaption, "NARRATION":
				kind = KindCueContent
			}
			blocks = append(blocks, TextBlock(KindCueLabel, name), TextBlock(kind, strings.TrimSpace(m[2])))
			last = len(blocks) - 1
		default:
			blocks = append(blocks, TextBlock(KindDescription, trim))
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, ParseError{Line: lineNo + 1, Message: err.Error()})
	}

	if len(blocks) == 0 || blocks[0].Kind != KindPageHeader {
		if len(blocks) > 0 {
			errs = append(errs, ParseError{Line: 1, Message: "text does not start with a page; one was added"})
		}
		blocks = append([]Block{NewBlock(KindPageHeader)}, blocks...)
	}
	applyLayout(blocks, Scan(blocks))
	return blocks, errs
}
