/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"

	"golang.org/x/text/cases"
)

// Command is one entry of the insert menu.
type Command struct {
	Title string
	Kind  Kind
}

var insertCommands = []Command{
	{Title: "Page Header", Kind: KindPageHeader},
	{Title: "Panel Header", Kind: KindPanelHeader},
	{Title: "Description", Kind: KindDescription},
	{Title: "Character", Kind: KindCharacter},
	{Title: "Dialogue", Kind: KindDialogue},
	{Title: "Cue Label", Kind: KindCueLabel},
	{Title: "Cue Content", Kind: KindCueContent},
	{Title: "SFX", Kind: KindSfx},
	{Title: "Notes", Kind: KindNotes},
	{Title: "No Copy", Kind: KindNoCopy},
}

// CommandTrigger starts an insert-menu query at the beginning of a block.
const CommandTrigger = "/"

// Commands returns the insert commands whose title starts with query,
// ignoring case.
func Commands(query string) []Command {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	var out []Command
	for _, c := range insertCommands {
		if strings.HasPrefix(fold.String(c.Title), q) {
			out = append(out, c)
		}
	}
	return out
}

// CommandQuery returns the text typed after the trigger when the current
// block starts with it and the caret is past it.
func (d *Document) CommandQuery() (string, bool) {
	c := d.sel.Head
	head, _ := splitRunes(d.blocks[c.Block].Text, c.Offset)
	if !strings.HasPrefix(head, CommandTrigger) {
		return "", false
	}
	return strings.TrimPrefix(head, CommandTrigger), true
}

// RunCommand performs the insert command with the given title (matched
// case-insensitively). A pending trigger query is removed from the block
// before inserting.
func (d *Document) RunCommand(title string) bool {
	var cmd *Command
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(title))
	for i := range insertCommands {
		if fold.String(insertCommands[i].Title) == want {
			cmd = &insertCommands[i]
			break
		}
	}
	if cmd == nil {
		return false
	}
	if q, ok := d.CommandQuery(); ok {
		c := d.sel.Head
		n := runeLen(CommandTrigger + q)
		_, tail := splitRunes(d.blocks[c.Block].Text, c.Offset)
		d.blocks[c.Block].Text = tail
		d.setCaret(Position{Block: c.Block, Offset: c.Offset - n})
	}
	return d.Insert(cmd.Kind)
}
