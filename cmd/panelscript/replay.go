/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"panelscript/internal/crash"
	"panelscript/internal/domain"
	"panelscript/internal/export"
	"panelscript/internal/script"
	"panelscript/internal/session"
	"panelscript/internal/storage"
)

// replayEvent is one line of an event script.
type replayEvent struct {
	Line int
	Op   string
	Args string
}

var replayOps = map[string]bool{
	"type": true, "enter": true, "tab": true, "shift-tab": true, "backspace": true,
	"insert": true, "command": true, "characters": true, "accept": true, "caret": true,
	"select": true, "set": true, "cue": true, "delete": true, "wait": true,
}

// parseReplay reads an event script: one "op args" per line, '#' starts a
// comment line.
func parseReplay(r io.Reader) ([]replayEvent, error) {
	var events []replayEvent
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		op, args, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
		op = strings.ToLower(op)
		if !replayOps[op] {
			return nil, fmt.Errorf("line %d: unknown event %q", n, op)
		}
		if op != "type" && op != "set" {
			args = strings.TrimSpace(args)
		}
		events = append(events, replayEvent{Line: n, Op: op, Args: args})
	}
	return events, sc.Err()
}

func atoiArgs(args string, want int) ([]int, error) {
	fields := strings.Fields(args)
	if len(fields) != want {
		return nil, fmt.Errorf("want %d numbers, got %q", want, args)
	}
	out := make([]int, want)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// applyEvent feeds one event into the session. Events a block cannot take
// (a key with no transition, a command on an invalid block) are not errors.
func applyEvent(s *session.Session, ev replayEvent) error {
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return fmt.Errorf("line %d: %s: %w", ev.Line, ev.Op, err)
	}
	switch ev.Op {
	case "type":
		s.InsertText(ev.Args)
	case "enter":
		s.HandleKey(script.KeyEnter)
	case "tab":
		s.HandleKey(script.KeyTab)
	case "shift-tab":
		s.HandleKey(script.KeyShiftTab)
	case "backspace":
		n := 1
		if ev.Args != "" {
			v, err := strconv.Atoi(ev.Args)
			if err != nil {
				return wrap(err)
			}
			n = v
		}
		for i := 0; i < n; i++ {
			s.DeleteBackward()
		}
	case "insert":
		k := script.Kind(ev.Args)
		if !k.Valid() {
			return wrap(fmt.Errorf("unknown block kind %q", ev.Args))
		}
		s.Insert(k)
	case "command":
		s.RunCommand(ev.Args)
	case "characters":
		var names []string
		for _, n := range strings.Split(ev.Args, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		s.SetCharacters(names)
	case "accept":
		v, err := strconv.Atoi(ev.Args)
		if err != nil {
			return wrap(err)
		}
		s.AcceptSuggestion(v)
	case "caret":
		v, err := atoiArgs(ev.Args, 2)
		if err != nil {
			return wrap(err)
		}
		s.MoveCaret(script.Position{Block: v[0], Offset: v[1]})
	case "select":
		v, err := atoiArgs(ev.Args, 4)
		if err != nil {
			return wrap(err)
		}
		s.Select(script.Position{Block: v[0], Offset: v[1]}, script.Position{Block: v[2], Offset: v[3]})
	case "set":
		idx, text, _ := strings.Cut(strings.TrimLeft(ev.Args, " "), " ")
		v, err := strconv.Atoi(idx)
		if err != nil {
			return wrap(err)
		}
		s.SetBlockText(v, text)
	case "cue":
		idx, cueType, _ := strings.Cut(ev.Args, " ")
		v, err := strconv.Atoi(idx)
		if err != nil {
			return wrap(err)
		}
		s.SetCueType(v, strings.TrimSpace(cueType))
	case "delete":
		v, err := strconv.Atoi(ev.Args)
		if err != nil {
			return wrap(err)
		}
		s.DeleteBlock(v)
	case "wait":
		d, err := time.ParseDuration(ev.Args)
		if err != nil {
			return wrap(err)
		}
		time.Sleep(d)
	}
	return nil
}

type discardSaver struct{}

func (discardSaver) SavePage(context.Context, string, domain.ScriptPage) error { return nil }

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "replay <page> <events-file>",
		Short: "Drive an editing session on a page from an event script",
		Long: `Replay editor events against a page and save the result through the
normal debounced save path. Use "-" to read events from stdin.

Events, one per line:
  type <text>            insert text at the caret
  enter | tab | shift-tab
  backspace [n]
  insert <kind>          e.g. insert character
  command <title>        run a "/" command, e.g. command Dialogue
  characters A, B        set the character list for suggestions
  accept <n>             accept suggestion n
  caret <block> <offset>
  select <b> <o> <b> <o>
  set <block> <text>
  cue <block> <type>
  delete <block>
  wait <duration>        e.g. wait 600ms`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			events, err := parseReplay(in)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withWriter(func(ph *storage.ProjectHandle) error {
				ref, err := resolvePage(ph, args[0])
				if err != nil {
					return err
				}
				pf, err := storage.ReadPage(ph, ref.ID)
				if err != nil {
					return err
				}
				var saver session.Saver = storage.NewPageSaver(ph)
				if dryRun {
					saver = discardSaver{}
				}
				sess := session.New(saver, session.OptionsFromConfig(cfg.Editor))
				defer crash.Recover(ph, sess)
				sess.SetCharacters(ph.Project.Characters)
				sess.Open(ref.ID, pf.PageContent)

				for _, ev := range events {
					if err := applyEvent(sess, ev); err != nil {
						_ = sess.Close(cmd.Context())
						return err
					}
				}
				if err := sess.Close(cmd.Context()); err != nil {
					return fmt.Errorf("save page: %w", err)
				}

				out := cmd.OutOrStdout()
				if dryRun {
					_, _ = out.Write(export.Markdown(sess.Title(), []domain.ScriptPage{sess.Snapshot()}))
				}
				st := sess.Status()
				fmt.Fprintf(out, "Replayed %d events on %q: %d words, %d saves\n", len(events), sess.Title(), sess.WordCount(), st.Saves)
				for _, is := range sess.Issues() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", is.String())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the result instead of saving it")
	return cmd
}
