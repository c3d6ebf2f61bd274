/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus a dump of the
// unsaved page, then exits.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"panelscript/internal/domain"
	applog "panelscript/internal/log"
	"panelscript/internal/storage"
	"panelscript/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// PendingPage is the page being edited when the panic happened.
// *session.Session satisfies it.
type PendingPage interface {
	PageID() string
	Snapshot() domain.ScriptPage
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report file, and dumps the project manifest and the pending page (both
// optional) next to the regular backups.
//
// Usage: defer crash.Recover(ph, sess)
func Recover(ph *storage.ProjectHandle, pending PendingPage) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(ph, r, stack)
		if ph != nil {
			if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
				l.Error("autosave crash snapshot failed", slog.Any("err", err))
			} else {
				l.Info("autosave crash snapshot written", slog.String("path", path))
			}
		}
		if pending != nil {
			if path, err := dumpPage(ph, pending); err != nil {
				l.Error("pending page dump failed", slog.Any("err", err))
			} else if path != "" {
				l.Info("pending page written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func crashDir(ph *storage.ProjectHandle) string {
	if ph != nil && ph.Root != "" {
		dir := filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
		return dir
	}
	return os.TempDir()
}

// dumpPage writes the pending page as a page file. It returns "" when no page
// is open.
func dumpPage(ph *storage.ProjectHandle, p PendingPage) (string, error) {
	id := p.PageID()
	if id == "" {
		return "", nil
	}
	now := time.Now().UTC()
	pf := domain.PageFile{
		Metadata:    domain.PageMeta{ID: id, Title: fmt.Sprintf("Page %s (recovered)", id), Version: 1, CreatedAt: now, UpdatedAt: now},
		PageContent: p.Snapshot().Normalized(),
	}
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(crashDir(ph), fmt.Sprintf("page-%s.crash-%s.json", id, now.Format("20060102-150405")))
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeReport(ph *storage.ProjectHandle, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(crashDir(ph), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PanelScript Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		_, _ = fmt.Fprintf(&buf, "ProjectRoot: %s\n", ph.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", ph.ManifestPath)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
