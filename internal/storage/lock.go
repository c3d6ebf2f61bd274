/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory writer lock inside the index dir.
const LockFileName = "writer.lock"

// ErrLocked is returned when another process holds the project's writer lock.
var ErrLocked = errors.New("project is locked by another writer")

// ProjectLock guards a project against concurrent writers across processes.
type ProjectLock struct {
	fl *flock.Flock
}

// LockProject acquires the writer lock of the project at root without blocking.
func LockProject(root string) (*ProjectLock, error) {
	dir := filepath.Join(root, IndexDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}
	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &ProjectLock{fl: fl}, nil
}

// Path returns the lock file location.
func (l *ProjectLock) Path() string { return l.fl.Path() }

// Unlock releases the lock. It is safe to call more than once.
func (l *ProjectLock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
