/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"panelscript/internal/backend"
	"panelscript/internal/config"
	"panelscript/internal/crash"
	"panelscript/internal/domain"
	"panelscript/internal/storage"
)

type commandContext struct {
	projectFlag *string

	configOnce sync.Once
	config     config.AppConfig
	password   string
	configErr  error
}

func newCommandContext(projectFlag *string) *commandContext {
	return &commandContext{projectFlag: projectFlag}
}

func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		c.config, c.password, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) projectRoot() (string, error) {
	dir := "."
	if c.projectFlag != nil && strings.TrimSpace(*c.projectFlag) != "" {
		dir = *c.projectFlag
	}
	return filepath.Abs(dir)
}

// withProject opens the project read-only for fn. Panics inside fn produce a
// crash report in the project's backups dir.
func (c *commandContext) withProject(fn func(*storage.ProjectHandle) error) error {
	root, err := c.projectRoot()
	if err != nil {
		return err
	}
	ph, err := storage.Open(root)
	if err != nil {
		return fmt.Errorf("open project %s: %w", root, err)
	}
	defer crash.Recover(ph, nil)
	return fn(ph)
}

// withWriter is withProject holding the project's writer lock.
func (c *commandContext) withWriter(fn func(*storage.ProjectHandle) error) error {
	root, err := c.projectRoot()
	if err != nil {
		return err
	}
	lock, err := storage.LockProject(root)
	if err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return fmt.Errorf("%s: %w; is `panelscript watch` running?", root, err)
		}
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return c.withProject(fn)
}

// openRemote connects to the configured Postgres backend. The project id
// defaults to the project name.
func (c *commandContext) openRemote(ctx context.Context, ph *storage.ProjectHandle) (*backend.PageRepository, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.Backend.DatabaseURL) == "" {
		return nil, nil, fmt.Errorf("backend.database_url is not configured (set %s)", config.EnvDatabaseURL)
	}
	projectID := strings.TrimSpace(cfg.Backend.ProjectID)
	if projectID == "" {
		projectID = ph.Project.Name
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout())
	defer cancel()
	db, err := backend.OpenPG(ctx, cfg.Backend.DatabaseURL, c.password)
	if err != nil {
		return nil, nil, err
	}
	return backend.NewPageRepository(db, projectID), func() { _ = db.Close() }, nil
}

// resolvePage accepts a full page id or a unique id prefix.
func resolvePage(ph *storage.ProjectHandle, arg string) (domain.PageRef, error) {
	arg = strings.TrimSpace(arg)
	if ref, err := storage.FindPage(ph, arg); err == nil {
		return ref, nil
	}
	var found []domain.PageRef
	for _, ref := range storage.ListPages(ph) {
		if arg != "" && strings.HasPrefix(ref.ID, arg) {
			found = append(found, ref)
		}
	}
	switch len(found) {
	case 0:
		return domain.PageRef{}, fmt.Errorf("%w: %s", storage.ErrPageNotFound, arg)
	case 1:
		return found[0], nil
	default:
		return domain.PageRef{}, fmt.Errorf("page id %q is ambiguous (%d matches)", arg, len(found))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
