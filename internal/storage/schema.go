/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"panelscript/internal/domain"
)

//go:embed schema/scriptpage.schema.json
var pageFileSchemaJSON []byte

var (
	schemaOnce sync.Once
	pageSchema *gojsonschema.Schema
	schemaErr  error
)

func compiledPageSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		pageSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(pageFileSchemaJSON))
	})
	return pageSchema, schemaErr
}

// SchemaError lists the schema violations of a page file.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "page file does not conform to schema: " + strings.Join(e.Problems, "; ")
}

// ValidatePageFile checks raw page file JSON against the embedded schema.
func ValidatePageFile(data []byte) error {
	schema, err := compiledPageSchema()
	if err != nil {
		return fmt.Errorf("compile page schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate page file: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, e := range result.Errors() {
		se.Problems = append(se.Problems, e.String())
	}
	return se
}

// ParsePageFile validates and decodes a page file.
func ParsePageFile(data []byte) (domain.PageFile, error) {
	var pf domain.PageFile
	if err := ValidatePageFile(data); err != nil {
		return pf, err
	}
	if err := json.Unmarshal(data, &pf); err != nil {
		return pf, fmt.Errorf("decode page file: %w", err)
	}
	return pf, nil
}

// encodePageFile normalizes, encodes and validates a page file.
func encodePageFile(pf domain.PageFile) ([]byte, error) {
	pf.PageContent = pf.PageContent.Normalized()
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal page file: %w", err)
	}
	if err := ValidatePageFile(data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
