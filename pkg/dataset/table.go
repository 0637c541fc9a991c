// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dataset holds the tabular emissions datasets loaded for a run.
//
// Tables are kept as raw cells so that analysis can decide how to interpret
// each column: the emissions column is parsed as numbers on demand, grouping
// columns are used verbatim.
package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Well-known column names.
const (
	ColumnEmissions = "CO2e_Tonnes"
	ColumnFacility  = "Facility"
	ColumnCategory  = "Category"
)

var (
	// ErrNotFound is returned when a dataset is not loaded.
	ErrNotFound = errors.New("dataset not found")

	// ErrColumnMissing is returned when a required column is absent.
	ErrColumnMissing = errors.New("column missing")

	// ErrNotNumeric is returned when a numeric column holds a non-numeric value.
	ErrNotNumeric = errors.New("column is not numeric")
)

// nullTokens are the values read as missing, matching common CSV tooling.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {},
	"None": {}, "#N/A": {}, "n/a": {}, "<NA>": {}, "-nan": {}, "-NaN": {},
	"#NA": {}, "-1.#IND": {}, "1.#IND": {}, "-1.#QNAN": {}, "1.#QNAN": {}, "#N/A N/A": {},
}

// Cell is a single table value.
type Cell struct {
	Raw  string
	Null bool
}

// NewCell builds a cell from a raw field, detecting null tokens.
func NewCell(raw string) Cell {
	_, null := nullTokens[strings.TrimSpace(raw)]
	return Cell{Raw: raw, Null: null}
}

// Table is a rectangular dataset with named columns.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// NewTable builds a table from a header and raw records. Short records are
// padded with null cells.
func NewTable(name string, header []string, records [][]string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), header...)}
	t.Rows = make([][]Cell, 0, len(records))
	for _, rec := range records {
		row := make([]Cell, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = NewCell(rec[i])
			} else {
				row[i] = Cell{Null: true}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of a column or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Float parses a numeric column. Null cells are reported as invalid in the
// returned mask and skipped by aggregations.
func (t *Table) Float(column string) (values []float64, valid []bool, err error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrColumnMissing, column)
	}

	values = make([]float64, len(t.Rows))
	valid = make([]bool, len(t.Rows))
	for i, row := range t.Rows {
		c := row[idx]
		if c.Null {
			continue
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(c.Raw), 64)
		if perr != nil {
			return nil, nil, fmt.Errorf("%w: %s row %d value %q", ErrNotNumeric, column, i+1, c.Raw)
		}
		values[i] = v
		valid[i] = true
	}
	return values, valid, nil
}

// NullCount returns the number of null cells in the table.
func (t *Table) NullCount() int {
	n := 0
	for _, row := range t.Rows {
		for _, c := range row {
			if c.Null {
				n++
			}
		}
	}
	return n
}

// DuplicateCount returns the number of rows equal to an earlier row.
func (t *Table) DuplicateCount() int {
	seen := make(map[string]struct{}, len(t.Rows))
	dups := 0
	var sb strings.Builder
	for _, row := range t.Rows {
		sb.Reset()
		for _, c := range row {
			if c.Null {
				sb.WriteString("\x00null")
			} else {
				sb.WriteString(c.Raw)
			}
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// Store maps dataset names to loaded tables.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Put stores a table under its name, replacing any previous table.
func (s *Store) Put(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Name] = t
}

// Get returns a table by name.
func (s *Store) Get(name string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

// Has reports whether a table is loaded.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the loaded table names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
