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

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// ScopeFiles are the emissions files looked up in a data directory.
var ScopeFiles = []string{"scope1.csv", "scope2.csv", "scope3.csv"}

// FileStatus is the outcome of loading one expected file.
type FileStatus struct {
	File  string
	Rows  int
	Found bool
	Err   error
}

func (s FileStatus) String() string {
	switch {
	case !s.Found:
		return s.File + ": File not found"
	case s.Err != nil:
		return fmt.Sprintf("%s: Error loading - %v", s.File, s.Err)
	default:
		return fmt.Sprintf("%s: %d rows", s.File, s.Rows)
	}
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Dir   string
	Files []FileStatus
}

func (r LoadReport) String() string {
	parts := make([]string, len(r.Files))
	for i, f := range r.Files {
		parts[i] = f.String()
	}
	return fmt.Sprintf("Loaded emissions data from %s: %s", r.Dir, strings.Join(parts, "; "))
}

// Loader reads emissions files into a Store.
type Loader struct {
	Fs    afero.Fs
	Store *Store
}

// NewLoader creates a loader over fs.
func NewLoader(fs afero.Fs, store *Store) *Loader {
	return &Loader{Fs: fs, Store: store}
}

// Load reads every scope file found in dir. A CSV file that is absent falls
// back to a spreadsheet with the same base name. Failures of one file do not
// prevent the others from loading.
func (l *Loader) Load(dir string) (LoadReport, error) {
	resolved, err := utils.ResolveDir(dir)
	if err != nil {
		return LoadReport{}, err
	}

	report := LoadReport{Dir: resolved}
	for _, file := range ScopeFiles {
		status := FileStatus{File: file}
		name := strings.TrimSuffix(file, filepath.Ext(file))

		t, found, err := l.loadOne(resolved, file, name)
		status.Found = found
		status.Err = err
		if t != nil {
			status.Rows = t.Len()
			l.Store.Put(t)
			slog.Debug("Loaded dataset", "name", name, "rows", t.Len(), "columns", len(t.Columns))
		} else if err != nil {
			slog.Warn("Failed to load dataset", "file", file, "error", err)
		}
		report.Files = append(report.Files, status)
	}
	return report, nil
}

func (l *Loader) loadOne(dir, file, name string) (*Table, bool, error) {
	csvPath := filepath.Join(dir, file)
	if ok, _ := afero.Exists(l.Fs, csvPath); ok {
		t, err := l.readCSV(csvPath, name)
		return t, true, err
	}

	xlsxPath := filepath.Join(dir, name+".xlsx")
	if ok, _ := afero.Exists(l.Fs, xlsxPath); ok {
		t, err := l.readXLSX(xlsxPath, name)
		return t, true, err
	}
	return nil, false, nil
}

func (l *Loader) readCSV(path, name string) (*Table, error) {
	f, err := l.Fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, name)
}

func (l *Loader) readXLSX(path, name string) (*Table, error) {
	f, err := l.Fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadXLSX(f, name)
}

// ReadCSV parses a CSV stream whose first record is the header.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", i+2, len(header), len(rec))
		}
	}
	return NewTable(name, header, records), nil
}

// ReadXLSX parses the first sheet of a spreadsheet whose first row is the header.
func ReadXLSX(r io.Reader, name string) (*Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	return NewTable(name, rows[0], rows[1:]), nil
}
