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

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// ExpectedFiles are the reference documents looked up in a data directory.
var ExpectedFiles = []string{
	"ghg-protocol-revised.pdf",
	"peer1_emissions_report.pdf",
	"peer2_emissions_report.pdf",
}

// DocumentName derives a document name from its file name.
func DocumentName(file string) string {
	return strings.TrimSuffix(file, ".pdf")
}

// FileStatus is the outcome of loading one document.
type FileStatus struct {
	File   string
	Chunks int
	Err    error
}

func (s FileStatus) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: Error loading - %v", s.File, s.Err)
	}
	return fmt.Sprintf("%s: %d chunks", s.File, s.Chunks)
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Dir     string
	Files   []FileStatus
	Missing []string
}

// Empty reports whether none of the expected files were present.
func (r LoadReport) Empty() bool {
	return len(r.Files) == 0
}

func (r LoadReport) String() string {
	if r.Empty() {
		return fmt.Sprintf("No PDF files found in %s. Expected: %s", r.Dir, strings.Join(ExpectedFiles, ", "))
	}
	parts := make([]string, 0, len(r.Files)+1)
	for _, f := range r.Files {
		parts = append(parts, f.String())
	}
	if len(r.Missing) > 0 {
		parts = append(parts, "Missing files: "+strings.Join(r.Missing, ", "))
	}
	return "Available PDFs loaded: " + strings.Join(parts, "; ")
}

// Loader extracts and chunks the reference documents into a Store.
type Loader struct {
	Fs          afero.Fs
	Store       *Store
	Extractor   PageExtractor
	ChunkSize   int
	Concurrency int
}

// NewLoader creates a loader using the PDF extractor.
func NewLoader(fs afero.Fs, store *Store) *Loader {
	return &Loader{
		Fs:          fs,
		Store:       store,
		Extractor:   PDFExtractor{},
		ChunkSize:   DefaultChunkSize,
		Concurrency: 3,
	}
}

// Load extracts every expected document present in dir. Documents are
// processed in parallel; a failing document is reported without affecting
// the others.
func (l *Loader) Load(ctx context.Context, dir string) (LoadReport, error) {
	resolved, err := utils.ResolveDir(dir)
	if err != nil {
		return LoadReport{}, err
	}

	report := LoadReport{Dir: dir}
	var available []string
	for _, file := range ExpectedFiles {
		if ok, _ := afero.Exists(l.Fs, filepath.Join(resolved, file)); ok {
			available = append(available, file)
		} else {
			report.Missing = append(report.Missing, file)
		}
	}
	if len(available) == 0 {
		return report, nil
	}

	statuses := make([]FileStatus, len(available))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, l.Concurrency))
	for i, file := range available {
		g.Go(func() error {
			path := filepath.Join(resolved, file)
			chunks, err := l.extract(gctx, path, DocumentName(file))
			statuses[i] = FileStatus{File: file, Chunks: len(chunks), Err: err}
			if err != nil {
				slog.Warn("Failed to load document", "file", file, "error", err)
				return nil
			}
			l.Store.Put(DocumentName(file), chunks)
			slog.Debug("Loaded document", "file", file, "chunks", len(chunks))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Files = statuses
	return report, nil
}

func (l *Loader) extract(ctx context.Context, path, name string) ([]Chunk, error) {
	pages, err := l.Extractor.Pages(ctx, l.Fs, path)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for i, text := range pages {
		for _, w := range ChunkText(text, l.ChunkSize) {
			chunks = append(chunks, Chunk{
				Text:         w,
				Page:         i + 1,
				Source:       path,
				DocumentName: name,
			})
		}
	}
	return chunks, nil
}
