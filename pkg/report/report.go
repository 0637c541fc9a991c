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

// Package report writes markdown reports and question answers to disk.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// IndexFile is the name of the question report index.
const IndexFile = "question_reports_index.md"

const timestampLayout = "2006-01-02 15:04:05"

// Writer writes report files.
type Writer struct {
	Fs        afero.Fs
	OutputDir string
	Now       func() time.Time
}

// NewWriter creates a writer on fs.
func NewWriter(fs afero.Fs, outputDir string) *Writer {
	return &Writer{Fs: fs, OutputDir: outputDir, Now: time.Now}
}

// WriteFile overwrites path with content, creating parent directories.
func (w *Writer) WriteFile(path, content string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("file path is empty")
	}
	if err := utils.EnsureParentDir(w.Fs, path); err != nil {
		return err
	}
	if err := afero.WriteFile(w.Fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReportPath returns the path of the report for question n.
func (w *Writer) ReportPath(n int) string {
	return filepath.Join(w.OutputDir, fmt.Sprintf("question_%d_report.md", n))
}

// Exists reports whether the report for question n has been written.
func (w *Writer) Exists(n int) bool {
	ok, _ := afero.Exists(w.Fs, w.ReportPath(n))
	return ok
}

// SaveQuestionReport writes the report for question n, replacing any
// previous report, and returns its path.
func (w *Writer) SaveQuestionReport(n int, question, answer string) (string, error) {
	if err := utils.EnsureDir(w.Fs, w.OutputDir); err != nil {
		return "", err
	}
	content := fmt.Sprintf(`# Question %d Report

## Question
%s

## Answer
%s

---
*Generated on %s*
`, n, question, answer, w.now().Format(timestampLayout))

	path := w.ReportPath(n)
	if err := afero.WriteFile(w.Fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteIndex writes a markdown index linking the report of every question.
func (w *Writer) WriteIndex(questions []string) (string, error) {
	if err := utils.EnsureDir(w.Fs, w.OutputDir); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("# Emissions Analysis - Question Reports Summary\n\n")
	fmt.Fprintf(&sb, "Generated on: %s\n\n", w.now().Format(timestampLayout))
	sb.WriteString("## Questions Analyzed\n\n")
	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. [%s](question_%d_report.md)\n", i+1, q, i+1)
	}

	path := filepath.Join(w.OutputDir, IndexFile)
	if err := afero.WriteFile(w.Fs, path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}
