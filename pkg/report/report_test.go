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

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter() *Writer {
	w := NewWriter(afero.NewMemMapFs(), "outputs")
	w.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return w
}

func TestSaveQuestionReport(t *testing.T) {
	w := newWriter()

	path, err := w.SaveQuestionReport(3, "Which suppliers?", "Acme first.")
	require.NoError(t, err)
	assert.Equal(t, "outputs/question_3_report.md", path)
	assert.True(t, w.Exists(3))
	assert.False(t, w.Exists(4))

	data, err := afero.ReadFile(w.Fs, path)
	require.NoError(t, err)
	assert.Equal(t, `# Question 3 Report

## Question
Which suppliers?

## Answer
Acme first.

---
*Generated on 2025-03-14 09:26:53*
`, string(data))
}

func TestSaveQuestionReport_Overwrites(t *testing.T) {
	w := newWriter()

	_, err := w.SaveQuestionReport(3, "Q", "first answer")
	require.NoError(t, err)
	path, err := w.SaveQuestionReport(3, "Q", "second answer")
	require.NoError(t, err)

	data, err := afero.ReadFile(w.Fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second answer")
	assert.NotContains(t, string(data), "first answer")
	assert.Equal(t, 1, strings.Count(string(data), "# Question 3 Report"))
}

func TestWriteFile(t *testing.T) {
	w := newWriter()
	require.NoError(t, w.WriteFile("reports/nested/summary.md", "# A"))
	require.NoError(t, w.WriteFile("reports/nested/summary.md", "# B"))

	data, err := afero.ReadFile(w.Fs, "reports/nested/summary.md")
	require.NoError(t, err)
	assert.Equal(t, "# B", string(data))

	assert.Error(t, w.WriteFile(" ", "x"))
}

func TestWriteFile_ReadOnly(t *testing.T) {
	w := NewWriter(afero.NewReadOnlyFs(afero.NewMemMapFs()), "outputs")
	assert.Error(t, w.WriteFile("a.md", "x"))

	_, err := w.SaveQuestionReport(1, "q", "a")
	assert.Error(t, err)
}

func TestWriteIndex(t *testing.T) {
	w := newWriter()
	path, err := w.WriteIndex([]string{"First?", "Second?"})
	require.NoError(t, err)
	assert.Equal(t, "outputs/question_reports_index.md", path)

	data, err := afero.ReadFile(w.Fs, path)
	require.NoError(t, err)
	assert.Equal(t, `# Emissions Analysis - Question Reports Summary

Generated on: 2025-03-14 09:26:53

## Questions Analyzed

1. [First?](question_1_report.md)
2. [Second?](question_2_report.md)
`, string(data))
}
