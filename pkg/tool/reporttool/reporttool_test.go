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

package reporttool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/emissions-agent/pkg/report"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
)

func newWriter(fs afero.Fs) *report.Writer {
	w := report.NewWriter(fs, "outputs")
	w.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return w
}

func TestWriteTools(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools, err := All(newWriter(fs))
	require.NoError(t, err)
	require.Len(t, tools, 3)

	tests := []struct {
		tool string
		path string
		want string
	}{
		{"write_md", "reports/summary.md", "Successfully wrote markdown to reports/summary.md"},
		{"write_file", "notes.txt", "Successfully wrote content to notes.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			var tl tool.Tool
			for _, candidate := range tools {
				if candidate.Name() == tt.tool {
					tl = candidate
				}
			}
			require.NotNil(t, tl)

			assert.Equal(t, tt.want, tl.Call(context.Background(), `{"content": "first", "file_path": "`+tt.path+`"}`))
			assert.Equal(t, tt.want, tl.Call(context.Background(), `{"content": "second", "file_path": "`+tt.path+`"}`))

			data, err := afero.ReadFile(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, "second", string(data))
		})
	}
}

func TestWriteFile_Failure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	tl, err := NewWriteMarkdown(newWriter(fs))
	require.NoError(t, err)

	out := tl.Call(context.Background(), `{"content": "x", "file_path": "out/report.md"}`)
	assert.True(t, strings.HasPrefix(out, "Error writing markdown file: "), out)
}

func TestSaveQuestionReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	tl, err := NewSaveQuestionReport(newWriter(fs))
	require.NoError(t, err)

	out := tl.Call(context.Background(), `{"question": "What are the hotspots?", "answer": "Plant A.", "question_number": 2}`)
	assert.Equal(t, "Successfully saved question report to outputs/question_2_report.md", out)

	data, err := afero.ReadFile(fs, "outputs/question_2_report.md")
	require.NoError(t, err)
	assert.Equal(t, "# Question 2 Report\n\n## Question\nWhat are the hotspots?\n\n## Answer\nPlant A.\n\n---\n*Generated on 2025-03-14 09:26:53*\n", string(data))

	out = tl.Call(context.Background(), `{"question": "q", "answer": "a"}`)
	assert.True(t, strings.HasPrefix(out, "Error saving question report: "), out)
}

func TestAll_RequiresWriter(t *testing.T) {
	_, err := All(nil)
	require.Error(t, err)
}
