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

// Package reporttool provides the tools agents use to write reports.
package reporttool

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/emissions-agent/pkg/report"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
)

// WriteArgs defines the parameters for write_md and write_file.
type WriteArgs struct {
	Content  string `json:"content" jsonschema:"required,description=Content to write"`
	FilePath string `json:"file_path" jsonschema:"required,description=Path to save the file" validate:"required"`
}

// QuestionReportArgs defines the parameters for save_question_report.
type QuestionReportArgs struct {
	Question       string `json:"question" jsonschema:"required,description=The question that was answered" validate:"required"`
	Answer         string `json:"answer" jsonschema:"required,description=The detailed answer to the question"`
	QuestionNumber int    `json:"question_number" jsonschema:"required,description=Question number for file naming" validate:"gte=1"`
}

// All creates every reporting tool, in catalog order.
func All(w *report.Writer) ([]tool.Tool, error) {
	if w == nil {
		return nil, errors.New("reporttool: report writer is required")
	}
	constructors := []func(*report.Writer) (tool.Tool, error){
		NewWriteMarkdown,
		NewWriteFile,
		NewSaveQuestionReport,
	}
	tools := make([]tool.Tool, 0, len(constructors))
	for _, newTool := range constructors {
		t, err := newTool(w)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// NewWriteMarkdown creates the write_md tool.
func NewWriteMarkdown(w *report.Writer) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "write_md",
			Description: "Write content to a markdown file",
			Action:      "writing markdown file",
		},
		func(ctx context.Context, args WriteArgs) (string, error) {
			if err := w.WriteFile(args.FilePath, args.Content); err != nil {
				return "", err
			}
			return "Successfully wrote markdown to " + args.FilePath, nil
		},
	)
}

// NewWriteFile creates the write_file tool.
func NewWriteFile(w *report.Writer) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "write_file",
			Description: "Write content to a file",
			Action:      "writing file",
		},
		func(ctx context.Context, args WriteArgs) (string, error) {
			if err := w.WriteFile(args.FilePath, args.Content); err != nil {
				return "", err
			}
			return "Successfully wrote content to " + args.FilePath, nil
		},
	)
}

// NewSaveQuestionReport creates the save_question_report tool.
func NewSaveQuestionReport(w *report.Writer) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "save_question_report",
			Description: "Save a question and its answer as a separate report file",
			Action:      "saving question report",
		},
		func(ctx context.Context, args QuestionReportArgs) (string, error) {
			path, err := w.SaveQuestionReport(args.QuestionNumber, args.Question, args.Answer)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully saved question report to %s", path), nil
		},
	)
}
