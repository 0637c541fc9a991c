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

package crew

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Evaluator scores a task output from 1 to 10.
type Evaluator interface {
	Evaluate(ctx context.Context, task *Task, inputs Inputs, output string) (float64, error)
}

// LLMEvaluator asks a chat model to grade task outputs.
type LLMEvaluator struct {
	Model model.BaseChatModel
}

const evaluatorPrompt = `You are an expert evaluator of the work of AI agents.
Grade how well the output fulfills the task and its expected criteria on a
scale from 1 (unusable) to 10 (complete, correct and well supported).
Reply with the score as a single number on the first line, followed by a
one-sentence justification.`

// Evaluate implements Evaluator.
func (e *LLMEvaluator) Evaluate(ctx context.Context, task *Task, inputs Inputs, output string) (float64, error) {
	desc, err := render(task.Name, task.Definition.Description, inputs)
	if err != nil {
		return 0, err
	}
	expected, err := render(task.Name, task.Definition.ExpectedOutput, inputs)
	if err != nil {
		return 0, err
	}

	msgs := []*schema.Message{
		schema.SystemMessage(evaluatorPrompt),
		schema.UserMessage(fmt.Sprintf("Task:\n%s\n\nExpected output:\n%s\n\nAgent output:\n%s", desc, expected, output)),
	}
	resp, err := e.Model.Generate(ctx, msgs)
	if err != nil {
		return 0, fmt.Errorf("evaluation failed: %w", err)
	}
	return ParseScore(resp.Content)
}

var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseScore extracts the first number of a grading reply, clamped to 1..10.
func ParseScore(reply string) (float64, error) {
	m := scorePattern.FindString(reply)
	if m == "" {
		return 0, fmt.Errorf("no score in evaluator reply %q", strings.TrimSpace(reply))
	}
	score, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, err
	}
	return min(max(score, 1), 10), nil
}

// TestResult holds the scores of a Test call.
type TestResult struct {
	Iterations int
	// Tasks lists task names in execution order.
	Tasks []string
	// Scores maps task names to one score per iteration.
	Scores    map[string][]float64
	Durations []time.Duration
}

// TaskAverage returns the mean score of a task across iterations.
func (r *TestResult) TaskAverage(task string) float64 {
	return mean(r.Scores[task])
}

// RunAverage returns the mean score of all tasks in iteration i.
func (r *TestResult) RunAverage(i int) float64 {
	var scores []float64
	for _, task := range r.Tasks {
		if s := r.Scores[task]; i < len(s) {
			scores = append(scores, s[i])
		}
	}
	return mean(scores)
}

// Table renders the scores with one column per run and a final average.
func (r *TestResult) Table() string {
	headers := []string{"Tasks/Crew"}
	for i := range r.Iterations {
		headers = append(headers, fmt.Sprintf("Run %d", i+1))
	}
	headers = append(headers, "Avg. Total")

	rows := make([][]string, 0, len(r.Tasks)+2)
	for _, task := range r.Tasks {
		row := []string{task}
		for _, s := range r.Scores[task] {
			row = append(row, fmt.Sprintf("%.1f", s))
		}
		row = append(row, fmt.Sprintf("%.1f", r.TaskAverage(task)))
		rows = append(rows, row)
	}

	crewRow := []string{"Crew"}
	var all []float64
	for i := range r.Iterations {
		avg := r.RunAverage(i)
		all = append(all, avg)
		crewRow = append(crewRow, fmt.Sprintf("%.2f", avg))
	}
	crewRow = append(crewRow, fmt.Sprintf("%.2f", mean(all)))
	rows = append(rows, crewRow)

	durRow := []string{"Execution Time (s)"}
	var total time.Duration
	for _, d := range r.Durations {
		total += d
		durRow = append(durRow, strconv.Itoa(int(d.Seconds())))
	}
	if len(r.Durations) > 0 {
		durRow = append(durRow, strconv.Itoa(int(total.Seconds())/len(r.Durations)))
	}
	rows = append(rows, durRow)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Test runs the crew n times and scores every task output.
func (c *Crew) Test(ctx context.Context, n int, evaluator Evaluator, inputs Inputs) (*TestResult, error) {
	if n < 1 {
		return nil, fmt.Errorf("iterations must be at least 1, got %d", n)
	}
	result := &TestResult{Iterations: n, Scores: make(map[string][]float64)}
	for _, t := range c.Tasks {
		result.Tasks = append(result.Tasks, t.Name)
	}

	for i := range n {
		started := time.Now()
		out, err := c.Kickoff(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		result.Durations = append(result.Durations, time.Since(started))

		for j, to := range out.Tasks {
			score, err := evaluator.Evaluate(ctx, c.Tasks[j], inputs, to.Raw)
			if err != nil {
				return nil, fmt.Errorf("iteration %d, task %s: %w", i+1, to.Task, err)
			}
			result.Scores[to.Task] = append(result.Scores[to.Task], score)
			slog.Info("Task scored", "iteration", i+1, "task", to.Task, "score", score)
		}
	}
	return result, nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
