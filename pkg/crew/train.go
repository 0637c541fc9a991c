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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// TrainingData is the record written by Train.
type TrainingData struct {
	Crew       string              `json:"crew"`
	CreatedAt  time.Time           `json:"created_at"`
	Iterations []TrainingIteration `json:"iterations"`
}

// TrainingIteration holds the outputs and feedback of one training run.
type TrainingIteration struct {
	Iteration int            `json:"iteration"`
	RunID     string         `json:"run_id"`
	Tasks     []TrainingTask `json:"tasks"`
}

// TrainingTask is one task output and the feedback given on it.
type TrainingTask struct {
	Task     string `json:"task"`
	Agent    string `json:"agent"`
	Output   string `json:"output"`
	Feedback string `json:"feedback,omitempty"`
}

// Guidance returns the latest non-empty feedback per task.
func (d *TrainingData) Guidance() map[string]string {
	g := make(map[string]string)
	for _, it := range d.Iterations {
		for _, t := range it.Tasks {
			if strings.TrimSpace(t.Feedback) != "" {
				g[t.Task] = t.Feedback
			}
		}
	}
	return g
}

// LoadTrainingData reads a file written by Train.
func LoadTrainingData(fs afero.Fs, filename string) (*TrainingData, error) {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read training data: %w", err)
	}
	var td TrainingData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("failed to parse training data %s: %w", filename, err)
	}
	return &td, nil
}

// Train runs the crew n times. After every task output it reads one line
// of human feedback from feedback; the feedback is added to the prompt of
// that task in later iterations. The collected data is written to filename
// as JSON.
func (c *Crew) Train(ctx context.Context, n int, filename string, inputs Inputs, feedback io.Reader, out io.Writer) (*TrainingData, error) {
	if n < 1 {
		return nil, fmt.Errorf("iterations must be at least 1, got %d", n)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("training filename is required")
	}
	if out == nil {
		out = io.Discard
	}
	scanner := bufio.NewScanner(feedback)

	td := &TrainingData{Crew: c.Name, CreatedAt: c.now()}
	for i := range n {
		result, err := c.Kickoff(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i+1, err)
		}

		iteration := TrainingIteration{Iteration: i + 1, RunID: result.RunID}
		for _, to := range result.Tasks {
			fmt.Fprintf(out, "\n## Iteration %d - %s (%s)\n%s\n\n", i+1, to.Task, to.Agent, strings.TrimSpace(to.Raw))
			fmt.Fprint(out, "Provide feedback to improve this task (press Enter to skip): ")

			var note string
			if scanner.Scan() {
				note = strings.TrimSpace(scanner.Text())
			}
			if note != "" {
				c.guidance[to.Task] = note
			}
			iteration.Tasks = append(iteration.Tasks, TrainingTask{
				Task:     to.Task,
				Agent:    to.Agent,
				Output:   to.Raw,
				Feedback: note,
			})
		}
		td.Iterations = append(td.Iterations, iteration)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback: %w", err)
	}

	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureParentDir(c.fs, filename); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(c.fs, filename, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write training data: %w", err)
	}
	return td, nil
}
