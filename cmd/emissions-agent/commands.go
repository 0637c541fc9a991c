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


package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kadirpekel/emissions-agent/pkg/crew"
	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// withSession loads the configuration, opens a session and runs fn.
// When requireKey is set a missing API key prints setup instructions and
// the command ends without error.
func (cli *CLI) withSession(action string, requireKey bool, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if requireKey && !checkAPIKey(cfg) {
		return nil
	}

	s, err := cli.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("an error occurred while %s: %w", action, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			fmt.Fprintf(stdout, "⚠️  Failed to close session: %v\n", cerr)
		}
	}()

	if err := fn(ctx, s); err != nil {
		return fmt.Errorf("an error occurred while %s: %w", action, err)
	}
	return nil
}

// RunCmd runs the comprehensive crew over every configured question.
type RunCmd struct{}

func (c *RunCmd) Run(cli *CLI) error {
	return cli.withSession("running the full crew", true, runFull)
}

func runFull(ctx context.Context, s *session) error {
	fmt.Fprintln(stdout, "🚀 Starting comprehensive emissions analysis with all questions...")
	c, err := s.crew(crew.NameComprehensive)
	if err != nil {
		return err
	}
	out, err := c.Kickoff(ctx, s.comprehensiveInputs())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n✅ Analysis complete (run %s). Report saved to %s\n", out.RunID, s.cfg.ReportFile)
	return nil
}

// AskCmd answers one question with the single-question crew.
type AskCmd struct {
	Question string `arg:"" help:"The question to ask."`
	Number   int    `short:"n" default:"1" help:"Question number for file naming."`
}

func (c *AskCmd) Run(cli *CLI) error {
	return cli.withSession("running the question", true, func(ctx context.Context, s *session) error {
		_, err := askQuestion(ctx, s, c.Question, c.Number)
		return err
	})
}

// askQuestion runs the single-question crew and saves the report itself
// when the agents did not.
func askQuestion(ctx context.Context, s *session, question string, n int) (*crew.Output, error) {
	if n < 1 {
		return nil, fmt.Errorf("question number must be at least 1, got %d", n)
	}
	if err := utils.EnsureDir(s.rt.Fs, s.cfg.OutputDir); err != nil {
		return nil, err
	}

	reportPath := s.rt.Reports.ReportPath(n)
	fmt.Fprintf(stdout, "🚀 Answering question: %s\n", question)
	fmt.Fprintf(stdout, "📁 Output will be saved to: %s\n", reportPath)

	c, err := s.crew(crew.NameSingleQuestion)
	if err != nil {
		return nil, err
	}
	out, err := c.Kickoff(ctx, questionInputs(question, n))
	if err != nil {
		return nil, err
	}

	if !s.rt.Reports.Exists(n) {
		if path, err := s.rt.Reports.SaveQuestionReport(n, question, out.Raw); err != nil {
			fmt.Fprintf(stdout, "⚠️  Failed to save report via fallback: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "📄 Report saved via fallback: %s\n", path)
		}
	}

	fmt.Fprintf(stdout, "\n✅ Question %d completed and saved to %s\n", n, reportPath)
	return out, nil
}

// QuestionsCmd answers every configured question separately.
type QuestionsCmd struct{}

func (c *QuestionsCmd) Run(cli *CLI) error {
	return cli.withSession("running the question", true, runQuestions)
}

func runQuestions(ctx context.Context, s *session) error {
	rule := strings.Repeat("=", 80)
	for i, question := range s.cfg.Questions {
		fmt.Fprintf(stdout, "\n%s\nQUESTION %d: %s\n%s\n", rule, i+1, question, rule)
		if _, err := askQuestion(ctx, s, question, i+1); err != nil {
			return err
		}
	}

	if path, err := s.rt.Reports.WriteIndex(s.cfg.Questions); err != nil {
		fmt.Fprintf(stdout, "⚠️  Failed to create summary index: %v\n", err)
	} else {
		fmt.Fprintf(stdout, "📋 Summary index created: %s\n", path)
	}
	return nil
}

// TrainCmd runs the crew repeatedly and records reviewer feedback.
type TrainCmd struct {
	Iterations int    `arg:"" help:"Number of training iterations."`
	Filename   string `arg:"" help:"Training filename." type:"path"`
}

func (c *TrainCmd) Run(cli *CLI) error {
	return cli.withSession("training the crew", false, func(ctx context.Context, s *session) error {
		cr, err := s.crew(crew.NameComprehensive)
		if err != nil {
			return err
		}
		if _, err := cr.Train(ctx, c.Iterations, c.Filename, s.comprehensiveInputs(), stdin, stdout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Training data saved to %s\n", c.Filename)
		return nil
	})
}

// TestCmd runs the crew repeatedly and scores every task with an evaluation model.
type TestCmd struct {
	Iterations int    `arg:"" help:"Number of test iterations."`
	EvalLLM    string `arg:"" name:"eval_llm" help:"Evaluation LLM."`
}

func (c *TestCmd) Run(cli *CLI) error {
	return cli.withSession("testing the crew", false, func(ctx context.Context, s *session) error {
		evalCfg := s.cfg.LLM
		evalCfg.Model = c.EvalLLM
		m, err := crew.NewChatModel(ctx, evalCfg)
		if err != nil {
			return err
		}
		return testCrew(ctx, s, c.Iterations, &crew.LLMEvaluator{Model: m})
	})
}

func testCrew(ctx context.Context, s *session, n int, evaluator crew.Evaluator) error {
	cr, err := s.crew(crew.NameComprehensive)
	if err != nil {
		return err
	}
	result, err := cr.Test(ctx, n, evaluator, s.comprehensiveInputs())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, result.Table())
	return nil
}

// ReplayCmd re-executes a recorded run from one of its tasks.
type ReplayCmd struct {
	TaskID string `arg:"" name:"task_id" help:"Task ID to replay."`
}

func (c *ReplayCmd) Run(cli *CLI) error {
	return cli.withSession("replaying the crew", false, func(ctx context.Context, s *session) error {
		return replay(ctx, s, c.TaskID)
	})
}

func replay(ctx context.Context, s *session, taskID string) error {
	run, _, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	cr, err := s.crew(run.Crew)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "🔁 Replaying %s run %s from task %s\n", run.Crew, run.ID, taskID)
	out, err := cr.Replay(ctx, taskID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n✅ Replay of run %s complete\n", out.RunID)
	return nil
}

// LogTasksCmd lists the tasks of the latest run, for use with replay.
type LogTasksCmd struct{}

func (c *LogTasksCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	store, err := crew.OpenSQLiteTaskStore(cfg.Crew.ReplayDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return logTasks(context.Background(), store)
}

func logTasks(ctx context.Context, store crew.TaskStore) error {
	run, outputs, err := store.LatestRun(ctx)
	if errors.Is(err, crew.ErrNoRuns) {
		fmt.Fprintln(stdout, "No crew runs recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Run %s (%s crew, %s)\n", run.ID, run.Crew, run.CreatedAt.Format("2006-01-02 15:04:05"))
	rows := make([][]string, 0, len(outputs))
	for _, out := range outputs {
		rows = append(rows, []string{strconv.Itoa(out.Index + 1), out.TaskID, out.Task, out.Agent})
	}
	fmt.Fprintln(stdout, table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Task ID", "Task", "Agent").
		Rows(rows...).
		String())
	return nil
}
