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
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/crew"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
	"github.com/kadirpekel/emissions-agent/pkg/observability"
	"github.com/kadirpekel/emissions-agent/pkg/runtime"
)

type echoExecutor struct {
	mu    sync.Mutex
	calls int
}

func (e *echoExecutor) Execute(_ context.Context, agent *crew.Agent, _ string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return fmt.Sprintf("answer %d from %s", e.calls, agent.Name), nil
}

type constEvaluator float64

func (c constEvaluator) Evaluate(context.Context, *crew.Task, crew.Inputs, string) (float64, error) {
	return float64(c), nil
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func newTestSession(t *testing.T, questions ...string) (*session, afero.Fs, *echoExecutor) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = "/data"
	cfg.OutputDir = "/out"
	cfg.Vector.Chromem.PersistPath = ""
	cfg.Crew.ReplayDB = filepath.Join(t.TempDir(), "tasks.db")
	if len(questions) > 0 {
		cfg.Questions = questions
	}

	fs := afero.NewMemMapFs()
	exec := &echoExecutor{}
	s, err := newSession(context.Background(), cfg, exec, "",
		runtime.WithFs(fs),
		runtime.WithEmbedder(embedder.NewHash(64)),
		runtime.WithObservability(observability.Noop()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, fs, exec
}

func TestCLI_Parse(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("emissions-agent"))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"--data-dir", "/tmp/data", "ask", "Which suppliers?", "-n", "5"})
	require.NoError(t, err)
	assert.Equal(t, "ask <question>", ctx.Command())
	assert.Equal(t, "Which suppliers?", cli.Ask.Question)
	assert.Equal(t, 5, cli.Ask.Number)
	assert.Equal(t, "/tmp/data", cli.DataDir)

	ctx, err = parser.Parse([]string{"test", "2", "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "test <iterations> <eval_llm>", ctx.Command())
	assert.Equal(t, 2, cli.Test.Iterations)
	assert.Equal(t, "gpt-4o", cli.Test.EvalLLM)

	_, err = parser.Parse([]string{"train", "three", "out.json"})
	assert.Error(t, err)
}

func TestCLI_AskDefaultsToQuestionOne(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"ask", "Is scope 2 valid?"})
	require.NoError(t, err)
	assert.Equal(t, 1, cli.Ask.Number)
}

func TestFirstNonEmpty(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "debug")
	assert.Equal(t, "warn", firstNonEmpty("warn", LogLevelEnvVar, DefaultLogLevel))
	assert.Equal(t, "debug", firstNonEmpty("", LogLevelEnvVar, DefaultLogLevel))

	t.Setenv(LogLevelEnvVar, "")
	assert.Equal(t, DefaultLogLevel, firstNonEmpty("", LogLevelEnvVar, DefaultLogLevel))
}

func TestCheckAPIKey(t *testing.T) {
	out := captureStdout(t)

	cfg := config.Default()
	cfg.LLM.APIKey = ""
	assert.False(t, checkAPIKey(cfg))
	assert.Contains(t, out.String(), "⚠️  Warning: OPENAI_API_KEY not found in environment variables.")
	assert.Contains(t, out.String(), "OPENAI_API_KEY=your_openai_api_key_here")

	out.Reset()
	cfg.LLM.APIKey = "sk-test"
	assert.True(t, checkAPIKey(cfg))
	assert.Empty(t, out.String())
}

func TestAskQuestion_SavesFallbackReport(t *testing.T) {
	out := captureStdout(t)
	s, fs, exec := newTestSession(t)

	res, err := askQuestion(context.Background(), s, "Which suppliers should I prioritise?", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, exec.calls)
	assert.Len(t, res.Tasks, 2)

	data, err := afero.ReadFile(fs, "/out/question_2_report.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Question 2 Report")
	assert.Contains(t, string(data), "## Question\nWhich suppliers should I prioritise?")
	assert.Contains(t, string(data), res.Raw)

	printed := out.String()
	assert.Contains(t, printed, "🚀 Answering question: Which suppliers should I prioritise?")
	assert.Contains(t, printed, "📁 Output will be saved to: /out/question_2_report.md")
	assert.Contains(t, printed, "📄 Report saved via fallback: /out/question_2_report.md")
	assert.Contains(t, printed, "✅ Question 2 completed and saved to /out/question_2_report.md")
}

func TestAskQuestion_KeepsAgentReport(t *testing.T) {
	out := captureStdout(t)
	s, fs, _ := newTestSession(t)
	require.NoError(t, afero.WriteFile(fs, "/out/question_1_report.md", []byte("written by agent"), 0o644))

	_, err := askQuestion(context.Background(), s, "Is scope 2 valid?", 1)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/out/question_1_report.md")
	require.NoError(t, err)
	assert.Equal(t, "written by agent", string(data))
	assert.NotContains(t, out.String(), "fallback")
}

func TestAskQuestion_RejectsInvalidNumber(t *testing.T) {
	captureStdout(t)
	s, _, exec := newTestSession(t)

	_, err := askQuestion(context.Background(), s, "q", 0)
	require.Error(t, err)
	assert.Zero(t, exec.calls)
}

func TestRunQuestions_WritesIndex(t *testing.T) {
	out := captureStdout(t)
	s, fs, _ := newTestSession(t, "First question?", "Second question?")

	require.NoError(t, runQuestions(context.Background(), s))

	for _, name := range []string{"question_1_report.md", "question_2_report.md"} {
		ok, err := afero.Exists(fs, "/out/"+name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	index, err := afero.ReadFile(fs, "/out/question_reports_index.md")
	require.NoError(t, err)
	assert.Contains(t, string(index), "1. [First question?](question_1_report.md)")
	assert.Contains(t, string(index), "2. [Second question?](question_2_report.md)")

	printed := out.String()
	assert.Contains(t, printed, strings.Repeat("=", 80)+"\nQUESTION 2: Second question?\n")
	assert.Contains(t, printed, "📋 Summary index created: /out/question_reports_index.md")
}

func TestRunFull_ReplayAndLogTasks(t *testing.T) {
	out := captureStdout(t)
	s, fs, exec := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, runFull(ctx, s))
	assert.Equal(t, 5, exec.calls)
	report, err := afero.ReadFile(fs, s.cfg.ReportFile)
	require.NoError(t, err)
	assert.Equal(t, "answer 5 from insights_reporter", strings.TrimSpace(string(report)))

	run, outputs, err := s.store.LatestRun(ctx)
	require.NoError(t, err)
	require.Len(t, outputs, 5)
	assert.Equal(t, crew.NameComprehensive, run.Crew)

	out.Reset()
	require.NoError(t, logTasks(ctx, s.store))
	assert.Contains(t, out.String(), "Run "+run.ID)
	for _, o := range outputs {
		assert.Contains(t, out.String(), o.TaskID)
	}

	out.Reset()
	require.NoError(t, replay(ctx, s, outputs[3].TaskID))
	assert.Equal(t, 7, exec.calls)
	assert.Contains(t, out.String(), "✅ Replay of run "+run.ID+" complete")
}

func TestReplay_UnknownTask(t *testing.T) {
	captureStdout(t)
	s, _, _ := newTestSession(t)

	err := replay(context.Background(), s, "missing")
	assert.ErrorIs(t, err, crew.ErrTaskNotFound)
}

func TestLogTasks_Empty(t *testing.T) {
	out := captureStdout(t)
	s, _, _ := newTestSession(t)

	require.NoError(t, logTasks(context.Background(), s.store))
	assert.Equal(t, "No crew runs recorded yet.\n", out.String())
}

func TestTestCrew_PrintsScores(t *testing.T) {
	out := captureStdout(t)
	s, _, exec := newTestSession(t)

	require.NoError(t, testCrew(context.Background(), s, 2, constEvaluator(8)))
	assert.Equal(t, 10, exec.calls)
	assert.Contains(t, out.String(), "Avg. Total")
	assert.Contains(t, out.String(), "8.0")
}
