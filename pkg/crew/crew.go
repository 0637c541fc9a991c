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

// Package crew assembles agents and tasks into sequential crews and runs
// them: kickoff, training with human feedback, scored test runs and replay
// from a recorded task.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/utils"
)

// Crew names.
const (
	NameComprehensive  = "comprehensive"
	NameSingleQuestion = "single_question"
)

// Task names of the built-in catalog.
const (
	TaskDataIngestion   = "data_ingestion_and_quality_assessment"
	TaskAnalysis        = "emissions_analysis_and_insights"
	TaskGuidance        = "sustainability_guidance_and_education"
	TaskQueryProcessing = "natural_language_query_processing"
	TaskReport          = "comprehensive_emissions_report"
	TaskSingleQuestion  = "single_question_analysis"
)

var comprehensiveTasks = []string{TaskDataIngestion, TaskAnalysis, TaskGuidance, TaskQueryProcessing, TaskReport}

var singleQuestionTasks = []string{TaskDataIngestion, TaskSingleQuestion}

// Inputs are the values task templates are rendered against.
type Inputs map[string]any

// Agent is an agent definition bound to its tools.
type Agent struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	Tools     []tool.Tool

	// Knowledge is extra context appended to the system prompt.
	Knowledge string
}

// SystemPrompt returns the persona prompt of the agent.
func (a *Agent) SystemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\n%s\n\nYour personal goal is: %s\n",
		strings.TrimSpace(a.Role), strings.TrimSpace(a.Backstory), strings.TrimSpace(a.Goal))
	sb.WriteString("\nUse the available tools to obtain every figure you report. " +
		"Tool results that start with \"Error\" describe a failure you should address or report.\n")
	if k := strings.TrimSpace(a.Knowledge); k != "" {
		sb.WriteString("\nUser preferences and context:\n")
		sb.WriteString(k)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Task is a task definition bound to its agent.
type Task struct {
	Name       string
	Definition TaskDefinition
	Agent      *Agent
}

// Prompt renders the task for the given inputs, with the outputs of the
// earlier tasks as context and optional training guidance.
func (t *Task) Prompt(inputs Inputs, prior []TaskOutput, guidance string) (string, error) {
	desc, err := render(t.Name, t.Definition.Description, inputs)
	if err != nil {
		return "", err
	}
	expected, err := render(t.Name, t.Definition.ExpectedOutput, inputs)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(desc)
	sb.WriteString("\n\nThis is the expected criteria for your final answer: ")
	sb.WriteString(expected)
	sb.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.\n")
	if len(prior) > 0 {
		sb.WriteString("\nThis is the context you're working with:\n")
		for _, p := range prior {
			fmt.Fprintf(&sb, "\n## %s\n%s\n", p.Task, strings.TrimSpace(p.Raw))
		}
	}
	if g := strings.TrimSpace(guidance); g != "" {
		sb.WriteString("\nFeedback from earlier reviews of this task:\n")
		sb.WriteString(g)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// OutputFile renders the task's output path, or "" when it has none.
func (t *Task) OutputFile(inputs Inputs) (string, error) {
	if t.Definition.OutputFile == "" {
		return "", nil
	}
	return render(t.Name, t.Definition.OutputFile, inputs)
}

// TaskOutput is the recorded result of one task execution.
type TaskOutput struct {
	TaskID    string    `json:"task_id"`
	RunID     string    `json:"run_id"`
	Index     int       `json:"index"`
	Task      string    `json:"task"`
	Agent     string    `json:"agent"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// Output is the result of a kickoff.
type Output struct {
	RunID string
	Tasks []TaskOutput
	// Raw is the output of the last task.
	Raw string
}

// TaskRecorder receives one observation per task execution.
type TaskRecorder interface {
	RecordTask(agent string, d time.Duration, err error)
}

// Config wires a crew to its collaborators.
type Config struct {
	Definitions *Definitions
	Tools       *tool.Registry
	Executor    Executor

	// Store records task outputs for replay. Optional.
	Store TaskStore
	// Fs receives task output files. Defaults to the OS filesystem.
	Fs afero.Fs
	// Knowledge is appended to every agent's system prompt.
	Knowledge string
	// ReportFile overrides the output file of tasks that declare one.
	ReportFile string
	// Guidance maps task names to training feedback.
	Guidance map[string]string

	Recorder TaskRecorder
	Tracer   trace.Tracer
}

// Crew runs its tasks sequentially, each with its own agent.
type Crew struct {
	Name  string
	Tasks []*Task

	executor   Executor
	store      TaskStore
	fs         afero.Fs
	reportFile string
	guidance   map[string]string
	recorder   TaskRecorder
	tracer     trace.Tracer
	now        func() time.Time
}

// Comprehensive builds the full analysis crew.
func Comprehensive(cfg Config) (*Crew, error) {
	return New(NameComprehensive, comprehensiveTasks, cfg)
}

// SingleQuestion builds the reduced crew that answers one question.
func SingleQuestion(cfg Config) (*Crew, error) {
	return New(NameSingleQuestion, singleQuestionTasks, cfg)
}

// New builds a crew running the named tasks in order. Each agent is bound
// to the tools its definition lists; unknown tool names are skipped.
func New(name string, taskNames []string, cfg Config) (*Crew, error) {
	if cfg.Definitions == nil || cfg.Tools == nil || cfg.Executor == nil {
		return nil, fmt.Errorf("crew %s: definitions, tools and executor are required", name)
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	c := &Crew{
		Name:       name,
		executor:   cfg.Executor,
		store:      cfg.Store,
		fs:         cfg.Fs,
		reportFile: cfg.ReportFile,
		guidance:   make(map[string]string),
		recorder:   cfg.Recorder,
		tracer:     cfg.Tracer,
		now:        time.Now,
	}
	for k, v := range cfg.Guidance {
		c.guidance[k] = v
	}

	agents := make(map[string]*Agent)
	for _, taskName := range taskNames {
		def, ok := cfg.Definitions.Tasks[taskName]
		if !ok {
			return nil, fmt.Errorf("crew %s: unknown task %q", name, taskName)
		}
		agent, ok := agents[def.Agent]
		if !ok {
			adef, found := cfg.Definitions.Agents[def.Agent]
			if !found {
				return nil, fmt.Errorf("crew %s: task %q references unknown agent %q", name, taskName, def.Agent)
			}
			tools := cfg.Tools.GetMany(adef.Tools)
			if len(tools) != len(adef.Tools) {
				slog.Warn("Agent references unknown tools", "agent", def.Agent, "requested", len(adef.Tools), "bound", len(tools))
			}
			agent = &Agent{
				Name:      def.Agent,
				Role:      adef.Role,
				Goal:      adef.Goal,
				Backstory: adef.Backstory,
				Tools:     tools,
				Knowledge: cfg.Knowledge,
			}
			agents[def.Agent] = agent
		}
		c.Tasks = append(c.Tasks, &Task{Name: taskName, Definition: def, Agent: agent})
	}
	return c, nil
}

// Agents returns the distinct agents of the crew in first-use order.
func (c *Crew) Agents() []*Agent {
	seen := make(map[*Agent]bool)
	var out []*Agent
	for _, t := range c.Tasks {
		if !seen[t.Agent] {
			seen[t.Agent] = true
			out = append(out, t.Agent)
		}
	}
	return out
}

// Kickoff runs every task in order under a new run id.
func (c *Crew) Kickoff(ctx context.Context, inputs Inputs) (*Output, error) {
	run := Run{ID: uuid.NewString(), Crew: c.Name, Inputs: inputs, CreatedAt: c.now()}
	if c.store != nil {
		if err := c.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}
	slog.Info("Crew kickoff", "crew", c.Name, "run_id", run.ID, "tasks", len(c.Tasks))
	return c.execute(ctx, run, 0, nil)
}

// Replay re-executes a recorded run from the given task on, using the
// recorded outputs of the earlier tasks as context.
func (c *Crew) Replay(ctx context.Context, taskID string) (*Output, error) {
	if c.store == nil {
		return nil, fmt.Errorf("replay requires a task store")
	}
	run, outputs, err := c.store.FindTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if run.Crew != c.Name {
		return nil, fmt.Errorf("task %s belongs to a %s run, not %s", taskID, run.Crew, c.Name)
	}

	var found *TaskOutput
	var prior []TaskOutput
	for i := range outputs {
		if outputs[i].TaskID == taskID {
			found = &outputs[i]
			break
		}
		prior = append(prior, outputs[i])
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	start := found.Index
	if start >= len(c.Tasks) || c.Tasks[start].Name != found.Task || len(prior) != start {
		return nil, fmt.Errorf("task %s does not match the tasks of crew %s", taskID, c.Name)
	}

	slog.Info("Crew replay", "crew", c.Name, "run_id", run.ID, "from_task", found.Task)
	return c.execute(ctx, *run, start, prior)
}

func (c *Crew) execute(ctx context.Context, run Run, start int, prior []TaskOutput) (*Output, error) {
	outputs := append([]TaskOutput(nil), prior...)
	for i := start; i < len(c.Tasks); i++ {
		out, err := c.runTask(ctx, run, i, outputs)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}

	result := &Output{RunID: run.ID, Tasks: outputs}
	if len(outputs) > 0 {
		result.Raw = outputs[len(outputs)-1].Raw
	}
	return result, nil
}

func (c *Crew) runTask(ctx context.Context, run Run, i int, prior []TaskOutput) (TaskOutput, error) {
	task := c.Tasks[i]
	prompt, err := task.Prompt(run.Inputs, prior, c.guidance[task.Name])
	if err != nil {
		return TaskOutput{}, err
	}

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "crew.task_execution", trace.WithAttributes(
			attribute.String("task.name", task.Name),
			attribute.String("agent.role", task.Agent.Name),
		))
		defer span.End()
	}

	slog.Info("Executing task", "task", task.Name, "agent", task.Agent.Name)
	started := time.Now()
	raw, err := c.executor.Execute(ctx, task.Agent, prompt)
	if c.recorder != nil {
		c.recorder.RecordTask(task.Agent.Name, time.Since(started), err)
	}
	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return TaskOutput{}, fmt.Errorf("task %s failed: %w", task.Name, err)
	}

	if err := c.writeOutputFile(task, run.Inputs, raw); err != nil {
		return TaskOutput{}, err
	}

	out := TaskOutput{
		TaskID:    uuid.NewString(),
		RunID:     run.ID,
		Index:     i,
		Task:      task.Name,
		Agent:     task.Agent.Name,
		Raw:       raw,
		CreatedAt: c.now(),
	}
	if c.store != nil {
		if err := c.store.SaveTaskOutput(ctx, out); err != nil {
			return TaskOutput{}, fmt.Errorf("failed to record task output: %w", err)
		}
	}
	slog.Info("Task completed", "task", task.Name, "task_id", out.TaskID, "duration", time.Since(started).Round(time.Millisecond))
	return out, nil
}

func (c *Crew) writeOutputFile(task *Task, inputs Inputs, raw string) error {
	path, err := task.OutputFile(inputs)
	if err != nil || path == "" {
		return err
	}
	if c.reportFile != "" {
		path = c.reportFile
	}
	if err := utils.EnsureParentDir(c.fs, path); err != nil {
		return err
	}
	if err := afero.WriteFile(c.fs, path, []byte(raw), 0o644); err != nil {
		return fmt.Errorf("failed to write output of %s: %w", task.Name, err)
	}
	slog.Info("Task output written", "task", task.Name, "path", path)
	return nil
}
