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
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed agents.yaml
var defaultAgents []byte

//go:embed tasks.yaml
var defaultTasks []byte

// AgentDefinition describes an agent persona and the tools it may call.
type AgentDefinition struct {
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Tools     []string `yaml:"tools"`
}

// TaskDefinition describes a unit of work. Description and ExpectedOutput
// are text/template sources rendered against the kickoff inputs.
type TaskDefinition struct {
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
	Agent          string `yaml:"agent"`
	OutputFile     string `yaml:"output_file,omitempty"`
}

// Definitions holds the agent and task catalogs by name.
type Definitions struct {
	Agents map[string]AgentDefinition
	Tasks  map[string]TaskDefinition
}

// DefaultDefinitions returns the built-in agents and tasks.
func DefaultDefinitions() (*Definitions, error) {
	return ParseDefinitions(defaultAgents, defaultTasks)
}

// LoadDefinitions reads agent and task files from fs. An empty path selects
// the built-in catalog for that file.
func LoadDefinitions(fs afero.Fs, agentsFile, tasksFile string) (*Definitions, error) {
	agents, tasks := defaultAgents, defaultTasks
	var err error
	if agentsFile != "" {
		if agents, err = afero.ReadFile(fs, agentsFile); err != nil {
			return nil, fmt.Errorf("failed to read agents file: %w", err)
		}
	}
	if tasksFile != "" {
		if tasks, err = afero.ReadFile(fs, tasksFile); err != nil {
			return nil, fmt.Errorf("failed to read tasks file: %w", err)
		}
	}
	return ParseDefinitions(agents, tasks)
}

// ParseDefinitions decodes agent and task YAML documents and checks that
// every task names a known agent and every template parses.
func ParseDefinitions(agents, tasks []byte) (*Definitions, error) {
	defs := &Definitions{}
	if err := yaml.Unmarshal(agents, &defs.Agents); err != nil {
		return nil, fmt.Errorf("failed to parse agents: %w", err)
	}
	if err := yaml.Unmarshal(tasks, &defs.Tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks: %w", err)
	}
	if err := defs.validate(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (d *Definitions) validate() error {
	var problems []string
	for _, name := range sortedKeys(d.Agents) {
		if strings.TrimSpace(d.Agents[name].Role) == "" {
			problems = append(problems, fmt.Sprintf("agent %q has no role", name))
		}
	}
	for _, name := range sortedKeys(d.Tasks) {
		task := d.Tasks[name]
		if _, ok := d.Agents[task.Agent]; !ok {
			problems = append(problems, fmt.Sprintf("task %q references unknown agent %q", name, task.Agent))
		}
		for _, src := range []string{task.Description, task.ExpectedOutput, task.OutputFile} {
			if _, err := parseTemplate(name, src); err != nil {
				problems = append(problems, fmt.Sprintf("task %q: %v", name, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid crew definitions: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoadKnowledge reads the user preference file appended to agent prompts.
// The path is tried as given and under "knowledge/"; a missing file yields "".
func LoadKnowledge(fs afero.Fs, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	for _, candidate := range []string{path, filepath.Join("knowledge", path)} {
		data, err := afero.ReadFile(fs, candidate)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to read knowledge file: %w", err)
		}
	}
	return "", nil
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func parseTemplate(name, src string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(src)
}

// render executes a task template against the kickoff inputs.
func render(name, src string, inputs Inputs) (string, error) {
	tmpl, err := parseTemplate(name, src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any(inputs)); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
