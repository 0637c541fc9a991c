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
	"time"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/crew"
	"github.com/kadirpekel/emissions-agent/pkg/runtime"
)

const analysisFocus = "comprehensive emissions analysis with specific business questions"

// session is the state shared by one command invocation.
type session struct {
	cfg   *config.Config
	rt    *runtime.Runtime
	defs  *crew.Definitions
	store *crew.SQLiteTaskStore
	base  crew.Config
}

// loadConfig reads the configuration and applies CLI overrides.
func (cli *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}
	return cfg, nil
}

// checkAPIKey prints setup instructions when no LLM credential is configured.
func checkAPIKey(cfg *config.Config) bool {
	if cfg.RequireAPIKey() == nil {
		return true
	}
	fmt.Fprintf(stdout, "⚠️  Warning: %s not found in environment variables.\n", config.APIKeyEnvVar)
	fmt.Fprintln(stdout, "   Please create a .env file with your OpenAI API key:")
	fmt.Fprintf(stdout, "   %s=your_openai_api_key_here\n", config.APIKeyEnvVar)
	fmt.Fprintln(stdout, "   Get your API key from: https://platform.openai.com/api-keys")
	return false
}

// open builds a session backed by the configured chat model.
func (cli *CLI) open(ctx context.Context, cfg *config.Config) (*session, error) {
	executor, err := crew.NewEinoExecutor(ctx, cfg.LLM, cfg.Crew.MaxSteps)
	if err != nil {
		return nil, err
	}
	return newSession(ctx, cfg, executor, cli.Guidance)
}

// newSession wires the runtime, crew definitions and replay store.
func newSession(ctx context.Context, cfg *config.Config, executor crew.Executor, guidanceFile string, opts ...runtime.Option) (_ *session, err error) {
	rt, err := runtime.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	defs, err := crew.LoadDefinitions(rt.Fs, cfg.Crew.AgentsFile, cfg.Crew.TasksFile)
	if err != nil {
		return nil, err
	}
	knowledge, err := crew.LoadKnowledge(rt.Fs, cfg.Crew.KnowledgeFile)
	if err != nil {
		return nil, err
	}

	var guidance map[string]string
	if guidanceFile != "" {
		td, err := crew.LoadTrainingData(rt.Fs, guidanceFile)
		if err != nil {
			return nil, err
		}
		guidance = td.Guidance()
	}

	store, err := crew.OpenSQLiteTaskStore(cfg.Crew.ReplayDB)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:   cfg,
		rt:    rt,
		defs:  defs,
		store: store,
		base: crew.Config{
			Definitions: defs,
			Tools:       rt.Tools,
			Executor:    executor,
			Store:       store,
			Fs:          rt.Fs,
			Knowledge:   knowledge,
			ReportFile:  cfg.ReportFile,
			Guidance:    guidance,
			Recorder:    rt.Observability.Metrics(),
			Tracer:      rt.Observability.Tracer("github.com/kadirpekel/emissions-agent/pkg/crew"),
		},
	}, nil
}

// crew builds the named crew.
func (s *session) crew(name string) (*crew.Crew, error) {
	switch name {
	case crew.NameComprehensive:
		return crew.Comprehensive(s.base)
	case crew.NameSingleQuestion:
		return crew.SingleQuestion(s.base)
	default:
		return nil, fmt.Errorf("unknown crew %q", name)
	}
}

// comprehensiveInputs are the inputs of run, train and test.
func (s *session) comprehensiveInputs() crew.Inputs {
	return crew.Inputs{
		"questions":      s.cfg.Questions,
		"analysis_focus": analysisFocus,
		"current_year":   currentYear(),
	}
}

func questionInputs(question string, n int) crew.Inputs {
	return crew.Inputs{
		"question":        question,
		"question_number": n,
		"current_year":    currentYear(),
	}
}

func currentYear() string {
	return strconv.Itoa(time.Now().Year())
}

func (s *session) Close() error {
	return errors.Join(s.store.Close(), s.rt.Close())
}
