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
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
)

// Executor runs one task prompt as an agent and returns its final answer.
type Executor interface {
	Execute(ctx context.Context, agent *Agent, prompt string) (string, error)
}

// NewChatModel creates the tool-calling chat model described by cfg.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, config.ErrMissingAPIKey
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai)", cfg.Provider)
	}
}

// EinoExecutor runs each task through an eino ReAct agent equipped with the
// task agent's tools.
type EinoExecutor struct {
	Model    model.ToolCallingChatModel
	MaxSteps int
}

// NewEinoExecutor creates an executor over the configured chat model.
func NewEinoExecutor(ctx context.Context, cfg config.LLMConfig, maxSteps int) (*EinoExecutor, error) {
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &EinoExecutor{Model: m, MaxSteps: maxSteps}, nil
}

// Execute implements Executor.
func (e *EinoExecutor) Execute(ctx context.Context, agent *Agent, prompt string) (string, error) {
	if e.Model == nil {
		return "", errors.New("executor has no chat model")
	}
	system := agent.SystemPrompt()

	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: e.Model,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tool.AsEinoTools(agent.Tools)},
		MaxStep:          e.MaxSteps,
		MessageModifier: func(ctx context.Context, msgs []*schema.Message) []*schema.Message {
			return append([]*schema.Message{schema.SystemMessage(system)}, msgs...)
		},
	})
	if err != nil {
		return "", fmt.Errorf("create ReAct agent: %w", err)
	}

	resp, err := ra.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("agent generate failed: %w", err)
	}
	return resp.Content, nil
}

var _ Executor = (*EinoExecutor)(nil)
