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

// Package functiontool creates tools from typed Go functions.
//
// The argument type is a struct whose tags define the tool schema and its
// validation rules:
//
//	type SimilaritySearchArgs struct {
//	    CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the vector collection" validate:"required"`
//	    QueryText      string `json:"query_text" jsonschema:"required,description=Text to search for" validate:"required"`
//	    TopK           int    `json:"top_k,omitempty" jsonschema:"description=Number of results to return,default=5" validate:"gte=1,lte=100"`
//	}
//
// Missing arguments take the schema default before validation runs. The
// function result is rendered with tool.Render: strings pass through, other
// values become indented JSON, errors become "Error <action>: ..." strings.
package functiontool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kadirpekel/emissions-agent/pkg/tool"
)

// Config defines the configuration for a function tool.
type Config struct {
	// Name is the unique identifier for this tool (required).
	Name string

	// Description explains what the tool does (required).
	// This is shown to the LLM to help it decide when to use the tool.
	Description string

	// Action names the operation in error results, e.g. "loading data"
	// renders failures as "Error loading data: ...". Defaults to "running <name>".
	Action string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New creates a tool from a typed function.
func New[Args, Res any](cfg Config, fn func(context.Context, Args) (Res, error)) (tool.Tool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Action == "" {
		cfg.Action = "running " + cfg.Name
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args, Res]{
		config:   cfg,
		fn:       fn,
		schema:   schema,
		defaults: schemaDefaults(schema),
	}, nil
}

// functionTool implements tool.Tool by wrapping a typed function.
type functionTool[Args, Res any] struct {
	config   Config
	fn       func(context.Context, Args) (Res, error)
	schema   map[string]any
	defaults map[string]any
}

// Name returns the tool name.
func (t *functionTool[Args, Res]) Name() string {
	return t.config.Name
}

// Description returns the tool description.
func (t *functionTool[Args, Res]) Description() string {
	return t.config.Description
}

// Schema returns the JSON schema for tool parameters.
func (t *functionTool[Args, Res]) Schema() map[string]any {
	return t.schema
}

// Call decodes and validates the arguments, runs the function and renders
// its outcome.
func (t *functionTool[Args, Res]) Call(ctx context.Context, argsJSON string) string {
	args, err := t.decode(argsJSON)
	if err != nil {
		return tool.Render(t.config.Action, nil, err)
	}
	res, err := t.Invoke(ctx, args)
	if err != nil {
		return tool.Render(t.config.Action, nil, err)
	}
	return tool.Render(t.config.Action, res, nil)
}

// Invoke runs the function with typed arguments, tagging failures with the
// tool name.
func (t *functionTool[Args, Res]) Invoke(ctx context.Context, args Args) (Res, error) {
	res, err := t.fn(ctx, args)
	if err != nil {
		te := tool.Wrap(tool.KindBackend, err)
		if te.Tool == "" {
			te.Tool = t.config.Name
		}
		return res, te
	}
	return res, nil
}

func (t *functionTool[Args, Res]) decode(argsJSON string) (Args, error) {
	var args Args

	raw := map[string]any{}
	if s := strings.TrimSpace(argsJSON); s != "" {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return args, &tool.Error{Kind: tool.KindInvalidInput, Tool: t.config.Name, Message: "invalid arguments", Err: err}
		}
	}
	// "null" decodes to a nil map.
	if raw == nil {
		raw = map[string]any{}
	}
	for k, v := range t.defaults {
		if cur, ok := raw[k]; !ok || cur == nil {
			raw[k] = v
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return args, &tool.Error{Kind: tool.KindInvalidInput, Tool: t.config.Name, Err: err}
	}
	if err := json.Unmarshal(data, &args); err != nil {
		return args, &tool.Error{Kind: tool.KindInvalidInput, Tool: t.config.Name, Message: "invalid arguments: " + err.Error(), Err: err}
	}

	if err := validate.Struct(args); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return args, nil
		}
		return args, &tool.Error{Kind: tool.KindInvalidInput, Tool: t.config.Name, Message: validationMessage(err), Err: err}
	}
	return args, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

// validateConfig checks that the configuration is valid.
func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return fmt.Errorf("tool description is required")
	}
	return nil
}
