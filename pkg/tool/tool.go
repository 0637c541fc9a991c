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

// Package tool defines the tools agents can invoke.
//
// A tool has a name, a description shown to the model, a JSON schema for its
// arguments, and a single string-typed result. Tool bodies work with typed
// arguments and return typed results or *Error values; both are rendered to
// the result string only at the Call boundary (see Render).
//
// # Creating Tools
//
// Use functiontool.New to build a tool from a typed function:
//
//	analyze, err := functiontool.New(
//	    functiontool.Config{
//	        Name:        "analyze_emissions",
//	        Description: "Analyze emissions data for insights, hotspots, and quality assessment",
//	        Action:      "analyzing emissions",
//	    },
//	    func(ctx context.Context, args AnalyzeArgs) (emissions.Results, error) { ... },
//	)
package tool

import "context"

// Tool defines a callable tool.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// Used by LLMs to decide when to use this tool.
	Description() string

	// Schema returns the JSON schema for the tool's parameters.
	Schema() map[string]any

	// Call executes the tool with JSON-encoded arguments. Failures are
	// reported in the returned string, never as a Go error.
	Call(ctx context.Context, argsJSON string) string
}

// Category groups tools by concern.
type Category string

const (
	CategoryData      Category = "data"
	CategoryVector    Category = "vector"
	CategoryReporting Category = "reporting"
)

// Definition represents a tool definition for LLM function calling.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition converts a tool to a Definition.
func ToDefinition(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}
