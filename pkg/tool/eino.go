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

package tool

import (
	"context"
	"slices"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// einoTool adapts a Tool to the eino invokable tool interface.
type einoTool struct {
	t Tool
}

// AsEino adapts t for use by eino agents. Tool failures are returned as
// result strings so that the model can read and react to them.
func AsEino(t Tool) einotool.InvokableTool {
	return &einoTool{t: t}
}

// AsEinoTools adapts a list of tools.
func AsEinoTools(tools []Tool) []einotool.BaseTool {
	out := make([]einotool.BaseTool, len(tools))
	for i, t := range tools {
		out[i] = AsEino(t)
	}
	return out
}

func (e *einoTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        e.t.Name(),
		Desc:        e.t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(ParameterInfos(e.t.Schema())),
	}, nil
}

func (e *einoTool) InvokableRun(ctx context.Context, argsJSON string, _ ...einotool.Option) (string, error) {
	return e.t.Call(ctx, argsJSON), nil
}

// ParameterInfos converts an object JSON schema to eino parameter infos.
func ParameterInfos(s map[string]any) map[string]*schema.ParameterInfo {
	props, _ := s["properties"].(map[string]any)
	var required []string
	switch r := s["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, v := range r {
			if name, ok := v.(string); ok {
				required = append(required, name)
			}
		}
	}

	params := make(map[string]*schema.ParameterInfo, len(props))
	for name, p := range props {
		prop, _ := p.(map[string]any)
		info := parameterInfo(prop)
		info.Required = slices.Contains(required, name)
		params[name] = info
	}
	return params
}

func parameterInfo(prop map[string]any) *schema.ParameterInfo {
	info := &schema.ParameterInfo{}
	info.Desc, _ = prop["description"].(string)

	switch prop["type"] {
	case "string":
		info.Type = schema.String
	case "integer":
		info.Type = schema.Integer
	case "number":
		info.Type = schema.Number
	case "boolean":
		info.Type = schema.Boolean
	case "array":
		info.Type = schema.Array
		if items, ok := prop["items"].(map[string]any); ok {
			info.ElemInfo = parameterInfo(items)
		}
	case "object":
		info.Type = schema.Object
		info.SubParams = ParameterInfos(prop)
	default:
		info.Type = schema.String
	}

	if enum, ok := prop["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				info.Enum = append(info.Enum, s)
			}
		}
	}
	return info
}

var _ einotool.InvokableTool = (*einoTool)(nil)
