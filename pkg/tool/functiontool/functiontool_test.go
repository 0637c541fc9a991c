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

package functiontool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
)

type searchArgs struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the vector collection" validate:"required"`
	QueryText      string `json:"query_text" jsonschema:"required,description=Text to search for" validate:"required"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"description=Number of results to return,default=5" validate:"gte=1"`
	Force          bool   `json:"force,omitempty" jsonschema:"default=false"`
}

type searchResult struct {
	Collection string `json:"collection"`
	TopK       int    `json:"top_k"`
}

func newSearchTool(t *testing.T, fn func(context.Context, searchArgs) (*searchResult, error)) tool.Tool {
	t.Helper()
	st, err := functiontool.New(functiontool.Config{
		Name:        "similarity_search",
		Description: "Perform similarity search in vector store",
		Action:      "performing similarity search",
	}, fn)
	require.NoError(t, err)
	return st
}

func TestNew_Config(t *testing.T) {
	fn := func(context.Context, searchArgs) (string, error) { return "", nil }

	_, err := functiontool.New(functiontool.Config{Description: "d"}, fn)
	assert.Error(t, err)

	_, err = functiontool.New(functiontool.Config{Name: "n"}, fn)
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	st := newSearchTool(t, nil)
	schema := st.Schema()

	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"collection_name", "query_text"}, schema["required"])

	props := schema["properties"].(map[string]any)
	topK := props["top_k"].(map[string]any)
	assert.Equal(t, "integer", topK["type"])
	assert.Equal(t, "Number of results to return", topK["description"])
	assert.EqualValues(t, 5, topK["default"])
}

func TestCall_AppliesDefaultsAndRendersJSON(t *testing.T) {
	st := newSearchTool(t, func(_ context.Context, a searchArgs) (*searchResult, error) {
		return &searchResult{Collection: a.CollectionName, TopK: a.TopK}, nil
	})

	out := st.Call(context.Background(), `{"collection_name":"ghg_protocol","query_text":"scope 2"}`)
	assert.JSONEq(t, `{"collection":"ghg_protocol","top_k":5}`, out)
	assert.Contains(t, out, "\n  ")

	out = st.Call(context.Background(), `{"collection_name":"c","query_text":"q","top_k":2}`)
	assert.JSONEq(t, `{"collection":"c","top_k":2}`, out)
}

func TestCall_InvalidInput(t *testing.T) {
	called := false
	st := newSearchTool(t, func(context.Context, searchArgs) (*searchResult, error) {
		called = true
		return nil, nil
	})

	out := st.Call(context.Background(), `{"collection_name":"c"}`)
	assert.Equal(t, "Error performing similarity search: field QueryText is required", out)

	out = st.Call(context.Background(), `{"collection_name":"c","query_text":"q","top_k":0}`)
	assert.Contains(t, out, "Error performing similarity search: field TopK failed gte=1")

	out = st.Call(context.Background(), `not json`)
	assert.Contains(t, out, "Error performing similarity search: invalid arguments")

	assert.False(t, called)
}

func TestCall_Errors(t *testing.T) {
	st := newSearchTool(t, func(context.Context, searchArgs) (*searchResult, error) {
		return nil, &tool.Error{Kind: tool.KindNotFound, Message: "Collection 'x' not found", Alternatives: []string{"a", "b"}}
	})
	out := st.Call(context.Background(), `{"collection_name":"x","query_text":"q"}`)
	assert.Equal(t, "Error performing similarity search: Collection 'x' not found. Available: ['a', 'b']", out)

	st = newSearchTool(t, func(context.Context, searchArgs) (*searchResult, error) {
		return nil, errors.New("connection refused")
	})
	out = st.Call(context.Background(), `{"collection_name":"x","query_text":"q"}`)
	assert.Equal(t, "Error performing similarity search: connection refused", out)
}

type echoArgs struct {
	Text string `json:"text" jsonschema:"required"`
}

func TestCall_StringResult(t *testing.T) {
	st, err := functiontool.New(functiontool.Config{Name: "echo", Description: "echo"},
		func(_ context.Context, a echoArgs) (string, error) {
			return a.Text, nil
		})
	require.NoError(t, err)

	assert.Equal(t, "hello", st.Call(context.Background(), `{"text":"hello"}`))
	assert.Equal(t, "", st.Call(context.Background(), ``))
}

func TestNew_RejectsUnnamedArgs(t *testing.T) {
	_, err := functiontool.New(functiontool.Config{Name: "echo", Description: "echo"},
		func(_ context.Context, a struct {
			Text string `json:"text"`
		}) (string, error) {
			return a.Text, nil
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "named struct")
}

type pageArgs struct {
	TopK int `json:"top_k,omitempty" jsonschema:"default=5" validate:"gte=1"`
}

func TestCall_NullArguments(t *testing.T) {
	st, err := functiontool.New(functiontool.Config{Name: "page", Description: "page"},
		func(_ context.Context, a pageArgs) (*searchResult, error) {
			return &searchResult{TopK: a.TopK}, nil
		})
	require.NoError(t, err)

	assert.JSONEq(t, `{"collection":"","top_k":5}`, st.Call(context.Background(), `null`))

	search := newSearchTool(t, func(context.Context, searchArgs) (*searchResult, error) {
		return &searchResult{}, nil
	})
	out := search.Call(context.Background(), `null`)
	assert.Equal(t, "Error performing similarity search: field CollectionName is required; field QueryText is required", out)
}
