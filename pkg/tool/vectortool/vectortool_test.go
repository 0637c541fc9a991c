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

package vectortool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

func newTools(t *testing.T) map[string]tool.Tool {
	t.Helper()
	idx, err := vector.NewChromemIndex(config.ChromemConfig{}, embedder.NewHash(128))
	require.NoError(t, err)
	tools, err := All(idx)
	require.NoError(t, err)
	byName := make(map[string]tool.Tool)
	for _, tl := range tools {
		byName[tl.Name()] = tl
	}
	return byName
}

func call(t *testing.T, tl tool.Tool, args map[string]any) string {
	t.Helper()
	data, err := json.Marshal(args)
	require.NoError(t, err)
	return tl.Call(context.Background(), string(data))
}

const corpus = `[
	{"id": "doc1", "text": "Scope 2 covers purchased electricity", "metadata": {"page": 1}},
	{"text": "Fleet fuel combustion is a scope 1 source"},
	{"id": "doc3", "text": "Business travel belongs to scope 3"}
]`

func TestUpsert(t *testing.T) {
	tools := newTools(t)
	out := call(t, tools["upsert"], map[string]any{"collection_name": "notes", "documents": corpus})
	assert.Equal(t, "Upserted 3 documents to collection 'notes'", out)

	out = call(t, tools["upsert"], map[string]any{"collection_name": "notes", "documents": "not json"})
	assert.True(t, strings.HasPrefix(out, "Error upserting documents: documents must be a JSON array"), out)

	out = call(t, tools["upsert"], map[string]any{"collection_name": "notes"})
	assert.True(t, tool.IsErrorResult(out))
}

func TestQuery(t *testing.T) {
	tools := newTools(t)
	call(t, tools["upsert"], map[string]any{"collection_name": "notes", "documents": corpus})

	out := call(t, tools["query"], map[string]any{"collection_name": "notes", "query_text": "purchased electricity"})
	var matches []vector.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches), out)
	require.Len(t, matches, 3)
	assert.Equal(t, "doc1", matches[0].ID)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)

	out = call(t, tools["query"], map[string]any{"collection_name": "notes", "query_text": "   "})
	assert.Equal(t, "Error querying collection: query text is empty", out)
}

func TestSimilaritySearch_TopK(t *testing.T) {
	tools := newTools(t)
	call(t, tools["upsert"], map[string]any{"collection_name": "notes", "documents": corpus})

	out := call(t, tools["similarity_search"], map[string]any{"collection_name": "notes", "query_text": "scope 3 travel", "top_k": 2})
	var matches []vector.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches), out)
	assert.Len(t, matches, 2)

	out = call(t, tools["similarity_search"], map[string]any{"collection_name": "notes", "query_text": "travel", "top_k": 0})
	assert.True(t, strings.HasPrefix(out, "Error performing similarity search: "), out)
}

func TestRetrieveWithSpans(t *testing.T) {
	tools := newTools(t)
	call(t, tools["upsert"], map[string]any{"collection_name": "notes", "documents": corpus})

	out := call(t, tools["retrieve_topk_with_spans"], map[string]any{"collection_name": "notes", "query_text": "purchased electricity"})
	var matches []vector.SpanMatch
	require.NoError(t, json.Unmarshal([]byte(out), &matches), out)
	require.NotEmpty(t, matches)

	var literal, semantic int
	for _, m := range matches {
		if m.LiteralMatch {
			literal++
			require.NotNil(t, m.Span)
			assert.Equal(t, "Scope 2 covers **purchased electricity**", m.HighlightedText)
			assert.Equal(t, vector.Span{Start: 15, End: 36}, *m.Span)
		} else {
			semantic++
			assert.Nil(t, m.Span)
			assert.Equal(t, m.Text, m.HighlightedText)
		}
	}
	assert.Equal(t, 1, literal)
	assert.Equal(t, 2, semantic)
	assert.Contains(t, out, `"span": null`)
}
