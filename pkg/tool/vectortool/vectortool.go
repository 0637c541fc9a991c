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

// Package vectortool exposes the vector index to agents.
package vectortool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

// DefaultQueryResults is the result count of the query tool.
const DefaultQueryResults = 5

// UpsertArgs defines the parameters for upsert.
type UpsertArgs struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the vector collection" validate:"required"`
	Documents      string `json:"documents" jsonschema:"required,description=JSON string of documents to upsert" validate:"required"`
}

// QueryArgs defines the parameters for query.
type QueryArgs struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the vector collection" validate:"required"`
	QueryText      string `json:"query_text" jsonschema:"required,description=Text to search for" validate:"required"`
}

// SearchArgs defines the parameters for similarity_search and
// retrieve_topk_with_spans.
type SearchArgs struct {
	CollectionName string `json:"collection_name" jsonschema:"required,description=Name of the vector collection" validate:"required"`
	QueryText      string `json:"query_text" jsonschema:"required,description=Text to search for" validate:"required"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"description=Number of results to return,default=5" validate:"gte=1,lte=100"`
}

// All creates every vector tool, in catalog order.
func All(idx vector.Index) ([]tool.Tool, error) {
	if idx == nil {
		return nil, errors.New("vectortool: index is required")
	}
	constructors := []func(vector.Index) (tool.Tool, error){
		NewUpsert,
		NewQuery,
		NewSimilaritySearch,
		NewRetrieveWithSpans,
	}
	tools := make([]tool.Tool, 0, len(constructors))
	for _, newTool := range constructors {
		t, err := newTool(idx)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// NewUpsert creates the upsert tool. Documents are a JSON array of objects
// with "text" and optional "id" and "metadata".
func NewUpsert(idx vector.Index) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "upsert",
			Description: "Insert or update documents in vector store",
			Action:      "upserting documents",
		},
		func(ctx context.Context, args UpsertArgs) (string, error) {
			var docs []vector.Document
			if err := json.Unmarshal([]byte(args.Documents), &docs); err != nil {
				return "", &tool.Error{Kind: tool.KindInvalidInput, Message: "documents must be a JSON array: " + err.Error(), Err: err}
			}
			n, err := idx.Upsert(ctx, args.CollectionName, docs)
			if err != nil {
				return "", classify(err)
			}
			return fmt.Sprintf("Upserted %d documents to collection '%s'", n, args.CollectionName), nil
		},
	)
}

// NewQuery creates the query tool.
func NewQuery(idx vector.Index) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "query",
			Description: "Query vector store with text",
			Action:      "querying collection",
		},
		func(ctx context.Context, args QueryArgs) ([]vector.Match, error) {
			matches, err := idx.Query(ctx, args.CollectionName, args.QueryText, DefaultQueryResults)
			return matches, classify(err)
		},
	)
}

// NewSimilaritySearch creates the similarity_search tool.
func NewSimilaritySearch(idx vector.Index) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "similarity_search",
			Description: "Perform similarity search in vector store",
			Action:      "performing similarity search",
		},
		func(ctx context.Context, args SearchArgs) ([]vector.Match, error) {
			matches, err := vector.SimilaritySearch(ctx, idx, args.CollectionName, args.QueryText, args.TopK)
			return matches, classify(err)
		},
	)
}

// NewRetrieveWithSpans creates the retrieve_topk_with_spans tool.
func NewRetrieveWithSpans(idx vector.Index) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "retrieve_topk_with_spans",
			Description: "Retrieve top K documents with text spans for citation",
			Action:      "retrieving documents with spans",
		},
		func(ctx context.Context, args SearchArgs) ([]vector.SpanMatch, error) {
			matches, err := vector.RetrieveWithSpans(ctx, idx, args.CollectionName, args.QueryText, args.TopK)
			return matches, classify(err)
		},
	)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vector.ErrEmptyQuery), errors.Is(err, vector.ErrEmptyCollection):
		return &tool.Error{Kind: tool.KindInvalidInput, Err: err}
	}
	return tool.Wrap(tool.KindBackend, err)
}
