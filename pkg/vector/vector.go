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

// Package vector stores text chunks in named collections of a vector
// database and retrieves them by similarity.
//
// Two backends implement Index: ChromemIndex, an embedded database persisted
// to a local directory, and QdrantIndex for a remote Qdrant server. Both
// embed text with an embedder.Embedder before writing or searching.
package vector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyQuery is returned when a query text is blank.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrEmptyCollection is returned when a collection name is blank.
	ErrEmptyCollection = errors.New("collection name is empty")
)

// Document is an entry to be written to a collection.
type Document struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a ranked query result. Lower distance means more similar.
type Match struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// Span locates a literal occurrence in a match text, in characters.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SpanMatch is a match annotated with the position of the query text.
// Span is nil and LiteralMatch false when the query does not occur verbatim.
type SpanMatch struct {
	Match
	HighlightedText string `json:"highlighted_text"`
	Span            *Span  `json:"span"`
	LiteralMatch    bool   `json:"literal_match"`
}

// Index is a vector database client.
type Index interface {
	// Upsert writes documents, replacing entries with the same id. It returns
	// the number of documents written.
	Upsert(ctx context.Context, collection string, docs []Document) (int, error)

	// Query returns up to n matches for text, most similar first.
	Query(ctx context.Context, collection, text string, n int) ([]Match, error)

	// CollectionSize returns the number of entries in a collection and
	// whether the collection exists.
	CollectionSize(ctx context.Context, collection string) (int, bool, error)

	// Close releases the client.
	Close() error
}

// DocumentID returns the id used for a document: its own id, or the MD5 hex
// digest of its text.
func DocumentID(doc Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	sum := md5.Sum([]byte(doc.Text))
	return hex.EncodeToString(sum[:])
}

// SimilaritySearch is Query with a top-k count.
func SimilaritySearch(ctx context.Context, idx Index, collection, text string, topK int) ([]Match, error) {
	return idx.Query(ctx, collection, text, topK)
}

// RetrieveWithSpans runs a similarity search and locates the first literal
// occurrence of the query in each result.
func RetrieveWithSpans(ctx context.Context, idx Index, collection, text string, topK int) ([]SpanMatch, error) {
	matches, err := idx.Query(ctx, collection, text, topK)
	if err != nil {
		return nil, err
	}
	out := make([]SpanMatch, len(matches))
	for i, m := range matches {
		out[i] = Highlight(m, text)
	}
	return out, nil
}

// Highlight wraps the first occurrence of query in m.Text with "**".
func Highlight(m Match, query string) SpanMatch {
	sm := SpanMatch{Match: m, HighlightedText: m.Text}
	pos := strings.Index(m.Text, query)
	if query == "" || pos < 0 {
		return sm
	}
	end := pos + len(query)
	sm.HighlightedText = m.Text[:pos] + "**" + query + "**" + m.Text[end:]
	start := utf8.RuneCountInString(m.Text[:pos])
	sm.Span = &Span{Start: start, End: start + utf8.RuneCountInString(query)}
	sm.LiteralMatch = true
	return sm
}

func validate(collection, text string) error {
	if strings.TrimSpace(collection) == "" {
		return ErrEmptyCollection
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// dedupe resolves ids and keeps the last document for each id, preserving
// first-seen order.
func dedupe(docs []Document) []Document {
	pos := make(map[string]int, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		d.ID = DocumentID(d)
		if i, ok := pos[d.ID]; ok {
			out[i] = d
			continue
		}
		pos[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}

func stringify(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = fmt.Sprint(v)
	}
	return out
}
