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

// Package knowledge loads the reference PDFs and keeps their text as chunks
// ready for vector indexing.
package knowledge

import (
	"slices"
	"strings"
	"sync"
)

// DefaultChunkSize is the chunk length in characters.
const DefaultChunkSize = 1000

// Chunk is a bounded slice of page text.
type Chunk struct {
	Text         string `json:"text"`
	Page         int    `json:"page"`
	Source       string `json:"source"`
	DocumentName string `json:"document_name"`
}

// Metadata returns the chunk metadata as stored alongside vectors.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		"page":          c.Page,
		"source":        c.Source,
		"document_name": c.DocumentName,
	}
}

// ChunkText splits text into windows of size characters. The last window may
// be shorter; windows that are only whitespace are dropped.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		w := string(runes[start:end])
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Store maps document names to their chunks.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]Chunk
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string][]Chunk)}
}

// Put replaces the chunks of a document.
func (s *Store) Put(name string, chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = chunks
}

// Get returns the chunks of a document, or nil.
func (s *Store) Get(name string) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[name]
}

// Has reports whether a document is loaded.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[name]
	return ok
}

// Names returns the loaded document names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
