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

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
)

// ChromemIndex implements Index on the embedded chromem-go database.
//
// With a persist path, every write is stored under that directory and
// collections survive restarts. Without one the database lives in memory.
type ChromemIndex struct {
	db       *chromem.DB
	embedder embedder.Embedder
	mu       sync.RWMutex

	// collections caches handles so that a name maps to one collection.
	collections map[string]*chromem.Collection
}

// NewChromemIndex opens (or creates) a chromem database.
func NewChromemIndex(cfg config.ChromemConfig, emb embedder.Embedder) (*ChromemIndex, error) {
	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", cfg.PersistPath, err)
		}
		slog.Debug("Opened vector database", "path", cfg.PersistPath, "collections", len(db.ListCollections()))
	} else {
		db = chromem.NewDB()
		slog.Debug("Created in-memory vector database")
	}

	return &ChromemIndex{
		db:          db,
		embedder:    emb,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (p *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return p.embedder.Embed(ctx, text)
	}
}

// Collection gets or creates a collection. Repeated calls with the same name
// return the same handle.
func (p *ChromemIndex) Collection(name string) (*chromem.Collection, error) {
	if name == "" {
		return nil, ErrEmptyCollection
	}

	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if col, ok := p.collections[name]; ok {
		return col, nil
	}
	col, err := p.db.GetOrCreateCollection(name, nil, p.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

// Upsert implements Index.
func (p *ChromemIndex) Upsert(ctx context.Context, collection string, docs []Document) (int, error) {
	col, err := p.Collection(collection)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	unique := dedupe(docs)
	texts := make([]string, len(unique))
	for i, d := range unique {
		texts[i] = d.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed documents: %w", err)
	}

	cdocs := make([]chromem.Document, len(unique))
	for i, d := range unique {
		cdocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Text,
			Metadata:  stringify(d.Metadata),
			Embedding: vectors[i],
		}
	}
	if err := col.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to upsert documents: %w", err)
	}
	return len(docs), nil
}

// Query implements Index.
func (p *ChromemIndex) Query(ctx context.Context, collection, text string, n int) ([]Match, error) {
	if err := validate(collection, text); err != nil {
		return nil, err
	}
	col, err := p.Collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects result counts above the collection size.
	n = min(n, col.Count())
	if n <= 0 {
		return []Match{}, nil
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Match, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, Match{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: metadata,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return out, nil
}

// CollectionSize implements Index.
func (p *ChromemIndex) CollectionSize(_ context.Context, collection string) (int, bool, error) {
	p.mu.RLock()
	col, ok := p.collections[collection]
	p.mu.RUnlock()
	if !ok {
		col, ok = p.db.ListCollections()[collection]
	}
	if !ok || col == nil {
		return 0, false, nil
	}
	return col.Count(), true, nil
}

// Close implements Index. Persistent databases are written on every change.
func (p *ChromemIndex) Close() error {
	return nil
}

var _ Index = (*ChromemIndex)(nil)
