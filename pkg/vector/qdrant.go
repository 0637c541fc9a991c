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
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
)

// Payload keys holding the caller id and text of a point.
const (
	payloadID   = "_id"
	payloadText = "_text"
)

// pointNamespace derives point UUIDs from document ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("emissions-agent/vector"))

// QdrantIndex implements Index on a Qdrant server.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder embedder.Embedder
}

// NewQdrantIndex connects to Qdrant.
func NewQdrantIndex(cfg config.QdrantConfig, emb embedder.Embedder) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w\n"+
			"  TIP: Ensure Qdrant is running (docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant)",
			cfg.Host, cfg.Port, err)
	}
	return &QdrantIndex{client: client, embedder: emb}, nil
}

// PointID maps a document id to the UUID Qdrant stores it under.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func (p *QdrantIndex) ensureCollection(ctx context.Context, collection string) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}
	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(p.embedder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert implements Index.
func (p *QdrantIndex) Upsert(ctx context.Context, collection string, docs []Document) (int, error) {
	if strings.TrimSpace(collection) == "" {
		return 0, ErrEmptyCollection
	}
	if err := p.ensureCollection(ctx, collection); err != nil {
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

	points := make([]*qdrant.PointStruct, 0, len(unique))
	for i, d := range unique {
		payload := make(map[string]*qdrant.Value, len(d.Metadata)+2)
		for key, value := range d.Metadata {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return 0, fmt.Errorf("failed to convert metadata value for key %s: %w", key, err)
			}
			payload[key] = val
		}
		payload[payloadID] = qdrant.NewValueString(d.ID)
		payload[payloadText] = qdrant.NewValueString(d.Text)

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(d.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		})
	}

	wait := true
	_, err = p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}
	return len(docs), nil
}

// Query implements Index.
func (p *QdrantIndex) Query(ctx context.Context, collection, text string, n int) ([]Match, error) {
	if err := validate(collection, text); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Match{}, nil
	}
	if err := p.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	res, err := p.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vec,
		Limit:          uint64(n),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	return convertQdrantResults(res.Result), nil
}

// CollectionSize implements Index.
func (p *QdrantIndex) CollectionSize(ctx context.Context, collection string) (int, bool, error) {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return 0, false, nil
	}
	exact := true
	count, err := p.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, true, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), true, nil
}

// Close implements Index.
func (p *QdrantIndex) Close() error {
	return p.client.Close()
}

func convertQdrantResults(points []*qdrant.ScoredPoint) []Match {
	out := make([]Match, 0, len(points))
	for _, point := range points {
		m := Match{
			Metadata: make(map[string]any, len(point.Payload)),
			Distance: 1 - float64(point.Score),
		}
		for key, value := range point.Payload {
			v := payloadValue(value)
			switch key {
			case payloadID:
				m.ID, _ = v.(string)
			case payloadText:
				m.Text, _ = v.(string)
			default:
				m.Metadata[key] = v
			}
		}
		if m.ID == "" && point.Id != nil {
			m.ID = point.Id.GetUuid()
		}
		out = append(out, m)
	}
	return out
}

func payloadValue(value *qdrant.Value) any {
	switch v := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(v.ListValue.GetValues()))
		for i, item := range v.ListValue.GetValues() {
			list[i] = payloadValue(item)
		}
		return list
	case *qdrant.Value_NullValue:
		return nil
	default:
		return value.String()
	}
}

var _ Index = (*QdrantIndex)(nil)
