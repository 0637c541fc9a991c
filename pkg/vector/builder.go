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
	"strings"

	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
)

// Target collections built from the knowledge base.
const (
	CollectionGHGProtocol    = "ghg_protocol"
	CollectionPeerBenchmarks = "peer_benchmarks"
)

// CollectionSpec selects the documents feeding one collection.
type CollectionSpec struct {
	Name     string
	DataType string
	Match    func(docName string) bool
}

// DefaultCollections partitions the knowledge base into regulatory guidance
// and peer benchmarks.
var DefaultCollections = []CollectionSpec{
	{
		Name:     CollectionGHGProtocol,
		DataType: "regulatory_guidance",
		Match: func(name string) bool {
			n := strings.ToLower(name)
			return strings.Contains(n, "ghg") || strings.Contains(n, "protocol")
		},
	},
	{
		Name:     CollectionPeerBenchmarks,
		DataType: "peer_benchmark",
		Match: func(name string) bool {
			return strings.Contains(strings.ToLower(name), "peer")
		},
	},
}

// BuildStatus is the outcome for one collection.
type BuildStatus struct {
	Collection string
	Upserted   int
	Skipped    bool
}

func (s BuildStatus) String() string {
	if s.Skipped {
		return s.Collection + ": Already exists, skipped"
	}
	return fmt.Sprintf("%s: Upserted %d documents to collection '%s'", s.Collection, s.Upserted, s.Collection)
}

// BuildReport summarizes a BuildCollections call.
type BuildReport []BuildStatus

func (r BuildReport) String() string {
	parts := make([]string, len(r))
	for i, s := range r {
		parts[i] = s.String()
	}
	return "Created vector collections: " + strings.Join(parts, "; ")
}

// BuildCollections writes the loaded document chunks into the default
// collections. A collection that already holds entries is skipped unless
// force is set; a collection with no matching documents is left out.
func BuildCollections(ctx context.Context, idx Index, docs *knowledge.Store, force bool) (BuildReport, error) {
	var report BuildReport
	for _, spec := range DefaultCollections {
		if !force {
			size, _, err := idx.CollectionSize(ctx, spec.Name)
			if err != nil {
				return report, err
			}
			if size > 0 {
				report = append(report, BuildStatus{Collection: spec.Name, Skipped: true})
				continue
			}
		}

		var entries []Document
		for _, name := range docs.Names() {
			if !spec.Match(name) {
				continue
			}
			for i, chunk := range docs.Get(name) {
				md := chunk.Metadata()
				md["data_type"] = spec.DataType
				entries = append(entries, Document{
					ID:       fmt.Sprintf("%s_chunk_%d", name, i),
					Text:     chunk.Text,
					Metadata: md,
				})
			}
		}
		if len(entries) == 0 {
			continue
		}

		n, err := idx.Upsert(ctx, spec.Name, entries)
		if err != nil {
			return report, fmt.Errorf("%s: %w", spec.Name, err)
		}
		slog.Info("Built vector collection", "collection", spec.Name, "documents", n)
		report = append(report, BuildStatus{Collection: spec.Name, Upserted: n})
	}
	return report, nil
}
