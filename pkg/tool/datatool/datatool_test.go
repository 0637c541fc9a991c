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

package datatool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/dataset"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

type pagesByFile map[string][]string

func (p pagesByFile) Pages(_ context.Context, _ afero.Fs, path string) ([]string, error) {
	for name, pages := range p {
		if strings.HasSuffix(path, name) {
			return pages, nil
		}
	}
	return nil, nil
}

func newFixture(t *testing.T) (*Config, map[string]tool.Tool) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/scope1.csv", []byte(
		"Facility,Category,CO2e_Tonnes\nPlant A,Fuel,100\nPlant B,Fuel,50\nPlant A,Fleet,25\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/scope2.csv", []byte(
		"Facility,CO2e_Tonnes\nPlant A,0\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/ghg-protocol-revised.pdf", []byte("%PDF"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/peer1_emissions_report.pdf", []byte("%PDF"), 0o644))

	idx, err := vector.NewChromemIndex(config.ChromemConfig{}, embedder.NewHash(64))
	require.NoError(t, err)

	cfg := &Config{
		Fs:        fs,
		Datasets:  dataset.NewStore(),
		Documents: knowledge.NewStore(),
		Index:     idx,
		DataDir:   "/data",
		Extractor: pagesByFile{
			"ghg-protocol-revised.pdf":   {"Scope 2 emissions are indirect emissions from purchased electricity."},
			"peer1_emissions_report.pdf": {"Peer one reports 12,000 tonnes of scope 1 emissions."},
		},
	}
	tools, err := All(cfg)
	require.NoError(t, err)

	byName := make(map[string]tool.Tool, len(tools))
	for _, tl := range tools {
		byName[tl.Name()] = tl
	}
	return cfg, byName
}

func TestAll_Catalog(t *testing.T) {
	_, tools := newFixture(t)
	for _, name := range []string{
		"load_emissions_data", "load_knowledge_base", "analyze_emissions",
		"compare_emissions", "get_data_info", "create_vector_collections",
	} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 6)
}

func TestAll_NullArguments(t *testing.T) {
	_, tools := newFixture(t)
	ctx := context.Background()
	tools["load_emissions_data"].Call(ctx, `{}`)

	for name, tl := range tools {
		var out string
		require.NotPanics(t, func() { out = tl.Call(ctx, "null") }, name)
		assert.NotEmpty(t, out, name)
	}

	out := tools["get_data_info"].Call(ctx, "null")
	var info map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "scope1")
}

func TestLoadEmissionsData(t *testing.T) {
	cfg, tools := newFixture(t)
	out := tools["load_emissions_data"].Call(context.Background(), `{}`)
	assert.Equal(t, "Loaded emissions data from /data: scope1.csv: 3 rows; scope2.csv: 1 rows; scope3.csv: File not found", out)
	assert.Equal(t, []string{"scope1", "scope2"}, cfg.Datasets.Names())
}

func TestLoadKnowledgeBase(t *testing.T) {
	cfg, tools := newFixture(t)
	out := tools["load_knowledge_base"].Call(context.Background(), `{"data_directory": "/data"}`)
	assert.Contains(t, out, "Available PDFs loaded: ")
	assert.Contains(t, out, "ghg-protocol-revised.pdf: 1 chunks")
	assert.Contains(t, out, "Missing files: peer2_emissions_report.pdf")
	assert.True(t, cfg.Documents.Has("ghg-protocol-revised"))

	out = tools["load_knowledge_base"].Call(context.Background(), `{"data_directory": "/empty"}`)
	assert.True(t, strings.HasPrefix(out, "No PDF files found in /empty. Expected: "))
}

func TestAnalyzeEmissions(t *testing.T) {
	_, tools := newFixture(t)
	ctx := context.Background()
	tools["load_emissions_data"].Call(ctx, `{}`)

	out := tools["analyze_emissions"].Call(ctx, `{"scope": "scope1", "analysis_type": "hotspots"}`)
	require.False(t, tool.IsErrorResult(out), out)
	assert.Less(t, strings.Index(out, "Plant A"), strings.Index(out, "Plant B"))

	out = tools["analyze_emissions"].Call(ctx, `{"scope": "scope9", "analysis_type": "summary"}`)
	assert.Equal(t, "Error analyzing emissions: dataframe 'scope9' not found. Available: ['scope1', 'scope2']", out)

	out = tools["analyze_emissions"].Call(ctx, `{"scope": "scope1", "analysis_type": "trend"}`)
	assert.True(t, strings.HasPrefix(out, "Error analyzing emissions: unsupported analysis type"), out)

	out = tools["analyze_emissions"].Call(ctx, `{"scope": "scope1"}`)
	assert.True(t, tool.IsErrorResult(out))
}

func TestCompareEmissions(t *testing.T) {
	_, tools := newFixture(t)
	ctx := context.Background()
	tools["load_emissions_data"].Call(ctx, `{}`)

	out := tools["compare_emissions"].Call(ctx, `{"scope1": "scope1", "scope2": "scope2"}`)
	require.False(t, tool.IsErrorResult(out), out)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 175.0, got["difference"])
	assert.Equal(t, "Infinity", got["percentage_diff"])

	out = tools["compare_emissions"].Call(ctx, `{"scope1": "scope1", "scope2": "scope3"}`)
	assert.True(t, strings.HasPrefix(out, "Error comparing emissions: dataframe 'scope3' not found"), out)
}

func TestGetDataInfo(t *testing.T) {
	_, tools := newFixture(t)
	ctx := context.Background()
	tools["load_emissions_data"].Call(ctx, `{}`)

	out := tools["get_data_info"].Call(ctx, `{}`)
	var info map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 3.0, info["scope1"]["rows"])

	out = tools["get_data_info"].Call(ctx, `{"data_type": "vectors"}`)
	assert.True(t, strings.HasPrefix(out, "Error getting data info: invalid data_type"), out)
}

func TestCreateVectorCollections(t *testing.T) {
	cfg, tools := newFixture(t)
	ctx := context.Background()
	tools["load_knowledge_base"].Call(ctx, `{}`)

	out := tools["create_vector_collections"].Call(ctx, `{}`)
	assert.Equal(t, "Created vector collections: ghg_protocol: Upserted 1 documents to collection 'ghg_protocol'; "+
		"peer_benchmarks: Upserted 1 documents to collection 'peer_benchmarks'", out)

	out = tools["create_vector_collections"].Call(ctx, `{}`)
	assert.Equal(t, "Created vector collections: ghg_protocol: Already exists, skipped; peer_benchmarks: Already exists, skipped", out)

	out = tools["create_vector_collections"].Call(ctx, `{"force_recreate": true}`)
	assert.Contains(t, out, "Upserted 1 documents to collection 'ghg_protocol'")

	size, ok, err := cfg.Index.CollectionSize(ctx, vector.CollectionGHGProtocol)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, size)
}

func TestCreateVectorCollections_NoIndex(t *testing.T) {
	cfg, _ := newFixture(t)
	cfg.Index = nil
	tl, err := NewCreateVectorCollections(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Error creating vector collections: no vector index configured", tl.Call(context.Background(), `{}`))
}
