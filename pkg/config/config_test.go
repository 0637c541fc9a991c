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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv(APIKeyEnvVar, "sk-test")

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Equal(t, "emissions_report.md", cfg.ReportFile)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
	assert.Equal(t, "chromem", cfg.Vector.Type)
	assert.Equal(t, "./chroma_db", cfg.Vector.Chromem.PersistPath)
	assert.Equal(t, 3, cfg.Analysis.HotspotLimit)
	assert.Equal(t, 20, cfg.Analysis.Penalty())
	assert.Equal(t, 1000, cfg.Analysis.ChunkSize)
	assert.Len(t, cfg.Questions, 6)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("EA_DATA", "/srv/emissions")
	t.Setenv("EA_PORT", "")

	cfg, err := Parse([]byte(`
data_dir: ${EA_DATA}
llm:
  model: ${EA_MODEL:-gpt-4o}
  api_key: literal
vector:
  type: qdrant
  qdrant:
    host: localhost
    port: ${EA_PORT:-6335}
`))
	require.NoError(t, err)

	assert.Equal(t, "/srv/emissions", cfg.DataDir)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.NotNil(t, cfg.Vector.Qdrant)
	assert.Equal(t, 6335, cfg.Vector.Qdrant.Port)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestParse_ZeroQualityPenalty(t *testing.T) {
	cfg, err := Parse([]byte("analysis:\n  quality_penalty: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Analysis.QualityPenalty)
	assert.Equal(t, 0, cfg.Analysis.Penalty())

	assert.Equal(t, DefaultQualityPenalty, AnalysisConfig{}.Penalty())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown vector type", "vector:\n  type: pinecone\n"},
		{"unknown embedder", "embedder:\n  type: word2vec\n"},
		{"qdrant without section", "vector:\n  type: qdrant\n"},
		{"penalty out of range", "analysis:\n  quality_penalty: 150\n"},
		{"negative penalty", "analysis:\n  quality_penalty: -5\n"},
		{"malformed yaml", "data_dir: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: reports\nquestions:\n  - Why?\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, []string{"Why?"}, cfg.Questions)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnvForConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EA_DOTENV=from-file\n"), 0o644))
	t.Setenv("EA_DOTENV", "from-env")

	require.NoError(t, LoadDotEnvForConfig(filepath.Join(dir, "emissions.yaml")))
	assert.Equal(t, "from-file", os.Getenv("EA_DOTENV"))
}

func TestRequireAPIKey(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)

	cfg.LLM.APIKey = "sk"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EA_A", "alpha")
	assert.Equal(t, "alpha-x", expandEnv("${EA_A}-x"))
	assert.Equal(t, "alpha", expandEnv("$EA_A"))
	assert.Equal(t, "fallback", expandEnv("${EA_UNSET_VAR:-fallback}"))
	assert.Equal(t, "plain", expandEnv("plain"))
}
