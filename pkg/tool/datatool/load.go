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

	"github.com/kadirpekel/emissions-agent/pkg/dataset"
	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
)

// LoadArgs defines the parameters of both loaders.
type LoadArgs struct {
	DataDirectory string `json:"data_directory,omitempty" jsonschema:"description=Directory containing the data files (defaults to ./data)"`
}

// NewLoadEmissionsData creates the load_emissions_data tool.
func NewLoadEmissionsData(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "load_emissions_data",
			Description: "Load all emissions data files (scope1.csv, scope2.csv, scope3.csv) into memory",
			Action:      "loading data",
		},
		func(ctx context.Context, args LoadArgs) (dataset.LoadReport, error) {
			report, err := dataset.NewLoader(cfg.Fs, cfg.Datasets).Load(cfg.dataDir(args.DataDirectory))
			return report, classify(err)
		},
	)
}

// NewLoadKnowledgeBase creates the load_knowledge_base tool.
func NewLoadKnowledgeBase(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "load_knowledge_base",
			Description: "Load knowledge base documents (PDFs) and prepare them for vector search",
			Action:      "loading knowledge base",
		},
		func(ctx context.Context, args LoadArgs) (knowledge.LoadReport, error) {
			loader := knowledge.NewLoader(cfg.Fs, cfg.Documents)
			if cfg.ChunkSize > 0 {
				loader.ChunkSize = cfg.ChunkSize
			}
			if cfg.Extractor != nil {
				loader.Extractor = cfg.Extractor
			}
			report, err := loader.Load(ctx, cfg.dataDir(args.DataDirectory))
			return report, classify(err)
		},
	)
}
