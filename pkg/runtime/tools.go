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

package runtime

import (
	"fmt"

	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/datatool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/reporttool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/vectortool"
)

// buildTools creates one instance of every tool over the runtime state.
func buildTools(rt *Runtime, extractor knowledge.PageExtractor) (*tool.Registry, error) {
	data, err := datatool.All(&datatool.Config{
		Fs:        rt.Fs,
		Datasets:  rt.Datasets,
		Documents: rt.Documents,
		Index:     rt.Index,
		Analyzer:  rt.Analyzer,
		DataDir:   rt.Config.DataDir,
		ChunkSize: rt.Config.Analysis.ChunkSize,
		Extractor: extractor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create data tools: %w", err)
	}
	vectors, err := vectortool.All(rt.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector tools: %w", err)
	}
	reporting, err := reporttool.All(rt.Reports)
	if err != nil {
		return nil, fmt.Errorf("failed to create reporting tools: %w", err)
	}

	registry := tool.NewRegistry()
	groups := []struct {
		category tool.Category
		tools    []tool.Tool
	}{
		{tool.CategoryData, data},
		{tool.CategoryVector, vectors},
		{tool.CategoryReporting, reporting},
	}
	for _, g := range groups {
		for _, t := range g.tools {
			if err := registry.Add(g.category, t); err != nil {
				return nil, err
			}
		}
	}
	return registry, nil
}
