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

// Package datatool provides the tools that load, analyze and index the
// emissions datasets and the reference documents.
package datatool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/kadirpekel/emissions-agent/pkg/dataset"
	"github.com/kadirpekel/emissions-agent/pkg/emissions"
	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

// Config carries the state shared by the data tools.
type Config struct {
	Fs        afero.Fs
	Datasets  *dataset.Store
	Documents *knowledge.Store
	Index     vector.Index
	Analyzer  *emissions.Analyzer

	// DataDir is used when a call does not name a directory.
	DataDir string

	// ChunkSize and Extractor tune document loading. Zero values keep the
	// knowledge loader defaults.
	ChunkSize int
	Extractor knowledge.PageExtractor
}

func (c *Config) dataDir(arg string) string {
	if strings.TrimSpace(arg) != "" {
		return arg
	}
	if c.DataDir != "" {
		return c.DataDir
	}
	return "./data"
}

// All creates every data tool, in catalog order.
func All(cfg *Config) ([]tool.Tool, error) {
	if cfg == nil || cfg.Datasets == nil || cfg.Documents == nil {
		return nil, errors.New("datatool: dataset and document stores are required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = emissions.NewAnalyzer()
	}

	constructors := []func(*Config) (tool.Tool, error){
		NewLoadEmissionsData,
		NewLoadKnowledgeBase,
		NewAnalyzeEmissions,
		NewCompareEmissions,
		NewGetDataInfo,
		NewCreateVectorCollections,
	}
	tools := make([]tool.Tool, 0, len(constructors))
	for _, newTool := range constructors {
		t, err := newTool(cfg)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// classify maps domain errors to tool error kinds.
func classify(err error) error {
	var scopeErr *emissions.ScopeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &scopeErr):
		return &tool.Error{
			Kind:         tool.KindNotFound,
			Message:      fmt.Sprintf("dataframe %s not found", quoteAll(scopeErr.Names)),
			Alternatives: scopeErr.Available,
			Err:          err,
		}
	case errors.Is(err, dataset.ErrColumnMissing), errors.Is(err, dataset.ErrNotNumeric):
		return &tool.Error{Kind: tool.KindSchemaMismatch, Err: err}
	case errors.Is(err, emissions.ErrUnknownKind), errors.Is(err, emissions.ErrUnknownInfo):
		return &tool.Error{Kind: tool.KindInvalidInput, Err: err}
	case errors.Is(err, afero.ErrFileNotFound):
		return &tool.Error{Kind: tool.KindNotFound, Err: err}
	}
	return tool.Wrap(tool.KindBackend, err)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, " and ")
}
