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

	"github.com/kadirpekel/emissions-agent/pkg/emissions"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
)

// AnalyzeArgs defines the parameters for analyze_emissions.
type AnalyzeArgs struct {
	Scope        string `json:"scope" jsonschema:"required,description=Scope to analyze (scope1\\, scope2\\, scope3\\, or all)" validate:"required"`
	AnalysisType string `json:"analysis_type" jsonschema:"required,description=Type of analysis (summary\\, hotspots\\, quality)" validate:"required"`
}

// CompareArgs defines the parameters for compare_emissions.
type CompareArgs struct {
	Scope1 string `json:"scope1" jsonschema:"required,description=First scope to compare" validate:"required"`
	Scope2 string `json:"scope2" jsonschema:"required,description=Second scope to compare" validate:"required"`
}

// InfoArgs defines the parameters for get_data_info.
type InfoArgs struct {
	DataType string `json:"data_type,omitempty" jsonschema:"description=Type of data to get info for (dataframes or documents),default=dataframes"`
}

// NewAnalyzeEmissions creates the analyze_emissions tool.
func NewAnalyzeEmissions(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "analyze_emissions",
			Description: "Analyze emissions data for insights, hotspots, and quality assessment",
			Action:      "analyzing emissions",
		},
		func(ctx context.Context, args AnalyzeArgs) (emissions.Results, error) {
			res, err := cfg.Analyzer.Analyze(cfg.Datasets, args.Scope, args.AnalysisType)
			return res, classify(err)
		},
	)
}

// NewCompareEmissions creates the compare_emissions tool.
func NewCompareEmissions(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "compare_emissions",
			Description: "Compare emissions between different scopes",
			Action:      "comparing emissions",
		},
		func(ctx context.Context, args CompareArgs) (*emissions.Comparison, error) {
			c, err := emissions.Compare(cfg.Datasets, args.Scope1, args.Scope2)
			return c, classify(err)
		},
	)
}

// NewGetDataInfo creates the get_data_info tool.
func NewGetDataInfo(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "get_data_info",
			Description: "Get information about loaded data",
			Action:      "getting data info",
		},
		func(ctx context.Context, args InfoArgs) (map[string]any, error) {
			info, err := emissions.Info(cfg.Datasets, cfg.Documents, args.DataType)
			return info, classify(err)
		},
	)
}
