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

	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/tool/functiontool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

// CollectionsArgs defines the parameters for create_vector_collections.
type CollectionsArgs struct {
	ForceRecreate bool `json:"force_recreate,omitempty" jsonschema:"description=Whether to recreate existing collections,default=false"`
}

// NewCreateVectorCollections creates the create_vector_collections tool.
func NewCreateVectorCollections(cfg *Config) (tool.Tool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "create_vector_collections",
			Description: "Create specialized vector collections from loaded data for efficient querying",
			Action:      "creating vector collections",
		},
		func(ctx context.Context, args CollectionsArgs) (vector.BuildReport, error) {
			if cfg.Index == nil {
				return nil, tool.NewError(tool.KindConfigMissing, "no vector index configured")
			}
			report, err := vector.BuildCollections(ctx, cfg.Index, cfg.Documents, args.ForceRecreate)
			if err != nil {
				return nil, tool.Wrap(tool.KindBackend, err)
			}
			return report, nil
		},
	)
}
