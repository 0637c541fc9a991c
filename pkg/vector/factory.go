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
	"fmt"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
)

// NewIndex creates the backend selected by cfg.
func NewIndex(cfg config.VectorConfig, emb embedder.Embedder) (Index, error) {
	switch cfg.Type {
	case "", "chromem":
		return NewChromemIndex(cfg.Chromem, emb)
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant configuration is required")
		}
		return NewQdrantIndex(*cfg.Qdrant, emb)
	default:
		return nil, fmt.Errorf("unsupported vector type: %s (supported: chromem, qdrant)", cfg.Type)
	}
}
