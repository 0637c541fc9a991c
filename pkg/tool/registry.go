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

package tool

import (
	"fmt"

	"github.com/kadirpekel/emissions-agent/pkg/registry"
)

// Registry holds one instance of every tool, keyed by name, with a category
// per tool.
type Registry struct {
	*registry.BaseRegistry[Tool]
	categories map[Category][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
		categories:   make(map[Category][]string),
	}
}

// Add registers a tool under its name in a category.
func (r *Registry) Add(category Category, t Tool) error {
	if err := r.Register(t.Name(), t); err != nil {
		return fmt.Errorf("failed to register tool: %w", err)
	}
	r.categories[category] = append(r.categories[category], t.Name())
	return nil
}

// ByCategory returns the tools of a category in registration order.
func (r *Registry) ByCategory(category Category) []Tool {
	return r.GetMany(r.categories[category])
}

// Map returns a registry holding fn applied to every tool, with the same
// names, order and categories. Used to wrap all tools with middleware.
func (r *Registry) Map(fn func(Tool) Tool) *Registry {
	category := make(map[string]Category)
	for cat, names := range r.categories {
		for _, name := range names {
			category[name] = cat
		}
	}

	out := NewRegistry()
	for _, t := range r.List() {
		_ = out.Add(category[t.Name()], fn(t))
	}
	return out
}
