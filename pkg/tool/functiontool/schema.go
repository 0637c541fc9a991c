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

package functiontool

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects the argument struct into an object schema.
//
// Supported tags:
//   - json:"name" - Parameter name
//   - jsonschema:"required" - Required parameter
//   - jsonschema:"description=..." - Parameter description
//   - jsonschema:"default=..." - Default applied when the argument is missing
//   - jsonschema:"enum=a,enum=b" - Allowed values
func generateSchema[T any]() (map[string]any, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() == reflect.Struct && typ.Name() == "" {
		return nil, fmt.Errorf("argument type must be a named struct, got %s", typ)
	}

	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var full map[string]any
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, fmt.Errorf("failed to convert schema to map: %w", err)
	}

	props, _ := full["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	// Keep only the object shape; function-calling APIs reject extra keywords.
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if required, ok := full["required"]; ok {
		schema["required"] = required
	}
	return schema, nil
}

// schemaDefaults collects the default value of every property that has one.
func schemaDefaults(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	defaults := make(map[string]any)
	for name, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := prop["default"]; ok {
			defaults[name] = v
		}
	}
	return defaults
}
