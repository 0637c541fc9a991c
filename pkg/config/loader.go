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
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes YAML configuration, expanding environment references in
// string values, then applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	expandNode(&node)

	cfg := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := node.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load returns the configuration at path, the default config file when path
// is empty and that file exists, or the built-in defaults otherwise.
func Load(path string) (*Config, error) {
	if path != "" {
		_ = LoadDotEnvForConfig(path)
		return LoadFile(path)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		slog.Debug("Using default config file", "path", DefaultConfigFile)
		return LoadFile(DefaultConfigFile)
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		if v := expandEnv(n.Value); v != n.Value {
			n.Value = v
			// Let plain scalars resolve again so "${PORT:-6334}" decodes as an int.
			if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 {
				n.Tag = ""
			}
		}
		return
	}
	for _, child := range n.Content {
		expandNode(child)
	}
}
