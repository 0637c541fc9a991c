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

// Package config defines the emissions agent configuration.
//
// Configuration is read from a YAML file (see LoadFile) or built from
// defaults when no file is present. Every section has SetDefaults and is
// checked by Validate before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "emissions.yaml"

// APIKeyEnvVar is the credential every LLM-backed command requires.
const APIKeyEnvVar = "OPENAI_API_KEY"

// ErrMissingAPIKey reports an absent LLM credential.
var ErrMissingAPIKey = errors.New(APIKeyEnvVar + " not found in environment variables")

// DefaultQuestions are the standard business questions answered by `run` and `questions`.
var DefaultQuestions = []string{
	"Should employee business travel be classified as Scope 1 or Scope 3? Explain the reasoning and describe how I can calculate my business travel emissions?",
	"Are my scope 2 emissions calculation valid according to the Greenhouse Gas Protocol?",
	"How do my scope 1 & 2 emissions compare with other companies in my industry, and what insights can I derive from this comparison?",
	"What is our highest emitting Scope 3 category and what specific activities contribute to it?",
	"Which suppliers should I prioritise to engage for emissions reduction efforts?",
	"Generate a summary report of our total emissions by scope with key insights",
}

// Config is the root configuration.
type Config struct {
	DataDir    string `yaml:"data_dir" validate:"required"`
	OutputDir  string `yaml:"output_dir" validate:"required"`
	ReportFile string `yaml:"report_file" validate:"required"`

	LLM           LLMConfig           `yaml:"llm"`
	Embedder      EmbedderConfig      `yaml:"embedder"`
	Vector        VectorConfig        `yaml:"vector"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Crew          CrewConfig          `yaml:"crew"`
	Observability ObservabilityConfig `yaml:"observability"`

	Questions []string `yaml:"questions" validate:"dive,required"`
}

// LLMConfig configures the chat model used by every agent.
type LLMConfig struct {
	Provider    string   `yaml:"provider" validate:"oneof=openai"`
	Model       string   `yaml:"model" validate:"required"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Temperature *float32 `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

// EmbedderConfig selects how text is turned into vectors.
type EmbedderConfig struct {
	// Type is "openai" (remote embeddings) or "hash" (local feature hashing).
	Type      string `yaml:"type" validate:"oneof=openai hash"`
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	Dimension int    `yaml:"dimension,omitempty" validate:"gte=0"`
}

// VectorConfig selects the vector database backend.
type VectorConfig struct {
	Type    string        `yaml:"type" validate:"oneof=chromem qdrant"`
	Chromem ChromemConfig `yaml:"chromem"`
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
}

// ChromemConfig configures the embedded chromem-go database.
type ChromemConfig struct {
	// PersistPath is the directory holding the database. Empty keeps it in memory.
	PersistPath string `yaml:"persist_path"`
	Compress    bool   `yaml:"compress,omitempty"`
}

// QdrantConfig configures a remote Qdrant server.
type QdrantConfig struct {
	Host   string `yaml:"host" validate:"required"`
	Port   int    `yaml:"port" validate:"gte=0,lte=65535"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// AnalysisConfig holds the tunable constants of the data tools.
type AnalysisConfig struct {
	HotspotLimit   int `yaml:"hotspot_limit" validate:"gte=1"`
	// QualityPenalty is nil until defaulted so that an explicit 0 is kept.
	QualityPenalty *int `yaml:"quality_penalty" validate:"omitempty,gte=0,lte=100"`
	ChunkSize      int `yaml:"chunk_size" validate:"gte=1"`
}

// CrewConfig configures agent orchestration.
type CrewConfig struct {
	MaxSteps      int    `yaml:"max_steps" validate:"gte=1"`
	AgentsFile    string `yaml:"agents_file,omitempty"`
	TasksFile     string `yaml:"tasks_file,omitempty"`
	KnowledgeFile string `yaml:"knowledge_file,omitempty"`
	ReplayDB      string `yaml:"replay_db" validate:"required"`
}

// ObservabilityConfig enables metrics and trace output files.
type ObservabilityConfig struct {
	MetricsFile string `yaml:"metrics_file,omitempty"`
	TraceFile   string `yaml:"trace_file,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	if c.ReportFile == "" {
		c.ReportFile = "emissions_report.md"
	}
	if len(c.Questions) == 0 {
		c.Questions = append([]string(nil), DefaultQuestions...)
	}
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults(c.LLM)
	c.Vector.SetDefaults()
	c.Analysis.SetDefaults()
	c.Crew.SetDefaults()
}

// SetDefaults fills unset LLM fields.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(APIKeyEnvVar)
	}
}

// SetDefaults fills unset embedder fields, reusing the LLM credentials.
func (c *EmbedderConfig) SetDefaults(llm LLMConfig) {
	if c.Type == "" {
		c.Type = "openai"
	}
	switch c.Type {
	case "openai":
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
		if c.APIKey == "" {
			c.APIKey = llm.APIKey
		}
		if c.BaseURL == "" {
			c.BaseURL = llm.BaseURL
		}
		if c.Dimension == 0 {
			c.Dimension = 1536
		}
	case "hash":
		if c.Dimension == 0 {
			c.Dimension = 512
		}
	}
}

// SetDefaults fills unset vector fields.
func (c *VectorConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "chromem"
	}
	if c.Type == "chromem" && c.Chromem.PersistPath == "" {
		c.Chromem.PersistPath = "./chroma_db"
	}
	if c.Qdrant != nil && c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
}

// DefaultQualityPenalty is subtracted from the quality score per issue type.
const DefaultQualityPenalty = 20

// Penalty returns the configured quality penalty, or the default when unset.
func (c AnalysisConfig) Penalty() int {
	if c.QualityPenalty == nil {
		return DefaultQualityPenalty
	}
	return *c.QualityPenalty
}

// SetDefaults fills unset analysis constants.
func (c *AnalysisConfig) SetDefaults() {
	if c.HotspotLimit == 0 {
		c.HotspotLimit = 3
	}
	if c.QualityPenalty == nil {
		penalty := DefaultQualityPenalty
		c.QualityPenalty = &penalty
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
}

// SetDefaults fills unset crew fields.
func (c *CrewConfig) SetDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = 25
	}
	if c.KnowledgeFile == "" {
		c.KnowledgeFile = "user_preference.txt"
	}
	if c.ReplayDB == "" {
		c.ReplayDB = ".emissions/task_outputs.db"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Vector.Type == "qdrant" && c.Vector.Qdrant == nil {
		return fmt.Errorf("invalid configuration: vector.qdrant is required when vector.type is qdrant")
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when no LLM credential is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
