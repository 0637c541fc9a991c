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

// Package runtime holds the state of one CLI invocation: the loaded
// datasets and documents, the vector index, the report writer and the tool
// registry built over them.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/kadirpekel/emissions-agent/pkg/config"
	"github.com/kadirpekel/emissions-agent/pkg/dataset"
	"github.com/kadirpekel/emissions-agent/pkg/embedder"
	"github.com/kadirpekel/emissions-agent/pkg/emissions"
	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
	"github.com/kadirpekel/emissions-agent/pkg/observability"
	"github.com/kadirpekel/emissions-agent/pkg/report"
	"github.com/kadirpekel/emissions-agent/pkg/tool"
	"github.com/kadirpekel/emissions-agent/pkg/vector"
)

const shutdownTimeout = 5 * time.Second

// Runtime is built once per invocation and passed by reference to
// everything that needs shared state.
type Runtime struct {
	Config        *config.Config
	Fs            afero.Fs
	Datasets      *dataset.Store
	Documents     *knowledge.Store
	Analyzer      *emissions.Analyzer
	Index         vector.Index
	Reports       *report.Writer
	Tools         *tool.Registry
	Observability *observability.Manager
}

type options struct {
	fs        afero.Fs
	index     vector.Index
	embedder  embedder.Embedder
	extractor knowledge.PageExtractor
	now       func() time.Time
	obs       *observability.Manager
}

// Option customizes New.
type Option func(*options)

// WithFs sets the filesystem used for data, documents and reports.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithIndex sets the vector index instead of building one from config.
func WithIndex(idx vector.Index) Option {
	return func(o *options) { o.index = idx }
}

// WithEmbedder sets the embedder used when building the index.
func WithEmbedder(emb embedder.Embedder) Option {
	return func(o *options) { o.embedder = emb }
}

// WithExtractor sets the PDF page extractor.
func WithExtractor(e knowledge.PageExtractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObservability sets the metrics and tracing manager.
func WithObservability(m *observability.Manager) Option {
	return func(o *options) { o.obs = m }
}

// New builds a runtime from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	o := options{fs: afero.NewOsFs(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{
		Config:    cfg,
		Fs:        o.fs,
		Datasets:  dataset.NewStore(),
		Documents: knowledge.NewStore(),
		Analyzer: &emissions.Analyzer{
			HotspotLimit:   cfg.Analysis.HotspotLimit,
			QualityPenalty: cfg.Analysis.Penalty(),
		},
		Reports: report.NewWriter(o.fs, cfg.OutputDir),
	}
	rt.Reports.Now = o.now

	rt.Index = o.index
	if rt.Index == nil {
		emb := o.embedder
		if emb == nil {
			var err error
			if emb, err = embedder.New(ctx, cfg.Embedder); err != nil {
				return nil, fmt.Errorf("failed to create embedder: %w", err)
			}
		}
		idx, err := vector.NewIndex(cfg.Vector, emb)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector index: %w", err)
		}
		rt.Index = idx
	}

	rt.Observability = o.obs
	if rt.Observability == nil {
		obs, err := observability.NewManager(ctx, cfg.Observability)
		if err != nil {
			_ = rt.Index.Close()
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
		rt.Observability = obs
	}

	tools, err := buildTools(rt, o.extractor)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	tracer := rt.Observability.Tracer("github.com/kadirpekel/emissions-agent/pkg/tool")
	rt.Tools = tools.Map(func(t tool.Tool) tool.Tool {
		return tool.Instrument(t, rt.Observability.Metrics(), tracer)
	})

	slog.Debug("Runtime ready", "tools", rt.Tools.Count(), "vector", cfg.Vector.Type, "embedder", cfg.Embedder.Type)
	return rt, nil
}

// Close flushes metrics and traces and releases the vector index.
func (r *Runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if r.Observability != nil {
		if err := r.Observability.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
		}
	}
	if r.Index != nil {
		if err := r.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vector index close: %w", err))
		}
	}
	return errors.Join(errs...)
}
