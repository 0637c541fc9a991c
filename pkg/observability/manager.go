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

package observability

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/emissions-agent/pkg/config"
)

// Manager owns the metrics registry and tracer provider for one process run.
type Manager struct {
	config         config.ObservabilityConfig
	metrics        *Metrics
	tracerProvider trace.TracerProvider
	traceFile      *os.File
	mu             sync.Mutex
	closed         bool
}

// NewManager creates the metrics registry and a tracer provider. Spans are
// written to cfg.TraceFile when set and dropped otherwise.
func NewManager(ctx context.Context, cfg config.ObservabilityConfig) (*Manager, error) {
	m := &Manager{config: cfg, metrics: NewMetrics()}

	var err error
	if cfg.TraceFile != "" {
		if m.traceFile, err = openTraceFile(cfg.TraceFile); err != nil {
			return nil, err
		}
		m.tracerProvider, err = NewTracerProvider(ctx, m.traceFile, DefaultServiceName)
	} else {
		m.tracerProvider, err = NewTracerProvider(ctx, nil, DefaultServiceName)
	}
	if err != nil {
		if m.traceFile != nil {
			_ = m.traceFile.Close()
		}
		return nil, err
	}
	return m, nil
}

// Noop returns a manager that records metrics in memory and drops spans.
func Noop() *Manager {
	m, _ := NewManager(context.Background(), config.ObservabilityConfig{})
	return m
}

// Metrics returns the tool and task metrics.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Tracer returns a tracer from the manager's provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	return m.tracerProvider.Tracer(name)
}

// Shutdown flushes spans and writes the metrics textfile. Safe to call twice.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, spt.Shutdown(ctx))
	}
	if m.traceFile != nil {
		errs = append(errs, m.traceFile.Close())
	}
	errs = append(errs, m.metrics.WriteTextfile(m.config.MetricsFile))
	return errors.Join(errs...)
}
