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
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanToolCall   = "tool.call"
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// CallRecorder receives one observation per tool invocation.
type CallRecorder interface {
	RecordToolCall(name string, d time.Duration, outcome string)
}

// Instrument wraps t so every call is timed, counted and traced. Either
// recorder or tracer may be nil.
func Instrument(t Tool, recorder CallRecorder, tracer trace.Tracer) Tool {
	return &instrumented{Tool: t, recorder: recorder, tracer: tracer}
}

type instrumented struct {
	Tool
	recorder CallRecorder
	tracer   trace.Tracer
}

func (i *instrumented) Call(ctx context.Context, argsJSON string) string {
	var span trace.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, spanToolCall,
			trace.WithAttributes(attribute.String("tool.name", i.Name())))
		defer span.End()
	}

	start := time.Now()
	result := i.Tool.Call(ctx, argsJSON)
	outcome := outcomeSuccess
	if IsErrorResult(result) {
		outcome = outcomeError
	}

	if i.recorder != nil {
		i.recorder.RecordToolCall(i.Name(), time.Since(start), outcome)
	}
	if span != nil {
		span.SetAttributes(attribute.String("tool.outcome", outcome))
		if outcome == outcomeError {
			span.SetStatus(codes.Error, result)
		}
	}
	return result
}

// IsErrorResult reports whether a rendered result is a failure.
func IsErrorResult(result string) bool {
	return strings.HasPrefix(result, "Error ")
}
