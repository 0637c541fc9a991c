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

// Package emissions computes summaries, hotspots, quality scores and
// comparisons over loaded emissions datasets.
package emissions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kadirpekel/emissions-agent/pkg/dataset"
)

// Analysis kinds.
const (
	KindSummary  = "summary"
	KindHotspots = "hotspots"
	KindQuality  = "quality"
)

// Kinds lists the supported analysis kinds.
var Kinds = []string{KindSummary, KindHotspots, KindQuality}

// ScopeAll selects every dataset whose name starts with "scope".
const ScopeAll = "all"

var (
	// ErrUnknownKind is returned for an unsupported analysis kind.
	ErrUnknownKind = errors.New("unsupported analysis type")

	// ErrUnknownScope is returned when a requested dataset is not loaded.
	ErrUnknownScope = errors.New("dataframe not found")
)

// ScopeError reports a missing dataset along with the loaded alternatives.
type ScopeError struct {
	Names     []string
	Available []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: %s (available: %s)", ErrUnknownScope, strings.Join(e.Names, ", "), strings.Join(e.Available, ", "))
}

func (e *ScopeError) Unwrap() error { return ErrUnknownScope }

// Analyzer runs analyses with configurable thresholds.
type Analyzer struct {
	// HotspotLimit is the number of groups returned by a hotspot analysis.
	HotspotLimit int
	// QualityPenalty is subtracted from 100 per detected issue type.
	QualityPenalty int
}

// NewAnalyzer returns an analyzer with the standard thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{HotspotLimit: 3, QualityPenalty: 20}
}

// Summary aggregates the emissions column of one dataset.
type Summary struct {
	TotalEmissions   Number  `json:"total_emissions"`
	AverageEmissions *Number `json:"average_emissions"`
	MaxEmissions     *Number `json:"max_emissions"`
	Records          int     `json:"records"`
}

// Group is one hotspot entry.
type Group struct {
	Key   string
	Total float64
}

// Groups is an ordered hotspot list rendered as a JSON object.
type Groups []Group

// MarshalJSON keeps the descending order in the rendered object.
func (g Groups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(Number(e.Total))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Hotspots is the result of a hotspot analysis.
type Hotspots struct {
	Facility Groups `json:"facility_hotspots,omitempty"`
	Category Groups `json:"category_hotspots,omitempty"`
}

// Quality is the result of a data quality assessment.
type Quality struct {
	TotalRows     int      `json:"total_rows"`
	MissingValues int      `json:"missing_values"`
	DuplicateRows int      `json:"duplicate_rows"`
	QualityScore  int      `json:"quality_score"`
	Issues        []string `json:"issues"`
}

// Failure is reported in place of a dataset result when that dataset cannot
// be analyzed.
type Failure struct {
	Error string `json:"error"`
}

// Results maps dataset names to their analysis result.
type Results map[string]any

// Analyze runs one analysis kind over a dataset, or over every scope
// dataset when scope is ScopeAll.
func (a *Analyzer) Analyze(store *dataset.Store, scope, kind string) (Results, error) {
	var fn func(*dataset.Table) (any, error)
	switch kind {
	case KindSummary:
		fn = func(t *dataset.Table) (any, error) { return a.Summary(t) }
	case KindHotspots:
		fn = func(t *dataset.Table) (any, error) { return a.Hotspots(t) }
	case KindQuality:
		fn = func(t *dataset.Table) (any, error) { return a.Quality(t), nil }
	default:
		return nil, fmt.Errorf("%w %q, use: %s", ErrUnknownKind, kind, strings.Join(Kinds, ", "))
	}

	var tables []*dataset.Table
	if scope == ScopeAll {
		for _, name := range store.Names() {
			if strings.HasPrefix(name, "scope") {
				t, _ := store.Get(name)
				tables = append(tables, t)
			}
		}
	} else {
		t, ok := store.Get(scope)
		if !ok {
			return nil, &ScopeError{Names: []string{scope}, Available: store.Names()}
		}
		tables = append(tables, t)
	}

	results := make(Results, len(tables))
	for _, t := range tables {
		res, err := fn(t)
		if err != nil {
			results[t.Name] = Failure{Error: failureMessage(err)}
			continue
		}
		results[t.Name] = res
	}
	return results, nil
}

// Summary returns total, mean and max of the emissions column.
func (a *Analyzer) Summary(t *dataset.Table) (*Summary, error) {
	values, valid, err := t.Float(dataset.ColumnEmissions)
	if err != nil {
		return nil, err
	}

	s := &Summary{Records: t.Len()}
	n := 0
	total, maxv := 0.0, math.Inf(-1)
	for i, v := range values {
		if !valid[i] {
			continue
		}
		total += v
		maxv = math.Max(maxv, v)
		n++
	}
	s.TotalEmissions = Number(total)
	if n > 0 {
		avg, hi := Number(total/float64(n)), Number(maxv)
		s.AverageEmissions = &avg
		s.MaxEmissions = &hi
	}
	return s, nil
}

// Hotspots sums emissions per facility, or per category when there is no
// facility column, and returns the largest groups.
func (a *Analyzer) Hotspots(t *dataset.Table) (*Hotspots, error) {
	values, valid, err := t.Float(dataset.ColumnEmissions)
	if err != nil {
		return nil, err
	}

	column := dataset.ColumnFacility
	if !t.HasColumn(column) {
		column = dataset.ColumnCategory
	}
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, errNoGrouping
	}

	sums := make(map[string]float64)
	for i, row := range t.Rows {
		key := row[idx]
		if key.Null {
			continue
		}
		if valid[i] {
			sums[key.Raw] += values[i]
		} else if _, ok := sums[key.Raw]; !ok {
			sums[key.Raw] = 0
		}
	}

	groups := make(Groups, 0, len(sums))
	for k, v := range sums {
		groups = append(groups, Group{Key: k, Total: v})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Total != groups[j].Total {
			return groups[i].Total > groups[j].Total
		}
		return groups[i].Key < groups[j].Key
	})
	if limit := a.HotspotLimit; limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	if column == dataset.ColumnFacility {
		return &Hotspots{Facility: groups}, nil
	}
	return &Hotspots{Category: groups}, nil
}

// Quality counts missing values and duplicate rows and scores the dataset.
func (a *Analyzer) Quality(t *dataset.Table) *Quality {
	q := &Quality{
		TotalRows:     t.Len(),
		MissingValues: t.NullCount(),
		DuplicateRows: t.DuplicateCount(),
		Issues:        []string{},
	}
	if q.MissingValues > 0 {
		q.Issues = append(q.Issues, "Missing values")
	}
	if q.DuplicateRows > 0 {
		q.Issues = append(q.Issues, "Duplicate rows")
	}
	q.QualityScore = max(0, 100-a.QualityPenalty*len(q.Issues))
	return q
}

var errNoGrouping = errors.New("no grouping column")

func failureMessage(err error) string {
	switch {
	case errors.Is(err, dataset.ErrColumnMissing):
		return "No " + dataset.ColumnEmissions + " column"
	case errors.Is(err, errNoGrouping):
		return "No Facility or Category column for hotspot analysis"
	default:
		return err.Error()
	}
}
