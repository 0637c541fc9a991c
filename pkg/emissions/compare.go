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

package emissions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kadirpekel/emissions-agent/pkg/dataset"
	"github.com/kadirpekel/emissions-agent/pkg/knowledge"
)

// Number is a float that renders non-finite values as JSON strings.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// ScopeTotal is one side of a comparison.
type ScopeTotal struct {
	Total   Number `json:"total"`
	Records int    `json:"records"`
}

// Comparison is the result of comparing two datasets.
type Comparison struct {
	First          string
	Second         string
	FirstTotal     ScopeTotal
	SecondTotal    ScopeTotal
	Difference     float64
	PercentageDiff float64
}

// MarshalJSON renders the comparison keyed by dataset name.
func (c *Comparison) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}
	fields := []struct {
		key string
		val any
	}{
		{c.First, c.FirstTotal},
		{c.Second, c.SecondTotal},
		{"difference", Number(c.Difference)},
		{"percentage_diff", Number(c.PercentageDiff)},
	}
	for _, f := range fields {
		if err := write(f.key, f.val); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Compare totals two datasets. The percentage difference is relative to the
// second dataset and is +Inf when its total is zero.
func Compare(store *dataset.Store, first, second string) (*Comparison, error) {
	var missing []string
	a, ok := store.Get(first)
	if !ok {
		missing = append(missing, first)
	}
	b, ok := store.Get(second)
	if !ok {
		missing = append(missing, second)
	}
	if len(missing) > 0 {
		return nil, &ScopeError{Names: missing, Available: store.Names()}
	}

	ta, err := total(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", first, err)
	}
	tb, err := total(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", second, err)
	}

	c := &Comparison{
		First:       first,
		Second:      second,
		FirstTotal:  ScopeTotal{Total: Number(ta), Records: a.Len()},
		SecondTotal: ScopeTotal{Total: Number(tb), Records: b.Len()},
		Difference:  ta - tb,
	}
	if tb != 0 {
		c.PercentageDiff = (ta - tb) / tb * 100
	} else {
		c.PercentageDiff = math.Inf(1)
	}
	return c, nil
}

func total(t *dataset.Table) (float64, error) {
	values, valid, err := t.Float(dataset.ColumnEmissions)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i, v := range values {
		if valid[i] {
			sum += v
		}
	}
	return sum, nil
}

// Info kinds.
const (
	InfoDataframes = "dataframes"
	InfoDocuments  = "documents"
)

// ErrUnknownInfo is returned for an unsupported info kind.
var ErrUnknownInfo = errors.New("invalid data_type")

// TableInfo describes a loaded dataset.
type TableInfo struct {
	Rows        int      `json:"rows"`
	ColumnCount int      `json:"column_count"`
	Columns     []string `json:"columns"`
}

// DocumentInfo describes a loaded document.
type DocumentInfo struct {
	Chunks int `json:"chunks"`
}

// Info describes the loaded datasets or documents.
func Info(store *dataset.Store, docs *knowledge.Store, kind string) (map[string]any, error) {
	info := make(map[string]any)
	switch kind {
	case InfoDataframes:
		for _, name := range store.Names() {
			t, _ := store.Get(name)
			info[name] = TableInfo{Rows: t.Len(), ColumnCount: len(t.Columns), Columns: t.Columns}
		}
	case InfoDocuments:
		for _, name := range docs.Names() {
			info[name] = DocumentInfo{Chunks: len(docs.Get(name))}
		}
	default:
		return nil, fmt.Errorf("%w %q, use: %s", ErrUnknownInfo, kind, strings.Join([]string{InfoDataframes, InfoDocuments}, " or "))
	}
	return info, nil
}
