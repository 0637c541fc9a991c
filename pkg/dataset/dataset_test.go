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

package dataset

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const scope1CSV = `CO2e_Tonnes,Facility
10,A
30,B
5,A
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(scope1CSV), "scope1")
	require.NoError(t, err)

	assert.Equal(t, "scope1", tbl.Name)
	assert.Equal(t, []string{"CO2e_Tonnes", "Facility"}, tbl.Columns)
	assert.Equal(t, 3, tbl.Len())

	values, valid, err := tbl.Float(ColumnEmissions)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 5}, values)
	assert.Equal(t, []bool{true, true, true}, valid)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty")
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"), "wide")
	assert.Error(t, err)
}

func TestTable_Float(t *testing.T) {
	tbl := NewTable("t", []string{"CO2e_Tonnes", "Note"}, [][]string{
		{"1.5", "x"},
		{"NaN", "y"},
		{"", ""},
	})

	values, valid, err := tbl.Float(ColumnEmissions)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 0, 0}, values)
	assert.Equal(t, []bool{true, false, false}, valid)

	_, _, err = tbl.Float("Missing")
	assert.ErrorIs(t, err, ErrColumnMissing)

	_, _, err = tbl.Float("Note")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestTable_QualityCounts(t *testing.T) {
	tbl := NewTable("t", []string{"a", "b"}, [][]string{
		{"1", "x"},
		{"1", "x"},
		{"2", "NA"},
		{"2"},
	})

	assert.Equal(t, 2, tbl.NullCount())
	assert.Equal(t, 2, tbl.DuplicateCount())
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Put(NewTable("scope2", []string{"a"}, nil))
	s.Put(NewTable("scope1", []string{"a"}, nil))
	s.Put(NewTable("scope1", []string{"a"}, [][]string{{"1"}}))

	assert.Equal(t, []string{"scope1", "scope2"}, s.Names())
	tbl, ok := s.Get("scope1")
	require.True(t, ok)
	assert.Equal(t, 1, tbl.Len())
	assert.False(t, s.Has("scope3"))
}

func TestLoader_Load(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/scope1.csv", []byte(scope1CSV), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/scope3.csv", []byte("a,b\n1,2,3\n"), 0o644))

	store := NewStore()
	report, err := NewLoader(fs, store).Load("/data")
	require.NoError(t, err)

	assert.Equal(t, "/data", report.Dir)
	require.Len(t, report.Files, 3)
	assert.Equal(t, "scope1.csv: 3 rows", report.Files[0].String())
	assert.Equal(t, "scope2.csv: File not found", report.Files[1].String())
	assert.Contains(t, report.Files[2].String(), "scope3.csv: Error loading - ")
	assert.True(t, strings.HasPrefix(report.String(), "Loaded emissions data from /data: scope1.csv: 3 rows; scope2.csv: File not found; "))

	assert.Equal(t, []string{"scope1"}, store.Names())
}

func TestLoader_SpreadsheetFallback(t *testing.T) {
	book := excelize.NewFile()
	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]any{"CO2e_Tonnes", "Category"}))
	require.NoError(t, book.SetSheetRow("Sheet1", "A2", &[]any{12.5, "Travel"}))
	require.NoError(t, book.SetSheetRow("Sheet1", "A3", &[]any{7, "Goods"}))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/scope3.xlsx", buf.Bytes(), 0o644))

	store := NewStore()
	report, err := NewLoader(fs, store).Load("/data")
	require.NoError(t, err)
	assert.Equal(t, "scope3.csv: 2 rows", report.Files[2].String())

	tbl, ok := store.Get("scope3")
	require.True(t, ok)
	values, _, err := tbl.Float(ColumnEmissions)
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5, 7}, values)
}
