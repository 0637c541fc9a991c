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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies tool failures.
type Kind string

const (
	// KindNotFound: a dataset, collection or file is absent.
	KindNotFound Kind = "not_found"
	// KindSchemaMismatch: an expected column is absent or malformed.
	KindSchemaMismatch Kind = "schema_mismatch"
	// KindPartialIO: some files of a batch failed.
	KindPartialIO Kind = "partial_io"
	// KindBackend: the vector database or filesystem failed.
	KindBackend Kind = "backend"
	// KindConfigMissing: a required setting or credential is absent.
	KindConfigMissing Kind = "config_missing"
	// KindInvalidInput: arguments are malformed or out of range.
	KindInvalidInput Kind = "invalid_input"
)

// Error is a typed tool failure.
type Error struct {
	Kind    Kind
	Tool    string
	Message string
	// Alternatives lists valid values when the input named something absent.
	Alternatives []string
	Err          error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Alternatives) > 0 {
		msg = fmt.Sprintf("%s. Available: %s", msg, formatList(e.Alternatives))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an Error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err with kind. An err that is already an *Error is
// returned unchanged.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindBackend for unclassified errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindBackend
}

// Render converts a tool outcome to the string handed to the model.
// Errors become "Error <action>: <message>"; strings pass through; any
// other result is rendered as indented JSON.
func Render(action string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf("Error %s: %s", action, err.Error())
	}
	switch r := result.(type) {
	case string:
		return r
	case fmt.Stringer:
		return r.String()
	case nil:
		return ""
	}
	data, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		return fmt.Sprintf("Error %s: %s", action, merr.Error())
	}
	return string(data)
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
