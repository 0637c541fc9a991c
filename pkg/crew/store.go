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

package crew

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	// ErrNoRuns is returned when the store holds no run.
	ErrNoRuns = errors.New("no crew runs recorded")

	// ErrTaskNotFound is returned for an unknown task id.
	ErrTaskNotFound = errors.New("task not found")
)

// Run is one kickoff of a crew.
type Run struct {
	ID        string
	Crew      string
	Inputs    Inputs
	CreatedAt time.Time
}

// TaskStore records runs and their task outputs.
type TaskStore interface {
	SaveRun(ctx context.Context, run Run) error
	// SaveTaskOutput records an output, replacing any earlier output at the
	// same position of the same run.
	SaveTaskOutput(ctx context.Context, out TaskOutput) error
	// LatestRun returns the most recent run and its outputs in task order.
	LatestRun(ctx context.Context) (*Run, []TaskOutput, error)
	// FindTask returns the run containing the task and all its outputs.
	FindTask(ctx context.Context, taskID string) (*Run, []TaskOutput, error)
	Close() error
}

const taskStoreSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	crew       TEXT NOT NULL,
	inputs     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS task_outputs (
	task_id    TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	task_index INTEGER NOT NULL,
	task       TEXT NOT NULL,
	agent      TEXT NOT NULL,
	raw        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (run_id, task_index)
);
`

// SQLiteTaskStore is a TaskStore in a SQLite file.
type SQLiteTaskStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteTaskStore opens or creates the store at path.
func OpenSQLiteTaskStore(path string) (*SQLiteTaskStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating task store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}
	if _, err := db.Exec(taskStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating task store schema: %w", err)
	}
	return &SQLiteTaskStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteTaskStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}

// SaveRun implements TaskStore.
func (s *SQLiteTaskStore) SaveRun(ctx context.Context, run Run) error {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("encoding run inputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, crew, inputs, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET crew = excluded.crew, inputs = excluded.inputs`,
		run.ID, run.Crew, string(inputs), run.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// SaveTaskOutput implements TaskStore.
func (s *SQLiteTaskStore) SaveTaskOutput(ctx context.Context, out TaskOutput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM task_outputs WHERE run_id = ? AND task_index = ?`, out.RunID, out.Index); err != nil {
		return fmt.Errorf("replacing task output: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_outputs (task_id, run_id, task_index, task, agent, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.TaskID, out.RunID, out.Index, out.Task, out.Agent, out.Raw, out.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("saving task output: %w", err)
	}
	return tx.Commit()
}

// LatestRun implements TaskStore.
func (s *SQLiteTaskStore) LatestRun(ctx context.Context) (*Run, []TaskOutput, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoRuns
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying latest run: %w", err)
	}
	return s.loadRun(ctx, id)
}

// FindTask implements TaskStore.
func (s *SQLiteTaskStore) FindTask(ctx context.Context, taskID string) (*Run, []TaskOutput, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM task_outputs WHERE task_id = ?`, taskID).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying task: %w", err)
	}
	return s.loadRun(ctx, runID)
}

func (s *SQLiteTaskStore) loadRun(ctx context.Context, id string) (*Run, []TaskOutput, error) {
	run := &Run{ID: id}
	var inputs string
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT crew, inputs, created_at FROM runs WHERE id = ?`, id).Scan(&run.Crew, &inputs, &created)
	if err != nil {
		return nil, nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(0, created)
	if err := json.Unmarshal([]byte(inputs), &run.Inputs); err != nil {
		return nil, nil, fmt.Errorf("decoding run inputs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, task_index, task, agent, raw, created_at
		 FROM task_outputs WHERE run_id = ? ORDER BY task_index`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading task outputs: %w", err)
	}
	defer rows.Close()

	var outputs []TaskOutput
	for rows.Next() {
		out := TaskOutput{RunID: id}
		if err := rows.Scan(&out.TaskID, &out.Index, &out.Task, &out.Agent, &out.Raw, &created); err != nil {
			return nil, nil, fmt.Errorf("scanning task output: %w", err)
		}
		out.CreatedAt = time.Unix(0, created)
		outputs = append(outputs, out)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating task outputs: %w", err)
	}
	return run, outputs, nil
}

var _ TaskStore = (*SQLiteTaskStore)(nil)
