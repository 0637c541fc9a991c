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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteTaskStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, _, err := store.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNoRuns)

	older := Run{ID: "run-1", Crew: NameSingleQuestion, Inputs: Inputs{"question": "q1"}, CreatedAt: time.Unix(100, 0)}
	newer := Run{ID: "run-2", Crew: NameComprehensive, Inputs: Inputs{"questions": []string{"a", "b"}}, CreatedAt: time.Unix(200, 0)}
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	for i, task := range []string{TaskDataIngestion, TaskAnalysis} {
		require.NoError(t, store.SaveTaskOutput(ctx, TaskOutput{
			TaskID: "t" + string(rune('a'+i)), RunID: "run-2", Index: i, Task: task, Agent: "agent", Raw: "out", CreatedAt: time.Unix(300, 0),
		}))
	}
	// Replacing position 1 drops the previous output at that position.
	require.NoError(t, store.SaveTaskOutput(ctx, TaskOutput{
		TaskID: "tc", RunID: "run-2", Index: 1, Task: TaskAnalysis, Agent: "agent", Raw: "rerun", CreatedAt: time.Unix(400, 0),
	}))

	run, outputs, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.ID)
	assert.Equal(t, NameComprehensive, run.Crew)
	assert.Equal(t, []any{"a", "b"}, run.Inputs["questions"])
	require.Len(t, outputs, 2)
	assert.Equal(t, "tc", outputs[1].TaskID)
	assert.Equal(t, "rerun", outputs[1].Raw)
	assert.True(t, outputs[1].CreatedAt.Equal(time.Unix(400, 0)))

	run, _, err = store.FindTask(ctx, "ta")
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.ID)

	_, _, err = store.FindTask(ctx, "tb")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSQLiteTaskStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/tasks.db"

	store, err := OpenSQLiteTaskStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, Run{ID: "r", Crew: NameComprehensive, CreatedAt: time.Now()}))
	require.NoError(t, store.Close())

	store, err = OpenSQLiteTaskStore(path)
	require.NoError(t, err)
	defer store.Close()
	run, outputs, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r", run.ID)
	assert.Empty(t, outputs)
	assert.Equal(t, path, store.Path())
}
