package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/goals"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const snapshotJSON = `{
  "goals": [
    {"id": "g1", "title": "Get fit", "category": "Health", "current_progress": 40,
     "target_date": "2026-05-30T18:00:00Z", "created_at": "2026-04-30T18:00:00Z"},
    {"id": "g2", "title": "Ship book", "current_progress": 100},
    {"id": "g3", "title": "Learn Go", "target_date": "2026-07-01T00:00:00Z"}
  ],
  "tasks": [
    {"id": "t1", "title": "Run", "status": "completed", "priority": "medium", "category": "health",
     "completed_at": "2026-05-19T18:00:00Z", "created_at": "2026-05-01T00:00:00Z"},
    {"id": "t2", "title": "Stretch", "status": "pending", "priority": "high", "category": "Health",
     "created_at": "2026-05-01T00:00:00Z"}
  ],
  "events": [
    {"id": "e1", "type": "task_event", "subtype": "completed", "timestamp": "2026-05-19T18:00:00Z",
     "metrics": {"delay": 5}}
  ],
  "focus_sessions": [
    {"id": "s1", "start_time": "2026-05-19T09:00:00Z", "end_time": "2026-05-19T10:00:00Z",
     "duration": 60, "quality": 8, "interruptions": 2}
  ]
}`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := run(t, "", "analyze", "--file", writeSnapshot(t), "--now", "2026-05-20T18:00:00Z", "--max", "1")
	require.NoError(t, err)

	var resp struct {
		TotalGoals   int              `json:"total_goals"`
		IsMaxReached bool             `json:"is_max_reached"`
		Analyses     []goals.Analysis `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.TotalGoals)
	assert.True(t, resp.IsMaxReached)
	require.Len(t, resp.Analyses, 1)

	a := resp.Analyses[0]
	assert.Equal(t, "g1", a.GoalID)
	assert.Equal(t, goals.SourceLocal, a.Probability.Source)
	assert.Len(t, a.Breakdown.Tasks, 2)
	assert.Equal(t, 1, a.Breakdown.CompletedTasks)
}

func TestMetricsCommandFromStdin(t *testing.T) {
	out, err := run(t, snapshotJSON, "metrics", "--file", "-", "--now", "2026-05-20T18:00:00Z")
	require.NoError(t, err)

	var m analytics.UserMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 80.0, m.FocusScore)
	assert.Equal(t, 100.0, m.PlanningAccuracy)
	assert.Equal(t, 1, m.TasksCompleted)
	assert.Equal(t, 1, m.FocusSessions)
}

func TestCommandErrors(t *testing.T) {
	path := writeSnapshot(t)

	_, err := run(t, "", "analyze")
	assert.Error(t, err)

	_, err = run(t, "", "metrics", "--file", path, "--now", "yesterday")
	assert.ErrorContains(t, err, "invalid --now")

	_, err = run(t, "", "metrics", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "open snapshot")

	_, err = run(t, "{", "metrics", "--file", "-")
	assert.ErrorContains(t, err, "decode snapshot")
}
