package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGoalPrompt(t *testing.T) {
	p := BuildGoalPrompt(GoalContext{
		Title:            " Run a marathon ",
		CurrentProgress:  40,
		DaysElapsed:      20,
		DaysRemaining:    10,
		TotalDays:        30,
		LinkedTasks:      4,
		CompletedTasks:   2,
		LocalProbability: 26.5,
		PaceScore:        20,
		RiskFactors:      []string{"Low or no habit progress supporting this goal"},
	})

	assert.Contains(t, p, "goal_title: Run a marathon\n")
	assert.NotContains(t, p, "goal_category")
	assert.Contains(t, p, "current_progress: 40\n")
	assert.Contains(t, p, "local_probability: 26.5\n")
	assert.Contains(t, p, "pace=20 ")
	assert.Contains(t, p, "- Low or no habit progress supporting this goal\n")
}

func TestEstimateGoal(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"probability": 131.26, "insights": ["Finish the two high priority tasks", " ", "a", "b", "c"]}`,
				},
			}},
		})
	}))
	defer srv.Close()

	c := New("sk-test", "gpt-4o-mini", srv.URL+"/")
	est, err := c.EstimateGoal(context.Background(), GoalContext{Title: "Ship v1"})

	require.NoError(t, err)
	assert.Equal(t, 100.0, est.Probability)
	assert.Equal(t, []string{"Finish the two high priority tasks", "a", "b"}, est.Insights)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "goal_title: Ship v1")
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestEstimateGoal_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	_, err := New("sk-test", "m", srv.URL).EstimateGoal(context.Background(), GoalContext{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestEstimateGoal_NotConfigured(t *testing.T) {
	_, err := New("", "m", "http://unused").EstimateGoal(context.Background(), GoalContext{})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseEstimate_InvalidContent(t *testing.T) {
	_, err := parseEstimate("not json")
	assert.Error(t, err)

	est, err := parseEstimate(`{"probability": 42.04}`)
	require.NoError(t, err)
	assert.Equal(t, 42.0, est.Probability)
	assert.Empty(t, est.Insights)
}
