package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const maxInsights = 3

var ErrNotConfigured = errors.New("openai api key is not configured")

type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func New(apiKey, model, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GoalEstimate is the model's probability and insights for one goal.
type GoalEstimate struct {
	Probability float64  `json:"probability"`
	Insights    []string `json:"insights"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EstimateGoal asks the chat completions endpoint for a goal probability.
func (c *OpenAIClient) EstimateGoal(ctx context.Context, g GoalContext) (GoalEstimate, error) {
	if c == nil || c.APIKey == "" {
		return GoalEstimate{}, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: goalEstimateSystemPrompt},
			{Role: "user", Content: BuildGoalPrompt(g)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return GoalEstimate{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return GoalEstimate{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return GoalEstimate{}, fmt.Errorf("call openai: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return GoalEstimate{}, fmt.Errorf("read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return GoalEstimate{}, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		msg := http.StatusText(res.StatusCode)
		if cr.Error != nil && cr.Error.Message != "" {
			msg = cr.Error.Message
		}
		return GoalEstimate{}, fmt.Errorf("openai status %d: %s", res.StatusCode, msg)
	}
	if len(cr.Choices) == 0 {
		return GoalEstimate{}, errors.New("assistant did not return a choice")
	}

	return parseEstimate(cr.Choices[0].Message.Content)
}

func parseEstimate(content string) (GoalEstimate, error) {
	var est GoalEstimate
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &est); err != nil {
		return GoalEstimate{}, fmt.Errorf("assistant returned invalid json: %w", err)
	}
	if math.IsNaN(est.Probability) {
		return GoalEstimate{}, errors.New("assistant returned NaN probability")
	}
	est.Probability = math.Round(math.Min(100, math.Max(0, est.Probability))*10) / 10

	insights := make([]string, 0, maxInsights)
	for _, s := range est.Insights {
		if s = strings.TrimSpace(s); s != "" && len(insights) < maxInsights {
			insights = append(insights, s)
		}
	}
	est.Insights = insights
	return est, nil
}
