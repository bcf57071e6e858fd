package goals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"optileno-backend/internal/ai"
	"optileno-backend/internal/analytics"
	"optileno-backend/internal/auth"
	"optileno-backend/internal/observability"
	redisdb "optileno-backend/internal/redis"
)

var clock = time.Now

func logger() *zap.Logger {
	return observability.GetLogger().Named("goals")
}

// Estimator produces a server-side probability for a goal.
type Estimator interface {
	EstimateGoal(ctx context.Context, g ai.GoalContext) (ai.GoalEstimate, error)
}

// GoalHandler serves the goal endpoints.
type GoalHandler struct {
	Goals     Store
	Snapshots SnapshotSource
	Events    analytics.Recorder
	Cache     redisdb.Cache
	CacheTTL  time.Duration
	MaxGoals  int
	AI        Estimator
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Goals.List(r.Context(), uid)
	if err != nil {
		logger().Error("list goals failed", zap.Int("user_id", uid), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Goal{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Title           string     `json:"title"`
		Category        string     `json:"category"`
		TargetDate      *time.Time `json:"target_date"`
		CurrentProgress float64    `json:"current_progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if body.CurrentProgress < 0 || body.CurrentProgress > 100 {
		http.Error(w, "current_progress must be within 0..100", http.StatusBadRequest)
		return
	}

	now := clock().UTC()
	g := Goal{
		ID:              uuid.NewString(),
		Title:           title,
		Category:        strings.TrimSpace(body.Category),
		TargetDate:      body.TargetDate,
		CurrentProgress: body.CurrentProgress,
		CreatedAt:       &now,
	}
	if err := h.Goals.Create(r.Context(), uid, g); err != nil {
		logger().Error("create goal failed", zap.Int("user_id", uid), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	h.record(r, uid, analytics.SubtypeCreated, g.ID, nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(g)
}

func (h *GoalHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		GoalID   string  `json:"goal_id"`
		Progress float64 `json:"current_progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.GoalID == "" {
		http.Error(w, "goal_id required", http.StatusBadRequest)
		return
	}
	if body.Progress < 0 || body.Progress > 100 {
		http.Error(w, "current_progress must be within 0..100", http.StatusBadRequest)
		return
	}

	err := h.Goals.SetProgress(r.Context(), uid, body.GoalID, body.Progress)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "goal not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger().Error("update progress failed", zap.Int("user_id", uid), zap.String("goal_id", body.GoalID), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	subtype := "progress"
	if body.Progress >= 100 {
		subtype = analytics.SubtypeCompleted
	}
	h.record(r, uid, subtype, body.GoalID, map[string]any{"progress": body.Progress})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// AnalysisResponse is the payload of GET /goals/analysis.
type AnalysisResponse struct {
	TotalGoals   int        `json:"total_goals"`
	IsMaxReached bool       `json:"is_max_reached"`
	Analyses     []Analysis `json:"analyses"`
	ComputedAt   time.Time  `json:"computed_at"`
}

// Analysis selects the nearest active goals and analyzes them in
// parallel. Results are cached per user until new activity arrives.
func (h *GoalHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := redisdb.UserKey(uid, redisdb.KeyGoalAnalysis)
	var resp AnalysisResponse
	hit, err := redisdb.GetJSON(r.Context(), h.Cache, key, &resp)
	if err != nil {
		logger().Warn("analysis cache read failed", zap.Int("user_id", uid), zap.Error(err))
	}
	if !hit {
		resp, err = h.analyze(r.Context(), uid, clock().UTC())
		if err != nil {
			logger().Error("goal analysis failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "analysis failed", http.StatusInternalServerError)
			return
		}
		if err := redisdb.SetJSON(r.Context(), h.Cache, key, resp, h.CacheTTL); err != nil {
			logger().Warn("analysis cache write failed", zap.Int("user_id", uid), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *GoalHandler) analyze(ctx context.Context, uid int, now time.Time) (AnalysisResponse, error) {
	all, err := h.Goals.List(ctx, uid)
	if err != nil {
		return AnalysisResponse{}, err
	}
	sel := SelectForAnalysis(all, h.MaxGoals)

	resp := AnalysisResponse{
		TotalGoals:   sel.TotalGoals,
		IsMaxReached: sel.IsMaxReached,
		Analyses:     []Analysis{},
		ComputedAt:   now,
	}
	if len(sel.Selected) == 0 {
		return resp, nil
	}

	snap, err := h.Snapshots.Snapshot(ctx, uid, now)
	if err != nil {
		return AnalysisResponse{}, err
	}
	resp.Analyses, err = AnalyzeAll(ctx, sel.Selected, snap, now)
	if err != nil {
		return AnalysisResponse{}, err
	}
	return resp, nil
}

// AIRefresh asks the estimator for a fresh probability and stores it as
// the goal's server override.
func (h *GoalHandler) AIRefresh(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		GoalID string `json:"goal_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.GoalID == "" {
		http.Error(w, "goal_id required", http.StatusBadRequest)
		return
	}

	g, err := h.Goals.Get(r.Context(), uid, body.GoalID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "goal not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger().Error("load goal failed", zap.Int("user_id", uid), zap.String("goal_id", body.GoalID), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	now := clock().UTC()
	snap, err := h.Snapshots.Snapshot(r.Context(), uid, now)
	if err != nil {
		logger().Error("load snapshot failed", zap.Int("user_id", uid), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	local := g
	local.AIProbability, local.AIInsights = nil, nil
	a := AnalyzeGoal(local, snap.Tasks, snap.Habits, snap.Events, snap.DeepWorkCount, now)

	est, err := h.AI.EstimateGoal(r.Context(), GoalContextFor(local, a))
	if errors.Is(err, ai.ErrNotConfigured) {
		http.Error(w, "ai is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		logger().Warn("ai estimate failed", zap.Int("user_id", uid), zap.String("goal_id", g.ID), zap.Error(err))
		http.Error(w, "ai error", http.StatusBadGateway)
		return
	}

	if err := h.Goals.SetAIEstimate(r.Context(), uid, g.ID, est.Probability, est.Insights); err != nil {
		logger().Error("store ai estimate failed", zap.Int("user_id", uid), zap.String("goal_id", g.ID), zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	g.AIProbability = &est.Probability
	g.AIInsights = est.Insights
	h.invalidate(r.Context(), uid)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"goal":     g,
		"analysis": AnalyzeGoal(g, snap.Tasks, snap.Habits, snap.Events, snap.DeepWorkCount, now),
		"local":    a.Probability,
	})
}

// GoalContextFor flattens a local analysis into the estimator's input.
func GoalContextFor(g Goal, a Analysis) ai.GoalContext {
	c := a.Breakdown.Components
	var streaks float64
	for _, hr := range a.Breakdown.Habits {
		streaks += float64(hr.CurrentStreak)
	}
	avg := 0.0
	if n := len(a.Breakdown.Habits); n > 0 {
		avg = streaks / float64(n)
	}
	return ai.GoalContext{
		Title:              g.Title,
		Category:           g.Category,
		CurrentProgress:    g.CurrentProgress,
		DaysElapsed:        a.Window.ElapsedDays,
		DaysRemaining:      a.Window.DaysRemaining,
		TotalDays:          a.Window.TotalDays,
		LinkedTasks:        len(a.Breakdown.Tasks),
		CompletedTasks:     a.Breakdown.CompletedTasks,
		HabitsLinked:       len(a.Breakdown.Habits),
		AverageHabitStreak: avg,
		DeepWorkMinutes:    a.Breakdown.DeepWorkMinutes,
		DeepWorkTarget:     a.Breakdown.DeepWorkTarget,
		LocalProbability:   a.Probability.Score,
		TaskScore:          c.Task,
		HabitScore:         c.Habit,
		DeepWorkScore:      c.DeepWork,
		PaceScore:          c.Pace,
		MomentumScore:      c.Momentum,
		RiskFactors:        a.RiskFactors,
	}
}

func (h *GoalHandler) record(r *http.Request, uid int, subtype, goalID string, metrics map[string]any) {
	env := analytics.FromRequest(r)
	env.UserID = uid
	_ = analytics.Log(r.Context(), h.Events, env, analytics.Event{
		Type:      analytics.GoalEvent,
		Subtype:   subtype,
		Timestamp: clock().UTC(),
		Metrics:   metrics,
		Metadata:  map[string]any{analytics.KeyGoalID: goalID},
	}, analytics.SourceEventKeyFromRequest(r))
	h.invalidate(r.Context(), uid)
}

func (h *GoalHandler) invalidate(ctx context.Context, uid int) {
	if h.Cache == nil {
		return
	}
	if err := redisdb.InvalidateUser(ctx, h.Cache, uid); err != nil {
		logger().Warn("cache invalidation failed", zap.Int("user_id", uid), zap.Error(err))
	}
}
