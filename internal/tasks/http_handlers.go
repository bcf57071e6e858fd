package tasks

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/auth"
	"optileno-backend/internal/observability"
	redisdb "optileno-backend/internal/redis"
)

var clock = time.Now

func logger() *zap.Logger {
	return observability.GetLogger().Named("tasks")
}

// GetTasksHandler lists the user's tasks, most urgent first.
func GetTasksHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := store.List(r.Context(), uid)
		if err != nil {
			logger().Error("list tasks failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		sort.SliceStable(result, func(i, j int) bool {
			if ci, cj := result[i].IsCompleted(), result[j].IsCompleted(); ci != cj {
				return !ci
			}
			return result[i].Priority.Rank() < result[j].Priority.Rank()
		})
		if result == nil {
			result = []Task{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

type createTaskRequest struct {
	Title    string     `json:"title"`
	Priority Priority   `json:"priority"`
	Category string     `json:"category"`
	Tags     []string   `json:"tags"`
	DueDate  *time.Time `json:"due_date"`
	GoalID   string     `json:"goal_id"`
}

func CreateTaskHandler(store Store, rec analytics.Recorder, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		title := strings.TrimSpace(body.Title)
		if title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if body.Priority == "" {
			body.Priority = PriorityMedium
		}
		if !IsValidPriority(string(body.Priority)) {
			http.Error(w, "invalid priority", http.StatusBadRequest)
			return
		}

		now := clock().UTC()
		t := Task{
			ID:        uuid.NewString(),
			Title:     title,
			Status:    StatusPending,
			Priority:  body.Priority,
			Category:  strings.TrimSpace(body.Category),
			Tags:      cleanTags(body.Tags),
			DueDate:   body.DueDate,
			GoalID:    strings.TrimSpace(body.GoalID),
			CreatedAt: now,
		}
		if err := store.Create(r.Context(), uid, t); err != nil {
			logger().Error("create task failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		env := analytics.FromRequest(r)
		env.UserID = uid
		_ = analytics.Log(r.Context(), rec, env, analytics.Event{
			Type:      analytics.TaskEvent,
			Subtype:   analytics.SubtypeCreated,
			Timestamp: now,
			Metadata:  taskMetadata(t),
		}, analytics.SourceEventKeyFromRequest(r))
		invalidate(r, cache, uid)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(t)
	}
}

// SetTaskStatusHandler moves a task to a new status and records the
// matching task event. Completions carry their delay past the due date.
func SetTaskStatusHandler(store Store, rec analytics.Recorder, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TaskID string `json:"task_id"`
			Status Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TaskID == "" {
			http.Error(w, "task_id required", http.StatusBadRequest)
			return
		}
		if !IsValidStatus(string(body.Status)) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		prev, err := store.Get(r.Context(), uid, body.TaskID)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger().Error("load task failed", zap.Int("user_id", uid), zap.String("task_id", body.TaskID), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		now := clock().UTC()
		next := prev
		next.Status = body.Status
		switch {
		case body.Status != StatusCompleted:
			next.CompletedAt = nil
		case !prev.IsCompleted():
			next.CompletedAt = &now
		}

		if err := store.SetStatus(r.Context(), uid, next.ID, next.Status, next.CompletedAt); err != nil {
			logger().Error("update task failed", zap.Int("user_id", uid), zap.String("task_id", next.ID), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		if prev.Status != next.Status {
			if ev, ok := statusEvent(next, now); ok {
				env := analytics.FromRequest(r)
				env.UserID = uid
				_ = analytics.Log(r.Context(), rec, env, ev, analytics.SourceEventKeyFromRequest(r))
			}
			invalidate(r, cache, uid)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(next)
	}
}

// statusEvent maps a status transition to the event vocabulary read by
// the metrics engine. Moving back to pending records nothing.
func statusEvent(t Task, now time.Time) (analytics.Event, bool) {
	e := analytics.Event{Type: analytics.TaskEvent, Timestamp: now, Metadata: taskMetadata(t)}
	switch t.Status {
	case StatusCompleted:
		e.Subtype = analytics.SubtypeCompleted
		e.Metrics = map[string]any{analytics.KeyDelay: CompletionDelay(t, now)}
	case StatusInProgress:
		e.Subtype = analytics.SubtypeStarted
	case StatusBlocked:
		e.Subtype = analytics.SubtypePaused
	case StatusFailed:
		e.Subtype = analytics.SubtypeAbandoned
	default:
		return analytics.Event{}, false
	}
	return e, true
}

func taskMetadata(t Task) map[string]any {
	md := map[string]any{analytics.KeyTaskID: t.ID, "priority": string(t.Priority)}
	if t.GoalID != "" {
		md[analytics.KeyGoalID] = t.GoalID
	}
	return md
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		if tg = strings.TrimSpace(tg); tg != "" {
			out = append(out, tg)
		}
	}
	return out
}

func invalidate(r *http.Request, cache redisdb.Cache, uid int) {
	if cache == nil {
		return
	}
	if err := redisdb.InvalidateUser(r.Context(), cache, uid); err != nil {
		logger().Warn("cache invalidation failed", zap.Int("user_id", uid), zap.Error(err))
	}
}
