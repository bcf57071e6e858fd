package habits

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
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
	return observability.GetLogger().Named("habits")
}

func GetHabitsHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := store.List(r.Context(), uid)
		if err != nil {
			logger().Error("list habits failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Habit{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}
}

func CreateHabitHandler(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Name      string    `json:"name"`
			Category  string    `json:"category"`
			Frequency Frequency `json:"frequency"`
			GoalLink  string    `json:"goal_link"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if body.Frequency == "" {
			body.Frequency = FrequencyDaily
		}
		if !IsValidFrequency(string(body.Frequency)) {
			http.Error(w, "invalid frequency", http.StatusBadRequest)
			return
		}

		h := Habit{
			ID:        uuid.NewString(),
			Name:      name,
			Category:  strings.TrimSpace(body.Category),
			Frequency: body.Frequency,
			GoalLink:  strings.TrimSpace(body.GoalLink),
		}
		if err := store.Create(r.Context(), uid, h); err != nil {
			logger().Error("create habit failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(h)
	}
}

// CompleteHabitHandler checks a habit off. The optional IANA timezone
// decides what counts as the same day.
func CompleteHabitHandler(store Store, rec analytics.Recorder, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			HabitID  string `json:"habit_id"`
			Timezone string `json:"timezone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.HabitID == "" {
			http.Error(w, "habit_id required", http.StatusBadRequest)
			return
		}
		loc := time.UTC
		if body.Timezone != "" {
			l, err := time.LoadLocation(body.Timezone)
			if err != nil {
				http.Error(w, "invalid timezone", http.StatusBadRequest)
				return
			}
			loc = l
		}

		h, err := store.Get(r.Context(), uid, body.HabitID)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "habit not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger().Error("load habit failed", zap.Int("user_id", uid), zap.String("habit_id", body.HabitID), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		now := clock().In(loc)
		next, res := Complete(h, now)
		if res.Counted {
			if err := store.SaveProgress(r.Context(), uid, next); err != nil {
				logger().Error("save habit failed", zap.Int("user_id", uid), zap.String("habit_id", h.ID), zap.Error(err))
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}

			md := map[string]any{analytics.KeyHabitID: h.ID, "name": h.Name}
			if h.GoalLink != "" {
				md[analytics.KeyGoalID] = h.GoalLink
			}
			env := analytics.FromRequest(r)
			env.UserID = uid
			_ = analytics.Log(r.Context(), rec, env, analytics.Event{
				Type:      analytics.HabitEvent,
				Subtype:   analytics.SubtypeCompleted,
				Timestamp: now.UTC(),
				Metrics: map[string]any{
					analytics.KeyConsistencyScore: res.Consistency,
					"streak":                      res.Streak,
				},
				Metadata: md,
			}, analytics.SourceEventKeyFromRequest(r))

			if cache != nil {
				if err := redisdb.InvalidateUser(r.Context(), cache, uid); err != nil {
					logger().Warn("cache invalidation failed", zap.Int("user_id", uid), zap.Error(err))
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"habit":  next,
			"result": res,
		})
	}
}
