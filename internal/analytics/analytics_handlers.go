package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"optileno-backend/internal/observability"
	redisdb "optileno-backend/internal/redis"
)

// focusHistory bounds how many sessions are loaded for scoring.
const focusHistory = 50

var clock = time.Now

func logger() *zap.Logger {
	return observability.GetLogger().Named("analytics")
}

// LoadMetrics computes the metrics snapshot of one user from storage.
func LoadMetrics(ctx context.Context, store Store, userID int, now time.Time) (UserMetrics, error) {
	events, err := store.EventsSince(ctx, userID, now.Add(-MetricsWindow))
	if err != nil {
		return UserMetrics{}, err
	}
	sessions, err := store.FocusSessions(ctx, userID, focusHistory)
	if err != nil {
		return UserMetrics{}, err
	}
	return ComputeMetrics(events, sessions, now), nil
}

// IngestEventHandler appends one client event. The Idempotency-Key header
// makes retries safe.
func IngestEventHandler(store Recorder, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if !IsValidEventType(string(e.Type)) {
			http.Error(w, "invalid event type", http.StatusBadRequest)
			return
		}
		e.Subtype = strings.TrimSpace(e.Subtype)
		e.ID = uuid.NewString()
		if e.Timestamp.IsZero() {
			e.Timestamp = clock().UTC()
		}

		env := FromRequest(r)
		env.UserID = uid

		inserted, err := store.Append(r.Context(), env, e, SourceEventKeyFromRequest(r))
		if err != nil {
			logger().Error("ingest failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if inserted {
			invalidate(r.Context(), cache, uid)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":        true,
			"id":        e.ID,
			"duplicate": !inserted,
		})
	}
}

func StartFocusHandler(store Store, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TaskID string `json:"task_id"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		sessions, err := store.FocusSessions(r.Context(), uid, focusHistory)
		if err != nil {
			logger().Error("load focus sessions failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		now := clock().UTC()
		fs, err := StartFocusSession(sessions, strings.TrimSpace(body.TaskID), now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err := store.SaveFocusSession(r.Context(), uid, fs); err != nil {
			logger().Error("save focus session failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		env := FromRequest(r)
		env.UserID = uid
		_ = Log(r.Context(), store, env, Event{
			Type:      DeepWorkEvent,
			Subtype:   SubtypeStarted,
			Timestamp: now,
			Metadata:  map[string]any{"sessionId": fs.ID, KeyTaskID: fs.TaskID},
		}, "")
		invalidate(r.Context(), cache, uid)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fs)
	}
}

func StopFocusHandler(store Store, cache redisdb.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Interruptions int `json:"interruptions"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		sessions, err := store.FocusSessions(r.Context(), uid, focusHistory)
		if err != nil {
			logger().Error("load focus sessions failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		now := clock().UTC()
		fs, err := StopFocusSession(sessions, body.Interruptions, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err := store.SaveFocusSession(r.Context(), uid, fs); err != nil {
			logger().Error("save focus session failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		env := FromRequest(r)
		env.UserID = uid
		_ = Log(r.Context(), store, env, Event{
			Type:      DeepWorkEvent,
			Subtype:   SubtypeCompleted,
			Timestamp: now,
			Metrics: map[string]any{
				KeyDuration:     fs.Duration,
				"quality":       fs.Quality,
				"interruptions": fs.Interruptions,
			},
			Metadata: map[string]any{"sessionId": fs.ID, KeyTaskID: fs.TaskID},
		}, "")
		invalidate(r.Context(), cache, uid)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fs)
	}
}

// MetricsHandler serves the user's metrics snapshot, memoized for ttl.
func MetricsHandler(store Store, cache redisdb.Cache, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		key := redisdb.UserKey(uid, redisdb.KeyMetrics)
		var m UserMetrics
		hit, err := redisdb.GetJSON(r.Context(), cache, key, &m)
		if err != nil {
			logger().Warn("metrics cache read failed", zap.Int("user_id", uid), zap.Error(err))
		}
		if !hit {
			m, err = LoadMetrics(r.Context(), store, uid, clock().UTC())
			if err != nil {
				logger().Error("compute metrics failed", zap.Int("user_id", uid), zap.Error(err))
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}
			if err := redisdb.SetJSON(r.Context(), cache, key, m, ttl); err != nil {
				logger().Warn("metrics cache write failed", zap.Int("user_id", uid), zap.Error(err))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	}
}

func invalidate(ctx context.Context, cache redisdb.Cache, uid int) {
	if cache == nil {
		return
	}
	if err := redisdb.InvalidateUser(ctx, cache, uid); err != nil {
		logger().Warn("cache invalidation failed", zap.Int("user_id", uid), zap.Error(err))
	}
}
