package analytics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"optileno-backend/internal/observability"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID       int
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// FromRequest extracts event envelope fields from request.
// Backend-trustable fields only.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "ios", "android", "web":
	default:
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	return Envelope{
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
}

func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(ctxUserIDKey)
	if v == nil {
		return 0, false
	}
	uid, ok := v.(int)
	return uid, ok
}

// SourceEventKeyFromRequest returns the client idempotency key, if any.
// A duplicate key makes the insert a no-op.
func SourceEventKeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Recorder appends events to a user's log. Inserted is false when the
// source key was already seen.
type Recorder interface {
	Append(ctx context.Context, env Envelope, e Event, sourceEventKey string) (inserted bool, err error)
}

// Log records one event on behalf of a request. It fills in the id and
// timestamp when missing and never fails the caller's flow: store errors
// are logged and returned for callers that care.
func Log(ctx context.Context, rec Recorder, env Envelope, e Event, sourceEventKey string) error {
	if rec == nil || e.Type == "" {
		return nil
	}
	if env.UserID == 0 {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return nil
		}
		env.UserID = uid
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if _, err := rec.Append(ctx, env, e, sourceEventKey); err != nil {
		observability.GetLogger().Named("analytics").Warn("event not recorded",
			zap.Int("user_id", env.UserID),
			zap.String("type", string(e.Type)),
			zap.String("subtype", e.Subtype),
			zap.Error(err),
		)
		return err
	}
	return nil
}
