package analytics

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store persists the event log and focus sessions.
type Store interface {
	Recorder
	EventsSince(ctx context.Context, userID int, cutoff time.Time) ([]Event, error)
	FocusSessions(ctx context.Context, userID int, limit int) ([]FocusSession, error)
	SaveFocusSession(ctx context.Context, userID int, s FocusSession) error
}

type PostgresStore struct {
	DB *sql.DB
}

func (s PostgresStore) Append(ctx context.Context, env Envelope, e Event, sourceEventKey string) (bool, error) {
	metrics, err := json.Marshal(nonNil(e.Metrics))
	if err != nil {
		return false, fmt.Errorf("encode metrics: %w", err)
	}
	metadata, err := json.Marshal(nonNil(e.Metadata))
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO analytics_events (
			id, user_id, event_type, subtype, event_time,
			session_id, platform, app_version, device_locale,
			source_event_key,
			metrics, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb)
		ON CONFLICT (source_event_key) DO NOTHING
	`, e.ID, env.UserID, string(e.Type), e.Subtype, e.Timestamp.UTC(),
		nullIfEmpty(env.SessionID), env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale),
		nullIfEmpty(sourceEventKey),
		string(metrics), string(metadata),
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s PostgresStore) EventsSince(ctx context.Context, userID int, cutoff time.Time) ([]Event, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, event_type, subtype, event_time, metrics, metadata
		FROM analytics_events
		WHERE user_id = $1 AND event_time >= $2
		ORDER BY event_time ASC, id ASC
	`, userID, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                 Event
			typ               string
			metrics, metadata []byte
		)
		if err := rows.Scan(&e.ID, &typ, &e.Subtype, &e.Timestamp, &metrics, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = EventType(typ)
		if err := decodePayload(metrics, &e.Metrics); err != nil {
			return nil, fmt.Errorf("event %s metrics: %w", e.ID, err)
		}
		if err := decodePayload(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("event %s metadata: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FocusSessions returns the user's most recent sessions, oldest first.
func (s PostgresStore) FocusSessions(ctx context.Context, userID int, limit int) ([]FocusSession, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, start_time, end_time, duration, quality, interruptions, task_id
		FROM (
			SELECT * FROM focus_sessions
			WHERE user_id = $1
			ORDER BY start_time DESC
			LIMIT $2
		) recent
		ORDER BY start_time ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query focus sessions: %w", err)
	}
	defer rows.Close()

	var out []FocusSession
	for rows.Next() {
		var (
			fs  FocusSession
			end sql.NullTime
		)
		if err := rows.Scan(&fs.ID, &fs.StartTime, &end, &fs.Duration, &fs.Quality, &fs.Interruptions, &fs.TaskID); err != nil {
			return nil, fmt.Errorf("scan focus session: %w", err)
		}
		if end.Valid {
			t := end.Time
			fs.EndTime = &t
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

func (s PostgresStore) SaveFocusSession(ctx context.Context, userID int, fs FocusSession) error {
	var end any
	if fs.EndTime != nil {
		end = fs.EndTime.UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO focus_sessions (id, user_id, start_time, end_time, duration, quality, interruptions, task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			duration = EXCLUDED.duration,
			quality = EXCLUDED.quality,
			interruptions = EXCLUDED.interruptions
	`, fs.ID, userID, fs.StartTime.UTC(), end, fs.Duration, fs.Quality, fs.Interruptions, fs.TaskID)
	if err != nil {
		return fmt.Errorf("save focus session: %w", err)
	}
	return nil
}

func decodePayload(b []byte, dst *map[string]any) error {
	if len(b) == 0 {
		return nil
	}
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	return d.Decode(dst)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
