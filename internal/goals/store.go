package goals

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/habits"
	"optileno-backend/internal/tasks"
)

type Store interface {
	List(ctx context.Context, userID int) ([]Goal, error)
	Get(ctx context.Context, userID int, id string) (Goal, error)
	Create(ctx context.Context, userID int, g Goal) error
	SetProgress(ctx context.Context, userID int, id string, progress float64) error
	SetAIEstimate(ctx context.Context, userID int, id string, probability float64, insights []string) error
}

type PostgresStore struct {
	DB *sql.DB
}

const goalColumns = `id, title, category, target_date, current_progress, ai_probability, ai_insights, momentum_boost, inactivity_decay, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (Goal, error) {
	var (
		g            Goal
		target       sql.NullTime
		prob         sql.NullFloat64
		boost, decay sql.NullFloat64
		createdAt    time.Time
	)
	if err := s.Scan(&g.ID, &g.Title, &g.Category, &target, &g.CurrentProgress, &prob, pq.Array(&g.AIInsights), &boost, &decay, &createdAt); err != nil {
		return Goal{}, err
	}
	if target.Valid {
		t := target.Time
		g.TargetDate = &t
	}
	if prob.Valid {
		p := prob.Float64
		g.AIProbability = &p
	}
	if boost.Valid || decay.Valid {
		g.Dynamics = &Dynamics{MomentumBoost: boost.Float64, InactivityDecay: decay.Float64}
	}
	g.CreatedAt = &createdAt
	return g, nil
}

func (s PostgresStore) List(ctx context.Context, userID int) ([]Goal, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s PostgresStore) Get(ctx context.Context, userID int, id string) (Goal, error) {
	g, err := scanGoal(s.DB.QueryRowContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		return Goal{}, fmt.Errorf("load goal %s: %w", id, err)
	}
	return g, nil
}

func (s PostgresStore) Create(ctx context.Context, userID int, g Goal) error {
	var target sql.NullTime
	if g.TargetDate != nil {
		target = sql.NullTime{Time: g.TargetDate.UTC(), Valid: true}
	}
	createdAt := time.Now().UTC()
	if g.CreatedAt != nil {
		createdAt = g.CreatedAt.UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, category, target_date, current_progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, userID, g.Title, g.Category, target, g.CurrentProgress, createdAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s PostgresStore) SetProgress(ctx context.Context, userID int, id string, progress float64) error {
	return s.exec(ctx, id, `
		UPDATE goals SET current_progress = $1
		WHERE id = $2 AND user_id = $3
	`, progress, id, userID)
}

func (s PostgresStore) SetAIEstimate(ctx context.Context, userID int, id string, probability float64, insights []string) error {
	if insights == nil {
		insights = []string{}
	}
	return s.exec(ctx, id, `
		UPDATE goals SET ai_probability = $1, ai_insights = $2
		WHERE id = $3 AND user_id = $4
	`, probability, pq.Array(insights), id, userID)
}

func (s PostgresStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update goal %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SnapshotSource loads everything goal analysis reads for one user.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID int, now time.Time) (Snapshot, error)
}

// eventHorizon bounds how far back events are loaded for analysis.
const eventHorizon = 120 * day

// StoreSnapshots assembles a Snapshot from the per-domain stores.
type StoreSnapshots struct {
	Tasks  tasks.Store
	Habits habits.Store
	Events analytics.Store
}

func (s StoreSnapshots) Snapshot(ctx context.Context, userID int, now time.Time) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Tasks, err = s.Tasks.List(ctx, userID); err != nil {
		return Snapshot{}, err
	}
	if snap.Habits, err = s.Habits.List(ctx, userID); err != nil {
		return Snapshot{}, err
	}
	if snap.Events, err = s.Events.EventsSince(ctx, userID, now.Add(-eventHorizon)); err != nil {
		return Snapshot{}, err
	}
	sessions, err := s.Events.FocusSessions(ctx, userID, 500)
	if err != nil {
		return Snapshot{}, err
	}
	for _, fs := range sessions {
		if !fs.Active() {
			snap.DeepWorkCount++
		}
	}
	return snap, nil
}
