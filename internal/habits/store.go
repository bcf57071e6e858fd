package habits

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Store interface {
	List(ctx context.Context, userID int) ([]Habit, error)
	Get(ctx context.Context, userID int, id string) (Habit, error)
	Create(ctx context.Context, userID int, h Habit) error
	SaveProgress(ctx context.Context, userID int, h Habit) error
}

type PostgresStore struct {
	DB *sql.DB
}

const habitColumns = `id, name, category, frequency, current_streak, last_completed, goal_link`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(s scanner) (Habit, error) {
	var (
		h    Habit
		freq string
		last sql.NullTime
	)
	if err := s.Scan(&h.ID, &h.Name, &h.Category, &freq, &h.CurrentStreak, &last, &h.GoalLink); err != nil {
		return Habit{}, err
	}
	h.Frequency = Frequency(freq)
	if last.Valid {
		t := last.Time
		h.LastCompleted = &t
	}
	return h, nil
}

func (s PostgresStore) List(ctx context.Context, userID int) ([]Habit, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	defer rows.Close()

	var out []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s PostgresStore) Get(ctx context.Context, userID int, id string) (Habit, error) {
	h, err := scanHabit(s.DB.QueryRowContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		return Habit{}, fmt.Errorf("load habit %s: %w", id, err)
	}
	return h, nil
}

func (s PostgresStore) Create(ctx context.Context, userID int, h Habit) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, name, category, frequency, current_streak, last_completed, goal_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, userID, h.Name, h.Category, string(h.Frequency), h.CurrentStreak, nullTime(h.LastCompleted), h.GoalLink)
	if err != nil {
		return fmt.Errorf("insert habit: %w", err)
	}
	return nil
}

func (s PostgresStore) SaveProgress(ctx context.Context, userID int, h Habit) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE habits
		SET current_streak = $1, last_completed = $2
		WHERE id = $3 AND user_id = $4
	`, h.CurrentStreak, nullTime(h.LastCompleted), h.ID, userID)
	if err != nil {
		return fmt.Errorf("update habit %s: %w", h.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update habit %s: %w", h.ID, sql.ErrNoRows)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
