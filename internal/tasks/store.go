package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Store interface {
	List(ctx context.Context, userID int) ([]Task, error)
	Get(ctx context.Context, userID int, id string) (Task, error)
	Create(ctx context.Context, userID int, t Task) error
	SetStatus(ctx context.Context, userID int, id string, status Status, completedAt *time.Time) error
}

type PostgresStore struct {
	DB *sql.DB
}

const taskColumns = `id, title, status, priority, category, tags, due_date, completed_at, goal_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var (
		t              Task
		status, prio   string
		due, completed sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Title, &status, &prio, &t.Category, pq.Array(&t.Tags), &due, &completed, &t.GoalID, &t.CreatedAt); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	t.Priority = Priority(prio)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if completed.Valid {
		c := completed.Time
		t.CompletedAt = &c
	}
	return t, nil
}

func (s PostgresStore) List(ctx context.Context, userID int) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s PostgresStore) Get(ctx context.Context, userID int, id string) (Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	t, err := scanTask(row)
	if err != nil {
		return Task{}, fmt.Errorf("load task %s: %w", id, err)
	}
	return t, nil
}

func (s PostgresStore) Create(ctx context.Context, userID int, t Task) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, status, priority, category, tags, due_date, completed_at, goal_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, userID, t.Title, string(t.Status), string(t.Priority), t.Category, pq.Array(nonNilTags(t.Tags)),
		nullTime(t.DueDate), nullTime(t.CompletedAt), t.GoalID, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s PostgresStore) SetStatus(ctx context.Context, userID int, id string, status Status, completedAt *time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, completed_at = $2
		WHERE id = $3 AND user_id = $4
	`, string(status), nullTime(completedAt), id, userID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
