package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var ErrEmailTaken = errors.New("email already registered")

type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (int, error)
	FindByEmail(ctx context.Context, email string) (id int, passwordHash string, err error)
	Email(ctx context.Context, id int) (string, error)
	Delete(ctx context.Context, id int) error
}

type PostgresUsers struct {
	DB *sql.DB
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s PostgresUsers) Create(ctx context.Context, email, passwordHash string) (int, error) {
	var id int
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`, email, passwordHash).Scan(&id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s PostgresUsers) FindByEmail(ctx context.Context, email string) (int, string, error) {
	var (
		id   int
		hash string
	)
	err := s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	if err != nil {
		return 0, "", fmt.Errorf("find user: %w", err)
	}
	return id, hash, nil
}

func (s PostgresUsers) Email(ctx context.Context, id int) (string, error) {
	var email string
	if err := s.DB.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, id).Scan(&email); err != nil {
		return "", fmt.Errorf("load user %d: %w", id, err)
	}
	return email, nil
}

// Delete removes the user and everything they own in one transaction.
func (s PostgresUsers) Delete(ctx context.Context, id int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"focus_sessions", "analytics_events", "habits", "tasks", "goals"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
