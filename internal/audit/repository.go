package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository writes audit logs to Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes an audit entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	detail := string(entry.Detail)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	actor, role, action, resource, detail, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, entry.Actor, entry.Role, entry.Action, entry.Resource, detail, entry.CreatedAt)
	return err
}
