package remote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"einkauf/internal/core"
)

// User accounts live on the gateway itself, not on the per-user views:
// a user has to exist before there is anything to scope by.

func (g *Gateway) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = core.Now()
	}
	var displayName sql.NullString
	if u.DisplayName != "" {
		displayName = sql.NullString{String: u.DisplayName, Valid: true}
	}
	_, err := g.db.ExecContext(ctx,
		"INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, displayName, u.PasswordHash, u.CreatedAt.Time,
	)
	if err != nil {
		return core.User{}, wrapConstraint(err, "insert user")
	}
	return u, nil
}

func (g *Gateway) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return g.scanUser(g.db.QueryRowContext(ctx,
		"SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ? COLLATE NOCASE",
		email,
	))
}

func (g *Gateway) UserByID(ctx context.Context, id string) (core.User, error) {
	return g.scanUser(g.db.QueryRowContext(ctx,
		"SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?",
		id,
	))
}

func (g *Gateway) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var displayName sql.NullString
	err := row.Scan(&u.ID, &u.Email, &displayName, &u.PasswordHash, &u.CreatedAt.Time)
	if err == sql.ErrNoRows {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.DisplayName = displayName.String
	return u, nil
}
