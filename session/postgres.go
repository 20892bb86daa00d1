package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresResolver reads wallet_sessions rows maintained by the platform
// (or by sessionctl in local setups).
type PostgresResolver struct {
	db *sql.DB
}

func NewPostgresResolver(db *sql.DB) *PostgresResolver { return &PostgresResolver{db: db} }

func (r *PostgresResolver) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_sessions (
			player_id  text PRIMARY KEY,
			user_id    text NOT NULL,
			auth_token text NOT NULL,
			client_url text NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure wallet_sessions: %w", err)
	}
	return nil
}

func (r *PostgresResolver) Resolve(ctx context.Context, playerID string) (Credentials, error) {
	var creds Credentials
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, auth_token, client_url
		FROM wallet_sessions
		WHERE player_id = $1`, playerID).
		Scan(&creds.UserID, &creds.AuthToken, &creds.ClientURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("resolve session: %w", err)
	}
	return creds, nil
}

// Set upserts a session mapping; used by sessionctl.
func (r *PostgresResolver) Set(ctx context.Context, playerID string, creds Credentials) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_sessions (player_id, user_id, auth_token, client_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    auth_token = EXCLUDED.auth_token,
		    client_url = EXCLUDED.client_url,
		    updated_at = now()`,
		playerID, creds.UserID, creds.AuthToken, creds.ClientURL)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *PostgresResolver) Delete(ctx context.Context, playerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM wallet_sessions WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
