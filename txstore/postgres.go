package txstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schemaSQL string

// Postgres persists transactions in the wallet_transactions table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema creates the table and indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Record inserts the attempt inside one transaction. An advisory xact
// lock on the player serializes balance computation for concurrent calls,
// and the partial unique index on (transaction_id, action) makes the
// insert itself the duplicate check: ON CONFLICT DO NOTHING returning no
// row means another submission won the race (or got there earlier), and
// its balance is returned instead.
func (p *Postgres) Record(ctx context.Context, tx *Transaction) (RecordResult, error) {
	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tx.PlayerID); err != nil {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var last float64
	err = dbtx.QueryRowContext(ctx, `
		SELECT balance FROM wallet_transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, tx.PlayerID).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	balance := nextBalance(last, tx.Action, amountOf(tx))
	var insertedID string
	err = dbtx.QueryRowContext(ctx, `
		INSERT INTO wallet_transactions
			(id, action, player_id, amount, currency, game_uuid, transaction_id,
			 session_id, type, freespin_id, quantity, round_id, finished, balance, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT DO NOTHING
		RETURNING id`,
		uuid.New().String(),
		tx.Action,
		tx.PlayerID,
		nullFloat(tx.Amount),
		tx.Currency,
		nullString(tx.GameUUID),
		nullString(tx.TransactionID),
		tx.SessionID,
		nullString(tx.Type),
		nullString(tx.FreespinID),
		nullInt(tx.Quantity),
		nullString(tx.RoundID),
		nullBool(tx.Finished),
		balance,
		time.Now().UTC(),
	).Scan(&insertedID)
	if errors.Is(err, sql.ErrNoRows) {
		var prevID string
		var prev float64
		if err := dbtx.QueryRowContext(ctx, `
			SELECT id, balance FROM wallet_transactions
			WHERE transaction_id = $1 AND action = $2`,
			tx.TransactionID, tx.Action).Scan(&prevID, &prev); err != nil {
			return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := dbtx.Commit(); err != nil {
			return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return RecordResult{Duplicate: true, Balance: prev, RecordID: prevID}, nil
	}
	if err != nil {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := dbtx.Commit(); err != nil {
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return RecordResult{Balance: balance, RecordID: insertedID}, nil
}

func (p *Postgres) LastBalance(ctx context.Context, playerID string) (float64, error) {
	var last float64
	err := p.db.QueryRowContext(ctx, `
		SELECT balance FROM wallet_transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, playerID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return last, nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, action, player_id, amount, currency,
		       COALESCE(game_uuid, ''), COALESCE(transaction_id, ''), session_id,
		       COALESCE(type, ''), COALESCE(freespin_id, ''), quantity,
		       COALESCE(round_id, ''), finished, balance, created_at
		FROM wallet_transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var amount sql.NullFloat64
		var quantity sql.NullInt64
		var finished sql.NullBool
		if err := rows.Scan(
			&tx.ID, &tx.Action, &tx.PlayerID, &amount, &tx.Currency,
			&tx.GameUUID, &tx.TransactionID, &tx.SessionID,
			&tx.Type, &tx.FreespinID, &quantity,
			&tx.RoundID, &finished, &tx.Balance, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if amount.Valid {
			v := amount.Float64
			tx.Amount = &v
		}
		if quantity.Valid {
			v := int(quantity.Int64)
			tx.Quantity = &v
		}
		if finished.Valid {
			v := finished.Bool
			tx.Finished = &v
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
