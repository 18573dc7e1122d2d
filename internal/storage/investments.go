package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const investmentColumns = `id, user_id, name, kind, balance, updated_at`

func scanInvestment(row rowScanner) (core.Investment, error) {
	var (
		inv core.Investment
		upd string
	)
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Kind, &inv.Balance, &upd)
	if err != nil {
		return core.Investment{}, err
	}
	if inv.UpdatedAt, err = parseTime(upd); err != nil {
		return core.Investment{}, fmt.Errorf("parse updated at: %w", err)
	}
	return inv, nil
}

// UpsertInvestment creates or replaces the balance keyed by (user, name).
func (r *SQLiteRepository) UpsertInvestment(ctx context.Context, inv *core.Investment) error {
	inv.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO investments (user_id, name, kind, balance, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name)
		DO UPDATE SET kind = excluded.kind, balance = excluded.balance, updated_at = excluded.updated_at`,
		inv.UserID, inv.Name, inv.Kind, inv.Balance, fmtTime(inv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert investment: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		inv.ID = id
	}
	return nil
}

func (r *SQLiteRepository) GetInvestment(ctx context.Context, userID string, id int64) (core.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+investmentColumns+" FROM investments WHERE user_id = ? AND id = ?", userID, id)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("get investment: %w", err)
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context, userID string) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+investmentColumns+" FROM investments WHERE user_id = ? ORDER BY name ASC, id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []core.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM investments WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	return requireRow(res, "delete investment")
}
