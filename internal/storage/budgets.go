package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const budgetColumns = `id, user_id, category, limit_amount, period, start_date,
	is_active, created_at, updated_at`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b               core.Budget
		start, crt, upd string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.LimitAmount, &b.Period,
		&start, &b.IsActive, &crt, &upd)
	if err != nil {
		return core.Budget{}, err
	}
	if b.StartDate, err = parseDate(start); err != nil {
		return core.Budget{}, fmt.Errorf("parse start date: %w", err)
	}
	if b.CreatedAt, err = parseTime(crt); err != nil {
		return core.Budget{}, fmt.Errorf("parse created at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(upd); err != nil {
		return core.Budget{}, fmt.Errorf("parse updated at: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) InsertBudget(ctx context.Context, b *core.Budget) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, limit_amount, period, start_date,
			is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.LimitAmount, b.Period, fmtDate(b.StartDate),
		b.IsActive, fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert budget id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE user_id = ? AND id = ?", userID, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, f BudgetFilter, p Page) ([]core.Budget, error) {
	w := whereForUser(userID)
	if f.Category != nil {
		w.add("category = ?", *f.Category)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets"+w.clause()+
			" ORDER BY category ASC, id ASC"+limitClause(p), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b *core.Budget) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET category = ?, limit_amount = ?, period = ?, start_date = ?, is_active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		b.Category, b.LimitAmount, b.Period, fmtDate(b.StartDate), b.IsActive,
		fmtTime(b.UpdatedAt), b.UserID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res, "update budget")
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM budgets WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "delete budget")
}
