package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const goalColumns = `id, user_id, name, target_amount, current_amount, priority,
	category, deadline, is_completed, created_at, updated_at`

func scanGoal(row rowScanner) (core.FinancialGoal, error) {
	var (
		g        core.FinancialGoal
		crt, upd string
		deadline sql.NullString
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&g.Priority, &g.Category, &deadline, &g.IsCompleted, &crt, &upd)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	if g.Deadline, err = parseDateNull(deadline); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("parse deadline: %w", err)
	}
	if g.CreatedAt, err = parseTime(crt); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("parse created at: %w", err)
	}
	if g.UpdatedAt, err = parseTime(upd); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("parse updated at: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g *core.FinancialGoal) error {
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO financial_goals (user_id, name, target_amount, current_amount,
			priority, category, deadline, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Priority, g.Category,
		fmtDatePtr(g.Deadline), g.IsCompleted, fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert goal id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID string, id int64) (core.FinancialGoal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM financial_goals WHERE user_id = ? AND id = ?", userID, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string, f GoalFilter, p Page) ([]core.FinancialGoal, error) {
	w := whereForUser(userID)
	if f.Priority != nil {
		w.add("priority = ?", *f.Priority)
	}
	if f.Category != nil {
		w.add("category = ?", *f.Category)
	}
	if f.IsCompleted != nil {
		w.add("is_completed = ?", *f.IsCompleted)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM financial_goals"+w.clause()+
			" ORDER BY id ASC"+limitClause(p), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.FinancialGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g *core.FinancialGoal) error {
	g.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE financial_goals
		SET name = ?, target_amount = ?, current_amount = ?, priority = ?, category = ?,
			deadline = ?, is_completed = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		g.Name, g.TargetAmount, g.CurrentAmount, g.Priority, g.Category,
		fmtDatePtr(g.Deadline), g.IsCompleted, fmtTime(g.UpdatedAt), g.UserID, g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res, "update goal")
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM financial_goals WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res, "delete goal")
}

// AddGoalContribution increments current_amount and flips is_completed in
// the same transaction, so the derived flag can never disagree with the
// total it derives from.
func (r *SQLiteRepository) AddGoalContribution(ctx context.Context, userID string, id int64, amount core.Money) (core.FinancialGoal, error) {
	var out core.FinancialGoal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+goalColumns+" FROM financial_goals WHERE user_id = ? AND id = ?", userID, id)
		g, err := scanGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}

		g.CurrentAmount = g.CurrentAmount.Add(amount)
		// Overshoot is retained, not clamped to the target.
		if g.CurrentAmount.Cmp(g.TargetAmount) >= 0 {
			g.IsCompleted = true
		}
		g.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx, `
			UPDATE financial_goals
			SET current_amount = ?, is_completed = ?, updated_at = ?
			WHERE user_id = ? AND id = ?`,
			g.CurrentAmount, g.IsCompleted, fmtTime(g.UpdatedAt), userID, id); err != nil {
			return fmt.Errorf("add goal contribution: %w", err)
		}
		out = g
		return nil
	})
	return out, err
}
