package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const recurringColumns = `id, user_id, type, amount, description, category, related_party,
	frequency, anchor_date, next_due_date, is_active, created_at, updated_at`

func scanRecurring(row rowScanner) (core.RecurringTransaction, error) {
	var (
		rt                    core.RecurringTransaction
		anchor, due, crt, upd string
	)
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Type, &rt.Amount, &rt.Description, &rt.Category,
		&rt.RelatedParty, &rt.Frequency, &anchor, &due, &rt.IsActive, &crt, &upd)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if rt.AnchorDate, err = parseDate(anchor); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse anchor date: %w", err)
	}
	if rt.NextDueDate, err = parseDate(due); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse next due date: %w", err)
	}
	if rt.CreatedAt, err = parseTime(crt); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse created at: %w", err)
	}
	if rt.UpdatedAt, err = parseTime(upd); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("parse updated at: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) InsertRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	now := time.Now().UTC()
	rt.CreatedAt, rt.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (user_id, type, amount, description, category,
			related_party, frequency, anchor_date, next_due_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID, rt.Type, rt.Amount, rt.Description, rt.Category, rt.RelatedParty,
		rt.Frequency, fmtDate(rt.AnchorDate), fmtDate(rt.NextDueDate), rt.IsActive,
		fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	rt.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert recurring transaction id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID string, id int64) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_transactions WHERE user_id = ? AND id = ?", userID, id)
	rt, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction: %w", err)
	}
	return rt, nil
}

// ListRecurring returns matching templates ordered by due date then id.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID string, f RecurringFilter, p Page) ([]core.RecurringTransaction, error) {
	w := whereForUser(userID)
	if f.Type != nil {
		w.add("type = ?", *f.Type)
	}
	if f.Frequency != nil {
		w.add("frequency = ?", *f.Frequency)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	if f.DueOnOrBefore != nil {
		w.add("next_due_date <= ?", fmtDate(*f.DueOnOrBefore))
	}
	if f.DueFrom != nil {
		w.add("next_due_date >= ?", fmtDate(*f.DueFrom))
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_transactions"+w.clause()+
			" ORDER BY next_due_date ASC, id ASC"+limitClause(p), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ListRecurringDue returns every active template across all users whose next
// due date is on or before ref. Consumed by the realization worker, which is
// a system-level collaborator rather than a per-user caller.
func (r *SQLiteRepository) ListRecurringDue(ctx context.Context, ref time.Time) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+recurringColumns+` FROM recurring_transactions
		WHERE is_active = 1 AND next_due_date <= ?
		ORDER BY next_due_date ASC, id ASC`, fmtDate(ref))
	if err != nil {
		return nil, fmt.Errorf("list due recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due recurring transaction: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, rt *core.RecurringTransaction) error {
	rt.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions
		SET type = ?, amount = ?, description = ?, category = ?, related_party = ?,
			frequency = ?, anchor_date = ?, next_due_date = ?, is_active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		rt.Type, rt.Amount, rt.Description, rt.Category, rt.RelatedParty,
		rt.Frequency, fmtDate(rt.AnchorDate), fmtDate(rt.NextDueDate), rt.IsActive,
		fmtTime(rt.UpdatedAt), rt.UserID, rt.ID)
	if err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	return requireRow(res, "update recurring transaction")
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM recurring_transactions WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	return requireRow(res, "delete recurring transaction")
}

// AdvanceRecurring moves next_due_date forward with a compare-and-swap on
// the previous value. Returns false when another caller already advanced the
// same occurrence, which is how concurrent realizations avoid applying one
// occurrence twice.
func (r *SQLiteRepository) AdvanceRecurring(ctx context.Context, userID string, id int64, from, to time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions
		SET next_due_date = ?, updated_at = ?
		WHERE user_id = ? AND id = ? AND next_due_date = ?`,
		fmtDate(to), fmtTime(time.Now().UTC()), userID, id, fmtDate(from))
	if err != nil {
		return false, fmt.Errorf("advance recurring transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance recurring transaction: %w", err)
	}
	return n == 1, nil
}
