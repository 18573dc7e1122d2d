package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const billColumns = `id, user_id, payee, amount, category, frequency, next_due_date,
	prev_due_date, is_active, is_paid, last_paid_date, created_at, updated_at`

func scanBill(row rowScanner) (core.BillReminder, error) {
	var (
		b              core.BillReminder
		due, crt, upd  string
		prevDue, lastP sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Payee, &b.Amount, &b.Category, &b.Frequency,
		&due, &prevDue, &b.IsActive, &b.IsPaid, &lastP, &crt, &upd)
	if err != nil {
		return core.BillReminder{}, err
	}
	if b.NextDueDate, err = parseDate(due); err != nil {
		return core.BillReminder{}, fmt.Errorf("parse next due date: %w", err)
	}
	if b.PrevDueDate, err = parseDateNull(prevDue); err != nil {
		return core.BillReminder{}, fmt.Errorf("parse prev due date: %w", err)
	}
	if b.LastPaidDate, err = parseDateNull(lastP); err != nil {
		return core.BillReminder{}, fmt.Errorf("parse last paid date: %w", err)
	}
	if b.CreatedAt, err = parseTime(crt); err != nil {
		return core.BillReminder{}, fmt.Errorf("parse created at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(upd); err != nil {
		return core.BillReminder{}, fmt.Errorf("parse updated at: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) InsertBill(ctx context.Context, b *core.BillReminder) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bill_reminders (user_id, payee, amount, category, frequency,
			next_due_date, prev_due_date, is_active, is_paid, last_paid_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Payee, b.Amount, b.Category, b.Frequency,
		fmtDate(b.NextDueDate), fmtDatePtr(b.PrevDueDate), b.IsActive, b.IsPaid,
		fmtDatePtr(b.LastPaidDate), fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert bill reminder: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert bill reminder id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, userID string, id int64) (core.BillReminder, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bill_reminders WHERE user_id = ? AND id = ?", userID, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillReminder{}, core.ErrNotFound
	}
	if err != nil {
		return core.BillReminder{}, fmt.Errorf("get bill reminder: %w", err)
	}
	return b, nil
}

// ListBills returns matching reminders ordered by due date ascending, then
// id for determinism when dates collide.
func (r *SQLiteRepository) ListBills(ctx context.Context, userID string, f BillFilter, p Page) ([]core.BillReminder, error) {
	w := whereForUser(userID)
	if f.Category != nil {
		w.add("category = ?", *f.Category)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	if f.IsPaid != nil {
		w.add("is_paid = ?", *f.IsPaid)
	}
	if f.DueOnOrBefore != nil {
		w.add("next_due_date <= ?", fmtDate(*f.DueOnOrBefore))
	}
	if f.DueFrom != nil {
		w.add("next_due_date >= ?", fmtDate(*f.DueFrom))
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bill_reminders"+w.clause()+
			" ORDER BY next_due_date ASC, id ASC"+limitClause(p), w.args...)
	if err != nil {
		return nil, fmt.Errorf("list bill reminders: %w", err)
	}
	defer rows.Close()

	var out []core.BillReminder
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill reminder: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b *core.BillReminder) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE bill_reminders
		SET payee = ?, amount = ?, category = ?, frequency = ?, next_due_date = ?,
			prev_due_date = ?, is_active = ?, is_paid = ?, last_paid_date = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		b.Payee, b.Amount, b.Category, b.Frequency, fmtDate(b.NextDueDate),
		fmtDatePtr(b.PrevDueDate), b.IsActive, b.IsPaid, fmtDatePtr(b.LastPaidDate),
		fmtTime(b.UpdatedAt), b.UserID, b.ID)
	if err != nil {
		return fmt.Errorf("update bill reminder: %w", err)
	}
	return requireRow(res, "update bill reminder")
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM bill_reminders WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete bill reminder: %w", err)
	}
	return requireRow(res, "delete bill reminder")
}

// MarkBillPaid records the payment and advances the due date by one
// recurrence step in one transaction. The outgoing due date is retained in
// prev_due_date so MarkBillUnpaid can restore it exactly. The is_paid guard
// in the UPDATE means two concurrent calls cannot both advance.
func (r *SQLiteRepository) MarkBillPaid(ctx context.Context, userID string, id int64, paidDate time.Time) (core.BillReminder, error) {
	var out core.BillReminder
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+billColumns+" FROM bill_reminders WHERE user_id = ? AND id = ?", userID, id)
		b, err := scanBill(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load bill reminder: %w", err)
		}
		if b.IsPaid {
			return core.Validation("isPaid", "bill is already marked as paid")
		}

		next, err := core.NextOccurrence(b.NextDueDate, b.Frequency)
		if err != nil {
			return fmt.Errorf("project next due date: %w", err)
		}

		paid := core.DateOnly(paidDate)
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE bill_reminders
			SET is_paid = 1, last_paid_date = ?, prev_due_date = next_due_date,
				next_due_date = ?, updated_at = ?
			WHERE user_id = ? AND id = ? AND is_paid = 0`,
			fmtDate(paid), fmtDate(next), fmtTime(now), userID, id)
		if err != nil {
			return fmt.Errorf("mark bill paid: %w", err)
		}
		if err := requireRow(res, "mark bill paid"); err != nil {
			return err
		}

		prev := b.NextDueDate
		b.IsPaid = true
		b.LastPaidDate = &paid
		b.PrevDueDate = &prev
		b.NextDueDate = next
		b.UpdatedAt = now
		out = b
		return nil
	})
	return out, err
}

// MarkBillUnpaid reverses a payment: clears last_paid_date and restores the
// exact pre-payment due date from prev_due_date, not a re-derived
// approximation.
func (r *SQLiteRepository) MarkBillUnpaid(ctx context.Context, userID string, id int64) (core.BillReminder, error) {
	var out core.BillReminder
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+billColumns+" FROM bill_reminders WHERE user_id = ? AND id = ?", userID, id)
		b, err := scanBill(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load bill reminder: %w", err)
		}
		if !b.IsPaid {
			return core.Validation("isPaid", "bill is not marked as paid")
		}
		if b.PrevDueDate == nil {
			return core.Validation("prevDueDate", "no prior due date retained for rollback")
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE bill_reminders
			SET is_paid = 0, last_paid_date = NULL, next_due_date = prev_due_date,
				prev_due_date = NULL, updated_at = ?
			WHERE user_id = ? AND id = ? AND is_paid = 1`,
			fmtTime(now), userID, id)
		if err != nil {
			return fmt.Errorf("mark bill unpaid: %w", err)
		}
		if err := requireRow(res, "mark bill unpaid"); err != nil {
			return err
		}

		b.IsPaid = false
		b.LastPaidDate = nil
		b.NextDueDate = *b.PrevDueDate
		b.PrevDueDate = nil
		b.UpdatedAt = now
		out = b
		return nil
	})
	return out, err
}
