package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, type, amount, description, category, related_party,
	transaction_date, due_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		txDate, crt, upd string
		due              sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.Category,
		&t.RelatedParty, &txDate, &due, &t.Status, &crt, &upd)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.TransactionDate, err = parseDate(txDate); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	if t.DueDate, err = parseDateNull(due); err != nil {
		return core.Transaction{}, fmt.Errorf("parse due date: %w", err)
	}
	if t.CreatedAt, err = parseTime(crt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(upd); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated at: %w", err)
	}
	return t, nil
}

// InsertTransaction writes a new ledger entry and fills in its assigned ID
// and timestamps.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, description, category, related_party,
			transaction_date, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Type, t.Amount, t.Description, t.Category, t.RelatedParty,
		fmtDate(t.TransactionDate), fmtDatePtr(t.DueDate), t.Status, fmtTime(now), fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert transaction id: %w", err)
	}
	return nil
}

// GetTransaction loads one entry. A row owned by another user is
// indistinguishable from a missing one.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND id = ?", userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func transactionWhere(userID string, f TransactionFilter) *whereBuilder {
	w := whereForUser(userID)
	if f.Type != nil {
		w.add("type = ?", *f.Type)
	}
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.Category != nil {
		w.add("category = ?", *f.Category)
	}
	if f.RelatedParty != nil {
		w.add("related_party = ?", *f.RelatedParty)
	}
	if f.StartDate != nil {
		w.add("transaction_date >= ?", fmtDate(*f.StartDate))
	}
	if f.EndDate != nil {
		w.add("transaction_date <= ?", fmtDate(*f.EndDate))
	}
	return w
}

// ListTransactions returns one page of entries plus the total count matching
// the filter.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f TransactionFilter, s Sort, p Page) ([]core.Transaction, int, error) {
	w := transactionWhere(userID, f)

	order, err := orderClause(s, transactionSortColumns, Sort{Field: "transactionDate", Desc: true})
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions"+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions"+w.clause()+order+limitClause(p), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return out, total, nil
}

// UpdateTransaction rewrites an entry owned by t.UserID.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount = ?, description = ?, category = ?, related_party = ?,
			transaction_date = ?, due_date = ?, status = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		t.Type, t.Amount, t.Description, t.Category, t.RelatedParty,
		fmtDate(t.TransactionDate), fmtDatePtr(t.DueDate), t.Status, fmtTime(t.UpdatedAt),
		t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "update transaction")
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "delete transaction")
}

// SetTransactionStatus transitions an entry's lifecycle state in a single
// read-modify-write transaction.
func (r *SQLiteRepository) SetTransactionStatus(ctx context.Context, userID string, id int64, status core.TransactionStatus) (core.Transaction, error) {
	var out core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND id = ?", userID, id)
		t, err := scanTransaction(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		t.Status = status
		t.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE transactions SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?",
			t.Status, fmtTime(t.UpdatedAt), userID, id); err != nil {
			return fmt.Errorf("set transaction status: %w", err)
		}
		out = t
		return nil
	})
	return out, err
}

// ListPendingExport returns entries not yet exported, oldest first. Spans
// all users: the export worker is a system-level consumer.
func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		WHERE export_state = 'pending' ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET export_state = 'synced' WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET export_state = 'error' WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}

// requireRow maps a zero-row mutation to ErrNotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
