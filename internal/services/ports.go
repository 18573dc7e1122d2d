// Package services implements the application layer: validation, obligation
// tracking, budget and goal math, and the financial summary engine. Services
// depend on narrow store interfaces so they can be tested against in-memory
// fakes; *storage.SQLiteRepository satisfies all of them.
package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionStore is the ledger persistence surface used by services.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *core.Transaction) error
	GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter, s storage.Sort, p storage.Page) ([]core.Transaction, int, error)
	UpdateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, userID string, id int64) error
	SetTransactionStatus(ctx context.Context, userID string, id int64, status core.TransactionStatus) (core.Transaction, error)
}

// RecurringStore persists recurring transaction definitions.
type RecurringStore interface {
	InsertRecurring(ctx context.Context, rt *core.RecurringTransaction) error
	GetRecurring(ctx context.Context, userID string, id int64) (core.RecurringTransaction, error)
	ListRecurring(ctx context.Context, userID string, f storage.RecurringFilter, p storage.Page) ([]core.RecurringTransaction, error)
	ListRecurringDue(ctx context.Context, ref time.Time) ([]core.RecurringTransaction, error)
	UpdateRecurring(ctx context.Context, rt *core.RecurringTransaction) error
	DeleteRecurring(ctx context.Context, userID string, id int64) error
	AdvanceRecurring(ctx context.Context, userID string, id int64, from, to time.Time) (bool, error)
}

// BillStore persists bill reminders.
type BillStore interface {
	InsertBill(ctx context.Context, b *core.BillReminder) error
	GetBill(ctx context.Context, userID string, id int64) (core.BillReminder, error)
	ListBills(ctx context.Context, userID string, f storage.BillFilter, p storage.Page) ([]core.BillReminder, error)
	UpdateBill(ctx context.Context, b *core.BillReminder) error
	DeleteBill(ctx context.Context, userID string, id int64) error
	MarkBillPaid(ctx context.Context, userID string, id int64, paidDate time.Time) (core.BillReminder, error)
	MarkBillUnpaid(ctx context.Context, userID string, id int64) (core.BillReminder, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	InsertBudget(ctx context.Context, b *core.Budget) error
	GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string, f storage.BudgetFilter, p storage.Page) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b *core.Budget) error
	DeleteBudget(ctx context.Context, userID string, id int64) error
}

// GoalStore persists financial goals.
type GoalStore interface {
	InsertGoal(ctx context.Context, g *core.FinancialGoal) error
	GetGoal(ctx context.Context, userID string, id int64) (core.FinancialGoal, error)
	ListGoals(ctx context.Context, userID string, f storage.GoalFilter, p storage.Page) ([]core.FinancialGoal, error)
	UpdateGoal(ctx context.Context, g *core.FinancialGoal) error
	DeleteGoal(ctx context.Context, userID string, id int64) error
	AddGoalContribution(ctx context.Context, userID string, id int64, amount core.Money) (core.FinancialGoal, error)
}

// InvestmentStore persists investment balances.
type InvestmentStore interface {
	UpsertInvestment(ctx context.Context, inv *core.Investment) error
	GetInvestment(ctx context.Context, userID string, id int64) (core.Investment, error)
	ListInvestments(ctx context.Context, userID string) ([]core.Investment, error)
	DeleteInvestment(ctx context.Context, userID string, id int64) error
}

// ExportPublisher emits a sync event after a ledger write. Implementations
// must not block the caller beyond the publish itself; a nil publisher
// disables export.
type ExportPublisher interface {
	PublishTransactionSync(ctx context.Context, userID string, transactionID int64) error
}
