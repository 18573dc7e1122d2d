package core

import (
	"strings"
	"time"
)

type (
	// TransactionType is the closed set of ledger entry kinds.
	TransactionType string

	// TransactionStatus is the lifecycle state of a ledger entry.
	TransactionStatus string

	// Frequency is the repetition step of a periodic obligation.
	Frequency string

	// BudgetPeriod is the window a spending limit applies to.
	BudgetPeriod string

	// Priority ranks financial goals.
	Priority string
)

const (
	Income     TransactionType = "income"
	Expense    TransactionType = "expense"
	Debt       TransactionType = "debt"
	Receivable TransactionType = "receivable"

	StatusActive    TransactionStatus = "active"
	StatusSettled   TransactionStatus = "settled"
	StatusCancelled TransactionStatus = "cancelled"

	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"

	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"

	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Transaction is a single ledger entry. Income and expense rows carry a
// category; debt and receivable rows carry the related party and a due date.
type Transaction struct {
	ID              int64
	UserID          string
	Type            TransactionType
	Amount          Money
	Description     string
	Category        string
	RelatedParty    string
	TransactionDate time.Time
	DueDate         *time.Time
	Status          TransactionStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecurringTransaction is the template a periodic ledger entry is realized
// from. NextDueDate is derived from AnchorDate and Frequency, never
// hand-edited.
type RecurringTransaction struct {
	ID           int64
	UserID       string
	Type         TransactionType
	Amount       Money
	Description  string
	Category     string
	RelatedParty string
	Frequency    Frequency
	AnchorDate   time.Time
	NextDueDate  time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BillReminder is an upcoming payment obligation. PrevDueDate retains the
// due date from before the last MarkPaid so MarkUnpaid can restore it
// exactly rather than re-deriving an approximation.
type BillReminder struct {
	ID           int64
	UserID       string
	Payee        string
	Amount       Money
	Category     string
	Frequency    Frequency
	NextDueDate  time.Time
	PrevDueDate  *time.Time
	IsActive     bool
	IsPaid       bool
	LastPaidDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Budget is a spending limit for one category over a repeating period.
// Performance against it is always computed, never stored.
type Budget struct {
	ID          int64
	UserID      string
	Category    string
	LimitAmount Money
	Period      BudgetPeriod
	StartDate   time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FinancialGoal is a savings target. CurrentAmount only ever grows through
// contributions; IsCompleted flips exactly when the target is reached.
type FinancialGoal struct {
	ID            int64
	UserID        string
	Name          string
	TargetAmount  Money
	CurrentAmount Money
	Priority      Priority
	Category      string
	Deadline      *time.Time
	IsCompleted   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Investment is a held balance counted into net worth.
type Investment struct {
	ID        int64
	UserID    string
	Name      string
	Kind      string
	Balance   Money
	UpdatedAt time.Time
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Debt, Receivable:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetWeekly, BudgetMonthly, BudgetYearly:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidRecurring reports whether f may be used on a recurring transaction.
func (f Frequency) ValidRecurring() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ValidBill reports whether f may be used on a bill reminder.
func (f Frequency) ValidBill() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// IsOverdue reports whether a debt or receivable is past due: still active
// and due before the reference date. Settled and cancelled rows are never
// overdue.
func (t Transaction) IsOverdue(today time.Time) bool {
	if t.Status != StatusActive || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(DateOnly(today))
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return Validation("type", "must be one of income, expense, debt, receivable")
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return Validation("description", "cannot be empty")
	}
	if len(t.Description) > 200 {
		return Validation("description", "too long (max 200 characters)")
	}
	if t.TransactionDate.IsZero() {
		return Validation("transactionDate", "cannot be zero")
	}
	if !t.Status.Valid() {
		return Validation("status", "must be one of active, settled, cancelled")
	}
	switch t.Type {
	case Debt, Receivable:
		if strings.TrimSpace(t.RelatedParty) == "" {
			return Validation("relatedParty", "required for debt and receivable entries")
		}
		if t.DueDate == nil || t.DueDate.IsZero() {
			return Validation("dueDate", "required for debt and receivable entries")
		}
	default:
		if strings.TrimSpace(t.Category) == "" {
			return Validation("category", "required for income and expense entries")
		}
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if !r.Type.Valid() {
		return Validation("type", "must be one of income, expense, debt, receivable")
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Description) == "" {
		return Validation("description", "cannot be empty")
	}
	if !r.Frequency.ValidRecurring() {
		return Validation("frequency", "must be one of daily, weekly, monthly, yearly")
	}
	if r.AnchorDate.IsZero() {
		return Validation("anchorDate", "cannot be zero")
	}
	switch r.Type {
	case Debt, Receivable:
		if strings.TrimSpace(r.RelatedParty) == "" {
			return Validation("relatedParty", "required for debt and receivable entries")
		}
	default:
		if strings.TrimSpace(r.Category) == "" {
			return Validation("category", "required for income and expense entries")
		}
	}
	return nil
}

func (b BillReminder) Validate() error {
	if strings.TrimSpace(b.Payee) == "" {
		return Validation("payee", "cannot be empty")
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.Category) == "" {
		return Validation("category", "cannot be empty")
	}
	if !b.Frequency.ValidBill() {
		return Validation("frequency", "must be one of weekly, monthly, quarterly, yearly")
	}
	if b.NextDueDate.IsZero() {
		return Validation("nextDueDate", "cannot be zero")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return Validation("category", "cannot be empty")
	}
	if b.LimitAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return Validation("period", "must be one of weekly, monthly, yearly")
	}
	if b.StartDate.IsZero() {
		return Validation("startDate", "cannot be zero")
	}
	return nil
}

func (g FinancialGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Validation("name", "cannot be empty")
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !g.Priority.Valid() {
		return Validation("priority", "must be one of low, medium, high")
	}
	return nil
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Validation("name", "cannot be empty")
	}
	if i.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// DateOnly truncates t to midnight UTC. All due-date comparisons are made on
// whole days.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a midnight-UTC date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
