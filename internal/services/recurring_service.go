package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// RecurringService manages recurring transaction definitions and realizes
// their due occurrences into the ledger.
type RecurringService struct {
	store        RecurringStore
	transactions *TransactionService
	logger       *log.Logger
	now          func() time.Time
}

func NewRecurringService(store RecurringStore, transactions *TransactionService, logger *log.Logger) *RecurringService {
	return &RecurringService{
		store:        store,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentRecurring),
		now:          time.Now,
	}
}

// Create persists a definition. The first occurrence is the anchor itself;
// past anchors are caught up by the apply cycle, one occurrence at a time.
func (s *RecurringService) Create(ctx context.Context, userID string, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	rt.UserID = userID
	rt.IsActive = true
	rt.AnchorDate = core.DateOnly(rt.AnchorDate)
	rt.NextDueDate = rt.AnchorDate
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.store.InsertRecurring(ctx, &rt); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring: %w", err)
	}
	return rt, nil
}

func (s *RecurringService) Get(ctx context.Context, userID string, id int64) (core.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID string, f storage.RecurringFilter, page storage.Page) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, userID, f, page)
}

// RecurringPatch holds optional field updates. Nil fields are left as is.
type RecurringPatch struct {
	Type        *core.TransactionType
	Amount      *core.Money
	Description *string
	Category    *string
	Frequency   *core.Frequency
	AnchorDate  *time.Time
	IsActive    *bool
}

// Update applies a patch. Changing the schedule (anchor or frequency)
// recomputes the next due date from the new anchor without retroactively
// realizing skipped occurrences.
func (s *RecurringService) Update(ctx context.Context, userID string, id int64, patch RecurringPatch) (core.RecurringTransaction, error) {
	rt, err := s.store.GetRecurring(ctx, userID, id)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	schedule := false
	if patch.Type != nil {
		rt.Type = *patch.Type
	}
	if patch.Amount != nil {
		rt.Amount = *patch.Amount
	}
	if patch.Description != nil {
		rt.Description = *patch.Description
	}
	if patch.Category != nil {
		rt.Category = *patch.Category
	}
	if patch.Frequency != nil {
		rt.Frequency = *patch.Frequency
		schedule = true
	}
	if patch.AnchorDate != nil {
		rt.AnchorDate = core.DateOnly(*patch.AnchorDate)
		schedule = true
	}
	if patch.IsActive != nil {
		rt.IsActive = *patch.IsActive
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if schedule {
		next, err := core.NextOnOrAfter(rt.AnchorDate, rt.Frequency, s.now())
		if err != nil {
			return core.RecurringTransaction{}, err
		}
		rt.NextDueDate = next
	}
	if err := s.store.UpdateRecurring(ctx, &rt); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("update recurring: %w", err)
	}
	return rt, nil
}

func (s *RecurringService) Delete(ctx context.Context, userID string, id int64) error {
	return s.store.DeleteRecurring(ctx, userID, id)
}

// DueSoon returns active definitions due within horizonDays of today.
func (s *RecurringService) DueSoon(ctx context.Context, userID string, horizonDays int) ([]core.RecurringTransaction, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultDueSoonHorizonDays
	}
	today := core.DateOnly(s.now())
	active := true
	return s.store.ListRecurring(ctx, userID, storage.RecurringFilter{
		IsActive:      &active,
		DueFrom:       &today,
		DueOnOrBefore: ptrTime(today.AddDate(0, 0, horizonDays)),
	}, storage.Page{})
}

// Overdue returns active definitions whose next occurrence has passed
// without being realized yet.
func (s *RecurringService) Overdue(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	today := core.DateOnly(s.now())
	active := true
	return s.store.ListRecurring(ctx, userID, storage.RecurringFilter{
		IsActive:      &active,
		DueOnOrBefore: ptrTime(today.AddDate(0, 0, -1)),
	}, storage.Page{})
}

// RecurringSummary aggregates active definitions by cadence cost.
type RecurringSummary struct {
	ActiveCount    int        `json:"activeCount"`
	MonthlyExpense core.Money `json:"monthlyExpense"`
	MonthlyIncome  core.Money `json:"monthlyIncome"`
}

// Summary normalizes every active definition to a monthly figure: daily
// entries weigh 30x, weekly 30/7, monthly 1x, yearly 1/12.
func (s *RecurringService) Summary(ctx context.Context, userID string) (RecurringSummary, error) {
	active := true
	items, err := s.store.ListRecurring(ctx, userID, storage.RecurringFilter{IsActive: &active}, storage.Page{})
	if err != nil {
		return RecurringSummary{}, fmt.Errorf("recurring summary: %w", err)
	}
	out := RecurringSummary{
		MonthlyExpense: core.ZeroMoney(),
		MonthlyIncome:  core.ZeroMoney(),
	}
	for _, rt := range items {
		out.ActiveCount++
		monthly := monthlyEquivalent(rt.Amount, rt.Frequency)
		switch rt.Type {
		case core.Expense:
			out.MonthlyExpense = out.MonthlyExpense.Add(monthly)
		case core.Income:
			out.MonthlyIncome = out.MonthlyIncome.Add(monthly)
		}
	}
	return out, nil
}

func monthlyEquivalent(amount core.Money, f core.Frequency) core.Money {
	switch f {
	case core.Daily:
		return amount.MulRatio(30, 1)
	case core.Weekly:
		return amount.MulRatio(30, 7)
	case core.Yearly:
		return amount.MulRatio(1, 12)
	default:
		return amount
	}
}

// ApplyDue realizes every due occurrence across all users. Each occurrence
// becomes a ledger transaction dated on its due date, and the definition is
// advanced one step with a compare-and-set so overlapping workers realize
// each occurrence at most once. A failure on one definition is logged and
// does not stop the rest.
func (s *RecurringService) ApplyDue(ctx context.Context, ref time.Time) (int, error) {
	due, err := s.store.ListRecurringDue(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("list due recurring: %w", err)
	}

	today := core.DateOnly(ref)
	applied := 0
	for _, rt := range due {
		n, err := s.applyOne(ctx, rt, today)
		applied += n
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to apply recurring transaction",
				log.FieldUserID, rt.UserID,
				log.FieldRecurringID, rt.ID,
				log.FieldError, err)
		}
	}
	if applied > 0 {
		s.logger.InfoContext(ctx, "applied due recurring transactions", log.FieldCount, applied)
	}
	return applied, nil
}

func (s *RecurringService) applyOne(ctx context.Context, rt core.RecurringTransaction, today time.Time) (int, error) {
	applied := 0
	for !rt.NextDueDate.After(today) {
		next, err := core.NextOccurrence(rt.NextDueDate, rt.Frequency)
		if err != nil {
			return applied, err
		}
		ok, err := s.store.AdvanceRecurring(ctx, rt.UserID, rt.ID, rt.NextDueDate, next)
		if err != nil {
			return applied, err
		}
		if !ok {
			// Another worker advanced this occurrence first.
			return applied, nil
		}
		due := rt.NextDueDate
		tx := core.Transaction{
			Type:            rt.Type,
			Amount:          rt.Amount,
			Description:     rt.Description,
			Category:        rt.Category,
			RelatedParty:    rt.RelatedParty,
			TransactionDate: due,
		}
		if rt.Type == core.Debt || rt.Type == core.Receivable {
			tx.DueDate = &due
		}
		if _, err := s.transactions.Create(ctx, rt.UserID, tx); err != nil {
			return applied, fmt.Errorf("realize occurrence: %w", err)
		}
		applied++
		rt.NextDueDate = next
	}
	return applied, nil
}
