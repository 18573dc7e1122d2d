package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// In-memory store fakes. They reproduce the persistence semantics the
// services rely on: user scoping, not-found mapping and the recurring
// compare-and-set.

type fakeTxStore struct {
	nextID int64
	items  map[int64]core.Transaction
	err    error
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{items: map[int64]core.Transaction{}}
}

func (f *fakeTxStore) InsertTransaction(_ context.Context, t *core.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.items[t.ID] = *t
	return nil
}

func (f *fakeTxStore) GetTransaction(_ context.Context, userID string, id int64) (core.Transaction, error) {
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	t, ok := f.items[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeTxStore) ListTransactions(_ context.Context, userID string, filter storage.TransactionFilter, s storage.Sort, p storage.Page) ([]core.Transaction, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []core.Transaction
	for _, t := range f.items {
		if t.UserID != userID {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.StartDate != nil && t.TransactionDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.TransactionDate.After(*filter.EndDate) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.Field == "transactionDate" {
			if s.Desc {
				return out[i].TransactionDate.After(out[j].TransactionDate)
			}
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	total := len(out)
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (f *fakeTxStore) UpdateTransaction(_ context.Context, t *core.Transaction) error {
	cur, ok := f.items[t.ID]
	if !ok || cur.UserID != t.UserID {
		return core.ErrNotFound
	}
	f.items[t.ID] = *t
	return nil
}

func (f *fakeTxStore) DeleteTransaction(_ context.Context, userID string, id int64) error {
	t, ok := f.items[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTxStore) SetTransactionStatus(_ context.Context, userID string, id int64, status core.TransactionStatus) (core.Transaction, error) {
	t, ok := f.items[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	t.Status = status
	f.items[id] = t
	return t, nil
}

type fakeRecurringStore struct {
	nextID int64
	items  map[int64]core.RecurringTransaction
	err    error
}

func newFakeRecurringStore() *fakeRecurringStore {
	return &fakeRecurringStore{items: map[int64]core.RecurringTransaction{}}
}

func (f *fakeRecurringStore) InsertRecurring(_ context.Context, rt *core.RecurringTransaction) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	rt.ID = f.nextID
	f.items[rt.ID] = *rt
	return nil
}

func (f *fakeRecurringStore) GetRecurring(_ context.Context, userID string, id int64) (core.RecurringTransaction, error) {
	rt, ok := f.items[id]
	if !ok || rt.UserID != userID {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	return rt, nil
}

func (f *fakeRecurringStore) ListRecurring(_ context.Context, userID string, filter storage.RecurringFilter, _ storage.Page) ([]core.RecurringTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.RecurringTransaction
	for _, rt := range f.items {
		if rt.UserID != userID {
			continue
		}
		if filter.IsActive != nil && rt.IsActive != *filter.IsActive {
			continue
		}
		if filter.DueFrom != nil && rt.NextDueDate.Before(*filter.DueFrom) {
			continue
		}
		if filter.DueOnOrBefore != nil && rt.NextDueDate.After(*filter.DueOnOrBefore) {
			continue
		}
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecurringStore) ListRecurringDue(_ context.Context, ref time.Time) ([]core.RecurringTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	day := core.DateOnly(ref)
	var out []core.RecurringTransaction
	for _, rt := range f.items {
		if rt.IsActive && !rt.NextDueDate.After(day) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecurringStore) UpdateRecurring(_ context.Context, rt *core.RecurringTransaction) error {
	cur, ok := f.items[rt.ID]
	if !ok || cur.UserID != rt.UserID {
		return core.ErrNotFound
	}
	f.items[rt.ID] = *rt
	return nil
}

func (f *fakeRecurringStore) DeleteRecurring(_ context.Context, userID string, id int64) error {
	rt, ok := f.items[id]
	if !ok || rt.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRecurringStore) AdvanceRecurring(_ context.Context, userID string, id int64, from, to time.Time) (bool, error) {
	rt, ok := f.items[id]
	if !ok || rt.UserID != userID {
		return false, core.ErrNotFound
	}
	if !rt.NextDueDate.Equal(from) {
		return false, nil
	}
	rt.NextDueDate = to
	f.items[id] = rt
	return true, nil
}

type fakeBillStore struct {
	nextID int64
	items  map[int64]core.BillReminder
	err    error
}

func newFakeBillStore() *fakeBillStore {
	return &fakeBillStore{items: map[int64]core.BillReminder{}}
}

func (f *fakeBillStore) InsertBill(_ context.Context, b *core.BillReminder) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	b.ID = f.nextID
	f.items[b.ID] = *b
	return nil
}

func (f *fakeBillStore) GetBill(_ context.Context, userID string, id int64) (core.BillReminder, error) {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.BillReminder{}, core.ErrNotFound
	}
	return b, nil
}

func (f *fakeBillStore) ListBills(_ context.Context, userID string, filter storage.BillFilter, _ storage.Page) ([]core.BillReminder, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.BillReminder
	for _, b := range f.items {
		if b.UserID != userID {
			continue
		}
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsPaid != nil && b.IsPaid != *filter.IsPaid {
			continue
		}
		if filter.Category != nil && b.Category != *filter.Category {
			continue
		}
		if filter.DueFrom != nil && b.NextDueDate.Before(*filter.DueFrom) {
			continue
		}
		if filter.DueOnOrBefore != nil && b.NextDueDate.After(*filter.DueOnOrBefore) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextDueDate.Before(out[j].NextDueDate)
	})
	return out, nil
}

func (f *fakeBillStore) UpdateBill(_ context.Context, b *core.BillReminder) error {
	cur, ok := f.items[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.ErrNotFound
	}
	f.items[b.ID] = *b
	return nil
}

func (f *fakeBillStore) DeleteBill(_ context.Context, userID string, id int64) error {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeBillStore) MarkBillPaid(_ context.Context, userID string, id int64, paidDate time.Time) (core.BillReminder, error) {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.BillReminder{}, core.ErrNotFound
	}
	if b.IsPaid {
		return core.BillReminder{}, core.Validation("isPaid", "bill is already paid")
	}
	next, err := core.NextOccurrence(b.NextDueDate, b.Frequency)
	if err != nil {
		return core.BillReminder{}, err
	}
	prev := b.NextDueDate
	day := core.DateOnly(paidDate)
	b.IsPaid = true
	b.LastPaidDate = &day
	b.PrevDueDate = &prev
	b.NextDueDate = next
	f.items[id] = b
	return b, nil
}

func (f *fakeBillStore) MarkBillUnpaid(_ context.Context, userID string, id int64) (core.BillReminder, error) {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.BillReminder{}, core.ErrNotFound
	}
	if !b.IsPaid || b.PrevDueDate == nil {
		return core.BillReminder{}, core.Validation("isPaid", "bill has no payment to undo")
	}
	b.NextDueDate = *b.PrevDueDate
	b.PrevDueDate = nil
	b.LastPaidDate = nil
	b.IsPaid = false
	f.items[id] = b
	return b, nil
}

type fakeBudgetStore struct {
	nextID int64
	items  map[int64]core.Budget
}

func newFakeBudgetStore() *fakeBudgetStore {
	return &fakeBudgetStore{items: map[int64]core.Budget{}}
}

func (f *fakeBudgetStore) InsertBudget(_ context.Context, b *core.Budget) error {
	f.nextID++
	b.ID = f.nextID
	f.items[b.ID] = *b
	return nil
}

func (f *fakeBudgetStore) GetBudget(_ context.Context, userID string, id int64) (core.Budget, error) {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (f *fakeBudgetStore) ListBudgets(_ context.Context, userID string, filter storage.BudgetFilter, _ storage.Page) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.items {
		if b.UserID != userID {
			continue
		}
		if filter.IsActive != nil && b.IsActive != *filter.IsActive {
			continue
		}
		if filter.Category != nil && b.Category != *filter.Category {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBudgetStore) UpdateBudget(_ context.Context, b *core.Budget) error {
	cur, ok := f.items[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.ErrNotFound
	}
	f.items[b.ID] = *b
	return nil
}

func (f *fakeBudgetStore) DeleteBudget(_ context.Context, userID string, id int64) error {
	b, ok := f.items[id]
	if !ok || b.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeGoalStore struct {
	nextID int64
	items  map[int64]core.FinancialGoal
}

func newFakeGoalStore() *fakeGoalStore {
	return &fakeGoalStore{items: map[int64]core.FinancialGoal{}}
}

func (f *fakeGoalStore) InsertGoal(_ context.Context, g *core.FinancialGoal) error {
	f.nextID++
	g.ID = f.nextID
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	f.items[g.ID] = *g
	return nil
}

func (f *fakeGoalStore) GetGoal(_ context.Context, userID string, id int64) (core.FinancialGoal, error) {
	g, ok := f.items[id]
	if !ok || g.UserID != userID {
		return core.FinancialGoal{}, core.ErrNotFound
	}
	return g, nil
}

func (f *fakeGoalStore) ListGoals(_ context.Context, userID string, filter storage.GoalFilter, _ storage.Page) ([]core.FinancialGoal, error) {
	var out []core.FinancialGoal
	for _, g := range f.items {
		if g.UserID != userID {
			continue
		}
		if filter.IsCompleted != nil && g.IsCompleted != *filter.IsCompleted {
			continue
		}
		if filter.Category != nil && g.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && g.Priority != *filter.Priority {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGoalStore) UpdateGoal(_ context.Context, g *core.FinancialGoal) error {
	cur, ok := f.items[g.ID]
	if !ok || cur.UserID != g.UserID {
		return core.ErrNotFound
	}
	f.items[g.ID] = *g
	return nil
}

func (f *fakeGoalStore) DeleteGoal(_ context.Context, userID string, id int64) error {
	g, ok := f.items[id]
	if !ok || g.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeGoalStore) AddGoalContribution(_ context.Context, userID string, id int64, amount core.Money) (core.FinancialGoal, error) {
	g, ok := f.items[id]
	if !ok || g.UserID != userID {
		return core.FinancialGoal{}, core.ErrNotFound
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.CurrentAmount.Cmp(g.TargetAmount) >= 0 {
		g.IsCompleted = true
	}
	f.items[id] = g
	return g, nil
}

type fakeInvestmentStore struct {
	nextID int64
	items  map[int64]core.Investment
	err    error
}

func newFakeInvestmentStore() *fakeInvestmentStore {
	return &fakeInvestmentStore{items: map[int64]core.Investment{}}
}

func (f *fakeInvestmentStore) UpsertInvestment(_ context.Context, inv *core.Investment) error {
	if f.err != nil {
		return f.err
	}
	for id, cur := range f.items {
		if cur.UserID == inv.UserID && cur.Name == inv.Name {
			inv.ID = id
			f.items[id] = *inv
			return nil
		}
	}
	f.nextID++
	inv.ID = f.nextID
	f.items[inv.ID] = *inv
	return nil
}

func (f *fakeInvestmentStore) GetInvestment(_ context.Context, userID string, id int64) (core.Investment, error) {
	inv, ok := f.items[id]
	if !ok || inv.UserID != userID {
		return core.Investment{}, core.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvestmentStore) ListInvestments(_ context.Context, userID string) ([]core.Investment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Investment
	for _, inv := range f.items {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeInvestmentStore) DeleteInvestment(_ context.Context, userID string, id int64) error {
	inv, ok := f.items[id]
	if !ok || inv.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, _ string, transactionID int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, transactionID)
	return nil
}

var errStore = errors.New("store blew up")

func money(t interface{ Fatalf(string, ...any) }, s string) core.Money {
	m, err := core.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse money %q: %v", s, err)
	}
	return m
}

func date(y int, m time.Month, d int) time.Time { return core.NewDate(y, m, d) }

func fixedNow(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return core.NewDate(y, m, d) }
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}
