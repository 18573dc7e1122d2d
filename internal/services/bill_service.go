package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultDueSoonHorizonDays is the lookahead window for due-soon queries
// when the caller does not give one.
const DefaultDueSoonHorizonDays = 7

// BillService tracks recurring bill obligations and their payment state.
type BillService struct {
	store       BillStore
	logger      *log.Logger
	horizonDays int
	now         func() time.Time
}

func NewBillService(store BillStore, logger *log.Logger, horizonDays int) *BillService {
	if horizonDays <= 0 {
		horizonDays = DefaultDueSoonHorizonDays
	}
	return &BillService{
		store:       store,
		logger:      logger.WithComponent(log.ComponentBills),
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

func (s *BillService) Create(ctx context.Context, userID string, b core.BillReminder) (core.BillReminder, error) {
	b.UserID = userID
	b.IsActive = true
	b.IsPaid = false
	b.PrevDueDate = nil
	b.NextDueDate = core.DateOnly(b.NextDueDate)
	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}
	if err := s.store.InsertBill(ctx, &b); err != nil {
		return core.BillReminder{}, fmt.Errorf("create bill: %w", err)
	}
	return b, nil
}

func (s *BillService) Get(ctx context.Context, userID string, id int64) (core.BillReminder, error) {
	return s.store.GetBill(ctx, userID, id)
}

func (s *BillService) List(ctx context.Context, userID string, f storage.BillFilter, page storage.Page) ([]core.BillReminder, error) {
	return s.store.ListBills(ctx, userID, f, page)
}

// BillPatch holds optional field updates. Nil fields are left as is.
type BillPatch struct {
	Payee       *string
	Amount      *core.Money
	Category    *string
	Frequency   *core.Frequency
	NextDueDate *time.Time
	IsActive    *bool
}

func (s *BillService) Update(ctx context.Context, userID string, id int64, patch BillPatch) (core.BillReminder, error) {
	b, err := s.store.GetBill(ctx, userID, id)
	if err != nil {
		return core.BillReminder{}, err
	}
	if patch.Payee != nil {
		b.Payee = *patch.Payee
	}
	if patch.Amount != nil {
		b.Amount = *patch.Amount
	}
	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if patch.Frequency != nil {
		b.Frequency = *patch.Frequency
	}
	if patch.NextDueDate != nil {
		// Moving the due date by hand discards the rollback anchor.
		b.NextDueDate = core.DateOnly(*patch.NextDueDate)
		b.PrevDueDate = nil
		b.IsPaid = false
	}
	if patch.IsActive != nil {
		b.IsActive = *patch.IsActive
	}
	if err := b.Validate(); err != nil {
		return core.BillReminder{}, err
	}
	if err := s.store.UpdateBill(ctx, &b); err != nil {
		return core.BillReminder{}, fmt.Errorf("update bill: %w", err)
	}
	return b, nil
}

func (s *BillService) Delete(ctx context.Context, userID string, id int64) error {
	return s.store.DeleteBill(ctx, userID, id)
}

// MarkPaid records a payment and advances the bill to its next occurrence.
func (s *BillService) MarkPaid(ctx context.Context, userID string, id int64) (core.BillReminder, error) {
	b, err := s.store.MarkBillPaid(ctx, userID, id, s.now())
	if err != nil {
		return core.BillReminder{}, err
	}
	s.logger.InfoContext(ctx, "bill marked paid",
		log.FieldUserID, userID,
		log.FieldBillID, id,
		"nextDueDate", b.NextDueDate.Format("2006-01-02"))
	return b, nil
}

// MarkUnpaid undoes the most recent payment, restoring the exact prior due
// date.
func (s *BillService) MarkUnpaid(ctx context.Context, userID string, id int64) (core.BillReminder, error) {
	return s.store.MarkBillUnpaid(ctx, userID, id)
}

// DueSoon returns unpaid active bills due within horizonDays of today,
// today inclusive. horizonDays <= 0 falls back to the configured default.
func (s *BillService) DueSoon(ctx context.Context, userID string, horizonDays int) ([]core.BillReminder, error) {
	if horizonDays <= 0 {
		horizonDays = s.horizonDays
	}
	today := core.DateOnly(s.now())
	active, unpaid := true, false
	return s.store.ListBills(ctx, userID, storage.BillFilter{
		IsActive:      &active,
		IsPaid:        &unpaid,
		DueFrom:       &today,
		DueOnOrBefore: ptrTime(today.AddDate(0, 0, horizonDays)),
	}, storage.Page{})
}

// Overdue returns unpaid active bills whose due date is strictly before
// today.
func (s *BillService) Overdue(ctx context.Context, userID string) ([]core.BillReminder, error) {
	today := core.DateOnly(s.now())
	active, unpaid := true, false
	return s.store.ListBills(ctx, userID, storage.BillFilter{
		IsActive:      &active,
		IsPaid:        &unpaid,
		DueOnOrBefore: ptrTime(today.AddDate(0, 0, -1)),
	}, storage.Page{})
}

// CategoryTotal is a per-category count and sum.
type CategoryTotal struct {
	Category string     `json:"category"`
	Count    int        `json:"count"`
	Total    core.Money `json:"total"`
}

// BillSummary aggregates active bills in a single pass.
type BillSummary struct {
	TotalCount   int             `json:"totalCount"`
	UnpaidCount  int             `json:"unpaidCount"`
	OverdueCount int             `json:"overdueCount"`
	TotalAmount  core.Money      `json:"totalAmount"`
	UnpaidAmount core.Money      `json:"unpaidAmount"`
	ByCategory   []CategoryTotal `json:"byCategory"`
}

func (s *BillService) Summary(ctx context.Context, userID string) (BillSummary, error) {
	active := true
	bills, err := s.store.ListBills(ctx, userID, storage.BillFilter{IsActive: &active}, storage.Page{})
	if err != nil {
		return BillSummary{}, fmt.Errorf("bill summary: %w", err)
	}

	out := BillSummary{
		TotalAmount:  core.ZeroMoney(),
		UnpaidAmount: core.ZeroMoney(),
	}
	today := core.DateOnly(s.now())
	byCat := map[string]*CategoryTotal{}
	for _, b := range bills {
		out.TotalCount++
		out.TotalAmount = out.TotalAmount.Add(b.Amount)
		if !b.IsPaid {
			out.UnpaidCount++
			out.UnpaidAmount = out.UnpaidAmount.Add(b.Amount)
			if b.NextDueDate.Before(today) {
				out.OverdueCount++
			}
		}
		ct, ok := byCat[b.Category]
		if !ok {
			ct = &CategoryTotal{Category: b.Category, Total: core.ZeroMoney()}
			byCat[b.Category] = ct
		}
		ct.Count++
		ct.Total = ct.Total.Add(b.Amount)
	}
	for _, ct := range byCat {
		out.ByCategory = append(out.ByCategory, *ct)
	}
	sort.Slice(out.ByCategory, func(i, j int) bool { return out.ByCategory[i].Category < out.ByCategory[j].Category })
	return out, nil
}

func ptrTime(t time.Time) *time.Time { return &t }
