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

// TransactionService manages the ledger: plain income and expense entries
// plus debt and receivable obligations.
type TransactionService struct {
	store     TransactionStore
	publisher ExportPublisher
	logger    *log.Logger
	onMutate  func(userID string)
	now       func() time.Time
}

func NewTransactionService(store TransactionStore, publisher ExportPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
	}
}

// SetMutationHook registers a callback invoked after every successful write,
// used to invalidate cached positions for the affected user.
func (s *TransactionService) SetMutationHook(fn func(userID string)) {
	s.onMutate = fn
}

func (s *TransactionService) mutated(userID string) {
	if s.onMutate != nil {
		s.onMutate(userID)
	}
}

// Create validates and persists a transaction, then emits an export event.
// A publish failure is logged, never surfaced: the ledger write already
// succeeded and the export worker drains pending rows on startup.
func (s *TransactionService) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.UserID = userID
	if t.Status == "" {
		t.Status = core.StatusActive
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = core.DateOnly(s.now())
	} else {
		t.TransactionDate = core.DateOnly(t.TransactionDate)
	}
	if t.DueDate != nil {
		d := core.DateOnly(*t.DueDate)
		t.DueDate = &d
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.InsertTransaction(ctx, &t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.mutated(userID)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, userID, t.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to publish sync event",
				log.FieldTransactionID, t.ID,
				log.FieldError, err)
		}
	}
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID string, f storage.TransactionFilter, sortBy storage.Sort, page storage.Page) ([]core.Transaction, int, error) {
	return s.store.ListTransactions(ctx, userID, f, sortBy, page)
}

// TransactionPatch holds optional field updates. Nil fields are left as is.
type TransactionPatch struct {
	Type            *core.TransactionType
	Amount          *core.Money
	Description     *string
	Category        *string
	RelatedParty    *string
	TransactionDate *time.Time
	DueDate         *time.Time
	Status          *core.TransactionStatus
}

func (s *TransactionService) Update(ctx context.Context, userID string, id int64, patch TransactionPatch) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.RelatedParty != nil {
		t.RelatedParty = *patch.RelatedParty
	}
	if patch.TransactionDate != nil {
		t.TransactionDate = core.DateOnly(*patch.TransactionDate)
	}
	if patch.DueDate != nil {
		d := core.DateOnly(*patch.DueDate)
		t.DueDate = &d
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, &t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.mutated(userID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.mutated(userID)
	return nil
}

// Settle marks a debt as settled. The row must be an active debt.
func (s *TransactionService) Settle(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	return s.close(ctx, userID, id, core.Debt)
}

// Collect marks a receivable as settled.
func (s *TransactionService) Collect(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	return s.close(ctx, userID, id, core.Receivable)
}

func (s *TransactionService) close(ctx context.Context, userID string, id int64, want core.TransactionType) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Type != want {
		return core.Transaction{}, core.Validation("type", fmt.Sprintf("transaction is not a %s", want))
	}
	if t.Status != core.StatusActive {
		return core.Transaction{}, core.Validation("status", "transaction is not active")
	}
	updated, err := s.store.SetTransactionStatus(ctx, userID, id, core.StatusSettled)
	if err != nil {
		return core.Transaction{}, err
	}
	s.mutated(userID)
	return updated, nil
}

// Cancel voids any active transaction without deleting it.
func (s *TransactionService) Cancel(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	t, err := s.store.SetTransactionStatus(ctx, userID, id, core.StatusCancelled)
	if err != nil {
		return core.Transaction{}, err
	}
	s.mutated(userID)
	return t, nil
}

// PartyBalance is the net position against a single counterparty.
type PartyBalance struct {
	Party       string     `json:"party"`
	Owed        core.Money `json:"owed"`
	Owing       core.Money `json:"owing"`
	Net         core.Money `json:"net"`
	OpenEntries int        `json:"openEntries"`
}

// DebtReceivableSummary aggregates open obligations in a single pass.
type DebtReceivableSummary struct {
	TotalDebts          core.Money     `json:"totalDebts"`
	TotalReceivables    core.Money     `json:"totalReceivables"`
	NetPosition         core.Money     `json:"netPosition"`
	ActiveDebtCount     int            `json:"activeDebtCount"`
	ActiveReceivableCnt int            `json:"activeReceivableCount"`
	SettledDebtCount    int            `json:"settledDebtCount"`
	SettledRecvCount    int            `json:"settledReceivableCount"`
	ByParty             []PartyBalance `json:"byParty"`
}

// Summary walks every debt and receivable once. Only active entries
// contribute to totals and per-party balances; settled ones are counted.
func (s *TransactionService) Summary(ctx context.Context, userID string) (DebtReceivableSummary, error) {
	items, _, err := s.store.ListTransactions(ctx, userID, storage.TransactionFilter{}, storage.Sort{}, storage.Page{})
	if err != nil {
		return DebtReceivableSummary{}, fmt.Errorf("obligation summary: %w", err)
	}

	out := DebtReceivableSummary{
		TotalDebts:       core.ZeroMoney(),
		TotalReceivables: core.ZeroMoney(),
		NetPosition:      core.ZeroMoney(),
	}
	parties := map[string]*PartyBalance{}
	for _, t := range items {
		if t.Type != core.Debt && t.Type != core.Receivable {
			continue
		}
		party := t.RelatedParty
		switch {
		case t.Status == core.StatusActive && t.Type == core.Debt:
			out.TotalDebts = out.TotalDebts.Add(t.Amount)
			out.ActiveDebtCount++
			pb := partyEntry(parties, party)
			pb.Owed = pb.Owed.Add(t.Amount)
			pb.OpenEntries++
		case t.Status == core.StatusActive && t.Type == core.Receivable:
			out.TotalReceivables = out.TotalReceivables.Add(t.Amount)
			out.ActiveReceivableCnt++
			pb := partyEntry(parties, party)
			pb.Owing = pb.Owing.Add(t.Amount)
			pb.OpenEntries++
		case t.Status == core.StatusSettled && t.Type == core.Debt:
			out.SettledDebtCount++
		case t.Status == core.StatusSettled && t.Type == core.Receivable:
			out.SettledRecvCount++
		}
	}
	out.NetPosition = out.TotalReceivables.Sub(out.TotalDebts)

	for _, pb := range parties {
		pb.Net = pb.Owing.Sub(pb.Owed)
		out.ByParty = append(out.ByParty, *pb)
	}
	sort.Slice(out.ByParty, func(i, j int) bool { return out.ByParty[i].Party < out.ByParty[j].Party })
	return out, nil
}

func partyEntry(m map[string]*PartyBalance, party string) *PartyBalance {
	pb, ok := m[party]
	if !ok {
		pb = &PartyBalance{Party: party, Owed: core.ZeroMoney(), Owing: core.ZeroMoney(), Net: core.ZeroMoney()}
		m[party] = pb
	}
	return pb
}

// OverdueReport lists active obligations whose due date has passed.
type OverdueReport struct {
	Debts       []core.Transaction `json:"overdueDebts"`
	Receivables []core.Transaction `json:"overdueReceivables"`
}

func (s *TransactionService) Overdue(ctx context.Context, userID string) (OverdueReport, error) {
	status := core.StatusActive
	items, _, err := s.store.ListTransactions(ctx, userID,
		storage.TransactionFilter{Status: &status},
		storage.Sort{Field: "dueDate"}, storage.Page{})
	if err != nil {
		return OverdueReport{}, fmt.Errorf("overdue report: %w", err)
	}
	today := s.now()
	report := OverdueReport{
		Debts:       []core.Transaction{},
		Receivables: []core.Transaction{},
	}
	for _, t := range items {
		if !t.IsOverdue(today) {
			continue
		}
		switch t.Type {
		case core.Debt:
			report.Debts = append(report.Debts, t)
		case core.Receivable:
			report.Receivables = append(report.Receivables, t)
		}
	}
	return report, nil
}
