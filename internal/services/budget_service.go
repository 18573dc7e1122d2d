package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService manages budgets and computes spending performance against
// them.
type BudgetService struct {
	budgets      BudgetStore
	transactions TransactionStore
	logger       *log.Logger
	now          func() time.Time
}

func NewBudgetService(budgets BudgetStore, transactions TransactionStore, logger *log.Logger) *BudgetService {
	return &BudgetService{
		budgets:      budgets,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentBudget),
		now:          time.Now,
	}
}

func (s *BudgetService) Create(ctx context.Context, userID string, b core.Budget) (core.Budget, error) {
	b.UserID = userID
	b.IsActive = true
	b.StartDate = core.DateOnly(b.StartDate)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.InsertBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, userID string, id int64) (core.Budget, error) {
	return s.budgets.GetBudget(ctx, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID string, f storage.BudgetFilter, page storage.Page) ([]core.Budget, error) {
	return s.budgets.ListBudgets(ctx, userID, f, page)
}

// BudgetPatch holds optional field updates. Nil fields are left as is.
type BudgetPatch struct {
	Category    *string
	LimitAmount *core.Money
	Period      *core.BudgetPeriod
	StartDate   *time.Time
	IsActive    *bool
}

func (s *BudgetService) Update(ctx context.Context, userID string, id int64, patch BudgetPatch) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if patch.LimitAmount != nil {
		b.LimitAmount = *patch.LimitAmount
	}
	if patch.Period != nil {
		b.Period = *patch.Period
	}
	if patch.StartDate != nil {
		b.StartDate = core.DateOnly(*patch.StartDate)
	}
	if patch.IsActive != nil {
		b.IsActive = *patch.IsActive
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.UpdateBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID string, id int64) error {
	return s.budgets.DeleteBudget(ctx, userID, id)
}

// BudgetPerformance reports spending against a budget for its current
// period window.
type BudgetPerformance struct {
	Budget       core.Budget `json:"budget"`
	PeriodStart  time.Time   `json:"periodStart"`
	PeriodEnd    time.Time   `json:"periodEnd"`
	Spent        core.Money  `json:"spent"`
	Remaining    core.Money  `json:"remaining"`
	PercentUsed  float64     `json:"percentUsed"`
	IsOverBudget bool        `json:"isOverBudget"`
}

// Performance computes the current period window and sums matching expenses
// over it. Cancelled entries never count; a zero limit reports 0% used.
func (s *BudgetService) Performance(ctx context.Context, userID string, id int64) (BudgetPerformance, error) {
	b, err := s.budgets.GetBudget(ctx, userID, id)
	if err != nil {
		return BudgetPerformance{}, err
	}

	start, end := periodWindow(b.Period, b.StartDate, core.DateOnly(s.now()))
	expense := core.Expense
	items, _, err := s.transactions.ListTransactions(ctx, userID, storage.TransactionFilter{
		Type:      &expense,
		Category:  &b.Category,
		StartDate: &start,
		EndDate:   &end,
	}, storage.Sort{}, storage.Page{})
	if err != nil {
		return BudgetPerformance{}, fmt.Errorf("budget performance: %w", err)
	}

	spent := core.ZeroMoney()
	for _, t := range items {
		if t.Status == core.StatusCancelled {
			continue
		}
		spent = spent.Add(t.Amount)
	}

	perf := BudgetPerformance{
		Budget:       b,
		PeriodStart:  start,
		PeriodEnd:    end,
		Spent:        spent,
		Remaining:    b.LimitAmount.Sub(spent),
		IsOverBudget: spent.GreaterThan(b.LimitAmount),
	}
	if b.LimitAmount.IsPositive() {
		perf.PercentUsed = math.Round(spent.Ratio(b.LimitAmount)*10000) / 100
	}
	return perf, nil
}

// PerformanceAll evaluates every active budget for the user.
func (s *BudgetService) PerformanceAll(ctx context.Context, userID string) ([]BudgetPerformance, error) {
	active := true
	budgets, err := s.budgets.ListBudgets(ctx, userID, storage.BudgetFilter{IsActive: &active}, storage.Page{})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]BudgetPerformance, 0, len(budgets))
	for _, b := range budgets {
		perf, err := s.Performance(ctx, userID, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, perf)
	}
	return out, nil
}

// periodWindow resolves the period containing today. Weekly windows are
// 7-day spans anchored on the budget's start date; monthly and yearly
// windows follow the calendar. A start date in the future anchors the first
// window at the start date itself.
func periodWindow(p core.BudgetPeriod, startDate, today time.Time) (time.Time, time.Time) {
	switch p {
	case core.BudgetWeekly:
		if today.Before(startDate) {
			return startDate, startDate.AddDate(0, 0, 6)
		}
		days := int(today.Sub(startDate).Hours() / 24)
		weekStart := startDate.AddDate(0, 0, (days/7)*7)
		return weekStart, weekStart.AddDate(0, 0, 6)
	case core.BudgetYearly:
		start := core.NewDate(today.Year(), time.January, 1)
		return start, core.NewDate(today.Year(), time.December, 31)
	default: // monthly
		start := core.NewDate(today.Year(), today.Month(), 1)
		return start, start.AddDate(0, 1, -1)
	}
}
