package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// SummaryService computes composite views over the ledger: net position,
// month-over-month comparisons, trends, health scoring and the dashboard.
type SummaryService struct {
	transactions *TransactionService
	bills        *BillService
	recurring    *RecurringService
	goals        *GoalService
	investments  InvestmentStore
	positions    *cache.LRUCache[FinancialPosition]
	logger       *log.Logger
	now          func() time.Time
}

func NewSummaryService(
	transactions *TransactionService,
	bills *BillService,
	recurring *RecurringService,
	goals *GoalService,
	investments InvestmentStore,
	positions *cache.LRUCache[FinancialPosition],
	logger *log.Logger,
) *SummaryService {
	return &SummaryService{
		transactions: transactions,
		bills:        bills,
		recurring:    recurring,
		goals:        goals,
		investments:  investments,
		positions:    positions,
		logger:       logger.WithComponent(log.ComponentSummary),
		now:          time.Now,
	}
}

// Invalidate drops every cached position for the user. Wired as the ledger
// mutation hook.
func (s *SummaryService) Invalidate(userID string) {
	if s.positions != nil {
		s.positions.DeletePrefix(positionKeyPrefix(userID))
	}
}

// FinancialPosition is a point-in-time snapshot over an optional date
// window. netWorth folds open obligations and investment balances into the
// cash flow; cashFlow is income minus expenses alone.
type FinancialPosition struct {
	TotalIncome            core.Money `json:"totalIncome"`
	TotalExpenses          core.Money `json:"totalExpenses"`
	OutstandingDebts       core.Money `json:"outstandingDebts"`
	OutstandingReceivables core.Money `json:"outstandingReceivables"`
	InvestmentTotal        core.Money `json:"investmentTotal"`
	CashFlow               core.Money `json:"cashFlow"`
	NetWorth               core.Money `json:"netWorth"`
}

func positionKeyPrefix(userID string) string { return "pos:" + userID + ":" }

func positionKey(userID string, start, end *time.Time) string {
	from, to := "", ""
	if start != nil {
		from = start.Format("2006-01-02")
	}
	if end != nil {
		to = end.Format("2006-01-02")
	}
	return positionKeyPrefix(userID) + from + ":" + to
}

// Position computes the snapshot for the window, serving from the cache
// when possible. Obligations and investments are current balances and
// ignore the window; income and expenses are summed over it.
func (s *SummaryService) Position(ctx context.Context, userID string, start, end *time.Time) (FinancialPosition, error) {
	key := positionKey(userID, start, end)
	if s.positions != nil {
		if pos, ok := s.positions.Get(key); ok {
			return pos, nil
		}
	}
	pos, err := s.computePosition(ctx, userID, start, end)
	if err != nil {
		return FinancialPosition{}, err
	}
	if s.positions != nil {
		s.positions.Set(key, pos)
	}
	return pos, nil
}

func (s *SummaryService) computePosition(ctx context.Context, userID string, start, end *time.Time) (FinancialPosition, error) {
	items, _, err := s.transactions.List(ctx, userID,
		storage.TransactionFilter{StartDate: start, EndDate: end},
		storage.Sort{}, storage.Page{})
	if err != nil {
		return FinancialPosition{}, fmt.Errorf("position: %w", err)
	}

	pos := FinancialPosition{
		TotalIncome:            core.ZeroMoney(),
		TotalExpenses:          core.ZeroMoney(),
		OutstandingDebts:       core.ZeroMoney(),
		OutstandingReceivables: core.ZeroMoney(),
		InvestmentTotal:        core.ZeroMoney(),
	}
	for _, t := range items {
		if t.Status == core.StatusCancelled {
			continue
		}
		switch t.Type {
		case core.Income:
			pos.TotalIncome = pos.TotalIncome.Add(t.Amount)
		case core.Expense:
			pos.TotalExpenses = pos.TotalExpenses.Add(t.Amount)
		case core.Debt:
			if t.Status == core.StatusActive {
				pos.OutstandingDebts = pos.OutstandingDebts.Add(t.Amount)
			}
		case core.Receivable:
			if t.Status == core.StatusActive {
				pos.OutstandingReceivables = pos.OutstandingReceivables.Add(t.Amount)
			}
		}
	}

	invs, err := s.investments.ListInvestments(ctx, userID)
	if err != nil {
		return FinancialPosition{}, fmt.Errorf("position investments: %w", err)
	}
	for _, inv := range invs {
		pos.InvestmentTotal = pos.InvestmentTotal.Add(inv.Balance)
	}

	pos.CashFlow = pos.TotalIncome.Sub(pos.TotalExpenses)
	pos.NetWorth = pos.CashFlow.
		Sub(pos.OutstandingDebts).
		Add(pos.OutstandingReceivables).
		Add(pos.InvestmentTotal)
	return pos, nil
}

// Growth describes the change between two values of one metric.
type Growth struct {
	GrowthRate   float64    `json:"growthRate"`
	GrowthAmount core.Money `json:"growthAmount"`
	IsPositive   bool       `json:"isPositive"`
}

// GrowthBetween reports current against previous. When previous is zero the
// rate is 100 for any positive current value and 0 otherwise, and the sign
// follows the current value.
func GrowthBetween(current, previous core.Money) Growth {
	g := Growth{GrowthAmount: current.Sub(previous)}
	if previous.IsZero() {
		if current.IsPositive() {
			g.GrowthRate = 100
		}
		g.IsPositive = !current.IsNegative()
		return g
	}
	g.GrowthRate = math.Round(g.GrowthAmount.Ratio(previous)*10000) / 100
	g.IsPositive = !g.GrowthAmount.IsNegative()
	return g
}

// MonthlyComparison sets the current calendar month against the previous
// one.
type MonthlyComparison struct {
	Current        FinancialPosition `json:"current"`
	Previous       FinancialPosition `json:"previous"`
	IncomeGrowth   Growth            `json:"incomeGrowth"`
	ExpenseGrowth  Growth            `json:"expenseGrowth"`
	CashFlowGrowth Growth            `json:"cashFlowGrowth"`
}

func (s *SummaryService) MonthlyComparison(ctx context.Context, userID string) (MonthlyComparison, error) {
	now := s.now()
	curStart, curEnd := monthWindow(now.Year(), now.Month())
	prevStart, prevEnd := monthWindow(curStart.AddDate(0, -1, 0).Year(), curStart.AddDate(0, -1, 0).Month())

	current, err := s.Position(ctx, userID, &curStart, &curEnd)
	if err != nil {
		return MonthlyComparison{}, err
	}
	previous, err := s.Position(ctx, userID, &prevStart, &prevEnd)
	if err != nil {
		return MonthlyComparison{}, err
	}
	return MonthlyComparison{
		Current:        current,
		Previous:       previous,
		IncomeGrowth:   GrowthBetween(current.TotalIncome, previous.TotalIncome),
		ExpenseGrowth:  GrowthBetween(current.TotalExpenses, previous.TotalExpenses),
		CashFlowGrowth: GrowthBetween(current.CashFlow, previous.CashFlow),
	}, nil
}

// MonthlyPoint is one month of a trend series.
type MonthlyPoint struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	CashFlow core.Money `json:"cashFlow"`
}

// Trends returns up to monthsBack calendar months ending with the current
// one, oldest first. Each month is computed independently over its own
// window.
func (s *SummaryService) Trends(ctx context.Context, userID string, monthsBack int) ([]MonthlyPoint, error) {
	if monthsBack <= 0 {
		monthsBack = 6
	}
	now := s.now()
	points := make([]MonthlyPoint, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		ref := core.NewDate(now.Year(), now.Month(), 1).AddDate(0, -i, 0)
		start, end := monthWindow(ref.Year(), ref.Month())
		pos, err := s.Position(ctx, userID, &start, &end)
		if err != nil {
			return nil, err
		}
		points = append(points, MonthlyPoint{
			Year:     ref.Year(),
			Month:    ref.Month(),
			Income:   pos.TotalIncome,
			Expenses: pos.TotalExpenses,
			CashFlow: pos.CashFlow,
		})
	}
	return points, nil
}

// HealthScore grades a position between 0 and 100. Savings rate is worth up
// to 40 points, a low debt-to-income ratio up to 30, and a non-negative net
// worth up to 30.
func HealthScore(p FinancialPosition) float64 {
	score := 0.0

	if p.TotalIncome.IsPositive() {
		savingsRate := math.Max(0, math.Min(1, p.CashFlow.Ratio(p.TotalIncome)))
		score += 40 * savingsRate
	}

	switch {
	case p.TotalIncome.IsPositive():
		ratio := math.Max(0, p.OutstandingDebts.Ratio(p.TotalIncome))
		score += 30 / (1 + ratio)
	case !p.OutstandingDebts.IsPositive():
		score += 30
	}

	switch {
	case p.NetWorth.IsPositive():
		score += 30
	case p.NetWorth.IsZero():
		score += 15
	}

	return math.Max(0, math.Min(100, math.Round(score*10)/10))
}

// RealTimeMetrics is the freshness-sensitive slice of the dashboard.
type RealTimeMetrics struct {
	AsOf              time.Time         `json:"asOf"`
	Position          FinancialPosition `json:"position"`
	HealthScore       float64           `json:"healthScore"`
	OverdueDebts      int               `json:"overdueDebts"`
	OverdueBills      int               `json:"overdueBills"`
	BillsDueSoon      int               `json:"billsDueSoon"`
	RecurringDueCount int               `json:"recurringDueCount"`
}

// RealTimeMetricsFor recomputes everything, bypassing the position cache.
func (s *SummaryService) RealTimeMetricsFor(ctx context.Context, userID string) (RealTimeMetrics, error) {
	pos, err := s.computePosition(ctx, userID, nil, nil)
	if err != nil {
		return RealTimeMetrics{}, err
	}
	overdue, err := s.transactions.Overdue(ctx, userID)
	if err != nil {
		return RealTimeMetrics{}, err
	}
	overdueBills, err := s.bills.Overdue(ctx, userID)
	if err != nil {
		return RealTimeMetrics{}, err
	}
	dueSoon, err := s.bills.DueSoon(ctx, userID, 0)
	if err != nil {
		return RealTimeMetrics{}, err
	}
	recurringDue, err := s.recurring.DueSoon(ctx, userID, 0)
	if err != nil {
		return RealTimeMetrics{}, err
	}
	return RealTimeMetrics{
		AsOf:              s.now(),
		Position:          pos,
		HealthScore:       HealthScore(pos),
		OverdueDebts:      len(overdue.Debts),
		OverdueBills:      len(overdueBills),
		BillsDueSoon:      len(dueSoon),
		RecurringDueCount: len(recurringDue),
	}, nil
}

// InvestmentSummary totals investment balances by kind.
type InvestmentSummary struct {
	Count  int             `json:"count"`
	Total  core.Money      `json:"total"`
	ByKind []CategoryTotal `json:"byKind"`
}

func (s *SummaryService) InvestmentSummaryFor(ctx context.Context, userID string) (InvestmentSummary, error) {
	invs, err := s.investments.ListInvestments(ctx, userID)
	if err != nil {
		return InvestmentSummary{}, fmt.Errorf("investment summary: %w", err)
	}
	out := InvestmentSummary{Total: core.ZeroMoney()}
	byKind := map[string]int{}
	for _, inv := range invs {
		out.Count++
		out.Total = out.Total.Add(inv.Balance)
		idx, ok := byKind[inv.Kind]
		if !ok {
			out.ByKind = append(out.ByKind, CategoryTotal{Category: inv.Kind, Total: core.ZeroMoney()})
			idx = len(out.ByKind) - 1
			byKind[inv.Kind] = idx
		}
		out.ByKind[idx].Count++
		out.ByKind[idx].Total = out.ByKind[idx].Total.Add(inv.Balance)
	}
	return out, nil
}

// Dashboard is the composite view assembled by concurrent sub-queries.
type Dashboard struct {
	GeneratedAt        time.Time             `json:"generatedAt"`
	Position           FinancialPosition     `json:"position"`
	HealthScore        float64               `json:"healthScore"`
	Comparison         MonthlyComparison     `json:"comparison"`
	Trends             []MonthlyPoint        `json:"trends"`
	Overdue            OverdueReport         `json:"overdue"`
	Obligations        DebtReceivableSummary `json:"obligations"`
	UpcomingBills      []core.BillReminder   `json:"upcomingBills"`
	Bills              BillSummary           `json:"bills"`
	Recurring          RecurringSummary      `json:"recurring"`
	Goals              []GoalProgress        `json:"goals"`
	Investments        InvestmentSummary     `json:"investments"`
	RecentTransactions []core.Transaction    `json:"recentTransactions"`
}

const recentTransactionLimit = 10

// DashboardFor fans the sub-queries out in parallel and fails the whole
// composite if any of them fails. The storage layer serializes writes but
// reads are safe to run concurrently.
func (s *SummaryService) DashboardFor(ctx context.Context, userID string) (Dashboard, error) {
	started := s.now()
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pos, err := s.computePosition(gctx, userID, nil, nil)
		if err != nil {
			return err
		}
		d.Position = pos
		d.HealthScore = HealthScore(pos)
		return nil
	})
	g.Go(func() error {
		cmp, err := s.MonthlyComparison(gctx, userID)
		if err != nil {
			return err
		}
		d.Comparison = cmp
		return nil
	})
	g.Go(func() error {
		tr, err := s.Trends(gctx, userID, 6)
		if err != nil {
			return err
		}
		d.Trends = tr
		return nil
	})
	g.Go(func() error {
		rep, err := s.transactions.Overdue(gctx, userID)
		if err != nil {
			return err
		}
		d.Overdue = rep
		return nil
	})
	g.Go(func() error {
		sum, err := s.transactions.Summary(gctx, userID)
		if err != nil {
			return err
		}
		d.Obligations = sum
		return nil
	})
	g.Go(func() error {
		bills, err := s.bills.DueSoon(gctx, userID, 0)
		if err != nil {
			return err
		}
		d.UpcomingBills = bills
		return nil
	})
	g.Go(func() error {
		sum, err := s.bills.Summary(gctx, userID)
		if err != nil {
			return err
		}
		d.Bills = sum
		return nil
	})
	g.Go(func() error {
		sum, err := s.recurring.Summary(gctx, userID)
		if err != nil {
			return err
		}
		d.Recurring = sum
		return nil
	})
	g.Go(func() error {
		goals, err := s.goals.ProgressAll(gctx, userID)
		if err != nil {
			return err
		}
		d.Goals = goals
		return nil
	})
	g.Go(func() error {
		sum, err := s.InvestmentSummaryFor(gctx, userID)
		if err != nil {
			return err
		}
		d.Investments = sum
		return nil
	})
	g.Go(func() error {
		recent, _, err := s.transactions.List(gctx, userID,
			storage.TransactionFilter{},
			storage.Sort{Field: "transactionDate", Desc: true},
			storage.Page{Limit: recentTransactionLimit})
		if err != nil {
			return err
		}
		d.RecentTransactions = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	d.GeneratedAt = started
	s.logger.DebugContext(ctx, "dashboard assembled",
		log.FieldUserID, userID,
		log.FieldDuration, s.now().Sub(started).Milliseconds())
	return d, nil
}

func monthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := core.NewDate(year, month, 1)
	return start, start.AddDate(0, 1, -1)
}
