package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

type summaryFixture struct {
	svc      *SummaryService
	txSvc    *TransactionService
	txStore  *fakeTxStore
	invStore *fakeInvestmentStore
	goals    *fakeGoalStore
}

func newSummaryFixture(t *testing.T) *summaryFixture {
	t.Helper()
	now := fixedNow(2024, time.March, 15)

	txStore := newFakeTxStore()
	txSvc := newTxService(txStore, nil)

	billSvc := NewBillService(newFakeBillStore(), testLogger(), 0)
	billSvc.now = now

	recurringSvc := NewRecurringService(newFakeRecurringStore(), txSvc, testLogger())
	recurringSvc.now = now

	goalStore := newFakeGoalStore()
	goalSvc := NewGoalService(goalStore, testLogger())
	goalSvc.now = now

	invStore := newFakeInvestmentStore()
	positions := cache.NewLRUCache[FinancialPosition](100, time.Minute)

	svc := NewSummaryService(txSvc, billSvc, recurringSvc, goalSvc, invStore, positions, testLogger())
	svc.now = now
	txSvc.SetMutationHook(svc.Invalidate)

	return &summaryFixture{svc: svc, txSvc: txSvc, txStore: txStore, invStore: invStore, goals: goalStore}
}

func (f *summaryFixture) seedLedger(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	due := date(2024, time.April, 1)
	seed := []core.Transaction{
		{Type: core.Income, Amount: money(t, "3000.00"), Description: "salary", Category: "salary", TransactionDate: date(2024, time.March, 1)},
		{Type: core.Expense, Amount: money(t, "1200.00"), Description: "rent", Category: "housing", TransactionDate: date(2024, time.March, 2)},
		{Type: core.Expense, Amount: money(t, "300.00"), Description: "food", Category: "food", TransactionDate: date(2024, time.March, 5)},
		{Type: core.Debt, Amount: money(t, "500.00"), Description: "loan", RelatedParty: "bob", DueDate: &due, TransactionDate: date(2024, time.February, 10)},
		{Type: core.Receivable, Amount: money(t, "200.00"), Description: "iou", RelatedParty: "carol", DueDate: &due, TransactionDate: date(2024, time.February, 12)},
	}
	for _, tx := range seed {
		if _, err := f.txSvc.Create(ctx, "alice", tx); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	if err := f.invStore.UpsertInvestment(ctx, &core.Investment{
		UserID: "alice", Name: "index fund", Kind: "etf", Balance: money(t, "10000.00"),
	}); err != nil {
		t.Fatalf("seed investment: %v", err)
	}
}

func TestPositionNetWorth(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)

	pos, err := f.svc.Position(context.Background(), "alice", nil, nil)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got := pos.TotalIncome.String(); got != "3000.00" {
		t.Errorf("income = %s", got)
	}
	if got := pos.TotalExpenses.String(); got != "1500.00" {
		t.Errorf("expenses = %s", got)
	}
	if got := pos.CashFlow.String(); got != "1500.00" {
		t.Errorf("cashFlow = %s", got)
	}
	// 1500 - 500 + 200 + 10000
	if got := pos.NetWorth.String(); got != "11200.00" {
		t.Errorf("netWorth = %s, want 11200.00", got)
	}
}

func TestPositionCacheAndInvalidation(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)
	ctx := context.Background()

	first, err := f.svc.Position(ctx, "alice", nil, nil)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}

	// A write behind the cache's back is not visible until invalidation.
	f.txStore.items[999] = core.Transaction{
		ID: 999, UserID: "alice", Type: core.Income, Amount: money(t, "100.00"),
		Description: "stale", Category: "misc", Status: core.StatusActive,
		TransactionDate: date(2024, time.March, 10),
	}
	cached, err := f.svc.Position(ctx, "alice", nil, nil)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !cached.TotalIncome.Equal(first.TotalIncome) {
		t.Error("expected the cached position")
	}

	f.svc.Invalidate("alice")
	fresh, err := f.svc.Position(ctx, "alice", nil, nil)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got := fresh.TotalIncome.String(); got != "3100.00" {
		t.Errorf("income after invalidation = %s, want 3100.00", got)
	}
}

func TestLedgerWritesInvalidatePositions(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)
	ctx := context.Background()

	if _, err := f.svc.Position(ctx, "alice", nil, nil); err != nil {
		t.Fatalf("Position: %v", err)
	}
	if _, err := f.txSvc.Create(ctx, "alice", core.Transaction{
		Type: core.Income, Amount: money(t, "500.00"), Description: "bonus",
		Category: "salary", TransactionDate: date(2024, time.March, 12),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pos, err := f.svc.Position(ctx, "alice", nil, nil)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got := pos.TotalIncome.String(); got != "3500.00" {
		t.Errorf("income = %s, want 3500.00 after the mutation hook fired", got)
	}
}

func TestGrowthBetween(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		previous   string
		wantRate   float64
		wantAmount string
		wantPos    bool
	}{
		{"from zero to positive", "1000.00", "0", 100, "1000.00", true},
		{"from zero to zero", "0", "0", 0, "0.00", true},
		{"fifty percent up", "150.00", "100.00", 50, "50.00", true},
		{"twenty percent down", "80.00", "100.00", -20, "-20.00", false},
		{"unchanged", "100.00", "100.00", 0, "0.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GrowthBetween(money(t, tt.current), money(t, tt.previous))
			if g.GrowthRate != tt.wantRate {
				t.Errorf("rate = %v, want %v", g.GrowthRate, tt.wantRate)
			}
			if g.GrowthAmount.String() != tt.wantAmount {
				t.Errorf("amount = %s, want %s", g.GrowthAmount, tt.wantAmount)
			}
			if g.IsPositive != tt.wantPos {
				t.Errorf("isPositive = %v, want %v", g.IsPositive, tt.wantPos)
			}
		})
	}
}

func TestMonthlyComparisonUsesCalendarWindows(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{Type: core.Income, Amount: money(t, "100.00"), Description: "feb income", Category: "misc", TransactionDate: date(2024, time.February, 10)},
		{Type: core.Income, Amount: money(t, "150.00"), Description: "mar income", Category: "misc", TransactionDate: date(2024, time.March, 10)},
		{Type: core.Income, Amount: money(t, "999.00"), Description: "jan noise", Category: "misc", TransactionDate: date(2024, time.January, 10)},
	}
	for _, tx := range seed {
		if _, err := f.txSvc.Create(ctx, "alice", tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cmp, err := f.svc.MonthlyComparison(ctx, "alice")
	if err != nil {
		t.Fatalf("MonthlyComparison: %v", err)
	}
	if got := cmp.Current.TotalIncome.String(); got != "150.00" {
		t.Errorf("current income = %s, want 150.00", got)
	}
	if got := cmp.Previous.TotalIncome.String(); got != "100.00" {
		t.Errorf("previous income = %s, want 100.00", got)
	}
	if cmp.IncomeGrowth.GrowthRate != 50 {
		t.Errorf("income growth = %v, want 50", cmp.IncomeGrowth.GrowthRate)
	}
}

func TestTrendsAscendingAndIndependent(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		{Type: core.Income, Amount: money(t, "10.00"), Description: "jan", Category: "misc", TransactionDate: date(2024, time.January, 5)},
		{Type: core.Income, Amount: money(t, "20.00"), Description: "feb", Category: "misc", TransactionDate: date(2024, time.February, 5)},
		{Type: core.Income, Amount: money(t, "30.00"), Description: "mar", Category: "misc", TransactionDate: date(2024, time.March, 5)},
	} {
		if _, err := f.txSvc.Create(ctx, "alice", tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	points, err := f.svc.Trends(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("Trends: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	wantMonths := []time.Month{time.January, time.February, time.March}
	wantIncome := []string{"10.00", "20.00", "30.00"}
	for i, p := range points {
		if p.Month != wantMonths[i] || p.Year != 2024 {
			t.Errorf("point %d = %d-%s, want 2024-%s", i, p.Year, p.Month, wantMonths[i])
		}
		if p.Income.String() != wantIncome[i] {
			t.Errorf("point %d income = %s, want %s", i, p.Income, wantIncome[i])
		}
	}
}

func TestHealthScore(t *testing.T) {
	pos := func(income, expenses, debts, netWorth string) FinancialPosition {
		p := FinancialPosition{
			TotalIncome:      mustMoney(income),
			TotalExpenses:    mustMoney(expenses),
			OutstandingDebts: mustMoney(debts),
			NetWorth:         mustMoney(netWorth),
		}
		p.CashFlow = p.TotalIncome.Sub(p.TotalExpenses)
		return p
	}

	perfect := HealthScore(pos("1000", "0", "0", "1000"))
	if perfect != 100 {
		t.Errorf("score = %v, want 100 for all income saved, no debt, positive net worth", perfect)
	}
	broke := HealthScore(pos("0", "500", "1000", "-1500"))
	if broke != 0 {
		t.Errorf("score = %v, want 0", broke)
	}

	// More savings never lowers the score.
	lowSave := HealthScore(pos("1000", "900", "0", "100"))
	highSave := HealthScore(pos("1000", "100", "0", "900"))
	if highSave <= lowSave {
		t.Errorf("savings monotonicity violated: %v <= %v", highSave, lowSave)
	}

	// More debt never raises the score.
	lowDebt := HealthScore(pos("1000", "500", "100", "400"))
	highDebt := HealthScore(pos("1000", "500", "5000", "400"))
	if highDebt >= lowDebt {
		t.Errorf("debt monotonicity violated: %v >= %v", highDebt, lowDebt)
	}

	for _, p := range []FinancialPosition{
		pos("0", "0", "0", "0"),
		pos("1", "100000", "99999", "-100000"),
		pos("100000", "0", "0", "100000"),
	} {
		s := HealthScore(p)
		if s < 0 || s > 100 {
			t.Errorf("score %v out of range for %+v", s, p)
		}
	}
}

func TestRealTimeMetricsBypassesCache(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)
	ctx := context.Background()

	if _, err := f.svc.Position(ctx, "alice", nil, nil); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	// Slip a row in without touching the hook: the cached position misses
	// it, real-time metrics must not.
	f.txStore.items[999] = core.Transaction{
		ID: 999, UserID: "alice", Type: core.Income, Amount: money(t, "111.00"),
		Description: "fresh", Category: "misc", Status: core.StatusActive,
		TransactionDate: date(2024, time.March, 14),
	}

	m, err := f.svc.RealTimeMetricsFor(ctx, "alice")
	if err != nil {
		t.Fatalf("RealTimeMetricsFor: %v", err)
	}
	if got := m.Position.TotalIncome.String(); got != "3111.00" {
		t.Errorf("realtime income = %s, want 3111.00", got)
	}
	if m.AsOf.IsZero() {
		t.Error("asOf not set")
	}
}

func TestDashboardAssemblesAllSections(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)
	ctx := context.Background()

	if _, err := f.goals.AddGoalContribution(ctx, "alice", 0, core.ZeroMoney()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("sanity: %v", err)
	}
	f.goals.items[1] = core.FinancialGoal{
		ID: 1, UserID: "alice", Name: "fund",
		TargetAmount:  money(t, "1000.00"),
		CurrentAmount: money(t, "250.00"),
		CreatedAt:     date(2024, time.January, 1),
	}

	d, err := f.svc.DashboardFor(ctx, "alice")
	if err != nil {
		t.Fatalf("DashboardFor: %v", err)
	}
	if d.Position.NetWorth.String() != "11200.00" {
		t.Errorf("netWorth = %s", d.Position.NetWorth)
	}
	if d.HealthScore <= 0 {
		t.Errorf("healthScore = %v, want > 0", d.HealthScore)
	}
	if len(d.Trends) != 6 {
		t.Errorf("trends = %d, want 6", len(d.Trends))
	}
	if len(d.Goals) != 1 || d.Goals[0].PercentComplete != 25 {
		t.Errorf("goals = %+v", d.Goals)
	}
	if d.Investments.Count != 1 || d.Investments.Total.String() != "10000.00" {
		t.Errorf("investments = %+v", d.Investments)
	}
	if d.Obligations.TotalDebts.String() != "500.00" {
		t.Errorf("obligations = %+v", d.Obligations)
	}
	if len(d.RecentTransactions) == 0 {
		t.Error("recentTransactions empty")
	}
	if d.GeneratedAt.IsZero() {
		t.Error("generatedAt not set")
	}
}

func TestDashboardFailsWhenAnySectionFails(t *testing.T) {
	f := newSummaryFixture(t)
	f.seedLedger(t)
	f.invStore.err = errStore

	if _, err := f.svc.DashboardFor(context.Background(), "alice"); !errors.Is(err, errStore) {
		t.Fatalf("DashboardFor err = %v, want the store failure", err)
	}
}

func mustMoney(s string) core.Money {
	m, err := core.ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}
