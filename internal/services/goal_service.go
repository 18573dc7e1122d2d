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

// GoalService manages savings goals and their progress.
type GoalService struct {
	store  GoalStore
	logger *log.Logger
	now    func() time.Time
}

func NewGoalService(store GoalStore, logger *log.Logger) *GoalService {
	return &GoalService{
		store:  store,
		logger: logger.WithComponent(log.ComponentGoal),
		now:    time.Now,
	}
}

func (s *GoalService) Create(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	g.UserID = userID
	g.IsCompleted = false
	if g.CurrentAmount.IsZero() {
		g.CurrentAmount = core.ZeroMoney()
	}
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if g.Deadline != nil {
		d := core.DateOnly(*g.Deadline)
		g.Deadline = &d
	}
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	if g.CurrentAmount.Cmp(g.TargetAmount) >= 0 {
		g.IsCompleted = true
	}
	if err := s.store.InsertGoal(ctx, &g); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Get(ctx context.Context, userID string, id int64) (core.FinancialGoal, error) {
	return s.store.GetGoal(ctx, userID, id)
}

func (s *GoalService) List(ctx context.Context, userID string, f storage.GoalFilter, page storage.Page) ([]core.FinancialGoal, error) {
	return s.store.ListGoals(ctx, userID, f, page)
}

// GoalPatch holds optional field updates. Nil fields are left as is.
type GoalPatch struct {
	Name         *string
	TargetAmount *core.Money
	Deadline     *time.Time
	Category     *string
	Priority     *core.Priority
}

func (s *GoalService) Update(ctx context.Context, userID string, id int64, patch GoalPatch) (core.FinancialGoal, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.TargetAmount != nil {
		g.TargetAmount = *patch.TargetAmount
	}
	if patch.Deadline != nil {
		d := core.DateOnly(*patch.Deadline)
		g.Deadline = &d
	}
	if patch.Category != nil {
		g.Category = *patch.Category
	}
	if patch.Priority != nil {
		g.Priority = *patch.Priority
	}
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	// A raised target can reopen a completed goal; a lowered one can
	// complete it.
	g.IsCompleted = g.CurrentAmount.Cmp(g.TargetAmount) >= 0
	if err := s.store.UpdateGoal(ctx, &g); err != nil {
		return core.FinancialGoal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID string, id int64) error {
	return s.store.DeleteGoal(ctx, userID, id)
}

// AddContribution adds a strictly positive amount toward the goal.
func (s *GoalService) AddContribution(ctx context.Context, userID string, id int64, amount core.Money) (core.FinancialGoal, error) {
	if !amount.IsPositive() {
		return core.FinancialGoal{}, core.ErrInvalidAmount
	}
	g, err := s.store.AddGoalContribution(ctx, userID, id, amount)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	if g.IsCompleted {
		s.logger.InfoContext(ctx, "goal completed",
			log.FieldUserID, userID,
			log.FieldGoalID, id)
	}
	return g, nil
}

// GoalProgress reports how far along a goal is and whether the pace matches
// its deadline.
type GoalProgress struct {
	Goal            core.FinancialGoal `json:"goal"`
	PercentComplete float64            `json:"percentComplete"`
	Remaining       core.Money         `json:"remaining"`
	DaysLeft        *int               `json:"daysLeft,omitempty"`
	OnTrack         bool               `json:"onTrack"`
}

// Progress caps percentComplete at 100 and floors remaining at zero even
// when contributions overshoot the target. A goal without a deadline is
// always on track; otherwise the completion ratio must be at least the
// elapsed share of the goal's lifetime.
func (s *GoalService) Progress(ctx context.Context, userID string, id int64) (GoalProgress, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return GoalProgress{}, err
	}

	p := GoalProgress{Goal: g, Remaining: core.ZeroMoney()}
	if g.TargetAmount.IsPositive() {
		p.PercentComplete = math.Min(100, math.Round(g.CurrentAmount.Ratio(g.TargetAmount)*10000)/100)
	}
	if rem := g.TargetAmount.Sub(g.CurrentAmount); rem.IsPositive() {
		p.Remaining = rem
	}

	if g.Deadline == nil || g.IsCompleted {
		p.OnTrack = true
		if g.Deadline != nil {
			p.DaysLeft = daysUntil(s.now(), *g.Deadline)
		}
		return p, nil
	}

	now := s.now()
	p.DaysLeft = daysUntil(now, *g.Deadline)
	total := g.Deadline.Sub(g.CreatedAt)
	if total <= 0 {
		return p, nil // deadline passed or never in the future, incomplete means off track
	}
	elapsed := math.Min(1, math.Max(0, float64(now.Sub(g.CreatedAt))/float64(total)))
	completion := 0.0
	if g.TargetAmount.IsPositive() {
		completion = g.CurrentAmount.Ratio(g.TargetAmount)
	}
	p.OnTrack = completion >= elapsed
	return p, nil
}

// ProgressAll reports progress for every goal in creation order.
func (s *GoalService) ProgressAll(ctx context.Context, userID string) ([]GoalProgress, error) {
	goals, err := s.store.ListGoals(ctx, userID, storage.GoalFilter{}, storage.Page{})
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		p, err := s.Progress(ctx, userID, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func daysUntil(now, deadline time.Time) *int {
	d := int(core.DateOnly(deadline).Sub(core.DateOnly(now)).Hours() / 24)
	return &d
}
