package storage

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Filters are explicit optional-field structs, validated once at the
// boundary. Nil fields mean "no constraint".

type TransactionFilter struct {
	Type         *core.TransactionType
	Status       *core.TransactionStatus
	Category     *string
	RelatedParty *string
	StartDate    *time.Time
	EndDate      *time.Time
}

type RecurringFilter struct {
	Type          *core.TransactionType
	Frequency     *core.Frequency
	IsActive      *bool
	DueOnOrBefore *time.Time
	DueFrom       *time.Time
}

type BillFilter struct {
	Category      *string
	IsActive      *bool
	IsPaid        *bool
	DueOnOrBefore *time.Time
	DueFrom       *time.Time
}

type BudgetFilter struct {
	Category *string
	IsActive *bool
}

type GoalFilter struct {
	Priority    *core.Priority
	Category    *string
	IsCompleted *bool
}

// Sort names a whitelisted sortable field. The zero value means the
// entity's natural order.
type Sort struct {
	Field string
	Desc  bool
}

// Page bounds a listing. Limit <= 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// transactionSortColumns whitelists ORDER BY targets; amount is compared
// numerically since it is stored as decimal text.
var transactionSortColumns = map[string]string{
	"transactionDate": "transaction_date",
	"dueDate":         "due_date",
	"amount":          "CAST(amount AS REAL)",
	"createdAt":       "created_at",
	"description":     "description",
}

// orderClause builds a deterministic ORDER BY: the requested column, then id
// as a tie-break. A zero-value Sort falls back to the entity's natural order.
func orderClause(s Sort, columns map[string]string, fallback Sort) (string, error) {
	if s.Field == "" {
		s = fallback
	}
	col, ok := columns[s.Field]
	if !ok {
		return "", core.Validation("sort", fmt.Sprintf("unsupported sort field %q", s.Field))
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir), nil
}

func limitClause(p Page) string {
	if p.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, max(p.Offset, 0))
}

// whereBuilder accumulates WHERE conditions and their args. user_id is
// always the first condition.
type whereBuilder struct {
	conds []string
	args  []any
}

func whereForUser(userID string) *whereBuilder {
	return &whereBuilder{conds: []string{"user_id = ?"}, args: []any{userID}}
}

func (w *whereBuilder) add(cond string, arg any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *whereBuilder) clause() string {
	return " WHERE " + strings.Join(w.conds, " AND ")
}
