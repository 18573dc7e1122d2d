// Package memory is an in-process TransactionAppender used in tests and
// local development without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Appender struct {
	mu   sync.Mutex
	rows []core.Transaction
	err  error
}

var _ ports.TransactionAppender = (*Appender)(nil)

func New() *Appender { return &Appender{} }

// Fail makes every subsequent Append return err.
func (a *Appender) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *Appender) Append(_ context.Context, t core.Transaction) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.rows = append(a.rows, t)
	return fmt.Sprintf("mem:%d", len(a.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []core.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Transaction, len(a.rows))
	copy(out, a.rows)
	return out
}
