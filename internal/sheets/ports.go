// Package sheets defines the outbound port for the ledger export pipeline.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// TransactionAppender writes one ledger row to the export destination and
// returns an opaque row reference.
type TransactionAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
