package sheets

import (
	"context"

	"cashlog/internal/core"
)

// TransactionAppender mirrors posted transactions to an external spreadsheet.
type TransactionAppender interface {
	// Append writes one transaction as a row and returns a reference to it.
	Append(ctx context.Context, tx *core.Transaction) (rowRef string, err error)
}
