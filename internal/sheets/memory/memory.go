package memory

import (
	"context"
	"fmt"
	"sync"

	"cashlog/internal/core"
	"cashlog/internal/sheets"
)

// Appender is an in-memory sheets.TransactionAppender used in tests and
// when no spreadsheet is configured.
type Appender struct {
	mu   sync.Mutex
	rows []*core.Transaction

	// FailNext makes the next Append call return an error.
	FailNext bool
}

var _ sheets.TransactionAppender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) Append(_ context.Context, tx *core.Transaction) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.FailNext {
		a.FailNext = false
		return "", fmt.Errorf("append %s: simulated failure", tx.ID)
	}

	a.rows = append(a.rows, tx)
	return fmt.Sprintf("memory!A%d", len(a.rows)), nil
}

// Rows returns a copy of the appended transactions.
func (a *Appender) Rows() []*core.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*core.Transaction, len(a.rows))
	copy(out, a.rows)
	return out
}
