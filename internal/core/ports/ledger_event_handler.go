package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// LedgerEventHandler consumes committed ledger events, one course at a time.
type LedgerEventHandler interface {
	Process(ctx context.Context, event domain.LedgerEvent) error
}
