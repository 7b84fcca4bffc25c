package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// AuditRepository appends committed ledger events to the audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event domain.LedgerEvent) error
}
