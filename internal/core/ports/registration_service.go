package ports

import (
	"context"

	"github.com/coursehub/registration-api/internal/core/domain"
)

// RegistrationService exposes the ledger operations to the transport layer.
type RegistrationService interface {
	Register(ctx context.Context, courseID, userID string) (*Receipt, error)
	Unregister(ctx context.Context, courseID, userID string) (*Receipt, error)
	ListRegistrationsForUser(ctx context.Context, userID string) ([]domain.CourseSummary, error)
	Reconcile(ctx context.Context, courseID string) (*ReconcileResult, error)
}
