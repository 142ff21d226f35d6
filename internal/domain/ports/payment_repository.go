package ports

import (
	"context"

	"github.com/hostedpay/saferpay-service/internal/domain"
)

// UpdateFunc mutates a payment inside an atomic read-modify-write. The same
// payment record may receive concurrent return and notification deliveries,
// so implementations must serialize updates per payment id for the whole
// duration of the callback - including any gateway calls the callback makes.
// Returning an error aborts the update and discards the mutations.
type UpdateFunc func(ctx context.Context, payment *domain.Payment) error

// PaymentRepository is the persistence collaborator for payment records.
type PaymentRepository interface {
	// Create stores a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// Get retrieves a payment by id, PAYMENT_NOT_FOUND if absent
	Get(ctx context.Context, id string) (*domain.Payment, error)

	// Update runs fn under per-record serialization and persists the mutated
	// record when fn returns nil. The persisted payment is returned.
	Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Payment, error)
}
