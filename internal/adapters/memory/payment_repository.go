package memory

import (
	"context"
	"sync"

	"github.com/hostedpay/saferpay-service/internal/domain"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
)

// record wraps a stored payment with its per-record lock. The lock is held
// for the whole duration of an Update callback, including any gateway calls
// the callback makes, so concurrent return and notification deliveries for
// the same payment are fully serialized.
type record struct {
	mu      sync.Mutex
	payment *domain.Payment
}

// PaymentRepository is an in-memory implementation of ports.PaymentRepository.
// Used for local runs and tests; the postgres adapter provides the same
// contract for production.
type PaymentRepository struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewPaymentRepository creates an empty in-memory repository
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		records: make(map[string]*record),
	}
}

// Create stores a new payment record
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[payment.ID]; exists {
		return domain.NewDomainError(domain.ErrorCodePaymentInvalidState,
			"payment already exists: "+payment.ID)
	}
	r.records[payment.ID] = &record{payment: clone(payment)}
	return nil
}

// Get retrieves a copy of the payment by id
func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return clone(rec.payment), nil
}

// Update runs fn under the per-record lock and persists the mutated record
// when fn returns nil.
func (r *PaymentRepository) Update(ctx context.Context, id string, fn ports.UpdateFunc) (*domain.Payment, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	working := clone(rec.payment)
	if err := fn(ctx, working); err != nil {
		return nil, err
	}
	rec.payment = working
	return clone(working), nil
}

// clone copies a payment including its metadata map, so callers can never
// mutate the stored record outside Update.
func clone(p *domain.Payment) *domain.Payment {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)
