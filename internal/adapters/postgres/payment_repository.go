package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostedpay/saferpay-service/internal/domain"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
)

// PaymentRepository implements ports.PaymentRepository on PostgreSQL.
// Update serializes concurrent writers per payment id with a row lock
// (SELECT ... FOR UPDATE) held for the whole callback, so racing return and
// notification deliveries cannot both issue a capture.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new postgres payment repository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const insertPayment = `
INSERT INTO payments (
	id, amount, currency, description, token, captured_amount,
	status, status_message, success_url, failure_url, metadata,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectPayment = `
SELECT id, amount, currency, description, token, captured_amount,
	status, status_message, success_url, failure_url, metadata,
	created_at, updated_at
FROM payments WHERE id = $1`

const selectPaymentForUpdate = selectPayment + " FOR UPDATE"

const updatePayment = `
UPDATE payments SET
	token = $2, captured_amount = $3, status = $4, status_message = $5,
	metadata = $6, updated_at = $7
WHERE id = $1`

// Create stores a new payment record
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "encode amount", err)
	}
	captured, err := decimalToNumeric(payment.CapturedAmount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "encode captured amount", err)
	}
	metadata, err := marshalMetadata(payment.Metadata)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "encode metadata", err)
	}

	_, err = r.pool.Exec(ctx, insertPayment,
		payment.ID, amount, payment.Currency, payment.Description,
		nullText(payment.Token), captured, string(payment.Status),
		nullText(payment.StatusMessage), payment.SuccessURL, payment.FailureURL,
		metadata, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create payment", err)
	}
	return nil
}

// Get retrieves a payment by id
func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, selectPayment, id)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get payment", err)
	}
	return payment, nil
}

// Update runs fn inside a transaction holding the payment's row lock and
// persists the mutated record when fn returns nil.
func (r *PaymentRepository) Update(ctx context.Context, id string, fn ports.UpdateFunc) (*domain.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, selectPaymentForUpdate, id)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "lock payment", err)
	}

	if err := fn(ctx, payment); err != nil {
		return nil, err
	}

	captured, err := decimalToNumeric(payment.CapturedAmount)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "encode captured amount", err)
	}
	metadata, err := marshalMetadata(payment.Metadata)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "encode metadata", err)
	}

	_, err = tx.Exec(ctx, updatePayment,
		payment.ID, nullText(payment.Token), captured, string(payment.Status),
		nullText(payment.StatusMessage), metadata, payment.UpdatedAt,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "update payment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "commit payment update", err)
	}
	return payment, nil
}

// scanPayment reads one payments row into the domain model
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p             domain.Payment
		amount        pgtype.Numeric
		captured      pgtype.Numeric
		token         pgtype.Text
		statusMessage pgtype.Text
		status        string
		metadata      []byte
	)

	err := row.Scan(&p.ID, &amount, &p.Currency, &p.Description, &token,
		&captured, &status, &statusMessage, &p.SuccessURL, &p.FailureURL,
		&metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if p.Amount, err = numericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	if p.CapturedAmount, err = numericToDecimal(captured); err != nil {
		return nil, fmt.Errorf("decode captured amount: %w", err)
	}
	p.Token = textOrEmpty(token)
	p.StatusMessage = textOrEmpty(statusMessage)
	p.Status = domain.PaymentStatus(status)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]interface{})
	}
	return &p, nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)
