package ports

import (
	"context"

	"github.com/hostedpay/saferpay-service/internal/domain"
)

// TransactionStatus is the gateway-side status of a hosted-checkout transaction.
// It is independent of the local payment lifecycle status.
type TransactionStatus string

const (
	TransactionAuthorized TransactionStatus = "AUTHORIZED"
	TransactionCanceled   TransactionStatus = "CANCELED"
	TransactionCaptured   TransactionStatus = "CAPTURED"
	TransactionPending    TransactionStatus = "PENDING"
)

// InitializeResult is the validated outcome of a PaymentPage Initialize call.
// Results are created once per call and never mutated.
type InitializeResult struct {
	RequestID   string
	Token       string
	RedirectURL string
}

// AssertResult is the validated outcome of a PaymentPage Assert call.
// CaptureID is only present when the transaction status is CAPTURED.
type AssertResult struct {
	RequestID     string
	TransactionID string
	Status        TransactionStatus
	CaptureID     string
}

// CaptureResult is the validated outcome of a Transaction Capture call.
// Status may be empty when the gateway omits it (pending-style gateways).
type CaptureResult struct {
	RequestID string
	Status    string
}

// PaymentGateway defines the hosted-checkout operations against the payment
// gateway. Every failure is classified into the domain error taxonomy; no
// raw transport error ever escapes an implementation.
type PaymentGateway interface {
	// Initialize creates a new payment session at the gateway and returns the
	// session token plus the URL the payer must be redirected to. Fails with
	// PAYMENT_ALREADY_PROCESSED if the payment already carries a token.
	Initialize(ctx context.Context, payment *domain.Payment, returnURL string) (*InitializeResult, error)

	// Assert queries the outcome of the hosted session after the payer
	// returned. Fails with PAYMENT_ALREADY_PROCESSED if no token is present.
	Assert(ctx context.Context, payment *domain.Payment) (*AssertResult, error)

	// Capture settles an authorized transaction. The gateway transaction id
	// comes from a prior successful Assert.
	Capture(ctx context.Context, payment *domain.Payment, gatewayTransactionID string) (*CaptureResult, error)
}
