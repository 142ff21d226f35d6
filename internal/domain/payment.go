package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hostedpay/saferpay-service/pkg/timeutil"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	StatusNew                      PaymentStatus = "NEW"
	StatusInitialized              PaymentStatus = "INITIALIZED"                // session created, awaiting payer return
	StatusAuthorizedPendingCapture PaymentStatus = "AUTHORIZED_PENDING_CAPTURE" // authorized, capture not settled yet
	StatusConfirmed                PaymentStatus = "CONFIRMED"
	StatusRejected                 PaymentStatus = "REJECTED"
	StatusError                    PaymentStatus = "ERROR"
)

// transitions is the set of legal status transitions. CONFIRMED and REJECTED
// are terminal. ERROR is terminal for the current attempt only: a later
// return or out-of-band retry may still resolve the payment.
var transitions = map[PaymentStatus][]PaymentStatus{
	StatusNew:                      {StatusInitialized, StatusError},
	StatusInitialized:              {StatusAuthorizedPendingCapture, StatusConfirmed, StatusRejected, StatusError},
	StatusAuthorizedPendingCapture: {StatusConfirmed, StatusError},
	StatusError:                    {StatusInitialized, StatusAuthorizedPendingCapture, StatusConfirmed, StatusRejected, StatusError},
	StatusConfirmed:                {},
	StatusRejected:                 {},
}

// CanTransition reports whether moving from one status to another is legal.
// Setting the same status again is always allowed (idempotent re-entry).
func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can never change again
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// Payment represents a single payment driven through the hosted checkout flow
type Payment struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Metadata       map[string]interface{}
	ID             string
	Currency       string
	Description    string
	Token          string // opaque gateway session token, set at most once
	SuccessURL     string
	FailureURL     string
	StatusMessage  string
	Status         PaymentStatus
	Amount         decimal.Decimal
	CapturedAmount decimal.Decimal
}

// NewPayment creates a payment in status NEW
func NewPayment(id string, amount decimal.Decimal, currency, description, successURL, failureURL string) *Payment {
	now := timeutil.Now()
	return &Payment{
		ID:          id,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		SuccessURL:  successURL,
		FailureURL:  failureURL,
		Status:      StatusNew,
		Metadata:    make(map[string]interface{}),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetToken stores the gateway session token. The token is immutable once set.
func (p *Payment) SetToken(token string) error {
	if p.Token != "" && p.Token != token {
		return ErrTokenImmutable
	}
	p.Token = token
	return nil
}

// TransitionTo moves the payment to a new status, rejecting transitions
// outside the table.
func (p *Payment) TransitionTo(status PaymentStatus) error {
	if !CanTransition(p.Status, status) {
		return NewDomainError(ErrorCodePaymentInvalidState,
			"illegal status transition from "+string(p.Status)+" to "+string(status))
	}
	p.Status = status
	p.UpdatedAt = timeutil.Now()
	return nil
}

// TransitionWithMessage is TransitionTo plus a human-readable reason,
// used when recording gateway failures.
func (p *Payment) TransitionWithMessage(status PaymentStatus, message string) error {
	if err := p.TransitionTo(status); err != nil {
		return err
	}
	p.StatusMessage = message
	return nil
}

// MarkCaptured records the captured amount. It is only ever set equal to the
// original total, exactly once; marking an already-captured payment is a no-op.
func (p *Payment) MarkCaptured() {
	if p.IsCaptured() {
		return
	}
	p.CapturedAmount = p.Amount
	p.UpdatedAt = timeutil.Now()
}

// IsCaptured reports whether the captured amount has been set
func (p *Payment) IsCaptured() bool {
	return p.CapturedAmount.IsPositive()
}

// PutMetadata stores a raw gateway response under the given key
func (p *Payment) PutMetadata(key string, value interface{}) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]interface{})
	}
	p.Metadata[key] = value
}
