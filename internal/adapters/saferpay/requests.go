package saferpay

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostedpay/saferpay-service/internal/domain"
)

// SpecVersion is the Saferpay JSON API specification version spoken by this client
const SpecVersion = "1.45"

const (
	// Base endpoints, selected by the sandbox flag
	SandboxBaseURL    = "https://test.saferpay.com/api/Payment/v1"
	ProductionBaseURL = "https://www.saferpay.com/api/Payment/v1"

	pathInitialize = "/PaymentPage/Initialize"
	pathAssert     = "/PaymentPage/Assert"
	pathCapture    = "/Transaction/Capture"
)

// BaseURLFor returns the gateway base endpoint for the given environment
func BaseURLFor(sandbox bool) string {
	if sandbox {
		return SandboxBaseURL
	}
	return ProductionBaseURL
}

// RequestHeader is the envelope attached to every outbound call. RequestId is
// generated fresh per call and never derived from response data; the gateway
// must echo it back.
type RequestHeader struct {
	CustomerID     string `json:"CustomerId"`
	RequestID      string `json:"RequestId"`
	RetryIndicator int    `json:"RetryIndicator"`
	SpecVersion    string `json:"SpecVersion"`
}

// Amount carries the payment total in minor units with its ISO 4217 code
type Amount struct {
	Value        int64  `json:"Value"`
	CurrencyCode string `json:"CurrencyCode"`
}

// PaymentSpec describes the payment shown on the hosted page
type PaymentSpec struct {
	Amount      Amount `json:"Amount"`
	Description string `json:"Description"`
	OrderID     string `json:"OrderId,omitempty"`
}

// ReturnURL is where the payer lands after the hosted flow completes
type ReturnURL struct {
	URL string `json:"Url"`
}

// Notification holds the async notification endpoints
type Notification struct {
	SuccessNotifyURL string `json:"SuccessNotifyUrl,omitempty"`
	FailNotifyURL    string `json:"FailNotifyUrl,omitempty"`
}

// InitializeRequest is the payload for PaymentPage/Initialize
type InitializeRequest struct {
	RequestHeader RequestHeader `json:"RequestHeader"`
	TerminalID    string        `json:"TerminalId"`
	Payment       PaymentSpec   `json:"Payment"`
	ReturnURL     ReturnURL     `json:"ReturnUrl"`
	Notification  *Notification `json:"Notification,omitempty"`
}

// AssertRequest is the payload for PaymentPage/Assert
type AssertRequest struct {
	RequestHeader RequestHeader `json:"RequestHeader"`
	Token         string        `json:"Token"`
}

// TransactionReference identifies the gateway transaction to settle
type TransactionReference struct {
	TransactionID string `json:"TransactionId"`
}

// CaptureRequest is the payload for Transaction/Capture
type CaptureRequest struct {
	RequestHeader        RequestHeader        `json:"RequestHeader"`
	TransactionReference TransactionReference `json:"TransactionReference"`
}

var centFactor = decimal.NewFromInt(100)

// MinorUnits converts a decimal total to the integer minor-unit value the
// gateway expects. Round-half-even keeps values such as 19.99 exact (1999)
// instead of drifting the way float multiplication would.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(centFactor).RoundBank(0).IntPart()
}

// newRequestID generates a fresh globally-unique correlation identifier
func newRequestID() string {
	return uuid.NewString()
}

func (c *Client) newRequestHeader(requestID string) RequestHeader {
	return RequestHeader{
		CustomerID:     c.cfg.CustomerID,
		RequestID:      requestID,
		RetryIndicator: 0,
		SpecVersion:    SpecVersion,
	}
}

// validateInitialize checks the preconditions for an Initialize call before
// any payload is built or any network call is made.
func validateInitialize(payment *domain.Payment) error {
	if payment.Token != "" {
		return domain.NewDomainError(domain.ErrorCodePaymentAlreadyProcessed,
			"this payment has already been processed")
	}
	if payment.Currency == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField,
			"the payment has no currency, but it is required")
	}
	if !payment.Amount.IsPositive() {
		return domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid,
			"the payment has no positive total amount, but it is required")
	}
	if payment.Description == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField,
			"the payment has no description, but it is required")
	}
	return nil
}

// validateAssert checks that the payment carries a session token
func validateAssert(payment *domain.Payment) error {
	if payment.Token == "" {
		return domain.NewDomainError(domain.ErrorCodePaymentAlreadyProcessed,
			"the payment has no transaction token, but it is required")
	}
	return nil
}

func (c *Client) buildInitializeRequest(payment *domain.Payment, returnURL, requestID string) *InitializeRequest {
	req := &InitializeRequest{
		RequestHeader: c.newRequestHeader(requestID),
		TerminalID:    c.cfg.TerminalID,
		Payment: PaymentSpec{
			Amount: Amount{
				Value:        MinorUnits(payment.Amount),
				CurrencyCode: payment.Currency,
			},
			Description: payment.Description,
			OrderID:     payment.ID,
		},
		ReturnURL: ReturnURL{URL: returnURL},
	}
	if payment.SuccessURL != "" || payment.FailureURL != "" {
		req.Notification = &Notification{
			SuccessNotifyURL: payment.SuccessURL,
			FailNotifyURL:    payment.FailureURL,
		}
	}
	return req
}

func (c *Client) buildAssertRequest(payment *domain.Payment, requestID string) *AssertRequest {
	return &AssertRequest{
		RequestHeader: c.newRequestHeader(requestID),
		Token:         payment.Token,
	}
}

func (c *Client) buildCaptureRequest(gatewayTransactionID, requestID string) *CaptureRequest {
	return &CaptureRequest{
		RequestHeader:        c.newRequestHeader(requestID),
		TransactionReference: TransactionReference{TransactionID: gatewayTransactionID},
	}
}
