package saferpay

import (
	"github.com/hostedpay/saferpay-service/internal/domain"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
)

// ResponseHeader is echoed by the gateway on every response
type ResponseHeader struct {
	RequestID   string `json:"RequestId"`
	SpecVersion string `json:"SpecVersion"`
}

// envelope is implemented by all response payloads so the client can verify
// the correlation id uniformly.
type envelope interface {
	header() ResponseHeader
}

// InitializeResponse is the raw body of a PaymentPage/Initialize response
type InitializeResponse struct {
	ResponseHeader ResponseHeader `json:"ResponseHeader"`
	Token          string         `json:"Token"`
	Expiration     string         `json:"Expiration"`
	RedirectURL    string         `json:"RedirectUrl"`
}

func (r *InitializeResponse) header() ResponseHeader { return r.ResponseHeader }

// Validate enforces the required fields and produces the immutable result
func (r *InitializeResponse) Validate() (*ports.InitializeResult, error) {
	if r.ResponseHeader.RequestID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"missing RequestId in gateway response")
	}
	if r.Token == "" || r.RedirectURL == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"invalid initialize response from gateway: missing Token or RedirectUrl")
	}
	return &ports.InitializeResult{
		RequestID:   r.ResponseHeader.RequestID,
		Token:       r.Token,
		RedirectURL: r.RedirectURL,
	}, nil
}

// AssertTransaction is the transaction container of an assert response
type AssertTransaction struct {
	ID        string `json:"Id"`
	Status    string `json:"Status"`
	CaptureID string `json:"CaptureId"`
}

// AssertResponse is the raw body of a PaymentPage/Assert response
type AssertResponse struct {
	ResponseHeader ResponseHeader    `json:"ResponseHeader"`
	Transaction    AssertTransaction `json:"Transaction"`
}

func (r *AssertResponse) header() ResponseHeader { return r.ResponseHeader }

// Validate enforces the required fields and produces the immutable result.
// CaptureId is optional: it is only present when the transaction was already
// captured by the gateway.
func (r *AssertResponse) Validate() (*ports.AssertResult, error) {
	if r.ResponseHeader.RequestID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"missing RequestId in gateway response")
	}
	if r.Transaction.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"missing Transaction.Id in gateway response")
	}
	if r.Transaction.Status == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"missing Transaction.Status in gateway response")
	}
	return &ports.AssertResult{
		RequestID:     r.ResponseHeader.RequestID,
		TransactionID: r.Transaction.ID,
		Status:        ports.TransactionStatus(r.Transaction.Status),
		CaptureID:     r.Transaction.CaptureID,
	}, nil
}

// CaptureResponse is the raw body of a Transaction/Capture response
type CaptureResponse struct {
	ResponseHeader ResponseHeader `json:"ResponseHeader"`
	Status         string         `json:"Status"`
	CaptureID      string         `json:"CaptureId"`
}

func (r *CaptureResponse) header() ResponseHeader { return r.ResponseHeader }

// Validate enforces the required fields and produces the immutable result.
// Status is optional: some gateway variants omit it for non-captured paths.
func (r *CaptureResponse) Validate() (*ports.CaptureResult, error) {
	if r.ResponseHeader.RequestID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"missing RequestId in gateway response")
	}
	return &ports.CaptureResult{
		RequestID: r.ResponseHeader.RequestID,
		Status:    r.Status,
	}, nil
}
