package saferpay

import (
	"encoding/json"

	"github.com/hostedpay/saferpay-service/internal/domain"
)

// errorResponse is the structured error body the gateway returns alongside a
// non-2xx status.
type errorResponse struct {
	ErrorName    string `json:"ErrorName"`
	ErrorMessage string `json:"ErrorMessage"`
	ErrorDetail  string `json:"ErrorDetail"`
	Behavior     string `json:"Behavior"`
}

// classifyTransportFailure maps a failed send (no response obtained) to the
// connectivity error kind. Timeouts land here too, via the HTTP client.
func classifyTransportFailure(err error) error {
	return domain.WrapError(domain.ErrorCodeGatewayConnectivity,
		"failed to connect to payment gateway", err)
}

// classifyErrorStatus maps a non-2xx response to the taxonomy: a parseable
// structured error body becomes GATEWAY_ERROR carrying the extracted detail,
// anything else is a protocol violation. Missing fields fall back to the
// "unknown" sentinels so callers always see a fully-populated detail.
func classifyErrorStatus(statusCode int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayProtocol,
			"failed to parse the error response from the gateway", err)
	}

	detail := &domain.ErrorDetail{
		Message:    er.ErrorMessage,
		Name:       er.ErrorName,
		Detail:     er.ErrorDetail,
		StatusCode: &statusCode,
	}
	if detail.Message == "" {
		detail.Message = domain.UnknownErrorMessage
	}
	if detail.Name == "" {
		detail.Name = domain.UnknownErrorName
	}
	if detail.Detail == "" {
		detail.Detail = domain.UnknownErrorDetail
	}

	return domain.NewDomainError(domain.ErrorCodeGatewayError,
		"gateway rejected the request").WithGateway(detail)
}

// classifyMalformedBody maps an unparsable 2xx body to a protocol violation
func classifyMalformedBody(err error) error {
	return domain.WrapError(domain.ErrorCodeGatewayProtocol,
		"failed to parse the response from the gateway", err)
}

// classifyCorrelationMismatch flags a response whose echoed RequestId does
// not match the one sent. Treated as a security-relevant anomaly (possible
// response misrouting or replay), never silently ignored.
func classifyCorrelationMismatch(sent, got string) error {
	return domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
		"gateway response RequestId does not match our request: expected "+sent+", got "+got)
}
