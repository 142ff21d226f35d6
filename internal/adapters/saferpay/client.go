package saferpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hostedpay/saferpay-service/internal/adapters/ports"
	"github.com/hostedpay/saferpay-service/internal/domain"
	domainports "github.com/hostedpay/saferpay-service/internal/domain/ports"
	"github.com/hostedpay/saferpay-service/pkg/encoding"
	"github.com/hostedpay/saferpay-service/pkg/observability"
)

// Config holds the merchant-level gateway configuration
type Config struct {
	CustomerID string
	TerminalID string
	BaseURL    string // SandboxBaseURL or ProductionBaseURL
	UserAgent  string
}

// Client implements the PaymentGateway interface against the Saferpay JSON
// API. A single client may be shared across concurrent calls; it holds no
// per-call state beyond the pooled HTTP transport.
type Client struct {
	cfg        Config
	creds      Credentials
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewClient creates a new gateway client with dependency injection
func NewClient(cfg Config, creds Credentials, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "saferpay-service/" + SpecVersion
	}
	return &Client{
		cfg:        cfg,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithDefaults creates a gateway client with a default HTTP client
func NewClientWithDefaults(cfg Config, creds Credentials, logger ports.Logger) *Client {
	return NewClient(cfg, creds, &http.Client{Timeout: 30 * time.Second}, logger)
}

// Initialize creates a new PaymentPage session for the payment
func (c *Client) Initialize(ctx context.Context, payment *domain.Payment, returnURL string) (*domainports.InitializeResult, error) {
	if err := validateInitialize(payment); err != nil {
		return nil, err
	}

	requestID := newRequestID()
	req := c.buildInitializeRequest(payment, returnURL, requestID)

	var resp InitializeResponse
	if err := c.send(ctx, "initialize", pathInitialize, requestID, req, &resp); err != nil {
		return nil, err
	}
	return resp.Validate()
}

// Assert queries the outcome of the hosted session
func (c *Client) Assert(ctx context.Context, payment *domain.Payment) (*domainports.AssertResult, error) {
	if err := validateAssert(payment); err != nil {
		return nil, err
	}

	requestID := newRequestID()
	req := c.buildAssertRequest(payment, requestID)

	var resp AssertResponse
	if err := c.send(ctx, "assert", pathAssert, requestID, req, &resp); err != nil {
		return nil, err
	}
	return resp.Validate()
}

// Capture settles a previously authorized transaction
func (c *Client) Capture(ctx context.Context, payment *domain.Payment, gatewayTransactionID string) (*domainports.CaptureResult, error) {
	requestID := newRequestID()
	req := c.buildCaptureRequest(gatewayTransactionID, requestID)

	var resp CaptureResponse
	if err := c.send(ctx, "capture", pathCapture, requestID, req, &resp); err != nil {
		return nil, err
	}
	return resp.Validate()
}

// send performs one gateway round-trip: marshal, POST, classify failures,
// decode and verify the correlation id echo. Every error path returns a
// classified domain error; no raw transport error escapes.
func (c *Client) send(ctx context.Context, operation, path, requestID string, request interface{}, response envelope) (err error) {
	started := time.Now()
	defer func() { observability.ObserveGatewayCall(operation, err, started) }()

	payload, err := encoding.EncodeJSON(request)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "failed to marshal request", err)
	}

	url := c.cfg.BaseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	c.creds.Apply(httpReq.Header)

	if c.logger != nil {
		c.logger.Info("sending request to saferpay",
			ports.String("operation", operation),
			ports.String("request_id", requestID),
		)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportFailure(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return classifyTransportFailure(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if c.logger != nil {
			c.logger.Warn("saferpay returned an error status",
				ports.String("operation", operation),
				ports.String("request_id", requestID),
				ports.Int("status", httpResp.StatusCode),
			)
		}
		return classifyErrorStatus(httpResp.StatusCode, body)
	}

	if err := json.Unmarshal(body, response); err != nil {
		return classifyMalformedBody(err)
	}

	if got := response.header().RequestID; got != requestID {
		if c.logger != nil {
			c.logger.Error("saferpay response correlation mismatch",
				ports.String("operation", operation),
				ports.String("sent_request_id", requestID),
				ports.String("received_request_id", got),
			)
		}
		return classifyCorrelationMismatch(requestID, got)
	}

	return nil
}

var _ domainports.PaymentGateway = (*Client)(nil)
