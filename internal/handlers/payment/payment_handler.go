package payment

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostedpay/saferpay-service/internal/domain"
	paymentService "github.com/hostedpay/saferpay-service/internal/services/payment"
)

// LifecycleService defines the lifecycle operations the handler needs
type LifecycleService interface {
	Create(ctx context.Context, amount decimal.Decimal, currency, description, successURL, failureURL string) (*domain.Payment, error)
	Get(ctx context.Context, paymentID string) (*domain.Payment, error)
	Start(ctx context.Context, paymentID, returnURL string) (*paymentService.Redirect, error)
	HandleReturn(ctx context.Context, paymentID string) (*paymentService.Redirect, error)
}

// Handler exposes the hosted-checkout flow over HTTP. It owns the actual
// redirects; the lifecycle service only signals the target URL.
type Handler struct {
	service       LifecycleService
	logger        *zap.Logger
	publicBaseURL string // externally reachable base URL for return/notify endpoints
}

// NewHandler creates a new payment handler
func NewHandler(service LifecycleService, logger *zap.Logger, publicBaseURL string) *Handler {
	return &Handler{
		service:       service,
		logger:        logger,
		publicBaseURL: publicBaseURL,
	}
}

// Register mounts the payment routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/payments", h.CreatePayment)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.GetPayment)
	mux.HandleFunc("GET /api/v1/payments/{id}/start", h.StartPayment)
	mux.HandleFunc("GET /api/v1/payments/{id}/return", h.PaymentReturn)
	mux.HandleFunc("GET /api/v1/payments/{id}/notify", h.PaymentNotify)
}

type createPaymentRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	SuccessURL  string `json:"success_url"`
	FailureURL  string `json:"failure_url"`
}

type paymentResponse struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	StatusMessage  string `json:"status_message,omitempty"`
	CapturedAmount string `json:"captured_amount,omitempty"`
	StartURL       string `json:"start_url"`
}

// CreatePayment creates a payment record in status NEW
// Endpoint: POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.WrapError(domain.ErrorCodeValidationFailed, "invalid request body", err))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.writeError(w, domain.WrapError(domain.ErrorCodeValidationAmountInvalid, "invalid amount", err))
		return
	}

	payment, err := h.service.Create(r.Context(), amount, req.Currency, req.Description, req.SuccessURL, req.FailureURL)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(h.toResponse(payment))
}

// GetPayment returns the current state of a payment
// Endpoint: GET /api/v1/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.toResponse(payment))
}

// StartPayment initializes the hosted session and redirects the payer to the
// gateway-hosted page. Safe to hit twice: a second invocation re-uses the
// stored session instead of creating a duplicate gateway transaction.
// Endpoint: GET /api/v1/payments/{id}/start
func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")
	returnURL := h.publicBaseURL + "/api/v1/payments/" + paymentID + "/return"

	redirect, err := h.service.Start(r.Context(), paymentID, returnURL)
	if err != nil {
		h.writeError(w, err)
		return
	}

	http.Redirect(w, r, redirect.URL, http.StatusSeeOther)
}

// PaymentReturn handles the payer coming back from the gateway-hosted page
// and redirects to the merchant success or failure URL.
// Endpoint: GET /api/v1/payments/{id}/return
func (h *Handler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.service.HandleReturn(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	http.Redirect(w, r, redirect.URL, http.StatusSeeOther)
}

// PaymentNotify handles the gateway's server-to-server notification. Same
// decision logic as the browser return, but answers with a plain 200 instead
// of a redirect.
// Endpoint: GET /api/v1/payments/{id}/notify
func (h *Handler) PaymentNotify(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.HandleReturn(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) toResponse(p *domain.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		Amount:        p.Amount.String(),
		Currency:      p.Currency,
		Description:   p.Description,
		Status:        string(p.Status),
		StatusMessage: p.StatusMessage,
		StartURL:      h.publicBaseURL + "/api/v1/payments/" + p.ID + "/start",
	}
	if p.IsCaptured() {
		resp.CapturedAmount = p.CapturedAmount.String()
	}
	return resp
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError maps the domain error taxonomy onto HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch code := domain.GetErrorCode(err); {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
	case domain.IsAlreadyProcessedError(err):
		status = http.StatusConflict
	case code == domain.ErrorCodePaymentNotFound:
		status = http.StatusNotFound
	case code == domain.ErrorCodePaymentInvalidState:
		status = http.StatusConflict
	case domain.IsGatewayError(err), domain.IsConnectivityError(err), domain.IsProtocolError(err):
		status = http.StatusBadGateway
	}

	h.logger.Warn("request failed",
		zap.String("error_code", string(domain.GetErrorCode(err))),
		zap.Error(err),
	)

	var body errorBody
	body.Error.Code = string(domain.GetErrorCode(err))
	if body.Error.Code == "" {
		body.Error.Code = string(domain.ErrorCodeInternalError)
	}
	body.Error.Message = err.Error()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
