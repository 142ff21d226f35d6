package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	adapterports "github.com/hostedpay/saferpay-service/internal/adapters/ports"
	"github.com/hostedpay/saferpay-service/internal/domain"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
	"github.com/hostedpay/saferpay-service/pkg/observability"
)

// Metadata keys under which raw gateway responses are stored on the payment
const (
	MetadataInitializeResponse = "saferpay_initialize_response"
	MetadataAssertResponse     = "saferpay_assert_response"
	MetadataCaptureResponse    = "saferpay_capture_response"
)

// Redirect signals the web layer where to send the payer next. The service
// never performs the HTTP redirect itself.
type Redirect struct {
	URL string
}

// Service owns the payment lifecycle state machine. It calls the gateway at
// the right points, applies the transition rules and persists every change
// through the repository's atomic per-record update.
type Service struct {
	gateway ports.PaymentGateway
	repo    ports.PaymentRepository
	logger  adapterports.Logger
}

// NewService creates a new lifecycle service
func NewService(gateway ports.PaymentGateway, repo ports.PaymentRepository, logger adapterports.Logger) *Service {
	return &Service{
		gateway: gateway,
		repo:    repo,
		logger:  logger,
	}
}

// Create stores a new payment in status NEW
func (s *Service) Create(ctx context.Context, amount decimal.Decimal, currency, description, successURL, failureURL string) (*domain.Payment, error) {
	if !amount.IsPositive() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid,
			"payment amount must be positive")
	}
	if currency == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField,
			"currency is required")
	}

	p := domain.NewPayment(uuid.NewString(), amount, currency, description, successURL, failureURL)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		adapterports.String("payment_id", p.ID),
		adapterports.String("currency", currency),
	)
	return p, nil
}

// Get retrieves a payment by id
func (s *Service) Get(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.repo.Get(ctx, paymentID)
}

// Start initializes the hosted session for the payment and signals where the
// payer must be redirected. Repeated invocations for a payment that already
// carries a token issue no second gateway call and re-signal the previously
// stored redirect URL, so duplicate gateway transactions cannot be created.
// On any gateway failure the payment moves to ERROR and the error propagates;
// no redirect is signaled.
func (s *Service) Start(ctx context.Context, paymentID, returnURL string) (*Redirect, error) {
	var redirect *Redirect
	var gwErr error

	_, err := s.repo.Update(ctx, paymentID, func(ctx context.Context, p *domain.Payment) error {
		if p.Token != "" {
			url, ok := storedRedirectURL(p)
			if !ok {
				return domain.NewDomainError(domain.ErrorCodePaymentInvalidState,
					"payment has a token but no stored redirect URL")
			}
			s.logger.Info("start re-entered for initialized payment, skipping gateway call",
				adapterports.String("payment_id", p.ID),
			)
			redirect = &Redirect{URL: url}
			return nil
		}

		result, err := s.gateway.Initialize(ctx, p, returnURL)
		if err != nil {
			gwErr = err
			return s.recordFailure(p, err)
		}

		if err := p.SetToken(result.Token); err != nil {
			return err
		}
		p.PutMetadata(MetadataInitializeResponse, map[string]interface{}{
			"request_id":   result.RequestID,
			"token":        result.Token,
			"redirect_url": result.RedirectURL,
		})
		if err := p.TransitionTo(domain.StatusInitialized); err != nil {
			return err
		}
		observability.ObservePaymentTransition(domain.StatusInitialized)

		s.logger.Info("payment initialized at gateway",
			adapterports.String("payment_id", p.ID),
			adapterports.String("request_id", result.RequestID),
		)
		redirect = &Redirect{URL: result.RedirectURL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if gwErr != nil {
		return nil, gwErr
	}
	return redirect, nil
}

// HandleReturn asserts the outcome of the hosted session after the payer
// returned (or a notification arrived) and applies the transition rules.
// Payments already CONFIRMED or REJECTED short-circuit without a gateway
// call, which guards against duplicate browser returns and notification
// deliveries racing for the same payment.
func (s *Service) HandleReturn(ctx context.Context, paymentID string) (*Redirect, error) {
	var redirect *Redirect
	var gwErr error

	_, err := s.repo.Update(ctx, paymentID, func(ctx context.Context, p *domain.Payment) error {
		switch p.Status {
		case domain.StatusConfirmed:
			redirect = &Redirect{URL: p.SuccessURL}
			return nil
		case domain.StatusRejected:
			redirect = &Redirect{URL: p.FailureURL}
			return nil
		}

		result, err := s.gateway.Assert(ctx, p)
		if err != nil {
			gwErr = err
			return s.recordFailure(p, err)
		}

		p.PutMetadata(MetadataAssertResponse, map[string]interface{}{
			"request_id":         result.RequestID,
			"transaction_id":     result.TransactionID,
			"transaction_status": string(result.Status),
			"capture_id":         result.CaptureID,
		})

		switch result.Status {
		case ports.TransactionCanceled:
			if err := p.TransitionTo(domain.StatusRejected); err != nil {
				return err
			}
			observability.ObservePaymentTransition(domain.StatusRejected)
			redirect = &Redirect{URL: p.FailureURL}
			return nil

		case ports.TransactionCaptured:
			p.MarkCaptured()
			if err := p.TransitionTo(domain.StatusConfirmed); err != nil {
				return err
			}
			observability.ObservePaymentTransition(domain.StatusConfirmed)
			redirect = &Redirect{URL: p.SuccessURL}
			return nil

		case ports.TransactionAuthorized:
			captureErr := s.capture(ctx, p, result.TransactionID)
			if captureErr != nil {
				gwErr = captureErr
				return s.recordFailure(p, captureErr)
			}
			// The payer-facing flow completed either way; settlement may
			// still be pending in the back office.
			redirect = &Redirect{URL: p.SuccessURL}
			return nil

		case ports.TransactionPending:
			// Stay non-terminal; resolution is deferred to a later
			// reconciliation trigger.
			s.logger.Warn("gateway transaction still pending",
				adapterports.String("payment_id", p.ID),
				adapterports.String("transaction_id", result.TransactionID),
			)
			redirect = &Redirect{URL: p.SuccessURL}
			return nil

		default:
			unknownErr := domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
				"unknown transaction status in gateway response: "+string(result.Status))
			gwErr = unknownErr
			return s.recordFailure(p, unknownErr)
		}
	})
	if err != nil {
		return nil, err
	}
	if gwErr != nil {
		return nil, gwErr
	}
	return redirect, nil
}

// capture settles an authorized transaction and applies the resulting state.
// A capture that does not come back CAPTURED leaves the payment in
// AUTHORIZED_PENDING_CAPTURE awaiting later reconciliation.
func (s *Service) capture(ctx context.Context, p *domain.Payment, transactionID string) error {
	result, err := s.gateway.Capture(ctx, p, transactionID)
	if err != nil {
		return err
	}

	p.PutMetadata(MetadataCaptureResponse, map[string]interface{}{
		"request_id": result.RequestID,
		"status":     result.Status,
	})

	if result.Status == string(ports.TransactionCaptured) {
		p.MarkCaptured()
		if err := p.TransitionTo(domain.StatusConfirmed); err != nil {
			return err
		}
		observability.ObservePaymentTransition(domain.StatusConfirmed)
		return nil
	}

	if err := p.TransitionTo(domain.StatusAuthorizedPendingCapture); err != nil {
		return err
	}
	observability.ObservePaymentTransition(domain.StatusAuthorizedPendingCapture)
	return nil
}

// recordFailure moves the payment to ERROR with the failure message. The
// status write is committed even though the triggering error propagates to
// the caller, so the record always reflects the failed attempt.
func (s *Service) recordFailure(p *domain.Payment, cause error) error {
	s.logger.Error("gateway call failed",
		adapterports.String("payment_id", p.ID),
		adapterports.Err(cause),
	)
	if err := p.TransitionWithMessage(domain.StatusError, cause.Error()); err != nil {
		return err
	}
	observability.ObservePaymentTransition(domain.StatusError)
	return nil
}

// storedRedirectURL extracts the redirect URL persisted by a prior
// successful Initialize.
func storedRedirectURL(p *domain.Payment) (string, bool) {
	raw, ok := p.Metadata[MetadataInitializeResponse]
	if !ok {
		return "", false
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return "", false
	}
	url, ok := m["redirect_url"].(string)
	return url, ok && url != ""
}
