package payment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostedpay/saferpay-service/internal/adapters/memory"
	"github.com/hostedpay/saferpay-service/internal/domain"
	"github.com/hostedpay/saferpay-service/internal/domain/ports"
	"github.com/hostedpay/saferpay-service/test/mocks"
)

// stubGateway is a scriptable PaymentGateway that counts calls. Counter
// increments are atomic so tests can drive it from concurrent goroutines.
type stubGateway struct {
	initializeFunc  func(ctx context.Context, p *domain.Payment, returnURL string) (*ports.InitializeResult, error)
	assertFunc      func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error)
	captureFunc     func(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error)
	initializeCalls atomic.Int32
	assertCalls     atomic.Int32
	captureCalls    atomic.Int32
}

func (g *stubGateway) Initialize(ctx context.Context, p *domain.Payment, returnURL string) (*ports.InitializeResult, error) {
	g.initializeCalls.Add(1)
	return g.initializeFunc(ctx, p, returnURL)
}

func (g *stubGateway) Assert(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
	g.assertCalls.Add(1)
	return g.assertFunc(ctx, p)
}

func (g *stubGateway) Capture(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error) {
	g.captureCalls.Add(1)
	return g.captureFunc(ctx, p, transactionID)
}

func initializeOK(ctx context.Context, p *domain.Payment, returnURL string) (*ports.InitializeResult, error) {
	return &ports.InitializeResult{
		RequestID:   "req-1",
		Token:       "session-token",
		RedirectURL: "https://test.saferpay.com/vt2/page/1",
	}, nil
}

func setupServiceTest(t *testing.T, gateway *stubGateway) (*Service, *memory.PaymentRepository) {
	repo := memory.NewPaymentRepository()
	service := NewService(gateway, repo, mocks.NewMockLogger())
	return service, repo
}

func createTestPayment(t *testing.T, service *Service) *domain.Payment {
	p, err := service.Create(context.Background(), decimal.NewFromFloat(19.99), "CHF", "Test order",
		"https://merchant.example/success", "https://merchant.example/failure")
	require.NoError(t, err)
	return p
}

func TestService_Create(t *testing.T) {
	service, _ := setupServiceTest(t, &stubGateway{})

	p := createTestPayment(t, service)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.StatusNew, p.Status)
	assert.True(t, p.Amount.Equal(decimal.NewFromFloat(19.99)))

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestService_Create_Invalid(t *testing.T) {
	service, _ := setupServiceTest(t, &stubGateway{})

	_, err := service.Create(context.Background(), decimal.Zero, "CHF", "x", "", "")
	assert.Equal(t, domain.ErrorCodeValidationAmountInvalid, domain.GetErrorCode(err))

	_, err = service.Create(context.Background(), decimal.NewFromInt(10), "", "x", "", "")
	assert.Equal(t, domain.ErrorCodeValidationMissingField, domain.GetErrorCode(err))
}

func TestService_Start_Success(t *testing.T) {
	gateway := &stubGateway{initializeFunc: initializeOK}
	service, _ := setupServiceTest(t, gateway)
	p := createTestPayment(t, service)

	redirect, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")

	require.NoError(t, err)
	assert.Equal(t, "https://test.saferpay.com/vt2/page/1", redirect.URL)
	assert.Equal(t, int32(1), gateway.initializeCalls.Load())

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, stored.Status)
	assert.Equal(t, "session-token", stored.Token)
	assert.Contains(t, stored.Metadata, MetadataInitializeResponse)
}

func TestService_Start_Idempotent(t *testing.T) {
	gateway := &stubGateway{initializeFunc: initializeOK}
	service, _ := setupServiceTest(t, gateway)
	p := createTestPayment(t, service)

	first, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")
	require.NoError(t, err)

	second, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, int32(1), gateway.initializeCalls.Load(), "a second start must not create a second gateway session")
}

func TestService_Start_GatewayFailureRecordsError(t *testing.T) {
	gwErr := domain.NewDomainError(domain.ErrorCodeGatewayConnectivity, "failed to connect to payment gateway")
	gateway := &stubGateway{
		initializeFunc: func(ctx context.Context, p *domain.Payment, returnURL string) (*ports.InitializeResult, error) {
			return nil, gwErr
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := createTestPayment(t, service)

	redirect, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")

	require.Error(t, err)
	assert.Nil(t, redirect)
	assert.True(t, domain.IsConnectivityError(err))

	stored, getErr := service.Get(context.Background(), p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusError, stored.Status)
	assert.Contains(t, stored.StatusMessage, "failed to connect")
	assert.Empty(t, stored.Token)
}

func TestService_Start_RetryAfterError(t *testing.T) {
	failures := 1
	gateway := &stubGateway{
		initializeFunc: func(ctx context.Context, p *domain.Payment, returnURL string) (*ports.InitializeResult, error) {
			if failures > 0 {
				failures--
				return nil, domain.NewDomainError(domain.ErrorCodeGatewayConnectivity, "failed to connect to payment gateway")
			}
			return initializeOK(ctx, p, returnURL)
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := createTestPayment(t, service)

	_, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")
	require.Error(t, err)

	redirect, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")
	require.NoError(t, err)
	assert.Equal(t, "https://test.saferpay.com/vt2/page/1", redirect.URL)

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, stored.Status)
}

func TestService_Start_NotFound(t *testing.T) {
	service, _ := setupServiceTest(t, &stubGateway{initializeFunc: initializeOK})

	_, err := service.Start(context.Background(), "missing-id", "https://merchant.example/return")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodePaymentNotFound, domain.GetErrorCode(err))
}

// startInitialized drives a payment to INITIALIZED for return-handling tests
func startInitialized(t *testing.T, service *Service) *domain.Payment {
	p := createTestPayment(t, service)
	_, err := service.Start(context.Background(), p.ID, "https://merchant.example/return")
	require.NoError(t, err)
	return p
}

func TestService_HandleReturn_Captured(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionCaptured,
				CaptureID:     "capture-1",
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	redirect, err := service.HandleReturn(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/success", redirect.URL)
	assert.Equal(t, int32(0), gateway.captureCalls.Load())

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.True(t, stored.IsCaptured())
	assert.True(t, stored.CapturedAmount.Equal(stored.Amount))
}

func TestService_HandleReturn_Canceled(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionCanceled,
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	redirect, err := service.HandleReturn(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/failure", redirect.URL)

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.False(t, stored.IsCaptured())
}

func TestService_HandleReturn_AuthorizedThenCaptured(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionAuthorized,
			}, nil
		},
		captureFunc: func(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error) {
			assert.Equal(t, "txn-1", transactionID)
			return &ports.CaptureResult{RequestID: "req-3", Status: "CAPTURED"}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	redirect, err := service.HandleReturn(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/success", redirect.URL)
	assert.Equal(t, int32(1), gateway.captureCalls.Load())

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.True(t, stored.IsCaptured())
}

func TestService_HandleReturn_AuthorizedCapturePending(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionAuthorized,
			}, nil
		},
		captureFunc: func(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error) {
			return &ports.CaptureResult{RequestID: "req-3", Status: "PENDING"}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	redirect, err := service.HandleReturn(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/success", redirect.URL)

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorizedPendingCapture, stored.Status)
	assert.False(t, stored.IsCaptured())
}

func TestService_HandleReturn_CaptureFails(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionAuthorized,
			}, nil
		},
		captureFunc: func(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error) {
			return nil, domain.NewDomainError(domain.ErrorCodeGatewayError, "gateway rejected the request")
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	_, err := service.HandleReturn(context.Background(), p.ID)

	require.Error(t, err)
	assert.True(t, domain.IsGatewayError(err))

	stored, getErr := service.Get(context.Background(), p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusError, stored.Status)
}

func TestService_HandleReturn_Pending(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionPending,
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	redirect, err := service.HandleReturn(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/success", redirect.URL)

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, stored.Status, "pending outcomes leave the payment awaiting reconciliation")
}

func TestService_HandleReturn_UnknownStatus(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionStatus("SOMETHING_NEW"),
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	_, err := service.HandleReturn(context.Background(), p.ID)

	require.Error(t, err)
	assert.True(t, domain.IsProtocolError(err))

	stored, getErr := service.Get(context.Background(), p.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusError, stored.Status)
}

func TestService_HandleReturn_AlreadyConfirmed(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionCaptured,
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	_, err := service.HandleReturn(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), gateway.assertCalls.Load())

	// A duplicate return (browser redirect plus async notification) must not
	// reach the gateway again.
	redirect, err := service.HandleReturn(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/success", redirect.URL)
	assert.Equal(t, int32(1), gateway.assertCalls.Load())
}

func TestService_HandleReturn_AlreadyRejected(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionCanceled,
			}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	_, err := service.HandleReturn(context.Background(), p.ID)
	require.NoError(t, err)

	redirect, err := service.HandleReturn(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://merchant.example/failure", redirect.URL)
	assert.Equal(t, int32(1), gateway.assertCalls.Load())
}

func TestService_HandleReturn_ConcurrentReturnsCaptureOnce(t *testing.T) {
	gateway := &stubGateway{
		initializeFunc: initializeOK,
		assertFunc: func(ctx context.Context, p *domain.Payment) (*ports.AssertResult, error) {
			return &ports.AssertResult{
				RequestID:     "req-2",
				TransactionID: "txn-1",
				Status:        ports.TransactionAuthorized,
			}, nil
		},
		captureFunc: func(ctx context.Context, p *domain.Payment, transactionID string) (*ports.CaptureResult, error) {
			return &ports.CaptureResult{RequestID: "req-3", Status: "CAPTURED"}, nil
		},
	}
	service, _ := setupServiceTest(t, gateway)
	p := startInitialized(t, service)

	// The shopper's browser redirect and Saferpay's async notification can
	// land at the same time. Whichever return wins the record lock settles
	// the payment; the rest must observe the terminal state and never
	// trigger a second capture.
	const returns = 10
	var wg sync.WaitGroup
	errs := make([]error, returns)
	for i := 0; i < returns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			redirect, err := service.HandleReturn(context.Background(), p.ID)
			errs[i] = err
			if err == nil {
				assert.Equal(t, "https://merchant.example/success", redirect.URL)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < returns; i++ {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), gateway.assertCalls.Load())
	assert.Equal(t, int32(1), gateway.captureCalls.Load())

	stored, err := service.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.True(t, stored.IsCaptured())
	assert.True(t, stored.CapturedAmount.Equal(stored.Amount))
}
