package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/storage"
)

// fakePaymentClient records calls and lets tests script outcomes. The
// onCreate/onConfirm hooks run while the session lock is released, so tests
// can simulate the user navigating away mid-request.
type fakePaymentClient struct {
	createCalls  []payment.IntentRequest
	confirmCalls []string

	createErr     error
	confirmErr    error
	confirmStatus string

	onCreate  func()
	onConfirm func()
}

func (f *fakePaymentClient) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.createCalls = append(f.createCalls, req)
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	n := len(f.createCalls)
	return &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Status:       payment.StatusRequiresConfirmation,
	}, nil
}

func (f *fakePaymentClient) ConfirmIntent(ctx context.Context, intentID, clientSecret string) (*payment.Intent, error) {
	f.confirmCalls = append(f.confirmCalls, intentID)
	if f.onConfirm != nil {
		f.onConfirm()
	}
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	status := f.confirmStatus
	if status == "" {
		status = payment.StatusSucceeded
	}
	return &payment.Intent{ID: intentID, ClientSecret: clientSecret, Status: status}, nil
}

func newTestCart(t *testing.T) *cart.Store {
	t.Helper()
	store := cart.NewStore(context.Background(), storage.NewMemorySlot())
	store.AddItem(context.Background(), cart.Line{
		ProductID: "p1",
		Name:      "Widget",
		UnitPrice: decimal.RequireFromString("10.00"),
		Quantity:  2,
	})
	return store
}

func newTestSession(t *testing.T) (*Session, *fakePaymentClient, *cart.Store) {
	t.Helper()
	store := newTestCart(t)
	payments := &fakePaymentClient{}
	session, err := NewSession(store, payments)
	require.NoError(t, err)
	return session, payments, store
}

// advanceToPayment moves a fresh session onto the Payment step.
func advanceToPayment(t *testing.T, s *Session) {
	t.Helper()
	result := s.CompleteShipping(validAddress())
	require.True(t, result.OK)
	require.Equal(t, StepPayment, s.Step())
}

// advanceToReview runs the payment handshake to completion.
func advanceToReview(t *testing.T, s *Session) {
	t.Helper()
	advanceToPayment(t, s)
	require.True(t, s.CreateIntent(context.Background()).OK)
	require.True(t, s.ConfirmPayment(context.Background()).OK)
	require.Equal(t, StepReview, s.Step())
}

// ============================================
// Session Lifecycle Tests
// ============================================

func TestNewSession_EmptyCart(t *testing.T) {
	store := cart.NewStore(context.Background(), storage.NewMemorySlot())
	session, err := NewSession(store, &fakePaymentClient{})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, session)
}

func TestNewSession_StartsOnShipping(t *testing.T) {
	session, _, _ := newTestSession(t)

	assert.Equal(t, StepShipping, session.Step())
	assert.NotEmpty(t, session.ID())
	assert.Nil(t, session.ShippingAddress())
	assert.Nil(t, session.PaymentReference())
	assert.False(t, session.Completed())
}

// ============================================
// Shipping Step Tests
// ============================================

func TestSession_CompleteShipping_Valid(t *testing.T) {
	session, _, _ := newTestSession(t)

	result := session.CompleteShipping(validAddress())

	assert.True(t, result.OK)
	assert.Equal(t, StepPayment, session.Step())
	require.NotNil(t, session.ShippingAddress())
	assert.Equal(t, "jane@example.com", session.ShippingAddress().Email)
}

func TestSession_CompleteShipping_InvalidStaysOnShipping(t *testing.T) {
	session, _, _ := newTestSession(t)

	addr := validAddress()
	addr.Email = "bad@x"
	result := session.CompleteShipping(addr)

	assert.False(t, result.OK)
	assert.Equal(t, "Please enter a valid email address", result.FieldErrors["email"])
	assert.Equal(t, StepShipping, session.Step())
	assert.Nil(t, session.ShippingAddress())
}

func TestSession_CompleteShipping_WrongStep(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToPayment(t, session)

	result := session.CompleteShipping(validAddress())

	assert.False(t, result.OK)
	assert.Equal(t, ErrWrongStep.Error(), result.Message)
}

// ============================================
// Payment Step Tests
// ============================================

func TestSession_CreateIntent_Success(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)

	result := session.CreateIntent(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, "pi_1_secret", session.PendingClientSecret())

	require.Len(t, payments.createCalls, 1)
	req := payments.createCalls[0]
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "jane@example.com", req.Email)
	require.NotNil(t, req.Shipping)
	assert.Equal(t, "Jane Doe", req.Shipping.Name)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "p1", req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
}

func TestSession_CreateIntent_BeforeShipping(t *testing.T) {
	session, payments, _ := newTestSession(t)

	result := session.CreateIntent(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ErrWrongStep.Error(), result.Message)
	assert.Empty(t, payments.createCalls)
}

func TestSession_CreateIntent_RetryUsesFreshIdempotencyKey(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)

	clock := time.UnixMilli(1700000000000)
	session.now = func() time.Time { return clock }

	require.True(t, session.CreateIntent(context.Background()).OK)
	clock = clock.Add(3 * time.Second)
	require.True(t, session.CreateIntent(context.Background()).OK)

	require.Len(t, payments.createCalls, 2)
	assert.Equal(t, "checkout_jane@example.com_1700000000000", payments.createCalls[0].IdempotencyKey)
	assert.Equal(t, "checkout_jane@example.com_1700000003000", payments.createCalls[1].IdempotencyKey)
	assert.NotEqual(t, payments.createCalls[0].IdempotencyKey, payments.createCalls[1].IdempotencyKey)
}

func TestSession_CreateIntent_ProcessorErrorStaysOnPayment(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	payments.createErr = &payment.ProcessorError{StatusCode: 402, Message: "Your card was declined."}

	result := session.CreateIntent(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, "Your card was declined.", result.Message)
	assert.Equal(t, StepPayment, session.Step())
	assert.Empty(t, session.PendingClientSecret())
}

func TestSession_CreateIntent_LateResponseDiscarded(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)

	// Simulate the user navigating back while the request is in flight.
	payments.onCreate = func() {
		require.True(t, session.Back().OK)
	}

	result := session.CreateIntent(context.Background())

	assert.True(t, result.Discarded)
	assert.False(t, result.OK)
	assert.Equal(t, StepShipping, session.Step())
	assert.Empty(t, session.PendingClientSecret())
}

func TestSession_ConfirmPayment_Success(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	require.True(t, session.CreateIntent(context.Background()).OK)

	result := session.ConfirmPayment(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, StepReview, session.Step())
	assert.True(t, session.PaymentConfirmed())

	ref := session.PaymentReference()
	require.NotNil(t, ref)
	assert.Equal(t, "pi_1", ref.IntentID)
	assert.Equal(t, "pi_1_secret", ref.ClientSecret)
	assert.Equal(t, []string{"pi_1"}, payments.confirmCalls)
}

func TestSession_ConfirmPayment_WithoutIntent(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToPayment(t, session)

	result := session.ConfirmPayment(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ErrNoIntent.Error(), result.Message)
}

func TestSession_ConfirmPayment_FailureStaysOnPayment(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	require.True(t, session.CreateIntent(context.Background()).OK)
	payments.confirmErr = &payment.ProcessorError{StatusCode: 402, Message: "Insufficient funds."}

	result := session.ConfirmPayment(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, "Insufficient funds.", result.Message)
	assert.Equal(t, StepPayment, session.Step())
	assert.False(t, session.PaymentConfirmed())
}

func TestSession_ConfirmPayment_NonSucceededStatus(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	require.True(t, session.CreateIntent(context.Background()).OK)
	payments.confirmStatus = payment.StatusProcessing

	result := session.ConfirmPayment(context.Background())

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "payment was not completed")
	assert.Equal(t, StepPayment, session.Step())
}

func TestSession_ConfirmPayment_DuplicateSubmitRejected(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	require.True(t, session.CreateIntent(context.Background()).OK)

	var nested StepResult
	payments.onConfirm = func() {
		inner := payments.onConfirm
		payments.onConfirm = nil
		defer func() { payments.onConfirm = inner }()
		nested = session.ConfirmPayment(context.Background())
	}

	result := session.ConfirmPayment(context.Background())

	assert.True(t, result.OK)
	assert.False(t, nested.OK)
	assert.Equal(t, ErrConfirmBusy.Error(), nested.Message)
	assert.Len(t, payments.confirmCalls, 1)
}

func TestSession_ConfirmPayment_LateResponseDiscarded(t *testing.T) {
	session, payments, _ := newTestSession(t)
	advanceToPayment(t, session)
	require.True(t, session.CreateIntent(context.Background()).OK)

	payments.onConfirm = func() {
		require.True(t, session.Back().OK)
	}

	result := session.ConfirmPayment(context.Background())

	assert.True(t, result.Discarded)
	assert.False(t, session.PaymentConfirmed())
	assert.Equal(t, StepShipping, session.Step())
}

// ============================================
// Backward Navigation Tests
// ============================================

func TestSession_Back_PreservesShippingData(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToPayment(t, session)

	result := session.Back()

	assert.True(t, result.OK)
	assert.Equal(t, StepShipping, session.Step())
	require.NotNil(t, session.ShippingAddress())
	assert.Equal(t, "jane@example.com", session.ShippingAddress().Email)
}

func TestSession_Back_FromShippingRejected(t *testing.T) {
	session, _, _ := newTestSession(t)

	result := session.Back()

	assert.False(t, result.OK)
	assert.Equal(t, ErrWrongStep.Error(), result.Message)
}

func TestSession_Back_FromReviewAbandonsIntent(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToReview(t, session)

	result := session.Back()

	assert.True(t, result.OK)
	assert.Equal(t, StepPayment, session.Step())
	// The pending intent was invalidated; a retry starts the handshake over.
	assert.Empty(t, session.PendingClientSecret())
}

// ============================================
// Place Order Tests
// ============================================

func TestSession_PlaceOrder_Success(t *testing.T) {
	session, _, store := newTestSession(t)
	advanceToReview(t, session)

	result := session.PlaceOrder(context.Background())

	assert.True(t, result.OK)
	assert.Equal(t, StepComplete, session.Step())
	assert.True(t, session.Completed())
	assert.True(t, store.IsEmpty())
}

func TestSession_PlaceOrder_RequiresConfirmedPayment(t *testing.T) {
	session, _, store := newTestSession(t)
	advanceToPayment(t, session)

	result := session.PlaceOrder(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ErrWrongStep.Error(), result.Message)
	assert.False(t, store.IsEmpty())
}

func TestSession_PlaceOrder_AfterCompletion(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToReview(t, session)
	require.True(t, session.PlaceOrder(context.Background()).OK)

	result := session.PlaceOrder(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, ErrSessionEnded.Error(), result.Message)
}

// ============================================
// Checkout Scenario
// ============================================

func TestSession_FullCheckoutScenario(t *testing.T) {
	session, payments, store := newTestSession(t)

	// Invalid address keeps the flow on Shipping.
	bad := validAddress()
	bad.Email = ""
	result := session.CompleteShipping(bad)
	assert.False(t, result.OK)
	assert.Equal(t, "Email is required", result.FieldErrors["email"])

	// Valid address advances to Payment.
	require.True(t, session.CompleteShipping(validAddress()).OK)

	// First confirmation attempt fails; the session stays on Payment.
	require.True(t, session.CreateIntent(context.Background()).OK)
	payments.confirmErr = &payment.ProcessorError{StatusCode: 402, Message: "Your card was declined."}
	result = session.ConfirmPayment(context.Background())
	assert.Equal(t, "Your card was declined.", result.Message)
	assert.Equal(t, StepPayment, session.Step())

	// Retry with a fresh intent succeeds.
	payments.confirmErr = nil
	require.True(t, session.CreateIntent(context.Background()).OK)
	require.True(t, session.ConfirmPayment(context.Background()).OK)
	assert.Equal(t, StepReview, session.Step())

	// Placing the order ends the session and empties the cart.
	require.True(t, session.PlaceOrder(context.Background()).OK)
	assert.True(t, session.Completed())
	assert.True(t, store.IsEmpty())
	assert.Len(t, payments.createCalls, 2)
}
