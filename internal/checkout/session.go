package checkout

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/payment"
)

// Step is the current position in the checkout workflow.
type Step string

const (
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
	StepComplete Step = "complete"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrWrongStep    = errors.New("operation not valid for current step")
	ErrNoIntent     = errors.New("no payment intent has been created")
	ErrConfirmBusy  = errors.New("a payment confirmation is already in progress")
	ErrSessionEnded = errors.New("checkout session has completed")
)

// validBackSteps maps each step to the step reached by navigating back.
// Backward movement is always permitted and preserves collected data.
var validBackSteps = map[Step]Step{
	StepPayment: StepShipping,
	StepReview:  StepPayment,
}

// PaymentReference identifies a confirmed payment intent.
type PaymentReference struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// StepResult is the tagged outcome of a step-completion operation. Exactly
// one of the failure fields is meaningful when OK is false: FieldErrors for
// local validation failures, Message for processor or flow errors.
// Discarded marks a late network response that arrived after the session
// left the step that issued it; the caller shows nothing.
type StepResult struct {
	OK          bool
	FieldErrors map[string]string
	Message     string
	Discarded   bool
}

func okResult() StepResult             { return StepResult{OK: true} }
func failResult(msg string) StepResult { return StepResult{Message: msg} }

// Session is the transient, in-memory state of one checkout run: a linear
// Shipping -> Payment -> Review progression over the cart's contents. It is
// never persisted across restarts.
type Session struct {
	mu sync.Mutex

	id       string
	cart     *cart.Store
	payments payment.Client
	now      func() time.Time

	step       Step
	shipping   *ShippingAddress
	paymentRef *PaymentReference

	// pendingIntent holds the created-but-unconfirmed intent for the
	// current payment attempt. attempt increments whenever the session
	// enters or leaves the Payment step, so responses from an abandoned
	// attempt can be recognized and discarded.
	pendingIntent *payment.Intent
	attempt       int
	confirming    bool
}

// NewSession starts a checkout over a non-empty cart.
func NewSession(cartStore *cart.Store, payments payment.Client) (*Session, error) {
	if cartStore.IsEmpty() {
		return nil, ErrEmptyCart
	}
	return &Session{
		id:       uuid.New().String(),
		cart:     cartStore,
		payments: payments,
		now:      time.Now,
		step:     StepShipping,
	}, nil
}

// ID returns the session's identifier, used to correlate log lines.
func (s *Session) ID() string {
	return s.id
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// ShippingAddress returns the collected address, or nil before the Shipping
// step completes.
func (s *Session) ShippingAddress() *ShippingAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shipping == nil {
		return nil
	}
	addr := *s.shipping
	return &addr
}

// PaymentReference returns the confirmed payment reference, or nil before
// the Payment step completes.
func (s *Session) PaymentReference() *PaymentReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paymentRef == nil {
		return nil
	}
	ref := *s.paymentRef
	return &ref
}

// PaymentConfirmed reports whether a payment confirmation has succeeded.
func (s *Session) PaymentConfirmed() bool {
	return s.PaymentReference() != nil
}

// Completed reports whether the order was placed and the session ended.
func (s *Session) Completed() bool {
	return s.Step() == StepComplete
}

// CompleteShipping validates the address and, when valid, stores it and
// advances to Payment. On validation failure the session stays on Shipping
// and per-field errors are returned; nothing is partially saved.
func (s *Session) CompleteShipping(addr ShippingAddress) StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepShipping {
		return failResult(ErrWrongStep.Error())
	}
	if errs := addr.Validate(); len(errs) > 0 {
		return StepResult{FieldErrors: errs}
	}

	s.shipping = &addr
	s.enterStepLocked(StepPayment)
	return okResult()
}

// CreateIntent requests a payment intent from the processor for the cart's
// current total. Each call attaches a freshly derived idempotency key, so a
// user-initiated retry re-issues creation without risking a duplicate
// charge from a network-level retry. On failure the session stays on
// Payment and the processor's message is returned.
func (s *Session) CreateIntent(ctx context.Context) StepResult {
	s.mu.Lock()
	if s.step != StepPayment || s.shipping == nil {
		s.mu.Unlock()
		return failResult(ErrWrongStep.Error())
	}
	attempt := s.attempt
	req := s.intentRequestLocked()
	s.mu.Unlock()

	intent, err := s.payments.CreateIntent(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepPayment || s.attempt != attempt {
		// The user navigated away while the request was in flight.
		log.Printf("[Checkout] Session %s: discarding late intent creation response", s.id)
		return StepResult{Discarded: true}
	}
	if err != nil {
		return failResult(err.Error())
	}
	s.pendingIntent = intent
	return okResult()
}

// PendingClientSecret exposes the one-time secret the hosted payment UI
// needs to collect payment details. Empty until CreateIntent succeeds.
func (s *Session) PendingClientSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingIntent == nil {
		return ""
	}
	return s.pendingIntent.ClientSecret
}

// ConfirmPayment requests confirmation of the pending intent. On success
// the payment reference is recorded and the session advances to Review. On
// failure the session stays on Payment with the processor's message.
// Duplicate submission while a confirmation is pending is rejected, and a
// response arriving after the user navigated away is discarded.
func (s *Session) ConfirmPayment(ctx context.Context) StepResult {
	s.mu.Lock()
	if s.step != StepPayment {
		s.mu.Unlock()
		return failResult(ErrWrongStep.Error())
	}
	if s.pendingIntent == nil {
		s.mu.Unlock()
		return failResult(ErrNoIntent.Error())
	}
	if s.confirming {
		s.mu.Unlock()
		return failResult(ErrConfirmBusy.Error())
	}
	s.confirming = true
	attempt := s.attempt
	intent := *s.pendingIntent
	s.mu.Unlock()

	confirmed, err := s.payments.ConfirmIntent(ctx, intent.ID, intent.ClientSecret)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirming = false
	if s.step != StepPayment || s.attempt != attempt {
		log.Printf("[Checkout] Session %s: discarding late confirmation response for intent %s", s.id, intent.ID)
		return StepResult{Discarded: true}
	}
	if err != nil {
		return failResult(err.Error())
	}
	if confirmed.Status != payment.StatusSucceeded {
		return failResult("payment was not completed: " + confirmed.Status)
	}

	s.paymentRef = &PaymentReference{IntentID: confirmed.ID, ClientSecret: intent.ClientSecret}
	s.enterStepLocked(StepReview)
	return okResult()
}

// Back navigates to the previous step. Collected data is preserved and not
// re-validated; any in-flight payment response for the abandoned attempt
// will be discarded on arrival.
func (s *Session) Back() StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := validBackSteps[s.step]
	if !ok {
		return failResult(ErrWrongStep.Error())
	}
	s.enterStepLocked(prev)
	return okResult()
}

// PlaceOrder finishes checkout from the Review step: the cart is cleared
// and the session terminates. No server-side order record is written; local
// confirmation is the completion signal in this design.
func (s *Session) PlaceOrder(ctx context.Context) StepResult {
	s.mu.Lock()
	if s.step == StepComplete {
		s.mu.Unlock()
		return failResult(ErrSessionEnded.Error())
	}
	if s.step != StepReview || s.paymentRef == nil {
		s.mu.Unlock()
		return failResult(ErrWrongStep.Error())
	}
	intentID := s.paymentRef.IntentID
	s.step = StepComplete
	s.mu.Unlock()

	s.cart.Clear(ctx)
	log.Printf("[Checkout] Session %s: order placed for intent %s", s.id, intentID)
	return okResult()
}

// enterStepLocked moves to a step and invalidates any payment attempt that
// belonged to the step being left.
func (s *Session) enterStepLocked(step Step) {
	s.step = step
	s.attempt++
	if step != StepReview {
		// Leaving or re-entering Payment abandons the pending intent; a
		// retry starts the handshake over with a fresh idempotency key.
		s.pendingIntent = nil
	}
}

// intentRequestLocked snapshots the cart and address into a creation
// request. Caller holds s.mu.
func (s *Session) intentRequestLocked() payment.IntentRequest {
	snapshot := s.cart.Snapshot()
	items := make([]payment.LineSnapshot, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, payment.LineSnapshot{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Variant:   line.VariantName,
		})
	}

	addr := s.shipping
	return payment.IntentRequest{
		Amount: snapshot.TotalPrice,
		Shipping: &payment.Shipping{
			Name:       addr.FullName(),
			Phone:      addr.Phone,
			Line1:      addr.Address1,
			Line2:      addr.Address2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		},
		Items:          items,
		Email:          addr.Email,
		IdempotencyKey: payment.NewIdempotencyKey(addr.Email, s.now()),
	}
}
