package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Intent statuses as reported by the processor. Transitions between them
// happen outside this system's control.
const (
	StatusRequiresConfirmation = "requires_confirmation"
	StatusProcessing           = "processing"
	StatusSucceeded            = "succeeded"
	StatusFailed               = "failed"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrMissingShipping = errors.New("shipping address is required")
	ErrMissingItems    = errors.New("at least one item is required")
	ErrMissingEmail    = errors.New("email is required")
)

// Shipping is the address attached to an intent, in the processor's shape.
type Shipping struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// LineSnapshot is one cart line as recorded in intent metadata.
type LineSnapshot struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Variant   string          `json:"variant,omitempty"`
}

// IntentRequest carries everything needed to create a payment intent.
type IntentRequest struct {
	Amount         decimal.Decimal
	Shipping       *Shipping
	Items          []LineSnapshot
	Email          string
	IdempotencyKey string
}

// Validate rejects non-positive amounts and missing required fields.
func (r IntentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.Shipping == nil {
		return ErrMissingShipping
	}
	if len(r.Items) == 0 {
		return ErrMissingItems
	}
	if r.Email == "" {
		return ErrMissingEmail
	}
	return nil
}

// Intent is the processor's record of an authorization-to-charge.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Client mediates between the checkout flow and the external payment
// processor. The core never handles raw payment credentials; confirmation
// is authorized by the one-time client secret alone.
type Client interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, clientSecret string) (*Intent, error)
}

// NewIdempotencyKey derives a caller-supplied token from (email, timestamp)
// so a retried creation request cannot produce a duplicate charge, while a
// deliberate retry gets a fresh key.
func NewIdempotencyKey(email string, now time.Time) string {
	return fmt.Sprintf("checkout_%s_%d", email, now.UnixMilli())
}

// ProcessorError is a human-readable error returned by the processor. It is
// surfaced to the user at the step where it occurred.
type ProcessorError struct {
	StatusCode int
	Message    string
}

func (e *ProcessorError) Error() string {
	return e.Message
}
