package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// ReceiptSender sends a receipt for a succeeded payment.
type ReceiptSender interface {
	SendPaymentReceipt(to, intentID string, totalMinor int64, items []email.ReceiptItem) error
}

// Handler turns verified payment lifecycle events into customer
// notifications. It never touches cart or checkout state.
type Handler struct {
	sender ReceiptSender
}

func NewHandler(sender ReceiptSender) *Handler {
	return &Handler{sender: sender}
}

// HandleEvent processes one payment event from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event payment.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.Type {
	case payment.EventPaymentSucceeded:
		return h.handleSucceeded(event.Data.Object)
	case payment.EventPaymentFailed:
		log.Printf("[Notifier] Payment failed for intent %s", event.Data.Object.ID)
	case payment.EventPaymentProcessing, payment.EventPaymentRequiresAction:
		log.Printf("[Notifier] Payment %s for intent %s", event.Type, event.Data.Object.ID)
	default:
		log.Printf("[Notifier] Ignoring event type %s", event.Type)
	}
	return nil
}

// metadataItem matches the orderItems snapshot attached at intent creation.
type metadataItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Variant  string          `json:"variant"`
}

func (h *Handler) handleSucceeded(intent payment.IntentEvent) error {
	to := intent.ReceiptEmail
	if to == "" {
		to = intent.Metadata["customerEmail"]
	}
	if to == "" {
		log.Printf("[Notifier] No recipient for intent %s, skipping receipt", intent.ID)
		return nil
	}

	items := receiptItems(intent.Metadata["orderItems"])

	if err := h.sender.SendPaymentReceipt(to, intent.ID, intent.Amount, items); err != nil {
		log.Printf("[Notifier] Failed to send receipt to %s: %v", to, err)
		return err
	}

	log.Printf("[Notifier] Payment receipt sent to %s for intent %s", to, intent.ID)
	return nil
}

func receiptItems(orderItemsJSON string) []email.ReceiptItem {
	if orderItemsJSON == "" {
		return nil
	}

	var raw []metadataItem
	if err := json.Unmarshal([]byte(orderItemsJSON), &raw); err != nil {
		log.Printf("[Notifier] Failed to parse order items metadata: %v", err)
		return nil
	}

	items := make([]email.ReceiptItem, len(raw))
	for i, item := range raw {
		items[i] = email.ReceiptItem{
			ProductID: item.ID,
			Name:      item.Name,
			Variant:   item.Variant,
			Quantity:  item.Quantity,
			Price:     "$" + item.Price.StringFixed(2),
		}
	}
	return items
}
