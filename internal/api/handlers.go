package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// EventPublisher forwards verified webhook events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handlers struct {
	payments      payment.Client
	catalog       catalog.Repository
	webhookSecret string
	publisher     EventPublisher
}

// NewHandlers wires the HTTP surface. publisher may be nil when no broker
// is configured; verified webhook events are then logged only.
func NewHandlers(payments payment.Client, repo catalog.Repository, webhookSecret string, publisher EventPublisher) *Handlers {
	return &Handlers{
		payments:      payments,
		catalog:       repo,
		webhookSecret: webhookSecret,
		publisher:     publisher,
	}
}

// Payment Handlers

type createIntentRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Shipping *shippingPayload `json:"shipping"`
	Items    []itemPayload    `json:"items"`
	Email    string           `json:"email"`
}

type shippingPayload struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type itemPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Variant  string          `json:"variant"`
}

// CreatePaymentIntent creates a payment intent with the processor. Rejects
// non-positive amounts and missing required fields with a client error;
// processor errors pass their human-readable message through.
func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Amount == nil || req.Shipping == nil || len(req.Items) == 0 || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	items := make([]payment.LineSnapshot, len(req.Items))
	for i, item := range req.Items {
		items[i] = payment.LineSnapshot{
			ProductID: item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Variant:   item.Variant,
		}
	}

	intentReq := payment.IntentRequest{
		Amount: *req.Amount,
		Shipping: &payment.Shipping{
			Name:       strings.TrimSpace(req.Shipping.FirstName + " " + req.Shipping.LastName),
			Phone:      req.Shipping.Phone,
			Line1:      req.Shipping.Address1,
			Line2:      req.Shipping.Address2,
			City:       req.Shipping.City,
			State:      req.Shipping.State,
			PostalCode: req.Shipping.PostalCode,
			Country:    req.Shipping.Country,
		},
		Items:          items,
		Email:          req.Email,
		IdempotencyKey: payment.NewIdempotencyKey(req.Email, time.Now()),
	}

	intent, err := h.payments.CreateIntent(r.Context(), intentReq)
	if err != nil {
		log.Printf("[API] Error creating payment intent: %v", err)
		var procErr *payment.ProcessorError
		if errors.As(err, &procErr) && procErr.StatusCode < 500 {
			respondError(w, http.StatusBadRequest, procErr.Message)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
	})
}

// Webhook verifies the processor's signature and acknowledges receipt.
// Verified events are logged and republished for the notifier; no cart or
// checkout state is updated by this channel.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := payment.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Printf("[API] Webhook signature verification failed: %v", err)
		respondError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	intent := event.Data.Object
	switch event.Type {
	case payment.EventPaymentSucceeded:
		log.Printf("[API] Payment received for intent %s", intent.ID)
	case payment.EventPaymentFailed:
		log.Printf("[API] Payment failed for intent %s", intent.ID)
	case payment.EventPaymentProcessing:
		log.Printf("[API] Payment processing for intent %s", intent.ID)
	case payment.EventPaymentRequiresAction:
		log.Printf("[API] Payment requires action for intent %s", intent.ID)
	default:
		log.Printf("[API] Unhandled webhook event type: %s", event.Type)
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), intent.ID, event); err != nil {
			// The event was verified and acknowledged; delivery to the
			// notifier is best-effort.
			log.Printf("[API] Failed to publish webhook event %s: %v", event.ID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Catalog Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		log.Printf("[API] Error listing products: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := extractPathParam(r.URL.Path, "/products/")
	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		h.respondCatalogError(w, "product", slug, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		log.Printf("[API] Error listing categories: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := extractPathParam(r.URL.Path, "/categories/")
	category, err := h.catalog.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		h.respondCatalogError(w, "category", slug, err)
		return
	}

	products, err := h.catalog.ListProductsByCategory(r.Context(), slug)
	if err != nil {
		log.Printf("[API] Error listing products for category %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"products": products,
	})
}

func (h *Handlers) GetBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.ListBrands(r.Context())
	if err != nil {
		log.Printf("[API] Error listing brands: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, brands)
}

func (h *Handlers) GetBrand(w http.ResponseWriter, r *http.Request) {
	slug := extractPathParam(r.URL.Path, "/brands/")
	brand, err := h.catalog.GetBrandBySlug(r.Context(), slug)
	if err != nil {
		h.respondCatalogError(w, "brand", slug, err)
		return
	}

	products, err := h.catalog.ListProductsByBrand(r.Context(), slug)
	if err != nil {
		log.Printf("[API] Error listing products for brand %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"brand":    brand,
		"products": products,
	})
}

func (h *Handlers) respondCatalogError(w http.ResponseWriter, kind, slug string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, kind+" not found")
		return
	}
	log.Printf("[API] Error getting %s %s: %v", kind, slug, err)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
