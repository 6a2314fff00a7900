package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const DefaultBaseURL = "https://api.stripe.com"

// StripeClient talks to the Stripe payment intents API over HTTPS.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewStripeClient creates a client authenticated with the account secret
// key. Pass a nil httpClient to use http.DefaultClient; a production
// deployment should inject a client with a timeout.
func NewStripeClient(baseURL, secretKey string, httpClient *http.Client) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StripeClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: httpClient,
	}
}

// CreateIntent creates a payment intent for the given amount, shipping
// address, cart line snapshot and contact email. The idempotency key is
// forwarded so a retried request cannot create a duplicate charge.
func (c *StripeClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item snapshot: %w", err)
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(ToMinorUnits(req.Amount), 10))
	form.Set("currency", "usd")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("receipt_email", req.Email)
	form.Set("shipping[name]", req.Shipping.Name)
	if req.Shipping.Phone != "" {
		form.Set("shipping[phone]", req.Shipping.Phone)
	}
	form.Set("shipping[address][line1]", req.Shipping.Line1)
	if req.Shipping.Line2 != "" {
		form.Set("shipping[address][line2]", req.Shipping.Line2)
	}
	form.Set("shipping[address][city]", req.Shipping.City)
	form.Set("shipping[address][state]", req.Shipping.State)
	form.Set("shipping[address][postal_code]", req.Shipping.PostalCode)
	form.Set("shipping[address][country]", req.Shipping.Country)
	form.Set("metadata[orderItems]", string(itemsJSON))
	form.Set("metadata[customerEmail]", req.Email)
	form.Set("metadata[orderTotal]", req.Amount.String())

	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	return c.do(ctx, "/v1/payment_intents", form, headers)
}

// ConfirmIntent requests confirmation of an intent using its one-time
// client secret.
func (c *StripeClient) ConfirmIntent(ctx context.Context, intentID, clientSecret string) (*Intent, error) {
	form := url.Values{}
	form.Set("client_secret", clientSecret)
	return c.do(ctx, "/v1/payment_intents/"+intentID+"/confirm", form, nil)
}

func (c *StripeClient) do(ctx context.Context, path string, form url.Values, headers map[string]string) (*Intent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseProcessorError(resp.StatusCode, body)
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode processor response: %w", err)
	}
	return &intent, nil
}

func parseProcessorError(status int, body []byte) error {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return &ProcessorError{StatusCode: status, Message: wrapper.Error.Message}
	}
	return &ProcessorError{StatusCode: status, Message: fmt.Sprintf("payment processor returned status %d", status)}
}
