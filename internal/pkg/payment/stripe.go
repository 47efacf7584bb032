package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toolpress/toolpress/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

// StripeClient talks to the Stripe REST API directly. Requests are
// form-encoded, responses are JSON, authentication is a bearer secret key.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *StripeClient) Name() string {
	return "stripe"
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: "stripe", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb stripeErrorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return &ProviderError{Provider: "stripe", Code: eb.Error.Code, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &ProviderError{Provider: "stripe", Message: "invalid response body", Err: err}
		}
	}
	return nil
}

type stripeSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	Items             struct {
		Data []struct {
			ID    string `json:"id"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (s *stripeSubscription) toSubscription() *Subscription {
	sub := &Subscription{
		ExternalID:        s.ID,
		CustomerRef:       s.Customer,
		Status:            mapStripeStatus(s.Status),
		NativeStatus:      s.Status,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if len(s.Items.Data) > 0 {
		sub.PlanRef = s.Items.Data[0].Price.ID
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &t
	}
	return sub
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, paymentMethodRef string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", errors.New("email is required")
	}

	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	if pm := strings.TrimSpace(paymentMethodRef); pm != "" {
		form.Set("payment_method", pm)
		form.Set("invoice_settings[default_payment_method]", pm)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/customers", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &ProviderError{Provider: "stripe", Message: "customer response missing id"}
	}
	return out.ID, nil
}

func (c *StripeClient) CreateSubscription(ctx context.Context, params CreateParams) (*Subscription, error) {
	if strings.TrimSpace(params.CustomerRef) == "" {
		return nil, errors.New("customer ref is required")
	}
	if strings.TrimSpace(params.PlanRef) == "" {
		return nil, errors.New("plan ref is required")
	}

	form := url.Values{}
	form.Set("customer", params.CustomerRef)
	form.Set("items[0][price]", params.PlanRef)
	form.Set("payment_behavior", "default_incomplete")
	form.Set("expand[]", "latest_invoice.payment_intent")
	if pm := strings.TrimSpace(params.PaymentMethodRef); pm != "" {
		form.Set("default_payment_method", pm)
	}

	var out stripeSubscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions", form, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

func (c *StripeClient) UpdateSubscription(ctx context.Context, externalID, planRef string) (*Subscription, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("external id is required")
	}

	// A plan change replaces the price on the existing subscription item,
	// so the item id has to be fetched first.
	var current stripeSubscription
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(externalID), nil, &current); err != nil {
		return nil, err
	}
	if len(current.Items.Data) == 0 {
		return nil, &ProviderError{Provider: "stripe", Message: "subscription has no items"}
	}

	form := url.Values{}
	form.Set("items[0][id]", current.Items.Data[0].ID)
	form.Set("items[0][price]", planRef)
	form.Set("proration_behavior", "create_prorations")

	var out stripeSubscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(externalID), form, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

func (c *StripeClient) CancelSubscription(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return errors.New("external id is required")
	}

	err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(externalID), nil, nil)
	if err == nil {
		return nil
	}

	// Canceling a gone or already canceled subscription is a success.
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Code == "resource_missing" || strings.Contains(pe.Message, "canceled") {
			return nil
		}
	}
	return err
}

func (c *StripeClient) RetrieveSubscription(ctx context.Context, externalID string) (*Subscription, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("external id is required")
	}

	var out stripeSubscription
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(externalID), nil, &out); err != nil {
		return nil, err
	}
	return out.toSubscription(), nil
}

// mapStripeStatus maps Stripe's native subscription status onto the local
// status set. Unknown statuses map to past_due so a subscription in a state
// we do not recognize never counts as paid up.
func mapStripeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return StatusActive
	case "canceled", "incomplete_expired":
		return StatusCanceled
	case "past_due", "unpaid":
		return StatusPastDue
	case "incomplete":
		return StatusPending
	default:
		return StatusPastDue
	}
}

// ParseWebhookEvent normalizes a Stripe webhook payload. Event types this
// integration does not act on return ErrUnhandledEvent.
func (c *StripeClient) ParseWebhookEvent(payload []byte) (*Event, error) {
	var raw struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid stripe webhook payload: %w", err)
	}
	if raw.ID == "" {
		return nil, errors.New("stripe webhook payload missing event id")
	}

	ev := &Event{
		Provider:   "stripe",
		EventID:    raw.ID,
		OccurredAt: time.Unix(raw.Created, 0).UTC(),
	}
	if raw.Created == 0 {
		ev.OccurredAt = time.Now().UTC()
	}

	switch raw.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(raw.Data.Object, &sub); err != nil {
			return nil, fmt.Errorf("invalid stripe subscription object: %w", err)
		}
		if sub.ID == "" {
			return nil, errors.New("stripe webhook subscription missing id")
		}
		ev.Kind = EventStatusChanged
		ev.ExternalID = sub.ID
		ev.NativeStatus = sub.Status
		ev.Status = mapStripeStatus(sub.Status)
		if raw.Type == "customer.subscription.deleted" {
			ev.Status = StatusCanceled
		}
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			ev.PeriodEnd = &t
		}
		return ev, nil

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv struct {
			Subscription string `json:"subscription"`
			AmountPaid   int64  `json:"amount_paid"`
			AmountDue    int64  `json:"amount_due"`
			Currency     string `json:"currency"`
			Lines        struct {
				Data []struct {
					Period struct {
						End int64 `json:"end"`
					} `json:"period"`
				} `json:"data"`
			} `json:"lines"`
		}
		if err := json.Unmarshal(raw.Data.Object, &inv); err != nil {
			return nil, fmt.Errorf("invalid stripe invoice object: %w", err)
		}
		if inv.Subscription == "" {
			return nil, errors.New("stripe invoice webhook missing subscription id")
		}
		ev.ExternalID = inv.Subscription
		ev.Currency = strings.ToUpper(inv.Currency)
		if raw.Type == "invoice.payment_succeeded" {
			ev.Kind = EventPaymentSucceeded
			ev.Status = StatusActive
			ev.Amount = float64(inv.AmountPaid) / 100
		} else {
			ev.Kind = EventPaymentFailed
			ev.Status = StatusPastDue
			ev.Amount = float64(inv.AmountDue) / 100
		}
		if len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Period.End > 0 {
			t := time.Unix(inv.Lines.Data[0].Period.End, 0).UTC()
			ev.PeriodEnd = &t
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, raw.Type)
	}
}
