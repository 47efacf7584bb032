package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: StatusActive},
		{in: "trialing", want: StatusActive},
		{in: "canceled", want: StatusCanceled},
		{in: "incomplete_expired", want: StatusCanceled},
		{in: "past_due", want: StatusPastDue},
		{in: "unpaid", want: StatusPastDue},
		{in: "incomplete", want: StatusPending},
		{in: "something_else", want: StatusPastDue},
		{in: "", want: StatusPastDue},
	}

	for _, tt := range tests {
		if got := mapStripeStatus(tt.in); got != tt.want {
			t.Fatalf("mapStripeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestStripeClient(srv *httptest.Server) *StripeClient {
	return &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}
}

func TestStripeCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("items[0][price]"); got != "price_pro" {
			t.Fatalf("unexpected price: %q", got)
		}
		if got := r.PostForm.Get("payment_behavior"); got != "default_incomplete" {
			t.Fatalf("unexpected payment_behavior: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "sub_123",
			"customer": "cus_456",
			"status": "incomplete",
			"current_period_end": 1767225600,
			"items": { "data": [ { "id": "si_1", "price": { "id": "price_pro" } } ] }
		}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv)
	sub, err := client.CreateSubscription(context.Background(), CreateParams{
		CustomerRef:      "cus_456",
		PlanRef:          "price_pro",
		PaymentMethodRef: "pm_789",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.ExternalID != "sub_123" {
		t.Fatalf("unexpected external id: %q", sub.ExternalID)
	}
	if sub.Status != StatusPending {
		t.Fatalf("expected pending status, got %q", sub.Status)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(time.Unix(1767225600, 0)) {
		t.Fatalf("unexpected period end: %v", sub.CurrentPeriodEnd)
	}
}

func TestStripeCreateSubscription_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv)
	_, err := client.CreateSubscription(context.Background(), CreateParams{
		CustomerRef: "cus_456",
		PlanRef:     "price_pro",
	})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Code != "card_declined" {
		t.Fatalf("unexpected code: %q", pe.Code)
	}
}

func TestStripeCancelSubscription_AlreadyCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such subscription"}}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv)
	if err := client.CancelSubscription(context.Background(), "sub_gone"); err != nil {
		t.Fatalf("expected already-canceled to succeed, got %v", err)
	}
}

func TestStripeParseWebhookEvent_SubscriptionUpdated(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"created": 1767225600,
		"data": { "object": {
			"id": "sub_123",
			"customer": "cus_456",
			"status": "past_due",
			"current_period_end": 1769904000
		}}
	}`)

	client := &StripeClient{}
	ev, err := client.ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Kind != EventStatusChanged {
		t.Fatalf("unexpected kind: %q", ev.Kind)
	}
	if ev.ExternalID != "sub_123" || ev.EventID != "evt_1" {
		t.Fatalf("unexpected ids: external=%q event=%q", ev.ExternalID, ev.EventID)
	}
	if ev.Status != StatusPastDue {
		t.Fatalf("unexpected status: %q", ev.Status)
	}
	if ev.PeriodEnd == nil || !ev.PeriodEnd.Equal(time.Unix(1769904000, 0)) {
		t.Fatalf("unexpected period end: %v", ev.PeriodEnd)
	}
}

func TestStripeParseWebhookEvent_SubscriptionDeletedForcesCanceled(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": { "object": { "id": "sub_123", "status": "active" } }
	}`)

	client := &StripeClient{}
	ev, err := client.ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Status != StatusCanceled {
		t.Fatalf("expected canceled, got %q", ev.Status)
	}
}

func TestStripeParseWebhookEvent_PaymentFailed(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "invoice.payment_failed",
		"data": { "object": {
			"subscription": "sub_123",
			"amount_due": 2900,
			"currency": "eur"
		}}
	}`)

	client := &StripeClient{}
	ev, err := client.ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.Kind != EventPaymentFailed {
		t.Fatalf("unexpected kind: %q", ev.Kind)
	}
	if ev.Amount != 29 {
		t.Fatalf("unexpected amount: %v", ev.Amount)
	}
	if ev.Currency != "EUR" {
		t.Fatalf("unexpected currency: %q", ev.Currency)
	}
	if ev.Status != StatusPastDue {
		t.Fatalf("unexpected status: %q", ev.Status)
	}
}

func TestStripeParseWebhookEvent_Unhandled(t *testing.T) {
	payload := []byte(`{"id":"evt_4","type":"charge.refunded","data":{"object":{}}}`)

	client := &StripeClient{}
	_, err := client.ParseWebhookEvent(payload)
	if !errors.Is(err, ErrUnhandledEvent) {
		t.Fatalf("expected ErrUnhandledEvent, got %v", err)
	}
}
