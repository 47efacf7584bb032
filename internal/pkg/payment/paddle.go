package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/toolpress/toolpress/internal/pkg/env"
)

const defaultPaddleAPIBaseURL = "https://vendors.paddle.com/api/2.0"

// Paddle returns an already-canceled error with this code, which the
// idempotent cancel treats as success.
const paddleCodeAlreadyCanceled = "113"

// PaddleClient talks to the Paddle classic vendor API. Every response is a
// JSON envelope with a success flag and either a response or an error body.
type PaddleClient struct {
	VendorID       string
	VendorAuthCode string
	APIBaseURL     string

	HTTPClient *http.Client
}

func NewPaddleClientFromEnv() *PaddleClient {
	return &PaddleClient{
		VendorID:       strings.TrimSpace(env.GetEnv("PADDLE_VENDOR_ID", "")),
		VendorAuthCode: strings.TrimSpace(env.GetEnv("PADDLE_VENDOR_AUTH_CODE", "")),
		APIBaseURL:     strings.TrimRight(strings.TrimSpace(env.GetEnv("PADDLE_API_BASE_URL", defaultPaddleAPIBaseURL)), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *PaddleClient) Name() string {
	return "paddle"
}

func (c *PaddleClient) do(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c.VendorID == "" || c.VendorAuthCode == "" {
		return errors.New("PADDLE_VENDOR_ID/PADDLE_VENDOR_AUTH_CODE are not configured")
	}

	form.Set("vendor_id", c.VendorID)
	form.Set("vendor_auth_code", c.VendorAuthCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: "paddle", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var envelope struct {
		Success  bool            `json:"success"`
		Response json.RawMessage `json:"response"`
		Error    struct {
			Code    json.Number `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ProviderError{Provider: "paddle", Message: "invalid response body", Err: err}
	}
	if !envelope.Success {
		msg := envelope.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &ProviderError{Provider: "paddle", Code: envelope.Error.Code.String(), Message: msg}
	}

	if out != nil && len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, out); err != nil {
			return &ProviderError{Provider: "paddle", Message: "invalid response payload", Err: err}
		}
	}
	return nil
}

// CreateCustomer is a no-op for Paddle. The classic API has no standalone
// customer object, subscriptions are keyed by email, so the email itself
// serves as the customer reference.
func (c *PaddleClient) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	return email, nil
}

type paddleSubscriptionResponse struct {
	SubscriptionID json.Number `json:"subscription_id"`
	UserID         json.Number `json:"user_id"`
	PlanID         json.Number `json:"plan_id"`
	State          string      `json:"state"`
	NextPayment    struct {
		Date string `json:"date"`
	} `json:"next_payment"`
}

func (p *paddleSubscriptionResponse) toSubscription() *Subscription {
	sub := &Subscription{
		ExternalID:   p.SubscriptionID.String(),
		CustomerRef:  p.UserID.String(),
		PlanRef:      p.PlanID.String(),
		Status:       mapPaddleStatus(p.State),
		NativeStatus: p.State,
	}
	if t := parsePaddleTime(p.NextPayment.Date); t != nil {
		sub.CurrentPeriodEnd = t
	}
	return sub
}

func (c *PaddleClient) CreateSubscription(ctx context.Context, params CreateParams) (*Subscription, error) {
	if strings.TrimSpace(params.PlanRef) == "" {
		return nil, errors.New("plan ref is required")
	}
	if strings.TrimSpace(params.Email) == "" {
		return nil, errors.New("email is required")
	}

	form := url.Values{}
	form.Set("plan_id", params.PlanRef)
	form.Set("email", strings.TrimSpace(params.Email))
	if params.Country != "" {
		form.Set("country", params.Country)
	}

	var out paddleSubscriptionResponse
	if err := c.do(ctx, "/subscription/create", form, &out); err != nil {
		return nil, err
	}
	if out.SubscriptionID.String() == "" || out.SubscriptionID.String() == "0" {
		return nil, &ProviderError{Provider: "paddle", Message: "create response missing subscription id"}
	}
	sub := out.toSubscription()
	if sub.Status == "" || out.State == "" {
		// Paddle's create response omits state; a fresh subscription is active.
		sub.Status = StatusActive
		sub.NativeStatus = "active"
	}
	return sub, nil
}

func (c *PaddleClient) UpdateSubscription(ctx context.Context, externalID, planRef string) (*Subscription, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("external id is required")
	}

	form := url.Values{}
	form.Set("subscription_id", externalID)
	form.Set("plan_id", planRef)
	form.Set("prorate", "true")

	var out paddleSubscriptionResponse
	if err := c.do(ctx, "/subscription/users/update", form, &out); err != nil {
		return nil, err
	}
	sub := out.toSubscription()
	if sub.ExternalID == "" || sub.ExternalID == "0" {
		sub.ExternalID = externalID
	}
	if out.State == "" {
		sub.Status = StatusActive
		sub.NativeStatus = "active"
	}
	sub.PlanRef = planRef
	return sub, nil
}

func (c *PaddleClient) CancelSubscription(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return errors.New("external id is required")
	}

	form := url.Values{}
	form.Set("subscription_id", externalID)

	err := c.do(ctx, "/subscription/users_cancel", form, nil)
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code == paddleCodeAlreadyCanceled {
		return nil
	}
	return err
}

func (c *PaddleClient) RetrieveSubscription(ctx context.Context, externalID string) (*Subscription, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("external id is required")
	}

	form := url.Values{}
	form.Set("subscription_id", externalID)

	var out []paddleSubscriptionResponse
	if err := c.do(ctx, "/subscription/users", form, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &ProviderError{Provider: "paddle", Message: "subscription not found"}
	}
	return out[0].toSubscription(), nil
}

// mapPaddleStatus maps Paddle's native subscription state onto the local
// status set. Unknown states map to past_due, same reasoning as Stripe.
func mapPaddleStatus(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "active", "trialing":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "deleted":
		return StatusCanceled
	case "paused":
		return StatusPastDue
	default:
		return StatusPastDue
	}
}

func parsePaddleTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// ParseWebhookEvent normalizes a Paddle classic webhook payload. Paddle
// delivers form-encoded bodies keyed by alert_name; callers pass the raw
// body. Alerts this integration does not act on return ErrUnhandledEvent.
func (c *PaddleClient) ParseWebhookEvent(payload []byte) (*Event, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid paddle webhook payload: %w", err)
	}

	alertName := values.Get("alert_name")
	alertID := values.Get("alert_id")
	if alertID == "" {
		return nil, errors.New("paddle webhook payload missing alert_id")
	}

	ev := &Event{
		Provider:   "paddle",
		EventID:    alertID,
		ExternalID: values.Get("subscription_id"),
		OccurredAt: time.Now().UTC(),
	}
	if t := parsePaddleTime(values.Get("event_time")); t != nil {
		ev.OccurredAt = *t
	}
	if ev.ExternalID == "" {
		return nil, errors.New("paddle webhook payload missing subscription_id")
	}

	switch alertName {
	case "subscription_created", "subscription_updated":
		ev.Kind = EventStatusChanged
		ev.NativeStatus = values.Get("status")
		ev.Status = mapPaddleStatus(ev.NativeStatus)
		ev.PeriodEnd = parsePaddleTime(values.Get("next_bill_date"))
		return ev, nil

	case "subscription_cancelled":
		ev.Kind = EventStatusChanged
		ev.NativeStatus = values.Get("status")
		ev.Status = StatusCanceled
		return ev, nil

	case "subscription_payment_succeeded":
		ev.Kind = EventPaymentSucceeded
		ev.Status = StatusActive
		ev.Amount = parsePaddleAmount(values.Get("sale_gross"))
		ev.Currency = strings.ToUpper(values.Get("currency"))
		ev.PeriodEnd = parsePaddleTime(values.Get("next_bill_date"))
		return ev, nil

	case "subscription_payment_failed":
		ev.Kind = EventPaymentFailed
		ev.Status = StatusPastDue
		ev.Amount = parsePaddleAmount(values.Get("amount"))
		ev.Currency = strings.ToUpper(values.Get("currency"))
		ev.PeriodEnd = parsePaddleTime(values.Get("next_retry_date"))
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, alertName)
	}
}

func parsePaddleAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
