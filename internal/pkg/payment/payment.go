package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Local subscription statuses. Provider-native statuses are mapped onto
// these before anything touches the database.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Event kinds produced by ParseWebhookEvent.
const (
	EventStatusChanged    = "status-changed"
	EventPaymentSucceeded = "payment-succeeded"
	EventPaymentFailed    = "payment-failed"
)

// ErrUnhandledEvent signals a webhook payload of a type this integration
// does not act on. Callers should acknowledge the delivery and move on.
var ErrUnhandledEvent = errors.New("unhandled webhook event type")

// CreateParams carries everything a provider needs to open a subscription.
type CreateParams struct {
	CustomerRef      string
	PlanRef          string
	PaymentMethodRef string
	Email            string
	Country          string
}

// Subscription is the provider's view of a subscription, normalized.
type Subscription struct {
	ExternalID        string
	CustomerRef       string
	PlanRef           string
	Status            string
	NativeStatus      string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// Event is a normalized webhook event. ExternalID identifies the provider
// subscription the event belongs to.
type Event struct {
	Provider     string
	EventID      string
	Kind         string
	ExternalID   string
	NativeStatus string
	Status       string
	PeriodEnd    *time.Time
	Amount       float64
	Currency     string
	OccurredAt   time.Time
}

// Provider abstracts one payment provider. CancelSubscription must be
// idempotent: canceling an already canceled subscription is not an error.
type Provider interface {
	Name() string
	CreateCustomer(ctx context.Context, email, paymentMethodRef string) (string, error)
	CreateSubscription(ctx context.Context, params CreateParams) (*Subscription, error)
	UpdateSubscription(ctx context.Context, externalID, planRef string) (*Subscription, error)
	CancelSubscription(ctx context.Context, externalID string) error
	RetrieveSubscription(ctx context.Context, externalID string) (*Subscription, error)
	ParseWebhookEvent(payload []byte) (*Event, error)
}

// ProviderError wraps a failure reported by a provider API so callers can
// distinguish upstream failures from local ones.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
