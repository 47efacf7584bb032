package models

import "time"

const (
	SubProviderStripe = "stripe"
	SubProviderPaddle = "paddle"
)

const (
	SubStatusPending  = "pending"
	SubStatusActive   = "active"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"
)

const (
	BillingOutcomeSucceeded = "succeeded"
	BillingOutcomeFailed    = "failed"
)

// Subscription is the authoritative local record of one user's paid plan
// entitlement, reconciled against the provider via webhook events. Rows are
// never hard-deleted (billing audit).
type Subscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	Plan              string     `gorm:"type:varchar(20);not null" json:"plan"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_subscriptions_provider_extid,unique,priority:1" json:"provider"`
	ExternalID        string     `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_extid,unique,priority:2" json:"external_id"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_subscriptions_user_status,priority:2" json:"status"`
	Price             float64    `gorm:"not null" json:"price"`
	Currency          string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CurrentPeriodEnd  *time.Time `gorm:"type:timestamp;default:null;index" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt        *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`

	Features       []SubscriptionFeature `gorm:"foreignKey:SubscriptionID" json:"features,omitempty"`
	BillingHistory []BillingRecord       `gorm:"foreignKey:SubscriptionID" json:"billing_history,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription entitles access right now.
func (s *Subscription) IsActive() bool {
	return s.Status == SubStatusActive &&
		s.CurrentPeriodEnd != nil &&
		s.CurrentPeriodEnd.After(time.Now())
}

// TotalRevenue sums the succeeded entries of the loaded billing history.
func (s *Subscription) TotalRevenue() float64 {
	var total float64
	for _, rec := range s.BillingHistory {
		if rec.Outcome == BillingOutcomeSucceeded {
			total += rec.Amount
		}
	}
	return total
}

// SubscriptionFeature is one entry of the ordered feature list snapshotted
// from the plan catalog at creation / plan change.
type SubscriptionFeature struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	SubscriptionID uint   `gorm:"not null;index" json:"subscription_id"`
	Name           string `gorm:"type:varchar(100);not null" json:"name"`
	Enabled        bool   `gorm:"default:true" json:"enabled"`
	Position       int    `gorm:"not null;default:0" json:"position"`
}

// BillingRecord is one append-only billing history entry. The unique
// (provider, provider_event_id) pair is the guard against double-appending
// when a webhook is redelivered.
type BillingRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID  uint      `gorm:"not null;index" json:"subscription_id"`
	Provider        string    `gorm:"type:varchar(20);not null;index:ux_billing_records_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string    `gorm:"type:varchar(191);not null;index:ux_billing_records_provider_event,unique,priority:2" json:"provider_event_id"`
	Amount          float64   `gorm:"not null" json:"amount"`
	Currency        string    `gorm:"type:varchar(3);not null" json:"currency"`
	Outcome         string    `gorm:"type:varchar(16);not null" json:"outcome"`
	OccurredAt      time.Time `gorm:"type:timestamp;not null" json:"occurred_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// WebhookEvent stores provider webhook payloads with deduplication metadata
// for idempotent processing.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
