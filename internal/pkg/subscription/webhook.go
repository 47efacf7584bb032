package subscription

import (
	"errors"
	"fmt"
	"log"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/internal/pkg/apperr"
	"github.com/toolpress/toolpress/internal/pkg/payment"
	"gorm.io/gorm"
)

// HandleWebhook reconciles one provider webhook delivery against the local
// subscription state. Deliveries are journaled first, deduplicated on the
// provider event id, and applied under a per-subscription lock so redelivery
// and concurrent delivery both converge to the same state.
func (s *Service) HandleWebhook(providerName string, payload []byte) error {
	provider, ok := s.providers[providerName]
	if !ok {
		return apperr.Validation(fmt.Sprintf("Unsupported payment provider: %s", providerName))
	}

	ev, err := provider.ParseWebhookEvent(payload)
	if err != nil {
		if errors.Is(err, payment.ErrUnhandledEvent) {
			// Not an error: the provider sends event types we do not act on.
			log.Printf("[Webhook] %s: ignoring %v", providerName, err)
			return nil
		}
		return apperr.Wrap(err, 400, apperr.CodeValidation, "Invalid webhook payload")
	}

	journal := &models.WebhookEvent{
		Provider:        ev.Provider,
		ProviderEventID: ev.EventID,
		EventType:       ev.Kind,
		PayloadJSON:     string(payload),
	}
	created, stored, err := s.subs.CreateWebhookEventIfNotExists(journal)
	if err != nil {
		return err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// Redelivery of an event that already applied cleanly.
		log.Printf("[Webhook] %s: duplicate event %s, skipping", providerName, ev.EventID)
		return nil
	}

	unlock := s.locks.Lock(ev.Provider + ":" + ev.ExternalID)
	defer unlock()

	sub, err := s.subs.GetByExternalID(ev.Provider, ev.ExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown subscription, e.g. created in the provider dashboard.
			// Acknowledge so the provider stops retrying.
			log.Printf("[Webhook] %s: no subscription with external id %s, discarding event %s",
				providerName, ev.ExternalID, ev.EventID)
			return s.subs.MarkWebhookProcessed(stored.ID, "")
		}
		return err
	}

	if err := s.applyEvent(sub, ev); err != nil {
		if markErr := s.subs.MarkWebhookProcessed(stored.ID, err.Error()); markErr != nil {
			log.Printf("[Webhook] failed to record processing error for event %s: %v", ev.EventID, markErr)
		}
		return err
	}
	return s.subs.MarkWebhookProcessed(stored.ID, "")
}

// applyEvent moves the local row toward the provider-reported state.
func (s *Service) applyEvent(sub *models.Subscription, ev *payment.Event) error {
	// A stale period end never rolls an existing one back. The status is
	// still applied so out-of-order status flips converge.
	periodEnd := ev.PeriodEnd
	if periodEnd != nil && sub.CurrentPeriodEnd != nil && !periodEnd.After(*sub.CurrentPeriodEnd) {
		periodEnd = nil
	}

	finalStatus := sub.Status
	switch {
	case sub.Status == models.SubStatusCanceled:
		// Canceled is terminal. Billing history still accrues below, the
		// status never changes.
	case ev.Status == models.SubStatusCanceled:
		if err := s.subs.MarkCanceled(sub.ID, ev.OccurredAt); err != nil {
			return err
		}
		finalStatus = models.SubStatusCanceled
		now := ev.OccurredAt
		sub.CanceledAt = &now
	case ev.Status != "":
		if err := s.subs.ApplyStatus(sub.ID, ev.Status, periodEnd); err != nil {
			return err
		}
		finalStatus = ev.Status
	}

	if ev.Kind == payment.EventPaymentSucceeded || ev.Kind == payment.EventPaymentFailed {
		outcome := models.BillingOutcomeSucceeded
		if ev.Kind == payment.EventPaymentFailed {
			outcome = models.BillingOutcomeFailed
		}
		currency := ev.Currency
		if currency == "" {
			currency = sub.Currency
		}
		appended, err := s.subs.AppendBillingRecord(&models.BillingRecord{
			SubscriptionID:  sub.ID,
			Provider:        ev.Provider,
			ProviderEventID: ev.EventID,
			Amount:          ev.Amount,
			Currency:        currency,
			Outcome:         outcome,
			OccurredAt:      ev.OccurredAt,
		})
		if err != nil {
			return err
		}
		if !appended {
			log.Printf("[Webhook] billing record for event %s already present", ev.EventID)
		}
	}

	mirrorSub := *sub
	mirrorSub.Status = finalStatus
	if periodEnd != nil {
		mirrorSub.CurrentPeriodEnd = periodEnd
	}
	if err := s.writeMirror(sub.UserID, &mirrorSub); err != nil {
		return err
	}
	s.invalidateCaches()

	return nil
}
