package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/apperr"
	"github.com/toolpress/toolpress/internal/pkg/cache"
	"github.com/toolpress/toolpress/internal/pkg/payment"
	"github.com/toolpress/toolpress/internal/pkg/plans"
	"gorm.io/gorm"
)

const activeCountsCacheKey = "subscriptions:active-counts"

// Service owns the subscription lifecycle: creation, plan changes, cancels
// and webhook-driven reconciliation. Local Subscription rows are the source
// of truth for entitlement; the user mirror converges after every write.
type Service struct {
	users     repository.UserRepository
	subs      repository.SubscriptionRepository
	providers map[string]payment.Provider
	cache     *cache.Cache
	locks     *keyedMutex
	now       func() time.Time
}

func NewService(users repository.UserRepository, subs repository.SubscriptionRepository, providers map[string]payment.Provider, c *cache.Cache) *Service {
	return &Service{
		users:     users,
		subs:      subs,
		providers: providers,
		cache:     c,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// CreateParams carries one subscription creation request.
type CreateParams struct {
	UserID           uint
	Plan             string
	Provider         string
	PaymentMethodRef string
	Country          string
}

// Create opens a subscription with the provider and records it locally. The
// local row is only written after the provider call succeeds; a provider
// failure leaves no local trace.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Subscription, error) {
	user, err := s.users.GetByID(params.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}

	// The active-subscription guard runs before anything leaves the process
	// so a rejected request never creates provider-side state.
	existing, err := s.subs.FindActiveByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AlreadySubscribed()
	}

	planCfg, ok := plans.Lookup(params.Plan)
	if !ok {
		return nil, apperr.InvalidPlan(params.Plan)
	}

	provider, ok := s.providers[params.Provider]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("Unsupported payment provider: %s", params.Provider))
	}
	if provider.Name() == models.SubProviderStripe && params.PaymentMethodRef == "" {
		return nil, apperr.MissingPaymentMethod()
	}

	customerRef, err := s.resolveCustomer(ctx, provider, user, params.PaymentMethodRef)
	if err != nil {
		return nil, err
	}

	remote, err := provider.CreateSubscription(ctx, payment.CreateParams{
		CustomerRef:      customerRef,
		PlanRef:          providerPlanRef(provider.Name(), planCfg.Name),
		PaymentMethodRef: params.PaymentMethodRef,
		Email:            user.Email,
		Country:          params.Country,
	})
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:           user.ID,
		Plan:             string(planCfg.Name),
		Provider:         provider.Name(),
		ExternalID:       remote.ExternalID,
		Status:           remote.Status,
		Price:            planCfg.Price,
		Currency:         planCfg.Currency,
		CurrentPeriodEnd: remote.CurrentPeriodEnd,
	}
	if err := s.subs.Create(sub); err != nil {
		return nil, err
	}
	if err := s.subs.ReplaceFeatures(sub.ID, featuresFromPlan(planCfg)); err != nil {
		return nil, err
	}

	if err := s.writeMirror(user.ID, sub); err != nil {
		return nil, err
	}
	s.invalidateCaches()

	return s.subs.GetByID(sub.ID)
}

// ChangePlan switches a subscription to another plan. The provider state is
// fetched first so the change applies against what the provider actually
// has, not against a possibly stale local row.
func (s *Service) ChangePlan(ctx context.Context, subscriptionID uint, plan string) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Subscription not found")
		}
		return nil, err
	}

	planCfg, ok := plans.Lookup(plan)
	if !ok {
		return nil, apperr.InvalidPlan(plan)
	}
	if sub.Status == models.SubStatusCanceled {
		return nil, apperr.NotActive()
	}

	provider, ok := s.providers[sub.Provider]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("Unsupported payment provider: %s", sub.Provider))
	}

	if _, err := provider.RetrieveSubscription(ctx, sub.ExternalID); err != nil {
		return nil, err
	}

	remote, err := provider.UpdateSubscription(ctx, sub.ExternalID, providerPlanRef(provider.Name(), planCfg.Name))
	if err != nil {
		return nil, err
	}

	if err := s.subs.UpdatePlan(sub.ID, string(planCfg.Name), planCfg.Price, planCfg.Currency); err != nil {
		return nil, err
	}
	if err := s.subs.ReplaceFeatures(sub.ID, featuresFromPlan(planCfg)); err != nil {
		return nil, err
	}
	if err := s.subs.ApplyStatus(sub.ID, remote.Status, remote.CurrentPeriodEnd); err != nil {
		return nil, err
	}

	updated, err := s.subs.GetByID(sub.ID)
	if err != nil {
		return nil, err
	}
	if err := s.writeMirror(updated.UserID, updated); err != nil {
		return nil, err
	}
	s.invalidateCaches()

	return updated, nil
}

// Cancel cancels an active subscription with its provider and marks the
// local row canceled. Access runs until the current period ends.
func (s *Service) Cancel(ctx context.Context, subscriptionID uint) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Subscription not found")
		}
		return nil, err
	}
	if sub.Status != models.SubStatusActive {
		return nil, apperr.NotActive()
	}

	provider, ok := s.providers[sub.Provider]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("Unsupported payment provider: %s", sub.Provider))
	}
	if err := provider.CancelSubscription(ctx, sub.ExternalID); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.subs.MarkCanceled(sub.ID, now); err != nil {
		return nil, err
	}

	updated, err := s.subs.GetByID(sub.ID)
	if err != nil {
		return nil, err
	}
	if err := s.writeMirror(updated.UserID, updated); err != nil {
		return nil, err
	}
	s.invalidateCaches()

	return updated, nil
}

// GetByID loads one subscription with its feature snapshot.
func (s *Service) GetByID(id uint) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Subscription not found")
		}
		return nil, err
	}
	return sub, nil
}

// ListByUser returns all subscriptions of a user, newest first.
func (s *Service) ListByUser(userID uint) ([]models.Subscription, error) {
	return s.subs.ListByUserID(userID)
}

// ActiveCountsByPlan returns active subscription counts per plan, cached
// briefly because the dashboard polls it.
func (s *Service) ActiveCountsByPlan() ([]repository.PlanCount, error) {
	var counts []repository.PlanCount
	if err := s.cache.GetJSON(activeCountsCacheKey, &counts); err == nil {
		return counts, nil
	}

	counts, err := s.subs.CountActiveByPlan()
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(activeCountsCacheKey, counts, cache.TTLShort); err != nil {
		log.Printf("[Subscription] failed to cache plan counts: %v", err)
	}
	return counts, nil
}

// resolveCustomer returns the provider customer reference for the user,
// creating and persisting one the first time.
func (s *Service) resolveCustomer(ctx context.Context, provider payment.Provider, user *models.User, paymentMethodRef string) (string, error) {
	switch provider.Name() {
	case models.SubProviderStripe:
		if user.StripeCustomerID != "" {
			return user.StripeCustomerID, nil
		}
		ref, err := provider.CreateCustomer(ctx, user.Email, paymentMethodRef)
		if err != nil {
			return "", err
		}
		if err := s.users.SetStripeCustomerID(user.ID, ref); err != nil {
			return "", err
		}
		return ref, nil
	case models.SubProviderPaddle:
		if user.PaddleCustomerID != "" {
			return user.PaddleCustomerID, nil
		}
		ref, err := provider.CreateCustomer(ctx, user.Email, paymentMethodRef)
		if err != nil {
			return "", err
		}
		if err := s.users.SetPaddleCustomerID(user.ID, ref); err != nil {
			return "", err
		}
		return ref, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("Unsupported payment provider: %s", provider.Name()))
	}
}

// writeMirror syncs the denormalized entitlement copy on the user row.
func (s *Service) writeMirror(userID uint, sub *models.Subscription) error {
	mirror := models.SubscriptionMirror{
		IsActive:   sub.Status == models.SubStatusActive,
		Plan:       sub.Plan,
		Status:     sub.Status,
		ExpiresAt:  sub.CurrentPeriodEnd,
		CanceledAt: sub.CanceledAt,
	}
	return s.users.UpdateSubscriptionMirror(userID, mirror)
}

func (s *Service) invalidateCaches() {
	if err := s.cache.Delete(activeCountsCacheKey); err != nil {
		log.Printf("[Subscription] failed to invalidate plan counts cache: %v", err)
	}
	if _, err := s.cache.DeleteByPattern("analytics:*"); err != nil {
		log.Printf("[Subscription] failed to invalidate analytics cache: %v", err)
	}
}

func providerPlanRef(providerName string, plan plans.Plan) string {
	if providerName == models.SubProviderPaddle {
		return plans.PaddlePlanRef(plan)
	}
	return plans.StripePriceRef(plan)
}

func featuresFromPlan(cfg plans.Config) []models.SubscriptionFeature {
	features := make([]models.SubscriptionFeature, 0, len(cfg.Features))
	for i, name := range cfg.Features {
		features = append(features, models.SubscriptionFeature{
			Name:     name,
			Enabled:  true,
			Position: i,
		})
	}
	return features
}
