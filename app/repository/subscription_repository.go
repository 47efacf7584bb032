package repository

import (
	"errors"
	"time"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Features", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByExternalID(provider, externalID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("provider = ? AND external_id = ?", provider, externalID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveByUserID returns the user's active subscription, or (nil, nil)
// when none exists.
func (r *subscriptionRepository) FindActiveByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND status = ?", userID, models.SubStatusActive).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUserID(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) List(offset, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) CountCreatedBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) CountActiveByPlan() ([]PlanCount, error) {
	var counts []PlanCount
	err := r.db.Model(&models.Subscription{}).
		Select("plan, COUNT(*) AS count, SUM(price) AS revenue").
		Where("status = ?", models.SubStatusActive).
		Group("plan").
		Scan(&counts).Error
	return counts, err
}

// UpdatePlan changes the plan and its pricing fields, nothing else.
func (r *subscriptionRepository) UpdatePlan(id uint, plan string, price float64, currency string) error {
	updates := map[string]interface{}{
		"plan":     plan,
		"price":    price,
		"currency": currency,
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// ApplyStatus sets the status and, when periodEnd is non-nil, the period end.
// Callers decide whether a period end is fresh enough to be written.
func (r *subscriptionRepository) ApplyStatus(id uint, status string, periodEnd *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if periodEnd != nil {
		updates["current_period_end"] = periodEnd
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// MarkCanceled transitions the row to the terminal canceled state.
func (r *subscriptionRepository) MarkCanceled(id uint, at time.Time) error {
	updates := map[string]interface{}{
		"status":      models.SubStatusCanceled,
		"canceled_at": &at,
	}
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

// ReplaceFeatures swaps the feature snapshot for a subscription.
func (r *subscriptionRepository) ReplaceFeatures(subscriptionID uint, features []models.SubscriptionFeature) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_id = ?", subscriptionID).
			Delete(&models.SubscriptionFeature{}).Error; err != nil {
			return err
		}
		if len(features) == 0 {
			return nil
		}
		for i := range features {
			features[i].SubscriptionID = subscriptionID
			features[i].ID = 0
		}
		return tx.Create(&features).Error
	})
}

// AppendBillingRecord appends one billing history entry, keyed on the
// provider event id. Returns false when the entry already exists, which is
// how redelivered payment webhooks stay idempotent.
func (r *subscriptionRepository) AppendBillingRecord(rec *models.BillingRecord) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *subscriptionRepository) BillingRevenueBetween(start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.BillingRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("outcome = ? AND occurred_at >= ? AND occurred_at < ?", models.BillingOutcomeSucceeded, start, end).
		Scan(&total).Error
	return total, err
}

// CreateWebhookEventIfNotExists journals a webhook delivery. The returned
// bool is true when this delivery is the first with its provider event id.
func (r *subscriptionRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *subscriptionRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
