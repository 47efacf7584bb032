package repository

import (
	"strings"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft-deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// SetStripeCustomerID caches the provider-side customer identity so repeat
// subscriptions reuse it.
func (r *userRepository) SetStripeCustomerID(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

// SetPaddleCustomerID caches the provider-side customer identity so repeat
// subscriptions reuse it.
func (r *userRepository) SetPaddleCustomerID(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("paddle_customer_id", customerID).Error
}

// UpdateSubscriptionMirror writes the denormalized entitlement mirror. Only
// mirror columns are touched.
func (r *userRepository) UpdateSubscriptionMirror(userID uint, mirror models.SubscriptionMirror) error {
	updates := map[string]interface{}{
		"sub_is_active":   mirror.IsActive,
		"sub_plan":        mirror.Plan,
		"sub_status":      mirror.Status,
		"sub_expires_at":  mirror.ExpiresAt,
		"sub_canceled_at": mirror.CanceledAt,
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// IncrementAffiliateStats bumps the per-user affiliate counters atomically.
func (r *userRepository) IncrementAffiliateStats(userID uint, clicks, conversions int64, earnings float64) error {
	updates := map[string]interface{}{}
	if clicks != 0 {
		updates["affiliate_clicks"] = gorm.Expr("affiliate_clicks + ?", clicks)
	}
	if conversions != 0 {
		updates["affiliate_conversions"] = gorm.Expr("affiliate_conversions + ?", conversions)
	}
	if earnings != 0 {
		updates["affiliate_earnings"] = gorm.Expr("affiliate_earnings + ?", earnings)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}
