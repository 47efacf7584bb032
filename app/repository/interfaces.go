package repository

import (
	"time"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations.
// Cross-service writes go through explicit per-field update functions so one
// operation can never clobber fields it does not own.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	SetStripeCustomerID(userID uint, customerID string) error
	SetPaddleCustomerID(userID uint, customerID string) error
	UpdateSubscriptionMirror(userID uint, mirror models.SubscriptionMirror) error
	IncrementAffiliateStats(userID uint, clicks, conversions int64, earnings float64) error
}

// SubscriptionRepository defines the interface for subscription records,
// their billing history and the webhook delivery journal.
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByExternalID(provider, externalID string) (*models.Subscription, error)
	FindActiveByUserID(userID uint) (*models.Subscription, error)
	ListByUserID(userID uint) ([]models.Subscription, error)
	List(offset, limit int) ([]models.Subscription, error)
	Count() (int64, error)
	CountCreatedBetween(start, end time.Time) (int64, error)
	CountActiveByPlan() ([]PlanCount, error)

	UpdatePlan(id uint, plan string, price float64, currency string) error
	ApplyStatus(id uint, status string, periodEnd *time.Time) error
	MarkCanceled(id uint, at time.Time) error
	ReplaceFeatures(subscriptionID uint, features []models.SubscriptionFeature) error

	AppendBillingRecord(rec *models.BillingRecord) (bool, error)
	BillingRevenueBetween(start, end time.Time) (float64, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// AffiliateClickRepository defines the interface for click tracking records.
type AffiliateClickRepository interface {
	Create(click *models.AffiliateClick) error
	GetByID(id string) (*models.AffiliateClick, error)
	FindRecentByIPAndTool(ip, toolName string, since time.Time) (*models.AffiliateClick, error)
	MarkConverted(id string, value, earned float64, at time.Time) (bool, error)
	CountByUser(userID uint, start, end *time.Time) (int64, error)
	ListConvertedByUser(userID uint, start, end *time.Time) ([]models.AffiliateClick, error)
	ToolPerformanceByUser(userID uint, limit int) ([]ToolPerformance, error)
	CountBetween(start, end time.Time) (int64, error)
	CountConvertedBetween(start, end time.Time) (int64, error)
	ConvertedRevenueBetween(start, end time.Time) (float64, error)
}

// AnalyticsRepository defines the interface for daily rollup records.
type AnalyticsRepository interface {
	CreateIfAbsent(rec *models.DailyAnalytics) (bool, error)
	GetByDate(date time.Time) (*models.DailyAnalytics, error)
	ListRange(start, end time.Time) ([]models.DailyAnalytics, error)
	ListRecent(limit int) ([]models.DailyAnalytics, error)
}

// PostRepository defines the interface for the blog-post subset used by the
// affiliate and analytics services.
type PostRepository interface {
	Create(post *models.Post) error
	CreateBatch(posts []models.Post) error
	GetByID(id uint) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	GetAffiliateProduct(postID uint, toolName, network string) (*models.AffiliateProduct, error)
	AddAffiliateProduct(product *models.AffiliateProduct) error
	IncrementAffiliateClicks(postID uint) error
	IncrementConversion(postID uint, revenue float64) error
	CountPublished() (int64, error)
	CountPremium() (int64, error)
	TrafficTotalsBetween(start, end time.Time) (TrafficTotals, error)
	ConversionTotalsBetween(start, end time.Time) (ConversionTotals, error)
	TopByRevenue(start, end time.Time, limit int) ([]models.Post, error)
}

// PlanCount aggregates active subscriptions per plan.
type PlanCount struct {
	Plan    string
	Count   int64
	Revenue float64
}

// ToolPerformance aggregates click performance per promoted tool.
type ToolPerformance struct {
	ToolName       string  `json:"tool_name"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TrafficTotals aggregates traffic counters over a window.
type TrafficTotals struct {
	PageViews      int64
	UniqueVisitors int64
	SessionSeconds float64
	Bounces        int64
}

// ConversionTotals aggregates conversion counters over a window.
type ConversionTotals struct {
	AffiliateClicks      int64
	AffiliateConversions int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Affiliate    AffiliateClickRepository
	Analytics    AnalyticsRepository
	Post         PostRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Affiliate:    NewAffiliateClickRepository(db),
		Analytics:    NewAnalyticsRepository(db),
		Post:         NewPostRepository(db),
	}
}
