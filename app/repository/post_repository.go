package repository

import (
	"time"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
)

// postRepository implements the PostRepository interface
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

func (r *postRepository) CreateBatch(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return r.db.CreateInBatches(posts, 100).Error
}

func (r *postRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.Where("slug = ?", slug).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetAffiliateProduct(postID uint, toolName, network string) (*models.AffiliateProduct, error) {
	var product models.AffiliateProduct
	err := r.db.Where("post_id = ? AND tool_name = ? AND network = ?", postID, toolName, network).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *postRepository) AddAffiliateProduct(product *models.AffiliateProduct) error {
	return r.db.Create(product).Error
}

// IncrementAffiliateClicks bumps the post's click counter atomically.
func (r *postRepository) IncrementAffiliateClicks(postID uint) error {
	now := time.Now()
	return r.db.Model(&models.Post{}).Where("id = ?", postID).
		Updates(map[string]interface{}{
			"affiliate_clicks":     gorm.Expr("affiliate_clicks + 1"),
			"analytics_updated_at": &now,
		}).Error
}

// IncrementConversion bumps the post's conversion counter and revenue.
func (r *postRepository) IncrementConversion(postID uint, revenue float64) error {
	now := time.Now()
	return r.db.Model(&models.Post{}).Where("id = ?", postID).
		Updates(map[string]interface{}{
			"conversions":          gorm.Expr("conversions + 1"),
			"revenue":              gorm.Expr("revenue + ?", revenue),
			"analytics_updated_at": &now,
		}).Error
}

func (r *postRepository) CountPublished() (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&count).Error
	return count, err
}

func (r *postRepository) CountPremium() (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).
		Where("status = ? AND is_premium = ?", models.PostStatusPublished, true).
		Count(&count).Error
	return count, err
}

func (r *postRepository) TrafficTotalsBetween(start, end time.Time) (TrafficTotals, error) {
	var totals struct {
		PageViews      int64
		UniqueVisitors int64
		SessionSeconds float64
		Bounces        int64
	}
	err := r.db.Model(&models.Post{}).
		Select("COALESCE(SUM(views), 0) AS page_views, COALESCE(SUM(unique_visitors), 0) AS unique_visitors, COALESCE(SUM(views * avg_time_on_page), 0) AS session_seconds, COALESCE(SUM(bounces), 0) AS bounces").
		Where("analytics_updated_at >= ? AND analytics_updated_at < ?", start, end).
		Scan(&totals).Error
	return TrafficTotals(totals), err
}

func (r *postRepository) ConversionTotalsBetween(start, end time.Time) (ConversionTotals, error) {
	var totals struct {
		AffiliateClicks      int64
		AffiliateConversions int64
	}
	err := r.db.Model(&models.Post{}).
		Select("COALESCE(SUM(affiliate_clicks), 0) AS affiliate_clicks, COALESCE(SUM(conversions), 0) AS affiliate_conversions").
		Where("analytics_updated_at >= ? AND analytics_updated_at < ?", start, end).
		Scan(&totals).Error
	return ConversionTotals(totals), err
}

func (r *postRepository) TopByRevenue(start, end time.Time, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Where("status = ? AND analytics_updated_at >= ? AND analytics_updated_at < ?",
		models.PostStatusPublished, start, end).
		Order("revenue DESC").Limit(limit).Find(&posts).Error
	return posts, err
}
