package repository

import (
	"errors"
	"time"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
)

// affiliateClickRepository implements the AffiliateClickRepository interface
type affiliateClickRepository struct {
	db *gorm.DB
}

// NewAffiliateClickRepository creates a new affiliate click repository instance
func NewAffiliateClickRepository(db *gorm.DB) AffiliateClickRepository {
	return &affiliateClickRepository{db: db}
}

func (r *affiliateClickRepository) Create(click *models.AffiliateClick) error {
	return r.db.Create(click).Error
}

func (r *affiliateClickRepository) GetByID(id string) (*models.AffiliateClick, error) {
	var click models.AffiliateClick
	err := r.db.Where("id = ?", id).First(&click).Error
	if err != nil {
		return nil, err
	}
	return &click, nil
}

// FindRecentByIPAndTool returns a click from the same IP on the same tool at
// or after since, or (nil, nil) when none exists. This backs the 24h
// deduplication window.
func (r *affiliateClickRepository) FindRecentByIPAndTool(ip, toolName string, since time.Time) (*models.AffiliateClick, error) {
	var click models.AffiliateClick
	err := r.db.Where("ip = ? AND tool_name = ? AND clicked_at >= ?", ip, toolName, since).
		Order("clicked_at DESC").First(&click).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &click, nil
}

// MarkConverted flips the one-way converted flag. The conditional update
// makes a second conversion of the same click a no-op; the returned bool
// reports whether this call performed the transition.
func (r *affiliateClickRepository) MarkConverted(id string, value, earned float64, at time.Time) (bool, error) {
	tx := r.db.Model(&models.AffiliateClick{}).
		Where("id = ? AND converted = ?", id, false).
		Updates(map[string]interface{}{
			"converted":         true,
			"conversion_value":  value,
			"commission_earned": earned,
			"converted_at":      &at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *affiliateClickRepository) CountByUser(userID uint, start, end *time.Time) (int64, error) {
	query := r.db.Model(&models.AffiliateClick{}).Where("owner_user_id = ?", userID)
	if start != nil {
		query = query.Where("clicked_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("clicked_at <= ?", *end)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *affiliateClickRepository) ListConvertedByUser(userID uint, start, end *time.Time) ([]models.AffiliateClick, error) {
	query := r.db.Where("owner_user_id = ? AND converted = ?", userID, true)
	if start != nil {
		query = query.Where("converted_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("converted_at <= ?", *end)
	}
	var clicks []models.AffiliateClick
	err := query.Order("converted_at DESC").Find(&clicks).Error
	return clicks, err
}

// ToolPerformanceByUser groups the user's clicks by tool, best revenue first.
func (r *affiliateClickRepository) ToolPerformanceByUser(userID uint, limit int) ([]ToolPerformance, error) {
	var rows []ToolPerformance
	err := r.db.Model(&models.AffiliateClick{}).
		Select("tool_name, COUNT(*) AS clicks, SUM(CASE WHEN converted THEN 1 ELSE 0 END) AS conversions, COALESCE(SUM(commission_earned), 0) AS revenue").
		Where("owner_user_id = ?", userID).
		Group("tool_name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Clicks > 0 {
			rows[i].ConversionRate = float64(rows[i].Conversions) / float64(rows[i].Clicks) * 100
		}
	}
	return rows, nil
}

func (r *affiliateClickRepository) CountBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AffiliateClick{}).
		Where("clicked_at >= ? AND clicked_at < ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *affiliateClickRepository) CountConvertedBetween(start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AffiliateClick{}).
		Where("converted = ? AND converted_at >= ? AND converted_at < ?", true, start, end).
		Count(&count).Error
	return count, err
}

func (r *affiliateClickRepository) ConvertedRevenueBetween(start, end time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.AffiliateClick{}).
		Select("COALESCE(SUM(commission_earned), 0)").
		Where("converted = ? AND converted_at >= ? AND converted_at < ?", true, start, end).
		Scan(&total).Error
	return total, err
}
