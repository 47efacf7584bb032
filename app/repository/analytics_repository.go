package repository

import (
	"time"

	"github.com/toolpress/toolpress/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// analyticsRepository implements the AnalyticsRepository interface
type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository instance
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// CreateIfAbsent inserts the rollup unless a row for its date already
// exists. Returns false when the date was already recorded, which makes
// re-running a day's rollup a no-op.
func (r *analyticsRepository) CreateIfAbsent(rec *models.DailyAnalytics) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *analyticsRepository) GetByDate(date time.Time) (*models.DailyAnalytics, error) {
	var rec models.DailyAnalytics
	err := r.db.Where("date = ?", date).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *analyticsRepository) ListRange(start, end time.Time) ([]models.DailyAnalytics, error) {
	var recs []models.DailyAnalytics
	err := r.db.Where("date >= ? AND date <= ?", start, end).
		Order("date ASC").Find(&recs).Error
	return recs, err
}

func (r *analyticsRepository) ListRecent(limit int) ([]models.DailyAnalytics, error) {
	var recs []models.DailyAnalytics
	err := r.db.Order("date DESC").Limit(limit).Find(&recs).Error
	return recs, err
}
