package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

// Post is the blog-post subset this backend needs: per-post analytics
// counters feeding the daily rollup, and the affiliate products a click must
// match against. The full content model lives elsewhere.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	Title     string `gorm:"type:varchar(255);not null" json:"title"`
	Slug      string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Status    string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	IsPremium bool   `gorm:"default:false;index" json:"is_premium"`

	Views              int64      `gorm:"default:0" json:"views"`
	UniqueVisitors     int64      `gorm:"default:0" json:"unique_visitors"`
	AffiliateClicks    int64      `gorm:"default:0" json:"affiliate_clicks"`
	Conversions        int64      `gorm:"default:0" json:"conversions"`
	Revenue            float64    `gorm:"default:0" json:"revenue"`
	Bounces            int64      `gorm:"default:0" json:"bounces"`
	AvgTimeOnPage      float64    `gorm:"default:0" json:"avg_time_on_page"`
	AnalyticsUpdatedAt *time.Time `gorm:"type:timestamp;default:null;index" json:"analytics_updated_at,omitempty"`

	AffiliateProducts []AffiliateProduct `gorm:"foreignKey:PostID" json:"affiliate_products,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AffiliateProduct links a tool promoted in a post to its affiliate network
// and commission rate.
type AffiliateProduct struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	PostID            uint    `gorm:"not null;index:ux_affiliate_products_post_tool,unique,priority:1" json:"post_id"`
	ToolName          string  `gorm:"type:varchar(150);not null;index:ux_affiliate_products_post_tool,unique,priority:2" json:"tool_name"`
	Network           string  `gorm:"type:varchar(50);not null;index:ux_affiliate_products_post_tool,unique,priority:3" json:"network"`
	AffiliateID       string  `gorm:"type:varchar(191);default:null" json:"affiliate_id,omitempty"`
	CommissionPercent float64 `gorm:"not null;default:0" json:"commission_percent"`
}
