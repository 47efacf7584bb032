package models

import "time"

// DailyAnalytics is the rollup of one calendar day, unique on Date. Writing
// a day that already exists is a no-op, which makes the rollup safe to
// re-run.
type DailyAnalytics struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`

	RevenueTotal         float64 `gorm:"default:0" json:"revenue_total"`
	RevenueAffiliate     float64 `gorm:"default:0" json:"revenue_affiliate"`
	RevenueSubscriptions float64 `gorm:"default:0" json:"revenue_subscriptions"`
	RevenueSponsored     float64 `gorm:"default:0" json:"revenue_sponsored"`

	PageViews         int64   `gorm:"default:0" json:"page_views"`
	UniqueVisitors    int64   `gorm:"default:0" json:"unique_visitors"`
	AvgSessionSeconds float64 `gorm:"default:0" json:"avg_session_seconds"`
	BounceRate        float64 `gorm:"default:0" json:"bounce_rate"`

	AffiliateClicks      int64   `gorm:"default:0" json:"affiliate_clicks"`
	AffiliateConversions int64   `gorm:"default:0" json:"affiliate_conversions"`
	SubscriptionSignups  int64   `gorm:"default:0" json:"subscription_signups"`
	ConversionRate       float64 `gorm:"default:0" json:"conversion_rate"`

	TotalPosts   int64  `gorm:"default:0" json:"total_posts"`
	PremiumPosts int64  `gorm:"default:0" json:"premium_posts"`
	TopPostsJSON string `gorm:"type:longtext" json:"top_posts_json,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TopPost is one entry of the serialized top-performing-posts list.
type TopPost struct {
	PostID  uint    `json:"post_id"`
	Views   int64   `json:"views"`
	Revenue float64 `json:"revenue"`
}
