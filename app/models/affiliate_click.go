package models

import "time"

// AffiliateClick records one click on an affiliate link, optionally marked
// converted later with a monetary value and the commission derived from it.
// At most one click per (ip, tool_name) pair is persisted within a 24-hour
// window; duplicates resolve to the stored row.
type AffiliateClick struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID            uint       `gorm:"not null;index" json:"post_id"`
	OwnerUserID       uint       `gorm:"not null;index" json:"owner_user_id"`
	ToolName          string     `gorm:"type:varchar(150);not null;index:idx_clicks_ip_tool,priority:2" json:"tool_name"`
	Network           string     `gorm:"type:varchar(50);not null;index" json:"network"`
	AffiliateID       string     `gorm:"type:varchar(191);default:null" json:"affiliate_id,omitempty"`
	IP                string     `gorm:"type:varchar(45);not null;index:idx_clicks_ip_tool,priority:1" json:"-"`
	UserAgent         string     `gorm:"type:varchar(500);not null" json:"-"`
	Referrer          string     `gorm:"type:varchar(500);default:null" json:"referrer,omitempty"`
	UTMSource         string     `gorm:"type:varchar(100);default:null" json:"utm_source,omitempty"`
	UTMMedium         string     `gorm:"type:varchar(100);default:null" json:"utm_medium,omitempty"`
	UTMCampaign       string     `gorm:"type:varchar(100);default:null" json:"utm_campaign,omitempty"`
	CommissionPercent float64    `gorm:"not null;default:0" json:"commission_percent"`
	Converted         bool       `gorm:"default:false;index" json:"converted"`
	ConversionValue   float64    `gorm:"default:0" json:"conversion_value"`
	CommissionEarned  float64    `gorm:"default:0" json:"commission_earned"`
	ClickedAt         time.Time  `gorm:"type:timestamp;not null;index:idx_clicks_ip_tool,priority:3;index" json:"clicked_at"`
	ConvertedAt       *time.Time `gorm:"type:timestamp;default:null;index" json:"converted_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
