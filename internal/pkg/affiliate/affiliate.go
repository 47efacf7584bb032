package affiliate

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/apperr"
	"github.com/toolpress/toolpress/internal/pkg/cache"
)

// clickDedupeWindow is how long a repeat click from the same IP on the same
// tool counts as the original click.
const clickDedupeWindow = 24 * time.Hour

// Service tracks affiliate clicks and conversions. Conversions are one-way:
// once a click converts it never unconverts and never converts again.
type Service struct {
	clicks repository.AffiliateClickRepository
	posts  repository.PostRepository
	users  repository.UserRepository
	cache  *cache.Cache
	now    func() time.Time
}

func NewService(clicks repository.AffiliateClickRepository, posts repository.PostRepository, users repository.UserRepository, c *cache.Cache) *Service {
	return &Service{
		clicks: clicks,
		posts:  posts,
		users:  users,
		cache:  c,
		now:    time.Now,
	}
}

// TrackClickParams carries one click event.
type TrackClickParams struct {
	PostID      uint
	ToolName    string
	Network     string
	AffiliateID string
	IP          string
	UserAgent   string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// TrackClick records a click on an affiliate product. A repeat click from
// the same IP on the same tool inside the dedupe window returns the
// original click instead of creating a new one.
func (s *Service) TrackClick(params TrackClickParams) (*models.AffiliateClick, bool, error) {
	post, err := s.posts.GetByID(params.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperr.NotFound("Post not found")
		}
		return nil, false, err
	}

	product, err := s.posts.GetAffiliateProduct(post.ID, params.ToolName, params.Network)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperr.Validation("Invalid affiliate product")
		}
		return nil, false, err
	}

	now := s.now()
	existing, err := s.clicks.FindRecentByIPAndTool(params.IP, params.ToolName, now.Add(-clickDedupeWindow))
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	click := &models.AffiliateClick{
		ID:                uuid.NewString(),
		PostID:            post.ID,
		OwnerUserID:       post.UserID,
		ToolName:          params.ToolName,
		Network:           params.Network,
		AffiliateID:       params.AffiliateID,
		IP:                params.IP,
		UserAgent:         params.UserAgent,
		Referrer:          params.Referrer,
		UTMSource:         params.UTMSource,
		UTMMedium:         params.UTMMedium,
		UTMCampaign:       params.UTMCampaign,
		CommissionPercent: product.CommissionPercent,
		ClickedAt:         now,
	}
	if err := s.clicks.Create(click); err != nil {
		return nil, false, err
	}

	if err := s.posts.IncrementAffiliateClicks(post.ID); err != nil {
		return nil, false, err
	}
	if err := s.users.IncrementAffiliateStats(post.UserID, 1, 0, 0); err != nil {
		return nil, false, err
	}
	s.invalidateUserCaches(post.UserID)

	return click, true, nil
}

// RecordConversion converts a click with the given sale value. Commission is
// the click's snapshotted rate applied to the value. Converting twice fails
// with ALREADY_CONVERTED and changes nothing.
func (s *Service) RecordConversion(clickID string, value float64) (*models.AffiliateClick, error) {
	if value < 0 {
		return nil, apperr.Validation("Conversion value must not be negative")
	}

	click, err := s.clicks.GetByID(clickID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Click not found")
		}
		return nil, err
	}

	earned := value * click.CommissionPercent / 100

	converted, err := s.clicks.MarkConverted(click.ID, value, earned, s.now())
	if err != nil {
		return nil, err
	}
	if !converted {
		return nil, apperr.AlreadyConverted()
	}

	if err := s.posts.IncrementConversion(click.PostID, earned); err != nil {
		return nil, err
	}
	if err := s.users.IncrementAffiliateStats(click.OwnerUserID, 0, 1, earned); err != nil {
		return nil, err
	}
	s.invalidateUserCaches(click.OwnerUserID)

	return s.clicks.GetByID(click.ID)
}

// Stats summarizes a user's affiliate performance over an optional window.
type Stats struct {
	UserID         uint    `json:"user_id"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Earnings       float64 `json:"earnings"`
	ConversionRate float64 `json:"conversion_rate"`
}

// StatsForUser computes a user's click and earnings stats, cached briefly.
func (s *Service) StatsForUser(userID uint, start, end *time.Time) (*Stats, error) {
	key := statsCacheKey(userID, start, end)
	var cached Stats
	if err := s.cache.GetJSON(key, &cached); err == nil {
		return &cached, nil
	}

	clicks, err := s.clicks.CountByUser(userID, start, end)
	if err != nil {
		return nil, err
	}
	converted, err := s.clicks.ListConvertedByUser(userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &Stats{UserID: userID, Clicks: clicks, Conversions: int64(len(converted))}
	for _, c := range converted {
		stats.Earnings += c.CommissionEarned
	}
	if stats.Clicks > 0 {
		stats.ConversionRate = float64(stats.Conversions) / float64(stats.Clicks) * 100
	}

	if err := s.cache.SetJSON(key, stats, cache.TTLShort); err != nil {
		log.Printf("[Affiliate] failed to cache stats for user %d: %v", userID, err)
	}
	return stats, nil
}

// TopTools returns the user's best performing tools by earned commission.
func (s *Service) TopTools(userID uint, limit int) ([]repository.ToolPerformance, error) {
	if limit <= 0 {
		limit = 10
	}

	key := fmt.Sprintf("affiliate:top-tools:%d:%d", userID, limit)
	var cached []repository.ToolPerformance
	if err := s.cache.GetJSON(key, &cached); err == nil {
		return cached, nil
	}

	rows, err := s.clicks.ToolPerformanceByUser(userID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(key, rows, cache.TTLMedium); err != nil {
		log.Printf("[Affiliate] failed to cache top tools for user %d: %v", userID, err)
	}
	return rows, nil
}

func (s *Service) invalidateUserCaches(userID uint) {
	for _, pattern := range []string{
		fmt.Sprintf("affiliate:stats:%d:*", userID),
		fmt.Sprintf("affiliate:top-tools:%d:*", userID),
	} {
		if _, err := s.cache.DeleteByPattern(pattern); err != nil {
			log.Printf("[Affiliate] failed to invalidate cache %s: %v", pattern, err)
		}
	}
}

func statsCacheKey(userID uint, start, end *time.Time) string {
	from, to := "all", "all"
	if start != nil {
		from = start.UTC().Format("2006-01-02")
	}
	if end != nil {
		to = end.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("affiliate:stats:%d:%s:%s", userID, from, to)
}
