package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/cache"
)

const topPostsLimit = 10

// Service builds and serves the daily analytics rollups. A day is rolled up
// at most once; re-running a date returns the stored row unchanged.
type Service struct {
	analytics repository.AnalyticsRepository
	subs      repository.SubscriptionRepository
	clicks    repository.AffiliateClickRepository
	posts     repository.PostRepository
	cache     *cache.Cache
	now       func() time.Time
}

func NewService(analytics repository.AnalyticsRepository, subs repository.SubscriptionRepository, clicks repository.AffiliateClickRepository, posts repository.PostRepository, c *cache.Cache) *Service {
	return &Service{
		analytics: analytics,
		subs:      subs,
		clicks:    clicks,
		posts:     posts,
		cache:     c,
		now:       time.Now,
	}
}

// RecordDailyMetrics rolls up the 24 hours ending at the given date. The
// returned bool is false when the date was already rolled up, in which case
// the stored row comes back untouched.
func (s *Service) RecordDailyMetrics(date time.Time) (*models.DailyAnalytics, bool, error) {
	day := normalizeDate(date)

	if existing, err := s.analytics.GetByDate(day); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	start := day.Add(-24 * time.Hour)
	end := day

	affiliateRevenue, err := s.clicks.ConvertedRevenueBetween(start, end)
	if err != nil {
		return nil, false, err
	}
	subscriptionRevenue, err := s.subs.BillingRevenueBetween(start, end)
	if err != nil {
		return nil, false, err
	}

	traffic, err := s.posts.TrafficTotalsBetween(start, end)
	if err != nil {
		return nil, false, err
	}
	conversions, err := s.posts.ConversionTotalsBetween(start, end)
	if err != nil {
		return nil, false, err
	}
	signups, err := s.subs.CountCreatedBetween(start, end)
	if err != nil {
		return nil, false, err
	}

	totalPosts, err := s.posts.CountPublished()
	if err != nil {
		return nil, false, err
	}
	premiumPosts, err := s.posts.CountPremium()
	if err != nil {
		return nil, false, err
	}

	topPosts, err := s.topPostsJSON(start, end)
	if err != nil {
		return nil, false, err
	}

	rec := &models.DailyAnalytics{
		Date:                 day,
		RevenueAffiliate:     affiliateRevenue,
		RevenueSubscriptions: subscriptionRevenue,
		RevenueTotal:         affiliateRevenue + subscriptionRevenue,
		PageViews:            traffic.PageViews,
		UniqueVisitors:       traffic.UniqueVisitors,
		AffiliateClicks:      conversions.AffiliateClicks,
		AffiliateConversions: conversions.AffiliateConversions,
		SubscriptionSignups:  signups,
		TotalPosts:           totalPosts,
		PremiumPosts:         premiumPosts,
		TopPostsJSON:         topPosts,
	}
	if traffic.PageViews > 0 {
		rec.AvgSessionSeconds = traffic.SessionSeconds / float64(traffic.PageViews)
		rec.BounceRate = float64(traffic.Bounces) / float64(traffic.PageViews) * 100
	}
	if conversions.AffiliateClicks > 0 {
		rec.ConversionRate = float64(conversions.AffiliateConversions) / float64(conversions.AffiliateClicks) * 100
	}

	created, err := s.analytics.CreateIfAbsent(rec)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost a race with a concurrent rollup of the same date.
		existing, err := s.analytics.GetByDate(day)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if _, err := s.cache.DeleteByPattern("analytics:*"); err != nil {
		log.Printf("[Analytics] failed to invalidate cache: %v", err)
	}
	return rec, true, nil
}

// MetricsRange returns the rollups between two dates inclusive, cached.
func (s *Service) MetricsRange(start, end time.Time) ([]models.DailyAnalytics, error) {
	from := normalizeDate(start)
	to := normalizeDate(end)

	key := fmt.Sprintf("analytics:metrics:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached []models.DailyAnalytics
	if err := s.cache.GetJSON(key, &cached); err == nil {
		return cached, nil
	}

	recs, err := s.analytics.ListRange(from, to)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(key, recs, cache.TTLMedium); err != nil {
		log.Printf("[Analytics] failed to cache metrics range: %v", err)
	}
	return recs, nil
}

// Projection is a simple revenue forecast derived from recent rollups.
type Projection struct {
	DailyAverage float64   `json:"daily_average"`
	DailyGrowth  float64   `json:"daily_growth"`
	Next30Days   float64   `json:"next_30_days"`
	Next90Days   float64   `json:"next_90_days"`
	BasedOnDays  int       `json:"based_on_days"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// RevenueProjection extrapolates revenue from the last 90 rollups using the
// average day-over-day change.
func (s *Service) RevenueProjection() (*Projection, error) {
	const key = "analytics:projection"
	var cached Projection
	if err := s.cache.GetJSON(key, &cached); err == nil {
		return &cached, nil
	}

	recent, err := s.analytics.ListRecent(90)
	if err != nil {
		return nil, err
	}

	proj := &Projection{BasedOnDays: len(recent), GeneratedAt: s.now().UTC()}
	if len(recent) > 0 {
		var total float64
		for _, rec := range recent {
			total += rec.RevenueTotal
		}
		proj.DailyAverage = total / float64(len(recent))

		// recent is newest-first; growth is the average delta walking forward
		// in time.
		if len(recent) > 1 {
			var growth float64
			for i := len(recent) - 1; i > 0; i-- {
				growth += recent[i-1].RevenueTotal - recent[i].RevenueTotal
			}
			proj.DailyGrowth = growth / float64(len(recent)-1)
		}

		for day := 1; day <= 90; day++ {
			projected := proj.DailyAverage + proj.DailyGrowth*float64(day)
			if projected < 0 {
				projected = 0
			}
			if day <= 30 {
				proj.Next30Days += projected
			}
			proj.Next90Days += projected
		}
	}

	if err := s.cache.SetJSON(key, proj, cache.TTLLong); err != nil {
		log.Printf("[Analytics] failed to cache projection: %v", err)
	}
	return proj, nil
}

func (s *Service) topPostsJSON(start, end time.Time) (string, error) {
	posts, err := s.posts.TopByRevenue(start, end, topPostsLimit)
	if err != nil {
		return "", err
	}
	if len(posts) == 0 {
		return "[]", nil
	}

	top := make([]models.TopPost, 0, len(posts))
	for _, p := range posts {
		top = append(top, models.TopPost{PostID: p.ID, Views: p.Views, Revenue: p.Revenue})
	}
	data, err := json.Marshal(top)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// normalizeDate truncates to midnight UTC, the granularity of the rollup.
func normalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
