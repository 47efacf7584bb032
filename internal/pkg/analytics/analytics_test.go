package analytics

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/cache"
)

func setupService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.BillingRecord{},
		&models.AffiliateClick{},
		&models.Post{},
		&models.AffiliateProduct{},
		&models.DailyAnalytics{},
	))

	repos := repository.NewRepositories(db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc := NewService(repos.Analytics, repos.Subscription, repos.Affiliate, repos.Post, cache.NewWithClient(client))
	return svc, repos
}

func TestRecordDailyMetrics(t *testing.T) {
	svc, repos := setupService(t)

	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	inWindow := day.Add(-12 * time.Hour)

	// One subscription with a succeeded payment and one converted click in
	// the rollup window.
	sub := &models.Subscription{
		UserID: 1, Plan: "pro", Provider: "stripe", ExternalID: "sub_1",
		Status: models.SubStatusActive, Price: 29, Currency: "EUR",
	}
	require.NoError(t, repos.Subscription.Create(sub))
	appended, err := repos.Subscription.AppendBillingRecord(&models.BillingRecord{
		SubscriptionID: sub.ID, Provider: "stripe", ProviderEventID: "evt_1",
		Amount: 29, Currency: "EUR", Outcome: models.BillingOutcomeSucceeded,
		OccurredAt: inWindow,
	})
	require.NoError(t, err)
	require.True(t, appended)

	convertedAt := inWindow
	require.NoError(t, repos.Affiliate.Create(&models.AffiliateClick{
		ID: "click-1", PostID: 1, OwnerUserID: 1, ToolName: "WriterBot", Network: "impact",
		IP: "203.0.113.7", UserAgent: "test", CommissionPercent: 10,
		Converted: true, ConversionValue: 100, CommissionEarned: 10,
		ClickedAt: inWindow, ConvertedAt: &convertedAt,
	}))

	rec, created, err := svc.RecordDailyMetrics(day)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 29.0, rec.RevenueSubscriptions)
	assert.Equal(t, 10.0, rec.RevenueAffiliate)
	assert.Equal(t, 39.0, rec.RevenueTotal)
	assert.Equal(t, int64(1), rec.SubscriptionSignups)
}

func TestRecordDailyMetrics_Idempotent(t *testing.T) {
	svc, repos := setupService(t)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	first, created, err := svc.RecordDailyMetrics(day)
	require.NoError(t, err)
	assert.True(t, created)

	// New data after the first rollup must not change the stored day.
	sub := &models.Subscription{
		UserID: 1, Plan: "pro", Provider: "stripe", ExternalID: "sub_late",
		Status: models.SubStatusActive, Price: 29, Currency: "EUR",
	}
	require.NoError(t, repos.Subscription.Create(sub))

	second, created, err := svc.RecordDailyMetrics(day.Add(6 * time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RevenueTotal, second.RevenueTotal)

	recs, err := repos.Analytics.ListRange(day, day)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMetricsRange(t *testing.T) {
	svc, _ := setupService(t)

	for i := 0; i < 3; i++ {
		day := time.Date(2026, 8, 25+i, 0, 0, 0, 0, time.UTC)
		_, _, err := svc.RecordDailyMetrics(day)
		require.NoError(t, err)
	}

	recs, err := svc.MetricsRange(
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	// Ordered oldest first.
	assert.True(t, recs[0].Date.Before(recs[2].Date))
}

func TestRevenueProjection(t *testing.T) {
	svc, repos := setupService(t)

	// Three days of steadily growing revenue.
	for i, revenue := range []float64{10, 20, 30} {
		created, err := repos.Analytics.CreateIfAbsent(&models.DailyAnalytics{
			Date:         time.Date(2026, 8, 25+i, 0, 0, 0, 0, time.UTC),
			RevenueTotal: revenue,
		})
		require.NoError(t, err)
		require.True(t, created)
	}

	proj, err := svc.RevenueProjection()
	require.NoError(t, err)
	assert.Equal(t, 3, proj.BasedOnDays)
	assert.Equal(t, 20.0, proj.DailyAverage)
	assert.Equal(t, 10.0, proj.DailyGrowth)
	assert.Greater(t, proj.Next30Days, 0.0)
	assert.Greater(t, proj.Next90Days, proj.Next30Days)
}

func TestRevenueProjection_Empty(t *testing.T) {
	svc, _ := setupService(t)

	proj, err := svc.RevenueProjection()
	require.NoError(t, err)
	assert.Equal(t, 0, proj.BasedOnDays)
	assert.Equal(t, 0.0, proj.Next30Days)
}
