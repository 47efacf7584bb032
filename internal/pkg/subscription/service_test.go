package subscription

import (
	"context"
	"encoding/json"
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
	"github.com/toolpress/toolpress/internal/pkg/apperr"
	"github.com/toolpress/toolpress/internal/pkg/cache"
	"github.com/toolpress/toolpress/internal/pkg/payment"
)

// fakeProvider counts calls and returns canned results. ParseWebhookEvent
// decodes a payment.Event directly from the JSON payload.
type fakeProvider struct {
	name string

	customerRef string
	sub         *payment.Subscription
	err         error

	createCustomerCalls int
	createSubCalls      int
	updateCalls         int
	cancelCalls         int
	retrieveCalls       int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	f.createCustomerCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.customerRef, nil
}

func (f *fakeProvider) CreateSubscription(_ context.Context, _ payment.CreateParams) (*payment.Subscription, error) {
	f.createSubCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func (f *fakeProvider) UpdateSubscription(_ context.Context, _, planRef string) (*payment.Subscription, error) {
	f.updateCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.sub
	out.PlanRef = planRef
	return &out, nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, _ string) error {
	f.cancelCalls++
	return f.err
}

func (f *fakeProvider) RetrieveSubscription(_ context.Context, _ string) (*payment.Subscription, error) {
	f.retrieveCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func (f *fakeProvider) ParseWebhookEvent(payload []byte) (*payment.Event, error) {
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.SubscriptionFeature{},
		&models.BillingRecord{},
		&models.WebhookEvent{},
	)
	require.NoError(t, err)

	return db
}

func setupTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewWithClient(client)
}

func setupService(t *testing.T) (*Service, *repository.Repositories, *fakeProvider) {
	t.Helper()

	db := setupTestDB(t)
	repos := repository.NewRepositories(db)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	provider := &fakeProvider{
		name:        "stripe",
		customerRef: "cus_test",
		sub: &payment.Subscription{
			ExternalID:       "sub_ext_1",
			CustomerRef:      "cus_test",
			Status:           payment.StatusActive,
			NativeStatus:     "active",
			CurrentPeriodEnd: &periodEnd,
		},
	}

	svc := NewService(repos.User, repos.Subscription, map[string]payment.Provider{
		"stripe": provider,
	}, setupTestCache(t))

	return svc, repos, provider
}

func seedUser(t *testing.T, repos *repository.Repositories) *models.User {
	t.Helper()

	user, err := models.CreateUser("Test User", "test@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(user))
	return user
}

func TestServiceCreate(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	sub, err := svc.Create(context.Background(), CreateParams{
		UserID:           user.ID,
		Plan:             "pro",
		Provider:         "stripe",
		PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, models.SubStatusActive, sub.Status)
	assert.Equal(t, 29.0, sub.Price)
	assert.Equal(t, "sub_ext_1", sub.ExternalID)
	assert.Len(t, sub.Features, 4)
	assert.Equal(t, 1, provider.createCustomerCalls)
	assert.Equal(t, 1, provider.createSubCalls)

	// Customer ref and entitlement mirror land on the user row.
	stored, err := repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_test", stored.StripeCustomerID)
	assert.True(t, stored.Subscription.IsActive)
	assert.Equal(t, "pro", stored.Subscription.Plan)
	assert.True(t, stored.HasActiveSubscription())
}

func TestServiceCreate_AlreadySubscribed(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	_, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "basic", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "pro", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadySubscribed))

	// The guard fires before any provider call.
	assert.Equal(t, 1, provider.createSubCalls)
	assert.Equal(t, 1, provider.createCustomerCalls)
}

func TestServiceCreate_InvalidPlan(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	_, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "platinum", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidPlan))
	assert.Equal(t, 0, provider.createSubCalls)
}

func TestServiceCreate_StripeRequiresPaymentMethod(t *testing.T) {
	svc, repos, _ := setupService(t)
	user := seedUser(t, repos)

	_, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "pro", Provider: "stripe",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeMissingPaymentMethod))
}

func TestServiceCreate_UserNotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Create(context.Background(), CreateParams{
		UserID: 9999, Plan: "pro", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestServiceCreate_ProviderErrorLeavesNoLocalState(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)
	provider.err = &payment.ProviderError{Provider: "stripe", Code: "card_declined", Message: "declined"}

	_, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "pro", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.Error(t, err)

	subs, err := repos.Subscription.ListByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	stored, err := repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Subscription.IsActive)
}

func TestServiceCancel(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	sub, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "pro", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubStatusCanceled, canceled.Status)
	assert.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, 1, provider.cancelCalls)

	stored, err := repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, stored.Subscription.IsActive)
	assert.Equal(t, models.SubStatusCanceled, stored.Subscription.Status)
	assert.NotNil(t, stored.Subscription.CanceledAt)
}

func TestServiceCancel_NotActive(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	sub, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "pro", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sub.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotActive))
	assert.Equal(t, 1, provider.cancelCalls)
}

func TestServiceChangePlan(t *testing.T) {
	svc, repos, provider := setupService(t)
	user := seedUser(t, repos)

	sub, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "basic", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, sub.Price)

	updated, err := svc.ChangePlan(context.Background(), sub.ID, "enterprise")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", updated.Plan)
	assert.Equal(t, 39.0, updated.Price)
	assert.Len(t, updated.Features, 4)
	assert.Equal(t, 1, provider.updateCalls)

	stored, err := repos.User.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", stored.Subscription.Plan)
}

func TestServiceChangePlan_CanceledIsNotActive(t *testing.T) {
	svc, repos, _ := setupService(t)
	user := seedUser(t, repos)

	sub, err := svc.Create(context.Background(), CreateParams{
		UserID: user.ID, Plan: "basic", Provider: "stripe", PaymentMethodRef: "pm_1",
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)

	_, err = svc.ChangePlan(context.Background(), sub.ID, "pro")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotActive))
}
