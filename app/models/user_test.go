package models

import (
	"testing"
	"time"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("Jane Doe", " Jane@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.Role != ROLE_SUBSCRIBER {
		t.Fatalf("expected subscriber role, got %q", u.Role)
	}
	if u.Affiliate.ReferralCode == "" {
		t.Fatalf("expected a referral code to be assigned")
	}
	if !u.CheckPassword("password123") {
		t.Fatalf("expected password to verify")
	}
	if u.CheckPassword("wrong-password") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	if _, err := CreateUser("Jane Doe", "not-an-email", "password123"); err == nil {
		t.Fatalf("expected validation error for invalid email")
	}
}

func TestHasActiveSubscription(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name   string
		mirror SubscriptionMirror
		want   bool
	}{
		{name: "active with future expiry", mirror: SubscriptionMirror{IsActive: true, ExpiresAt: &future}, want: true},
		{name: "active but expired", mirror: SubscriptionMirror{IsActive: true, ExpiresAt: &past}, want: false},
		{name: "inactive", mirror: SubscriptionMirror{IsActive: false, ExpiresAt: &future}, want: false},
		{name: "no expiry", mirror: SubscriptionMirror{IsActive: true}, want: false},
	}

	for _, tt := range tests {
		u := &User{Subscription: tt.mirror}
		if got := u.HasActiveSubscription(); got != tt.want {
			t.Fatalf("%s: HasActiveSubscription() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubscriptionIsActive(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{name: "active with future period end", sub: Subscription{Status: SubStatusActive, CurrentPeriodEnd: &future}, want: true},
		{name: "active but period over", sub: Subscription{Status: SubStatusActive, CurrentPeriodEnd: &past}, want: false},
		{name: "past due", sub: Subscription{Status: SubStatusPastDue, CurrentPeriodEnd: &future}, want: false},
		{name: "canceled", sub: Subscription{Status: SubStatusCanceled, CurrentPeriodEnd: &future}, want: false},
		{name: "no period end", sub: Subscription{Status: SubStatusActive}, want: false},
	}

	for _, tt := range tests {
		if got := tt.sub.IsActive(); got != tt.want {
			t.Fatalf("%s: IsActive() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubscriptionTotalRevenue(t *testing.T) {
	sub := Subscription{
		BillingHistory: []BillingRecord{
			{Amount: 29, Outcome: BillingOutcomeSucceeded},
			{Amount: 29, Outcome: BillingOutcomeFailed},
			{Amount: 15, Outcome: BillingOutcomeSucceeded},
		},
	}
	if got := sub.TotalRevenue(); got != 44 {
		t.Fatalf("TotalRevenue() = %v, want 44", got)
	}
}
