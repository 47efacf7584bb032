package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_SUBSCRIBER = "subscriber"
	ROLE_EDITOR     = "editor"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// SubscriptionMirror is the denormalized copy of subscription entitlement
// kept on the user row for fast authorization checks. It is a cache, not a
// source of truth: Subscription rows are authoritative and the mirror
// converges after every reconciliation event.
type SubscriptionMirror struct {
	IsActive   bool       `gorm:"default:false" json:"is_active"`
	Plan       string     `gorm:"type:varchar(20);default:null" json:"plan,omitempty"`
	Status     string     `gorm:"type:varchar(20);default:null" json:"status,omitempty"`
	ExpiresAt  *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CanceledAt *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
}

// AffiliateData holds per-user affiliate counters, incremented on click and
// conversion events.
type AffiliateData struct {
	ReferralCode string  `gorm:"type:varchar(36);uniqueIndex;default:null" json:"referral_code,omitempty"`
	Clicks       int64   `gorm:"default:0" json:"clicks"`
	Conversions  int64   `gorm:"default:0" json:"conversions"`
	Earnings     float64 `gorm:"default:0" json:"earnings"`
}

type User struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	Name             string             `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email            string             `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password         string             `gorm:"type:text" json:"-" validate:"required,min=8"`
	Role             string             `gorm:"type:varchar(50);default:'subscriber'" json:"role" validate:"oneof=subscriber editor admin"`
	Status           string             `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Bio              string             `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL        string             `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	StripeCustomerID string             `gorm:"type:varchar(191);default:null;index" json:"-"`
	PaddleCustomerID string             `gorm:"type:varchar(191);default:null;index" json:"-"`
	Subscription     SubscriptionMirror `gorm:"embedded;embeddedPrefix:sub_" json:"subscription"`
	Affiliate        AffiliateData      `gorm:"embedded;embeddedPrefix:affiliate_" json:"affiliate_data"`
	LastLoginAt      *time.Time         `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt     `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: pw,
		Role:     ROLE_SUBSCRIBER,
		Status:   STATUS_ACTIVE,
	}
	u.Affiliate.ReferralCode = uuid.NewString()

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// HasActiveSubscription reports whether the mirrored entitlement is active
// and not expired.
func (u *User) HasActiveSubscription() bool {
	return u.Subscription.IsActive &&
		u.Subscription.ExpiresAt != nil &&
		u.Subscription.ExpiresAt.After(time.Now())
}
