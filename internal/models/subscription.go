package models

import "time"

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

// SubscriptionStatus constants define subscription lifecycle states.
const (
	// SubscriptionStatusActive marks a paid, unexpired subscription.
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusExpired marks a subscription past its expiry.
	// The transition happens lazily on read, never by a background job.
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription records a user's plan purchase verified via the payment
// gateway. At most one subscription row exists per user; a new purchase
// replaces the previous row in the same transaction that grants storage.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex" json:"userId"` // Owning CA user ID.
	User   *User  `gorm:"foreignKey:UserID" json:"-"`         // Owning CA user.

	PlanID uint64 `gorm:"not null;index" json:"planId"`            // Purchased plan ID.
	Plan   *Plan  `gorm:"foreignKey:PlanID" json:"plan,omitempty"` // Purchased plan.

	Status SubscriptionStatus `gorm:"type:text;not null;default:'active'" json:"status"` // Current lifecycle state.

	OrderID   string `gorm:"type:text;not null" json:"orderId"`   // Gateway order identifier.
	PaymentID string `gorm:"type:text;not null" json:"paymentId"` // Gateway payment identifier.
	Signature string `gorm:"type:text;not null" json:"-"`         // Gateway HMAC signature, kept for audits.

	StartDate   time.Time  `gorm:"not null" json:"startDate"`         // When the subscription became active.
	ExpiresAt   time.Time  `gorm:"not null" json:"expiresAt"`         // When the subscription lapses.
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`             // Explicit cancellation time, nil if never cancelled.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// ExpiredAt reports whether the subscription has lapsed as of now.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
