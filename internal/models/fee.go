package models

import "time"

// FeeStatus represents the lifecycle state of a fee record.
type FeeStatus string

// FeeStatus constants define stored and derived fee states.
const (
	// FeeStatusPending marks a fee awaiting payment.
	FeeStatusPending FeeStatus = "Pending"
	// FeeStatusPaid marks a fee as settled.
	FeeStatusPaid FeeStatus = "Paid"
	// FeeStatusOverdue is derived at read time for pending fees past due.
	// It is never persisted.
	FeeStatusOverdue FeeStatus = "Overdue"
)

// FeeRecord stores a fee owed by a client to its CA.
type FeeRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key, pagination tie-breaker.

	ClientID uint64  `gorm:"not null;index" json:"clientId"` // Owning client ID.
	Client   *Client `gorm:"foreignKey:ClientID" json:"-"`   // Owning client.

	FeeCategoryID *uint64      `gorm:"index" json:"feeCategoryId,omitempty"`                         // Optional category ID.
	FeeCategory   *FeeCategory `gorm:"foreignKey:FeeCategoryID" json:"feeCategory,omitempty"`        // Optional category.

	Amount float64 `gorm:"type:decimal(12,2);not null" json:"amount"` // Fee amount.
	Note   string  `gorm:"type:text" json:"note"`                     // Free-form note.

	Status      FeeStatus  `gorm:"type:text;not null;default:'Pending'" json:"status"` // Stored status, Pending or Paid only.
	DueDate     time.Time  `gorm:"not null" json:"dueDate"`                            // Payment deadline.
	PaymentDate *time.Time `json:"paymentDate,omitempty"`                              // When the fee was settled, nil while pending.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp, primary sort key.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// EffectiveStatus derives the read-time status: a stored Pending fee whose due
// date has elapsed reads as Overdue. Storage is never mutated.
func (f *FeeRecord) EffectiveStatus(now time.Time) FeeStatus {
	if f.Status == FeeStatusPending && f.DueDate.Before(now) {
		return FeeStatusOverdue
	}
	return f.Status
}

// FeeCategory labels fee records for a CA user.
type FeeCategory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	UserID uint64 `gorm:"not null;index" json:"userId"` // Owning CA user ID.
	User   *User  `gorm:"foreignKey:UserID" json:"-"`   // Owning CA user.

	Name string `gorm:"type:text;not null" json:"name"` // Category name, unique per CA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
