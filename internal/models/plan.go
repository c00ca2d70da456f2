package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan represents a subscription plan configuration.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Name        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"` // Machine name, e.g. "pro-annual".
	DisplayName string `gorm:"type:varchar(255);not null" json:"displayName"`      // Human-readable name.
	Description string `gorm:"type:text" json:"description"`                       // Plan description.

	Price    float64 `gorm:"type:decimal(10,2);not null;default:0" json:"price"`      // Price in rupees.
	Currency string  `gorm:"type:varchar(8);not null;default:'INR'" json:"currency"`  // ISO currency code.

	// StorageGrant is the number of bytes added to a user's allocated storage
	// on each verified payment. Grants are additive, never replacing.
	StorageGrant int64 `gorm:"not null;default:0" json:"storageGrant"`

	// ValidityDays bounds the subscription created from this plan.
	ValidityDays int `gorm:"not null;default:365" json:"validityDays"`

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"features"` // Feature list for display.

	SortOrder int  `gorm:"not null;default:0" json:"sortOrder"`       // Display ordering weight.
	IsEnabled bool `gorm:"not null;default:true" json:"isEnabled"`    // Whether the plan can be purchased.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}
