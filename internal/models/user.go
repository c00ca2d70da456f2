package models

import "time"

// User represents a CA (accountant) account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Name     string `gorm:"type:text;not null" json:"name"`              // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex" json:"email"` // Login email.
	Password string `gorm:"type:text;not null" json:"-"`                 // Hashed password, never serialized.

	Role Role `gorm:"type:text;not null;default:'CA'" json:"role"` // Account role, always CA for users.

	StorageUsed      int64 `gorm:"not null;default:0" json:"storageUsed"`      // Bytes consumed across the CA and all its clients.
	AllocatedStorage int64 `gorm:"not null;default:0" json:"allocatedStorage"` // Storage ceiling in bytes; grows only via verified payments.

	IsActive bool `gorm:"not null;default:true" json:"isActive"` // Whether the user can sign in.

	Clients       []Client      `gorm:"foreignKey:CAID" json:"clients,omitempty"`         // Managed clients.
	FeeCategories []FeeCategory `gorm:"foreignKey:UserID" json:"feeCategories,omitempty"` // Fee categories defined by this CA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// Account returns the polymorphic account view for authorization checks.
func (u *User) Account() Account {
	return Account{ID: u.ID, Role: RoleCA, IsActive: u.IsActive}
}
