package models

import "time"

// Client represents a client account managed by a CA user.
type Client struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	CAID uint64 `gorm:"not null;index" json:"caId"`      // Owning CA user ID.
	CA   *User  `gorm:"foreignKey:CAID" json:"-"`        // Owning CA user.

	Name    string `gorm:"type:text;not null" json:"name"`  // Display name.
	Email   string `gorm:"type:text;not null" json:"email"` // Login email, unique per CA.
	Phone   string `gorm:"type:text" json:"phone"`          // Contact phone.
	Address string `gorm:"type:text" json:"address"`        // Postal address.

	Role Role `gorm:"type:text;not null;default:'Client'" json:"role"` // Account role, always Client.

	// StorageUsed tracks this client's own bytes. The quota ceiling lives on
	// the parent CA, where storage is pooled across all of its clients.
	StorageUsed int64 `gorm:"not null;default:0" json:"storageUsed"`

	Password string `gorm:"type:text" json:"-"`                    // Hashed password, empty until the client activates login.
	IsActive bool   `gorm:"not null;default:true" json:"isActive"` // Whether the client can sign in.

	Fees      []FeeRecord `gorm:"foreignKey:ClientID" json:"fees,omitempty"`      // Fee records for this client.
	Documents []Document  `gorm:"foreignKey:ClientID" json:"documents,omitempty"` // Documents uploaded for this client.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"` // Last update timestamp.
}

// Account returns the polymorphic account view for authorization checks.
func (c *Client) Account() Account {
	return Account{ID: c.ID, Role: RoleClient, IsActive: c.IsActive}
}
