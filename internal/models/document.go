package models

import "time"

// Document records metadata for a file stored in object storage. Exactly one
// of ClientID and UserID is set: client documents charge both the client and
// its parent CA, CA documents charge only the CA. The actual bytes live in S3;
// only raw keys are persisted, never signed URLs.
type Document struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key, pagination tie-breaker.

	ClientID *uint64 `gorm:"index" json:"clientId,omitempty"` // Owning client ID, nil for CA documents.
	Client   *Client `gorm:"foreignKey:ClientID" json:"-"`    // Owning client.
	UserID   *uint64 `gorm:"index" json:"userId,omitempty"`   // Owning CA user ID, nil for client documents.
	User     *User   `gorm:"foreignKey:UserID" json:"-"`      // Owning CA user.

	FileName     string `gorm:"type:text;not null" json:"fileName"`              // Original file name.
	FileKey      string `gorm:"type:text;not null;uniqueIndex" json:"fileKey"`   // Object storage key.
	ThumbnailKey string `gorm:"type:text" json:"thumbnailKey"`                   // Thumbnail key, static path for non-image types.
	Year         string `gorm:"type:text;not null;index" json:"year"`            // Financial year label, e.g. "2024-25".
	FileSize     int64  `gorm:"not null" json:"fileSize"`                        // Size in bytes, the quota ledger unit.

	UploadedAt time.Time `gorm:"not null;autoCreateTime" json:"uploadedAt"` // Registration timestamp, primary sort key.
}
