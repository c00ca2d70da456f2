package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/db"
	"github.com/sidpg123/filemate-be/internal/models"
)

// ErrQuotaExceeded reports that an upload would push the CA's pooled storage
// past its allocation.
var ErrQuotaExceeded = errors.New("quota: storage limit exceeded")

// Ledger maintains the per-CA storage accounting. All mutations run inside a
// transaction and the ceiling check is a conditional update, so concurrent
// uploads can never push usage past the allocation.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger backed by GORM.
func NewLedger(conn *gorm.DB) *Ledger { return &Ledger{db: conn} }

// Upload describes a file whose bytes should be charged to the ledger.
type Upload struct {
	CAID         uint64  // CA whose pool the bytes count against.
	ClientID     *uint64 // Owning client, nil for the CA's own documents.
	FileName     string  // Original file name.
	FileKey      string  // Object storage key, unique.
	ThumbnailKey string  // Thumbnail key or static icon path.
	Year         string  // Financial year label, e.g. "2024-25".
	FileSize     int64   // Size in bytes, must be positive.
}

// RegisterUpload charges up's bytes against the CA pool and records the
// document, atomically. The charge is a single conditional update whose guard
// re-reads storage_used inside the statement; zero rows affected means another
// writer got there first and the pool is full, never lost progress.
func (l *Ledger) RegisterUpload(ctx context.Context, up Upload) (*models.Document, error) {
	if up.FileSize <= 0 {
		return nil, fmt.Errorf("quota: non-positive file size %d", up.FileSize)
	}

	doc := &models.Document{
		ClientID:     up.ClientID,
		FileName:     up.FileName,
		FileKey:      up.FileKey,
		ThumbnailKey: up.ThumbnailKey,
		Year:         up.Year,
		FileSize:     up.FileSize,
	}
	if up.ClientID == nil {
		caID := up.CAID
		doc.UserID = &caID
	}

	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND storage_used + ? <= allocated_storage", up.CAID, up.FileSize).
			Update("storage_used", gorm.Expr("storage_used + ?", up.FileSize))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExceeded
		}

		if up.ClientID != nil {
			if errClient := tx.Model(&models.Client{}).
				Where("id = ?", *up.ClientID).
				Update("storage_used", gorm.Expr("storage_used + ?", up.FileSize)).Error; errClient != nil {
				return errClient
			}
		}

		return tx.Create(doc).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return doc, nil
}

// ReleaseDocument removes the document row and refunds its bytes. Decrements
// floor at zero so a double release cannot drive a counter negative.
func (l *Ledger) ReleaseDocument(ctx context.Context, caID uint64, doc *models.Document) error {
	if doc == nil {
		return errors.New("quota: nil document")
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		floorZero := db.GreatestExpr(tx, "storage_used - ?", "0")

		res := tx.Delete(&models.Document{}, doc.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already gone. Do not refund twice.
			return nil
		}

		if errUser := tx.Model(&models.User{}).
			Where("id = ?", caID).
			Update("storage_used", gorm.Expr(floorZero, doc.FileSize)).Error; errUser != nil {
			return errUser
		}

		if doc.ClientID != nil {
			if errClient := tx.Model(&models.Client{}).
				Where("id = ?", *doc.ClientID).
				Update("storage_used", gorm.Expr(floorZero, doc.FileSize)).Error; errClient != nil {
				return errClient
			}
		}
		return nil
	})
}

// Grant raises the CA's allocation by the plan's storage grant and replaces
// the active subscription. Grants are additive, so stacking plans extends the
// ceiling rather than resetting it.
func (l *Ledger) Grant(ctx context.Context, caID uint64, plan *models.Plan, orderID, paymentID, signature string, expiresAt time.Time) error {
	if plan == nil {
		return errors.New("quota: nil plan")
	}
	now := time.Now().UTC()

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", caID).
			Update("allocated_storage", gorm.Expr("allocated_storage + ?", plan.StorageGrant))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("quota: user %d not found", caID)
		}

		sub := models.Subscription{
			UserID:    caID,
			PlanID:    plan.ID,
			Status:    models.SubscriptionStatusActive,
			OrderID:   orderID,
			PaymentID: paymentID,
			Signature: signature,
			StartDate: now,
			ExpiresAt: expiresAt,
		}

		var existing models.Subscription
		errFind := tx.Where("user_id = ?", caID).First(&existing).Error
		switch {
		case errFind == nil:
			sub.ID = existing.ID
			return tx.Save(&sub).Error
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			return tx.Create(&sub).Error
		default:
			return errFind
		}
	})
}

// Usage is a point-in-time snapshot of a CA's pooled storage.
type Usage struct {
	Used      int64 // Bytes currently charged.
	Allocated int64 // Current ceiling in bytes.
}

// Snapshot reads the CA's current usage and allocation.
func (l *Ledger) Snapshot(ctx context.Context, caID uint64) (Usage, error) {
	var user models.User
	if errFind := l.db.WithContext(ctx).
		Select("storage_used", "allocated_storage").
		First(&user, caID).Error; errFind != nil {
		return Usage{}, errFind
	}
	return Usage{Used: user.StorageUsed, Allocated: user.AllocatedStorage}, nil
}

// LogRejected records a refused upload for operators chasing quota complaints.
func LogRejected(caID uint64, size int64) {
	log.WithFields(log.Fields{"user_id": caID, "size": size}).Warn("upload rejected: storage limit exceeded")
}
