package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/quota"
)

// UserHandler serves the CA's account overview.
type UserHandler struct {
	db     *gorm.DB
	ledger *quota.Ledger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(db *gorm.DB, ledger *quota.Ledger) *UserHandler {
	return &UserHandler{db: db, ledger: ledger}
}

// Info returns the CA's profile, client count, storage snapshot, and the
// outstanding fee total across all their clients. Outstanding covers both
// Pending and Overdue, which share the same stored status.
func (h *UserHandler) Info(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, account.ID).Error; errFind != nil {
		fail(c, apierror.Server("load user", errFind))
		return
	}

	var clientCount int64
	errCount := h.db.WithContext(c.Request.Context()).
		Model(&models.Client{}).
		Where("ca_id = ?", account.ID).
		Count(&clientCount).Error
	if errCount != nil {
		fail(c, apierror.Server("count clients", errCount))
		return
	}

	usage, errUsage := h.ledger.Snapshot(c.Request.Context(), account.ID)
	if errUsage != nil {
		fail(c, apierror.Server("read storage usage", errUsage))
		return
	}

	now := time.Now().UTC()
	var outstanding struct {
		Pending float64
		Overdue float64
	}
	errSum := h.db.WithContext(c.Request.Context()).
		Raw("SELECT"+
			" COALESCE(SUM(CASE WHEN fee_records.due_date >= ? THEN fee_records.amount ELSE 0 END), 0) AS pending,"+
			" COALESCE(SUM(CASE WHEN fee_records.due_date < ? THEN fee_records.amount ELSE 0 END), 0) AS overdue"+
			" FROM fee_records JOIN clients ON clients.id = fee_records.client_id"+
			" WHERE clients.ca_id = ? AND fee_records.status = ?",
			now, now, account.ID, models.FeeStatusPending).
		Scan(&outstanding).Error
	if errSum != nil {
		fail(c, apierror.Server("sum outstanding fees", errSum))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
		"clientCount": clientCount,
		"storage": gin.H{
			"used":      usage.Used,
			"allocated": usage.Allocated,
		},
		"fees": gin.H{
			"pending": outstanding.Pending,
			"overdue": outstanding.Overdue,
			"total":   outstanding.Pending + outstanding.Overdue,
		},
	})
}
