package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/pagination"
)

// DashboardHandler serves the client portal: the logged-in client's own
// documents and fees, read only.
type DashboardHandler struct {
	db   *gorm.DB
	docs *DocumentHandler
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(db *gorm.DB, docs *DocumentHandler) *DashboardHandler {
	return &DashboardHandler{db: db, docs: docs}
}

// Documents lists the client's own documents, newest financial year first and
// newest upload first within a year. Keys come back CDN signed.
func (h *DashboardHandler) Documents(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	limit := pagination.ClampLimit(c.Query("limit"))
	cursor := pagination.FromQuery(c.Query("cursorUploadedAt"), c.Query("cursorId"))

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Document{}).
		Where("client_id = ?", account.ID)
	if year := strings.TrimSpace(c.Query("year")); year != "" {
		query = pagination.ApplyFilters(h.db, query, pagination.Equals{Column: "year", Value: year})
	}

	page, errPage := pagination.Paginate(query,
		pagination.Sort{Column: "uploaded_at", Desc: true},
		cursor, limit,
		func(row *models.Document) pagination.Cursor {
			return pagination.Cursor{At: row.UploadedAt, ID: row.ID}
		},
	)
	if errPage != nil {
		fail(c, apierror.Server("list documents", errPage))
		return
	}

	response := gin.H{
		"success": true,
		"data":    h.docs.viewsOf(page.Data),
		"hasMore": page.HasMore,
	}
	if page.NextCursor != nil {
		response["nextCursor"] = gin.H{
			"cursorUploadedAt": page.NextCursor.Encode(),
			"cursorId":         strconv.FormatUint(page.NextCursor.ID, 10),
		}
	}
	c.JSON(http.StatusOK, response)
}

// Fees lists the client's own fee records, newest first, with the read-time
// status resolved.
func (h *DashboardHandler) Fees(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	limit := pagination.ClampLimit(c.Query("limit"))
	cursor := pagination.FromQuery(c.Query("cursorCreatedAt"), c.Query("cursorId"))

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.FeeRecord{}).
		Where("client_id = ?", account.ID)

	page, errPage := pagination.Paginate(query,
		pagination.Sort{Column: "created_at", Desc: true},
		cursor, limit,
		func(row *models.FeeRecord) pagination.Cursor {
			return pagination.Cursor{At: row.CreatedAt, ID: row.ID}
		},
	)
	if errPage != nil {
		fail(c, apierror.Server("list fee records", errPage))
		return
	}

	response := gin.H{
		"success": true,
		"data":    feeViews(page.Data, time.Now().UTC()),
		"hasMore": page.HasMore,
	}
	if page.NextCursor != nil {
		response["nextCursor"] = gin.H{
			"cursorCreatedAt": page.NextCursor.Encode(),
			"cursorId":        strconv.FormatUint(page.NextCursor.ID, 10),
		}
	}
	c.JSON(http.StatusOK, response)
}

// PendingTotal returns the client's total unpaid amount, Pending and Overdue
// combined.
func (h *DashboardHandler) PendingTotal(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var total float64
	errSum := h.db.WithContext(c.Request.Context()).
		Model(&models.FeeRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("client_id = ? AND status = ?", account.ID, models.FeeStatusPending).
		Scan(&total).Error
	if errSum != nil {
		fail(c, apierror.Server("sum pending fees", errSum))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"totalPending": total,
	})
}
