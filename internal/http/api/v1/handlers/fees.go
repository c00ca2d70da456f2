package handlers

import (
	"errors"
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

// FeeHandler manages fee records under a CA's clients.
type FeeHandler struct {
	db *gorm.DB
}

// NewFeeHandler constructs a fee handler.
func NewFeeHandler(db *gorm.DB) *FeeHandler {
	return &FeeHandler{db: db}
}

// feeView is a fee record with its read-time status resolved.
type feeView struct {
	models.FeeRecord
	EffectiveStatus models.FeeStatus `json:"effectiveStatus"` // Overdue is derived, never stored.
}

func feeViews(records []models.FeeRecord, now time.Time) []feeView {
	views := make([]feeView, 0, len(records))
	for _, record := range records {
		views = append(views, feeView{FeeRecord: record, EffectiveStatus: record.EffectiveStatus(now)})
	}
	return views
}

// List returns one page of a client's fee records, newest first.
func (h *FeeHandler) List(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}

	limit := pagination.ClampLimit(c.Query("limit"))
	cursor := pagination.FromQuery(c.Query("cursorCreatedAt"), c.Query("cursorId"))

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.FeeRecord{}).
		Where("client_id = ?", client.ID)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = h.applyStatusFilter(query, status)
	}

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

// applyStatusFilter narrows by effective status: Overdue means stored Pending
// past due, Pending means stored Pending not yet due.
func (h *FeeHandler) applyStatusFilter(query *gorm.DB, status string) *gorm.DB {
	now := time.Now().UTC()
	switch models.FeeStatus(status) {
	case models.FeeStatusPaid:
		return query.Where("status = ?", models.FeeStatusPaid)
	case models.FeeStatusOverdue:
		return query.Where("status = ? AND due_date < ?", models.FeeStatusPending, now)
	case models.FeeStatusPending:
		return query.Where("status = ? AND due_date >= ?", models.FeeStatusPending, now)
	default:
		return query
	}
}

type feeRequest struct {
	Amount        float64 `json:"amount"`        // Fee amount.
	Note          string  `json:"note"`          // Free-form note.
	DueDate       string  `json:"dueDate"`       // RFC 3339 payment deadline.
	Status        string  `json:"status"`        // Pending or Paid.
	PaymentDate   string  `json:"paymentDate"`   // RFC 3339, only for Paid.
	FeeCategoryID *uint64 `json:"feeCategoryId"` // Optional category.
}

func (r *feeRequest) parse() (amount float64, due time.Time, status models.FeeStatus, paid *time.Time, apiErr *apierror.Error) {
	if r.Amount <= 0 {
		return 0, time.Time{}, "", nil, apierror.Validation("amount must be positive")
	}
	due, errDue := time.Parse(time.RFC3339, strings.TrimSpace(r.DueDate))
	if errDue != nil {
		return 0, time.Time{}, "", nil, apierror.Validation("dueDate must be RFC 3339")
	}
	status = models.FeeStatusPending
	if raw := strings.TrimSpace(r.Status); raw != "" {
		status = models.FeeStatus(raw)
	}
	// Overdue is read-time only and can never be written.
	if status != models.FeeStatusPending && status != models.FeeStatusPaid {
		return 0, time.Time{}, "", nil, apierror.Validation("status must be Pending or Paid")
	}
	if raw := strings.TrimSpace(r.PaymentDate); raw != "" {
		parsed, errPaid := time.Parse(time.RFC3339, raw)
		if errPaid != nil {
			return 0, time.Time{}, "", nil, apierror.Validation("paymentDate must be RFC 3339")
		}
		paid = &parsed
	}
	if status == models.FeeStatusPaid && paid == nil {
		now := time.Now().UTC()
		paid = &now
	}
	if status == models.FeeStatusPending {
		paid = nil
	}
	return r.Amount, due, status, paid, nil
}

// Create adds a fee record for a client owned by the CA.
func (h *FeeHandler) Create(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}

	var body feeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	amount, due, status, paid, errParse := body.parse()
	if errParse != nil {
		fail(c, errParse)
		return
	}
	if apiErr := h.checkCategory(c, account.ID, body.FeeCategoryID); apiErr != nil {
		fail(c, apiErr)
		return
	}

	record := models.FeeRecord{
		ClientID:      client.ID,
		FeeCategoryID: body.FeeCategoryID,
		Amount:        amount,
		Note:          strings.TrimSpace(body.Note),
		Status:        status,
		DueDate:       due,
		PaymentDate:   paid,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&record).Error; errCreate != nil {
		fail(c, apierror.Server("create fee record", errCreate))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "fee record added successfully",
		"feeRecord": feeView{FeeRecord: record, EffectiveStatus: record.EffectiveStatus(time.Now().UTC())},
	})
}

// Update edits a fee record under a client owned by the CA.
func (h *FeeHandler) Update(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}
	record, errRecord := h.ownedFee(c, client.ID)
	if errRecord != nil {
		fail(c, errRecord)
		return
	}

	var body feeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	amount, due, status, paid, errParse := body.parse()
	if errParse != nil {
		fail(c, errParse)
		return
	}
	if apiErr := h.checkCategory(c, account.ID, body.FeeCategoryID); apiErr != nil {
		fail(c, apiErr)
		return
	}

	updates := map[string]any{
		"amount":          amount,
		"note":            strings.TrimSpace(body.Note),
		"status":          status,
		"due_date":        due,
		"payment_date":    paid,
		"fee_category_id": body.FeeCategoryID,
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(record).Updates(updates).Error; errUpdate != nil {
		fail(c, apierror.Server("update fee record", errUpdate))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "fee record updated successfully",
		"feeRecord": feeView{FeeRecord: *record, EffectiveStatus: record.EffectiveStatus(time.Now().UTC())},
	})
}

// Delete removes a fee record under a client owned by the CA.
func (h *FeeHandler) Delete(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}
	record, errRecord := h.ownedFee(c, client.ID)
	if errRecord != nil {
		fail(c, errRecord)
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(record).Error; errDelete != nil {
		fail(c, apierror.Server("delete fee record", errDelete))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "fee record deleted successfully",
	})
}

// feeStatusBucket is one row of the statistics aggregation.
type feeStatusBucket struct {
	EffectiveStatus string  `json:"effectiveStatus"`
	Count           int64   `json:"count"`
	Total           float64 `json:"total"`
}

// Statistics aggregates a client's fees by effective status in SQL, so the
// Overdue bucket is consistent with what the list endpoint shows.
func (h *FeeHandler) Statistics(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}

	buckets, errAgg := aggregateFeeStatus(c, h.db, client.ID)
	if errAgg != nil {
		fail(c, apierror.Server("aggregate fee statistics", errAgg))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "fee statistics fetched successfully",
		"summary": summaryFromBuckets(buckets),
	})
}

const effectiveStatusExpr = "CASE WHEN status = 'Paid' THEN 'Paid' WHEN due_date < ? THEN 'Overdue' ELSE 'Pending' END"

func aggregateFeeStatus(c *gin.Context, db *gorm.DB, clientID uint64) ([]feeStatusBucket, error) {
	now := time.Now().UTC()
	var buckets []feeStatusBucket
	errScan := db.WithContext(c.Request.Context()).
		Raw("SELECT "+effectiveStatusExpr+" AS effective_status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total"+
			" FROM fee_records WHERE client_id = ? GROUP BY "+effectiveStatusExpr,
			now, clientID, now).
		Scan(&buckets).Error
	if errScan != nil {
		return nil, errScan
	}
	return buckets, nil
}

func summaryFromBuckets(buckets []feeStatusBucket) gin.H {
	summary := gin.H{
		"pending": gin.H{"count": int64(0), "amount": float64(0)},
		"overdue": gin.H{"count": int64(0), "amount": float64(0)},
		"paid":    gin.H{"count": int64(0), "amount": float64(0)},
	}
	for _, bucket := range buckets {
		summary[strings.ToLower(bucket.EffectiveStatus)] = gin.H{
			"count":  bucket.Count,
			"amount": bucket.Total,
		}
	}
	return summary
}

func (h *FeeHandler) ownedFee(c *gin.Context, clientID uint64) (*models.FeeRecord, *apierror.Error) {
	feeID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("feeId")), 10, 64)
	if errParse != nil {
		return nil, apierror.Validation("invalid fee record id")
	}
	var record models.FeeRecord
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND client_id = ?", feeID, clientID).
		First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("fee record not found")
		}
		return nil, apierror.Server("load fee record", errFind)
	}
	return &record, nil
}

func (h *FeeHandler) checkCategory(c *gin.Context, caID uint64, categoryID *uint64) *apierror.Error {
	if categoryID == nil {
		return nil
	}
	var category models.FeeCategory
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", *categoryID, caID).
		First(&category).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return apierror.NotFound("fee category not found")
		}
		return apierror.Server("load fee category", errFind)
	}
	return nil
}
