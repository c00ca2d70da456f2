package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/quota"
)

// StorageHandler issues presigned upload and download URLs.
type StorageHandler struct {
	db     *gorm.DB
	ledger *quota.Ledger
	store  ObjectStore
}

// NewStorageHandler constructs a storage handler.
func NewStorageHandler(db *gorm.DB, ledger *quota.Ledger, store ObjectStore) *StorageHandler {
	return &StorageHandler{db: db, ledger: ledger, store: store}
}

type uploadURLRequest struct {
	FileName    string `json:"fileName"`    // Original file name, used in the key.
	ContentType string `json:"contentType"` // MIME type baked into the signature.
	FileSize    int64  `json:"fileSize"`    // Size in bytes for the quota precheck.
}

// UploadURL prechecks the CA's pooled quota and signs a PUT URL. The check
// here only rejects early; registration re-checks under the conditional
// update.
func (h *StorageHandler) UploadURL(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var body uploadURLRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.FileName = strings.TrimSpace(body.FileName)
	body.ContentType = strings.TrimSpace(body.ContentType)
	if body.FileName == "" || body.ContentType == "" {
		fail(c, apierror.Validation("fileName and contentType are required"))
		return
	}
	if body.FileSize <= 0 {
		fail(c, apierror.Validation("fileSize must be positive"))
		return
	}

	usage, errUsage := h.ledger.Snapshot(c.Request.Context(), account.ID)
	if errUsage != nil {
		fail(c, apierror.Server("read storage usage", errUsage))
		return
	}
	if usage.Used+body.FileSize > usage.Allocated {
		quota.LogRejected(account.ID, body.FileSize)
		fail(c, apierror.StorageExceeded())
		return
	}

	key := "uploads/" + uuid.NewString() + "-" + body.FileName
	url, errSign := h.store.UploadURL(c.Request.Context(), key, body.ContentType)
	if errSign != nil {
		fail(c, apierror.Server("sign upload url", errSign))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     url,
		"key":     key,
	})
}

type downloadURLRequest struct {
	Key string `json:"key"` // Object key to fetch.
}

// DownloadURL signs a short-lived GET URL for a key the caller owns.
func (h *StorageHandler) DownloadURL(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var body downloadURLRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.Key = strings.TrimSpace(body.Key)
	if body.Key == "" {
		fail(c, apierror.Validation("key is required"))
		return
	}

	if errOwn := h.checkKeyOwnership(c, account.ID, body.Key); errOwn != nil {
		fail(c, errOwn)
		return
	}

	url, errSign := h.store.DownloadURL(c.Request.Context(), body.Key)
	if errSign != nil {
		fail(c, apierror.Server("sign download url", errSign))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     url,
	})
}

// checkKeyOwnership confirms the key belongs to a document the CA can reach,
// either their own or one of their clients'.
func (h *StorageHandler) checkKeyOwnership(c *gin.Context, caID uint64, key string) *apierror.Error {
	var count int64
	errCount := h.db.WithContext(c.Request.Context()).
		Table("documents").
		Joins("LEFT JOIN clients ON clients.id = documents.client_id").
		Where("documents.file_key = ?", key).
		Where("documents.user_id = ? OR clients.ca_id = ?", caID, caID).
		Count(&count).Error
	if errCount != nil {
		return apierror.Server("check key ownership", errCount)
	}
	if count == 0 {
		return apierror.NotFound("file not found")
	}
	return nil
}
