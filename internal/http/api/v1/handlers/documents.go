package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/pagination"
	"github.com/sidpg123/filemate-be/internal/quota"
	"github.com/sidpg123/filemate-be/internal/storage"
)

// ObjectStore issues presigned URLs and deletes stored objects.
type ObjectStore interface {
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// CDNSigner signs object keys into time-limited URLs and invalidates cached
// paths after deletes.
type CDNSigner interface {
	SignKey(key string) (string, error)
	Invalidate(ctx context.Context, keys []string)
}

// DocumentHandler manages document metadata, quota accounting, and file URLs.
type DocumentHandler struct {
	db     *gorm.DB
	ledger *quota.Ledger
	store  ObjectStore
	cdn    CDNSigner
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(db *gorm.DB, ledger *quota.Ledger, store ObjectStore, cdn CDNSigner) *DocumentHandler {
	return &DocumentHandler{db: db, ledger: ledger, store: store, cdn: cdn}
}

// documentView is a document with its keys swapped for signed URLs. The raw
// keys stay in the database only.
type documentView struct {
	models.Document
	FileKey      string `json:"fileKey"`
	ThumbnailKey string `json:"thumbnailKey"`
}

func (h *DocumentHandler) viewOf(doc models.Document) documentView {
	view := documentView{Document: doc, FileKey: doc.FileKey, ThumbnailKey: doc.ThumbnailKey}
	if signed, errSign := h.cdn.SignKey(doc.FileKey); errSign == nil {
		view.FileKey = signed
	} else {
		log.WithError(errSign).WithField("key", doc.FileKey).Warn("sign file key")
	}
	if signed, errSign := h.cdn.SignKey(doc.ThumbnailKey); errSign == nil {
		view.ThumbnailKey = signed
	}
	return view
}

func (h *DocumentHandler) viewsOf(docs []models.Document) []documentView {
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, h.viewOf(doc))
	}
	return views
}

type registerDocumentRequest struct {
	FileName     string `json:"fileName"`     // Original file name.
	FileKey      string `json:"fileKey"`      // Key the file was uploaded under.
	ThumbnailKey string `json:"thumbnailKey"` // Client-generated thumbnail key, pdf only.
	Year         string `json:"year"`         // Financial year label.
	FileSize     int64  `json:"fileSize"`     // Size in bytes.
}

func (r *registerDocumentRequest) validate() *apierror.Error {
	r.FileName = strings.TrimSpace(r.FileName)
	r.FileKey = strings.TrimSpace(r.FileKey)
	r.ThumbnailKey = strings.TrimSpace(r.ThumbnailKey)
	r.Year = strings.TrimSpace(r.Year)
	if r.FileName == "" || r.FileKey == "" || r.Year == "" {
		return apierror.Validation("fileName, fileKey, and year are required")
	}
	if r.FileSize <= 0 {
		return apierror.Validation("fileSize must be positive")
	}
	return nil
}

// RegisterForClient records metadata for a file uploaded for one of the CA's
// clients. The bytes charge both the client and the CA pool.
func (h *DocumentHandler) RegisterForClient(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}
	h.register(c, account.ID, &client.ID)
}

// RegisterForUser records metadata for the CA's own document.
func (h *DocumentHandler) RegisterForUser(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	h.register(c, account.ID, nil)
}

func (h *DocumentHandler) register(c *gin.Context, caID uint64, clientID *uint64) {
	var body registerDocumentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	if errValidate := body.validate(); errValidate != nil {
		fail(c, errValidate)
		return
	}

	doc, errRegister := h.ledger.RegisterUpload(c.Request.Context(), quota.Upload{
		CAID:         caID,
		ClientID:     clientID,
		FileName:     body.FileName,
		FileKey:      body.FileKey,
		ThumbnailKey: storage.DeriveThumbnailKey(body.FileName, body.FileKey, body.ThumbnailKey),
		Year:         body.Year,
		FileSize:     body.FileSize,
	})
	if errRegister != nil {
		if errors.Is(errRegister, quota.ErrQuotaExceeded) {
			quota.LogRejected(caID, body.FileSize)
			fail(c, apierror.StorageExceeded())
			return
		}
		fail(c, apierror.Server("register document", errRegister))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "document data added successfully",
		"document": h.viewOf(*doc),
	})
}

// ListForClient returns one page of a client's documents for the owning CA.
func (h *DocumentHandler) ListForClient(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errClient := loadOwnedClient(c, h.db, account.ID)
	if errClient != nil {
		fail(c, errClient)
		return
	}
	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Document{}).
		Where("client_id = ?", client.ID)
	h.list(c, query)
}

// ListForUser returns one page of the CA's own documents.
func (h *DocumentHandler) ListForUser(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Document{}).
		Where("user_id = ?", account.ID)
	h.list(c, query)
}

func (h *DocumentHandler) list(c *gin.Context, query *gorm.DB) {
	limit := pagination.ClampLimit(c.Query("limit"))
	cursor := pagination.FromQuery(c.Query("cursorUploadedAt"), c.Query("cursorId"))

	var filters []pagination.Filter
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filters = append(filters, pagination.Contains{Column: "file_name", Term: search})
	}
	if year := strings.TrimSpace(c.Query("year")); year != "" {
		// Year labels are exact: "2024" must not match "2024-25".
		filters = append(filters, pagination.Equals{Column: "year", Value: year})
	}
	query = pagination.ApplyFilters(h.db, query, filters...)

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
		"data":    h.viewsOf(page.Data),
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

type deleteDocumentRequest struct {
	Key      string  `json:"key"`      // File key being removed.
	FileID   uint64  `json:"fileId"`   // Document row ID.
	ClientID *uint64 `json:"clientId"` // Owning client, nil for CA documents.
}

// Delete removes a document's metadata, refunds quota, and then cleans up the
// bucket and CDN. Storage cleanup is best effort after the commit.
func (h *DocumentHandler) Delete(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var body deleteDocumentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.Key = strings.TrimSpace(body.Key)
	if body.Key == "" || body.FileID == 0 {
		fail(c, apierror.Validation("key and fileId are required"))
		return
	}

	query := h.db.WithContext(c.Request.Context()).Where("id = ? AND file_key = ?", body.FileID, body.Key)
	if body.ClientID != nil {
		// Client documents are reachable only through a client the CA owns.
		var client models.Client
		errClient := h.db.WithContext(c.Request.Context()).
			Where("id = ? AND ca_id = ?", *body.ClientID, account.ID).
			First(&client).Error
		if errClient != nil {
			if errors.Is(errClient, gorm.ErrRecordNotFound) {
				fail(c, apierror.NotFound("client not found"))
				return
			}
			fail(c, apierror.Server("load client", errClient))
			return
		}
		query = query.Where("client_id = ?", client.ID)
	} else {
		query = query.Where("user_id = ?", account.ID)
	}

	var doc models.Document
	if errFind := query.First(&doc).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, apierror.NotFound("file not found"))
			return
		}
		fail(c, apierror.Server("load document", errFind))
		return
	}

	if errRelease := h.ledger.ReleaseDocument(c.Request.Context(), account.ID, &doc); errRelease != nil {
		fail(c, apierror.Server("release document", errRelease))
		return
	}

	// Past this point the metadata and quota are settled; storage cleanup
	// failures are logged, not surfaced.
	keys := []string{doc.FileKey}
	if doc.ThumbnailKey != "" && !strings.HasPrefix(doc.ThumbnailKey, storage.StaticThumbnailPrefix) && doc.ThumbnailKey != doc.FileKey {
		keys = append(keys, doc.ThumbnailKey)
	}
	for _, key := range keys {
		if errDelete := h.store.DeleteObject(c.Request.Context(), key); errDelete != nil {
			log.WithError(errDelete).WithField("key", key).Warn("object delete failed")
		}
	}
	h.cdn.Invalidate(c.Request.Context(), keys)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "deleted",
	})
}
