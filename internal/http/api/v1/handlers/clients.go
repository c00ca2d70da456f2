package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/pagination"
	"github.com/sidpg123/filemate-be/internal/security"
)

// ClientHandler manages the CA's client roster.
type ClientHandler struct {
	db *gorm.DB
}

// NewClientHandler constructs a client handler.
func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

// List returns one page of the CA's clients, newest first.
func (h *ClientHandler) List(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	limit := pagination.ClampLimit(c.Query("limit"))
	cursor := pagination.FromQuery(c.Query("cursorCreatedAt"), c.Query("cursorId"))

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Client{}).
		Where("ca_id = ?", account.ID)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = pagination.ApplyFilters(h.db, query, pagination.Contains{Column: "name", Term: search})
	}

	page, errPage := pagination.Paginate(query,
		pagination.Sort{Column: "created_at", Desc: true},
		cursor, limit,
		func(row *models.Client) pagination.Cursor {
			return pagination.Cursor{At: row.CreatedAt, ID: row.ID}
		},
	)
	if errPage != nil {
		fail(c, apierror.Server("list clients", errPage))
		return
	}

	response := gin.H{
		"success": true,
		"data":    page.Data,
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

type clientRequest struct {
	Name     string `json:"name"`     // Display name.
	Email    string `json:"email"`    // Contact email, unique per CA.
	Phone    string `json:"phone"`    // Contact phone.
	Address  string `json:"address"`  // Postal address.
	Password string `json:"password"` // Optional portal password.
}

func (r *clientRequest) normalize() *apierror.Error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	if r.Name == "" || r.Email == "" {
		return apierror.Validation("name and email are required")
	}
	if r.Password != "" && len(r.Password) < 8 {
		return apierror.Validation("password must be at least 8 characters")
	}
	return nil
}

// Create adds a client under the authenticated CA.
func (h *ClientHandler) Create(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}

	var body clientRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	if errValidate := body.normalize(); errValidate != nil {
		fail(c, errValidate)
		return
	}

	var existing models.Client
	errFind := h.db.WithContext(c.Request.Context()).
		Where("ca_id = ? AND email = ?", account.ID, body.Email).
		First(&existing).Error
	if errFind == nil {
		fail(c, apierror.Conflict("client with this email already exists"))
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		fail(c, apierror.Server("check existing client", errFind))
		return
	}

	client := models.Client{
		CAID:    account.ID,
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
	}
	// A password turns the record into a portal login.
	if body.Password != "" {
		hashed, errHash := security.HashPassword(body.Password)
		if errHash != nil {
			fail(c, apierror.Server("hash password", errHash))
			return
		}
		client.Password = hashed
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&client).Error; errCreate != nil {
		fail(c, apierror.Server("create client", errCreate))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "client added successfully",
		"client":  client,
	})
}

// Get returns one client owned by the CA, with fees and documents.
func (h *ClientHandler) Get(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errLoad := h.ownedClient(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}

	if errAssoc := h.db.WithContext(c.Request.Context()).
		Preload("Fees").
		Preload("Documents").
		First(client, client.ID).Error; errAssoc != nil {
		fail(c, apierror.Server("load client detail", errAssoc))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"client":  client,
	})
}

// Update edits a client owned by the CA.
func (h *ClientHandler) Update(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errLoad := h.ownedClient(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}

	var body clientRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	if errValidate := body.normalize(); errValidate != nil {
		fail(c, errValidate)
		return
	}

	if body.Email != client.Email {
		var existing models.Client
		errFind := h.db.WithContext(c.Request.Context()).
			Where("ca_id = ? AND email = ? AND id <> ?", account.ID, body.Email, client.ID).
			First(&existing).Error
		if errFind == nil {
			fail(c, apierror.Conflict("client with this email already exists"))
			return
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			fail(c, apierror.Server("check existing client", errFind))
			return
		}
	}

	updates := map[string]any{
		"name":    body.Name,
		"email":   body.Email,
		"phone":   body.Phone,
		"address": body.Address,
	}
	if body.Password != "" {
		hashed, errHash := security.HashPassword(body.Password)
		if errHash != nil {
			fail(c, apierror.Server("hash password", errHash))
			return
		}
		updates["password"] = hashed
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(client).Updates(updates).Error; errUpdate != nil {
		fail(c, apierror.Server("update client", errUpdate))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "client updated successfully",
		"client":  client,
	})
}

// Delete removes a client owned by the CA. Fee records go with it; document
// rows and their storage are expected to be deleted first via the documents
// endpoints, which also refund quota.
func (h *ClientHandler) Delete(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	client, errLoad := h.ownedClient(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFees := tx.Where("client_id = ?", client.ID).Delete(&models.FeeRecord{}).Error; errFees != nil {
			return errFees
		}
		return tx.Delete(client).Error
	})
	if errTx != nil {
		fail(c, apierror.Server("delete client", errTx))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "client deleted successfully",
	})
}

// ownedClient loads the path client, scoped to the owning CA. A client that
// exists under another CA is indistinguishable from one that does not exist.
func (h *ClientHandler) ownedClient(c *gin.Context, caID uint64) (*models.Client, *apierror.Error) {
	return loadOwnedClient(c, h.db, caID)
}

func loadOwnedClient(c *gin.Context, db *gorm.DB, caID uint64) (*models.Client, *apierror.Error) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		return nil, apierror.Validation("invalid client id")
	}
	var client models.Client
	errFind := db.WithContext(c.Request.Context()).
		Where("id = ? AND ca_id = ?", id, caID).
		First(&client).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("client not found")
		}
		return nil, apierror.Server("load client", errFind)
	}
	return &client, nil
}
