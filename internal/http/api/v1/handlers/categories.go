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
)

// CategoryHandler manages a CA's fee categories.
type CategoryHandler struct {
	db *gorm.DB
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{db: db}
}

// List returns all of the CA's fee categories.
func (h *CategoryHandler) List(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	var categories []models.FeeCategory
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", account.ID).
		Order("name ASC").
		Find(&categories).Error; errFind != nil {
		fail(c, apierror.Server("list fee categories", errFind))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": categories,
	})
}

type categoryRequest struct {
	Name string `json:"name"` // Category name, unique per CA.
}

// Create adds a fee category for the CA.
func (h *CategoryHandler) Create(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		fail(c, apierror.Validation("name is required"))
		return
	}

	var existing models.FeeCategory
	errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND name = ?", account.ID, name).
		First(&existing).Error
	if errFind == nil {
		fail(c, apierror.Conflict("category with this name already exists"))
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		fail(c, apierror.Server("check existing category", errFind))
		return
	}

	category := models.FeeCategory{UserID: account.ID, Name: name}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&category).Error; errCreate != nil {
		fail(c, apierror.Server("create category", errCreate))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "category created successfully",
		"category": category,
	})
}

// Update renames a category owned by the CA.
func (h *CategoryHandler) Update(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	category, errLoad := h.ownedCategory(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}

	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		fail(c, apierror.Validation("name is required"))
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).
		Model(category).Update("name", name).Error; errUpdate != nil {
		fail(c, apierror.Server("update category", errUpdate))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "category updated successfully",
		"category": category,
	})
}

// Delete removes a category owned by the CA. Fee records keep their rows; the
// category reference is cleared.
func (h *CategoryHandler) Delete(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	category, errLoad := h.ownedCategory(c, account.ID)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errClear := tx.Model(&models.FeeRecord{}).
			Where("fee_category_id = ?", category.ID).
			Update("fee_category_id", nil).Error; errClear != nil {
			return errClear
		}
		return tx.Delete(category).Error
	})
	if errTx != nil {
		fail(c, apierror.Server("delete category", errTx))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "category deleted successfully",
	})
}

func (h *CategoryHandler) ownedCategory(c *gin.Context, caID uint64) (*models.FeeCategory, *apierror.Error) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		return nil, apierror.Validation("invalid category id")
	}
	var category models.FeeCategory
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, caID).
		First(&category).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("category not found")
		}
		return nil, apierror.Server("load category", errFind)
	}
	return &category, nil
}
