package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/ratelimit"
	"github.com/sidpg123/filemate-be/internal/security"
)

// AuthHandler serves registration, login, and token refresh.
type AuthHandler struct {
	db      *gorm.DB
	issuer  *security.TokenIssuer
	limiter *ratelimit.Manager
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, issuer *security.TokenIssuer, limiter *ratelimit.Manager) *AuthHandler {
	return &AuthHandler{db: db, issuer: issuer, limiter: limiter}
}

type registerRequest struct {
	Name     string `json:"name"`     // Display name.
	Email    string `json:"email"`    // Login email.
	Password string `json:"password"` // Plaintext password.
}

// Register creates a CA account with the free tier's storage allocation.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Name == "" || body.Email == "" || body.Password == "" {
		fail(c, apierror.Validation("name, email, and password are required"))
		return
	}
	if _, errAddr := mail.ParseAddress(body.Email); errAddr != nil {
		fail(c, apierror.Validation("invalid email address"))
		return
	}
	if len(body.Password) < 8 {
		fail(c, apierror.Validation("password must be at least 8 characters"))
		return
	}

	var existing models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", body.Email).First(&existing).Error
	if errFind == nil {
		fail(c, apierror.Conflict("user with this email already exists"))
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		fail(c, apierror.Server("check existing user", errFind))
		return
	}

	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		fail(c, apierror.Server("hash password", errHash))
		return
	}

	user := models.User{
		Name:     body.Name,
		Email:    body.Email,
		Password: hashed,
	}
	// New accounts start on the free tier's allocation.
	var freePlan models.Plan
	if errPlan := h.db.WithContext(c.Request.Context()).Where("name = ?", "free").First(&freePlan).Error; errPlan == nil {
		user.AllocatedStorage = freePlan.StorageGrant
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		fail(c, apierror.Server("create user", errCreate))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "user registered successfully",
	})
}

type loginRequest struct {
	Email    string `json:"email"`    // Login email.
	Password string `json:"password"` // Plaintext password.
}

// Login authenticates a CA or client by email and password. Attempts are
// rate limited per caller IP and email pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" || body.Password == "" {
		fail(c, apierror.Validation("email and password are required"))
		return
	}

	key := ratelimit.LoginKey(c.ClientIP(), body.Email)
	result, errLimit := h.limiter.AllowLogin(c.Request.Context(), key)
	if errLimit != nil {
		fail(c, apierror.Server("rate limit check", errLimit))
		return
	}
	if !result.Allowed {
		retryAfter := int(time.Until(result.Reset).Seconds())
		if retryAfter <= 0 {
			retryAfter = 1
		}
		fail(c, apierror.RateLimited(retryAfter))
		return
	}

	account, name, hashed, errLookup := h.lookupByEmail(c, body.Email)
	if errLookup != nil {
		fail(c, errLookup)
		return
	}
	if !security.CheckPassword(hashed, body.Password) {
		fail(c, apierror.Authentication(apierror.CodeBadCredentials, "invalid credentials"))
		return
	}
	if !account.IsActive {
		fail(c, apierror.Authentication(apierror.CodeAccountInactive, "account is deactivated"))
		return
	}

	h.respondWithTokens(c, account, name, body.Email)
}

type googleLoginRequest struct {
	Email string `json:"email"` // Verified email from the OAuth provider.
	Name  string `json:"name"`  // Display name from the OAuth provider.
}

// GoogleLogin signs in an existing CA or client by a provider-verified email.
// Unknown emails are rejected; accounts are never auto-created here.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var body googleLoginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		fail(c, apierror.Validation("invalid json"))
		return
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" {
		fail(c, apierror.Validation("email is required"))
		return
	}

	account, name, _, errLookup := h.lookupByEmail(c, body.Email)
	if errLookup != nil {
		fail(c, errLookup)
		return
	}
	if !account.IsActive {
		fail(c, apierror.Authentication(apierror.CodeAccountInactive, "account is deactivated"))
		return
	}
	h.respondWithTokens(c, account, name, body.Email)
}

// Refresh exchanges a valid refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		fail(c, apierror.Authentication(apierror.CodeMissingToken, "refresh token missing"))
		return
	}

	claims, errParse := h.issuer.ParseRefresh(raw)
	switch {
	case errors.Is(errParse, security.ErrTokenExpired):
		fail(c, apierror.Authentication(apierror.CodeTokenExpired, "refresh token expired"))
		return
	case errParse != nil:
		fail(c, apierror.Authentication(apierror.CodeInvalidToken, "refresh token invalid"))
		return
	}
	id, errID := claims.AccountID()
	if errID != nil {
		fail(c, apierror.Authentication(apierror.CodeInvalidToken, "refresh token invalid"))
		return
	}

	account, name, email, errLoad := h.loadAccount(c, id, claims.Role)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}
	if !account.IsActive {
		fail(c, apierror.Authentication(apierror.CodeAccountInactive, "account is deactivated"))
		return
	}
	h.respondWithTokens(c, account, name, email)
}

// Me returns the profile of the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	_, name, email, errLoad := h.loadAccount(c, account.ID, account.Role)
	if errLoad != nil {
		fail(c, errLoad)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":    account.ID,
			"name":  name,
			"email": email,
			"role":  account.Role,
		},
	})
}

// lookupByEmail searches users first, then clients, mirroring the one email
// namespace both tables share for login.
func (h *AuthHandler) lookupByEmail(c *gin.Context, email string) (models.Account, string, string, *apierror.Error) {
	var user models.User
	errUser := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if errUser == nil {
		return user.Account(), user.Name, user.Password, nil
	}
	if !errors.Is(errUser, gorm.ErrRecordNotFound) {
		return models.Account{}, "", "", apierror.Server("lookup user", errUser)
	}

	var client models.Client
	errClient := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&client).Error
	if errClient == nil {
		return client.Account(), client.Name, client.Password, nil
	}
	if !errors.Is(errClient, gorm.ErrRecordNotFound) {
		return models.Account{}, "", "", apierror.Server("lookup client", errClient)
	}
	return models.Account{}, "", "", apierror.Authentication(apierror.CodeBadCredentials, "invalid credentials")
}

func (h *AuthHandler) loadAccount(c *gin.Context, id uint64, role models.Role) (models.Account, string, string, *apierror.Error) {
	switch role {
	case models.RoleCA:
		var user models.User
		if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return models.Account{}, "", "", apierror.NotFound("user not found")
			}
			return models.Account{}, "", "", apierror.Server("load user", errFind)
		}
		return user.Account(), user.Name, user.Email, nil
	case models.RoleClient:
		var client models.Client
		if errFind := h.db.WithContext(c.Request.Context()).First(&client, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return models.Account{}, "", "", apierror.NotFound("client not found")
			}
			return models.Account{}, "", "", apierror.Server("load client", errFind)
		}
		return client.Account(), client.Name, client.Email, nil
	default:
		return models.Account{}, "", "", apierror.Authentication(apierror.CodeInvalidToken, "unknown role")
	}
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, account models.Account, name, email string) {
	accessToken, errAccess := h.issuer.IssueAccess(account)
	if errAccess != nil {
		fail(c, apierror.Server("issue access token", errAccess))
		return
	}
	refreshToken, errRefresh := h.issuer.IssueRefresh(account)
	if errRefresh != nil {
		fail(c, apierror.Server("issue refresh token", errRefresh))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "logged in successfully",
		"user": gin.H{
			"id":    account.ID,
			"name":  name,
			"email": email,
			"role":  account.Role,
		},
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}
