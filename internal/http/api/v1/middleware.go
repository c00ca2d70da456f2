package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/http/api/v1/handlers"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/security"
)

// ErrorTranslator converts errors attached to the context into the JSON error
// envelope. Unexpected errors are redacted unless debug mode is on.
func ErrorTranslator(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *apierror.Error
		if !errors.As(err, &apiErr) {
			apiErr = apierror.Server("internal server error", err)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		message := apiErr.Message
		if apiErr.Status >= http.StatusInternalServerError && !debug {
			message = "internal server error"
		}
		if apiErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(apiErr.RetryAfter))
		}
		c.JSON(apiErr.Status, gin.H{
			"success":   false,
			"error":     apiErr.Code,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// CORS allows the configured frontend origin. An empty origin allows any,
// which only makes sense in development.
func CORS(frontendURL string) gin.HandlerFunc {
	origin := strings.TrimSuffix(strings.TrimSpace(frontendURL), "/")
	return func(c *gin.Context) {
		allowed := origin
		if allowed == "" {
			allowed = "*"
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if origin != "" {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Auth verifies the Bearer access token and resolves it against the users or
// clients table, depending on the role claim. Deactivated accounts are
// rejected even when their token is still valid.
func Auth(db *gorm.DB, issuer *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortWith(c, apierror.Authentication(apierror.CodeMissingToken, "authorization header missing"))
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims, errParse := issuer.ParseAccess(raw)
		switch {
		case errors.Is(errParse, security.ErrTokenExpired):
			abortWith(c, apierror.Authentication(apierror.CodeTokenExpired, "access token expired"))
			return
		case errParse != nil:
			abortWith(c, apierror.Authentication(apierror.CodeInvalidToken, "access token invalid"))
			return
		}
		id, errID := claims.AccountID()
		if errID != nil {
			abortWith(c, apierror.Authentication(apierror.CodeInvalidToken, "access token invalid"))
			return
		}

		account, errResolve := resolveAccount(c, db, id, claims.Role)
		if errResolve != nil {
			abortWith(c, errResolve)
			return
		}
		c.Set(handlers.AccountKey, account)
		c.Next()
	}
}

func resolveAccount(c *gin.Context, db *gorm.DB, id uint64, role models.Role) (models.Account, *apierror.Error) {
	switch role {
	case models.RoleCA:
		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return models.Account{}, apierror.Authentication(apierror.CodeInvalidToken, "account no longer exists")
			}
			return models.Account{}, apierror.Server("load account", errFind)
		}
		account := user.Account()
		if !account.IsActive {
			return models.Account{}, apierror.Authentication(apierror.CodeAccountInactive, "account is deactivated")
		}
		return account, nil
	case models.RoleClient:
		var client models.Client
		if errFind := db.WithContext(c.Request.Context()).First(&client, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return models.Account{}, apierror.Authentication(apierror.CodeInvalidToken, "account no longer exists")
			}
			return models.Account{}, apierror.Server("load account", errFind)
		}
		account := client.Account()
		if !account.IsActive {
			return models.Account{}, apierror.Authentication(apierror.CodeAccountInactive, "account is deactivated")
		}
		return account, nil
	default:
		return models.Account{}, apierror.Authentication(apierror.CodeInvalidToken, "access token invalid")
	}
}

// RequireRole rejects accounts whose role does not match.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := handlers.AccountFrom(c)
		if !ok {
			abortWith(c, apierror.Authentication(apierror.CodeMissingToken, "authorization required"))
			return
		}
		if account.Role != role {
			abortWith(c, apierror.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err *apierror.Error) {
	_ = c.Error(err)
	c.Abort()
}
