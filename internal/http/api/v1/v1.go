// Package v1 wires the HTTP API: routes, auth middleware, and the error
// envelope shared by every handler.
package v1

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/http/api/v1/handlers"
	"github.com/sidpg123/filemate-be/internal/models"
	"github.com/sidpg123/filemate-be/internal/payment"
	"github.com/sidpg123/filemate-be/internal/quota"
	"github.com/sidpg123/filemate-be/internal/ratelimit"
	"github.com/sidpg123/filemate-be/internal/security"
)

// Deps carries everything the route tree needs.
type Deps struct {
	DB      *gorm.DB
	Issuer  *security.TokenIssuer
	Limiter *ratelimit.Manager
	Ledger  *quota.Ledger
	Gateway *payment.Gateway
	Store   handlers.ObjectStore
	CDN     handlers.CDNSigner

	FrontendURL string
	Debug       bool
}

// RegisterRoutes registers all v1 routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	r.Use(CORS(deps.FrontendURL))
	r.Use(ErrorTranslator(deps.Debug))

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Issuer, deps.Limiter)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/google-login", authHandler.GoogleLogin)
	api.POST("/auth/refresh", authHandler.Refresh)

	paymentHandler := handlers.NewPaymentHandler(deps.DB, deps.Ledger, deps.Gateway)
	// The gateway calls back without a session token.
	api.POST("/paymentverification", paymentHandler.Verify)

	authed := api.Group("")
	authed.Use(Auth(deps.DB, deps.Issuer))
	authed.GET("/auth/me", authHandler.Me)

	ca := authed.Group("")
	ca.Use(RequireRole(models.RoleCA))

	clientHandler := handlers.NewClientHandler(deps.DB)
	ca.GET("/clients", clientHandler.List)
	ca.POST("/clients", clientHandler.Create)
	ca.GET("/clients/:id", clientHandler.Get)
	ca.PUT("/clients/:id", clientHandler.Update)
	ca.DELETE("/clients/:id", clientHandler.Delete)

	feeHandler := handlers.NewFeeHandler(deps.DB)
	ca.GET("/clients/:id/fees", feeHandler.List)
	ca.POST("/clients/:id/fees", feeHandler.Create)
	ca.PUT("/clients/:id/fees/:feeId", feeHandler.Update)
	ca.DELETE("/clients/:id/fees/:feeId", feeHandler.Delete)
	ca.GET("/clients/:id/fees/statistics", feeHandler.Statistics)

	categoryHandler := handlers.NewCategoryHandler(deps.DB)
	ca.GET("/fee-categories", categoryHandler.List)
	ca.POST("/fee-categories", categoryHandler.Create)
	ca.PUT("/fee-categories/:id", categoryHandler.Update)
	ca.DELETE("/fee-categories/:id", categoryHandler.Delete)

	documentHandler := handlers.NewDocumentHandler(deps.DB, deps.Ledger, deps.Store, deps.CDN)
	ca.GET("/clients/:id/documents", documentHandler.ListForClient)
	ca.POST("/clients/:id/documents", documentHandler.RegisterForClient)
	ca.GET("/user/documents", documentHandler.ListForUser)
	ca.POST("/user/documents", documentHandler.RegisterForUser)
	ca.POST("/storage/delete-file", documentHandler.Delete)

	storageHandler := handlers.NewStorageHandler(deps.DB, deps.Ledger, deps.Store)
	ca.POST("/storage/upload-url", storageHandler.UploadURL)
	ca.POST("/storage/download-url", storageHandler.DownloadURL)

	userHandler := handlers.NewUserHandler(deps.DB, deps.Ledger)
	ca.GET("/user/info", userHandler.Info)

	ca.GET("/payments/key", paymentHandler.Key)
	ca.GET("/payments/plans", paymentHandler.Plans)
	ca.POST("/payments/checkout", paymentHandler.Checkout)
	ca.GET("/payments/subscription", paymentHandler.Subscription)
	ca.GET("/payments/subscription/status", paymentHandler.Status)

	portal := authed.Group("/client-dashboard")
	portal.Use(RequireRole(models.RoleClient))

	dashboardHandler := handlers.NewDashboardHandler(deps.DB, documentHandler)
	portal.GET("/documents", dashboardHandler.Documents)
	portal.GET("/fees", dashboardHandler.Fees)
	portal.GET("/fees/pending-total", dashboardHandler.PendingTotal)
}
