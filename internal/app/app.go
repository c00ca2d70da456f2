// Package app boots the server: config, database, external clients, routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sidpg123/filemate-be/internal/config"
	"github.com/sidpg123/filemate-be/internal/db"
	v1 "github.com/sidpg123/filemate-be/internal/http/api/v1"
	"github.com/sidpg123/filemate-be/internal/payment"
	"github.com/sidpg123/filemate-be/internal/quota"
	"github.com/sidpg123/filemate-be/internal/ratelimit"
	"github.com/sidpg123/filemate-be/internal/security"
	"github.com/sidpg123/filemate-be/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations, then exits. Used by deploy
// pipelines that migrate before rolling instances.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server and blocks until the context is cancelled.
func RunServer(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	issuer := security.NewTokenIssuer(
		cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry,
	)
	limiter := ratelimit.NewManager(ratelimit.Settings{
		LoginLimit:    cfg.RateLimit.LoginLimit,
		LoginWindow:   cfg.RateLimit.LoginWindow,
		RedisEnabled:  cfg.Redis.Enabled,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Redis.Prefix,
	}, nil, nil)
	ledger := quota.NewLedger(conn)
	gateway := payment.NewGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)

	store, errStore := storage.NewS3Store(ctx, storage.S3Options{
		Region:    cfg.AWS.Region,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Bucket:    cfg.AWS.Bucket,
	})
	if errStore != nil {
		return errStore
	}

	cdnClient, errCDNClient := storage.NewCloudFrontClient(ctx, cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey)
	if errCDNClient != nil {
		return errCDNClient
	}
	cdn, errCDN := storage.NewCDNSigner(storage.CDNOptions{
		Domain:         cfg.AWS.CloudFrontDomain,
		KeyPairID:      cfg.AWS.CloudFrontKeyPairID,
		PrivateKeyPEM:  []byte(cfg.AWS.CloudFrontPrivateKey),
		DistributionID: cfg.AWS.CloudFrontDistributionID,
	}, cdnClient)
	if errCDN != nil {
		return errCDN
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1.RegisterRoutes(engine, v1.Deps{
		DB:          conn,
		Issuer:      issuer,
		Limiter:     limiter,
		Ledger:      ledger,
		Gateway:     gateway,
		Store:       store,
		CDN:         cdn,
		FrontendURL: cfg.Server.FrontendURL,
		Debug:       cfg.Server.Debug,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	log.Info("server stopped")
	return nil
}
