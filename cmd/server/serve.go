package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growjournal/internal/config"
	"growjournal/internal/db"
	"growjournal/internal/handlers"
	"growjournal/internal/middleware"
	"growjournal/internal/router"
	"growjournal/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	sessionName     = "growjournal_session"
	sessionMaxAge   = 30 * 24 * 60 * 60
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func setupLogging(mode string) {
	if mode == gin.ReleaseMode {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.DebugLevel)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Server.Mode)
	gin.SetMode(cfg.Server.Mode)
	return cfg, nil
}

// newEngine builds the gin engine with the middleware stack and every route.
func newEngine(cfg *config.Config, deps router.Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AddAllowHeaders("Authorization", middleware.RequestIDHeader)
		corsConfig.AddExposeHeaders(middleware.RequestIDHeader)
		r.Use(cors.New(corsConfig))
	}

	store := cookie.NewStore([]byte(cfg.Auth.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.Server.Mode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(deps.Tokens))

	router.RegisterRoutes(r, deps)
	return r
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := db.Init(cfg.Database); err != nil {
		return err
	}
	if err := db.Migrate(db.DB); err != nil {
		return err
	}

	stats := services.GetStatsService()
	stats.StartScheduledRefresh()

	deps := router.Deps{
		Config:   cfg,
		Stats:    stats,
		Mailer:   services.NewMailService(cfg.Mail),
		Tokens:   services.NewTokenService(cfg.Auth.JWTSecret),
		Resolver: services.NewURLResolver(),
	}
	if cfg.Cloudinary.Enabled() {
		cloud := services.NewCloudinaryClient(cfg.Cloudinary)
		deps.Host = cloud
		deps.Signer = cloud
	} else {
		log.Warn("Cloudinary is not configured, image uploads are disabled")
	}
	if !cfg.Mail.Enabled() {
		log.Warn("SMTP is not configured, emails will not be sent")
	}
	if handlers.NewGoogleOAuthConfig(cfg) == nil {
		log.Info("Google sign in is disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           newEngine(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Grow Journal server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}

	// Flush pending counter updates before the database goes away.
	stats.Stop()
	if sqlDB, err := db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server exited")
	return nil
}
