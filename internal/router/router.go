package router

import (
	"net/http"

	"growjournal/internal/config"
	"growjournal/internal/db"
	"growjournal/internal/handlers"
	"growjournal/internal/middleware"
	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

// Deps are the long-lived services shared by every handler.
type Deps struct {
	Config   *config.Config
	Stats    services.Scheduler
	Mailer   services.Mailer
	Host     services.ImageHost
	Signer   handlers.UploadSigner
	Tokens   *services.TokenService
	Resolver *services.URLResolver
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	cfg := deps.Config
	siteURL := cfg.Server.SiteURL

	images := services.NewImageService(deps.Host)

	// Handlers
	authHandler := handlers.NewAuthHandler(
		services.NewAuthService(deps.Mailer, siteURL),
		deps.Tokens,
		handlers.NewGoogleOAuthConfig(cfg),
		siteURL,
	)
	reportHandler := handlers.NewReportHandler(services.NewReportService(deps.Stats), images)
	postHandler := handlers.NewPostHandler(services.NewPostService(deps.Stats), images)
	commentHandler := handlers.NewCommentHandler(services.NewCommentService(deps.Stats).WithMailer(deps.Mailer, siteURL))
	likeHandler := handlers.NewLikeHandler(services.NewLikeService(deps.Stats))
	notificationHandler := handlers.NewNotificationHandler(services.NewNotificationService())
	imageHandler := handlers.NewImageHandler(images, deps.Signer)
	resolveHandler := handlers.NewResolveHandler(deps.Resolver)
	strainHandler := handlers.NewStrainHandler(services.NewStrainService())
	userHandler := handlers.NewUserHandler(services.NewUserService())
	seoHandler := handlers.NewSEOHandler(siteURL)

	r.GET("/healthz", healthz)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	api := r.Group("/api")

	// Public routes
	api.POST("/auth/email", authHandler.RequestEmail)
	api.GET("/auth/email/callback", authHandler.EmailCallback)
	api.GET("/auth/google", authHandler.GoogleLogin)
	api.GET("/auth/google/callback", authHandler.GoogleCallback)
	api.GET("/auth/session", authHandler.Session)
	api.POST("/auth/logout", authHandler.Logout)

	api.GET("/reports", reportHandler.List)
	api.GET("/reports/:id", reportHandler.Get)
	api.GET("/posts/:id", postHandler.Get)
	api.GET("/posts/:id/comments", commentHandler.List)
	api.GET("/strains", strainHandler.List)
	api.GET("/strains/:id", strainHandler.Get)
	api.GET("/users/:id", userHandler.Profile)

	// Signed-in routes
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/auth/token", authHandler.Token)

		authorized.POST("/reports", reportHandler.Create)
		authorized.PATCH("/reports/:id", reportHandler.Update)
		authorized.DELETE("/reports/:id", reportHandler.Delete)

		authorized.POST("/reports/:id/posts", postHandler.Create)
		authorized.PATCH("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)

		authorized.POST("/posts/:id/comments", commentHandler.Create)
		authorized.DELETE("/comments/:id", commentHandler.Delete)

		authorized.POST("/likes/:type/:id", likeHandler.Toggle)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)

		authorized.POST("/upload", imageHandler.Upload)
		authorized.GET("/cloudinary-signature", imageHandler.Signature)
		authorized.DELETE("/images/:id", imageHandler.Delete)
		authorized.GET("/resolve-amazon-url", resolveHandler.AmazonURL)

		authorized.GET("/me", userHandler.Me)
		authorized.PATCH("/me", userHandler.UpdateMe)
	}

	// Admin routes
	admin := api.Group("")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/strains", strainHandler.Create)
	}
}

func healthz(c *gin.Context) {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
