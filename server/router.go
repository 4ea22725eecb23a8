package server

import (
	"net/http"
	"time"

	"social-publisher/infrastructure/metrics"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options carries the router's configuration. Nil handlers leave their routes
// unregistered.
type Options struct {
	SecretKey      string
	AllowedOrigins []string
	Metrics        http.Handler
	MetricsPath    string
}

func InitiateRouter(
	oauthHandler httpHandler.IOAuthHandler,
	postHandler httpHandler.IPostHandler,
	publishHandler httpHandler.IPublishHandler,
	healthHandler httpHandler.IHealthHandler,
	stream gin.HandlerFunc,
	opts Options,
) *gin.Engine {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:4200"}
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	if healthHandler != nil {
		router.GET("/healthz", healthHandler.Healthz)
	}
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.Metrics))
	}

	api := router.Group("api")
	api.Use(middleware.Auth(opts.SecretKey))

	if oauthHandler != nil {
		router.GET("/auth/:platform/callback", oauthHandler.Callback)

		api.GET("/oauth/platforms", oauthHandler.ListPlatforms)
		api.GET("/oauth/:platform/authorize", oauthHandler.Authorize)
		api.POST("/oauth/connections/:connectionId/refresh", oauthHandler.RefreshConnection)
		api.GET("/connections", oauthHandler.ListConnections)
	}

	if postHandler != nil {
		posts := api.Group("/posts")
		{
			posts.POST("", postHandler.CreatePost)
			posts.POST("/:postId/schedule", postHandler.SchedulePost)
			posts.POST("/:postId/retry", postHandler.RetryPost)
			posts.GET("/:postId/attempts", postHandler.ListAttempts)
		}
	}

	if publishHandler != nil {
		api.POST("/publish", publishHandler.Publish)
		api.GET("/publish-status", publishHandler.PublishStatus)
		api.GET("/queue/stats", publishHandler.QueueStats)
	}
	if stream != nil {
		api.GET("/publish/stream", stream)
	}

	return router
}
