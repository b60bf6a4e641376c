package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quietcircle/community/config"
	"github.com/quietcircle/community/controllers"
	"github.com/quietcircle/community/middleware"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *services.Registry) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file, separate from the application log
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(utils.RecoveryWithZap(utils.Logger, false))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(svc.Accounts, cfg.RegisterCaptchaEnabled)
	postController := controllers.NewPostController(svc.Posts, svc.Supports, svc.Comments,
		time.Duration(cfg.FeedCacheSeconds)*time.Second)
	communityController := controllers.NewCommunityController(svc.Identity, svc.Tags)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	community := api.Group("/community")
	community.GET("/tags", communityController.Tags)
	community.GET("/posts", postController.Feed)
	community.GET("/posts/:id", postController.GetPost)
	community.GET("/posts/:id/comments", postController.ListComments)

	protected := community.Group("")
	protected.Use(middleware.AuthRequired(), limiter.Middleware())
	protected.POST("/persona", communityController.Persona)
	protected.POST("/posts", postController.CreatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/support", postController.Support)
	protected.DELETE("/posts/:id/support", postController.Unsupport)
	protected.POST("/posts/:id/comments", postController.CreateComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
