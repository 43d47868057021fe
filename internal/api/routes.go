package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"benchclub/internal/api/middleware"
	"benchclub/internal/auth"
	"benchclub/internal/config"
	"benchclub/internal/gamification"
	"benchclub/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	evaluator := gamification.NewEvaluator(db)

	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL(), cfg.API.CookieDomain)
	buildHandler := NewBuildHandler(db, evaluator, asynqClient)
	socialHandler := NewSocialHandler(db, evaluator, asynqClient)
	profileHandler := NewProfileHandler(db)
	benchmarkHandler := NewBenchmarkHandler(db)
	assetHandler := NewAssetHandler(storageClient, logger, cfg.Clamd.Addr)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOriginList())
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		// 公开浏览无需登录；详情页对未登录访客只露出已发布配置。
		v1.GET("/builds", buildHandler.Catalog)
		v1.GET("/builds/:id", buildHandler.Detail)
		v1.GET("/experts/:id", profileHandler.Expert)
		v1.GET("/leaderboard", profileHandler.Leaderboard)

		buildGroup := v1.Group("/builds")
		buildGroup.Use(authMiddleware)
		{
			buildGroup.GET("/mine", buildHandler.Mine)
			buildGroup.POST("", buildHandler.CreateBuild)
			buildGroup.PUT("/:id", buildHandler.UpdateBuild)
			buildGroup.DELETE("/:id", buildHandler.DeleteBuild)
			buildGroup.POST("/:id/comments", socialHandler.AddComment)
			buildGroup.PUT("/:id/rating", socialHandler.RateBuild)
		}

		v1.POST("/subscriptions/:user_id", authMiddleware, socialHandler.ToggleSubscription)

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.Overview)
			profileGroup.PUT("", profileHandler.Update)
		}

		benchmarkGroup := v1.Group("/benchmarks")
		benchmarkGroup.Use(authMiddleware)
		{
			benchmarkGroup.GET("", benchmarkHandler.List)
			benchmarkGroup.POST("", benchmarkHandler.Create)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
		}
	}
}
