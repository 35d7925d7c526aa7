package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"a2ui-backend/internal/config"
)

// NewRouter 组装中间件与路由
func NewRouter(cfg *config.Config, chatHandler *ChatHandler, metaHandler *MetaHandler) *gin.Engine {
	router := gin.New()

	router.Use(RequestID())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(Metrics())
	router.Use(SecurityHeaders())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.Use(BodyLimit(cfg.Security.MaxRequestBytes))
	router.Use(APIKey(cfg.Security.APIKey))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	var chatLimit, defaultLimit *RateLimiter
	if cfg.RateLimit.Enabled {
		chatLimit = NewRateLimiter(cfg.RateLimit.ChatPerMinute)
		defaultLimit = NewRateLimiter(cfg.RateLimit.DefaultPerMinute)
	}

	// API路由
	api := router.Group("/api")
	{
		limited := defaultLimit.Middleware()
		api.GET("", limited, metaHandler.Welcome)
		api.GET("/providers", limited, metaHandler.Providers)
		api.GET("/styles", limited, metaHandler.Styles)
		api.GET("/tools", limited, metaHandler.Tools)
		api.GET("/data-sources", limited, metaHandler.DataSources)

		api.POST("/chat", chatLimit.Middleware(), chatHandler.Chat)
	}

	return router
}
