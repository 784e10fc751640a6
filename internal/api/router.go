package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/config"
	"resumeStudio/internal/metrics"
)

// NewRouter 构建带有公共中间件的 Gin 引擎，并暴露存活检查与指标端点。
func NewRouter(cfg config.APIConfig, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.MetricsTokenMiddleware(cfg.MetricsToken), metrics.Handler())

	return router
}
