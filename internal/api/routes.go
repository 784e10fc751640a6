package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/config"
	"resumeStudio/internal/render"
	"resumeStudio/internal/store"
)

// Deps 汇总路由需要的协作方。Images、Queue、Capture、RateCounter 与 Subscriber 可以为 nil，
// 对应功能返回 503 或直接关闭。
type Deps struct {
	Store       store.ResumeStore
	Renderer    *render.Renderer
	Exporter    Exporter
	Capture     Capturer
	Images      ImageStore
	Scanner     Scanner
	Queue       Enqueuer
	RateCounter RateCounter
	Subscriber  Subscriber
	Logger      *slog.Logger
	Config      config.APIConfig
}

// RegisterRoutes 注册业务路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, d Deps) {
	resumeHandler := NewResumeHandler(d.Store, d.Images, d.Scanner, d.Config.MaxImageBytes)
	exportHandler := NewExportHandler(d.Store, d.Exporter, d.Queue, d.Images)
	previewHandler := NewPreviewHandler(d.Renderer, d.Capture)
	sessionHandler := NewSessionHandler(d.Store, d.Subscriber, d.Logger, d.Config.EditDebounce, d.Config.AllowedOrigins)
	exportLimit := rateLimit(d.RateCounter, "export", d.Config.ExportRateLimitPerMinute, time.Minute)

	router.GET("/pdf-health", exportHandler.PDFHealth)

	v1 := router.Group("/v1")
	{
		resumeGroup := v1.Group("/resumes")
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.GET("/:id/preview", exportHandler.PreviewResume)
			resumeGroup.GET("/:id/pdf", exportLimit, exportHandler.DownloadPDF)
			resumeGroup.POST("/:id/pdf/jobs", exportLimit, exportHandler.EnqueueExport)
			resumeGroup.GET("/:id/pdf/link", exportHandler.GetDownloadLink)
			resumeGroup.GET("/:id/session", sessionHandler.HandleConnection)
		}

		previewGroup := v1.Group("/preview")
		{
			previewGroup.POST("", previewHandler.Preview)
			previewGroup.POST("/pdf", exportLimit, previewHandler.CapturePDF)
		}

		v1.GET("/templates", previewHandler.ListTemplates)
		v1.GET("/sections", previewHandler.ListSections)
	}
}
