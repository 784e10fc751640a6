package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// Capturer 是 *capture.Service 在接口层用到的部分。
type Capturer interface {
	Capture(ctx context.Context, markup string) ([]byte, error)
}

// PreviewHandler 渲染未保存的文档：实时预览、截图导出，以及模板与分区目录。
type PreviewHandler struct {
	renderer *render.Renderer
	capture  Capturer
}

func NewPreviewHandler(renderer *render.Renderer, capture Capturer) *PreviewHandler {
	return &PreviewHandler{renderer: renderer, capture: capture}
}

type variantResponse struct {
	render.VariantInfo
	Default bool `json:"default"`
}

type sectionCatalogResponse struct {
	Sections []section.Config `json:"sections"`
	Default  []string         `json:"default_order"`
	Custom   []string         `json:"custom"`
}

// Preview 返回文档渲染后的 HTML。?template= 覆盖文档中的模板编号。
func (h *PreviewHandler) Preview(c *gin.Context) {
	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}
	html, err := h.renderer.Render(doc, render.Options{ImageURL: c.Query("image_url")})
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview failed", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// CapturePDF 截取渲染结果并封装为单页 A4 PDF。
func (h *PreviewHandler) CapturePDF(c *gin.Context) {
	if h.capture == nil {
		Error(c, http.StatusServiceUnavailable, "capture is not configured")
		return
	}
	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}
	html, err := h.renderer.Render(doc, render.Options{ImageURL: c.Query("image_url")})
	if err != nil {
		Internal(c, "failed to render preview")
		return
	}

	data, err := h.capture.Capture(c.Request.Context(), string(html))
	if err != nil {
		middleware.LoggerFromContext(c).Error("capture preview failed",
			slog.String("kind", pdf.FailureKind(err)),
			slog.Any("error", err),
		)
		ExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename(doc.Data.Personal.Name)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}

// ListTemplates 返回全部模板的元数据。
func (h *PreviewHandler) ListTemplates(c *gin.Context) {
	infos := render.Variants()
	out := make([]variantResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, variantResponse{VariantInfo: info, Default: info.ID == int(render.Basic)})
	}
	c.JSON(http.StatusOK, out)
}

// ListSections 返回分区目录与默认顺序。
func (h *PreviewHandler) ListSections(c *gin.Context) {
	c.JSON(http.StatusOK, sectionCatalogResponse{
		Sections: section.Catalog(),
		Default:  section.Keys(section.DefaultLayout().Order),
		Custom:   section.Keys(section.CustomKinds()),
	})
}

func (h *PreviewHandler) bindDocument(c *gin.Context) (resume.Document, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return resume.Document{}, false
	}
	if len(raw) > maxDocumentBytes {
		Error(c, http.StatusRequestEntityTooLarge, "document too large")
		return resume.Document{}, false
	}
	apply, err := documentOverlay(raw)
	if err != nil {
		writeInputError(c, err)
		return resume.Document{}, false
	}
	doc, err := apply(resume.NewDocument())
	if err != nil {
		writeInputError(c, err)
		return resume.Document{}, false
	}
	if v := c.Query("template"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "invalid template")
			return resume.Document{}, false
		}
		doc.Template = n
	}
	return doc.Normalize(), true
}
