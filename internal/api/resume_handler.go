package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/store"
)

const imageURLTTL = 15 * time.Minute

var errInvalidResumeID = errors.New("invalid resume id")

// ResumeHandler 负责简历记录的增删改查。
type ResumeHandler struct {
	store    store.ResumeStore
	images   ImageStore
	uploader *imageUploader
}

// NewResumeHandler 构造 ResumeHandler；images 为 nil 时不接受图片上传。
func NewResumeHandler(st store.ResumeStore, images ImageStore, scanner Scanner, maxImageBytes int64) *ResumeHandler {
	return &ResumeHandler{
		store:    st,
		images:   images,
		uploader: &imageUploader{store: images, scanner: scanner, maxBytes: maxImageBytes},
	}
}

type resumeResponse struct {
	ID         uint            `json:"id"`
	Document   resume.Document `json:"document"`
	ImageURL   string          `json:"image_url,omitempty"`
	PreviewURL string          `json:"preview_url,omitempty"`
	HasPDF     bool            `json:"has_pdf"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type resumeListItem struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Template  int       `json:"template"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateResume 校验必填项后保存一份新简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	in, err := parseResumeInput(c)
	if err != nil {
		writeInputError(c, err)
		return
	}
	doc, err := in.apply(resume.NewDocument())
	if err != nil {
		writeInputError(c, err)
		return
	}
	doc = doc.Normalize()
	if err := doc.Data.ValidateForCreate(); err != nil {
		ValidationFailed(c, err)
		return
	}

	rec := &resume.Record{Document: doc}
	if in.imageURL != nil {
		rec.ImageURL = strings.TrimSpace(*in.imageURL)
	}
	if in.image != nil {
		key, err := h.uploader.upload(ctx, in.image)
		if err != nil {
			h.writeUploadError(c, log, err)
			return
		}
		rec.ImageKey = key
		rec.ImageURL = ""
	}

	if err := h.store.Set(ctx, rec); err != nil {
		log.Error("create resume failed", slog.Any("error", err))
		if rec.ImageKey != "" {
			h.deleteImage(ctx, log, rec.ImageKey)
		}
		Internal(c, "failed to create resume")
		return
	}

	c.JSON(http.StatusCreated, h.newResumeResponse(ctx, log, rec))
}

// GetResume 返回指定简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	rec, ok := h.loadResume(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.newResumeResponse(c.Request.Context(), middleware.LoggerFromContext(c), rec))
}

// ListResumes 按创建时间倒序列出全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list resumes failed", slog.Any("error", err))
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(records))
	for _, r := range records {
		items = append(items, resumeListItem{
			ID:        r.ID,
			Name:      r.Document.Data.Personal.Name,
			Title:     r.Document.Data.Personal.Title,
			Template:  r.Document.Template,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// UpdateResume 用请求中出现的字段覆盖已有简历，然后整体写回。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	rec, ok := h.loadResume(c)
	if !ok {
		return
	}

	in, err := parseResumeInput(c)
	if err != nil {
		writeInputError(c, err)
		return
	}
	doc, err := in.apply(rec.Document)
	if err != nil {
		writeInputError(c, err)
		return
	}
	rec.Document = doc.Normalize()

	staleImage := ""
	if in.imageURL != nil {
		rec.ImageURL = strings.TrimSpace(*in.imageURL)
	}
	if in.removeImage {
		staleImage, rec.ImageKey, rec.ImageURL = rec.ImageKey, "", ""
	}
	if in.image != nil {
		key, err := h.uploader.upload(ctx, in.image)
		if err != nil {
			h.writeUploadError(c, log, err)
			return
		}
		if staleImage == "" {
			staleImage = rec.ImageKey
		}
		rec.ImageKey = key
		rec.ImageURL = ""
	}

	if err := h.store.Set(ctx, rec); err != nil {
		if in.image != nil {
			h.deleteImage(ctx, log, rec.ImageKey)
		}
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		log.Error("update resume failed", slog.Any("error", err))
		Internal(c, "failed to update resume")
		return
	}
	if staleImage != "" && staleImage != rec.ImageKey {
		h.deleteImage(ctx, log, staleImage)
	}

	c.JSON(http.StatusOK, h.newResumeResponse(ctx, log, rec))
}

// DeleteResume 删除简历；图片与导出文件尽力清理，失败只记录日志。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	rec, ok := h.loadResume(c)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		log.Error("delete resume failed", slog.Any("error", err))
		Internal(c, "failed to delete resume")
		return
	}

	if rec.ImageKey != "" {
		h.deleteImage(ctx, log, rec.ImageKey)
	}
	if h.images != nil {
		if err := h.images.DeletePrefix(ctx, storage.ExportsPrefix(rec.ID)); err != nil {
			log.Warn("delete resume exports failed", slog.Uint64("resume_id", uint64(rec.ID)), slog.Any("error", err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": rec.ID, "deleted": true})
}

// loadResume 解析路径参数并读取记录，失败时已写好响应。
func (h *ResumeHandler) loadResume(c *gin.Context) (*resume.Record, bool) {
	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("query resume failed", slog.Any("error", err))
		Internal(c, "failed to query resume")
		return nil, false
	}
	return rec, true
}

func (h *ResumeHandler) writeUploadError(c *gin.Context, log *slog.Logger, err error) {
	if status, ok := statusFromImageError(err); ok {
		Error(c, status, err.Error())
		return
	}
	log.Error("upload resume image failed", slog.Any("error", err))
	Internal(c, "failed to upload image")
}

func (h *ResumeHandler) deleteImage(ctx context.Context, log *slog.Logger, key string) {
	if h.images == nil {
		return
	}
	if err := h.images.Delete(ctx, key); err != nil {
		log.Warn("delete resume image failed", slog.String("object_key", key), slog.Any("error", err))
	}
}

func (h *ResumeHandler) newResumeResponse(ctx context.Context, log *slog.Logger, rec *resume.Record) resumeResponse {
	resp := resumeResponse{
		ID:        rec.ID,
		Document:  rec.Document,
		ImageURL:  rec.ImageURL,
		HasPDF:    rec.PDFKey != "",
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if h.images == nil {
		return resp
	}
	if rec.ImageKey != "" {
		if u, err := h.images.PresignedURL(ctx, rec.ImageKey, imageURLTTL, ""); err == nil {
			resp.ImageURL = u
		} else {
			log.Warn("sign image url failed", slog.String("object_key", rec.ImageKey), slog.Any("error", err))
		}
	}
	if rec.PreviewKey != "" {
		if u, err := h.images.PresignedURL(ctx, rec.PreviewKey, imageURLTTL, ""); err == nil {
			resp.PreviewURL = u
		}
	}
	return resp
}

func parseResumeID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidResumeID
	}
	return uint(id), nil
}
