package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/store"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// ValidationFailed 返回 400，附带缺失或非法的字段。
func ValidationFailed(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "code": errcode.Validation}
	var verr *resume.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	c.JSON(http.StatusBadRequest, body)
}

// ExportError 把导出失败转换为结构化响应，调用方据 retryable 决定是否重试。
func ExportError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "resume not found")
		return
	}
	code := pdf.ErrorCode(err)
	msg := "export failed"
	switch code {
	case errcode.RenderTimeout:
		msg = "render timed out"
	case errcode.EmptyOutput:
		msg = "export produced no usable pdf"
	case errcode.BrowserUnavailable:
		msg = "browser unavailable"
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     msg,
		"code":      code,
		"retryable": errcode.Retryable(code),
	})
}
