package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	ImagePrefix  = "resume-images/"
	ExportPrefix = "exports/"

	// MaxInlineImageBytes 限制导出时内联的单张图片大小。
	MaxInlineImageBytes int64 = 5 << 20
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ImageKey 为上传的头像生成对象键。
func ImageKey(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return ImagePrefix + uuid.NewString() + ext
}

// ExportKey 为一次导出生成 PDF 对象键。
func ExportKey(resumeID uint) string {
	return fmt.Sprintf("%s%d/%s.pdf", ExportPrefix, resumeID, uuid.NewString())
}

// PreviewKey 返回简历缩略图的固定对象键。
func PreviewKey(resumeID uint) string {
	return fmt.Sprintf("%s%d/preview.jpg", ExportPrefix, resumeID)
}

// ExportsPrefix 返回某份简历全部导出文件的前缀。
func ExportsPrefix(resumeID uint) string {
	return fmt.Sprintf("%s%d/", ExportPrefix, resumeID)
}

// IsValidImageKey 只接受本服务生成的头像键。
func IsValidImageKey(key string) bool {
	if key == "" || len(key) > 200 || !utf8.ValidString(key) {
		return false
	}
	if !strings.HasPrefix(key, ImagePrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	_, ok := imageTypes[strings.ToLower(path.Ext(key))]
	return ok
}

// ExtForContentType 返回图片 MIME 对应的扩展名，不支持的类型返回 false。
func ExtForContentType(contentType string) (string, bool) {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch contentType {
	case "image/png":
		return ".png", true
	case "image/jpeg", "image/jpg":
		return ".jpg", true
	case "image/webp":
		return ".webp", true
	case "image/gif":
		return ".gif", true
	}
	return "", false
}

// ContentTypeForKey 根据扩展名推断图片 MIME。
func ContentTypeForKey(key string) string {
	if ct, ok := imageTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
