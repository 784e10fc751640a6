package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dutchcoders/go-clamd"

	"resumeStudio/internal/storage"
)

// ImageStore 是 *storage.Client 在接口层用到的部分。
type ImageStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignedURL(ctx context.Context, objectKey string, ttl time.Duration, downloadName string) (string, error)
}

// Scanner 在上传前检查文件内容。
type Scanner interface {
	Scan(r io.Reader) error
}

var errMaliciousFile = errors.New("malicious file detected")

type clamdScanner struct {
	addr string
}

// NewClamdScanner 返回基于 clamd 的扫描器；地址为空时返回 nil，表示不扫描。
func NewClamdScanner(addr string) Scanner {
	if addr == "" {
		return nil
	}
	return &clamdScanner{addr: addr}
}

func (s *clamdScanner) Scan(r io.Reader) error {
	client := clamd.NewClamd(s.addr)
	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	infected := false
	for result := range results {
		if result.Status != clamd.RES_OK {
			infected = true
		}
	}
	if infected {
		return errMaliciousFile
	}
	return nil
}

// imageError 携带上传失败应返回的状态码。
type imageError struct {
	status int
	msg    string
}

func (e *imageError) Error() string {
	return e.msg
}

func statusFromImageError(err error) (int, bool) {
	var ie *imageError
	if errors.As(err, &ie) {
		return ie.status, true
	}
	return 0, false
}

type imageUploader struct {
	store    ImageStore
	scanner  Scanner
	maxBytes int64
}

// upload 校验并保存头像，返回对象键。类型按内容嗅探，不信任客户端声明的 Content-Type。
func (u *imageUploader) upload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if u.store == nil {
		return "", &imageError{status: http.StatusServiceUnavailable, msg: "image storage is not configured"}
	}
	if u.maxBytes > 0 && file.Size > u.maxBytes {
		return "", &imageError{status: http.StatusRequestEntityTooLarge, msg: "image too large"}
	}

	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	limit := u.maxBytes
	if limit <= 0 {
		limit = storage.MaxInlineImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", &imageError{status: http.StatusRequestEntityTooLarge, msg: "image too large"}
	}

	contentType := http.DetectContentType(data)
	ext, ok := storage.ExtForContentType(contentType)
	if !ok {
		return "", &imageError{status: http.StatusUnsupportedMediaType, msg: "unsupported image type"}
	}

	if u.scanner != nil {
		if err := u.scanner.Scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, errMaliciousFile) {
				return "", &imageError{status: http.StatusBadRequest, msg: err.Error()}
			}
			return "", fmt.Errorf("scan upload: %w", err)
		}
	}

	key := storage.ImageKey(ext)
	if err := u.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return key, nil
}
