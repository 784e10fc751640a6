package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

const (
	maxDocumentBytes  = 1 << 20
	maxMultipartBytes = 16 << 20
)

// resumeInput 是创建或更新请求解析后的结果。
// apply 在基准文档上覆盖请求中出现的字段，未出现的字段保持不变。
type resumeInput struct {
	apply       func(base resume.Document) (resume.Document, error)
	image       *multipart.FileHeader
	imageURL    *string
	removeImage bool
}

// parseResumeInput 支持三种请求体：
//   - application/json：整份文档；
//   - multipart 中的 document 字段（整份文档 JSON）加可选 image 文件；
//   - 旧版 multipart：逐字段的标量与 JSON 字符串形式的集合。
func parseResumeInput(c *gin.Context) (*resumeInput, error) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if contentType != "" && contentType != "application/json" {
			return nil, &resume.ValidationError{Reason: fmt.Sprintf("unsupported content type %q", contentType)}
		}
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(raw) > maxDocumentBytes {
			return nil, &imageError{status: http.StatusRequestEntityTooLarge, msg: "document too large"}
		}
		apply, err := documentOverlay(raw)
		if err != nil {
			return nil, err
		}
		return &resumeInput{apply: apply}, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return nil, &resume.ValidationError{Reason: fmt.Sprintf("malformed multipart body: %v", err)}
	}

	in := &resumeInput{}
	if files := form.File["image"]; len(files) > 0 {
		in.image = files[0]
	}
	if v, ok := formValue(form, "image_url"); ok {
		in.imageURL = &v
	}
	if v, ok := formValue(form, "remove_image"); ok {
		in.removeImage, _ = strconv.ParseBool(v)
	}

	if raw, ok := formValue(form, "document"); ok {
		apply, err := documentOverlay([]byte(raw))
		if err != nil {
			return nil, err
		}
		in.apply = apply
		return in, nil
	}

	in.apply = func(base resume.Document) (resume.Document, error) {
		return applyLegacyFields(base, form)
	}
	return in, nil
}

// documentOverlay 校验文档 JSON 并返回覆盖函数。解码到基准文档的深拷贝上，
// 因此请求中缺席的键沿用原值。
func documentOverlay(raw []byte) (func(resume.Document) (resume.Document, error), error) {
	if err := resume.ValidateDocumentJSON(raw); err != nil {
		return nil, err
	}
	return func(base resume.Document) (resume.Document, error) {
		doc, err := cloneDocument(base)
		if err != nil {
			return resume.Document{}, err
		}
		// 先清空请求中出现的集合，json 解码到已有切片元素时会逐字段合并。
		var present struct {
			Data     map[string]json.RawMessage `json:"data"`
			Sections map[string]json.RawMessage `json:"sections"`
		}
		_ = json.Unmarshal(raw, &present)
		for key := range present.Data {
			if decode, ok := collectionDecoders[key]; ok {
				_ = decode(&doc.Data, []byte("null"))
			}
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return resume.Document{}, &resume.ValidationError{Reason: fmt.Sprintf("malformed document: %v", err)}
		}
		if order, ok := present.Sections["order"]; ok && string(bytes.TrimSpace(order)) != "null" {
			if err := checkRequestOrder(doc.Sections.Order); err != nil {
				return resume.Document{}, err
			}
		}
		return doc, nil
	}, nil
}

func cloneDocument(doc resume.Document) (resume.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return resume.Document{}, fmt.Errorf("copy document: %w", err)
	}
	var out resume.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return resume.Document{}, fmt.Errorf("copy document: %w", err)
	}
	return out, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// legacyScalars 是旧版表单中的标量字段。
var legacyScalars = map[string]func(*resume.Data, string){
	"name":      func(d *resume.Data, v string) { d.Personal.Name = v },
	"title":     func(d *resume.Data, v string) { d.Personal.Title = v },
	"email":     func(d *resume.Data, v string) { d.Personal.Email = v },
	"phone":     func(d *resume.Data, v string) { d.Personal.Phone = v },
	"location":  func(d *resume.Data, v string) { d.Personal.Location = v },
	"linkedin":  func(d *resume.Data, v string) { d.Personal.LinkedIn = v },
	"github":    func(d *resume.Data, v string) { d.Personal.GitHub = v },
	"portfolio": func(d *resume.Data, v string) { d.Personal.Portfolio = v },
	"summary":   func(d *resume.Data, v string) { d.Summary = v },
	"interests": func(d *resume.Data, v string) { d.Interests = v },
}

// collectionDecoders 按键整体替换集合，旧元素不会与新元素逐字段合并。
var collectionDecoders = map[string]func(*resume.Data, []byte) error{
	"experience":     func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Experience) },
	"education":      func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Education) },
	"skills":         func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Skills) },
	"projects":       func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Projects) },
	"certifications": func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Certifications) },
	"achievements":   func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Achievements) },
	"languages":      func(d *resume.Data, raw []byte) error { return decodeSlice(raw, &d.Languages) },
}

func decodeSlice[T any](raw []byte, dst *[]T) error {
	var v []T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// applyLegacyFields 覆盖表单中出现的字段。无法解析的集合字段整体拒绝，不会静默置空。
func applyLegacyFields(base resume.Document, form *multipart.Form) (resume.Document, error) {
	doc, err := cloneDocument(base)
	if err != nil {
		return resume.Document{}, err
	}

	for key, set := range legacyScalars {
		if v, ok := formValue(form, key); ok {
			set(&doc.Data, v)
		}
	}

	var (
		bad      []string
		orderErr error
	)
	for key, decode := range collectionDecoders {
		raw, ok := formValue(form, key)
		if !ok {
			continue
		}
		if strings.TrimSpace(raw) == "" {
			raw = "[]"
		}
		if err := decode(&doc.Data, []byte(raw)); err != nil {
			bad = append(bad, key)
		}
	}

	if v, ok := formValue(form, "template"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			bad = append(bad, "template")
		} else {
			doc.Template = n
		}
	}

	if v, ok := formValue(form, "sections"); ok {
		var keys []string
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			bad = append(bad, "sections")
		} else if order, err := section.ParseKeys(keys); err != nil {
			bad = append(bad, "sections")
		} else {
			doc.Sections.Order = order
			orderErr = checkRequestOrder(order)
		}
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return resume.Document{}, &resume.ValidationError{Fields: bad, Reason: "unparsable fields"}
	}
	if orderErr != nil {
		return resume.Document{}, orderErr
	}
	return doc, nil
}

// checkRequestOrder 拒绝请求中不合法的分区顺序，不交给 Normalize 静默修复。
func checkRequestOrder(order []section.Kind) error {
	if err := section.ValidateOrder(order); err != nil {
		return &resume.ValidationError{Fields: []string{"sections"}, Reason: err.Error()}
	}
	return nil
}

// writeInputError 把解析或校验失败映射为 HTTP 响应。
func writeInputError(c *gin.Context, err error) {
	if errors.Is(err, resume.ErrValidation) {
		ValidationFailed(c, err)
		return
	}
	if status, ok := statusFromImageError(err); ok {
		Error(c, status, err.Error())
		return
	}
	BadRequest(c, err.Error())
}
