package resume

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrValidation 是所有调用方可修正的输入错误的哨兵值。
var ErrValidation = errors.New("validation failed")

// ValidationError 携带缺失或非法的字段列表。
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// Is 让 errors.Is(err, ErrValidation) 成立。
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidateForCreate 校验创建简历时的必填项：姓名、邮箱、职位与简介。
func (d Data) ValidateForCreate() error {
	var missing []string
	if strings.TrimSpace(d.Personal.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Personal.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(d.Personal.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(d.Summary) == "" {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "missing required fields"}
	}
	return nil
}

// CheckIDs 校验每个集合内元素标识非空且唯一。
func (d Data) CheckIDs() error {
	checks := []struct {
		name string
		dup  func() (string, bool)
	}{
		{"experience", func() (string, bool) { return duplicateID(d.Experience) }},
		{"education", func() (string, bool) { return duplicateID(d.Education) }},
		{"skills", func() (string, bool) { return duplicateID(d.Skills) }},
		{"projects", func() (string, bool) { return duplicateID(d.Projects) }},
		{"certifications", func() (string, bool) { return duplicateID(d.Certifications) }},
		{"achievements", func() (string, bool) { return duplicateID(d.Achievements) }},
	}
	var bad []string
	for _, c := range checks {
		if id, dup := c.dup(); dup {
			bad = append(bad, fmt.Sprintf("%s[%s]", c.name, id))
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad, Reason: "duplicate or empty item ids"}
	}
	return nil
}

//go:embed schema.json
var documentSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// ValidateDocumentJSON 按内嵌 JSON Schema 校验客户端提交的完整文档。
func ValidateDocumentJSON(raw []byte) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("malformed document: %v", err)}
	}
	if res.Valid() {
		return nil
	}
	fields := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		fields = append(fields, e.String())
	}
	return &ValidationError{Fields: fields, Reason: "schema validation failed"}
}
