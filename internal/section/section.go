// Package section 定义简历中可排序的分区以及分区顺序的维护规则。
package section

import (
	"fmt"
	"strings"
)

// Kind 是分区的枚举标识，取代按字符串查找组件的做法。
type Kind uint8

const (
	Personal Kind = iota + 1
	Summary
	Experience
	Education
	Skills
	Projects
	Certifications
	Achievements
	Interests
)

// Config 描述一个分区在编辑界面中的展示信息。
type Config struct {
	ID   Kind   `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	Form string `json:"form"`
}

type kindInfo struct {
	key    string
	config Config
	custom bool
}

var kinds = map[Kind]kindInfo{
	Personal:       {key: "personal", config: Config{ID: Personal, Name: "Personal Info", Icon: "user", Form: "personal-form"}},
	Summary:        {key: "summary", config: Config{ID: Summary, Name: "Summary", Icon: "file-text", Form: "summary-form"}},
	Experience:     {key: "experience", config: Config{ID: Experience, Name: "Experience", Icon: "briefcase", Form: "experience-form"}},
	Education:      {key: "education", config: Config{ID: Education, Name: "Education", Icon: "graduation-cap", Form: "education-form"}},
	Skills:         {key: "skills", config: Config{ID: Skills, Name: "Skills", Icon: "wrench", Form: "skills-form"}},
	Projects:       {key: "projects", config: Config{ID: Projects, Name: "Projects", Icon: "folder", Form: "projects-form"}},
	Certifications: {key: "certifications", config: Config{ID: Certifications, Name: "Certifications", Icon: "award", Form: "certifications-form"}},
	Achievements:   {key: "achievements", config: Config{ID: Achievements, Name: "Achievements", Icon: "trophy", Form: "achievements-form"}, custom: true},
	Interests:      {key: "interests", config: Config{ID: Interests, Name: "Interests", Icon: "heart", Form: "interests-form"}, custom: true},
}

// builtinOrder 是默认启用的内置分区顺序。
var builtinOrder = []Kind{Personal, Summary, Experience, Education, Skills, Projects, Certifications}

var customOrder = []Kind{Achievements, Interests}

// String 返回分区的稳定标识，用于 JSON 与存储。
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.key
	}
	return fmt.Sprintf("section(%d)", uint8(k))
}

// Valid 判断是否为已知分区。
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Config 返回分区的展示信息。
func (k Kind) Config() Config {
	return kinds[k].config
}

// Fixed 表示分区固定在最前且不可移动（personal、summary）。
func (k Kind) Fixed() bool {
	return k == Personal || k == Summary
}

// Custom 表示用户可自行添加/移除的可选分区。
func (k Kind) Custom() bool {
	return kinds[k].custom
}

// Builtin 表示始终启用的内置分区。
func (k Kind) Builtin() bool {
	return k.Valid() && !k.Custom()
}

// ParseKind 将字符串解析为分区枚举，未知值返回错误。
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for k, info := range kinds {
		if info.key == key {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown section %q", s)
}

// MarshalText 让 Kind 以字符串形式出现在 JSON 中。
func (k Kind) MarshalText() ([]byte, error) {
	if k == 0 {
		return []byte{}, nil
	}
	if !k.Valid() {
		return nil, fmt.Errorf("unknown section %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText 解析 JSON 字符串形式的 Kind。
func (k *Kind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = 0
		return nil
	}
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Catalog 返回全部分区配置，内置分区在前。
func Catalog() []Config {
	out := make([]Config, 0, len(builtinOrder)+len(customOrder))
	for _, k := range builtinOrder {
		out = append(out, k.Config())
	}
	for _, k := range customOrder {
		out = append(out, k.Config())
	}
	return out
}

// CustomKinds 返回可选分区列表。
func CustomKinds() []Kind {
	return append([]Kind(nil), customOrder...)
}

// Keys 将分区列表转换为字符串标识。
func Keys(order []Kind) []string {
	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k.String())
	}
	return out
}

// ParseKeys 将字符串标识列表解析为分区列表。
func ParseKeys(keys []string) ([]Kind, error) {
	out := make([]Kind, 0, len(keys))
	for _, key := range keys {
		k, err := ParseKind(key)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
