// Package resume 定义简历文档的规范化数据模型及其纯函数操作。
package resume

import (
	"time"

	"resumeStudio/internal/section"
)

// Present 表示仍在进行中的结束时间。
const Present = "Present"

// SkillLevel 是技能熟练度的有序等级。
type SkillLevel string

const (
	Beginner     SkillLevel = "Beginner"
	Intermediate SkillLevel = "Intermediate"
	Expert       SkillLevel = "Expert"
)

// Rank 返回等级序号（1..3），未知等级返回 0。
func (l SkillLevel) Rank() int {
	switch l {
	case Beginner:
		return 1
	case Intermediate:
		return 2
	case Expert:
		return 3
	default:
		return 0
	}
}

// SkillCategory 区分技术技能与软技能。
type SkillCategory string

const (
	Technical SkillCategory = "Technical"
	Soft      SkillCategory = "Soft"
)

// Links 汇总个人主页类链接，落库时作为单个对象字段。
type Links struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// PersonalInfo 是简历抬头信息。
type PersonalInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Links
}

type Experience struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	GPA         string `json:"gpa,omitempty"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	URL          string `json:"url,omitempty"`
	Technologies string `json:"technologies,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Description  string `json:"description,omitempty"`
}

type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type Skill struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Level    SkillLevel    `json:"level"`
	Category SkillCategory `json:"category"`
}

func (e Experience) ItemID() string    { return e.ID }
func (e Education) ItemID() string     { return e.ID }
func (p Project) ItemID() string       { return p.ID }
func (c Certification) ItemID() string { return c.ID }
func (a Achievement) ItemID() string   { return a.ID }
func (s Skill) ItemID() string         { return s.ID }

// Data 是简历内容的聚合根。
type Data struct {
	Personal       PersonalInfo    `json:"personal"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Achievements   []Achievement   `json:"achievements"`
	Interests      string          `json:"interests"`
	Languages      []string        `json:"languages"`
}

// Document 是可渲染、可持久化的完整简历：内容、分区布局与模板选择。
type Document struct {
	Data     Data           `json:"data"`
	Sections section.Layout `json:"sections"`
	Template int            `json:"template"`
}

// Record 是存储协作方保存的一条简历记录，只支持整体替换。
type Record struct {
	ID         uint      `json:"id"`
	Document   Document  `json:"document"`
	ImageURL   string    `json:"image_url,omitempty"`
	ImageKey   string    `json:"image_key,omitempty"`
	PDFKey     string    `json:"pdf_key,omitempty"`
	PreviewKey string    `json:"preview_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewDocument 返回编辑会话的默认文档。
func NewDocument() Document {
	return Document{
		Data:     Data{}.Normalize(),
		Sections: section.DefaultLayout(),
		Template: 1,
	}
}
