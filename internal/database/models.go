package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeStudio/internal/resume"
)

// Resume 是一份简历的持久化行。集合字段各占一个 JSON 列，
// 个人信息中的链接随 Personal 一起作为对象存储。
type Resume struct {
	gorm.Model
	Personal       datatypes.JSONType[resume.PersonalInfo]   `gorm:"not null"`
	Summary        string                                    `gorm:"type:text"`
	Experience     datatypes.JSONSlice[resume.Experience]    `gorm:"not null"`
	Education      datatypes.JSONSlice[resume.Education]     `gorm:"not null"`
	Skills         datatypes.JSONSlice[resume.Skill]         `gorm:"not null"`
	Projects       datatypes.JSONSlice[resume.Project]       `gorm:"not null"`
	Certifications datatypes.JSONSlice[resume.Certification] `gorm:"not null"`
	Achievements   datatypes.JSONSlice[resume.Achievement]   `gorm:"not null"`
	Interests      string                                    `gorm:"type:text"`
	Languages      datatypes.JSONSlice[string]               `gorm:"not null"`
	SectionOrder   datatypes.JSONSlice[string]               `gorm:"not null"`
	ActiveSection  string                                    `gorm:"size:32"`
	Template       int                                       `gorm:"not null;default:1"`
	ImageURL       string                                    `gorm:"size:1024"`
	ImageKey       string                                    `gorm:"size:512"`
	PdfKey         string                                    `gorm:"size:512"`
	PreviewKey     string                                    `gorm:"size:512"`
}
