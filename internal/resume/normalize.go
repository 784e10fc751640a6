package resume

import (
	"strings"

	"resumeStudio/internal/section"
)

// Normalize 返回规范化后的副本：去掉首尾空白，nil 集合变为空切片，
// 补齐缺失或重复的元素标识，并把未知的技能等级/类别映射为默认值。接收者不会被修改。
func (d Data) Normalize() Data {
	out := Data{
		Personal: PersonalInfo{
			Name:     clean(d.Personal.Name),
			Title:    clean(d.Personal.Title),
			Email:    clean(d.Personal.Email),
			Phone:    clean(d.Personal.Phone),
			Location: clean(d.Personal.Location),
			Links: Links{
				LinkedIn:  clean(d.Personal.LinkedIn),
				GitHub:    clean(d.Personal.GitHub),
				Portfolio: clean(d.Personal.Portfolio),
			},
		},
		Summary:   clean(d.Summary),
		Interests: clean(d.Interests),
	}

	out.Experience = normalizeItems(d.Experience, func(e *Experience) {
		e.Company, e.Position, e.Location = clean(e.Company), clean(e.Position), clean(e.Location)
		e.StartDate, e.EndDate, e.Description = clean(e.StartDate), normalizeEnd(e.EndDate), clean(e.Description)
	}, func(e *Experience, id string) { e.ID = id })

	out.Education = normalizeItems(d.Education, func(e *Education) {
		e.Institution, e.Degree, e.Field = clean(e.Institution), clean(e.Degree), clean(e.Field)
		e.StartDate, e.EndDate = clean(e.StartDate), normalizeEnd(e.EndDate)
		e.GPA, e.Description = clean(e.GPA), clean(e.Description)
	}, func(e *Education, id string) { e.ID = id })

	out.Skills = normalizeItems(d.Skills, func(s *Skill) {
		s.Name = clean(s.Name)
		s.Level = ParseSkillLevel(string(s.Level))
		s.Category = ParseSkillCategory(string(s.Category))
	}, func(s *Skill, id string) { s.ID = id })

	out.Projects = normalizeItems(d.Projects, func(p *Project) {
		p.Name, p.Role, p.URL = clean(p.Name), clean(p.Role), clean(p.URL)
		p.Technologies, p.Description = clean(p.Technologies), clean(p.Description)
		p.StartDate, p.EndDate = clean(p.StartDate), normalizeEnd(p.EndDate)
	}, func(p *Project, id string) { p.ID = id })

	out.Certifications = normalizeItems(d.Certifications, func(c *Certification) {
		c.Name, c.Issuer, c.Date, c.URL = clean(c.Name), clean(c.Issuer), clean(c.Date), clean(c.URL)
	}, func(c *Certification, id string) { c.ID = id })

	out.Achievements = normalizeItems(d.Achievements, func(a *Achievement) {
		a.Title, a.Date, a.Description = clean(a.Title), clean(a.Date), clean(a.Description)
	}, func(a *Achievement, id string) { a.ID = id })

	out.Languages = make([]string, 0, len(d.Languages))
	for _, lang := range d.Languages {
		if v := clean(lang); v != "" {
			out.Languages = append(out.Languages, v)
		}
	}

	return out
}

// Normalize 规范化整份文档，包括分区布局与模板编号。
func (doc Document) Normalize() Document {
	return Document{
		Data:     doc.Data.Normalize(),
		Sections: section.Normalize(doc.Sections.Order, doc.Sections.Active),
		Template: doc.Template,
	}
}

// ParseSkillLevel 宽松解析技能等级，未知值回落到 Intermediate。
func ParseSkillLevel(s string) SkillLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner
	case "expert":
		return Expert
	default:
		return Intermediate
	}
}

// ParseSkillCategory 宽松解析技能类别，未知值回落到 Technical。
func ParseSkillCategory(s string) SkillCategory {
	if strings.EqualFold(strings.TrimSpace(s), string(Soft)) {
		return Soft
	}
	return Technical
}

func normalizeItems[T Item](items []T, tidy func(*T), setID func(*T, string)) []T {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		tidy(&it)
		id := strings.TrimSpace(it.ItemID())
		if _, dup := seen[id]; id == "" || dup {
			id = NewItemID()
		}
		setID(&it, id)
		seen[id] = struct{}{}
		out = append(out, it)
	}
	return out
}

func normalizeEnd(s string) string {
	v := clean(s)
	if strings.EqualFold(v, Present) {
		return Present
	}
	return v
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
