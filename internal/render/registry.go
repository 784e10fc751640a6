package render

import (
	"strings"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// SectionRenderer 描述某个分区使用的模板片段、省略条件，以及在双栏模板中是否进入侧栏。
type SectionRenderer struct {
	Template string
	Empty    func(resume.Data) bool
	Sidebar  bool
}

// Registry 是启动时显式构造的分区渲染表，由调用方传入 Renderer。
type Registry map[section.Kind]SectionRenderer

// NewRegistry 返回覆盖全部已知分区的默认渲染表。
func NewRegistry() Registry {
	return Registry{
		section.Personal: {
			Template: "section-personal",
			Empty: func(d resume.Data) bool {
				p := d.Personal
				return blank(p.Name, p.Title, p.Email, p.Phone, p.Location, p.LinkedIn, p.GitHub, p.Portfolio)
			},
		},
		section.Summary: {
			Template: "section-summary",
			Empty:    func(d resume.Data) bool { return blank(d.Summary) },
		},
		section.Experience: {
			Template: "section-experience",
			Empty:    func(d resume.Data) bool { return len(d.Experience) == 0 },
		},
		section.Education: {
			Template: "section-education",
			Empty:    func(d resume.Data) bool { return len(d.Education) == 0 },
		},
		section.Skills: {
			Template: "section-skills",
			Empty:    func(d resume.Data) bool { return len(d.Skills) == 0 },
			Sidebar:  true,
		},
		section.Projects: {
			Template: "section-projects",
			Empty:    func(d resume.Data) bool { return len(d.Projects) == 0 },
		},
		section.Certifications: {
			Template: "section-certifications",
			Empty:    func(d resume.Data) bool { return len(d.Certifications) == 0 },
			Sidebar:  true,
		},
		section.Achievements: {
			Template: "section-achievements",
			Empty:    func(d resume.Data) bool { return len(d.Achievements) == 0 },
		},
		section.Interests: {
			Template: "section-interests",
			Empty:    func(d resume.Data) bool { return blank(d.Interests) && len(d.Languages) == 0 },
			Sidebar:  true,
		},
	}
}

// Without 返回去掉指定分区后的渲染表副本。
func (r Registry) Without(kinds ...section.Kind) Registry {
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, k := range kinds {
		delete(out, k)
	}
	return out
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
