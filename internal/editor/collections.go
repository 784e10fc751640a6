package editor

import (
	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// Collection 描述文档中一个可按标识寻址的元素集合。
type Collection[T resume.Item] struct {
	Kind section.Kind
	Get  func(resume.Data) []T
	Set  func(*resume.Data, []T)
}

var (
	Experiences = Collection[resume.Experience]{
		Kind: section.Experience,
		Get:  func(d resume.Data) []resume.Experience { return d.Experience },
		Set:  func(d *resume.Data, v []resume.Experience) { d.Experience = v },
	}
	Educations = Collection[resume.Education]{
		Kind: section.Education,
		Get:  func(d resume.Data) []resume.Education { return d.Education },
		Set:  func(d *resume.Data, v []resume.Education) { d.Education = v },
	}
	Skills = Collection[resume.Skill]{
		Kind: section.Skills,
		Get:  func(d resume.Data) []resume.Skill { return d.Skills },
		Set:  func(d *resume.Data, v []resume.Skill) { d.Skills = v },
	}
	Projects = Collection[resume.Project]{
		Kind: section.Projects,
		Get:  func(d resume.Data) []resume.Project { return d.Projects },
		Set:  func(d *resume.Data, v []resume.Project) { d.Projects = v },
	}
	Certifications = Collection[resume.Certification]{
		Kind: section.Certifications,
		Get:  func(d resume.Data) []resume.Certification { return d.Certifications },
		Set:  func(d *resume.Data, v []resume.Certification) { d.Certifications = v },
	}
	Achievements = Collection[resume.Achievement]{
		Kind: section.Achievements,
		Get:  func(d resume.Data) []resume.Achievement { return d.Achievements },
		Set:  func(d *resume.Data, v []resume.Achievement) { d.Achievements = v },
	}
)
