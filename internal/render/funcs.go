package render

import (
	"html/template"
	"strings"

	"resumeStudio/internal/resume"
)

var funcs = template.FuncMap{
	"dateRange":   dateRange,
	"lines":       lines,
	"join":        joinNonEmpty,
	"levelPct":    levelPercent,
	"levelDots":   levelDots,
	"skillsOf":    skillsOf,
	"displayURL":  displayURL,
	"hasLinks":    hasLinks,
	"commaFields": commaFields,
}

// dateRange 拼接起止时间，任意一端缺失时只输出另一端。
func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " – " + end
	case start != "":
		return start
	default:
		return end
	}
}

// lines 把多行描述拆成要点，去掉常见的项目符号前缀。
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "-•* ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func levelPercent(l resume.SkillLevel) int {
	return l.Rank() * 100 / 3
}

// levelDots 返回长度为 3 的布尔切片，用于圆点刻度。
func levelDots(l resume.SkillLevel) []bool {
	dots := make([]bool, 3)
	for i := 0; i < l.Rank() && i < len(dots); i++ {
		dots[i] = true
	}
	return dots
}

func skillsOf(cat resume.SkillCategory, skills []resume.Skill) []resume.Skill {
	var out []resume.Skill
	for _, s := range skills {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

func displayURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

func hasLinks(l resume.Links) bool {
	return !blank(l.LinkedIn, l.GitHub, l.Portfolio)
}

func commaFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
