package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

func sampleDocument() resume.Document {
	doc := resume.NewDocument()
	doc.Data.Personal = resume.PersonalInfo{
		Name:  "Jane Doe",
		Title: "Platform Engineer",
		Email: "jane@example.com",
		Links: resume.Links{GitHub: "https://github.com/jane"},
	}
	doc.Data.Summary = "Builds reliable systems."
	doc.Data.Experience = []resume.Experience{{
		ID: "e1", Company: "Acme", Position: "SRE", StartDate: "2020", EndDate: "present",
		Description: "- kept pagers quiet\n- shipped things",
	}}
	doc.Data.Skills = []resume.Skill{
		{ID: "s1", Name: "Go", Level: resume.Expert, Category: resume.Technical},
		{ID: "s2", Name: "Mentoring", Level: resume.Beginner, Category: resume.Soft},
	}
	return doc
}

func TestEmptySectionsAreOmittedInEveryVariant(t *testing.T) {
	r, err := New(NewRegistry())
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Sections.AddCustom(section.Achievements)
	doc.Sections.AddCustom(section.Interests)

	for _, info := range Variants() {
		t.Run(info.Key, func(t *testing.T) {
			out, err := r.RenderVariant(Variant(info.ID), doc, Options{})
			require.NoError(t, err)
			html := string(out)

			assert.Contains(t, html, `id="resume-preview"`)
			assert.Contains(t, html, "Jane Doe")
			assert.Contains(t, html, `data-section="experience"`)
			assert.Contains(t, html, ">Experience<")
			assert.Contains(t, html, `data-section="skills"`)

			for _, k := range []section.Kind{section.Education, section.Projects, section.Certifications, section.Achievements, section.Interests} {
				assert.NotContains(t, html, `data-section="`+k.String()+`"`)
				assert.NotContains(t, html, ">"+k.Config().Name+"<")
			}
		})
	}
}

func TestEmptyDocumentHasNoSectionHeadings(t *testing.T) {
	r := MustNew(NewRegistry())

	for _, info := range Variants() {
		out, err := r.RenderVariant(Variant(info.ID), resume.NewDocument(), Options{})
		require.NoError(t, err)
		assert.NotContains(t, string(out), `class="section-title"`, info.Key)
		assert.Contains(t, string(out), `id="resume-preview"`, info.Key)
	}
}

func TestSectionOrderIsHonored(t *testing.T) {
	r := MustNew(NewRegistry())
	doc := sampleDocument()
	doc.Data.Projects = []resume.Project{{ID: "p1", Name: "Pager"}}
	doc.Data.Education = []resume.Education{{ID: "d1", Institution: "MIT", Degree: "BSc"}}
	require.NoError(t, doc.Sections.Reorder([]section.Kind{
		section.Personal, section.Summary, section.Projects, section.Education,
		section.Experience, section.Skills, section.Certifications,
	}))

	for _, v := range []Variant{Basic, Modern, Professional} {
		out, err := r.RenderVariant(v, doc, Options{})
		require.NoError(t, err)
		html := string(out)

		projects := strings.Index(html, `data-section="projects"`)
		education := strings.Index(html, `data-section="education"`)
		experience := strings.Index(html, `data-section="experience"`)
		require.True(t, projects > 0 && education > 0 && experience > 0, v.String())
		assert.Less(t, projects, education, v.String())
		assert.Less(t, education, experience, v.String())
	}
}

func TestSidebarSplitsColumns(t *testing.T) {
	r := MustNew(NewRegistry())
	out, err := r.RenderVariant(Sidebar, sampleDocument(), Options{ImageURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	html := string(out)

	main := strings.Index(html, `<main class="main">`)
	require.Positive(t, main)
	assert.Less(t, strings.Index(html, `data-section="skills"`), main)
	assert.Greater(t, strings.Index(html, `data-section="experience"`), main)
	assert.Contains(t, html, `class="photo"`)
}

func TestRegistryWithoutRendererSkipsSection(t *testing.T) {
	r := MustNew(NewRegistry().Without(section.Experience))
	out, err := r.Render(sampleDocument(), Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(out), `data-section="experience"`)
	assert.Contains(t, string(out), `data-section="skills"`)
}

func TestRenderEscapesUserContent(t *testing.T) {
	r := MustNew(NewRegistry())
	doc := sampleDocument()
	doc.Data.Summary = `<script>alert(1)</script>`
	doc.Data.Personal.Portfolio = "javascript:alert(1)"

	out, err := r.Render(doc, Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), `href="javascript:`)
}

func TestRenderDoesNotMutateDocument(t *testing.T) {
	r := MustNew(NewRegistry())
	doc := sampleDocument()
	doc.Data.Experience[0].ID = ""

	_, err := r.Render(doc, Options{})
	require.NoError(t, err)
	assert.Empty(t, doc.Data.Experience[0].ID)
	assert.Equal(t, "present", doc.Data.Experience[0].EndDate)
}

func TestParseVariantFallsBack(t *testing.T) {
	assert.Equal(t, Basic, ParseVariant(0))
	assert.Equal(t, Basic, ParseVariant(99))
	assert.Equal(t, Sidebar, ParseVariant(4))
	assert.Len(t, Variants(), 4)
	assert.Equal(t, "modern", Modern.String())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "2020 – Present", dateRange("2020", "Present"))
	assert.Equal(t, "2020", dateRange("2020", ""))
	assert.Equal(t, []string{"a", "b"}, lines("- a\n\n• b\n"))
	assert.Equal(t, "BSc in CS", joinNonEmpty(" in ", "BSc", "CS"))
	assert.Equal(t, "BSc", joinNonEmpty(" in ", "BSc", " "))
	assert.Equal(t, 100, levelPercent(resume.Expert))
	assert.Equal(t, []bool{true, false, false}, levelDots(resume.Beginner))
	assert.Equal(t, "github.com/jane", displayURL("https://www.github.com/jane/"))
}

func TestImageURLFiltering(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AAAA", string(imageURL("data:image/png;base64,AAAA")))
	assert.Equal(t, "https://cdn/x.png", string(imageURL(" https://cdn/x.png ")))
	assert.Empty(t, string(imageURL("javascript:alert(1)")))
	assert.Empty(t, string(imageURL("data:text/html;base64,AAAA")))
}
