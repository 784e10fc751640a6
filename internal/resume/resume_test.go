package resume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/section"
)

func TestNormalizeDefaultsCollections(t *testing.T) {
	d := Data{Personal: PersonalInfo{Name: "  Jane Doe "}}.Normalize()

	assert.Equal(t, "Jane Doe", d.Personal.Name)
	assert.NotNil(t, d.Experience)
	assert.NotNil(t, d.Education)
	assert.NotNil(t, d.Skills)
	assert.NotNil(t, d.Projects)
	assert.NotNil(t, d.Certifications)
	assert.NotNil(t, d.Achievements)
	assert.NotNil(t, d.Languages)
	assert.Empty(t, d.Experience)
}

func TestNormalizeAssignsMissingAndDuplicateIDs(t *testing.T) {
	in := Data{
		Experience: []Experience{
			{ID: "a", Company: "Acme"},
			{ID: "a", Company: "Globex"},
			{Company: "Initech", EndDate: "present"},
		},
	}

	out := in.Normalize()

	require.Len(t, out.Experience, 3)
	assert.Equal(t, "a", out.Experience[0].ID)
	assert.NotEqual(t, "a", out.Experience[1].ID)
	assert.NotEmpty(t, out.Experience[2].ID)
	assert.Equal(t, Present, out.Experience[2].EndDate)
	assert.NoError(t, out.CheckIDs())

	// the receiver stays untouched
	assert.Equal(t, "a", in.Experience[1].ID)
	assert.Empty(t, in.Experience[2].ID)
}

func TestNormalizeSkillLevels(t *testing.T) {
	out := Data{Skills: []Skill{
		{Name: "Go", Level: "expert", Category: "technical"},
		{Name: "Listening", Level: "guru", Category: "SOFT"},
	}}.Normalize()

	assert.Equal(t, Expert, out.Skills[0].Level)
	assert.Equal(t, 3, out.Skills[0].Level.Rank())
	assert.Equal(t, Intermediate, out.Skills[1].Level)
	assert.Equal(t, Soft, out.Skills[1].Category)
}

func TestValidateForCreate(t *testing.T) {
	err := Data{Personal: PersonalInfo{Name: "Jane"}}.ValidateForCreate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"email", "title", "summary"}, verr.Fields)

	ok := Data{
		Personal: PersonalInfo{Name: "Jane", Email: "jane@x.com", Title: "Engineer"},
		Summary:  "Builds things.",
	}
	assert.NoError(t, ok.ValidateForCreate())
}

func TestCheckIDsReportsDuplicates(t *testing.T) {
	d := Data{Projects: []Project{{ID: "p1"}, {ID: "p1"}}}
	err := d.CheckIDs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projects[p1]")
}

func TestReducersArePure(t *testing.T) {
	items := []Achievement{{ID: "1", Title: "first"}, {ID: "2", Title: "second"}}

	replaced := ReplaceByID(items, Achievement{ID: "2", Title: "updated"})
	assert.Equal(t, "second", items[1].Title)
	assert.Equal(t, "updated", replaced[1].Title)

	removed := RemoveByID(items, "1")
	assert.Len(t, items, 2)
	require.Len(t, removed, 1)
	assert.Equal(t, "2", removed[0].ID)

	unchanged := ReplaceByID(items, Achievement{ID: "missing"})
	assert.Equal(t, items, unchanged)

	_, ok := FindByID(items, "missing")
	assert.False(t, ok)
	assert.True(t, ContainsID(items, "1"))
}

func TestValidateDocumentJSON(t *testing.T) {
	good := []byte(`{"data":{"personal":{"name":"Jane"},"experience":[{"id":"e1","company":"Acme"}]},"sections":{"order":["personal","summary"]},"template":2}`)
	require.NoError(t, ValidateDocumentJSON(good))

	bad := []byte(`{"data":{"experience":"not-a-list"}}`)
	err := ValidateDocumentJSON(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	garbage := []byte(`{"data":`)
	require.Error(t, ValidateDocumentJSON(garbage))
}

func TestNewDocumentDefaults(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, 1, doc.Template)
	assert.Equal(t, section.Personal, doc.Sections.Active)
	assert.NoError(t, doc.Sections.Validate())
}
