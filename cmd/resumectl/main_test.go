package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/config"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
)

const sampleDocument = `{
  "data": {
    "personal": {"name": "Ada Lovelace", "title": "Analyst", "email": "ada@example.com"},
    "summary": "Notes on the analytical engine.",
    "experience": [{"company": "Babbage & Co", "position": "Collaborator"}]
  },
  "template": 1
}`

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderFromStdin(t *testing.T) {
	out, _, err := runCmd(t, sampleDocument, "render")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "Babbage &amp; Co")
}

func TestRenderToFileWithTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.json")
	out := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(in, []byte(sampleDocument), 0o600))

	_, stderr, err := runCmd(t, "", "render", "--in", in, "--out", out, "--template", "3")
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote")

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Ada Lovelace")
}

func TestRenderRejectsInvalidDocument(t *testing.T) {
	_, _, err := runCmd(t, `{"data": {"skills": [{"level": "Expert"}]}}`, "render")
	assert.Error(t, err)
}

func TestTemplatesListsVariants(t *testing.T) {
	out, _, err := runCmd(t, "", "templates")
	require.NoError(t, err)

	var variants []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &variants))
	assert.NotEmpty(t, variants)
}

func TestExportRejectsUnknownEngine(t *testing.T) {
	_, _, err := runCmd(t, sampleDocument, "export", "--engine", "netscape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "netscape")
}

type htmlEngine struct {
	html string
}

func (e *htmlEngine) Name() string { return "html" }

func (e *htmlEngine) Launch(context.Context) (pdf.Browser, error) { return e, nil }

func (e *htmlEngine) NewPage(context.Context) (pdf.Page, error) { return e, nil }

func (e *htmlEngine) SetContent(_ context.Context, html string) error {
	e.html = html
	return nil
}

func (e *htmlEngine) WaitImages(context.Context) error { return nil }

func (e *htmlEngine) PrintPDF(context.Context, pdf.Paper) ([]byte, error) {
	return []byte("%PDF-1.4\n%%EOF\n"), nil
}

func (e *htmlEngine) Screenshot(context.Context, string, int) ([]byte, error) { return nil, nil }

func (e *htmlEngine) Close() error { return nil }

func TestExportDocumentLooksUpStoredRecord(t *testing.T) {
	doc := resume.NewDocument()
	require.NoError(t, json.Unmarshal([]byte(sampleDocument), &doc))

	engine := &htmlEngine{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultExportConfig()
	cfg.SettleDelay = 0
	result, err := exportDocument(context.Background(), doc, engine, cfg, logger)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
	assert.Equal(t, pdf.Filename("Ada Lovelace"), result.Filename)
	assert.Contains(t, engine.html, "Ada Lovelace")
}

func TestDatabaseConfigPrefersFlags(t *testing.T) {
	env := map[string]string{
		"DATABASE_HOST":     "db.internal",
		"DATABASE_PORT":     "6543",
		"POSTGRES_DB":       "resumes",
		"POSTGRES_USER":     "svc",
		"POSTGRES_PASSWORD": "pw",
	}
	cfg, err := dbFlags{host: "override", user: "cli"}.databaseConfig(func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "resumes", cfg.Name)
	assert.Equal(t, "cli", cfg.User)
	assert.Equal(t, "disable", cfg.SSLMode)

	_, err = dbFlags{}.databaseConfig(func(string) string { return "" })
	assert.ErrorContains(t, err, "database name is required")
}
