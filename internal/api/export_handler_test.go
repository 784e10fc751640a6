package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/tasks"
)

func TestDownloadPDF(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)

	w := s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Jane_Doe_Resume.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Equal(t, 1, s.engine.launchCount())
}

func TestDownloadPDFMissingResumeSkipsBrowser(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/resumes/42/pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, s.engine.launchCount())
}

func TestDownloadPDFBrowserUnavailable(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)
	s.engine.launchErr = errors.New("chrome not found")

	w := s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID), nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode[struct {
		Code      int  `json:"code"`
		Retryable bool `json:"retryable"`
	}](t, w)
	assert.Equal(t, errcode.BrowserUnavailable, body.Code)
	assert.True(t, body.Retryable)
}

func TestDownloadPDFEmptyOutput(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)
	s.engine.pdf = nil

	w := s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID), nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[struct {
		Code int `json:"code"`
	}](t, w)
	assert.Equal(t, errcode.EmptyOutput, body.Code)
}

func TestEnqueueExportAndDownloadLink(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)

	linkPath := fmt.Sprintf("/v1/resumes/%d/pdf/link", rec.ID)
	w := s.do(httptest.NewRequest(http.MethodGet, linkPath, nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/pdf/jobs", rec.ID), nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	w = s.do(req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	accepted := decode[struct {
		TaskID        string `json:"task_id"`
		CorrelationID string `json:"correlation_id"`
	}](t, w)
	assert.Equal(t, "task-1", accepted.TaskID)
	assert.Equal(t, "corr-123", accepted.CorrelationID)

	require.Len(t, s.queue.tasks, 1)
	assert.Equal(t, tasks.TypeExportPDF, s.queue.tasks[0].Type())
	var payload tasks.ExportPayload
	require.NoError(t, json.Unmarshal(s.queue.tasks[0].Payload(), &payload))
	assert.Equal(t, rec.ID, payload.ResumeID)
	assert.Equal(t, "corr-123", payload.CorrelationID)

	// 模拟 worker 完成导出。
	rec.PDFKey = fmt.Sprintf("exports/%d/done.pdf", rec.ID)
	require.NoError(t, s.store.Set(context.Background(), rec))

	w = s.do(httptest.NewRequest(http.MethodGet, linkPath, nil))
	require.Equal(t, http.StatusOK, w.Code)
	link := decode[struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}](t, w)
	assert.Contains(t, link.URL, rec.PDFKey)
	assert.Contains(t, link.URL, "Jane_Doe_Resume.pdf")
	assert.Equal(t, 300, link.ExpiresIn)
}

func TestEnqueueExportWithoutQueue(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Queue = nil })
	rec := s.seed(t)

	w := s.do(httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/pdf/jobs", rec.ID), nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPreviewStoredResume(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)

	w := s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/preview", rec.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Jane Doe")
}

func TestPreviewDocument(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(http.MethodPost, "/v1/preview?template=4", validDocument())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Jane Doe")
	assert.Contains(t, w.Body.String(), "Acme")

	w = s.doJSON(http.MethodPost, "/v1/preview?template=x", validDocument())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapturePDF(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(http.MethodPost, "/v1/preview/pdf", validDocument())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Equal(t, 1, s.engine.launchCount())
}

func TestCapturePDFWithoutCapturer(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Capture = nil })

	w := s.doJSON(http.MethodPost, "/v1/preview/pdf", validDocument())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListTemplatesAndSections(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/templates", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var variants []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &variants))
	require.NotEmpty(t, variants)
	defaults := 0
	for _, v := range variants {
		if v["default"] == true {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/sections", nil))
	require.Equal(t, http.StatusOK, w.Code)
	catalog := decode[struct {
		Sections []json.RawMessage `json:"sections"`
		Default  []string          `json:"default_order"`
	}](t, w)
	assert.NotEmpty(t, catalog.Sections)
	assert.NotEmpty(t, catalog.Default)
}

func TestExportRateLimit(t *testing.T) {
	counter := &memoryCounter{}
	s := newTestServer(t, func(d *Deps) {
		d.RateCounter = counter
		d.Config.ExportRateLimitPerMinute = 2
	})
	rec := s.seed(t)
	path := fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID)

	for i := 0; i < 2; i++ {
		w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	body := decode[struct {
		Code int `json:"code"`
	}](t, w)
	assert.Equal(t, errcode.RateLimited, body.Code)
	assert.Equal(t, 2, s.engine.launchCount())
}

func TestPDFHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/pdf-health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Status string `json:"status"`
		Check  struct {
			Engine string `json:"engine"`
			Pages  int    `json:"pages"`
		} `json:"check"`
	}](t, w)
	assert.Contains(t, []string{"ok", "degraded"}, body.Status)
	assert.Equal(t, "stub", body.Check.Engine)
	assert.Equal(t, 1, body.Check.Pages)

	s.engine.launchErr = errors.New("no browser")
	w = s.do(httptest.NewRequest(http.MethodGet, "/pdf-health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetricsToken(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Config.MetricsToken = "secret" })

	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}
