package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/capture"
	"resumeStudio/internal/config"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/render"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePDF(t *testing.T) []byte {
	t.Helper()
	f := fpdf.New("P", "mm", "A4", "")
	f.AddPage()
	f.SetFont("Helvetica", "", 12)
	f.Cell(40, 10, "resume export health check")
	var buf bytes.Buffer
	require.NoError(t, f.Output(&buf))
	return buf.Bytes()
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 21, 29))
	for y := 0; y < 29; y++ {
		for x := 0; x < 21; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stubEngine 同时实现 pdf.Engine 与 pdf.Browser。
type stubEngine struct {
	mu        sync.Mutex
	launchErr error
	launches  int
	pdf       []byte
	shot      []byte
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Launch(ctx context.Context) (pdf.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.launches++
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	return e, nil
}

func (e *stubEngine) NewPage(ctx context.Context) (pdf.Page, error) {
	return &stubPage{engine: e}, nil
}

func (e *stubEngine) Close() error { return nil }

func (e *stubEngine) launchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launches
}

type stubPage struct {
	engine *stubEngine
}

func (p *stubPage) SetContent(ctx context.Context, html string) error { return nil }
func (p *stubPage) WaitImages(ctx context.Context) error              { return nil }
func (p *stubPage) Close() error                                      { return nil }

func (p *stubPage) PrintPDF(ctx context.Context, paper pdf.Paper) ([]byte, error) {
	return p.engine.pdf, nil
}

func (p *stubPage) Screenshot(ctx context.Context, selector string, quality int) ([]byte, error) {
	return p.engine.shot, nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryObjects) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			m.deleted = append(m.deleted, k)
		}
	}
	return nil
}

func (m *memoryObjects) PresignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error) {
	u := "https://objects.example.invalid/" + key
	if downloadName != "" {
		u += "?download=" + downloadName
	}
	return u, nil
}

func (m *memoryObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memoryCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

type testServer struct {
	router  *gin.Engine
	store   *store.MemoryStore
	engine  *stubEngine
	objects *memoryObjects
	queue   *recordingQueue
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	engine := &stubEngine{pdf: samplePDF(t), shot: samplePNG(t)}
	objects := newMemoryObjects()
	queue := &recordingQueue{}
	renderer := render.MustNew(render.NewRegistry())
	logger := quietLogger()

	printer := pdf.NewPrinter(engine, pdf.Options{
		LoadTimeout:  time.Second,
		ImageTimeout: time.Second,
	}, logger)

	deps := Deps{
		Store:    st,
		Renderer: renderer,
		Exporter: pdf.NewService(st, renderer, printer, nil, logger),
		Capture:  capture.NewService(engine, 80, time.Second, 0, logger),
		Images:   objects,
		Queue:    queue,
		Logger:   logger,
		Config: config.APIConfig{
			MaxImageBytes: 1 << 20,
			EditDebounce:  10 * time.Millisecond,
		},
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	router := NewRouter(deps.Config, logger)
	RegisterRoutes(router, deps)
	return &testServer{router: router, store: st, engine: engine, objects: objects, queue: queue}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) seed(t *testing.T) *resume.Record {
	t.Helper()
	rec := &resume.Record{Document: resume.NewDocument()}
	rec.Document.Data.Personal = resume.PersonalInfo{Name: "Jane Doe", Title: "Engineer", Email: "jane@example.com"}
	rec.Document.Data.Summary = "Builds things."
	require.NoError(t, s.store.Set(context.Background(), rec))
	return rec
}

func validDocument() map[string]any {
	return map[string]any{
		"data": map[string]any{
			"personal": map[string]any{"name": "Jane Doe", "title": "Engineer", "email": "jane@example.com"},
			"summary":  "Builds things.",
			"experience": []map[string]any{
				{"id": "e1", "company": "Acme", "position": "SRE", "start_date": "2020", "end_date": "present"},
			},
		},
		"template": 2,
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
