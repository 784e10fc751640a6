package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/pdf"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/store"
	"resumeStudio/internal/tasks"
)

type fakeExporter struct {
	err     error
	exports int
}

func (f *fakeExporter) ExportRecord(ctx context.Context, rec *resume.Record) (*pdf.Result, error) {
	f.exports++
	if f.err != nil {
		return nil, f.err
	}
	return &pdf.Result{Data: []byte("%PDF-1.7 fake"), Filename: "Resume.pdf"}, nil
}

func (f *fakeExporter) RenderRecord(ctx context.Context, rec *resume.Record) ([]byte, error) {
	return []byte(`<div id="resume-preview"></div>`), nil
}

type fakeThumbnails struct {
	err error
}

func (f fakeThumbnails) Thumbnail(ctx context.Context, markup string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0xFF, 0xD8, 0xFF}, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type published struct {
	channel string
	msg     ExportNotifyMessage
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	var msg ExportNotifyMessage
	_ = json.Unmarshal(message.([]byte), &msg)
	f.mu.Lock()
	f.sent = append(f.sent, published{channel: channel, msg: msg})
	f.mu.Unlock()
	return redis.NewIntResult(1, nil)
}

type handlerFixture struct {
	store     *store.MemoryStore
	exporter  *fakeExporter
	objects   *fakeObjects
	publisher *fakePublisher
	handler   *ExportHandler
	id        uint
}

func newFixture(t *testing.T, thumbs Thumbnailer) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		store:     store.NewMemoryStore(),
		exporter:  &fakeExporter{},
		objects:   newFakeObjects(),
		publisher: &fakePublisher{},
	}
	rec := &resume.Record{Document: resume.NewDocument()}
	rec.Document.Data.Personal.Name = "Jane Doe"
	require.NoError(t, f.store.Set(context.Background(), rec))
	f.id = rec.ID
	f.handler = NewExportHandler(f.store, f.exporter, thumbs, f.objects, f.publisher, nil)
	return f
}

func exportTask(t *testing.T, id uint) *asynq.Task {
	t.Helper()
	task, err := tasks.NewExportTask(id, "corr-1")
	require.NoError(t, err)
	return task
}

func TestExportTaskUploadsAndNotifies(t *testing.T) {
	f := newFixture(t, fakeThumbnails{})

	require.NoError(t, f.handler.ProcessTask(context.Background(), exportTask(t, f.id)))

	rec, err := f.store.Get(context.Background(), f.id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.PDFKey, "exports/1/"))
	assert.True(t, strings.HasSuffix(rec.PDFKey, ".pdf"))
	assert.Equal(t, "exports/1/preview.jpg", rec.PreviewKey)
	assert.Equal(t, "Jane Doe", rec.Document.Data.Personal.Name)
	assert.Equal(t, []byte("%PDF-1.7 fake"), f.objects.objects[rec.PDFKey])
	assert.Contains(t, f.objects.objects, rec.PreviewKey)

	require.Len(t, f.publisher.sent, 1)
	sent := f.publisher.sent[0]
	assert.Equal(t, "resume_notify:1", sent.channel)
	assert.Equal(t, StatusCompleted, sent.msg.Status)
	assert.Equal(t, "corr-1", sent.msg.CorrelationID)
	assert.Equal(t, rec.PDFKey, sent.msg.PDFKey)
}

func TestExportTaskReplacesPreviousExport(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.handler.ProcessTask(ctx, exportTask(t, f.id)))
	first, err := f.store.Get(ctx, f.id)
	require.NoError(t, err)
	firstKey := first.PDFKey

	require.NoError(t, f.handler.ProcessTask(ctx, exportTask(t, f.id)))
	second, err := f.store.Get(ctx, f.id)
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, second.PDFKey)
	assert.Equal(t, []string{firstKey}, f.objects.deleted)
	assert.Empty(t, second.PreviewKey)
}

func TestExportTaskSkipsMissingResume(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.handler.ProcessTask(context.Background(), exportTask(t, 99)))
	assert.Zero(t, f.exporter.exports)
	assert.Empty(t, f.publisher.sent)
}

func TestExportTaskRetryableFailureWaitsForFinalAttempt(t *testing.T) {
	f := newFixture(t, nil)
	f.exporter.err = pdf.ErrRenderTimeout

	err := f.handler.ProcessTask(context.Background(), exportTask(t, f.id))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, f.publisher.sent)
	assert.Empty(t, f.objects.objects)
}

func TestExportTaskPermanentFailureNotifies(t *testing.T) {
	f := newFixture(t, nil)
	f.exporter.err = errors.New("render resume 1: template broke")

	err := f.handler.ProcessTask(context.Background(), exportTask(t, f.id))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	require.Len(t, f.publisher.sent, 1)
	msg := f.publisher.sent[0].msg
	assert.Equal(t, StatusError, msg.Status)
	assert.Equal(t, errcode.SystemError, msg.ErrorCode)
	assert.False(t, msg.Retryable)
	assert.Equal(t, "render resume 1: template broke", msg.ErrorMessage)
}

func TestExportTaskPreviewFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, fakeThumbnails{err: errors.New("no browser")})

	require.NoError(t, f.handler.ProcessTask(context.Background(), exportTask(t, f.id)))
	rec, err := f.store.Get(context.Background(), f.id)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.PDFKey)
	assert.Empty(t, rec.PreviewKey)
	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, StatusCompleted, f.publisher.sent[0].msg.Status)
}

func TestExportTaskRejectsBadPayload(t *testing.T) {
	f := newFixture(t, nil)
	err := f.handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeExportPDF, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
