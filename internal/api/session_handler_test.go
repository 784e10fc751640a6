package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSession(t *testing.T, srv *httptest.Server, id uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/v1/resumes/%d/session", id)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// nextEvent 读取到指定类型的事件为止，中间的 commit 等事件被跳过。
func nextEvent(t *testing.T, conn *websocket.Conn, eventType string) sessionEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev sessionEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return ev
		}
		if ev.Type == "error" && eventType != "error" {
			t.Fatalf("unexpected error event: %s", ev.Error)
		}
	}
}

func TestSessionEditCommitAndSave(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dialSession(t, srv, rec.ID)

	ready := nextEvent(t, conn, "ready")
	require.NotNil(t, ready.Document)
	assert.Equal(t, "Jane Doe", ready.Document.Data.Personal.Name)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "set_field", "field": "summary", "value": "Edited live."}))
	commit := nextEvent(t, conn, "commit")
	require.NotNil(t, commit.Document)
	assert.Equal(t, "Edited live.", commit.Document.Data.Summary)

	stored, err := s.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Builds things.", stored.Document.Data.Summary)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "save"}))
	saved := nextEvent(t, conn, "saved")
	require.NotNil(t, saved.Document)
	assert.Equal(t, "Edited live.", saved.Document.Data.Summary)

	stored, err = s.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited live.", stored.Document.Data.Summary)
}

func TestSessionAddAndEditItem(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dialSession(t, srv, rec.ID)
	nextEvent(t, conn, "ready")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "add_item", "section": "experience"}))
	added := nextEvent(t, conn, "item_added")
	require.NotEmpty(t, added.ID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "set_item",
		"section": "experience",
		"id":      added.ID,
		"value":   map[string]any{"id": added.ID, "company": "Globex", "position": "Staff"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "save"}))
	saved := nextEvent(t, conn, "saved")
	require.NotNil(t, saved.Document)
	require.Len(t, saved.Document.Data.Experience, 1)
	assert.Equal(t, "Globex", saved.Document.Data.Experience[0].Company)
	assert.Equal(t, added.ID, saved.Document.Data.Experience[0].ID)
}

func TestSessionRejectsUnknownMessages(t *testing.T) {
	s := newTestServer(t)
	rec := s.seed(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dialSession(t, srv, rec.ID)
	nextEvent(t, conn, "ready")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "set_field", "field": "salary", "value": "1"}))
	ev := nextEvent(t, conn, "error")
	assert.Contains(t, ev.Error, "unknown field")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "explode"}))
	ev = nextEvent(t, conn, "error")
	assert.Contains(t, ev.Error, "unknown message type")
}

func TestSessionReloadDiscardsPendingEdits(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Config.EditDebounce = time.Hour })
	rec := s.seed(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dialSession(t, srv, rec.ID)
	nextEvent(t, conn, "ready")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "set_field", "field": "personal.name", "value": "Not Saved"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "reload"}))
	reloaded := nextEvent(t, conn, "reloaded")
	require.NotNil(t, reloaded.Document)
	assert.Equal(t, "Jane Doe", reloaded.Document.Data.Personal.Name)
}

func TestSessionUnknownResume(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/resumes/77/session"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionRejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Config.AllowedOrigins = []string{"https://studio.example.com"} })
	rec := s.seed(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/v1/resumes/%d/session", rec.ID)
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
