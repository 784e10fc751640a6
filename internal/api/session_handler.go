package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/editor"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
	"resumeStudio/internal/store"
	"resumeStudio/internal/tasks"
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 5 * time.Second
	maxFrameBytes = 1 << 20
)

// Subscriber 是 *redis.Client 的订阅能力。
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// SessionHandler 通过 WebSocket 承载编辑会话：字段编辑经防抖后提交到共享文档，
// 每次提交把最新文档推回客户端，异步导出结果从 Redis 转发。
type SessionHandler struct {
	store          store.ResumeStore
	subscriber     Subscriber
	logger         *slog.Logger
	debounce       time.Duration
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewSessionHandler 构造编辑会话处理器；subscriber 为 nil 时不转发导出通知。
func NewSessionHandler(st store.ResumeStore, subscriber Subscriber, logger *slog.Logger, debounce time.Duration, allowedOrigins []string) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &SessionHandler{
		store:          st,
		subscriber:     subscriber,
		logger:         logger,
		debounce:       debounce,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *SessionHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// sessionRequest 是客户端发来的操作。
type sessionRequest struct {
	Type     string          `json:"type"`
	Field    string          `json:"field,omitempty"`
	Section  string          `json:"section,omitempty"`
	ID       string          `json:"id,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Order    []string        `json:"order,omitempty"`
	Template int             `json:"template,omitempty"`
}

// sessionEvent 是推送给客户端的事件。
type sessionEvent struct {
	Type     string           `json:"type"`
	Document *resume.Document `json:"document,omitempty"`
	ID       string           `json:"id,omitempty"`
	Error    string           `json:"error,omitempty"`
	Export   json.RawMessage  `json:"export,omitempty"`
}

type textBinding struct {
	kind section.Kind
	get  func(resume.Data) string
	set  func(*resume.Data, string)
}

var textBindings = map[string]textBinding{
	"summary":            {section.Summary, func(d resume.Data) string { return d.Summary }, func(d *resume.Data, v string) { d.Summary = v }},
	"interests":          {section.Interests, func(d resume.Data) string { return d.Interests }, func(d *resume.Data, v string) { d.Interests = v }},
	"personal.name":      {section.Personal, func(d resume.Data) string { return d.Personal.Name }, func(d *resume.Data, v string) { d.Personal.Name = v }},
	"personal.title":     {section.Personal, func(d resume.Data) string { return d.Personal.Title }, func(d *resume.Data, v string) { d.Personal.Title = v }},
	"personal.email":     {section.Personal, func(d resume.Data) string { return d.Personal.Email }, func(d *resume.Data, v string) { d.Personal.Email = v }},
	"personal.phone":     {section.Personal, func(d resume.Data) string { return d.Personal.Phone }, func(d *resume.Data, v string) { d.Personal.Phone = v }},
	"personal.location":  {section.Personal, func(d resume.Data) string { return d.Personal.Location }, func(d *resume.Data, v string) { d.Personal.Location = v }},
	"personal.linkedin":  {section.Personal, func(d resume.Data) string { return d.Personal.LinkedIn }, func(d *resume.Data, v string) { d.Personal.LinkedIn = v }},
	"personal.github":    {section.Personal, func(d resume.Data) string { return d.Personal.GitHub }, func(d *resume.Data, v string) { d.Personal.GitHub = v }},
	"personal.portfolio": {section.Personal, func(d resume.Data) string { return d.Personal.Portfolio }, func(d *resume.Data, v string) { d.Personal.Portfolio = v }},
}

// HandleConnection 读取记录、升级连接并启动读写循环。
func (h *SessionHandler) HandleConnection(c *gin.Context) {
	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	// 升级后的连接不再受请求 context 约束，生命周期由读写循环决定。
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	log := h.logger.With(
		slog.Uint64("resume_id", uint64(id)),
		slog.String("client_ip", c.ClientIP()),
	)

	commits := make(chan struct{}, 1)
	sess := editor.NewSession(rec.Document, editor.Options{
		Debounce: h.debounce,
		Logger:   log,
		OnCommit: func(resume.Document) {
			select {
			case commits <- struct{}{}:
			default:
			}
		},
	})
	defer sess.Close()

	var notifications <-chan *redis.Message
	if h.subscriber != nil {
		pubsub := h.subscriber.Subscribe(ctx, tasks.NotifyChannel(id))
		defer pubsub.Close()
		notifications = pubsub.Channel()
	}

	sc := &sessionConn{
		id:      id,
		store:   h.store,
		session: sess,
		fields:  make(map[string]any),
		out:     make(chan sessionEvent, 16),
		log:     log,
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sc.writeLoop(ctx, conn, commits, notifications)
		cancel()
	}()

	doc := sess.Document()
	sc.send(ctx, sessionEvent{Type: "ready", Document: &doc})

	err = sc.readLoop(ctx, conn)
	cancel()
	<-writerDone
	if err != nil {
		log.Info("editor session closed", slog.Any("error", err))
	} else {
		log.Info("editor session closed")
	}
}

// sessionConn 是单个连接的状态，只在读循环中修改 fields。
type sessionConn struct {
	id      uint
	store   store.ResumeStore
	session *editor.Session
	fields  map[string]any
	out     chan sessionEvent
	log     *slog.Logger
}

func (sc *sessionConn) send(ctx context.Context, ev sessionEvent) {
	select {
	case sc.out <- ev:
	case <-ctx.Done():
	}
}

func (sc *sessionConn) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		var req sessionRequest
		if err := json.Unmarshal(message, &req); err != nil {
			sc.send(ctx, sessionEvent{Type: "error", Error: "invalid message"})
			continue
		}
		if err := sc.dispatch(ctx, req); err != nil {
			sc.send(ctx, sessionEvent{Type: "error", Error: err.Error()})
		}
	}
}

// writeLoop 是连接上唯一的写入方。
func (sc *sessionConn) writeLoop(ctx context.Context, conn *websocket.Conn, commits <-chan struct{}, notifications <-chan *redis.Message) {
	defer conn.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(ev sessionEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		return conn.WriteJSON(ev)
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeDeadline))
			return
		case <-commits:
			doc := sc.session.Document()
			err = write(sessionEvent{Type: "commit", Document: &doc})
		case ev := <-sc.out:
			err = write(ev)
		case msg, ok := <-notifications:
			if !ok {
				notifications = nil
				continue
			}
			err = write(sessionEvent{Type: "export", Export: json.RawMessage(msg.Payload)})
		case <-ticker.C:
			err = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeDeadline))
		}
		if err != nil {
			sc.log.Warn("write websocket message failed", slog.Any("error", err))
			return
		}
	}
}

func (sc *sessionConn) dispatch(ctx context.Context, req sessionRequest) error {
	switch req.Type {
	case "set_field":
		return sc.setText(req.Field, req.Value)
	case "set_item":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		return sc.setItem(kind, req.ID, req.Value)
	case "add_item":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		id, err := sc.session.AddItem(kind)
		if err != nil {
			return err
		}
		sc.send(ctx, sessionEvent{Type: "item_added", ID: id})
		return nil
	case "remove_item":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		return sc.session.RemoveItem(kind, req.ID)
	case "add_section":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		_, err = sc.session.AddSection(kind)
		return err
	case "remove_section":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		return sc.session.RemoveSection(kind)
	case "reorder":
		order, err := section.ParseKeys(req.Order)
		if err != nil {
			return err
		}
		return sc.session.Reorder(order)
	case "set_active":
		kind, err := section.ParseKind(req.Section)
		if err != nil {
			return err
		}
		return sc.session.SetActive(kind)
	case "set_template":
		return sc.session.SetTemplate(req.Template)
	case "flush":
		sc.session.Flush()
		return nil
	case "save":
		return sc.save(ctx)
	case "reload":
		return sc.reload(ctx)
	default:
		return fmt.Errorf("unknown message type %q", req.Type)
	}
}

func (sc *sessionConn) setText(name string, raw json.RawMessage) error {
	tb, ok := textBindings[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	key := "field:" + name
	f, ok := sc.fields[key].(*editor.Field[string])
	if !ok || !f.Bound() {
		var err error
		f, err = editor.BindText(sc.session, tb.kind, tb.get, tb.set)
		if err != nil {
			return err
		}
		sc.fields[key] = f
	}
	f.Set(v)
	return nil
}

func (sc *sessionConn) setItem(kind section.Kind, id string, raw json.RawMessage) error {
	switch kind {
	case section.Experience:
		return setItem(sc, editor.Experiences, id, raw)
	case section.Education:
		return setItem(sc, editor.Educations, id, raw)
	case section.Skills:
		return setItem(sc, editor.Skills, id, raw)
	case section.Projects:
		return setItem(sc, editor.Projects, id, raw)
	case section.Certifications:
		return setItem(sc, editor.Certifications, id, raw)
	case section.Achievements:
		return setItem(sc, editor.Achievements, id, raw)
	default:
		return fmt.Errorf("%w: %s", editor.ErrNotCollection, kind)
	}
}

func setItem[T resume.Item](sc *sessionConn, c editor.Collection[T], id string, raw json.RawMessage) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode %s item: %w", c.Kind, err)
	}
	if v.ItemID() != id {
		return fmt.Errorf("%s item id mismatch", c.Kind)
	}

	key := "item:" + c.Kind.String() + ":" + id
	f, ok := sc.fields[key].(*editor.Field[T])
	if !ok || !f.Bound() {
		var err error
		f, err = editor.BindItem(sc.session, c, id)
		if err != nil {
			return err
		}
		sc.fields[key] = f
	}
	f.Set(v)
	return nil
}

// save 立即提交全部待提交编辑，并把文档整体写回存储，保留记录上的图片与导出信息。
func (sc *sessionConn) save(ctx context.Context) error {
	sc.session.Flush()
	rec, err := sc.store.Get(ctx, sc.id)
	if err != nil {
		return fmt.Errorf("load resume: %w", err)
	}
	rec.Document = sc.session.Document()
	if err := sc.store.Set(ctx, rec); err != nil {
		sc.log.Error("save editor session failed", slog.Any("error", err))
		return fmt.Errorf("save resume: %w", err)
	}
	sc.send(ctx, sessionEvent{Type: "saved", Document: &rec.Document})
	return nil
}

// reload 丢弃未提交的编辑，以存储中的版本为准。
func (sc *sessionConn) reload(ctx context.Context) error {
	rec, err := sc.store.Get(ctx, sc.id)
	if err != nil {
		return fmt.Errorf("load resume: %w", err)
	}
	sc.session.Reload(rec.Document)
	doc := sc.session.Document()
	sc.send(ctx, sessionEvent{Type: "reloaded", Document: &doc})
	return nil
}
