// Package editor 实现编辑会话：字段级防抖提交、分区增删排序，以及外部变更时的重新同步。
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// DefaultDebounce 是字段提交前的静默窗口。
const DefaultDebounce = 400 * time.Millisecond

var (
	// ErrClosed 表示会话已关闭。
	ErrClosed = errors.New("editor session closed")
	// ErrUnknownItem 表示集合中不存在该元素。
	ErrUnknownItem = errors.New("item not found")
	// ErrNotCollection 表示该分区没有可增删的元素。
	ErrNotCollection = errors.New("section has no items")
)

// Options 配置 Session。
type Options struct {
	Debounce  time.Duration
	Scheduler Scheduler
	// OnCommit 在会话锁内调用，回调中不能再调用 Session 的方法。
	OnCommit func(resume.Document)
	Logger   *slog.Logger
}

// binding 是 Session 视角下的已绑定字段，与值类型无关。
type binding interface {
	sectionKind() section.Kind
	itemID() string
	stopLocked()
	resyncLocked(doc resume.Document) bool
	flushLocked()
}

// Session 持有共享文档。所有提交与分区变更都在同一把锁下串行执行。
type Session struct {
	mu       sync.Mutex
	doc      resume.Document
	sched    Scheduler
	window   time.Duration
	onCommit func(resume.Document)
	logger   *slog.Logger
	bindings map[binding]struct{}
	commits  int
	closed   bool
}

// NewSession 基于初始文档创建会话。
func NewSession(doc resume.Document, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	doc = doc.Normalize()
	doc.Sections = section.Normalize(doc.Sections.Order, doc.Sections.Active)
	return &Session{
		doc:      doc,
		sched:    opts.Scheduler,
		window:   opts.Debounce,
		onCommit: opts.OnCommit,
		logger:   opts.Logger,
		bindings: make(map[binding]struct{}),
	}
}

// Document 返回当前共享文档的快照。
func (s *Session) Document() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Commits 返回已应用到共享文档的变更次数。
func (s *Session) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Reload 用外部文档替换共享文档：所有未提交的字段编辑被取代，本地值重新同步，
// 已不存在的元素对应的字段被解绑。
func (s *Session) Reload(doc resume.Document) {
	doc = doc.Normalize()
	doc.Sections = section.Normalize(doc.Sections.Order, doc.Sections.Active)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.doc = doc
	for b := range s.bindings {
		b.stopLocked()
		if !b.resyncLocked(doc) {
			delete(s.bindings, b)
		}
	}
	s.logger.Debug("editor session reloaded", slog.Int("fields", len(s.bindings)))
}

// Flush 立即提交所有待提交的字段编辑。
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for b := range s.bindings {
		b.flushLocked()
	}
}

// Close 取消全部定时器，之后的编辑与回调都被忽略。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for b := range s.bindings {
		b.stopLocked()
		delete(s.bindings, b)
	}
}

// AddSection 启用一个可选分区。
func (s *Session) AddSection(kind section.Kind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	layout := s.doc.Sections.Clone()
	if !layout.AddCustom(kind) {
		return false, nil
	}
	s.doc.Sections = layout
	s.commitLocked()
	return true, nil
}

// RemoveSection 移除可选分区：先取消并解绑该分区内所有字段，再清空其数据。
func (s *Session) RemoveSection(kind section.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	layout := s.doc.Sections.Clone()
	if err := layout.RemoveCustom(kind); err != nil {
		return err
	}
	s.unbindLocked(func(b binding) bool { return b.sectionKind() == kind })

	doc := s.doc
	doc.Sections = layout
	switch kind {
	case section.Achievements:
		doc.Data.Achievements = []resume.Achievement{}
	case section.Interests:
		doc.Data.Interests = ""
	}
	s.doc = doc
	s.commitLocked()
	return nil
}

// Reorder 设置新的分区顺序，必须是当前顺序的合法排列。
func (s *Session) Reorder(order []section.Kind) error {
	return s.mutateLayout(func(l *section.Layout) error { return l.Reorder(order) })
}

// SetActive 切换当前编辑的分区。
func (s *Session) SetActive(kind section.Kind) error {
	return s.mutateLayout(func(l *section.Layout) error { return l.SetActive(kind) })
}

func (s *Session) mutateLayout(fn func(*section.Layout) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	layout := s.doc.Sections.Clone()
	if err := fn(&layout); err != nil {
		return err
	}
	s.doc.Sections = layout
	s.commitLocked()
	return nil
}

// SetTemplate 切换模板编号。
func (s *Session) SetTemplate(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.doc.Template = n
	s.commitLocked()
	return nil
}

// AddItem 在集合分区末尾追加一个带新标识的空元素，返回其标识。
func (s *Session) AddItem(kind section.Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	id := resume.NewItemID()
	d := s.doc.Data
	switch kind {
	case section.Experience:
		d.Experience = appendCopy(d.Experience, resume.Experience{ID: id})
	case section.Education:
		d.Education = appendCopy(d.Education, resume.Education{ID: id})
	case section.Skills:
		d.Skills = appendCopy(d.Skills, resume.Skill{ID: id, Level: resume.Intermediate, Category: resume.Technical})
	case section.Projects:
		d.Projects = appendCopy(d.Projects, resume.Project{ID: id})
	case section.Certifications:
		d.Certifications = appendCopy(d.Certifications, resume.Certification{ID: id})
	case section.Achievements:
		d.Achievements = appendCopy(d.Achievements, resume.Achievement{ID: id})
	default:
		return "", fmt.Errorf("%w: %s", ErrNotCollection, kind)
	}
	s.doc.Data = d
	s.commitLocked()
	return id, nil
}

// RemoveItem 删除集合元素并解绑其字段，待提交的编辑随之丢弃。
func (s *Session) RemoveItem(kind section.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	d := s.doc.Data
	var found bool
	switch kind {
	case section.Experience:
		found = resume.ContainsID(d.Experience, id)
		d.Experience = resume.RemoveByID(d.Experience, id)
	case section.Education:
		found = resume.ContainsID(d.Education, id)
		d.Education = resume.RemoveByID(d.Education, id)
	case section.Skills:
		found = resume.ContainsID(d.Skills, id)
		d.Skills = resume.RemoveByID(d.Skills, id)
	case section.Projects:
		found = resume.ContainsID(d.Projects, id)
		d.Projects = resume.RemoveByID(d.Projects, id)
	case section.Certifications:
		found = resume.ContainsID(d.Certifications, id)
		d.Certifications = resume.RemoveByID(d.Certifications, id)
	case section.Achievements:
		found = resume.ContainsID(d.Achievements, id)
		d.Achievements = resume.RemoveByID(d.Achievements, id)
	default:
		return fmt.Errorf("%w: %s", ErrNotCollection, kind)
	}
	if !found {
		return fmt.Errorf("%w: %s[%s]", ErrUnknownItem, kind, id)
	}
	s.unbindLocked(func(b binding) bool { return b.sectionKind() == kind && b.itemID() == id })
	s.doc.Data = d
	s.commitLocked()
	return nil
}

func (s *Session) unbindLocked(match func(binding) bool) {
	for b := range s.bindings {
		if match(b) {
			b.stopLocked()
			delete(s.bindings, b)
		}
	}
}

func (s *Session) bound(b binding) bool {
	_, ok := s.bindings[b]
	return ok && !s.closed
}

func (s *Session) commitLocked() {
	s.commits++
	if s.onCommit != nil {
		s.onCommit(s.doc)
	}
}

func appendCopy[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}
