package editor

import (
	"fmt"
	"log/slog"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// Field 是绑定到共享文档某个位置的本地编辑值。Set 同步更新本地值，
// 静默窗口结束后才把最后一次的值写回共享文档。
type Field[T any] struct {
	s     *Session
	kind  section.Kind
	id    string
	get   func(resume.Document) (T, bool)
	set   func(resume.Document, T) (resume.Document, bool)
	local T
	timer Timer
	seq   uint64
}

func newField[T any](s *Session, kind section.Kind, id string,
	get func(resume.Document) (T, bool),
	set func(resume.Document, T) (resume.Document, bool),
) (*Field[T], error) {
	f := &Field[T]{s: s, kind: kind, id: id, get: get, set: set}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	v, ok := get(s.doc)
	if !ok {
		return nil, fmt.Errorf("%w: %s[%s]", ErrUnknownItem, kind, id)
	}
	f.local = v
	s.bindings[f] = struct{}{}
	return f, nil
}

// BindText 绑定一个文本字段，如简介、兴趣或个人信息中的某一项。
func BindText(s *Session, kind section.Kind, get func(resume.Data) string, set func(*resume.Data, string)) (*Field[string], error) {
	return newField(s, kind, "",
		func(doc resume.Document) (string, bool) { return get(doc.Data), true },
		func(doc resume.Document, v string) (resume.Document, bool) {
			set(&doc.Data, v)
			return doc, true
		},
	)
}

// BindItem 按标识绑定集合中的一个元素。提交时若元素已被删除，该次提交被丢弃。
func BindItem[T resume.Item](s *Session, c Collection[T], id string) (*Field[T], error) {
	return newField(s, c.Kind, id,
		func(doc resume.Document) (T, bool) { return resume.FindByID(c.Get(doc.Data), id) },
		func(doc resume.Document, v T) (resume.Document, bool) {
			items := c.Get(doc.Data)
			if !resume.ContainsID(items, id) || v.ItemID() != id {
				return doc, false
			}
			c.Set(&doc.Data, resume.ReplaceByID(items, v))
			return doc, true
		},
	)
}

// Value 返回本地值（可能尚未提交）。
func (f *Field[T]) Value() T {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.local
}

// Pending 表示是否有尚未提交的编辑。
func (f *Field[T]) Pending() bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.timer != nil
}

// Bound 表示字段是否仍绑定在会话上。
func (f *Field[T]) Bound() bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.bound(f)
}

// Set 更新本地值并重置静默计时器。已解绑的字段忽略写入。
func (f *Field[T]) Set(v T) bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if !f.s.bound(f) {
		return false
	}
	f.setLocked(v)
	return true
}

// Update 基于当前本地值修改，便于只改元素中的一个属性。
// 读取与写入在同一次加锁内完成；fn 不得再调用该会话的方法。
func (f *Field[T]) Update(fn func(T) T) bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if !f.s.bound(f) {
		return false
	}
	f.setLocked(fn(f.local))
	return true
}

func (f *Field[T]) setLocked(v T) {
	f.local = v
	f.stopLocked()
	seq := f.seq
	f.timer = f.s.sched.AfterFunc(f.s.window, func() { f.fire(seq) })
}

// Flush 立即提交待提交的编辑。
func (f *Field[T]) Flush() {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.bound(f) {
		f.flushLocked()
	}
}

func (f *Field[T]) fire(seq uint64) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	// 被 Reload、解绑或更新的 Set 取代的计时器
	if seq != f.seq || f.timer == nil || !f.s.bound(f) {
		return
	}
	f.commitLocked()
}

func (f *Field[T]) commitLocked() {
	f.timer = nil
	doc, ok := f.set(f.s.doc, f.local)
	if !ok {
		f.s.logger.Debug("drop commit for missing item",
			slog.String("section", f.kind.String()),
			slog.String("item_id", f.id),
		)
		return
	}
	f.s.doc = doc
	f.s.commitLocked()
}

func (f *Field[T]) sectionKind() section.Kind { return f.kind }

func (f *Field[T]) itemID() string { return f.id }

func (f *Field[T]) stopLocked() {
	f.seq++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Field[T]) resyncLocked(doc resume.Document) bool {
	v, ok := f.get(doc)
	if !ok {
		return false
	}
	f.local = v
	return true
}

func (f *Field[T]) flushLocked() {
	if f.timer == nil {
		return
	}
	f.timer.Stop()
	f.seq++
	f.commitLocked()
}
