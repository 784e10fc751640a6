package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// MemoryStore 是进程内的 ResumeStore，供命令行工具与测试使用。
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint
	records map[uint]resume.Record
	now     func() time.Time
}

// NewMemoryStore 创建空的 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint]resume.Record), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id uint) (*resume.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) Set(_ context.Context, rec *resume.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.Document = stored.Document.Normalize()
	stored.Document.Sections = section.Normalize(stored.Document.Sections.Order, stored.Document.Sections.Active)
	now := m.now()
	if stored.ID == 0 {
		m.nextID++
		stored.ID = m.nextID
		stored.CreatedAt = now
	} else {
		prev, ok := m.records[stored.ID]
		if !ok {
			return ErrNotFound
		}
		stored.CreatedAt = prev.CreatedAt
	}
	stored.UpdatedAt = now
	m.records[stored.ID] = stored
	*rec = stored
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]resume.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]resume.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
