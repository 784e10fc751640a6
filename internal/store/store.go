// Package store 提供简历记录的键值式存取：按标识整体读写，不做部分更新。
package store

import (
	"context"
	"errors"

	"resumeStudio/internal/resume"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("resume not found")

// ResumeStore 是简历记录的持久化协作方。
type ResumeStore interface {
	// Get 读取记录，不存在时返回 ErrNotFound。
	Get(ctx context.Context, id uint) (*resume.Record, error)
	// Set 在 ID 为 0 时插入并回填 ID 与时间戳，否则整体替换已有记录。
	Set(ctx context.Context, rec *resume.Record) error
	Delete(ctx context.Context, id uint) error
	// List 按创建时间倒序返回全部记录。
	List(ctx context.Context) ([]resume.Record, error)
}
