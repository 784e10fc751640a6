package resume

import (
	"github.com/google/uuid"
)

// Item 是带稳定标识的集合元素。
type Item interface {
	Experience | Education | Project | Certification | Achievement | Skill
	ItemID() string
}

// NewItemID 生成集合元素标识；基于随机 UUID，因此不会被复用。
func NewItemID() string {
	return uuid.NewString()
}

// FindByID 返回指定标识的元素。
func FindByID[T Item](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.ItemID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// ReplaceByID 返回用 item 替换同标识元素后的新切片；标识不存在时原样返回拷贝。
func ReplaceByID[T Item](items []T, item T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ItemID() == item.ItemID() {
			out[i] = item
			break
		}
	}
	return out
}

// RemoveByID 返回移除指定标识元素后的新切片。
func RemoveByID[T Item](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.ItemID() != id {
			out = append(out, it)
		}
	}
	return out
}

// ContainsID 判断集合中是否存在指定标识。
func ContainsID[T Item](items []T, id string) bool {
	_, ok := FindByID(items, id)
	return ok
}

// duplicateID 返回集合中第一个重复或为空的标识。
func duplicateID[T Item](items []T) (string, bool) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := it.ItemID()
		if id == "" {
			return "", true
		}
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}
