package section

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder 表示新的分区顺序不是已启用分区的合法排列。
	ErrInvalidOrder = errors.New("invalid section order")
	// ErrNotRemovable 表示尝试移除内置分区。
	ErrNotRemovable = errors.New("section is not removable")
	// ErrNotEnabled 表示分区尚未启用。
	ErrNotEnabled = errors.New("section is not enabled")
)

// Layout 保存已启用分区的展示顺序以及当前正在编辑的分区。
// 不变式：Order 恰好是已启用分区集合的一个排列，且 personal、summary 固定在 0、1 位。
type Layout struct {
	Order  []Kind `json:"order"`
	Active Kind   `json:"active"`
}

// DefaultLayout 返回只启用内置分区的初始布局。
func DefaultLayout() Layout {
	return Layout{
		Order:  append([]Kind(nil), builtinOrder...),
		Active: Personal,
	}
}

// Clone 返回一份互不共享底层数组的拷贝。
func (l Layout) Clone() Layout {
	return Layout{Order: append([]Kind(nil), l.Order...), Active: l.Active}
}

// Contains 判断分区是否已启用。
func (l Layout) Contains(kind Kind) bool {
	for _, k := range l.Order {
		if k == kind {
			return true
		}
	}
	return false
}

// Enabled 返回已启用分区的集合。
func (l Layout) Enabled() map[Kind]struct{} {
	out := make(map[Kind]struct{}, len(l.Order))
	for _, k := range l.Order {
		out[k] = struct{}{}
	}
	return out
}

// AddCustom 启用一个可选分区并追加到末尾；已启用或非可选分区时静默忽略。
// 返回值表示布局是否发生变化。
func (l *Layout) AddCustom(kind Kind) bool {
	if !kind.Custom() || l.Contains(kind) {
		return false
	}
	l.Order = append(l.Order, kind)
	return true
}

// RemoveCustom 从启用集合与顺序中同时移除一个可选分区。
// 若被移除的是当前分区，当前分区回落到 personal。
func (l *Layout) RemoveCustom(kind Kind) error {
	if !kind.Custom() {
		return fmt.Errorf("remove %s: %w", kind, ErrNotRemovable)
	}
	idx := -1
	for i, k := range l.Order {
		if k == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", kind, ErrNotEnabled)
	}
	next := make([]Kind, 0, len(l.Order)-1)
	next = append(next, l.Order[:idx]...)
	next = append(next, l.Order[idx+1:]...)
	l.Order = next
	if l.Active == kind {
		l.Active = Personal
	}
	return nil
}

// Reorder 以新顺序替换当前顺序。新顺序必须是已启用集合的排列并保持固定前缀，
// 否则返回 ErrInvalidOrder 且布局保持不变。
func (l *Layout) Reorder(order []Kind) error {
	if err := checkPermutation(l.Order, order); err != nil {
		return err
	}
	l.Order = append([]Kind(nil), order...)
	return nil
}

// SetActive 切换当前编辑的分区。
func (l *Layout) SetActive(kind Kind) error {
	if !l.Contains(kind) {
		return fmt.Errorf("activate %s: %w", kind, ErrNotEnabled)
	}
	l.Active = kind
	return nil
}

// Validate 检查布局是否满足不变式。
func (l Layout) Validate() error {
	if len(l.Order) < 2 || l.Order[0] != Personal || l.Order[1] != Summary {
		return fmt.Errorf("%w: personal and summary must lead", ErrInvalidOrder)
	}
	seen := make(map[Kind]struct{}, len(l.Order))
	for _, k := range l.Order {
		if !k.Valid() {
			return fmt.Errorf("%w: unknown section %d", ErrInvalidOrder, uint8(k))
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate section %s", ErrInvalidOrder, k)
		}
		seen[k] = struct{}{}
	}
	for _, k := range builtinOrder {
		if _, ok := seen[k]; !ok {
			return fmt.Errorf("%w: missing section %s", ErrInvalidOrder, k)
		}
	}
	if l.Active != 0 && !l.Contains(l.Active) {
		return fmt.Errorf("%w: active section %s not enabled", ErrInvalidOrder, l.Active)
	}
	return nil
}

// ValidateOrder 检查客户端提交的顺序：无重复、personal 与 summary 居首、内置分区齐全。
// 与 Normalize 不同，它只报告错误，不做修复。
func ValidateOrder(order []Kind) error {
	return Layout{Order: order}.Validate()
}

// Normalize 修复来自存储或客户端的布局：去掉未知与重复分区、补齐内置分区、恢复固定前缀。
// 其余分区保持原有相对顺序。
func Normalize(order []Kind, active Kind) Layout {
	seen := map[Kind]struct{}{Personal: {}, Summary: {}}
	out := []Kind{Personal, Summary}
	for _, k := range order {
		if !k.Valid() {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range builtinOrder {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	l := Layout{Order: out, Active: active}
	if !l.Contains(active) {
		l.Active = Personal
	}
	return l
}

func checkPermutation(current, next []Kind) error {
	if len(next) != len(current) {
		return fmt.Errorf("%w: expected %d sections, got %d", ErrInvalidOrder, len(current), len(next))
	}
	if len(next) < 2 || next[0] != Personal || next[1] != Summary {
		return fmt.Errorf("%w: personal and summary must stay first", ErrInvalidOrder)
	}
	want := make(map[Kind]int, len(current))
	for _, k := range current {
		want[k]++
	}
	for _, k := range next {
		if want[k] == 0 {
			return fmt.Errorf("%w: section %s not enabled or repeated", ErrInvalidOrder, k)
		}
		want[k]--
	}
	return nil
}
