package allocation

import "mentionscope/internal/model"

// Allocator 配额分配器：成员变化走 Reconcile，单项调整走 ApplyOverride，
// 两者最终都落到 Redistribute。Allocator 无状态，可并发使用。
type Allocator struct {
	total int
}

// New 创建分配器，total 为配额总量
func New(total int) *Allocator {
	return &Allocator{total: total}
}

var defaultAllocator = New(model.DefaultTotal)

// Total 配额总量
func (a *Allocator) Total() int {
	return a.total
}

// ApplyOverride 使用默认总量 100 执行单项调整
func ApplyOverride(items model.WorkingSet, targetID string, rawValue int) model.WorkingSet {
	return defaultAllocator.ApplyOverride(items, targetID, rawValue)
}

// Reconcile 使用默认总量 100 重建工作集
func Reconcile(catalog []model.Keyword, working model.WorkingSet, saved map[string]int) model.WorkingSet {
	return defaultAllocator.Reconcile(catalog, working, saved)
}

func (a *Allocator) clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > a.total {
		return a.total
	}
	return v
}
