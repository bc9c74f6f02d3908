package allocation

import "mentionscope/internal/model"

// SeedSource 种子权重来源
type SeedSource int

const (
	SeedDefault SeedSource = iota // 无任何记录，取 0
	SeedSaved                     // 持久化的已保存份额
	SeedWorking                   // 内存中上一次的份额
)

func (s SeedSource) String() string {
	switch s {
	case SeedWorking:
		return "working"
	case SeedSaved:
		return "saved"
	default:
		return "default"
	}
}

// seeder 三级查找：内存 -> 已保存 -> 0
type seeder struct {
	working map[string]int
	saved   map[string]int
}

func newSeeder(working model.WorkingSet, saved map[string]int) seeder {
	w := make(map[string]int, len(working))
	for _, it := range working {
		// 不活跃项份额被固定为 0，不携带比例信息
		if !it.Active {
			continue
		}
		if _, dup := w[it.ID]; !dup {
			w[it.ID] = it.Share
		}
	}
	return seeder{working: w, saved: saved}
}

func (s seeder) seedFor(id string) (int, SeedSource) {
	if v, ok := s.working[id]; ok {
		return v, SeedWorking
	}
	if v, ok := s.saved[id]; ok {
		return v, SeedSaved
	}
	return 0, SeedDefault
}

// SeedFor 返回某个 id 在给定工作集和已保存份额下的种子权重及来源
func SeedFor(id string, working model.WorkingSet, saved map[string]int) (int, SeedSource) {
	return newSeeder(working, saved).seedFor(id)
}

// Reconcile 目录变化（新增/删除/启停）后重建工作集
// 输出顺序与 catalog 一致；活跃项按种子权重重新归一到总量，不活跃项为 0。
func (a *Allocator) Reconcile(catalog []model.Keyword, working model.WorkingSet, saved map[string]int) model.WorkingSet {
	out := make(model.WorkingSet, len(catalog))
	seeds := newSeeder(working, saved)

	active := make([]Weighted, 0, len(catalog))
	idx := make([]int, 0, len(catalog))
	for i, kw := range catalog {
		out[i] = model.AllocationItem{ID: kw.ID, Label: kw.Label, Active: kw.Active}
		if !kw.Active {
			continue
		}
		// 种子来自存储或上一次结果，限制在 [0,total] 内，避免乘积溢出
		w, _ := seeds.seedFor(kw.ID)
		active = append(active, Weighted{ID: kw.ID, Weight: a.clamp(w)})
		idx = append(idx, i)
	}

	for k, s := range Redistribute(active, a.total) {
		out[idx[k]].Share = s.Share
	}
	return out
}
