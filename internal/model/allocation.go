package model

// DefaultTotal 配额总量（百分点）
const DefaultTotal = 100

// AllocationItem 分配单元
type AllocationItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Share  int    `json:"share"`
	Active bool   `json:"active"`
}

// WorkingSet 当前会话中正在编辑的分配集合（有序）
type WorkingSet []AllocationItem

// Clone 深拷贝
func (ws WorkingSet) Clone() WorkingSet {
	if ws == nil {
		return nil
	}
	out := make(WorkingSet, len(ws))
	copy(out, ws)
	return out
}

// ActiveSum 活跃项份额之和
func (ws WorkingSet) ActiveSum() int {
	sum := 0
	for _, it := range ws {
		if it.Active {
			sum += it.Share
		}
	}
	return sum
}

// ActiveCount 活跃项数量
func (ws WorkingSet) ActiveCount() int {
	n := 0
	for _, it := range ws {
		if it.Active {
			n++
		}
	}
	return n
}

// Shares 转为 id -> share 映射（用于持久化）
func (ws WorkingSet) Shares() map[string]int {
	out := make(map[string]int, len(ws))
	for _, it := range ws {
		out[it.ID] = it.Share
	}
	return out
}

// Find 按 id 查找
func (ws WorkingSet) Find(id string) (AllocationItem, bool) {
	for _, it := range ws {
		if it.ID == id {
			return it, true
		}
	}
	return AllocationItem{}, false
}
