package allocation

import "mentionscope/internal/model"

// ApplyOverride 用户手动设定某一项的份额，其余活跃项按当前份额比例瓜分剩余配额。
//
// targetID 不存在或不活跃时原样返回（副本）。活跃项不超过一个时，目标项固定为总量。
func (a *Allocator) ApplyOverride(items model.WorkingSet, targetID string, rawValue int) model.WorkingSet {
	out := items.Clone()

	targetIdx := -1
	for i, it := range out {
		if it.ID == targetID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 || !out[targetIdx].Active {
		return out
	}

	if a.total <= 0 {
		for i := range out {
			out[i].Share = 0
		}
		return out
	}

	if out.ActiveCount() <= 1 {
		for i := range out {
			out[i].Share = 0
		}
		out[targetIdx].Share = a.total
		return out
	}

	value := a.clamp(rawValue)
	out[targetIdx].Share = value

	others := make([]Weighted, 0, len(out)-1)
	idx := make([]int, 0, len(out)-1)
	for i, it := range out {
		if i == targetIdx {
			continue
		}
		if !it.Active {
			out[i].Share = 0
			continue
		}
		others = append(others, Weighted{ID: it.ID, Weight: it.Share})
		idx = append(idx, i)
	}

	for k, s := range Redistribute(others, a.total-value) {
		out[idx[k]].Share = s.Share
	}
	return out
}
