package allocation

import "sort"

// Weighted 参与按比例分配的条目
type Weighted struct {
	ID     string
	Weight int
}

// Share 分配结果
type Share struct {
	ID    string
	Share int
}

// Redistribute 按权重把 total 拆分为整数份额（最大余数法）
// 结果之和恒等于 total（total <= 0 时全部为 0）；余数相同按输入顺序。
// 权重全为 0 时平均分配，余下的单位依次给前面的条目。
// 调用方需保证 权重和*total 不超出 int64。
func Redistribute(items []Weighted, total int) []Share {
	out := make([]Share, len(items))
	for i, it := range items {
		out[i].ID = it.ID
	}
	n := len(items)
	if n == 0 || total <= 0 {
		return out
	}

	var sum int64
	for _, it := range items {
		if it.Weight > 0 {
			sum += int64(it.Weight)
		}
	}

	if sum == 0 {
		base := total / n
		extra := total % n
		for i := range out {
			out[i].Share = base
			if i < extra {
				out[i].Share++
			}
		}
		return out
	}

	// 用整数运算：share = floor(w*total/sum)，余数 = w*total mod sum
	type remainder struct {
		idx int
		rem int64
	}
	rems := make([]remainder, n)
	assigned := 0
	for i, it := range items {
		w := int64(it.Weight)
		if w < 0 {
			w = 0
		}
		p := w * int64(total)
		out[i].Share = int(p / sum)
		rems[i] = remainder{idx: i, rem: p % sum}
		assigned += out[i].Share
	}

	deficit := total - assigned
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].rem > rems[j].rem
	})
	for k := 0; k < deficit && k < n; k++ {
		out[rems[k].idx].Share++
	}
	return out
}
