package model

import "time"

// Keyword 追踪关键词（分配目录中的可分配实体）
type Keyword struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Active    bool      `json:"active"`
	Sources   []string  `json:"sources"` // 抓取来源，如 twitter / reddit
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
