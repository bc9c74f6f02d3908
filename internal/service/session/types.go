package session

import (
	"context"
	"errors"
	"time"

	"mentionscope/internal/model"
)

var (
	// ErrUnknownKeyword 工作集中不存在该关键词
	ErrUnknownKeyword = errors.New("unknown keyword")
	// ErrNothingToUndo 没有可撤销的调整
	ErrNothingToUndo = errors.New("nothing to undo")
)

// Repository 会话依赖的目录与持久化协作者
type Repository interface {
	ListKeywords(ctx context.Context) ([]model.Keyword, error)
	LoadShares(ctx context.Context) (map[string]int, error)
	SaveShares(ctx context.Context, shares map[string]int, total int) error
}

// Snapshot 工作集快照（用于 API 返回）
type Snapshot struct {
	Items        model.WorkingSet `json:"items"`
	Total        int              `json:"total"`
	Sum          int              `json:"sum"`
	ActiveCount  int              `json:"activeCount"`
	Dirty        bool             `json:"dirty"`
	CanUndo      bool             `json:"canUndo"`
	LastCommitAt time.Time        `json:"lastCommitAt,omitempty"`
	LastError    string           `json:"lastError,omitempty"`
}

// OverrideResult 单项调整结果
type OverrideResult struct {
	Applied  bool     `json:"applied"`
	Snapshot Snapshot `json:"snapshot"`
}
