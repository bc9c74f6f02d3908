package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mentionscope/internal/logging"
	"mentionscope/internal/metrics"
	"mentionscope/internal/model"
	"mentionscope/internal/service/allocation"
)

// Options 会话参数
type Options struct {
	Total         int
	AutosaveDelay time.Duration // <=0 关闭自动保存
	Logger        *zap.Logger
	Metrics       *metrics.Collector
}

// Manager 会话管理器：持有唯一的工作集，串行处理目录变化与用户调整，并负责（去抖）持久化
type Manager struct {
	repo    Repository
	alloc   *allocation.Allocator
	log     *zap.Logger
	metrics *metrics.Collector
	delay   time.Duration

	mu         sync.Mutex
	working    model.WorkingSet
	saved      map[string]int
	undo       model.WorkingSet
	saveTimer  *time.Timer
	lastCommit time.Time
	lastErr    error
}

func NewManager(repo Repository, opts Options) *Manager {
	total := opts.Total
	if total <= 0 {
		total = model.DefaultTotal
	}
	return &Manager{
		repo:    repo,
		alloc:   allocation.New(total),
		log:     logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
		delay:   opts.AutosaveDelay,
		working: model.WorkingSet{},
		saved:   map[string]int{},
	}
}

// Load 从持久化层读取目录和已保存份额，重建工作集（丢弃内存中的修改）
func (m *Manager) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved, err := m.repo.LoadShares(ctx)
	if err != nil {
		return m.snapshotLocked(), fmt.Errorf("load saved shares: %w", err)
	}
	catalog, err := m.repo.ListKeywords(ctx)
	if err != nil {
		return m.snapshotLocked(), fmt.Errorf("list keywords: %w", err)
	}

	m.saved = saved
	m.undo = nil
	m.reconcileLocked(catalog, nil)
	m.log.Info("working set loaded",
		zap.Int("keywords", len(catalog)),
		zap.Int("saved", len(saved)),
	)
	return m.snapshotLocked(), nil
}

// Refresh 目录变化后重建工作集，优先沿用内存中的份额
func (m *Manager) Refresh(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	catalog, err := m.repo.ListKeywords(ctx)
	if err != nil {
		return m.snapshotLocked(), fmt.Errorf("list keywords: %w", err)
	}

	m.undo = nil
	m.reconcileLocked(catalog, m.working)
	m.scheduleSaveLocked()
	return m.snapshotLocked(), nil
}

// Reset 丢弃内存中的修改，按已保存份额重建
func (m *Manager) Reset(ctx context.Context) (Snapshot, error) {
	m.stopTimer()
	return m.Load(ctx)
}

// Override 用户调整单个关键词的份额
// 关键词不存在返回 ErrUnknownKeyword；不活跃时不做修改（Applied=false）
func (m *Manager) Override(id string, value int) (OverrideResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.working.Find(id)
	if !ok {
		m.metrics.Override("unknown")
		return OverrideResult{Snapshot: m.snapshotLocked()}, fmt.Errorf("%w: %s", ErrUnknownKeyword, id)
	}
	if !target.Active {
		m.metrics.Override("noop")
		return OverrideResult{Snapshot: m.snapshotLocked()}, nil
	}

	prev := m.working
	m.working = m.alloc.ApplyOverride(prev, id, value)
	m.undo = prev
	m.metrics.Override("applied")
	m.metrics.WorkingSet(m.working.ActiveCount(), m.working.ActiveSum())
	m.log.Debug("share overridden",
		zap.String("keyword", id),
		zap.Int("requested", value),
		zap.Int("share", m.shareLocked(id)),
	)
	m.scheduleSaveLocked()
	return OverrideResult{Applied: true, Snapshot: m.snapshotLocked()}, nil
}

// Undo 撤销上一次调整（单步）
func (m *Manager) Undo() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.undo == nil {
		return m.snapshotLocked(), ErrNothingToUndo
	}
	m.working = m.undo
	m.undo = nil
	m.metrics.WorkingSet(m.working.ActiveCount(), m.working.ActiveSum())
	m.scheduleSaveLocked()
	return m.snapshotLocked(), nil
}

// Snapshot 当前工作集快照
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Commit 持久化当前工作集
// 失败时保留内存中的工作集，仍视为未保存
func (m *Manager) Commit(ctx context.Context) (Snapshot, error) {
	m.stopTimer()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.commitLocked(ctx); err != nil {
		return m.snapshotLocked(), err
	}
	return m.snapshotLocked(), nil
}

// Close 停止自动保存，有未保存修改时立即保存
func (m *Manager) Close(ctx context.Context) error {
	m.stopTimer()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirtyLocked() {
		return nil
	}
	return m.commitLocked(ctx)
}

func (m *Manager) commitLocked(ctx context.Context) error {
	shares := m.working.Shares()
	err := m.repo.SaveShares(ctx, shares, m.alloc.Total())
	m.metrics.Commit(err)
	if err != nil {
		m.lastErr = err
		m.log.Warn("commit allocation failed", zap.Error(err))
		return fmt.Errorf("save shares: %w", err)
	}

	m.saved = shares
	m.lastErr = nil
	m.lastCommit = time.Now().UTC()
	m.log.Info("allocation committed",
		zap.Int("keywords", len(shares)),
		zap.Int("sum", m.working.ActiveSum()),
	)
	return nil
}

func (m *Manager) reconcileLocked(catalog []model.Keyword, working model.WorkingSet) {
	m.working = m.alloc.Reconcile(catalog, working, m.saved)
	m.metrics.Reconcile()
	m.metrics.WorkingSet(m.working.ActiveCount(), m.working.ActiveSum())
}

func (m *Manager) scheduleSaveLocked() {
	if m.delay <= 0 {
		return
	}
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(m.delay, func() {
		if _, err := m.Commit(context.Background()); err != nil {
			m.log.Warn("autosave failed", zap.Error(err))
		}
	})
}

func (m *Manager) stopTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
}

func (m *Manager) dirtyLocked() bool {
	current := m.working.Shares()
	if len(current) != len(m.saved) {
		return true
	}
	for id, share := range current {
		if v, ok := m.saved[id]; !ok || v != share {
			return true
		}
	}
	return false
}

func (m *Manager) shareLocked(id string) int {
	it, _ := m.working.Find(id)
	return it.Share
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Items:        m.working.Clone(),
		Total:        m.alloc.Total(),
		Sum:          m.working.ActiveSum(),
		ActiveCount:  m.working.ActiveCount(),
		Dirty:        m.dirtyLocked(),
		CanUndo:      m.undo != nil,
		LastCommitAt: m.lastCommit,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}
