package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Commit 一次分配提交记录
type Commit struct {
	ID          int64          `json:"id"`
	CommittedAt time.Time      `json:"committedAt"`
	Total       int            `json:"total"`
	Shares      map[string]int `json:"shares"`
}

// LoadShares 读取已保存的份额 id -> share；无记录时返回空 map
func (s *Store) LoadShares(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT keyword_id, share FROM allocation_shares")
	if err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			share int
		)
		if err := rows.Scan(&id, &share); err != nil {
			return nil, err
		}
		out[id] = share
	}
	return out, rows.Err()
}

// SaveShares 用 shares 整体替换已保存份额，并追加一条提交记录
func (s *Store) SaveShares(ctx context.Context, shares map[string]int, total int) error {
	payload, err := json.Marshal(shares)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM allocation_shares"); err != nil {
		return fmt.Errorf("clear shares: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO allocation_shares (keyword_id, share, updated_at) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := formatTime(s.now())
	ids := make([]string, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, shares[id], now); err != nil {
			return fmt.Errorf("insert share %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO allocation_commits (committed_at, total, payload) VALUES (?, ?, ?)",
		now, total, string(payload),
	); err != nil {
		return fmt.Errorf("insert commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListCommits 最近的提交记录，按时间倒序
func (s *Store) ListCommits(ctx context.Context, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, committed_at, total, payload FROM allocation_commits ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	out := []Commit{}
	for rows.Next() {
		var (
			c           Commit
			committedAt string
			payload     string
		)
		if err := rows.Scan(&c.ID, &committedAt, &c.Total, &payload); err != nil {
			return nil, err
		}
		c.CommittedAt = parseTime(committedAt)
		if err := json.Unmarshal([]byte(payload), &c.Shares); err != nil {
			return nil, fmt.Errorf("decode commit %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
