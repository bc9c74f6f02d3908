package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mentionscope/internal/model"
)

// KeywordInput 新建关键词参数
type KeywordInput struct {
	Label   string
	Active  bool
	Sources []string
}

// KeywordPatch 关键词部分更新；nil 字段不修改
type KeywordPatch struct {
	Label   *string
	Active  *bool
	Sources *[]string
}

const keywordColumns = "id, label, active, sources, created_at, updated_at"

func scanKeyword(row interface{ Scan(...any) error }) (model.Keyword, error) {
	var (
		k                    model.Keyword
		active               int
		sources              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&k.ID, &k.Label, &active, &sources, &createdAt, &updatedAt); err != nil {
		return model.Keyword{}, err
	}
	k.Active = active != 0
	if err := json.Unmarshal([]byte(sources), &k.Sources); err != nil {
		return model.Keyword{}, fmt.Errorf("decode sources of %s: %w", k.ID, err)
	}
	if k.Sources == nil {
		k.Sources = []string{}
	}
	k.CreatedAt = parseTime(createdAt)
	k.UpdatedAt = parseTime(updatedAt)
	return k, nil
}

func encodeSources(sources []string) (string, error) {
	if sources == nil {
		sources = []string{}
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ListKeywords 按创建顺序列出全部关键词
func (s *Store) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+keywordColumns+" FROM keywords ORDER BY position, created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	out := []model.Keyword{}
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetKeyword 获取单个关键词
func (s *Store) GetKeyword(ctx context.Context, id string) (model.Keyword, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+keywordColumns+" FROM keywords WHERE id = ?", id)
	k, err := scanKeyword(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Keyword{}, fmt.Errorf("keyword %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Keyword{}, err
	}
	return k, nil
}

// CreateKeyword 新建关键词，追加到目录末尾
func (s *Store) CreateKeyword(ctx context.Context, in KeywordInput) (model.Keyword, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return model.Keyword{}, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	sources, err := encodeSources(in.Sources)
	if err != nil {
		return model.Keyword{}, err
	}

	id := uuid.NewString()
	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO keywords (id, label, active, sources, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM keywords), ?, ?)
	`, id, label, boolToInt(in.Active), sources, now, now)
	if err != nil {
		return model.Keyword{}, fmt.Errorf("insert keyword: %w", err)
	}
	return s.GetKeyword(ctx, id)
}

// UpdateKeyword 部分更新关键词（改名、启停、来源）
func (s *Store) UpdateKeyword(ctx context.Context, id string, patch KeywordPatch) (model.Keyword, error) {
	sets := []string{}
	args := []any{}
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return model.Keyword{}, fmt.Errorf("%w: label is required", ErrInvalidInput)
		}
		sets = append(sets, "label = ?")
		args = append(args, label)
	}
	if patch.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, boolToInt(*patch.Active))
	}
	if patch.Sources != nil {
		sources, err := encodeSources(*patch.Sources)
		if err != nil {
			return model.Keyword{}, err
		}
		sets = append(sets, "sources = ?")
		args = append(args, sources)
	}
	if len(sets) == 0 {
		return s.GetKeyword(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(s.now()), id)

	res, err := s.db.ExecContext(ctx, "UPDATE keywords SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return model.Keyword{}, fmt.Errorf("update keyword: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Keyword{}, fmt.Errorf("keyword %s: %w", id, ErrNotFound)
	}
	return s.GetKeyword(ctx, id)
}

// DeleteKeyword 删除关键词及其已保存份额
func (s *Store) DeleteKeyword(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM keywords WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("keyword %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM allocation_shares WHERE keyword_id = ?", id); err != nil {
		return fmt.Errorf("delete keyword shares: %w", err)
	}
	return tx.Commit()
}
