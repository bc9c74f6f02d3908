package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"mentionscope/internal/model"
	"mentionscope/internal/service/session"
	"mentionscope/internal/store"
)

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	sess   *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(st *store.Store) session.Repository { return st })
}

func newTestEnvWith(t *testing.T, repo func(*store.Store) session.Repository) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "mentionscope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sess := session.NewManager(repo(st), session.Options{Total: 100})
	_, err = sess.Load(context.Background())
	require.NoError(t, err)

	router := gin.New()
	NewHandler(st, sess, nil).RegisterRoutes(router.Group("/api"))
	return &testEnv{router: router, store: st, sess: sess}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type keywordResponse struct {
	Keyword struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	} `json:"keyword"`
	Allocation session.Snapshot `json:"allocation"`
}

func (e *testEnv) createKeyword(t *testing.T, label string) keywordResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/keywords", gin.H{"label": label, "sources": []string{"twitter"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp keywordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestKeywordFlowRebalances(t *testing.T) {
	env := newTestEnv(t)

	a := env.createKeyword(t, "品牌词")
	require.Equal(t, 100, a.Allocation.Items.Shares()[a.Keyword.ID])

	b := env.createKeyword(t, "竞品词")
	c := env.createKeyword(t, "活动词")
	require.Equal(t, 100, c.Allocation.Sum)
	require.Len(t, c.Allocation.Items, 3)

	// 停用 b
	w := env.do(t, http.MethodPatch, "/api/keywords/"+b.Keyword.ID, gin.H{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var upd keywordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &upd))
	require.False(t, upd.Keyword.Active)
	require.Equal(t, 0, upd.Allocation.Items.Shares()[b.Keyword.ID])
	require.Equal(t, 100, upd.Allocation.Sum)

	// 删除 a
	w = env.do(t, http.MethodDelete, "/api/keywords/"+a.Keyword.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.sess.Snapshot().Items, 2)
	require.Equal(t, 100, env.sess.Snapshot().Items.Shares()[c.Keyword.ID])

	w = env.do(t, http.MethodDelete, "/api/keywords/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverrideCommitAndCommits(t *testing.T) {
	env := newTestEnv(t)
	a := env.createKeyword(t, "品牌词")
	b := env.createKeyword(t, "竞品词")

	w := env.do(t, http.MethodPost, "/api/allocation/override", gin.H{"id": a.Keyword.ID, "value": 130})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res session.OverrideResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Applied)
	require.Equal(t, 100, res.Snapshot.Items.Shares()[a.Keyword.ID])
	require.Equal(t, 0, res.Snapshot.Items.Shares()[b.Keyword.ID])

	w = env.do(t, http.MethodPost, "/api/allocation/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/allocation/undo", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/allocation/override", gin.H{"id": b.Keyword.ID, "value": 0})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/allocation/commit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := env.store.LoadShares(context.Background())
	require.NoError(t, err)
	require.Equal(t, 100, saved[a.Keyword.ID])
	require.Equal(t, 0, saved[b.Keyword.ID])

	w = env.do(t, http.MethodGet, "/api/allocation/commits?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var commits struct {
		Items []store.Commit `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &commits))
	require.Len(t, commits.Items, 1)

	w = env.do(t, http.MethodGet, "/api/allocation/commits?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverrideErrors(t *testing.T) {
	env := newTestEnv(t)
	env.createKeyword(t, "品牌词")

	w := env.do(t, http.MethodPost, "/api/allocation/override", gin.H{"id": "missing", "value": 10})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/allocation/override", gin.H{"id": "missing"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.createKeyword(t, "品牌词")

	w := env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, true, status["database"])
	require.Equal(t, float64(100), status["sum"])

	w = env.do(t, http.MethodGet, "/api/allocation/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	require.NotEmpty(t, w.Body.Bytes())
}

func TestCreateKeywordErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/keywords", gin.H{"label": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	require.NoError(t, env.store.Close())
	w = env.do(t, http.MethodPost, "/api/keywords", gin.H{"label": "品牌词"})
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
}

// failingCatalog 在 fail 置位后让目录读取失败，写入仍走真实存储
type failingCatalog struct {
	*store.Store
	fail atomic.Bool
}

func (f *failingCatalog) ListKeywords(ctx context.Context) ([]model.Keyword, error) {
	if f.fail.Load() {
		return nil, errors.New("catalog unavailable")
	}
	return f.Store.ListKeywords(ctx)
}

func TestKeywordChangeSurvivesRefreshFailure(t *testing.T) {
	var repo *failingCatalog
	env := newTestEnvWith(t, func(st *store.Store) session.Repository {
		repo = &failingCatalog{Store: st}
		return repo
	})
	first := env.createKeyword(t, "品牌词")

	repo.fail.Store(true)
	w := env.do(t, http.MethodPost, "/api/keywords", gin.H{"label": "竞品词"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		keywordResponse
		RefreshError string `json:"refreshError"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Keyword.ID)
	require.Contains(t, resp.RefreshError, "catalog unavailable")
	// 工作集保持上一次的结果
	require.Len(t, resp.Allocation.Items, 1)
	require.Equal(t, first.Keyword.ID, resp.Allocation.Items[0].ID)

	w = env.do(t, http.MethodDelete, "/api/keywords/"+first.Keyword.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list, err := env.store.ListKeywords(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	repo.fail.Store(false)
	snap, err := env.sess.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.Equal(t, 100, snap.Sum)
}
