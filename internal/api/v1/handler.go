package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mentionscope/internal/logging"
	"mentionscope/internal/service/export"
	"mentionscope/internal/service/session"
	"mentionscope/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store    *store.Store
	session  *session.Manager
	exporter *export.Exporter
	log      *zap.Logger
}

// NewHandler 创建 V1 API 处理器
func NewHandler(st *store.Store, sess *session.Manager, log *zap.Logger) *Handler {
	return &Handler{
		store:    st,
		session:  sess,
		exporter: export.NewExporter(),
		log:      logging.OrNop(log),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 关键词目录
	router.GET("/keywords", h.ListKeywords)
	router.POST("/keywords", h.CreateKeyword)
	router.PATCH("/keywords/:id", h.UpdateKeyword)
	router.DELETE("/keywords/:id", h.DeleteKeyword)

	// 配额分配
	router.GET("/allocation", h.GetAllocation)
	router.POST("/allocation/override", h.Override)
	router.POST("/allocation/undo", h.Undo)
	router.POST("/allocation/commit", h.Commit)
	router.POST("/allocation/reset", h.Reset)
	router.GET("/allocation/commits", h.ListCommits)
	router.GET("/allocation/export", h.Export)
}

// respondError 按错误类型映射 HTTP 状态码
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrUnknownKeyword):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNothingToUndo):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{"error": message + ": " + err.Error()})
}

// respondWithRefresh 目录已写入后重建工作集并返回；
// 重建失败时修改仍然生效，返回旧的工作集并附带 refreshError
func (h *Handler) respondWithRefresh(c *gin.Context, status int, body gin.H) {
	snap, err := h.session.Refresh(c.Request.Context())
	body["allocation"] = snap
	if err != nil {
		h.log.Warn("重建分配失败", zap.Error(err), zap.String("path", c.FullPath()))
		body["refreshError"] = err.Error()
	}
	c.JSON(status, body)
}
