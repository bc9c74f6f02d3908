package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// OverrideRequest 单项调整请求（滑块）
type OverrideRequest struct {
	ID    string `json:"id" binding:"required"`
	Value *int   `json:"value" binding:"required"`
}

// GetAllocation 获取当前工作集
// GET /api/allocation
func (h *Handler) GetAllocation(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Override 调整单个关键词份额，其余活跃关键词按比例重新分配
// POST /api/allocation/override
func (h *Handler) Override(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	res, err := h.session.Override(req.ID, *req.Value)
	if err != nil {
		h.respondError(c, err, "调整失败")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Undo 撤销上一次调整
// POST /api/allocation/undo
func (h *Handler) Undo(c *gin.Context) {
	snap, err := h.session.Undo()
	if err != nil {
		h.respondError(c, err, "撤销失败")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Commit 保存当前分配
// POST /api/allocation/commit
func (h *Handler) Commit(c *gin.Context) {
	snap, err := h.session.Commit(c.Request.Context())
	if err != nil {
		// 保存失败时仍返回内存中的分配，前端保留用户输入
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "保存分配失败: " + err.Error(),
			"allocation": snap,
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Reset 放弃未保存的修改
// POST /api/allocation/reset
func (h *Handler) Reset(c *gin.Context) {
	snap, err := h.session.Reset(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "重置失败")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListCommits 最近的提交记录
// GET /api/allocation/commits?limit=20
func (h *Handler) ListCommits(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须在 1-200 之间"})
		return
	}

	commits, err := h.store.ListCommits(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, "获取提交记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": commits})
}

// Export 导出当前分配为 Excel
// GET /api/allocation/export
func (h *Handler) Export(c *gin.Context) {
	keywords, err := h.store.ListKeywords(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "获取关键词失败")
		return
	}
	sources := make(map[string][]string, len(keywords))
	for _, k := range keywords {
		sources[k.ID] = k.Sources
	}

	snap := h.session.Snapshot()
	now := time.Now()
	data, err := h.exporter.ExportBytes(snap.Items, snap.Total, sources, now)
	if err != nil {
		h.respondError(c, err, "导出失败")
		return
	}

	filename := fmt.Sprintf("allocation_%s.xlsx", now.Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
