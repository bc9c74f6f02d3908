package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentionscope/internal/store"
)

// CreateKeywordRequest 新建关键词请求
type CreateKeywordRequest struct {
	Label   string   `json:"label" binding:"required"`
	Active  *bool    `json:"active"`
	Sources []string `json:"sources"`
}

// UpdateKeywordRequest 更新关键词请求（部分更新）
type UpdateKeywordRequest struct {
	Label   *string   `json:"label"`
	Active  *bool     `json:"active"`
	Sources *[]string `json:"sources"`
}

// ListKeywords 获取关键词目录
// GET /api/keywords
func (h *Handler) ListKeywords(c *gin.Context) {
	keywords, err := h.store.ListKeywords(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "获取关键词失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": keywords})
}

// CreateKeyword 新建关键词，并重建工作集
// POST /api/keywords
func (h *Handler) CreateKeyword(c *gin.Context) {
	var req CreateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	kw, err := h.store.CreateKeyword(c.Request.Context(), store.KeywordInput{
		Label:   req.Label,
		Active:  active,
		Sources: req.Sources,
	})
	if err != nil {
		h.respondError(c, err, "新建关键词失败")
		return
	}
	h.respondWithRefresh(c, http.StatusCreated, gin.H{"keyword": kw})
}

// UpdateKeyword 更新关键词（改名 / 启停 / 来源）
// PATCH /api/keywords/:id
func (h *Handler) UpdateKeyword(c *gin.Context) {
	var req UpdateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	kw, err := h.store.UpdateKeyword(c.Request.Context(), c.Param("id"), store.KeywordPatch{
		Label:   req.Label,
		Active:  req.Active,
		Sources: req.Sources,
	})
	if err != nil {
		h.respondError(c, err, "更新关键词失败")
		return
	}
	h.respondWithRefresh(c, http.StatusOK, gin.H{"keyword": kw})
}

// DeleteKeyword 删除关键词
// DELETE /api/keywords/:id
func (h *Handler) DeleteKeyword(c *gin.Context) {
	if err := h.store.DeleteKeyword(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "删除关键词失败")
		return
	}
	h.respondWithRefresh(c, http.StatusOK, gin.H{})
}
