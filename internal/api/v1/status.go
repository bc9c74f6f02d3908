package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	dbOK := h.store.Ping() == nil
	snap := h.session.Snapshot()

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"database":     dbOK,
		"keywordCount": len(snap.Items),
		"activeCount":  snap.ActiveCount,
		"total":        snap.Total,
		"sum":          snap.Sum,
		"dirty":        snap.Dirty,
		"lastCommitAt": snap.LastCommitAt,
	})
}
