package admin

import (
	"strconv"
	"time"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs 审计日志列表（作废、减项、盘点、低库存告警等）
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.AuditLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Action:   c.Query("action"),
	}
	if raw := c.Query("order_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(id)
		}
	}
	if raw := c.Query("session_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.SessionID = uint(id)
		}
	}
	if raw := c.Query("actor_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.ActorID = uint(id)
		}
	}
	if from := c.Query("created_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if to := c.Query("created_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.CreatedTo = &t
		}
	}

	logs, total, err := h.AuditRepo.List(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询审计日志失败", err)
		return
	}
	response.SuccessWithPage(c, logs, shared.BuildPagination(page, pageSize, total))
}
