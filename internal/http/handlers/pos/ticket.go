package pos

import (
	"strconv"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListTickets 出品工单列表（厨房/吧台看板轮询）
func (h *Handler) ListTickets(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.TicketListFilter{
		Page:        page,
		PageSize:    pageSize,
		Destination: c.Query("destination"),
		Status:      c.Query("status"),
		OnlyUrgent:  c.Query("urgent") == "true",
	}
	if raw := c.Query("order_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(id)
		}
	}

	tickets, total, err := h.TicketService.List(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询工单列表失败", err)
		return
	}
	response.SuccessWithPage(c, tickets, shared.BuildPagination(page, pageSize, total))
}

type updateTicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTicketStatus 流转工单状态，并回写父订单出品进度
func (h *Handler) UpdateTicketStatus(c *gin.Context) {
	ticketID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req updateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "工单状态参数格式错误", err)
		return
	}
	ticket, err := h.TicketService.UpdateStatus(ticketID, req.Status)
	if err != nil {
		respondTicketError(c, err)
		return
	}
	response.Success(c, ticket)
}
