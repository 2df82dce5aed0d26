package pos

import (
	"time"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/repository"
	"github.com/meja-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrder 开立订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "订单参数格式错误", err)
		return
	}
	order, err := h.OrderService.CreateOrder(input)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 查询订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetByID(orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 查询订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		OrderNo:  c.Query("order_no"),
		TableNo:  c.Query("table_no"),
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

	orders, total, err := h.OrderService.List(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询订单列表失败", err)
		return
	}
	response.SuccessWithPage(c, orders, shared.BuildPagination(page, pageSize, total))
}

// ConfirmOrder 确认订单：派单到出品工位并扣减库存
func (h *Handler) ConfirmOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}
	order, outcome, err := h.OrderService.Confirm(orderID, staffID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.SuccessWithWarnings(c, order, outcome.Warnings)
}

// CompleteOrder 单独结账完成订单
func (h *Handler) CompleteOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}
	order, outcome, err := h.OrderService.Complete(orderID, staffID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.SuccessWithWarnings(c, order, outcome.Warnings)
}

// HoldOrder 挂起待确认订单
func (h *Handler) HoldOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Hold(orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

// ResumeOrder 恢复挂起订单
func (h *Handler) ResumeOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Resume(orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

// ValidateOrderDraft 校验订单草稿，一次返回全部问题
func (h *Handler) ValidateOrderDraft(c *gin.Context) {
	var payload service.DraftOrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "草稿参数格式错误", err)
		return
	}
	violations := h.OrderService.ValidateDraft(payload)
	response.Success(c, gin.H{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}
