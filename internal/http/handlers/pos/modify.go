package pos

import (
	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"

	"github.com/gin-gonic/gin"
)

type reduceItemRequest struct {
	NewQuantity int    `json:"new_quantity" binding:"required"`
	Reason      string `json:"reason,omitempty"`
}

// ReduceOrderItem 减少已确认订单中某项的数量
func (h *Handler) ReduceOrderItem(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "item_id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}

	var req reduceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "减量参数格式错误", err)
		return
	}

	order, outcome, err := h.ModifyService.ReduceItemQuantity(orderID, itemID, req.NewQuantity, staffID, req.Reason)
	if err != nil {
		respondOrderModifyError(c, err)
		return
	}
	response.SuccessWithWarnings(c, order, outcome.Warnings)
}

type removeItemRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RemoveOrderItem 移除已确认订单中的某项
func (h *Handler) RemoveOrderItem(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "item_id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}

	var req removeItemRequest
	// DELETE 请求体可为空
	_ = c.ShouldBindJSON(&req)

	order, outcome, err := h.ModifyService.RemoveItem(orderID, itemID, staffID, req.Reason)
	if err != nil {
		respondOrderModifyError(c, err)
		return
	}
	response.SuccessWithWarnings(c, order, outcome.Warnings)
}

type voidOrderRequest struct {
	Reason          string `json:"reason" binding:"required"`
	ReturnInventory bool   `json:"return_inventory"`
}

// VoidOrder 作废整单。操作人取自鉴权身份，请求体不可指定。
func (h *Handler) VoidOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}

	var req voidOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "作废参数格式错误", err)
		return
	}

	order, outcome, err := h.VoidService.Void(orderID, staffID, req.Reason, req.ReturnInventory)
	if err != nil {
		respondOrderVoidError(c, err)
		return
	}
	response.SuccessWithWarnings(c, order, outcome.Warnings)
}
