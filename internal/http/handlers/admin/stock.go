package admin

import (
	"encoding/json"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/models"

	"github.com/gin-gonic/gin"
)

type adjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// AdjustStock 人工盘点调整库存。减库存不允许减到负数。
func (h *Handler) AdjustStock(c *gin.Context) {
	productID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "盘点参数格式错误", err)
		return
	}

	product, err := h.ProductRepo.GetByID(productID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询菜品失败", err)
		return
	}
	if product == nil {
		shared.RespondError(c, response.CodeNotFound, "菜品不存在", nil)
		return
	}

	affected, err := h.ProductRepo.AdjustStock(productID, req.Delta)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "库存调整失败", err)
		return
	}
	if affected == 0 {
		shared.RespondError(c, response.CodeBadRequest, "库存不足，调整被拒绝", nil)
		return
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"product_id": productID,
		"delta":      req.Delta,
	})
	entry := &models.AuditLog{
		Action:      constants.AuditActionStockAdjust,
		ActorID:     staffID,
		PerformedBy: staffID,
		Reason:      req.Reason,
		Detail:      string(detail),
	}
	if err := h.AuditRepo.Create(entry); err != nil {
		shared.RequestLog(c).Warnw("stock_adjust_audit_failed", "product_id", productID, "error", err)
	}

	updated, err := h.ProductRepo.GetByID(productID)
	if err != nil || updated == nil {
		response.SuccessWithMsg(c, "库存已调整", gin.H{"product_id": productID})
		return
	}
	response.Success(c, updated)
}

// ListLowStock 低库存菜品列表
func (h *Handler) ListLowStock(c *gin.Context) {
	products, err := h.ProductRepo.ListLowStock()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询低库存列表失败", err)
		return
	}
	response.Success(c, products)
}
