package pos

import (
	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListTables 桌台列表（含占用状态）
func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.TableRepo.ListAll()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询桌台列表失败", err)
		return
	}
	response.Success(c, tables)
}

// ListProducts 在售菜品列表
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.ProductRepo.ListActive()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询菜品列表失败", err)
		return
	}
	response.Success(c, products)
}
