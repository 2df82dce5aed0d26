package admin

import (
	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ReprintReceipt 从归档补打小票
func (h *Handler) ReprintReceipt(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "session_id")
	if !ok {
		return
	}
	archive, err := h.AuditRepo.GetReceiptArchiveBySession(sessionID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询小票归档失败", err)
		return
	}
	if archive == nil {
		shared.RespondError(c, response.CodeNotFound, "该会话尚无小票归档", nil)
		return
	}
	response.Success(c, archive)
}
