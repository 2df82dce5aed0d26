package pos

import (
	"strconv"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// OpenTab 开台。对同一桌台重复开台幂等返回现有会话。
func (h *Handler) OpenTab(c *gin.Context) {
	var input service.OpenTabInput
	if err := c.ShouldBindJSON(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "开台参数格式错误", err)
		return
	}
	session, err := h.SessionService.OpenTab(input)
	if err != nil {
		respondTabError(c, err)
		return
	}
	response.Success(c, session)
}

// GetTab 查询会话详情
func (h *Handler) GetTab(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	session, err := h.SessionRepo.GetByID(sessionID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询会话失败", err)
		return
	}
	if session == nil {
		shared.RespondError(c, response.CodeNotFound, "桌台会话不存在", nil)
		return
	}
	response.Success(c, session)
}

// GetBill 账单预览。OPEN 看实时账，CLOSED 供补打。
func (h *Handler) GetBill(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	bill, err := h.SessionService.GetBillPreview(sessionID)
	if err != nil {
		respondTabError(c, err)
		return
	}
	response.Success(c, bill)
}

// CloseTab 结台收款。操作人取自鉴权身份。
func (h *Handler) CloseTab(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}

	var input service.CloseTabInput
	if err := c.ShouldBindJSON(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "结台参数格式错误", err)
		return
	}
	input.ActorID = staffID

	result, err := h.SessionService.CloseTab(sessionID, input)
	if err != nil {
		respondTabCloseError(c, err)
		return
	}
	response.SuccessWithWarnings(c, gin.H{
		"session":       result.Session,
		"receipt":       result.Receipt,
		"change_amount": result.ChangeAmount,
	}, result.Outcome.Warnings)
}

// AbandonTab 弃单关台：客人离开未结账时的人工关台出口
func (h *Handler) AbandonTab(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}
	session, err := h.SessionService.AbandonSession(sessionID, staffID)
	if err != nil {
		respondTabError(c, err)
		return
	}
	response.Success(c, session)
}

type addOrderToTabRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// AddOrderToTab 把订单挂到会话上
func (h *Handler) AddOrderToTab(c *gin.Context) {
	sessionID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req addOrderToTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "挂单参数格式错误", err)
		return
	}
	if err := h.SessionService.AddOrderToSession(sessionID, req.OrderID); err != nil {
		respondTabError(c, err)
		return
	}
	response.SuccessWithMsg(c, "挂单成功", gin.H{
		"session_id": sessionID,
		"order_id":   req.OrderID,
	})
}

// ListActiveTabs 在店活跃会话列表（前厅看板）
func (h *Handler) ListActiveTabs(c *gin.Context) {
	sessions, err := h.SessionService.ListActiveTabs()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询活跃会话失败", err)
		return
	}
	response.Success(c, sessions)
}

// GetTabStats 近 N 天会话统计
func (h *Handler) GetTabStats(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 {
		days = h.Config.POS.SessionStatsDays
	}
	stats, err := h.SessionService.GetSessionStats(days)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询会话统计失败", err)
		return
	}
	response.Success(c, stats)
}
