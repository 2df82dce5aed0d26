package pos

import (
	"errors"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/service"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 员工登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "请输入用户名和密码", err)
		return
	}

	user, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoginRateLimited):
			shared.RespondError(c, response.CodeTooManyRequests, "登录尝试过于频繁，请稍后再试", nil)
		case errors.Is(err, service.ErrUserDisabled):
			shared.RespondError(c, response.CodeForbidden, "账号已停用", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			shared.RespondError(c, response.CodeUnauthorized, "用户名或密码错误", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "登录失败", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

// Me 当前登录员工信息（含策略表中的实际角色）
func (h *Handler) Me(c *gin.Context) {
	staffID, ok := shared.GetStaffID(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetByID(staffID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			shared.RespondError(c, response.CodeNotFound, "员工不存在", nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "查询员工信息失败", err)
		return
	}
	roles, err := h.AuthzService.GetStaffRoles(staffID)
	if err != nil {
		shared.RequestLog(c).Warnw("me_fetch_roles_failed", "staff_id", staffID, "error", err)
		roles = []string{}
	}
	response.Success(c, gin.H{
		"user":  user,
		"roles": roles,
	})
}
