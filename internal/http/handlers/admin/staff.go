package admin

import (
	"strings"

	"github.com/meja-pos/internal/authz"
	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/models"

	"github.com/gin-gonic/gin"
)

type createStaffRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role" binding:"required"`
}

// CreateStaff 创建员工账号并在策略表落角色。
// models.User.Role 只是展示镜像，权威角色在授权策略表里。
func (h *Handler) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "员工参数格式错误", err)
		return
	}
	role, err := authz.NormalizeRole(req.Role)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "角色无效", err)
		return
	}

	existing, err := h.UserRepo.GetByUsername(req.Username)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询员工失败", err)
		return
	}
	if existing != nil {
		shared.RespondError(c, response.CodeBadRequest, "登录名已存在", nil)
		return
	}

	user := &models.User{
		Username:    strings.TrimSpace(req.Username),
		DisplayName: req.DisplayName,
		Role:        strings.TrimPrefix(role, "role:"),
		IsActive:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		shared.RespondError(c, response.CodeInternal, "密码处理失败", err)
		return
	}
	if err := h.UserRepo.Create(user); err != nil {
		shared.RespondError(c, response.CodeInternal, "创建员工失败", err)
		return
	}
	if err := h.AuthzService.SetStaffRole(user.ID, role); err != nil {
		shared.RespondError(c, response.CodeInternal, "分配角色失败", err)
		return
	}
	response.Success(c, user)
}

// ListStaff 员工列表
func (h *Handler) ListStaff(c *gin.Context) {
	users, err := h.UserRepo.ListAll()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询员工列表失败", err)
		return
	}
	response.Success(c, users)
}

type setStaffRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetStaffRole 覆盖设置员工角色
func (h *Handler) SetStaffRole(c *gin.Context) {
	staffID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req setStaffRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "角色参数格式错误", err)
		return
	}
	role, err := authz.NormalizeRole(req.Role)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "角色无效", err)
		return
	}

	user, err := h.UserRepo.GetByID(staffID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询员工失败", err)
		return
	}
	if user == nil {
		shared.RespondError(c, response.CodeNotFound, "员工不存在", nil)
		return
	}

	if err := h.AuthzService.SetStaffRole(staffID, role); err != nil {
		shared.RespondError(c, response.CodeInternal, "分配角色失败", err)
		return
	}
	// 同步展示镜像
	if err := h.UserRepo.UpdateFields(staffID, map[string]interface{}{
		"role": strings.TrimPrefix(role, "role:"),
	}); err != nil {
		shared.RequestLog(c).Warnw("staff_role_mirror_sync_failed", "staff_id", staffID, "error", err)
	}
	response.SuccessWithMsg(c, "角色已更新", gin.H{
		"staff_id": staffID,
		"role":     role,
	})
}

type setStaffStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetStaffStatus 启用/停用员工账号
func (h *Handler) SetStaffStatus(c *gin.Context) {
	staffID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req setStaffStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		shared.RespondError(c, response.CodeBadRequest, "状态参数格式错误", err)
		return
	}

	user, err := h.UserRepo.GetByID(staffID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "查询员工失败", err)
		return
	}
	if user == nil {
		shared.RespondError(c, response.CodeNotFound, "员工不存在", nil)
		return
	}

	if err := h.UserRepo.UpdateFields(staffID, map[string]interface{}{
		"is_active": *req.IsActive,
	}); err != nil {
		shared.RespondError(c, response.CodeInternal, "更新员工状态失败", err)
		return
	}
	response.SuccessWithMsg(c, "状态已更新", gin.H{
		"staff_id":  staffID,
		"is_active": *req.IsActive,
	})
}
