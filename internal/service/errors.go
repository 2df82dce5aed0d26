package service

import "errors"

// 业务错误定义（按错误类别划分：NotFound / InvalidState / Validation / Forbidden / Dependency）
var (
	// 资源不存在
	ErrOrderNotFound   = errors.New("订单不存在")
	ErrItemNotFound    = errors.New("订单项不存在")
	ErrSessionNotFound = errors.New("桌台会话不存在")
	ErrTableNotFound   = errors.New("桌台不存在")
	ErrProductNotFound = errors.New("菜品不存在")
	ErrTicketNotFound  = errors.New("出品工单不存在")
	ErrUserNotFound    = errors.New("员工不存在")

	// 状态不允许当前操作
	ErrInvalidState = errors.New("当前状态不允许该操作")

	// 入参校验失败
	ErrValidation         = errors.New("参数校验失败")
	ErrActorRequired      = errors.New("缺少操作人")
	ErrTenderedBelowTotal = errors.New("实收金额低于应付金额")
	ErrLastItemRemoval    = errors.New("不能移除订单的最后一项，请作废整单")
	ErrInvalidVoidReason  = errors.New("作废原因无效")

	// 权限不足
	ErrForbidden = errors.New("权限不足")

	// 下游依赖失败
	ErrInsufficientStock = errors.New("库存不足")
	ErrStockAdjustFailed = errors.New("库存调整失败")

	// 登录相关
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("账号已停用")
	ErrLoginRateLimited   = errors.New("登录尝试过于频繁，请稍后再试")
)
