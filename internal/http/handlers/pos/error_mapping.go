package pos

import (
	"errors"

	"github.com/meja-pos/internal/http/handlers/shared"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var orderCommonErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "订单不存在"},
	{target: service.ErrItemNotFound, code: response.CodeNotFound, msg: "订单项不存在"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, msg: "菜品或套餐不存在"},
	{target: service.ErrInvalidState, code: response.CodeBadRequest, msg: "当前状态不允许该操作"},
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "参数校验失败"},
	{target: service.ErrActorRequired, code: response.CodeBadRequest, msg: "缺少操作人"},
}

var orderModifyErrorRules = []mappedHandlerError{
	{target: service.ErrLastItemRemoval, code: response.CodeBadRequest, msg: "不能移除订单的最后一项，请作废整单"},
	{target: service.ErrInsufficientStock, code: response.CodeBadRequest, msg: "库存不足"},
}

var orderVoidErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidVoidReason, code: response.CodeBadRequest, msg: "作废原因无效"},
	{target: service.ErrForbidden, code: response.CodeForbidden, msg: "作废整单需要店长权限"},
}

var tabCommonErrorRules = []mappedHandlerError{
	{target: service.ErrSessionNotFound, code: response.CodeNotFound, msg: "桌台会话不存在"},
	{target: service.ErrTableNotFound, code: response.CodeNotFound, msg: "桌台不存在"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "订单不存在"},
	{target: service.ErrInvalidState, code: response.CodeBadRequest, msg: "会话当前状态不允许该操作"},
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "参数校验失败"},
	{target: service.ErrActorRequired, code: response.CodeBadRequest, msg: "缺少操作人"},
}

var tabCloseErrorRules = []mappedHandlerError{
	{target: service.ErrTenderedBelowTotal, code: response.CodeBadRequest, msg: "实收金额低于应付金额"},
}

var ticketErrorRules = []mappedHandlerError{
	{target: service.ErrTicketNotFound, code: response.CodeNotFound, msg: "出品工单不存在"},
	{target: service.ErrInvalidState, code: response.CodeBadRequest, msg: "工单状态不允许该流转"},
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "参数校验失败"},
}

func respondOrderError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "订单操作失败")
}

func respondOrderModifyError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderCommonErrorRules, orderModifyErrorRules), response.CodeInternal, "订单修改失败")
}

func respondOrderVoidError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderCommonErrorRules, orderVoidErrorRules), response.CodeInternal, "订单作废失败")
}

func respondTabError(c *gin.Context, err error) {
	respondWithMappedError(c, err, tabCommonErrorRules, response.CodeInternal, "挂账操作失败")
}

func respondTabCloseError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(tabCommonErrorRules, tabCloseErrorRules), response.CodeInternal, "结台失败")
}

func respondTicketError(c *gin.Context, err error) {
	respondWithMappedError(c, err, ticketErrorRules, response.CodeInternal, "工单操作失败")
}
