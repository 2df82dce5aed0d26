package shared

import (
	"strconv"

	"github.com/meja-pos/internal/http/response"

	"github.com/gin-gonic/gin"
)

// StaffIDContextKey 鉴权中间件写入的员工 ID 上下文键
const StaffIDContextKey = "staff_id"

// GetStaffID 从上下文读取当前员工 ID，缺失或类型异常时统一回错误响应。
func GetStaffID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(StaffIDContextKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "未登录或登录已过期", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeUnauthorized, "员工身份无效", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeUnauthorized, "员工身份无效", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, "员工身份类型异常", nil)
		return 0, false
	}
}

// ParseUintParam 解析路径参数为 uint，非法时回 400。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "路径参数 "+name+" 无效", nil)
		return 0, false
	}
	return uint(value), true
}
