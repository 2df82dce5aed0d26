package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/meja-pos/internal/authz"
	"github.com/meja-pos/internal/config"
	"github.com/meja-pos/internal/http/response"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/repository"
	"github.com/meja-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const staffIDContextKey = "staff_id"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// StaffJWTAuthMiddleware 员工 JWT 鉴权中间件。
// 令牌有效还要求账号仍然启用，停用立即生效，不等令牌过期。
func StaffJWTAuthMiddleware(secretKey string, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			response.Unauthorized(c, "服务端未配置签名密钥")
			c.Abort()
			return
		}
		if userRepo == nil {
			response.Unauthorized(c, "登录状态无效")
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少 Authorization 头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Unauthorized(c, "Authorization 头格式错误")
			c.Abort()
			return
		}

		tokenString := parts[1]
		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		claims := &service.StaffClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid || claims.UserID == 0 {
			response.Unauthorized(c, "登录状态无效")
			c.Abort()
			return
		}

		user, err := userRepo.GetByID(claims.UserID)
		if err != nil || user == nil {
			response.Unauthorized(c, "登录状态无效")
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Unauthorized(c, "账号已停用")
			c.Abort()
			return
		}

		c.Set(staffIDContextKey, claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// StaffRBACMiddleware 员工 RBAC 鉴权中间件，按路由模板与方法查策略表
func StaffRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("staff_rbac_service_unavailable")
			response.Unauthorized(c, "授权服务不可用")
			c.Abort()
			return
		}

		staffIDRaw, exists := c.Get(staffIDContextKey)
		if !exists {
			response.Unauthorized(c, "未登录或登录已过期")
			c.Abort()
			return
		}
		var staffID uint
		switch value := staffIDRaw.(type) {
		case uint:
			staffID = value
		case int:
			if value > 0 {
				staffID = uint(value)
			}
		case float64:
			if value > 0 {
				staffID = uint(value)
			}
		}
		if staffID == 0 {
			response.Unauthorized(c, "未登录或登录已过期")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceStaff(staffID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("staff_rbac_enforce_failed",
				"staff_id", staffID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, "鉴权失败")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("staff_rbac_permission_denied",
				"staff_id", staffID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Next()
	}
}
