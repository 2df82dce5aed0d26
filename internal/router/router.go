package router

import (
	"fmt"
	"strings"

	"github.com/meja-pos/internal/cache"
	"github.com/meja-pos/internal/config"
	adminhandlers "github.com/meja-pos/internal/http/handlers/admin"
	poshandlers "github.com/meja-pos/internal/http/handlers/pos"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前厅/后台分组）
	posHandler := poshandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mj"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 登录接口（无需鉴权，带限流）
		apiV1.POST("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), posHandler.Login)

		// 登录身份接口（仅需 JWT，不查策略表）
		identity := apiV1.Group("")
		identity.Use(StaffJWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			identity.GET("/auth/me", posHandler.Me)
		}

		// 业务接口（JWT + RBAC）
		authorized := apiV1.Group("")
		authorized.Use(StaffJWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), StaffRBACMiddleware(c.AuthzService))
		{
			// 前厅基础数据
			authorized.GET("/pos/tables", posHandler.ListTables)
			authorized.GET("/pos/products", posHandler.ListProducts)

			// 订单
			authorized.POST("/pos/orders", posHandler.CreateOrder)
			authorized.GET("/pos/orders", posHandler.ListOrders)
			authorized.POST("/pos/orders/validate", posHandler.ValidateOrderDraft)
			authorized.GET("/pos/orders/:id", posHandler.GetOrder)
			authorized.POST("/pos/orders/:id/confirm", posHandler.ConfirmOrder)
			authorized.POST("/pos/orders/:id/complete", posHandler.CompleteOrder)
			authorized.POST("/pos/orders/:id/hold", posHandler.HoldOrder)
			authorized.POST("/pos/orders/:id/resume", posHandler.ResumeOrder)
			authorized.POST("/pos/orders/:id/void", posHandler.VoidOrder)
			authorized.POST("/pos/orders/:id/items/:item_id/reduce", posHandler.ReduceOrderItem)
			authorized.DELETE("/pos/orders/:id/items/:item_id", posHandler.RemoveOrderItem)

			// 挂账会话
			authorized.POST("/pos/tabs", posHandler.OpenTab)
			authorized.GET("/pos/tabs", posHandler.ListActiveTabs)
			authorized.GET("/pos/tabs/stats", posHandler.GetTabStats)
			authorized.GET("/pos/tabs/:id", posHandler.GetTab)
			authorized.GET("/pos/tabs/:id/bill", posHandler.GetBill)
			authorized.POST("/pos/tabs/:id/close", posHandler.CloseTab)
			authorized.POST("/pos/tabs/:id/abandon", posHandler.AbandonTab)
			authorized.POST("/pos/tabs/:id/orders", posHandler.AddOrderToTab)

			// 出品工单
			authorized.GET("/pos/tickets", posHandler.ListTickets)
			authorized.PUT("/pos/tickets/:id/status", posHandler.UpdateTicketStatus)

			// 后台管理
			authorized.POST("/admin/products/:id/stock", adminHandler.AdjustStock)
			authorized.GET("/admin/products/low-stock", adminHandler.ListLowStock)
			authorized.POST("/admin/staff", adminHandler.CreateStaff)
			authorized.GET("/admin/staff", adminHandler.ListStaff)
			authorized.PUT("/admin/staff/:id/role", adminHandler.SetStaffRole)
			authorized.PUT("/admin/staff/:id/status", adminHandler.SetStaffStatus)
			authorized.GET("/admin/audit-logs", adminHandler.ListAuditLogs)
			authorized.GET("/admin/receipts/:session_id", adminHandler.ReprintReceipt)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
