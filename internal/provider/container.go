package provider

import (
	"time"

	"github.com/meja-pos/internal/authz"
	"github.com/meja-pos/internal/cache"
	"github.com/meja-pos/internal/config"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/queue"
	"github.com/meja-pos/internal/repository"
	"github.com/meja-pos/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo     repository.UserRepository
	OrderRepo    repository.OrderRepository
	SessionRepo  repository.SessionRepository
	TicketRepo   repository.TicketRepository
	ProductRepo  repository.ProductRepository
	TableRepo    repository.TableRepository
	DiscountRepo repository.DiscountRecordRepository
	AuditRepo    repository.AuditLogRepository

	// Services
	AuthzService   *authz.Service
	AuthService    *service.AuthService
	StockService   *service.StockService
	TicketService  *service.TicketService
	OrderService   *service.OrderService
	ModifyService  *service.ModifyService
	SessionService *service.SessionService
	VoidService    *service.VoidService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.SessionRepo = repository.NewSessionRepository(db)
	c.TicketRepo = repository.NewTicketRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.TableRepo = repository.NewTableRepository(db)
	c.DiscountRepo = repository.NewDiscountRecordRepository(db)
	c.AuditRepo = repository.NewAuditLogRepository(db)

	// 订单仓库挂接会话合计重算钩子：成员订单每次写入后重算会话合计，
	// 复刻存储侧触发器的契约（结台写入顺序依赖这一行为）
	orderRepo := repository.NewOrderRepository(db)
	recalculator := service.GormSessionTotalsRecalculator{}
	orderRepo.SetRecalcHook(func(tx *gorm.DB, sessionID uint) {
		recalculator.Recalc(tx, sessionID)
	})
	c.OrderRepo = orderRepo
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	alertCooldown := time.Duration(c.Config.POS.AlertCooldownSeconds) * time.Second
	throttle := service.NewAlertThrottle(alertCooldown)

	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.StockService = service.NewStockService(c.ProductRepo, c.QueueClient, throttle, alertCooldown)
	c.TicketService = service.NewTicketService(c.TicketRepo, c.OrderRepo, c.ProductRepo, c.QueueClient)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.ProductRepo, c.TicketService, c.StockService, c.Config.POS.TaxRatePercent)
	c.ModifyService = service.NewModifyService(c.OrderRepo, c.TicketRepo, c.TicketService, c.StockService, c.AuditRepo)
	c.SessionService = service.NewSessionService(c.SessionRepo, c.OrderRepo, c.TableRepo, c.DiscountRepo, c.AuditRepo, c.StockService, c.QueueClient)
	c.VoidService = service.NewVoidService(c.OrderRepo, c.StockService, c.AuditRepo, c.AuthzService)
}
