package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// testEnv 服务层测试环境：内存库 + 全部仓库与服务，
// 订单仓库挂接会话合计重算钩子，与生产容器的装配保持一致。
type testEnv struct {
	db           *gorm.DB
	orderRepo    *repository.GormOrderRepository
	sessionRepo  *repository.GormSessionRepository
	ticketRepo   *repository.GormTicketRepository
	productRepo  *repository.GormProductRepository
	tableRepo    *repository.GormTableRepository
	discountRepo *repository.GormDiscountRecordRepository
	auditRepo    *repository.GormAuditLogRepository

	stock    *StockService
	tickets  *TicketService
	orders   *OrderService
	modify   *ModifyService
	sessions *SessionService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.DiningTable{},
		&models.Product{},
		&models.MenuPackage{},
		&models.PackageComponent{},
		&models.OrderSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.PrepTicket{},
		&models.DiscountRecord{},
		&models.AuditLog{},
		&models.ReceiptArchive{},
	); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	env := &testEnv{db: db}
	env.orderRepo = repository.NewOrderRepository(db)
	recalculator := GormSessionTotalsRecalculator{}
	env.orderRepo.SetRecalcHook(func(tx *gorm.DB, sessionID uint) {
		recalculator.Recalc(tx, sessionID)
	})
	env.sessionRepo = repository.NewSessionRepository(db)
	env.ticketRepo = repository.NewTicketRepository(db)
	env.productRepo = repository.NewProductRepository(db)
	env.tableRepo = repository.NewTableRepository(db)
	env.discountRepo = repository.NewDiscountRecordRepository(db)
	env.auditRepo = repository.NewAuditLogRepository(db)

	throttle := NewAlertThrottle(time.Minute)
	env.stock = NewStockService(env.productRepo, nil, throttle, time.Minute)
	env.tickets = NewTicketService(env.ticketRepo, env.orderRepo, env.productRepo, nil)
	env.orders = NewOrderService(env.orderRepo, env.productRepo, env.tickets, env.stock, 0)
	env.modify = NewModifyService(env.orderRepo, env.ticketRepo, env.tickets, env.stock, env.auditRepo)
	env.sessions = NewSessionService(env.sessionRepo, env.orderRepo, env.tableRepo, env.discountRepo, env.auditRepo, env.stock, nil)
	return env
}

func money(value int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(value))
}

func (e *testEnv) createProduct(t *testing.T, name string, price int64, stockQty int, destination string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:              name,
		Price:             money(price),
		StockQty:          stockQty,
		LowStockThreshold: 0,
		Destination:       destination,
		IsActive:          true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *testEnv) createTable(t *testing.T, tableNo string) *models.DiningTable {
	t.Helper()
	table := &models.DiningTable{TableNo: tableNo, Capacity: 4}
	if err := e.db.Create(table).Error; err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return table
}

// createOrderWithItems 直接以给定状态落库订单（绕过状态机，构造测试前置）
func (e *testEnv) createOrderWithItems(t *testing.T, status string, sessionID *uint, items []models.OrderItem) *models.Order {
	t.Helper()
	for i := range items {
		RecalcItemAmounts(&items[i])
	}
	order := &models.Order{
		OrderNo:   GenerateOrderNo(time.Now()),
		Status:    status,
		SessionID: sessionID,
	}
	order.Items = items
	RecalcOrderAmounts(order)
	order.Items = nil
	if err := e.orderRepo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	loaded, err := e.orderRepo.GetByID(order.ID)
	if err != nil || loaded == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	return loaded
}

func (e *testEnv) productStock(t *testing.T, productID uint) int {
	t.Helper()
	product, err := e.productRepo.GetByID(productID)
	if err != nil || product == nil {
		t.Fatalf("reload product %d failed: %v", productID, err)
	}
	return product.StockQty
}

func itemRef(productID uint) *uint {
	return &productID
}

func assertMoney(t *testing.T, got models.Money, want int64, label string) {
	t.Helper()
	if !got.Decimal.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s want %d, got %s", label, want, got.String())
	}
}

func mustOpenSession(t *testing.T, e *testEnv, tableID uint) *models.OrderSession {
	t.Helper()
	session, err := e.sessions.OpenTab(OpenTabInput{TableID: tableID})
	if err != nil {
		t.Fatalf("open tab failed: %v", err)
	}
	return session
}
