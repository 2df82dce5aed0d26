package service

import (
	"context"
	"fmt"
	"time"

	"github.com/meja-pos/internal/cache"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/queue"
	"github.com/meja-pos/internal/repository"
)

// StockLine 库存操作行：菜品引用与套餐引用互斥
type StockLine struct {
	ProductID uint `json:"product_id,omitempty"`
	PackageID uint `json:"package_id,omitempty"`
	Quantity  int  `json:"quantity"`
}

// InsufficientItem 库存不足明细
type InsufficientItem struct {
	ProductID uint `json:"product_id"`
	Available int  `json:"available"`
}

// AvailabilityResult 可用性检查结果
type AvailabilityResult struct {
	Available    bool               `json:"available"`
	Insufficient []InsufficientItem `json:"insufficient_items,omitempty"`
}

// StockService 库存台账适配器。
// 只做数量加减与非负约束，不承载其他业务规则；套餐引用在内部展开为组成菜品。
type StockService struct {
	productRepo   repository.ProductRepository
	queueClient   *queue.Client
	throttle      *AlertThrottle
	alertCooldown time.Duration
}

// NewStockService 创建库存服务
func NewStockService(productRepo repository.ProductRepository, queueClient *queue.Client, throttle *AlertThrottle, alertCooldown time.Duration) *StockService {
	if throttle == nil {
		throttle = NewAlertThrottle(alertCooldown)
	}
	return &StockService{
		productRepo:   productRepo,
		queueClient:   queueClient,
		throttle:      throttle,
		alertCooldown: alertCooldown,
	}
}

// LinesFromItems 将订单项转换为库存操作行
func LinesFromItems(items []models.OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		line := StockLine{Quantity: item.Quantity}
		if item.ProductID != nil {
			line.ProductID = *item.ProductID
		}
		if item.PackageID != nil {
			line.PackageID = *item.PackageID
		}
		if line.ProductID == 0 && line.PackageID == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// expandLines 将套餐引用展开为组成菜品并按菜品合并数量
func (s *StockService) expandLines(lines []StockLine) (map[uint]int, error) {
	merged := make(map[uint]int)
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 数量必须为正", ErrValidation)
		}
		if line.ProductID != 0 && line.PackageID != 0 {
			return nil, fmt.Errorf("%w: 菜品与套餐引用互斥", ErrValidation)
		}
		switch {
		case line.ProductID != 0:
			merged[line.ProductID] += line.Quantity
		case line.PackageID != 0:
			pkg, err := s.productRepo.GetPackageByID(line.PackageID)
			if err != nil {
				return nil, err
			}
			if pkg == nil {
				return nil, fmt.Errorf("%w: 套餐 %d", ErrProductNotFound, line.PackageID)
			}
			for _, component := range pkg.Components {
				merged[component.ProductID] += component.Quantity * line.Quantity
			}
		default:
			return nil, fmt.Errorf("%w: 缺少菜品或套餐引用", ErrValidation)
		}
	}
	return merged, nil
}

// Deduct 扣减库存；带非负约束，任一菜品余量不足即返回错误。
// 扣减成功后检查低库存阈值，命中则节流推送告警任务。
func (s *StockService) Deduct(orderID uint, lines []StockLine, actorID uint) error {
	merged, err := s.expandLines(lines)
	if err != nil {
		return err
	}
	for productID, qty := range merged {
		affected, err := s.productRepo.AdjustStock(productID, -qty)
		if err != nil {
			return fmt.Errorf("%w: 菜品 %d: %v", ErrStockAdjustFailed, productID, err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: 菜品 %d", ErrInsufficientStock, productID)
		}
		logger.Infow("stock_deducted",
			"order_id", orderID,
			"product_id", productID,
			"quantity", qty,
			"actor_id", actorID,
		)
		s.checkLowStock(productID)
	}
	return nil
}

// Return 归还库存
func (s *StockService) Return(orderID uint, lines []StockLine, actorID uint) error {
	merged, err := s.expandLines(lines)
	if err != nil {
		return err
	}
	for productID, qty := range merged {
		if _, err := s.productRepo.AdjustStock(productID, qty); err != nil {
			return fmt.Errorf("%w: 菜品 %d: %v", ErrStockAdjustFailed, productID, err)
		}
		logger.Infow("stock_returned",
			"order_id", orderID,
			"product_id", productID,
			"quantity", qty,
			"actor_id", actorID,
		)
	}
	return nil
}

// CheckAvailability 检查库存可用性，不产生副作用
func (s *StockService) CheckAvailability(lines []StockLine) (*AvailabilityResult, error) {
	merged, err := s.expandLines(lines)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(merged))
	for productID := range merged {
		ids = append(ids, productID)
	}
	products, err := s.productRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	stockByID := make(map[uint]int, len(products))
	for _, product := range products {
		stockByID[product.ID] = product.StockQty
	}

	result := &AvailabilityResult{Available: true}
	for productID, need := range merged {
		available, found := stockByID[productID]
		if !found {
			return nil, fmt.Errorf("%w: 菜品 %d", ErrProductNotFound, productID)
		}
		if available < need {
			result.Available = false
			result.Insufficient = append(result.Insufficient, InsufficientItem{
				ProductID: productID,
				Available: available,
			})
		}
	}
	return result, nil
}

// checkLowStock 扣减后检查低库存阈值；进程内节流 + Redis 跨进程冷却双重去重
func (s *StockService) checkLowStock(productID uint) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil || product == nil {
		return
	}
	if product.StockQty > product.LowStockThreshold {
		return
	}

	key := fmt.Sprintf("stock_alert:%d", productID)
	if !s.throttle.Allow(key) {
		return
	}
	if cache.Enabled() {
		ok, err := cache.AcquireCooldown(context.Background(), key, s.alertCooldown)
		if err != nil {
			logger.Warnw("stock_alert_cooldown_check_failed", "product_id", productID, "error", err)
		} else if !ok {
			return
		}
	}

	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueueStockAlert(queue.StockAlertPayload{
		ProductID: productID,
		Remaining: product.StockQty,
	}); err != nil {
		logger.Warnw("stock_alert_enqueue_failed",
			"product_id", productID,
			"remaining", product.StockQty,
			"error", err,
		)
	}
}
