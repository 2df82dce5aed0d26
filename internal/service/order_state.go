package service

import (
	"fmt"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/repository"
)

// 订单状态流转表（唯一事实来源）：
// draft/pending -> confirmed -> preparing -> ready -> served -> completed；
// 任意非终态 -> voided；pending <-> on_hold；
// 结账（completed）允许从任意非终态进入，结台兜底路径依赖这一点。
var allowedOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusDraft: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusOnHold:    true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusOnHold: {
		constants.OrderStatusPending:   true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusPreparing: true,
		constants.OrderStatusReady:     true,
		constants.OrderStatusServed:    true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusPreparing: {
		constants.OrderStatusReady:     true,
		constants.OrderStatusServed:    true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusReady: {
		constants.OrderStatusServed:    true,
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusServed: {
		constants.OrderStatusCompleted: true,
		constants.OrderStatusVoided:    true,
	},
	constants.OrderStatusCompleted: {
		constants.OrderStatusVoided: true,
	},
}

// CanTransitionOrder 判断订单状态流转是否合法
func CanTransitionOrder(from, to string) bool {
	return allowedOrderTransitions[from][to]
}

// OrderService 订单状态机：管理订单开立、状态流转与订单级金额。
type OrderService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	ticketService  *TicketService
	stockService   *StockService
	taxRatePercent int
}

// NewOrderService 创建订单状态机服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, ticketService *TicketService, stockService *StockService, taxRatePercent int) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		ticketService:  ticketService,
		stockService:   stockService,
		taxRatePercent: taxRatePercent,
	}
}

// GetByID 获取订单
func (s *OrderService) GetByID(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 订单列表
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// Confirm 确认订单：派发出品工单并扣减库存。
// 派发失败不回滚确认：宁可后厨少收一单再人工补发，也不把前厅卡住。
// 库存在确认时点扣减，之后的数量削减、作废按同一口径归还；
// 扣减失败同样只告警，由结账/结台的兜底路径重试。
func (s *OrderService) Confirm(orderID uint, actorID uint) (*models.Order, *EffectOutcome, error) {
	order, err := s.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransitionOrder(order.Status, constants.OrderStatusConfirmed) {
		return nil, nil, fmt.Errorf("%w: 订单 %s -> confirmed", ErrInvalidState, order.Status)
	}

	if err := s.orderRepo.UpdateStatus(orderID, constants.OrderStatusConfirmed, map[string]interface{}{
		"updated_at": time.Now(),
	}); err != nil {
		return nil, nil, err
	}
	order.Status = constants.OrderStatusConfirmed

	outcome := NewEffectOutcome()
	if _, err := s.ticketService.RouteItems(orderID, order.Items); err != nil {
		logger.Warnw("order_confirm_routing_failed",
			"order_id", orderID,
			"order_no", order.OrderNo,
			"error", err,
		)
		outcome.Warn("出品工单派发失败，后厨可能未收到本单，请人工补发")
	}
	s.deductOrderStock(order, actorID, outcome)
	return order, outcome, nil
}

// Complete 完成订单（收款已发生）。
// 未在确认时点扣过库存的订单（直接从 pending 结账）在此兜底扣减；
// 扣减失败不回退完成状态，留待人工对账。
func (s *OrderService) Complete(orderID uint, actorID uint) (*models.Order, *EffectOutcome, error) {
	if actorID == 0 {
		return nil, nil, ErrActorRequired
	}
	order, err := s.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransitionOrder(order.Status, constants.OrderStatusCompleted) {
		return nil, nil, fmt.Errorf("%w: 订单 %s -> completed", ErrInvalidState, order.Status)
	}

	now := time.Now()
	if err := s.orderRepo.UpdateStatus(orderID, constants.OrderStatusCompleted, map[string]interface{}{
		"completed_at": now,
		"cashier_id":   actorID,
		"updated_at":   now,
	}); err != nil {
		return nil, nil, err
	}
	order.Status = constants.OrderStatusCompleted
	order.CompletedAt = &now
	order.CashierID = actorID

	outcome := NewEffectOutcome()
	s.deductOrderStock(order, actorID, outcome)
	return order, outcome, nil
}

// deductOrderStock 扣减订单库存（幂等：已扣减过的订单跳过）
func (s *OrderService) deductOrderStock(order *models.Order, actorID uint, outcome *EffectOutcome) {
	if order.StockDeducted {
		return
	}
	lines := LinesFromItems(order.Items)
	if len(lines) == 0 {
		return
	}
	if err := s.stockService.Deduct(order.ID, lines, actorID); err != nil {
		logger.Warnw("order_stock_deduct_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		outcome.Warn("库存扣减失败，请人工核对库存")
		return
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"stock_deducted": true,
	}); err != nil {
		logger.Warnw("order_stock_flag_update_failed", "order_id", order.ID, "error", err)
		outcome.Warn("库存扣减标记写入失败")
		return
	}
	order.StockDeducted = true
}

// Hold 挂起订单（pending -> on_hold）
func (s *OrderService) Hold(orderID uint) (*models.Order, error) {
	return s.toggleStatus(orderID, constants.OrderStatusPending, constants.OrderStatusOnHold)
}

// Resume 恢复订单（on_hold -> pending）
func (s *OrderService) Resume(orderID uint) (*models.Order, error) {
	return s.toggleStatus(orderID, constants.OrderStatusOnHold, constants.OrderStatusPending)
}

func (s *OrderService) toggleStatus(orderID uint, from, to string) (*models.Order, error) {
	order, err := s.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		return nil, fmt.Errorf("%w: 订单 %s -> %s", ErrInvalidState, order.Status, to)
	}
	if err := s.orderRepo.UpdateStatus(orderID, to, map[string]interface{}{
		"updated_at": time.Now(),
	}); err != nil {
		return nil, err
	}
	order.Status = to
	return order, nil
}

// DraftOrderPayload 待校验的订单草稿
type DraftOrderPayload struct {
	Items          []DraftItemPayload `json:"items"`
	TotalAmount    models.Money       `json:"total_amount"`
	AmountTendered *models.Money      `json:"amount_tendered,omitempty"`
}

// DraftItemPayload 草稿订单项
type DraftItemPayload struct {
	ProductID uint         `json:"product_id,omitempty"`
	PackageID uint         `json:"package_id,omitempty"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Total     models.Money `json:"total"`
}

// Violation 单条校验问题
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateDraft 校验订单草稿。纯函数，一次返回全部问题，便于前端整体展示。
func (s *OrderService) ValidateDraft(payload DraftOrderPayload) []Violation {
	var violations []Violation
	if len(payload.Items) == 0 {
		violations = append(violations, Violation{Field: "items", Message: "订单至少包含一项"})
	}
	for i, item := range payload.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.ProductID == 0 && item.PackageID == 0 {
			violations = append(violations, Violation{Field: field, Message: "缺少菜品或套餐引用"})
		}
		if item.ProductID != 0 && item.PackageID != 0 {
			violations = append(violations, Violation{Field: field, Message: "菜品与套餐引用互斥"})
		}
		if item.Quantity <= 0 {
			violations = append(violations, Violation{Field: field + ".quantity", Message: "数量必须为正"})
		}
		if item.UnitPrice.IsNegative() {
			violations = append(violations, Violation{Field: field + ".unit_price", Message: "单价不能为负"})
		}
		if item.Total.IsNegative() {
			violations = append(violations, Violation{Field: field + ".total", Message: "金额不能为负"})
		}
	}
	if payload.TotalAmount.IsNegative() {
		violations = append(violations, Violation{Field: "total_amount", Message: "金额不能为负"})
	}
	if payload.AmountTendered != nil && payload.AmountTendered.LessThan(payload.TotalAmount.Decimal) {
		violations = append(violations, Violation{Field: "amount_tendered", Message: "实收金额低于应付金额"})
	}
	return violations
}
