package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/repository"

	"github.com/shopspring/decimal"
)

// ModifyService 订单项变更引擎：数量削减与整项移除。
// 只作用于 confirmed 状态的订单；库存归还、工单对账、合计重算顺序执行，
// 各自失败独立记录，不中断整个变更（顾客可见状态优先于后台副作用）。
type ModifyService struct {
	orderRepo     repository.OrderRepository
	ticketRepo    repository.TicketRepository
	ticketService *TicketService
	stockService  *StockService
	auditRepo     repository.AuditLogRepository
}

// NewModifyService 创建订单项变更服务
func NewModifyService(orderRepo repository.OrderRepository, ticketRepo repository.TicketRepository, ticketService *TicketService, stockService *StockService, auditRepo repository.AuditLogRepository) *ModifyService {
	return &ModifyService{
		orderRepo:     orderRepo,
		ticketRepo:    ticketRepo,
		ticketService: ticketService,
		stockService:  stockService,
		auditRepo:     auditRepo,
	}
}

// kitchenSnapshot 变更发生时的工单状态快照（审计用）
type kitchenSnapshot struct {
	Pending   []uint `json:"pending,omitempty"`
	Preparing []uint `json:"preparing,omitempty"`
	Ready     []uint `json:"ready,omitempty"`
	Completed []uint `json:"completed,omitempty"`
}

func buildKitchenSnapshot(tickets []models.PrepTicket) kitchenSnapshot {
	var snap kitchenSnapshot
	for _, ticket := range tickets {
		switch ticket.Status {
		case constants.TicketStatusPending:
			snap.Pending = append(snap.Pending, ticket.ID)
		case constants.TicketStatusPreparing:
			snap.Preparing = append(snap.Preparing, ticket.ID)
		case constants.TicketStatusReady:
			snap.Ready = append(snap.Ready, ticket.ID)
		case constants.TicketStatusCompleted:
			snap.Completed = append(snap.Completed, ticket.ID)
		}
	}
	return snap
}

// ReduceItemQuantity 削减订单项数量。
// 只允许严格减量：加量要求重新下单，强制产生新工单与新定价。
func (s *ModifyService) ReduceItemQuantity(orderID, itemID uint, newQuantity int, actorID uint, reason string) (*models.Order, *EffectOutcome, error) {
	if actorID == 0 {
		return nil, nil, ErrActorRequired
	}
	order, item, err := s.loadConfirmedOrderItem(orderID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if newQuantity <= 0 || newQuantity >= item.Quantity {
		return nil, nil, fmt.Errorf("%w: 新数量必须满足 0 < n < %d", ErrValidation, item.Quantity)
	}

	tickets, err := s.ticketRepo.ListByItem(itemID)
	if err != nil {
		return nil, nil, err
	}

	outcome := NewEffectOutcome()
	for _, ticket := range tickets {
		if ticket.Status == constants.TicketStatusReady || ticket.Status == constants.TicketStatusCompleted {
			// 不阻塞：后厨可能已多出成品，前厅自行处置
			outcome.Warn(fmt.Sprintf("工单 %d 已出品（%s），可能产生多余成品", ticket.ID, ticket.Status))
		}
	}

	oldQuantity := item.Quantity
	delta := oldQuantity - newQuantity
	refund := models.NewMoneyFromDecimal(item.UnitPrice.Mul(decimal.NewFromInt(int64(delta))))

	// 主效果：订单项按新数量落盘，失败即整体中止
	item.Quantity = newQuantity
	RecalcItemAmounts(item)
	item.UpdatedAt = time.Now()
	if err := s.orderRepo.UpdateItem(item); err != nil {
		return nil, nil, err
	}

	s.returnStock(order, *item, delta, actorID, outcome)
	s.reconcileTickets(order, item, tickets, oldQuantity, newQuantity, outcome)
	order = s.recalcParentTotals(orderID, order, outcome)
	s.writeModifyAudit(constants.AuditActionItemReduced, order, itemID, actorID, reason, map[string]interface{}{
		"old_quantity":     oldQuantity,
		"new_quantity":     newQuantity,
		"refund_amount":    refund,
		"kitchen_snapshot": buildKitchenSnapshot(tickets),
	}, outcome)

	return order, outcome, nil
}

// RemoveItem 移除订单项。
// 拒绝移除最后一项：零项订单不可表示，整单不要请走作废。
func (s *ModifyService) RemoveItem(orderID, itemID uint, actorID uint, reason string) (*models.Order, *EffectOutcome, error) {
	if actorID == 0 {
		return nil, nil, ErrActorRequired
	}
	order, item, err := s.loadConfirmedOrderItem(orderID, itemID)
	if err != nil {
		return nil, nil, err
	}
	remaining, err := s.orderRepo.CountItems(orderID)
	if err != nil {
		return nil, nil, err
	}
	if remaining <= 1 {
		return nil, nil, ErrLastItemRemoval
	}

	tickets, err := s.ticketRepo.ListByItem(itemID)
	if err != nil {
		return nil, nil, err
	}

	outcome := NewEffectOutcome()

	// 工单先于订单项取消：工单对订单项是弱关联，取消后才允许原项消失
	cancelIDs := make([]uint, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.Status != constants.TicketStatusCancelled && ticket.Status != constants.TicketStatusCompleted {
			cancelIDs = append(cancelIDs, ticket.ID)
		}
	}
	if err := s.ticketService.CancelTickets(orderID, cancelIDs, fmt.Sprintf("订单项移除: %s", reason)); err != nil {
		logger.Warnw("item_remove_ticket_cancel_failed",
			"order_id", orderID,
			"item_id", itemID,
			"ticket_ids", cancelIDs,
			"error", err,
		)
		outcome.Warn("工单取消失败，请通知工位停做")
	}

	removedQty := item.Quantity
	removedItem := *item

	// 主效果：删除订单项
	if err := s.orderRepo.DeleteItem(itemID); err != nil {
		return nil, nil, err
	}

	s.returnStock(order, removedItem, removedQty, actorID, outcome)
	order = s.recalcParentTotals(orderID, order, outcome)
	s.writeModifyAudit(constants.AuditActionItemRemoved, order, itemID, actorID, reason, map[string]interface{}{
		"removed_quantity": removedQty,
		"product_name":     removedItem.ProductName,
		"refund_amount":    removedItem.Total,
		"kitchen_snapshot": buildKitchenSnapshot(tickets),
	}, outcome)

	return order, outcome, nil
}

// loadConfirmedOrderItem 加载 confirmed 订单及目标订单项
func (s *ModifyService) loadConfirmedOrderItem(orderID, itemID uint) (*models.Order, *models.OrderItem, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusConfirmed {
		return nil, nil, fmt.Errorf("%w: 仅 confirmed 订单可变更，当前 %s", ErrInvalidState, order.Status)
	}
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return order, &order.Items[i], nil
		}
	}
	return nil, nil, ErrItemNotFound
}

// returnStock 归还削减/移除数量对应的库存（非致命）。
// 只归还确实扣过的：确认时点扣减失败的订单没有可归还的份额，
// 盲目归还会凭空多出库存。
func (s *ModifyService) returnStock(order *models.Order, item models.OrderItem, quantity int, actorID uint, outcome *EffectOutcome) {
	if !order.StockDeducted {
		return
	}
	line := StockLine{Quantity: quantity}
	if item.ProductID != nil {
		line.ProductID = *item.ProductID
	}
	if item.PackageID != nil {
		line.PackageID = *item.PackageID
	}
	if line.ProductID == 0 && line.PackageID == 0 {
		return
	}
	if err := s.stockService.Return(order.ID, []StockLine{line}, actorID); err != nil {
		logger.Warnw("item_modify_stock_return_failed",
			"order_id", order.ID,
			"item_id", item.ID,
			"quantity", quantity,
			"error", err,
		)
		outcome.Warn("库存归还失败，请人工核对库存")
	}
}

// reconcileTickets 削减后的工单对账：取消 pending 工单；
// 已在制作/已出品的无法撤回，补发一张加急变更工单告知工位。
func (s *ModifyService) reconcileTickets(order *models.Order, item *models.OrderItem, tickets []models.PrepTicket, oldQty, newQty int, outcome *EffectOutcome) {
	var pendingIDs []uint
	needModified := false
	destination := ""
	for _, ticket := range tickets {
		switch ticket.Status {
		case constants.TicketStatusPending:
			pendingIDs = append(pendingIDs, ticket.ID)
		case constants.TicketStatusPreparing, constants.TicketStatusReady:
			needModified = true
			if destination == "" {
				destination = ticket.Destination
			}
		}
	}

	if len(pendingIDs) > 0 {
		if err := s.ticketService.CancelTickets(order.ID, pendingIDs, fmt.Sprintf("数量变更 %d -> %d", oldQty, newQty)); err != nil {
			logger.Warnw("item_reduce_ticket_cancel_failed",
				"order_id", order.ID,
				"item_id", item.ID,
				"ticket_ids", pendingIDs,
				"error", err,
			)
			outcome.Warn("原工单取消失败，请通知工位停做")
		}
	}
	if needModified {
		if _, err := s.ticketService.CreateModifiedTicket(ModifiedTicketInput{
			OrderID:     order.ID,
			OrderItemID: item.ID,
			ProductName: item.ProductName,
			Destination: destination,
			Quantity:    newQty,
			OldQuantity: oldQty,
			NewQuantity: newQty,
		}); err != nil {
			logger.Warnw("item_reduce_modified_ticket_failed",
				"order_id", order.ID,
				"item_id", item.ID,
				"error", err,
			)
			outcome.Warn("加急变更工单创建失败，请人工通知工位")
		}
	}
}

// recalcParentTotals 以订单项实时求和重算父订单金额并落盘（非致命）
func (s *ModifyService) recalcParentTotals(orderID uint, fallback *models.Order, outcome *EffectOutcome) *models.Order {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		logger.Warnw("order_totals_reload_failed", "order_id", orderID, "error", err)
		outcome.Warn("订单金额重算失败，请人工核对")
		return fallback
	}
	RecalcOrderAmounts(order)
	if err := s.orderRepo.UpdateFields(orderID, map[string]interface{}{
		"subtotal":        order.Subtotal,
		"discount_amount": order.DiscountAmount,
		"total_amount":    order.TotalAmount,
		"updated_at":      time.Now(),
	}); err != nil {
		logger.Warnw("order_totals_recalc_write_failed", "order_id", orderID, "error", err)
		outcome.Warn("订单金额重算失败，请人工核对")
	}
	return order
}

// writeModifyAudit 写入变更审计记录（非致命）
func (s *ModifyService) writeModifyAudit(action string, order *models.Order, itemID uint, actorID uint, reason string, detail map[string]interface{}, outcome *EffectOutcome) {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		detailJSON = []byte("{}")
	}
	orderID := order.ID
	entry := &models.AuditLog{
		Action:      action,
		OrderID:     &orderID,
		SessionID:   order.SessionID,
		ActorID:     actorID,
		PerformedBy: actorID,
		Reason:      reason,
		Detail:      string(detailJSON),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.Warnw("item_modify_audit_write_failed",
			"action", action,
			"order_id", orderID,
			"item_id", itemID,
			"error", err,
		)
		outcome.Warn("审计记录写入失败")
	}
}
