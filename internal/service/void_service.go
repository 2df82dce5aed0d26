package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/repository"
)

// ManagerChecker 管理权限判定。
// 鉴权以当前登录身份为准，而不是调用方传入的任意 ID，伪造店长 ID 无法绕过。
type ManagerChecker interface {
	IsManagerOrAbove(userID uint) (bool, error)
}

// 规范作废原因枚举（lower_underscore 归一后匹配）
var canonicalVoidReasons = map[string]bool{
	"customer_changed_mind": true,
	"wrong_order":           true,
	"kitchen_error":         true,
	"quality_issue":         true,
	"duplicate_order":       true,
	"billing_error":         true,
}

// ValidateVoidReason 校验作废原因：规范枚举或不少于 10 字符的自由文本。
// 故意偏宽松：宁可放过一个少见但正当的原因，也不逼前厅编造枚举值。
func ValidateVoidReason(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	normalized := strings.ToLower(strings.Join(strings.Fields(trimmed), "_"))
	if canonicalVoidReasons[normalized] {
		return normalized, nil
	}
	if len([]rune(trimmed)) >= constants.VoidReasonMinFreeTextLen {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: 需为规范枚举或不少于 %d 字符的说明", ErrInvalidVoidReason, constants.VoidReasonMinFreeTextLen)
}

// VoidService 作废引擎：在店长级授权下回退已提交/已完成的订单。
type VoidService struct {
	orderRepo    repository.OrderRepository
	stockService *StockService
	auditRepo    repository.AuditLogRepository
	authz        ManagerChecker
}

// NewVoidService 创建作废服务
func NewVoidService(orderRepo repository.OrderRepository, stockService *StockService, auditRepo repository.AuditLogRepository, authz ManagerChecker) *VoidService {
	return &VoidService{
		orderRepo:    orderRepo,
		stockService: stockService,
		auditRepo:    auditRepo,
		authz:        authz,
	}
}

// Void 作废订单。
// actorID 必须解析为店长及以上角色；非赠送且直接引用菜品的订单项
// 在未抑制时归还库存，归还失败只记录（作废本身是已定的业务结论）。
// 无论库存结果如何，作废审计记录必写。
func (s *VoidService) Void(orderID uint, actorID uint, reason string, returnInventory bool) (*models.Order, *EffectOutcome, error) {
	if actorID == 0 {
		return nil, nil, ErrActorRequired
	}
	normalizedReason, err := ValidateVoidReason(reason)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusVoided {
		return nil, nil, fmt.Errorf("%w: 订单已作废", ErrInvalidState)
	}

	allowed, err := s.authz.IsManagerOrAbove(actorID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, fmt.Errorf("%w: 作废需要店长及以上权限", ErrForbidden)
	}

	if err := s.orderRepo.UpdateStatus(orderID, constants.OrderStatusVoided, map[string]interface{}{
		"voided_by":     actorID,
		"voided_reason": normalizedReason,
		"updated_at":    time.Now(),
	}); err != nil {
		return nil, nil, err
	}
	previousStatus := order.Status
	order.Status = constants.OrderStatusVoided
	order.VoidedBy = &actorID
	order.VoidedReason = normalizedReason

	outcome := NewEffectOutcome()
	if returnInventory && order.StockDeducted {
		s.returnVoidedStock(order, actorID, outcome)
	}
	s.writeVoidAudit(order, previousStatus, actorID, normalizedReason, outcome)
	return order, outcome, nil
}

// returnVoidedStock 归还作废订单库存：仅非赠送、直接引用菜品的订单项
func (s *VoidService) returnVoidedStock(order *models.Order, actorID uint, outcome *EffectOutcome) {
	lines := make([]StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		if item.IsComplimentary || item.ProductID == nil {
			continue
		}
		lines = append(lines, StockLine{ProductID: *item.ProductID, Quantity: item.Quantity})
	}
	if len(lines) == 0 {
		return
	}
	if err := s.stockService.Return(order.ID, lines, actorID); err != nil {
		logger.Warnw("void_stock_return_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		outcome.Warn("作废库存归还失败，请人工核对库存")
	}
}

// writeVoidAudit 写入作废审计记录
func (s *VoidService) writeVoidAudit(order *models.Order, previousStatus string, actorID uint, reason string, outcome *EffectOutcome) {
	orderID := order.ID
	detail, _ := json.Marshal(map[string]interface{}{
		"order_no":        order.OrderNo,
		"previous_status": previousStatus,
		"total_amount":    order.TotalAmount,
	})
	entry := &models.AuditLog{
		Action:      constants.AuditActionOrderVoided,
		OrderID:     &orderID,
		SessionID:   order.SessionID,
		ActorID:     actorID,
		PerformedBy: actorID,
		Reason:      reason,
		Detail:      string(detail),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.Errorw("void_audit_write_failed",
			"order_id", orderID,
			"actor_id", actorID,
			"error", err,
		)
		outcome.Warn("作废审计记录写入失败")
	}
}
