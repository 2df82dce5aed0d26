package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/queue"
	"github.com/meja-pos/internal/repository"

	"github.com/shopspring/decimal"
)

// SessionService 桌台会话聚合器：开台、结台、弃台、账单预览。
// 一次到店消费（挂账）横跨多张订单，在会话层统一收款、打折、释放桌台。
type SessionService struct {
	sessionRepo  repository.SessionRepository
	orderRepo    repository.OrderRepository
	tableRepo    repository.TableRepository
	discountRepo repository.DiscountRecordRepository
	auditRepo    repository.AuditLogRepository
	stockService *StockService
	queueClient  *queue.Client
}

// NewSessionService 创建会话服务
func NewSessionService(sessionRepo repository.SessionRepository, orderRepo repository.OrderRepository, tableRepo repository.TableRepository, discountRepo repository.DiscountRecordRepository, auditRepo repository.AuditLogRepository, stockService *StockService, queueClient *queue.Client) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		orderRepo:    orderRepo,
		tableRepo:    tableRepo,
		discountRepo: discountRepo,
		auditRepo:    auditRepo,
		stockService: stockService,
		queueClient:  queueClient,
	}
}

// OpenTabInput 开台输入
type OpenTabInput struct {
	TableID      uint   `json:"table_id"`
	CustomerName string `json:"customer_name,omitempty"`
}

// OpenTab 开台。幂等：桌台已有 OPEN 会话时原样返回该会话，
// 不可靠客户端的重试永远不会制造重复会话。
func (s *SessionService) OpenTab(input OpenTabInput) (*models.OrderSession, error) {
	if input.TableID == 0 {
		return nil, fmt.Errorf("%w: 缺少桌台", ErrValidation)
	}
	table, err := s.tableRepo.GetByID(input.TableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, ErrTableNotFound
	}

	existing, err := s.sessionRepo.GetOpenByTable(input.TableID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	session := &models.OrderSession{
		SessionNo:    GenerateSessionNo(now),
		Status:       constants.SessionStatusOpen,
		TableID:      &input.TableID,
		CustomerName: strings.TrimSpace(input.CustomerName),
		OpenedAt:     now,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	if err := s.tableRepo.Occupy(input.TableID, session.ID); err != nil {
		logger.Warnw("table_occupy_failed",
			"table_id", input.TableID,
			"session_id", session.ID,
			"error", err,
		)
	}
	return session, nil
}

// BillPreview 账单预览/小票投影
type BillPreview struct {
	Session         *models.OrderSession `json:"session"`
	Orders          []models.Order       `json:"orders"`
	ItemStatusCount map[string]int       `json:"item_status_count"`
	DurationMinutes int                  `json:"duration_minutes"`
	FinalTotal      models.Money         `json:"final_total"`
	AmountTendered  models.Money         `json:"amount_tendered"`
	ChangeAmount    models.Money         `json:"change_amount"`
}

// GetBillPreview 生成账单预览。OPEN 会话看实时账，CLOSED 会话供补打；
// 其余状态拒绝。只读，不产生任何写入。
func (s *SessionService) GetBillPreview(sessionID uint) (*BillPreview, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != constants.SessionStatusOpen && session.Status != constants.SessionStatusClosed {
		return nil, fmt.Errorf("%w: 会话 %s 不支持账单预览", ErrInvalidState, session.Status)
	}

	end := time.Now()
	if session.ClosedAt != nil {
		end = *session.ClosedAt
	}
	duration := end.Sub(session.OpenedAt)
	if duration < 0 {
		duration = 0
	}

	statusCount := make(map[string]int)
	for _, order := range session.Orders {
		for _, item := range order.Items {
			statusCount[order.Status] += item.Quantity
		}
	}

	return &BillPreview{
		Session:         session,
		Orders:          session.Orders,
		ItemStatusCount: statusCount,
		DurationMinutes: int(duration / time.Minute),
		FinalTotal:      session.TotalAmount,
		AmountTendered:  session.AmountTendered,
		ChangeAmount:    session.ChangeAmount,
	}, nil
}

// CloseTabInput 结台输入
type CloseTabInput struct {
	ActorID        uint          `json:"actor_id"`
	PaymentMethod  string        `json:"payment_method"`
	AmountTendered models.Money  `json:"amount_tendered"`
	DiscountType   string        `json:"discount_type,omitempty"`  // percentage / amount
	DiscountValue  *models.Money `json:"discount_value,omitempty"` // 百分比数值或固定金额
}

// CloseTabResult 结台结果
type CloseTabResult struct {
	Session      *models.OrderSession `json:"session"`
	Receipt      *BillPreview         `json:"receipt"`
	ChangeAmount models.Money         `json:"change_amount"`
	Outcome      *EffectOutcome       `json:"outcome"`
}

// CloseTab 结台。全系统不变量最密集的操作，步骤顺序不可调换：
// 成员订单先全部写完（期间合计重算器随每次写入重算会话合计），
// 然后关闭会话，最后才把结台追加折扣落到会话行上。
// 折扣若先写，会被成员订单写入触发的下一次重算悄悄清零。
func (s *SessionService) CloseTab(sessionID uint, input CloseTabInput) (*CloseTabResult, error) {
	if input.ActorID == 0 {
		return nil, ErrActorRequired
	}
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != constants.SessionStatusOpen {
		return nil, fmt.Errorf("%w: 会话 %s 不可结台", ErrInvalidState, session.Status)
	}

	// 追加折扣按“现有折扣之后的净额”计算并夹紧，净额与折扣都不为负
	subtotal := session.Subtotal.Decimal
	existingDiscount := session.DiscountAmount.Decimal
	net := subtotal.Sub(existingDiscount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	additionalDiscount := decimal.Zero
	if input.DiscountValue != nil {
		value := input.DiscountValue.Decimal
		switch input.DiscountType {
		case constants.DiscountTypePercentage:
			additionalDiscount = net.Mul(value).Div(decimal.NewFromInt(100)).Round(2)
		case constants.DiscountTypeAmount, "":
			additionalDiscount = value.Round(2)
		default:
			return nil, fmt.Errorf("%w: 未知折扣类型 %s", ErrValidation, input.DiscountType)
		}
		if additionalDiscount.IsNegative() {
			return nil, fmt.Errorf("%w: 折扣不能为负", ErrValidation)
		}
		if additionalDiscount.GreaterThan(net) {
			additionalDiscount = net
		}
	}

	finalDiscount := existingDiscount.Add(additionalDiscount)
	finalTotal := subtotal.Sub(finalDiscount).Add(session.TaxAmount.Decimal)
	if finalTotal.IsNegative() {
		finalTotal = decimal.Zero
	}

	if input.AmountTendered.LessThan(finalTotal) {
		return nil, fmt.Errorf("%w: 应付 %s 实收 %s", ErrTenderedBelowTotal,
			finalTotal.StringFixed(2), input.AmountTendered.String())
	}
	change := input.AmountTendered.Sub(finalTotal)

	outcome := NewEffectOutcome()
	now := time.Now()

	// 成员订单收尾：未走过正常扣减路径的订单（结台时仍为 draft/pending）
	// 在此兜底扣库存，绝不重复扣减；随后统一转 completed。
	// 收银员记为结台操作人：营收归属实际收款的人，而不是下单的人。
	// 实收/找零是会话级事实，订单行绝不落这两个字段，
	// 否则聚合报表会按订单数成倍放大营收。
	for i := range session.Orders {
		order := &session.Orders[i]
		if order.Status == constants.OrderStatusCompleted || order.Status == constants.OrderStatusVoided {
			continue
		}
		s.safetyNetDeduct(order, input.ActorID, outcome)
		if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusCompleted, map[string]interface{}{
			"completed_at":   now,
			"cashier_id":     input.ActorID,
			"payment_method": input.PaymentMethod,
			"updated_at":     now,
		}); err != nil {
			return nil, err
		}
		order.Status = constants.OrderStatusCompleted
	}

	// 先关会话，再写折扣：关闭后合计重算器不再触碰本会话
	if err := s.sessionRepo.UpdateStatus(sessionID, constants.SessionStatusClosed, map[string]interface{}{
		"closed_at": now,
		"closed_by": input.ActorID,
	}); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateFields(sessionID, map[string]interface{}{
		"discount_amount": models.NewMoneyFromDecimal(finalDiscount),
		"total_amount":    models.NewMoneyFromDecimal(finalTotal),
		"payment_method":  input.PaymentMethod,
		"amount_tendered": input.AmountTendered,
		"change_amount":   models.NewMoneyFromDecimal(change),
	}); err != nil {
		return nil, err
	}

	// 仅对本次新施加的折扣写审计记录；写失败不影响已关闭的会话
	if additionalDiscount.IsPositive() {
		record := &models.DiscountRecord{
			Scope:          constants.DiscountScopeSession,
			RefID:          sessionID,
			DiscountType:   discountTypeOrDefault(input.DiscountType),
			DiscountAmount: models.NewMoneyFromDecimal(additionalDiscount),
			ActorID:        input.ActorID,
			Context:        buildDiscountContext(session),
		}
		if input.DiscountValue != nil {
			record.DiscountValue = *input.DiscountValue
		}
		if err := s.discountRepo.Create(record); err != nil {
			logger.Warnw("close_tab_discount_record_failed",
				"session_id", sessionID,
				"discount_amount", additionalDiscount.StringFixed(2),
				"error", err,
			)
			outcome.Warn("折扣审计记录写入失败")
		}
	}

	if session.TableID != nil {
		if err := s.tableRepo.Release(*session.TableID); err != nil {
			logger.Warnw("close_tab_table_release_failed",
				"session_id", sessionID,
				"table_id", *session.TableID,
				"error", err,
			)
			outcome.Warn("桌台释放失败，请手动清台")
		}
	}

	closed, err := s.sessionRepo.GetByID(sessionID)
	if err != nil || closed == nil {
		closed = session
		closed.Status = constants.SessionStatusClosed
	}

	receipt, err := s.GetBillPreview(sessionID)
	if err != nil {
		logger.Warnw("close_tab_receipt_build_failed", "session_id", sessionID, "error", err)
	}
	s.archiveReceipt(closed, receipt, outcome)
	s.writeCloseAudit(closed, input.ActorID, outcome)

	return &CloseTabResult{
		Session:      closed,
		Receipt:      receipt,
		ChangeAmount: models.NewMoneyFromDecimal(change),
		Outcome:      outcome,
	}, nil
}

// safetyNetDeduct 结台兜底扣减：仅针对从未扣减过库存的订单
func (s *SessionService) safetyNetDeduct(order *models.Order, actorID uint, outcome *EffectOutcome) {
	if order.StockDeducted {
		return
	}
	lines := LinesFromItems(order.Items)
	if len(lines) == 0 {
		return
	}
	if err := s.stockService.Deduct(order.ID, lines, actorID); err != nil {
		logger.Warnw("close_tab_safety_net_deduct_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		outcome.Warn(fmt.Sprintf("订单 %s 兜底库存扣减失败，请人工核对", order.OrderNo))
		return
	}
	if err := s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"stock_deducted": true,
	}); err != nil {
		logger.Warnw("close_tab_stock_flag_update_failed", "order_id", order.ID, "error", err)
		outcome.Warn(fmt.Sprintf("订单 %s 库存扣减标记写入失败", order.OrderNo))
		return
	}
	order.StockDeducted = true
}

// AbandonSession 弃台：未付款离场的审计终态，不触碰成员订单
func (s *SessionService) AbandonSession(sessionID uint, actorID uint) (*models.OrderSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != constants.SessionStatusOpen {
		return nil, fmt.Errorf("%w: 会话 %s 不可弃台", ErrInvalidState, session.Status)
	}
	now := time.Now()
	if err := s.sessionRepo.UpdateStatus(sessionID, constants.SessionStatusAbandoned, map[string]interface{}{
		"closed_at": now,
		"closed_by": actorID,
	}); err != nil {
		return nil, err
	}
	session.Status = constants.SessionStatusAbandoned
	session.ClosedAt = &now
	if session.TableID != nil {
		if err := s.tableRepo.Release(*session.TableID); err != nil {
			logger.Warnw("abandon_table_release_failed",
				"session_id", sessionID,
				"table_id", *session.TableID,
				"error", err,
			)
		}
	}
	return session, nil
}

// AddOrderToSession 将订单并入会话；仅 OPEN 会话可追加
func (s *SessionService) AddOrderToSession(sessionID, orderID uint) error {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Status != constants.SessionStatusOpen {
		return fmt.Errorf("%w: 会话 %s 不可追加订单", ErrInvalidState, session.Status)
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusVoided {
		return fmt.Errorf("%w: 已作废订单不可并入会话", ErrInvalidState)
	}
	return s.orderRepo.AssignSession(orderID, &sessionID)
}

// ListActiveTabs 列出全部在场会话
func (s *SessionService) ListActiveTabs() ([]models.OrderSession, error) {
	return s.sessionRepo.ListByStatus(constants.SessionStatusOpen)
}

// SessionStats 会话统计
type SessionStats struct {
	Since          time.Time    `json:"since"`
	OpenCount      int64        `json:"open_count"`
	ClosedCount    int64        `json:"closed_count"`
	AbandonedCount int64        `json:"abandoned_count"`
	ClosedRevenue  models.Money `json:"closed_revenue"`
}

// GetSessionStats 统计近 N 天的会话数量与已结台营收
func (s *SessionService) GetSessionStats(days int) (*SessionStats, error) {
	if days <= 0 {
		days = 1
	}
	since := time.Now().AddDate(0, 0, -days)
	row, err := s.sessionRepo.StatsSince(since)
	if err != nil {
		return nil, err
	}
	return &SessionStats{
		Since:          since,
		OpenCount:      row.OpenCount,
		ClosedCount:    row.ClosedCount,
		AbandonedCount: row.AbandonedCount,
		ClosedRevenue:  row.ClosedRevenue,
	}, nil
}

func discountTypeOrDefault(discountType string) string {
	if discountType == "" {
		return constants.DiscountTypeAmount
	}
	return discountType
}

func buildDiscountContext(session *models.OrderSession) string {
	parts := []string{fmt.Sprintf("session=%s", session.SessionNo)}
	if session.TableID != nil {
		parts = append(parts, fmt.Sprintf("table=%d", *session.TableID))
	}
	if session.CustomerName != "" {
		parts = append(parts, fmt.Sprintf("customer=%s", session.CustomerName))
	}
	return strings.Join(parts, " ")
}

// archiveReceipt 推送小票归档任务（非致命）
func (s *SessionService) archiveReceipt(session *models.OrderSession, receipt *BillPreview, outcome *EffectOutcome) {
	if s.queueClient == nil || receipt == nil {
		return
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		logger.Warnw("receipt_marshal_failed", "session_id", session.ID, "error", err)
		return
	}
	if err := s.queueClient.EnqueueReceiptArchive(queue.ReceiptArchivePayload{
		SessionID: session.ID,
		Receipt:   string(payload),
	}); err != nil {
		logger.Warnw("receipt_archive_enqueue_failed",
			"session_id", session.ID,
			"session_no", session.SessionNo,
			"error", err,
		)
		outcome.Warn("小票归档任务推送失败")
	}
}

// writeCloseAudit 写入结台审计记录（非致命）
func (s *SessionService) writeCloseAudit(session *models.OrderSession, actorID uint, outcome *EffectOutcome) {
	sessionID := session.ID
	detail, _ := json.Marshal(map[string]interface{}{
		"session_no":   session.SessionNo,
		"total_amount": session.TotalAmount,
		"order_count":  len(session.Orders),
	})
	entry := &models.AuditLog{
		Action:      constants.AuditActionSessionClose,
		SessionID:   &sessionID,
		ActorID:     actorID,
		PerformedBy: actorID,
		Detail:      string(detail),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.Warnw("close_tab_audit_write_failed", "session_id", sessionID, "error", err)
		outcome.Warn("结台审计记录写入失败")
	}
}
