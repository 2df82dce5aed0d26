package service

import (
	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecalcItemAmounts 按当前数量重算订单项金额。
// 不变量：subtotal = quantity * unit_price，total = subtotal - discount_amount。
func RecalcItemAmounts(item *models.OrderItem) {
	if item == nil {
		return
	}
	subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	item.Subtotal = models.NewMoneyFromDecimal(subtotal)
	item.Total = models.NewMoneyFromDecimal(subtotal.Sub(item.DiscountAmount.Decimal))
}

// RecalcOrderAmounts 以订单项实时求和重算订单金额（从零累加，避免增量修改带来的漂移）。
// 不变量：total_amount = subtotal - discount_amount + tax_amount。
func RecalcOrderAmounts(order *models.Order) {
	if order == nil {
		return
	}
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, item := range order.Items {
		subtotal = subtotal.Add(item.Subtotal.Decimal)
		discount = discount.Add(item.DiscountAmount.Decimal)
	}
	order.Subtotal = models.NewMoneyFromDecimal(subtotal)
	order.DiscountAmount = models.NewMoneyFromDecimal(discount)
	order.TotalAmount = models.NewMoneyFromDecimal(subtotal.Sub(discount).Add(order.TaxAmount.Decimal))
}

// SessionTotalsRecalculator 会话合计重算器。
// 契约：凡成员订单行发生写入，立即以成员订单为准重算该会话的聚合合计。
// 结台流程必须围绕这一契约安排写入顺序：会话级折扣只能在会话关闭、
// 成员订单全部写完之后落盘，否则会被下一次重算覆盖掉。
type SessionTotalsRecalculator interface {
	Recalc(db *gorm.DB, sessionID uint)
}

// GormSessionTotalsRecalculator 基于 GORM 的会话合计重算实现。
// 仅对 OPEN 会话生效：已关闭会话的合计被冻结，仅用于小票重打。
type GormSessionTotalsRecalculator struct{}

// Recalc 重算会话聚合合计（作废订单不计入）
func (GormSessionTotalsRecalculator) Recalc(db *gorm.DB, sessionID uint) {
	if db == nil || sessionID == 0 {
		return
	}
	var session models.OrderSession
	if err := db.Select("id", "status").First(&session, sessionID).Error; err != nil {
		return
	}
	if session.Status != constants.SessionStatusOpen {
		return
	}

	var orders []models.Order
	if err := db.Where("session_id = ? AND status <> ?", sessionID, constants.OrderStatusVoided).
		Find(&orders).Error; err != nil {
		logger.Warnw("session_totals_recalc_read_failed",
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	total := decimal.Zero
	for _, order := range orders {
		subtotal = subtotal.Add(order.Subtotal.Decimal)
		discount = discount.Add(order.DiscountAmount.Decimal)
		tax = tax.Add(order.TaxAmount.Decimal)
		total = total.Add(order.TotalAmount.Decimal)
	}

	updates := map[string]interface{}{
		"subtotal":        models.NewMoneyFromDecimal(subtotal),
		"discount_amount": models.NewMoneyFromDecimal(discount),
		"tax_amount":      models.NewMoneyFromDecimal(tax),
		"total_amount":    models.NewMoneyFromDecimal(total),
	}
	if err := db.Model(&models.OrderSession{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		logger.Warnw("session_totals_recalc_write_failed",
			"session_id", sessionID,
			"error", err,
		)
	}
}
