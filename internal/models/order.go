package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	Status         string         `gorm:"index;not null" json:"status"`                                 // 订单状态
	TableNo        string         `gorm:"index" json:"table_no,omitempty"`                              // 桌号快照
	SessionID      *uint          `gorm:"index" json:"session_id,omitempty"`                            // 所属会话ID（可空、可重新指派）
	CashierID      uint           `gorm:"index" json:"cashier_id,omitempty"`                            // 收银员ID（结账人）
	Subtotal       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`        // 商品小计
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 折扣金额
	TaxAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`      // 税额
	TotalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 应付金额
	PaymentMethod  string         `gorm:"type:varchar(32)" json:"payment_method,omitempty"`             // 支付方式
	AmountTendered Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount_tendered"` // 实收金额（仅单独结账时写入）
	ChangeAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"change_amount"`   // 找零金额
	CompletedAt    *time.Time     `gorm:"index" json:"completed_at"`                                    // 完成时间
	VoidedBy       *uint          `gorm:"index" json:"voided_by,omitempty"`                             // 作废操作人ID
	VoidedReason   string         `gorm:"type:varchar(200)" json:"voided_reason,omitempty"`             // 作废原因
	StockDeducted  bool           `gorm:"not null;default:false" json:"stock_deducted"`                 // 库存是否已扣减
	Notes          string         `gorm:"type:varchar(500)" json:"notes,omitempty"`                     // 备注
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
