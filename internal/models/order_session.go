package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderSession 桌台会话（挂账）表：一次到店消费可跨多张订单，统一结账
type OrderSession struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	SessionNo      string         `gorm:"uniqueIndex;not null" json:"session_no"`                       // 会话编号
	Status         string         `gorm:"index;not null" json:"status"`                                 // 会话状态
	TableID        *uint          `gorm:"index" json:"table_id,omitempty"`                              // 桌台ID
	CustomerName   string         `gorm:"type:varchar(120)" json:"customer_name,omitempty"`             // 顾客称呼
	Subtotal       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`        // 成员订单小计合计
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 折扣合计（含结账追加折扣）
	TaxAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`      // 税额合计
	TotalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 应付合计
	PaymentMethod  string         `gorm:"type:varchar(32)" json:"payment_method,omitempty"`             // 支付方式（会话级）
	AmountTendered Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount_tendered"` // 实收金额（会话级）
	ChangeAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"change_amount"`   // 找零金额（会话级）
	OpenedAt       time.Time      `gorm:"index" json:"opened_at"`                                       // 开台时间
	ClosedAt       *time.Time     `gorm:"index" json:"closed_at"`                                       // 结台时间
	ClosedBy       *uint          `gorm:"index" json:"closed_by,omitempty"`                             // 结台操作人ID
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Orders []Order `gorm:"foreignKey:SessionID" json:"orders,omitempty"` // 成员订单（非独占关联）
}

// TableName 指定表名
func (OrderSession) TableName() string {
	return "order_sessions"
}
