package models

import (
	"time"
)

// DiscountRecord 折扣审计记录表：仅在新施加订单/会话级折扣时写入，写后不改
type DiscountRecord struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	Scope          string    `gorm:"index;type:varchar(16);not null" json:"scope"`                 // 作用范围（order/session）
	RefID          uint      `gorm:"index;not null" json:"ref_id"`                                 // 订单或会话ID
	DiscountType   string    `gorm:"type:varchar(16);not null" json:"discount_type"`               // 折扣类型
	DiscountValue  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_value"`  // 折扣值（百分比数值或固定金额）
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 实际折扣金额
	ActorID        uint      `gorm:"index;not null" json:"actor_id"`                               // 操作人ID
	Context        string    `gorm:"type:varchar(500)" json:"context,omitempty"`                   // 上下文描述（会话号/顾客/桌号）
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
}

// TableName 指定表名
func (DiscountRecord) TableName() string {
	return "discount_records"
}
