package models

import (
	"time"

	"gorm.io/gorm"
)

// PrepTicket 出品工单表：按订单项派发到厨房/吧台的工作单
type PrepTicket struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                      // 订单ID
	OrderItemID     uint           `gorm:"index;not null" json:"order_item_id"`                 // 订单项ID（弱关联，允许原项被删除）
	ProductName     string         `gorm:"type:varchar(200);not null" json:"product_name"`      // 名称快照
	Quantity        int            `gorm:"not null" json:"quantity"`                            // 数量
	Destination     string         `gorm:"index;not null" json:"destination"`                   // 目标工位
	Status          string         `gorm:"index;not null" json:"status"`                        // 工单状态
	IsUrgent        bool           `gorm:"not null;default:false" json:"is_urgent"`             // 是否加急
	Instructions    string         `gorm:"type:varchar(500)" json:"instructions,omitempty"`     // 制作说明
	CancelledReason string         `gorm:"type:varchar(200)" json:"cancelled_reason,omitempty"` // 取消原因
	NotifiedAt      *time.Time     `json:"notified_at"`                                         // 工位通知送达时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间
}

// TableName 指定表名
func (PrepTicket) TableName() string {
	return "prep_tickets"
}
