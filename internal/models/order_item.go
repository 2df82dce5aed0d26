package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                               // 订单ID
	ProductID       *uint          `gorm:"index" json:"product_id,omitempty"`                            // 商品ID（与套餐ID互斥）
	PackageID       *uint          `gorm:"index" json:"package_id,omitempty"`                            // 套餐ID（套餐项不直接关联库存）
	ProductName     string         `gorm:"type:varchar(200);not null" json:"product_name"`               // 名称快照
	Quantity        int            `gorm:"not null" json:"quantity"`                                     // 数量
	UnitPrice       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`      // 单价
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 单项折扣金额
	Subtotal        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`        // 小计（数量×单价）
	Total           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total"`           // 实付（小计-折扣）
	IsComplimentary bool           `gorm:"not null;default:false" json:"is_complimentary"`               // 是否赠送
	Notes           string         `gorm:"type:varchar(300)" json:"notes,omitempty"`                     // 备注
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
