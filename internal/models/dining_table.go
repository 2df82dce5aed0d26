package models

import (
	"time"

	"gorm.io/gorm"
)

// DiningTable 桌台表
type DiningTable struct {
	ID               uint           `gorm:"primarykey" json:"id"`                      // 主键
	TableNo          string         `gorm:"uniqueIndex;not null" json:"table_no"`      // 桌号
	Capacity         int            `gorm:"not null;default:4" json:"capacity"`        // 容纳人数
	IsOccupied       bool           `gorm:"not null;default:false" json:"is_occupied"` // 是否占用
	CurrentSessionID *uint          `gorm:"index" json:"current_session_id,omitempty"` // 当前会话ID
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                   // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                   // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                            // 软删除时间
}

// TableName 指定表名
func (DiningTable) TableName() string {
	return "dining_tables"
}
