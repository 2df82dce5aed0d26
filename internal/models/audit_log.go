package models

import (
	"time"
)

// AuditLog 操作审计日志表
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`                          // 主键
	Action      string    `gorm:"index;type:varchar(64);not null" json:"action"` // 动作
	OrderID     *uint     `gorm:"index" json:"order_id,omitempty"`               // 订单ID
	SessionID   *uint     `gorm:"index" json:"session_id,omitempty"`             // 会话ID
	ActorID     uint      `gorm:"index" json:"actor_id"`                         // 请求操作人ID
	PerformedBy uint      `gorm:"index" json:"performed_by"`                     // 实际执行人ID（鉴权身份）
	Reason      string    `gorm:"type:varchar(300)" json:"reason,omitempty"`     // 原因
	Detail      string    `gorm:"type:text" json:"detail,omitempty"`             // 明细（JSON 文本）
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// ReceiptArchive 小票归档表：结台后由异步任务写入，供补打
type ReceiptArchive struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	SessionID uint      `gorm:"uniqueIndex;not null" json:"session_id"` // 会话ID
	SessionNo string    `gorm:"index;not null" json:"session_no"`       // 会话编号
	Payload   string    `gorm:"type:text;not null" json:"payload"`      // 小票内容（JSON 文本）
	CreatedAt time.Time `gorm:"index" json:"created_at"`                // 创建时间
}

// TableName 指定表名
func (ReceiptArchive) TableName() string {
	return "receipt_archives"
}
