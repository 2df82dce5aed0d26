package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	OrderNo     string
	SessionID   uint
	TableNo     string
	CashierID   uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// SessionListFilter 查询会话列表的过滤条件
type SessionListFilter struct {
	Page       int
	PageSize   int
	Status     string
	TableID    uint
	OpenedFrom *time.Time
	OpenedTo   *time.Time
}

// TicketListFilter 查询出品工单列表的过滤条件
type TicketListFilter struct {
	Page        int
	PageSize    int
	OrderID     uint
	Destination string
	Status      string
	OnlyUrgent  bool
}

// AuditLogListFilter 查询审计日志列表的过滤条件
type AuditLogListFilter struct {
	Page        int
	PageSize    int
	Action      string
	OrderID     uint
	SessionID   uint
	ActorID     uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
