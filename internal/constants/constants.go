package constants

// 订单状态常量
const (
	OrderStatusDraft     = "draft"
	OrderStatusPending   = "pending"
	OrderStatusOnHold    = "on_hold"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusVoided    = "voided"
)

// 桌台会话（挂账）状态常量
const (
	SessionStatusOpen      = "open"
	SessionStatusClosed    = "closed"
	SessionStatusAbandoned = "abandoned"
)

// 出品工单状态常量
const (
	TicketStatusPending   = "pending"
	TicketStatusPreparing = "preparing"
	TicketStatusReady     = "ready"
	TicketStatusCompleted = "completed"
	TicketStatusCancelled = "cancelled"
)

// 出品工单目标工位常量
const (
	TicketDestinationKitchen   = "kitchen"
	TicketDestinationBartender = "bartender"
	TicketDestinationBoth      = "both"
)

// 支付方式常量
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodQR       = "qr"
	PaymentMethodTransfer = "transfer"
)

// 折扣类型常量
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeAmount     = "amount"
)

// 折扣作用范围常量
const (
	DiscountScopeOrder   = "order"
	DiscountScopeSession = "session"
)

// 员工角色常量
const (
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleWaiter  = "waiter"
)

// 审计动作常量
const (
	AuditActionOrderVoided  = "order_voided"
	AuditActionItemReduced  = "order_item_reduced"
	AuditActionItemRemoved  = "order_item_removed"
	AuditActionStockAdjust  = "stock_adjusted"
	AuditActionSessionClose = "session_closed"
	AuditActionStockAlert   = "stock_alert"
)

// 异步任务名称常量
const (
	TaskStationNotify  = "pos:station_notify"
	TaskStockAlert     = "pos:stock_alert"
	TaskReceiptArchive = "pos:receipt_archive"
)

// QueueDefault 默认队列名称
const QueueDefault = "default"

// QueueCritical 高优先级队列名称
const QueueCritical = "critical"

// 工位通知事件常量
const (
	StationEventRouted    = "routed"
	StationEventCancelled = "cancelled"
	StationEventModified  = "modified"
)

// DefaultTaxRatePercent 默认税率（百分比）
const DefaultTaxRatePercent = 0

// VoidReasonMinFreeTextLen 自定义作废原因最小长度
const VoidReasonMinFreeTextLen = 10
