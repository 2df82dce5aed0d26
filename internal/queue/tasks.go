package queue

import (
	"encoding/json"

	"github.com/meja-pos/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskStationNotify 工位通知任务（至少一次送达）
	TaskStationNotify = constants.TaskStationNotify
	// TaskStockAlert 低库存告警任务
	TaskStockAlert = constants.TaskStockAlert
	// TaskReceiptArchive 小票归档任务
	TaskReceiptArchive = constants.TaskReceiptArchive
)

// StationNotifyPayload 工位通知任务载荷
type StationNotifyPayload struct {
	Event     string `json:"event"`
	OrderID   uint   `json:"order_id"`
	TicketIDs []uint `json:"ticket_ids"`
}

// StockAlertPayload 低库存告警任务载荷
type StockAlertPayload struct {
	ProductID uint `json:"product_id"`
	Remaining int  `json:"remaining"`
}

// ReceiptArchivePayload 小票归档任务载荷
type ReceiptArchivePayload struct {
	SessionID uint   `json:"session_id"`
	Receipt   string `json:"receipt"`
}

// NewStationNotifyTask 创建工位通知任务
func NewStationNotifyTask(payload StationNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStationNotify, body), nil
}

// NewStockAlertTask 创建低库存告警任务
func NewStockAlertTask(payload StockAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlert, body), nil
}

// NewReceiptArchiveTask 创建小票归档任务
func NewReceiptArchiveTask(payload ReceiptArchivePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptArchive, body), nil
}
