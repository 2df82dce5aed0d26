package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/provider"
	"github.com/meja-pos/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskStationNotify, c.handleStationNotify)
	mux.HandleFunc(queue.TaskStockAlert, c.handleStockAlert)
	mux.HandleFunc(queue.TaskReceiptArchive, c.handleReceiptArchive)
}

// handleStationNotify 工位通知：至少一次送达，成功后给工单盖送达时间戳
func (c *Consumer) handleStationNotify(_ context.Context, task *asynq.Task) error {
	var payload queue.StationNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_station_notify_unmarshal_failed", "error", err)
		return err
	}
	if len(payload.TicketIDs) == 0 {
		logger.Debugw("worker_station_notify_skip_empty", "order_id", payload.OrderID)
		return nil
	}

	// 工位显示终端的推送通道在这里对接；当前实现记录通知事实并盖时间戳，
	// 重试由队列保证（任务挂在 critical 队列，MaxRetry 5）
	logger.Infow("station_notified",
		"event", payload.Event,
		"order_id", payload.OrderID,
		"ticket_ids", payload.TicketIDs,
	)
	if err := c.TicketRepo.MarkNotified(payload.TicketIDs, time.Now()); err != nil {
		logger.Warnw("worker_station_notify_mark_failed",
			"order_id", payload.OrderID,
			"ticket_ids", payload.TicketIDs,
			"error", err,
		)
		return err
	}
	return nil
}

// handleStockAlert 低库存告警：写审计记录供后台列表展示
func (c *Consumer) handleStockAlert(_ context.Context, task *asynq.Task) error {
	var payload queue.StockAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_stock_alert_unmarshal_failed", "error", err)
		return err
	}
	if payload.ProductID == 0 {
		return nil
	}
	product, err := c.ProductRepo.GetByID(payload.ProductID)
	if err != nil {
		logger.Warnw("worker_stock_alert_fetch_product_failed", "product_id", payload.ProductID, "error", err)
		return err
	}
	if product == nil {
		logger.Debugw("worker_stock_alert_skip_product_missing", "product_id", payload.ProductID)
		return nil
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"product_id":   product.ID,
		"product_name": product.Name,
		"remaining":    payload.Remaining,
		"threshold":    product.LowStockThreshold,
	})
	entry := &models.AuditLog{
		Action: constants.AuditActionStockAlert,
		Detail: string(detail),
	}
	if err := c.AuditRepo.Create(entry); err != nil {
		logger.Warnw("worker_stock_alert_record_failed", "product_id", payload.ProductID, "error", err)
		return err
	}
	logger.Warnw("stock_low",
		"product_id", product.ID,
		"product_name", product.Name,
		"remaining", payload.Remaining,
		"threshold", product.LowStockThreshold,
	)
	return nil
}

// handleReceiptArchive 小票归档：落库供补打，幂等（会话唯一索引）
func (c *Consumer) handleReceiptArchive(_ context.Context, task *asynq.Task) error {
	var payload queue.ReceiptArchivePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_receipt_archive_unmarshal_failed", "error", err)
		return err
	}
	if payload.SessionID == 0 || payload.Receipt == "" {
		return nil
	}

	existing, err := c.AuditRepo.GetReceiptArchiveBySession(payload.SessionID)
	if err != nil {
		logger.Warnw("worker_receipt_archive_lookup_failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	if existing != nil {
		logger.Debugw("worker_receipt_archive_skip_exists", "session_id", payload.SessionID)
		return nil
	}

	session, err := c.SessionRepo.GetByID(payload.SessionID)
	if err != nil {
		logger.Warnw("worker_receipt_archive_fetch_session_failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	if session == nil {
		logger.Debugw("worker_receipt_archive_skip_session_missing", "session_id", payload.SessionID)
		return nil
	}

	archive := &models.ReceiptArchive{
		SessionID: payload.SessionID,
		SessionNo: session.SessionNo,
		Payload:   payload.Receipt,
	}
	if err := c.AuditRepo.CreateReceiptArchive(archive); err != nil {
		logger.Warnw("worker_receipt_archive_write_failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	return nil
}
