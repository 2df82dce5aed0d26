package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"
	"github.com/meja-pos/internal/queue"
	"github.com/meja-pos/internal/repository"
)

// 工单状态流转表：pending -> preparing -> ready -> completed，任意未完成态可取消
var allowedTicketTransitions = map[string]map[string]bool{
	constants.TicketStatusPending: {
		constants.TicketStatusPreparing: true,
		constants.TicketStatusCancelled: true,
	},
	constants.TicketStatusPreparing: {
		constants.TicketStatusReady:     true,
		constants.TicketStatusCancelled: true,
	},
	constants.TicketStatusReady: {
		constants.TicketStatusCompleted: true,
	},
}

// TicketService 出品路由适配器：按订单项生成/撤回工位工单，并推送工位通知。
type TicketService struct {
	ticketRepo  repository.TicketRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	queueClient *queue.Client
}

// NewTicketService 创建出品路由服务
func NewTicketService(ticketRepo repository.TicketRepository, orderRepo repository.OrderRepository, productRepo repository.ProductRepository, queueClient *queue.Client) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		queueClient: queueClient,
	}
}

// RouteItems 将订单项派发到目标工位。
// destination 为 both 的菜品拆成厨房、吧台各一张工单。
func (s *TicketService) RouteItems(orderID uint, items []models.OrderItem) ([]models.PrepTicket, error) {
	tickets := make([]models.PrepTicket, 0, len(items))
	for _, item := range items {
		destination, err := s.resolveDestination(item)
		if err != nil {
			return nil, err
		}
		destinations := []string{destination}
		if destination == constants.TicketDestinationBoth {
			destinations = []string{constants.TicketDestinationKitchen, constants.TicketDestinationBartender}
		}
		for _, dest := range destinations {
			tickets = append(tickets, models.PrepTicket{
				OrderID:      orderID,
				OrderItemID:  item.ID,
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				Destination:  dest,
				Status:       constants.TicketStatusPending,
				Instructions: item.Notes,
			})
		}
	}
	if err := s.ticketRepo.CreateBatch(tickets); err != nil {
		return nil, err
	}
	s.notifyStations(constants.StationEventRouted, orderID, tickets)
	return tickets, nil
}

// CancelTickets 批量取消工单并通知工位
func (s *TicketService) CancelTickets(orderID uint, ticketIDs []uint, reason string) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	if _, err := s.ticketRepo.CancelByIDs(ticketIDs, reason); err != nil {
		return err
	}
	s.notifyStationIDs(constants.StationEventCancelled, orderID, ticketIDs)
	return nil
}

// ModifiedTicketInput 加急变更工单输入
type ModifiedTicketInput struct {
	OrderID     uint
	OrderItemID uint
	ProductName string
	Destination string
	Quantity    int
	OldQuantity int
	NewQuantity int
}

// CreateModifiedTicket 创建加急变更工单。
// 原工单已派出、无法撤回时，用一张带变更说明的加急工单告知工位。
func (s *TicketService) CreateModifiedTicket(input ModifiedTicketInput) (*models.PrepTicket, error) {
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		destination = constants.TicketDestinationKitchen
	}
	ticket := &models.PrepTicket{
		OrderID:      input.OrderID,
		OrderItemID:  input.OrderItemID,
		ProductName:  input.ProductName,
		Quantity:     input.Quantity,
		Destination:  destination,
		Status:       constants.TicketStatusPending,
		IsUrgent:     true,
		Instructions: fmt.Sprintf("MODIFIED: changed from %d to %d", input.OldQuantity, input.NewQuantity),
	}
	if err := s.ticketRepo.Create(ticket); err != nil {
		return nil, err
	}
	s.notifyStations(constants.StationEventModified, input.OrderID, []models.PrepTicket{*ticket})
	return ticket, nil
}

// UpdateStatus 推进工单状态，并同步订单的出品进度状态
func (s *TicketService) UpdateStatus(ticketID uint, newStatus string) (*models.PrepTicket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if !allowedTicketTransitions[ticket.Status][newStatus] {
		return nil, fmt.Errorf("%w: 工单 %s -> %s", ErrInvalidState, ticket.Status, newStatus)
	}
	if err := s.ticketRepo.UpdateStatus(ticketID, newStatus, nil); err != nil {
		return nil, err
	}
	ticket.Status = newStatus
	s.syncOrderFromTickets(ticket.OrderID)
	return ticket, nil
}

// ListByOrder 获取订单全部工单
func (s *TicketService) ListByOrder(orderID uint) ([]models.PrepTicket, error) {
	return s.ticketRepo.ListByOrder(orderID)
}

// List 工单列表
func (s *TicketService) List(filter repository.TicketListFilter) ([]models.PrepTicket, int64, error) {
	return s.ticketRepo.List(filter)
}

// resolveDestination 解析订单项的出品工位；套餐默认进厨房
func (s *TicketService) resolveDestination(item models.OrderItem) (string, error) {
	if item.ProductID == nil {
		return constants.TicketDestinationKitchen, nil
	}
	product, err := s.productRepo.GetByID(*item.ProductID)
	if err != nil {
		return "", err
	}
	if product == nil {
		return "", fmt.Errorf("%w: 菜品 %d", ErrProductNotFound, *item.ProductID)
	}
	switch product.Destination {
	case constants.TicketDestinationKitchen, constants.TicketDestinationBartender, constants.TicketDestinationBoth:
		return product.Destination, nil
	default:
		return constants.TicketDestinationKitchen, nil
	}
}

// syncOrderFromTickets 按工单汇总推进订单的出品进度状态（信息性，不回退）
func (s *TicketService) syncOrderFromTickets(orderID uint) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		return
	}
	tickets, err := s.ticketRepo.ListByOrder(orderID)
	if err != nil {
		return
	}
	target := calcOrderProgress(tickets, order.Status)
	if target == "" || target == order.Status {
		return
	}
	if !CanTransitionOrder(order.Status, target) {
		return
	}
	if err := s.orderRepo.UpdateStatus(orderID, target, map[string]interface{}{
		"updated_at": time.Now(),
	}); err != nil {
		logger.Warnw("order_progress_sync_failed",
			"order_id", orderID,
			"target_status", target,
			"error", err,
		)
	}
}

// calcOrderProgress 汇总工单状态得到订单的出品进度
func calcOrderProgress(tickets []models.PrepTicket, currentStatus string) string {
	if len(tickets) == 0 {
		return currentStatus
	}
	var readyCount, completedCount, cancelledCount, preparingCount int
	for _, ticket := range tickets {
		switch ticket.Status {
		case constants.TicketStatusCompleted:
			completedCount++
		case constants.TicketStatusReady:
			readyCount++
		case constants.TicketStatusCancelled:
			cancelledCount++
		case constants.TicketStatusPreparing:
			preparingCount++
		}
	}
	active := len(tickets) - cancelledCount
	if active == 0 {
		return currentStatus
	}
	if completedCount == active {
		return constants.OrderStatusServed
	}
	if readyCount+completedCount == active {
		return constants.OrderStatusReady
	}
	if preparingCount > 0 {
		return constants.OrderStatusPreparing
	}
	return currentStatus
}

// notifyStations 推送工位通知任务（非致命，失败仅记录）
func (s *TicketService) notifyStations(event string, orderID uint, tickets []models.PrepTicket) {
	ids := make([]uint, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.ID)
	}
	s.notifyStationIDs(event, orderID, ids)
}

func (s *TicketService) notifyStationIDs(event string, orderID uint, ticketIDs []uint) {
	if s.queueClient == nil || len(ticketIDs) == 0 {
		return
	}
	if err := s.queueClient.EnqueueStationNotify(queue.StationNotifyPayload{
		Event:     event,
		OrderID:   orderID,
		TicketIDs: ticketIDs,
	}); err != nil {
		logger.Warnw("station_notify_enqueue_failed",
			"event", event,
			"order_id", orderID,
			"ticket_ids", ticketIDs,
			"error", err,
		)
	}
}
