package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/models"
)

// confirmedOrderFixture 构造 confirmed 订单：A 3份、B 1份，派出工单。
// 确认时点已扣库存，A 余 17、B 余 19。
func confirmedOrderFixture(t *testing.T, env *testEnv) (*models.Order, *models.Product, *models.Product) {
	t.Helper()
	productA := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	productB := env.createProduct(t, "清炒时蔬", 20, 20, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{
			{ProductID: productA.ID, Quantity: 3},
			{ProductID: productB.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	confirmed, _, err := env.orders.Confirm(order.ID, 7)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	return confirmed, productA, productB
}

func findItemByProduct(t *testing.T, order *models.Order, productID uint) *models.OrderItem {
	t.Helper()
	for i := range order.Items {
		if order.Items[i].ProductID != nil && *order.Items[i].ProductID == productID {
			return &order.Items[i]
		}
	}
	t.Fatalf("item for product %d not found", productID)
	return nil
}

func TestReduceItemQuantity(t *testing.T) {
	env := setupServiceTest(t)
	order, productA, _ := confirmedOrderFixture(t, env)
	itemA := findItemByProduct(t, order, productA.ID)

	updated, outcome, err := env.modify.ReduceItemQuantity(order.ID, itemA.ID, 1, 7, "顾客改主意")
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", outcome.Warnings)
	}

	reducedItem := findItemByProduct(t, updated, productA.ID)
	if reducedItem.Quantity != 1 {
		t.Fatalf("want quantity 1, got %d", reducedItem.Quantity)
	}
	assertMoney(t, reducedItem.Subtotal, 50, "item subtotal")
	assertMoney(t, reducedItem.Total, 50, "item total")
	assertMoney(t, updated.Subtotal, 70, "order subtotal")
	assertMoney(t, updated.TotalAmount, 70, "order total")

	// 削减的 2 份归还库存（确认时扣到 17，归还后 19）
	if got := env.productStock(t, productA.ID); got != 19 {
		t.Fatalf("want stock 19, got %d", got)
	}

	// 原 pending 工单被取消
	tickets, err := env.ticketRepo.ListByItem(itemA.ID)
	if err != nil {
		t.Fatalf("list tickets failed: %v", err)
	}
	for _, ticket := range tickets {
		if ticket.Status != constants.TicketStatusCancelled {
			t.Fatalf("ticket %d want cancelled, got %s", ticket.ID, ticket.Status)
		}
	}

	// 审计记录落盘
	var count int64
	env.db.Model(&models.AuditLog{}).
		Where("action = ? AND order_id = ?", constants.AuditActionItemReduced, order.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 audit log, got %d", count)
	}
}

func TestReduceRejectsNonDecrease(t *testing.T) {
	env := setupServiceTest(t)
	order, productA, _ := confirmedOrderFixture(t, env)
	itemA := findItemByProduct(t, order, productA.ID)

	for _, quantity := range []int{0, -1, 3, 5} {
		if _, _, err := env.modify.ReduceItemQuantity(order.ID, itemA.ID, quantity, 7, "test"); !errors.Is(err, ErrValidation) {
			t.Fatalf("quantity %d: want ErrValidation, got %v", quantity, err)
		}
	}
}

func TestReduceRequiresConfirmedOrder(t *testing.T) {
	env := setupServiceTest(t)
	noodle := env.createProduct(t, "招牌牛肉面", 38, 10, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{
			{ProductID: noodle.ID, Quantity: 3},
			{ProductID: noodle.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.modify.ReduceItemQuantity(order.ID, order.Items[0].ID, 1, 7, "test"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestReducePreparingTicketCreatesModified(t *testing.T) {
	env := setupServiceTest(t)
	order, productA, _ := confirmedOrderFixture(t, env)
	itemA := findItemByProduct(t, order, productA.ID)

	// 工单已开始制作，无法撤回
	tickets, _ := env.ticketRepo.ListByItem(itemA.ID)
	if err := env.ticketRepo.UpdateStatus(tickets[0].ID, constants.TicketStatusPreparing, nil); err != nil {
		t.Fatalf("advance ticket failed: %v", err)
	}

	_, outcome, err := env.modify.ReduceItemQuantity(order.ID, itemA.ID, 1, 7, "顾客改主意")
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if len(outcome.Warnings) != 0 {
		t.Fatalf("preparing ticket should not warn: %v", outcome.Warnings)
	}

	after, err := env.ticketRepo.ListByItem(itemA.ID)
	if err != nil {
		t.Fatalf("list tickets failed: %v", err)
	}
	var urgent *models.PrepTicket
	for i := range after {
		if after[i].IsUrgent {
			urgent = &after[i]
		}
	}
	if urgent == nil {
		t.Fatalf("urgent modified ticket not created")
	}
	if !strings.Contains(urgent.Instructions, "MODIFIED: changed from 3 to 1") {
		t.Fatalf("unexpected instructions: %s", urgent.Instructions)
	}
	if urgent.Quantity != 1 {
		t.Fatalf("modified ticket want quantity 1, got %d", urgent.Quantity)
	}
}

func TestReduceReadyTicketWarnsButProceeds(t *testing.T) {
	env := setupServiceTest(t)
	order, productA, _ := confirmedOrderFixture(t, env)
	itemA := findItemByProduct(t, order, productA.ID)

	tickets, _ := env.ticketRepo.ListByItem(itemA.ID)
	if err := env.ticketRepo.UpdateStatus(tickets[0].ID, constants.TicketStatusReady, nil); err != nil {
		t.Fatalf("advance ticket failed: %v", err)
	}

	updated, outcome, err := env.modify.ReduceItemQuantity(order.ID, itemA.ID, 2, 7, "顾客改主意")
	if err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if len(outcome.Warnings) == 0 {
		t.Fatalf("ready ticket should produce a warning")
	}
	if findItemByProduct(t, updated, productA.ID).Quantity != 2 {
		t.Fatalf("reduce should proceed despite warning")
	}
}

func TestRemoveItem(t *testing.T) {
	env := setupServiceTest(t)
	order, _, productB := confirmedOrderFixture(t, env)
	itemB := findItemByProduct(t, order, productB.ID)

	updated, outcome, err := env.modify.RemoveItem(order.ID, itemB.ID, 7, "上错菜")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", outcome.Warnings)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("want 1 remaining item, got %d", len(updated.Items))
	}
	assertMoney(t, updated.Subtotal, 150, "order subtotal after removal")

	// 整项归还库存（确认时扣到 19，归还后 20）
	if got := env.productStock(t, productB.ID); got != 20 {
		t.Fatalf("want stock 20, got %d", got)
	}

	// 工单取消、审计落盘
	tickets, _ := env.ticketRepo.ListByItem(itemB.ID)
	for _, ticket := range tickets {
		if ticket.Status != constants.TicketStatusCancelled {
			t.Fatalf("ticket %d want cancelled, got %s", ticket.ID, ticket.Status)
		}
	}
	var count int64
	env.db.Model(&models.AuditLog{}).
		Where("action = ? AND order_id = ?", constants.AuditActionItemRemoved, order.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 audit log, got %d", count)
	}
}

func TestRemoveLastItemRejected(t *testing.T) {
	env := setupServiceTest(t)
	noodle := env.createProduct(t, "招牌牛肉面", 38, 10, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: noodle.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.orders.Confirm(order.ID, 7); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, _, err := env.modify.RemoveItem(order.ID, order.Items[0].ID, 7, "test"); !errors.Is(err, ErrLastItemRemoval) {
		t.Fatalf("want ErrLastItemRemoval, got %v", err)
	}
}

func TestReduceThenCompleteKeepsStockConsistent(t *testing.T) {
	env := setupServiceTest(t)
	order, productA, productB := confirmedOrderFixture(t, env)
	itemA := findItemByProduct(t, order, productA.ID)

	// 确认扣 3 份（20 -> 17），削减到 1 份归还 2 份（-> 19）
	if _, _, err := env.modify.ReduceItemQuantity(order.ID, itemA.ID, 1, 7, "顾客改主意"); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if got := env.productStock(t, productA.ID); got != 19 {
		t.Fatalf("want stock 19 after reduce, got %d", got)
	}

	// 结账不得再按削减后的数量重复扣减：台账停在 19，即净消耗 1 份
	if _, _, err := env.orders.Complete(order.ID, 7); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got := env.productStock(t, productA.ID); got != 19 {
		t.Fatalf("want stock 19 after complete, got %d", got)
	}
	if got := env.productStock(t, productB.ID); got != 19 {
		t.Fatalf("want product B stock 19, got %d", got)
	}
}

func TestReduceWithoutDeductionSkipsStockReturn(t *testing.T) {
	env := setupServiceTest(t)
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	side := env.createProduct(t, "清炒时蔬", 20, 20, constants.TicketDestinationKitchen)

	// 确认时扣减失败过的订单（标记未置位），削减时没有可归还的份额
	order := env.createOrderWithItems(t, constants.OrderStatusConfirmed, nil, []models.OrderItem{
		{ProductID: itemRef(dish.ID), ProductName: "蒜香排骨", Quantity: 3, UnitPrice: money(50)},
		{ProductID: itemRef(side.ID), ProductName: "清炒时蔬", Quantity: 1, UnitPrice: money(20)},
	})
	if order.StockDeducted {
		t.Fatalf("fixture order must not be deducted")
	}

	if _, _, err := env.modify.ReduceItemQuantity(order.ID, order.Items[0].ID, 1, 7, "顾客改主意"); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	if got := env.productStock(t, dish.ID); got != 20 {
		t.Fatalf("stock must stay 20, got %d", got)
	}
}

func TestModifyItemNotFound(t *testing.T) {
	env := setupServiceTest(t)
	order, _, _ := confirmedOrderFixture(t, env)
	if _, _, err := env.modify.ReduceItemQuantity(order.ID, 9999, 1, 7, "test"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
	if _, _, err := env.modify.RemoveItem(9999, 1, 7, "test"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}
