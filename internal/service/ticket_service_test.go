package service

import (
	"errors"
	"testing"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/models"
)

func TestRouteItemsSplitsBothDestination(t *testing.T) {
	env := setupServiceTest(t)
	hotpot := env.createProduct(t, "火锅双人餐", 128, 30, constants.TicketDestinationBoth)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: hotpot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	tickets, err := env.tickets.RouteItems(order.ID, order.Items)
	if err != nil {
		t.Fatalf("route items failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("want 2 tickets, got %d", len(tickets))
	}
	dests := map[string]bool{}
	for _, ticket := range tickets {
		dests[ticket.Destination] = true
	}
	if !dests[constants.TicketDestinationKitchen] || !dests[constants.TicketDestinationBartender] {
		t.Fatalf("both destinations expected, got %v", dests)
	}
}

func TestRouteItemsPackageDefaultsToKitchen(t *testing.T) {
	env := setupServiceTest(t)
	pkgID := uint(42)
	tickets, err := env.tickets.RouteItems(1, []models.OrderItem{
		{ID: 1, PackageID: &pkgID, ProductName: "午市套餐A", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("route items failed: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Destination != constants.TicketDestinationKitchen {
		t.Fatalf("package item should route to kitchen: %+v", tickets)
	}
}

func TestTicketStatusFlowSyncsOrder(t *testing.T) {
	env := setupServiceTest(t)
	noodle := env.createProduct(t, "招牌牛肉面", 38, 100, constants.TicketDestinationKitchen)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: noodle.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.orders.Confirm(order.ID, 7); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	tickets, err := env.ticketRepo.ListByOrder(order.ID)
	if err != nil || len(tickets) != 1 {
		t.Fatalf("want 1 ticket, got %d (%v)", len(tickets), err)
	}
	ticketID := tickets[0].ID

	steps := []struct {
		ticketStatus string
		orderStatus  string
	}{
		{constants.TicketStatusPreparing, constants.OrderStatusPreparing},
		{constants.TicketStatusReady, constants.OrderStatusReady},
		{constants.TicketStatusCompleted, constants.OrderStatusServed},
	}
	for _, step := range steps {
		ticket, err := env.tickets.UpdateStatus(ticketID, step.ticketStatus)
		if err != nil {
			t.Fatalf("update to %s failed: %v", step.ticketStatus, err)
		}
		if ticket.Status != step.ticketStatus {
			t.Fatalf("ticket want %s, got %s", step.ticketStatus, ticket.Status)
		}
		reloaded, err := env.orders.GetByID(order.ID)
		if err != nil {
			t.Fatalf("reload order failed: %v", err)
		}
		if reloaded.Status != step.orderStatus {
			t.Fatalf("order want %s, got %s", step.orderStatus, reloaded.Status)
		}
	}
}

func TestTicketStatusRejectsInvalidTransition(t *testing.T) {
	env := setupServiceTest(t)
	noodle := env.createProduct(t, "招牌牛肉面", 38, 100, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: noodle.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.orders.Confirm(order.ID, 7); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	tickets, _ := env.ticketRepo.ListByOrder(order.ID)
	if _, err := env.tickets.UpdateStatus(tickets[0].ID, constants.TicketStatusCompleted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestCreateModifiedTicketIsUrgent(t *testing.T) {
	env := setupServiceTest(t)
	ticket, err := env.tickets.CreateModifiedTicket(ModifiedTicketInput{
		OrderID:     1,
		OrderItemID: 2,
		ProductName: "招牌牛肉面",
		Destination: constants.TicketDestinationKitchen,
		Quantity:    1,
		OldQuantity: 3,
		NewQuantity: 1,
	})
	if err != nil {
		t.Fatalf("create modified ticket failed: %v", err)
	}
	if !ticket.IsUrgent {
		t.Fatalf("modified ticket must be urgent")
	}
	if ticket.Instructions != "MODIFIED: changed from 3 to 1" {
		t.Fatalf("unexpected instructions: %s", ticket.Instructions)
	}
}

func TestCalcOrderProgress(t *testing.T) {
	ticket := func(status string) models.PrepTicket {
		return models.PrepTicket{Status: status}
	}
	cases := []struct {
		name    string
		tickets []models.PrepTicket
		current string
		want    string
	}{
		{"无工单保持现状", nil, constants.OrderStatusConfirmed, constants.OrderStatusConfirmed},
		{"全部完成即上齐", []models.PrepTicket{
			ticket(constants.TicketStatusCompleted),
			ticket(constants.TicketStatusCompleted),
		}, constants.OrderStatusReady, constants.OrderStatusServed},
		{"全部出品即备好", []models.PrepTicket{
			ticket(constants.TicketStatusReady),
			ticket(constants.TicketStatusCompleted),
		}, constants.OrderStatusPreparing, constants.OrderStatusReady},
		{"任一在制作即制作中", []models.PrepTicket{
			ticket(constants.TicketStatusPreparing),
			ticket(constants.TicketStatusPending),
		}, constants.OrderStatusConfirmed, constants.OrderStatusPreparing},
		{"取消的工单不计入", []models.PrepTicket{
			ticket(constants.TicketStatusCancelled),
			ticket(constants.TicketStatusCompleted),
		}, constants.OrderStatusConfirmed, constants.OrderStatusServed},
		{"全部取消保持现状", []models.PrepTicket{
			ticket(constants.TicketStatusCancelled),
		}, constants.OrderStatusConfirmed, constants.OrderStatusConfirmed},
		{"仅剩待处理保持现状", []models.PrepTicket{
			ticket(constants.TicketStatusPending),
		}, constants.OrderStatusConfirmed, constants.OrderStatusConfirmed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := calcOrderProgress(tc.tickets, tc.current); got != tc.want {
				t.Fatalf("want %s, got %s", tc.want, got)
			}
		})
	}
}
