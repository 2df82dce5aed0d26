package service

import (
	"errors"
	"testing"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/models"
)

func TestOpenTabIdempotent(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")

	first := mustOpenSession(t, env, table.ID)
	second := mustOpenSession(t, env, table.ID)
	if first.ID != second.ID {
		t.Fatalf("open tab not idempotent: %d vs %d", first.ID, second.ID)
	}

	var count int64
	env.db.Model(&models.OrderSession{}).
		Where("table_id = ? AND status = ?", table.ID, constants.SessionStatusOpen).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 open session, got %d", count)
	}

	occupied, err := env.tableRepo.GetByID(table.ID)
	if err != nil {
		t.Fatalf("reload table failed: %v", err)
	}
	if !occupied.IsOccupied || occupied.CurrentSessionID == nil || *occupied.CurrentSessionID != first.ID {
		t.Fatalf("table not occupied by session: %+v", occupied)
	}
}

func TestOpenTabUnknownTable(t *testing.T) {
	env := setupServiceTest(t)
	if _, err := env.sessions.OpenTab(OpenTabInput{TableID: 9999}); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("want ErrTableNotFound, got %v", err)
	}
	if _, err := env.sessions.OpenTab(OpenTabInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestSessionTotalsFollowMemberOrders(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	ribs := env.createProduct(t, "蒜香排骨", 58, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)

	if _, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: ribs.ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	reloaded, err := env.sessionRepo.GetByID(session.ID)
	if err != nil {
		t.Fatalf("reload session failed: %v", err)
	}
	assertMoney(t, reloaded.Subtotal, 116, "session subtotal after first order")

	if _, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: ribs.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create second order failed: %v", err)
	}
	reloaded, _ = env.sessionRepo.GetByID(session.ID)
	assertMoney(t, reloaded.Subtotal, 174, "session subtotal after second order")
	assertMoney(t, reloaded.TotalAmount, 174, "session total")
}

func TestCloseTabWithPercentageDiscount(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 100, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	discount := money(10)
	result, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID:        9,
		PaymentMethod:  constants.PaymentMethodCash,
		AmountTendered: money(200),
		DiscountType:   constants.DiscountTypePercentage,
		DiscountValue:  &discount,
	})
	if err != nil {
		t.Fatalf("close tab failed: %v", err)
	}

	closed := result.Session
	if closed.Status != constants.SessionStatusClosed {
		t.Fatalf("want closed, got %s", closed.Status)
	}
	assertMoney(t, closed.Subtotal, 200, "session subtotal")
	assertMoney(t, closed.DiscountAmount, 20, "10% discount on 200")
	assertMoney(t, closed.TotalAmount, 180, "final total")
	assertMoney(t, closed.AmountTendered, 200, "amount tendered")
	assertMoney(t, result.ChangeAmount, 20, "change")
	if closed.ClosedBy == nil || *closed.ClosedBy != 9 {
		t.Fatalf("closed_by not stamped: %+v", closed.ClosedBy)
	}

	// 成员订单统一完成，收银员记为结台操作人
	memberOrder, err := env.orders.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if memberOrder.Status != constants.OrderStatusCompleted {
		t.Fatalf("member order want completed, got %s", memberOrder.Status)
	}
	if memberOrder.CashierID != 9 {
		t.Fatalf("cashier want 9, got %d", memberOrder.CashierID)
	}
	// 实收/找零是会话级事实，订单行保持为零
	assertMoney(t, memberOrder.AmountTendered, 0, "order amount_tendered")
	assertMoney(t, memberOrder.ChangeAmount, 0, "order change_amount")

	// 兜底扣减执行了一次
	if got := env.productStock(t, dish.ID); got != 18 {
		t.Fatalf("want stock 18, got %d", got)
	}
	if !memberOrder.StockDeducted {
		t.Fatalf("stock_deducted flag not set by safety net")
	}

	// 折扣审计记录
	records, err := env.discountRepo.ListByScope(constants.DiscountScopeSession, session.ID)
	if err != nil {
		t.Fatalf("list discount records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("want 1 discount record, got %d", len(records))
	}
	assertMoney(t, records[0].DiscountAmount, 20, "recorded discount amount")
	if records[0].ActorID != 9 {
		t.Fatalf("discount actor want 9, got %d", records[0].ActorID)
	}

	// 桌台释放
	reloadedTable, _ := env.tableRepo.GetByID(table.ID)
	if reloadedTable.IsOccupied {
		t.Fatalf("table should be released")
	}

	// 结台审计
	var count int64
	env.db.Model(&models.AuditLog{}).
		Where("action = ? AND session_id = ?", constants.AuditActionSessionClose, session.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 close audit log, got %d", count)
	}
}

func TestCloseTabClampsExcessiveDiscount(t *testing.T) {
	t.Run("固定金额超过净额", func(t *testing.T) {
		env := setupServiceTest(t)
		table := env.createTable(t, "T01")
		dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
		gift := env.createProduct(t, "清炒时蔬", 20, 20, constants.TicketDestinationKitchen)
		session := mustOpenSession(t, env, table.ID)

		// 小计 120，赠送项自带 20 折扣，净额 100
		if _, err := env.orders.CreateOrder(CreateOrderInput{
			SessionID: &session.ID,
			Items: []CreateOrderItemInput{
				{ProductID: dish.ID, Quantity: 2},
				{ProductID: gift.ID, Quantity: 1, IsComplimentary: true},
			},
		}); err != nil {
			t.Fatalf("create order failed: %v", err)
		}

		discount := money(500)
		result, err := env.sessions.CloseTab(session.ID, CloseTabInput{
			ActorID:        9,
			PaymentMethod:  constants.PaymentMethodCash,
			AmountTendered: money(0),
			DiscountType:   constants.DiscountTypeAmount,
			DiscountValue:  &discount,
		})
		if err != nil {
			t.Fatalf("close tab failed: %v", err)
		}

		// 追加折扣夹紧到净额 100，总折扣 120，应付落在零线上
		closed := result.Session
		assertMoney(t, closed.Subtotal, 120, "session subtotal")
		assertMoney(t, closed.DiscountAmount, 120, "clamped total discount")
		assertMoney(t, closed.TotalAmount, 0, "final total floored at zero")
		assertMoney(t, result.ChangeAmount, 0, "change")

		// 审计记录的是夹紧后的实际折扣
		records, err := env.discountRepo.ListByScope(constants.DiscountScopeSession, session.ID)
		if err != nil {
			t.Fatalf("list discount records failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("want 1 discount record, got %d", len(records))
		}
		assertMoney(t, records[0].DiscountAmount, 100, "recorded clamped discount")
	})

	t.Run("百分比超过一百", func(t *testing.T) {
		env := setupServiceTest(t)
		table := env.createTable(t, "T02")
		dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
		session := mustOpenSession(t, env, table.ID)
		if _, err := env.orders.CreateOrder(CreateOrderInput{
			SessionID: &session.ID,
			Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
		}); err != nil {
			t.Fatalf("create order failed: %v", err)
		}

		discount := money(150)
		result, err := env.sessions.CloseTab(session.ID, CloseTabInput{
			ActorID:        9,
			PaymentMethod:  constants.PaymentMethodCash,
			AmountTendered: money(0),
			DiscountType:   constants.DiscountTypePercentage,
			DiscountValue:  &discount,
		})
		if err != nil {
			t.Fatalf("close tab failed: %v", err)
		}
		assertMoney(t, result.Session.DiscountAmount, 100, "150% clamped to net")
		assertMoney(t, result.Session.TotalAmount, 0, "final total floored at zero")

		records, err := env.discountRepo.ListByScope(constants.DiscountScopeSession, session.ID)
		if err != nil {
			t.Fatalf("list discount records failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("want 1 discount record, got %d", len(records))
		}
		assertMoney(t, records[0].DiscountAmount, 100, "recorded clamped discount")
	})
}

func TestCloseTabRejectsInsufficientTender(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 100, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)
	if _, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	_, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID:        9,
		PaymentMethod:  constants.PaymentMethodCash,
		AmountTendered: money(99),
	})
	if !errors.Is(err, ErrTenderedBelowTotal) {
		t.Fatalf("want ErrTenderedBelowTotal, got %v", err)
	}

	// 拒绝后会话保持 OPEN，成员订单不受影响
	reloaded, _ := env.sessionRepo.GetByID(session.ID)
	if reloaded.Status != constants.SessionStatusOpen {
		t.Fatalf("session should stay open, got %s", reloaded.Status)
	}
}

func TestCloseTabSkipsAlreadyDeductedOrders(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	// 单独结账路径已扣过库存
	if _, _, err := env.orders.Confirm(order.ID, 9); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, _, err := env.orders.Complete(order.ID, 9); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got := env.productStock(t, dish.ID); got != 18 {
		t.Fatalf("want stock 18 after complete, got %d", got)
	}

	if _, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID:        9,
		PaymentMethod:  constants.PaymentMethodCash,
		AmountTendered: money(100),
	}); err != nil {
		t.Fatalf("close tab failed: %v", err)
	}

	// 结台兜底不得重复扣减
	if got := env.productStock(t, dish.ID); got != 18 {
		t.Fatalf("stock deducted twice: %d", got)
	}
}

func TestClosedSessionTotalsFrozen(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 100, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	discount := money(20)
	if _, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID:        9,
		PaymentMethod:  constants.PaymentMethodCard,
		AmountTendered: money(180),
		DiscountType:   constants.DiscountTypeAmount,
		DiscountValue:  &discount,
	}); err != nil {
		t.Fatalf("close tab failed: %v", err)
	}

	// 结台后对成员订单行的任何写入都不得再改动会话合计
	if err := env.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"updated_at": time.Now(),
	}); err != nil {
		t.Fatalf("touch order failed: %v", err)
	}

	reloaded, _ := env.sessionRepo.GetByID(session.ID)
	assertMoney(t, reloaded.DiscountAmount, 20, "discount survives later order writes")
	assertMoney(t, reloaded.TotalAmount, 180, "total survives later order writes")
}

func TestAbandonSession(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	abandoned, err := env.sessions.AbandonSession(session.ID, 9)
	if err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	if abandoned.Status != constants.SessionStatusAbandoned {
		t.Fatalf("want abandoned, got %s", abandoned.Status)
	}
	if abandoned.ClosedAt == nil {
		t.Fatalf("closed_at not set")
	}

	// 成员订单原样保留，桌台释放
	memberOrder, _ := env.orders.GetByID(order.ID)
	if memberOrder.Status != constants.OrderStatusPending {
		t.Fatalf("member order should be untouched, got %s", memberOrder.Status)
	}
	reloadedTable, _ := env.tableRepo.GetByID(table.ID)
	if reloadedTable.IsOccupied {
		t.Fatalf("table should be released")
	}

	// 弃台后不能再结台或账单预览
	if _, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID: 9, AmountTendered: money(100),
	}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
	if _, err := env.sessions.GetBillPreview(session.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestAddOrderToSession(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := env.sessions.AddOrderToSession(session.ID, order.ID); err != nil {
		t.Fatalf("add order failed: %v", err)
	}
	reloaded, _ := env.sessionRepo.GetByID(session.ID)
	assertMoney(t, reloaded.Subtotal, 100, "session subtotal after attach")

	// 已作废订单不可并入
	voided := env.createOrderWithItems(t, constants.OrderStatusVoided, nil, []models.OrderItem{
		{ProductName: "清炒时蔬", Quantity: 1, UnitPrice: money(22)},
	})
	if err := env.sessions.AddOrderToSession(session.ID, voided.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}

	// 非 OPEN 会话不可追加
	if _, err := env.sessions.AbandonSession(session.ID, 9); err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	another, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := env.sessions.AddOrderToSession(session.ID, another.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestGetBillPreview(t *testing.T) {
	env := setupServiceTest(t)
	table := env.createTable(t, "T01")
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	session := mustOpenSession(t, env, table.ID)
	if _, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &session.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	preview, err := env.sessions.GetBillPreview(session.ID)
	if err != nil {
		t.Fatalf("bill preview failed: %v", err)
	}
	if len(preview.Orders) != 1 {
		t.Fatalf("want 1 order, got %d", len(preview.Orders))
	}
	if preview.ItemStatusCount[constants.OrderStatusPending] != 3 {
		t.Fatalf("want 3 pending items, got %d", preview.ItemStatusCount[constants.OrderStatusPending])
	}
	assertMoney(t, preview.FinalTotal, 150, "preview final total")
	if preview.DurationMinutes < 0 {
		t.Fatalf("negative duration: %d", preview.DurationMinutes)
	}

	// CLOSED 会话支持补打
	if _, err := env.sessions.CloseTab(session.ID, CloseTabInput{
		ActorID: 9, PaymentMethod: constants.PaymentMethodCash, AmountTendered: money(150),
	}); err != nil {
		t.Fatalf("close tab failed: %v", err)
	}
	reprint, err := env.sessions.GetBillPreview(session.ID)
	if err != nil {
		t.Fatalf("reprint preview failed: %v", err)
	}
	assertMoney(t, reprint.FinalTotal, 150, "reprint final total")
}

func TestGetSessionStats(t *testing.T) {
	env := setupServiceTest(t)
	tableA := env.createTable(t, "T01")
	tableB := env.createTable(t, "T02")
	dish := env.createProduct(t, "蒜香排骨", 90, 20, constants.TicketDestinationKitchen)

	closedSession := mustOpenSession(t, env, tableA.ID)
	if _, err := env.orders.CreateOrder(CreateOrderInput{
		SessionID: &closedSession.ID,
		Items:     []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := env.sessions.CloseTab(closedSession.ID, CloseTabInput{
		ActorID: 9, PaymentMethod: constants.PaymentMethodCash, AmountTendered: money(180),
	}); err != nil {
		t.Fatalf("close tab failed: %v", err)
	}
	mustOpenSession(t, env, tableB.ID)

	stats, err := env.sessions.GetSessionStats(7)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.OpenCount != 1 || stats.ClosedCount != 1 || stats.AbandonedCount != 0 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	assertMoney(t, stats.ClosedRevenue, 180, "closed revenue")
}
