package service

import (
	"errors"
	"testing"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/models"
)

// stubManagerChecker 固定放行名单的权限判定
type stubManagerChecker struct {
	managers map[uint]bool
}

func (s stubManagerChecker) IsManagerOrAbove(userID uint) (bool, error) {
	return s.managers[userID], nil
}

func newVoidServiceForTest(env *testEnv, managers ...uint) *VoidService {
	allowed := make(map[uint]bool, len(managers))
	for _, id := range managers {
		allowed[id] = true
	}
	return NewVoidService(env.orderRepo, env.stock, env.auditRepo, stubManagerChecker{managers: allowed})
}

func TestValidateVoidReason(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"规范枚举", "customer_changed_mind", "customer_changed_mind", true},
		{"枚举大小写与空格归一", "Customer Changed Mind", "customer_changed_mind", true},
		{"其他枚举", "kitchen_error", "kitchen_error", true},
		{"足够长的自由文本", "顾客对菜品口味不满意要求退单", "顾客对菜品口味不满意要求退单", true},
		{"过短的自由文本", "不要了", "", false},
		{"空原因", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateVoidReason(tc.input)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("want %q, got %q", tc.want, got)
				}
				return
			}
			if !errors.Is(err, ErrInvalidVoidReason) {
				t.Fatalf("want ErrInvalidVoidReason, got %v", err)
			}
		})
	}
}

func TestVoidRequiresManager(t *testing.T) {
	env := setupServiceTest(t)
	voids := newVoidServiceForTest(env, 1)
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, _, err := voids.Void(order.ID, 2, "customer_changed_mind", true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	// 拒绝后订单状态不变
	reloaded, _ := env.orders.GetByID(order.ID)
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("order should stay pending, got %s", reloaded.Status)
	}

	if _, _, err := voids.Void(order.ID, 0, "customer_changed_mind", true); !errors.Is(err, ErrActorRequired) {
		t.Fatalf("want ErrActorRequired, got %v", err)
	}
}

func TestVoidReturnsStockSelectively(t *testing.T) {
	env := setupServiceTest(t)
	voids := newVoidServiceForTest(env, 1)
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	gift := env.createProduct(t, "清炒时蔬", 22, 20, constants.TicketDestinationKitchen)

	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{
			{ProductID: dish.ID, Quantity: 2},
			{ProductID: gift.ID, Quantity: 1, IsComplimentary: true},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.orders.Confirm(order.ID, 1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, _, err := env.orders.Complete(order.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	// 确认时全部订单项都扣了库存
	if got := env.productStock(t, dish.ID); got != 18 {
		t.Fatalf("want dish stock 18, got %d", got)
	}
	if got := env.productStock(t, gift.ID); got != 19 {
		t.Fatalf("want gift stock 19, got %d", got)
	}

	voided, outcome, err := voids.Void(order.ID, 1, "quality_issue", true)
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voided.Status != constants.OrderStatusVoided {
		t.Fatalf("want voided, got %s", voided.Status)
	}
	if voided.VoidedBy == nil || *voided.VoidedBy != 1 {
		t.Fatalf("voided_by not stamped")
	}
	if voided.VoidedReason != "quality_issue" {
		t.Fatalf("unexpected reason: %s", voided.VoidedReason)
	}
	if len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", outcome.Warnings)
	}

	// 普通项归还，赠送项不归还
	if got := env.productStock(t, dish.ID); got != 20 {
		t.Fatalf("want dish stock 20, got %d", got)
	}
	if got := env.productStock(t, gift.ID); got != 19 {
		t.Fatalf("complimentary item must not return stock, got %d", got)
	}

	// 审计必写
	var count int64
	env.db.Model(&models.AuditLog{}).
		Where("action = ? AND order_id = ?", constants.AuditActionOrderVoided, order.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 void audit log, got %d", count)
	}

	// 重复作废被拒绝
	if _, _, err := voids.Void(order.ID, 1, "quality_issue", true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestVoidWithoutInventoryReturn(t *testing.T) {
	env := setupServiceTest(t)
	voids := newVoidServiceForTest(env, 1)
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, _, err := env.orders.Confirm(order.ID, 1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, _, err := env.orders.Complete(order.ID, 1); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if _, _, err := voids.Void(order.ID, 1, "duplicate_order", false); err != nil {
		t.Fatalf("void failed: %v", err)
	}
	// 抑制归还：库存保持扣减后数值
	if got := env.productStock(t, dish.ID); got != 18 {
		t.Fatalf("stock should stay 18, got %d", got)
	}
	// 审计仍然落盘
	var count int64
	env.db.Model(&models.AuditLog{}).
		Where("action = ? AND order_id = ?", constants.AuditActionOrderVoided, order.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("want 1 void audit log, got %d", count)
	}
}

func TestVoidPendingOrderSkipsStockReturn(t *testing.T) {
	env := setupServiceTest(t)
	voids := newVoidServiceForTest(env, 1)
	dish := env.createProduct(t, "蒜香排骨", 50, 20, constants.TicketDestinationKitchen)
	order, err := env.orders.CreateOrder(CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 从未扣减过库存的订单，作废时无可归还
	if _, _, err := voids.Void(order.ID, 1, "wrong_order", true); err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if got := env.productStock(t, dish.ID); got != 20 {
		t.Fatalf("stock should stay 20, got %d", got)
	}
}

func TestVoidInvalidReason(t *testing.T) {
	env := setupServiceTest(t)
	voids := newVoidServiceForTest(env, 1)
	if _, _, err := voids.Void(1, 1, "短", true); !errors.Is(err, ErrInvalidVoidReason) {
		t.Fatalf("want ErrInvalidVoidReason, got %v", err)
	}
}
