package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	service, err := NewService(db)
	if err != nil {
		t.Fatalf("init authz service failed: %v", err)
	}
	if err := service.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return service
}

func TestBuiltinRoleMatrix(t *testing.T) {
	service := setupAuthzTest(t)
	if err := service.SetStaffRole(1, "waiter"); err != nil {
		t.Fatalf("set waiter failed: %v", err)
	}
	if err := service.SetStaffRole(2, "cashier"); err != nil {
		t.Fatalf("set cashier failed: %v", err)
	}
	if err := service.SetStaffRole(3, "manager"); err != nil {
		t.Fatalf("set manager failed: %v", err)
	}

	cases := []struct {
		name   string
		userID uint
		object string
		action string
		want   bool
	}{
		{"服务员可确认订单", 1, "/pos/orders/15/confirm", "POST", true},
		{"服务员可削减订单项", 1, "/pos/orders/15/items/3/reduce", "POST", true},
		{"服务员不可结台", 1, "/pos/tabs/8/close", "POST", false},
		{"服务员不可结账", 1, "/pos/orders/15/complete", "POST", false},
		{"服务员不可作废", 1, "/pos/orders/15/void", "POST", false},
		{"服务员不可进后台", 1, "/admin/staff", "GET", false},
		{"收银员继承服务员", 2, "/pos/orders/15/confirm", "POST", true},
		{"收银员可结台", 2, "/pos/tabs/8/close", "POST", true},
		{"收银员可看统计", 2, "/pos/tabs/stats", "GET", true},
		{"收银员不可作废", 2, "/pos/orders/15/void", "POST", false},
		{"收银员不可进后台", 2, "/admin/products/1/stock", "POST", false},
		{"店长可作废", 3, "/pos/orders/15/void", "POST", true},
		{"店长可进后台", 3, "/admin/staff/2/role", "PUT", true},
		{"店长继承收银员", 3, "/pos/tabs/8/close", "POST", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.EnforceStaff(tc.userID, tc.object, tc.action)
			if err != nil {
				t.Fatalf("enforce failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("%s %s: want %v, got %v", tc.action, tc.object, tc.want, got)
			}
		})
	}
}

func TestEnforceStripsAPIPrefix(t *testing.T) {
	service := setupAuthzTest(t)
	if err := service.SetStaffRole(1, "waiter"); err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	allowed, err := service.EnforceStaff(1, "/api/v1/pos/orders/15/confirm", "post")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if !allowed {
		t.Fatalf("api prefix and lowercase action should normalize")
	}
}

func TestSetStaffRoleOverwrites(t *testing.T) {
	service := setupAuthzTest(t)
	if err := service.SetStaffRole(5, "manager"); err != nil {
		t.Fatalf("set manager failed: %v", err)
	}
	ok, err := service.IsManagerOrAbove(5)
	if err != nil || !ok {
		t.Fatalf("want manager, got %v (%v)", ok, err)
	}

	// 降级后店长权限随之消失，不残留旧角色
	if err := service.SetStaffRole(5, "waiter"); err != nil {
		t.Fatalf("set waiter failed: %v", err)
	}
	ok, err = service.IsManagerOrAbove(5)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("demoted staff must not keep manager role")
	}
	allowed, _ := service.EnforceStaff(5, "/pos/orders/1/void", "POST")
	if allowed {
		t.Fatalf("demoted staff must not void orders")
	}

	roles, err := service.GetStaffRoles(5)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleWaiter {
		t.Fatalf("want single waiter role, got %v", roles)
	}
}

func TestIsManagerOrAboveViaInheritance(t *testing.T) {
	service := setupAuthzTest(t)
	if err := service.SetStaffRole(7, "cashier"); err != nil {
		t.Fatalf("set cashier failed: %v", err)
	}
	ok, err := service.IsManagerOrAbove(7)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("cashier is not manager")
	}
}

func TestNormalizeHelpers(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"manager", "role:manager"},
		{"  Manager ", "role:manager"},
		{"role:waiter", "role:waiter"},
	}
	for _, tc := range cases {
		got, err := NormalizeRole(tc.in)
		if err != nil {
			t.Fatalf("normalize %q failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %q: want %q, got %q", tc.in, tc.want, got)
		}
	}
	if _, err := NormalizeRole("   "); err == nil {
		t.Fatalf("blank role must be rejected")
	}

	if got := NormalizeObject("/api/v1/pos/orders"); got != "/pos/orders" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject("pos/orders"); got != "/pos/orders" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeAction(" post "); got != "POST" {
		t.Fatalf("unexpected action: %s", got)
	}
}
