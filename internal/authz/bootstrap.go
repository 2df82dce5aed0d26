package authz

import "fmt"

// 预置角色标识
const (
	RoleManager = rolePrefix + "manager"
	RoleCashier = rolePrefix + "cashier"
	RoleWaiter  = rolePrefix + "waiter"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 门店预置角色矩阵：waiter ⊂ cashier ⊂ manager
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "waiter",
			Policies: []Policy{
				{Object: "/pos/tables", Action: "GET"},
				{Object: "/pos/products", Action: "GET"},
				{Object: "/pos/orders", Action: "*"},
				{Object: "/pos/orders/:id", Action: "GET"},
				{Object: "/pos/orders/:id/confirm", Action: "POST"},
				{Object: "/pos/orders/:id/hold", Action: "POST"},
				{Object: "/pos/orders/:id/resume", Action: "POST"},
				{Object: "/pos/orders/:id/items/:item_id/reduce", Action: "POST"},
				{Object: "/pos/orders/:id/items/:item_id", Action: "DELETE"},
				{Object: "/pos/orders/validate", Action: "POST"},
				{Object: "/pos/tabs", Action: "*"},
				{Object: "/pos/tabs/:id", Action: "GET"},
				{Object: "/pos/tabs/:id/bill", Action: "GET"},
				{Object: "/pos/tabs/:id/orders", Action: "POST"},
				{Object: "/pos/tickets", Action: "GET"},
				{Object: "/pos/tickets/:id/status", Action: "PUT"},
			},
		},
		{
			Role:     "cashier",
			Inherits: []string{"waiter"},
			Policies: []Policy{
				{Object: "/pos/orders/:id/complete", Action: "POST"},
				{Object: "/pos/tabs/:id/close", Action: "POST"},
				{Object: "/pos/tabs/:id/abandon", Action: "POST"},
				{Object: "/pos/tabs/stats", Action: "GET"},
			},
		},
		{
			Role:     "manager",
			Inherits: []string{"cashier"},
			Policies: []Policy{
				{Object: "/pos/orders/:id/void", Action: "POST"},
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色、继承关系与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
