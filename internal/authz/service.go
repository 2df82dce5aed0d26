package authz

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	staffSubjectFmt = "staff:%d"
	rolePrefix      = "role:"
)

const defaultRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service Casbin 授权服务
// 员工角色的权威定义在策略表里，models.User.Role 只是展示镜像
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}

	m, err := model.NewModelFromString(defaultRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	return &Service{enforcer: enforcer}, nil
}

// Enforcer 返回底层 enforcer
func (s *Service) Enforcer() *casbin.SyncedEnforcer {
	if s == nil {
		return nil
	}
	return s.enforcer
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if s == nil || s.enforcer == nil {
		return false, fmt.Errorf("authz service unavailable")
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceStaff 按员工 ID 判定授权
func (s *Service) EnforceStaff(userID uint, obj, act string) (bool, error) {
	return s.Enforce(SubjectForStaff(userID), obj, act)
}

// SetStaffRole 覆盖设置员工角色
func (s *Service) SetStaffRole(userID uint, role string) error {
	if userID == 0 {
		return fmt.Errorf("staff id is required")
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	subject := SubjectForStaff(userID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear staff roles failed: %w", err)
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, normalized); err != nil {
		return fmt.Errorf("assign staff role failed: %w", err)
	}
	return nil
}

// GetStaffRoles 查询员工角色（含继承）
func (s *Service) GetStaffRoles(userID uint) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("staff id is required")
	}
	if s == nil || s.enforcer == nil {
		return nil, fmt.Errorf("authz service unavailable")
	}
	roles, err := s.enforcer.GetImplicitRolesForUser(SubjectForStaff(userID))
	if err != nil {
		return nil, fmt.Errorf("get staff roles failed: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) {
			filtered = append(filtered, role)
		}
	}
	return filtered, nil
}

// IsManagerOrAbove 判定员工是否为店长及以上角色。
// 以鉴权身份（策略表）为准，与请求体里传什么 ID 无关。
func (s *Service) IsManagerOrAbove(userID uint) (bool, error) {
	roles, err := s.GetStaffRoles(userID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role == RoleManager {
			return true, nil
		}
	}
	return false, nil
}

// SubjectForStaff 生成员工主体标识
func SubjectForStaff(userID uint) string {
	return fmt.Sprintf(staffSubjectFmt, userID)
}

// NormalizeRole 统一角色名称
func NormalizeRole(role string) (string, error) {
	normalized := strings.TrimSpace(role)
	if normalized == "" {
		return "", fmt.Errorf("role is required")
	}
	normalized = strings.ToLower(strings.ReplaceAll(normalized, " ", "_"))
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) <= len(rolePrefix) {
		return "", fmt.Errorf("role is required")
	}
	return normalized, nil
}

// NormalizeObject 统一授权资源路径
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
