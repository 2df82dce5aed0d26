package repository

import (
	"errors"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	ListBySession(sessionID uint) ([]models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateItem(item *models.OrderItem) error
	DeleteItem(itemID uint) error
	CountItems(orderID uint) (int64, error)
	AssignSession(orderID uint, sessionID *uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB

	// recalc 订单行写入后的会话合计重算钩子；模拟存储侧触发器的
	// “成员订单变更即重算会话合计”契约（见 service.SessionTotalsRecalculator）
	recalc func(db *gorm.DB, sessionID uint)
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// SetRecalcHook 注册会话合计重算钩子
func (r *GormOrderRepository) SetRecalcHook(hook func(db *gorm.DB, sessionID uint)) {
	r.recalc = hook
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx, recalc: r.recalc}
}

func (r *GormOrderRepository) fireRecalc(orderID uint) {
	if r.recalc == nil {
		return
	}
	var row struct {
		SessionID *uint
	}
	if err := r.db.Model(&models.Order{}).Select("session_id").Where("id = ?", orderID).Take(&row).Error; err != nil {
		return
	}
	if row.SessionID == nil || *row.SessionID == 0 {
		return
	}
	r.recalc(r.db, *row.SessionID)
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
	}
	r.fireRecalc(order.ID)
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单编号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListBySession 获取会话成员订单
func (r *GormOrderRepository) ListBySession(sessionID uint) ([]models.Order, error) {
	var orders []models.Order
	if sessionID == 0 {
		return orders, nil
	}
	if err := r.db.Preload("Items").
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.SessionID != 0 {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.TableNo != "" {
		query = query.Where("table_no = ?", filter.TableNo)
	}
	if filter.CashierID != 0 {
		query = query.Where("cashier_id = ?", filter.CashierID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	if err := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}
	r.fireRecalc(id)
	return nil
}

// UpdateFields 更新订单字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}
	r.fireRecalc(id)
	return nil
}

// UpdateItem 更新订单项
func (r *GormOrderRepository) UpdateItem(item *models.OrderItem) error {
	if item == nil || item.ID == 0 {
		return nil
	}
	if err := r.db.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"quantity":        item.Quantity,
		"discount_amount": item.DiscountAmount,
		"subtotal":        item.Subtotal,
		"total":           item.Total,
		"updated_at":      item.UpdatedAt,
	}).Error; err != nil {
		return err
	}
	return nil
}

// DeleteItem 删除订单项（仅限修改引擎的移除路径）
func (r *GormOrderRepository) DeleteItem(itemID uint) error {
	return r.db.Delete(&models.OrderItem{}, itemID).Error
}

// CountItems 统计订单剩余项数
func (r *GormOrderRepository) CountItems(orderID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// AssignSession 指派/解除订单的会话归属
func (r *GormOrderRepository) AssignSession(orderID uint, sessionID *uint) error {
	// 先取旧会话，归属变更后两侧都要重算
	var row struct {
		SessionID *uint
	}
	_ = r.db.Model(&models.Order{}).Select("session_id").Where("id = ?", orderID).Take(&row).Error

	if err := r.db.Model(&models.Order{}).Where("id = ?", orderID).Update("session_id", sessionID).Error; err != nil {
		return err
	}
	if r.recalc != nil {
		if row.SessionID != nil && *row.SessionID != 0 {
			r.recalc(r.db, *row.SessionID)
		}
		if sessionID != nil && *sessionID != 0 {
			r.recalc(r.db, *sessionID)
		}
	}
	return nil
}
