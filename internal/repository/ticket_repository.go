package repository

import (
	"errors"
	"time"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// TicketRepository 出品工单数据访问接口
type TicketRepository interface {
	Create(ticket *models.PrepTicket) error
	CreateBatch(tickets []models.PrepTicket) error
	GetByID(id uint) (*models.PrepTicket, error)
	ListByOrder(orderID uint) ([]models.PrepTicket, error)
	ListByItem(orderItemID uint) ([]models.PrepTicket, error)
	List(filter TicketListFilter) ([]models.PrepTicket, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	CancelByIDs(ids []uint, reason string) (int64, error)
	MarkNotified(ids []uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormTicketRepository
}

// GormTicketRepository GORM 实现
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建工单仓库
func NewTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketRepository) WithTx(tx *gorm.DB) *GormTicketRepository {
	if tx == nil {
		return r
	}
	return &GormTicketRepository{db: tx}
}

// Create 创建工单
func (r *GormTicketRepository) Create(ticket *models.PrepTicket) error {
	return r.db.Create(ticket).Error
}

// CreateBatch 批量创建工单
func (r *GormTicketRepository) CreateBatch(tickets []models.PrepTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.Create(&tickets).Error
}

// GetByID 根据 ID 获取工单
func (r *GormTicketRepository) GetByID(id uint) (*models.PrepTicket, error) {
	var ticket models.PrepTicket
	if err := r.db.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// ListByOrder 获取订单全部工单
func (r *GormTicketRepository) ListByOrder(orderID uint) ([]models.PrepTicket, error) {
	var tickets []models.PrepTicket
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListByItem 获取订单项全部工单
func (r *GormTicketRepository) ListByItem(orderItemID uint) ([]models.PrepTicket, error) {
	var tickets []models.PrepTicket
	if err := r.db.Where("order_item_id = ?", orderItemID).Order("id asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// List 工单列表
func (r *GormTicketRepository) List(filter TicketListFilter) ([]models.PrepTicket, int64, error) {
	var tickets []models.PrepTicket
	query := r.db.Model(&models.PrepTicket{})

	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Destination != "" {
		query = query.Where("destination = ?", filter.Destination)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyUrgent {
		query = query.Where("is_urgent = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("is_urgent desc, id asc").Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// UpdateStatus 更新工单状态
func (r *GormTicketRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.PrepTicket{}).Where("id = ?", id).Updates(updates).Error
}

// CancelByIDs 批量取消工单（仅未开始制作的可整批取消）
func (r *GormTicketRepository) CancelByIDs(ids []uint, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.PrepTicket{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":           "cancelled",
			"cancelled_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// MarkNotified 记录工位通知送达时间
func (r *GormTicketRepository) MarkNotified(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.PrepTicket{}).
		Where("id IN ?", ids).
		Update("notified_at", at).Error
}
