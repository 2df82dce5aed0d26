package repository

import (
	"errors"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	Create(entry *models.AuditLog) error
	List(filter AuditLogListFilter) ([]models.AuditLog, int64, error)
	CreateReceiptArchive(archive *models.ReceiptArchive) error
	GetReceiptArchiveBySession(sessionID uint) (*models.ReceiptArchive, error)
	WithTx(tx *gorm.DB) *GormAuditLogRepository
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAuditLogRepository) WithTx(tx *gorm.DB) *GormAuditLogRepository {
	if tx == nil {
		return r
	}
	return &GormAuditLogRepository{db: tx}
}

// Create 写入审计日志
func (r *GormAuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// List 审计日志列表
func (r *GormAuditLogRepository) List(filter AuditLogListFilter) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	query := r.db.Model(&models.AuditLog{})

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.SessionID != 0 {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.ActorID != 0 {
		query = query.Where("actor_id = ?", filter.ActorID)
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
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CreateReceiptArchive 写入小票归档
func (r *GormAuditLogRepository) CreateReceiptArchive(archive *models.ReceiptArchive) error {
	return r.db.Create(archive).Error
}

// GetReceiptArchiveBySession 获取会话小票归档
func (r *GormAuditLogRepository) GetReceiptArchiveBySession(sessionID uint) (*models.ReceiptArchive, error) {
	var archive models.ReceiptArchive
	if err := r.db.Where("session_id = ?", sessionID).First(&archive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &archive, nil
}
