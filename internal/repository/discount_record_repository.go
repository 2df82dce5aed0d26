package repository

import (
	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// DiscountRecordRepository 折扣审计记录数据访问接口
type DiscountRecordRepository interface {
	Create(record *models.DiscountRecord) error
	ListByScope(scope string, refID uint) ([]models.DiscountRecord, error)
	WithTx(tx *gorm.DB) *GormDiscountRecordRepository
}

// GormDiscountRecordRepository GORM 实现
type GormDiscountRecordRepository struct {
	db *gorm.DB
}

// NewDiscountRecordRepository 创建折扣记录仓库
func NewDiscountRecordRepository(db *gorm.DB) *GormDiscountRecordRepository {
	return &GormDiscountRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountRecordRepository) WithTx(tx *gorm.DB) *GormDiscountRecordRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountRecordRepository{db: tx}
}

// Create 写入折扣记录（审计用途，写后不改）
func (r *GormDiscountRecordRepository) Create(record *models.DiscountRecord) error {
	return r.db.Create(record).Error
}

// ListByScope 按范围与目标 ID 查询折扣记录
func (r *GormDiscountRecordRepository) ListByScope(scope string, refID uint) ([]models.DiscountRecord, error) {
	var records []models.DiscountRecord
	if err := r.db.Where("scope = ? AND ref_id = ?", scope, refID).Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
