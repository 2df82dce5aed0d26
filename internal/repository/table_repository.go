package repository

import (
	"errors"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// TableRepository 桌台数据访问接口
type TableRepository interface {
	GetByID(id uint) (*models.DiningTable, error)
	GetByTableNo(tableNo string) (*models.DiningTable, error)
	ListAll() ([]models.DiningTable, error)
	Occupy(id uint, sessionID uint) error
	Release(id uint) error
	WithTx(tx *gorm.DB) *GormTableRepository
}

// GormTableRepository GORM 实现
type GormTableRepository struct {
	db *gorm.DB
}

// NewTableRepository 创建桌台仓库
func NewTableRepository(db *gorm.DB) *GormTableRepository {
	return &GormTableRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTableRepository) WithTx(tx *gorm.DB) *GormTableRepository {
	if tx == nil {
		return r
	}
	return &GormTableRepository{db: tx}
}

// GetByID 根据 ID 获取桌台
func (r *GormTableRepository) GetByID(id uint) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

// GetByTableNo 根据桌号获取桌台
func (r *GormTableRepository) GetByTableNo(tableNo string) (*models.DiningTable, error) {
	var table models.DiningTable
	if err := r.db.Where("table_no = ?", tableNo).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

// ListAll 获取全部桌台
func (r *GormTableRepository) ListAll() ([]models.DiningTable, error) {
	var tables []models.DiningTable
	if err := r.db.Order("table_no asc").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// Occupy 占用桌台
func (r *GormTableRepository) Occupy(id uint, sessionID uint) error {
	return r.db.Model(&models.DiningTable{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_occupied":        true,
		"current_session_id": sessionID,
	}).Error
}

// Release 释放桌台
func (r *GormTableRepository) Release(id uint) error {
	return r.db.Model(&models.DiningTable{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_occupied":        false,
		"current_session_id": nil,
	}).Error
}
