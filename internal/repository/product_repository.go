package repository

import (
	"errors"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 菜品数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	ListActive() ([]models.Product, error)
	ListLowStock() ([]models.Product, error)
	AdjustStock(id uint, delta int) (int64, error)
	GetPackageByID(id uint) (*models.MenuPackage, error)
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建菜品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 根据 ID 获取菜品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取菜品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListActive 获取上架菜品
func (r *GormProductRepository) ListActive() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Where("is_active = ?", true).Order("id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListLowStock 获取库存低于阈值的菜品
func (r *GormProductRepository) ListLowStock() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.
		Where("is_active = ? AND stock_qty <= low_stock_threshold", true).
		Order("stock_qty asc").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustStock 原子调整库存；扣减时带非负校验，返回受影响行数
func (r *GormProductRepository) AdjustStock(id uint, delta int) (int64, error) {
	query := r.db.Model(&models.Product{}).Where("id = ?", id)
	if delta < 0 {
		// 非负库存约束：余量不足时不更新任何行
		query = query.Where("stock_qty >= ?", -delta)
	}
	result := query.Update("stock_qty", gorm.Expr("stock_qty + ?", delta))
	return result.RowsAffected, result.Error
}

// GetPackageByID 根据 ID 获取套餐（带组成）
func (r *GormProductRepository) GetPackageByID(id uint) (*models.MenuPackage, error) {
	var pkg models.MenuPackage
	if err := r.db.Preload("Components").First(&pkg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}
