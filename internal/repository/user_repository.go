package repository

import (
	"errors"
	"time"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// UserRepository 员工数据访问接口
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ListAll() ([]models.User, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	TouchLastLogin(id uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建员工仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Create 创建员工
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID 根据 ID 获取员工
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据登录名获取员工
func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListAll 获取全部员工
func (r *GormUserRepository) ListAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateFields 更新员工字段
func (r *GormUserRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

// TouchLastLogin 更新最近登录时间
func (r *GormUserRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}
