package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 员工账号表
type User struct {
	ID          uint           `gorm:"primarykey" json:"id"`                        // 主键
	Username    string         `gorm:"uniqueIndex;not null" json:"username"`        // 登录名
	DisplayName string         `gorm:"type:varchar(120)" json:"display_name"`       // 显示名
	Password    string         `gorm:"type:varchar(200);not null" json:"-"`         // 密码哈希
	Role        string         `gorm:"index;type:varchar(32);not null" json:"role"` // 角色镜像（权威角色在授权策略表）
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`      // 是否启用
	LastLoginAt *time.Time     `json:"last_login_at"`                               // 最近登录时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码哈希
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// InitDefaultManager 初始化默认店长账号（已存在则跳过）
func InitDefaultManager(username, password string) error {
	if username == "" {
		username = "manager"
	}
	if password == "" {
		password = "manager123"
	}
	var count int64
	if err := DB.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	user := &User{
		Username:    username,
		DisplayName: "Store Manager",
		Role:        "manager",
		IsActive:    true,
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	return DB.Create(user).Error
}
