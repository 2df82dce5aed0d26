package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 菜品表
type Product struct {
	ID                uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name              string         `gorm:"type:varchar(200);not null" json:"name"`             // 名称
	SKU               string         `gorm:"uniqueIndex;type:varchar(64)" json:"sku,omitempty"`  // 编码
	Price             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 售价
	StockQty          int            `gorm:"not null;default:0" json:"stock_qty"`                // 库存数量
	LowStockThreshold int            `gorm:"not null;default:0" json:"low_stock_threshold"`      // 低库存告警阈值
	Destination       string         `gorm:"type:varchar(32);not null" json:"destination"`       // 出品工位（kitchen/bartender/both）
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"`             // 是否上架
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// MenuPackage 套餐表
type MenuPackage struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`             // 名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 售价
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`             // 是否上架
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Components []PackageComponent `gorm:"foreignKey:PackageID" json:"components,omitempty"` // 组成菜品
}

// TableName 指定表名
func (MenuPackage) TableName() string {
	return "menu_packages"
}

// PackageComponent 套餐组成表：套餐按组成菜品折算库存
type PackageComponent struct {
	ID        uint `gorm:"primarykey" json:"id"`               // 主键
	PackageID uint `gorm:"index;not null" json:"package_id"`   // 套餐ID
	ProductID uint `gorm:"index;not null" json:"product_id"`   // 组成菜品ID
	Quantity  int  `gorm:"not null;default:1" json:"quantity"` // 每份套餐折算数量
}

// TableName 指定表名
func (PackageComponent) TableName() string {
	return "package_components"
}
