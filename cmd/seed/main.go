package main

import (
	"fmt"

	"github.com/meja-pos/internal/authz"
	"github.com/meja-pos/internal/config"
	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/logger"
	"github.com/meja-pos/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库连接失败: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 桌台
	for i := 1; i <= 12; i++ {
		tableNo := fmt.Sprintf("T%02d", i)
		capacity := 4
		if i > 8 {
			capacity = 8
		}
		var existing models.DiningTable
		if err := models.DB.Where("table_no = ?", tableNo).First(&existing).Error; err != nil {
			table := models.DiningTable{TableNo: tableNo, Capacity: capacity}
			if err := models.DB.Create(&table).Error; err != nil {
				stdLog.Printf("创建桌台 %s 失败: %v", tableNo, err)
			} else {
				stdLog.Printf("已创建桌台: %s", tableNo)
			}
		}
	}

	// 菜品
	products := []models.Product{
		{Name: "招牌牛肉面", SKU: "NOODLE-BEEF", Price: money(38), StockQty: 100, LowStockThreshold: 10, Destination: constants.TicketDestinationKitchen, IsActive: true},
		{Name: "蒜香排骨", SKU: "PORK-RIBS", Price: money(58), StockQty: 60, LowStockThreshold: 8, Destination: constants.TicketDestinationKitchen, IsActive: true},
		{Name: "清炒时蔬", SKU: "VEG-STIRFRY", Price: money(22), StockQty: 80, LowStockThreshold: 10, Destination: constants.TicketDestinationKitchen, IsActive: true},
		{Name: "鲜榨橙汁", SKU: "JUICE-ORANGE", Price: money(18), StockQty: 50, LowStockThreshold: 5, Destination: constants.TicketDestinationBartender, IsActive: true},
		{Name: "柠檬气泡水", SKU: "SODA-LEMON", Price: money(15), StockQty: 50, LowStockThreshold: 5, Destination: constants.TicketDestinationBartender, IsActive: true},
		{Name: "火锅双人餐", SKU: "HOTPOT-DUO", Price: money(128), StockQty: 30, LowStockThreshold: 5, Destination: constants.TicketDestinationBoth, IsActive: true},
	}
	skuToID := map[string]uint{}
	for _, p := range products {
		var existing models.Product
		if err := models.DB.Where("sku = ?", p.SKU).First(&existing).Error; err != nil {
			if err := models.DB.Create(&p).Error; err != nil {
				stdLog.Printf("创建菜品 %s 失败: %v", p.Name, err)
				continue
			}
			skuToID[p.SKU] = p.ID
			stdLog.Printf("已创建菜品: %s", p.Name)
		} else {
			skuToID[p.SKU] = existing.ID
		}
	}

	// 套餐：工作日午市套餐 = 牛肉面 + 橙汁
	var existingPkg models.MenuPackage
	if err := models.DB.Where("name = ?", "午市套餐A").First(&existingPkg).Error; err != nil {
		pkg := models.MenuPackage{Name: "午市套餐A", Price: money(48), IsActive: true}
		if err := models.DB.Create(&pkg).Error; err != nil {
			stdLog.Printf("创建套餐失败: %v", err)
		} else {
			components := []models.PackageComponent{
				{PackageID: pkg.ID, ProductID: skuToID["NOODLE-BEEF"], Quantity: 1},
				{PackageID: pkg.ID, ProductID: skuToID["JUICE-ORANGE"], Quantity: 1},
			}
			if err := models.DB.Create(&components).Error; err != nil {
				stdLog.Printf("创建套餐组成失败: %v", err)
			} else {
				stdLog.Printf("已创建套餐: %s", pkg.Name)
			}
		}
	}

	// 员工账号与角色
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("初始化授权服务失败: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("初始化预置角色失败: %v", err)
	}

	staff := []struct {
		Username    string
		DisplayName string
		Password    string
		Role        string
	}{
		{Username: "manager", DisplayName: "Store Manager", Password: "manager123", Role: authz.RoleManager},
		{Username: "cashier01", DisplayName: "收银员小张", Password: "cashier123", Role: authz.RoleCashier},
		{Username: "waiter01", DisplayName: "服务员小李", Password: "waiter123", Role: authz.RoleWaiter},
	}
	for _, s := range staff {
		var existing models.User
		if err := models.DB.Where("username = ?", s.Username).First(&existing).Error; err == nil {
			if err := authzService.SetStaffRole(existing.ID, s.Role); err != nil {
				stdLog.Printf("绑定角色失败 %s: %v", s.Username, err)
			}
			continue
		}
		user := models.User{
			Username:    s.Username,
			DisplayName: s.DisplayName,
			Role:        roleMirror(s.Role),
			IsActive:    true,
		}
		if err := user.SetPassword(s.Password); err != nil {
			stdLog.Printf("密码处理失败 %s: %v", s.Username, err)
			continue
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("创建员工失败 %s: %v", s.Username, err)
			continue
		}
		if err := authzService.SetStaffRole(user.ID, s.Role); err != nil {
			stdLog.Printf("绑定角色失败 %s: %v", s.Username, err)
			continue
		}
		stdLog.Printf("已创建员工: %s (%s)", s.Username, s.Role)
	}

	stdLog.Printf("示例数据初始化完成")
}

func money(value int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(value))
}

func roleMirror(role string) string {
	switch role {
	case authz.RoleManager:
		return constants.RoleManager
	case authz.RoleCashier:
		return constants.RoleCashier
	default:
		return constants.RoleWaiter
	}
}
