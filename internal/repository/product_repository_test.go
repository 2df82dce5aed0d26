package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/meja-pos/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepoTest(t *testing.T) (*gorm.DB, *GormProductRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.MenuPackage{}, &models.PackageComponent{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db, NewProductRepository(db)
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock, threshold int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:              name,
		Price:             models.NewMoneyFromDecimal(decimal.NewFromInt(38)),
		StockQty:          stock,
		LowStockThreshold: threshold,
		Destination:       "kitchen",
		IsActive:          active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestAdjustStockNonNegativeGuard(t *testing.T) {
	db, repo := setupProductRepoTest(t)
	product := seedProduct(t, db, "招牌牛肉面", 3, 0, true)

	affected, err := repo.AdjustStock(product.ID, -5)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("over-deduct must affect 0 rows, got %d", affected)
	}
	reloaded, _ := repo.GetByID(product.ID)
	if reloaded.StockQty != 3 {
		t.Fatalf("stock changed on rejected deduct: %d", reloaded.StockQty)
	}

	affected, err = repo.AdjustStock(product.ID, -3)
	if err != nil || affected != 1 {
		t.Fatalf("exact deduct should pass: affected=%d err=%v", affected, err)
	}
	affected, err = repo.AdjustStock(product.ID, 10)
	if err != nil || affected != 1 {
		t.Fatalf("increase should pass: affected=%d err=%v", affected, err)
	}
	reloaded, _ = repo.GetByID(product.ID)
	if reloaded.StockQty != 10 {
		t.Fatalf("want stock 10, got %d", reloaded.StockQty)
	}
}

func TestListLowStock(t *testing.T) {
	db, repo := setupProductRepoTest(t)
	low := seedProduct(t, db, "低库存", 2, 5, true)
	seedProduct(t, db, "充足", 100, 5, true)
	seedProduct(t, db, "下架低库存", 1, 5, false)

	products, err := repo.ListLowStock()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != low.ID {
		t.Fatalf("want only active low-stock product, got %+v", products)
	}
}

func TestGetPackageByIDPreloadsComponents(t *testing.T) {
	db, repo := setupProductRepoTest(t)
	noodle := seedProduct(t, db, "招牌牛肉面", 10, 0, true)
	juice := seedProduct(t, db, "鲜榨橙汁", 10, 0, true)

	pkg := models.MenuPackage{Name: "午市套餐A", Price: models.NewMoneyFromDecimal(decimal.NewFromInt(48)), IsActive: true}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package failed: %v", err)
	}
	components := []models.PackageComponent{
		{PackageID: pkg.ID, ProductID: noodle.ID, Quantity: 1},
		{PackageID: pkg.ID, ProductID: juice.ID, Quantity: 2},
	}
	if err := db.Create(&components).Error; err != nil {
		t.Fatalf("create components failed: %v", err)
	}

	loaded, err := repo.GetPackageByID(pkg.ID)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if loaded == nil || len(loaded.Components) != 2 {
		t.Fatalf("components not preloaded: %+v", loaded)
	}

	missing, err := repo.GetPackageByID(9999)
	if err != nil || missing != nil {
		t.Fatalf("missing package should be (nil, nil), got %+v %v", missing, err)
	}
}
