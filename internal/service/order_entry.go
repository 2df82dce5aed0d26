package service

import (
	"fmt"
	"time"

	"github.com/meja-pos/internal/constants"
	"github.com/meja-pos/internal/models"

	"github.com/shopspring/decimal"
)

// CreateOrderInput 开单输入
type CreateOrderInput struct {
	TableNo   string                 `json:"table_no,omitempty"`
	SessionID *uint                  `json:"session_id,omitempty"`
	Notes     string                 `json:"notes,omitempty"`
	AsDraft   bool                   `json:"as_draft,omitempty"`
	Items     []CreateOrderItemInput `json:"items"`
}

// CreateOrderItemInput 开单订单项输入
type CreateOrderItemInput struct {
	ProductID       uint   `json:"product_id,omitempty"`
	PackageID       uint   `json:"package_id,omitempty"`
	Quantity        int    `json:"quantity"`
	IsComplimentary bool   `json:"is_complimentary,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// CreateOrder 开立订单。名称与价格在此刻快照到订单项上，
// 之后菜单改价不影响已开订单；赠送项价格照常快照，以全额单项折扣清零。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: 订单至少包含一项", ErrValidation)
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 第 %d 项数量必须为正", ErrValidation, i+1)
		}
		if (line.ProductID == 0) == (line.PackageID == 0) {
			return nil, fmt.Errorf("%w: 第 %d 项必须且只能引用菜品或套餐之一", ErrValidation, i+1)
		}

		item := models.OrderItem{
			Quantity:        line.Quantity,
			IsComplimentary: line.IsComplimentary,
			Notes:           line.Notes,
		}
		if line.ProductID != 0 {
			product, err := s.productRepo.GetByID(line.ProductID)
			if err != nil {
				return nil, err
			}
			if product == nil || !product.IsActive {
				return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, line.ProductID)
			}
			productID := line.ProductID
			item.ProductID = &productID
			item.ProductName = product.Name
			item.UnitPrice = product.Price
		} else {
			pkg, err := s.productRepo.GetPackageByID(line.PackageID)
			if err != nil {
				return nil, err
			}
			if pkg == nil || !pkg.IsActive {
				return nil, fmt.Errorf("%w: 套餐 id=%d", ErrProductNotFound, line.PackageID)
			}
			packageID := line.PackageID
			item.PackageID = &packageID
			item.ProductName = pkg.Name
			item.UnitPrice = pkg.Price
		}

		RecalcItemAmounts(&item)
		if line.IsComplimentary {
			item.DiscountAmount = item.Subtotal
			RecalcItemAmounts(&item)
		}
		items = append(items, item)
	}

	status := constants.OrderStatusPending
	if input.AsDraft {
		status = constants.OrderStatusDraft
	}
	now := time.Now()
	order := &models.Order{
		OrderNo:   GenerateOrderNo(now),
		Status:    status,
		TableNo:   input.TableNo,
		SessionID: input.SessionID,
		Notes:     input.Notes,
	}
	order.TaxAmount = calcTaxAmount(items, s.taxRatePercent)
	// 金额按订单项求和后再清空关联，订单项由仓库层单独落库
	order.Items = items
	RecalcOrderAmounts(order)
	order.Items = nil

	if err := s.orderRepo.Create(order, items); err != nil {
		return nil, err
	}
	return s.GetByID(order.ID)
}

// calcTaxAmount 按净额（小计减单项折扣）乘税率计税，四舍五入到分
func calcTaxAmount(items []models.OrderItem, ratePercent int) models.Money {
	if ratePercent <= 0 {
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
	net := decimal.Zero
	for _, item := range items {
		net = net.Add(item.Total.Decimal)
	}
	rate := decimal.NewFromInt(int64(ratePercent)).Div(decimal.NewFromInt(100))
	return models.NewMoneyFromDecimal(net.Mul(rate).Round(2))
}
