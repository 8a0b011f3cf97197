// Package catalog serves the product reads the storefront needs around
// ordering: lookups, stock checks, and pre-order demand counts.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/models"
)

type Service struct {
	Bun *bun.DB
}

func NewService(bunDB *bun.DB) *Service {
	return &Service{Bun: bunDB}
}

func (s *Service) Product(ctx context.Context, productID int64) (*models.Product, error) {
	product := new(models.Product)
	err := s.Bun.NewSelect().Model(product).Where("id = ?", productID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("product", productID)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// StockStatus bundles what the storefront's product page asks in one call:
// the live stock count, whether pre-ordering is open, and how many
// pre-orders are already queued against the product.
type StockStatus struct {
	ProductID       int64 `json:"product_id"`
	Stock           int   `json:"stock"`
	AllowPreorder   bool  `json:"allow_preorder"`
	ActivePreOrders int   `json:"active_pre_orders"`
}

func (s *Service) StockStatus(ctx context.Context, productID int64) (*StockStatus, error) {
	product, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	count, err := s.ActivePreOrderCount(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &StockStatus{
		ProductID:       product.ID,
		Stock:           product.Stock,
		AllowPreorder:   product.AllowPreorder,
		ActivePreOrders: count,
	}, nil
}

// ActivePreOrderCount counts pre-orders still waiting on this product.
func (s *Service) ActivePreOrderCount(ctx context.Context, productID int64) (int, error) {
	return s.Bun.NewSelect().
		Model((*models.PreOrder)(nil)).
		Where("product_id = ?", productID).
		Where("status NOT IN (?)", bun.In([]models.PreOrderStatus{models.PreOrderCompleted, models.PreOrderCancelled})).
		Count(ctx)
}
