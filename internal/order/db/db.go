package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// OrderByID fetches one order on the given handle (tx or plain connection).
func (d *DB) OrderByID(ctx context.Context, idb bun.IDB, id int64) (*models.Order, error) {
	var order models.Order
	err := idb.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) InsertOrder(ctx context.Context, idb bun.IDB, order *models.Order) error {
	_, err := idb.NewInsert().Model(order).Exec(ctx)
	return err
}

func (d *DB) UpdateOrderStatus(ctx context.Context, idb bun.IDB, id int64, status models.OrderStatus) error {
	_, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) UpdateOrderTotal(ctx context.Context, idb bun.IDB, id int64, total float64) error {
	_, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("total_amount = ?", total).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) LinkPreOrder(ctx context.Context, idb bun.IDB, orderID, preOrderID int64) error {
	_, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("pre_order_id = ?", preOrderID).
		Where("id = ?", orderID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteOrder(ctx context.Context, idb bun.IDB, id int64) error {
	_, err := idb.NewDelete().
		Model((*models.Order)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// PendingByCustomer returns the customer's open Pending orders, newest
// first. The first one is the active cart; anything after that is leftover
// from an abandoned checkout.
func (d *DB) PendingByCustomer(ctx context.Context, idb bun.IDB, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := idb.NewSelect().
		Model(&orders).
		Where("customer_id = ? AND status = ?", customerID, models.OrderPending).
		Order("order_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Paginated lists orders for the staff dashboard, optionally filtered by
// status, newest first.
func (d *DB) Paginated(ctx context.Context, status string, page, pageSize int) ([]models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	q := d.Bun.NewSelect().Model((*models.Order)(nil))
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	count, err := q.
		Order("order_date DESC").
		Limit(pageSize).
		Offset((page-1)*pageSize).
		ScanAndCount(ctx, &orders)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

// StatusRow is one line of the staff status summary.
type StatusRow struct {
	Status string  `bun:"status" json:"status"`
	Count  int     `bun:"count" json:"count"`
	Total  float64 `bun:"total" json:"total"`
}

func (d *DB) StatusSummary(ctx context.Context) ([]StatusRow, error) {
	var rows []StatusRow
	err := d.Bun.NewSelect().
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(total_amount), 0) AS total").
		Table("orders").
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ---------------- ORDER ITEMS ----------------

func (d *DB) InsertItem(ctx context.Context, idb bun.IDB, item *models.OrderItem) error {
	_, err := idb.NewInsert().Model(item).Exec(ctx)
	return err
}

func (d *DB) ItemsByOrder(ctx context.Context, idb bun.IDB, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := idb.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ItemsByIDs returns the subset of an order's items matching ids.
func (d *DB) ItemsByIDs(ctx context.Context, idb bun.IDB, orderID int64, ids []int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := idb.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) ItemByID(ctx context.Context, idb bun.IDB, orderID, itemID int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := idb.NewSelect().
		Model(&item).
		Where("order_id = ? AND id = ?", orderID, itemID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("order item", itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) ItemByProduct(ctx context.Context, idb bun.IDB, orderID, productID int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := idb.NewSelect().
		Model(&item).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("order item for product", productID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) UpdateItemQuantity(ctx context.Context, idb bun.IDB, itemID int64, quantity int) error {
	_, err := idb.NewUpdate().
		Model((*models.OrderItem)(nil)).
		Set("quantity = ?", quantity).
		Where("id = ?", itemID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteItem(ctx context.Context, idb bun.IDB, itemID int64) error {
	_, err := idb.NewDelete().
		Model((*models.OrderItem)(nil)).
		Where("id = ?", itemID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteItemsByOrder(ctx context.Context, idb bun.IDB, orderID int64) error {
	_, err := idb.NewDelete().
		Model((*models.OrderItem)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

// ItemsTotal recomputes Σ(quantity · price) for an order's surviving items.
func (d *DB) ItemsTotal(ctx context.Context, idb bun.IDB, orderID int64) (float64, error) {
	var total float64
	err := idb.NewSelect().
		ColumnExpr("COALESCE(SUM(quantity * price), 0)").
		Table("order_items").
		Where("order_id = ?", orderID).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (d *DB) CountItems(ctx context.Context, idb bun.IDB, orderID int64) (int, error) {
	return idb.NewSelect().
		Model((*models.OrderItem)(nil)).
		Where("order_id = ?", orderID).
		Count(ctx)
}

// ---------------- PRODUCTS ----------------

func (d *DB) ProductByID(ctx context.Context, idb bun.IDB, id int64) (*models.Product, error) {
	var product models.Product
	err := idb.NewSelect().
		Model(&product).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
