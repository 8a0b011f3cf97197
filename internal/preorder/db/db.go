package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) PreOrderByID(ctx context.Context, idb bun.IDB, id int64) (*models.PreOrder, error) {
	var po models.PreOrder
	err := idb.NewSelect().
		Model(&po).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("pre-order", id)
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (d *DB) Insert(ctx context.Context, idb bun.IDB, po *models.PreOrder) error {
	_, err := idb.NewInsert().Model(po).Exec(ctx)
	return err
}

func (d *DB) UpdateStatus(ctx context.Context, idb bun.IDB, id int64, status models.PreOrderStatus) error {
	_, err := idb.NewUpdate().
		Model((*models.PreOrder)(nil)).
		Set("status = ?", status).
		Set("updated_date = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// SetDepositTotal writes the recomputed running total and the method of the
// latest payment.
func (d *DB) SetDepositTotal(ctx context.Context, idb bun.IDB, id int64, total float64, method string, status models.PreOrderStatus) error {
	_, err := idb.NewUpdate().
		Model((*models.PreOrder)(nil)).
		Set("deposit_amount = ?", total).
		Set("deposit_payment_method = ?", method).
		Set("status = ?", status).
		Set("updated_date = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) SetAvailabilityDate(ctx context.Context, idb bun.IDB, id int64, expected *time.Time) error {
	_, err := idb.NewUpdate().
		Model((*models.PreOrder)(nil)).
		Set("expected_availability_date = ?", expected).
		Set("updated_date = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) SetActualAvailability(ctx context.Context, idb bun.IDB, id int64, actual time.Time) error {
	_, err := idb.NewUpdate().
		Model((*models.PreOrder)(nil)).
		Set("actual_availability_date = ?", actual).
		Set("updated_date = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) Delete(ctx context.Context, idb bun.IDB, id int64) error {
	_, err := idb.NewDelete().
		Model((*models.PreOrder)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ByCustomer(ctx context.Context, idb bun.IDB, customerID int64) ([]models.PreOrder, error) {
	var pos []models.PreOrder
	err := idb.NewSelect().
		Model(&pos).
		Where("customer_id = ?", customerID).
		Order("created_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// ByStatus lists pre-orders in one status, oldest first so staff work the
// backlog in arrival order.
func (d *DB) ByStatus(ctx context.Context, idb bun.IDB, status models.PreOrderStatus) ([]models.PreOrder, error) {
	var pos []models.PreOrder
	err := idb.NewSelect().
		Model(&pos).
		Where("status = ?", status).
		Order("created_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// Recent lists the newest pre-orders regardless of status, for the staff
// dashboard feed.
func (d *DB) Recent(ctx context.Context, idb bun.IDB, limit int) ([]models.PreOrder, error) {
	var pos []models.PreOrder
	err := idb.NewSelect().
		Model(&pos).
		Order("created_date DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (d *DB) Active(ctx context.Context, idb bun.IDB) ([]models.PreOrder, error) {
	var pos []models.PreOrder
	err := idb.NewSelect().
		Model(&pos).
		Where("status NOT IN (?)", bun.In([]models.PreOrderStatus{models.PreOrderCompleted, models.PreOrderCancelled})).
		Order("created_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// ---------------- PAYMENT LEDGER ----------------

func (d *DB) InsertPayment(ctx context.Context, idb bun.IDB, p *models.PreOrderPayment) error {
	_, err := idb.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) PaymentsFor(ctx context.Context, idb bun.IDB, preOrderID int64) ([]models.PreOrderPayment, error) {
	var payments []models.PreOrderPayment
	err := idb.NewSelect().
		Model(&payments).
		Where("pre_order_id = ?", preOrderID).
		Order("payment_date ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// CompletedTotal sums the completed ledger rows. This is the authoritative
// amount paid; deposit_amount on the pre-order is a cache of it.
func (d *DB) CompletedTotal(ctx context.Context, idb bun.IDB, preOrderID int64) (float64, error) {
	var total float64
	err := idb.NewSelect().
		ColumnExpr("COALESCE(SUM(payment_amount), 0.0)").
		Table("pre_order_payments").
		Where("pre_order_id = ? AND payment_status = ?", preOrderID, "completed").
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Stats aggregates the staff dashboard counters in one round trip per
// metric.
func (d *DB) Stats(ctx context.Context, idb bun.IDB) (*models.PreOrderStats, error) {
	stats := &models.PreOrderStats{}

	active, err := idb.NewSelect().
		Model((*models.PreOrder)(nil)).
		Where("status NOT IN (?)", bun.In([]models.PreOrderStatus{models.PreOrderCompleted, models.PreOrderCancelled})).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalActive = active

	awaiting, err := idb.NewSelect().
		Model((*models.PreOrder)(nil)).
		Where("status IN (?)", bun.In([]models.PreOrderStatus{models.PreOrderConfirmed, models.PreOrderPartiallyPaid})).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.AwaitingStock = awaiting

	ready, err := idb.NewSelect().
		Model((*models.PreOrder)(nil)).
		Where("status = ?", models.PreOrderReadyForPickup).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.ReadyForPickup = ready

	err = idb.NewSelect().
		ColumnExpr("COALESCE(SUM(deposit_amount), 0)").
		Table("pre_orders").
		Where("status NOT IN (?)", bun.In([]models.PreOrderStatus{models.PreOrderCompleted, models.PreOrderCancelled})).
		Scan(ctx, &stats.TotalDeposits)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

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
