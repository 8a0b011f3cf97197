// Package inventory maintains product stock and the append-only audit trail
// of deltas in the inventory table. Every mutation runs on the caller's
// bun.IDB so that stock changes share the transaction of the order-item
// insert (or deletion) they back.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
)

type Ledger struct {
	Log *logger.Logger
}

func NewLedger(log *logger.Logger) *Ledger {
	return &Ledger{Log: log}
}

// ReduceStock decrements stock by qty with an atomic conditional update and
// appends a negative-delta audit row. Fails with InsufficientStockError when
// fewer than qty units are available; stock can never go negative.
func (l *Ledger) ReduceStock(ctx context.Context, idb bun.IDB, productID int64, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive, got %d", qty)
	}

	res, err := idb.NewUpdate().
		Model((*models.Product)(nil)).
		Set("stock = stock - ?", qty).
		Where("id = ? AND stock >= ?", productID, qty).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reduce stock for product %d: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reduce stock for product %d: %w", productID, err)
	}
	if affected == 0 {
		// Either the product does not exist or the conditional guard
		// rejected the decrement. Read it back to tell the two apart.
		var product models.Product
		err := idb.NewSelect().
			Model(&product).
			Where("id = ?", productID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("product", productID)
		}
		if err != nil {
			return fmt.Errorf("reduce stock for product %d: %w", productID, err)
		}
		return &errs.InsufficientStockError{
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   qty,
		}
	}

	if err := l.appendChange(ctx, idb, productID, -qty); err != nil {
		return err
	}

	if l.Log != nil {
		l.Log.LogInventory("REDUCE", fmt.Sprint(productID), fmt.Sprintf("-%d units", qty))
	}
	return nil
}

// RestoreStock increments stock by qty and appends a positive-delta audit
// row. Used by every cancellation path.
func (l *Ledger) RestoreStock(ctx context.Context, idb bun.IDB, productID int64, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive, got %d", qty)
	}

	res, err := idb.NewUpdate().
		Model((*models.Product)(nil)).
		Set("stock = stock + ?", qty).
		Where("id = ?", productID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("restore stock for product %d: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore stock for product %d: %w", productID, err)
	}
	if affected == 0 {
		return errs.NotFound("product", productID)
	}

	if err := l.appendChange(ctx, idb, productID, qty); err != nil {
		return err
	}

	if l.Log != nil {
		l.Log.LogInventory("RESTORE", fmt.Sprint(productID), fmt.Sprintf("+%d units", qty))
	}
	return nil
}

func (l *Ledger) appendChange(ctx context.Context, idb bun.IDB, productID int64, delta int) error {
	change := &models.InventoryChange{
		ProductID:  productID,
		Changes:    delta,
		ChangeDate: time.Now(),
	}
	if _, err := idb.NewInsert().Model(change).Exec(ctx); err != nil {
		return fmt.Errorf("append inventory change for product %d: %w", productID, err)
	}
	return nil
}

// CurrentStock reads the authoritative stock column.
func (l *Ledger) CurrentStock(ctx context.Context, idb bun.IDB, productID int64) (int, error) {
	var product models.Product
	err := idb.NewSelect().
		Model(&product).
		Column("stock").
		Where("id = ?", productID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.NotFound("product", productID)
	}
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// Changes lists the audit trail for a product, oldest first.
func (l *Ledger) Changes(ctx context.Context, idb bun.IDB, productID int64) ([]models.InventoryChange, error) {
	var changes []models.InventoryChange
	err := idb.NewSelect().
		Model(&changes).
		Where("product_id = ?", productID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return changes, nil
}
