package inventory_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techstore/internal/errs"
	"techstore/internal/inventory"
	"techstore/internal/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	require.NoError(t, bunDB.ResetModel(ctx, (*models.Product)(nil)))
	require.NoError(t, bunDB.ResetModel(ctx, (*models.InventoryChange)(nil)))

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func seedProduct(t *testing.T, bunDB *bun.DB, name string, stock int) int64 {
	t.Helper()
	product := &models.Product{Name: name, Price: 10, Stock: stock}
	_, err := bunDB.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
	return product.ID
}

func TestReduceStock(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)
	ctx := context.Background()

	productID := seedProduct(t, bunDB, "Keyboard", 10)

	err := ledger.ReduceStock(ctx, bunDB, productID, 4)
	require.NoError(t, err)

	stock, err := ledger.CurrentStock(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Equal(t, 6, stock)
}

func TestReduceStockInsufficient(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)
	ctx := context.Background()

	productID := seedProduct(t, bunDB, "Mouse", 3)

	err := ledger.ReduceStock(ctx, bunDB, productID, 5)
	require.Error(t, err)

	var stockErr *errs.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Mouse", stockErr.ProductName)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	// Nothing was written.
	stock, err := ledger.CurrentStock(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	changes, err := ledger.Changes(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestReduceStockUnknownProduct(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)

	err := ledger.ReduceStock(context.Background(), bunDB, 999, 1)
	var notFound *errs.NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestReduceStockRejectsNonPositiveQuantity(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)
	productID := seedProduct(t, bunDB, "Dock", 5)

	err := ledger.ReduceStock(context.Background(), bunDB, productID, 0)
	var validation *errs.ValidationError
	require.True(t, errors.As(err, &validation))
}

func TestRestoreStock(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)
	ctx := context.Background()

	productID := seedProduct(t, bunDB, "Keyboard", 2)

	require.NoError(t, ledger.RestoreStock(ctx, bunDB, productID, 3))

	stock, err := ledger.CurrentStock(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)
}

func TestAuditTrailMatchesNetChange(t *testing.T) {
	bunDB := setupTestDB(t)
	ledger := inventory.NewLedger(nil)
	ctx := context.Background()

	productID := seedProduct(t, bunDB, "GPU", 20)

	require.NoError(t, ledger.ReduceStock(ctx, bunDB, productID, 7))
	require.NoError(t, ledger.ReduceStock(ctx, bunDB, productID, 2))
	require.NoError(t, ledger.RestoreStock(ctx, bunDB, productID, 4))

	changes, err := ledger.Changes(ctx, bunDB, productID)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, -7, changes[0].Changes)
	assert.Equal(t, -2, changes[1].Changes)
	assert.Equal(t, 4, changes[2].Changes)

	net := 0
	for _, c := range changes {
		net += c.Changes
	}
	stock, err := ledger.CurrentStock(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Equal(t, 20+net, stock)
}
