package catalog_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techstore/internal/catalog"
	"techstore/internal/errs"
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
	require.NoError(t, bunDB.ResetModel(ctx, (*models.PreOrder)(nil)))

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func TestProduct(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := catalog.NewService(bunDB)
	ctx := context.Background()

	seeded := &models.Product{Name: "Gaming Console", Price: 500, Stock: 0, AllowPreorder: true}
	_, err := bunDB.NewInsert().Model(seeded).Exec(ctx)
	require.NoError(t, err)

	product, err := svc.Product(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gaming Console", product.Name)
	assert.True(t, product.AllowPreorder)

	_, err = svc.Product(ctx, 999)
	var notFound *errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestStockStatusCountsActivePreOrders(t *testing.T) {
	bunDB := setupTestDB(t)
	svc := catalog.NewService(bunDB)
	ctx := context.Background()

	product := &models.Product{Name: "Gaming Console", Price: 500, Stock: 2, AllowPreorder: true}
	_, err := bunDB.NewInsert().Model(product).Exec(ctx)
	require.NoError(t, err)

	for _, status := range []models.PreOrderStatus{
		models.PreOrderPending,
		models.PreOrderConfirmed,
		models.PreOrderCompleted,
		models.PreOrderCancelled,
	} {
		po := &models.PreOrder{
			CustomerID:    1,
			ProductID:     product.ID,
			Quantity:      1,
			ExpectedPrice: 500,
			Status:        status,
		}
		_, err := bunDB.NewInsert().Model(po).Exec(ctx)
		require.NoError(t, err)
	}

	status, err := svc.StockStatus(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Stock)
	assert.True(t, status.AllowPreorder)

	// Completed and cancelled pre-orders no longer hold a claim.
	assert.Equal(t, 2, status.ActivePreOrders)
}
