package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techstore/internal/api"
	"techstore/internal/catalog"
	"techstore/internal/models"
	"techstore/internal/preorder"
)

func setupHandler(t *testing.T) (*api.Handler, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Product)(nil),
		(*models.PreOrder)(nil),
		(*models.PreOrderPayment)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}
	t.Cleanup(func() { bunDB.Close() })

	h := &api.Handler{
		PreOrders: preorder.NewService(bunDB, nil, nil, nil, nil),
		Catalog:   catalog.NewService(bunDB),
	}
	return h, bunDB
}

func seedProduct(t *testing.T, bunDB *bun.DB, stock int, allowPreorder bool) int64 {
	t.Helper()
	product := &models.Product{Name: "Gaming Console", Price: 500, Stock: stock, AllowPreorder: allowPreorder}
	_, err := bunDB.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
	return product.ID
}

func postPreOrder(h *api.Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/preorders", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreatePreOrder(w, r)
	return w
}

func TestCreatePreOrderOutOfStockProduct(t *testing.T) {
	h, bunDB := setupHandler(t)
	productID := seedProduct(t, bunDB, 0, true)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id":    1,
		"product_id":     productID,
		"quantity":       2,
		"expected_price": 500,
	})
	w := postPreOrder(h, string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var po models.PreOrder
	err := bunDB.NewSelect().Model(&po).Where("product_id = ?", productID).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderPending, po.Status)
}

func TestCreatePreOrderRejectedWhileUnitsRemain(t *testing.T) {
	h, bunDB := setupHandler(t)

	// One unit on the shelf blocks a pre-order even for a larger quantity.
	productID := seedProduct(t, bunDB, 1, true)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id":    1,
		"product_id":     productID,
		"quantity":       3,
		"expected_price": 500,
	})
	w := postPreOrder(h, string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "in stock")

	count, err := bunDB.NewSelect().Model((*models.PreOrder)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreatePreOrderRejectsNonPositiveQuantity(t *testing.T) {
	h, bunDB := setupHandler(t)
	productID := seedProduct(t, bunDB, 0, true)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_id":    1,
		"product_id":     productID,
		"quantity":       0,
		"expected_price": 500,
	})
	w := postPreOrder(h, string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
