package preorder_test

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
	"techstore/internal/order"
	"techstore/internal/preorder"
)

func setupService(t *testing.T) (*preorder.Service, *order.Service, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Product)(nil),
		(*models.InventoryChange)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.PreOrder)(nil),
		(*models.PreOrderPayment)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	orders := order.NewService(bunDB, inventory.NewLedger(nil), nil, nil, nil, nil)
	preOrders := preorder.NewService(bunDB, orders, nil, nil, nil)

	t.Cleanup(func() { bunDB.Close() })
	return preOrders, orders, bunDB
}

func seedPreorderProduct(t *testing.T, bunDB *bun.DB, name string, price float64, stock int) int64 {
	t.Helper()
	product := &models.Product{Name: name, Price: price, Stock: stock, AllowPreorder: true}
	_, err := bunDB.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
	return product.ID
}

func TestCreateRequiresPreorderFlag(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	product := &models.Product{Name: "In-Stock Item", Price: 50, Stock: 10}
	_, err := bunDB.NewInsert().Model(product).Exec(ctx)
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, product.ID, 1, 50, "", nil)
	var validation *errs.ValidationError
	require.True(t, errors.As(err, &validation))
}

func TestCreateStartsPending(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 499.99, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 499.99, "launch day", nil)
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderPending, po.Status)
	assert.Zero(t, po.DepositAmount)
	assert.InDelta(t, 499.99, po.TotalPrice(), 0.001)
}

func TestDepositThenBalance(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 2, 100, "", nil)
	require.NoError(t, err)
	// Full price is 200.

	payment, err := svc.AddDepositPayment(ctx, po.ID, 75, "QR Payment", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentDeposit, payment.PaymentType)

	got, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderConfirmed, got.Status)
	assert.InDelta(t, 75, got.DepositAmount, 0.001)
	assert.InDelta(t, 125, got.RemainingBalance(), 0.001)

	payment, err = svc.AddDepositPayment(ctx, po.ID, 125, "Cash", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentBalance, payment.PaymentType)

	got, err = svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderPartiallyPaid, got.Status)
	assert.InDelta(t, 200, got.DepositAmount, 0.001)
	assert.Zero(t, got.RemainingBalance())
}

func TestFirstPaymentCoveringFullPrice(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "GPU", 899, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 899, "", nil)
	require.NoError(t, err)

	payment, err := svc.AddDepositPayment(ctx, po.ID, 899, "QR Payment", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFull, payment.PaymentType)

	got, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RemainingBalance())
}

func TestOverpaymentRejected(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 2, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 150, "Cash", "", "")
	require.NoError(t, err)

	// 150 + 100 would exceed the 200 total.
	_, err = svc.AddDepositPayment(ctx, po.ID, 100, "Cash", "", "")
	var validation *errs.ValidationError
	require.True(t, errors.As(err, &validation))

	// The rejected payment left no trace.
	total, err := svc.TotalPaid(ctx, po.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150, total, 0.001)

	payments, err := svc.Payments(ctx, po.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPaymentRejectedOnTerminalStates(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, po.ID, "customer request")
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 50, "Cash", "", "")
	var invalid *errs.InvalidStateError
	require.True(t, errors.As(err, &invalid))
}

func TestMarkReadyForPickupGating(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	// Pending pre-orders have no money down and cannot be staged.
	err = svc.MarkReadyForPickup(ctx, po.ID)
	var invalid *errs.InvalidStateError
	require.True(t, errors.As(err, &invalid))

	_, err = svc.AddDepositPayment(ctx, po.ID, 40, "Cash", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkReadyForPickup(ctx, po.ID))

	got, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderReadyForPickup, got.Status)
	assert.NotNil(t, got.ActualAvailabilityDate)
}

func TestCompleteConvertsToOrder(t *testing.T) {
	svc, orders, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 500, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 500, "", nil)
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 200, "QR Payment", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkReadyForPickup(ctx, po.ID))

	// Stock arrives before pickup.
	_, err = bunDB.NewUpdate().
		Model((*models.Product)(nil)).
		Set("stock = ?", 3).
		Where("id = ?", productID).
		Exec(ctx)
	require.NoError(t, err)

	orderID, err := svc.Complete(ctx, po.ID, "Cash")
	require.NoError(t, err)

	got, err := orders.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Order.Status)
	assert.InDelta(t, 500, got.Order.TotalAmount, 0.001)
	require.NotNil(t, got.Order.PreOrderID)
	assert.Equal(t, po.ID, *got.Order.PreOrderID)

	// The remaining 300 was collected at pickup.
	total, err := svc.TotalPaid(ctx, po.ID)
	require.NoError(t, err)
	assert.InDelta(t, 500, total, 0.001)

	updated, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PreOrderCompleted, updated.Status)

	// Pickup consumed one arrived unit.
	stock, err := inventory.NewLedger(nil).CurrentStock(ctx, bunDB, productID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock)
}

func TestCompleteOnlyFromReadyForPickup(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 5)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, po.ID, "Cash")
	var invalid *errs.InvalidStateError
	require.True(t, errors.As(err, &invalid))
}

func TestCancelReportsRefund(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 60, "QR Payment", "", "")
	require.NoError(t, err)

	refund, err := svc.Cancel(ctx, po.ID, "no longer wanted")
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.InDelta(t, 60, refund.Amount, 0.001)
	assert.Equal(t, "QR Payment", refund.PaymentMethod)
}

func TestCancelWithoutPaymentsHasNoRefund(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	refund, err := svc.Cancel(ctx, po.ID, "changed mind")
	require.NoError(t, err)
	assert.Nil(t, refund)
}

func TestDeleteForbiddenWhenReadyForPickup(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 100, "Cash", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkReadyForPickup(ctx, po.ID))

	err = svc.Delete(ctx, po.ID)
	var invalid *errs.InvalidStateError
	require.True(t, errors.As(err, &invalid))
}

func TestDeleteRemovesLedger(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	_, err = svc.AddDepositPayment(ctx, po.ID, 40, "Cash", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, po.ID))

	_, err = svc.Get(ctx, po.ID)
	var notFound *errs.NotFoundError
	require.True(t, errors.As(err, &notFound))

	count, err := bunDB.NewSelect().Model((*models.PreOrderPayment)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateStatusValidatesTransitions(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)
	po, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)

	// Pending cannot jump straight to ready_for_pickup.
	err = svc.UpdateStatus(ctx, po.ID, "ready_for_pickup")
	var invalid *errs.InvalidStateError
	require.True(t, errors.As(err, &invalid))

	require.NoError(t, svc.UpdateStatus(ctx, po.ID, "confirmed"))
	require.NoError(t, svc.UpdateStatus(ctx, po.ID, "cancelled"))

	// Cancelled is terminal.
	err = svc.UpdateStatus(ctx, po.ID, "confirmed")
	require.True(t, errors.As(err, &invalid))
}

func TestStats(t *testing.T) {
	svc, _, bunDB := setupService(t)
	ctx := context.Background()

	productID := seedPreorderProduct(t, bunDB, "Console", 100, 0)

	first, err := svc.Create(ctx, 1, productID, 1, 100, "", nil)
	require.NoError(t, err)
	_, err = svc.AddDepositPayment(ctx, first.ID, 50, "Cash", "", "")
	require.NoError(t, err)

	second, err := svc.Create(ctx, 2, productID, 1, 100, "", nil)
	require.NoError(t, err)
	_, err = svc.AddDepositPayment(ctx, second.ID, 100, "Cash", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.MarkReadyForPickup(ctx, second.ID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalActive)
	assert.Equal(t, 1, stats.AwaitingStock)
	assert.Equal(t, 1, stats.ReadyForPickup)
	assert.InDelta(t, 150, stats.TotalDeposits, 0.001)
}
