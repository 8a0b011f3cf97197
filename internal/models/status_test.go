package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techstore/internal/models"
)

func TestParseOrderStatus(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want models.OrderStatus
	}{
		{"Pending", models.OrderPending},
		{"pending", models.OrderPending},
		{"COMPLETED", models.OrderCompleted},
		{"cancelled", models.OrderCancelled},
		{" Quote ", models.OrderQuote},
	} {
		got, err := models.ParseOrderStatus(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := models.ParseOrderStatus("shipped")
	require.Error(t, err)
	_, err = models.ParseOrderStatus("")
	require.Error(t, err)
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, models.OrderPending.CanTransition(models.OrderCompleted))
	assert.True(t, models.OrderPending.CanTransition(models.OrderCancelled))
	assert.True(t, models.OrderQuote.CanTransition(models.OrderPending))

	// Completed orders can still be cancelled for refunds.
	assert.True(t, models.OrderCompleted.CanTransition(models.OrderCancelled))

	// Cancelled is terminal.
	assert.False(t, models.OrderCancelled.CanTransition(models.OrderPending))
	assert.False(t, models.OrderCancelled.CanTransition(models.OrderCompleted))
}

func TestPreOrderTransitions(t *testing.T) {
	// The payment path only moves forward.
	assert.True(t, models.PreOrderPending.CanTransition(models.PreOrderConfirmed))
	assert.True(t, models.PreOrderConfirmed.CanTransition(models.PreOrderPartiallyPaid))
	assert.True(t, models.PreOrderPartiallyPaid.CanTransition(models.PreOrderReadyForPickup))
	assert.True(t, models.PreOrderReadyForPickup.CanTransition(models.PreOrderCompleted))

	assert.False(t, models.PreOrderConfirmed.CanTransition(models.PreOrderPending))
	assert.False(t, models.PreOrderPartiallyPaid.CanTransition(models.PreOrderConfirmed))
	assert.False(t, models.PreOrderPending.CanTransition(models.PreOrderReadyForPickup))
	assert.False(t, models.PreOrderPending.CanTransition(models.PreOrderCompleted))

	// Cancellation is reachable from every non-terminal state.
	for _, status := range []models.PreOrderStatus{
		models.PreOrderPending,
		models.PreOrderConfirmed,
		models.PreOrderPartiallyPaid,
		models.PreOrderReadyForPickup,
	} {
		assert.True(t, status.CanTransition(models.PreOrderCancelled), string(status))
	}

	assert.True(t, models.PreOrderCompleted.Terminal())
	assert.True(t, models.PreOrderCancelled.Terminal())
	assert.False(t, models.PreOrderReadyForPickup.Terminal())
}

func TestPreOrderMoneyHelpers(t *testing.T) {
	po := &models.PreOrder{Quantity: 2, ExpectedPrice: 100, DepositAmount: 75}
	assert.InDelta(t, 200, po.TotalPrice(), 0.001)
	assert.InDelta(t, 125, po.RemainingBalance(), 0.001)

	po.DepositAmount = 250
	assert.Zero(t, po.RemainingBalance())
}

func TestCartLineClassification(t *testing.T) {
	assert.True(t, models.CartLine{Type: "preorder"}.IsPreorder())
	assert.False(t, models.CartLine{Type: ""}.IsPreorder())
	assert.False(t, models.CartLine{Type: "regular"}.IsPreorder())
}
