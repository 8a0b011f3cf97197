package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the order lifecycle state. Values are stored capitalized.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
	OrderCancelled OrderStatus = "Cancelled"
	OrderQuote     OrderStatus = "Quote"
)

// orderTransitions is the allowed-move table. Completed → Cancelled exists
// for the staff refund path; it restores stock exactly once.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderCompleted, OrderCancelled, OrderQuote},
	OrderQuote:     {OrderPending, OrderCancelled},
	OrderCompleted: {OrderCancelled},
	OrderCancelled: {},
}

// ParseOrderStatus accepts any casing and normalizes to the stored form.
func ParseOrderStatus(s string) (OrderStatus, error) {
	norm := strings.TrimSpace(s)
	if norm == "" {
		return "", fmt.Errorf("order status is required")
	}
	norm = strings.ToUpper(norm[:1]) + strings.ToLower(norm[1:])
	switch OrderStatus(norm) {
	case OrderPending, OrderCompleted, OrderCancelled, OrderQuote:
		return OrderStatus(norm), nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PreOrderStatus is the pre-order lifecycle state. Values are stored
// lowercase with underscores.
type PreOrderStatus string

const (
	PreOrderPending        PreOrderStatus = "pending"
	PreOrderConfirmed      PreOrderStatus = "confirmed"
	PreOrderPartiallyPaid  PreOrderStatus = "partially_paid"
	PreOrderReadyForPickup PreOrderStatus = "ready_for_pickup"
	PreOrderCompleted      PreOrderStatus = "completed"
	PreOrderCancelled      PreOrderStatus = "cancelled"
)

// preOrderTransitions: payment advances pending → confirmed →
// partially_paid and never regresses; cancellation is reachable from every
// non-terminal state.
var preOrderTransitions = map[PreOrderStatus][]PreOrderStatus{
	PreOrderPending:        {PreOrderConfirmed, PreOrderPartiallyPaid, PreOrderCancelled},
	PreOrderConfirmed:      {PreOrderPartiallyPaid, PreOrderReadyForPickup, PreOrderCancelled},
	PreOrderPartiallyPaid:  {PreOrderReadyForPickup, PreOrderCancelled},
	PreOrderReadyForPickup: {PreOrderCompleted, PreOrderCancelled},
	PreOrderCompleted:      {},
	PreOrderCancelled:      {},
}

func ParsePreOrderStatus(s string) (PreOrderStatus, error) {
	norm := PreOrderStatus(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case PreOrderPending, PreOrderConfirmed, PreOrderPartiallyPaid,
		PreOrderReadyForPickup, PreOrderCompleted, PreOrderCancelled:
		return norm, nil
	}
	return "", fmt.Errorf("invalid pre-order status %q", s)
}

func (s PreOrderStatus) CanTransition(to PreOrderStatus) bool {
	for _, allowed := range preOrderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist.
func (s PreOrderStatus) Terminal() bool {
	return len(preOrderTransitions[s]) == 0
}

// SessionStatus is the payment-session lifecycle state held in Redis.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
	SessionProcessed SessionStatus = "processed"
)

// PaymentType classifies what a payment session is charging for.
type PaymentType string

const (
	PaymentRegular  PaymentType = "regular"
	PaymentPreorder PaymentType = "preorder_cart"
	PaymentMixed    PaymentType = "mixed_cart"
)
