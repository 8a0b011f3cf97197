package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PreOrder struct {
	bun.BaseModel `bun:"table:pre_orders"`

	ID            int64   `bun:"id,pk,autoincrement" json:"id"`
	CustomerID    int64   `bun:"customer_id,notnull" json:"customer_id"`
	ProductID     int64   `bun:"product_id,notnull" json:"product_id"`
	Quantity      int     `bun:"quantity,notnull" json:"quantity"`
	ExpectedPrice float64 `bun:"expected_price,notnull" json:"expected_price"`
	// DepositAmount is the running total paid to date, not a single deposit.
	// It is a cached sum over pre_order_payments and is recomputed inside
	// every payment-adding transaction.
	DepositAmount            float64        `bun:"deposit_amount,notnull,default:0" json:"deposit_amount"`
	DepositPaymentMethod     string         `bun:"deposit_payment_method,nullzero" json:"deposit_payment_method,omitempty"`
	Status                   PreOrderStatus `bun:"status,notnull" json:"status"`
	ExpectedAvailabilityDate *time.Time     `bun:"expected_availability_date,nullzero" json:"expected_availability_date,omitempty"`
	ActualAvailabilityDate   *time.Time     `bun:"actual_availability_date,nullzero" json:"actual_availability_date,omitempty"`
	Notes                    string         `bun:"notes,nullzero" json:"notes,omitempty"`
	CreatedDate              time.Time      `bun:"created_date,nullzero,notnull,default:current_timestamp" json:"created_date"`
	UpdatedDate              time.Time      `bun:"updated_date,nullzero" json:"updated_date,omitempty"`
}

// TotalPrice is the full amount owed for the reservation.
func (p *PreOrder) TotalPrice() float64 {
	return p.ExpectedPrice * float64(p.Quantity)
}

// RemainingBalance never goes below zero.
func (p *PreOrder) RemainingBalance() float64 {
	remaining := p.TotalPrice() - p.DepositAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// PreOrderPaymentType classifies a ledger entry relative to the payments
// that came before it.
type PreOrderPaymentType string

const (
	PaymentDeposit PreOrderPaymentType = "deposit" // first partial payment
	PaymentBalance PreOrderPaymentType = "balance" // subsequent partial payment
	PaymentFull    PreOrderPaymentType = "full"    // single payment covering the whole price
)

// PreOrderPayment is one row of the append-only payment ledger. The total
// paid for a pre-order is the sum of its completed rows; this ledger is the
// source of truth for PreOrder.DepositAmount.
type PreOrderPayment struct {
	bun.BaseModel `bun:"table:pre_order_payments"`

	ID            int64               `bun:"id,pk,autoincrement" json:"id"`
	PreOrderID    int64               `bun:"pre_order_id,notnull" json:"pre_order_id"`
	PaymentAmount float64             `bun:"payment_amount,notnull" json:"payment_amount"`
	PaymentType   PreOrderPaymentType `bun:"payment_type,notnull" json:"payment_type"`
	PaymentMethod string              `bun:"payment_method,nullzero" json:"payment_method"`
	PaymentDate   time.Time           `bun:"payment_date,nullzero,notnull,default:current_timestamp" json:"payment_date"`
	PaymentStatus string              `bun:"payment_status,notnull,default:'completed'" json:"payment_status"`
	SessionID     string              `bun:"session_id,nullzero" json:"session_id,omitempty"`
	Notes         string              `bun:"notes,nullzero" json:"notes,omitempty"`
}

// RefundInfo reports what is owed back after a cancellation. Actual money
// movement is manual; this only records the obligation.
type RefundInfo struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

// PreOrderStats backs the staff dashboard counters.
type PreOrderStats struct {
	TotalActive    int     `json:"total_active"`
	AwaitingStock  int     `json:"awaiting_stock"`
	ReadyForPickup int     `json:"ready_for_pickup"`
	TotalDeposits  float64 `json:"total_deposits"`
}
