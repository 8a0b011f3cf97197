package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID            int64       `bun:"id,pk,autoincrement" json:"id"`
	CustomerID    int64       `bun:"customer_id,notnull" json:"customer_id"`
	OrderDate     time.Time   `bun:"order_date,notnull" json:"order_date"`
	Status        OrderStatus `bun:"status,notnull" json:"status"`
	TotalAmount   float64     `bun:"total_amount,notnull,default:0" json:"total_amount"`
	PaymentMethod string      `bun:"payment_method,nullzero" json:"payment_method"`
	PreOrderID    *int64      `bun:"pre_order_id,nullzero" json:"pre_order_id,omitempty"` // set when the order was produced by completing a pre-order
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID        int64   `bun:"id,pk,autoincrement" json:"id"`
	OrderID   int64   `bun:"order_id,notnull" json:"order_id"`
	ProductID int64   `bun:"product_id,notnull" json:"product_id"`
	Quantity  int     `bun:"quantity,notnull" json:"quantity"`
	Price     float64 `bun:"price,notnull" json:"price"` // unit price snapshot at add-time
}

// OrderLine is the JSON cart-line shape the HTTP layer sends for order
// creation: {product_id, quantity, price}.
type OrderLine struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CancelledItem describes one line removed by a cancellation, for
// notifications and refund summaries.
type CancelledItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price,omitempty"`
}

// CancelOrderResult is returned by a whole-order cancellation.
type CancelOrderResult struct {
	CancelledItems []CancelledItem `json:"cancelled_items"`
	TotalAmount    float64         `json:"total_amount"`
}

// CancelItemsResult is returned by a partial (per-item) cancellation.
type CancelItemsResult struct {
	CancelledItems      []CancelledItem `json:"cancelled_items"`
	RefundAmount        float64         `json:"refund_amount"`
	OrderFullyCancelled bool            `json:"order_fully_cancelled"`
}

// CancelQuantityResult is returned by a partial-quantity cancellation of a
// single item.
type CancelQuantityResult struct {
	RefundAmount      float64 `json:"refund_amount"`
	CancelledQuantity int     `json:"cancelled_quantity"`
	ProductName       string  `json:"product_name"`
	OrderDeleted      bool    `json:"order_deleted"`
}

// OrderItemCancellation is the best-effort audit row written by the staff
// "cancel item" endpoint. Stored through the raw-SQL cancellation store;
// a write failure never blocks the cancellation itself.
type OrderItemCancellation struct {
	ID                 int64     `json:"id"`
	OrderID            int64     `json:"order_id"`
	OrderItemID        int64     `json:"order_item_id"`
	ProductID          int64     `json:"product_id"`
	CancelledQuantity  int       `json:"cancelled_quantity"`
	OriginalQuantity   int       `json:"original_quantity"`
	Reason             string    `json:"reason"`
	CancelledByStaffID int64     `json:"cancelled_by_staff_id"`
	Notes              string    `json:"notes,omitempty"`
	Status             string    `json:"status"`
	CustomerNotified   bool      `json:"customer_notified"`
	CreatedAt          time.Time `json:"created_at"`
}

// OrderWithItems is the read model handed to the invoice/staff views.
type OrderWithItems struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}
