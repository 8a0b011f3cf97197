package models

import "time"

// CartLine is one staged checkout line as sent by the storefront:
// {id, quantity, price, type?, preorder_id?}. Lines with Type == "preorder"
// carry a deposit payment against an existing pre-order instead of a
// product purchase.
type CartLine struct {
	ProductID  int64   `json:"id"`
	Name       string  `json:"name,omitempty"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Type       string  `json:"type,omitempty"`
	PreorderID int64   `json:"preorder_id,omitempty"`
}

// IsPreorder reports whether the line is a pre-order deposit line.
func (l CartLine) IsPreorder() bool { return l.Type == "preorder" }

// QRPayload is what the payment-code generator returns. Only the reference
// id is consumed for bookkeeping; the image data passes through to the
// client untouched.
type QRPayload struct {
	QRImageData string    `json:"qr_image_data"`
	ReferenceID string    `json:"reference_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PaymentSession stages one checkout attempt behind an opaque id. It has no
// long-term identity: once processed it is reconciled into order/pre-order
// rows and eventually garbage-collected from the session store.
type PaymentSession struct {
	SessionID     string        `json:"session_id"`
	SessionType   PaymentType   `json:"session_type"`
	Status        SessionStatus `json:"status"`
	CartItems     []CartLine    `json:"cart_items,omitempty"`
	PreorderItems []CartLine    `json:"preorder_items,omitempty"`
	RegularItems  []CartLine    `json:"regular_items,omitempty"`
	CustomerInfo  CustomerInfo  `json:"customer_info"`
	TotalAmount   float64       `json:"total_amount"`
	PreorderTotal float64       `json:"preorder_total,omitempty"`
	RegularTotal  float64       `json:"regular_total,omitempty"`
	OrderID       *int64        `json:"order_id,omitempty"`
	PreOrderIDs   []int64       `json:"pre_order_ids,omitempty"`
	QR            *QRPayload    `json:"qr_data,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// Expired reports whether the logical payment window has passed. This is
// advisory: it changes how the session is reported, nothing actively revokes
// an in-flight confirmation.
func (s *PaymentSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
