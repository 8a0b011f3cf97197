package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns the opaque payment-session id.
func NewSessionID() string {
	return uuid.NewString()
}

// OrderReference builds the payment reference for a regular-order checkout,
// e.g. ORDER_42.
func OrderReference(orderID int64) string {
	return fmt.Sprintf("ORDER_%d", orderID)
}

// SessionReference builds the payment reference for cart-level checkouts
// that have no durable order yet, e.g. MIXED_CART_1a2b3c4d.
func SessionReference(prefix, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), short)
}

// TransactionReference is a timestamped fallback reference.
func TransactionReference() string {
	return fmt.Sprintf("TRX%s", time.Now().Format("20060102150405"))
}
