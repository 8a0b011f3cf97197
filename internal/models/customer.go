package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	FirstName string    `bun:"first_name,notnull" json:"first_name"`
	LastName  string    `bun:"last_name,nullzero" json:"last_name"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Password  string    `bun:"password,notnull" json:"-"`
	Phone     string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Address   string    `bun:"address,nullzero" json:"address,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// CustomerInfo is the checkout-form snapshot carried inside a payment
// session. It is resolved to (or creates) a durable Customer row during
// confirmation.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	CustomerID  int64     `bun:"customer_id,notnull" json:"customer_id"`
	Message     string    `bun:"message,notnull" json:"message"`
	Type        string    `bun:"notification_type,notnull" json:"type"`
	RelatedID   *int64    `bun:"related_id,nullzero" json:"related_id,omitempty"`
	IsRead      bool      `bun:"is_read,notnull,default:false" json:"is_read"`
	CreatedDate time.Time `bun:"created_date,nullzero,notnull,default:current_timestamp" json:"created_date"`
}
