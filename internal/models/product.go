package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Description   string    `bun:"description,nullzero" json:"description,omitempty"`
	Price         float64   `bun:"price,notnull" json:"price"`
	OriginalPrice *float64  `bun:"original_price,nullzero" json:"original_price,omitempty"`
	Stock         int       `bun:"stock,notnull,default:0" json:"stock"`
	AllowPreorder bool      `bun:"allow_preorder,notnull,default:false" json:"allow_preorder"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// InventoryChange is one append-only audit row: negative deltas for sales,
// positive for restocks and cancellations.
type InventoryChange struct {
	bun.BaseModel `bun:"table:inventory"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	ProductID  int64     `bun:"product_id,notnull" json:"product_id"`
	Changes    int       `bun:"changes,notnull" json:"changes"`
	ChangeDate time.Time `bun:"change_date,nullzero,notnull,default:current_timestamp" json:"change_date"`
}
