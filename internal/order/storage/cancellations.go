// Package storage holds the raw-SQL audit store for staff item
// cancellations. The log is best-effort: a write failure is reported to the
// caller, who logs it and proceeds with the cancellation.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"techstore/internal/config"
	"techstore/internal/logger"
	"techstore/internal/models"
)

type CancellationStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewCancellationStoreWithDB wraps an existing connection, used by the main
// wiring so the audit log shares the primary pool.
func NewCancellationStoreWithDB(db *sql.DB, log *logger.Logger) (*CancellationStore, error) {
	store := &CancellationStore{db: db, log: log}
	if err := store.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize cancellation audit table: %w", err)
	}
	return store, nil
}

// NewCancellationStore opens its own PostgreSQL connection.
func NewCancellationStore(cfg config.DatabaseConfig, log *logger.Logger) (*CancellationStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewCancellationStoreWithDB(db, log)
}

func (s *CancellationStore) initTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS order_item_cancellations (
        id SERIAL PRIMARY KEY,
        order_id BIGINT NOT NULL,
        order_item_id BIGINT NOT NULL,
        product_id BIGINT NOT NULL,
        cancelled_quantity INT NOT NULL,
        original_quantity INT NOT NULL,
        reason VARCHAR(255),
        cancelled_by_staff_id BIGINT,
        notes TEXT,
        status VARCHAR(50) NOT NULL DEFAULT 'completed',
        customer_notified BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create order_item_cancellations table: %w", err)
	}

	if _, err := s.db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_item_cancellations_order_id ON order_item_cancellations(order_id);",
	); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Record appends one audit row.
func (s *CancellationStore) Record(c *models.OrderItemCancellation) error {
	query := `
    INSERT INTO order_item_cancellations (
        order_id, order_item_id, product_id, cancelled_quantity, original_quantity,
        reason, cancelled_by_staff_id, notes, status, customer_notified
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := s.db.Exec(query,
		c.OrderID, c.OrderItemID, c.ProductID, c.CancelledQuantity, c.OriginalQuantity,
		c.Reason, c.CancelledByStaffID, c.Notes, c.Status, c.CustomerNotified,
	)
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}

	if s.log != nil {
		s.log.LogDatabase("INSERT", "order_item_cancellations",
			fmt.Sprintf("Logged cancellation of item %d (order %d)", c.OrderItemID, c.OrderID))
	}
	return nil
}

// ByOrder lists the audit trail for one order, newest first.
func (s *CancellationStore) ByOrder(orderID int64) ([]*models.OrderItemCancellation, error) {
	query := `
    SELECT id, order_id, order_item_id, product_id, cancelled_quantity, original_quantity,
           reason, cancelled_by_staff_id, notes, status, customer_notified, created_at
    FROM order_item_cancellations
    WHERE order_id = $1
    ORDER BY created_at DESC
    `
	rows, err := s.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellations: %w", err)
	}
	defer rows.Close()

	var result []*models.OrderItemCancellation
	for rows.Next() {
		c := &models.OrderItemCancellation{}
		if err := rows.Scan(
			&c.ID, &c.OrderID, &c.OrderItemID, &c.ProductID, &c.CancelledQuantity, &c.OriginalQuantity,
			&c.Reason, &c.CancelledByStaffID, &c.Notes, &c.Status, &c.CustomerNotified, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cancellation: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (s *CancellationStore) Close() error {
	return s.db.Close()
}
