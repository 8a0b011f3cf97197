// Package notification writes and reads the customer notification feed.
// Writers treat delivery as best-effort: callers log failures and move on.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
)

type Service struct {
	Bun *bun.DB
	Log *logger.Logger
}

func NewService(bunDB *bun.DB, log *logger.Logger) *Service {
	return &Service{Bun: bunDB, Log: log}
}

// Notify appends one notification row.
func (s *Service) Notify(ctx context.Context, customerID int64, message, notificationType string, relatedID int64) error {
	n := &models.Notification{
		CustomerID:  customerID,
		Message:     message,
		Type:        notificationType,
		CreatedDate: time.Now(),
	}
	if relatedID != 0 {
		n.RelatedID = &relatedID
	}
	if _, err := s.Bun.NewInsert().Model(n).Exec(ctx); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// For lists a customer's notifications, newest first. unreadOnly narrows to
// the badge-count view.
func (s *Service) For(ctx context.Context, customerID int64, unreadOnly bool) ([]models.Notification, error) {
	q := s.Bun.NewSelect().
		Model((*models.Notification)(nil)).
		Where("customer_id = ?", customerID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	err := q.Order("created_date DESC").Scan(ctx, &notifications)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags one notification, scoped to its owner.
func (s *Service) MarkRead(ctx context.Context, customerID, notificationID int64) error {
	res, err := s.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = ?", true).
		Where("id = ? AND customer_id = ?", notificationID, customerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NotFound("notification", notificationID)
	}
	return nil
}

// MarkAllRead clears the customer's badge.
func (s *Service) MarkAllRead(ctx context.Context, customerID int64) (int64, error) {
	res, err := s.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("is_read = ?", true).
		Where("customer_id = ? AND is_read = ?", customerID, false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear deletes the customer's notifications outright.
func (s *Service) Clear(ctx context.Context, customerID int64) (int64, error) {
	res, err := s.Bun.NewDelete().
		Model((*models.Notification)(nil)).
		Where("customer_id = ?", customerID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
