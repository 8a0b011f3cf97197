// Package preorder manages reservations for out-of-stock products and their
// append-only payment ledger. A pre-order never holds stock; it converts to
// a regular Completed order at pickup.
package preorder

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
	"techstore/internal/preorder/db"
)

// OrderConverter is the slice of the order service that pickup conversion
// needs: create the Completed order and stamp the back-reference.
type OrderConverter interface {
	Create(ctx context.Context, customerID int64, items []models.OrderLine, status models.OrderStatus, paymentMethod string) (int64, error)
	LinkPreOrder(ctx context.Context, orderID, preOrderID int64) error
}

type Notifier interface {
	Notify(ctx context.Context, customerID int64, message, notificationType string, relatedID int64) error
}

type EventPublisher interface {
	PublishPreOrderEvent(event string, preOrder models.PreOrder) error
}

type Service struct {
	Bun      *bun.DB
	DB       *db.DB
	Orders   OrderConverter
	Notifier Notifier
	Events   EventPublisher
	Log      *logger.Logger
}

func NewService(bunDB *bun.DB, orders OrderConverter, notifier Notifier, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		Bun:      bunDB,
		DB:       &db.DB{Bun: bunDB},
		Orders:   orders,
		Notifier: notifier,
		Events:   events,
		Log:      log,
	}
}

// Create opens a pre-order in status pending. The product must be flagged
// for pre-ordering; stock is not touched.
func (s *Service) Create(ctx context.Context, customerID, productID int64, quantity int, expectedPrice float64, notes string, expectedDate *time.Time) (*models.PreOrder, error) {
	if quantity <= 0 {
		return nil, errs.Validation("quantity must be positive, got %d", quantity)
	}
	if expectedPrice <= 0 {
		return nil, errs.Validation("expected price must be positive, got %.2f", expectedPrice)
	}

	product, err := s.DB.ProductByID(ctx, s.Bun, productID)
	if err != nil {
		return nil, err
	}
	if !product.AllowPreorder {
		return nil, errs.Validation("product %q does not accept pre-orders", product.Name)
	}

	po := &models.PreOrder{
		CustomerID:               customerID,
		ProductID:                productID,
		Quantity:                 quantity,
		ExpectedPrice:            expectedPrice,
		Status:                   models.PreOrderPending,
		ExpectedAvailabilityDate: expectedDate,
		Notes:                    notes,
		CreatedDate:              time.Now(),
	}
	if err := s.DB.Insert(ctx, s.Bun, po); err != nil {
		return nil, fmt.Errorf("insert pre-order: %w", err)
	}

	if s.Log != nil {
		s.Log.LogPreOrder("CREATE", fmt.Sprint(po.ID),
			fmt.Sprintf("%s x%d at $%.2f", product.Name, quantity, expectedPrice))
	}
	s.publish("preorder_created", *po)
	return po, nil
}

// Get returns a pre-order with deposit_amount freshly recomputed from the
// ledger, so a stale cache can never reach a caller.
func (s *Service) Get(ctx context.Context, preOrderID int64) (*models.PreOrder, error) {
	po, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID)
	if err != nil {
		return nil, err
	}
	paid, err := s.DB.CompletedTotal(ctx, s.Bun, preOrderID)
	if err != nil {
		return nil, err
	}
	po.DepositAmount = paid
	return po, nil
}

// AddDepositPayment appends one payment to the ledger and advances the
// lifecycle, all in one transaction.
//
// The payment type is derived from the ledger state before the new row: a
// first payment covering the whole price is "full", any other first payment
// is "deposit", and every later payment is "balance". The running total is
// then recomputed as the sum of completed ledger rows rather than
// incremented, so a retried request can never double-count. Payments that
// would push the total strictly past the full price are rejected; paying to
// exactly the full price is allowed.
func (s *Service) AddDepositPayment(ctx context.Context, preOrderID int64, amount float64, method, sessionID, notes string) (*models.PreOrderPayment, error) {
	if amount <= 0 {
		return nil, errs.Validation("payment amount must be positive, got %.2f", amount)
	}

	var payment models.PreOrderPayment
	var updated models.PreOrder

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		po, err := s.DB.PreOrderByID(ctx, tx, preOrderID)
		if err != nil {
			return err
		}
		if po.Status == models.PreOrderCompleted || po.Status == models.PreOrderCancelled {
			return errs.InvalidState("add payment", string(po.Status))
		}

		currentPaid, err := s.DB.CompletedTotal(ctx, tx, preOrderID)
		if err != nil {
			return err
		}

		total := po.TotalPrice()
		if currentPaid+amount > total {
			return errs.Validation("payment of $%.2f exceeds remaining balance of $%.2f",
				amount, total-currentPaid)
		}

		var paymentType models.PreOrderPaymentType
		switch {
		case currentPaid == 0 && amount >= total:
			paymentType = models.PaymentFull
		case currentPaid == 0:
			paymentType = models.PaymentDeposit
		default:
			paymentType = models.PaymentBalance
		}

		payment = models.PreOrderPayment{
			PreOrderID:    preOrderID,
			PaymentAmount: amount,
			PaymentType:   paymentType,
			PaymentMethod: method,
			PaymentDate:   time.Now(),
			PaymentStatus: "completed",
			SessionID:     sessionID,
			Notes:         notes,
		}
		if err := s.DB.InsertPayment(ctx, tx, &payment); err != nil {
			return fmt.Errorf("insert pre-order payment: %w", err)
		}

		newTotal, err := s.DB.CompletedTotal(ctx, tx, preOrderID)
		if err != nil {
			return err
		}

		// Advance, never regress: pending moves to confirmed on the first
		// payment, confirmed moves to partially_paid on the next, later
		// states are left alone.
		newStatus := po.Status
		switch po.Status {
		case models.PreOrderPending:
			newStatus = models.PreOrderConfirmed
		case models.PreOrderConfirmed:
			newStatus = models.PreOrderPartiallyPaid
		}

		if err := s.DB.SetDepositTotal(ctx, tx, preOrderID, newTotal, method, newStatus); err != nil {
			return err
		}

		updated = *po
		updated.DepositAmount = newTotal
		updated.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.LogPreOrder("PAYMENT", fmt.Sprint(preOrderID),
			fmt.Sprintf("%s payment of $%.2f via %s, paid to date $%.2f", payment.PaymentType, amount, method, updated.DepositAmount))
	}
	s.notify(ctx, updated.CustomerID,
		fmt.Sprintf("Payment of $%.2f received for your pre-order #%d. Remaining balance: $%.2f",
			amount, preOrderID, updated.RemainingBalance()),
		"preorder_payment", preOrderID)
	s.publish("preorder_payment_added", updated)
	return &payment, nil
}

// MarkReadyForPickup records stock arrival: only pre-orders in confirmed or
// partially_paid can become ready_for_pickup.
func (s *Service) MarkReadyForPickup(ctx context.Context, preOrderID int64) error {
	var customerID int64
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		po, err := s.DB.PreOrderByID(ctx, tx, preOrderID)
		if err != nil {
			return err
		}
		if po.Status != models.PreOrderConfirmed && po.Status != models.PreOrderPartiallyPaid {
			return errs.InvalidState("mark ready for pickup", string(po.Status))
		}
		customerID = po.CustomerID

		if err := s.DB.UpdateStatus(ctx, tx, preOrderID, models.PreOrderReadyForPickup); err != nil {
			return err
		}
		return s.DB.SetActualAvailability(ctx, tx, preOrderID, time.Now())
	})
	if err != nil {
		return err
	}

	if s.Log != nil {
		s.Log.LogPreOrder("READY", fmt.Sprint(preOrderID), "stock arrived, ready for pickup")
	}
	s.notify(ctx, customerID,
		fmt.Sprintf("Great news! Your pre-order #%d has arrived and is ready for pickup.", preOrderID),
		"preorder_ready", preOrderID)
	return nil
}

// Complete converts a ready_for_pickup pre-order into a regular Completed
// order. Any remaining balance is collected as a final ledger payment with
// the pickup payment method, then the order is created (decrementing the
// freshly arrived stock) and back-linked via orders.pre_order_id.
func (s *Service) Complete(ctx context.Context, preOrderID int64, finalPaymentMethod string) (int64, error) {
	po, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID)
	if err != nil {
		return 0, err
	}
	if po.Status != models.PreOrderReadyForPickup {
		return 0, errs.InvalidState("complete pre-order", string(po.Status))
	}

	paid, err := s.DB.CompletedTotal(ctx, s.Bun, preOrderID)
	if err != nil {
		return 0, err
	}
	if remaining := po.TotalPrice() - paid; remaining > 0 {
		if _, err := s.AddDepositPayment(ctx, preOrderID, remaining, finalPaymentMethod, "",
			"final balance collected at pickup"); err != nil {
			return 0, err
		}
	}

	orderID, err := s.Orders.Create(ctx, po.CustomerID, []models.OrderLine{{
		ProductID: po.ProductID,
		Quantity:  po.Quantity,
		Price:     po.ExpectedPrice,
	}}, models.OrderCompleted, finalPaymentMethod)
	if err != nil {
		return 0, err
	}
	if err := s.Orders.LinkPreOrder(ctx, orderID, preOrderID); err != nil {
		return 0, err
	}
	if err := s.DB.UpdateStatus(ctx, s.Bun, preOrderID, models.PreOrderCompleted); err != nil {
		return 0, err
	}

	if s.Log != nil {
		s.Log.LogPreOrder("COMPLETE", fmt.Sprint(preOrderID),
			fmt.Sprintf("converted to order %d", orderID))
	}
	s.notify(ctx, po.CustomerID,
		fmt.Sprintf("Your pre-order #%d is complete. Thank you for your purchase!", preOrderID),
		"preorder_completed", preOrderID)
	po.Status = models.PreOrderCompleted
	s.publish("preorder_completed", *po)
	return orderID, nil
}

// Cancel moves a pre-order to cancelled and reports any refund obligation.
// Completed pre-orders cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, preOrderID int64, reason string) (*models.RefundInfo, error) {
	po, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID)
	if err != nil {
		return nil, err
	}
	if po.Status.Terminal() {
		return nil, errs.InvalidState("cancel pre-order", string(po.Status))
	}

	paid, err := s.DB.CompletedTotal(ctx, s.Bun, preOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.UpdateStatus(ctx, s.Bun, preOrderID, models.PreOrderCancelled); err != nil {
		return nil, err
	}

	var refund *models.RefundInfo
	if paid > 0 {
		refund = &models.RefundInfo{Amount: paid, PaymentMethod: po.DepositPaymentMethod}
		if s.Log != nil {
			s.Log.Warn("PREORDER",
				fmt.Sprintf("Pre-order %d cancelled with $%.2f paid; refund owed via %s", preOrderID, paid, po.DepositPaymentMethod))
		}
	}

	if s.Log != nil {
		s.Log.LogPreOrder("CANCEL", fmt.Sprint(preOrderID), "reason: "+reason)
	}
	s.notify(ctx, po.CustomerID,
		fmt.Sprintf("Your pre-order #%d has been cancelled. Reason: %s", preOrderID, reason),
		"preorder_cancelled", preOrderID)
	po.Status = models.PreOrderCancelled
	s.publish("preorder_cancelled", *po)
	return refund, nil
}

// Delete permanently removes a pre-order and its ledger. Items already
// ready for pickup must be completed or cancelled instead; deleting one
// with money on it is allowed but logged loudly since the ledger goes too.
func (s *Service) Delete(ctx context.Context, preOrderID int64) error {
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		po, err := s.DB.PreOrderByID(ctx, tx, preOrderID)
		if err != nil {
			return err
		}
		if po.Status == models.PreOrderReadyForPickup {
			return errs.InvalidState("delete pre-order", string(po.Status))
		}

		paid, err := s.DB.CompletedTotal(ctx, tx, preOrderID)
		if err != nil {
			return err
		}
		if paid > 0 && s.Log != nil {
			s.Log.Warn("PREORDER",
				fmt.Sprintf("Deleting pre-order %d with $%.2f in recorded payments", preOrderID, paid))
		}

		if _, err := tx.NewDelete().
			Model((*models.PreOrderPayment)(nil)).
			Where("pre_order_id = ?", preOrderID).
			Exec(ctx); err != nil {
			return err
		}
		return s.DB.Delete(ctx, tx, preOrderID)
	})
}

// UpdateStatus applies a staff-driven status change, validated against the
// transition table.
func (s *Service) UpdateStatus(ctx context.Context, preOrderID int64, newStatus string) error {
	target, err := models.ParsePreOrderStatus(newStatus)
	if err != nil {
		return errs.Validation("%v", err)
	}

	po, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID)
	if err != nil {
		return err
	}
	if po.Status == target {
		return nil
	}
	if !po.Status.CanTransition(target) {
		return errs.InvalidState(fmt.Sprintf("transition to %s", target), string(po.Status))
	}
	return s.DB.UpdateStatus(ctx, s.Bun, preOrderID, target)
}

// UpdateAvailabilityDate revises the expected arrival estimate and tells
// the customer.
func (s *Service) UpdateAvailabilityDate(ctx context.Context, preOrderID int64, expected *time.Time) error {
	po, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID)
	if err != nil {
		return err
	}
	if po.Status.Terminal() {
		return errs.InvalidState("update availability date", string(po.Status))
	}
	if err := s.DB.SetAvailabilityDate(ctx, s.Bun, preOrderID, expected); err != nil {
		return err
	}

	if expected != nil {
		s.notify(ctx, po.CustomerID,
			fmt.Sprintf("The expected availability date for your pre-order #%d is now %s.",
				preOrderID, expected.Format("January 2, 2006")),
			"preorder_update", preOrderID)
	}
	return nil
}

func (s *Service) Payments(ctx context.Context, preOrderID int64) ([]models.PreOrderPayment, error) {
	if _, err := s.DB.PreOrderByID(ctx, s.Bun, preOrderID); err != nil {
		return nil, err
	}
	return s.DB.PaymentsFor(ctx, s.Bun, preOrderID)
}

func (s *Service) TotalPaid(ctx context.Context, preOrderID int64) (float64, error) {
	return s.DB.CompletedTotal(ctx, s.Bun, preOrderID)
}

func (s *Service) ByCustomer(ctx context.Context, customerID int64) ([]models.PreOrder, error) {
	return s.DB.ByCustomer(ctx, s.Bun, customerID)
}

func (s *Service) ByStatus(ctx context.Context, status string) ([]models.PreOrder, error) {
	parsed, err := models.ParsePreOrderStatus(status)
	if err != nil {
		return nil, errs.Validation("%v", err)
	}
	return s.DB.ByStatus(ctx, s.Bun, parsed)
}

func (s *Service) Active(ctx context.Context) ([]models.PreOrder, error) {
	return s.DB.Active(ctx, s.Bun)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]models.PreOrder, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.DB.Recent(ctx, s.Bun, limit)
}

func (s *Service) Stats(ctx context.Context) (*models.PreOrderStats, error) {
	return s.DB.Stats(ctx, s.Bun)
}

func (s *Service) notify(ctx context.Context, customerID int64, message, notificationType string, relatedID int64) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, customerID, message, notificationType, relatedID); err != nil && s.Log != nil {
		s.Log.Error("NOTIFY", "Failed to send customer notification: "+err.Error())
	}
}

func (s *Service) publish(event string, po models.PreOrder) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishPreOrderEvent(event, po); err != nil && s.Log != nil {
		s.Log.Error("KAFKA", "Publish pre-order event failed: "+err.Error())
	}
}
