// Package checkout reconciles payment sessions into durable order and
// pre-order rows. It is the only code path that turns staged cart lines
// into money movements.
package checkout

import (
	"context"
	"fmt"
	"time"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
	"techstore/internal/utils"
)

// SessionStore is the slice of the Redis store the checkout flow needs.
type SessionStore interface {
	Create(ctx context.Context, session *models.PaymentSession) error
	Update(ctx context.Context, session *models.PaymentSession) error
	Get(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, mutate func(*models.PaymentSession)) (*models.PaymentSession, error)
}

// QRGenerator renders the scannable payment code for a session.
type QRGenerator interface {
	Generate(amount float64, reference string, expiresAt time.Time) (*models.QRPayload, error)
}

// OrderService is the slice of the order aggregate used during
// reconciliation.
type OrderService interface {
	Create(ctx context.Context, customerID int64, items []models.OrderLine, status models.OrderStatus, paymentMethod string) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, newStatus string) error
	PendingOrderFor(ctx context.Context, customerID int64) (*models.Order, error)
	ClearPendingOrders(ctx context.Context, customerID int64) (int, error)
}

// PreOrderService records deposit payments against existing pre-orders.
type PreOrderService interface {
	AddDepositPayment(ctx context.Context, preOrderID int64, amount float64, method, sessionID, notes string) (*models.PreOrderPayment, error)
}

// CustomerResolver maps a checkout-form snapshot to a durable customer.
type CustomerResolver interface {
	Resolve(ctx context.Context, info models.CustomerInfo) (*models.Customer, error)
}

type Service struct {
	Sessions  SessionStore
	QR        QRGenerator
	Orders    OrderService
	PreOrders PreOrderService
	Customers CustomerResolver
	Log       *logger.Logger
}

func NewService(sessions SessionStore, qr QRGenerator, orders OrderService, preOrders PreOrderService, customers CustomerResolver, log *logger.Logger) *Service {
	return &Service{
		Sessions:  sessions,
		QR:        qr,
		Orders:    orders,
		PreOrders: preOrders,
		Customers: customers,
		Log:       log,
	}
}

// Result summarizes one reconciled checkout.
type Result struct {
	SessionID        string                   `json:"session_id,omitempty"`
	OrderID          *int64                   `json:"order_id,omitempty"`
	PreOrderPayments []models.PreOrderPayment `json:"preorder_payments,omitempty"`
	TotalCharged     float64                  `json:"total_charged"`
	PaymentMethod    string                   `json:"payment_method"`
}

// split partitions staged lines into pre-order deposit lines and regular
// purchase lines and sums each side. A pre-order line's charge is its price
// as staged (the deposit being paid now), never price·quantity.
func split(items []models.CartLine) (preorder, regular []models.CartLine, preorderTotal, regularTotal float64) {
	for _, line := range items {
		if line.IsPreorder() {
			preorder = append(preorder, line)
			preorderTotal += line.Price
		} else {
			regular = append(regular, line)
			regularTotal += line.Price * float64(line.Quantity)
		}
	}
	return preorder, regular, preorderTotal, regularTotal
}

// CreatePaymentSession stages a checkout attempt and returns the session
// with its payment QR. Nothing durable is written: sessions for carts that
// are never paid simply expire.
//
// The session type is derived from the staged lines: pre-order deposit
// lines only, regular lines only, or both (mixed cart). A regular checkout
// for a known customer with an open cart is anchored to that Pending order
// so confirmation completes it instead of creating a duplicate.
func (s *Service) CreatePaymentSession(ctx context.Context, customerID int64, items []models.CartLine, info models.CustomerInfo) (*models.PaymentSession, error) {
	if len(items) == 0 {
		return nil, errs.Validation("cannot create a payment session for an empty cart")
	}
	for _, line := range items {
		if line.Price <= 0 {
			return nil, errs.Validation("invalid price %.2f in cart line", line.Price)
		}
		if !line.IsPreorder() && line.Quantity <= 0 {
			return nil, errs.Validation("invalid quantity %d for product %d", line.Quantity, line.ProductID)
		}
		if line.IsPreorder() && line.PreorderID == 0 {
			return nil, errs.Validation("pre-order payment line is missing its pre-order id")
		}
	}

	preorderLines, regularLines, preorderTotal, regularTotal := split(items)

	session := &models.PaymentSession{
		CartItems:     items,
		PreorderItems: preorderLines,
		RegularItems:  regularLines,
		CustomerInfo:  info,
		TotalAmount:   preorderTotal + regularTotal,
		PreorderTotal: preorderTotal,
		RegularTotal:  regularTotal,
	}

	var refPrefix string
	switch {
	case len(preorderLines) > 0 && len(regularLines) > 0:
		session.SessionType = models.PaymentMixed
		refPrefix = "MIXED_CART"
	case len(preorderLines) > 0:
		session.SessionType = models.PaymentPreorder
		refPrefix = "PREORDER"
	default:
		session.SessionType = models.PaymentRegular
		refPrefix = "ORDER"
	}

	var reference string
	if session.SessionType == models.PaymentRegular && customerID != 0 {
		if pending, err := s.Orders.PendingOrderFor(ctx, customerID); err == nil {
			session.OrderID = &pending.ID
			reference = utils.OrderReference(pending.ID)
		}
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	if reference == "" {
		reference = utils.SessionReference(refPrefix, session.SessionID)
	}

	payload, err := s.QR.Generate(session.TotalAmount, reference, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	session.QR = payload
	if err := s.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.LogPayment("CREATE", session.SessionID,
			fmt.Sprintf("%s session for $%.2f (%s)", session.SessionType, session.TotalAmount, reference))
	}
	return session, nil
}

// ConfirmPayment reconciles a paid session into durable rows:
//
//  1. the session must be pending (or completed, for webhook-then-confirm
//     races); expired, cancelled and already-processed sessions are refused
//  2. the checkout snapshot is resolved to a customer, creating one if
//     needed
//  3. each pre-order deposit line is recorded against its pre-order; a
//     rejected deposit aborts the whole confirmation
//  4. regular lines become a Completed order, or complete the anchored
//     Pending order when the session holds one
//  5. leftover Pending orders for the customer are cancelled so abandoned
//     carts release their stock
//  6. the session is marked processed, pointing at the rows it produced
func (s *Service) ConfirmPayment(ctx context.Context, sessionID, paymentMethod string) (*Result, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionPending && session.Status != models.SessionCompleted {
		return nil, errs.InvalidState("confirm payment", string(session.Status))
	}
	if paymentMethod == "" {
		paymentMethod = "QR Payment"
	}

	// Record receipt of the payment before reconciling, so a crash
	// mid-protocol leaves a session that reads as paid-but-unreconciled
	// instead of untouched.
	if session.Status == models.SessionPending {
		if _, err := s.Sessions.UpdateStatus(ctx, sessionID, models.SessionCompleted, nil); err != nil {
			return nil, err
		}
	}

	customer, err := s.Customers.Resolve(ctx, session.CustomerInfo)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SessionID:     sessionID,
		TotalCharged:  session.TotalAmount,
		PaymentMethod: paymentMethod,
	}

	for _, line := range session.PreorderItems {
		payment, err := s.PreOrders.AddDepositPayment(ctx, line.PreorderID, line.Price, paymentMethod, sessionID,
			fmt.Sprintf("checkout session %s", sessionID))
		if err != nil {
			return nil, fmt.Errorf("pre-order %d payment rejected: %w", line.PreorderID, err)
		}
		result.PreOrderPayments = append(result.PreOrderPayments, *payment)
	}

	if len(session.RegularItems) > 0 {
		var orderID int64
		if session.OrderID != nil {
			orderID = *session.OrderID
			if err := s.Orders.UpdateStatus(ctx, orderID, string(models.OrderCompleted)); err != nil {
				return nil, err
			}
		} else {
			lines := make([]models.OrderLine, 0, len(session.RegularItems))
			for _, line := range session.RegularItems {
				lines = append(lines, models.OrderLine{
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
					Price:     line.Price,
				})
			}
			orderID, err = s.Orders.Create(ctx, customer.ID, lines, models.OrderCompleted, paymentMethod)
			if err != nil {
				return nil, err
			}
		}
		result.OrderID = &orderID
	}

	if _, err := s.Orders.ClearPendingOrders(ctx, customer.ID); err != nil && s.Log != nil {
		s.Log.Error("CHECKOUT", "Failed to clear leftover pending orders: "+err.Error())
	}

	if _, err := s.Sessions.UpdateStatus(ctx, sessionID, models.SessionProcessed, func(ps *models.PaymentSession) {
		ps.OrderID = result.OrderID
		for _, payment := range result.PreOrderPayments {
			ps.PreOrderIDs = append(ps.PreOrderIDs, payment.PreOrderID)
		}
	}); err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.LogPayment("CONFIRM", sessionID,
			fmt.Sprintf("reconciled $%.2f via %s (%d pre-order payment(s))",
				session.TotalAmount, paymentMethod, len(result.PreOrderPayments)))
	}
	return result, nil
}

// ProcessCashPayment runs the same reconciliation as ConfirmPayment for an
// at-the-counter cash sale, without ever staging a session.
func (s *Service) ProcessCashPayment(ctx context.Context, items []models.CartLine, info models.CustomerInfo) (*Result, error) {
	if len(items) == 0 {
		return nil, errs.Validation("cannot process a cash payment for an empty cart")
	}

	customer, err := s.Customers.Resolve(ctx, info)
	if err != nil {
		return nil, err
	}

	preorderLines, regularLines, preorderTotal, regularTotal := split(items)
	result := &Result{
		TotalCharged:  preorderTotal + regularTotal,
		PaymentMethod: "Cash",
	}

	for _, line := range preorderLines {
		payment, err := s.PreOrders.AddDepositPayment(ctx, line.PreorderID, line.Price, "Cash", "", "cash payment at counter")
		if err != nil {
			return nil, fmt.Errorf("pre-order %d payment rejected: %w", line.PreorderID, err)
		}
		result.PreOrderPayments = append(result.PreOrderPayments, *payment)
	}

	if len(regularLines) > 0 {
		lines := make([]models.OrderLine, 0, len(regularLines))
		for _, line := range regularLines {
			lines = append(lines, models.OrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Price,
			})
		}
		orderID, err := s.Orders.Create(ctx, customer.ID, lines, models.OrderCompleted, "Cash")
		if err != nil {
			return nil, err
		}
		result.OrderID = &orderID
	}

	if _, err := s.Orders.ClearPendingOrders(ctx, customer.ID); err != nil && s.Log != nil {
		s.Log.Error("CHECKOUT", "Failed to clear leftover pending orders: "+err.Error())
	}

	if s.Log != nil {
		s.Log.LogPayment("CASH", fmt.Sprint(customer.ID),
			fmt.Sprintf("processed $%.2f cash sale", result.TotalCharged))
	}
	return result, nil
}

// CancelPayment abandons a pending session. Processed sessions are
// immutable history and cannot be cancelled. A session anchored to an
// existing order flips that order to Cancelled so its stock comes back.
func (s *Service) CancelPayment(ctx context.Context, sessionID string) error {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionPending {
		return errs.InvalidState("cancel payment", string(session.Status))
	}
	_, err = s.Sessions.UpdateStatus(ctx, sessionID, models.SessionCancelled, nil)
	if err != nil {
		return err
	}
	if session.OrderID != nil {
		if err := s.Orders.UpdateStatus(ctx, *session.OrderID, string(models.OrderCancelled)); err != nil && s.Log != nil {
			s.Log.Warn("PAYMENT", fmt.Sprintf("session %s cancelled but order %d not released: %v", sessionID, *session.OrderID, err))
		}
	}
	if s.Log != nil {
		s.Log.LogPayment("CANCEL", sessionID, "session cancelled by customer")
	}
	return nil
}

// Status reports the effective session state for the storefront's polling
// loop.
func (s *Service) Status(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	return s.Sessions.Get(ctx, sessionID)
}
