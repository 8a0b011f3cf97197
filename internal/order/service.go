package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"techstore/internal/errs"
	"techstore/internal/inventory"
	"techstore/internal/logger"
	"techstore/internal/models"
	"techstore/internal/order/db"
)

// CancellationLog receives best-effort audit rows for staff item
// cancellations. A failed write is logged and never blocks the
// cancellation.
type CancellationLog interface {
	Record(c *models.OrderItemCancellation) error
}

// Notifier delivers fire-and-forget customer notifications.
type Notifier interface {
	Notify(ctx context.Context, customerID int64, message, notificationType string, relatedID int64) error
}

// EventPublisher streams order lifecycle events. Publish failures are logged
// and swallowed; events carry no state the database does not already hold.
type EventPublisher interface {
	PublishOrderCreated(order models.Order) error
	PublishOrderCancelled(order models.Order) error
}

type Service struct {
	Bun           *bun.DB
	DB            *db.DB
	Ledger        *inventory.Ledger
	Cancellations CancellationLog
	Notifier      Notifier
	Events        EventPublisher
	Log           *logger.Logger
}

func NewService(bunDB *bun.DB, ledger *inventory.Ledger, cancellations CancellationLog, notifier Notifier, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		Bun:           bunDB,
		DB:            &db.DB{Bun: bunDB},
		Ledger:        ledger,
		Cancellations: cancellations,
		Notifier:      notifier,
		Events:        events,
		Log:           log,
	}
}

// Create inserts an order with its items, decrements stock per item and sets
// total_amount = Σ(qty·price), all in one transaction. Stock is verified for
// every line before anything is written: if any line exceeds current stock
// the call fails naming that product and no partial order is created.
func (s *Service) Create(ctx context.Context, customerID int64, items []models.OrderLine, status models.OrderStatus, paymentMethod string) (int64, error) {
	if len(items) == 0 {
		return 0, errs.Validation("order must contain at least one item")
	}
	for _, line := range items {
		if line.Quantity <= 0 {
			return 0, errs.Validation("invalid quantity %d for product %d", line.Quantity, line.ProductID)
		}
		if line.Price < 0 {
			return 0, errs.Validation("invalid price %.2f for product %d", line.Price, line.ProductID)
		}
	}

	var created models.Order
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Pre-check across all items before mutating any.
		for _, line := range items {
			product, err := s.DB.ProductByID(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < line.Quantity {
				return &errs.InsufficientStockError{
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   line.Quantity,
				}
			}
		}

		order := &models.Order{
			CustomerID:    customerID,
			OrderDate:     time.Now(),
			Status:        status,
			PaymentMethod: paymentMethod,
		}
		if err := s.DB.InsertOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		var total float64
		for _, line := range items {
			item := &models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Price,
			}
			if err := s.DB.InsertItem(ctx, tx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if err := s.Ledger.ReduceStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			total += float64(line.Quantity) * line.Price
		}

		if err := s.DB.UpdateOrderTotal(ctx, tx, order.ID, total); err != nil {
			return fmt.Errorf("update order total: %w", err)
		}
		order.TotalAmount = total
		created = *order
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.Log != nil {
		s.Log.LogOrder("CREATE", fmt.Sprint(created.ID),
			fmt.Sprintf("%d items, total $%.2f, status %s", len(items), created.TotalAmount, created.Status))
	}
	if s.Events != nil {
		if err := s.Events.PublishOrderCreated(created); err != nil && s.Log != nil {
			s.Log.Error("KAFKA", "Publish order created failed: "+err.Error())
		}
	}
	return created.ID, nil
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, orderID int64) (*models.OrderWithItems, error) {
	order, err := s.DB.OrderByID(ctx, s.Bun, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.DB.ItemsByOrder(ctx, s.Bun, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithItems{Order: *order, Items: items}, nil
}

// CancelOrder cancels a whole Pending order: restores stock for every item
// and transitions the order to Cancelled. The returned item list feeds the
// customer notification.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string) (*models.CancelOrderResult, error) {
	var result models.CancelOrderResult
	var customerID int64

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.OrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return errs.InvalidState("cancel order", string(order.Status))
		}

		items, err := s.DB.ItemsByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			product, err := s.DB.ProductByID(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if err := s.Ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			result.CancelledItems = append(result.CancelledItems, models.CancelledItem{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
			})
		}

		if err := s.DB.UpdateOrderStatus(ctx, tx, orderID, models.OrderCancelled); err != nil {
			return err
		}
		result.TotalAmount = order.TotalAmount
		customerID = order.CustomerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.LogOrder("CANCEL", fmt.Sprint(orderID), fmt.Sprintf("reason: %s", reason))
	}
	s.notify(ctx, customerID,
		fmt.Sprintf("Your order #%d has been cancelled. Reason: %s", orderID, reason),
		"order_cancelled", orderID)
	if s.Events != nil {
		if err := s.Events.PublishOrderCancelled(models.Order{ID: orderID, CustomerID: customerID, Status: models.OrderCancelled}); err != nil && s.Log != nil {
			s.Log.Error("KAFKA", "Publish order cancelled failed: "+err.Error())
		}
	}
	return &result, nil
}

// CancelOrderItems cancels a subset of a Pending order's items: restores
// each item's stock, deletes the rows and reduces total_amount by the
// cancelled subtotal. When nothing remains the order goes to Cancelled with
// total 0.
func (s *Service) CancelOrderItems(ctx context.Context, orderID int64, itemIDs []int64, reason string) (*models.CancelItemsResult, error) {
	if len(itemIDs) == 0 {
		return nil, errs.Validation("no items selected for cancellation")
	}

	var result models.CancelItemsResult
	var customerID int64

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.OrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return errs.InvalidState("cancel order items", string(order.Status))
		}
		customerID = order.CustomerID

		items, err := s.DB.ItemsByIDs(ctx, tx, orderID, itemIDs)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errs.Validation("no valid items found for cancellation")
		}

		for _, item := range items {
			product, err := s.DB.ProductByID(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if err := s.Ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if err := s.DB.DeleteItem(ctx, tx, item.ID); err != nil {
				return err
			}
			result.RefundAmount += item.Price * float64(item.Quantity)
			result.CancelledItems = append(result.CancelledItems, models.CancelledItem{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Price:       item.Price,
			})
		}

		remaining, err := s.DB.CountItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		result.OrderFullyCancelled = remaining == 0

		if result.OrderFullyCancelled {
			if err := s.DB.UpdateOrderStatus(ctx, tx, orderID, models.OrderCancelled); err != nil {
				return err
			}
			return s.DB.UpdateOrderTotal(ctx, tx, orderID, 0)
		}
		return s.DB.UpdateOrderTotal(ctx, tx, orderID, order.TotalAmount-result.RefundAmount)
	})
	if err != nil {
		return nil, err
	}

	if s.Log != nil {
		s.Log.LogOrder("CANCEL_ITEMS", fmt.Sprint(orderID),
			fmt.Sprintf("%d items, refund $%.2f, fully cancelled: %t", len(result.CancelledItems), result.RefundAmount, result.OrderFullyCancelled))
	}
	s.notify(ctx, customerID,
		fmt.Sprintf("%d item(s) from your order #%d have been cancelled. Refund amount: $%.2f", len(result.CancelledItems), orderID, result.RefundAmount),
		"order_items_cancelled", orderID)
	return &result, nil
}

// CancelSingleItem is the staff "cancel item" path: it writes a best-effort
// audit row to order_item_cancellations before removing the item, restores
// stock, and cancels the order when no items remain.
func (s *Service) CancelSingleItem(ctx context.Context, orderID, productID int64, reason string, staffID int64, notes string) (*models.CancelItemsResult, error) {
	var result models.CancelItemsResult
	var customerID int64
	var productName string

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.OrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return errs.InvalidState("cancel order item", string(order.Status))
		}
		customerID = order.CustomerID

		item, err := s.DB.ItemByProduct(ctx, tx, orderID, productID)
		if err != nil {
			return err
		}
		product, err := s.DB.ProductByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		productName = product.Name

		// Audit before deleting; a logging failure must not block the
		// cancellation.
		if s.Cancellations != nil {
			audit := &models.OrderItemCancellation{
				OrderID:            orderID,
				OrderItemID:        item.ID,
				ProductID:          productID,
				CancelledQuantity:  item.Quantity,
				OriginalQuantity:   item.Quantity,
				Reason:             reason,
				CancelledByStaffID: staffID,
				Notes:              notes,
				Status:             "completed",
				CustomerNotified:   true,
			}
			if err := s.Cancellations.Record(audit); err != nil && s.Log != nil {
				s.Log.Error("DATABASE", "Failed to log item cancellation: "+err.Error())
			}
		}

		if err := s.Ledger.RestoreStock(ctx, tx, productID, item.Quantity); err != nil {
			return err
		}
		if err := s.DB.DeleteItem(ctx, tx, item.ID); err != nil {
			return err
		}
		result.RefundAmount = item.Price * float64(item.Quantity)
		result.CancelledItems = []models.CancelledItem{{
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}}

		remaining, err := s.DB.CountItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		result.OrderFullyCancelled = remaining == 0

		if result.OrderFullyCancelled {
			if err := s.DB.UpdateOrderStatus(ctx, tx, orderID, models.OrderCancelled); err != nil {
				return err
			}
			return s.DB.UpdateOrderTotal(ctx, tx, orderID, 0)
		}
		return s.DB.UpdateOrderTotal(ctx, tx, orderID, order.TotalAmount-result.RefundAmount)
	})
	if err != nil {
		return nil, err
	}

	var message string
	if result.OrderFullyCancelled {
		message = fmt.Sprintf("Your order #%d has been cancelled due to %s.", orderID, reason)
	} else {
		message = fmt.Sprintf("Item '%s' from your order #%d has been cancelled due to %s.", productName, orderID, reason)
	}
	s.notify(ctx, customerID, message, "order_item_cancelled", orderID)
	return &result, nil
}

// CancelItemQuantity cancels part of one item's quantity. Fully cancelling
// the last remaining quantity deletes the order row entirely: a Pending
// order with zero items has no reason to exist.
func (s *Service) CancelItemQuantity(ctx context.Context, orderID, itemID int64, cancelQty int, reason string, staffID int64, notes string) (*models.CancelQuantityResult, error) {
	if cancelQty <= 0 {
		return nil, errs.Validation("cancel quantity must be positive, got %d", cancelQty)
	}

	var result models.CancelQuantityResult
	var customerID int64

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.OrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return errs.InvalidState("cancel order item", string(order.Status))
		}
		customerID = order.CustomerID

		item, err := s.DB.ItemByID(ctx, tx, orderID, itemID)
		if err != nil {
			return err
		}
		if cancelQty > item.Quantity {
			return errs.Validation("cannot cancel %d items, only %d available", cancelQty, item.Quantity)
		}

		product, err := s.DB.ProductByID(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		result.ProductName = product.Name
		result.CancelledQuantity = cancelQty
		result.RefundAmount = item.Price * float64(cancelQty)

		if s.Cancellations != nil {
			audit := &models.OrderItemCancellation{
				OrderID:            orderID,
				OrderItemID:        item.ID,
				ProductID:          item.ProductID,
				CancelledQuantity:  cancelQty,
				OriginalQuantity:   item.Quantity,
				Reason:             reason,
				CancelledByStaffID: staffID,
				Notes:              notes,
				Status:             "completed",
				CustomerNotified:   true,
			}
			if err := s.Cancellations.Record(audit); err != nil && s.Log != nil {
				s.Log.Error("DATABASE", "Failed to log item cancellation: "+err.Error())
			}
		}

		if err := s.Ledger.RestoreStock(ctx, tx, item.ProductID, cancelQty); err != nil {
			return err
		}

		if cancelQty == item.Quantity {
			if err := s.DB.DeleteItem(ctx, tx, item.ID); err != nil {
				return err
			}
		} else {
			if err := s.DB.UpdateItemQuantity(ctx, tx, item.ID, item.Quantity-cancelQty); err != nil {
				return err
			}
		}

		remaining, err := s.DB.CountItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			result.OrderDeleted = true
			return s.DB.DeleteOrder(ctx, tx, orderID)
		}
		return s.DB.UpdateOrderTotal(ctx, tx, orderID, order.TotalAmount-result.RefundAmount)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, customerID,
		fmt.Sprintf("Item '%s' (Quantity: %d) has been cancelled from your order #%d. Refund amount: $%.2f",
			result.ProductName, result.CancelledQuantity, orderID, result.RefundAmount),
		"order_update", orderID)
	return &result, nil
}

// UpdateStatus moves an order to a new status, validating the transition
// table. Transitioning into Cancelled from any non-cancelled state restores
// stock for every item first; this is the only path outside CancelOrder*
// that touches inventory, so callers must not combine the two.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, newStatus string) error {
	target, err := models.ParseOrderStatus(newStatus)
	if err != nil {
		return errs.Validation("%v", err)
	}

	err = s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.OrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == target {
			return nil
		}
		if !order.Status.CanTransition(target) {
			return errs.InvalidState(fmt.Sprintf("transition to %s", target), string(order.Status))
		}

		if target == models.OrderCancelled {
			items, err := s.DB.ItemsByOrder(ctx, tx, orderID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := s.Ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return s.DB.UpdateOrderStatus(ctx, tx, orderID, target)
	})
	if err != nil {
		return err
	}

	if s.Log != nil {
		s.Log.LogOrder("STATUS", fmt.Sprint(orderID), "updated to "+string(target))
	}
	return nil
}

// ---------------- CART (projection over the Pending order) ----------------

// AddToCart adds quantity of a product to the customer's cart. The cart is
// the customer's single Pending order: the first add creates it, later adds
// reuse it. The unit price is snapshotted from the product at add-time.
func (s *Service) AddToCart(ctx context.Context, customerID, productID int64, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, errs.Validation("quantity must be positive, got %d", quantity)
	}

	var orderID int64
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		product, err := s.DB.ProductByID(ctx, tx, productID)
		if err != nil {
			return err
		}

		pending, err := s.DB.PendingByCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}

		var order *models.Order
		if len(pending) > 0 {
			order = &pending[0]
		} else {
			order = &models.Order{
				CustomerID:    customerID,
				OrderDate:     time.Now(),
				Status:        models.OrderPending,
				PaymentMethod: "QR Payment",
			}
			if err := s.DB.InsertOrder(ctx, tx, order); err != nil {
				return err
			}
		}
		orderID = order.ID

		if err := s.Ledger.ReduceStock(ctx, tx, productID, quantity); err != nil {
			return err
		}

		existing, err := s.DB.ItemByProduct(ctx, tx, order.ID, productID)
		var notFound *errs.NotFoundError
		switch {
		case err == nil:
			if err := s.DB.UpdateItemQuantity(ctx, tx, existing.ID, existing.Quantity+quantity); err != nil {
				return err
			}
		case errors.As(err, &notFound):
			item := &models.OrderItem{
				OrderID:   order.ID,
				ProductID: productID,
				Quantity:  quantity,
				Price:     product.Price,
			}
			if err := s.DB.InsertItem(ctx, tx, item); err != nil {
				return err
			}
		default:
			return err
		}

		total, err := s.DB.ItemsTotal(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		return s.DB.UpdateOrderTotal(ctx, tx, order.ID, total)
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// UpdateCartQuantity sets a cart line to a new quantity, restoring or
// reducing stock by the delta. Quantity zero removes the line; removing the
// last line deletes the Pending order.
func (s *Service) UpdateCartQuantity(ctx context.Context, customerID, productID int64, newQuantity int) error {
	if newQuantity < 0 {
		return errs.Validation("quantity cannot be negative, got %d", newQuantity)
	}

	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pending, err := s.DB.PendingByCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return errs.NotFound("pending order for customer", customerID)
		}
		order := pending[0]

		item, err := s.DB.ItemByProduct(ctx, tx, order.ID, productID)
		if err != nil {
			return err
		}

		delta := newQuantity - item.Quantity
		switch {
		case delta > 0:
			if err := s.Ledger.ReduceStock(ctx, tx, productID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := s.Ledger.RestoreStock(ctx, tx, productID, -delta); err != nil {
				return err
			}
		}

		if newQuantity == 0 {
			if err := s.DB.DeleteItem(ctx, tx, item.ID); err != nil {
				return err
			}
		} else {
			if err := s.DB.UpdateItemQuantity(ctx, tx, item.ID, newQuantity); err != nil {
				return err
			}
		}

		remaining, err := s.DB.CountItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.DB.DeleteOrder(ctx, tx, order.ID)
		}

		total, err := s.DB.ItemsTotal(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		return s.DB.UpdateOrderTotal(ctx, tx, order.ID, total)
	})
}

// RemoveFromCart removes a product line entirely.
func (s *Service) RemoveFromCart(ctx context.Context, customerID, productID int64) error {
	return s.UpdateCartQuantity(ctx, customerID, productID, 0)
}

// Cart returns the customer's Pending order with its items, or NotFound
// when the cart is empty.
func (s *Service) Cart(ctx context.Context, customerID int64) (*models.OrderWithItems, error) {
	pending, err := s.DB.PendingByCustomer(ctx, s.Bun, customerID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, errs.NotFound("pending order for customer", customerID)
	}
	items, err := s.DB.ItemsByOrder(ctx, s.Bun, pending[0].ID)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithItems{Order: pending[0], Items: items}, nil
}

// PendingOrderFor returns the customer's active Pending order, if any.
func (s *Service) PendingOrderFor(ctx context.Context, customerID int64) (*models.Order, error) {
	pending, err := s.DB.PendingByCustomer(ctx, s.Bun, customerID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, errs.NotFound("pending order for customer", customerID)
	}
	return &pending[0], nil
}

// ClearPendingOrders cancels every leftover Pending order for a customer,
// restoring stock for each. Used after a confirmed checkout so stale carts
// from abandoned payment attempts cannot linger as phantom stock holds.
func (s *Service) ClearPendingOrders(ctx context.Context, customerID int64) (int, error) {
	pending, err := s.DB.PendingByCustomer(ctx, s.Bun, customerID)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range pending {
		err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			items, err := s.DB.ItemsByOrder(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := s.Ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			return s.DB.UpdateOrderStatus(ctx, tx, order.ID, models.OrderCancelled)
		})
		if err != nil {
			return cancelled, err
		}
		cancelled++
	}
	if cancelled > 0 && s.Log != nil {
		s.Log.LogOrder("CLEANUP", fmt.Sprint(customerID),
			fmt.Sprintf("cancelled %d leftover pending order(s)", cancelled))
	}
	return cancelled, nil
}

// LinkPreOrder stamps an order as the pickup conversion of a pre-order.
func (s *Service) LinkPreOrder(ctx context.Context, orderID, preOrderID int64) error {
	return s.DB.LinkPreOrder(ctx, s.Bun, orderID, preOrderID)
}

// Paginated and StatusSummary back the staff dashboard.
func (s *Service) Paginated(ctx context.Context, status string, page, pageSize int) ([]models.Order, int, error) {
	return s.DB.Paginated(ctx, status, page, pageSize)
}

func (s *Service) StatusSummary(ctx context.Context) ([]db.StatusRow, error) {
	return s.DB.StatusSummary(ctx)
}

func (s *Service) notify(ctx context.Context, customerID int64, message, notificationType string, relatedID int64) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, customerID, message, notificationType, relatedID); err != nil && s.Log != nil {
		s.Log.Error("NOTIFY", "Failed to send customer notification: "+err.Error())
	}
}
