package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderOptions struct {
	Timeout        time.Duration
	MaxQuantity    int
	SweepBatchSize int
}

// OrderService owns the order lifecycle: creation, cancellation, expiry and
// operator fulfilment. Payment confirmation lives in PaymentOrchestrator.
type OrderService struct {
	store    OrderStore
	drafts   DraftCache
	events   EventPublisher
	notifier Notifier
	opts     OrderOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	store OrderStore,
	drafts DraftCache,
	events EventPublisher,
	notifier Notifier,
	opts OrderOptions,
) *OrderService {
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 100
	}
	return &OrderService{
		store:    store,
		drafts:   drafts,
		events:   events,
		notifier: notifier,
		opts:     opts,
		logger:   util.Named("orders"),
		now:      time.Now,
	}
}

type CreateOrderRequest struct {
	GuildID   string
	ProductID int64
	Quantity  int
	UserID    string
	UserName  string
	UserEmail string
	UserCPF   string
}

// CreateOrder validates the request against the catalog and current stock
// and inserts a pending order with its total fixed at today's price.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.Quantity < 1 || req.Quantity > s.opts.MaxQuantity {
		util.OrdersRejectedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuantity, s.opts.MaxQuantity)
	}

	product, err := s.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.OrdersRejectedTotal.WithLabelValues("product_not_found").Inc()
			return nil, ErrProductNotFound
		}
		return nil, util.SpanError(span, fmt.Errorf("failed to load product: %w", err))
	}
	if !product.Active || (req.GuildID != "" && product.GuildID != req.GuildID) {
		util.OrdersRejectedTotal.WithLabelValues("product_not_found").Inc()
		return nil, ErrProductNotFound
	}

	available, err := s.store.CountAvailableStock(ctx, product.ID)
	if err != nil {
		return nil, util.SpanError(span, fmt.Errorf("failed to count stock: %w", err))
	}
	if available < req.Quantity {
		util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, &InsufficientStockError{ProductID: product.ID, Requested: req.Quantity, Available: available}
	}

	if err := s.store.UpsertUser(ctx, &models.User{ID: req.UserID, Username: req.UserName}); err != nil {
		s.logger.Warn("Failed to upsert buyer", zap.String("user_id", req.UserID), zap.Error(err))
	}

	order := &models.Order{
		ID:          uuid.New().String(),
		GuildID:     product.GuildID,
		UserID:      req.UserID,
		UserName:    req.UserName,
		UserEmail:   req.UserEmail,
		UserCPF:     req.UserCPF,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		TotalAmount: product.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:      models.OrderStatusPending,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("db_error").Inc()
		return nil, util.SpanError(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int64("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	draft := &models.OrderDraft{
		OrderID:     order.ID,
		GuildID:     order.GuildID,
		UserID:      order.UserID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ExpiresAt:   order.ExpiresAt(s.opts.Timeout),
	}
	if err := s.drafts.SetDraft(ctx, draft, s.opts.Timeout); err != nil {
		s.logger.Warn("Failed to cache order draft", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.publish(ctx, models.EventTypeOrderCreated, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// LookupOrder returns the cached draft while the order is pending and falls
// back to the orders table otherwise. Use it for display only.
func (s *OrderService) LookupOrder(ctx context.Context, orderID string) (*models.OrderDraft, error) {
	draft, err := s.drafts.GetDraft(ctx, orderID)
	if err != nil {
		s.logger.Warn("Draft cache unavailable", zap.String("order_id", orderID), zap.Error(err))
	}
	if draft != nil {
		return draft, nil
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderDraft{
		OrderID:     order.ID,
		GuildID:     order.GuildID,
		UserID:      order.UserID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ExpiresAt:   order.ExpiresAt(s.opts.Timeout),
	}, nil
}

// CancelOrder cancels a pending order on behalf of its buyer. Cancelling an
// already cancelled order succeeds; any other terminal status is refused.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, requesterID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != requesterID {
		return ErrNotOrderOwner
	}
	return s.cancelOrRefuse(ctx, order, models.CancelReasonUser)
}

// CancelOrderAsOperator is the dashboard path; ownership is not checked and
// the buyer is told.
func (s *OrderService) CancelOrderAsOperator(ctx context.Context, orderID, operatorID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrderAsOperator")
	defer span.End()

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.cancelOrRefuse(ctx, order, models.CancelReasonOperator); err != nil {
		return err
	}

	s.logger.Info("Order cancelled by operator",
		zap.String("order_id", orderID),
		zap.String("operator_id", operatorID))
	s.notify(ctx, order.UserID, &Notification{
		Kind:        KindCancelled,
		Title:       "Pedido cancelado",
		Description: fmt.Sprintf("Seu pedido de **%s** foi cancelado pela equipe.", order.ProductName),
		Fields:      []NotificationField{{Name: "Pedido", Value: order.ID}},
	})
	return nil
}

func (s *OrderService) cancelOrRefuse(ctx context.Context, order *models.Order, reason string) error {
	if order.Status == models.OrderStatusCancelled {
		return nil
	}
	if order.Status != models.OrderStatusPending {
		return ErrOrderNotCancellable
	}

	ok, err := s.cancel(ctx, order, reason, "")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// Lost a race: whoever committed first decides.
	current, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if current.Status == models.OrderStatusCancelled {
		return nil
	}
	return ErrOrderNotCancellable
}

// cancel applies the pending -> cancelled CAS and its side effects. It
// reports whether this call made the transition.
func (s *OrderService) cancel(ctx context.Context, order *models.Order, reason, paymentStatus string) (bool, error) {
	ok, err := s.store.CancelOrder(ctx, order.ID, reason, paymentStatus)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	order.Status = models.OrderStatusCancelled
	order.CancelReason = reason
	if paymentStatus != "" {
		order.PaymentStatus = paymentStatus
	}

	util.OrdersCancelledTotal.WithLabelValues(reason).Inc()
	s.logger.Info("Order cancelled", zap.String("order_id", order.ID), zap.String("reason", reason))

	s.evictDraft(ctx, order.ID)
	s.publish(ctx, models.EventTypeOrderCancelled, order)
	return true, nil
}

// ExpireStaleOrders cancels every order still pending past the timeout and
// tells the buyers. It returns how many orders expired.
func (s *OrderService) ExpireStaleOrders(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ExpireStaleOrders")
	defer span.End()

	cutoff := s.now().Add(-s.opts.Timeout)
	total := 0
	for {
		orders, err := s.store.ExpirePendingOrders(ctx, cutoff, s.opts.SweepBatchSize)
		if err != nil {
			return total, util.SpanError(span, err)
		}

		for i := range orders {
			order := &orders[i]
			util.OrdersCancelledTotal.WithLabelValues(models.CancelReasonTimeout).Inc()
			s.evictDraft(ctx, order.ID)
			s.publish(ctx, models.EventTypeOrderCancelled, order)
			s.notify(ctx, order.UserID, &Notification{
				Kind:  KindExpired,
				Title: "Pedido expirado",
				Description: fmt.Sprintf("Seu pedido de **%s** foi cancelado porque o pagamento não foi confirmado a tempo.",
					order.ProductName),
				Fields: []NotificationField{{Name: "Pedido", Value: order.ID}},
			})
		}
		total += len(orders)

		if len(orders) < s.opts.SweepBatchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("Expired pending orders", zap.Int("count", total))
	}
	return total, nil
}

// FulfillOrder delivers a completed_unfulfilled order once an operator has
// restocked the product.
func (s *OrderService) FulfillOrder(ctx context.Context, orderID, operatorID string) (*models.Order, []models.StockItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.FulfillOrder")
	defer span.End()

	order, items, err := s.store.FulfillOrder(ctx, orderID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil, ErrOrderNotFound
	case errors.Is(err, store.ErrStatusChanged):
		return nil, nil, ErrOrderNotUnfulfilled
	case errors.Is(err, store.ErrStockExhausted) && order != nil:
		available, _ := s.store.CountAvailableStock(ctx, order.ProductID)
		return nil, nil, &InsufficientStockError{ProductID: order.ProductID, Requested: order.Quantity, Available: available}
	case err != nil:
		return nil, nil, util.SpanError(span, fmt.Errorf("failed to fulfil order: %w", err))
	}

	s.logger.Info("Unfulfilled order completed by operator",
		zap.String("order_id", orderID),
		zap.String("operator_id", operatorID),
		zap.Int("items", len(items)))

	s.publish(ctx, models.EventTypeOrderFulfilled, order)
	s.notifyDelivery(ctx, order, items)
	return order, items, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	return s.store.ListOrders(ctx, f)
}

func (s *OrderService) OrderStats(ctx context.Context, guildID string) (*models.OrderStats, error) {
	return s.store.OrderStats(ctx, guildID)
}

func (s *OrderService) ListTransactions(ctx context.Context, orderID string) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, orderID)
}

func (s *OrderService) notifyDelivery(ctx context.Context, order *models.Order, items []models.StockItem) {
	fields := make([]NotificationField, 0, len(items)+2)
	fields = append(fields,
		NotificationField{Name: "Pedido", Value: order.ID},
		NotificationField{Name: "Total", Value: FormatBRL(order.TotalAmount), Inline: true},
	)
	for i, item := range items {
		fields = append(fields, NotificationField{
			Name:  fmt.Sprintf("Item %d", i+1),
			Value: "```" + item.Content + "```",
		})
	}

	s.notify(ctx, order.UserID, &Notification{
		Kind:        KindDelivery,
		Title:       "Pagamento aprovado!",
		Description: fmt.Sprintf("Obrigado pela compra de **%s** (x%d). Seus itens:", order.ProductName, order.Quantity),
		Fields:      fields,
	})
}

func (s *OrderService) notify(ctx context.Context, userID string, n *Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUser(ctx, userID, n); err != nil {
		s.logger.Warn("Failed to notify user",
			zap.String("user_id", userID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}

func (s *OrderService) evictDraft(ctx context.Context, orderID string) {
	if err := s.drafts.DeleteDraft(ctx, orderID); err != nil {
		s.logger.Warn("Failed to evict order draft", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *OrderService) publish(ctx context.Context, eventType models.EventType, order *models.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, models.NewOrderEvent(eventType, order)); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", string(eventType)),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
