package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

type OrchestratorOptions struct {
	LockTimeout time.Duration
}

// PaymentOrchestrator turns gateway webhooks into order transitions. Every
// entry point is safe to call repeatedly with the same arguments.
type PaymentOrchestrator struct {
	orders   *OrderService
	store    OrderStore
	configs  ConfigStore
	gateways GatewayResolver
	locker   Locker
	notifier Notifier
	opts     OrchestratorOptions
	logger   *zap.Logger
}

func NewPaymentOrchestrator(
	orders *OrderService,
	store OrderStore,
	configs ConfigStore,
	gateways GatewayResolver,
	locker Locker,
	notifier Notifier,
	opts OrchestratorOptions,
) *PaymentOrchestrator {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	return &PaymentOrchestrator{
		orders:   orders,
		store:    store,
		configs:  configs,
		gateways: gateways,
		locker:   locker,
		notifier: notifier,
		opts:     opts,
		logger:   util.Named("webhooks"),
	}
}

// HandleWebhook ingests one delivery. A nil error means the event was
// recorded or safely ignored. ErrMalformedPayload, ErrInvalidSignature and
// ErrUnsupportedGateway are returned for the HTTP layer to map.
func (o *PaymentOrchestrator) HandleWebhook(ctx context.Context, gateway string, headers http.Header, body []byte) error {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.HandleWebhook")
	defer span.End()

	if !payment.IsSupported(gateway) {
		return fmt.Errorf("%w: %s", ErrUnsupportedGateway, gateway)
	}

	n, err := payment.ParseNotification(gateway, body)
	if err != nil {
		return err
	}
	if !n.IsPayment() {
		o.logger.Debug("Ignoring non-payment notification", zap.String("gateway", gateway), zap.String("topic", n.Topic))
		return nil
	}

	order, err := o.findOrder(ctx, n)
	if errors.Is(err, ErrOrderNotFound) {
		o.logger.Warn("Webhook for unknown order",
			zap.String("gateway", gateway),
			zap.String("payment_id", n.PaymentID),
			zap.String("external_id", n.ExternalID))
		return nil
	}
	if err != nil {
		return util.SpanError(span, err)
	}

	gw, err := o.gateways.Resolve(ctx, order.GuildID, gateway)
	if err != nil {
		return util.SpanError(span, fmt.Errorf("failed to resolve gateway for guild %s: %w", order.GuildID, err))
	}

	if err := gw.VerifyWebhook(headers, n); err != nil {
		o.logger.Warn("Webhook signature rejected",
			zap.String("gateway", gateway),
			zap.String("order_id", order.ID),
			zap.Error(err))
		return err
	}
	if gateway == payment.MercadoPago {
		secret, err := o.configs.GetConfig(ctx, order.GuildID, models.ConfigMercadoPagoWebhookSecret)
		if err != nil {
			o.logger.Warn("Failed to load webhook secret",
				zap.String("guild_id", order.GuildID),
				zap.String("order_id", order.ID),
				zap.Error(err))
		} else if secret == "" {
			o.logger.Warn("Webhook accepted without signature verification",
				zap.String("guild_id", order.GuildID),
				zap.String("order_id", order.ID))
		}
	}

	if n.NeedsLookup {
		st, err := gw.GetPaymentStatus(ctx, n.PaymentID)
		if err != nil {
			return util.SpanError(span, fmt.Errorf("failed to fetch payment status: %w", err))
		}
		if st.ExternalReference != "" && st.ExternalReference != order.ID {
			o.logger.Warn("Payment reference does not match order",
				zap.String("order_id", order.ID),
				zap.String("external_reference", st.ExternalReference))
			return nil
		}
		n.RawStatus = st.RawStatus
		n.Status = st.Status
	}

	if _, known := payment.NormalizeStatus(gateway, n.RawStatus); !known {
		o.logger.Warn("Unrecognized payment status treated as pending",
			zap.String("gateway", gateway),
			zap.String("order_id", order.ID),
			zap.String("status", n.RawStatus))
	}
	if n.Status == payment.StatusPending {
		return nil
	}

	fresh, err := o.store.CreateTransaction(ctx, &models.Transaction{
		UserID:           order.UserID,
		OrderID:          order.ID,
		Amount:           order.TotalAmount,
		PaymentMethod:    order.PaymentMethod,
		PaymentGateway:   gateway,
		GatewayPaymentID: n.PaymentID,
		Status:           string(n.Status),
		WebhookData:      n.Raw,
	})
	if err != nil {
		return util.SpanError(span, err)
	}
	if !fresh {
		o.logger.Info("Redelivered webhook",
			zap.String("order_id", order.ID),
			zap.String("payment_id", n.PaymentID),
			zap.String("status", string(n.Status)))
	}

	return o.ConfirmPayment(ctx, order.ID, n.PaymentID, n.Status)
}

func (o *PaymentOrchestrator) findOrder(ctx context.Context, n *payment.Notification) (*models.Order, error) {
	if n.ExternalID != "" {
		order, err := o.orders.GetOrder(ctx, n.ExternalID)
		if !errors.Is(err, ErrOrderNotFound) {
			return order, err
		}
	}
	if n.PaymentID == "" {
		return nil, ErrOrderNotFound
	}

	order, err := o.store.GetOrderByPayment(ctx, n.Gateway, n.PaymentID)
	if !errors.Is(err, store.ErrNotFound) {
		return order, err
	}

	// A payment that was superseded on the order still has its transaction.
	order, err = o.store.GetOrderByTransaction(ctx, n.Gateway, n.PaymentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// ConfirmPayment applies a normalized gateway outcome to an order. Approved
// payments claim stock and deliver; rejected or cancelled payments cancel the
// order; pending is a no-op. Terminal orders are never moved again.
func (o *PaymentOrchestrator) ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID string, status payment.Status) error {
	ctx, span := util.StartSpan(ctx, "PaymentOrchestrator.ConfirmPayment")
	defer span.End()

	if status == payment.StatusPending {
		return nil
	}

	lockName := "payment:" + orderID
	token, ok, err := o.locker.AcquireLock(ctx, lockName, o.opts.LockTimeout)
	switch {
	case err != nil:
		o.logger.Warn("Lock unavailable, relying on status check", zap.String("order_id", orderID), zap.Error(err))
	case !ok:
		return ErrPaymentInProgress
	default:
		defer func() {
			if err := o.locker.ReleaseLock(context.Background(), lockName, token); err != nil {
				o.logger.Warn("Failed to release payment lock", zap.String("order_id", orderID), zap.Error(err))
			}
		}()
	}

	order, err := o.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsTerminal() {
		o.settled(ctx, order, gatewayPaymentID, status)
		return nil
	}

	switch status {
	case payment.StatusApproved:
		return util.SpanError(span, o.deliver(ctx, order, gatewayPaymentID))
	case payment.StatusRejected, payment.StatusCancelled:
		reason := models.CancelReasonPaymentRejected
		if status == payment.StatusCancelled {
			reason = models.CancelReasonPaymentCancelled
		}
		cancelled, err := o.orders.cancel(ctx, order, reason, string(status))
		if err != nil {
			return util.SpanError(span, err)
		}
		if cancelled {
			o.orders.notify(ctx, order.UserID, &Notification{
				Kind:        KindPaymentFailed,
				Title:       "Pagamento não aprovado",
				Description: fmt.Sprintf("O pagamento do seu pedido de **%s** não foi aprovado e o pedido foi cancelado.", order.ProductName),
				Fields:      []NotificationField{{Name: "Pedido", Value: order.ID}},
			})
		}
	}
	return nil
}

func (o *PaymentOrchestrator) deliver(ctx context.Context, order *models.Order, paymentID string) error {
	start := time.Now()
	delivered, items, err := o.store.DeliverOrder(ctx, order.ID, paymentID)
	util.StockClaimLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		util.OrdersDeliveredTotal.Inc()
		o.logger.Info("Order delivered",
			zap.String("order_id", delivered.ID),
			zap.String("payment_id", paymentID),
			zap.Int("items", len(items)))
		o.orders.evictDraft(ctx, delivered.ID)
		o.orders.publish(ctx, models.EventTypeOrderDelivered, delivered)
		o.orders.notifyDelivery(ctx, delivered, items)
		return nil

	case errors.Is(err, store.ErrStatusChanged):
		// Another confirmation or the expiry sweep committed first.
		if delivered != nil {
			o.settled(ctx, delivered, paymentID, payment.StatusApproved)
		}
		return nil

	case errors.Is(err, store.ErrStockExhausted):
		return o.markUnfulfilled(ctx, order, paymentID)

	default:
		return fmt.Errorf("failed to deliver order %s: %w", order.ID, err)
	}
}

// markUnfulfilled keeps the payment on record when no stock could be claimed
// so an operator can fulfil or refund it.
func (o *PaymentOrchestrator) markUnfulfilled(ctx context.Context, order *models.Order, paymentID string) error {
	unfulfilled, err := o.store.MarkOrderUnfulfilled(ctx, order.ID, paymentID)
	if errors.Is(err, store.ErrStatusChanged) {
		return nil
	}
	if err != nil {
		return err
	}

	util.OrdersUnfulfilledTotal.Inc()
	o.logger.Error("Paid order could not be fulfilled: stock exhausted",
		zap.String("order_id", unfulfilled.ID),
		zap.Int64("product_id", unfulfilled.ProductID),
		zap.Int("quantity", unfulfilled.Quantity),
		zap.String("payment_id", paymentID))

	o.orders.evictDraft(ctx, unfulfilled.ID)
	o.orders.publish(ctx, models.EventTypeOrderUnfulfilled, unfulfilled)
	o.orders.notify(ctx, unfulfilled.UserID, &Notification{
		Kind:  KindUnfulfilled,
		Title: "Pagamento recebido",
		Description: fmt.Sprintf("Recebemos o pagamento de **%s**, mas o estoque acabou antes da entrega. "+
			"A equipe já foi avisada e vai concluir seu pedido ou reembolsar o valor.", unfulfilled.ProductName),
		Fields: []NotificationField{{Name: "Pedido", Value: unfulfilled.ID}},
	})
	return nil
}

// settled handles a confirmation that arrived after the order left pending.
// An approval for a cancelled order is flagged on the row and announced once
// so an operator can refund it.
func (o *PaymentOrchestrator) settled(ctx context.Context, order *models.Order, paymentID string, status payment.Status) {
	if status != payment.StatusApproved || order.Status != models.OrderStatusCancelled {
		o.logger.Info("Order already settled",
			zap.String("order_id", order.ID),
			zap.String("status", order.Status),
			zap.String("incoming", string(status)))
		return
	}

	flagged, err := o.store.MarkPaidAfterCancel(ctx, order.ID, paymentID)
	if errors.Is(err, store.ErrStatusChanged) {
		o.logger.Info("Paid cancelled order already flagged",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID))
		return
	}
	if err != nil {
		o.logger.Error("Failed to flag paid cancelled order",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		flagged = order
	}

	util.OrdersPaidAfterCancelTotal.Inc()
	o.logger.Warn("Approved payment for cancelled order, refund required",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("cancel_reason", order.CancelReason))
	o.orders.publish(ctx, models.EventTypeOrderPaidAfterCancel, flagged)
}
