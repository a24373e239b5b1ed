package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

type PaymentOptions struct {
	OrderTimeout      time.Duration
	PixExpiration     time.Duration
	DefaultPayerEmail string
	DefaultPayerCPF   string
}

// PaymentService starts payments at the guild's gateway and manages the
// gateway configuration.
type PaymentService struct {
	orders   *OrderService
	store    OrderStore
	configs  ConfigStore
	gateways GatewayResolver
	opts     PaymentOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentService(
	orders *OrderService,
	store OrderStore,
	configs ConfigStore,
	gateways GatewayResolver,
	opts PaymentOptions,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		store:    store,
		configs:  configs,
		gateways: gateways,
		opts:     opts,
		logger:   util.Named("payments"),
		now:      time.Now,
	}
}

type InitiatePaymentRequest struct {
	OrderID string
	// RequesterID is checked against the buyer when set.
	RequesterID string
	// Gateway may be empty to use the guild default.
	Gateway    string
	Method     string
	Card       *payment.CardDetails
	PayerEmail string
	PayerCPF   string
}

type PaymentResult struct {
	Order   *models.Order
	Gateway string
	Pix     *payment.PixPayment
	Card    *payment.CardPayment
}

// InitiatePayment creates the gateway payment for a pending order. The
// order stays pending; only a webhook confirmation moves it further.
func (s *PaymentService) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*PaymentResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiatePayment")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != "" && order.UserID != req.RequesterID {
		return nil, ErrNotOrderOwner
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	if !s.now().Before(order.ExpiresAt(s.opts.OrderTimeout)) {
		if _, err := s.orders.cancel(ctx, order, models.CancelReasonTimeout, ""); err != nil {
			s.logger.Warn("Failed to cancel expired order", zap.String("order_id", order.ID), zap.Error(err))
		}
		return nil, ErrOrderExpired
	}

	available, err := s.store.CountAvailableStock(ctx, order.ProductID)
	if err != nil {
		return nil, util.SpanError(span, fmt.Errorf("failed to count stock: %w", err))
	}
	if available < order.Quantity {
		if _, err := s.orders.cancel(ctx, order, models.CancelReasonInsufficientStock, ""); err != nil {
			s.logger.Warn("Failed to cancel order without stock", zap.String("order_id", order.ID), zap.Error(err))
		}
		return nil, &InsufficientStockError{ProductID: order.ProductID, Requested: order.Quantity, Available: available}
	}

	method := req.Method
	if method == "" {
		method = models.PaymentMethodPix
	}
	switch method {
	case models.PaymentMethodPix:
	case models.PaymentMethodCard:
		if req.Card == nil || req.Card.Token == "" {
			return nil, ErrCardDataRequired
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	if order.PaymentID != "" {
		return s.existingPayment(order, req.Gateway, method)
	}

	gw, err := s.gateways.Resolve(ctx, order.GuildID, req.Gateway)
	if err != nil {
		return nil, err
	}

	callbackURL, err := s.callbackURL(ctx, order.GuildID, gw.Name())
	if err != nil {
		return nil, err
	}

	pixReq := payment.PixRequest{
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("%s x%d", order.ProductName, order.Quantity),
		ExternalID:  order.ID,
		PayerName:   order.UserName,
		PayerEmail:  firstNonEmpty(req.PayerEmail, order.UserEmail, s.opts.DefaultPayerEmail),
		PayerCPF:    firstNonEmpty(req.PayerCPF, order.UserCPF, s.opts.DefaultPayerCPF),
		ExpiresAt:   s.now().Add(s.opts.PixExpiration),
		WebhookURL:  callbackURL,
	}

	result := &PaymentResult{Order: order, Gateway: gw.Name()}
	attachment := store.PaymentAttachment{Gateway: gw.Name(), Method: method}

	start := time.Now()
	if method == models.PaymentMethodPix {
		result.Pix, err = gw.CreatePixPayment(ctx, &pixReq)
		if err == nil {
			attachment.PaymentID = result.Pix.PaymentID
			attachment.QRCode = result.Pix.QRCodeBase64
			attachment.PixCopyPaste = result.Pix.CopyPaste
		}
	} else {
		result.Card, err = gw.CreateCardPayment(ctx, &payment.CardRequest{PixRequest: pixReq, Card: *req.Card})
		if err == nil {
			attachment.PaymentID = result.Card.PaymentID
		}
	}
	util.PaymentProcessingLatency.WithLabelValues(gw.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		util.PaymentsFailedTotal.WithLabelValues(gw.Name()).Inc()
		s.logger.Error("Gateway refused payment",
			zap.String("order_id", order.ID),
			zap.String("gateway", gw.Name()),
			zap.Error(err))
		return nil, util.SpanError(span, fmt.Errorf("failed to create payment: %w", err))
	}

	if err := s.store.AttachPayment(ctx, order.ID, attachment); err != nil {
		if !errors.Is(err, store.ErrStatusChanged) {
			return nil, util.SpanError(span, err)
		}
		return s.lostAttachRace(ctx, order.ID, attachment, req.Gateway, method)
	}

	order.PaymentID = attachment.PaymentID
	order.PaymentGateway = attachment.Gateway
	order.PaymentMethod = attachment.Method
	order.PaymentStatus = models.PaymentStatusPending
	order.QRCode = attachment.QRCode
	order.PixCopyPaste = attachment.PixCopyPaste

	if _, err := s.store.CreateTransaction(ctx, &models.Transaction{
		UserID:           order.UserID,
		OrderID:          order.ID,
		Amount:           order.TotalAmount,
		PaymentMethod:    method,
		PaymentGateway:   gw.Name(),
		GatewayPaymentID: attachment.PaymentID,
		Status:           models.PaymentStatusPending,
	}); err != nil {
		s.logger.Warn("Failed to record pending transaction", zap.String("order_id", order.ID), zap.Error(err))
	}

	util.PaymentsInitiatedTotal.WithLabelValues(gw.Name(), method).Inc()
	s.logger.Info("Payment initiated",
		zap.String("order_id", order.ID),
		zap.String("gateway", gw.Name()),
		zap.String("method", method),
		zap.String("payment_id", attachment.PaymentID))

	s.orders.publish(ctx, models.EventTypeOrderPaymentInitiated, order)
	return result, nil
}

// existingPayment answers a repeated request with the artifact already
// stored on the order, so one order never has two live gateway payments.
func (s *PaymentService) existingPayment(order *models.Order, gateway, method string) (*PaymentResult, error) {
	if order.PaymentMethod != method || (gateway != "" && gateway != order.PaymentGateway) {
		return nil, ErrPaymentAlreadyCreated
	}

	result := &PaymentResult{Order: order, Gateway: order.PaymentGateway}
	if method == models.PaymentMethodPix {
		result.Pix = &payment.PixPayment{
			PaymentID:    order.PaymentID,
			QRCodeBase64: order.QRCode,
			CopyPaste:    order.PixCopyPaste,
			Status:       order.PaymentStatus,
		}
		// updated_at last moved when the payment was attached.
		if !order.UpdatedAt.IsZero() {
			result.Pix.ExpiresAt = order.UpdatedAt.Add(s.opts.PixExpiration)
		}
	} else {
		result.Card = &payment.CardPayment{PaymentID: order.PaymentID, Status: order.PaymentStatus}
	}
	return result, nil
}

// lostAttachRace handles a payment created while a concurrent request
// attached its own. The extra payment is still recorded as a transaction so
// a webhook for it resolves to this order.
func (s *PaymentService) lostAttachRace(ctx context.Context, orderID string, lost store.PaymentAttachment, gateway, method string) (*PaymentResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreateTransaction(ctx, &models.Transaction{
		UserID:           order.UserID,
		OrderID:          order.ID,
		Amount:           order.TotalAmount,
		PaymentMethod:    lost.Method,
		PaymentGateway:   lost.Gateway,
		GatewayPaymentID: lost.PaymentID,
		Status:           models.PaymentStatusPending,
	}); err != nil {
		s.logger.Warn("Failed to record superseded payment", zap.String("order_id", order.ID), zap.Error(err))
	}
	s.logger.Warn("Payment superseded by a concurrent request",
		zap.String("order_id", order.ID),
		zap.String("payment_id", lost.PaymentID),
		zap.String("kept_payment_id", order.PaymentID))

	if order.Status != models.OrderStatusPending || order.PaymentID == "" {
		return nil, ErrOrderNotPending
	}
	return s.existingPayment(order, gateway, method)
}

func (s *PaymentService) callbackURL(ctx context.Context, guildID, gateway string) (string, error) {
	base, err := s.configs.GetConfig(ctx, guildID, models.ConfigWebhookURL)
	if err != nil {
		return "", fmt.Errorf("failed to load webhook url: %w", err)
	}
	if base == "" {
		return "", ErrWebhookURLNotConfigured
	}
	return strings.TrimRight(base, "/") + "/webhook/" + gateway, nil
}

// TestGateway checks the guild's credentials against the provider.
func (s *PaymentService) TestGateway(ctx context.Context, guildID, gateway string) (string, error) {
	gw, err := s.gateways.Resolve(ctx, guildID, gateway)
	if err != nil {
		return "", err
	}
	return gw.TestConnection(ctx)
}

type GatewaySettings struct {
	Gateway       string
	Token         string
	WebhookURL    string
	WebhookSecret string
}

// ConfigureGateway stores credentials for a gateway. The first configured
// gateway becomes the guild default.
func (s *PaymentService) ConfigureGateway(ctx context.Context, guildID string, in GatewaySettings) error {
	if !payment.IsSupported(in.Gateway) {
		return fmt.Errorf("%w: %s", ErrUnsupportedGateway, in.Gateway)
	}
	if strings.TrimSpace(in.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrGatewayNotConfigured)
	}

	values := map[string]string{models.GatewayTokenKey(in.Gateway): strings.TrimSpace(in.Token)}
	if in.WebhookURL != "" {
		values[models.ConfigWebhookURL] = strings.TrimSpace(in.WebhookURL)
	}
	if in.WebhookSecret != "" && in.Gateway == payment.MercadoPago {
		values[models.ConfigMercadoPagoWebhookSecret] = strings.TrimSpace(in.WebhookSecret)
	}

	current, err := s.configs.GetConfig(ctx, guildID, models.ConfigPaymentGatewayDefault)
	if err != nil {
		return err
	}
	if current == "" {
		values[models.ConfigPaymentGatewayDefault] = in.Gateway
	}

	for key, value := range values {
		if err := s.configs.SetConfig(ctx, guildID, key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	s.logger.Info("Gateway configured", zap.String("guild_id", guildID), zap.String("gateway", in.Gateway))
	return nil
}

// RefundOrder asks the gateway to refund the order's payment and records the
// refund as a transaction. The order status is left as is.
func (s *PaymentService) RefundOrder(ctx context.Context, orderID, operatorID string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.RefundOrder")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentID == "" || order.PaymentGateway == "" {
		return ErrOrderNotPaid
	}

	gw, err := s.gateways.Resolve(ctx, order.GuildID, order.PaymentGateway)
	if err != nil {
		return err
	}
	if err := gw.Refund(ctx, order.PaymentID); err != nil {
		return util.SpanError(span, fmt.Errorf("failed to refund payment: %w", err))
	}

	if _, err := s.store.CreateTransaction(ctx, &models.Transaction{
		UserID:           order.UserID,
		OrderID:          order.ID,
		Amount:           order.TotalAmount,
		PaymentMethod:    order.PaymentMethod,
		PaymentGateway:   order.PaymentGateway,
		GatewayPaymentID: order.PaymentID,
		Status:           models.PaymentStatusRefunded,
	}); err != nil {
		s.logger.Warn("Failed to record refund transaction", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("Payment refunded",
		zap.String("order_id", order.ID),
		zap.String("payment_id", order.PaymentID),
		zap.String("operator_id", operatorID))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
