package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func abacateBody(order *models.Order, status string) []byte {
	return []byte(fmt.Sprintf(`{"id":"pay-%s","status":%q,"external_id":%q}`, order.ID, status, order.ID))
}

func initiate(t *testing.T, h *harness, order *models.Order, gateway string) {
	t.Helper()
	_, err := h.payments.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		OrderID: order.ID, Gateway: gateway, Method: models.PaymentMethodPix,
	})
	require.NoError(t, err)
}

func TestPixPurchaseDeliveredByWebhook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.store.addProduct(testGuild, "Spotify", "10.00", 3)
	order := createOrder(t, h, p.ID, 2)
	initiate(t, h, order, payment.AbacatePay)

	err := h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(order, "PAID"))
	require.NoError(t, err)

	stored := h.store.order(order.ID)
	assert.Equal(t, models.OrderStatusDelivered, stored.Status)
	assert.Equal(t, models.PaymentStatusApproved, stored.PaymentStatus)
	assert.NotNil(t, stored.DeliveredAt)

	items := h.store.usedStock(order.ID)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, "u1", *it.UsedBy)
	}

	assert.Equal(t, []NotificationKind{KindDelivery}, h.notifier.kinds())
	assert.Contains(t, h.events.types(), models.EventTypeOrderDelivered)

	draft, _ := h.cache.GetDraft(ctx, order.ID)
	assert.Nil(t, draft)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.store.addProduct(testGuild, "Spotify", "10.00", 5)
	order := createOrder(t, h, p.ID, 1)
	initiate(t, h, order, payment.AbacatePay)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(order, "paid")))
	}

	assert.Len(t, h.store.usedStock(order.ID), 1)
	assert.Equal(t, []NotificationKind{KindDelivery}, h.notifier.kinds())

	txs, _ := h.store.ListTransactions(ctx, order.ID)
	approved := 0
	for _, tx := range txs {
		if tx.Status == models.PaymentStatusApproved {
			approved++
		}
	}
	assert.Equal(t, 1, approved)
}

func TestConcurrentApprovalsForLastItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.store.addProduct(testGuild, "Last one", "5.00", 1)

	first := createOrder(t, h, p.ID, 1)
	second, err := h.orders.CreateOrder(ctx, &CreateOrderRequest{
		GuildID: testGuild, ProductID: p.ID, Quantity: 1, UserID: "u2", UserName: "other",
	})
	require.NoError(t, err)
	initiate(t, h, first, payment.AbacatePay)
	initiate(t, h, second, payment.AbacatePay)

	var wg sync.WaitGroup
	for _, o := range []*models.Order{first, second} {
		wg.Add(1)
		go func(o *models.Order) {
			defer wg.Done()
			assert.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(o, "paid")))
		}(o)
	}
	wg.Wait()

	statuses := []string{h.store.order(first.ID).Status, h.store.order(second.ID).Status}
	assert.ElementsMatch(t, []string{models.OrderStatusDelivered, models.OrderStatusUnfulfilled}, statuses)
	assert.ElementsMatch(t, []NotificationKind{KindDelivery, KindUnfulfilled}, h.notifier.kinds())

	sum, _ := h.store.StockSummary(ctx, p.ID)
	assert.Equal(t, 1, sum.Used)
	assert.Equal(t, 0, sum.Available)
}

func TestWebhookForUnknownOrderIsIgnored(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"id":"pay-ghost","status":"paid","external_id":"ghost"}`)

	err := h.orchestrator.HandleWebhook(context.Background(), payment.AbacatePay, nil, body)
	assert.NoError(t, err)
	assert.Empty(t, h.store.transactions)
	assert.Empty(t, h.notifier.kinds())
}

func TestWebhookErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.orchestrator.HandleWebhook(ctx, "paypal", nil, []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedGateway)

	err = h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	err = h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestWebhookWithInvalidSignatureChangesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.MercadoPago)
	h.mp.verifyErr = payment.ErrInvalidSignature
	h.mp.statuses["pay-"+order.ID] = &payment.PaymentStatus{
		PaymentID: "pay-" + order.ID, RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: order.ID,
	}

	body := []byte(fmt.Sprintf(`{"type":"payment","data":{"id":"pay-%s"}}`, order.ID))
	err := h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body)

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, models.OrderStatusPending, h.store.order(order.ID).Status)
	assert.Empty(t, h.store.usedStock(order.ID))
}

func TestMercadoPagoWebhookLooksUpStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.MercadoPago)
	body := []byte(fmt.Sprintf(`{"type":"payment","data":{"id":"pay-%s"}}`, order.ID))

	// Still pending at the provider.
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))
	assert.Equal(t, models.OrderStatusPending, h.store.order(order.ID).Status)

	h.mp.statuses["pay-"+order.ID] = &payment.PaymentStatus{
		PaymentID: "pay-" + order.ID, RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: order.ID,
	}
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))
	assert.Equal(t, models.OrderStatusDelivered, h.store.order(order.ID).Status)
}

func TestRepeatedPixRequestStillDeliversFirstPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	h.mp.pixIDs = []string{"mp-1", "mp-2"}
	initiate(t, h, order, payment.MercadoPago)
	initiate(t, h, order, payment.MercadoPago)

	h.mp.statuses["mp-1"] = &payment.PaymentStatus{
		PaymentID: "mp-1", RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: order.ID,
	}
	body := []byte(`{"type":"payment","data":{"id":"mp-1"}}`)
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))

	stored := h.store.order(order.ID)
	assert.Equal(t, models.OrderStatusDelivered, stored.Status)
	assert.Equal(t, "mp-1", stored.PaymentID)
	assert.Len(t, h.store.usedStock(order.ID), 1)
}

func TestWebhookForSupersededPaymentResolvesByTransaction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.MercadoPago)

	_, err := h.store.CreateTransaction(ctx, &models.Transaction{
		UserID: "u1", OrderID: order.ID, Amount: order.TotalAmount, PaymentMethod: models.PaymentMethodPix,
		PaymentGateway: payment.MercadoPago, GatewayPaymentID: "mp-old", Status: models.PaymentStatusPending,
	})
	require.NoError(t, err)
	h.mp.statuses["mp-old"] = &payment.PaymentStatus{
		PaymentID: "mp-old", RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: order.ID,
	}

	body := []byte(`{"type":"payment","data":{"id":"mp-old"}}`)
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))

	stored := h.store.order(order.ID)
	assert.Equal(t, models.OrderStatusDelivered, stored.Status)
	assert.Equal(t, "mp-old", stored.PaymentID)
}

type failingSecretStore struct {
	*memStore
}

func (f failingSecretStore) GetConfig(ctx context.Context, guildID, key string) (string, error) {
	if key == models.ConfigMercadoPagoWebhookSecret {
		return "", errors.New("connection reset")
	}
	return f.memStore.GetConfig(ctx, guildID, key)
}

func TestWebhookSecretLookupFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	h.orchestrator.logger = zap.New(core)
	h.orchestrator.configs = failingSecretStore{h.store}

	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.MercadoPago)
	h.mp.statuses["pay-"+order.ID] = &payment.PaymentStatus{
		PaymentID: "pay-" + order.ID, RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: order.ID,
	}

	body := []byte(fmt.Sprintf(`{"type":"payment","data":{"id":"pay-%s"}}`, order.ID))
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))

	assert.Equal(t, 1, logs.FilterMessage("Failed to load webhook secret").Len())
	assert.Zero(t, logs.FilterMessage("Webhook accepted without signature verification").Len())
	assert.Equal(t, models.OrderStatusDelivered, h.store.order(order.ID).Status)
}

func TestMercadoPagoReferenceMismatchIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.MercadoPago)
	h.mp.statuses["pay-"+order.ID] = &payment.PaymentStatus{
		PaymentID: "pay-" + order.ID, RawStatus: "approved", Status: payment.StatusApproved, ExternalReference: "someone-else",
	}

	body := []byte(fmt.Sprintf(`{"type":"payment","data":{"id":"pay-%s"}}`, order.ID))
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.MercadoPago, nil, body))
	assert.Equal(t, models.OrderStatusPending, h.store.order(order.ID).Status)
}

func TestNonPaymentTopicIsIgnored(t *testing.T) {
	h := newHarness(t)
	err := h.orchestrator.HandleWebhook(context.Background(), payment.MercadoPago, nil,
		[]byte(`{"type":"merchant_order","data":{"id":"1"}}`))
	assert.NoError(t, err)
}

func TestRejectedPaymentCancelsOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.AbacatePay)

	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(order, "failed")))

	stored := h.store.order(order.ID)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.CancelReasonPaymentRejected, stored.CancelReason)
	assert.Equal(t, models.PaymentStatusRejected, stored.PaymentStatus)
	assert.Equal(t, []NotificationKind{KindPaymentFailed}, h.notifier.kinds())

	// A later approval for the same order is flagged for refund, never delivered.
	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(order, "paid")))
	stored = h.store.order(order.ID)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusApproved, stored.PaymentStatus)
	assert.Empty(t, h.store.usedStock(order.ID))
	assert.Contains(t, h.events.types(), models.EventTypeOrderPaidAfterCancel)
}

func TestExpiredCancelledPaymentKeepsOrderCancelled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)
	initiate(t, h, order, payment.AbacatePay)

	require.NoError(t, h.orchestrator.HandleWebhook(ctx, payment.AbacatePay, nil, abacateBody(order, "expired")))
	assert.Equal(t, models.CancelReasonPaymentCancelled, h.store.order(order.ID).CancelReason)
}

func TestConfirmPaymentWhileLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)

	_, ok, err := h.cache.AcquireLock(ctx, "payment:"+order.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = h.orchestrator.ConfirmPayment(ctx, order.ID, "pay-1", payment.StatusApproved)
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	assert.Equal(t, models.OrderStatusPending, h.store.order(order.ID).Status)
}

func TestConfirmPendingIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := createOrder(t, h, h.store.addProduct(testGuild, "X", "1.00", 1).ID, 1)

	require.NoError(t, h.orchestrator.ConfirmPayment(ctx, order.ID, "pay-1", payment.StatusPending))
	assert.Equal(t, models.OrderStatusPending, h.store.order(order.ID).Status)
}
