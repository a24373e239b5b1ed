package service

import (
	"testing"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
)

const testGuild = "guild-1"

type harness struct {
	store    *memStore
	cache    *memCache
	notifier *recordingNotifier
	events   *recordingEvents
	mp       *fakeGateway
	abacate  *fakeGateway

	orders       *OrderService
	payments     *PaymentService
	orchestrator *PaymentOrchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    newMemStore(),
		cache:    newMemCache(),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
		mp:       &fakeGateway{name: payment.MercadoPago, statuses: map[string]*payment.PaymentStatus{}},
		abacate:  &fakeGateway{name: payment.AbacatePay, statuses: map[string]*payment.PaymentStatus{}},
	}
	resolver := &fakeResolver{gateways: map[string]*fakeGateway{
		payment.MercadoPago: h.mp,
		payment.AbacatePay:  h.abacate,
	}}
	h.store.setConfig(testGuild, map[string]string{models.ConfigWebhookURL: "https://bot.example.com/"})

	h.orders = NewOrderService(h.store, h.cache, h.events, h.notifier, OrderOptions{
		Timeout:     10 * time.Minute,
		MaxQuantity: 10,
	})
	h.payments = NewPaymentService(h.orders, h.store, h.store, resolver, PaymentOptions{
		OrderTimeout:      10 * time.Minute,
		PixExpiration:     30 * time.Minute,
		DefaultPayerEmail: "cliente@exemplo.com",
		DefaultPayerCPF:   "00000000000",
	})
	h.orchestrator = NewPaymentOrchestrator(h.orders, h.store, h.store, resolver, h.cache, h.notifier,
		OrchestratorOptions{LockTimeout: time.Second})
	return h
}

// at shifts the clock of the time-aware services.
func (h *harness) at(now time.Time) {
	clock := func() time.Time { return now }
	h.orders.now = clock
	h.payments.now = clock
}
