package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings configures the per-gateway circuit breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

// breakerGateway fails fast while a provider keeps erroring. Client errors
// (4xx) count as successes: the provider is up, the request was bad.
type breakerGateway struct {
	Gateway
	cb *gobreaker.CircuitBreaker[any]
}

func withBreaker(gw Gateway, name string, s BreakerSettings) Gateway {
	logger := util.Named("payment.breaker")
	failures := s.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isProviderHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			util.GatewayBreakerState.WithLabelValues(gw.Name()).Set(float64(to))
			logger.Warn("Gateway circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &breakerGateway{Gateway: gw, cb: cb}
}

func isProviderHealthy(err error) bool {
	if err == nil || errors.Is(err, ErrUnsupportedMethod) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	return false
}

func (b *breakerGateway) execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s temporarily unavailable: %w", b.Name(), err)
	}
	return res, err
}

func (b *breakerGateway) CreatePixPayment(ctx context.Context, req *PixRequest) (*PixPayment, error) {
	res, err := b.execute(func() (any, error) { return b.Gateway.CreatePixPayment(ctx, req) })
	if err != nil {
		return nil, err
	}
	return res.(*PixPayment), nil
}

func (b *breakerGateway) CreateCardPayment(ctx context.Context, req *CardRequest) (*CardPayment, error) {
	res, err := b.execute(func() (any, error) { return b.Gateway.CreateCardPayment(ctx, req) })
	if err != nil {
		return nil, err
	}
	return res.(*CardPayment), nil
}

func (b *breakerGateway) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	res, err := b.execute(func() (any, error) { return b.Gateway.GetPaymentStatus(ctx, paymentID) })
	if err != nil {
		return nil, err
	}
	return res.(*PaymentStatus), nil
}

func (b *breakerGateway) Refund(ctx context.Context, paymentID string) error {
	_, err := b.execute(func() (any, error) { return nil, b.Gateway.Refund(ctx, paymentID) })
	return err
}

func (b *breakerGateway) TestConnection(ctx context.Context) (string, error) {
	res, err := b.execute(func() (any, error) { return b.Gateway.TestConnection(ctx) })
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
