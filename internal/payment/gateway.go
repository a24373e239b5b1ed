// Package payment holds the HTTP clients for the supported PIX gateways and
// the factory that resolves a guild's configured gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MercadoPago = "mercadopago"
	AbacatePay  = "abacatepay"
)

// Supported lists the gateway names in resolution preference order.
var Supported = []string{MercadoPago, AbacatePay}

func IsSupported(name string) bool {
	for _, n := range Supported {
		if n == name {
			return true
		}
	}
	return false
}

var (
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
	ErrUnsupportedGateway   = errors.New("unsupported payment gateway")
	ErrUnsupportedMethod    = errors.New("payment method not supported by gateway")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
)

// APIError is a non-2xx answer from a gateway.
type APIError struct {
	Gateway    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status=%d: %s", e.Gateway, e.StatusCode, e.Message)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Status is the gateway-neutral payment outcome.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
)

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type PixRequest struct {
	Amount      decimal.Decimal
	Description string
	ExternalID  string
	PayerName   string
	PayerEmail  string
	PayerCPF    string
	ExpiresAt   time.Time
	WebhookURL  string
}

type PixPayment struct {
	PaymentID    string
	QRCode       string
	QRCodeBase64 string
	CopyPaste    string
	ExpiresAt    time.Time
	Status       string
}

// CardDetails carries a tokenized card; raw card numbers never reach us.
type CardDetails struct {
	Token           string
	Installments    int
	PaymentMethodID string
	IssuerID        string
}

type CardRequest struct {
	PixRequest
	Card CardDetails
}

type CardPayment struct {
	PaymentID    string
	Status       string
	StatusDetail string
}

type PaymentStatus struct {
	PaymentID         string
	RawStatus         string
	Status            Status
	Amount            decimal.Decimal
	ExternalReference string
}

// Gateway is implemented by every provider client.
type Gateway interface {
	Name() string
	CreatePixPayment(ctx context.Context, req *PixRequest) (*PixPayment, error)
	CreateCardPayment(ctx context.Context, req *CardRequest) (*CardPayment, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error)
	Refund(ctx context.Context, paymentID string) error
	TestConnection(ctx context.Context) (string, error)
	// VerifyWebhook checks the delivery signature when the gateway has a
	// secret configured. It returns nil when no secret exists.
	VerifyWebhook(headers http.Header, n *Notification) error
}
