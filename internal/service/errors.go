package service

import (
	"errors"
	"fmt"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidProductName      = errors.New("product name is required")
	ErrInvalidColor            = errors.New("invalid embed color, expected #RRGGBB")
	ErrInvalidPrice            = errors.New("price must be greater than zero")
	ErrEmptyStock              = errors.New("no stock items given")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrWebhookURLNotConfigured = errors.New("webhook url not configured")
	ErrOrderNotCancellable     = errors.New("order can no longer be cancelled")
	ErrOrderNotPending         = errors.New("order is not pending")
	ErrOrderExpired            = errors.New("order expired")
	ErrOrderNotUnfulfilled     = errors.New("order is not awaiting manual fulfilment")
	ErrOrderNotPaid            = errors.New("order has no gateway payment")
	ErrNotOrderOwner           = errors.New("order belongs to another user")
	ErrCardDataRequired        = errors.New("card data required")
	ErrPaymentInProgress       = errors.New("payment confirmation already in progress")
	ErrPaymentAlreadyCreated   = errors.New("order already has a payment with another gateway or method")
	ErrDuplicateOpenTicket     = errors.New("user already has an open ticket")
	ErrTicketNotOpen           = errors.New("ticket is not open")
	ErrTicketNotClosed         = errors.New("ticket is not closed")
	ErrTicketChannelDeleted    = errors.New("ticket channel was already deleted")
	ErrNotTicketOwner          = errors.New("ticket belongs to another user")
	ErrNoCloseProposal         = errors.New("no pending close request")
	ErrInvalidRating           = errors.New("rating must be between 1 and 5")
	ErrInvalidMessageCount     = errors.New("message count must be between 1 and 100")
	ErrInvalidDuration         = errors.New("invalid duration")
	ErrUnknownConfigKey        = errors.New("unknown config key")
	ErrInvalidConfigValue      = errors.New("invalid config value")
)

// Gateway errors surface unchanged so callers need a single import.
var (
	ErrGatewayNotConfigured = payment.ErrGatewayNotConfigured
	ErrUnsupportedGateway   = payment.ErrUnsupportedGateway
	ErrUnsupportedMethod    = payment.ErrUnsupportedMethod
	ErrInvalidSignature     = payment.ErrInvalidSignature
	ErrMalformedPayload     = payment.ErrMalformedPayload
)

// InsufficientStockError reports how much stock was left when an order or a
// payment was refused.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// DuplicateTicketError points at the ticket the user already has open.
type DuplicateTicketError struct {
	ChannelID string
}

func (e *DuplicateTicketError) Error() string {
	return fmt.Sprintf("user already has an open ticket in channel %s", e.ChannelID)
}

func (e *DuplicateTicketError) Is(target error) bool {
	return target == ErrDuplicateOpenTicket
}
