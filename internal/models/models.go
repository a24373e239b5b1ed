package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending     = "pending"
	OrderStatusCancelled   = "cancelled"
	OrderStatusDelivered   = "delivered"
	OrderStatusCompleted   = "completed"
	OrderStatusUnfulfilled = "completed_unfulfilled"
)

// Payment statuses as stored on the order and transaction rows.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusRefunded  = "refunded"
)

const (
	PaymentMethodPix  = "pix"
	PaymentMethodCard = "card"
)

// Cancellation reasons recorded in orders.cancel_reason.
const (
	CancelReasonUser              = "user"
	CancelReasonTimeout           = "timeout"
	CancelReasonInsufficientStock = "insufficient_stock"
	CancelReasonPaymentRejected   = "payment_rejected"
	CancelReasonPaymentCancelled  = "payment_cancelled"
	CancelReasonOperator          = "operator"
)

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

const DefaultEmbedColor = "#0099ff"

type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Avatar    string    `db:"avatar" json:"avatar"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Product struct {
	ID          int64           `db:"id" json:"id"`
	GuildID     string          `db:"guild_id" json:"guild_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Category    string          `db:"category" json:"category"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	EmbedColor  string          `db:"embed_color" json:"embed_color"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductListing is a product with its derived stock counters.
type ProductListing struct {
	Product
	StockCount int `db:"stock_count" json:"stock_count"`
	SoldCount  int `db:"sold_count" json:"sold_count"`
}

// StockItem is one redeemable unit of a product. Used flips false->true once.
type StockItem struct {
	ID        int64      `db:"id" json:"id"`
	ProductID int64      `db:"product_id" json:"product_id"`
	Content   string     `db:"content" json:"-"`
	Used      bool       `db:"used" json:"used"`
	UsedBy    *string    `db:"used_by" json:"used_by,omitempty"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	OrderID   *string    `db:"order_id" json:"order_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type StockSummary struct {
	ProductID int64 `db:"product_id" json:"product_id"`
	Available int   `db:"available" json:"available"`
	Used      int   `db:"used" json:"used"`
}

type Order struct {
	ID             string          `db:"id" json:"id"`
	GuildID        string          `db:"guild_id" json:"guild_id"`
	UserID         string          `db:"user_id" json:"user_id"`
	UserName       string          `db:"user_name" json:"user_name"`
	UserEmail      string          `db:"user_email" json:"-"`
	UserCPF        string          `db:"user_cpf" json:"-"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	ProductName    string          `db:"product_name" json:"product_name"`
	Quantity       int             `db:"quantity" json:"quantity"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	PaymentGateway string          `db:"payment_gateway" json:"payment_gateway"`
	PaymentID      string          `db:"payment_id" json:"payment_id"`
	PaymentStatus  string          `db:"payment_status" json:"payment_status"`
	QRCode         string          `db:"qr_code" json:"-"`
	PixCopyPaste   string          `db:"pix_copy_paste" json:"pix_copy_paste,omitempty"`
	Status         string          `db:"status" json:"status"`
	CancelReason   string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	DeliveredAt    *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether no lifecycle operation may move the order again.
// Unfulfilled orders are terminal for the lifecycle; only an operator
// fulfilment moves them to completed.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusCancelled, OrderStatusDelivered, OrderStatusCompleted, OrderStatusUnfulfilled:
		return true
	}
	return false
}

// ExpiresAt is the moment a pending order becomes eligible for auto-cancel.
func (o *Order) ExpiresAt(timeout time.Duration) time.Time {
	return o.CreatedAt.Add(timeout)
}

// OrderDraft is the transient projection cached while the payment buttons
// are on screen. The orders row stays authoritative.
type OrderDraft struct {
	OrderID     string          `json:"order_id"`
	GuildID     string          `json:"guild_id"`
	UserID      string          `json:"user_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

type OrderStats struct {
	Total       int             `db:"total" json:"total"`
	Pending     int             `db:"pending" json:"pending"`
	Delivered   int             `db:"delivered" json:"delivered"`
	Completed   int             `db:"completed" json:"completed"`
	Cancelled   int             `db:"cancelled" json:"cancelled"`
	Unfulfilled int             `db:"unfulfilled" json:"unfulfilled"`
	RefundDue   int             `db:"refund_due" json:"refund_due"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

type Transaction struct {
	ID               int64           `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	PaymentGateway   string          `db:"payment_gateway" json:"payment_gateway"`
	GatewayPaymentID string          `db:"gateway_payment_id" json:"gateway_payment_id"`
	Status           string          `db:"status" json:"status"`
	WebhookData      []byte          `db:"webhook_data" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

type Ticket struct {
	ID               int64      `db:"id" json:"id"`
	GuildID          string     `db:"guild_id" json:"guild_id"`
	ChannelID        string     `db:"channel_id" json:"channel_id"`
	UserID           string     `db:"user_id" json:"user_id"`
	Category         string     `db:"category" json:"category"`
	Status           string     `db:"status" json:"status"`
	Priority         string     `db:"priority" json:"priority"`
	AssignedTo       *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	ClosedAt         *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	ClosedBy         *string    `db:"closed_by" json:"closed_by,omitempty"`
	CloseReason      *string    `db:"close_reason" json:"close_reason,omitempty"`
	ChannelDeletedAt *time.Time `db:"channel_deleted_at" json:"channel_deleted_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// DeleteAfter is when a closed ticket's channel may be removed.
func (t *Ticket) DeleteAfter(retention time.Duration) time.Time {
	if t.ClosedAt == nil {
		return time.Time{}
	}
	return t.ClosedAt.Add(retention)
}

// CloseProposal is the first half of the two-step ticket close.
type CloseProposal struct {
	ChannelID  string    `json:"channel_id"`
	ProposedBy string    `json:"proposed_by"`
	Reason     string    `json:"reason"`
	ProposedAt time.Time `json:"proposed_at"`
}

type TicketRating struct {
	ID        int64     `db:"id" json:"id"`
	TicketID  int64     `db:"ticket_id" json:"ticket_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Feedback  string    `db:"feedback" json:"feedback"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TicketStats struct {
	Open          int     `db:"open" json:"open"`
	Closed        int     `db:"closed" json:"closed"`
	Ratings       int     `db:"ratings" json:"ratings"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
}

// Moderation actions stored in mod_logs.action.
const (
	ModActionWarn   = "warn"
	ModActionMute   = "mute"
	ModActionUnmute = "unmute"
	ModActionKick   = "kick"
	ModActionBan    = "ban"
	ModActionUnban  = "unban"
	ModActionClear  = "clear"
)

type ModLog struct {
	ID              int64     `db:"id" json:"id"`
	GuildID         string    `db:"guild_id" json:"guild_id"`
	UserID          string    `db:"user_id" json:"user_id"`
	ModeratorID     string    `db:"moderator_id" json:"moderator_id"`
	Action          string    `db:"action" json:"action"`
	Reason          string    `db:"reason" json:"reason"`
	DurationSeconds int64     `db:"duration_seconds" json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
