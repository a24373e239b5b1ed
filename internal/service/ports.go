package service

import (
	"context"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
)

// OrderStore is the persistence the order lifecycle needs. *store.Store
// implements it.
type OrderStore interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CountAvailableStock(ctx context.Context, productID int64) (int, error)
	UpsertUser(ctx context.Context, u *models.User) error

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPayment(ctx context.Context, gateway, paymentID string) (*models.Order, error)
	GetOrderByTransaction(ctx context.Context, gateway, paymentID string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	OrderStats(ctx context.Context, guildID string) (*models.OrderStats, error)

	AttachPayment(ctx context.Context, orderID string, p store.PaymentAttachment) error
	CancelOrder(ctx context.Context, orderID, reason, paymentStatus string) (bool, error)
	ExpirePendingOrders(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
	DeliverOrder(ctx context.Context, orderID, paymentID string) (*models.Order, []models.StockItem, error)
	FulfillOrder(ctx context.Context, orderID string) (*models.Order, []models.StockItem, error)
	MarkOrderUnfulfilled(ctx context.Context, orderID, paymentID string) (*models.Order, error)
	MarkPaidAfterCancel(ctx context.Context, orderID, paymentID string) (*models.Order, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) (bool, error)
	ListTransactions(ctx context.Context, orderID string) ([]models.Transaction, error)
}

type ConfigStore interface {
	GetConfig(ctx context.Context, guildID, key string) (string, error)
	GetConfigMap(ctx context.Context, guildID string) (map[string]string, error)
	SetConfig(ctx context.Context, guildID, key, value string) error
	DeleteConfig(ctx context.Context, guildID, key string) error
}

type CatalogStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeactivateProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error)
	AddStock(ctx context.Context, productID int64, contents []string) (int, error)
	StockSummary(ctx context.Context, productID int64) (*models.StockSummary, error)
}

type TicketStore interface {
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetOpenTicketByUser(ctx context.Context, guildID, userID string) (*models.Ticket, error)
	GetTicketByChannel(ctx context.Context, channelID string) (*models.Ticket, error)
	CloseTicket(ctx context.Context, channelID, closedBy, reason string) (*models.Ticket, error)
	ReopenTicket(ctx context.Context, channelID string) (*models.Ticket, error)
	ListTicketsForPurge(ctx context.Context, closedBefore time.Time, limit int) ([]models.Ticket, error)
	MarkChannelDeleted(ctx context.Context, ticketID int64) error
	AddRating(ctx context.Context, r *models.TicketRating) error
	TicketStats(ctx context.Context, guildID string) (*models.TicketStats, error)
}

type ModLogStore interface {
	AddModLog(ctx context.Context, l *models.ModLog) error
	ListModLogs(ctx context.Context, guildID, userID string, limit int) ([]models.ModLog, error)
	CountModLogs(ctx context.Context, guildID, userID, action string) (int, error)
}

// EventPublisher is satisfied by *broker.EventPublisher.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
}

// DraftCache holds non-authoritative order projections. A miss returns nil, nil.
type DraftCache interface {
	SetDraft(ctx context.Context, draft *models.OrderDraft, ttl time.Duration) error
	GetDraft(ctx context.Context, orderID string) (*models.OrderDraft, error)
	DeleteDraft(ctx context.Context, orderID string) error
}

type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, name, token string) error
}

type ProposalStore interface {
	SaveCloseProposal(ctx context.Context, p *models.CloseProposal, ttl time.Duration) error
	GetCloseProposal(ctx context.Context, channelID string) (*models.CloseProposal, error)
	DeleteCloseProposal(ctx context.Context, channelID string) error
}

// GatewayResolver is satisfied by *payment.Factory.
type GatewayResolver interface {
	Resolve(ctx context.Context, guildID, name string) (payment.Gateway, error)
}

type NotificationKind string

const (
	KindDelivery      NotificationKind = "delivery"
	KindPaymentFailed NotificationKind = "payment_failed"
	KindCancelled     NotificationKind = "cancelled"
	KindExpired       NotificationKind = "expired"
	KindUnfulfilled   NotificationKind = "unfulfilled"
	KindModeration    NotificationKind = "moderation"
	KindSale          NotificationKind = "sale"
	KindAlert         NotificationKind = "alert"
)

type NotificationField struct {
	Name   string
	Value  string
	Inline bool
}

// Notification is a rendered-agnostic message; the chat adapter turns it
// into an embed.
type Notification struct {
	Kind        NotificationKind
	Title       string
	Description string
	Fields      []NotificationField
}

// Notifier delivers messages out of band. Callers treat failures as
// best-effort and only log them.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, n *Notification) error
	PostToChannel(ctx context.Context, channelID string, n *Notification) error
}

// TicketChannelSpec describes the private channel opened for a ticket.
type TicketChannelSpec struct {
	GuildID       string
	UserID        string
	Name          string
	ParentID      string
	SupportRoleID string
}

type ChannelManager interface {
	CreateTicketChannel(ctx context.Context, spec TicketChannelSpec) (channelID string, err error)
	SetMemberWriteAccess(ctx context.Context, channelID, userID string, allow bool) error
	// DeleteChannel treats an already missing channel as success.
	DeleteChannel(ctx context.Context, channelID string) error
}

type Moderator interface {
	TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
	RemoveTimeout(ctx context.Context, guildID, userID string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error
	UnbanMember(ctx context.Context, guildID, userID string) error
	PurgeMessages(ctx context.Context, channelID string, count int) (int, error)
}
