package service

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"

	"github.com/shopspring/decimal"
)

// memStore emulates the Postgres store, including the single-transaction
// stock claim, behind one mutex.
type memStore struct {
	mu sync.Mutex

	products     map[int64]*models.Product
	stock        []*models.StockItem
	orders       map[string]*models.Order
	transactions []models.Transaction
	config       map[string]map[string]string
	tickets      []*models.Ticket
	ratings      map[int64]models.TicketRating
	modLogs      []models.ModLog
	users        map[string]models.User
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*models.Product),
		orders:   make(map[string]*models.Order),
		config:   make(map[string]map[string]string),
		ratings:  make(map[int64]models.TicketRating),
		users:    make(map[string]models.User),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addProduct(guildID, name, price string, stock int) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &models.Product{
		ID:      m.id(),
		GuildID: guildID,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Active:  true,
	}
	m.products[p.ID] = p
	base := time.Now().Add(-time.Hour)
	for i := 0; i < stock; i++ {
		m.stock = append(m.stock, &models.StockItem{
			ID:        m.id(),
			ProductID: p.ID,
			Content:   name + "-key-" + string(rune('A'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return p
}

func (m *memStore) usedStock(orderID string) []models.StockItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StockItem
	for _, s := range m.stock {
		if s.OrderID != nil && *s.OrderID == orderID {
			out = append(out, *s)
		}
	}
	return out
}

func (m *memStore) order(id string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func (m *memStore) setConfig(guildID string, kv map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config[guildID] == nil {
		m.config[guildID] = make(map[string]string)
	}
	for k, v := range kv {
		m.config[guildID][k] = v
	}
}

// catalog

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.Active = true
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.products[p.ID]
	if !ok || !cur.Active {
		return store.ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) DeactivateProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || !p.Active {
		return store.ErrNotFound
	}
	p.Active = false
	return nil
}

func (m *memStore) ListProducts(_ context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductListing
	for _, p := range m.products {
		if p.GuildID != guildID || (activeOnly && !p.Active) {
			continue
		}
		l := models.ProductListing{Product: *p}
		for _, s := range m.stock {
			if s.ProductID == p.ID {
				if s.Used {
					l.SoldCount++
				} else {
					l.StockCount++
				}
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) AddStock(_ context.Context, productID int64, contents []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range contents {
		m.stock = append(m.stock, &models.StockItem{ID: m.id(), ProductID: productID, Content: c, CreatedAt: time.Now()})
	}
	return len(contents), nil
}

func (m *memStore) CountAvailableStock(_ context.Context, productID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.stock {
		if s.ProductID == productID && !s.Used {
			n++
		}
	}
	return n, nil
}

func (m *memStore) StockSummary(_ context.Context, productID int64) (*models.StockSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := &models.StockSummary{ProductID: productID}
	for _, s := range m.stock {
		if s.ProductID != productID {
			continue
		}
		if s.Used {
			sum.Used++
		} else {
			sum.Available++
		}
	}
	return sum, nil
}

func (m *memStore) UpsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

// orders

func (m *memStore) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetOrderByPayment(_ context.Context, gateway, paymentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentGateway == gateway && o.PaymentID == paymentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetOrderByTransaction(_ context.Context, gateway, paymentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.PaymentGateway == gateway && t.GatewayPaymentID == paymentID {
			if o, ok := m.orders[t.OrderID]; ok {
				cp := *o
				return &cp, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if (f.GuildID == "" || o.GuildID == f.GuildID) && (f.Status == "" || o.Status == f.Status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) OrderStats(_ context.Context, guildID string) (*models.OrderStats, error) {
	return &models.OrderStats{}, nil
}

func (m *memStore) AttachPayment(_ context.Context, orderID string, p store.PaymentAttachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusPending || o.PaymentID != "" {
		return store.ErrStatusChanged
	}
	o.PaymentID, o.PaymentGateway, o.PaymentMethod = p.PaymentID, p.Gateway, p.Method
	o.PaymentStatus = models.PaymentStatusPending
	o.QRCode, o.PixCopyPaste = p.QRCode, p.PixCopyPaste
	return nil
}

func (m *memStore) CancelOrder(_ context.Context, orderID, reason, paymentStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusCancelled
	o.CancelReason = reason
	if paymentStatus != "" {
		o.PaymentStatus = paymentStatus
	}
	return true, nil
}

func (m *memStore) ExpirePendingOrders(_ context.Context, before time.Time, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if len(out) == limit {
			break
		}
		if o.Status == models.OrderStatusPending && o.CreatedAt.Before(before) {
			o.Status = models.OrderStatusCancelled
			o.CancelReason = models.CancelReasonTimeout
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) DeliverOrder(_ context.Context, orderID, paymentID string) (*models.Order, []models.StockItem, error) {
	return m.claimAndSettle(orderID, paymentID, models.OrderStatusPending, models.OrderStatusDelivered)
}

func (m *memStore) FulfillOrder(_ context.Context, orderID string) (*models.Order, []models.StockItem, error) {
	return m.claimAndSettle(orderID, "", models.OrderStatusUnfulfilled, models.OrderStatusCompleted)
}

func (m *memStore) claimAndSettle(orderID, paymentID, from, to string) (*models.Order, []models.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if o.Status != from {
		cp := *o
		return &cp, nil, store.ErrStatusChanged
	}

	var free []*models.StockItem
	for _, s := range m.stock {
		if s.ProductID == o.ProductID && !s.Used {
			free = append(free, s)
		}
	}
	if len(free) < o.Quantity {
		cp := *o
		return &cp, nil, store.ErrStockExhausted
	}
	sort.Slice(free, func(i, j int) bool { return free[i].CreatedAt.Before(free[j].CreatedAt) })

	now := time.Now()
	items := make([]models.StockItem, 0, o.Quantity)
	for _, s := range free[:o.Quantity] {
		s.Used = true
		s.UsedBy = &o.UserID
		s.UsedAt = &now
		id := o.ID
		s.OrderID = &id
		items = append(items, *s)
	}

	o.Status = to
	o.PaymentStatus = models.PaymentStatusApproved
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	o.DeliveredAt = &now
	cp := *o
	return &cp, items, nil
}

func (m *memStore) MarkOrderUnfulfilled(_ context.Context, orderID, paymentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusPending {
		return nil, store.ErrStatusChanged
	}
	o.Status = models.OrderStatusUnfulfilled
	o.PaymentStatus = models.PaymentStatusApproved
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) MarkPaidAfterCancel(_ context.Context, orderID, paymentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusCancelled || o.PaymentStatus == models.PaymentStatusApproved {
		return nil, store.ErrStatusChanged
	}
	o.PaymentStatus = models.PaymentStatusApproved
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t *models.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.PaymentGateway == t.PaymentGateway && existing.GatewayPaymentID == t.GatewayPaymentID &&
			existing.Status == t.Status {
			return false, nil
		}
	}
	t.ID = m.id()
	m.transactions = append(m.transactions, *t)
	return true, nil
}

func (m *memStore) ListTransactions(_ context.Context, orderID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

// guild config

func (m *memStore) GetConfig(_ context.Context, guildID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config[guildID][key], nil
}

func (m *memStore) GetConfigMap(_ context.Context, guildID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.config[guildID] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SetConfig(_ context.Context, guildID, key, value string) error {
	m.setConfig(guildID, map[string]string{key: value})
	return nil
}

func (m *memStore) DeleteConfig(_ context.Context, guildID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.config[guildID], key)
	return nil
}

// tickets

func (m *memStore) CreateTicket(_ context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tickets {
		if existing.GuildID == t.GuildID && existing.UserID == t.UserID && existing.Status == models.TicketStatusOpen {
			return store.ErrConflict
		}
	}
	t.ID = m.id()
	t.Status = models.TicketStatusOpen
	t.CreatedAt = time.Now()
	cp := *t
	m.tickets = append(m.tickets, &cp)
	return nil
}

func (m *memStore) GetOpenTicketByUser(_ context.Context, guildID, userID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.GuildID == guildID && t.UserID == userID && t.Status == models.TicketStatusOpen {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetTicketByChannel(_ context.Context, channelID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.ChannelID == channelID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CloseTicket(_ context.Context, channelID, closedBy, reason string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.ChannelID == channelID && t.Status == models.TicketStatusOpen {
			now := time.Now()
			t.Status = models.TicketStatusClosed
			t.ClosedAt = &now
			t.ClosedBy = &closedBy
			t.CloseReason = &reason
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrStatusChanged
}

func (m *memStore) ReopenTicket(_ context.Context, channelID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *models.Ticket
	for _, t := range m.tickets {
		if t.ChannelID == channelID && t.Status == models.TicketStatusClosed && t.ChannelDeletedAt == nil {
			target = t
		}
	}
	if target == nil {
		return nil, store.ErrStatusChanged
	}
	for _, t := range m.tickets {
		if t != target && t.GuildID == target.GuildID && t.UserID == target.UserID && t.Status == models.TicketStatusOpen {
			return nil, store.ErrConflict
		}
	}
	target.Status = models.TicketStatusOpen
	target.ClosedAt, target.ClosedBy, target.CloseReason = nil, nil, nil
	cp := *target
	return &cp, nil
}

func (m *memStore) ListTicketsForPurge(_ context.Context, closedBefore time.Time, limit int) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ticket
	for _, t := range m.tickets {
		if t.Status == models.TicketStatusClosed && t.ChannelDeletedAt == nil && t.ClosedAt.Before(closedBefore) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) MarkChannelDeleted(_ context.Context, ticketID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.ID == ticketID {
			now := time.Now()
			t.ChannelDeletedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) AddRating(_ context.Context, r *models.TicketRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[r.TicketID] = *r
	return nil
}

func (m *memStore) TicketStats(_ context.Context, guildID string) (*models.TicketStats, error) {
	return &models.TicketStats{}, nil
}

// mod logs

func (m *memStore) AddModLog(_ context.Context, l *models.ModLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	m.modLogs = append(m.modLogs, *l)
	return nil
}

func (m *memStore) ListModLogs(_ context.Context, guildID, userID string, limit int) ([]models.ModLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModLog
	for _, l := range m.modLogs {
		if l.GuildID == guildID && l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) CountModLogs(_ context.Context, guildID, userID, action string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.modLogs {
		if l.GuildID == guildID && l.UserID == userID && l.Action == action {
			n++
		}
	}
	return n, nil
}

// memCache stands in for Redis: drafts, close proposals and locks.
type memCache struct {
	mu        sync.Mutex
	drafts    map[string]*models.OrderDraft
	proposals map[string]*models.CloseProposal
	locks     map[string]string
}

func newMemCache() *memCache {
	return &memCache{
		drafts:    make(map[string]*models.OrderDraft),
		proposals: make(map[string]*models.CloseProposal),
		locks:     make(map[string]string),
	}
}

func (c *memCache) SetDraft(_ context.Context, d *models.OrderDraft, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *d
	c.drafts[d.OrderID] = &cp
	return nil
}

func (c *memCache) GetDraft(_ context.Context, id string) (*models.OrderDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[id], nil
}

func (c *memCache) DeleteDraft(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, id)
	return nil
}

func (c *memCache) SaveCloseProposal(_ context.Context, p *models.CloseProposal, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.proposals[p.ChannelID] = &cp
	return nil
}

func (c *memCache) GetCloseProposal(_ context.Context, channelID string) (*models.CloseProposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proposals[channelID], nil
}

func (c *memCache) DeleteCloseProposal(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.proposals, channelID)
	return nil
}

func (c *memCache) AcquireLock(_ context.Context, name string, _ time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[name]; held {
		return "", false, nil
	}
	c.locks[name] = name + "-token"
	return name + "-token", true, nil
}

func (c *memCache) ReleaseLock(_ context.Context, name, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[name] == token {
		delete(c.locks, name)
	}
	return nil
}

type sentNotification struct {
	To string
	N  *Notification
}

type recordingNotifier struct {
	mu    sync.Mutex
	users []sentNotification
	posts []sentNotification
}

func (r *recordingNotifier) NotifyUser(_ context.Context, userID string, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, sentNotification{To: userID, N: n})
	return nil
}

func (r *recordingNotifier) PostToChannel(_ context.Context, channelID string, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, sentNotification{To: channelID, N: n})
	return nil
}

func (r *recordingNotifier) kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NotificationKind
	for _, s := range r.users {
		out = append(out, s.N.Kind)
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []*models.OrderEvent
}

func (r *recordingEvents) PublishOrderEvent(_ context.Context, e *models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventType
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeGateway is a scriptable payment.Gateway. PIX payment ids come from
// pixIDs in order when set, else pay-<order>. beforePix runs inside
// CreatePixPayment, while the gateway call is in flight.
type fakeGateway struct {
	name      string
	pixErr    error
	statuses  map[string]*payment.PaymentStatus
	verifyErr error
	refunded  []string
	pixCalls  int
	pixIDs    []string
	beforePix func()
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreatePixPayment(_ context.Context, req *payment.PixRequest) (*payment.PixPayment, error) {
	g.pixCalls++
	if g.beforePix != nil {
		g.beforePix()
	}
	if g.pixErr != nil {
		return nil, g.pixErr
	}
	id := "pay-" + req.ExternalID
	if len(g.pixIDs) > 0 {
		id, g.pixIDs = g.pixIDs[0], g.pixIDs[1:]
	}
	return &payment.PixPayment{
		PaymentID:    id,
		CopyPaste:    "00020126pix-" + req.ExternalID,
		QRCodeBase64: "qr",
		Status:       "pending",
	}, nil
}

func (g *fakeGateway) CreateCardPayment(_ context.Context, req *payment.CardRequest) (*payment.CardPayment, error) {
	return &payment.CardPayment{PaymentID: "card-" + req.ExternalID, Status: "in_process"}, nil
}

func (g *fakeGateway) GetPaymentStatus(_ context.Context, id string) (*payment.PaymentStatus, error) {
	if st, ok := g.statuses[id]; ok {
		return st, nil
	}
	return &payment.PaymentStatus{PaymentID: id, RawStatus: "pending", Status: payment.StatusPending}, nil
}

func (g *fakeGateway) Refund(_ context.Context, id string) error {
	g.refunded = append(g.refunded, id)
	return nil
}

func (g *fakeGateway) TestConnection(context.Context) (string, error) { return "ok", nil }

func (g *fakeGateway) VerifyWebhook(http.Header, *payment.Notification) error { return g.verifyErr }

type fakeResolver struct {
	gateways map[string]*fakeGateway
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, name string) (payment.Gateway, error) {
	if name == "" {
		name = payment.MercadoPago
	}
	gw, ok := r.gateways[name]
	if !ok {
		return nil, payment.ErrGatewayNotConfigured
	}
	return gw, nil
}

type fakeChannels struct {
	mu      sync.Mutex
	created []TicketChannelSpec
	deleted []string
	access  map[string]bool
	next    int
}

func (f *fakeChannels) CreateTicketChannel(_ context.Context, spec TicketChannelSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.created = append(f.created, spec)
	return "chan-" + string(rune('0'+f.next)), nil
}

func (f *fakeChannels) SetMemberWriteAccess(_ context.Context, channelID, userID string, allow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.access == nil {
		f.access = make(map[string]bool)
	}
	f.access[channelID+"/"+userID] = allow
	return nil
}

func (f *fakeChannels) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

type fakeModerator struct {
	timeouts []time.Duration
	kicked   []string
	banned   []string
	purged   int
}

func (f *fakeModerator) TimeoutMember(_ context.Context, _, _ string, d time.Duration, _ string) error {
	f.timeouts = append(f.timeouts, d)
	return nil
}

func (f *fakeModerator) RemoveTimeout(context.Context, string, string) error { return nil }

func (f *fakeModerator) KickMember(_ context.Context, _, userID, _ string) error {
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeModerator) BanMember(_ context.Context, _, userID, _ string, _ int) error {
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeModerator) UnbanMember(context.Context, string, string) error { return nil }

func (f *fakeModerator) PurgeMessages(_ context.Context, _ string, count int) (int, error) {
	f.purged += count
	return count, nil
}
