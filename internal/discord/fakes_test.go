package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/automod"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
)

// fakeSession records the REST calls the adapter makes.
type fakeSession struct {
	mu sync.Mutex

	dms          []string
	embeds       map[string][]*discordgo.MessageEmbed
	sent         map[string][]*discordgo.MessageSend
	deleted      []string
	bulkDeleted  [][]string
	history      []*discordgo.Message
	created      []discordgo.GuildChannelCreateData
	permissions  []string
	timeouts     map[string]*time.Time
	kicked       []string
	banned       map[string]int
	unbanned     []string
	responded    []*discordgo.InteractionResponse
	edits        []*discordgo.WebhookEdit
	channelPerms int64

	deleteChannelErr error
	deleteMessageErr error
	sendErr          error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		embeds:   map[string][]*discordgo.MessageEmbed{},
		sent:     map[string][]*discordgo.MessageSend{},
		timeouts: map[string]*time.Time{},
		banned:   map[string]int{},
	}
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.embeds[channelID] = append(f.embeds[channelID], embed)
	return &discordgo.Message{ID: "msg-" + channelID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: "msg-" + channelID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteMessageErr != nil {
		return f.deleteMessageErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) ChannelMessages(_ string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeSession) ChannelMessagesBulkDelete(_ string, messages []string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeleted = append(f.bulkDeleted, messages)
	return nil
}

func (f *fakeSession) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: "chan-" + data.Name}, nil
}

func (f *fakeSession) ChannelPermissionSet(channelID, targetID string, _ discordgo.PermissionOverwriteType, allow, deny int64, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = append(f.permissions, channelID+":"+targetID)
	f.channelPerms = allow &^ deny
	return nil
}

func (f *fakeSession) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.deleteChannelErr != nil {
		return nil, f.deleteChannelErr
	}
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeSession) GuildMemberTimeout(_ string, userID string, until *time.Time, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts[userID] = until
	return nil
}

func (f *fakeSession) GuildMemberDeleteWithReason(_, userID, _ string, _ ...discordgo.RequestOption) error {
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeSession) GuildBanCreateWithReason(_, userID, _ string, days int, _ ...discordgo.RequestOption) error {
	f.banned[userID] = days
	return nil
}

func (f *fakeSession) GuildBanDelete(_, userID string, _ ...discordgo.RequestOption) error {
	f.unbanned = append(f.unbanned, userID)
	return nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responded = append(f.responded, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) UserChannelPermissions(_, _ string, _ ...discordgo.RequestOption) (int64, error) {
	return f.channelPerms, nil
}

func (f *fakeSession) lastEdit() *discordgo.WebhookEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return nil
	}
	return f.edits[len(f.edits)-1]
}

// stubOrders serves a single order.
type stubOrders struct {
	created   *service.CreateOrderRequest
	draft     *models.OrderDraft
	cancelled []string
	err       error
}

func (s *stubOrders) CreateOrder(_ context.Context, req *service.CreateOrderRequest) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = req
	return &models.Order{ID: s.draft.OrderID, UserID: req.UserID, Status: models.OrderStatusPending}, nil
}

func (s *stubOrders) LookupOrder(_ context.Context, orderID string) (*models.OrderDraft, error) {
	if s.draft == nil || s.draft.OrderID != orderID {
		return nil, service.ErrOrderNotFound
	}
	return s.draft, nil
}

func (s *stubOrders) CancelOrder(_ context.Context, orderID, requesterID string) error {
	if s.draft != nil && s.draft.UserID != requesterID {
		return service.ErrNotOrderOwner
	}
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func (s *stubOrders) OrderStats(context.Context, string) (*models.OrderStats, error) {
	return &models.OrderStats{}, nil
}

type stubTickets struct {
	created  []string
	rated    map[string]int
	proposal *models.CloseProposal
}

func (s *stubTickets) CreateTicket(_ context.Context, guildID, userID, userName, category string) (*models.Ticket, error) {
	s.created = append(s.created, userName)
	if category == "" {
		category = "suporte"
	}
	return &models.Ticket{GuildID: guildID, UserID: userID, ChannelID: "ticket-chan", Category: category, Priority: "normal"}, nil
}

func (s *stubTickets) ProposeClose(_ context.Context, channelID, actorID, reason string) (*models.CloseProposal, error) {
	s.proposal = &models.CloseProposal{ChannelID: channelID, ProposedBy: actorID, Reason: reason}
	return s.proposal, nil
}

func (s *stubTickets) ConfirmClose(_ context.Context, channelID, _ string) (*models.Ticket, error) {
	if s.proposal == nil {
		return nil, service.ErrNoCloseProposal
	}
	now := time.Now()
	return &models.Ticket{ChannelID: channelID, UserID: "buyer", Status: models.TicketStatusClosed, ClosedAt: &now}, nil
}

func (s *stubTickets) CancelClose(context.Context, string) error {
	s.proposal = nil
	return nil
}

func (s *stubTickets) ReopenTicket(_ context.Context, channelID, _ string) (*models.Ticket, error) {
	return &models.Ticket{ChannelID: channelID, UserID: "buyer", Status: models.TicketStatusOpen}, nil
}

func (s *stubTickets) RateTicket(_ context.Context, _, userID string, rating int, _ string) error {
	if s.rated == nil {
		s.rated = map[string]int{}
	}
	s.rated[userID] = rating
	return nil
}

func (s *stubTickets) TicketStats(context.Context, string) (*models.TicketStats, error) {
	return &models.TicketStats{Open: 2, Closed: 5, Ratings: 4, AverageRating: 4.5}, nil
}

type stubConfig struct {
	values map[string]string
}

func (s *stubConfig) Get(context.Context, string) (map[string]string, error) {
	return s.values, nil
}

func (s *stubConfig) Set(_ context.Context, _, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *stubConfig) SetMany(_ context.Context, _ string, values map[string]string) error {
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

type stubUsers struct {
	seen []string
}

func (s *stubUsers) UpsertUser(_ context.Context, u *models.User) error {
	s.seen = append(s.seen, u.ID)
	return nil
}

type stubChecker struct {
	got *automod.Message
}

func (s *stubChecker) Check(_ context.Context, msg *automod.Message) automod.Rule {
	s.got = msg
	return ""
}

// Helpers building gateway events.

func member(userID string, perms int64) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}, Permissions: perms}
}

func commandEvent(name string, m *discordgo.Member, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func buttonEvent(customID string, m *discordgo.Member) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    m,
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func idOpt(name string, t discordgo.ApplicationCommandOptionType, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: t, Value: id}
}
