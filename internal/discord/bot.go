package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/automod"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"
)

type OrderFlow interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*models.Order, error)
	LookupOrder(ctx context.Context, orderID string) (*models.OrderDraft, error)
	CancelOrder(ctx context.Context, orderID, requesterID string) error
	OrderStats(ctx context.Context, guildID string) (*models.OrderStats, error)
}

type PaymentFlow interface {
	InitiatePayment(ctx context.Context, req *service.InitiatePaymentRequest) (*service.PaymentResult, error)
	ConfigureGateway(ctx context.Context, guildID string, in service.GatewaySettings) error
	TestGateway(ctx context.Context, guildID, gateway string) (string, error)
}

type CatalogFlow interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductUpdate) (*models.Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, guildID string, activeOnly bool) ([]models.ProductListing, error)
	AddStock(ctx context.Context, productID int64, raw string) (int, error)
	StockSummary(ctx context.Context, productID int64) (*models.StockSummary, error)
}

type TicketFlow interface {
	CreateTicket(ctx context.Context, guildID, userID, userName, category string) (*models.Ticket, error)
	ProposeClose(ctx context.Context, channelID, actorID, reason string) (*models.CloseProposal, error)
	ConfirmClose(ctx context.Context, channelID, actorID string) (*models.Ticket, error)
	CancelClose(ctx context.Context, channelID string) error
	ReopenTicket(ctx context.Context, channelID, actorID string) (*models.Ticket, error)
	RateTicket(ctx context.Context, channelID, userID string, rating int, feedback string) error
	TicketStats(ctx context.Context, guildID string) (*models.TicketStats, error)
}

type ModerationFlow interface {
	Warn(ctx context.Context, a service.ModAction) (int, bool, error)
	Mute(ctx context.Context, a service.ModAction) error
	Unmute(ctx context.Context, a service.ModAction) error
	Kick(ctx context.Context, a service.ModAction) error
	Ban(ctx context.Context, a service.ModAction, deleteMessageDays int) error
	Unban(ctx context.Context, a service.ModAction) error
	Clear(ctx context.Context, guildID, channelID, moderatorID string, count int) (int, error)
	History(ctx context.Context, guildID, userID string, limit int) ([]models.ModLog, error)
}

type ConfigFlow interface {
	Get(ctx context.Context, guildID string) (map[string]string, error)
	Set(ctx context.Context, guildID, key, value string) error
	SetMany(ctx context.Context, guildID string, values map[string]string) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, u *models.User) error
}

type MessageChecker interface {
	Check(ctx context.Context, msg *automod.Message) automod.Rule
}

// Client is the part of *discordgo.Session the bot calls directly.
type Client interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

type Deps struct {
	Orders     OrderFlow
	Payments   PaymentFlow
	Catalog    CatalogFlow
	Tickets    TicketFlow
	Moderation ModerationFlow
	Config     ConfigFlow
	Users      UserStore
	Automod    MessageChecker
	Platform   *Platform
}

type Options struct {
	TicketRetention time.Duration
	HandlerTimeout  time.Duration
}

type Bot struct {
	deps     Deps
	client   Client
	opts     Options
	commands map[string]commandHandler
	logger   *zap.Logger
}

// reply is what the user sees in the deferred interaction response.
type reply struct {
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
}

func embedReply(e ...*discordgo.MessageEmbed) *reply {
	return &reply{embeds: e}
}

// invocation is a normalized slash command or button press.
type invocation struct {
	interaction *discordgo.Interaction
	guildID     string
	channelID   string
	userID      string
	userName    string
	perms       int64
	sub         string
	opts        options
	component   Component
}

type commandHandler func(ctx context.Context, in *invocation) (*reply, error)

func NewBot(client Client, deps Deps, opts Options) *Bot {
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}
	b := &Bot{
		deps:   deps,
		client: client,
		opts:   opts,
		logger: util.Named("discord.bot"),
	}
	b.commands = map[string]commandHandler{
		"loja":                 b.handleShop,
		"comprar":              b.handleBuy,
		"pedido":               b.handleOrder,
		"vendas":               b.handleSales,
		"produto":              b.handleProduct,
		"estoque":              b.handleStock,
		"configurar-pagamento": b.handleConfigurePayment,
		"config":               b.handleConfig,
		"ticket":               b.handleTicket,
		"fechar-ticket":        b.handleCloseTicket,
		"reabrir-ticket":       b.handleReopenTicket,
		"ticket-stats":         b.handleTicketStats,
		"setup-tickets":        b.handleSetupTickets,
		"warn":                 b.handleWarn,
		"mute":                 b.handleMute,
		"unmute":               b.handleUnmute,
		"kick":                 b.handleKick,
		"ban":                  b.handleBan,
		"unban":                b.handleUnban,
		"clear":                b.handleClear,
		"modlogs":              b.handleModLogs,
	}
	return b
}

// Register attaches the gateway handlers and overwrites the application
// commands, for one guild when guildID is set and globally otherwise.
func (b *Bot) Register(s *discordgo.Session, appID, guildID string) error {
	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteraction)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onGuildMemberAdd)

	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.logger.Info("Commands registered", zap.Int("count", len(Commands())), zap.String("guild_id", guildID))
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if b.deps.Platform != nil && r.User != nil {
		b.deps.Platform.SetSelfID(r.User.ID)
	}
	b.logger.Info("Discord session ready", zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	in := newInvocation(ic.Interaction)

	var handler commandHandler
	var name string
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		data := ic.ApplicationCommandData()
		name = data.Name
		handler = b.commands[name]
		in.sub, in.opts = parseOptions(data.Options)
	case discordgo.InteractionMessageComponent:
		name = ic.MessageComponentData().CustomID
		c, ok := ParseCustomID(name)
		if ok {
			in.component = c
			handler = b.componentHandler(c.Action)
		}
	}
	if handler == nil {
		b.logger.Warn("Unhandled interaction", zap.String("name", name))
		return
	}

	err := b.client.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Error("Failed to acknowledge interaction", zap.String("name", name), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandlerTimeout)
	defer cancel()

	b.touchUser(ctx, ic.Interaction)

	r, err := handler(ctx, in)
	if err != nil {
		msg, expected := userMessage(err)
		if !expected {
			b.logger.Error("Interaction failed",
				zap.String("name", name),
				zap.String("user_id", in.userID),
				zap.String("guild_id", in.guildID),
				zap.Error(err))
		}
		r = embedReply(errorEmbed("Erro", msg))
	}
	if r == nil {
		r = embedReply(successEmbed("Pronto", "Solicitação concluída."))
	}
	b.edit(ic.Interaction, r)
}

func (b *Bot) componentHandler(action string) commandHandler {
	switch action {
	case ActionPay:
		return b.handlePayButton
	case ActionCancelOrder:
		return b.handleCancelOrderButton
	case ActionCreateTicket:
		return b.handleCreateTicketButton
	case ActionConfirmClose:
		return b.handleConfirmCloseButton
	case ActionCancelClose:
		return b.handleCancelCloseButton
	case ActionRate:
		return b.handleRateButton
	}
	return nil
}

func (b *Bot) edit(i *discordgo.Interaction, r *reply) {
	embeds := r.embeds
	components := r.components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	if _, err := b.client.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		b.logger.Error("Failed to send interaction response", zap.Error(err))
	}
}

// post sends a message visible to everyone in the channel.
func (b *Bot) post(ctx context.Context, channelID, content string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := b.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    content,
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) touchUser(ctx context.Context, i *discordgo.Interaction) {
	u := interactionUser(i)
	if u == nil || b.deps.Users == nil {
		return
	}
	if err := b.deps.Users.UpsertUser(ctx, &models.User{ID: u.ID, Username: u.Username, Avatar: u.Avatar}); err != nil {
		b.logger.Warn("Failed to upsert user", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" || b.deps.Automod == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandlerTimeout)
	defer cancel()

	msg := &automod.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
		Mentions:  len(m.Mentions) + len(m.MentionRoles),
		Bot:       m.Author.Bot,
	}
	if !msg.Bot {
		perms, err := b.client.UserChannelPermissions(m.Author.ID, m.ChannelID, discordgo.WithContext(ctx))
		if err != nil {
			b.logger.Debug("Failed to resolve member permissions", zap.String("user_id", m.Author.ID), zap.Error(err))
		}
		msg.Privileged = hasPermission(perms, discordgo.PermissionManageMessages)
	}
	b.deps.Automod.Check(ctx, msg)
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandlerTimeout)
	defer cancel()

	if b.deps.Users != nil {
		err := b.deps.Users.UpsertUser(ctx, &models.User{ID: m.User.ID, Username: m.User.Username, Avatar: m.User.Avatar})
		if err != nil {
			b.logger.Warn("Failed to upsert member", zap.String("user_id", m.User.ID), zap.Error(err))
		}
	}

	cfg, err := b.deps.Config.Get(ctx, m.GuildID)
	if err != nil {
		b.logger.Warn("Failed to load guild config", zap.String("guild_id", m.GuildID), zap.Error(err))
		return
	}
	channelID := cfg[models.ConfigWelcomeChannel]
	if channelID == "" {
		return
	}

	embed := successEmbed("Bem-vindo(a)!", fmt.Sprintf("Olá <@%s>, seja bem-vindo(a) ao servidor!", m.User.ID))
	if avatar := m.User.AvatarURL("256"); avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatar}
	}
	if _, err := b.client.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("Failed to post welcome message", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func newInvocation(i *discordgo.Interaction) *invocation {
	in := &invocation{interaction: i, guildID: i.GuildID, channelID: i.ChannelID, opts: options{}}
	if i.Member != nil {
		in.perms = i.Member.Permissions
		if i.Member.Nick != "" {
			in.userName = i.Member.Nick
		}
	}
	if u := interactionUser(i); u != nil {
		in.userID = u.ID
		if in.userName == "" {
			in.userName = displayName(u)
		}
	}
	return in
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func hasPermission(perms, want int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&want != 0
}

func requirePermission(in *invocation, want int64) error {
	if !hasPermission(in.perms, want) {
		return errMissingPermission
	}
	return nil
}

func requireGuild(in *invocation) error {
	if in.guildID == "" {
		return errGuildOnly
	}
	return nil
}

