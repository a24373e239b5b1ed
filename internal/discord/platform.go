package discord

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/automod"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"
)

const bulkDeleteMaxAge = 14 * 24 * time.Hour

// RESTClient is the part of *discordgo.Session the adapter calls.
type RESTClient interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberTimeout(guildID string, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
}

const ticketMemberPerms = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles

// Platform carries out service side effects against the Discord REST API.
type Platform struct {
	rest   RESTClient
	selfID atomic.Value
	logger *zap.Logger
}

var (
	_ service.Notifier       = (*Platform)(nil)
	_ service.ChannelManager = (*Platform)(nil)
	_ service.Moderator      = (*Platform)(nil)
	_ automod.Actions        = (*Platform)(nil)
)

func NewPlatform(rest RESTClient) *Platform {
	p := &Platform{rest: rest, logger: util.Named("discord")}
	p.selfID.Store("")
	return p
}

// SetSelfID records the bot user once the gateway session is ready.
func (p *Platform) SetSelfID(id string) {
	p.selfID.Store(id)
}

func (p *Platform) SelfID() string {
	return p.selfID.Load().(string)
}

func (p *Platform) NotifyUser(ctx context.Context, userID string, n *service.Notification) error {
	dm, err := p.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM with %s: %w", userID, err)
	}
	_, err = p.rest.ChannelMessageSendEmbed(dm.ID, NotificationEmbed(n), discordgo.WithContext(ctx))
	return err
}

func (p *Platform) PostToChannel(ctx context.Context, channelID string, n *service.Notification) error {
	_, err := p.rest.ChannelMessageSendEmbed(channelID, NotificationEmbed(n), discordgo.WithContext(ctx))
	return err
}

// CreateTicketChannel opens a text channel visible to the buyer, the bot and
// the support role only.
func (p *Platform) CreateTicketChannel(ctx context.Context, spec service.TicketChannelSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: spec.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: spec.UserID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketMemberPerms},
	}
	if self := p.SelfID(); self != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    self,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: ticketMemberPerms | discordgo.PermissionManageChannels | discordgo.PermissionManageMessages,
		})
	}
	if spec.SupportRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    spec.SupportRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: ticketMemberPerms | discordgo.PermissionManageMessages,
		})
	}

	ch, err := p.rest.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             spec.ParentID,
		Topic:                "Ticket de <@" + spec.UserID + ">",
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *Platform) SetMemberWriteAccess(ctx context.Context, channelID, userID string, allow bool) error {
	var allowed, denied int64 = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory, 0
	if allow {
		allowed |= discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles
	} else {
		denied = discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles
	}
	return p.rest.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allowed, denied,
		discordgo.WithContext(ctx))
}

func (p *Platform) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := p.rest.ChannelDelete(channelID, discordgo.WithContext(ctx))
	if isUnknown(err, discordgo.ErrCodeUnknownChannel) {
		return nil
	}
	return err
}

func (p *Platform) TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	until := time.Now().Add(d)
	return p.rest.GuildMemberTimeout(guildID, userID, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) RemoveTimeout(ctx context.Context, guildID, userID string) error {
	return p.rest.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx))
}

func (p *Platform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return p.rest.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (p *Platform) BanMember(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	return p.rest.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays, discordgo.WithContext(ctx))
}

func (p *Platform) UnbanMember(ctx context.Context, guildID, userID string) error {
	return p.rest.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
}

// PurgeMessages deletes up to count of the newest messages. Messages older
// than two weeks cannot be bulk-deleted and are skipped.
func (p *Platform) PurgeMessages(ctx context.Context, channelID string, count int) (int, error) {
	msgs, err := p.rest.ChannelMessages(channelID, count, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	return len(ids), p.deleteMessages(ctx, channelID, ids)
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := p.rest.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if isUnknown(err, discordgo.ErrCodeUnknownMessage) {
		return nil
	}
	return err
}

// DeleteRecentMessages removes the user's messages posted since the given
// time among the last hundred in the channel.
func (p *Platform) DeleteRecentMessages(ctx context.Context, channelID, userID string, since time.Time) (int, error) {
	msgs, err := p.rest.ChannelMessages(channelID, 100, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, m := range msgs {
		if m.Author != nil && m.Author.ID == userID && !m.Timestamp.Before(since) {
			ids = append(ids, m.ID)
		}
	}
	return len(ids), p.deleteMessages(ctx, channelID, ids)
}

func (p *Platform) deleteMessages(ctx context.Context, channelID string, ids []string) error {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return p.DeleteMessage(ctx, channelID, ids[0])
	default:
		return p.rest.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx))
	}
}

func (p *Platform) PostWarning(ctx context.Context, channelID string, w automod.Warning, ttl time.Duration) error {
	msg, err := p.rest.ChannelMessageSendEmbed(channelID, automodEmbed(w), discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	if ttl > 0 {
		time.AfterFunc(ttl, func() {
			if err := p.DeleteMessage(context.Background(), channelID, msg.ID); err != nil {
				p.logger.Debug("Failed to remove automod warning", zap.String("message_id", msg.ID), zap.Error(err))
			}
		})
	}
	return nil
}

func automodEmbed(w automod.Warning) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: w.Title, Description: w.Description, Color: colorWarning, Timestamp: timestamp()}
}

func isUnknown(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == code
}
