package service

import (
	"context"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

// maxTimeout is the longest member timeout the chat platform accepts.
const maxTimeout = 28 * 24 * time.Hour

type ModerationOptions struct {
	WarnThreshold int
	WarnTimeout   time.Duration
}

type ModerationService struct {
	store    ModLogStore
	configs  ConfigStore
	mod      Moderator
	notifier Notifier
	opts     ModerationOptions
	logger   *zap.Logger
}

func NewModerationService(store ModLogStore, configs ConfigStore, mod Moderator, notifier Notifier, opts ModerationOptions) *ModerationService {
	if opts.WarnThreshold <= 0 {
		opts.WarnThreshold = 3
	}
	return &ModerationService{
		store:    store,
		configs:  configs,
		mod:      mod,
		notifier: notifier,
		opts:     opts,
		logger:   util.Named("moderation"),
	}
}

// ModAction identifies who acts on whom and why.
type ModAction struct {
	GuildID     string
	TargetID    string
	ModeratorID string
	Reason      string
	Duration    time.Duration
}

func (a ModAction) log(action string) *models.ModLog {
	reason := a.Reason
	if reason == "" {
		reason = "Sem motivo informado"
	}
	return &models.ModLog{
		GuildID:         a.GuildID,
		UserID:          a.TargetID,
		ModeratorID:     a.ModeratorID,
		Action:          action,
		Reason:          reason,
		DurationSeconds: int64(a.Duration / time.Second),
	}
}

// Warn records a warning. Every WarnThreshold-th warning times the member
// out for WarnTimeout.
func (s *ModerationService) Warn(ctx context.Context, a ModAction) (count int, escalated bool, err error) {
	if err := s.Record(ctx, a.log(models.ModActionWarn)); err != nil {
		return 0, false, err
	}

	count, err = s.store.CountModLogs(ctx, a.GuildID, a.TargetID, models.ModActionWarn)
	if err != nil {
		return 0, false, err
	}

	s.dm(ctx, a.TargetID, "Você recebeu uma advertência", a.Reason)

	if count%s.opts.WarnThreshold != 0 {
		return count, false, nil
	}

	mute := ModAction{
		GuildID:     a.GuildID,
		TargetID:    a.TargetID,
		ModeratorID: a.ModeratorID,
		Reason:      fmt.Sprintf("%d advertências acumuladas", count),
		Duration:    s.opts.WarnTimeout,
	}
	if err := s.Mute(ctx, mute); err != nil {
		return count, false, err
	}
	return count, true, nil
}

func (s *ModerationService) Mute(ctx context.Context, a ModAction) error {
	if a.Duration <= 0 || a.Duration > maxTimeout {
		return ErrInvalidDuration
	}
	if err := s.mod.TimeoutMember(ctx, a.GuildID, a.TargetID, a.Duration, a.Reason); err != nil {
		return fmt.Errorf("failed to timeout member: %w", err)
	}
	return s.Record(ctx, a.log(models.ModActionMute))
}

func (s *ModerationService) Unmute(ctx context.Context, a ModAction) error {
	if err := s.mod.RemoveTimeout(ctx, a.GuildID, a.TargetID); err != nil {
		return fmt.Errorf("failed to remove timeout: %w", err)
	}
	return s.Record(ctx, a.log(models.ModActionUnmute))
}

func (s *ModerationService) Kick(ctx context.Context, a ModAction) error {
	s.dm(ctx, a.TargetID, "Você foi expulso do servidor", a.Reason)
	if err := s.mod.KickMember(ctx, a.GuildID, a.TargetID, a.Reason); err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}
	return s.Record(ctx, a.log(models.ModActionKick))
}

func (s *ModerationService) Ban(ctx context.Context, a ModAction, deleteMessageDays int) error {
	if deleteMessageDays < 0 || deleteMessageDays > 7 {
		deleteMessageDays = 0
	}
	s.dm(ctx, a.TargetID, "Você foi banido do servidor", a.Reason)
	if err := s.mod.BanMember(ctx, a.GuildID, a.TargetID, a.Reason, deleteMessageDays); err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}
	return s.Record(ctx, a.log(models.ModActionBan))
}

func (s *ModerationService) Unban(ctx context.Context, a ModAction) error {
	if err := s.mod.UnbanMember(ctx, a.GuildID, a.TargetID); err != nil {
		return fmt.Errorf("failed to unban member: %w", err)
	}
	return s.Record(ctx, a.log(models.ModActionUnban))
}

// Clear bulk-deletes up to count recent messages in a channel.
func (s *ModerationService) Clear(ctx context.Context, guildID, channelID, moderatorID string, count int) (int, error) {
	if count < 1 || count > 100 {
		return 0, ErrInvalidMessageCount
	}
	deleted, err := s.mod.PurgeMessages(ctx, channelID, count)
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}

	err = s.Record(ctx, &models.ModLog{
		GuildID:     guildID,
		UserID:      channelID,
		ModeratorID: moderatorID,
		Action:      models.ModActionClear,
		Reason:      fmt.Sprintf("%d mensagens removidas", deleted),
	})
	return deleted, err
}

func (s *ModerationService) History(ctx context.Context, guildID, userID string, limit int) ([]models.ModLog, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.store.ListModLogs(ctx, guildID, userID, limit)
}

// Record persists a moderation log entry and mirrors it to the guild's
// mod-log channel when one is configured.
func (s *ModerationService) Record(ctx context.Context, entry *models.ModLog) error {
	if err := s.store.AddModLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to record moderation action: %w", err)
	}
	util.ModerationActionsTotal.WithLabelValues(entry.Action).Inc()

	s.logger.Info("Moderation action",
		zap.String("guild_id", entry.GuildID),
		zap.String("action", entry.Action),
		zap.String("user_id", entry.UserID),
		zap.String("moderator_id", entry.ModeratorID))

	channelID, err := s.configs.GetConfig(ctx, entry.GuildID, models.ConfigModLogChannel)
	if err != nil || channelID == "" || s.notifier == nil {
		return nil
	}

	fields := []NotificationField{
		{Name: "Usuário", Value: "<@" + entry.UserID + ">", Inline: true},
		{Name: "Moderador", Value: "<@" + entry.ModeratorID + ">", Inline: true},
		{Name: "Motivo", Value: entry.Reason},
	}
	if entry.Action == models.ModActionClear {
		fields[0].Value = "<#" + entry.UserID + ">"
	}
	if entry.DurationSeconds > 0 {
		fields = append(fields, NotificationField{
			Name:  "Duração",
			Value: (time.Duration(entry.DurationSeconds) * time.Second).String(),
		})
	}

	if err := s.notifier.PostToChannel(ctx, channelID, &Notification{
		Kind:   KindModeration,
		Title:  "Moderação: " + entry.Action,
		Fields: fields,
	}); err != nil {
		s.logger.Warn("Failed to post to mod log channel", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

func (s *ModerationService) dm(ctx context.Context, userID, title, reason string) {
	if s.notifier == nil {
		return
	}
	if reason == "" {
		reason = "Sem motivo informado"
	}
	if err := s.notifier.NotifyUser(ctx, userID, &Notification{
		Kind:        KindModeration,
		Title:       title,
		Description: "Motivo: " + reason,
	}); err != nil {
		s.logger.Debug("Could not DM moderated user", zap.String("user_id", userID), zap.Error(err))
	}
}
