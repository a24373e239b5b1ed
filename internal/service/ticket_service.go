package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/store"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

type TicketOptions struct {
	Retention      time.Duration
	ProposalTTL    time.Duration
	PurgeBatchSize int
}

// TicketService runs the support ticket workflow. Closing takes two steps:
// a proposal kept in Redis and a confirmation while it is still alive.
type TicketService struct {
	store     TicketStore
	configs   ConfigStore
	proposals ProposalStore
	channels  ChannelManager
	opts      TicketOptions
	logger    *zap.Logger
	now       func() time.Time
}

func NewTicketService(
	store TicketStore,
	configs ConfigStore,
	proposals ProposalStore,
	channels ChannelManager,
	opts TicketOptions,
) *TicketService {
	if opts.PurgeBatchSize <= 0 {
		opts.PurgeBatchSize = 50
	}
	return &TicketService{
		store:     store,
		configs:   configs,
		proposals: proposals,
		channels:  channels,
		opts:      opts,
		logger:    util.Named("tickets"),
		now:       time.Now,
	}
}

var channelNameUnsafe = regexp.MustCompile(`[^a-z0-9-]+`)

func ticketChannelName(userName string) string {
	name := channelNameUnsafe.ReplaceAllString(strings.ToLower(userName), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "usuario"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return "ticket-" + name
}

// CreateTicket opens a private channel for the user and records the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, guildID, userID, userName, category string) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CreateTicket")
	defer span.End()

	if existing, err := s.store.GetOpenTicketByUser(ctx, guildID, userID); err == nil {
		return nil, &DuplicateTicketError{ChannelID: existing.ChannelID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, util.SpanError(span, err)
	}

	cfg, err := s.configs.GetConfigMap(ctx, guildID)
	if err != nil {
		return nil, util.SpanError(span, err)
	}

	channelID, err := s.channels.CreateTicketChannel(ctx, TicketChannelSpec{
		GuildID:       guildID,
		UserID:        userID,
		Name:          ticketChannelName(userName),
		ParentID:      cfg[models.ConfigTicketCategory],
		SupportRoleID: cfg[models.ConfigTicketSupportRole],
	})
	if err != nil {
		return nil, util.SpanError(span, fmt.Errorf("failed to create ticket channel: %w", err))
	}

	if category == "" {
		category = "suporte"
	}
	ticket := &models.Ticket{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Category:  category,
		Priority:  "normal",
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		s.dropChannel(ctx, channelID)
		if errors.Is(err, store.ErrConflict) {
			return nil, s.duplicateOf(ctx, guildID, userID)
		}
		return nil, util.SpanError(span, err)
	}

	util.TicketsOpenedTotal.Inc()
	s.logger.Info("Ticket opened",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("channel_id", channelID),
		zap.String("user_id", userID))
	return ticket, nil
}

// ProposeClose records a pending close request for the ticket channel.
func (s *TicketService) ProposeClose(ctx context.Context, channelID, actorID, reason string) (*models.CloseProposal, error) {
	ticket, err := s.ticket(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.TicketStatusOpen {
		return nil, ErrTicketNotOpen
	}

	if reason == "" {
		reason = "Sem motivo informado"
	}
	p := &models.CloseProposal{ChannelID: channelID, ProposedBy: actorID, Reason: reason, ProposedAt: s.now()}
	if err := s.proposals.SaveCloseProposal(ctx, p, s.opts.ProposalTTL); err != nil {
		return nil, fmt.Errorf("failed to save close request: %w", err)
	}
	return p, nil
}

// ConfirmClose closes the ticket if a proposal is still alive. The buyer
// keeps read access; the channel is deleted by the sweep after retention.
func (s *TicketService) ConfirmClose(ctx context.Context, channelID, actorID string) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.ConfirmClose")
	defer span.End()

	p, err := s.proposals.GetCloseProposal(ctx, channelID)
	if err != nil {
		return nil, util.SpanError(span, err)
	}
	if p == nil {
		return nil, ErrNoCloseProposal
	}

	ticket, err := s.store.CloseTicket(ctx, channelID, actorID, p.Reason)
	if err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return nil, ErrTicketNotOpen
		}
		return nil, util.SpanError(span, err)
	}

	if err := s.proposals.DeleteCloseProposal(ctx, channelID); err != nil {
		s.logger.Warn("Failed to delete close request", zap.String("channel_id", channelID), zap.Error(err))
	}
	if err := s.channels.SetMemberWriteAccess(ctx, channelID, ticket.UserID, false); err != nil {
		s.logger.Warn("Failed to revoke ticket write access", zap.String("channel_id", channelID), zap.Error(err))
	}

	util.TicketsClosedTotal.Inc()
	s.logger.Info("Ticket closed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("closed_by", actorID),
		zap.Time("delete_after", ticket.DeleteAfter(s.opts.Retention)))
	return ticket, nil
}

func (s *TicketService) CancelClose(ctx context.Context, channelID string) error {
	return s.proposals.DeleteCloseProposal(ctx, channelID)
}

func (s *TicketService) ReopenTicket(ctx context.Context, channelID, actorID string) (*models.Ticket, error) {
	ticket, err := s.ticket(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.TicketStatusClosed {
		return nil, ErrTicketNotClosed
	}
	if ticket.ChannelDeletedAt != nil {
		return nil, ErrTicketChannelDeleted
	}

	reopened, err := s.store.ReopenTicket(ctx, channelID)
	switch {
	case errors.Is(err, store.ErrConflict):
		return nil, s.duplicateOf(ctx, ticket.GuildID, ticket.UserID)
	case errors.Is(err, store.ErrStatusChanged):
		return nil, ErrTicketNotClosed
	case err != nil:
		return nil, err
	}

	if err := s.channels.SetMemberWriteAccess(ctx, channelID, reopened.UserID, true); err != nil {
		s.logger.Warn("Failed to restore ticket write access", zap.String("channel_id", channelID), zap.Error(err))
	}

	util.TicketsOpenedTotal.Inc()
	s.logger.Info("Ticket reopened", zap.Int64("ticket_id", reopened.ID), zap.String("by", actorID))
	return reopened, nil
}

// RateTicket stores the owner's rating of a closed ticket.
func (s *TicketService) RateTicket(ctx context.Context, channelID, userID string, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	ticket, err := s.ticket(ctx, channelID)
	if err != nil {
		return err
	}
	if ticket.UserID != userID {
		return ErrNotTicketOwner
	}
	if ticket.Status != models.TicketStatusClosed {
		return ErrTicketNotClosed
	}

	return s.store.AddRating(ctx, &models.TicketRating{
		TicketID: ticket.ID,
		UserID:   userID,
		Rating:   rating,
		Feedback: strings.TrimSpace(feedback),
	})
}

func (s *TicketService) TicketStats(ctx context.Context, guildID string) (*models.TicketStats, error) {
	return s.store.TicketStats(ctx, guildID)
}

// PurgeClosedTickets deletes the channels of tickets closed longer than the
// retention window. Failed deletions are retried on the next sweep.
func (s *TicketService) PurgeClosedTickets(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.PurgeClosedTickets")
	defer span.End()

	tickets, err := s.store.ListTicketsForPurge(ctx, s.now().Add(-s.opts.Retention), s.opts.PurgeBatchSize)
	if err != nil {
		return 0, util.SpanError(span, err)
	}

	purged := 0
	for _, t := range tickets {
		if err := s.channels.DeleteChannel(ctx, t.ChannelID); err != nil {
			s.logger.Warn("Failed to delete ticket channel",
				zap.Int64("ticket_id", t.ID),
				zap.String("channel_id", t.ChannelID),
				zap.Error(err))
			continue
		}
		if err := s.store.MarkChannelDeleted(ctx, t.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to mark ticket channel deleted", zap.Int64("ticket_id", t.ID), zap.Error(err))
			continue
		}
		purged++
		util.TicketChannelsPurgedTotal.Inc()
	}

	if purged > 0 {
		s.logger.Info("Purged ticket channels", zap.Int("count", purged))
	}
	return purged, nil
}

func (s *TicketService) ticket(ctx context.Context, channelID string) (*models.Ticket, error) {
	t, err := s.store.GetTicketByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TicketService) duplicateOf(ctx context.Context, guildID, userID string) error {
	existing, err := s.store.GetOpenTicketByUser(ctx, guildID, userID)
	if err != nil {
		return ErrDuplicateOpenTicket
	}
	return &DuplicateTicketError{ChannelID: existing.ChannelID}
}

func (s *TicketService) dropChannel(ctx context.Context, channelID string) {
	if err := s.channels.DeleteChannel(ctx, channelID); err != nil {
		s.logger.Warn("Failed to remove orphan ticket channel", zap.String("channel_id", channelID), zap.Error(err))
	}
}
