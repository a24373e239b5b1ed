package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

// CreateTicket inserts an open ticket. The partial unique index on
// (guild_id, user_id) WHERE status = 'open' surfaces as ErrConflict.
func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO tickets (guild_id, channel_id, user_id, category, status, priority)
		VALUES ($1, $2, $3, $4, 'open', $5)
		RETURNING id, status, created_at`,
		t.GuildID, t.ChannelID, t.UserID, t.Category, t.Priority,
	).Scan(&t.ID, &t.Status, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func (s *Store) GetOpenTicketByUser(ctx context.Context, guildID, userID string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.GetContext(ctx, &t,
		"SELECT * FROM tickets WHERE guild_id = $1 AND user_id = $2 AND status = 'open'", guildID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Store) GetTicketByChannel(ctx context.Context, channelID string) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.db.GetContext(ctx, &t, "SELECT * FROM tickets WHERE channel_id = $1", channelID); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CloseTicket moves an open ticket to closed.
func (s *Store) CloseTicket(ctx context.Context, channelID, closedBy, reason string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.GetContext(ctx, &t, `
		UPDATE tickets
		SET status = 'closed', closed_at = NOW(), closed_by = $2, close_reason = $3
		WHERE channel_id = $1 AND status = 'open'
		RETURNING *`,
		channelID, closedBy, reason)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to close ticket: %w", err)
	}
	return &t, nil
}

// ReopenTicket moves a closed ticket whose channel still exists back to open.
func (s *Store) ReopenTicket(ctx context.Context, channelID string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.GetContext(ctx, &t, `
		UPDATE tickets
		SET status = 'open', closed_at = NULL, closed_by = NULL, close_reason = NULL
		WHERE channel_id = $1 AND status = 'closed' AND channel_deleted_at IS NULL
		RETURNING *`,
		channelID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to reopen ticket: %w", err)
	}
	return &t, nil
}

// ListTicketsForPurge returns closed tickets whose channel outlived retention.
func (s *Store) ListTicketsForPurge(ctx context.Context, closedBefore time.Time, limit int) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := s.db.SelectContext(ctx, &tickets, `
		SELECT * FROM tickets
		WHERE status = 'closed' AND channel_deleted_at IS NULL AND closed_at < $1
		ORDER BY closed_at
		LIMIT $2`,
		closedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for purge: %w", err)
	}
	return tickets, nil
}

func (s *Store) MarkChannelDeleted(ctx context.Context, ticketID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tickets SET channel_deleted_at = NOW() WHERE id = $1 AND channel_deleted_at IS NULL", ticketID)
	return expectOneRow(res, err)
}

// AddRating stores the user's rating; rating again overwrites it.
func (s *Store) AddRating(ctx context.Context, r *models.TicketRating) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO ticket_ratings (ticket_id, user_id, rating, feedback) VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticket_id) DO UPDATE SET rating = EXCLUDED.rating, feedback = EXCLUDED.feedback
		RETURNING id, created_at`,
		r.TicketID, r.UserID, r.Rating, r.Feedback,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

func (s *Store) TicketStats(ctx context.Context, guildID string) (*models.TicketStats, error) {
	var stats models.TicketStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) FILTER (WHERE t.status = 'open') AS open,
			COUNT(*) FILTER (WHERE t.status = 'closed') AS closed,
			COUNT(r.id) AS ratings,
			COALESCE(AVG(r.rating), 0)::FLOAT8 AS average_rating
		FROM tickets t
		LEFT JOIN ticket_ratings r ON r.ticket_id = t.id
		WHERE t.guild_id = $1`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute ticket stats: %w", err)
	}
	return &stats, nil
}
