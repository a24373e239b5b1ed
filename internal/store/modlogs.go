package store

import (
	"context"
	"fmt"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

func (s *Store) AddModLog(ctx context.Context, l *models.ModLog) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO mod_logs (guild_id, user_id, moderator_id, action, reason, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		l.GuildID, l.UserID, l.ModeratorID, l.Action, l.Reason, l.DurationSeconds,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert mod log: %w", err)
	}
	return nil
}

func (s *Store) ListModLogs(ctx context.Context, guildID, userID string, limit int) ([]models.ModLog, error) {
	logs := []models.ModLog{}
	err := s.db.SelectContext(ctx, &logs, `
		SELECT * FROM mod_logs
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list mod logs: %w", err)
	}
	return logs, nil
}

func (s *Store) CountModLogs(ctx context.Context, guildID, userID, action string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM mod_logs WHERE guild_id = $1 AND user_id = $2 AND action = $3",
		guildID, userID, action)
	return count, err
}
