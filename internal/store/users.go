package store

import (
	"context"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, avatar) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, avatar = EXCLUDED.avatar`,
		u.ID, u.Username, u.Avatar)
	return err
}
