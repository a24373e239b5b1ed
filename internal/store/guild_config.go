package store

import (
	"context"
	"fmt"
)

type configRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GetConfig returns the value for key, or "" when the guild never set it.
func (s *Store) GetConfig(ctx context.Context, guildID, key string) (string, error) {
	var values []string
	err := s.db.SelectContext(ctx, &values,
		"SELECT value FROM server_config WHERE guild_id = $1 AND key = $2", guildID, key)
	if err != nil {
		return "", fmt.Errorf("failed to read config %s: %w", key, err)
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

func (s *Store) GetConfigMap(ctx context.Context, guildID string) (map[string]string, error) {
	var rows []configRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT key, value FROM server_config WHERE guild_id = $1", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to read guild config: %w", err)
	}

	cfg := make(map[string]string, len(rows))
	for _, r := range rows {
		cfg[r.Key] = r.Value
	}
	return cfg, nil
}

func (s *Store) SetConfig(ctx context.Context, guildID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_config (guild_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		guildID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteConfig(ctx context.Context, guildID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM server_config WHERE guild_id = $1 AND key = $2", guildID, key)
	return err
}
