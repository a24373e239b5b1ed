package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

const (
	draftKeyPrefix    = "draft:order:"
	proposalKeyPrefix = "ticket:close:"
	lockKeyPrefix     = "lock:"
)

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient connects to Redis and verifies the connection.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb), nil
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetDraft caches an order draft until ttl elapses.
func (c *Client) SetDraft(ctx context.Context, draft *models.OrderDraft, ttl time.Duration) error {
	return c.setJSON(ctx, draftKeyPrefix+draft.OrderID, draft, ttl)
}

// GetDraft returns nil without error on a cache miss.
func (c *Client) GetDraft(ctx context.Context, orderID string) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	found, err := c.getJSON(ctx, draftKeyPrefix+orderID, &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

func (c *Client) DeleteDraft(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, draftKeyPrefix+orderID).Err()
}

// SaveCloseProposal stores the pending close request for a ticket channel.
func (c *Client) SaveCloseProposal(ctx context.Context, p *models.CloseProposal, ttl time.Duration) error {
	return c.setJSON(ctx, proposalKeyPrefix+p.ChannelID, p, ttl)
}

func (c *Client) GetCloseProposal(ctx context.Context, channelID string) (*models.CloseProposal, error) {
	var p models.CloseProposal
	found, err := c.getJSON(ctx, proposalKeyPrefix+channelID, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteCloseProposal(ctx context.Context, channelID string) error {
	return c.rdb.Del(ctx, proposalKeyPrefix+channelID).Err()
}

// AcquireLock takes a named lock for ttl. The returned token must be passed
// to ReleaseLock; ok is false when someone else holds the lock.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockKeyPrefix+name, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return token, ok, nil
}

// ReleaseLock deletes the lock only if token still owns it.
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lockKeyPrefix + name}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Client) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
