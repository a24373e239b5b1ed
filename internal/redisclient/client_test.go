package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(rdb), mr
}

func TestDraftExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	draft := &models.OrderDraft{
		OrderID:     "o1",
		GuildID:     "g1",
		UserID:      "u1",
		ProductName: "Netflix 1 mês",
		Quantity:    2,
		TotalAmount: decimal.RequireFromString("59.80"),
		Status:      models.OrderStatusPending,
	}
	require.NoError(t, c.SetDraft(ctx, draft, 10*time.Minute))

	got, err := c.GetDraft(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Netflix 1 mês", got.ProductName)
	assert.True(t, draft.TotalAmount.Equal(got.TotalAmount))

	mr.FastForward(11 * time.Minute)

	got, err = c.GetDraft(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteDraft(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetDraft(ctx, &models.OrderDraft{OrderID: "o1"}, time.Minute))
	require.NoError(t, c.DeleteDraft(ctx, "o1"))

	got, err := c.GetDraft(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCloseProposalRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	p := &models.CloseProposal{ChannelID: "c1", ProposedBy: "mod", Reason: "resolvido", ProposedAt: time.Now().UTC()}
	require.NoError(t, c.SaveCloseProposal(ctx, p, 5*time.Minute))

	got, err := c.GetCloseProposal(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "resolvido", got.Reason)

	mr.FastForward(6 * time.Minute)
	got, err = c.GetCloseProposal(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLockIsExclusiveAndOwned(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	token, ok, err := c.AcquireLock(ctx, "payment:o1", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.AcquireLock(ctx, "payment:o1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, c.ReleaseLock(ctx, "payment:o1", "someone-else"))
	assert.True(t, mr.Exists("lock:payment:o1"), "foreign token must not release the lock")

	require.NoError(t, c.ReleaseLock(ctx, "payment:o1", token))
	assert.False(t, mr.Exists("lock:payment:o1"))
}
