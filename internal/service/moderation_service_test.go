package service

import (
	"context"
	"testing"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModeration(t *testing.T) (*ModerationService, *memStore, *fakeModerator, *recordingNotifier) {
	t.Helper()
	st := newMemStore()
	st.setConfig(testGuild, map[string]string{models.ConfigModLogChannel: "modlog"})
	mod := &fakeModerator{}
	notifier := &recordingNotifier{}
	svc := NewModerationService(st, st, mod, notifier, ModerationOptions{WarnThreshold: 3, WarnTimeout: time.Hour})
	return svc, st, mod, notifier
}

func TestWarnEscalatesEveryThreshold(t *testing.T) {
	svc, st, mod, _ := newModeration(t)
	ctx := context.Background()
	a := ModAction{GuildID: testGuild, TargetID: "u1", ModeratorID: "m1", Reason: "flood"}

	var escalations []int
	for i := 1; i <= 6; i++ {
		count, escalated, err := svc.Warn(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		if escalated {
			escalations = append(escalations, count)
		}
	}

	assert.Equal(t, []int{3, 6}, escalations)
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, mod.timeouts)

	mutes, _ := st.CountModLogs(ctx, testGuild, "u1", models.ModActionMute)
	assert.Equal(t, 2, mutes)
}

func TestMuteValidatesDuration(t *testing.T) {
	svc, _, mod, _ := newModeration(t)
	ctx := context.Background()

	for _, d := range []time.Duration{0, -time.Minute, 29 * 24 * time.Hour} {
		err := svc.Mute(ctx, ModAction{GuildID: testGuild, TargetID: "u1", Duration: d})
		assert.ErrorIs(t, err, ErrInvalidDuration, d.String())
	}
	assert.Empty(t, mod.timeouts)

	require.NoError(t, svc.Mute(ctx, ModAction{GuildID: testGuild, TargetID: "u1", Duration: 10 * time.Minute}))
	assert.Equal(t, []time.Duration{10 * time.Minute}, mod.timeouts)
}

func TestKickAndBanAreLogged(t *testing.T) {
	svc, st, mod, notifier := newModeration(t)
	ctx := context.Background()

	require.NoError(t, svc.Kick(ctx, ModAction{GuildID: testGuild, TargetID: "u1", ModeratorID: "m1"}))
	require.NoError(t, svc.Ban(ctx, ModAction{GuildID: testGuild, TargetID: "u2", ModeratorID: "m1", Reason: "golpe"}, 30))

	assert.Equal(t, []string{"u1"}, mod.kicked)
	assert.Equal(t, []string{"u2"}, mod.banned)

	history, err := svc.History(ctx, testGuild, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ModActionKick, history[0].Action)
	assert.Equal(t, "Sem motivo informado", history[0].Reason)

	require.Len(t, st.modLogs, 2)
	require.Len(t, notifier.posts, 2)
	assert.Equal(t, "modlog", notifier.posts[0].To)
	assert.Equal(t, KindModeration, notifier.posts[1].N.Kind)
}

func TestClearBounds(t *testing.T) {
	svc, _, mod, _ := newModeration(t)
	ctx := context.Background()

	_, err := svc.Clear(ctx, testGuild, "chan", "m1", 0)
	assert.ErrorIs(t, err, ErrInvalidMessageCount)
	_, err = svc.Clear(ctx, testGuild, "chan", "m1", 101)
	assert.ErrorIs(t, err, ErrInvalidMessageCount)

	n, err := svc.Clear(ctx, testGuild, "chan", "m1", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, 25, mod.purged)
}

func TestRecordWithoutModLogChannel(t *testing.T) {
	svc, st, _, notifier := newModeration(t)
	require.NoError(t, st.DeleteConfig(context.Background(), testGuild, models.ConfigModLogChannel))

	require.NoError(t, svc.Record(context.Background(), &models.ModLog{
		GuildID: testGuild, UserID: "u1", ModeratorID: "bot", Action: models.ModActionMute, Reason: "spam",
	}))
	assert.Len(t, st.modLogs, 1)
	assert.Empty(t, notifier.posts)
}
