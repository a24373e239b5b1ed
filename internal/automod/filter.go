package automod

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"go.uber.org/zap"
)

type Rule string

const (
	RuleBannedWord Rule = "banned_word"
	RuleSpam       Rule = "spam"
	RuleCaps       Rule = "caps"
	RuleMentions   Rule = "mentions"
	RuleInvite     Rule = "invite"
)

const (
	capsMinLength = 10
	capsRatio     = 0.7
	mentionLimit  = 5
)

var inviteLink = regexp.MustCompile(`(?i)(discord\.gg|discord\.com/invite|discordapp\.com/invite)/[a-z0-9]+`)

// Message is the part of a chat message the filter looks at.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	Content   string
	// Mentions counts mentioned users and roles together.
	Mentions int
	Bot      bool
	// Privileged is set for members allowed to manage messages.
	Privileged bool
}

type Warning struct {
	Title       string
	Description string
}

// Actions are the chat-side effects of a triggered rule.
type Actions interface {
	SelfID() string
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DeleteRecentMessages(ctx context.Context, channelID, userID string, since time.Time) (int, error)
	TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
	// PostWarning posts w in the channel and removes it after ttl; a zero
	// ttl keeps it.
	PostWarning(ctx context.Context, channelID string, w Warning, ttl time.Duration) error
}

// Recorder persists moderation log entries.
type Recorder interface {
	Record(ctx context.Context, entry *models.ModLog) error
}

type SettingsSource interface {
	GetConfigMap(ctx context.Context, guildID string) (map[string]string, error)
}

type Options struct {
	SpamLimit  int
	SpamWindow time.Duration
	SpamMute   time.Duration
	WarningTTL time.Duration
}

// Filter runs the auto-moderation rules against each message. The first
// matching rule wins: banned words, spam, caps, mentions, invite links.
type Filter struct {
	settings SettingsSource
	tracker  *SpamTracker
	actions  Actions
	recorder Recorder
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewFilter(settings SettingsSource, tracker *SpamTracker, actions Actions, recorder Recorder, opts Options) *Filter {
	if opts.SpamLimit <= 0 {
		opts.SpamLimit = 5
	}
	if opts.SpamWindow <= 0 {
		opts.SpamWindow = 5 * time.Second
	}
	if opts.SpamMute <= 0 {
		opts.SpamMute = 5 * time.Minute
	}
	if opts.WarningTTL <= 0 {
		opts.WarningTTL = 5 * time.Second
	}
	return &Filter{
		settings: settings,
		tracker:  tracker,
		actions:  actions,
		recorder: recorder,
		opts:     opts,
		logger:   util.Named("automod"),
		now:      time.Now,
	}
}

// Check evaluates msg and enforces the matching rule. It returns the rule
// that fired, or "" when the message is fine. Enforcement failures are
// logged, not returned.
func (f *Filter) Check(ctx context.Context, msg *Message) Rule {
	if msg.Bot || msg.Privileged || msg.GuildID == "" {
		return ""
	}

	settings := f.load(ctx, msg.GuildID)
	if !settings.Enabled {
		return ""
	}

	now := f.now()
	rule, detail := f.detect(msg, settings, now)
	if rule == "" {
		return ""
	}

	util.AutomodActionsTotal.WithLabelValues(string(rule)).Inc()
	f.logger.Info("Automod rule triggered",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.AuthorID),
		zap.String("rule", string(rule)))

	f.enforce(ctx, msg, rule, detail, settings, now)
	return rule
}

func (f *Filter) load(ctx context.Context, guildID string) Settings {
	defaults := Settings{SpamLimit: f.opts.SpamLimit, SpamWindow: f.opts.SpamWindow}
	cfg, err := f.settings.GetConfigMap(ctx, guildID)
	if err != nil {
		f.logger.Warn("Failed to load automod settings, using defaults", zap.String("guild_id", guildID), zap.Error(err))
		cfg = nil
	}
	return ParseSettings(cfg, defaults)
}

func (f *Filter) detect(msg *Message, s Settings, now time.Time) (Rule, string) {
	content := strings.ToLower(msg.Content)
	for _, w := range s.BannedWords {
		if strings.Contains(content, w) {
			return RuleBannedWord, w
		}
	}

	key := msg.GuildID + ":" + msg.AuthorID
	if f.tracker.Hit(key, now, s.SpamWindow) >= s.SpamLimit {
		f.tracker.Reset(key)
		return RuleSpam, ""
	}

	if isShouting(msg.Content) {
		return RuleCaps, ""
	}
	if msg.Mentions > mentionLimit {
		return RuleMentions, ""
	}
	if inviteLink.MatchString(msg.Content) {
		return RuleInvite, ""
	}
	return "", ""
}

// isShouting reports whether more than 70% of a message of at least ten
// characters is upper case.
func isShouting(content string) bool {
	runes := []rune(content)
	if len(runes) < capsMinLength {
		return false
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper)/float64(len(runes)) > capsRatio
}

func (f *Filter) enforce(ctx context.Context, msg *Message, rule Rule, detail string, s Settings, now time.Time) {
	mention := "<@" + msg.AuthorID + ">"

	if rule == RuleSpam {
		if _, err := f.actions.DeleteRecentMessages(ctx, msg.ChannelID, msg.AuthorID, now.Add(-s.SpamWindow)); err != nil {
			f.logger.Warn("Failed to delete spam messages", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		}
		if err := f.actions.TimeoutMember(ctx, msg.GuildID, msg.AuthorID, f.opts.SpamMute, "Auto-moderação: Spam"); err != nil {
			f.logger.Warn("Failed to mute spammer", zap.String("user_id", msg.AuthorID), zap.Error(err))
		}
		f.record(ctx, msg, models.ModActionMute, "Auto-moderação: Spam", f.opts.SpamMute)
		f.warn(ctx, msg.ChannelID, Warning{
			Title:       "🤖 Auto-moderação",
			Description: fmt.Sprintf("%s foi silenciado por %s por spam.", mention, formatMinutes(f.opts.SpamMute)),
		}, 0)
		return
	}

	if err := f.actions.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		f.logger.Warn("Failed to delete message", zap.String("message_id", msg.ID), zap.Error(err))
	}

	var w Warning
	switch rule {
	case RuleBannedWord:
		f.record(ctx, msg, models.ModActionWarn, fmt.Sprintf("Auto-moderação: Palavra proibida %q", detail), 0)
		w = Warning{"⚠️ Palavra Proibida", mention + ", sua mensagem foi deletada por conter uma palavra proibida."}
	case RuleCaps:
		w = Warning{"⚠️ Excesso de Maiúsculas", mention + ", evite usar muitas letras maiúsculas."}
	case RuleMentions:
		w = Warning{"⚠️ Excesso de Menções", mention + ", evite mencionar muitos usuários/cargos de uma vez."}
	case RuleInvite:
		f.record(ctx, msg, models.ModActionWarn, "Auto-moderação: Link de convite", 0)
		w = Warning{"⚠️ Link de Convite", mention + ", links de convite não são permitidos."}
	}
	f.warn(ctx, msg.ChannelID, w, f.opts.WarningTTL)
}

func (f *Filter) record(ctx context.Context, msg *Message, action, reason string, d time.Duration) {
	if f.recorder == nil {
		return
	}
	err := f.recorder.Record(ctx, &models.ModLog{
		GuildID:         msg.GuildID,
		UserID:          msg.AuthorID,
		ModeratorID:     f.actions.SelfID(),
		Action:          action,
		Reason:          reason,
		DurationSeconds: int64(d / time.Second),
	})
	if err != nil {
		f.logger.Warn("Failed to record automod action", zap.String("user_id", msg.AuthorID), zap.Error(err))
	}
}

func (f *Filter) warn(ctx context.Context, channelID string, w Warning, ttl time.Duration) {
	if err := f.actions.PostWarning(ctx, channelID, w, ttl); err != nil {
		f.logger.Warn("Failed to post automod warning", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func formatMinutes(d time.Duration) string {
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minuto"
	}
	return fmt.Sprintf("%d minutos", m)
}
