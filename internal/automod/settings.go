package automod

import (
	"strconv"
	"strings"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

// Settings are the per-guild auto-moderation knobs.
type Settings struct {
	Enabled     bool
	BannedWords []string
	SpamLimit   int
	SpamWindow  time.Duration
}

// ParseSettings reads guild config over the given defaults. spam_time_window
// is stored in milliseconds.
func ParseSettings(cfg map[string]string, defaults Settings) Settings {
	s := defaults
	s.Enabled = true

	if v, ok := cfg[models.ConfigAutomodEnabled]; ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			s.Enabled = enabled
		}
	}

	s.BannedWords = nil
	for _, w := range strings.Split(cfg[models.ConfigBannedWords], ",") {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			s.BannedWords = append(s.BannedWords, w)
		}
	}

	if n, err := strconv.Atoi(strings.TrimSpace(cfg[models.ConfigSpamLimit])); err == nil && n > 0 {
		s.SpamLimit = n
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(cfg[models.ConfigSpamWindow])); err == nil && ms > 0 {
		s.SpamWindow = time.Duration(ms) * time.Millisecond
	}
	return s
}
