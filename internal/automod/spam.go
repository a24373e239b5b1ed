package automod

import (
	"sync"
	"time"
)

// SpamTracker keeps recent message times per user in memory. It is a soft
// heuristic and starts empty after a restart.
type SpamTracker struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewSpamTracker() *SpamTracker {
	return &SpamTracker{hits: make(map[string][]time.Time)}
}

// Hit records a message at now and returns how many messages the key sent
// within window, including this one.
func (t *SpamTracker) Hit(key string, now time.Time, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	recent := prune(t.hits[key], now, window)
	recent = append(recent, now)
	t.hits[key] = recent
	return len(recent)
}

func (t *SpamTracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hits, key)
}

// Sweep drops keys with no message newer than maxAge and returns how many
// were removed.
func (t *SpamTracker) Sweep(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, times := range t.hits {
		if recent := prune(times, now, maxAge); len(recent) == 0 {
			delete(t.hits, key)
			removed++
		} else {
			t.hits[key] = recent
		}
	}
	return removed
}

func (t *SpamTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hits)
}

func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(times) && now.Sub(times[i]) >= window {
		i++
	}
	return append(times[:0:0], times[i:]...)
}
