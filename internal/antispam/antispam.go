// Package antispam throttles battle submissions per client: a cap on
// submissions in a sliding time window, and a cooldown before an identical
// battle may be submitted again.
package antispam

import (
	"sync"
	"time"
)

// Block reasons reported in CheckResult.
const (
	ReasonRepeat   = "Please don't resubmit the same battle."
	ReasonTooQuick = "You're submitting battles too quickly. Please slow down."
)

// Config holds anti-spam configuration
type Config struct {
	Enabled        bool          // Whether anti-spam is enabled
	MaxSubmissions int           // Max submissions allowed in the time window
	TimeWindow     time.Duration // Time window for rate limiting
	RepeatCooldown time.Duration // How long before the same battle can be submitted again
}

// DefaultConfig returns sensible defaults for anti-spam
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		MaxSubmissions: 30,
		TimeWindow:     time.Minute,
		RepeatCooldown: 10 * time.Second,
	}
}

// ConfigFromYAML creates a Config from YAML-loaded values
func ConfigFromYAML(enabled bool, maxSubmissions, timeWindowSeconds, repeatCooldownSeconds int) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if maxSubmissions > 0 {
		cfg.MaxSubmissions = maxSubmissions
	}
	if timeWindowSeconds > 0 {
		cfg.TimeWindow = time.Duration(timeWindowSeconds) * time.Second
	}
	if repeatCooldownSeconds > 0 {
		cfg.RepeatCooldown = time.Duration(repeatCooldownSeconds) * time.Second
	}
	return cfg
}

// Tracker tracks battle submissions for a single client
type Tracker struct {
	mu              sync.Mutex
	config          Config
	submissionTimes []time.Time          // Timestamps of recent submissions
	lastBattles     map[string]time.Time // battle fingerprint -> last submitted time
}

// NewTracker creates a new spam tracker with the given config
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config:          config,
		submissionTimes: make([]time.Time, 0, config.MaxSubmissions),
		lastBattles:     make(map[string]time.Time),
	}
}

// CheckResult contains the result of a spam check
type CheckResult struct {
	Allowed     bool
	Reason      string
	WaitSeconds int // How long to wait before trying again (if not allowed)
}

// checkAt determines if a battle with the given fingerprint should be
// accepted, and records it if so.
func (t *Tracker) checkAt(fingerprint string, now time.Time) CheckResult {
	if !t.config.Enabled {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup(now)

	if lastTime, exists := t.lastBattles[fingerprint]; exists {
		remaining := t.config.RepeatCooldown - now.Sub(lastTime)
		return CheckResult{
			Allowed:     false,
			Reason:      ReasonRepeat,
			WaitSeconds: int(remaining.Seconds()) + 1,
		}
	}

	if len(t.submissionTimes) >= t.config.MaxSubmissions {
		// Wait for the oldest submission to leave the window
		remaining := t.submissionTimes[0].Add(t.config.TimeWindow).Sub(now)
		return CheckResult{
			Allowed:     false,
			Reason:      ReasonTooQuick,
			WaitSeconds: int(remaining.Seconds()) + 1,
		}
	}

	t.submissionTimes = append(t.submissionTimes, now)
	t.lastBattles[fingerprint] = now

	return CheckResult{Allowed: true}
}

// cleanup removes expired entries
func (t *Tracker) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.TimeWindow)
	kept := t.submissionTimes[:0]
	for _, at := range t.submissionTimes {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.submissionTimes = kept

	repeatCutoff := now.Add(-t.config.RepeatCooldown)
	for fp, at := range t.lastBattles {
		if !at.After(repeatCutoff) {
			delete(t.lastBattles, fp)
		}
	}
}

// idle reports whether the tracker holds nothing that still affects a check.
func (t *Tracker) idle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup(now)
	return len(t.submissionTimes) == 0 && len(t.lastBattles) == 0
}

// forget removes the submission recorded for fingerprint, so a battle that
// was accepted but never completed does not count against the client.
func (t *Tracker) forget(fingerprint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at, exists := t.lastBattles[fingerprint]
	if !exists {
		return
	}
	delete(t.lastBattles, fingerprint)

	for i := len(t.submissionTimes) - 1; i >= 0; i-- {
		if t.submissionTimes[i].Equal(at) {
			t.submissionTimes = append(t.submissionTimes[:i], t.submissionTimes[i+1:]...)
			break
		}
	}
}

// Guard keeps one Tracker per client and forgets idle clients.
type Guard struct {
	mu        sync.Mutex
	config    Config
	trackers  map[string]*Tracker
	lastPrune time.Time
	now       func() time.Time
}

// NewGuard creates a guard applying config to every client.
func NewGuard(config Config) *Guard {
	return &Guard{
		config:   config,
		trackers: make(map[string]*Tracker),
		now:      time.Now,
	}
}

// Check runs the spam check for a submission from client.
func (g *Guard) Check(client, fingerprint string) CheckResult {
	if !g.config.Enabled {
		return CheckResult{Allowed: true}
	}

	now := g.now()

	// The tracker is checked before g.mu is released so a concurrent prune
	// cannot drop it between creation and its first recorded submission.
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.lastPrune) >= g.pruneEvery() {
		g.prune(now)
	}
	tracker, exists := g.trackers[client]
	if !exists {
		tracker = NewTracker(g.config)
		g.trackers[client] = tracker
	}
	return tracker.checkAt(fingerprint, now)
}

// Forget withdraws a submission that Check accepted but that could not be
// completed, so an identical retry is not refused as a repeat.
func (g *Guard) Forget(client, fingerprint string) {
	if !g.config.Enabled {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if tracker, exists := g.trackers[client]; exists {
		tracker.forget(fingerprint)
	}
}

// prune drops the trackers of idle clients. g.mu must be held.
func (g *Guard) prune(now time.Time) {
	g.lastPrune = now
	for client, tracker := range g.trackers {
		if tracker.idle(now) {
			delete(g.trackers, client)
		}
	}
}

func (g *Guard) pruneEvery() time.Duration {
	return max(g.config.TimeWindow, g.config.RepeatCooldown)
}
