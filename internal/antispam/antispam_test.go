package antispam

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func clients(g *Guard) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.trackers)
}

func TestRateLimit(t *testing.T) {
	config := Config{
		Enabled:        true,
		MaxSubmissions: 3,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 30 * time.Second,
	}
	tracker := NewTracker(config)

	// First 3 battles should be allowed
	for i := range 3 {
		result := tracker.checkAt(fmt.Sprintf("battle %d", i), epoch.Add(time.Duration(i)*time.Second))
		if !result.Allowed {
			t.Errorf("Battle %d should be allowed", i+1)
		}
	}

	// 4th battle should be blocked (rate limit)
	result := tracker.checkAt("battle d", epoch.Add(3*time.Second))
	if result.Allowed {
		t.Error("4th battle should be blocked by rate limit")
	}
	if result.Reason != ReasonTooQuick {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
	// The first submission leaves the window 7s later
	if result.WaitSeconds != 8 {
		t.Errorf("expected to wait 8s, got %d", result.WaitSeconds)
	}
}

func TestRepeatDetection(t *testing.T) {
	config := Config{
		Enabled:        true,
		MaxSubmissions: 10,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 5 * time.Second,
	}
	tracker := NewTracker(config)

	// First battle should be allowed
	result := tracker.checkAt("reference", epoch)
	if !result.Allowed {
		t.Error("First battle should be allowed")
	}

	// Same battle again should be blocked
	result = tracker.checkAt("reference", epoch.Add(2*time.Second))
	if result.Allowed {
		t.Error("Repeat battle should be blocked")
	}
	if result.Reason != ReasonRepeat {
		t.Errorf("Unexpected reason: %s", result.Reason)
	}
	if result.WaitSeconds != 4 {
		t.Errorf("expected to wait 4s, got %d", result.WaitSeconds)
	}

	// Different battle should be allowed
	result = tracker.checkAt("different", epoch.Add(2*time.Second))
	if !result.Allowed {
		t.Error("Different battle should be allowed")
	}
}

func TestRepeatCooldownExpires(t *testing.T) {
	config := Config{
		Enabled:        true,
		MaxSubmissions: 10,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 5 * time.Second,
	}
	tracker := NewTracker(config)

	if result := tracker.checkAt("reference", epoch); !result.Allowed {
		t.Error("First battle should be allowed")
	}

	// Same battle should be allowed once the cooldown has passed
	if result := tracker.checkAt("reference", epoch.Add(5*time.Second)); !result.Allowed {
		t.Error("Battle should be allowed after cooldown expires")
	}
}

func TestRateLimitExpires(t *testing.T) {
	config := Config{
		Enabled:        true,
		MaxSubmissions: 2,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: time.Second,
	}
	tracker := NewTracker(config)

	// Submit 2 battles (hit limit)
	tracker.checkAt("a", epoch)
	tracker.checkAt("b", epoch)

	// 3rd should be blocked
	if result := tracker.checkAt("c", epoch.Add(time.Second)); result.Allowed {
		t.Error("Should be rate limited")
	}

	// Should be allowed once the window has passed
	if result := tracker.checkAt("d", epoch.Add(11*time.Second)); !result.Allowed {
		t.Error("Should be allowed after rate limit window expires")
	}
}

func TestDisabled(t *testing.T) {
	config := Config{
		Enabled:        false,
		MaxSubmissions: 1,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 30 * time.Second,
	}
	tracker := NewTracker(config)

	// All battles should be allowed when antispam is disabled
	for i := range 10 {
		if result := tracker.checkAt("same battle", epoch); !result.Allowed {
			t.Errorf("Battle %d should be allowed when antispam is disabled", i+1)
		}
	}

	guard := NewGuard(config)
	for i := range 10 {
		if result := guard.Check("192.168.1.1", "same battle"); !result.Allowed {
			t.Errorf("Guard check %d should be allowed when antispam is disabled", i+1)
		}
	}
	if n := clients(guard); n != 0 {
		t.Errorf("disabled guard should track nothing, got %d clients", n)
	}
}

func TestForget(t *testing.T) {
	config := Config{
		Enabled:        true,
		MaxSubmissions: 2,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 30 * time.Second,
	}
	tracker := NewTracker(config)

	tracker.checkAt("a", epoch)
	tracker.checkAt("b", epoch.Add(time.Second))
	if result := tracker.checkAt("c", epoch.Add(2*time.Second)); result.Allowed {
		t.Error("Should be rate limited")
	}

	// Withdrawing "b" frees its slot and its repeat cooldown
	tracker.forget("b")
	tracker.forget("never submitted")
	if result := tracker.checkAt("b", epoch.Add(3*time.Second)); !result.Allowed {
		t.Errorf("forgotten battle should be accepted again, got %q", result.Reason)
	}
	if result := tracker.checkAt("a", epoch.Add(3*time.Second)); result.Allowed || result.Reason != ReasonRepeat {
		t.Errorf("other battles should still be remembered, got %+v", result)
	}
}

func TestConfigFromYAML(t *testing.T) {
	cfg := ConfigFromYAML(true, 5, 30, 0)
	if !cfg.Enabled || cfg.MaxSubmissions != 5 || cfg.TimeWindow != 30*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RepeatCooldown != DefaultConfig().RepeatCooldown {
		t.Errorf("zero cooldown should keep the default, got %v", cfg.RepeatCooldown)
	}

	if cfg := ConfigFromYAML(false, 0, 0, 0); cfg.Enabled {
		t.Error("expected disabled config")
	}
}

func TestGuard_PerClient(t *testing.T) {
	guard := NewGuard(Config{
		Enabled:        true,
		MaxSubmissions: 1,
		TimeWindow:     time.Minute,
		RepeatCooldown: time.Second,
	})
	guard.now = func() time.Time { return epoch }

	if result := guard.Check("192.168.1.1", "a"); !result.Allowed {
		t.Error("first battle from client 1 should be allowed")
	}
	if result := guard.Check("192.168.1.1", "b"); result.Allowed {
		t.Error("second battle from client 1 should be blocked")
	}
	if result := guard.Check("192.168.1.2", "a"); !result.Allowed {
		t.Error("client 2 should not share client 1's limit")
	}
	if n := clients(guard); n != 2 {
		t.Errorf("expected 2 clients, got %d", n)
	}
}

func TestGuard_Prune(t *testing.T) {
	now := epoch
	guard := NewGuard(Config{
		Enabled:        true,
		MaxSubmissions: 5,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 30 * time.Second,
	})
	guard.now = func() time.Time { return now }

	guard.Check("192.168.1.1", "a")
	now = now.Add(20 * time.Second)
	guard.Check("192.168.1.2", "a")
	if n := clients(guard); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	// Client 1 is idle; client 2 still has a battle in its repeat cooldown
	now = now.Add(15 * time.Second)
	guard.Check("192.168.1.3", "a")
	if n := clients(guard); n != 2 {
		t.Errorf("expected client 1 pruned, got %d clients", n)
	}

	now = now.Add(time.Minute)
	guard.Check("192.168.1.4", "a")
	if n := clients(guard); n != 1 {
		t.Errorf("expected idle clients pruned on check, got %d clients", n)
	}
}

func TestGuard_CheckSurvivesPrune(t *testing.T) {
	now := epoch
	guard := NewGuard(Config{
		Enabled:        true,
		MaxSubmissions: 5,
		TimeWindow:     10 * time.Second,
		RepeatCooldown: 30 * time.Second,
	})
	guard.now = func() time.Time { return now }

	guard.Check("192.168.1.1", "a")

	// This check prunes client 1's idle tracker and then records into a
	// fresh one; the fresh one must be the tracker that stays registered.
	now = now.Add(30 * time.Second)
	if result := guard.Check("192.168.1.1", "a"); !result.Allowed {
		t.Fatalf("battle should be allowed after its cooldown, got %q", result.Reason)
	}
	if result := guard.Check("192.168.1.1", "a"); result.Allowed || result.Reason != ReasonRepeat {
		t.Errorf("expected the new submission to be remembered, got %+v", result)
	}
}

func TestGuard_Concurrent(t *testing.T) {
	guard := NewGuard(Config{
		Enabled:        true,
		MaxSubmissions: 5,
		TimeWindow:     time.Minute,
		RepeatCooldown: time.Minute,
	})
	guard.now = func() time.Time { return epoch }

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Check("192.168.1.1", fmt.Sprintf("battle %d", i)).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Errorf("expected exactly 5 accepted submissions, got %d", allowed)
	}
}

func TestGuard_Forget(t *testing.T) {
	guard := NewGuard(Config{
		Enabled:        true,
		MaxSubmissions: 1,
		TimeWindow:     time.Minute,
		RepeatCooldown: 30 * time.Second,
	})
	guard.now = func() time.Time { return epoch }

	if result := guard.Check("192.168.1.1", "a"); !result.Allowed {
		t.Fatal("first battle should be allowed")
	}

	// Forgetting for an unknown client is a no-op
	guard.Forget("192.168.1.2", "a")
	if result := guard.Check("192.168.1.1", "a"); result.Allowed {
		t.Fatal("repeat should still be blocked")
	}

	guard.Forget("192.168.1.1", "a")
	if result := guard.Check("192.168.1.1", "a"); !result.Allowed {
		t.Errorf("retry after forget should be allowed, got %q", result.Reason)
	}
}
