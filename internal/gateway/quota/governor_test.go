package quota

import (
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests advance governor time manually.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGovernor(cfg Config) (*Governor, *fixedClock) {
	g := NewGovernor(cfg, nil)
	clock := &fixedClock{now: time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)}
	g.now = clock.Now
	g.lastRefill = clock.Now()
	g.lastResetDate = clock.Now().UTC().Format(time.DateOnly)
	return g, clock
}

func TestGovernor_TokenBucket(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	for i := 0; i < 60; i++ {
		d := g.CanMakeRequest("scoreboard")
		if !d.Allowed {
			t.Fatalf("request %d should be allowed, denied with %s", i+1, d.Reason)
		}
		g.RecordRequest("scoreboard")
	}

	d := g.CanMakeRequest("scoreboard")
	if d.Allowed {
		t.Fatal("61st request within the window should be denied")
	}
	if d.Reason != ReasonNoTokens {
		t.Errorf("expected %s, got %s", ReasonNoTokens, d.Reason)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", d.RetryAfter)
	}

	// Tokens refill at 1/sec.
	clock.Advance(3 * time.Second)
	for i := 0; i < 3; i++ {
		if d := g.CanMakeRequest("scoreboard"); !d.Allowed {
			t.Fatalf("refilled request %d denied with %s", i+1, d.Reason)
		}
		g.RecordRequest("scoreboard")
	}
	if d := g.CanMakeRequest("scoreboard"); d.Allowed {
		t.Error("4th request after 3s refill should be denied")
	}
}

func TestGovernor_RefillCapsAtCapacity(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	g.RecordRequest("scoreboard")
	clock.Advance(10 * time.Minute)
	g.mu.Lock()
	g.tick()
	tokens := g.tokens
	g.mu.Unlock()

	if tokens != 60 {
		t.Errorf("expected tokens capped at 60, got %d", tokens)
	}
}

func TestGovernor_DailyReset(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	for i := 0; i < 30; i++ {
		g.RecordRequest("scoreboard")
		clock.Advance(time.Second)
	}
	if st := g.GetStatus(); st.DailyUsed != 30 {
		t.Fatalf("expected 30 used, got %d", st.DailyUsed)
	}

	// Cross UTC midnight.
	clock.Advance(12 * time.Hour)
	st := g.GetStatus()
	if st.DailyUsed != 0 {
		t.Errorf("daily counter should reset at UTC midnight, got %d", st.DailyUsed)
	}
	if st.Buckets["scoreboard"].Used != 0 {
		t.Errorf("bucket counters should reset, got %d", st.Buckets["scoreboard"].Used)
	}

	// A second check on the same day must not reset again.
	g.RecordRequest("scoreboard")
	clock.Advance(time.Hour)
	if st := g.GetStatus(); st.DailyUsed != 1 {
		t.Errorf("expected 1 used after single same-day reset, got %d", st.DailyUsed)
	}
}

func TestGovernor_RolloverKeepsBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows = map[BackoffClass]Window{
		ClassForbidden: {Initial: 30 * time.Minute, Max: 6 * time.Hour},
	}
	g, clock := newTestGovernor(cfg)

	// Error just before UTC midnight; the window straddles the rollover.
	clock.Advance(5*time.Hour + 57*time.Minute) // 23:57
	g.RecordRequest("scoreboard")
	g.RecordError(403, false)

	clock.Advance(6 * time.Minute) // 00:03 next day
	st := g.GetStatus()
	if st.DailyUsed != 0 {
		t.Errorf("daily counter should reset, got %d", st.DailyUsed)
	}
	if !st.BackoffActive {
		t.Error("backoff window must survive the daily rollover")
	}
	g.mu.Lock()
	backoff := g.currentBackoff
	g.mu.Unlock()
	if backoff != 30*time.Minute {
		t.Errorf("backoff magnitude should be unaffected by the rollover, got %v", backoff)
	}
}

func TestGovernor_BackoffOn429(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	g.RecordError(429, false)

	d := g.CanMakeRequest("scoreboard")
	if d.Allowed {
		t.Fatal("request during backoff should be denied")
	}
	if d.Reason != ReasonBackoffActive {
		t.Errorf("expected %s, got %s", ReasonBackoffActive, d.Reason)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", d.RetryAfter)
	}

	// After the window elapses the gate lifts.
	clock.Advance(61 * time.Second)
	if d := g.CanMakeRequest("scoreboard"); !d.Allowed {
		t.Errorf("request after backoff expiry denied with %s", d.Reason)
	}
}

func TestGovernor_BackoffEscalation(t *testing.T) {
	cfg := DefaultConfig()
	g, clock := newTestGovernor(cfg)
	initial := cfg.Windows[ClassRateLimited].Initial

	g.RecordError(429, false)
	g.mu.Lock()
	first := g.currentBackoff
	g.mu.Unlock()
	if first != initial {
		t.Fatalf("first backoff should be %v, got %v", initial, first)
	}

	clock.Advance(time.Minute)
	g.RecordError(429, false)
	g.mu.Lock()
	second := g.currentBackoff
	g.mu.Unlock()
	if second != 2*initial {
		t.Errorf("second backoff should double to %v, got %v", 2*initial, second)
	}
}

func TestGovernor_BackoffCappedAtMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows = map[BackoffClass]Window{
		ClassRateLimited:       {Initial: time.Minute, Max: 4 * time.Minute},
		ClassConsecutiveErrors: {Initial: time.Minute, Max: 4 * time.Minute},
	}
	g, clock := newTestGovernor(cfg)

	for i := 0; i < 6; i++ {
		g.RecordError(429, false)
		clock.Advance(time.Second)
	}
	g.mu.Lock()
	backoff := g.currentBackoff
	g.mu.Unlock()
	if backoff != 4*time.Minute {
		t.Errorf("backoff should cap at class max 4m, got %v", backoff)
	}
}

func TestGovernor_SuccessHalvesBackoff(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	g.RecordError(429, false)
	clock.Advance(time.Second)
	g.RecordError(429, false)
	g.mu.Lock()
	before := g.currentBackoff
	g.mu.Unlock()

	// Backoff window must elapse before successes can accrue.
	clock.Advance(before + time.Second)
	for i := 0; i < 5; i++ {
		g.RecordSuccess()
	}

	g.mu.Lock()
	after := g.currentBackoff
	g.mu.Unlock()
	if after != before/2 {
		t.Errorf("5 successes should halve backoff from %v to %v, got %v", before, before/2, after)
	}
}

func TestGovernor_QuietPeriodReset(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	g.RecordError(500, false)
	g.RecordError(500, false)

	clock.Advance(11 * time.Minute)
	st := g.GetStatus()
	if st.ConsecutiveErrors != 0 {
		t.Errorf("consecutive errors should reset after quiet period, got %d", st.ConsecutiveErrors)
	}
	g.mu.Lock()
	backoff := g.currentBackoff
	g.mu.Unlock()
	if backoff != 0 {
		t.Errorf("backoff magnitude should reset after quiet period, got %v", backoff)
	}
}

func TestGovernor_QuietPeriodKeepsActiveWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows = map[BackoffClass]Window{
		ClassForbidden: {Initial: 30 * time.Minute, Max: 6 * time.Hour},
	}
	g, clock := newTestGovernor(cfg)

	g.RecordError(403, false)

	// 11 minutes later the quiet period has passed but the 30m window has not.
	clock.Advance(11 * time.Minute)
	d := g.CanMakeRequest("scoreboard")
	if d.Allowed {
		t.Error("active backoff window must survive the quiet-period reset")
	}
}

func TestGovernor_BucketLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buckets = map[string]BucketConfig{
		"standings": {DailyLimit: 2},
	}
	g, clock := newTestGovernor(cfg)

	for i := 0; i < 2; i++ {
		if d := g.CanMakeRequest("standings"); !d.Allowed {
			t.Fatalf("request %d denied with %s", i+1, d.Reason)
		}
		g.RecordRequest("standings")
		clock.Advance(time.Second)
	}

	d := g.CanMakeRequest("standings")
	if d.Allowed {
		t.Fatal("request past bucket limit should be denied")
	}
	if d.Reason != ReasonBucketLimit {
		t.Errorf("expected %s, got %s", ReasonBucketLimit, d.Reason)
	}
}

func TestGovernor_SoftCapSparesProtectedBuckets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailySoftCap = 5
	cfg.DailyHardCap = 100
	cfg.Buckets = map[string]BucketConfig{
		"scoreboard": {DailyLimit: 50},
		"boxscore":   {DailyLimit: 50, Protected: true},
	}
	g, clock := newTestGovernor(cfg)

	for i := 0; i < 5; i++ {
		g.RecordRequest("scoreboard")
		clock.Advance(time.Second)
	}

	if d := g.CanMakeRequest("scoreboard"); d.Allowed || d.Reason != ReasonDailySoftCap {
		t.Errorf("non-protected bucket should hit the soft cap, got %+v", d)
	}
	if d := g.CanMakeRequest("boxscore"); !d.Allowed {
		t.Errorf("protected bucket should pass the soft cap, denied with %s", d.Reason)
	}
}

func TestGovernor_HardCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailySoftCap = 3
	cfg.DailyHardCap = 4
	cfg.Buckets = map[string]BucketConfig{
		"boxscore": {DailyLimit: 50, Protected: true},
	}
	g, clock := newTestGovernor(cfg)

	for i := 0; i < 4; i++ {
		g.RecordRequest("boxscore")
		clock.Advance(time.Second)
	}

	d := g.CanMakeRequest("boxscore")
	if d.Allowed || d.Reason != ReasonDailyHardCap {
		t.Errorf("hard cap should block even protected buckets, got %+v", d)
	}
}

func TestGovernor_Concurrency(t *testing.T) {
	g, _ := newTestGovernor(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.CanMakeRequest("scoreboard")
			g.RecordRequest("scoreboard")
			g.GetStatus()
		}()
	}
	wg.Wait()

	st := g.GetStatus()
	if st.DailyUsed != 100 {
		t.Errorf("expected 100 recorded, got %d", st.DailyUsed)
	}
	if st.Buckets["scoreboard"].Used != 100 {
		t.Errorf("expected 100 in bucket, got %d", st.Buckets["scoreboard"].Used)
	}
}

func TestGovernor_SnapshotRoundTrip(t *testing.T) {
	g, clock := newTestGovernor(DefaultConfig())

	for i := 0; i < 7; i++ {
		g.RecordRequest("boxscore")
		clock.Advance(time.Second)
	}
	g.RecordError(429, false)

	snap := g.Snapshot()

	restored, _ := newTestGovernor(DefaultConfig())
	restored.now = clock.Now
	restored.Restore(snap)

	st := restored.GetStatus()
	if st.DailyUsed != 7 {
		t.Errorf("expected 7 used after restore, got %d", st.DailyUsed)
	}
	if !st.BackoffActive {
		t.Error("backoff window should survive a restore")
	}
}

func TestGovernor_SnapshotFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/quota.json"

	g, clock := newTestGovernor(DefaultConfig())
	g.RecordRequest("scoreboard")
	if err := g.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored, _ := newTestGovernor(DefaultConfig())
	restored.now = clock.Now
	if err := restored.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st := restored.GetStatus(); st.DailyUsed != 1 {
		t.Errorf("expected 1 used after file restore, got %d", st.DailyUsed)
	}

	// Missing file is not an error.
	fresh, _ := newTestGovernor(DefaultConfig())
	if err := fresh.LoadFile(dir + "/absent.json"); err != nil {
		t.Errorf("missing snapshot should not error: %v", err)
	}
}
