// Package quota enforces the upstream provider's rate limits.
//
// This package contains:
//   - Governor: token-bucket + daily-budget quota tracker with adaptive backoff
//   - Classify: maps upstream failures to a BackoffClass
//   - Snapshot: serializable state for restart persistence
package quota

import (
	"log/slog"
	"sync"
	"time"

	"github.com/scoregate/scoregate/internal/gateway/metrics"
)

// Denial reasons returned in Decision.Reason.
const (
	ReasonBackoffActive = "backoff_active"
	ReasonNoTokens      = "no_tokens"
	ReasonDailyHardCap  = "daily_hard_cap"
	ReasonBucketLimit   = "bucket_limit"
	ReasonDailySoftCap  = "daily_soft_cap"
)

// BucketConfig partitions the daily budget for one resource category.
// Protected buckets may keep spending past the daily soft cap.
type BucketConfig struct {
	DailyLimit int  `yaml:"daily_limit"`
	Protected  bool `yaml:"protected"`
}

// Config holds governor configuration.
type Config struct {
	Capacity     int                     `yaml:"capacity"`
	RefillPerSec int                     `yaml:"refill_per_sec"`
	DailySoftCap int                     `yaml:"daily_soft_cap"`
	DailyHardCap int                     `yaml:"daily_hard_cap"`
	Buckets      map[string]BucketConfig `yaml:"buckets"`
	Windows      map[BackoffClass]Window `yaml:"windows"`
	QuietPeriod  time.Duration           `yaml:"quiet_period"`
}

// DefaultConfig provides sensible defaults for the upstream free tier.
func DefaultConfig() Config {
	return Config{
		Capacity:     60,
		RefillPerSec: 1,
		DailySoftCap: 4000,
		DailyHardCap: 5000,
		Buckets: map[string]BucketConfig{
			"scoreboard": {DailyLimit: 1500},
			"game":       {DailyLimit: 600},
			"boxscore":   {DailyLimit: 2000, Protected: true},
			"standings":  {DailyLimit: 300},
			"roster":     {DailyLimit: 300},
		},
		Windows:     DefaultWindows,
		QuietPeriod: 10 * time.Minute,
	}
}

// Decision is the outcome of a quota check. RetryAfter is set only on denial.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// successesToRecover halves the backoff magnitude once reached.
const successesToRecover = 5

// Governor tracks quota usage and backoff state for the upstream provider.
// All methods are safe for concurrent use; state mutates only through them.
type Governor struct {
	mu  sync.Mutex
	cfg Config
	log *slog.Logger

	tokens        int
	lastRefill    time.Time
	dailyUsed     int
	lastResetDate string
	bucketUsed    map[string]int

	backoffUntil         time.Time
	backoffClass         BackoffClass
	currentBackoff       time.Duration
	consecutiveErrors    int
	consecutiveSuccesses int
	lastErrorAt          time.Time

	now func() time.Time
}

// NewGovernor creates a governor with a full token bucket.
func NewGovernor(cfg Config, log *slog.Logger) *Governor {
	if cfg.Capacity == 0 {
		cfg = DefaultConfig()
	}
	if cfg.RefillPerSec <= 0 {
		cfg.RefillPerSec = 1
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultWindows
	}
	if cfg.QuietPeriod == 0 {
		cfg.QuietPeriod = 10 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	now := time.Now()
	return &Governor{
		cfg:           cfg,
		log:           log.With("component", "quota"),
		tokens:        cfg.Capacity,
		lastRefill:    now,
		lastResetDate: now.UTC().Format(time.DateOnly),
		bucketUsed:    make(map[string]int),
		now:           time.Now,
	}
}

// CanMakeRequest evaluates the quota gates in order: active backoff, token
// exhaustion, daily hard cap, bucket limit, daily soft cap. It returns the
// first blocking reason and never mutates usage counters.
func (g *Governor) CanMakeRequest(bucket string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	now := g.now()

	if g.backoffUntil.After(now) {
		return Decision{Reason: ReasonBackoffActive, RetryAfter: g.backoffUntil.Sub(now)}
	}

	if g.tokens < 1 {
		retry := g.lastRefill.Add(time.Second).Sub(now)
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Reason: ReasonNoTokens, RetryAfter: retry}
	}

	if g.dailyUsed >= g.cfg.DailyHardCap {
		return Decision{Reason: ReasonDailyHardCap, RetryAfter: untilNextUTCMidnight(now)}
	}

	bc, hasBucket := g.cfg.Buckets[bucket]
	if hasBucket && bc.DailyLimit > 0 && g.bucketUsed[bucket] >= bc.DailyLimit {
		return Decision{Reason: ReasonBucketLimit, RetryAfter: untilNextUTCMidnight(now)}
	}

	if (!hasBucket || !bc.Protected) && g.dailyUsed >= g.cfg.DailySoftCap {
		return Decision{Reason: ReasonDailySoftCap, RetryAfter: untilNextUTCMidnight(now)}
	}

	return Decision{Allowed: true}
}

// RecordRequest consumes one token and charges the daily and bucket counters.
// Call only after CanMakeRequest allowed the request.
func (g *Governor) RecordRequest(bucket string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	if g.tokens > 0 {
		g.tokens--
	}
	g.dailyUsed++
	g.bucketUsed[bucket]++
	metrics.TokenLevel.Set(float64(g.tokens))
}

// RecordSuccess counts a successful upstream call. Five in a row halve the
// current backoff magnitude, letting the governor recover without waiting
// for an explicit backoff expiry.
func (g *Governor) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	g.consecutiveErrors = 0
	g.consecutiveSuccesses++
	if g.consecutiveSuccesses >= successesToRecover {
		g.consecutiveSuccesses = 0
		if g.currentBackoff > 0 {
			g.currentBackoff /= 2
		}
	}
}

// RecordError classifies an upstream failure and opens or escalates a backoff
// window: doubling from the class initial up to the class max.
func (g *Governor) RecordError(statusCode int, isTimeout bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	now := g.now()
	g.consecutiveSuccesses = 0
	g.consecutiveErrors++
	g.lastErrorAt = now

	class := Classify(statusCode, isTimeout, g.consecutiveErrors)
	w, ok := g.cfg.Windows[class]
	if !ok {
		w = DefaultWindows[class]
	}

	if g.currentBackoff == 0 {
		g.currentBackoff = w.Initial
	} else {
		g.currentBackoff *= 2
		if g.currentBackoff > w.Max {
			g.currentBackoff = w.Max
		}
	}
	g.backoffClass = class
	g.backoffUntil = now.Add(g.currentBackoff)

	metrics.BackoffActivationsTotal.WithLabelValues(string(class)).Inc()
	g.log.Warn("Backoff window opened",
		"class", class,
		"status", statusCode,
		"timeout", isTimeout,
		"backoff", g.currentBackoff,
		"until", g.backoffUntil,
		"consecutive_errors", g.consecutiveErrors,
	)
}

// tick applies the lazy housekeeping every public method runs under the lock:
// token refill, daily UTC rollover, and the quiet-period error reset.
func (g *Governor) tick() {
	now := g.now()

	// Refill whole-second increments; the remainder stays accrued in
	// lastRefill so no fraction is ever lost.
	if elapsed := now.Sub(g.lastRefill); elapsed >= time.Second {
		whole := elapsed / time.Second
		g.tokens += int(whole) * g.cfg.RefillPerSec
		if g.tokens > g.cfg.Capacity {
			g.tokens = g.cfg.Capacity
		}
		g.lastRefill = g.lastRefill.Add(whole * time.Second)
	}

	// Daily counters reset once per UTC calendar date. Backoff state is
	// deliberately untouched by the rollover.
	if today := now.UTC().Format(time.DateOnly); today != g.lastResetDate {
		g.dailyUsed = 0
		g.bucketUsed = make(map[string]int)
		g.lastResetDate = today
	}

	// A quiet period without errors clears the error streak and the backoff
	// magnitude, but not a window already in effect.
	if !g.lastErrorAt.IsZero() && now.Sub(g.lastErrorAt) >= g.cfg.QuietPeriod {
		g.consecutiveErrors = 0
		g.currentBackoff = 0
		g.lastErrorAt = time.Time{}
	}
}

func untilNextUTCMidnight(now time.Time) time.Duration {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(utc)
}
