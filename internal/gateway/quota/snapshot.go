package quota

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Snapshot is the serializable governor state, written on shutdown and
// restored on start so quota accounting survives a process restart.
type Snapshot struct {
	Tokens            int            `json:"tokens"`
	LastRefill        time.Time      `json:"last_refill"`
	DailyUsed         int            `json:"daily_used"`
	LastResetDate     string         `json:"last_reset_date"`
	BucketUsed        map[string]int `json:"bucket_used"`
	BackoffUntil      time.Time      `json:"backoff_until"`
	BackoffClass      BackoffClass   `json:"backoff_class"`
	CurrentBackoff    time.Duration  `json:"current_backoff_ns"`
	ConsecutiveErrors int            `json:"consecutive_errors"`
	LastErrorAt       time.Time      `json:"last_error_at"`
}

// Snapshot captures current state.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	used := make(map[string]int, len(g.bucketUsed))
	for k, v := range g.bucketUsed {
		used[k] = v
	}
	return Snapshot{
		Tokens:            g.tokens,
		LastRefill:        g.lastRefill,
		DailyUsed:         g.dailyUsed,
		LastResetDate:     g.lastResetDate,
		BucketUsed:        used,
		BackoffUntil:      g.backoffUntil,
		BackoffClass:      g.backoffClass,
		CurrentBackoff:    g.currentBackoff,
		ConsecutiveErrors: g.consecutiveErrors,
		LastErrorAt:       g.lastErrorAt,
	}
}

// Restore loads a snapshot. The next tick applies any refill or daily reset
// that accrued while the process was down.
func (g *Governor) Restore(s Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tokens = s.Tokens
	if g.tokens > g.cfg.Capacity {
		g.tokens = g.cfg.Capacity
	}
	if !s.LastRefill.IsZero() {
		g.lastRefill = s.LastRefill
	}
	g.dailyUsed = s.DailyUsed
	if s.LastResetDate != "" {
		g.lastResetDate = s.LastResetDate
	}
	g.bucketUsed = make(map[string]int, len(s.BucketUsed))
	for k, v := range s.BucketUsed {
		g.bucketUsed[k] = v
	}
	g.backoffUntil = s.BackoffUntil
	g.backoffClass = s.BackoffClass
	g.currentBackoff = s.CurrentBackoff
	g.consecutiveErrors = s.ConsecutiveErrors
	g.lastErrorAt = s.LastErrorAt
}

// SaveFile writes the snapshot as JSON.
func (g *Governor) SaveFile(path string) error {
	data, err := json.MarshalIndent(g.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write quota snapshot: %w", err)
	}
	return nil
}

// LoadFile restores state from a previously saved snapshot. A missing file
// is not an error; the governor keeps its fresh state.
func (g *Governor) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read quota snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse quota snapshot: %w", err)
	}
	g.Restore(s)
	return nil
}
