package quota

import "time"

// BucketStatus reports one bucket's daily usage.
type BucketStatus struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Protected bool `json:"protected"`
}

// Status is a point-in-time snapshot of governor state for the health
// endpoint.
type Status struct {
	Tokens            int                     `json:"tokens"`
	Capacity          int                     `json:"capacity"`
	DailyUsed         int                     `json:"daily_used"`
	DailySoftCap      int                     `json:"daily_soft_cap"`
	DailyHardCap      int                     `json:"daily_hard_cap"`
	Buckets           map[string]BucketStatus `json:"buckets"`
	BackoffActive     bool                    `json:"backoff_active"`
	BackoffUntil      time.Time               `json:"backoff_until,omitempty"`
	BackoffClass      BackoffClass            `json:"backoff_class,omitempty"`
	ConsecutiveErrors int                     `json:"consecutive_errors"`
}

// GetStatus returns current quota usage and backoff state.
func (g *Governor) GetStatus() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick()

	now := g.now()
	buckets := make(map[string]BucketStatus, len(g.cfg.Buckets))
	for name, bc := range g.cfg.Buckets {
		used := g.bucketUsed[name]
		remaining := bc.DailyLimit - used
		if remaining < 0 {
			remaining = 0
		}
		buckets[name] = BucketStatus{
			Used:      used,
			Limit:     bc.DailyLimit,
			Remaining: remaining,
			Protected: bc.Protected,
		}
	}

	st := Status{
		Tokens:            g.tokens,
		Capacity:          g.cfg.Capacity,
		DailyUsed:         g.dailyUsed,
		DailySoftCap:      g.cfg.DailySoftCap,
		DailyHardCap:      g.cfg.DailyHardCap,
		Buckets:           buckets,
		ConsecutiveErrors: g.consecutiveErrors,
	}
	if g.backoffUntil.After(now) {
		st.BackoffActive = true
		st.BackoffUntil = g.backoffUntil
		st.BackoffClass = g.backoffClass
	}
	return st
}
