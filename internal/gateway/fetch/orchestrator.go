// Package fetch composes the coalescer, tiered store, quota governor, and
// cache policy into the single request path every caller uses.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scoregate/scoregate/internal/core/domain"
	"github.com/scoregate/scoregate/internal/gateway/coalesce"
	"github.com/scoregate/scoregate/internal/gateway/metrics"
	"github.com/scoregate/scoregate/internal/gateway/policy"
	"github.com/scoregate/scoregate/internal/gateway/quota"
	"github.com/scoregate/scoregate/internal/infra/cache"
	"github.com/scoregate/scoregate/internal/infra/upstream"
)

// Response is the orchestrator's answer for any resource. Stale marks a
// cached value served past its TTL because the quota gate denied a refresh.
type Response struct {
	Payload  []byte
	Summary  domain.Summary
	StoredAt time.Time
	Cached   bool
	Stale    bool
}

// ttlPlan computes the TTL and permanence decision for a payload's state.
type ttlPlan func(sum domain.Summary) (time.Duration, bool)

// Orchestrator is the request path: dedup, cache check, quota gate, upstream
// call, policy-driven store.
type Orchestrator struct {
	provider  upstream.Provider
	store     *cache.Tiered
	governor  *quota.Governor
	coalescer *coalesce.Coalescer[Response]
	log       *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires the request path. A zero dedupWindow uses the
// coalescer default.
func NewOrchestrator(
	provider upstream.Provider,
	store *cache.Tiered,
	governor *quota.Governor,
	dedupWindow time.Duration,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		provider:  provider,
		store:     store,
		governor:  governor,
		coalescer: coalesce.New[Response](dedupWindow),
		log:       log.With("component", "fetch"),
		now:       time.Now,
	}
}

// PendingCount exposes the coalescer's in-flight fetch count.
func (o *Orchestrator) PendingCount() int {
	return o.coalescer.PendingCount()
}

// Close stops the coalescer's cleanup timers.
func (o *Orchestrator) Close() {
	o.coalescer.Close()
}

// Scoreboard returns a league's scoreboard for a date (YYYY-MM-DD).
func (o *Orchestrator) Scoreboard(ctx context.Context, league domain.League, date string) (Response, error) {
	key := domain.ScoreboardKey(league, date)
	return o.fetch(ctx, key, domain.KindScoreboard, "scoreboard",
		func(ctx context.Context) (upstream.Result, error) {
			return o.provider.FetchScoreboard(ctx, league, date)
		},
		func(sum domain.Summary) (time.Duration, bool) {
			if sum.GameCount == 0 {
				// A well-formed empty board confirms the date has no events.
				return policy.NoDataTTL(policy.NoDataVerified), false
			}
			ttl := policy.ScoreboardTTL(sum.HasLive, o.isToday(date), sum.HasScheduled, sum.AllFinal)
			return ttl, false
		})
}

// Game returns a single game's current state.
func (o *Orchestrator) Game(ctx context.Context, gameID string) (Response, error) {
	key := domain.GameKey(gameID)
	return o.fetch(ctx, key, domain.KindGame, "game",
		func(ctx context.Context) (upstream.Result, error) {
			return o.provider.FetchGame(ctx, gameID)
		},
		o.gamePlan)
}

// BoxScore returns a game's box score. Final box scores are persisted
// permanently and never re-fetched.
func (o *Orchestrator) BoxScore(ctx context.Context, gameID string, sport domain.Sport) (Response, error) {
	key := domain.BoxScoreKey(gameID)
	return o.fetch(ctx, key, domain.KindBoxScore, "boxscore",
		func(ctx context.Context) (upstream.Result, error) {
			return o.provider.FetchBoxScore(ctx, gameID, sport)
		},
		o.gamePlan)
}

// Standings returns a league's standings for a season.
func (o *Orchestrator) Standings(ctx context.Context, league domain.League, season string) (Response, error) {
	key := domain.StandingsKey(league, season)
	return o.fetch(ctx, key, domain.KindStandings, "standings",
		func(ctx context.Context) (upstream.Result, error) {
			return o.provider.FetchStandings(ctx, league, season)
		},
		func(domain.Summary) (time.Duration, bool) {
			return policy.TTLStandings, false
		})
}

// Roster returns a team's roster.
func (o *Orchestrator) Roster(ctx context.Context, teamID string) (Response, error) {
	key := domain.RosterKey(teamID)
	return o.fetch(ctx, key, domain.KindRoster, "roster",
		func(ctx context.Context) (upstream.Result, error) {
			return o.provider.FetchRoster(ctx, teamID)
		},
		func(domain.Summary) (time.Duration, bool) {
			return policy.TTLRoster, false
		})
}

// gamePlan applies box-score TTL policy to any single-game artifact.
func (o *Orchestrator) gamePlan(sum domain.Summary) (time.Duration, bool) {
	sameDay := sum.EventDate == "" || o.isToday(sum.EventDate)
	return policy.BoxScoreTTL(sum.Status, sameDay), policy.ShouldPersistPermanently(sum.Status)
}

func (o *Orchestrator) isToday(date string) bool {
	return date == o.now().UTC().Format(time.DateOnly)
}

// fetch funnels every caller through the coalescer; the winner runs
// fetchAndCache and the result fans out to all waiters.
func (o *Orchestrator) fetch(
	ctx context.Context,
	key string,
	kind domain.ResourceKind,
	bucket string,
	call func(context.Context) (upstream.Result, error),
	plan ttlPlan,
) (Response, error) {
	return o.coalescer.Dedupe(ctx, key, func() (Response, error) {
		// The winning fetch is shared; a disconnecting caller must not
		// cancel it for the other waiters. The upstream client's own
		// timeout is the only deadline.
		return o.fetchAndCache(context.WithoutCancel(ctx), key, kind, bucket, call, plan)
	})
}

func (o *Orchestrator) fetchAndCache(
	ctx context.Context,
	key string,
	kind domain.ResourceKind,
	bucket string,
	call func(context.Context) (upstream.Result, error),
	plan ttlPlan,
) (Response, error) {
	now := o.now()

	// Cache check: a hit younger than the policy TTL for its current state
	// is returned as-is. A terminal artifact is immutable, so its stored
	// copy stays authoritative at any age and is never re-fetched. Other
	// aged hits are kept as a stale fallback.
	var staleEntry *cache.Entry
	if entry, err := o.store.Get(ctx, key); err == nil {
		sum := upstream.Summarize(kind, entry.Payload)
		ttl, permanent := plan(sum)
		if permanent || entry.Age(now) <= ttl {
			metrics.CacheHitsTotal.WithLabelValues(entry.Tier(), string(kind)).Inc()
			return Response{
				Payload:  entry.Payload,
				Summary:  sum,
				StoredAt: entry.StoredAt,
				Cached:   true,
			}, nil
		}
		staleEntry = &entry
	}
	metrics.CacheMissesTotal.WithLabelValues(string(kind)).Inc()

	// Quota gate. Denials serve the stale copy when one exists, otherwise a
	// typed soft error with a retry-after hint.
	if d := o.governor.CanMakeRequest(bucket); !d.Allowed {
		metrics.QuotaDenialsTotal.WithLabelValues(bucket, d.Reason).Inc()
		if staleEntry != nil {
			metrics.StaleServesTotal.WithLabelValues(string(kind)).Inc()
			o.log.Info("Serving stale cache under quota denial",
				"key", key, "reason", d.Reason, "age", staleEntry.Age(now))
			return Response{
				Payload:  staleEntry.Payload,
				Summary:  upstream.Summarize(kind, staleEntry.Payload),
				StoredAt: staleEntry.StoredAt,
				Cached:   true,
				Stale:    true,
			}, nil
		}
		if d.Reason == quota.ReasonBackoffActive {
			return Response{}, &domain.BackoffActiveError{RetryAfter: d.RetryAfter}
		}
		return Response{}, &domain.QuotaExhaustedError{Bucket: bucket, Reason: d.Reason, RetryAfter: d.RetryAfter}
	}

	fetchID := uuid.NewString()
	o.log.Debug("Fetching upstream", "key", key, "bucket", bucket, "fetch_id", fetchID)

	start := time.Now()
	res, err := call(ctx)
	metrics.UpstreamLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		statusCode, isTimeout := 0, false
		var ue *domain.UpstreamError
		if errors.As(err, &ue) {
			statusCode, isTimeout = ue.StatusCode, ue.Timeout
		}
		o.governor.RecordError(statusCode, isTimeout)
		metrics.UpstreamCallsTotal.WithLabelValues(string(kind), "error").Inc()
		o.log.Warn("Upstream fetch failed",
			"key", key, "fetch_id", fetchID, "status", statusCode, "timeout", isTimeout, "error", err)
		return Response{}, err
	}

	o.governor.RecordRequest(bucket)
	o.governor.RecordSuccess()
	metrics.UpstreamCallsTotal.WithLabelValues(string(kind), "success").Inc()

	ttl, persist := plan(res.Summary)
	if err := o.store.Set(ctx, key, res.Payload, ttl, persist, kind, res.Summary); err != nil {
		// Integrity rejections are transient: the payload is still served,
		// just never cached, so a later fetch retries.
		o.log.Warn("Payload not cached", "key", key, "fetch_id", fetchID, "error", err)
	}

	return Response{Payload: res.Payload, Summary: res.Summary, StoredAt: now}, nil
}
