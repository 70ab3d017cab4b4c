package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scoregate/scoregate/internal/core/domain"
	"github.com/scoregate/scoregate/internal/gateway/metrics"
)

// backupTTL is applied to the ephemeral copy of a permanent artifact so the
// fast tier keeps serving it long after the computed TTL, with the durable
// tier as the fallback of record.
const backupTTL = 30 * 24 * time.Hour

// Tier names reported by Entry.Tier.
const (
	TierEphemeral = "ephemeral"
	TierDurable   = "durable"
)

// Validator checks that a terminal-looking payload is complete enough to
// persist permanently. Registered per resource kind.
type Validator func(payload []byte, sum domain.Summary) error

// Tiered composes an optional ephemeral tier and a mandatory durable tier.
// Ephemeral failures are logged and never propagate; only integrity
// rejections surface to the caller, and those are non-fatal by contract.
type Tiered struct {
	ephemeral  Cache
	durable    Cache
	validators map[domain.ResourceKind]Validator
	log        *slog.Logger
}

// NewTiered builds the store. A nil ephemeral tier is allowed; the store
// then reads and writes the durable tier only.
func NewTiered(ephemeral, durable Cache, log *slog.Logger) *Tiered {
	if log == nil {
		log = slog.Default()
	}
	return &Tiered{
		ephemeral:  ephemeral,
		durable:    durable,
		validators: make(map[domain.ResourceKind]Validator),
		log:        log.With("component", "cache"),
	}
}

// RegisterValidator installs the completeness guard for one resource kind.
func (t *Tiered) RegisterValidator(kind domain.ResourceKind, v Validator) {
	t.validators[kind] = v
}

// Get tries the ephemeral tier first, then falls back to the durable tier.
// Returns domain.ErrNotFound when the key is absent from both.
func (t *Tiered) Get(ctx context.Context, key string) (Entry, error) {
	if t.ephemeral != nil {
		e, err := t.ephemeral.Get(ctx, key)
		if err == nil {
			e.tier = TierEphemeral
			return e, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			t.log.Warn("Ephemeral tier read failed, falling back", "key", key, "error", err)
		}
	}
	e, err := t.durable.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	e.tier = TierDurable
	return e, nil
}

// Set writes the artifact. The ephemeral write is best-effort with the given
// TTL; when persist is true the payload must pass the kind's completeness
// validator, gets a 30-day ephemeral backup TTL, and is written once to the
// durable tier without expiry. A rejected payload is not cached in either
// tier and an IntegrityError is returned; callers treat it as transient.
func (t *Tiered) Set(
	ctx context.Context,
	key string,
	payload []byte,
	ttl time.Duration,
	persist bool,
	kind domain.ResourceKind,
	sum domain.Summary,
) error {
	if persist {
		if v, ok := t.validators[kind]; ok {
			if err := v(payload, sum); err != nil {
				metrics.IntegrityRejectionsTotal.WithLabelValues(string(kind)).Inc()
				t.log.Warn("Rejecting incomplete terminal payload", "key", key, "error", err)
				return &domain.IntegrityError{Key: key, Reason: err.Error()}
			}
		}
		ttl = backupTTL
	}

	if t.ephemeral != nil {
		if err := t.ephemeral.Set(ctx, key, payload, ttl); err != nil {
			t.log.Warn("Ephemeral tier write failed", "key", key, "error", err)
		}
	}

	if persist {
		// Permanent artifacts are write-once: a terminal result never
		// changes, so an existing file is left untouched.
		exists, err := t.durable.Exists(ctx, key)
		if err != nil {
			t.log.Warn("Durable tier existence check failed", "key", key, "error", err)
		}
		if !exists {
			if err := t.durable.Set(ctx, key, payload, 0); err != nil {
				t.log.Warn("Durable tier write failed", "key", key, "error", err)
			}
		}
	}
	return nil
}

// Exists checks the ephemeral tier then the durable tier.
func (t *Tiered) Exists(ctx context.Context, key string) (bool, error) {
	if t.ephemeral != nil {
		ok, err := t.ephemeral.Exists(ctx, key)
		if err != nil {
			t.log.Warn("Ephemeral tier existence check failed", "key", key, "error", err)
		} else if ok {
			return true, nil
		}
	}
	return t.durable.Exists(ctx, key)
}
