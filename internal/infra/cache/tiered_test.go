package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// memCache is an in-memory Cache double. failing makes every operation
// error, standing in for a down Redis.
type memCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttls    map[string]time.Duration
	failing bool
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]Entry), ttls: make(map[string]time.Duration)}
}

func (m *memCache) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return Entry{}, errors.New("tier down")
	}
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("tier down")
	}
	m.sets++
	m.entries[key] = Entry{Payload: payload, StoredAt: time.Now().UTC()}
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false, errors.New("tier down")
	}
	_, ok := m.entries[key]
	return ok, nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func TestTiered_EphemeralFirst(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	ts := NewTiered(eph, dur, nil)
	ctx := context.Background()

	eph.Set(ctx, "k", []byte("fast"), time.Minute)
	dur.Set(ctx, "k", []byte("slow"), 0)

	e, err := ts.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(e.Payload) != "fast" {
		t.Errorf("expected ephemeral value, got %s", e.Payload)
	}
	if e.Tier() != TierEphemeral {
		t.Errorf("expected tier %q, got %q", TierEphemeral, e.Tier())
	}
}

func TestTiered_FallsBackToDurable(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	ts := NewTiered(eph, dur, nil)
	ctx := context.Background()

	dur.Set(ctx, "k", []byte("archived"), 0)

	// Miss in ephemeral falls through.
	e, err := ts.Get(ctx, "k")
	if err != nil || string(e.Payload) != "archived" {
		t.Errorf("miss fallback failed: %v", err)
	}
	if e.Tier() != TierDurable {
		t.Errorf("expected tier %q, got %q", TierDurable, e.Tier())
	}

	// A failing ephemeral tier falls through too.
	eph.failing = true
	if e, err := ts.Get(ctx, "k"); err != nil || string(e.Payload) != "archived" {
		t.Errorf("failure fallback failed: %v", err)
	}
}

func TestTiered_NilEphemeral(t *testing.T) {
	dur := newMemCache()
	ts := NewTiered(nil, dur, nil)
	ctx := context.Background()

	if err := ts.Set(ctx, "k", []byte("v"), time.Minute, false, domain.KindScoreboard, domain.Summary{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Non-permanent writes without an ephemeral tier are dropped, not stored
	// durably.
	if _, err := ts.Get(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected miss, got %v", err)
	}
}

func TestTiered_EphemeralWriteFailureIsSilent(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	eph.failing = true
	ts := NewTiered(eph, dur, nil)

	err := ts.Set(context.Background(), "k", []byte("v"), time.Minute, false, domain.KindScoreboard, domain.Summary{})
	if err != nil {
		t.Errorf("ephemeral write failure must not reach the caller: %v", err)
	}
}

func TestTiered_PermanentWrite(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	ts := NewTiered(eph, dur, nil)
	ctx := context.Background()

	payload := []byte(`{"status":"final"}`)
	err := ts.Set(ctx, "boxscore:1", payload, 90*time.Second, true, domain.KindBoxScore, domain.Summary{})
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	// Durable copy exists without expiry.
	if e, err := dur.Get(ctx, "boxscore:1"); err != nil || string(e.Payload) != string(payload) {
		t.Errorf("durable copy missing: %v", err)
	}
	// Ephemeral copy got the 30-day backup TTL, not the computed one.
	if ttl := eph.ttls["boxscore:1"]; ttl != 30*24*time.Hour {
		t.Errorf("expected 30d backup TTL on ephemeral copy, got %v", ttl)
	}
}

func TestTiered_PermanentWriteOnce(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	ts := NewTiered(eph, dur, nil)
	ctx := context.Background()

	ts.Set(ctx, "boxscore:1", []byte("first"), time.Minute, true, domain.KindBoxScore, domain.Summary{})
	ts.Set(ctx, "boxscore:1", []byte("second"), time.Minute, true, domain.KindBoxScore, domain.Summary{})

	e, _ := dur.Get(ctx, "boxscore:1")
	if string(e.Payload) != "first" {
		t.Errorf("permanent artifact must not be overwritten, got %s", e.Payload)
	}
	if dur.sets != 1 {
		t.Errorf("expected exactly one durable write, got %d", dur.sets)
	}
}

func TestTiered_ValidatorRejection(t *testing.T) {
	eph, dur := newMemCache(), newMemCache()
	ts := NewTiered(eph, dur, nil)
	ts.RegisterValidator(domain.KindBoxScore, func(_ []byte, sum domain.Summary) error {
		if sum.ParticipantCount < 8 {
			return fmt.Errorf("only %d participants", sum.ParticipantCount)
		}
		return nil
	})
	ctx := context.Background()

	err := ts.Set(ctx, "boxscore:1", []byte("{}"), time.Minute, true,
		domain.KindBoxScore, domain.Summary{ParticipantCount: 2})

	var ie *domain.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if _, err := dur.Get(ctx, "boxscore:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("rejected payload must not reach the durable tier")
	}
	if _, err := eph.Get(ctx, "boxscore:1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("rejected payload must not be cached ephemerally either")
	}

	// A complete payload passes.
	err = ts.Set(ctx, "boxscore:1", []byte("{}"), time.Minute, true,
		domain.KindBoxScore, domain.Summary{ParticipantCount: 24})
	if err != nil {
		t.Errorf("complete payload rejected: %v", err)
	}

	// The validator only guards permanent writes.
	err = ts.Set(ctx, "boxscore:live", []byte("{}"), time.Minute, false,
		domain.KindBoxScore, domain.Summary{ParticipantCount: 0})
	if err != nil {
		t.Errorf("non-permanent write should skip validation: %v", err)
	}
}
