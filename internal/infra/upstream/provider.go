// Package upstream wraps the external sports-data provider. The gateway
// treats payloads as opaque bytes; only a small Summary is derived from each
// response to drive cache policy and completeness validation.
package upstream

import (
	"context"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// Result is a fetched payload plus the derived state the gateway needs.
type Result struct {
	Payload []byte
	Summary domain.Summary
}

// Provider is the upstream contract. Every call is wrapped by the fetch
// orchestrator; nothing else in the gateway talks to the provider.
type Provider interface {
	FetchScoreboard(ctx context.Context, league domain.League, date string) (Result, error)
	FetchGame(ctx context.Context, gameID string) (Result, error)
	FetchBoxScore(ctx context.Context, gameID string, sport domain.Sport) (Result, error)
	FetchStandings(ctx context.Context, league domain.League, season string) (Result, error)
	FetchRoster(ctx context.Context, teamID string) (Result, error)
}
