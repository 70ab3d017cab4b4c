// Package control wires the gateway's components together and manages their
// lifecycle. All shared state lives in explicitly constructed, injected
// instances; nothing is package-global.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scoregate/scoregate/internal/core/config"
	"github.com/scoregate/scoregate/internal/core/domain"
	"github.com/scoregate/scoregate/internal/gateway/fetch"
	"github.com/scoregate/scoregate/internal/gateway/quota"
	"github.com/scoregate/scoregate/internal/health"
	"github.com/scoregate/scoregate/internal/infra/cache"
	redisclient "github.com/scoregate/scoregate/internal/infra/redis"
	"github.com/scoregate/scoregate/internal/infra/upstream"
)

// Gateway owns every component of the fetch path plus the health server.
type Gateway struct {
	cfg          *config.AppConfig
	log          *slog.Logger
	redisClient  *redisclient.Client
	governor     *quota.Governor
	orchestrator *fetch.Orchestrator
	healthServer *health.Server
	eg           *errgroup.Group
	cancel       context.CancelFunc
}

// NewGateway creates a gateway with all dependencies initialized.
func NewGateway(cfg *config.AppConfig) (*Gateway, error) {
	log := slog.Default().With("component", "control")

	// Durable tier is mandatory.
	durable, err := cache.NewFileStore(cfg.Storage.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("init durable tier: %w", err)
	}

	// Ephemeral tier is optional: if Redis is disabled or unreachable the
	// gateway runs durable-only rather than failing to start.
	var ephemeral cache.Cache
	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, running durable-only", "error", err)
		} else {
			ephemeral = cache.NewRedisCache(redisClient)
		}
	}

	store := cache.NewTiered(ephemeral, durable, slog.Default())
	store.RegisterValidator(domain.KindBoxScore, fetch.MinParticipants(cfg.Gateway.MinParticipants))

	governor := quota.NewGovernor(cfg.Quota, slog.Default())
	if err := governor.LoadFile(cfg.Storage.QuotaSnapshot); err != nil {
		log.Warn("Could not restore quota snapshot", "error", err)
	}

	provider := upstream.NewHTTPClient(cfg.Upstream)
	orchestrator := fetch.NewOrchestrator(provider, store, governor, cfg.Gateway.DedupWindow, slog.Default())

	return &Gateway{
		cfg:          cfg,
		log:          log,
		redisClient:  redisClient,
		governor:     governor,
		orchestrator: orchestrator,
		healthServer: health.NewServer(governor, orchestrator, cfg.Server.Port),
	}, nil
}

// Orchestrator exposes the fetch path to the transport layer.
func (g *Gateway) Orchestrator() *fetch.Orchestrator {
	return g.orchestrator
}

// Start launches the health server. Cancelling ctx shuts the server down,
// as does Stop.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, g.cancel = context.WithCancel(ctx)
	g.eg = &errgroup.Group{}
	g.eg.Go(func() error {
		g.log.Info("Health server listening", "port", g.cfg.Server.Port)
		if err := g.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.eg.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.healthServer.Stop(shutCtx); err != nil {
			g.log.Warn("Health server shutdown", "error", err)
		}
		return nil
	})
	return nil
}

// Stop shuts everything down and persists the quota snapshot.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	if err := g.healthServer.Stop(ctx); err != nil {
		g.log.Warn("Health server shutdown", "error", err)
	}
	g.orchestrator.Close()

	if err := os.MkdirAll(filepath.Dir(g.cfg.Storage.QuotaSnapshot), 0o755); err == nil {
		if err := g.governor.SaveFile(g.cfg.Storage.QuotaSnapshot); err != nil {
			g.log.Warn("Could not persist quota snapshot", "error", err)
		}
	}

	if g.redisClient != nil {
		if err := g.redisClient.Close(); err != nil {
			g.log.Warn("Redis close", "error", err)
		}
	}

	if g.eg != nil {
		return g.eg.Wait()
	}
	return nil
}
