package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// Config holds the provider connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPClient implements Provider over the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client. A zero timeout defaults to 10s,
// which doubles as the only in-flight deadline: the gateway never cancels a
// shared fetch on behalf of a disconnecting caller.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) FetchScoreboard(ctx context.Context, league domain.League, date string) (Result, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v1/%s/scoreboard", league), url.Values{"date": {date}})
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: body, Summary: summarizeScoreboard(body)}, nil
}

func (c *HTTPClient) FetchGame(ctx context.Context, gameID string) (Result, error) {
	body, err := c.get(ctx, "/v1/games/"+gameID, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: body, Summary: summarizeGame(body)}, nil
}

func (c *HTTPClient) FetchBoxScore(ctx context.Context, gameID string, sport domain.Sport) (Result, error) {
	body, err := c.get(ctx, "/v1/games/"+gameID+"/boxscore", url.Values{"sport": {string(sport)}})
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: body, Summary: summarizeBoxScore(body)}, nil
}

func (c *HTTPClient) FetchStandings(ctx context.Context, league domain.League, season string) (Result, error) {
	body, err := c.get(ctx, fmt.Sprintf("/v1/%s/standings", league), url.Values{"season": {season}})
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: body, Summary: domain.Summary{Kind: domain.KindStandings}}, nil
}

func (c *HTTPClient) FetchRoster(ctx context.Context, teamID string) (Result, error) {
	body, err := c.get(ctx, "/v1/teams/"+teamID+"/roster", nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Payload: body, Summary: domain.Summary{Kind: domain.KindRoster}}, nil
}

// get performs the request and classifies failures into UpstreamError so the
// quota governor can pick a backoff class from the status code.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Timeout: isTimeout(err), Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s returned %s", path, resp.Status),
		}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
