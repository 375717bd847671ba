// Package claudecode implements the claude_code provider: OAuth token
// lifecycle, the upstream Messages client, and the streaming relay.
package claudecode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/pkg/httpclient"
	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/pkg/oauth"
	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/transform"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"

	apiTimeout          = 300 * time.Second
	maxIdleConnsPerHost = 10
)

// Provider relays requests for one claude_code subscription credential.
type Provider struct {
	dir                string
	name               string
	aliasTools         bool
	disableOnAuthError bool

	apiURL string
	client *http.Client

	// refreshFn is a seam for tests; defaults to oauth.Refresh.
	refreshFn func(ctx context.Context, refreshToken string) (oauth.Token, error)

	mu     sync.Mutex
	cached *provider.OAuthCredentials
	group  singleflight.Group

	rlMu  sync.RWMutex
	rl    provider.RateLimitInfo
	rlSet bool

	unhealthy atomic.Bool
}

// New builds a provider bound to one on-disk config record.
func New(dir string, cfg *provider.Config) *Provider {
	return &Provider{
		dir:                dir,
		name:               cfg.Name,
		aliasTools:         cfg.AliasTools,
		disableOnAuthError: cfg.DisableOnAuthError,
		apiURL:             anthropicAPIURL,
		client: httpclient.Get(httpclient.Options{
			Timeout:             apiTimeout,
			InsecureSkipVerify:  config.TLSVerifyDisabled(),
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
		}),
		refreshFn: oauth.Refresh,
	}
}

func (p *Provider) Name() string        { return p.name }
func (p *Provider) Type() provider.Type { return provider.TypeClaudeCode }

// Healthy is false only after a hard refresh failure on a provider
// configured with disable_on_auth_error.
func (p *Provider) Healthy() bool { return !p.unhealthy.Load() }

// RateLimit returns the snapshot from the last upstream response.
func (p *Provider) RateLimit() (provider.RateLimitInfo, bool) {
	p.rlMu.RLock()
	defer p.rlMu.RUnlock()
	return p.rl, p.rlSet
}

func (p *Provider) setRateLimit(info provider.RateLimitInfo) {
	p.rlMu.Lock()
	p.rl = info
	p.rlSet = true
	p.rlMu.Unlock()
}

// SendMessage relays a unit request and returns the upstream body.
func (p *Provider) SendMessage(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := p.sendRequest(ctx, body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read claude API response: %w", err)
	}
	if p.aliasTools {
		respBody = RestoreToolNames(respBody)
	}
	return respBody, nil
}

// SendStreaming relays a streaming request. The returned channel delivers
// one complete SSE event per receive and closes at upstream EOF.
func (p *Provider) SendStreaming(ctx context.Context, body []byte) (*provider.StreamingResponse, error) {
	model := transform.Model(body)
	resp, err := p.sendRequest(ctx, body, true)
	if err != nil {
		return nil, err
	}

	events := make(chan []byte, streamChannelBuffer)
	go p.relayStream(ctx, resp.Body, events, model)

	return &provider.StreamingResponse{StatusCode: resp.StatusCode, Events: events}, nil
}

// sendRequest holds the shared POST path: token, headers, body finalization,
// and rate-limit ingestion.
func (p *Provider) sendRequest(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	accessToken, err := p.validToken(ctx)
	if err != nil {
		return nil, err
	}

	// Headers come from the raw body (passthrough values live there); the
	// body is finalized afterwards, which strips them.
	beta := transform.BetaHeader(body)
	body = transform.Finalize(body, stream)
	if p.aliasTools {
		body = SpoofToolNames(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build claude API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("anthropic-beta", beta)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request to claude API: %w", err)
	}

	// Rate-limit headers are ingested regardless of status.
	p.setRateLimit(provider.RateLimitFromHeaders(resp.Header))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("claude API error %d: %s", resp.StatusCode, errBody)
	}
	return resp, nil
}

// LoadProviders constructs providers from every config record in dir,
// skipping types without an implementation.
func LoadProviders(dir string) ([]provider.Provider, error) {
	configs, err := provider.LoadAll(dir)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		logger.L().Warn("no providers found, run 'pluribus login claude-code' to add one")
		return nil, nil
	}
	logger.L().Info("loaded provider configs", zap.Int("count", len(configs)))

	var providers []provider.Provider
	for _, cfg := range configs {
		if cfg.Type != provider.TypeClaudeCode {
			logger.L().Warn("skipping provider with unimplemented type",
				zap.String("name", cfg.Name), zap.String("type", string(cfg.Type)))
			continue
		}
		providers = append(providers, New(dir, cfg))
	}
	return providers, nil
}
