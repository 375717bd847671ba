package claudecode

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/pkg/oauth"
	"github.com/pluribus-ai/pluribus/internal/provider"
)

// validToken returns a non-stale access token, refreshing through the token
// endpoint when needed. Concurrent callers coalesce into a single refresh.
func (p *Provider) validToken(ctx context.Context) (string, error) {
	if token, ok := p.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := p.group.Do("token", func() (any, error) {
		// Another caller may have finished the refresh while we waited.
		if token, ok := p.cachedToken(); ok {
			return token, nil
		}
		return p.loadOrRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// cachedToken returns the in-memory access token when it is still fresh.
func (p *Provider) cachedToken() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && !p.cached.Stale() {
		return p.cached.AccessToken, true
	}
	return "", false
}

// loadOrRefresh reads the on-disk credential, refreshes it when stale,
// persists the result, and installs it in the cache.
func (p *Provider) loadOrRefresh(ctx context.Context) (string, error) {
	cfg, err := provider.Load(p.dir, p.name)
	if err != nil {
		return "", err
	}
	if cfg.OAuth == nil {
		return "", fmt.Errorf("provider %s is not OAuth type", p.name)
	}

	creds := cfg.OAuth
	if creds.Stale() {
		logger.L().Info("refreshing token", zap.String("provider", p.name))
		token, err := p.refreshFn(ctx, creds.RefreshToken)
		if err != nil {
			// The cached credential stays in place: stale-but-present beats
			// nothing once upstream recovers.
			p.noteRefreshFailure(err)
			return "", fmt.Errorf("refresh token for provider %s: %w", p.name, err)
		}
		creds = credentialsFromToken(token)
		if err := provider.UpdateOAuth(p.dir, p.name, creds); err != nil {
			return "", fmt.Errorf("persist refreshed credentials for %s: %w", p.name, err)
		}
	}

	p.mu.Lock()
	p.cached = creds
	p.mu.Unlock()
	return creds.AccessToken, nil
}

func (p *Provider) noteRefreshFailure(err error) {
	var apiErr *oauth.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode < 400 || apiErr.StatusCode > 499 {
		return
	}
	if p.disableOnAuthError {
		logger.L().Warn("disabling provider after refresh auth failure",
			zap.String("provider", p.name), zap.Int("status", apiErr.StatusCode))
		p.unhealthy.Store(true)
	}
}

func credentialsFromToken(token oauth.Token) *provider.OAuthCredentials {
	scopes := token.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return &provider.OAuthCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		Scopes:       scopes,
	}
}
