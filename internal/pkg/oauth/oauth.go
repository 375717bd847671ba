// Package oauth implements the Claude Code OAuth flow: PKCE material, the
// authorize URL, and code-exchange / refresh calls against the token endpoint.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/imroc/req/v3"

	"github.com/pluribus-ai/pluribus/internal/config"
)

// The upstream treats these values as part of the client identity and
// rejects variants. Do not change them.
const (
	ClientID     = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	AuthorizeURL = "https://claude.ai/oauth/authorize"
	TokenURL     = "https://console.anthropic.com/v1/oauth/token"
	RedirectURI  = "urn:ietf:wg:oauth:2.0:oob"
)

// Scopes requested during authorization.
var Scopes = []string{
	"org:create_api_key",
	"user:profile",
	"user:inference",
	"user:sessions:claude_code",
}

const tokenClientTimeout = 30 * time.Second

// tokenEndpoint is a var so package tests can point it at a mock server.
var tokenEndpoint = TokenURL

var (
	clientOnce  sync.Once
	tokenClient *req.Client
)

func client() *req.Client {
	clientOnce.Do(func() {
		tokenClient = req.C().SetTimeout(tokenClientTimeout)
		if config.TLSVerifyDisabled() {
			tokenClient.EnableInsecureSkipVerify()
		}
	})
	return tokenClient
}

// Token is the result of a successful code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is absolute, milliseconds since the Unix epoch.
	ExpiresAt int64
	Scopes    []string
}

// PKCE holds a verifier and its derived S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE returns a fresh verifier (base64url of 32 random bytes, no
// padding) and its SHA-256 challenge.
func GeneratePKCE() (PKCE, error) {
	raw, err := randomBytes(32)
	if err != nil {
		return PKCE{}, err
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	return PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// GenerateState returns a random base64url state string for CSRF binding.
func GenerateState() (string, error) {
	raw, err := randomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

// BuildAuthorizeURL constructs the browser authorization URL. Parameter order
// matches what the upstream client sends.
func BuildAuthorizeURL(challenge, state string) string {
	return fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&response_type=code&scope=%s&state=%s&code_challenge=%s&code_challenge_method=S256",
		AuthorizeURL,
		ClientID,
		url.QueryEscape(RedirectURI),
		url.QueryEscape(strings.Join(Scopes, " ")),
		url.QueryEscape(state),
		url.QueryEscape(challenge),
	)
}

// APIError is a non-2xx answer from the token endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oauth API error (HTTP %d): %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// ExchangeCode trades an authorization code for tokens.
func ExchangeCode(ctx context.Context, code, verifier, state string) (Token, error) {
	body := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  RedirectURI,
		"client_id":     ClientID,
		"code_verifier": verifier,
		"state":         state,
	}
	return tokenRequest(ctx, body)
}

// Refresh trades a refresh token for a new token pair. The returned refresh
// token replaces the stored one even when it is unchanged.
func Refresh(ctx context.Context, refreshToken string) (Token, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     ClientID,
		"scope":         strings.Join(Scopes, " "),
	}
	return tokenRequest(ctx, body)
}

func tokenRequest(ctx context.Context, body map[string]string) (Token, error) {
	var parsed tokenResponse
	resp, err := client().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetSuccessResult(&parsed).
		Post(tokenEndpoint)
	if err != nil {
		return Token{}, fmt.Errorf("oauth request failed: %w", err)
	}
	if !resp.IsSuccessState() {
		return Token{}, &APIError{StatusCode: resp.StatusCode, Body: resp.String()}
	}
	return tokenFromResponse(parsed, time.Now().UnixMilli())
}

func tokenFromResponse(parsed tokenResponse, nowMs int64) (Token, error) {
	if parsed.AccessToken == "" {
		return Token{}, fmt.Errorf("oauth response missing access_token")
	}
	if parsed.RefreshToken == "" {
		return Token{}, fmt.Errorf("oauth response missing refresh_token")
	}
	if parsed.ExpiresIn <= 0 {
		return Token{}, fmt.Errorf("oauth response missing expires_in")
	}
	return Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAt:    nowMs + parsed.ExpiresIn*1000,
		Scopes:       strings.Fields(parsed.Scope),
	}, nil
}
