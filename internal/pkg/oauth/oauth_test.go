package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	require.NoError(t, err)

	// 32 random bytes, base64url without padding.
	assert.Len(t, pkce.Verifier, 43)
	_, err = base64.RawURLEncoding.DecodeString(pkce.Verifier)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(pkce.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pkce.Challenge)
}

func TestGeneratePKCEUnique(t *testing.T) {
	a, err := GeneratePKCE()
	require.NoError(t, err)
	b, err := GeneratePKCE()
	require.NoError(t, err)
	assert.NotEqual(t, a.Verifier, b.Verifier)
}

func TestBuildAuthorizeURL(t *testing.T) {
	raw := BuildAuthorizeURL("challenge-xyz", "state-abc")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "claude.ai", parsed.Host)
	assert.Equal(t, "/oauth/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, ClientID, q.Get("client_id"))
	assert.Equal(t, RedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, strings.Join(Scopes, " "), q.Get("scope"))
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, "challenge-xyz", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestTokenFromResponse(t *testing.T) {
	token, err := tokenFromResponse(tokenResponse{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresIn:    3600,
		Scope:        "user:profile user:inference",
	}, 1000)
	require.NoError(t, err)
	assert.Equal(t, Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    1000 + 3600*1000,
		Scopes:       []string{"user:profile", "user:inference"},
	}, token)
}

func TestTokenFromResponseMissingFields(t *testing.T) {
	cases := []struct {
		name string
		resp tokenResponse
	}{
		{"no access token", tokenResponse{RefreshToken: "rt", ExpiresIn: 1}},
		{"no refresh token", tokenResponse{AccessToken: "at", ExpiresIn: 1}},
		{"no expiry", tokenResponse{AccessToken: "at", RefreshToken: "rt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tokenFromResponse(tc.resp, 0)
			assert.Error(t, err)
		})
	}
}

func withMockEndpoint(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	prev := tokenEndpoint
	tokenEndpoint = srv.URL
	t.Cleanup(func() {
		tokenEndpoint = prev
		srv.Close()
	})
	return srv
}

func TestExchangeCode(t *testing.T) {
	var gotBody map[string]string
	withMockEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"scope":"user:inference"}`))
	})

	token, err := ExchangeCode(context.Background(), "code-1", "verifier-1", "state-1")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotBody["grant_type"])
	assert.Equal(t, "code-1", gotBody["code"])
	assert.Equal(t, "verifier-1", gotBody["code_verifier"])
	assert.Equal(t, "state-1", gotBody["state"])
	assert.Equal(t, ClientID, gotBody["client_id"])
	assert.Equal(t, RedirectURI, gotBody["redirect_uri"])

	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.Greater(t, token.ExpiresAt, int64(0))
}

func TestRefresh(t *testing.T) {
	var gotBody map[string]string
	withMockEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":600}`))
	})

	token, err := Refresh(context.Background(), "rt-old")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotBody["grant_type"])
	assert.Equal(t, "rt-old", gotBody["refresh_token"])
	assert.Equal(t, ClientID, gotBody["client_id"])

	assert.Equal(t, "at2", token.AccessToken)
	assert.Equal(t, "rt2", token.RefreshToken)
	assert.Empty(t, token.Scopes)
}

func TestRefreshAPIError(t *testing.T) {
	withMockEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := Refresh(context.Background(), "rt-revoked")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid_grant")
}
