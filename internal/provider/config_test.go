package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{
		Name: "work",
		Type: TypeClaudeCode,
		OAuth: &OAuthCredentials{
			AccessToken:  "at-123",
			RefreshToken: "rt-456",
			ExpiresAt:    1700000000000,
			Scopes:       []string{"user:profile", "user:inference"},
		},
	}
	require.NoError(t, Save(dir, "work", cfg))

	loaded, err := Load(dir, "work")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveLoadRoundtripAPI(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{
		Name: "direct",
		Type: TypeAnthropic,
		API: &APICredentials{
			BaseURL: "https://api.anthropic.com",
			APIKey:  "sk-test",
		},
	}
	require.NoError(t, Save(dir, "direct", cfg))

	loaded, err := Load(dir, "direct")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveEmptyScopes(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{
		Name:  "bare",
		Type:  TypeClaudeCode,
		OAuth: &OAuthCredentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1},
	}
	require.NoError(t, Save(dir, "bare", cfg))

	loaded, err := Load(dir, "bare")
	require.NoError(t, err)
	assert.Empty(t, loaded.OAuth.Scopes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadStructuralErrors(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "both sections",
			content: "type = \"claude_code\"\n\n[oauth]\naccess_token = \"a\"\nrefresh_token = \"r\"\nexpires_at = 1\n\n" +
				"[api]\nbase_url = \"https://x\"\napi_key = \"k\"\n",
			wantErr: ErrAmbiguousAuth,
		},
		{
			name:    "no sections",
			content: "type = \"claude_code\"\n",
			wantErr: ErrNoCredentials,
		},
		{
			name:    "missing type",
			content: "[oauth]\naccess_token = \"a\"\nrefresh_token = \"r\"\nexpires_at = 1\n",
			wantErr: ErrMissingType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))
			_, err := Load(dir, "bad")
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadAllSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	good := &Config{
		Name:  "good",
		Type:  TypeClaudeCode,
		OAuth: &OAuthCredentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1, Scopes: []string{}},
	}
	require.NoError(t, Save(dir, "good", good))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("not toml {{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600))

	configs, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "good", configs[0].Name)
}

func TestLoadAllMissingDir(t *testing.T) {
	configs, err := LoadAll(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestUpdateOAuthPreservesFields(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{
		Name:       "work",
		Type:       TypeClaudeCode,
		AliasTools: true,
		OAuth:      &OAuthCredentials{AccessToken: "old", RefreshToken: "old-r", ExpiresAt: 1, Scopes: []string{}},
	}
	require.NoError(t, Save(dir, "work", cfg))

	next := &OAuthCredentials{AccessToken: "new", RefreshToken: "new-r", ExpiresAt: 2, Scopes: []string{"s"}}
	require.NoError(t, UpdateOAuth(dir, "work", next))

	loaded, err := Load(dir, "work")
	require.NoError(t, err)
	assert.Equal(t, TypeClaudeCode, loaded.Type)
	assert.True(t, loaded.AliasTools)
	assert.Equal(t, next, loaded.OAuth)
}

func TestOAuthCredentialsStale(t *testing.T) {
	now := time.Now().UnixMilli()

	fresh := &OAuthCredentials{ExpiresAt: now + 10*60*1000}
	assert.False(t, fresh.StaleAt(now))

	inWindow := &OAuthCredentials{ExpiresAt: now + 60*1000}
	assert.True(t, inWindow.StaleAt(now))

	expired := &OAuthCredentials{ExpiresAt: now - 1}
	assert.True(t, expired.StaleAt(now))
}

func TestTypeIsAnthropic(t *testing.T) {
	assert.True(t, TypeAnthropic.IsAnthropic())
	assert.True(t, TypeClaudeCode.IsAnthropic())
	assert.False(t, TypeOpenAI.IsAnthropic())
	assert.False(t, TypeCodex.IsAnthropic())
}
