package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSessionRoundtrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	session, err := NewLoginSession()
	require.NoError(t, err)
	assert.Contains(t, session.AuthorizeURL, "code_challenge="+session.Challenge)

	require.NoError(t, session.Save())

	loaded := LoadLoginSession()
	require.NotNil(t, loaded)
	assert.Equal(t, session, loaded)

	ClearLoginSession()
	assert.Nil(t, LoadLoginSession())
}

func TestLoadLoginSessionExpired(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	session, err := NewLoginSession()
	require.NoError(t, err)
	session.CreatedAt = time.Now().Add(-2 * time.Hour).UnixMilli()
	require.NoError(t, session.Save())

	assert.Nil(t, LoadLoginSession())
	// The expired cache file was removed, not just skipped.
	assert.NoFileExists(t, LoginCachePath())
}

func TestLoadLoginSessionMissing(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	assert.Nil(t, LoadLoginSession())
}
