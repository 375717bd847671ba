package oauth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
)

// LoginSession is the pre-authorization material cached on disk so a user can
// retry a failed code paste without invalidating the authorize URL. It never
// holds tokens.
type LoginSession struct {
	Verifier     string `json:"verifier"`
	Challenge    string `json:"challenge"`
	State        string `json:"state"`
	AuthorizeURL string `json:"authorize_url"`
	// CreatedAt is milliseconds since the Unix epoch.
	CreatedAt int64 `json:"created_at"`
}

const loginCacheTTL = time.Hour

// LoginCachePath returns the session cache file location under the user
// cache directory, falling back to the working directory.
func LoginCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "pluribus")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "oauth_login_cache.json")
}

// NewLoginSession generates fresh PKCE material and state and derives the
// authorize URL.
func NewLoginSession() (*LoginSession, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	return &LoginSession{
		Verifier:     pkce.Verifier,
		Challenge:    pkce.Challenge,
		State:        state,
		AuthorizeURL: BuildAuthorizeURL(pkce.Challenge, state),
		CreatedAt:    time.Now().UnixMilli(),
	}, nil
}

// LoadLoginSession returns the cached session if present and younger than one
// hour; expired caches are removed.
func LoadLoginSession() *LoginSession {
	path := LoginCachePath()
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var session LoginSession
	if err := json.Unmarshal(content, &session); err != nil {
		return nil
	}
	if time.Now().UnixMilli() > session.CreatedAt+loginCacheTTL.Milliseconds() {
		logger.L().Info("oauth login cache expired, will generate a new session")
		ClearLoginSession()
		return nil
	}
	logger.L().Info("loaded oauth login cache", zap.String("path", path))
	return &session
}

// Save writes the session to the cache file.
func (s *LoginSession) Save() error {
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(LoginCachePath(), content, 0o600)
}

// ClearLoginSession removes the cache file if present.
func ClearLoginSession() {
	_ = os.Remove(LoginCachePath())
}
