package claudecode

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
)

const (
	defaultVersion       = "2.0.75"
	versionLookupTimeout = 30 * time.Second
)

// npmRegistryURL points at the upstream CLI package; a var so tests can aim
// it at a mock registry.
var npmRegistryURL = "https://registry.npmjs.org/@anthropic-ai/claude-code"

var currentVersion atomic.Pointer[string]

var (
	versionClientOnce sync.Once
	versionClient     *req.Client
)

func lookupClient() *req.Client {
	versionClientOnce.Do(func() {
		versionClient = req.C().SetTimeout(versionLookupTimeout)
		if config.TLSVerifyDisabled() {
			versionClient.EnableInsecureSkipVerify()
		}
	})
	return versionClient
}

// InitVersion resolves the upstream CLI version once, before the first
// request is served. Lookup failure falls back to the pinned default.
func InitVersion(ctx context.Context) {
	version := defaultVersion
	if fetched, err := fetchLatestVersion(ctx); err != nil {
		logger.L().Warn("failed to fetch claude-code version, using default",
			zap.String("default", defaultVersion), zap.Error(err))
	} else {
		version = fetched
	}
	currentVersion.Store(&version)
	logger.L().Info("claude-code version pinned", zap.String("version", version))
}

// Version returns the pinned upstream CLI version.
func Version() string {
	if v := currentVersion.Load(); v != nil {
		return *v
	}
	return defaultVersion
}

func userAgent() string {
	return "claude-code/" + Version()
}

func fetchLatestVersion(ctx context.Context) (string, error) {
	var registry struct {
		DistTags struct {
			Latest string `json:"latest"`
		} `json:"dist-tags"`
	}
	resp, err := lookupClient().R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetSuccessResult(&registry).
		Get(npmRegistryURL)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccessState() {
		return "", fmt.Errorf("npm registry returned HTTP %d", resp.StatusCode)
	}
	if registry.DistTags.Latest == "" {
		return "", fmt.Errorf("latest version not found in registry response")
	}
	return registry.DistTags.Latest, nil
}
