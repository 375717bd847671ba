package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLURIBUS_SECRET", "s3cret")
	t.Setenv("PLURIBUS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, "./providers", cfg.ProvidersDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "http://0.0.0.0:8080", cfg.BaseURL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLURIBUS_SECRET", "s3cret")
	t.Setenv("PLURIBUS_HOST", "127.0.0.1")
	t.Setenv("PLURIBUS_PORT", "9090")
	t.Setenv("PLURIBUS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
}

func TestLoadSecretRequired(t *testing.T) {
	t.Setenv("PLURIBUS_SECRET", "")
	t.Setenv("PLURIBUS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLURIBUS_SECRET")
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PLURIBUS_SECRET", "s3cret")
	t.Setenv("PLURIBUS_PORT", "70000")
	t.Setenv("PLURIBUS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLURIBUS_PORT")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"PLURIBUS_SECRET=from-file\nPLURIBUS_PORT=3000\n"), 0o600))

	t.Setenv("PLURIBUS_ENV_FILE", envFile)
	t.Cleanup(func() {
		os.Unsetenv("PLURIBUS_SECRET")
		os.Unsetenv("PLURIBUS_PORT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Secret)
	assert.Equal(t, 3000, cfg.Port)
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PLURIBUS_SECRET=from-file\n"), 0o600))

	t.Setenv("PLURIBUS_ENV_FILE", envFile)
	t.Setenv("PLURIBUS_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secret)
}

func TestTLSVerifyDisabled(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"no", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" true ", true},
	}
	for _, tc := range cases {
		t.Run("value="+tc.value, func(t *testing.T) {
			t.Setenv("PLURIBUS_DISABLE_TLS_VERIFY", tc.value)
			assert.Equal(t, tc.want, TLSVerifyDisabled())
		})
	}
}
