// Package config loads gateway configuration from the environment, with an
// optional dotenv file preloaded first.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix       = "PLURIBUS"
	defaultHost     = "0.0.0.0"
	defaultPort     = 8080
	defaultEnvFile  = ".env"
	defaultProvider = "./providers"
)

type Config struct {
	// Host and Port are the listen address of the gateway.
	Host string
	Port int
	// Secret is the bearer secret required on incoming requests.
	Secret string
	// ProvidersDir holds one TOML file per provider.
	ProvidersDir string
	// DisableTLSVerify turns off outbound certificate verification. Debug only.
	DisableTLSVerify bool
}

// Load reads configuration once at startup. PLURIBUS_SECRET is required.
func Load() (*Config, error) {
	preloadEnvFile()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)

	secret := strings.TrimSpace(v.GetString("secret"))
	if secret == "" {
		return nil, fmt.Errorf("PLURIBUS_SECRET environment variable is required")
	}

	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PLURIBUS_PORT must be a valid port number")
	}

	return &Config{
		Host:             v.GetString("host"),
		Port:             port,
		Secret:           secret,
		ProvidersDir:     defaultProvider,
		DisableTLSVerify: TLSVerifyDisabled(),
	}, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the local server URL used by the test command.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// TLSVerifyDisabled reports whether PLURIBUS_DISABLE_TLS_VERIFY is set to
// "1" or "true" (case-insensitive).
func TLSVerifyDisabled() bool {
	v := strings.TrimSpace(os.Getenv(envPrefix + "_DISABLE_TLS_VERIFY"))
	return v == "1" || strings.EqualFold(v, "true")
}

// preloadEnvFile copies values from the dotenv file named by
// PLURIBUS_ENV_FILE (default ".env" in the working directory) into the
// process environment. Real environment variables win over file values.
func preloadEnvFile() {
	path := strings.TrimSpace(os.Getenv(envPrefix + "_ENV_FILE"))
	if path == "" {
		path = defaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	f := viper.New()
	f.SetConfigFile(path)
	f.SetConfigType("env")
	if err := f.ReadInConfig(); err != nil {
		return
	}
	for _, key := range f.AllKeys() {
		name := strings.ToUpper(key)
		if _, present := os.LookupEnv(name); !present {
			_ = os.Setenv(name, f.GetString(key))
		}
	}
}
