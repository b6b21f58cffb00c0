package service

import (
	"os"
	"path/filepath"

	"github.com/vrischmann/envconfig"
	yaml "gopkg.in/yaml.v3"

	"github.com/paymesh/walletgate/requirements"
	"github.com/paymesh/walletgate/types"
)

const (
	defaultPort     = 8080
	defaultLogLevel = "info"
)

// EnvPrefix namespaces the environment variables that override file
// configuration, e.g. WG_PORT.
const EnvPrefix = "WG"

// Config is the service configuration. Secrets carry `yaml:"-"` and can
// only arrive through the environment.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"loglevel"`

	// FacilitatorURL overrides the CDP production facilitator.
	FacilitatorURL string `yaml:"facilitator_url"`

	CDPKeyID     string `yaml:"-"`
	CDPKeySecret string `yaml:"-"`

	// Payments configures the 402 challenge menu, one entry per network.
	Payments []requirements.PaymentConfig `yaml:"payments"`

	// Hooks lists the payment-gated webhook endpoints.
	Hooks []HookConfig `yaml:"hooks"`
}

// HookConfig is one gated endpoint under /v1/hooks/.
type HookConfig struct {
	Name string `yaml:"name"`

	// Response is the JSON body released once payment settles. Empty
	// means a generic acknowledgement.
	Response string `yaml:"response"`
}

// LoadConfig reads the YAML file (when present) and then applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if b != nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := envconfig.InitWithOptions(&cfg, envconfig.Options{Prefix: EnvPrefix, AllOptional: true}); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sanitize fills defaults for empty fields.
func (c *Config) Sanitize() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate rejects configurations that cannot serve: gated hooks with
// no payment requirements to gate them behind, or nameless hooks.
func (c *Config) Validate() error {
	if len(c.Hooks) > 0 && len(c.Payments) == 0 {
		return types.X402Error{
			Code:    types.ErrConfigError,
			Message: "hooks are configured but no payments are; gated hooks need at least one payment requirement",
		}
	}
	for _, hook := range c.Hooks {
		if hook.Name == "" {
			return types.X402Error{
				Code:    types.ErrConfigError,
				Message: "hook with empty name",
			}
		}
	}
	return nil
}
