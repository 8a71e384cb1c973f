package config

import "time"

const (
	EnvironmentSandbox = "sandbox"
	EnvironmentLive    = "live"
)

// PayTodayConfig holds the merchant credentials and endpoints. Handle and Key
// may be empty at load time; the provider client rejects calls until they are set.
type PayTodayConfig struct {
	Environment     string        `koanf:"environment" validate:"required,oneof=sandbox live"`
	Handle          string        `koanf:"handle"`
	Key             string        `koanf:"key"`
	SandboxURL      string        `koanf:"sandbox_url" validate:"required,url"`
	LiveURL         string        `koanf:"live_url" validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
	ProtocolVersion string        `koanf:"protocol_version" validate:"required"`
	UserAgent       string        `koanf:"user_agent" validate:"required"`
}

// BaseURL returns the service URL for the configured environment.
func (c PayTodayConfig) BaseURL() string {
	if c.Environment == EnvironmentLive {
		return c.LiveURL
	}
	return c.SandboxURL
}
