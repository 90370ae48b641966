package api

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server's environment-driven settings.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `env:"REELPOD_ADDR" envDefault:":8000"`

	// AceStepURL is the base URL of the ACE-Step music service.
	AceStepURL string `env:"ACESTEP_API_URL" envDefault:"http://localhost:8001"`

	// ImageAPIURL is the SDXL inference sidecar endpoint. Empty
	// disables image generation.
	ImageAPIURL string `env:"IMAGE_API_URL"`

	// WaitTimeout bounds how long the synchronous generate endpoint
	// blocks before returning 504.
	WaitTimeout time.Duration `env:"REELPOD_WAIT_TIMEOUT" envDefault:"300s"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
