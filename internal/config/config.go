package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the tracker's runtime configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"TRACKER_LOG_LEVEL" envDefault:"info"`

	UpstreamURL     string        `env:"TRACKER_UPSTREAM_URL"`
	UpstreamTimeout time.Duration `env:"TRACKER_UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamRPS     float64       `env:"TRACKER_UPSTREAM_RPS" envDefault:"20"`

	InitialPageSize int `env:"TRACKER_PAGE_SIZE" envDefault:"10"`
	PageIncrement   int `env:"TRACKER_PAGE_INCREMENT" envDefault:"10"`

	// Skip the ownership filter on service-charge rows when the server is
	// known to scope them already.
	TrustServiceChargeScope bool `env:"TRACKER_TRUST_SERVICE_CHARGE_SCOPE" envDefault:"false"`

	Endpoints Endpoints `envPrefix:"TRACKER_PATH_"`
}

// Endpoints are upstream paths relative to UpstreamURL. Cancel paths contain
// an {id} placeholder.
type Endpoints struct {
	Personal            string `env:"PERSONAL" envDefault:"/clerk/personal-certificates/"`
	Business            string `env:"BUSINESS" envDefault:"/clerk/business-permit-requests/"`
	ServiceCharge       string `env:"SERVICE_CHARGE" envDefault:"/clerk/service-charge-requests/"`
	CancelPersonal      string `env:"CANCEL_PERSONAL" envDefault:"/clerk/personal-certificates/{id}/cancel/"`
	CancelBusiness      string `env:"CANCEL_BUSINESS" envDefault:"/clerk/business-permit-requests/{id}/cancel/"`
	CancelServiceCharge string `env:"CANCEL_SERVICE_CHARGE" envDefault:"/clerk/service-charge-requests/{id}/cancel/"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config and checks the values the tracker cannot run without.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.InitialPageSize <= 0 {
		return fmt.Errorf("TRACKER_PAGE_SIZE must be positive, got %d", c.InitialPageSize)
	}
	if c.PageIncrement <= 0 {
		return fmt.Errorf("TRACKER_PAGE_INCREMENT must be positive, got %d", c.PageIncrement)
	}
	if c.UpstreamRPS <= 0 {
		return fmt.Errorf("TRACKER_UPSTREAM_RPS must be positive, got %v", c.UpstreamRPS)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
