package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the service.
type Config struct {
	HTTPPort    int    `json:"http_port" validate:"gte=0"`
	MetricsPort int    `json:"metrics_port" validate:"gte=0"`
	LogLevel    string `json:"log_level" validate:"oneof=debug info warn error"`
	Environment string `json:"environment" validate:"oneof=development production"`
	DBPath      string `json:"db_path" validate:"required"`

	Provider struct {
		ClientKey    string `json:"client_key" validate:"required"`
		Scope        string `json:"scope" validate:"required"`
		AuthorizeURL string `json:"authorize_url" validate:"required,url"`
		// RedirectURI pins the redirect target to a value registered with the
		// provider. Empty means it is derived from the resolved backend.
		RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
	} `json:"provider"`

	Backend struct {
		DevURL       string   `json:"dev_url" validate:"required,url"`
		ProdURL      string   `json:"prod_url" validate:"required,url"`
		KnownHosts   []string `json:"known_hosts" validate:"len=2,dive,url"`
		ProbeTimeout Duration `json:"probe_timeout" validate:"min=100ms"`
	} `json:"backend"`

	Scheduler struct {
		PollInterval Duration `json:"poll_interval" validate:"min=1s"`
		NumWorkers   int      `json:"num_workers" validate:"min=1"`
	} `json:"scheduler"`
}

// Duration is a wrapper around time.Duration that implements JSON marshaling/unmarshaling
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration")
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns a configuration mirroring the deployed defaults.
func Default() *Config {
	cfg := &Config{
		HTTPPort:    3000,
		MetricsPort: 9090,
		LogLevel:    "info",
		Environment: "development",
		DBPath:      "./tiktok-signin.db",
	}
	cfg.Provider.ClientKey = "sbawk31qvbdug7ikco"
	cfg.Provider.Scope = "user.info.basic"
	cfg.Provider.AuthorizeURL = "https://www.tiktok.com/v2/auth/authorize/"
	cfg.Backend.DevURL = "http://localhost:8000"
	cfg.Backend.ProdURL = "https://emmanueltech.store"
	cfg.Backend.KnownHosts = []string{
		"https://emmanueltech.store",
		"https://api.emmanueltech.store",
	}
	cfg.Backend.ProbeTimeout = Duration{5 * time.Second}
	cfg.Scheduler.PollInterval = Duration{30 * time.Second}
	cfg.Scheduler.NumWorkers = 2
	return cfg
}

// Load reads configuration from a file and overrides with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides overrides config fields with environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TIKTOK_CLIENT_KEY"); v != "" {
		c.Provider.ClientKey = v
	}
	if v := os.Getenv("TIKTOK_SCOPE"); v != "" {
		c.Provider.Scope = v
	}
	if v := os.Getenv("TIKTOK_REDIRECT_URI"); v != "" {
		c.Provider.RedirectURI = v
	}
	if v := os.Getenv("BACKEND_DEV_URL"); v != "" {
		c.Backend.DevURL = v
	}
	if v := os.Getenv("BACKEND_PROD_URL"); v != "" {
		c.Backend.ProdURL = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		var err error
		c.HTTPPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_PORT: %w", err)
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		var err error
		c.MetricsPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing METRICS_PORT: %w", err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing PROBE_TIMEOUT: %w", err)
		}
		c.Backend.ProbeTimeout = Duration{d}
	}
	if v := os.Getenv("SCHEDULER_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing SCHEDULER_POLL_INTERVAL: %w", err)
		}
		c.Scheduler.PollInterval = Duration{d}
	}
	return nil
}

// IsProd reports whether the service runs against the production backend.
func (c *Config) IsProd() bool {
	return c.Environment == "production"
}

// validate checks the configuration for errors.
func (c *Config) validate() error {
	validate := validator.New()

	// Register custom validation for Duration
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if duration, ok := field.Interface().(Duration); ok {
			return duration.Duration
		}
		return nil
	}, Duration{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
