package config

import (
	"fmt"
	"time"

	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/leeforge/imgpress/http/middleware"
	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/media/processor"
	"github.com/leeforge/imgpress/metrics"
	"github.com/leeforge/imgpress/redis_client"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr" yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" json:"readTimeout" yaml:"read-timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" json:"writeTimeout" yaml:"write-timeout" default:"120s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" json:"shutdownTimeout" yaml:"shutdown-timeout" default:"15s"`
	// ProcessTimeout bounds image processing per request. 0 disables it.
	ProcessTimeout time.Duration `mapstructure:"process-timeout" json:"processTimeout" yaml:"process-timeout" default:"60s"`
	MaxUploadMB    int           `mapstructure:"max-upload-mb" json:"maxUploadMb" yaml:"max-upload-mb" default:"64" validate:"min=1,max=1024"`
	MaxFiles       int           `mapstructure:"max-files" json:"maxFiles" yaml:"max-files" default:"50" validate:"min=1"`
	TrustProxy     bool          `mapstructure:"trust-proxy" json:"trustProxy" yaml:"trust-proxy"`
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// AppConfig is the full configuration of the imgpress server and CLI.
type AppConfig struct {
	Server    ServerConfig               `mapstructure:"server" json:"server" yaml:"server"`
	Log       logging.Config             `mapstructure:"log" json:"log" yaml:"log"`
	Pipeline  processor.Config           `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate-limit" json:"rateLimit" yaml:"rate-limit"`
	Redis     redis_client.Config        `mapstructure:"redis" json:"redis" yaml:"redis"`
	Metrics   metrics.Config             `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

var validate = validatorV10.New()

func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Pipeline.DefaultSettings(); err != nil {
		return fmt.Errorf("pipeline defaults: %w", err)
	}
	return nil
}

// Load reads, defaults and validates an AppConfig.
func Load(opts ConfigOptions) (*AppConfig, *Config, error) {
	c, err := NewConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	var app AppConfig
	if err := c.BindWithDefaults(&app); err != nil {
		return nil, nil, err
	}
	return &app, c, nil
}
