package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/galleria-shop/internal/storage/files"
)

const defaultAddr = "0.0.0.0:8080"

// Storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL; the in-memory store is used when empty" flag:"database-url"`
	SessionSecret string `usage:"Key signing the session cookie; a random key is generated when empty" flag:"session-secret"`
	SecureCookies bool   `default:"false" usage:"Send the session cookie over HTTPS only" flag:"secure-cookies"`
	AdminPassword string `usage:"Admin panel password; admin login is disabled when empty" flag:"admin-password"`
	Seed          bool   `default:"true" usage:"Insert the sample catalog into an empty store on startup"`

	Shop           ShopConfig
	Messenger      MessengerConfig
	Image          ImageConfig
	Storage        StorageConfig
	RateLimit      RateLimitConfig
	LoginRateLimit LoginRateLimitConfig
	Graceful       GracefulConfig
}

// ShopConfig controls storefront presentation.
type ShopConfig struct {
	Name     string `default:"Laptop Galleria" usage:"Shop name used in order messages"`
	Currency string `default:"₱" usage:"Currency symbol used in prices"`
}

// MessengerConfig points the order deep link at a chat page.
type MessengerConfig struct {
	Host   string `default:"m.me" usage:"Messenger host"`
	PageID string `default:"" usage:"Messenger page receiving orders" flag:"messenger-page-id"`
}

// ImageConfig controls product image normalization and upload limits.
type ImageConfig struct {
	Width          int   `default:"600" usage:"Product image width"`
	Height         int   `default:"400" usage:"Product image height"`
	Quality        int   `default:"85" usage:"JPEG quality of stored images"`
	MaxUploadBytes int64 `default:"4194304" usage:"Maximum admin form size in bytes"`
}

// StorageConfig selects where product images are kept.
type StorageConfig struct {
	Driver string `default:"local" usage:"Image storage driver: local or s3"`
	Dir    string `default:"uploads" usage:"Directory for the local driver"`
	S3     files.S3Config
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// LoginRateLimitConfig limits admin login attempts per client.
type LoginRateLimitConfig struct {
	Max    int           `default:"5"  usage:"Max login attempts per window"`
	Window time.Duration `default:"1m" usage:"Login rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads a .env file if present, then configuration from
// environment variables and YAML config files, and applies platform-specific
// defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return errors.New("storage dir is required for the local driver")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage bucket is required for the s3 driver")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return errors.Errorf("invalid image size %dx%d", c.Image.Width, c.Image.Height)
	}
	if c.RateLimit.Max <= 0 || c.LoginRateLimit.Max <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Image.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	return nil
}
