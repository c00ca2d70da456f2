package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. Env values override the YAML file so deploys
// can keep secrets out of it.
const (
	EnvConfigPath       = "CONFIG_PATH"
	EnvDBConnection     = "DB_CONNECTION"
	EnvJWTAccessSecret  = "JWT_ACCESS_SECRET"
	EnvJWTRefreshSecret = "JWT_REFRESH_SECRET"
	EnvRazorpayKeyID    = "RAZORPAY_KEY_ID"
	EnvRazorpaySecret   = "RAZORPAY_KEY_SECRET"
	EnvAWSAccessKey     = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey     = "AWS_SECRET_ACCESS_KEY"
	EnvCFPrivateKey     = "CLOUDFRONT_PRIVATE_KEY"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database.dsn` in config file or DB_CONNECTION)")

// Config holds the resolved application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	AWS       AWSConfig       `yaml:"aws"`
	Razorpay  RazorpayConfig  `yaml:"razorpay"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	FrontendURL string `yaml:"frontend-url"`
	Debug       bool   `yaml:"debug"`
}

// DatabaseConfig holds the database DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig holds token secrets and lifetimes.
type JWTConfig struct {
	AccessSecret  string        `yaml:"access-secret"`
	RefreshSecret string        `yaml:"refresh-secret"`
	AccessExpiry  time.Duration `yaml:"access-expiry"`
	RefreshExpiry time.Duration `yaml:"refresh-expiry"`
}

// AWSConfig holds S3 and CloudFront settings.
type AWSConfig struct {
	Region                   string `yaml:"region"`
	AccessKey                string `yaml:"access-key"`
	SecretKey                string `yaml:"secret-key"`
	Bucket                   string `yaml:"bucket"`
	CloudFrontDomain         string `yaml:"cloudfront-domain"`
	CloudFrontKeyPairID      string `yaml:"cloudfront-key-pair-id"`
	CloudFrontPrivateKey     string `yaml:"cloudfront-private-key"`
	CloudFrontDistributionID string `yaml:"cloudfront-distribution-id"`
}

// RazorpayConfig holds payment gateway credentials.
type RazorpayConfig struct {
	KeyID     string `yaml:"key-id"`
	KeySecret string `yaml:"key-secret"`
}

// RateLimitConfig holds the login throttle policy.
type RateLimitConfig struct {
	LoginLimit  int           `yaml:"login-limit"`
	LoginWindow time.Duration `yaml:"login-window"`
}

// RedisConfig holds the optional Redis backend for rate limiting.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Defaults applied when the file omits a value.
const (
	defaultAddr          = ":8080"
	defaultAccessExpiry  = 15 * time.Minute
	defaultRefreshExpiry = 7 * 24 * time.Hour
	defaultLoginLimit    = 5
	defaultLoginWindow   = 15 * time.Minute
)

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file, layers environment overrides on top, and
// applies defaults. A missing file is fine as long as the environment carries
// the required values. A .env file next to the working directory is folded
// into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case os.IsNotExist(errRead):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, ErrMissingDatabaseDSN
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTAccessSecret)); secret != "" {
		cfg.JWT.AccessSecret = secret
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTRefreshSecret)); secret != "" {
		cfg.JWT.RefreshSecret = secret
	}
	if key := strings.TrimSpace(os.Getenv(EnvRazorpayKeyID)); key != "" {
		cfg.Razorpay.KeyID = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvRazorpaySecret)); secret != "" {
		cfg.Razorpay.KeySecret = secret
	}
	if key := strings.TrimSpace(os.Getenv(EnvAWSAccessKey)); key != "" {
		cfg.AWS.AccessKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAWSSecretKey)); secret != "" {
		cfg.AWS.SecretKey = secret
	}
	if pem := strings.TrimSpace(os.Getenv(EnvCFPrivateKey)); pem != "" {
		cfg.AWS.CloudFrontPrivateKey = pem
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.JWT.AccessExpiry <= 0 {
		cfg.JWT.AccessExpiry = defaultAccessExpiry
	}
	if cfg.JWT.RefreshExpiry <= 0 {
		cfg.JWT.RefreshExpiry = defaultRefreshExpiry
	}
	if cfg.RateLimit.LoginLimit <= 0 {
		cfg.RateLimit.LoginLimit = defaultLoginLimit
	}
	if cfg.RateLimit.LoginWindow <= 0 {
		cfg.RateLimit.LoginWindow = defaultLoginWindow
	}
}
