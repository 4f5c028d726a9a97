package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AWS      AWSConfig      `yaml:"aws"`
	APNs     APNsConfig     `yaml:"apns"`
	Places   PlacesConfig   `yaml:"places"`
	JWT      JWTConfig      `yaml:"jwt"`
	Rewards  RewardsConfig  `yaml:"rewards"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"dbname"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
}

// RedisConfig holds redis configuration. An empty Addr disables the
// OTP attempt limiter and the place cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AWSConfig holds S3 image storage configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	PublicURL string `yaml:"public_url"`
}

// APNsConfig holds push delivery configuration
type APNsConfig struct {
	KeyPath    string        `yaml:"key_path"`
	KeyID      string        `yaml:"key_id"`
	TeamID     string        `yaml:"team_id"`
	Topic      string        `yaml:"topic"`
	Production bool          `yaml:"production"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether push delivery is configured
func (c *APNsConfig) Enabled() bool {
	return c.KeyPath != "" && c.KeyID != "" && c.TeamID != ""
}

// PlacesConfig holds the nearby-organization lookup configuration
type PlacesConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	DefaultRadius int           `yaml:"default_radius"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	Timeout       time.Duration `yaml:"timeout"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// RewardsConfig holds gamification and cashback settings
type RewardsConfig struct {
	DefaultPointsPerUnit int `yaml:"default_points_per_unit"`
	MinRedemption        int `yaml:"min_redemption"`
	PointsPerCurrency    int `yaml:"points_per_currency"`
	WeeklyGoal           int `yaml:"weekly_goal"`
	WeeklyReward         int `yaml:"weekly_reward"`
}

// SweepConfig holds expired listing housekeeping settings
type SweepConfig struct {
	Interval    time.Duration `yaml:"interval"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file. Values from a .env file or the
// process environment override secrets from the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML, applying defaults and env overrides
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode:    "disable",
			Migrations: "migrations",
		},
		APNs: APNsConfig{Timeout: 10 * time.Second},
		Places: PlacesConfig{
			BaseURL:       "https://maps.googleapis.com",
			DefaultRadius: 5000,
			RateLimit:     1,
			RateBurst:     5,
			CacheTTL:      time.Hour,
			Timeout:       5 * time.Second,
		},
		JWT: JWTConfig{TTL: 365 * 24 * time.Hour},
		Rewards: RewardsConfig{
			DefaultPointsPerUnit: 10,
			MinRedemption:        50,
			PointsPerCurrency:    10,
			WeeklyGoal:           5,
			WeeklyReward:         50,
		},
		Sweep: SweepConfig{
			Interval:    time.Minute,
			GracePeriod: 10 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DB_PASSWORD":    &c.Database.Password,
		"JWT_SECRET":     &c.JWT.Secret,
		"REDIS_PASSWORD": &c.Redis.Password,
		"AWS_ACCESS_KEY": &c.AWS.AccessKey,
		"AWS_SECRET_KEY": &c.AWS.SecretKey,
		"PLACES_API_KEY": &c.Places.APIKey,
		"LOG_LEVEL":      &c.Log.Level,
	}
	for key, target := range overrides {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.JWT.Secret == "" {
		errors = append(errors, "jwt.secret is required")
	}
	if c.Rewards.PointsPerCurrency <= 0 {
		errors = append(errors, "rewards.points_per_currency must be positive")
	}
	if c.Rewards.DefaultPointsPerUnit <= 0 {
		errors = append(errors, "rewards.default_points_per_unit must be positive")
	}
	if c.Sweep.Interval <= 0 {
		errors = append(errors, "sweep.interval must be positive")
	}
	if c.Sweep.GracePeriod < 0 {
		errors = append(errors, "sweep.grace_period must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, "log.level must be one of: debug, info, warn, error")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the database URL in the form golang-migrate expects
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
