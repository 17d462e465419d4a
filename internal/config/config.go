// internal/config/config.go
package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/rezvo/bookinggrid/internal/calendar"
)

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	// Timezone is the IANA zone bookings are bucketed and drawn in.
	Timezone string `yaml:"timezone"`
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Token             string        `yaml:"-"` // Loaded from environment
}

type GridConfig struct {
	StartHour           int     `yaml:"start_hour"`
	EndHour             int     `yaml:"end_hour"`
	PixelsPerHour       float64 `yaml:"pixels_per_hour"`
	MinBlockHeight      float64 `yaml:"min_block_height"`
	MaxBlockHeightRatio float64 `yaml:"max_block_height_ratio"`
	MinColumnWidth      float64 `yaml:"min_column_width"`
	TimeColumnWidth     float64 `yaml:"time_column_width"`
	TapStepMinutes      int     `yaml:"tap_step_minutes"`
	FormStepMinutes     int     `yaml:"form_step_minutes"`
	ViewportWidth       float64 `yaml:"viewport_width"`
}

type RefreshConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Cron          string        `yaml:"cron"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

type RateLimitConfig struct {
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
	TrustProxy        bool `yaml:"trust_proxy"`
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Region       string `yaml:"region"`
	From         string `yaml:"from"`
	BusinessName string `yaml:"business_name"`
	// Optional static SES credentials, loaded from environment
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	API       APIConfig       `yaml:"api"`
	Grid      GridConfig      `yaml:"grid"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Email     EmailConfig     `yaml:"email"`
}

// Default returns the configuration used for any key the file leaves out.
func Default() Config {
	g := calendar.DefaultGeometry()
	return Config{
		App: AppConfig{
			Name:        "rezvo-bookinggrid",
			Environment: "development",
			Port:        8080,
			Timezone:    "Europe/London",
		},
		API: APIConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Grid: GridConfig{
			StartHour:           g.StartHour,
			EndHour:             g.EndHour,
			PixelsPerHour:       g.PixelsPerHour,
			MinBlockHeight:      g.MinBlockHeight,
			MaxBlockHeightRatio: g.MaxBlockHeightRatio,
			MinColumnWidth:      g.MinColumnWidth,
			TimeColumnWidth:     g.TimeColumnWidth,
			TapStepMinutes:      g.TapStepMinutes,
			FormStepMinutes:     g.FormStepMinutes,
			ViewportWidth:       1024,
		},
		Refresh: RefreshConfig{
			Enabled:       true,
			Cron:          "*/5 * * * *",
			CacheTTL:      30 * time.Minute,
			FetchTimeout:  15 * time.Second,
			MaxConcurrent: 6,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			Burst:             10,
		},
	}
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.API.Token = os.Getenv("BOOKING_API_TOKEN")
	if baseURL := os.Getenv("BOOKING_API_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	cfg.Email.AccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.Name) == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app port must be between 1 and 65535")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api base_url is required")
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api base_url must be an absolute URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be greater than 0")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api requests_per_second must be 0 or greater")
	}

	if err := c.Grid.Geometry().Validate(); err != nil {
		return err
	}
	if c.Grid.ViewportWidth < 0 {
		return fmt.Errorf("grid viewport_width must be 0 or greater")
	}

	if c.Refresh.Enabled {
		if strings.TrimSpace(c.Refresh.Cron) == "" {
			return fmt.Errorf("refresh cron is required when refresh is enabled")
		}
		if _, err := cron.ParseStandard(c.Refresh.Cron); err != nil {
			return fmt.Errorf("refresh cron %q: %w", c.Refresh.Cron, err)
		}
	}
	if c.Refresh.CacheTTL <= 0 {
		return fmt.Errorf("refresh cache_ttl must be greater than 0")
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must be 0 or greater")
	}

	if c.Email.Enabled {
		if strings.TrimSpace(c.Email.Region) == "" {
			return fmt.Errorf("email region is required when email is enabled")
		}
		if _, err := mail.ParseAddress(c.Email.From); err != nil {
			return fmt.Errorf("email from %q: %w", c.Email.From, err)
		}
	}
	return nil
}

// Location resolves App.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.App.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

func (g GridConfig) Geometry() calendar.Geometry {
	return calendar.Geometry{
		StartHour:           g.StartHour,
		EndHour:             g.EndHour,
		PixelsPerHour:       g.PixelsPerHour,
		MinBlockHeight:      g.MinBlockHeight,
		MaxBlockHeightRatio: g.MaxBlockHeightRatio,
		MinColumnWidth:      g.MinColumnWidth,
		TimeColumnWidth:     g.TimeColumnWidth,
		TapStepMinutes:      g.TapStepMinutes,
		FormStepMinutes:     g.FormStepMinutes,
	}
}
