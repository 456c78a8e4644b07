package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type APIConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	// PublicBaseURL is the externally reachable base of this service, used
	// to build /media URLs that platform fetchers can pull. Empty disables
	// the served-image fallback.
	PublicBaseURL string `yaml:"public_base_url"`
	// Moderator login pairs; small team, kept in config like the admin key.
	Moderators map[string]string `yaml:"moderators"` // name -> password
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"` // moderator channel
}

type FacebookConfig struct {
	PageID          string `yaml:"page_id"`
	PageAccessToken string `yaml:"page_access_token"`
	GraphVersion    string `yaml:"graph_version"`
	PostCron        string `yaml:"post_cron"`
}

type LinkedInConfig struct {
	AccessToken     string `yaml:"access_token"`
	OrganizationURN string `yaml:"organization_urn"`
	PostCron        string `yaml:"post_cron"`
}

type SchedulerConfig struct {
	Timezone       string        `yaml:"timezone"`
	MisfireGrace   time.Duration `yaml:"misfire_grace"`
	StaleClaimAge  time.Duration `yaml:"stale_claim_age"`
	TranslateCron  string        `yaml:"translate_cron"`
	ImageCron      string        `yaml:"image_cron"`
	CleanupCron    string        `yaml:"cleanup_cron"`
	HealthCron     string        `yaml:"health_cron"`
	CatchUpContent time.Duration `yaml:"catchup_content"`  // max age of newest item before catch-up
	CatchUpFB      time.Duration `yaml:"catchup_facebook"` // max gap since last facebook publish
	CatchUpLI      time.Duration `yaml:"catchup_linkedin"` // max gap since last linkedin publish
	SweepTimeout   time.Duration `yaml:"sweep_timeout"`
	CleanupAfter   time.Duration `yaml:"cleanup_after"` // age before rejected items are purged
}

type TranslationConfig struct {
	OpenAIKey  string `yaml:"openai_key"`
	Model      string `yaml:"model"`
	TargetLang string `yaml:"target_lang"`
}

type ImageConfig struct {
	GeminiKey string `yaml:"gemini_key"`
	Model     string `yaml:"model"`
}

type RateLimitConfig struct {
	PerPlatformPerHour int `yaml:"per_platform_per_hour"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	API         APIConfig         `yaml:"api"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Facebook    FacebookConfig    `yaml:"facebook"`
	LinkedIn    LinkedInConfig    `yaml:"linkedin"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Translation TranslationConfig `yaml:"translation"`
	Image       ImageConfig       `yaml:"image"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.SessionTTL <= 0 {
		cfg.API.SessionTTL = 12 * time.Hour
	}
	if cfg.Facebook.GraphVersion == "" {
		cfg.Facebook.GraphVersion = "v18.0"
	}
	// Cadences mirror the production schedule: LinkedIn Mon/Wed/Fri
	// mornings, Facebook daily evenings, processing three times a day.
	if cfg.Facebook.PostCron == "" {
		cfg.Facebook.PostCron = "0 18 * * *"
	}
	if cfg.LinkedIn.PostCron == "" {
		cfg.LinkedIn.PostCron = "0 9 * * 1,3,5"
	}
	if cfg.Scheduler.TranslateCron == "" {
		cfg.Scheduler.TranslateCron = "0 6,14,20 * * *"
	}
	if cfg.Scheduler.ImageCron == "" {
		cfg.Scheduler.ImageCron = "15 6,14,20 * * *"
	}
	if cfg.Scheduler.CleanupCron == "" {
		cfg.Scheduler.CleanupCron = "0 3 * * *"
	}
	if cfg.Scheduler.HealthCron == "" {
		cfg.Scheduler.HealthCron = "0 8 * * *"
	}
	if cfg.Scheduler.MisfireGrace <= 0 {
		cfg.Scheduler.MisfireGrace = 6 * time.Hour
	}
	if cfg.Scheduler.StaleClaimAge <= 0 {
		cfg.Scheduler.StaleClaimAge = 30 * time.Minute
	}
	if cfg.Scheduler.CatchUpContent <= 0 {
		cfg.Scheduler.CatchUpContent = 24 * time.Hour
	}
	if cfg.Scheduler.CatchUpFB <= 0 {
		cfg.Scheduler.CatchUpFB = 36 * time.Hour
	}
	if cfg.Scheduler.CatchUpLI <= 0 {
		cfg.Scheduler.CatchUpLI = 72 * time.Hour
	}
	if cfg.Scheduler.SweepTimeout <= 0 {
		cfg.Scheduler.SweepTimeout = 60 * time.Second
	}
	if cfg.Scheduler.CleanupAfter <= 0 {
		cfg.Scheduler.CleanupAfter = 30 * 24 * time.Hour
	}
	if cfg.Translation.Model == "" {
		cfg.Translation.Model = "gpt-4o-mini"
	}
	if cfg.Translation.TargetLang == "" {
		cfg.Translation.TargetLang = "uk"
	}
	if cfg.Image.Model == "" {
		cfg.Image.Model = "imagen-3.0-generate-002"
	}
	if cfg.RateLimit.PerPlatformPerHour <= 0 {
		cfg.RateLimit.PerPlatformPerHour = 10
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.API.JWTSecret == "" && !dev {
		return nil, errors.New("api.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
