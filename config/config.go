package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	WebPort                 int           `mapstructure:"WEB_PORT"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	DataDir                 string        `mapstructure:"DATA_DIR"`
	StaticDir               string        `mapstructure:"STATIC_DIR"`
	WatchCorpora            bool          `mapstructure:"WATCH_CORPORA"`
	LLMHost                 string        `mapstructure:"LLM_HOST"`
	LLMModel                string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey               string        `mapstructure:"LLM_API_KEY"`
	LLMRequestTimeout       time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	MaxRetries              int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds       time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	FAQResults              int           `mapstructure:"FAQ_RESULTS"`
	DepartmentResults       int           `mapstructure:"DEPARTMENT_RESULTS"`
	ProcedureResults        int           `mapstructure:"PROCEDURE_RESULTS"`
	FallbackFAQs            int           `mapstructure:"FALLBACK_FAQS"`
	OverfetchFactor         int           `mapstructure:"OVERFETCH_FACTOR"`
	MatchThreshold          float64       `mapstructure:"MATCH_THRESHOLD"`
	MaxScore                float64       `mapstructure:"MAX_SCORE"`
	QueryCacheSize          int           `mapstructure:"QUERY_CACHE_SIZE"`
	RateLimitMessagesPerMin int           `mapstructure:"RATE_LIMIT_MESSAGES_PER_MIN"`
	RateLimitBurstSize      int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

// Defaults returns the configuration used when no file or environment
// overrides are present. Durations are already converted.
func Defaults() *Config {
	return &Config{
		WebPort:                 3001,
		LogLevel:                "info",
		DataDir:                 "./data",
		LLMHost:                 "http://localhost:8080",
		LLMRequestTimeout:       60 * time.Second,
		MaxRetries:              3,
		RetryDelaySeconds:       time.Second,
		FAQResults:              5,
		DepartmentResults:       3,
		ProcedureResults:        3,
		FallbackFAQs:            5,
		OverfetchFactor:         3,
		MatchThreshold:          0.6,
		MaxScore:                0.5,
		QueryCacheSize:          256,
		RateLimitMessagesPerMin: 20,
		RateLimitBurstSize:      5,
	}
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	d := Defaults()
	viper.SetDefault("WEB_PORT", d.WebPort)
	viper.SetDefault("LOG_LEVEL", d.LogLevel)
	viper.SetDefault("DATA_DIR", d.DataDir)
	viper.SetDefault("STATIC_DIR", "")
	viper.SetDefault("WATCH_CORPORA", false)
	viper.SetDefault("LLM_HOST", d.LLMHost)
	viper.SetDefault("LLM_MODEL", "")
	viper.SetDefault("LLM_API_KEY", "")
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 60)
	viper.SetDefault("MAX_RETRIES", d.MaxRetries)
	viper.SetDefault("RETRY_DELAY_SECONDS", 1)
	viper.SetDefault("FAQ_RESULTS", d.FAQResults)
	viper.SetDefault("DEPARTMENT_RESULTS", d.DepartmentResults)
	viper.SetDefault("PROCEDURE_RESULTS", d.ProcedureResults)
	viper.SetDefault("FALLBACK_FAQS", d.FallbackFAQs)
	viper.SetDefault("OVERFETCH_FACTOR", d.OverfetchFactor)
	viper.SetDefault("MATCH_THRESHOLD", d.MatchThreshold)
	viper.SetDefault("MAX_SCORE", d.MaxScore)
	viper.SetDefault("QUERY_CACHE_SIZE", d.QueryCacheSize)
	viper.SetDefault("RATE_LIMIT_MESSAGES_PER_MIN", d.RateLimitMessagesPerMin)
	viper.SetDefault("RATE_LIMIT_BURST_SIZE", d.RateLimitBurstSize)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Convert seconds to proper time.Duration
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second

	config.normalize(logger)
	return &config
}

// normalize replaces out-of-range values with defaults so the retrieval
// funnel always has a usable shape.
func (c *Config) normalize(logger *zap.Logger) {
	d := Defaults()
	warn := func(key string, value interface{}) {
		if logger != nil {
			logger.Warn("Invalid config value, using default", zap.String("key", key), zap.Any("value", value))
		}
	}

	c.LLMHost = strings.TrimRight(strings.TrimSpace(c.LLMHost), "/")
	if c.FAQResults <= 0 {
		warn("FAQ_RESULTS", c.FAQResults)
		c.FAQResults = d.FAQResults
	}
	if c.DepartmentResults <= 0 {
		warn("DEPARTMENT_RESULTS", c.DepartmentResults)
		c.DepartmentResults = d.DepartmentResults
	}
	if c.ProcedureResults <= 0 {
		warn("PROCEDURE_RESULTS", c.ProcedureResults)
		c.ProcedureResults = d.ProcedureResults
	}
	if c.FallbackFAQs < 0 {
		warn("FALLBACK_FAQS", c.FallbackFAQs)
		c.FallbackFAQs = d.FallbackFAQs
	}
	if c.OverfetchFactor < 1 {
		warn("OVERFETCH_FACTOR", c.OverfetchFactor)
		c.OverfetchFactor = d.OverfetchFactor
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		warn("MATCH_THRESHOLD", c.MatchThreshold)
		c.MatchThreshold = d.MatchThreshold
	}
	if c.MaxScore < 0 || c.MaxScore > 1 {
		warn("MAX_SCORE", c.MaxScore)
		c.MaxScore = d.MaxScore
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = d.RetryDelaySeconds
	}
	if c.LLMRequestTimeout <= 0 {
		c.LLMRequestTimeout = d.LLMRequestTimeout
	}
}
