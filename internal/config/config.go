package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OutputPath string
	SiteName   string

	FetchTimeout time.Duration

	RewriteDeadline       time.Duration
	RewriteAttemptTimeout time.Duration
	RewriteModel          string
	Providers             []ProviderConfig

	RedisURL    string
	LockTTL     time.Duration
	DatabaseURL string
	MetricsPort string

	LogLevel  string
	LogFormat string
}

// ProviderConfig describes one OpenAI-compatible backend of the rewrite chain.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// Base URLs for the backends we know about. Others must set <NAME>_BASE_URL.
var knownBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"deepinfra": "https://api.deepinfra.com/v1/openai",
	"groq":      "https://api.groq.com/openai/v1",
}

func Load(envFile string) *Config {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	// then the working directory; variables already set win
	_ = godotenv.Load()

	model := getEnv("REWRITE_MODEL", "gpt-4")
	return &Config{
		OutputPath:            getEnv("OUTPUT_PATH", "products.xlsx"),
		SiteName:              getEnv("SITE_NAME", "Dental First"),
		FetchTimeout:          getDuration("FETCH_TIMEOUT", 60*time.Second),
		RewriteDeadline:       getDuration("REWRITE_DEADLINE", 25*time.Second),
		RewriteAttemptTimeout: getDuration("REWRITE_ATTEMPT_TIMEOUT", 5*time.Second),
		RewriteModel:          model,
		Providers:             loadProviders(getEnv("REWRITE_PROVIDERS", "openai"), model),
		RedisURL:              os.Getenv("REDIS_URL"),
		LockTTL:               getDuration("LOCK_TTL", 30*time.Second),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		MetricsPort:           os.Getenv("METRICS_PORT"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
	}
}

// loadProviders keeps the order of the REWRITE_PROVIDERS list; it is the
// fallback order of the chain.
func loadProviders(list, defaultModel string) []ProviderConfig {
	var providers []ProviderConfig
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		prefix := envPrefix(name)
		providers = append(providers, ProviderConfig{
			Name:    name,
			BaseURL: getEnv(prefix+"BASE_URL", knownBaseURLs[name]),
			APIKey:  os.Getenv(prefix + "API_KEY"),
			Model:   getEnv(prefix+"MODEL", defaultModel),
		})
	}
	return providers
}

// envPrefix maps a provider name to its variable prefix: "my-llm" -> "MY_LLM_".
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
}

func (c *Config) Validate() error {
	if c.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.RewriteDeadline <= 0 || c.RewriteAttemptTimeout <= 0 {
		return fmt.Errorf("REWRITE_DEADLINE and REWRITE_ATTEMPT_TIMEOUT must be positive")
	}
	if c.RewriteAttemptTimeout > c.RewriteDeadline {
		return fmt.Errorf("REWRITE_ATTEMPT_TIMEOUT cannot be greater than REWRITE_DEADLINE")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("REWRITE_PROVIDERS must name at least one provider")
	}
	for _, p := range c.Providers {
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q has no base URL, set %sBASE_URL", p.Name, envPrefix(p.Name))
		}
	}
	return nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
		// plain number of seconds, e.g. REWRITE_DEADLINE=25
		if secs := getInt(k, -1); secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return d
}
