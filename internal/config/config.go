package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/clinic-forms/")
	v.AddConfigPath("$HOME/.clinic-forms")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("CLINIC_FORMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Site defaults (used by notification emails and the unsubscribe redirect)
	v.SetDefault("site.name", "Lymphatic Specialists of Madison")
	v.SetDefault("site.base_url", "http://localhost:4321")

	// Spam pipeline defaults
	v.SetDefault("spam.honeypot_field", "bot-field")
	v.SetDefault("spam.max_submissions", 3)
	v.SetDefault("spam.rate_limit_window", "10m")
	v.SetDefault("spam.sweep_interval", "1h")
	v.SetDefault("spam.min_form_time", "3s")
	v.SetDefault("spam.max_form_age", "1h")
	v.SetDefault("spam.gibberish_min_length", 15)
	v.SetDefault("spam.name_gibberish_min_length", 20)
	v.SetDefault("spam.repeated_char_run", 9)
	v.SetDefault("spam.punctuation_ratio", 0.3)
	v.SetDefault("spam.max_http_mentions", 3)
	v.SetDefault("spam.max_urls", 2)
	v.SetDefault("spam.promo_keyword_threshold", 3)
	v.SetDefault("spam.client_ip_headers", []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"})

	// Challenge defaults
	v.SetDefault("challenge.hmac_key", "")
	v.SetDefault("challenge.max_number", 100000)
	v.SetDefault("challenge.expiry", "10m")
	v.SetDefault("challenge.replay_ttl", "20m")

	// Rate limit store defaults
	v.SetDefault("ratelimit.type", "memory")
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.redis_prefix", "forms:ratelimit")

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "/data/clinic_forms.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/clinic_forms")

	// Notification defaults
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_address", "localhost:587")
	v.SetDefault("notify.smtp_username", "")
	v.SetDefault("notify.smtp_password", "")
	v.SetDefault("notify.from", "hello@lymphaticspecialistsofmadison.com")
	v.SetDefault("notify.admin_to", "hello@lymphaticspecialistsofmadison.com")

	// LLM second-opinion defaults
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.threshold", 0.7)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
