package config

import "time"

// SpamConfig holds the tunable thresholds for the spam pipeline.
// The gibberish and ratio cutoffs intentionally live here rather than as
// constants; observed deployments disagree on the exact values.
type SpamConfig struct {
	HoneypotField           string
	MaxSubmissions          int
	RateLimitWindow         time.Duration
	SweepInterval           time.Duration
	MinFormTime             time.Duration
	MaxFormAge              time.Duration
	GibberishMinLength      int
	NameGibberishMinLength  int
	RepeatedCharRun         int
	PunctuationRatio        float64
	MaxHTTPMentions         int
	MaxURLs                 int
	PromoKeywordThreshold   int
	ClientIPHeaders         []string
}

// ChallengeConfig holds the proof-of-work challenge settings
type ChallengeConfig struct {
	HMACKey   string
	MaxNumber int
	Expiry    time.Duration
	ReplayTTL time.Duration
}

// NotifyConfig holds the SMTP notification settings
type NotifyConfig struct {
	Enabled      bool
	SMTPAddress  string
	SMTPUsername string
	SMTPPassword string
	From         string
	AdminTo      string
	SiteName     string
	BaseURL      string
}

// LLMConfig represents the configuration for the optional LLM second opinion
type LLMConfig struct {
	Enabled   bool
	Provider  string
	Threshold float64
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetSpam returns the spam pipeline configuration
func (c *Config) GetSpam() (SpamConfig, error) {
	window, err := c.GetDuration("spam.rate_limit_window")
	if err != nil {
		return SpamConfig{}, err
	}
	sweep, err := c.GetDuration("spam.sweep_interval")
	if err != nil {
		return SpamConfig{}, err
	}
	minTime, err := c.GetDuration("spam.min_form_time")
	if err != nil {
		return SpamConfig{}, err
	}
	maxAge, err := c.GetDuration("spam.max_form_age")
	if err != nil {
		return SpamConfig{}, err
	}
	return SpamConfig{
		HoneypotField:          c.GetString("spam.honeypot_field"),
		MaxSubmissions:         c.GetInt("spam.max_submissions"),
		RateLimitWindow:        window,
		SweepInterval:          sweep,
		MinFormTime:            minTime,
		MaxFormAge:             maxAge,
		GibberishMinLength:     c.GetInt("spam.gibberish_min_length"),
		NameGibberishMinLength: c.GetInt("spam.name_gibberish_min_length"),
		RepeatedCharRun:        c.GetInt("spam.repeated_char_run"),
		PunctuationRatio:       c.GetFloat64("spam.punctuation_ratio"),
		MaxHTTPMentions:        c.GetInt("spam.max_http_mentions"),
		MaxURLs:                c.GetInt("spam.max_urls"),
		PromoKeywordThreshold:  c.GetInt("spam.promo_keyword_threshold"),
		ClientIPHeaders:        c.GetStringSlice("spam.client_ip_headers"),
	}, nil
}

// GetChallenge returns the proof-of-work challenge configuration
func (c *Config) GetChallenge() (ChallengeConfig, error) {
	expiry, err := c.GetDuration("challenge.expiry")
	if err != nil {
		return ChallengeConfig{}, err
	}
	replayTTL, err := c.GetDuration("challenge.replay_ttl")
	if err != nil {
		return ChallengeConfig{}, err
	}
	return ChallengeConfig{
		HMACKey:   c.GetString("challenge.hmac_key"),
		MaxNumber: c.GetInt("challenge.max_number"),
		Expiry:    expiry,
		ReplayTTL: replayTTL,
	}, nil
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Enabled:      c.GetBool("notify.enabled"),
		SMTPAddress:  c.GetString("notify.smtp_address"),
		SMTPUsername: c.GetString("notify.smtp_username"),
		SMTPPassword: c.GetString("notify.smtp_password"),
		From:         c.GetString("notify.from"),
		AdminTo:      c.GetString("notify.admin_to"),
		SiteName:     c.GetString("site.name"),
		BaseURL:      c.GetString("site.base_url"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Enabled:   c.GetBool("llm.enabled"),
		Provider:  c.GetString("llm.provider"),
		Threshold: c.GetFloat64("llm.threshold"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
