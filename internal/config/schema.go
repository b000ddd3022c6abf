// Package config defines the configuration schema for tidewhale.
//
// Configuration lives in ~/.tidewhale/config.json; every secret can also be
// supplied through an environment variable so the bot runs in containers
// without a config file at all.
package config

import "time"

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Token          string   `json:"token"`
	AllowFrom      []string `json:"allowFrom"`
	ReplyToMessage bool     `json:"replyToMessage"`
}

func defaultTelegramConfig() TelegramConfig {
	return TelegramConfig{AllowFrom: []string{}}
}

// LLMConfig configures the OpenRouter chat-completion client.
type LLMConfig struct {
	APIKey         string `json:"apiKey"`
	APIURL         string `json:"apiUrl"`
	Model          string `json:"model"`
	Referer        string `json:"referer,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	Retries        int    `json:"retries"`
}

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIURL: "https://openrouter.ai/api/v1/chat/completions",
		// Free tier: 20 requests/day without credits, 200/day with $5+.
		Model:          "mistralai/mistral-7b-instruct:free",
		TimeoutSeconds: 20,
		Retries:        3,
	}
}

// Timeout returns the per-call LLM timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HistoryConfig configures conversation-history storage.
// Backend is "memory" or "redis"; an incomplete redis config falls back to memory.
type HistoryConfig struct {
	Backend       string `json:"backend"`
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty"`
	MaxMessages   int    `json:"maxMessages"`
	TTLSeconds    int    `json:"ttlSeconds"`
	// MaxSessions bounds the number of concurrently stored sessions in the
	// memory backend. 0 means unbounded.
	MaxSessions int `json:"maxSessions,omitempty"`
}

func defaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Backend:     "memory",
		MaxMessages: 20,
		TTLSeconds:  24 * 60 * 60,
	}
}

// TTL returns the session time-to-live as a duration. Zero disables expiry.
func (c HistoryConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RatesConfig configures the currency-rates service.
type RatesConfig struct {
	APIURL string `json:"apiUrl"`
	// RefreshSchedule is a robfig/cron spec for background cache refreshes.
	RefreshSchedule string `json:"refreshSchedule"`
}

func defaultRatesConfig() RatesConfig {
	return RatesConfig{
		APIURL:          "https://open.er-api.com/v6/latest",
		RefreshSchedule: "@hourly",
	}
}

// Config is the root configuration object, loaded from ~/.tidewhale/config.json.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	LLM      LLMConfig      `json:"llm"`
	History  HistoryConfig  `json:"history"`
	Rates    RatesConfig    `json:"rates"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Telegram: defaultTelegramConfig(),
		LLM:      defaultLLMConfig(),
		History:  defaultHistoryConfig(),
		Rates:    defaultRatesConfig(),
	}
}
