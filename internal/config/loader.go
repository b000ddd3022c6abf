package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ConfigPath returns the default configuration file path: ~/.tidewhale/config.json.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tidewhale/config.json"
	}
	return filepath.Join(home, ".tidewhale", "config.json")
}

// Load reads and parses the config file at path, then applies environment
// overrides. If path is empty, ConfigPath() is used.
// A missing file is not an error; on parse failure it prints a warning and
// continues from DefaultConfig().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Env-only setups are fine.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			fmt.Printf("Warning: failed to parse config %s: %v\n", path, err)
			fmt.Println("Using default configuration.")
			cfg = DefaultConfig()
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets environment variables win over the config file,
// mirroring the dotenv surface most bot deployments already use.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.LLM.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.LLM.Model, "TIDEWHALE_LLM_MODEL")
	setString(&cfg.LLM.APIURL, "TIDEWHALE_LLM_API_URL")
	setString(&cfg.History.Backend, "TIDEWHALE_HISTORY_BACKEND")
	setString(&cfg.History.RedisAddr, "TIDEWHALE_REDIS_ADDR")
	setString(&cfg.History.RedisPassword, "TIDEWHALE_REDIS_PASSWORD")
	setInt(&cfg.History.MaxMessages, "TIDEWHALE_HISTORY_MAX_MESSAGES")
	setInt(&cfg.History.TTLSeconds, "TIDEWHALE_HISTORY_TTL_SECONDS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
