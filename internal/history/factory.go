package history

import (
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tidewhale/tidewhale/internal/config"
)

// NewStore builds the history backend selected by cfg.
//
// "redis" requires an address; when it is missing the factory falls back to
// the memory backend instead of failing, so a half-configured deploy still
// comes up. The two backends are indistinguishable to callers.
func NewStore(cfg config.HistoryConfig) Store {
	settings := Settings{
		MaxMessages: cfg.MaxMessages,
		TTL:         cfg.TTL(),
		MaxSessions: cfg.MaxSessions,
	}

	if strings.EqualFold(cfg.Backend, "redis") {
		if cfg.RedisAddr == "" {
			slog.Warn("history: redis backend selected but no address configured, falling back to memory")
			return NewMemoryStore(settings)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		slog.Info("history: using redis backend", "addr", cfg.RedisAddr)
		store := NewRedisStore(client, settings)
		store.ownClient = true
		return store
	}

	slog.Info("history: using memory backend", "maxMessages", settings.MaxMessages, "ttl", settings.TTL)
	return NewMemoryStore(settings)
}
