package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "chat_history:"
	sessionKeyPrefix = "chat_session:"
)

// RedisStore keeps conversation histories in Redis so several bot instances
// can share session state.
//
// Each session uses two keys: a list of JSON-encoded turns under
// "chat_history:<id>" and a marker under "chat_session:<id>". The marker is
// what makes a freshly started, still-empty session report active — a bare
// list key cannot, because Redis deletes empty lists. Every write and every
// successful read refreshes the TTL on both keys.
type RedisStore struct {
	client    *redis.Client
	settings  Settings
	ownClient bool
}

// NewRedisStore creates a RedisStore on top of an externally owned client.
func NewRedisStore(client *redis.Client, settings Settings) *RedisStore {
	return &RedisStore{client: client, settings: settings}
}

func (s *RedisStore) StartSession(ctx context.Context, userID int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.historyKey(userID))
	pipe.Set(ctx, s.sessionKey(userID), "1", s.settings.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis start session: %w", err)
	}
	return nil
}

func (s *RedisStore) StopSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.historyKey(userID), s.sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis stop session: %w", err)
	}
	return nil
}

func (s *RedisStore) IsActive(ctx context.Context, userID int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.sessionKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis is active: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) AddUserTurn(ctx context.Context, userID int64, content string) error {
	return s.append(ctx, userID, Turn{Role: RoleUser, Content: content})
}

func (s *RedisStore) AddAssistantTurn(ctx context.Context, userID int64, content string) error {
	return s.append(ctx, userID, Turn{Role: RoleAssistant, Content: content})
}

func (s *RedisStore) History(ctx context.Context, userID int64) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			// Skip corrupt entries rather than fail the whole read.
			continue
		}
		turns = append(turns, t)
	}

	if len(turns) > 0 {
		s.touch(ctx, userID)
	}
	return turns, nil
}

func (s *RedisStore) Trim(ctx context.Context, userID int64) error {
	max := s.settings.MaxMessages
	if max <= 0 {
		return nil
	}
	if err := s.client.LTrim(ctx, s.historyKey(userID), int64(-max), -1).Err(); err != nil {
		return fmt.Errorf("redis trim: %w", err)
	}
	s.touch(ctx, userID)
	return nil
}

// Close closes the Redis client when this store owns it.
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}

// append pushes one turn, trims to MaxMessages, and refreshes TTLs.
// RPush keeps arrival order even when two appends for one user race.
func (s *RedisStore) append(ctx context.Context, userID int64, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.historyKey(userID), string(data))
	if max := s.settings.MaxMessages; max > 0 {
		pipe.LTrim(ctx, s.historyKey(userID), int64(-max), -1)
	}
	pipe.Set(ctx, s.sessionKey(userID), "1", s.settings.TTL)
	if s.settings.TTL > 0 {
		pipe.Expire(ctx, s.historyKey(userID), s.settings.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// touch refreshes the TTL on both session keys. Best effort; a failed touch
// only shortens the session's remaining lifetime.
func (s *RedisStore) touch(ctx context.Context, userID int64) {
	if s.settings.TTL <= 0 {
		return
	}
	pipe := s.client.Pipeline()
	pipe.Expire(ctx, s.historyKey(userID), s.settings.TTL)
	pipe.Expire(ctx, s.sessionKey(userID), s.settings.TTL)
	_, _ = pipe.Exec(ctx)
}

func (s *RedisStore) historyKey(userID int64) string {
	return historyKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}
