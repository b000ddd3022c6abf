package history

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps conversation histories in an in-process expirable LRU.
//
// The LRU gives us both bounds for free: entries expire TTL after their last
// touch, and when MaxSessions is set the least-recently-used session is
// evicted first. Expired entries report inactive immediately even though the
// cache reclaims them lazily.
//
// The LRU is internally synchronised, but appends are read-modify-write, so
// an outer mutex serialises all operations. That also preserves arrival
// order for overlapping appends to one session.
type MemoryStore struct {
	settings Settings

	mu    sync.Mutex
	cache *expirable.LRU[int64, []Turn]
}

// NewMemoryStore creates a MemoryStore with the given settings.
func NewMemoryStore(settings Settings) *MemoryStore {
	return &MemoryStore{
		settings: settings,
		// size 0 = unbounded, ttl 0 = no expiry; both match Settings semantics.
		cache: expirable.NewLRU[int64, []Turn](settings.MaxSessions, nil, settings.TTL),
	}
}

func (s *MemoryStore) StartSession(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(userID, nil)
	return nil
}

func (s *MemoryStore) StopSession(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(userID)
	return nil
}

func (s *MemoryStore) IsActive(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Get (not Contains) so expired entries report inactive.
	_, ok := s.cache.Get(userID)
	return ok, nil
}

func (s *MemoryStore) AddUserTurn(ctx context.Context, userID int64, content string) error {
	return s.append(userID, Turn{Role: RoleUser, Content: content})
}

func (s *MemoryStore) AddAssistantTurn(ctx context.Context, userID int64, content string) error {
	return s.append(userID, Turn{Role: RoleAssistant, Content: content})
}

func (s *MemoryStore) History(_ context.Context, userID int64) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.cache.Get(userID)
	if !ok {
		return []Turn{}, nil
	}
	// Re-adding resets the entry's expiry: reads touch the TTL just like
	// writes do, keeping both backends behaviourally aligned.
	s.cache.Add(userID, turns)

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Trim(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.cache.Get(userID)
	if !ok {
		return nil
	}
	s.cache.Add(userID, s.trimmed(turns))
	return nil
}

// Close is a no-op; the memory backend holds no external resources.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) append(userID int64, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, _ := s.cache.Get(userID) // absent or expired → fresh session
	turns = append(turns, turn)
	s.cache.Add(userID, s.trimmed(turns))
	return nil
}

// trimmed returns the most recent MaxMessages turns in original order.
func (s *MemoryStore) trimmed(turns []Turn) []Turn {
	max := s.settings.MaxMessages
	if max <= 0 || len(turns) <= max {
		return turns
	}
	tail := make([]Turn, max)
	copy(tail, turns[len(turns)-max:])
	return tail
}
