// Package history stores bounded, TTL-expiring conversation logs for the
// LLM chat mode, keyed by Telegram user ID.
//
// Two interchangeable backends implement one Store contract:
//   - MemoryStore — in-process, for local runs and single-instance deploys;
//   - RedisStore — shared storage with TTL, for scaled deploys.
package history

import (
	"context"
	"time"
)

// Role tags a turn by its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. The JSON shape matches the
// role/content pairs the chat-completion API expects, so a stored history
// can be sent on the wire as-is.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Settings governs history retention. Loaded once at startup and treated as
// immutable for the process lifetime.
type Settings struct {
	// MaxMessages bounds the stored turns per session; older turns are
	// dropped from the head. Values <= 0 disable trimming.
	MaxMessages int
	// TTL is how long an idle session survives. Zero disables expiry.
	TTL time.Duration
	// MaxSessions bounds concurrently stored sessions in the memory backend.
	// Zero means unbounded. The redis backend ignores it.
	MaxSessions int
}

// Store is the conversation-history contract shared by all backends.
//
// Semantics common to every implementation:
//   - a session with no stored key is inactive; StartSession resets history;
//   - appends auto-create a session when none exists and trim afterwards;
//   - History returns a snapshot the caller may mutate freely, and refreshes
//     the session TTL ("touch") the same way writes do;
//   - expired sessions report inactive even if physical cleanup is deferred.
type Store interface {
	// StartSession creates or resets an empty history for userID and
	// restarts its TTL clock. Idempotent.
	StartSession(ctx context.Context, userID int64) error

	// StopSession deletes the stored history for userID. No-op if absent.
	StopSession(ctx context.Context, userID int64) error

	// IsActive reports whether a non-expired session exists for userID.
	IsActive(ctx context.Context, userID int64) (bool, error)

	// AddUserTurn appends a user turn, auto-creating the session.
	AddUserTurn(ctx context.Context, userID int64, content string) error

	// AddAssistantTurn appends an assistant turn, auto-creating the session.
	AddAssistantTurn(ctx context.Context, userID int64, content string) error

	// History returns an ordered snapshot of the session's turns, or an
	// empty slice when inactive or expired. Reads refresh the TTL.
	History(ctx context.Context, userID int64) ([]Turn, error)

	// Trim drops turns from the head until the session fits MaxMessages.
	// Idempotent; appends already trim, so callers rarely need this.
	Trim(ctx context.Context, userID int64) error

	// Close releases any held connection without losing committed data.
	Close() error
}
