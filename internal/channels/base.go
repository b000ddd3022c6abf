// Package channels provides chat-platform transports for the bot.
package channels

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tidewhale/tidewhale/internal/bus"
)

// Channel is one chat-platform transport.
type Channel interface {
	Name() string
	// Start runs the receive loop until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers one outbound message (or typing signal).
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// Base holds common state and helper methods shared by all channels.
type Base struct {
	channelName string
	b           bus.Bus
	allowFrom   []string // empty = allow all
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name string, b bus.Bus, allowFrom []string) Base {
	return Base{channelName: name, b: b, allowFrom: allowFrom}
}

// IsAllowed checks whether the sender is on the allowlist, matching either
// the numeric user ID or the username.
func (b *Base) IsAllowed(userID int64, username string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	id := strconv.FormatInt(userID, 10)
	for _, allowed := range b.allowFrom {
		if allowed == id {
			return true
		}
		if username != "" && strings.TrimPrefix(allowed, "@") == username {
			return true
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes the message to
// the bus.
func (b *Base) HandleMessage(msg bus.InboundMessage) {
	if !b.IsAllowed(msg.UserID, msg.Username) {
		slog.Warn("access denied", "channel", b.channelName, "user", msg.UserID, "username", msg.Username)
		return
	}
	msg.Channel = b.channelName
	b.b.PublishInbound(msg)
}

// splitMessage splits content into chunks that fit within maxLen,
// preferring newline breaks, then space breaks, then hard cut.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}
