package channels

import (
	"strings"
	"testing"

	"github.com/tidewhale/tidewhale/internal/bus"
)

func TestIsAllowed_EmptyListAllowsAll(t *testing.T) {
	b := NewBase("test", bus.NewMessageBus(1), nil)
	if !b.IsAllowed(42, "anyone") {
		t.Error("empty allowlist must allow everyone")
	}
}

func TestIsAllowed_ByID(t *testing.T) {
	b := NewBase("test", bus.NewMessageBus(1), []string{"42"})
	if !b.IsAllowed(42, "") {
		t.Error("listed ID must be allowed")
	}
	if b.IsAllowed(43, "") {
		t.Error("unlisted ID must be denied")
	}
}

func TestIsAllowed_ByUsername(t *testing.T) {
	b := NewBase("test", bus.NewMessageBus(1), []string{"@alice", "bob"})
	if !b.IsAllowed(1, "alice") {
		t.Error("@-prefixed username must match")
	}
	if !b.IsAllowed(2, "bob") {
		t.Error("bare username must match")
	}
	if b.IsAllowed(3, "mallory") {
		t.Error("unlisted username must be denied")
	}
}

func TestHandleMessage_PublishesAllowed(t *testing.T) {
	b := bus.NewMessageBus(1)
	base := NewBase("test", b, nil)

	base.HandleMessage(bus.InboundMessage{UserID: 1, Content: "hi"})

	select {
	case msg := <-b.InboundChan():
		if msg.Channel != "test" {
			t.Errorf("channel not stamped, got %q", msg.Channel)
		}
		if msg.Content != "hi" {
			t.Errorf("unexpected content %q", msg.Content)
		}
	default:
		t.Fatal("allowed message was not published")
	}
}

func TestHandleMessage_DropsDenied(t *testing.T) {
	b := bus.NewMessageBus(1)
	base := NewBase("test", b, []string{"99"})

	base.HandleMessage(bus.InboundMessage{UserID: 1, Content: "hi"})

	select {
	case msg := <-b.InboundChan():
		t.Fatalf("denied message was published: %+v", msg)
	default:
	}
}

func TestSplitMessage_Short(t *testing.T) {
	chunks := splitMessage("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("short content must pass through, got %v", chunks)
	}
}

func TestSplitMessage_PrefersNewlines(t *testing.T) {
	content := "first line\nsecond line\nthird line"
	chunks := splitMessage(content, 25)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	if chunks[0] != "first line\nsecond line" {
		t.Errorf("expected break at newline, got %q", chunks[0])
	}
}

func TestSplitMessage_FallsBackToSpaces(t *testing.T) {
	content := strings.Repeat("word ", 20)
	for _, chunk := range splitMessage(content, 30) {
		if len(chunk) > 30 {
			t.Errorf("chunk exceeds limit: %q", chunk)
		}
		if strings.HasPrefix(chunk, " ") {
			t.Errorf("chunk starts with stripped whitespace: %q", chunk)
		}
	}
}

func TestSplitMessage_HardCut(t *testing.T) {
	content := strings.Repeat("x", 95)
	chunks := splitMessage(content, 30)
	var total int
	for _, chunk := range chunks {
		if len(chunk) > 30 {
			t.Errorf("chunk exceeds limit: %d chars", len(chunk))
		}
		total += len(chunk)
	}
	if total != 95 {
		t.Errorf("content lost in split: got %d of 95 chars", total)
	}
}
