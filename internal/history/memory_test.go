package history

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T, settings Settings) *MemoryStore {
	t.Helper()
	if settings.MaxMessages == 0 {
		settings.MaxMessages = 20
	}
	return NewMemoryStore(settings)
}

func mustHistory(t *testing.T, s Store, id int64) []Turn {
	t.Helper()
	turns, err := s.History(context.Background(), id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	return turns
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{})

	active, _ := s.IsActive(ctx, 1)
	if active {
		t.Fatal("expected inactive before StartSession")
	}

	if err := s.StartSession(ctx, 1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if active, _ = s.IsActive(ctx, 1); !active {
		t.Fatal("expected active after StartSession")
	}
	if got := mustHistory(t, s, 1); len(got) != 0 {
		t.Fatalf("expected empty history after start, got %d turns", len(got))
	}

	if err := s.StopSession(ctx, 1); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if active, _ = s.IsActive(ctx, 1); active {
		t.Fatal("expected inactive after StopSession")
	}

	// Stopping an inactive session is a no-op, not an error.
	if err := s.StopSession(ctx, 1); err != nil {
		t.Fatalf("StopSession on inactive id: %v", err)
	}
}

func TestStartSession_ResetsHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{})

	_ = s.AddUserTurn(ctx, 1, "hello")
	_ = s.AddAssistantTurn(ctx, 1, "hi")
	if err := s.StartSession(ctx, 1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if got := mustHistory(t, s, 1); len(got) != 0 {
		t.Fatalf("expected reset history, got %v", got)
	}
}

func TestAutoStartOnWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{})

	if err := s.AddUserTurn(ctx, 7, "first"); err != nil {
		t.Fatalf("AddUserTurn: %v", err)
	}
	if active, _ := s.IsActive(ctx, 7); !active {
		t.Fatal("expected write to auto-create the session")
	}
	got := mustHistory(t, s, 7)
	if len(got) != 1 || got[0].Role != RoleUser || got[0].Content != "first" {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestHistoryBound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{MaxMessages: 2})

	_ = s.AddUserTurn(ctx, 1, "a")
	_ = s.AddAssistantTurn(ctx, 1, "b")
	_ = s.AddUserTurn(ctx, 1, "c")

	got := mustHistory(t, s, 1)
	want := []Turn{
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d turns, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTrim_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{MaxMessages: 3})

	for _, text := range []string{"1", "2", "3", "4", "5"} {
		_ = s.AddUserTurn(ctx, 1, text)
	}

	_ = s.Trim(ctx, 1)
	first := mustHistory(t, s, 1)
	_ = s.Trim(ctx, 1)
	second := mustHistory(t, s, 1)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 turns after trims, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("trim not idempotent at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	if first[0].Content != "3" || first[2].Content != "5" {
		t.Errorf("expected most recent turns retained, got %v", first)
	}
}

func TestTrim_AbsentSession(t *testing.T) {
	s := newTestStore(t, Settings{})
	if err := s.Trim(context.Background(), 42); err != nil {
		t.Fatalf("Trim on absent session: %v", err)
	}
}

func TestHistory_ReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{})

	_ = s.AddUserTurn(ctx, 1, "original")
	snapshot := mustHistory(t, s, 1)
	snapshot[0].Content = "mutated"

	if got := mustHistory(t, s, 1); got[0].Content != "original" {
		t.Fatalf("caller mutation leaked into store: %v", got)
	}
}

func TestHistory_InactiveReturnsEmpty(t *testing.T) {
	s := newTestStore(t, Settings{})
	if got := mustHistory(t, s, 99); len(got) != 0 {
		t.Fatalf("expected empty history for unknown id, got %v", got)
	}
}

func TestTTL_Expiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{TTL: 30 * time.Millisecond})

	_ = s.AddUserTurn(ctx, 1, "hello")
	if active, _ := s.IsActive(ctx, 1); !active {
		t.Fatal("expected active right after write")
	}

	time.Sleep(60 * time.Millisecond)

	if active, _ := s.IsActive(ctx, 1); active {
		t.Fatal("expected inactive after TTL elapsed")
	}
	if got := mustHistory(t, s, 1); len(got) != 0 {
		t.Fatalf("expected empty history after expiry, got %v", got)
	}
}

func TestTTL_RefreshOnRead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{TTL: 80 * time.Millisecond})

	_ = s.AddUserTurn(ctx, 1, "hello")

	// Keep reading more often than the TTL; the session must stay alive
	// well past the original deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		if got := mustHistory(t, s, 1); len(got) != 1 {
			t.Fatalf("session expired despite reads (iteration %d)", i)
		}
	}
}

func TestTTL_ZeroMeansNoExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{TTL: 0})

	_ = s.AddUserTurn(ctx, 1, "hello")
	time.Sleep(30 * time.Millisecond)
	if active, _ := s.IsActive(ctx, 1); !active {
		t.Fatal("expected session without TTL to stay active")
	}
}

func TestMaxSessions_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{MaxSessions: 2})

	_ = s.AddUserTurn(ctx, 1, "a")
	_ = s.AddUserTurn(ctx, 2, "b")
	_ = s.AddUserTurn(ctx, 3, "c")

	if active, _ := s.IsActive(ctx, 1); active {
		t.Fatal("expected oldest session to be evicted")
	}
	if active, _ := s.IsActive(ctx, 3); !active {
		t.Fatal("expected newest session to survive")
	}
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Settings{})

	_ = s.AddUserTurn(ctx, 1, "from one")
	_ = s.AddUserTurn(ctx, 2, "from two")
	_ = s.StopSession(ctx, 1)

	if active, _ := s.IsActive(ctx, 2); !active {
		t.Fatal("stopping user 1 must not affect user 2")
	}
	got := mustHistory(t, s, 2)
	if len(got) != 1 || got[0].Content != "from two" {
		t.Fatalf("unexpected history for user 2: %v", got)
	}
}
