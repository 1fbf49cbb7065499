package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tkhrdev/livebridge/testutil"
	"github.com/tkhrdev/livebridge/youtubeapi"
)

func newTestStreamer(t *testing.T, mock *testutil.MockInnertubeServer, continuation string) (*Streamer, *[]time.Duration) {
	t.Helper()
	client := &youtubeapi.InnertubeClient{BaseURL: mock.URL}
	s := NewStreamer(client, &youtubeapi.Session{
		Continuation:  continuation,
		APIKey:        "test-key",
		ClientVersion: "2.0",
	}, 2*time.Second)
	slept := &[]time.Duration{}
	s.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return s, slept
}

func TestStreamerDeliversInOrder(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-2", 500,
		testutil.TextItem("m1", "alice", "UCalice", "first", 1700000000000000),
		testutil.TextItem("m2", "bob", "UCbob", "second", 1700000001000000),
	))
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-3", 500,
		testutil.TextItem("m3", "carol", "UCcarol", "third", 1700000002000000),
	))

	s, _ := newTestStreamer(t, mock, "cont-1")
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		msg, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error on message %d: %v", i, err)
		}
		got = append(got, msg.ID)
	}
	want := []string{"m1", "m2", "m3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q (order must be preserved)", i, got[i], want[i])
		}
	}
	if calls := mock.Calls(); calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestStreamerSleepCap(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	// Huge suggested wait: must be capped at 2s before the next cycle.
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-2", 10000,
		testutil.TextItem("m1", "alice", "UCalice", "hi", 1700000000000000)))
	// Small suggested wait: used as-is.
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-3", 500,
		testutil.TextItem("m2", "bob", "UCbob", "yo", 1700000001000000)))
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-4", 0,
		testutil.TextItem("m3", "carol", "UCcarol", "hey", 1700000002000000)))

	s, slept := newTestStreamer(t, mock, "cont-1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Next(ctx); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}
	want := []time.Duration{2 * time.Second, 500 * time.Millisecond}
	if len(*slept) != len(want) {
		t.Fatalf("slept %d times (%v), want %d", len(*slept), *slept, len(want))
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestStreamerTerminatesOnMissingContinuationMetadata(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	mock.EnqueueChatResponse(testutil.ChatResponseNoContinuation(
		testutil.TextItem("m1", "alice", "UCalice", "lost", 1700000000000000)))

	s, _ := newTestStreamer(t, mock, "cont-1")
	ctx := context.Background()

	_, err := s.Next(ctx)
	if err == nil {
		t.Fatal("Next() = nil error, want fatal error on missing continuation metadata")
	}
	if !errors.Is(err, youtubeapi.ErrMissingContinuation) {
		t.Errorf("error = %v, want ErrMissingContinuation", err)
	}

	// Terminal state is sticky: the same error, and no further fetches.
	calls := mock.Calls()
	if _, err2 := s.Next(ctx); !errors.Is(err2, youtubeapi.ErrMissingContinuation) {
		t.Errorf("second Next() = %v, want sticky ErrMissingContinuation", err2)
	}
	if mock.Calls() != calls {
		t.Error("Next() fetched again after termination")
	}
	if st := s.Stats(); st.State != "failed" || st.LastError == "" {
		t.Errorf("Stats() = %+v, want failed state with last error", st)
	}
}

func TestStreamerTerminatesOnFetchFailure(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	// Empty queue: the mock answers 503, which is session-fatal.

	s, _ := newTestStreamer(t, mock, "cont-1")
	_, err := s.Next(context.Background())
	if err == nil {
		t.Fatal("Next() = nil error, want fatal fetch error")
	}
	if _, err2 := s.Next(context.Background()); err2 == nil || err2.Error() != err.Error() {
		t.Errorf("second Next() = %v, want the same sticky error", err2)
	}
	if mock.Calls() != 1 {
		t.Errorf("fetch calls = %d, want 1 (no retry across fatal fetch errors)", mock.Calls())
	}
}

func TestStreamerEmptyContinuationEndsStream(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	s, _ := newTestStreamer(t, mock, "")

	_, err := s.Next(context.Background())
	if !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("Next() = %v, want ErrStreamEnded", err)
	}
	if mock.Calls() != 0 {
		t.Error("streamer fetched despite missing continuation token")
	}
	if st := s.Stats(); st.State != "ended" || st.LastError != "" {
		t.Errorf("Stats() = %+v, want clean ended state", st)
	}
}

func TestStreamerSkipsUnparseableItems(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-2", 0,
		map[string]any{"liveChatSomeFutureRenderer": map[string]any{"id": "?"}},
		testutil.TextItem("m1", "alice", "UCalice", "kept", 1700000000000000),
		map[string]any{"liveChatPlaceholderItemRenderer": map[string]any{"id": "p"}},
	))

	s, _ := newTestStreamer(t, mock, "cont-1")
	msg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("message ID = %q, want m1 (bad items skipped, not fatal)", msg.ID)
	}
	if st := s.Stats(); st.Skipped != 2 || st.Messages != 1 {
		t.Errorf("Stats() = %+v, want 2 skipped / 1 message", st)
	}
}

func TestStreamerContextCancelAbortsSleep(t *testing.T) {
	mock := testutil.NewMockInnertubeServer(t)
	mock.EnqueueChatResponse(testutil.ChatResponse("cont-2", 10000,
		testutil.TextItem("m1", "alice", "UCalice", "hi", 1700000000000000)))

	client := &youtubeapi.InnertubeClient{BaseURL: mock.URL}
	s := NewStreamer(client, &youtubeapi.Session{Continuation: "cont-1", APIKey: "k", ClientVersion: "2.0"}, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	cancel()

	start := time.Now()
	_, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Next() = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, want immediate sleep abort", elapsed)
	}
	// Cancellation is not terminal; the session state is untouched.
	if st := s.Stats(); st.State != "polling" {
		t.Errorf("state after cancel = %q, want polling", st.State)
	}
}
