package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tkhrdev/livebridge/telemetry"
	"github.com/tkhrdev/livebridge/youtubeapi"
)

// ErrStreamEnded marks the normal end of a live chat stream (the continuation
// cursor ran out without a fetch failure). Callers should treat it as
// end-of-stream, not as a failure.
var ErrStreamEnded = errors.New("live chat stream ended")

// Stats is a point-in-time snapshot of a Streamer, served by /status.
type Stats struct {
	Cycles    int64  `json:"cycles"`
	Messages  int64  `json:"messages"`
	Skipped   int64  `json:"skipped"`
	State     string `json:"state"` // polling | ended | failed
	LastError string `json:"last_error,omitempty"`
}

// Streamer owns one live chat session: the continuation cursor, the polling
// cadence, and the parsed-message queue. It is a single sequential producer;
// there is no prefetching and no overlap between cycles, which preserves the
// platform's delivery order.
//
// Termination is permanent. A fetch failure or missing continuation metadata
// makes the terminal error sticky: every later Next call returns it, and no
// further cycles run. A new session must be bootstrapped to start over.
type Streamer struct {
	client   *youtubeapi.InnertubeClient
	maxDelay time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	continuation  string
	apiKey        string
	clientVersion string
	pending       []Message
	nextDelay     time.Duration
	err           error
	stats         Stats
}

// NewStreamer creates a Streamer over a bootstrapped session. maxDelay caps
// the server-suggested inter-cycle wait; zero or negative selects the 2s
// default.
func NewStreamer(client *youtubeapi.InnertubeClient, session *youtubeapi.Session, maxDelay time.Duration) *Streamer {
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Streamer{
		client:        client,
		maxDelay:      maxDelay,
		sleep:         sleepCtx,
		continuation:  session.Continuation,
		apiKey:        session.APIKey,
		clientVersion: session.ClientVersion,
		stats:         Stats{State: "polling"},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Next returns the next normalized message, blocking on network I/O and the
// capped inter-cycle sleep as needed. It returns ErrStreamEnded on normal
// end, the sticky fatal error after termination, or the context error if ctx
// is canceled while waiting (cancellation is not terminal; the session state
// is unchanged).
func (s *Streamer) Next(ctx context.Context) (Message, error) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			msg := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return msg, nil
		}
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return Message{}, err
		}
		continuation := s.continuation
		delay := s.nextDelay
		s.mu.Unlock()

		// Defensive: the cursor is seeded at construction, but an empty one
		// is a normal end of stream, not a failure.
		if continuation == "" {
			slog.Info("live chat continuation missing; ending stream")
			return Message{}, s.terminate(ErrStreamEnded)
		}

		if delay > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return Message{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		page, err := s.fetchCycle(ctx, continuation)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Message{}, err
			}
			return Message{}, s.terminate(fmt.Errorf("poll live chat: %w", err))
		}

		msgs := make([]Message, 0, len(page.Items))
		for _, raw := range page.Items {
			if m := ParseItem(raw); m != nil {
				msgs = append(msgs, *m)
			}
		}

		nextDelay := time.Duration(page.TimeoutMs) * time.Millisecond
		if nextDelay > s.maxDelay {
			nextDelay = s.maxDelay
		}

		s.mu.Lock()
		s.continuation = page.Continuation
		s.pending = append(s.pending, msgs...)
		s.nextDelay = nextDelay
		s.stats.Cycles++
		s.stats.Messages += int64(len(msgs))
		s.stats.Skipped += int64(len(page.Items) - len(msgs))
		s.mu.Unlock()
		// Empty batch: loop around into the next cycle.
	}
}

func (s *Streamer) fetchCycle(ctx context.Context, continuation string) (*youtubeapi.ChatPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "chat", "chat.fetch_cycle")
	defer span.End()

	telemetry.CountFetchCycle()
	start := time.Now()
	page, err := s.client.FetchChat(ctx, &youtubeapi.Session{
		Continuation:  continuation,
		APIKey:        s.apiKey,
		ClientVersion: s.clientVersion,
	})
	telemetry.ObserveFetchDuration(time.Since(start))
	if err != nil {
		telemetry.CountFetchError()
		telemetry.RecordError(span, err)
		return nil, err
	}
	return page, nil
}

// terminate records the terminal state once; later calls return the original.
func (s *Streamer) terminate(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
		if errors.Is(err, ErrStreamEnded) {
			s.stats.State = "ended"
		} else {
			s.stats.State = "failed"
			s.stats.LastError = err.Error()
		}
	}
	return s.err
}

// Stats returns a snapshot of the streamer's counters and state.
func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
