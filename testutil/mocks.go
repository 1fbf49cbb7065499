// Package testutil provides shared HTTP mocks and fixture builders for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// MockInnertubeServer mocks the YouTube watch page and the
// get_live_chat endpoint. Chat responses are served in FIFO order; once the
// queue is exhausted the endpoint returns 503, which streams treat as fatal.
type MockInnertubeServer struct {
	*httptest.Server
	t *testing.T

	mu        sync.Mutex
	watchPage string
	chatQueue []any
	ChatCalls int
}

// NewMockInnertubeServer creates the mock and registers cleanup.
func NewMockInnertubeServer(t *testing.T) *MockInnertubeServer {
	t.Helper()
	m := &MockInnertubeServer{t: t}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func (m *MockInnertubeServer) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/watch":
		m.mu.Lock()
		page := m.watchPage
		m.mu.Unlock()
		if page == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	case "/youtubei/v1/live_chat/get_live_chat":
		m.mu.Lock()
		m.ChatCalls++
		var next any
		if len(m.chatQueue) > 0 {
			next = m.chatQueue[0]
			m.chatQueue = m.chatQueue[1:]
		}
		m.mu.Unlock()
		if next == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(next)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// MockWatchPage serves a watch page embedding the given session tokens.
func (m *MockInnertubeServer) MockWatchPage(continuation, apiKey, clientVersion string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchPage = WatchPageHTML(continuation, apiKey, clientVersion)
}

// MockRawWatchPage serves an arbitrary watch page body (for breakage cases).
func (m *MockInnertubeServer) MockRawWatchPage(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchPage = body
}

// EnqueueChatResponse appends one get_live_chat response body to the queue.
func (m *MockInnertubeServer) EnqueueChatResponse(resp any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatQueue = append(m.chatQueue, resp)
}

// Calls reports how many get_live_chat requests were served.
func (m *MockInnertubeServer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ChatCalls
}

// WatchPageHTML builds a minimal watch page with the ytInitialData assignment
// and the inline innertube key/version pairs the bootstrap extracts.
func WatchPageHTML(continuation, apiKey, clientVersion string) string {
	initial := map[string]any{
		"contents": map[string]any{
			"twoColumnWatchNextResults": map[string]any{
				"conversationBar": map[string]any{
					"liveChatRenderer": map[string]any{
						"continuations": []any{
							map[string]any{"reloadContinuationData": map[string]any{"continuation": continuation}},
						},
					},
				},
			},
		},
	}
	blob, _ := json.Marshal(initial)
	return fmt.Sprintf(`<!DOCTYPE html><html><head><script>var ytInitialData = %s;</script>`+
		`<script>ytcfg.set({"INNERTUBE_API_KEY":"%s","INNERTUBE_CONTEXT_CLIENT_VERSION":"%s"});</script>`+
		`</head><body></body></html>`, blob, apiKey, clientVersion)
}

// ChatResponse builds a get_live_chat body with the given items wrapped in
// addChatItemAction entries and a timed continuation.
func ChatResponse(continuation string, timeoutMs int64, items ...map[string]any) map[string]any {
	actions := make([]any, 0, len(items))
	for _, it := range items {
		actions = append(actions, map[string]any{"addChatItemAction": map[string]any{"item": it}})
	}
	return map[string]any{
		"continuationContents": map[string]any{
			"liveChatContinuation": map[string]any{
				"actions": actions,
				"continuations": []any{
					map[string]any{"timedContinuationData": map[string]any{
						"continuation": continuation,
						"timeoutMs":    timeoutMs,
					}},
				},
			},
		},
	}
}

// ChatResponseNoContinuation builds a body whose continuations carry none of
// the known metadata shapes.
func ChatResponseNoContinuation(items ...map[string]any) map[string]any {
	resp := ChatResponse("unused", 0, items...)
	lc := resp["continuationContents"].(map[string]any)["liveChatContinuation"].(map[string]any)
	lc["continuations"] = []any{map[string]any{"unknownContinuationData": map[string]any{}}}
	return resp
}

// TextItem builds a liveChatTextMessageRenderer item with a single text run.
// The avatar URL carries the channel id in its 5th path segment, matching the
// platform's URL layout.
func TextItem(id, name, channelID, text string, usec int64) map[string]any {
	return map[string]any{
		"liveChatTextMessageRenderer": map[string]any{
			"id":            id,
			"timestampUsec": strconv.FormatInt(usec, 10),
			"authorName":    map[string]any{"simpleText": name},
			"authorPhoto": map[string]any{
				"thumbnails": []any{map[string]any{"url": AvatarURL(channelID)}},
			},
			"message": map[string]any{
				"runs": []any{map[string]any{"text": text}},
			},
		},
	}
}

// AvatarURL builds an avatar URL whose path embeds channelID the way the
// platform does.
func AvatarURL(channelID string) string {
	return "https://yt3.example.com/ytc/" + channelID + "/photo.jpg"
}
