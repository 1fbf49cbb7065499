// Package youtubeapi contains clients for YouTube's live chat: the unofficial
// innertube endpoints used by the watch page (session bootstrap + continuation
// polling) and the official Data API v3 for optional video metadata.
//
// The innertube surface is undocumented. The bootstrap scrapes tokens out of
// the watch page HTML with pattern matching rather than full HTML parsing,
// because the values live in an embedded JSON assignment and inline key/value
// pairs. Any of these extraction points can break when YouTube reshapes the
// page; such breakage is surfaced as an explicit error, never guessed around.
package youtubeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

// DefaultBaseURL is the production innertube host. Tests point BaseURL at a mock.
const DefaultBaseURL = "https://www.youtube.com"

// userAgent is sent on every innertube request; the watch page serves a
// different (unusable) document to clients without a browser-like UA.
const userAgent = "Mozilla/5.0"

var (
	reInitialData   = regexp.MustCompile(`var ytInitialData = (\{.*?});`)
	reAPIKey        = regexp.MustCompile(`["']INNERTUBE_API_KEY["']\s*:\s*["']([^"']+)["']`)
	reClientVersion = regexp.MustCompile(`["']INNERTUBE_CONTEXT_CLIENT_VERSION["']\s*:\s*["']([^"']+)["']`)
)

// ErrMissingContinuation is returned by FetchChat when a response carries no
// continuation metadata in any of the known shapes. The live chat cannot be
// resumed past such a response.
var ErrMissingContinuation = errors.New("no continuation metadata in response")

// Session holds the tokens extracted from one watch page. Continuation is a
// server-issued cursor and is replaced after every poll; APIKey and
// ClientVersion are fixed for the session's lifetime.
type Session struct {
	Continuation  string
	APIKey        string
	ClientVersion string
}

// ChatPage is one poll's worth of live chat: the raw chat items in platform
// order, the cursor for the next poll, and the server-suggested wait.
type ChatPage struct {
	Items        []json.RawMessage
	Continuation string
	TimeoutMs    int64
}

// InnertubeClient issues watch-page and live-chat requests.
// The zero value is usable and talks to production YouTube.
type InnertubeClient struct {
	// BaseURL overrides DefaultBaseURL (used by tests).
	BaseURL string
	// HTTPClient overrides http.DefaultClient. Callers should set one with an
	// explicit timeout so a hung connection cannot stall the stream.
	HTTPClient *http.Client
}

func (c *InnertubeClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *InnertubeClient) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

// BootstrapSession fetches the watch page for videoID and extracts the initial
// continuation token, API key, and client version. There is no partial
// bootstrap: any missing extraction, transport failure, or non-success status
// is an error, and no retry happens at this layer.
func (c *InnertubeClient) BootstrapSession(ctx context.Context, videoID string) (*Session, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/watch?v="+url.QueryEscape(videoID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("watch page status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	m := reInitialData.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("extract ytInitialData: pattern not found")
	}
	continuation, err := extractReloadContinuation(m[1])
	if err != nil {
		return nil, err
	}

	apiKey := firstGroup(reAPIKey, body)
	if apiKey == "" {
		return nil, fmt.Errorf("extract INNERTUBE_API_KEY: pattern not found")
	}
	clientVersion := firstGroup(reClientVersion, body)
	if clientVersion == "" {
		return nil, fmt.Errorf("extract INNERTUBE_CONTEXT_CLIENT_VERSION: pattern not found")
	}

	return &Session{Continuation: continuation, APIKey: apiKey, ClientVersion: clientVersion}, nil
}

// extractReloadContinuation walks the fixed key path down to the first live
// chat continuation's reload token inside the ytInitialData blob.
func extractReloadContinuation(blob []byte) (string, error) {
	var initial struct {
		Contents struct {
			TwoColumnWatchNextResults struct {
				ConversationBar struct {
					LiveChatRenderer struct {
						Continuations []struct {
							ReloadContinuationData struct {
								Continuation string `json:"continuation"`
							} `json:"reloadContinuationData"`
						} `json:"continuations"`
					} `json:"liveChatRenderer"`
				} `json:"conversationBar"`
			} `json:"twoColumnWatchNextResults"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(blob, &initial); err != nil {
		return "", fmt.Errorf("parse ytInitialData: %w", err)
	}
	conts := initial.Contents.TwoColumnWatchNextResults.ConversationBar.LiveChatRenderer.Continuations
	if len(conts) == 0 || conts[0].ReloadContinuationData.Continuation == "" {
		return "", fmt.Errorf("no live chat continuation in ytInitialData")
	}
	return conts[0].ReloadContinuationData.Continuation, nil
}

func firstGroup(re *regexp.Regexp, b []byte) string {
	m := re.FindSubmatch(b)
	if m == nil {
		return ""
	}
	return string(m[1])
}

type continuationData struct {
	Continuation string `json:"continuation"`
	TimeoutMs    int64  `json:"timeoutMs"`
}

// continuationMeta covers the three shapes the platform uses to hand back the
// next cursor. Exactly one is expected per entry; the first present wins.
type continuationMeta struct {
	Timed        *continuationData `json:"timedContinuationData"`
	Invalidation *continuationData `json:"invalidationContinuationData"`
	Reload       *continuationData `json:"reloadContinuationData"`
}

func (cm *continuationMeta) first() *continuationData {
	switch {
	case cm.Timed != nil:
		return cm.Timed
	case cm.Invalidation != nil:
		return cm.Invalidation
	case cm.Reload != nil:
		return cm.Reload
	}
	return nil
}

// FetchChat performs one poll against the live-chat-fetch endpoint. It returns
// the batch of raw chat items plus the next continuation; a response with no
// continuation metadata yields ErrMissingContinuation and the batch is
// discarded, matching the watch page client's behavior.
func (c *InnertubeClient) FetchChat(ctx context.Context, s *Session) (*ChatPage, error) {
	payload := struct {
		Context struct {
			Client struct {
				ClientName    string `json:"clientName"`
				ClientVersion string `json:"clientVersion"`
			} `json:"client"`
		} `json:"context"`
		Continuation string `json:"continuation"`
	}{Continuation: s.Continuation}
	payload.Context.Client.ClientName = "WEB"
	payload.Context.Client.ClientVersion = s.ClientVersion

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := c.base() + "/youtubei/v1/live_chat/get_live_chat?key=" + url.QueryEscape(s.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch live chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("live chat status %d", resp.StatusCode)
	}

	var decoded struct {
		ContinuationContents struct {
			LiveChatContinuation struct {
				Actions []struct {
					AddChatItemAction *struct {
						Item json.RawMessage `json:"item"`
					} `json:"addChatItemAction"`
				} `json:"actions"`
				Continuations []continuationMeta `json:"continuations"`
			} `json:"liveChatContinuation"`
		} `json:"continuationContents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode live chat response: %w", err)
	}

	lc := decoded.ContinuationContents.LiveChatContinuation
	page := &ChatPage{}
	for _, action := range lc.Actions {
		if action.AddChatItemAction == nil || len(action.AddChatItemAction.Item) == 0 {
			continue
		}
		page.Items = append(page.Items, action.AddChatItemAction.Item)
	}
	for _, cm := range lc.Continuations {
		if data := cm.first(); data != nil {
			page.Continuation = data.Continuation
			page.TimeoutMs = data.TimeoutMs
			break
		}
	}
	if page.Continuation == "" {
		return nil, ErrMissingContinuation
	}
	return page, nil
}
