package youtubeapi

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
)

// VideoMeta is basic metadata for the target video, resolved through the
// official Data API when an API key is configured. Enrichment only; the
// bridge runs fine without it.
type VideoMeta struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
	// LiveStatus is the broadcast state reported by the API: "live",
	// "upcoming", or "none".
	LiveStatus string `json:"live_status"`
}

// LookupVideo resolves videoID via the Data API v3 videos.list endpoint.
// Extra options are passed through to the service (tests use WithEndpoint).
func LookupVideo(ctx context.Context, apiKey, videoID string, opts ...option.ClientOption) (*VideoMeta, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("data api key empty")
	}
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	resp, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	it := resp.Items[0]
	meta := &VideoMeta{ID: videoID, LiveStatus: "none"}
	if it.Snippet != nil {
		meta.Title = it.Snippet.Title
		meta.ChannelTitle = it.Snippet.ChannelTitle
		if it.Snippet.LiveBroadcastContent != "" {
			meta.LiveStatus = it.Snippet.LiveBroadcastContent
		}
	}
	return meta, nil
}
