// Package server exposes the observability HTTP surface: liveness, readiness,
// a JSON status snapshot of the stream, and Prometheus metrics. It injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tkhrdev/livebridge/chat"
	"github.com/tkhrdev/livebridge/telemetry"
	"github.com/tkhrdev/livebridge/youtubeapi"
)

// Handlers holds the mutable references the HTTP surface reports on. The
// streamer and video metadata arrive after the server is already listening
// (the listener comes up before bootstrap so liveness probes pass during
// startup), hence the setters.
type Handlers struct {
	mu       sync.Mutex
	videoID  string
	meta     *youtubeapi.VideoMeta
	streamer *chat.Streamer
}

// NewHandlers creates Handlers for the given target video.
func NewHandlers(videoID string) *Handlers {
	return &Handlers{videoID: videoID}
}

// SetVideoMeta records resolved video metadata for /status.
func (h *Handlers) SetVideoMeta(meta *youtubeapi.VideoMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.meta = meta
}

// SetStreamer attaches the live streamer once a session is bootstrapped.
func (h *Handlers) SetStreamer(s *chat.Streamer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streamer = s
}

func (h *Handlers) snapshot() (string, *youtubeapi.VideoMeta, *chat.Streamer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.videoID, h.meta, h.streamer
}

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.HandleFunc("/status", h.HandleStatus)
	return withCorrelation(mux)
}

// withCorrelation tags each request with a correlation id, reusing the
// caller's X-Correlation-Id header when present.
func withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-Id")
		if corr == "" {
			corr = uuid.NewString()
		}
		w.Header().Set("X-Correlation-Id", corr)
		next.ServeHTTP(w, r.WithContext(telemetry.WithCorrelation(r.Context(), corr)))
	})
}
