package server

import (
	"encoding/json"
	"net/http"

	"github.com/tkhrdev/livebridge/chat"
	"github.com/tkhrdev/livebridge/youtubeapi"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports readiness: a session must be bootstrapped and the
// streamer still polling. Ended or failed streams report not_ready so an
// orchestrator can recycle the process.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	_, _, streamer := h.snapshot()
	w.Header().Set("Content-Type", "application/json")
	if streamer == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready", "reason": "session not bootstrapped"})
		return
	}
	if st := streamer.Stats(); st.State != "polling" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready", "reason": "stream " + st.State})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

type statusResponse struct {
	VideoID string                `json:"video_id"`
	Video   *youtubeapi.VideoMeta `json:"video,omitempty"`
	Stream  *chat.Stats           `json:"stream,omitempty"`
}

// HandleStatus returns a JSON snapshot of the bridge: target video, resolved
// metadata when available, and the streamer's counters.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	videoID, meta, streamer := h.snapshot()
	resp := statusResponse{VideoID: videoID, Video: meta}
	if streamer != nil {
		st := streamer.Stats()
		resp.Stream = &st
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
