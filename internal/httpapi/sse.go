package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sseKeepAlive = 5 * time.Second

// eventStream implements GET /eventstream/clip/v2: every Store commit is
// relayed as one SSE event carrying a one-element EventBlock array, matching
// the real bridge's batching envelope even though this daemon never batches.
func (srv *Server) eventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub, unsub := srv.Store.HueUpdates.Subscribe()
	defer unsub()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub:
			if !ok {
				return
			}
			body, err := json.Marshal([]any{ev})
			if err != nil {
				log.WithError(err).Warn("encode sse event failed")
				continue
			}
			fmt.Fprintf(w, "id: %s\ndata: %s\n\n", ev.SSEID(), body)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
