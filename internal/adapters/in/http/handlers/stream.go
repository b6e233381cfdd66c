package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// latest is a one-slot mailbox that keeps only the newest value.
type latest[T any] struct{ ch chan T }

func newLatest[T any]() latest[T] { return latest[T]{ch: make(chan T, 1)} }

func (l latest[T]) push(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// serveSSE writes each value from updates as a server-sent event until the
// client goes away.
func serveSSE[T any](w http.ResponseWriter, r *http.Request, log *zap.Logger, event string, updates latest[T]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, log, http.StatusInternalServerError, envelope{Message: "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-updates.ch:
			raw, err := json.Marshal(v)
			if err != nil {
				log.Error("[sse] encode failed", zap.String("event", event), zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
