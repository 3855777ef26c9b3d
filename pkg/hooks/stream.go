package hooks

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

const keepAlive = 25 * time.Second

// stream writes the user's in-app messages as server-sent events until the
// client goes away or the hub drops the subscription.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	userID := chi.URLParam(r, "id")
	ctx := r.Context()
	sub, err := h.inApp.Subscribe(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-sub.Receive():
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.LogAttrs(ctx, slog.LevelError, "encode in-app message",
					logger.UserID(userID), logger.Error(err))
				continue
			}
			if _, err := w.Write([]byte("event: notification\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
