package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/davidfries/hooky/internal/httputil"
	"github.com/davidfries/hooky/internal/logging"
)

// stream serves the live event stream as Server-Sent Events. Each captured
// request is one block: an event-type line, a single JSON data line, and a
// blank line. The connection stays open until the client disconnects or the
// endpoint is deleted or expires.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C:
			if !open {
				// endpoint deleted or expired
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.WarnContext(r.Context(), "failed to encode stream event",
					logging.EndpointID(id), logging.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: request\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
