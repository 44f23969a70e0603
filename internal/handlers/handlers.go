package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davidfries/hooky/internal/httputil"
	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/models"
	"github.com/davidfries/hooky/internal/service"
	"github.com/davidfries/hooky/internal/store"
)

// Handler exposes the endpoint registry and capture surface over HTTP.
type Handler struct {
	svc         *service.Service
	logger      *logging.Logger
	baseURL     string
	maxBodySize int64
	mode        store.Mode
}

// New creates the handler set. baseURL is used to build the fully-qualified
// address handed back to callers for each endpoint.
func New(svc *service.Service, logger *logging.Logger, baseURL string, maxBodySize int64, mode store.Mode) *Handler {
	return &Handler{
		svc:         svc,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxBodySize: maxBodySize,
		mode:        mode,
	}
}

type createEndpointRequest struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

type endpointResponse struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
	RequestCount int       `json:"request_count"`
}

func (h *Handler) endpointResponse(r *http.Request, ep *models.Endpoint) endpointResponse {
	count, err := h.svc.CountRequests(r.Context(), ep.ID)
	if err != nil {
		// best-effort; the record itself is what matters
		count = 0
	}
	return endpointResponse{
		ID:           ep.ID,
		URL:          h.baseURL + "/hook/" + ep.ID,
		CreatedAt:    ep.CreatedAt,
		ExpiresAt:    ep.ExpiresAt,
		ExpiresIn:    int64(ep.Remaining(time.Now()).Seconds()),
		RequestCount: count,
	}
}

// Endpoints handles GET (list) and POST (create) on /api/endpoints.
func (h *Handler) Endpoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listEndpoints(w, r)
	case http.MethodPost:
		h.createEndpoint(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req createEndpointRequest
	if r.Body != nil {
		// a missing or malformed body normalizes to the default TTL
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ep, err := h.svc.CreateEndpoint(r.Context(), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create endpoint", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create endpoint")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, h.endpointResponse(r, ep))
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.svc.ListEndpoints(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list endpoints", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list endpoints")
		return
	}

	out := make([]endpointResponse, 0, len(endpoints))
	for _, ep := range endpoints {
		out = append(out, h.endpointResponse(r, ep))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// EndpointByID dispatches /api/endpoints/{id}[/requests|/stream].
func (h *Handler) EndpointByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/endpoints/")
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" {
		httputil.WriteError(w, http.StatusNotFound, "endpoint not found")
		return
	}

	switch tail {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getEndpoint(w, r, id)
		case http.MethodDelete:
			h.deleteEndpoint(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "requests":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listRequests(w, r, id)
	case "stream":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stream(w, r, id)
	default:
		httputil.WriteError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request, id string) {
	ep, err := h.svc.GetEndpoint(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.endpointResponse(r, ep))
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := h.svc.DeleteEndpoint(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete endpoint",
			logging.EndpointID(id), logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete endpoint")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, id string) {
	requests, err := h.svc.ListRequests(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	if requests == nil {
		requests = []*models.CapturedRequest{}
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

// Capture records any request under /hook/{id} and acknowledges it.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/hook/")
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		httputil.WriteError(w, http.StatusNotFound, "endpoint not found")
		return
	}

	req := &models.CapturedRequest{
		Method:     r.Method,
		Path:       r.URL.RequestURI(),
		Query:      flatten(r.URL.Query()),
		Headers:    flatten(r.Header),
		Body:       h.readBody(w, r),
		RemoteAddr: r.RemoteAddr,
	}

	captured, err := h.svc.Capture(r.Context(), id, req)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"id": captured.ID,
	})
}

// readBody drains the request body up to the configured limit and decodes it
// as JSON when possible, keeping the raw payload otherwise.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) any {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil || len(data) == 0 {
		return nil
	}

	var decoded any
	if json.Unmarshal(data, &decoded) == nil {
		return decoded
	}
	return string(data)
}

// flatten converts multi-value maps (query params, headers) to the wire shape:
// single values collapse to a string, repeated keys stay a list.
func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
		} else {
			out[key] = vals
		}
	}
	return out
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrEndpointNotFound):
		httputil.WriteError(w, http.StatusNotFound, "endpoint not found")
	case errors.Is(err, service.ErrEndpointExpired):
		httputil.WriteError(w, http.StatusGone, "endpoint expired")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// Health handles liveness checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports readiness along with the backend mode the process committed
// to at startup.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"backend": string(h.mode),
	})
}
