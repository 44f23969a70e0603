package models

import "time"

// Endpoint is a short-lived webhook receiver. It is immutable once created;
// the only state transitions are explicit deletion and TTL expiry.
type Endpoint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the endpoint's TTL has elapsed at the given instant.
// ExpiresAt is the sole authority for liveness; callers must never rely on a
// cached deleted flag instead.
func (e *Endpoint) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the time left until expiry, clamped to zero.
func (e *Endpoint) Remaining(now time.Time) time.Duration {
	d := e.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// CapturedRequest is one inbound request recorded under an endpoint.
// Query and Headers preserve repeated-key semantics: a key maps to a plain
// string when it appeared once and to a list of strings otherwise. Body holds
// the decoded JSON value when the payload was JSON, or the raw payload string.
type CapturedRequest struct {
	ID         string         `json:"id"`
	EndpointID string         `json:"endpoint_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	Query      map[string]any `json:"query"`
	Headers    map[string]any `json:"headers"`
	Body       any            `json:"body"`
	RemoteAddr string         `json:"remote_addr,omitempty"`
}
