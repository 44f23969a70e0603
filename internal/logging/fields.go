package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService    = "service"
	FieldEndpointID = "endpoint_id"
	FieldRequestID  = "capture_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldBackend    = "backend"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// EndpointID returns a slog attribute for a webhook endpoint ID.
func EndpointID(id string) slog.Attr {
	return slog.String(FieldEndpointID, id)
}

// CaptureID returns a slog attribute for a captured request ID.
func CaptureID(id string) slog.Attr {
	return slog.String(FieldRequestID, id)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Backend returns a slog attribute for the storage backend mode.
func Backend(mode string) slog.Attr {
	return slog.String(FieldBackend, mode)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
