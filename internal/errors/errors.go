package errors

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// PageError is an error rendered to the client as a small JSON document.
type PageError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	underlying error
}

func (e *PageError) Error() string {
	if e.underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.underlying)
	}
	return e.Message
}

func (e *PageError) Unwrap() error {
	return e.underlying
}

// WriteJSON writes the error as JSON to the response.
// Base errors are served from bytes encoded once at startup.
func (e *PageError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.Code)
	if pre, ok := preSerialized[e]; ok {
		w.Write(pre)
		return
	}
	json.NewEncoder(w).Encode(e)
}

// Common errors
var (
	ErrNotFound = &PageError{
		Code:    http.StatusNotFound,
		Message: "Not Found",
	}

	ErrMethodNotAllowed = &PageError{
		Code:    http.StatusMethodNotAllowed,
		Message: "Method Not Allowed",
	}

	ErrInternalServer = &PageError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
	}

	ErrServiceUnavailable = &PageError{
		Code:    http.StatusServiceUnavailable,
		Message: "Service Unavailable",
	}
)

var preSerialized map[*PageError][]byte

func init() {
	bases := []*PageError{
		ErrNotFound, ErrMethodNotAllowed, ErrInternalServer, ErrServiceUnavailable,
	}
	preSerialized = make(map[*PageError][]byte, len(bases))
	for _, e := range bases {
		b, _ := json.Marshal(e)
		b = append(b, '\n') // match json.Encoder behavior
		preSerialized[e] = b
	}
}

// New creates a new PageError
func New(code int, message string) *PageError {
	return &PageError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code int, message string) *PageError {
	return &PageError{
		Code:       code,
		Message:    message,
		underlying: err,
	}
}

// WithDetails returns a copy carrying details.
func (e *PageError) WithDetails(details string) *PageError {
	c := *e
	c.Details = details
	return &c
}

// WithRequestID returns a copy carrying the request ID.
func (e *PageError) WithRequestID(requestID string) *PageError {
	c := *e
	c.RequestID = requestID
	return &c
}
