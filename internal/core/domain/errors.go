package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// New creates a generic Problem
func New(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // Default as per RFC
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// Error defines a standard error shape for the engine and API.
type Error struct {
	// HTTP-ish status code (e.g., 400, 409, 502)
	Code int
	// Safe message for the caller
	Message string
	// Original error for internal logging
	Log error
}

func (e *Error) Error() string {
	return e.Message
}

// ValidationError creates a rich validation error from a field map.
func ValidationError(validationErrors map[string]string) *Problem {
	return New(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", validationErrors),
	)
}

// BadRequestError creates a standard error for a bad request
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return New(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// InternalError creates a standard error for any internal server error
func InternalError(msg string, err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: msg, Log: err}
}

// NotFoundError creates a standard 404 error
func NotFoundError(msg string) *Error {
	return &Error{Code: http.StatusNotFound, Message: msg}
}

// DependencyError signals an unmet or violated plugin dependency.
// Registry state is unchanged when one of these is returned.
func DependencyError(msg string) *Error {
	return &Error{Code: http.StatusConflict, Message: msg}
}

// AmbiguousModelError signals a bare model reference that matched more
// than one configured service.
func AmbiguousModelError(msg string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: msg}
}

// ProviderError creates 502 gateway error for upstream provider failures
func ProviderError(msg string, err error) *Error {
	return &Error{Code: http.StatusBadGateway, Message: msg, Log: err}
}

// RateLimitError creates standard 429 rate limit error
func RateLimitError(msg string) *Error {
	return &Error{Code: http.StatusTooManyRequests, Message: msg}
}

// WrapError allows wrapping a standard error in an Error
func WrapError(err error, code int, msg string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", msg, err),
		Log:     err,
	}
}
