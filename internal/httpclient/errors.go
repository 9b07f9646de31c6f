package httpclient

import (
	"fmt"
	"net/http"
)

// UpstreamError represents an error returned by an upstream service
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// IsRateLimited reports whether the upstream rejected the call for quota.
func (e *UpstreamError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
