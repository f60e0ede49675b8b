package helpdesk

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the helpdesk answers with a non-2xx status
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.IsRateLimited() {
		return fmt.Sprintf("helpdesk API rate limited (429) on %s: %s", e.Endpoint, e.Body)
	}
	return fmt.Sprintf("helpdesk API error %d on %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// IsRateLimited reports whether the helpdesk throttled the request
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err wraps a throttled helpdesk response
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimited()
}
