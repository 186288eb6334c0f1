package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fetch error categories, used as stable metric labels.
const (
	CategoryTimeout     = "timeout"
	CategoryConnection  = "connection"
	CategoryForbidden   = "forbidden"
	CategoryNotFound    = "not_found"
	CategoryRateLimited = "rate_limited"
	CategoryOther       = "other"
)

// FetchError is a page fetch failure. It halts the ingestion run;
// already-committed pages stay committed.
type FetchError struct {
	Category string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Category, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyFetch wraps a transport error or HTTP status into a FetchError
// with a stable category.
func classifyFetch(url string, err error, statusCode int) *FetchError {
	wrapped := err
	if wrapped == nil {
		wrapped = fmt.Errorf("http status %d", statusCode)
	}
	fe := &FetchError{Category: CategoryOther, URL: url, Err: wrapped}

	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fe.Category = CategoryTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		fe.Category = CategoryTimeout
	case errors.As(err, &opErr):
		fe.Category = CategoryConnection
	case statusCode == http.StatusForbidden:
		fe.Category = CategoryForbidden
	case statusCode == http.StatusNotFound:
		fe.Category = CategoryNotFound
	case statusCode == http.StatusTooManyRequests:
		fe.Category = CategoryRateLimited
	}
	return fe
}
