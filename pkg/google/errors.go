package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var ErrUnauthenticated = errors.New("user is unauthenticated, authentication is required")
var ErrNotFound = errors.New("calendar event not found")

// DefaultRateLimitReset is assumed when the provider does not say when to retry.
const DefaultRateLimitReset = time.Minute

// RateLimitError reports provider throttling. ResetAt is the earliest moment a retry
// is expected to succeed.
type RateLimitError struct {
	ResetAt time.Time
	Err     error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s: %v", e.ResetAt.Format(time.RFC3339), e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// classifyError maps provider failures to ErrUnauthenticated, ErrNotFound or
// *RateLimitError. Anything else is returned unchanged.
func classifyError(err error, now time.Time) error {
	if err == nil {
		return nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if isRejectedGrant(retrieveErr) {
			return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return err
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	case apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case apiErr.Code == http.StatusTooManyRequests || (apiErr.Code == http.StatusForbidden && isRateLimitReason(apiErr)):
		return &RateLimitError{ResetAt: resetTime(apiErr.Header, now), Err: err}
	}
	return err
}

// isRejectedGrant reports whether the token endpoint refused the grant itself.
// Outages and throttling of the endpoint answer with other codes.
func isRejectedGrant(retrieveErr *oauth2.RetrieveError) bool {
	switch retrieveErr.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	if retrieveErr.Response == nil {
		return false
	}
	return retrieveErr.Response.StatusCode == http.StatusBadRequest ||
		retrieveErr.Response.StatusCode == http.StatusUnauthorized
}

func isRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

func resetTime(header http.Header, now time.Time) time.Time {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return now.Add(DefaultRateLimitReset)
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
		return now.Add(time.Duration(seconds) * time.Second)
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		return at
	}
	return now.Add(DefaultRateLimitReset)
}

func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}
