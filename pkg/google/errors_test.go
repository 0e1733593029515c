package google

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestClassifyError(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, classifyError(nil, now))
	})

	t.Run("401 is unauthenticated", func(t *testing.T) {
		err := classifyError(&googleapi.Error{Code: http.StatusUnauthorized}, now)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("rejected refresh is unauthenticated", func(t *testing.T) {
		err := classifyError(fmt.Errorf("refresh: %w", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}), now)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("token endpoint outage is not unauthenticated", func(t *testing.T) {
		for _, status := range []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusInternalServerError} {
			original := &oauth2.RetrieveError{
				Response:  &http.Response{StatusCode: status},
				ErrorCode: "backendError",
			}
			err := classifyError(original, now)
			assert.NotErrorIs(t, err, ErrUnauthenticated, "status %d", status)
		}
	})

	t.Run("401 from the token endpoint is unauthenticated", func(t *testing.T) {
		err := classifyError(&oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusUnauthorized}}, now)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("404 and 410 are not found", func(t *testing.T) {
		assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusNotFound}, now), ErrNotFound)
		assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusGone}, now), ErrNotFound)
	})

	t.Run("429 is rate limited with Retry-After", func(t *testing.T) {
		header := http.Header{}
		header.Set("Retry-After", "30")
		err := classifyError(&googleapi.Error{Code: http.StatusTooManyRequests, Header: header}, now)

		var rateLimitErr *RateLimitError
		require.True(t, errors.As(err, &rateLimitErr))
		assert.Equal(t, now.Add(30*time.Second), rateLimitErr.ResetAt)
	})

	t.Run("403 with rate limit reason defaults to one minute", func(t *testing.T) {
		err := classifyError(&googleapi.Error{
			Code:   http.StatusForbidden,
			Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
		}, now)

		var rateLimitErr *RateLimitError
		require.True(t, errors.As(err, &rateLimitErr))
		assert.Equal(t, now.Add(DefaultRateLimitReset), rateLimitErr.ResetAt)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("other 403 stays unclassified", func(t *testing.T) {
		original := &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}
		err := classifyError(original, now)
		assert.Same(t, original, err)
		assert.False(t, IsRateLimited(err))
	})

	t.Run("plain errors stay unchanged", func(t *testing.T) {
		original := errors.New("connection reset")
		assert.Same(t, original, classifyError(original, now))
	})
}
