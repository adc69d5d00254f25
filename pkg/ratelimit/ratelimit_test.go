package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/ratelimit"
)

func TestNewFixedWindow_Validation(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.NewFixedWindow(nil, 5, time.Minute)
	assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)

	_, err = ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 0, time.Minute)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)

	_, err = ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 5, 0)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidInterval)
}

func TestFixedWindow_Allow(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 3, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "uid-1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i+1)
		assert.Equal(t, 3, result.Limit)
	}

	result, err := limiter.Allow(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.Positive(t, result.RetryAfter())

	// Other keys are unaffected.
	other, err := limiter.Allow(ctx, "uid-2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	// Reset clears the window.
	require.NoError(t, limiter.Reset(ctx, "uid-1"))
	result, err = limiter.Allow(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestFixedWindow_EmptyKey(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 3, time.Minute)
	require.NoError(t, err)

	_, err = limiter.Allow(context.Background(), "")
	assert.ErrorIs(t, err, ratelimit.ErrKeyRequired)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 1, time.Minute)
	require.NoError(t, err)

	handler := ratelimit.Middleware(limiter, func(r *http.Request) string {
		return r.Header.Get("X-User")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/transcribe", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do("uid-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = do("uid-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "LIMIT_EXCEEDED")

	// Requests without a key bypass the limiter.
	rec = do("")
	assert.Equal(t, http.StatusOK, rec.Code)
}
