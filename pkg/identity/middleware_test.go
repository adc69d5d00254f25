package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
)

type stubVerifier struct {
	identity identity.Identity
	err      error
}

func (s stubVerifier) Verify(ctx context.Context, idToken string) (identity.Identity, error) {
	if s.err != nil {
		return identity.Identity{}, s.err
	}
	return s.identity, nil
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user-123", id.UID)
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid token passes identity to handler", func(t *testing.T) {
		t.Parallel()

		mw := identity.Middleware(stubVerifier{identity: identity.Identity{UID: "user-123"}})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header yields 401", func(t *testing.T) {
		t.Parallel()

		mw := identity.Middleware(stubVerifier{identity: identity.Identity{UID: "user-123"}})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header yields 401", func(t *testing.T) {
		t.Parallel()

		mw := identity.Middleware(stubVerifier{identity: identity.Identity{UID: "user-123"}})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token yields 401", func(t *testing.T) {
		t.Parallel()

		mw := identity.Middleware(stubVerifier{err: identity.ErrInvalidToken})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		rec := httptest.NewRecorder()

		mw(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
