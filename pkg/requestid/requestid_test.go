package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/requestid"
)

func serve(t *testing.T, headerID string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var seen string
	handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if headerID != "" {
		req.Header.Set(requestid.Header, headerID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates an ID when none supplied", func(t *testing.T) {
		t.Parallel()
		rec, seen := serve(t, "")
		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("reuses a valid client ID", func(t *testing.T) {
		t.Parallel()
		rec, seen := serve(t, "trace-abc_123")
		assert.Equal(t, "trace-abc_123", seen)
		assert.Equal(t, "trace-abc_123", rec.Header().Get(requestid.Header))
	})

	t.Run("replaces malformed or oversized IDs", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"has spaces", "semi;colon", strings.Repeat("a", 200)} {
			_, seen := serve(t, bad)
			assert.NotEqual(t, bad, seen)
			assert.NotEmpty(t, seen)
		}
	})
}

func TestFromContextDefault(t *testing.T) {
	t.Parallel()
	assert.Empty(t, requestid.FromContext(t.Context()))
}
