package core_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	core.WriteJSON(rec, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	assert.Equal(t, map[string]any{"hello": "world"}, body.Data)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	t.Run("http error keeps status and code", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		core.WriteError(rec, core.ErrForbidden)

		assert.Equal(t, http.StatusForbidden, rec.Code)

		var body core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "FORBIDDEN", body.Error.Code)
	})

	t.Run("wrapped http error is unwrapped", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		core.WriteError(rec, fmt.Errorf("user mismatch: %w", core.ErrForbidden))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown error becomes generic 500", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		core.WriteError(rec, fmt.Errorf("stripe exploded: secret detail"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "secret detail")
	})
}

func TestWriteErrorDetail(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	core.WriteErrorDetail(rec, http.StatusTooManyRequests, core.ErrorDetail{
		Code:    "STATISTICS_LIMIT_EXCEEDED",
		Message: "monthly statistics limit reached",
	}, map[string]any{"limit": 5, "current": 5})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "STATISTICS_LIMIT_EXCEEDED", body.Error.Code)
	assert.EqualValues(t, 5, body.Meta["limit"])
}
