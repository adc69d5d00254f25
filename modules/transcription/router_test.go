package transcription_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	module "github.com/JoseRicoK/SecondBrain-sub001/modules/transcription"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/file"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/ratelimit"
	subsvc "github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/usage"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type stubVerifier struct {
	identities map[string]identity.Identity
}

func (v *stubVerifier) Verify(_ context.Context, token string) (identity.Identity, error) {
	id, ok := v.identities[token]
	if !ok {
		return identity.Identity{}, identity.ErrInvalidToken
	}
	return id, nil
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	args := m.Called(ctx, filename, audio)
	return args.String(0), args.Error(1)
}

type fixture struct {
	router      http.Handler
	subs        *subsvc.MemoryStore
	transcriber *mockTranscriber
}

func newFixture(t *testing.T, limiter *ratelimit.FixedWindow) *fixture {
	t.Helper()

	subStore := subsvc.NewMemoryStore()
	subSvc := subsvc.NewService(subStore, subsvc.DefaultCatalog(),
		subsvc.WithClock(func() time.Time { return fixedNow }),
	)
	usageSvc := usage.NewService(usage.NewMemoryStore(),
		usage.WithClock(func() time.Time { return fixedNow }),
	)

	storage, err := file.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	transcriber := &mockTranscriber{}
	m := module.New(module.Config{
		Gate:        usage.NewGate(subSvc, usageSvc),
		Storage:     storage,
		Transcriber: transcriber,
		Verifier: &stubVerifier{identities: map[string]identity.Identity{
			"token-1": {UID: "uid-1", Email: "uid-1@example.com"},
		}},
		Limiter: limiter,
	})
	return &fixture{router: m.Router(), subs: subStore, transcriber: transcriber}
}

func (f *fixture) seedUser(t *testing.T, uid string, plan subsvc.PlanType) {
	t.Helper()
	status := subsvc.StatusActive
	if plan == subsvc.PlanFree {
		status = subsvc.StatusInactive
	}
	require.NoError(t, f.subs.Save(context.Background(), &subsvc.Profile{
		UID:          uid,
		Email:        uid + "@example.com",
		Subscription: subsvc.Subscription{Plan: plan, Status: status},
	}))
}

func (f *fixture) upload(t *testing.T, token, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTranscribeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		rec := f.upload(t, "", "note.mp3", []byte("audio-bytes"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("stores audio and returns transcript", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.seedUser(t, "uid-1", subsvc.PlanFree)
		f.transcriber.On("Transcribe", mock.Anything, "note.mp3", mock.Anything).
			Return("today I went for a walk", nil)

		rec := f.upload(t, "token-1", "note.mp3", []byte("audio-bytes"))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Text     string `json:"text"`
				AudioURL string `json:"audioUrl"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "today I went for a walk", resp.Data.Text)
		assert.Contains(t, resp.Data.AudioURL, "voice/uid-1/")
		assert.Contains(t, resp.Data.AudioURL, ".mp3")
	})

	t.Run("rejects unsupported formats", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.seedUser(t, "uid-1", subsvc.PlanFree)

		rec := f.upload(t, "token-1", "notes.txt", []byte("not audio"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("monthly quota denies with limit detail", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.seedUser(t, "uid-1", subsvc.PlanFree)
		f.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
			Return("text", nil)

		// Free plan allows 3 transcriptions per month.
		for i := 0; i < 3; i++ {
			rec := f.upload(t, "token-1", "note.m4a", []byte("audio"))
			require.Equal(t, http.StatusOK, rec.Code, "upload %d", i+1)
		}

		rec := f.upload(t, "token-1", "note.m4a", []byte("audio"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var body struct {
			Meta  map[string]any `json:"meta"`
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "LIMIT_EXCEEDED", body.Error.Code)
		assert.EqualValues(t, 3, body.Meta["limit"])
	})

	t.Run("transcription failure keeps quota spent and reports 500", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.seedUser(t, "uid-1", subsvc.PlanFree)
		f.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
			Return("", assert.AnError)

		rec := f.upload(t, "token-1", "note.wav", []byte("audio"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestTranscribeRateLimit(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.NewFixedWindow(ratelimit.NewMemoryStore(), 2, time.Minute)
	require.NoError(t, err)

	f := newFixture(t, limiter)
	f.seedUser(t, "uid-1", subsvc.PlanElite)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return("text", nil)

	for i := 0; i < 2; i++ {
		rec := f.upload(t, "token-1", "note.mp3", []byte("audio"))
		require.Equal(t, http.StatusOK, rec.Code, "upload %d", i+1)
	}

	rec := f.upload(t, "token-1", "note.mp3", []byte("audio"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
