package transcription

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/identity"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

// maxAudioBytes caps uploads at the transcription provider's file limit.
const maxAudioBytes = 25 << 20 // 25 MiB

// allowedAudioExts are the upload formats the transcription provider accepts.
var allowedAudioExts = map[string]bool{
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

type transcribeResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl"`
}

func (m *Module) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		core.WriteError(w, core.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	audio, header, err := r.FormFile("audio")
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}
	defer audio.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedAudioExts[ext] {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	decision, err := m.gate.Consume(r.Context(), id.UID, limits.FeatureTranscriptions)
	switch {
	case errors.Is(err, subscription.ErrProfileNotFound):
		core.WriteError(w, core.ErrNotFound)
		return
	case err != nil:
		m.log.ErrorContext(r.Context(), "transcription quota check failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}
	if !decision.Allowed {
		core.WriteErrorDetail(w, http.StatusTooManyRequests, core.ErrorDetail{
			Code:    core.ErrTooManyRequests.Key,
			Message: "monthly transcription limit reached",
		}, map[string]any{
			"limit":   decision.Limit,
			"current": decision.Current,
		})
		return
	}

	// The stream is read twice, once for storage and once for the
	// transcription request, so buffer it up front.
	data, err := io.ReadAll(audio)
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	key := "voice/" + id.UID + "/" + uuid.New().String() + ext
	obj, err := m.storage.Save(r.Context(), key, contentTypeFor(header, ext), bytes.NewReader(data))
	if err != nil {
		m.log.ErrorContext(r.Context(), "voice note upload failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	text, err := m.transcriber.Transcribe(r.Context(), header.Filename, bytes.NewReader(data))
	if err != nil {
		m.log.ErrorContext(r.Context(), "transcription failed",
			slog.String("uid", id.UID), slog.String("key", key), slog.Any("error", err))
		// Keep the stored audio; the client can retry transcription later.
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, transcribeResponse{Text: text, AudioURL: obj.URL})
}

func contentTypeFor(header *multipart.FileHeader, ext string) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	switch ext {
	case ".mp3", ".mpga":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	}
	return "application/octet-stream"
}
