package diary

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
	diarysvc "github.com/JoseRicoK/SecondBrain-sub001/svc/diary"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

// defaultListWindow is how far back the entry list reaches when the client
// sends no explicit range.
const defaultListWindow = 30 * 24 * time.Hour

type createEntryRequest struct {
	UserID string   `json:"userId"`
	Date   string   `json:"date"` // YYYY-MM-DD, defaults to today
	Text   string   `json:"text"`
	Mood   int      `json:"mood"`
	People []string `json:"people"`
}

func (m *Module) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			core.WriteError(w, core.ErrBadRequest)
			return
		}
		date = parsed
	}

	if err := m.checkPeopleLimit(r, id.UID, req.People); err != nil {
		core.WriteError(w, err)
		return
	}

	entry, err := m.svc.CreateEntry(r.Context(), id.UID, diarysvc.CreateEntryInput{
		Date:   date,
		Text:   req.Text,
		Mood:   req.Mood,
		People: req.People,
	})
	switch {
	case errors.Is(err, diarysvc.ErrEmptyText), errors.Is(err, diarysvc.ErrInvalidMood):
		core.WriteError(w, core.ErrBadRequest)
		return
	case err != nil:
		m.log.ErrorContext(r.Context(), "create diary entry failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusCreated, entry)
}

// checkPeopleLimit verifies the entry's people against the plan's tracked
// people cap. Only names not already tracked count toward the limit, so
// mentioning an existing person never blocks an entry.
func (m *Module) checkPeopleLimit(r *http.Request, uid string, names []string) error {
	newNames, err := m.countNewPeople(r, uid, names)
	if err != nil {
		return err
	}
	if newNames == 0 {
		return nil
	}

	count, err := m.svc.CountPeople(r.Context(), uid)
	if err != nil {
		m.log.ErrorContext(r.Context(), "people count failed",
			slog.String("uid", uid), slog.Any("error", err))
		return core.ErrInternalServerError
	}

	// Room for the last new name means room for all of them.
	decision, err := m.gate.AllowCount(r.Context(), uid, limits.FeatureTrackedPeople,
		count+int64(newNames)-1)
	switch {
	case errors.Is(err, subscription.ErrProfileNotFound):
		return core.ErrNotFound
	case err != nil:
		m.log.ErrorContext(r.Context(), "tracked people check failed",
			slog.String("uid", uid), slog.Any("error", err))
		return core.ErrInternalServerError
	}
	if !decision.Allowed {
		return core.ErrTooManyRequests
	}
	return nil
}

// countNewPeople normalizes the request's names the same way the service
// does and counts the ones not yet tracked for this user.
func (m *Module) countNewPeople(r *http.Request, uid string, names []string) (int, error) {
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	existing, err := m.svc.TopPeople(r.Context(), uid, 0)
	if err != nil {
		m.log.ErrorContext(r.Context(), "people list failed",
			slog.String("uid", uid), slog.Any("error", err))
		return 0, core.ErrInternalServerError
	}
	tracked := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		tracked[p.Name] = struct{}{}
	}

	newNames := 0
	for _, name := range cleaned {
		if _, ok := tracked[name]; !ok {
			newNames++
		}
	}
	return newNames, nil
}

type stylizeRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
	Style  string `json:"style"`
}

type stylizeResponse struct {
	Text string `json:"text"`
}

// handleStylize rewrites entry text in the requested voice before the client
// saves it. The rewrite degrades to the original text when generation fails,
// so this endpoint never loses the user's words.
func (m *Module) handleStylize(w http.ResponseWriter, r *http.Request) {
	var req stylizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	id, ok := requireSameUser(r, req.UserID)
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Style) == "" {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	styled := m.stylist.Stylize(r.Context(), req.Text, req.Style)
	m.log.DebugContext(r.Context(), "stylized entry text",
		slog.String("uid", id.UID), slog.String("style", req.Style))
	core.WriteJSON(w, http.StatusOK, stylizeResponse{Text: styled})
}

func (m *Module) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	now := time.Now().UTC()
	from := now.Add(-defaultListWindow)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			core.WriteError(w, core.ErrBadRequest)
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			core.WriteError(w, core.ErrBadRequest)
			return
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	entries, err := m.svc.ListEntries(r.Context(), id.UID, from, to)
	if err != nil {
		m.log.ErrorContext(r.Context(), "list diary entries failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, entries)
}
