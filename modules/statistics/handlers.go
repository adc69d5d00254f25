package statistics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/subscription"
)

// defaultMoodWindow is how far back the mood chart reaches when the client
// sends no explicit range.
const defaultMoodWindow = 30 * 24 * time.Hour

type accessResponse struct {
	Allowed bool  `json:"allowed"`
	Limit   int64 `json:"limit"`
	Current int64 `json:"current"`
}

// handleAccess meters one statistics screen load against the monthly quota.
// A denied request reports the quota numbers so the client can render the
// upgrade prompt without a second call.
func (m *Module) handleAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	decision, err := m.gate.Consume(r.Context(), id.UID, limits.FeatureStatisticsAccess)
	switch {
	case errors.Is(err, subscription.ErrProfileNotFound):
		core.WriteError(w, core.ErrNotFound)
		return
	case err != nil:
		m.log.ErrorContext(r.Context(), "statistics access check failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	if !decision.Allowed {
		core.WriteErrorDetail(w, http.StatusTooManyRequests, core.ErrorDetail{
			Code:    "STATISTICS_LIMIT_EXCEEDED",
			Message: "monthly statistics limit reached",
		}, map[string]any{
			"limit":   decision.Limit,
			"current": decision.Current,
		})
		return
	}

	core.WriteJSON(w, http.StatusOK, accessResponse{
		Allowed: true,
		Limit:   decision.Limit,
		Current: decision.Current,
	})
}

// moodRange parses from/to query params, defaulting to the last 30 days.
// Dates are YYYY-MM-DD; the end date is inclusive.
func moodRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	from := now.Add(-defaultMoodWindow)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to precedes from")
	}
	return from, to, nil
}

func (m *Module) handleMood(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	from, to, err := moodRange(r, time.Now().UTC())
	if err != nil {
		core.WriteError(w, core.ErrBadRequest)
		return
	}

	stats, err := m.diary.MoodStats(r.Context(), id.UID, from, to)
	if err != nil {
		m.log.ErrorContext(r.Context(), "mood statistics read failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	core.WriteJSON(w, http.StatusOK, stats)
}

// topPeopleLimit caps the people list; the statistics screen shows a ranking,
// not a full directory.
const topPeopleLimit = 10

type peopleResponse struct {
	People []personPayload `json:"people"`
	Total  int64           `json:"total"`
}

type personPayload struct {
	Name     string `json:"name"`
	Mentions int64  `json:"mentions"`
}

func (m *Module) handlePeople(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}

	people, err := m.diary.TopPeople(r.Context(), id.UID, topPeopleLimit)
	if err != nil {
		m.log.ErrorContext(r.Context(), "people ranking read failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}
	total, err := m.diary.CountPeople(r.Context(), id.UID)
	if err != nil {
		m.log.ErrorContext(r.Context(), "people count failed",
			slog.String("uid", id.UID), slog.Any("error", err))
		core.WriteError(w, core.ErrInternalServerError)
		return
	}

	resp := peopleResponse{People: make([]personPayload, 0, len(people)), Total: total}
	for _, p := range people {
		resp.People = append(resp.People, personPayload{Name: p.Name, Mentions: p.Mentions})
	}
	core.WriteJSON(w, http.StatusOK, resp)
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// handleSummary returns the AI weekly summary. The insights service degrades
// to a canned text on AI failure, so this endpoint never 500s for AI reasons.
func (m *Module) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}
	core.WriteJSON(w, http.StatusOK, summaryResponse{
		Summary: m.insights.WeeklySummary(r.Context(), id.UID),
	})
}

type quoteResponse struct {
	Quote string `json:"quote"`
}

func (m *Module) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := requireSameUser(r, r.URL.Query().Get("userId"))
	if !ok {
		core.WriteError(w, core.ErrForbidden)
		return
	}
	core.WriteJSON(w, http.StatusOK, quoteResponse{
		Quote: m.insights.DailyQuote(r.Context(), id.UID),
	})
}
