// Package insights generates AI summaries, quotes and text rewrites from
// journal content. Every generation has a hardcoded fallback so the feature
// degrades to static text instead of an error when the AI backend is down.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/openai"
)

const (
	fallbackSummary = "Your week held both quiet moments and busy ones. Keep writing; the picture gets clearer with every entry."
	fallbackQuote   = "Every day is a fresh page. Write something worth remembering."
)

// Chatter is the slice of the OpenAI client this service uses.
type Chatter interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

// EntriesReader provides the journal text the prompts are built from.
// *diary.Service satisfies it.
type EntriesReader interface {
	EntriesText(ctx context.Context, uid string, from, to time.Time) (string, error)
}

// Service generates journal insights.
type Service struct {
	ai      Chatter
	entries EntriesReader
	log     *slog.Logger
	now     func() time.Time
}

// Option configures an insights Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an insights service. Panics if ai or entries is nil.
func NewService(ai Chatter, entries EntriesReader, opts ...Option) *Service {
	if ai == nil {
		panic("insights: Chatter is required")
	}
	if entries == nil {
		panic("insights: EntriesReader is required")
	}
	s := &Service{
		ai:      ai,
		entries: entries,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WeeklySummary summarizes the last seven days of entries. Returns the
// fallback text, never an error, when the user has no entries or the AI
// call fails.
func (s *Service) WeeklySummary(ctx context.Context, uid string) string {
	now := s.now()
	text, err := s.entries.EntriesText(ctx, uid, now.AddDate(0, 0, -7), now)
	if err != nil || text == "" {
		if err != nil {
			s.log.WarnContext(ctx, "failed to load entries for summary",
				slog.String("uid", uid), slog.Any("error", err))
		}
		return fallbackSummary
	}

	summary, err := s.ai.Chat(ctx, openai.ChatRequest{
		System: "You summarize a user's journal entries for the past week in 2-3 warm, " +
			"second-person sentences. Never invent events that are not in the entries.",
		Messages:    []openai.Message{{Role: "user", Content: text}},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil || summary == "" {
		s.log.WarnContext(ctx, "summary generation failed, using fallback",
			slog.String("uid", uid), slog.Any("error", err))
		return fallbackSummary
	}
	return summary
}

// DailyQuote generates a short motivational quote themed on recent entries.
// Falls back to a static quote on any failure.
func (s *Service) DailyQuote(ctx context.Context, uid string) string {
	now := s.now()
	text, _ := s.entries.EntriesText(ctx, uid, now.AddDate(0, 0, -3), now)

	prompt := "Write one short motivational quote for a journaling app user. Plain text, no attribution."
	if text != "" {
		prompt = fmt.Sprintf("%s Theme it gently on these recent entries:\n\n%s", prompt, text)
	}

	quote, err := s.ai.Chat(ctx, openai.ChatRequest{
		Messages:    []openai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   60,
		Temperature: 0.9,
	})
	if err != nil || quote == "" {
		s.log.WarnContext(ctx, "quote generation failed, using fallback",
			slog.String("uid", uid), slog.Any("error", err))
		return fallbackQuote
	}
	return quote
}

// Stylize rewrites entry text in the requested style. Falls back to the
// original text on any failure, so a save never loses the user's words.
func (s *Service) Stylize(ctx context.Context, text, style string) string {
	if text == "" {
		return text
	}

	styled, err := s.ai.Chat(ctx, openai.ChatRequest{
		System: fmt.Sprintf("Rewrite the user's journal entry in a %s style. "+
			"Keep every fact and name; change only the voice.", style),
		Messages:    []openai.Message{{Role: "user", Content: text}},
		MaxTokens:   1000,
		Temperature: 0.8,
	})
	if err != nil || styled == "" {
		s.log.WarnContext(ctx, "stylize failed, returning original text", slog.Any("error", err))
		return text
	}
	return styled
}
