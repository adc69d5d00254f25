package insights_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/openai"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/diary"
	"github.com/JoseRicoK/SecondBrain-sub001/svc/insights"
)

type mockChatter struct {
	mock.Mock
}

func (m *mockChatter) Chat(ctx context.Context, req openai.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, ai *mockChatter, seed bool) *insights.Service {
	t.Helper()

	store := diary.NewMemoryStore()
	entries := diary.NewService(store, diary.WithClock(func() time.Time { return fixedNow }))
	if seed {
		_, err := entries.CreateEntry(context.Background(), "uid-1", diary.CreateEntryInput{
			Date: fixedNow.AddDate(0, 0, -1),
			Text: "Hiking with Maria.",
			Mood: 9,
		})
		require.NoError(t, err)
	}

	return insights.NewService(ai, entries,
		insights.WithClock(func() time.Time { return fixedNow }),
	)
}

func TestService_WeeklySummary(t *testing.T) {
	t.Parallel()

	t.Run("returns generated summary", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("You had an active week.", nil)

		svc := newService(t, ai, true)
		assert.Equal(t, "You had an active week.", svc.WeeklySummary(context.Background(), "uid-1"))
		ai.AssertExpectations(t)
	})

	t.Run("falls back when AI fails", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("", assert.AnError)

		svc := newService(t, ai, true)
		summary := svc.WeeklySummary(context.Background(), "uid-1")
		assert.NotEmpty(t, summary)
		assert.Contains(t, summary, "Keep writing")
	})

	t.Run("falls back without entries and skips the AI call", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}

		svc := newService(t, ai, false)
		summary := svc.WeeklySummary(context.Background(), "uid-1")
		assert.NotEmpty(t, summary)
		ai.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	})
}

func TestService_DailyQuote(t *testing.T) {
	t.Parallel()

	t.Run("returns generated quote", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("Small steps still climb mountains.", nil)

		svc := newService(t, ai, true)
		assert.Equal(t, "Small steps still climb mountains.", svc.DailyQuote(context.Background(), "uid-1"))
	})

	t.Run("falls back when AI fails", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("", assert.AnError)

		svc := newService(t, ai, true)
		assert.NotEmpty(t, svc.DailyQuote(context.Background(), "uid-1"))
	})
}

func TestService_Stylize(t *testing.T) {
	t.Parallel()

	t.Run("returns styled text", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("Upon this day I wandered the hills with Maria.", nil)

		svc := newService(t, ai, true)
		got := svc.Stylize(context.Background(), "Hiking with Maria.", "victorian")
		assert.Equal(t, "Upon this day I wandered the hills with Maria.", got)
	})

	t.Run("failure returns the original text unchanged", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		ai.On("Chat", mock.Anything, mock.Anything).Return("", assert.AnError)

		svc := newService(t, ai, true)
		assert.Equal(t, "Hiking with Maria.", svc.Stylize(context.Background(), "Hiking with Maria.", "poetic"))
	})

	t.Run("empty text is returned as-is without an AI call", func(t *testing.T) {
		t.Parallel()
		ai := &mockChatter{}
		svc := newService(t, ai, true)
		assert.Empty(t, svc.Stylize(context.Background(), "", "poetic"))
		ai.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	})
}
