package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestQuizIsAvailable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		quiz Quiz
		want bool
	}{
		{name: "unpublished", quiz: Quiz{}, want: false},
		{name: "published without window", quiz: Quiz{IsPublished: true}, want: true},
		{name: "not yet open", quiz: Quiz{IsPublished: true, AvailableFrom: &after}, want: false},
		{name: "closed", quiz: Quiz{IsPublished: true, AvailableUntil: &before}, want: false},
		{name: "inside window", quiz: Quiz{IsPublished: true, AvailableFrom: &before, AvailableUntil: &after}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.quiz.IsAvailable(now))
		})
	}
}

func TestAttemptIsTimedOut(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limited := &Quiz{TimeLimitMinutes: intPtr(10)}

	tests := []struct {
		name    string
		quiz    *Quiz
		status  AttemptStatus
		elapsed time.Duration
		want    bool
	}{
		{name: "no time limit", quiz: &Quiz{}, status: AttemptInProgress, elapsed: 24 * time.Hour, want: false},
		{name: "within limit", quiz: limited, status: AttemptInProgress, elapsed: 9 * time.Minute, want: false},
		{name: "exactly at limit", quiz: limited, status: AttemptInProgress, elapsed: 10 * time.Minute, want: false},
		{name: "past limit", quiz: limited, status: AttemptInProgress, elapsed: 11 * time.Minute, want: true},
		{name: "finished attempt", quiz: limited, status: AttemptCompleted, elapsed: time.Hour, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := QuizAttempt{Status: tt.status, StartedAt: start}
			assert.Equal(t, tt.want, a.IsTimedOut(tt.quiz, start.Add(tt.elapsed)))
		})
	}
}

func TestAttemptRemainingTimeSeconds(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	quiz := &Quiz{TimeLimitMinutes: intPtr(5)}
	a := QuizAttempt{Status: AttemptInProgress, StartedAt: start}

	remaining := a.RemainingTimeSeconds(quiz, start.Add(2*time.Minute))
	if assert.NotNil(t, remaining) {
		assert.Equal(t, 180, *remaining)
	}

	expired := a.RemainingTimeSeconds(quiz, start.Add(time.Hour))
	if assert.NotNil(t, expired) {
		assert.Equal(t, 0, *expired)
	}

	assert.Nil(t, a.RemainingTimeSeconds(&Quiz{}, start))
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0.0, ProgressPercentage(0, 0))
	assert.Equal(t, 50.0, ProgressPercentage(1, 2))
	assert.Equal(t, 100.0, ProgressPercentage(3, 3))
	assert.Equal(t, 100.0, ProgressPercentage(4, 3))
	assert.InDelta(t, 33.333, ProgressPercentage(1, 3), 0.001)
}
