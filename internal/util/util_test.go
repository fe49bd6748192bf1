package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"lms_backend/internal/model"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "conflict", err: ErrAlreadyEnrolled, want: http.StatusConflict},
		{name: "limit", err: ErrAttemptLimitReached, want: http.StatusForbidden},
		{name: "invalid state", err: ErrAttemptNotInProgress, want: http.StatusUnprocessableEntity},
		{name: "validation", err: ErrInvalidRating, want: http.StatusBadRequest},
		{name: "not found", err: ErrQuizNotFound, want: http.StatusNotFound},
		{name: "permission", err: ErrNotCourseOwner, want: http.StatusForbidden},
		{name: "wrapped", err: fmt.Errorf("start attempt: %w", ErrAttemptLimitReached), want: http.StatusForbidden},
		{name: "unknown", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrAlreadyEnrolled, ErrConflict)
	assert.ErrorIs(t, ErrChoiceNotFound, ErrNotFound)
	assert.False(t, errors.Is(ErrAlreadyEnrolled, ErrNotFound))
}

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@example.com", Role: model.Instructor}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Instructor, claims.Role)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestValidateMimeType(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")

	mime, rest, err := ValidateMimeType(bytes.NewReader(pdf), LessonMediaTypes)
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)

	// 头部不丢失
	all, err := io.ReadAll(rest)
	require.NoError(t, err)
	assert.Equal(t, pdf, all)

	_, _, err = ValidateMimeType(bytes.NewReader([]byte("plain text body")), LessonMediaTypes)
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".mp4", SafeExt("Intro.MP4"))
	assert.Equal(t, "", SafeExt("noext"))
}
