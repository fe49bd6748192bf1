package util

import (
	"errors"
	"fmt"
)

// 错误类别，具体错误通过 %w 包装类别，调用方用 errors.Is 判断
var (
	ErrConflict         = errors.New("conflict")
	ErrLimitExceeded    = errors.New("limit exceeded")
	ErrInvalidState     = errors.New("invalid state")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
)

var (
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrEmailRegistered    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrPermissionDenied)
	ErrUserDisabled       = fmt.Errorf("%w: user disabled", ErrPermissionDenied)

	ErrCourseNotFound    = fmt.Errorf("%w: course", ErrNotFound)
	ErrModuleNotFound    = fmt.Errorf("%w: module", ErrNotFound)
	ErrLessonNotFound    = fmt.Errorf("%w: lesson", ErrNotFound)
	ErrCategoryNotFound  = fmt.Errorf("%w: category", ErrNotFound)
	ErrDuplicateOrder    = fmt.Errorf("%w: order already taken", ErrConflict)
	ErrNotCourseOwner    = fmt.Errorf("%w: not the course instructor", ErrPermissionDenied)
	ErrDuplicateReview   = fmt.Errorf("%w: course already reviewed", ErrConflict)
	ErrInvalidRating     = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrInvalidFileType   = fmt.Errorf("%w: unsupported file type", ErrValidation)
	ErrCourseNotEditable = fmt.Errorf("%w: course is archived", ErrInvalidState)

	ErrEnrollmentNotFound = fmt.Errorf("%w: enrollment", ErrNotFound)
	ErrAlreadyEnrolled    = fmt.Errorf("%w: already enrolled", ErrConflict)
	ErrEnrollmentInactive = fmt.Errorf("%w: enrollment is not active", ErrInvalidState)
	ErrCourseFull         = fmt.Errorf("%w: course is full", ErrLimitExceeded)

	ErrQuizNotFound         = fmt.Errorf("%w: quiz", ErrNotFound)
	ErrQuestionNotFound     = fmt.Errorf("%w: question", ErrNotFound)
	ErrChoiceNotFound       = fmt.Errorf("%w: answer choice", ErrNotFound)
	ErrAttemptNotFound      = fmt.Errorf("%w: attempt", ErrNotFound)
	ErrAnswerNotFound       = fmt.Errorf("%w: answer", ErrNotFound)
	ErrQuizNotAvailable     = fmt.Errorf("%w: quiz not available", ErrInvalidState)
	ErrAttemptLimitReached  = fmt.Errorf("%w: maximum attempts reached", ErrLimitExceeded)
	ErrAttemptNotInProgress = fmt.Errorf("%w: attempt is not in progress", ErrInvalidState)
	ErrAttemptTimeExpired   = fmt.Errorf("%w: attempt time limit exceeded", ErrInvalidState)
	ErrAttemptNotFinished   = fmt.Errorf("%w: attempt is still in progress", ErrInvalidState)
	ErrNotManuallyGradable  = fmt.Errorf("%w: question is auto graded", ErrValidation)
	ErrInvalidPoints        = fmt.Errorf("%w: points out of range", ErrValidation)
)
