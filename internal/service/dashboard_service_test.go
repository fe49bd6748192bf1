package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentDashboard(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	f := newQuizFixture(t, s, testutil.QuizOptions{PassPercentage: 50}, 1)
	finished := testutil.CreateCourse(t, s.db, f.instructor.ID, model.CoursePublished)
	finishedLesson := testutil.CreateLesson(t, s.db, testutil.CreateModule(t, s.db, finished.ID, 1).ID, 1)

	done, err := s.enrollment.Enroll(ctx, f.student.ID, finished.ID)
	require.NoError(t, err)
	_, err = s.enrollment.RecordLessonCompletion(ctx, f.student.ID, done.ID, finishedLesson.ID)
	require.NoError(t, err)
	_, err = s.enrollment.AddStudyTime(ctx, f.student.ID, f.enrollment.ID, f.lessons[0].ID, 25)
	require.NoError(t, err)

	attempt, err := s.quiz.StartAttempt(ctx, f.student.ID, f.quiz.ID, AttemptMeta{})
	require.NoError(t, err)
	_, err = s.quiz.Submit(ctx, f.student.ID, attempt.ID)
	require.NoError(t, err)

	dashboard, err := s.dashboard.StudentDashboard(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, dashboard.ActiveEnrollments, 1)
	assert.Equal(t, f.course.ID, dashboard.ActiveEnrollments[0].CourseID)
	assert.Len(t, dashboard.InProgress, 1)
	require.Len(t, dashboard.Completed, 1)
	assert.Equal(t, finished.ID, dashboard.Completed[0].CourseID)
	assert.Equal(t, int64(25), dashboard.TotalStudyMinutes)
	require.Len(t, dashboard.RecentAttempts, 1)
	assert.Equal(t, model.AttemptCompleted, dashboard.RecentAttempts[0].Status)
	assert.NotEmpty(t, dashboard.RecentActivity)
	assert.Equal(t, model.ActionQuizAttempted, dashboard.RecentActivity[0].Action)
}

func TestInstructorDashboard(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	f := newQuizFixture(t, s, testutil.QuizOptions{PassPercentage: 50}, 1)
	essay := testutil.AddQuestion(t, s.db, f.quiz, model.Essay, 2)
	other := testutil.CreateUser(t, s.db, model.Student)
	testutil.CreateEnrollment(t, s.db, other.ID, f.course.ID, model.EnrollmentActive)
	testutil.CreateCourse(t, s.db, f.instructor.ID, model.CourseDraft)

	attempt, err := s.quiz.StartAttempt(ctx, f.student.ID, f.quiz.ID, AttemptMeta{})
	require.NoError(t, err)
	_, err = s.quiz.SubmitAttempt(ctx, f.student.ID, attempt.ID, []AnswerInput{{QuestionID: essay.ID, Text: "essay"}})
	require.NoError(t, err)

	dashboard, err := s.dashboard.InstructorDashboard(ctx, f.instructor.ID)
	require.NoError(t, err)
	assert.Len(t, dashboard.Courses, 2)
	assert.Equal(t, int64(2), dashboard.TotalEnrollments)
	assert.Equal(t, int64(1), dashboard.PendingGrading)

	empty, err := s.dashboard.InstructorDashboard(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Courses)
	assert.Zero(t, empty.PendingGrading)
}
