package service

import (
	"bytes"
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Intro to Go", "intro-to-go"},
		{"  Go: Concurrency & Channels!  ", "go-concurrency-channels"},
		{"数据结构 101", "数据结构-101"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestCourseAuthoring(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	instructor := testutil.CreateUser(t, s.db, model.Instructor)
	other := testutil.CreateUser(t, s.db, model.Instructor)

	category, err := s.catalog.CreateCategory(ctx, "Programming", "")
	require.NoError(t, err)
	_, err = s.catalog.CreateCategory(ctx, "Programming", "")
	assert.ErrorIs(t, err, util.ErrConflict)

	course, err := s.catalog.CreateCourse(ctx, instructor.ID, CourseInput{Title: "Intro to Go", CategoryID: &category.ID})
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go", course.Slug)
	assert.Equal(t, model.CourseDraft, course.Status)

	second, err := s.catalog.CreateCourse(ctx, instructor.ID, CourseInput{Title: "Intro to Go"})
	require.NoError(t, err)
	assert.NotEqual(t, course.Slug, second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "intro-to-go-"))

	missing := uint(9999)
	_, err = s.catalog.CreateCourse(ctx, instructor.ID, CourseInput{Title: "Orphan", CategoryID: &missing})
	assert.ErrorIs(t, err, util.ErrCategoryNotFound)

	_, err = s.catalog.PublishCourse(ctx, other.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	published, err := s.catalog.PublishCourse(ctx, instructor.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
	require.NotNil(t, published.PublishedAt)

	module2, err := s.catalog.AddModule(ctx, instructor.ID, course.ID, ModuleInput{Title: "Second", Order: 2})
	require.NoError(t, err)
	assert.True(t, module2.IsPublished)
	module1, err := s.catalog.AddModule(ctx, instructor.ID, course.ID, ModuleInput{Title: "First", Order: 1})
	require.NoError(t, err)

	_, err = s.catalog.AddModule(ctx, instructor.ID, course.ID, ModuleInput{Title: "Clash", Order: 1})
	assert.ErrorIs(t, err, util.ErrDuplicateOrder)
	_, err = s.catalog.AddModule(ctx, other.ID, course.ID, ModuleInput{Title: "Hijack", Order: 3})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	duration := 12
	_, err = s.catalog.AddLesson(ctx, instructor.ID, module1.ID, LessonInput{Title: "B", Order: 2, DurationMinutes: &duration})
	require.NoError(t, err)
	_, err = s.catalog.AddLesson(ctx, instructor.ID, module1.ID, LessonInput{Title: "A", Order: 1, DurationMinutes: &duration})
	require.NoError(t, err)
	_, err = s.catalog.AddLesson(ctx, instructor.ID, module1.ID, LessonInput{Title: "Clash", Order: 1})
	assert.ErrorIs(t, err, util.ErrDuplicateOrder)
	_, err = s.catalog.AddLesson(ctx, instructor.ID, module1.ID, LessonInput{Title: "Bad", Order: 5, Type: "podcast"})
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = s.catalog.AddLesson(ctx, instructor.ID, 9999, LessonInput{Title: "Lost"})
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	detail, err := s.catalog.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, detail.Modules, 2)
	assert.Equal(t, "First", detail.Modules[0].Title)
	require.Len(t, detail.Modules[0].Lessons, 2)
	assert.Equal(t, "A", detail.Modules[0].Lessons[0].Title)
	assert.Equal(t, int64(2), detail.Stats.TotalLessons)
	assert.Equal(t, int64(24), detail.Stats.TotalDurationMinutes)

	archived, err := s.catalog.ArchiveCourse(ctx, instructor.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CourseArchived, archived.Status)
	_, err = s.catalog.AddModule(ctx, instructor.ID, course.ID, ModuleInput{Title: "Late", Order: 9})
	assert.ErrorIs(t, err, util.ErrCourseNotEditable)
}

func TestListPublishedCoursesAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	f := newCourseFixture(t, s, 3)
	testutil.CreateCourse(t, s.db, f.instructor.ID, model.CourseDraft)

	second := testutil.CreateUser(t, s.db, model.Student)
	dropped := testutil.CreateUser(t, s.db, model.Student)
	testutil.CreateEnrollment(t, s.db, f.student.ID, f.course.ID, model.EnrollmentActive)
	testutil.CreateEnrollment(t, s.db, second.ID, f.course.ID, model.EnrollmentActive)
	testutil.CreateEnrollment(t, s.db, dropped.ID, f.course.ID, model.EnrollmentDropped)

	_, err := s.catalog.AddReview(ctx, f.student.ID, f.course.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = s.catalog.AddReview(ctx, second.ID, f.course.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)

	page, err := s.catalog.ListPublishedCourses(ctx, repository.CourseFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	items := page.List.([]repository.CourseListItem)
	require.Len(t, items, 1)
	assert.Equal(t, f.course.ID, items[0].ID)
	assert.Equal(t, 3.5, items[0].AverageRating)
	assert.Equal(t, int64(2), items[0].TotalStudents)

	page, err = s.catalog.ListPublishedCourses(ctx, repository.CourseFilter{Search: "nothing-matches"}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	stats, err := s.catalog.CourseStats(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, &repository.CourseStats{
		TotalLessons:         3,
		TotalDurationMinutes: 30,
		TotalStudents:        2,
		AverageRating:        3.5,
		ReviewCount:          2,
	}, stats)

	_, err = s.catalog.CourseStats(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestAddReview(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	f := newCourseFixture(t, s, 1)
	testutil.CreateEnrollment(t, s.db, f.student.ID, f.course.ID, model.EnrollmentActive)
	stranger := testutil.CreateUser(t, s.db, model.Student)

	tests := []struct {
		name      string
		studentID uint
		rating    int
		wantErr   error
	}{
		{"rating too low", f.student.ID, 0, util.ErrInvalidRating},
		{"rating too high", f.student.ID, 6, util.ErrInvalidRating},
		{"not enrolled", stranger.ID, 4, util.ErrEnrollmentNotFound},
		{"first review", f.student.ID, 4, nil},
		{"second review", f.student.ID, 3, util.ErrDuplicateReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.catalog.AddReview(ctx, tt.studentID, f.course.ID, ReviewInput{Rating: tt.rating, Comment: "ok"})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	reviews, err := s.catalog.ListReviews(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4, reviews[0].Rating)
}

func TestAttachLessonMedia(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	f := newCourseFixture(t, s, 1)
	lesson := f.lessons[0]
	pdf := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")

	updated, err := s.catalog.AttachLessonMedia(ctx, f.instructor.ID, lesson.ID, "Slides.PDF", bytes.NewReader(pdf), int64(len(pdf)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.MediaURL, "/uploads/lessons/"))
	assert.True(t, strings.HasSuffix(updated.MediaURL, ".pdf"))

	stored, err := os.ReadFile(filepath.Join(s.catalog.Storage.Provider.(*LocalStorageProvider).Config.LocalPath,
		strings.TrimPrefix(updated.MediaURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)

	_, err = s.catalog.AttachLessonMedia(ctx, f.instructor.ID, lesson.ID, "run.sh", strings.NewReader("#!/bin/sh\necho hi\n"), 18)
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	_, err = s.catalog.AttachLessonMedia(ctx, f.student.ID, lesson.ID, "x.pdf", bytes.NewReader(pdf), int64(len(pdf)))
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)
}
