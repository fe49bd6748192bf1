// Package testutil 提供测试使用的内存 sqlite 数据库与数据构造函数
package testutil

import (
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/pkg/database"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Password 测试用户的明文密码
const Password = "password123"

// NewDB 每个测试独立的内存数据库，单连接保证事务串行
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Name:     string(role) + " user",
		Email:    fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		Password: string(hashed),
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.UserProfile{UserID: user.ID}).Error)
	return user
}

func CreateCourse(t *testing.T, db *gorm.DB, instructorID uint, status model.CourseStatus) *model.Course {
	t.Helper()

	course := &model.Course{
		Title:        "Course",
		Slug:         "course-" + uuid.NewString()[:8],
		InstructorID: instructorID,
		Difficulty:   model.Beginner,
		PriceType:    model.PriceFree,
		Status:       status,
	}
	if status == model.CoursePublished {
		now := time.Now()
		course.PublishedAt = &now
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func CreateModule(t *testing.T, db *gorm.DB, courseID uint, order int) *model.Module {
	t.Helper()

	module := &model.Module{
		CourseID:    courseID,
		Title:       fmt.Sprintf("Module %d", order),
		Order:       order,
		IsPublished: true,
	}
	require.NoError(t, db.Create(module).Error)
	return module
}

func CreateLesson(t *testing.T, db *gorm.DB, moduleID uint, order int) *model.Lesson {
	t.Helper()

	duration := 10
	lesson := &model.Lesson{
		ModuleID:        moduleID,
		Title:           fmt.Sprintf("Lesson %d", order),
		Type:            model.LessonText,
		DurationMinutes: &duration,
		Order:           order,
		IsPublished:     true,
	}
	require.NoError(t, db.Create(lesson).Error)
	return lesson
}

func CreateEnrollment(t *testing.T, db *gorm.DB, studentID, courseID uint, status model.EnrollmentStatus) *model.Enrollment {
	t.Helper()

	enrollment := &model.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     status,
		EnrolledAt: time.Now(),
		IsActive:   status == model.EnrollmentActive || status == model.EnrollmentCompleted,
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

// QuizOptions 构造试卷的可选参数
type QuizOptions struct {
	MaxAttempts      int
	PassPercentage   float64
	TimeLimitMinutes *int
	LessonID         *uint
	Unpublished      bool
}

// CreateQuiz 创建试卷，questions 为每道单选题的分值，每题两个选项且第一个正确
func CreateQuiz(t *testing.T, db *gorm.DB, courseID uint, opts QuizOptions, questions ...int) *model.Quiz {
	t.Helper()

	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	quiz := &model.Quiz{
		Title:            "Quiz",
		Type:             model.QuizGraded,
		CourseID:         courseID,
		LessonID:         opts.LessonID,
		TimeLimitMinutes: opts.TimeLimitMinutes,
		MaxAttempts:      opts.MaxAttempts,
		PassPercentage:   opts.PassPercentage,
		IsPublished:      !opts.Unpublished,
	}
	require.NoError(t, db.Omit("Questions").Create(quiz).Error)

	for i, points := range questions {
		question := model.Question{
			QuizID: quiz.ID,
			Type:   model.MultipleChoice,
			Text:   fmt.Sprintf("Question %d", i+1),
			Points: points,
			Order:  i + 1,
			Choices: []model.AnswerChoice{
				{Text: "right", IsCorrect: true, Order: 1},
				{Text: "wrong", Order: 2},
			},
		}
		require.NoError(t, db.Create(&question).Error)
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

// AddQuestion 向试卷追加非选择题
func AddQuestion(t *testing.T, db *gorm.DB, quiz *model.Quiz, typ model.QuestionType, points int) model.Question {
	t.Helper()

	question := model.Question{
		QuizID: quiz.ID,
		Type:   typ,
		Text:   "Open question",
		Points: points,
		Order:  len(quiz.Questions) + 1,
	}
	require.NoError(t, db.Create(&question).Error)
	quiz.Questions = append(quiz.Questions, question)
	return question
}

// Correct 题目的正确选项 ID
func Correct(q model.Question) uint {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.ID
		}
	}
	return 0
}

// Wrong 题目的错误选项 ID
func Wrong(q model.Question) uint {
	for _, c := range q.Choices {
		if !c.IsCorrect {
			return c.ID
		}
	}
	return 0
}
