package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "controller-test-secret-0123456789abcdef"

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Quiz:    config.QuizConfig{DefaultMaxAttempts: 3, DefaultPassPercentage: 70},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	stats := service.NewStatsCache(nil, 0)

	enrollments := service.NewEnrollmentService(db, courseRepo, enrollmentRepo, activityRepo, stats)
	quizzes := service.NewQuizService(db, repository.NewQuizRepository(db), repository.NewAttemptRepository(db),
		courseRepo, enrollmentRepo, activityRepo, enrollments, cfg.Quiz)
	catalog := service.NewCatalogService(db, courseRepo, enrollmentRepo, activityRepo,
		service.NewStorageService(context.Background(), cfg), stats)

	auth := NewAuthController(service.NewAuthService(db, userRepo, activityRepo, cfg), service.NewUserService(db, userRepo, activityRepo))
	course := NewCourseController(catalog)
	enrollment := NewEnrollmentController(enrollments)
	quiz := NewQuizController(quizzes)

	r := gin.New()
	r.POST("/api/register", auth.Register)
	r.POST("/api/login", auth.Login)
	r.GET("/api/courses/:id", course.GetCourse)

	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	api.POST("/courses/:id/enroll", enrollment.Enroll)
	api.POST("/enrollments/:id/lessons/:lessonId/complete", enrollment.CompleteLesson)
	api.POST("/quizzes/:id/attempts", quiz.StartAttempt)
	api.PUT("/attempts/:id/answers", quiz.RecordAnswer)
	api.POST("/attempts/:id/submit", quiz.SubmitAttempt)

	return &testServer{db: db, router: r}
}

func (s *testServer) token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// do 发送 JSON 请求，返回状态码与解析后的 data
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	assert.Equal(t, w.Code, resp.Code)
	return w.Code, resp.Data
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	s := newTestServer(t)

	register := gin.H{"name": "Ada", "email": "ada@example.com", "password": "password123"}
	code, _ := s.do(t, http.MethodPost, "/api/register", "", register)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/api/register", "", register)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/register", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, data := s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &login))
	assert.NotEmpty(t, login.Token)

	code, _ = s.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestEnrollmentEndpoints(t *testing.T) {
	s := newTestServer(t)
	instructor := testutil.CreateUser(t, s.db, model.Instructor)
	student := testutil.CreateUser(t, s.db, model.Student)
	course := testutil.CreateCourse(t, s.db, instructor.ID, model.CoursePublished)
	draft := testutil.CreateCourse(t, s.db, instructor.ID, model.CourseDraft)
	module := testutil.CreateModule(t, s.db, course.ID, 1)
	first := testutil.CreateLesson(t, s.db, module.ID, 1)
	testutil.CreateLesson(t, s.db, module.ID, 2)
	token := s.token(t, student)

	tests := []struct {
		name   string
		path   string
		token  string
		expect int
	}{
		{"missing token", fmt.Sprintf("/api/courses/%d/enroll", course.ID), "", http.StatusUnauthorized},
		{"invalid id", "/api/courses/abc/enroll", token, http.StatusBadRequest},
		{"draft course", fmt.Sprintf("/api/courses/%d/enroll", draft.ID), token, http.StatusNotFound},
		{"enrolled", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, http.StatusCreated},
		{"already enrolled", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, tt.expect, w.Code)
		})
	}

	var enrollment model.Enrollment
	require.NoError(t, s.db.Where("student_id = ? AND course_id = ?", student.ID, course.ID).First(&enrollment).Error)

	code, data := s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/lessons/%d/complete", enrollment.ID, first.ID), token, nil)
	require.Equal(t, http.StatusOK, code)
	var result service.LessonCompletion
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 50.0, result.Enrollment.ProgressPercentage)
	assert.True(t, result.NewlyCompleted)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/lessons/%d/complete", enrollment.ID, 9999), token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// 他人的选课记录不可见
	other := s.token(t, testutil.CreateUser(t, s.db, model.Student))
	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/enrollments/%d/lessons/%d/complete", enrollment.ID, first.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestQuizAttemptEndpoints(t *testing.T) {
	s := newTestServer(t)
	instructor := testutil.CreateUser(t, s.db, model.Instructor)
	student := testutil.CreateUser(t, s.db, model.Student)
	course := testutil.CreateCourse(t, s.db, instructor.ID, model.CoursePublished)
	testutil.CreateEnrollment(t, s.db, student.ID, course.ID, model.EnrollmentActive)
	quiz := testutil.CreateQuiz(t, s.db, course.ID, testutil.QuizOptions{MaxAttempts: 1, PassPercentage: 50}, 1, 1)
	q1, q2 := quiz.Questions[0], quiz.Questions[1]
	token := s.token(t, student)

	code, data := s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", quiz.ID), token, nil)
	require.Equal(t, http.StatusCreated, code)
	var attempt model.QuizAttempt
	require.NoError(t, json.Unmarshal(data, &attempt))
	assert.Equal(t, 1, attempt.AttemptNumber)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/quizzes/%d/attempts", quiz.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	answers := fmt.Sprintf("/api/attempts/%d/answers", attempt.ID)
	code, _ = s.do(t, http.MethodPut, answers, token, gin.H{"questionId": q1.ID, "choiceId": testutil.Correct(q1)})
	assert.Equal(t, http.StatusOK, code)

	// 其他题目的选项
	code, _ = s.do(t, http.MethodPut, answers, token, gin.H{"questionId": q1.ID, "choiceId": testutil.Correct(q2)})
	assert.Equal(t, http.StatusNotFound, code)

	submit := fmt.Sprintf("/api/attempts/%d/submit", attempt.ID)
	code, data = s.do(t, http.MethodPost, submit, token, gin.H{
		"answers": []gin.H{{"questionId": q2.ID, "choiceId": testutil.Wrong(q2)}},
	})
	require.Equal(t, http.StatusOK, code)
	var submitted model.QuizAttempt
	require.NoError(t, json.Unmarshal(data, &submitted))
	assert.Equal(t, model.AttemptCompleted, submitted.Status)
	require.NotNil(t, submitted.Percentage)
	assert.Equal(t, 50.0, *submitted.Percentage)
	require.NotNil(t, submitted.Passed)
	assert.True(t, *submitted.Passed)

	code, _ = s.do(t, http.MethodPost, submit, token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.do(t, http.MethodPut, answers, token, gin.H{"questionId": q2.ID, "choiceId": testutil.Correct(q2)})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}
