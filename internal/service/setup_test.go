package service

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/repository"
	"lms_backend/internal/testutil"
	"testing"
	"time"

	"gorm.io/gorm"
)

type testServices struct {
	db         *gorm.DB
	catalog    *CatalogService
	enrollment *EnrollmentService
	quiz       *QuizService
	auth       *AuthService
	users      *UserService
	dashboard  *DashboardService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	cfg := &config.Config{
		JWT:  config.JWTConfig{Secret: "service-test-secret", ExpireTime: time.Hour},
		Quiz: config.QuizConfig{DefaultMaxAttempts: 3, DefaultPassPercentage: 70},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: t.TempDir(),
		},
	}

	stats := NewStatsCache(nil, 0)
	storage := NewStorageService(context.Background(), cfg)
	enrollment := NewEnrollmentService(db, courseRepo, enrollmentRepo, activityRepo, stats)

	return &testServices{
		db:         db,
		catalog:    NewCatalogService(db, courseRepo, enrollmentRepo, activityRepo, storage, stats),
		enrollment: enrollment,
		quiz:       NewQuizService(db, quizRepo, attemptRepo, courseRepo, enrollmentRepo, activityRepo, enrollment, cfg.Quiz),
		auth:       NewAuthService(db, userRepo, activityRepo, cfg),
		users:      NewUserService(db, userRepo, activityRepo),
		dashboard:  NewDashboardService(db, courseRepo, enrollmentRepo, attemptRepo, activityRepo),
	}
}

// freezeClock 固定 nowFunc，测试结束后恢复
func freezeClock(t *testing.T, at time.Time) *time.Time {
	t.Helper()
	current := at
	nowFunc = func() time.Time { return current }
	t.Cleanup(func() { nowFunc = time.Now })
	return &current
}
