package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/tracing"

	"gorm.io/gorm"
)

const (
	recentAttemptLimit  = 5
	recentActivityLimit = 10
)

type DashboardService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	AttemptRepo    *repository.AttemptRepository
	ActivityRepo   *repository.ActivityRepository
}

func NewDashboardService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	attemptRepo *repository.AttemptRepository,
	activityRepo *repository.ActivityRepository,
) *DashboardService {
	return &DashboardService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		AttemptRepo:    attemptRepo,
		ActivityRepo:   activityRepo,
	}
}

// StudentDashboard 学生仪表盘
type StudentDashboard struct {
	ActiveEnrollments []model.Enrollment  `json:"activeEnrollments"`
	InProgress        []model.Enrollment  `json:"inProgress"`
	Completed         []model.Enrollment  `json:"completed"`
	TotalStudyMinutes int64               `json:"totalStudyMinutes"`
	RecentAttempts    []model.QuizAttempt `json:"recentAttempts"`
	RecentActivity    []model.ActivityLog `json:"recentActivity"`
}

// InstructorDashboard 讲师仪表盘
type InstructorDashboard struct {
	Courses          []repository.CourseListItem `json:"courses"`
	TotalEnrollments int64                       `json:"totalEnrollments"`
	PendingGrading   int64                       `json:"pendingGrading"`
}

func (s *DashboardService) StudentDashboard(ctx context.Context, studentID uint) (*StudentDashboard, error) {
	ctx, span := tracing.Start(ctx, "DashboardService.StudentDashboard")
	defer span.End()

	db := s.DB.WithContext(ctx)
	enrollments, err := s.EnrollmentRepo.WithTx(db).ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	dashboard := &StudentDashboard{
		ActiveEnrollments: []model.Enrollment{},
		InProgress:        []model.Enrollment{},
		Completed:         []model.Enrollment{},
	}
	for _, e := range enrollments {
		switch e.Status {
		case model.EnrollmentActive:
			dashboard.ActiveEnrollments = append(dashboard.ActiveEnrollments, e)
			if e.ProgressPercentage < 100 {
				dashboard.InProgress = append(dashboard.InProgress, e)
			}
		case model.EnrollmentCompleted:
			dashboard.Completed = append(dashboard.Completed, e)
		}
	}

	if dashboard.TotalStudyMinutes, err = s.EnrollmentRepo.WithTx(db).StudentStudyMinutes(studentID); err != nil {
		return nil, err
	}
	if dashboard.RecentAttempts, err = s.AttemptRepo.WithTx(db).RecentByStudent(studentID, recentAttemptLimit); err != nil {
		return nil, err
	}
	if dashboard.RecentActivity, err = s.ActivityRepo.WithTx(db).RecentByUser(studentID, recentActivityLimit); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *DashboardService) InstructorDashboard(ctx context.Context, instructorID uint) (*InstructorDashboard, error) {
	ctx, span := tracing.Start(ctx, "DashboardService.InstructorDashboard")
	defer span.End()

	db := s.DB.WithContext(ctx)
	courses, err := s.CourseRepo.WithTx(db).ListByInstructor(instructorID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []repository.CourseListItem{}
	}

	dashboard := &InstructorDashboard{Courses: courses}
	if dashboard.TotalEnrollments, err = s.EnrollmentRepo.WithTx(db).CountByInstructor(instructorID); err != nil {
		return nil, err
	}
	if dashboard.PendingGrading, err = s.AttemptRepo.WithTx(db).CountPendingManualGrading(instructorID); err != nil {
		return nil, err
	}
	return dashboard, nil
}
