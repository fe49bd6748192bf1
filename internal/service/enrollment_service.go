package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ActivityRepo   *repository.ActivityRepository
	Stats          *StatsCache
}

func NewEnrollmentService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	activityRepo *repository.ActivityRepository,
	stats *StatsCache,
) *EnrollmentService {
	return &EnrollmentService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ActivityRepo:   activityRepo,
		Stats:          stats,
	}
}

// EnrollmentProgress 选课进度详情
type EnrollmentProgress struct {
	Enrollment        *model.Enrollment      `json:"enrollment"`
	TotalLessons      int64                  `json:"totalLessons"`
	CompletedLessons  int64                  `json:"completedLessons"`
	TotalStudyMinutes int64                  `json:"totalStudyMinutes"`
	Lessons           []model.LessonProgress `json:"lessons"`
	Modules           []model.ModuleProgress `json:"modules"`
	NextLesson        *model.Lesson          `json:"nextLesson,omitempty"`
}

// LessonCompletion 记录课时完成后的结果
type LessonCompletion struct {
	Enrollment      *model.Enrollment     `json:"enrollment"`
	Lesson          *model.LessonProgress `json:"lesson"`
	Module          *model.ModuleProgress `json:"module"`
	NewlyCompleted  bool                  `json:"newlyCompleted"`
	CourseCompleted bool                  `json:"courseCompleted"`
}

// progressTx 同一事务内使用的仓储
type progressTx struct {
	courses     *repository.CourseRepository
	enrollments *repository.EnrollmentRepository
	activities  *repository.ActivityRepository
}

func (s *EnrollmentService) withTx(tx *gorm.DB) progressTx {
	return progressTx{
		courses:     s.CourseRepo.WithTx(tx),
		enrollments: s.EnrollmentRepo.WithTx(tx),
		activities:  s.ActivityRepo.WithTx(tx),
	}
}

// Enroll 学生选课，同一 (学生, 课程) 只能存在一条记录
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	ctx, span := tracing.Start(ctx, "EnrollmentService.Enroll")
	defer span.End()
	span.SetAttributes(attribute.Int64("student.id", int64(studentID)), attribute.Int64("course.id", int64(courseID)))

	var enrollment *model.Enrollment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)

		course, err := repos.courses.FindByID(courseID)
		if err != nil {
			return notFound(err, util.ErrCourseNotFound)
		}
		if !course.IsPublished() {
			return util.ErrCourseNotFound
		}

		if _, err := repos.enrollments.FindByStudentCourse(studentID, courseID); err == nil {
			return util.ErrAlreadyEnrolled
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if course.MaxStudents != nil {
			count, err := repos.enrollments.CountActiveByCourse(courseID)
			if err != nil {
				return err
			}
			if count >= int64(*course.MaxStudents) {
				return util.ErrCourseFull
			}
		}

		enrollment = &model.Enrollment{
			StudentID:  studentID,
			CourseID:   courseID,
			Status:     model.EnrollmentActive,
			EnrolledAt: nowFunc(),
			IsActive:   true,
		}
		if err := repos.enrollments.Create(enrollment); err != nil {
			return duplicate(err, util.ErrAlreadyEnrolled)
		}

		return recordActivity(repos.activities, studentID, model.ActionCourseEnrolled, uintPtr(courseID),
			"Enrolled in "+course.Title, nil)
	})
	if err != nil {
		return nil, err
	}

	s.Stats.Invalidate(ctx, courseID)
	monitoring.EnrollmentCounter.WithLabelValues("enrolled").Inc()
	logger.Log.Info("Student enrolled",
		zap.Uint("studentId", studentID),
		zap.Uint("courseId", courseID),
		zap.Uint("enrollmentId", enrollment.ID),
	)
	return enrollment, nil
}

// ownedEnrollment 选课必须属于该学生，否则视为不存在
func ownedEnrollment(repo *repository.EnrollmentRepository, studentID, enrollmentID uint, lock bool) (*model.Enrollment, error) {
	var (
		enrollment *model.Enrollment
		err        error
	)
	if lock {
		enrollment, err = repo.FindForUpdate(enrollmentID)
	} else {
		enrollment, err = repo.FindByID(enrollmentID)
	}
	if err != nil {
		return nil, notFound(err, util.ErrEnrollmentNotFound)
	}
	if enrollment.StudentID != studentID {
		return nil, util.ErrEnrollmentNotFound
	}
	return enrollment, nil
}

// lessonInCourse 返回课时所属模块，课时必须属于选课的课程
func lessonInCourse(repo *repository.CourseRepository, courseID, lessonID uint) (uint, error) {
	lessonCourseID, moduleID, err := repo.LessonCourseID(lessonID)
	if err != nil {
		return 0, notFound(err, util.ErrLessonNotFound)
	}
	if lessonCourseID != courseID {
		return 0, util.ErrLessonNotFound
	}
	return moduleID, nil
}

// RecordLessonCompletion 标记课时完成并重新计算课程与模块进度，重复调用不会重复计数
func (s *EnrollmentService) RecordLessonCompletion(ctx context.Context, studentID, enrollmentID, lessonID uint) (*LessonCompletion, error) {
	ctx, span := tracing.Start(ctx, "EnrollmentService.RecordLessonCompletion")
	defer span.End()
	span.SetAttributes(attribute.Int64("enrollment.id", int64(enrollmentID)), attribute.Int64("lesson.id", int64(lessonID)))

	var result *LessonCompletion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, true)
		if err != nil {
			return err
		}
		if !enrollment.AllowsProgress() {
			return util.ErrEnrollmentInactive
		}
		moduleID, err := lessonInCourse(repos.courses, enrollment.CourseID, lessonID)
		if err != nil {
			return err
		}

		result, err = s.completeLesson(repos, enrollment, lessonID, moduleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCompletion(result)
	return result, nil
}

// afterCompletion 事务提交后的指标与日志
func (s *EnrollmentService) afterCompletion(result *LessonCompletion) {
	if result == nil {
		return
	}
	if result.NewlyCompleted {
		monitoring.LessonCompletionCounter.Inc()
	}
	if result.CourseCompleted {
		monitoring.EnrollmentCounter.WithLabelValues("completed").Inc()
		logger.Log.Info("Course completed",
			zap.Uint("enrollmentId", result.Enrollment.ID),
			zap.Uint("studentId", result.Enrollment.StudentID),
			zap.Uint("courseId", result.Enrollment.CourseID),
		)
	}
}

// completeLesson 在调用方事务内完成课时，供测验通过时复用
func (s *EnrollmentService) completeLesson(repos progressTx, enrollment *model.Enrollment, lessonID, moduleID uint) (*LessonCompletion, error) {
	now := nowFunc()
	progress, _, err := s.touchLessonProgress(repos, enrollment, lessonID, false)
	if err != nil {
		return nil, err
	}

	result := &LessonCompletion{Enrollment: enrollment, Lesson: progress}
	if !progress.IsCompleted {
		progress.IsCompleted = true
		progress.CompletedAt = &now
		if err := repos.enrollments.SaveLessonProgress(progress); err != nil {
			return nil, fmt.Errorf("save lesson progress: %w", err)
		}
		result.NewlyCompleted = true
		if err := recordActivity(repos.activities, enrollment.StudentID, model.ActionLessonCompleted,
			uintPtr(enrollment.CourseID), "", map[string]interface{}{"lessonId": lessonID}); err != nil {
			return nil, err
		}
	}

	courseCompleted, err := s.recalculateProgress(repos, enrollment)
	if err != nil {
		return nil, err
	}
	result.CourseCompleted = courseCompleted

	result.Module, err = s.recalculateModuleProgress(repos, enrollment, moduleID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// touchLessonProgress 首次访问时创建课时进度，并标记选课已开始
func (s *EnrollmentService) touchLessonProgress(repos progressTx, enrollment *model.Enrollment, lessonID uint, countAccess bool) (*model.LessonProgress, bool, error) {
	now := nowFunc()
	created := false

	progress, err := repos.enrollments.FindLessonProgress(enrollment.ID, lessonID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		progress = &model.LessonProgress{
			EnrollmentID:  enrollment.ID,
			LessonID:      lessonID,
			FirstAccessed: now,
			LastAccessed:  now,
			AccessCount:   1,
		}
		if err := repos.enrollments.CreateLessonProgress(progress); err != nil {
			return nil, false, fmt.Errorf("create lesson progress: %w", err)
		}
		created = true
	case err != nil:
		return nil, false, err
	case countAccess:
		progress.AccessCount++
		progress.LastAccessed = now
		if err := repos.enrollments.SaveLessonProgress(progress); err != nil {
			return nil, false, err
		}
	}

	if enrollment.StartedAt == nil {
		enrollment.StartedAt = &now
	}
	enrollment.LastAccessed = &now
	if err := repos.enrollments.Update(enrollment); err != nil {
		return nil, false, fmt.Errorf("update enrollment: %w", err)
	}
	return progress, created, nil
}

// recalculateProgress 进度 = 已完成课时 / 课程总课时 * 100，达到 100 时 active 转为 completed
func (s *EnrollmentService) recalculateProgress(repos progressTx, enrollment *model.Enrollment) (bool, error) {
	total, err := repos.courses.CountLessons(enrollment.CourseID)
	if err != nil {
		return false, err
	}
	completed, err := repos.enrollments.CountCompletedLessons(enrollment.ID)
	if err != nil {
		return false, err
	}

	enrollment.ProgressPercentage = model.ProgressPercentage(completed, total)

	courseCompleted := false
	if enrollment.ProgressPercentage >= 100 && enrollment.Status == model.EnrollmentActive {
		now := nowFunc()
		enrollment.Status = model.EnrollmentCompleted
		enrollment.CompletedAt = &now
		enrollment.ProgressPercentage = 100
		courseCompleted = true
	}

	if err := repos.enrollments.Update(enrollment); err != nil {
		return false, fmt.Errorf("update enrollment progress: %w", err)
	}

	if courseCompleted {
		if err := recordActivity(repos.activities, enrollment.StudentID, model.ActionCourseCompleted,
			uintPtr(enrollment.CourseID), "", nil); err != nil {
			return false, err
		}
	}
	return courseCompleted, nil
}

// recalculateModuleProgress 模块进度由模块下课时完成情况推导
func (s *EnrollmentService) recalculateModuleProgress(repos progressTx, enrollment *model.Enrollment, moduleID uint) (*model.ModuleProgress, error) {
	total, err := repos.courses.CountModuleLessons(moduleID)
	if err != nil {
		return nil, err
	}
	completed, err := repos.enrollments.CountCompletedModuleLessons(enrollment.ID, moduleID)
	if err != nil {
		return nil, err
	}

	progress, err := repos.enrollments.FindModuleProgress(enrollment.ID, moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = &model.ModuleProgress{EnrollmentID: enrollment.ID, ModuleID: moduleID}
	} else if err != nil {
		return nil, err
	}

	progress.ProgressPercentage = model.ProgressPercentage(completed, total)
	switch {
	case progress.ProgressPercentage >= 100 && !progress.IsCompleted:
		now := nowFunc()
		progress.IsCompleted = true
		progress.CompletedAt = &now
	case progress.ProgressPercentage < 100:
		progress.IsCompleted = false
		progress.CompletedAt = nil
	}

	if err := repos.enrollments.SaveModuleProgress(progress); err != nil {
		return nil, fmt.Errorf("save module progress: %w", err)
	}
	return progress, nil
}

// RecalculateProgress 重新计算课程进度
func (s *EnrollmentService) RecalculateProgress(ctx context.Context, enrollmentID uint) (*model.Enrollment, error) {
	var enrollment *model.Enrollment
	var courseCompleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		var err error
		enrollment, err = repos.enrollments.FindForUpdate(enrollmentID)
		if err != nil {
			return notFound(err, util.ErrEnrollmentNotFound)
		}
		courseCompleted, err = s.recalculateProgress(repos, enrollment)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCompletion(&LessonCompletion{Enrollment: enrollment, CourseCompleted: courseCompleted})
	return enrollment, nil
}

// RecalculateModuleProgress 重新计算单个模块进度
func (s *EnrollmentService) RecalculateModuleProgress(ctx context.Context, enrollmentID, moduleID uint) (*model.ModuleProgress, error) {
	var progress *model.ModuleProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		enrollment, err := repos.enrollments.FindForUpdate(enrollmentID)
		if err != nil {
			return notFound(err, util.ErrEnrollmentNotFound)
		}
		module, err := repos.courses.FindModule(moduleID)
		if err != nil {
			return notFound(err, util.ErrModuleNotFound)
		}
		if module.CourseID != enrollment.CourseID {
			return util.ErrModuleNotFound
		}
		progress, err = s.recalculateModuleProgress(repos, enrollment, moduleID)
		return err
	})
	return progress, err
}

// AccessLesson 学生打开课时，记录访问次数
func (s *EnrollmentService) AccessLesson(ctx context.Context, studentID, enrollmentID, lessonID uint) (*model.LessonProgress, error) {
	var progress *model.LessonProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, true)
		if err != nil {
			return err
		}
		if !enrollment.AllowsProgress() {
			return util.ErrEnrollmentInactive
		}
		if _, err := lessonInCourse(repos.courses, enrollment.CourseID, lessonID); err != nil {
			return err
		}
		progress, _, err = s.touchLessonProgress(repos, enrollment, lessonID, true)
		return err
	})
	return progress, err
}

// AddStudyTime 累加课时学习时长（分钟）
func (s *EnrollmentService) AddStudyTime(ctx context.Context, studentID, enrollmentID, lessonID uint, minutes int) (*model.LessonProgress, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", util.ErrValidation)
	}
	return s.updateLessonProgress(ctx, studentID, enrollmentID, lessonID, func(p *model.LessonProgress) {
		p.TimeSpentMinutes += minutes
	})
}

// UpdateVideoProgress 视频播放位置只增不减
func (s *EnrollmentService) UpdateVideoProgress(ctx context.Context, studentID, enrollmentID, lessonID uint, seconds int) (*model.LessonProgress, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("%w: seconds must not be negative", util.ErrValidation)
	}
	return s.updateLessonProgress(ctx, studentID, enrollmentID, lessonID, func(p *model.LessonProgress) {
		if seconds > p.VideoProgressSeconds {
			p.VideoProgressSeconds = seconds
		}
	})
}

func (s *EnrollmentService) updateLessonProgress(ctx context.Context, studentID, enrollmentID, lessonID uint, apply func(*model.LessonProgress)) (*model.LessonProgress, error) {
	var progress *model.LessonProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, true)
		if err != nil {
			return err
		}
		if !enrollment.AllowsProgress() {
			return util.ErrEnrollmentInactive
		}
		if _, err := lessonInCourse(repos.courses, enrollment.CourseID, lessonID); err != nil {
			return err
		}
		progress, _, err = s.touchLessonProgress(repos, enrollment, lessonID, false)
		if err != nil {
			return err
		}
		apply(progress)
		progress.LastAccessed = nowFunc()
		return repos.enrollments.SaveLessonProgress(progress)
	})
	return progress, err
}

// NextLesson 按模块和课时顺序返回第一个未完成的已发布课时，全部完成时返回 nil
func (s *EnrollmentService) NextLesson(ctx context.Context, studentID, enrollmentID uint) (*model.Lesson, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, false)
	if err != nil {
		return nil, err
	}
	return nextLesson(repos, enrollment)
}

func nextLesson(repos progressTx, enrollment *model.Enrollment) (*model.Lesson, error) {
	lessons, err := repos.courses.OrderedPublishedLessons(enrollment.CourseID)
	if err != nil {
		return nil, err
	}
	done, err := repos.enrollments.CompletedLessonIDs(enrollment.ID)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		if !done[lessons[i].ID] {
			return &lessons[i], nil
		}
	}
	return nil, nil
}

// TotalStudyTime 选课累计学习分钟数
func (s *EnrollmentService) TotalStudyTime(ctx context.Context, studentID, enrollmentID uint) (int64, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, false)
	if err != nil {
		return 0, err
	}
	return repos.enrollments.TotalStudyMinutes(enrollment.ID)
}

// Drop 退课，保留记录，不可重复退课
func (s *EnrollmentService) Drop(ctx context.Context, studentID, enrollmentID uint) (*model.Enrollment, error) {
	var enrollment *model.Enrollment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.withTx(tx)
		var err error
		enrollment, err = ownedEnrollment(repos.enrollments, studentID, enrollmentID, true)
		if err != nil {
			return err
		}
		if enrollment.Status == model.EnrollmentDropped {
			return fmt.Errorf("%w: enrollment already dropped", util.ErrInvalidState)
		}
		enrollment.Status = model.EnrollmentDropped
		enrollment.IsActive = false
		if err := repos.enrollments.Update(enrollment); err != nil {
			return err
		}
		return recordActivity(repos.activities, studentID, model.ActionCourseDropped, uintPtr(enrollment.CourseID), "", nil)
	})
	if err != nil {
		return nil, err
	}

	s.Stats.Invalidate(ctx, enrollment.CourseID)
	monitoring.EnrollmentCounter.WithLabelValues("dropped").Inc()
	logger.Log.Info("Enrollment dropped", zap.Uint("enrollmentId", enrollmentID), zap.Uint("studentId", studentID))
	return enrollment, nil
}

func (s *EnrollmentService) ListEnrollments(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	return s.withTx(s.DB.WithContext(ctx)).enrollments.ListByStudent(studentID)
}

// GetProgress 选课进度详情
func (s *EnrollmentService) GetProgress(ctx context.Context, studentID, enrollmentID uint) (*EnrollmentProgress, error) {
	repos := s.withTx(s.DB.WithContext(ctx))
	enrollment, err := ownedEnrollment(repos.enrollments, studentID, enrollmentID, false)
	if err != nil {
		return nil, err
	}

	result := &EnrollmentProgress{Enrollment: enrollment}
	if result.TotalLessons, err = repos.courses.CountLessons(enrollment.CourseID); err != nil {
		return nil, err
	}
	if result.CompletedLessons, err = repos.enrollments.CountCompletedLessons(enrollment.ID); err != nil {
		return nil, err
	}
	if result.TotalStudyMinutes, err = repos.enrollments.TotalStudyMinutes(enrollment.ID); err != nil {
		return nil, err
	}
	if result.Lessons, err = repos.enrollments.ListLessonProgress(enrollment.ID); err != nil {
		return nil, err
	}
	if result.Modules, err = repos.enrollments.ListModuleProgress(enrollment.ID); err != nil {
		return nil, err
	}
	if result.NextLesson, err = nextLesson(repos, enrollment); err != nil {
		return nil, err
	}
	return result, nil
}
