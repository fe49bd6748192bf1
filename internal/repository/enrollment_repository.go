package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) Update(enrollment *model.Enrollment) error {
	return r.DB.Omit("Course").Save(enrollment).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.First(&enrollment, id).Error
	return &enrollment, err
}

// FindForUpdate 读取并锁定选课记录，sqlite 下锁子句被忽略
func (r *EnrollmentRepository) FindForUpdate(id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&enrollment, id).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) FindByStudentCourse(studentID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) FindByStudentCourseForUpdate(studentID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) ListByStudent(studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Preload("Course").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) CountActiveByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) FindLessonProgress(enrollmentID, lessonID uint) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).First(&progress).Error
	return &progress, err
}

func (r *EnrollmentRepository) CreateLessonProgress(progress *model.LessonProgress) error {
	return r.DB.Create(progress).Error
}

func (r *EnrollmentRepository) SaveLessonProgress(progress *model.LessonProgress) error {
	return r.DB.Save(progress).Error
}

func (r *EnrollmentRepository) ListLessonProgress(enrollmentID uint) ([]model.LessonProgress, error) {
	var rows []model.LessonProgress
	err := r.DB.Where("enrollment_id = ?", enrollmentID).Order("lesson_id ASC").Find(&rows).Error
	return rows, err
}

// CountCompletedLessons 仅统计仍存在的课时
func (r *EnrollmentRepository) CountCompletedLessons(enrollmentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_progress.enrollment_id = ? AND lesson_progress.is_completed = ?", enrollmentID, true).
		Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) CountCompletedModuleLessons(enrollmentID, moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_progress.enrollment_id = ? AND lessons.module_id = ? AND lesson_progress.is_completed = ?", enrollmentID, moduleID, true).
		Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) FindModuleProgress(enrollmentID, moduleID uint) (*model.ModuleProgress, error) {
	var progress model.ModuleProgress
	err := r.DB.Where("enrollment_id = ? AND module_id = ?", enrollmentID, moduleID).First(&progress).Error
	return &progress, err
}

func (r *EnrollmentRepository) SaveModuleProgress(progress *model.ModuleProgress) error {
	return r.DB.Save(progress).Error
}

func (r *EnrollmentRepository) ListModuleProgress(enrollmentID uint) ([]model.ModuleProgress, error) {
	var rows []model.ModuleProgress
	err := r.DB.Where("enrollment_id = ?", enrollmentID).Order("module_id ASC").Find(&rows).Error
	return rows, err
}

// CompletedLessonIDs 选课下已完成课时的 ID 集合
func (r *EnrollmentRepository) CompletedLessonIDs(enrollmentID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.LessonProgress{}).
		Where("enrollment_id = ? AND is_completed = ?", enrollmentID, true).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *EnrollmentRepository) TotalStudyMinutes(enrollmentID uint) (int64, error) {
	var total int64
	err := r.DB.Model(&model.LessonProgress{}).
		Select("COALESCE(SUM(time_spent_minutes), 0)").
		Where("enrollment_id = ?", enrollmentID).
		Scan(&total).Error
	return total, err
}

// StudentStudyMinutes 学生所有选课累计学习时长
func (r *EnrollmentRepository) StudentStudyMinutes(studentID uint) (int64, error) {
	var total int64
	err := r.DB.Model(&model.LessonProgress{}).
		Select("COALESCE(SUM(lesson_progress.time_spent_minutes), 0)").
		Joins("JOIN enrollments ON enrollments.id = lesson_progress.enrollment_id").
		Where("enrollments.student_id = ?", studentID).
		Scan(&total).Error
	return total, err
}

// CountByInstructor 讲师名下课程的选课总数
func (r *EnrollmentRepository) CountByInstructor(instructorID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id AND courses.deleted_at IS NULL").
		Where("courses.instructor_id = ?", instructorID).
		Count(&count).Error
	return count, err
}
