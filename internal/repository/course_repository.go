package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

// CourseFilter 课程列表筛选条件
type CourseFilter struct {
	CategoryID *uint
	Difficulty string
	Search     string
}

// CourseListItem 列表项，附带聚合字段
type CourseListItem struct {
	model.Course
	AverageRating float64 `json:"averageRating"`
	TotalStudents int64   `json:"totalStudents"`
}

// CourseStats 课程统计，一条聚合语句获得
type CourseStats struct {
	TotalLessons         int64   `json:"totalLessons"`
	TotalDurationMinutes int64   `json:"totalDurationMinutes"`
	TotalStudents        int64   `json:"totalStudents"`
	AverageRating        float64 `json:"averageRating"`
	ReviewCount          int64   `json:"reviewCount"`
}

const (
	totalStudentsSubquery = "(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = courses.id AND e.is_active = ?)"
	averageRatingSubquery = "(SELECT COALESCE(AVG(cr.rating), 0) FROM course_reviews cr WHERE cr.course_id = courses.id)"
)

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Omit("Modules").Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.DB.Unscoped().Model(&model.Course{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// FindWithContent 课程及按顺序排列的模块与课时
func (r *CourseRepository) FindWithContent(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListPublished(filter CourseFilter, page, limit int) ([]CourseListItem, int64, error) {
	query := r.DB.Model(&model.Course{}).Where("courses.status = ?", model.CoursePublished)
	if filter.CategoryID != nil {
		query = query.Where("courses.category_id = ?", *filter.CategoryID)
	}
	if filter.Difficulty != "" {
		query = query.Where("courses.difficulty = ?", filter.Difficulty)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("courses.title LIKE ? OR courses.short_description LIKE ?", term, term)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []CourseListItem
	err := query.
		Select("courses.*, "+averageRatingSubquery+" AS average_rating, "+totalStudentsSubquery+" AS total_students", true).
		Order("courses.published_at DESC, courses.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&items).Error
	return items, total, err
}

func (r *CourseRepository) ListByInstructor(instructorID uint) ([]CourseListItem, error) {
	var items []CourseListItem
	err := r.DB.Model(&model.Course{}).
		Select("courses.*, "+averageRatingSubquery+" AS average_rating, "+totalStudentsSubquery+" AS total_students", true).
		Where("courses.instructor_id = ?", instructorID).
		Order("courses.created_at DESC").
		Scan(&items).Error
	return items, err
}

// Stats 课时数、总时长、学生数、平均评分
func (r *CourseRepository) Stats(courseID uint) (*CourseStats, error) {
	var stats CourseStats
	err := r.DB.Raw(`SELECT
		(SELECT COUNT(*) FROM lessons l JOIN course_modules m ON m.id = l.module_id
			WHERE m.course_id = @id AND l.deleted_at IS NULL AND m.deleted_at IS NULL) AS total_lessons,
		(SELECT COALESCE(SUM(l.duration_minutes), 0) FROM lessons l JOIN course_modules m ON m.id = l.module_id
			WHERE m.course_id = @id AND l.deleted_at IS NULL AND m.deleted_at IS NULL) AS total_duration_minutes,
		(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = @id AND e.is_active = @active) AS total_students,
		(SELECT COALESCE(AVG(cr.rating), 0) FROM course_reviews cr WHERE cr.course_id = @id) AS average_rating,
		(SELECT COUNT(*) FROM course_reviews cr WHERE cr.course_id = @id) AS review_count`,
		map[string]interface{}{"id": courseID, "active": true},
	).Scan(&stats).Error
	return &stats, err
}

func (r *CourseRepository) CountLessons(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id AND course_modules.deleted_at IS NULL").
		Where("course_modules.course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (r *CourseRepository) CountModuleLessons(moduleID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).Where("module_id = ?", moduleID).Count(&count).Error
	return count, err
}

func (r *CourseRepository) CreateModule(module *model.Module) error {
	return r.DB.Create(module).Error
}

func (r *CourseRepository) FindModule(id uint) (*model.Module, error) {
	var module model.Module
	err := r.DB.First(&module, id).Error
	return &module, err
}

func (r *CourseRepository) CreateLesson(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *CourseRepository) UpdateLesson(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *CourseRepository) FindLesson(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, id).Error
	return &lesson, err
}

// LessonCourseID 课时所属课程
func (r *CourseRepository) LessonCourseID(lessonID uint) (uint, uint, error) {
	var row struct {
		ModuleID uint
		CourseID uint
	}
	err := r.DB.Model(&model.Lesson{}).
		Select("lessons.module_id, course_modules.course_id").
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id AND course_modules.deleted_at IS NULL").
		Where("lessons.id = ?", lessonID).
		Take(&row).Error
	return row.CourseID, row.ModuleID, err
}

// OrderedPublishedLessons 课程内已发布课时，按模块顺序再按课时顺序
func (r *CourseRepository) OrderedPublishedLessons(courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id AND course_modules.deleted_at IS NULL").
		Where("course_modules.course_id = ? AND course_modules.is_published = ? AND lessons.is_published = ?", courseID, true, true).
		Order("course_modules.sort_order ASC, lessons.sort_order ASC, lessons.id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) CreateReview(review *model.CourseReview) error {
	return r.DB.Create(review).Error
}

func (r *CourseRepository) ListReviews(courseID uint) ([]model.CourseReview, error) {
	var reviews []model.CourseReview
	err := r.DB.Where("course_id = ? AND is_approved = ?", courseID, true).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *CourseRepository) CreateCategory(category *model.Category) error {
	return r.DB.Create(category).Error
}

func (r *CourseRepository) FindCategory(id uint) (*model.Category, error) {
	var category model.Category
	err := r.DB.First(&category, id).Error
	return &category, err
}

func (r *CourseRepository) ListCategories() ([]model.Category, error) {
	var categories []model.Category
	err := r.DB.Order("name ASC").Find(&categories).Error
	return categories, err
}
